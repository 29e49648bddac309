package retrieval

import (
	"strings"
	"testing"

	"github.com/Ethan225300/mbspro/types"
)

func TestSplitQuery(t *testing.T) {
	query := "gp review 25 minutes\n#constraints\n+group:A1 +duration:20-40 -code:36"
	clean, cs := SplitQuery(query)
	if clean != "gp review 25 minutes" {
		t.Errorf("clean = %q", clean)
	}
	if len(cs) != 3 {
		t.Fatalf("constraints = %v", cs)
	}
	if cs[0] != (types.Constraint{Key: "group", Value: "A1"}) {
		t.Errorf("first = %v", cs[0])
	}
	if !cs[2].Negated || cs[2].Key != "code" || cs[2].Value != "36" {
		t.Errorf("must_not = %v", cs[2])
	}
}

func TestSplitQueryWithoutBlock(t *testing.T) {
	clean, cs := SplitQuery("  plain query  ")
	if clean != "plain query" || cs != nil {
		t.Errorf("clean=%q cs=%v", clean, cs)
	}
}

func TestAppendConstraintsRoundTrip(t *testing.T) {
	cs := []types.Constraint{
		{Key: "duration", Value: "20-40"},
		{Key: "code", Value: "36", Negated: true},
		{Key: "duration", Value: "20-40"}, // duplicate collapses
	}
	query := AppendConstraints("knee pain review", cs)
	if !strings.Contains(query, ConstraintMarker) {
		t.Fatalf("query = %q", query)
	}
	clean, parsed := SplitQuery(query)
	if clean != "knee pain review" || len(parsed) != 2 {
		t.Errorf("round trip: clean=%q parsed=%v", clean, parsed)
	}
}

func TestCompileFilter(t *testing.T) {
	cs := []types.Constraint{
		{Key: "group", Value: "A1"},
		{Key: "duration", Value: ">=20"},
		{Key: "code", Value: "36", Negated: true},
		{Key: "modality", Value: "video"}, // unstructured: not filterable
	}
	compiled := CompileFilter(cs)
	if !strings.Contains(compiled.Expr, "group_code == 'A1'") {
		t.Errorf("expr = %q", compiled.Expr)
	}
	if !strings.Contains(compiled.Expr, "duration_min_minutes >= 20") {
		t.Errorf("expr = %q", compiled.Expr)
	}
	if strings.Contains(compiled.Expr, "video") {
		t.Errorf("unstructured key leaked into expr: %q", compiled.Expr)
	}
	if len(compiled.BannedCodes) != 1 || compiled.BannedCodes[0] != "36" {
		t.Errorf("banned = %v", compiled.BannedCodes)
	}
}

func TestDurationBuckets(t *testing.T) {
	tests := []struct {
		min, max int
		want     string
	}{
		{25, 25, "20-40"},
		{10, 15, "<20"},
		{45, 60, ">=40"},
	}
	for _, tt := range tests {
		iv := &types.Interval{Min: &tt.min, Max: &tt.max, LeftClosed: true, RightClosed: true}
		if got := DurationBucket(iv); got != tt.want {
			t.Errorf("[%d,%d] → %q, want %q", tt.min, tt.max, got, tt.want)
		}
	}
	if DurationBucket(nil) != "" {
		t.Error("nil interval must yield no bucket")
	}
}

func TestBucketContains(t *testing.T) {
	tests := []struct {
		bucket string
		v      int
		want   bool
	}{
		{"<20", 15, true},
		{"<20", 20, false},
		{">=40", 40, true},
		{">=40", 39, false},
		{"20-40", 30, true},
		{"20-40", 41, false},
		{"garbage", 10, false},
	}
	for _, tt := range tests {
		if got := BucketContains(tt.bucket, tt.v); got != tt.want {
			t.Errorf("BucketContains(%q, %d) = %v", tt.bucket, tt.v, got)
		}
	}
}

func TestParseConstraintToken(t *testing.T) {
	c, ok := ParseConstraintToken("+duration:20-40")
	if !ok || c.Key != "duration" || c.Value != "20-40" {
		t.Errorf("parsed = %v ok=%v", c, ok)
	}
	if _, ok := ParseConstraintToken("junk"); ok {
		t.Error("junk token must not parse")
	}
}
