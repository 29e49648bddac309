// Package retrieval implements the candidate retrieval pipeline: query
// splitting, metadata filter compilation, vector search, hybrid and
// constraint-aware reranking, and LLM answer synthesis.
package retrieval

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/Ethan225300/mbspro/types"
)

// ConstraintMarker separates the freeform query from the inline
// constraint block.
const ConstraintMarker = "#constraints"

// Structured constraint keys that compile into metadata filters. Other
// keys are still carried verbatim into the LLM context.
var structuredKeys = map[string]bool{
	"code":     true,
	"group":    true,
	"subgroup": true,
	"duration": true,
}

var reToken = regexp.MustCompile(`([+-])([a-z_]+):(\S+)`)

// SplitQuery separates the clean semantic query from the constraint
// tokens of the inline DSL.
func SplitQuery(query string) (cleanQuery string, constraints []types.Constraint) {
	idx := strings.Index(query, ConstraintMarker)
	if idx < 0 {
		return strings.TrimSpace(query), nil
	}
	cleanQuery = strings.TrimSpace(query[:idx])
	block := query[idx+len(ConstraintMarker):]
	for _, m := range reToken.FindAllStringSubmatch(block, -1) {
		constraints = append(constraints, types.Constraint{
			Key:     m[2],
			Value:   m[3],
			Negated: m[1] == "-",
		})
	}
	return cleanQuery, constraints
}

// AppendConstraints renders a query plus DSL block. Duplicate tokens
// collapse.
func AppendConstraints(query string, constraints []types.Constraint) string {
	if len(constraints) == 0 {
		return query
	}
	seen := map[string]bool{}
	var tokens []string
	for _, c := range constraints {
		s := c.String()
		if !seen[s] {
			seen[s] = true
			tokens = append(tokens, s)
		}
	}
	return query + "\n" + ConstraintMarker + "\n" + strings.Join(tokens, " ")
}

// ParseConstraintToken parses a raw "key:value" string (as emitted by
// the reflector's LLM) into a must constraint.
func ParseConstraintToken(tok string) (types.Constraint, bool) {
	tok = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(tok), "+"))
	parts := strings.SplitN(tok, ":", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return types.Constraint{}, false
	}
	return types.Constraint{
		Key:   strings.ToLower(strings.TrimSpace(parts[0])),
		Value: strings.TrimSpace(parts[1]),
	}, true
}

// --- duration buckets ---

var (
	reBucketLess  = regexp.MustCompile(`^<(\d+)$`)
	reBucketGE    = regexp.MustCompile(`^>=(\d+)$`)
	reBucketRange = regexp.MustCompile(`^(\d+)-(\d+)$`)
)

// DurationBucket bins the note's duration interval into a DSL bucket
// ("<N", ">=N", "A-B") over the standard MBS time tiers. The same
// binning feeds the critic's must constraints and the stage-2 rerank.
func DurationBucket(iv *types.Interval) string {
	if iv == nil {
		return ""
	}
	rep, ok := iv.Midpoint()
	if !ok {
		return ""
	}
	switch {
	case rep < 20:
		return "<20"
	case rep < 40:
		return "20-40"
	}
	return ">=40"
}

// BucketContains reports whether minute v satisfies bucket.
func BucketContains(bucket string, v int) bool {
	if m := reBucketLess.FindStringSubmatch(bucket); m != nil {
		n, _ := strconv.Atoi(m[1])
		return v < n
	}
	if m := reBucketGE.FindStringSubmatch(bucket); m != nil {
		n, _ := strconv.Atoi(m[1])
		return v >= n
	}
	if m := reBucketRange.FindStringSubmatch(bucket); m != nil {
		lo, _ := strconv.Atoi(m[1])
		hi, _ := strconv.Atoi(m[2])
		return v >= lo && v <= hi
	}
	return false
}

// CompiledFilter is the outcome of compiling must/must-not tokens into a
// vector-store scalar filter plus a banned code set.
type CompiledFilter struct {
	Expr        string
	BannedCodes []string
}

// CompileFilter turns structured must tokens into a Milvus scalar
// expression and accumulates must-not codes into the banned set.
// Unstructured keys are ignored here; they still ride along to the LLM.
func CompileFilter(constraints []types.Constraint) CompiledFilter {
	var exprs []string
	var banned []string
	var mustCodes []string

	for _, c := range constraints {
		if c.Negated {
			if c.Key == "code" {
				banned = append(banned, c.Value)
			}
			continue
		}
		if !structuredKeys[c.Key] {
			continue
		}
		switch c.Key {
		case "code":
			mustCodes = append(mustCodes, fmt.Sprintf("%s == '%s'", types.MetaItemNum, escape(c.Value)))
		case "group":
			exprs = append(exprs, fmt.Sprintf("%s == '%s'", types.MetaGroup, escape(c.Value)))
		case "subgroup":
			exprs = append(exprs, fmt.Sprintf("%s == '%s'", types.MetaSubgroup, escape(c.Value)))
		case "duration":
			if e := durationExpr(c.Value); e != "" {
				exprs = append(exprs, e)
			}
		}
	}
	if len(mustCodes) > 0 {
		exprs = append(exprs, "("+strings.Join(mustCodes, " || ")+")")
	}
	return CompiledFilter{
		Expr:        strings.Join(exprs, " && "),
		BannedCodes: banned,
	}
}

// durationExpr maps a bucket onto range predicates over the structured
// duration metadata.
func durationExpr(bucket string) string {
	if m := reBucketLess.FindStringSubmatch(bucket); m != nil {
		n, _ := strconv.Atoi(m[1])
		// Zeroed duration metadata means "no window"; keep it out of the
		// strict bucket.
		return fmt.Sprintf("(%s > 0 && %s < %d)", types.MetaDurationMax, types.MetaDurationMax, n)
	}
	if m := reBucketGE.FindStringSubmatch(bucket); m != nil {
		n, _ := strconv.Atoi(m[1])
		return fmt.Sprintf("%s >= %d", types.MetaDurationMin, n)
	}
	if m := reBucketRange.FindStringSubmatch(bucket); m != nil {
		lo, _ := strconv.Atoi(m[1])
		hi, _ := strconv.Atoi(m[2])
		return fmt.Sprintf("(%s >= %d && %s > 0 && %s <= %d)",
			types.MetaDurationMin, lo, types.MetaDurationMax, types.MetaDurationMax, hi)
	}
	return ""
}

func escape(s string) string {
	return strings.ReplaceAll(s, "'", "")
}
