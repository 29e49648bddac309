package types

import "testing"

func iv(min, max int, lc, rc bool) *Interval {
	return &Interval{Min: &min, Max: &max, LeftClosed: lc, RightClosed: rc}
}

func TestIntervalContainsInterval(t *testing.T) {
	rule := iv(20, 40, true, false) // [20,40)
	tests := []struct {
		name string
		note *Interval
		want bool
	}{
		{"inside", iv(25, 25, true, true), true},
		{"at left edge closed", iv(20, 20, true, true), true},
		{"at right edge", iv(40, 40, true, true), false},
		{"just under right edge", iv(39, 39, true, true), true},
		{"straddles left", iv(19, 22, true, true), false},
		{"open right at boundary", iv(20, 40, true, false), true},
		{"closed right at boundary", iv(20, 40, true, true), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := rule.ContainsInterval(tt.note); got != tt.want {
				t.Errorf("got %v", got)
			}
		})
	}
}

func TestIntervalOverlaps(t *testing.T) {
	rule := iv(20, 40, true, false)
	tests := []struct {
		name string
		note *Interval
		want bool
	}{
		{"straddles", iv(19, 22, true, true), true},
		{"disjoint below", iv(10, 15, true, true), false},
		{"disjoint above", iv(45, 50, true, true), false},
		{"touch at closed-closed boundary", iv(15, 20, true, true), true},
		{"touch at open boundary", iv(40, 45, true, true), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := rule.Overlaps(tt.note); got != tt.want {
				t.Errorf("got %v", got)
			}
		})
	}
}

func TestUnboundedIntervals(t *testing.T) {
	min := 45
	rule := &Interval{Min: &min, LeftClosed: true} // [45, ∞)
	if !rule.ContainsInterval(iv(50, 60, true, true)) {
		t.Error("[50,60] should be inside [45,∞)")
	}
	if rule.ContainsInterval(&Interval{Min: &min, LeftClosed: true}) != true {
		t.Error("an identical unbounded interval is contained")
	}
	note := &Interval{Max: &min, LeftClosed: true, RightClosed: false} // (-∞,45)
	if rule.ContainsInterval(note) {
		t.Error("an interval unbounded below cannot be inside [45,∞)")
	}
	if !rule.Overlaps(iv(40, 50, true, true)) {
		t.Error("[40,50] overlaps [45,∞)")
	}
}

func TestMergeAcceptedDedupes(t *testing.T) {
	st := &AgentState{}
	st.MergeAccepted([]VerifiedItem{{Code: "36", Display: "first"}})
	st.MergeAccepted([]VerifiedItem{{Code: "36", Display: "second"}, {Code: "44"}})
	if len(st.Accepted) != 2 {
		t.Fatalf("accepted = %v", st.Accepted)
	}
	if st.Accepted[0].Display != "second" {
		t.Error("last writer must win on merge")
	}
}

func TestBanIsIdempotentAndMonotone(t *testing.T) {
	st := &AgentState{}
	st.Ban("36")
	st.Ban("36")
	st.Ban("")
	if len(st.BannedCodes) != 1 {
		t.Errorf("banned = %v", st.BannedCodes)
	}
}
