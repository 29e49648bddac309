package reflect

import (
	"context"
	"errors"
	"testing"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/Ethan225300/mbspro/types"
)

type stubModel struct {
	reply string
	err   error
	calls int
}

func (s *stubModel) Generate(ctx context.Context, in []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return schema.AssistantMessage(s.reply, nil), nil
}

func facts(duration, age bool, modality string) *types.NoteFacts {
	f := &types.NoteFacts{}
	if duration {
		d := 25
		f.DurationMin = &d
		f.DurationMax = &d
	}
	if age {
		a := 40
		f.Age = &a
	}
	if modality != "" {
		f.Modality = &modality
	}
	return f
}

func approx(a, b float64) bool {
	d := a - b
	return d < 1e-9 && d > -1e-9
}

func TestCompletenessScoreIncrements(t *testing.T) {
	note := "review of knee pain after treatment"

	score, needs := CompletenessScore(note, facts(false, false, ""))
	if !approx(score, 0.6) || needs {
		t.Errorf("bare note: score=%v needs=%v", score, needs)
	}

	score, _ = CompletenessScore(note, facts(true, false, ""))
	if !approx(score, 0.7) {
		t.Errorf("duration: score=%v, want 0.7", score)
	}

	score, _ = CompletenessScore(note, facts(true, true, types.ModalityVideo))
	if !approx(score, 0.8) {
		t.Errorf("duration+age+video: score=%v, want 0.8", score)
	}

	// Default in_person earns nothing.
	score, _ = CompletenessScore(note, facts(true, true, types.ModalityInPerson))
	if !approx(score, 0.75) {
		t.Errorf("in_person modality must not count: score=%v", score)
	}
}

func TestAbbreviationsForceLLM(t *testing.T) {
	_, needs := CompletenessScore("pt with copd exacerbation, treatment reviewed", facts(true, true, types.ModalityVideo))
	if !needs {
		t.Error("clinical abbreviation must flag the LLM")
	}
}

func TestMissingClinicalContextForcesLLM(t *testing.T) {
	_, needs := CompletenessScore("saw someone today", nil)
	if !needs {
		t.Error("no clinical vocabulary must flag the LLM")
	}
}

func TestKeyConstraintsFromFacts(t *testing.T) {
	f := facts(true, false, types.ModalityVideo)
	setting := types.SettingHospital
	f.Setting = &setting

	cs := KeyConstraints(f)
	want := map[string]string{"duration": "20-40", "modality": "video", "setting": "hospital"}
	if len(cs) != len(want) {
		t.Fatalf("constraints = %v", cs)
	}
	for _, c := range cs {
		if want[c.Key] != c.Value || c.Negated {
			t.Errorf("constraint %v unexpected", c)
		}
	}
}

func TestReflectSkipsLLMWhenComplete(t *testing.T) {
	stub := &stubModel{reply: `{}`}
	r := NewReflector(stub)
	outcome, _ := r.Reflect(context.Background(), "review of knee pain after treatment", facts(true, true, types.ModalityVideo))
	if stub.calls != 0 {
		t.Errorf("LLM calls = %d, want 0", stub.calls)
	}
	if outcome.UsedLLM {
		t.Error("outcome must not claim LLM use")
	}
	if outcome.EnhancedQuery != "review of knee pain after treatment" {
		t.Errorf("query = %q", outcome.EnhancedQuery)
	}
}

func TestReflectMergesLLMConstraints(t *testing.T) {
	stub := &stubModel{reply: `{"enhanced_query": "chronic obstructive pulmonary disease review", "added_constraints": ["group:A1"], "confidence": 0.9}`}
	r := NewReflector(stub)
	f := facts(true, false, "")
	outcome, cs := r.Reflect(context.Background(), "copd review", f)
	if stub.calls != 1 {
		t.Fatalf("LLM calls = %d, want 1", stub.calls)
	}
	if !outcome.UsedLLM || outcome.EnhancedQuery != "chronic obstructive pulmonary disease review" {
		t.Errorf("outcome = %+v", outcome)
	}
	foundGroup, foundDuration := false, false
	for _, c := range cs {
		if c.Key == "group" && c.Value == "A1" {
			foundGroup = true
		}
		if c.Key == "duration" {
			foundDuration = true
		}
	}
	if !foundGroup || !foundDuration {
		t.Errorf("constraints = %v, want LLM group + fact duration", cs)
	}
}

func TestReflectFallsBackOnLLMError(t *testing.T) {
	stub := &stubModel{err: errors.New("model down")}
	r := NewReflector(stub)
	outcome, _ := r.Reflect(context.Background(), "copd review", nil)
	if outcome.EnhancedQuery != "copd review" {
		t.Errorf("fallback query = %q, want original note", outcome.EnhancedQuery)
	}
	if outcome.UsedLLM {
		t.Error("failed LLM must not be claimed")
	}
}
