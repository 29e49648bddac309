package facts

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/Ethan225300/mbspro/types"
)

func TestDurationLadder(t *testing.T) {
	tests := []struct {
		name     string
		note     string
		wantMin  *int
		wantMax  *int
		wantIncl [2]bool // min inclusive, max inclusive
	}{
		{"exact", "consult lasted exactly 25 minutes", ip(25), ip(25), [2]bool{true, true}},
		{"bare", "consult lasted 18 minutes", ip(18), ip(18), [2]bool{true, true}},
		{"range", "consult 19-22 minutes", ip(19), ip(22), [2]bool{true, true}},
		{"range en dash", "consult 19–22 minutes", ip(19), ip(22), [2]bool{true, true}},
		{"at least and less than", "at least 20 and less than 40 minutes", ip(20), ip(40), [2]bool{true, false}},
		{"at least", "spent at least 45 minutes with patient", ip(45), nil, [2]bool{true, false}},
		{"more than", "more than 30 minutes", ip(30), nil, [2]bool{false, false}},
		{"less than widened", "less than 20 minutes", ip(19), ip(20), [2]bool{true, false}},
		{"trailing plus", "a 40+ minute consultation", ip(40), nil, [2]bool{true, false}},
		{"none", "patient presented with chest pain", nil, nil, [2]bool{false, false}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := HeuristicFacts(tt.note)
			if !intPtrEq(f.DurationMin, tt.wantMin) || !intPtrEq(f.DurationMax, tt.wantMax) {
				t.Fatalf("duration = [%v,%v], want [%v,%v]", pv(f.DurationMin), pv(f.DurationMax), pv(tt.wantMin), pv(tt.wantMax))
			}
			if tt.wantMin == nil && tt.wantMax == nil {
				return
			}
			if *f.DurationMinInclusive != tt.wantIncl[0] || *f.DurationMaxInclusive != tt.wantIncl[1] {
				t.Errorf("inclusivity = [%v,%v], want %v", *f.DurationMinInclusive, *f.DurationMaxInclusive, tt.wantIncl)
			}
		})
	}
}

func TestLessThanWidensToZeroFloor(t *testing.T) {
	f := HeuristicFacts("less than 1 minute")
	if pv(f.DurationMin) != 0 || pv(f.DurationMax) != 1 {
		t.Errorf("duration = [%v,%v], want [0,1]", pv(f.DurationMin), pv(f.DurationMax))
	}
}

func TestAgeFormats(t *testing.T) {
	tests := []struct {
		note string
		want int
	}{
		{"35 y/o patient with chest pain", 35},
		{"patient is 72 years old", 72},
		{"aged 8, presenting with fever", 8},
		{"a 45 yo male", 45},
	}
	for _, tt := range tests {
		f := HeuristicFacts(tt.note)
		if f.Age == nil || *f.Age != tt.want {
			t.Errorf("%q: age = %v, want %d", tt.note, pv(f.Age), tt.want)
		}
	}
}

func TestModalityAndSetting(t *testing.T) {
	f := HeuristicFacts("telehealth video consult, 30 min")
	if f.Modality == nil || *f.Modality != types.ModalityVideo {
		t.Errorf("modality = %v, want video", f.Modality)
	}

	f = HeuristicFacts("telephone review of results")
	if f.Modality == nil || *f.Modality != types.ModalityPhone {
		t.Errorf("modality = %v, want phone", f.Modality)
	}

	f = HeuristicFacts("face to face clinic visit")
	if f.Modality == nil || *f.Modality != types.ModalityInPerson {
		t.Errorf("modality = %v, want in_person", f.Modality)
	}
	if f.Setting == nil || *f.Setting != types.SettingConsultingRooms {
		t.Errorf("setting = %v, want consulting_rooms", f.Setting)
	}

	// No telehealth signal at all: modality stays unknown.
	f = HeuristicFacts("reviewed bloodwork")
	if f.Modality != nil {
		t.Errorf("modality should be nil, got %v", *f.Modality)
	}

	f = HeuristicFacts("home visit for wound care")
	if f.Setting == nil || *f.Setting != types.SettingHome {
		t.Errorf("setting = %v, want home", f.Setting)
	}
}

func TestContextSpecialistWinsOverGP(t *testing.T) {
	f := HeuristicFacts("consultant surgeon reviewed the patient referred by their gp")
	if f.IsSpecialist == nil || !*f.IsSpecialist {
		t.Error("expected is_specialist=true")
	}
	if f.IsGP == nil || *f.IsGP {
		t.Error("specialist language must set is_gp=false")
	}

	f = HeuristicFacts("routine gp review")
	if f.IsGP == nil || !*f.IsGP {
		t.Error("expected is_gp=true")
	}
	if f.IsEmergency == nil || *f.IsEmergency {
		t.Error("routine must set is_emergency=false")
	}
}

func TestKeywordBag(t *testing.T) {
	f := HeuristicFacts("multidisciplinary case conference with nurse and physiotherapist about the usual gp's patient")
	for _, want := range []string{"multidisciplinary", "case conference", "nurse", "physiotherapist", "usual gp"} {
		if !f.HasKeyword(want) {
			t.Errorf("keyword %q missing from %v", want, f.Keywords)
		}
	}
	// deduplicated
	seen := map[string]int{}
	for _, k := range f.Keywords {
		seen[k]++
		if seen[k] > 1 {
			t.Errorf("keyword %q duplicated", k)
		}
	}
}

func TestHeuristicsDeterministic(t *testing.T) {
	note := "35 y/o, gp review at the clinic, exactly 25 minutes, referred by specialist"
	a := HeuristicFacts(note)
	b := HeuristicFacts(note)
	if !reflect.DeepEqual(a, b) {
		t.Error("heuristic extraction is not deterministic")
	}
}

// --- LLM completion ---

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

func TestExtractSkipsLLMWhenComplete(t *testing.T) {
	stub := &stubModel{reply: `{}`}
	e := NewExtractor(stub)
	// Everything the trigger set wants is present.
	f, err := e.Extract(context.Background(), "35 y/o, face to face clinic visit, exactly 25 minutes")
	if err != nil {
		t.Fatal(err)
	}
	if stub.calls != 0 {
		t.Errorf("LLM called %d times, want 0", stub.calls)
	}
	if pv(f.Age) != 35 {
		t.Errorf("age = %v", pv(f.Age))
	}
}

func TestExtractLLMFillsGapsOnly(t *testing.T) {
	stub := &stubModel{reply: `{"duration_min": 99, "age": 40, "setting": "hospital", "modality": "video"}`}
	e := NewExtractor(stub)
	f, err := e.Extract(context.Background(), "consult lasted exactly 25 minutes")
	if err != nil {
		t.Fatal(err)
	}
	if stub.calls != 1 {
		t.Fatalf("LLM calls = %d, want 1", stub.calls)
	}
	// Heuristic duration wins over the LLM's 99.
	if pv(f.DurationMin) != 25 {
		t.Errorf("duration_min = %v, heuristics must win", pv(f.DurationMin))
	}
	// Gaps filled from the LLM.
	if pv(f.Age) != 40 || f.Setting == nil || *f.Setting != types.SettingHospital {
		t.Errorf("LLM gaps not merged: age=%v setting=%v", pv(f.Age), f.Setting)
	}
}

func TestExtractFallsBackOnLLMError(t *testing.T) {
	stub := &stubModel{err: errors.New("model down")}
	e := NewExtractor(stub)
	f, err := e.Extract(context.Background(), "brief phone call with patient")
	if err != nil {
		t.Fatalf("LLM failure must not propagate: %v", err)
	}
	if f.Modality == nil || *f.Modality != types.ModalityPhone {
		t.Errorf("heuristic view lost on fallback: %v", f.Modality)
	}
}

func ip(v int) *int { return &v }

func intPtrEq(a, b *int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func pv(p *int) interface{} {
	if p == nil {
		return nil
	}
	return *p
}
