package score

import (
	"testing"

	"github.com/cloudwego/eino/schema"
)

func doc(id string, s float64) *schema.Document {
	d := &schema.Document{ID: id, Content: "item " + id}
	return d.WithScore(s)
}

func TestHybridFuseDeduplicatesAndAccumulates(t *testing.T) {
	vec := []*schema.Document{doc("36", 1.0), doc("44", 0.5)}
	lex := []*schema.Document{doc("36", 3.2), doc("3", 1.1)}

	out := HybridFuse(vec, lex, nil)
	if len(out) != 3 {
		t.Fatalf("len = %d", len(out))
	}
	// 36 tops both legs: normalized 1.0 each, blended 0.6 + 0.4.
	if out[0].ID != "36" {
		t.Errorf("top = %s", out[0].ID)
	}
	if out[0].FinalScore < 0.99 || out[0].FinalScore > 1.01 {
		t.Errorf("blended score = %v, want ~1.0", out[0].FinalScore)
	}
	if len(out[0].Sources) != 2 {
		t.Errorf("sources = %v", out[0].Sources)
	}
}

func TestHybridFuseOrderIsDescending(t *testing.T) {
	vec := []*schema.Document{doc("a", 0.9), doc("b", 0.5), doc("c", 0.1)}
	out := HybridFuse(vec, nil, nil)
	for i := 1; i < len(out); i++ {
		if out[i-1].FinalScore < out[i].FinalScore {
			t.Fatalf("order not descending at %d", i)
		}
	}
}

func TestHybridFuseTruncatesToTopK(t *testing.T) {
	vec := []*schema.Document{doc("a", 0.9), doc("b", 0.5), doc("c", 0.1)}
	out := HybridFuse(vec, nil, &FuseConfig{VectorWeight: 1, LexicalWeight: 0, TopK: 2})
	if len(out) != 2 {
		t.Errorf("len = %d, want 2", len(out))
	}
}

func TestHybridFuseUniformScores(t *testing.T) {
	vec := []*schema.Document{doc("a", 0.5), doc("b", 0.5)}
	out := HybridFuse(vec, nil, nil)
	// Equal scores normalize to 1.0 rather than dividing by zero.
	for _, d := range out {
		if d.FinalScore != 0.6 {
			t.Errorf("score = %v, want 0.6", d.FinalScore)
		}
	}
}
