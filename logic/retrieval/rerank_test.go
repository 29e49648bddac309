package retrieval

import (
	"testing"

	"github.com/cloudwego/eino/schema"

	"github.com/Ethan225300/mbspro/types"
)

func doc(code string, score float64, group string, durMin, durMax int) *schema.Document {
	d := &schema.Document{
		ID:      "vec-" + code,
		Content: "Professional attendance item " + code,
		MetaData: map[string]any{
			types.MetaItemNum:     code,
			types.MetaGroup:       group,
			types.MetaDurationMin: int64(durMin),
			types.MetaDurationMax: int64(durMax),
		},
	}
	return d.WithScore(score)
}

func TestStage2RerankConstraintBonuses(t *testing.T) {
	docs := []*schema.Document{
		doc("3", 0.9, "A1", 0, 0),   // best base score
		doc("36", 0.5, "A1", 20, 40), // duration bucket hit
		doc("104", 0.7, "A3", 0, 0),
	}
	cs := []types.Constraint{{Key: "duration", Value: "20-40"}}

	out := Stage2Rerank(docs, cs)
	if len(out) != 3 {
		t.Fatalf("len = %d", len(out))
	}
	if DocCode(out[0]) != "36" {
		t.Errorf("duration bonus must outrank base score, got %s first", DocCode(out[0]))
	}
}

func TestStage2RerankCodeBonusDominates(t *testing.T) {
	docs := []*schema.Document{
		doc("3", 1.0, "A1", 0, 0),
		doc("44", 0.1, "A1", 0, 0),
	}
	cs := []types.Constraint{{Key: "code", Value: "44"}}
	out := Stage2Rerank(docs, cs)
	if DocCode(out[0]) != "44" {
		t.Errorf("must code bonus should dominate, got %s", DocCode(out[0]))
	}
}

func TestStage2RerankDropsMustNot(t *testing.T) {
	docs := []*schema.Document{
		doc("3", 0.9, "A1", 0, 0),
		doc("36", 0.5, "A1", 0, 0),
	}
	cs := []types.Constraint{{Key: "code", Value: "3", Negated: true}}
	out := Stage2Rerank(docs, cs)
	if len(out) != 1 || DocCode(out[0]) != "36" {
		t.Errorf("must_not code must be dropped, got %v", codes(out))
	}
}

func TestStage2RerankGroupAndSubgroup(t *testing.T) {
	a := doc("3", 0.5, "A1", 0, 0)
	b := doc("104", 0.5, "A3", 0, 0)
	b.MetaData[types.MetaSubgroup] = "2"

	out := Stage2Rerank([]*schema.Document{a, b}, []types.Constraint{
		{Key: "group", Value: "A3"},
		{Key: "subgroup", Value: "2"},
	})
	if DocCode(out[0]) != "104" {
		t.Errorf("group+subgroup bonuses must win, got %s", DocCode(out[0]))
	}
}

func codes(docs []*schema.Document) []string {
	var out []string
	for _, d := range docs {
		out = append(out, DocCode(d))
	}
	return out
}
