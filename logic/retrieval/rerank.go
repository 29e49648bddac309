package retrieval

import (
	"sort"

	"github.com/cloudwego/eino/schema"

	"github.com/Ethan225300/mbspro/types"
)

// Stage-2 reflection rerank weights.
const (
	stage2BaseWeight     = 0.5
	stage2CodeBonus      = 3.0
	stage2GroupBonus     = 2.0
	stage2SubgroupBonus  = 1.5
	stage2DurationBonus  = 1.5
)

// scoredDoc carries a candidate through the local rerank.
type scoredDoc struct {
	doc       *schema.Document
	composite float64
}

// Stage2Rerank is the purely local constraint-aware rerank: a composite
// of the normalized upstream relevance plus fixed bonuses per satisfied
// must constraint. Candidates hitting a must-not code are dropped. The
// returned order replaces the upstream order.
func Stage2Rerank(docs []*schema.Document, constraints []types.Constraint) []*schema.Document {
	if len(docs) == 0 {
		return docs
	}

	base := normalizeBase(docs)
	scored := make([]scoredDoc, 0, len(docs))

	for i, doc := range docs {
		code := DocCode(doc)
		if mustNotCode(constraints, code) {
			continue
		}
		composite := stage2BaseWeight * base[i]
		for _, c := range constraints {
			if c.Negated {
				continue
			}
			switch c.Key {
			case "code":
				if c.Value == code {
					composite += stage2CodeBonus
				}
			case "group":
				if c.Value == docString(doc, types.MetaGroup) {
					composite += stage2GroupBonus
				}
			case "subgroup":
				if c.Value == docString(doc, types.MetaSubgroup) {
					composite += stage2SubgroupBonus
				}
			case "duration":
				if iv := docDuration(doc); iv != nil {
					if mid, ok := iv.Midpoint(); ok && BucketContains(c.Value, mid) {
						composite += stage2DurationBonus
					}
				}
			}
		}
		scored = append(scored, scoredDoc{doc: doc, composite: composite})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].composite > scored[j].composite
	})

	out := make([]*schema.Document, len(scored))
	for i, s := range scored {
		out[i] = s.doc
	}
	return out
}

func mustNotCode(constraints []types.Constraint, code string) bool {
	for _, c := range constraints {
		if c.Negated && c.Key == "code" && c.Value == code {
			return true
		}
	}
	return false
}

// normalizeBase min-max scales upstream scores into [0,1].
func normalizeBase(docs []*schema.Document) []float64 {
	out := make([]float64, len(docs))
	minS, maxS := docs[0].Score(), docs[0].Score()
	for _, d := range docs {
		if d.Score() > maxS {
			maxS = d.Score()
		}
		if d.Score() < minS {
			minS = d.Score()
		}
	}
	if maxS == minS {
		for i := range out {
			out[i] = 1.0
		}
		return out
	}
	for i, d := range docs {
		out[i] = (d.Score() - minS) / (maxS - minS)
	}
	return out
}
