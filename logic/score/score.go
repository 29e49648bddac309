// Package score fuses result lists from the vector and lexical legs of
// retrieval into a single ranking.
package score

import (
	"sort"

	"github.com/cloudwego/eino/schema"
)

// FuseConfig weights the two legs of the hybrid rerank.
type FuseConfig struct {
	VectorWeight  float64 // weight of the embedding-similarity leg
	LexicalWeight float64 // weight of the BM25 leg
	TopK          int
}

func DefaultFuseConfig() *FuseConfig {
	return &FuseConfig{VectorWeight: 0.6, LexicalWeight: 0.4, TopK: 10}
}

// FusedDocument is a document with its blended score and provenance.
type FusedDocument struct {
	*schema.Document
	FinalScore float64
	Sources    []string
}

// HybridFuse merges the vector and lexical result sets: min-max
// normalize each leg, deduplicate by ID with score accumulation, weight,
// sort descending, truncate to TopK.
func HybridFuse(vectorDocs, lexicalDocs []*schema.Document, config *FuseConfig) []*FusedDocument {
	if config == nil {
		config = DefaultFuseConfig()
	}

	vecScores := normalize(vectorDocs)
	lexScores := normalize(lexicalDocs)

	docMap := make(map[string]*FusedDocument)
	for i, doc := range vectorDocs {
		if doc == nil {
			continue
		}
		docMap[doc.ID] = &FusedDocument{
			Document:   doc,
			FinalScore: vecScores[i] * config.VectorWeight,
			Sources:    []string{"vector"},
		}
	}
	for i, doc := range lexicalDocs {
		if doc == nil {
			continue
		}
		if existing, ok := docMap[doc.ID]; ok {
			existing.FinalScore += lexScores[i] * config.LexicalWeight
			existing.Sources = append(existing.Sources, "lexical")
			continue
		}
		docMap[doc.ID] = &FusedDocument{
			Document:   doc,
			FinalScore: lexScores[i] * config.LexicalWeight,
			Sources:    []string{"lexical"},
		}
	}

	results := make([]*FusedDocument, 0, len(docMap))
	for _, doc := range docMap {
		results = append(results, doc)
	}
	sort.Slice(results, func(i, j int) bool {
		return results[i].FinalScore > results[j].FinalScore
	})
	if config.TopK > 0 && len(results) > config.TopK {
		results = results[:config.TopK]
	}
	return results
}

// normalize min-max scales each leg's scores into [0,1] without
// mutating the documents.
func normalize(docs []*schema.Document) []float64 {
	out := make([]float64, len(docs))
	if len(docs) == 0 {
		return out
	}
	minScore, maxScore := docs[0].Score(), docs[0].Score()
	for _, doc := range docs {
		s := doc.Score()
		if s > maxScore {
			maxScore = s
		}
		if s < minScore {
			minScore = s
		}
	}
	if maxScore == minScore {
		for i := range out {
			out[i] = 1.0
		}
		return out
	}
	for i, doc := range docs {
		out[i] = (doc.Score() - minScore) / (maxScore - minScore)
	}
	return out
}
