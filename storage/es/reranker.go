package es

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/schema"
	"github.com/elastic/go-elasticsearch/v8"

	"github.com/Ethan225300/mbspro/logic/score"
	"github.com/Ethan225300/mbspro/types"
)

// Reranker is the hybrid lexical reranker: it re-scores the vector
// candidates by fusing in BM25 relevance for the same query. It
// satisfies the retrieval pipeline's Reranker seam; a remote
// cross-encoder would slot in behind the same signature.
type Reranker struct {
	client *elasticsearch.Client
	index  string
}

func NewReranker(client *elasticsearch.Client, index string) *Reranker {
	return &Reranker{client: client, index: index}
}

// Rerank fuses the candidates with a BM25 pass and keeps the topN by
// blended score. Candidates absent from the lexical result keep their
// weighted vector score.
func (r *Reranker) Rerank(ctx context.Context, query string, docs []*schema.Document, topN int) ([]*schema.Document, error) {
	lexDocs, err := Retriever(ctx, r.client, r.index, query, topN*2)
	if err != nil {
		return nil, fmt.Errorf("lexical leg failed: %v", err)
	}

	// Restrict the fusion to known candidates: the lexical leg ranks,
	// it does not introduce new items. Keyed by item number because the
	// two stores use different document IDs.
	candidates := make(map[string]bool, len(docs))
	for _, doc := range docs {
		candidates[itemKey(doc)] = true
	}
	filtered := lexDocs[:0]
	for _, doc := range lexDocs {
		if candidates[itemKey(doc)] {
			// Align the lexical doc's ID with the vector doc's key so
			// the fusion dedup merges them.
			doc.ID = itemKey(doc)
			filtered = append(filtered, doc)
		}
	}
	aligned := make([]*schema.Document, len(docs))
	for i, doc := range docs {
		doc.ID = itemKey(doc)
		aligned[i] = doc
	}
	docs = aligned

	fused := score.HybridFuse(docs, filtered, &score.FuseConfig{
		VectorWeight:  0.6,
		LexicalWeight: 0.4,
		TopK:          topN,
	})

	out := make([]*schema.Document, 0, len(fused))
	for _, f := range fused {
		out = append(out, f.Document.WithScore(f.FinalScore))
	}
	return out, nil
}

func itemKey(doc *schema.Document) string {
	if doc.MetaData != nil {
		if v, ok := doc.MetaData[types.MetaItemNum].(string); ok && v != "" {
			return v
		}
	}
	return doc.ID
}
