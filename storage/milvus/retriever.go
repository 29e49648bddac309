package milvus

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/cloudwego/eino-ext/components/retriever/milvus"
	"github.com/cloudwego/eino/components/embedding"
	"github.com/cloudwego/eino/schema"
	"github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"

	"github.com/Ethan225300/mbspro/types"
)

// outputFields are the scalar fields lifted onto each retrieved
// document's metadata.
var outputFields = []string{
	"content",
	types.MetaItemNum,
	types.MetaGroup,
	types.MetaSubgroup,
	types.MetaCategory,
	types.MetaScheduleFee,
	types.MetaDurationMin,
	types.MetaDurationMax,
	types.MetaDurMinIncl,
	types.MetaDurMaxIncl,
	types.MetaItemStatus,
}

// Searcher is the vector-search handle over the catalog collection. It
// satisfies the retrieval pipeline's VectorSearcher seam.
type Searcher struct {
	cli        client.Client
	embedder   embedding.Embedder
	collection string
}

func NewSearcher(cli client.Client, embedder embedding.Embedder, collection string) *Searcher {
	return &Searcher{cli: cli, embedder: embedder, collection: collection}
}

// Search embeds the query and runs a similarity search with an optional
// scalar filter expression. Filter errors propagate; the pipeline
// decides whether to retry without the filter.
func (s *Searcher) Search(ctx context.Context, query string, topK int, filterExpr string) ([]*schema.Document, error) {
	converter := func(ctx context.Context, result client.SearchResult) ([]*schema.Document, error) {
		docs := make([]*schema.Document, result.IDs.Len())
		for i := 0; i < result.IDs.Len(); i++ {
			id, err := result.IDs.GetAsString(i)
			if err != nil {
				return nil, fmt.Errorf("failed to get id: %w", err)
			}
			doc := &schema.Document{ID: id, MetaData: make(map[string]any)}
			if result.Scores != nil && len(result.Scores) > i {
				doc = doc.WithScore(float64(result.Scores[i]))
			}

			for _, field := range result.Fields {
				switch field.Name() {
				case "content":
					if v, err := field.GetAsString(i); err == nil {
						doc.Content = v
					}
				case types.MetaItemNum, types.MetaGroup, types.MetaSubgroup, types.MetaCategory:
					if v, err := field.GetAsString(i); err == nil {
						doc.MetaData[field.Name()] = v
					} else {
						log.Printf(">>> [Milvus] field %s unreadable at %d: %v", field.Name(), i, err)
					}
				case types.MetaDurationMin, types.MetaDurationMax, types.MetaDurMinIncl, types.MetaDurMaxIncl, types.MetaItemStatus:
					if v, err := field.GetAsInt64(i); err == nil {
						doc.MetaData[field.Name()] = v
					}
				case types.MetaScheduleFee:
					if v, err := field.GetAsDouble(i); err == nil {
						doc.MetaData[field.Name()] = v
					}
				}
			}
			docs[i] = doc
		}
		return docs, nil
	}

	retr, err := milvus.NewRetriever(ctx, &milvus.RetrieverConfig{
		Client:            s.cli,
		Collection:        s.collection,
		VectorField:       "vector",
		OutputFields:      outputFields,
		DocumentConverter: converter,
		MetricType:        entity.L2,
		TopK:              topK,
		Embedding:         s.embedder,
	})
	if err != nil {
		return nil, fmt.Errorf("init retriever failed: %v", err)
	}

	s.ensureLoaded(ctx)

	if filterExpr != "" {
		return retr.Retrieve(ctx, query, milvus.WithFilter(filterExpr))
	}
	return retr.Retrieve(ctx, query)
}

// ensureLoaded pushes the collection into memory; best-effort.
func (s *Searcher) ensureLoaded(ctx context.Context) {
	if err := s.cli.LoadCollection(ctx, s.collection, false); err != nil {
		log.Printf("⚠️ LoadCollection: %v", err)
		return
	}
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		state, _ := s.cli.GetLoadState(ctx, s.collection, []string{})
		if state == entity.LoadStateLoaded {
			return
		}
		time.Sleep(100 * time.Millisecond)
	}
}
