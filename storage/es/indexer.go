// Package es holds the lexical leg of retrieval: the BM25 index over
// item descriptions and the hybrid reranker built on it.
package es

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/cloudwego/eino/schema"
	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esutil"

	"github.com/Ethan225300/mbspro/types"
)

type ESIndexer struct {
	client *elasticsearch.Client
	index  string
}

// GetClient exposes the underlying client for the retrieval leg.
func (e *ESIndexer) GetClient() *elasticsearch.Client {
	return e.client
}

// NewESIndexer connects and makes sure the index exists with the right
// mapping.
func NewESIndexer(addresses []string, indexName string) (*ESIndexer, error) {
	cfg := elasticsearch.Config{Addresses: addresses}
	es, err := elasticsearch.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("error creating the client: %s", err)
	}

	indexer := &ESIndexer{client: es, index: indexName}
	if err := indexer.initMapping(context.Background()); err != nil {
		return nil, err
	}
	return indexer, nil
}

func (e *ESIndexer) initMapping(ctx context.Context) error {
	res, err := e.client.Indices.Exists([]string{e.index})
	if err != nil {
		return err
	}
	if res.StatusCode == 200 {
		return nil
	}

	mapping := `
	{
	  "settings": {
		"number_of_shards": 1,
		"number_of_replicas": 0
	  },
	  "mappings": {
		"properties": {
		  "item_num":  { "type": "keyword" },
		  "content": {
			"type": "text",
			"analyzer": "english"
		  },
		  "group_code": { "type": "keyword" },
		  "subgroup":   { "type": "keyword" },
		  "category":   { "type": "keyword" },
		  "subheading": { "type": "text", "analyzer": "english" },
		  "schedule_fee":         { "type": "double" },
		  "duration_min_minutes": { "type": "integer" },
		  "duration_max_minutes": { "type": "integer" },
		  "item_status":          { "type": "short" }
		}
	  }
	}`

	log.Printf(">>> [ES] Creating index %s...", e.index)
	res, err = e.client.Indices.Create(
		e.index,
		e.client.Indices.Create.WithBody(strings.NewReader(mapping)),
	)
	if err != nil {
		return fmt.Errorf("create index error: %v", err)
	}
	if res.IsError() {
		return fmt.Errorf("create index response error: %s", res.String())
	}
	return nil
}

// Store bulk-indexes catalog documents. The item number is the ES _id,
// so re-ingestion overwrites instead of duplicating.
func (e *ESIndexer) Store(ctx context.Context, docs []*schema.Document) error {
	bi, err := esutil.NewBulkIndexer(esutil.BulkIndexerConfig{
		Index:         e.index,
		Client:        e.client,
		FlushInterval: 1,
	})
	if err != nil {
		return err
	}

	for _, doc := range docs {
		docModel := map[string]interface{}{
			"content": doc.Content,
		}
		for _, key := range []string{
			types.MetaItemNum, types.MetaGroup, types.MetaSubgroup, types.MetaCategory,
			types.MetaScheduleFee, types.MetaDurationMin, types.MetaDurationMax, types.MetaItemStatus,
		} {
			if val, ok := doc.MetaData[key]; ok {
				docModel[key] = val
			}
		}

		data, _ := json.Marshal(docModel)
		itemNum, _ := doc.MetaData[types.MetaItemNum].(string)
		if itemNum == "" {
			itemNum = doc.ID
		}

		if err := bi.Add(ctx, esutil.BulkIndexerItem{
			Action:     "index",
			DocumentID: itemNum,
			Body:       strings.NewReader(string(data)),
		}); err != nil {
			return err
		}
	}

	return bi.Close(ctx)
}

// Reset wipes and recreates the lexical index (part of /rag/clear).
func (e *ESIndexer) Reset(ctx context.Context) error {
	if err := e.DeleteIndex(ctx); err != nil {
		return err
	}
	return e.initMapping(ctx)
}

// DeleteIndex wipes the lexical index.
func (e *ESIndexer) DeleteIndex(ctx context.Context) error {
	res, err := e.client.Indices.Delete(
		[]string{e.index},
		e.client.Indices.Delete.WithContext(ctx),
		e.client.Indices.Delete.WithIgnoreUnavailable(true),
	)
	if err != nil {
		return fmt.Errorf("ES delete index failed: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("ES delete index response error: %s", res.String())
	}
	log.Printf(">>> [ES] index %s deleted", e.index)
	return nil
}
