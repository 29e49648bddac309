package es

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/schema"
	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"github.com/Ethan225300/mbspro/types"
)

// Retriever runs a BM25 search over item descriptions.
func Retriever(ctx context.Context, client *elasticsearch.Client, index string, query string, topK int) ([]*schema.Document, error) {
	esQuery := map[string]interface{}{
		"query": map[string]interface{}{
			"bool": map[string]interface{}{
				"must": []map[string]interface{}{
					{
						"match": map[string]interface{}{
							"content": map[string]interface{}{
								"query": query,
							},
						},
					},
				},
			},
		},
		"size": topK,
	}

	var buf strings.Builder
	if err := json.NewEncoder(&buf).Encode(esQuery); err != nil {
		return nil, fmt.Errorf("error encoding query: %s", err)
	}

	req := esapi.SearchRequest{
		Index: []string{index},
		Body:  strings.NewReader(buf.String()),
	}
	res, err := req.Do(ctx, client)
	if err != nil {
		return nil, fmt.Errorf("error getting response: %s", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("error response: %s", res.String())
	}

	var result map[string]interface{}
	if err := json.NewDecoder(res.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("error parsing response body: %s", err)
	}

	hits, ok := result["hits"].(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("invalid response format")
	}
	hitsList, ok := hits["hits"].([]interface{})
	if !ok {
		return []*schema.Document{}, nil
	}

	docs := make([]*schema.Document, 0, len(hitsList))
	for _, hit := range hitsList {
		hitMap, ok := hit.(map[string]interface{})
		if !ok {
			continue
		}
		id, _ := hitMap["_id"].(string)
		source, ok := hitMap["_source"].(map[string]interface{})
		if !ok {
			continue
		}
		var score float64
		if scoreVal, ok := hitMap["_score"].(float64); ok {
			score = scoreVal
		}

		doc := &schema.Document{
			ID:       id,
			Content:  toString(source["content"]),
			MetaData: make(map[string]any),
		}
		doc = doc.WithScore(score)

		for _, key := range []string{
			types.MetaItemNum, types.MetaGroup, types.MetaSubgroup, types.MetaCategory,
			types.MetaScheduleFee, types.MetaDurationMin, types.MetaDurationMax, types.MetaItemStatus,
		} {
			if val, ok := source[key]; ok {
				doc.MetaData[key] = val
			}
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

func toString(v interface{}) string {
	s, _ := v.(string)
	return s
}
