// Package milvus holds the catalog vector collection: schema, indexer
// and searcher.
package milvus

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cloudwego/eino-ext/components/indexer/milvus"
	"github.com/cloudwego/eino/components/embedding"
	"github.com/cloudwego/eino/components/indexer"
	"github.com/cloudwego/eino/schema"
	"github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"

	"github.com/Ethan225300/mbspro/types"
)

// NewClient opens the shared Milvus connection.
func NewClient(ctx context.Context, addr string) (client.Client, error) {
	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return client.NewClient(connectCtx, client.Config{Address: addr})
}

// collectionFields is the catalog collection schema. Numeric duration
// fields use 0 for "no window" since Milvus scalars cannot be null.
func collectionFields(dim int) []*entity.Field {
	return []*entity.Field{
		{
			Name:       "id",
			DataType:   entity.FieldTypeVarChar,
			PrimaryKey: true,
			AutoID:     false,
			TypeParams: map[string]string{"max_length": "64"},
		},
		{
			Name:       types.MetaItemNum,
			DataType:   entity.FieldTypeVarChar,
			TypeParams: map[string]string{"max_length": "16"},
		},
		{
			Name:       "vector",
			DataType:   entity.FieldTypeFloatVector,
			TypeParams: map[string]string{"dim": fmt.Sprintf("%d", dim)},
		},
		{
			Name:       "content",
			DataType:   entity.FieldTypeVarChar,
			TypeParams: map[string]string{"max_length": "65535"},
		},
		{
			Name: types.MetaGroup, DataType: entity.FieldTypeVarChar,
			TypeParams: map[string]string{"max_length": "16"},
		},
		{
			Name: types.MetaSubgroup, DataType: entity.FieldTypeVarChar,
			TypeParams: map[string]string{"max_length": "16"},
		},
		{
			Name: types.MetaCategory, DataType: entity.FieldTypeVarChar,
			TypeParams: map[string]string{"max_length": "64"},
		},
		{Name: types.MetaScheduleFee, DataType: entity.FieldTypeDouble},
		{Name: types.MetaDurationMin, DataType: entity.FieldTypeInt64},
		{Name: types.MetaDurationMax, DataType: entity.FieldTypeInt64},
		{Name: types.MetaDurMinIncl, DataType: entity.FieldTypeInt64},
		{Name: types.MetaDurMaxIncl, DataType: entity.FieldTypeInt64},
		{Name: types.MetaItemStatus, DataType: entity.FieldTypeInt64},
		{Name: "metadata", DataType: entity.FieldTypeJSON},
	}
}

// NewIndexerWithClient builds the eino indexer over a shared client,
// creating the collection and its indexes when missing.
func NewIndexerWithClient(ctx context.Context, cli client.Client, embedder embedding.Embedder, collectionName string) (indexer.Indexer, error) {
	vecs, err := embedder.EmbedStrings(ctx, []string{"dimension probe"})
	if err != nil {
		return nil, fmt.Errorf("embedder unavailable: %v", err)
	}
	dim := len(vecs[0])

	fields := collectionFields(dim)

	converter := func(ctx context.Context, docs []*schema.Document, vectors [][]float64) ([]interface{}, error) {
		rows := make([]interface{}, len(docs))
		for i, doc := range docs {
			vec32 := make([]float32, len(vectors[i]))
			for j, v := range vectors[i] {
				vec32[j] = float32(v)
			}

			row := map[string]interface{}{
				"id":      doc.ID,
				"vector":  vec32,
				"content": doc.Content,
			}
			row[types.MetaItemNum] = metaString(doc, types.MetaItemNum)
			row[types.MetaGroup] = metaString(doc, types.MetaGroup)
			row[types.MetaSubgroup] = metaString(doc, types.MetaSubgroup)
			row[types.MetaCategory] = metaString(doc, types.MetaCategory)
			row[types.MetaScheduleFee] = metaDouble(doc, types.MetaScheduleFee)
			row[types.MetaDurationMin] = metaInt64(doc, types.MetaDurationMin)
			row[types.MetaDurationMax] = metaInt64(doc, types.MetaDurationMax)
			row[types.MetaDurMinIncl] = metaInt64(doc, types.MetaDurMinIncl)
			row[types.MetaDurMaxIncl] = metaInt64(doc, types.MetaDurMaxIncl)
			row[types.MetaItemStatus] = metaInt64(doc, types.MetaItemStatus)

			metaBytes, err := json.Marshal(doc.MetaData)
			if err != nil {
				metaBytes = []byte("{}")
			}
			row["metadata"] = metaBytes
			rows[i] = row
		}
		return rows, nil
	}

	idx, err := milvus.NewIndexer(ctx, &milvus.IndexerConfig{
		Client:            cli,
		Collection:        collectionName,
		Embedding:         embedder,
		Fields:            fields,
		DocumentConverter: converter,
		MetricType:        milvus.L2,
	})
	if err != nil {
		return nil, fmt.Errorf("milvus indexer init failed: %v", err)
	}

	if err := ensureIndexes(ctx, cli, collectionName); err != nil {
		return nil, err
	}
	return idx, nil
}

// ensureIndexes replaces the default vector index with HNSW and adds
// scalar indexes for every filterable field.
func ensureIndexes(ctx context.Context, cli client.Client, collectionName string) error {
	_ = cli.ReleaseCollection(ctx, collectionName)
	if err := cli.DropIndex(ctx, collectionName, "vector"); err != nil {
		fmt.Printf(">>> [Milvus] DropIndex: %v\n", err)
	}
	hnswIdx, _ := entity.NewIndexHNSW(entity.L2, 16, 200)
	if err := cli.CreateIndex(ctx, collectionName, "vector", hnswIdx, false); err != nil {
		return fmt.Errorf("create HNSW index failed: %v", err)
	}

	for _, field := range []string{
		types.MetaItemNum, types.MetaGroup, types.MetaSubgroup,
		types.MetaDurationMin, types.MetaDurationMax, types.MetaItemStatus,
	} {
		if err := cli.CreateIndex(ctx, collectionName, field, entity.NewScalarIndex(), false); err != nil {
			return fmt.Errorf("create scalar index on %s failed: %v", field, err)
		}
	}

	if err := cli.LoadCollection(ctx, collectionName, false); err != nil {
		return fmt.Errorf("load collection failed: %v", err)
	}
	return nil
}

// DropCollection wipes the namespace.
func DropCollection(ctx context.Context, cli client.Client, collectionName string) error {
	_ = cli.ReleaseCollection(ctx, collectionName)
	has, err := cli.HasCollection(ctx, collectionName)
	if err != nil {
		return err
	}
	if !has {
		return nil
	}
	return cli.DropCollection(ctx, collectionName)
}

func metaString(doc *schema.Document, key string) string {
	if doc.MetaData == nil {
		return ""
	}
	v, _ := doc.MetaData[key].(string)
	return v
}

func metaInt64(doc *schema.Document, key string) int64 {
	if doc.MetaData == nil {
		return 0
	}
	switch v := doc.MetaData[key].(type) {
	case int64:
		return v
	case int:
		return int64(v)
	case float64:
		return int64(v)
	}
	return 0
}

func metaDouble(doc *schema.Document, key string) float64 {
	if doc.MetaData == nil {
		return 0
	}
	switch v := doc.MetaData[key].(type) {
	case float64:
		return v
	case int64:
		return float64(v)
	case int:
		return float64(v)
	}
	return 0
}
