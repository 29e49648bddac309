package service

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	einofile "github.com/cloudwego/eino-ext/components/document/loader/file"
	"github.com/cloudwego/eino/components/document"
	"github.com/cloudwego/eino/components/embedding"
	"github.com/cloudwego/eino/schema"
	"github.com/google/uuid"
	"github.com/milvus-io/milvus-sdk-go/v2/client"

	"github.com/Ethan225300/mbspro/logic/catalog"
	"github.com/Ethan225300/mbspro/storage/es"
	"github.com/Ethan225300/mbspro/storage/milvus"
	"github.com/Ethan225300/mbspro/storage/postgres"
	"github.com/Ethan225300/mbspro/types"
	"github.com/Ethan225300/mbspro/vars"
)

// IngestionService loads a catalog export and writes every item to the
// three stores. Unlike retrieval, ingestion fails hard: a half-ingested
// catalog is worse than an error.
type IngestionService struct {
	repo       *postgres.CatalogRepo
	esIndexer  *es.ESIndexer
	embedder   embedding.Embedder
	milvusCli  client.Client
	collection string
	loader     *einofile.FileLoader
}

func NewIngestionService(ctx context.Context, repo *postgres.CatalogRepo, esIndexer *es.ESIndexer, embedder embedding.Embedder, milvusCli client.Client, collection string) (*IngestionService, error) {
	loader, err := einofile.NewFileLoader(ctx, &einofile.FileLoaderConfig{
		Parser: catalog.NewParser(),
	})
	if err != nil {
		return nil, err
	}
	return &IngestionService{
		repo:       repo,
		esIndexer:  esIndexer,
		embedder:   embedder,
		milvusCli:  milvusCli,
		collection: collection,
		loader:     loader,
	}, nil
}

// Ingest reads the named export from the data directory and indexes it.
// Returns the number of items written.
func (s *IngestionService) Ingest(ctx context.Context, filename string) (int, error) {
	if s.embedder == nil || s.milvusCli == nil {
		return 0, fmt.Errorf("vector backend not configured")
	}
	start := time.Now()

	// Base name only: the filename comes off the wire.
	path := filepath.Join(vars.DATADIR, filepath.Base(filename))
	docs, err := s.loader.Load(ctx, document.Source{URI: path})
	if err != nil {
		return 0, fmt.Errorf("load catalog export failed: %v", err)
	}
	if len(docs) == 0 {
		return 0, fmt.Errorf("catalog export %s has no items", filename)
	}
	fmt.Printf(">>> [Ingest] %s parsed: %d items, %v\n", filename, len(docs), time.Since(start))

	// Relational rows first: they are the ground truth the cron and
	// status endpoints read.
	if s.repo != nil {
		for _, doc := range docs {
			if err := s.repo.Upsert(ctx, rowFromDocument(doc)); err != nil {
				return 0, fmt.Errorf("postgres upsert failed for item %s: %v", doc.ID, err)
			}
		}
	}

	// Lexical index, keyed by item number.
	esStart := time.Now()
	if err := s.esIndexer.Store(ctx, docs); err != nil {
		return 0, fmt.Errorf("es store failed: %v", err)
	}
	fmt.Printf(">>> [Ingest] ES store: %v\n", time.Since(esStart))

	// Vector store last. The indexer is rebuilt per ingest so a
	// preceding /rag/clear recreates the collection.
	milvusStart := time.Now()
	idx, err := milvus.NewIndexerWithClient(ctx, s.milvusCli, s.embedder, s.collection)
	if err != nil {
		return 0, fmt.Errorf("milvus indexer init failed: %v", err)
	}
	for _, doc := range docs {
		doc.ID = uuid.New().String()
	}
	if _, err := idx.Store(ctx, docs); err != nil {
		return 0, fmt.Errorf("milvus store failed: %v", err)
	}
	fmt.Printf(">>> [Ingest] Milvus store: %v\n", time.Since(milvusStart))

	fmt.Printf(">>> [Ingest] done: %d items, %v total\n", len(docs), time.Since(start))
	return len(docs), nil
}

// Clear wipes all three stores' catalog namespaces.
func (s *IngestionService) Clear(ctx context.Context) error {
	if s.milvusCli != nil {
		if err := milvus.DropCollection(ctx, s.milvusCli, s.collection); err != nil {
			return fmt.Errorf("milvus drop failed: %v", err)
		}
	}
	if err := s.esIndexer.Reset(ctx); err != nil {
		return fmt.Errorf("es reset failed: %v", err)
	}
	if s.repo != nil {
		if err := s.repo.Truncate(ctx); err != nil {
			return fmt.Errorf("postgres truncate failed: %v", err)
		}
	}
	return nil
}

// Refresh is clear + ingest.
func (s *IngestionService) Refresh(ctx context.Context, filename string) (int, error) {
	if filename == "" {
		filename = vars.DefaultCatalogFile
	}
	if err := s.Clear(ctx); err != nil {
		return 0, err
	}
	return s.Ingest(ctx, filename)
}

// rowFromDocument rebuilds the relational row from a parsed catalog
// document.
func rowFromDocument(doc *schema.Document) *postgres.CatalogItem {
	meta := doc.MetaData
	item := &postgres.CatalogItem{
		ItemNum:     mString(meta, types.MetaItemNum),
		Description: doc.Content,
		Category:    mString(meta, types.MetaCategory),
		GroupCode:   mString(meta, types.MetaGroup),
		Subgroup:    mString(meta, types.MetaSubgroup),
		Subheading:  mString(meta, "subheading"),
		DerivedFee:  mString(meta, "derived_fee"),
		ItemStatus:  types.ItemStatusActive,
	}
	if v, ok := mInt64(meta, types.MetaScheduleFee); ok {
		item.ScheduleFee = float64(v)
	}
	if v, ok := meta[types.MetaScheduleFee].(float64); ok {
		item.ScheduleFee = v
	}
	if v, ok := mInt64(meta, types.MetaDurationMin); ok && v != 0 {
		n := int(v)
		item.DurationMinMinutes = &n
	}
	if v, ok := mInt64(meta, types.MetaDurationMax); ok && v != 0 {
		n := int(v)
		item.DurationMaxMinutes = &n
	}
	if v, ok := mInt64(meta, types.MetaDurMinIncl); ok {
		b := v != 0
		item.DurationMinInclusive = &b
	}
	if v, ok := mInt64(meta, types.MetaDurMaxIncl); ok {
		b := v != 0
		item.DurationMaxInclusive = &b
	}
	if v, ok := mInt64(meta, types.MetaItemStatus); ok {
		item.ItemStatus = int(v)
	}
	if v, ok := mInt64(meta, "start_date"); ok {
		t := time.Unix(v, 0).UTC()
		item.StartDate = &t
	}
	if v, ok := mInt64(meta, "end_date"); ok {
		t := time.Unix(v, 0).UTC()
		item.EndDate = &t
	}
	return item
}

func mString(meta map[string]any, key string) string {
	if meta == nil {
		return ""
	}
	v, _ := meta[key].(string)
	return v
}

func mInt64(meta map[string]any, key string) (int64, bool) {
	if meta == nil {
		return 0, false
	}
	switch v := meta[key].(type) {
	case int64:
		return v, true
	case int:
		return int64(v), true
	case float64:
		return int64(v), true
	}
	return 0, false
}
