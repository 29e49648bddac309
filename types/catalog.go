package types

import "time"

// Catalog item lifecycle status.
const (
	ItemStatusActive   = 1
	ItemStatusInactive = 2
)

// CatalogRecord is the normalized form of one MBS item, regardless of
// which export schema it arrived in.
type CatalogRecord struct {
	ItemNum     string     `json:"item_num"`
	Description string     `json:"description"`
	Category    string     `json:"category"`
	Group       string     `json:"group"`
	Subgroup    string     `json:"subgroup"`
	Subheading  string     `json:"subheading"`
	ScheduleFee *float64   `json:"schedule_fee"`
	DerivedFee  string     `json:"derived_fee"`
	StartDate   *time.Time `json:"start_date"`
	EndDate     *time.Time `json:"end_date"`

	// Structured duration hints; when present they override textual
	// parsing of the time window.
	DurationMinMinutes   *int  `json:"duration_min_minutes"`
	DurationMaxMinutes   *int  `json:"duration_max_minutes"`
	DurationMinInclusive *bool `json:"duration_min_inclusive"`
	DurationMaxInclusive *bool `json:"duration_max_inclusive"`
}

// Metadata keys attached to every vector at ingestion and read back by
// the retriever's DocumentConverter.
const (
	MetaItemNum     = "item_num"
	MetaGroup       = "group_code"
	MetaSubgroup    = "subgroup"
	MetaCategory    = "category"
	MetaScheduleFee = "schedule_fee"
	MetaDurationMin = "duration_min_minutes"
	MetaDurationMax = "duration_max_minutes"
	MetaDurMinIncl  = "duration_min_inclusive"
	MetaDurMaxIncl  = "duration_max_inclusive"
	MetaItemStatus  = "item_status"
)

// --- API request/response shapes ---

type AgenticRequest struct {
	Note string `json:"note" binding:"required"`
	Top  int    `json:"top"`
}

type QueryRequest struct {
	Query string `json:"query" binding:"required"`
	Top   int    `json:"top"`
}

type IngestRequest struct {
	Filename string `json:"filename" binding:"required"`
	Token    string `json:"token"`
}

type ClearRequest struct {
	Token string `json:"token"`
}

type RefreshRequest struct {
	Filename string `json:"filename"`
	Token    string `json:"token"`
}

// StatusResponse reports which external services are wired.
type StatusResponse struct {
	VectorSearch      bool   `json:"vector_search"`
	EmbeddingProvider string `json:"embedding_provider"`
	EmbeddingModel    string `json:"embedding_model"`
	ChatModel         string `json:"chat_model"`
	RerankerModel     string `json:"reranker_model"`
	IndexName         string `json:"index_name"`
	ESIndex           string `json:"es_index"`
	Postgres          bool   `json:"postgres"`
	ActiveItems       int64  `json:"active_items,omitempty"`
	TotalItems        int64  `json:"total_items,omitempty"`
}
