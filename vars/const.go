package vars

import (
	"os"
	"strconv"
)

// GetEnv returns the environment value or the fallback when unset.
func GetEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

// GetEnvInt returns the environment value as int, or the fallback when
// unset or unparsable.
func GetEnvInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return fallback
}

// GetEnvBool treats "true"/"TRUE"/"True", "1" and "yes"/"YES" as true;
// any other non-empty value is false.
func GetEnvBool(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	switch value {
	case "true", "TRUE", "True", "1", "yes", "YES":
		return true
	}
	return false
}

const (
	// Providers
	ProviderOpenAI = "openai"
	ProviderOllama = "ollama"

	// Default model names
	DefaultEmbedModelOpenAI = "text-embedding-3-small"
	DefaultEmbedModelOllama = "nomic-embed-text"
	DefaultChatModelOpenAI  = "gpt-4o-mini"
	DefaultChatModelOllama  = "qwen2.5:7b"
)

// Environment configuration (Docker-friendly, all overridable).
var (
	PORT    = GetEnv("PORT", "8081")
	DATADIR = GetEnv("DATA_DIR", "./data")

	// Shared secret guarding ingest/clear/refresh.
	RAGTOKEN = GetEnv("RAG_TOKEN", "")

	// Milvus
	MILVUSADDR = GetEnv("MILVUSADDR", "127.0.0.1:19530")
	INDEXNAME  = GetEnv("INDEX_NAME", "mbs_items_v1")

	// Elasticsearch
	ESADDR  = GetEnv("ESADDR", "http://localhost:9200")
	ESINDEX = GetEnv("ES_INDEX", "mbs_items_v1")

	// Postgres
	PGUSER = GetEnv("PGUSER", "root")
	PGPWD  = GetEnv("PGPWD", "")
	PGDB   = GetEnv("PGDB", "mbspro")
	PGHOST = GetEnv("PGHOST", "localhost")
	PGPORT = GetEnv("PGPORT", "5432")

	// LLM / embedding wiring
	EmbeddingProvider = GetEnv("EMBEDDING_PROVIDER", ProviderOpenAI)
	EmbeddingModel    = GetEnv("EMBEDDING_MODEL", "")
	ChatProvider      = GetEnv("CHAT_PROVIDER", ProviderOpenAI)
	ChatModel         = GetEnv("CHAT_MODEL", "")
	OpenAIAPIKey      = GetEnv("OPENAI_API_KEY", "")
	OpenAIBaseURL     = GetEnv("OPENAI_BASE_URL", "")
	OllamaPath        = GetEnv("OLLAMA_PATH", "http://localhost:11434")

	// Reranking knobs
	RerankerModel          = GetEnv("RERANKER_MODEL", "")
	RerankCandidates       = GetEnvInt("RERANK_CANDIDATES", 150)
	EnableReflectionRerank = GetEnvBool("ENABLE_REFLECTION_LLM_RERANK", false)
	ReflectionRerankTop    = GetEnvInt("REFLECTION_RERANK_TOP", 15)

	// Default catalog export consumed by /rag/refresh when no filename given.
	DefaultCatalogFile = GetEnv("CATALOG_FILE", "mbs_catalog.json")
)

// Prompt templates. Rendered with text/template; registered in Prompts so
// prompt-level regression tests can diff them without touching call sites.
const (
	FactCompletionPrompt = `
You are a clinical coding assistant. Extract structured facts from the
consultation note below. Current date: {{.CurrentDate}}.

Return a single JSON object with exactly these fields. Use null for any
field the note does not state. Do not guess.

{
  "duration_min": integer minutes or null,
  "duration_max": integer minutes or null,
  "duration_min_inclusive": boolean or null,
  "duration_max_inclusive": boolean or null,
  "age": integer years or null,
  "modality": "in_person" | "video" | "phone" | null,
  "setting": "consulting_rooms" | "hospital" | "residential_care" | "home" | "other" | null,
  "first_or_review": "first" | "review" | null,
  "referral_present": boolean or null,
  "specialty": string or null,
  "is_gp": boolean or null,
  "is_specialist": boolean or null,
  "is_emergency": boolean or null,
  "keywords": ["lowercase evidence token", ...]
}

Rules:
- "duration" covers the consultation length only. "exactly 25 minutes"
  means duration_min=25, duration_max=25, both inclusive.
- modality stays null unless the note carries a telehealth or
  face-to-face signal.
- keywords: short lowercase tokens that are evidence for team/conference
  activity, usual GP, home visits, or referrals.

Note:
{{.Note}}

Output JSON only. No markdown.
`

	ReflectionPrompt = `
You are a medical search query optimizer for an Australian MBS item
recommender. Current date: {{.CurrentDate}}.

Rewrite the clinical note below into a retrieval query. Expand clinical
abbreviations (mi, copd, dm, htn, af, dvt, pe, ...), standardize
terminology, strip filler, and surface billing-relevant structure.

Return JSON:
{
  "enhanced_query": "rewritten query",
  "standardized_terms": ["term", ...],
  "added_constraints": ["key:value", ...],
  "removed_noise": ["phrase", ...],
  "confidence": 0.0-1.0,
  "reasoning": "one sentence"
}

added_constraints keys: duration (buckets "<N", ">=N", "A-B"), modality
(in_person|video|phone), setting, specialty, visit (first|review).

Note:
{{.Note}}

Output JSON only. No markdown.
`

	RerankPrompt = `
You are reranking candidate MBS billing items for a clinical query.
Respect the query constraints strictly: prefer candidates in the correct
duration bucket, prefer matching group/subgroup, bias toward candidates
with higher upstream scores, and penalize obvious mismatches.

Query:
{{.Query}}

Constraints:
{{.Constraints}}

Candidates (item_num | group | duration | score | description):
{{.Candidates}}

Return a JSON array of item numbers, best first, drawn only from the
candidates above. Output JSON only. No markdown.
`

	SynthesisPrompt = `
You are an MBS billing assistant. Current date: {{.CurrentDate}}.

From the catalog extracts below, choose at most {{.TopK}} items that best
answer the query. Never return an item number from the banned list.

Banned item numbers: {{.Banned}}

Query:
{{.Query}}

Catalog extracts:
{{.Context}}

Return a JSON array:
[{"itemNum": "...", "title": "...", "match_reason": "...", "match_score": 0.0-1.0, "fee": number or null}]

Output JSON only. No markdown.
`
)

// Prompts is the prompt registry keyed by pipeline step.
var Prompts = map[string]string{
	"fact_completion": FactCompletionPrompt,
	"reflection":      ReflectionPrompt,
	"llm_rerank":      RerankPrompt,
	"synthesis":       SynthesisPrompt,
}
