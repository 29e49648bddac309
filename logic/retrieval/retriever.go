package retrieval

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino/schema"

	"github.com/Ethan225300/mbspro/logic/chat"
	"github.com/Ethan225300/mbspro/types"
	"github.com/Ethan225300/mbspro/vars"
)

// VectorSearcher is the embedding-index seam. filterExpr is a scalar
// filter in the store's expression syntax; implementations retrying
// without it is the caller's business, not theirs.
type VectorSearcher interface {
	Search(ctx context.Context, query string, topK int, filterExpr string) ([]*schema.Document, error)
}

// Reranker reorders candidates by relevance to the clean query. The
// shipped implementation fuses BM25 scores; a remote cross-encoder fits
// behind the same signature.
type Reranker interface {
	Rerank(ctx context.Context, query string, docs []*schema.Document, topN int) ([]*schema.Document, error)
}

// Options are the per-call knobs of one retrieval.
type Options struct {
	TopK                   int
	ExcludeCodes           []string
	EnableStage2Reflection bool
	EnableLLMReflection    bool
}

// Retriever is the full candidate pipeline.
type Retriever struct {
	searcher  VectorSearcher
	reranker  Reranker
	model     chat.Generator
	poolSize  int
	rerankTop int
}

// NewRetriever wires the pipeline. searcher may be nil (vector search
// disabled → empty candidates); reranker may be nil (stage skipped);
// model may be nil (LLM stages skipped, synthesis degrades to direct
// mapping).
func NewRetriever(searcher VectorSearcher, reranker Reranker, model chat.Generator, poolSize, rerankTop int) *Retriever {
	if poolSize < 30 {
		poolSize = 30
	}
	if poolSize > 200 {
		poolSize = 200
	}
	if rerankTop < 5 {
		rerankTop = 5
	}
	if rerankTop > 25 {
		rerankTop = 25
	}
	return &Retriever{
		searcher:  searcher,
		reranker:  reranker,
		model:     model,
		poolSize:  poolSize,
		rerankTop: rerankTop,
	}
}

// Retrieve runs one pass of the pipeline for a query that may carry an
// inline #constraints block.
func (r *Retriever) Retrieve(ctx context.Context, query string, opts Options) (*types.RetrievalResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("empty query")
	}
	if opts.TopK <= 0 {
		opts.TopK = 5
	}
	start := time.Now()

	// 1. Split the DSL off the semantic query.
	cleanQuery, constraints := SplitQuery(query)
	if cleanQuery == "" {
		return nil, fmt.Errorf("empty query")
	}

	// 2. Compile structured must tokens into a metadata filter.
	compiled := CompileFilter(constraints)
	banned := map[string]bool{}
	for _, code := range compiled.BannedCodes {
		banned[code] = true
	}
	for _, code := range opts.ExcludeCodes {
		banned[code] = true
	}

	// 3. Vector search, retrying without the filter on filter errors.
	candidates := r.search(ctx, cleanQuery, compiled.Expr)
	fmt.Printf(">>> [Retrieve] %d candidates, %v\n", len(candidates), time.Since(start))
	if len(candidates) == 0 {
		return &types.RetrievalResult{Results: []types.ResultItem{}}, nil
	}

	// 4. Relevance rerank.
	docs := candidates
	if r.reranker != nil {
		topN := opts.TopK + 5
		if topN < 12 {
			topN = 12
		}
		reranked, err := r.reranker.Rerank(ctx, cleanQuery, candidates, topN)
		if err != nil {
			fmt.Printf(">>> [Retrieve] rerank skipped: %v\n", err)
		} else {
			docs = reranked
		}
	}

	// 5. Constraint-aware local rerank.
	if opts.EnableStage2Reflection {
		docs = Stage2Rerank(docs, constraints)
	}

	// 6. LLM reflection rerank.
	if opts.EnableLLMReflection {
		docs = r.llmRerank(ctx, cleanQuery, constraints, docs)
	}

	// 7. Answer synthesis + final banned-code refilter.
	items := r.synthesize(ctx, cleanQuery, docs, opts.TopK, banned)
	out := make([]types.ResultItem, 0, len(items))
	scoreByCode, docByCode := indexDocs(docs)
	for _, item := range items {
		if banned[item.ItemNum] {
			continue
		}
		if doc, ok := docByCode[item.ItemNum]; ok {
			item.Meta = metaFor(doc)
			if item.Meta == nil {
				item.Meta = map[string]any{}
			}
			item.Meta["description"] = doc.Content
			if item.Title == "" {
				item.Title = truncate(doc.Content, 120)
			}
			if fee, ok := docFloat(doc, types.MetaScheduleFee); ok && item.Fee == nil {
				item.Fee = &fee
			}
		}
		if s, ok := scoreByCode[item.ItemNum]; ok {
			item.MatchScore = s
		}
		out = append(out, item)
		if len(out) == opts.TopK {
			break
		}
	}

	fmt.Printf(">>> [Retrieve] done: %d results, %v\n", len(out), time.Since(start))
	return &types.RetrievalResult{Results: out}, nil
}

// search hits the vector index; a filter error downgrades to an
// unfiltered search, any other failure to an empty pool.
func (r *Retriever) search(ctx context.Context, query, filterExpr string) []*schema.Document {
	if r.searcher == nil {
		return nil
	}
	docs, err := r.searcher.Search(ctx, query, r.poolSize, filterExpr)
	if err != nil && filterExpr != "" {
		fmt.Printf(">>> [Retrieve] filtered search failed (%v), retrying without filter\n", err)
		docs, err = r.searcher.Search(ctx, query, r.poolSize, "")
	}
	if err != nil {
		fmt.Printf(">>> [Retrieve] vector search failed: %v\n", err)
		return nil
	}
	return docs
}

// synthesize asks the chat model to pick and justify the final items.
// Without a model it maps the top documents directly; a model failure
// yields no results, never an error.
func (r *Retriever) synthesize(ctx context.Context, query string, docs []*schema.Document, topK int, banned map[string]bool) []types.ResultItem {
	contextDocs := docs
	if len(contextDocs) > topK+6 {
		contextDocs = contextDocs[:topK+6]
	}

	if r.model == nil {
		return directResults(contextDocs, topK, banned)
	}

	var ctxText strings.Builder
	for _, doc := range contextDocs {
		fee := ""
		if f, ok := docFloat(doc, types.MetaScheduleFee); ok {
			fee = fmt.Sprintf(" fee=$%.2f", f)
		}
		fmt.Fprintf(&ctxText, "Item %s (group %s%s): %s\n\n",
			DocCode(doc), docString(doc, types.MetaGroup), fee, doc.Content)
	}
	var bannedList []string
	for code := range banned {
		bannedList = append(bannedList, code)
	}

	prompt, err := chat.RenderPrompt(vars.Prompts["synthesis"], map[string]any{
		"CurrentDate": time.Now().Format("2006-01-02"),
		"TopK":        topK,
		"Banned":      strings.Join(bannedList, ", "),
		"Query":       query,
		"Context":     ctxText.String(),
	})
	if err != nil {
		return nil
	}
	resp, err := r.model.Generate(ctx, []*schema.Message{schema.UserMessage(prompt)})
	if err != nil {
		fmt.Printf(">>> [Retrieve] synthesis failed: %v\n", err)
		return nil
	}
	var items []types.ResultItem
	if err := json.Unmarshal([]byte(chat.SliceJSONArray(resp.Content)), &items); err != nil {
		fmt.Printf(">>> [Retrieve] synthesis reply unusable: %v\n", err)
		return nil
	}
	return items
}

// directResults is the no-model degradation: top documents become
// results verbatim.
func directResults(docs []*schema.Document, topK int, banned map[string]bool) []types.ResultItem {
	var items []types.ResultItem
	for _, doc := range docs {
		code := DocCode(doc)
		if banned[code] {
			continue
		}
		items = append(items, types.ResultItem{
			ItemNum:    code,
			Title:      truncate(doc.Content, 120),
			MatchScore: doc.Score(),
		})
		if len(items) == topK {
			break
		}
	}
	return items
}

func indexDocs(docs []*schema.Document) (map[string]float64, map[string]*schema.Document) {
	scores := make(map[string]float64, len(docs))
	byCode := make(map[string]*schema.Document, len(docs))
	for _, doc := range docs {
		code := DocCode(doc)
		if s, ok := scores[code]; !ok || doc.Score() > s {
			scores[code] = doc.Score()
		}
		if _, ok := byCode[code]; !ok {
			byCode[code] = doc
		}
	}
	return scores, byCode
}

func metaFor(doc *schema.Document) map[string]any {
	if doc.MetaData == nil {
		return nil
	}
	meta := make(map[string]any, len(doc.MetaData))
	for k, v := range doc.MetaData {
		meta[k] = v
	}
	return meta
}
