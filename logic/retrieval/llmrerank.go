package retrieval

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/schema"

	"github.com/Ethan225300/mbspro/logic/chat"
	"github.com/Ethan225300/mbspro/types"
	"github.com/Ethan225300/mbspro/vars"
)

// llmRerank asks a small model to reorder the top window of candidates
// under the constraint rubric. Codes the model returns lead; codes it
// never mentioned follow in their prior order, still ahead of the
// candidates outside the window. Any failure
// leaves the input order untouched.
func (r *Retriever) llmRerank(ctx context.Context, query string, constraints []types.Constraint, docs []*schema.Document) []*schema.Document {
	if r.model == nil || len(docs) == 0 {
		return docs
	}

	window := r.rerankTop
	if window > len(docs) {
		window = len(docs)
	}
	head := docs[:window]

	var candidates strings.Builder
	for _, doc := range head {
		dur := ""
		if iv := docDuration(doc); iv != nil {
			if mid, ok := iv.Midpoint(); ok {
				dur = fmt.Sprintf("~%dmin", mid)
			}
		}
		fmt.Fprintf(&candidates, "%s | %s | %s | %.3f | %s\n",
			DocCode(doc), docString(doc, types.MetaGroup), dur, doc.Score(), truncate(doc.Content, 160))
	}
	var consts []string
	for _, c := range constraints {
		consts = append(consts, c.String())
	}

	prompt, err := chat.RenderPrompt(vars.Prompts["llm_rerank"], map[string]string{
		"Query":       query,
		"Constraints": strings.Join(consts, " "),
		"Candidates":  candidates.String(),
	})
	if err != nil {
		return docs
	}
	resp, err := r.model.Generate(ctx, []*schema.Message{schema.UserMessage(prompt)})
	if err != nil {
		fmt.Printf(">>> [Rerank] LLM rerank skipped: %v\n", err)
		return docs
	}

	var order []string
	if err := json.Unmarshal([]byte(chat.SliceJSONArray(resp.Content)), &order); err != nil {
		fmt.Printf(">>> [Rerank] LLM rerank reply unusable: %v\n", err)
		return docs
	}

	rank := make(map[string]int, len(order))
	for i, code := range order {
		if _, ok := rank[code]; !ok {
			rank[code] = i
		}
	}

	reordered := make([]*schema.Document, 0, len(head))
	var unseen []*schema.Document
	byCode := make(map[string][]*schema.Document)
	for _, doc := range head {
		byCode[DocCode(doc)] = append(byCode[DocCode(doc)], doc)
	}
	used := make(map[string]bool)
	for _, code := range order {
		if used[code] {
			continue
		}
		used[code] = true
		reordered = append(reordered, byCode[code]...)
	}
	for _, doc := range head {
		if _, ok := rank[DocCode(doc)]; !ok {
			unseen = append(unseen, doc)
		}
	}
	reordered = append(reordered, unseen...)

	return append(reordered, docs[window:]...)
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
