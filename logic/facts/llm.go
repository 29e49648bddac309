package facts

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cloudwego/eino/schema"

	"github.com/Ethan225300/mbspro/logic/chat"
	"github.com/Ethan225300/mbspro/types"
	"github.com/Ethan225300/mbspro/vars"
)

// Extractor combines the heuristic pre-pass with LLM completion. A nil
// model disables the LLM leg entirely.
type Extractor struct {
	model chat.Generator
}

func NewExtractor(model chat.Generator) *Extractor {
	return &Extractor{model: model}
}

// Extract returns the note's facts. The LLM is consulted only when the
// heuristics left one of the core fields open, and may only fill gaps:
// heuristic values always win. On any LLM failure the heuristic view is
// returned as-is.
func (e *Extractor) Extract(ctx context.Context, note string) (*types.NoteFacts, error) {
	f := HeuristicFacts(note)
	if e.model == nil || !needsCompletion(f) {
		return f, nil
	}

	llmFacts, err := e.complete(ctx, note)
	if err != nil {
		fmt.Printf(">>> [Facts] LLM completion skipped: %v\n", err)
		return f, nil
	}
	mergeFacts(f, llmFacts)
	return f, nil
}

// needsCompletion mirrors the trigger set: duration, modality, setting,
// age, or inclusivity booleans still missing.
func needsCompletion(f *types.NoteFacts) bool {
	return f.DurationMin == nil || f.Modality == nil || f.Setting == nil ||
		f.Age == nil || f.DurationMinInclusive == nil || f.DurationMaxInclusive == nil
}

func (e *Extractor) complete(ctx context.Context, note string) (*types.NoteFacts, error) {
	prompt, err := chat.RenderPrompt(vars.Prompts["fact_completion"], map[string]string{
		"CurrentDate": time.Now().Format("2006-01-02"),
		"Note":        note,
	})
	if err != nil {
		return nil, err
	}

	resp, err := e.model.Generate(ctx, []*schema.Message{schema.UserMessage(prompt)})
	if err != nil {
		return nil, err
	}

	raw := chat.SliceJSONObject(resp.Content)
	var out types.NoteFacts
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil, fmt.Errorf("facts json unmarshal failed: %v", err)
	}
	return &out, nil
}

// mergeFacts copies LLM values into nil fields only.
func mergeFacts(dst, src *types.NoteFacts) {
	if dst.DurationMin == nil {
		dst.DurationMin = src.DurationMin
	}
	if dst.DurationMax == nil {
		dst.DurationMax = src.DurationMax
	}
	if dst.DurationMinInclusive == nil {
		dst.DurationMinInclusive = src.DurationMinInclusive
	}
	if dst.DurationMaxInclusive == nil {
		dst.DurationMaxInclusive = src.DurationMaxInclusive
	}
	if dst.Age == nil {
		dst.Age = src.Age
	}
	if dst.Modality == nil {
		dst.Modality = src.Modality
	}
	if dst.Setting == nil {
		dst.Setting = src.Setting
	}
	if dst.FirstOrReview == nil {
		dst.FirstOrReview = src.FirstOrReview
	}
	if dst.ReferralPresent == nil {
		dst.ReferralPresent = src.ReferralPresent
	}
	if dst.Specialty == nil {
		dst.Specialty = src.Specialty
	}
	if dst.IsGP == nil {
		dst.IsGP = src.IsGP
	}
	if dst.IsSpecialist == nil {
		dst.IsSpecialist = src.IsSpecialist
	}
	if dst.IsEmergency == nil {
		dst.IsEmergency = src.IsEmergency
	}
	for _, kw := range src.Keywords {
		if !dst.HasKeyword(kw) {
			dst.Keywords = append(dst.Keywords, kw)
		}
	}
}
