// Package reflect rewrites raw notes into better retrieval queries. A
// cheap heuristic completeness score decides whether the LLM is worth
// consulting; its output is purely advisory and never filters anything
// by itself.
package reflect

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/cloudwego/eino/schema"

	"github.com/Ethan225300/mbspro/logic/chat"
	"github.com/Ethan225300/mbspro/logic/retrieval"
	"github.com/Ethan225300/mbspro/types"
	"github.com/Ethan225300/mbspro/vars"
)

// llmThreshold: heuristic completeness at or above this skips the LLM.
const llmThreshold = 0.8

// Common clinical abbreviations that embed poorly and want expansion.
var abbreviations = regexp.MustCompile(`(?i)\b(mi|copd|dm|htn|af|dvt|pe)\b`)

// Vocabulary evidencing that the note carries actual clinical content.
var clinicalVocabulary = []string{
	"pain", "ache", "fever", "cough", "fracture", "diabetes", "asthma",
	"hypertension", "infection", "injury", "assessment", "examination",
	"consult", "review", "procedure", "surgery", "screening", "symptom",
	"diagnosis", "treatment", "therapy", "medication", "chest", "abdomen",
}

// Reflector scores and rewrites queries.
type Reflector struct {
	model chat.Generator
}

func NewReflector(model chat.Generator) *Reflector {
	return &Reflector{model: model}
}

// CompletenessScore is the heuristic pre-score: a 0.6 base plus fixed
// increments for each structured fact already extracted. needsLLM is
// forced when abbreviations or missing clinical context are detected.
func CompletenessScore(note string, facts *types.NoteFacts) (score float64, needsLLM bool) {
	score = 0.6
	if facts != nil {
		if facts.DurationMin != nil || facts.DurationMax != nil {
			score += 0.1
		}
		if facts.Age != nil {
			score += 0.05
		}
		if facts.Modality != nil && *facts.Modality != types.ModalityInPerson {
			score += 0.05
		}
	}
	if abbreviations.MatchString(note) {
		needsLLM = true
	}
	lower := strings.ToLower(note)
	hasClinical := false
	for _, term := range clinicalVocabulary {
		if strings.Contains(lower, term) {
			hasClinical = true
			break
		}
	}
	if !hasClinical {
		needsLLM = true
	}
	return score, needsLLM
}

// Reflect produces the enhanced query and its advisory constraints. On
// any LLM failure the original note is the query.
func (r *Reflector) Reflect(ctx context.Context, note string, facts *types.NoteFacts) (*types.ReflectionOutcome, []types.Constraint) {
	outcome := &types.ReflectionOutcome{EnhancedQuery: note, Confidence: 1.0}

	score, needsLLM := CompletenessScore(note, facts)
	if r.model != nil && (score < llmThreshold || needsLLM) {
		if llm, err := r.refine(ctx, note); err == nil {
			outcome = llm
			outcome.UsedLLM = true
		} else {
			fmt.Printf(">>> [Reflect] LLM refinement skipped: %v\n", err)
		}
	}

	constraints := KeyConstraints(facts)
	for _, tok := range outcome.AddedConstraints {
		if c, ok := retrieval.ParseConstraintToken(tok); ok {
			constraints = appendUnique(constraints, c)
		}
	}
	if outcome.EnhancedQuery == "" {
		outcome.EnhancedQuery = note
	}
	return outcome, constraints
}

// KeyConstraints derives must constraints directly from the facts:
// duration bucket, explicit modality, explicit setting.
func KeyConstraints(facts *types.NoteFacts) []types.Constraint {
	var out []types.Constraint
	if facts == nil {
		return out
	}
	if bucket := retrieval.DurationBucket(facts.DurationInterval()); bucket != "" {
		out = append(out, types.Constraint{Key: "duration", Value: bucket})
	}
	if facts.Modality != nil {
		out = append(out, types.Constraint{Key: "modality", Value: *facts.Modality})
	}
	if facts.Setting != nil && *facts.Setting != types.SettingOther {
		out = append(out, types.Constraint{Key: "setting", Value: *facts.Setting})
	}
	return out
}

func (r *Reflector) refine(ctx context.Context, note string) (*types.ReflectionOutcome, error) {
	prompt, err := chat.RenderPrompt(vars.Prompts["reflection"], map[string]string{
		"CurrentDate": time.Now().Format("2006-01-02"),
		"Note":        note,
	})
	if err != nil {
		return nil, err
	}
	resp, err := r.model.Generate(ctx, []*schema.Message{schema.UserMessage(prompt)})
	if err != nil {
		return nil, err
	}
	raw := chat.SliceJSONObject(resp.Content)
	var out types.ReflectionOutcome
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil, fmt.Errorf("reflection json unmarshal failed: %v", err)
	}
	if out.EnhancedQuery == "" {
		return nil, fmt.Errorf("reflection returned empty query")
	}
	return &out, nil
}

func appendUnique(cs []types.Constraint, c types.Constraint) []types.Constraint {
	for _, existing := range cs {
		if existing == c {
			return cs
		}
	}
	return append(cs, c)
}
