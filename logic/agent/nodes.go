// Package agent composes fact extraction, query reflection, retrieval
// and verification into the Deep and Smart recommendation flows, with
// bounded iteration and monotone exclusion bookkeeping.
package agent

import (
	"context"
	"fmt"

	"github.com/Ethan225300/mbspro/logic/facts"
	"github.com/Ethan225300/mbspro/logic/reflect"
	"github.com/Ethan225300/mbspro/logic/retrieval"
	"github.com/Ethan225300/mbspro/logic/rules"
	"github.com/Ethan225300/mbspro/logic/verify"
	"github.com/Ethan225300/mbspro/types"
)

// maxProposeRounds bounds the loop: the initial proposal plus two
// refinements.
const maxProposeRounds = 3

// proposeTries bounds the unique-collection retries inside one round.
const proposeTries = 3

// Orchestrator owns the per-request pipeline. All members are read-only
// handles; state lives in the AgentState threaded through the graph.
type Orchestrator struct {
	extractor *facts.Extractor
	reflector *reflect.Reflector
	retriever *retrieval.Retriever

	// enableLLMRerank gates the retriever's LLM reflection rerank in
	// Deep mode (Smart mode always turns both knobs on).
	enableLLMRerank bool
}

func NewOrchestrator(extractor *facts.Extractor, reflector *reflect.Reflector, retriever *retrieval.Retriever, enableLLMRerank bool) *Orchestrator {
	return &Orchestrator{
		extractor:       extractor,
		reflector:       reflector,
		retriever:       retriever,
		enableLLMRerank: enableLLMRerank,
	}
}

// --- graph nodes ---

func (o *Orchestrator) nodeExtractFacts(ctx context.Context, st *types.AgentState) (*types.AgentState, error) {
	f, err := o.extractor.Extract(ctx, st.Note)
	if err != nil {
		return nil, err
	}
	st.Facts = f
	return st, nil
}

func (o *Orchestrator) nodeQueryReflection(ctx context.Context, st *types.AgentState) (*types.AgentState, error) {
	outcome, constraints := o.reflector.Reflect(ctx, st.Note, st.Facts)
	st.Reflection = outcome
	st.EnhancedQuery = outcome.EnhancedQuery
	st.ReflectionConstraints = constraints
	return st, nil
}

func (o *Orchestrator) nodePropose(ctx context.Context, st *types.AgentState) (*types.AgentState, error) {
	return o.propose(ctx, st, st.ReflectionConstraints)
}

func (o *Orchestrator) nodeRefinePropose(ctx context.Context, st *types.AgentState) (*types.AgentState, error) {
	merged := append([]types.Constraint{}, st.ReflectionConstraints...)
	for _, c := range st.CriticConstraints {
		merged = appendUnique(merged, c)
	}
	return o.propose(ctx, st, merged)
}

// propose runs one proposal round: retrieve topN+3 candidates excluding
// everything banned, retrying up to proposeTries times to accumulate
// unique codes until the target is met or the pool runs dry.
func (o *Orchestrator) propose(ctx context.Context, st *types.AgentState, constraints []types.Constraint) (*types.AgentState, error) {
	st.Iterations++
	target := st.TopN + 3

	var collected []types.ResultItem
	have := map[string]bool{}

	for try := 0; try < proposeTries && len(collected) < target; try++ {
		exclude := append([]string{}, st.BannedCodes...)
		for code := range have {
			exclude = append(exclude, code)
		}
		query := retrieval.AppendConstraints(st.EnhancedQuery, constraints)
		res, err := o.retriever.Retrieve(ctx, query, retrieval.Options{
			TopK:                   target,
			ExcludeCodes:           exclude,
			EnableStage2Reflection: true,
			EnableLLMReflection:    o.enableLLMRerank,
		})
		if err != nil {
			return nil, err
		}
		added := 0
		for _, item := range res.Results {
			if have[item.ItemNum] || st.Banned(item.ItemNum) {
				continue
			}
			have[item.ItemNum] = true
			collected = append(collected, item)
			added++
		}
		if added == 0 {
			break
		}
	}

	st.Proposal = collected
	fmt.Printf(">>> [Agent] round %d proposed %d candidates\n", st.Iterations, len(collected))
	return st, nil
}

// nodeVerify parses a rule per candidate, verifies, merges passes into
// the accepted set and bans everything seen this round.
func (o *Orchestrator) nodeVerify(ctx context.Context, st *types.AgentState) (*types.AgentState, error) {
	var passed []types.VerifiedItem
	st.NewThisRound = 0

	for _, item := range st.Proposal {
		if !st.Seen(item.ItemNum) {
			st.NewThisRound++
		}
		st.MarkSeen(item.ItemNum)
		st.Ban(item.ItemNum)

		rec := recordFromResult(item)
		rule := rules.ParseItemRule(rec)
		report := verify.Verify(st.Facts, &rule, item.Title)

		if report.Passes {
			fee := item.Fee
			score := item.MatchScore
			passed = append(passed, types.VerifiedItem{
				Code:        item.ItemNum,
				Display:     item.Title,
				Fee:         fee,
				Score:       &score,
				Verify:      report,
				Group:       rule.Group,
				MatchReason: item.MatchReason,
			})
		}
	}

	st.MergeAccepted(passed)
	st.Done = st.NewThisRound == 0 || len(st.Accepted) >= st.TopN
	fmt.Printf(">>> [Agent] round %d verified: %d passed, %d accepted total\n", st.Iterations, len(passed), len(st.Accepted))
	return st, nil
}

// nodeCritic turns the facts and the banned set into the next round's
// must / must-not constraints.
func (o *Orchestrator) nodeCritic(ctx context.Context, st *types.AgentState) (*types.AgentState, error) {
	var cs []types.Constraint
	if st.Facts != nil {
		if bucket := retrieval.DurationBucket(st.Facts.DurationInterval()); bucket != "" {
			cs = append(cs, types.Constraint{Key: "duration", Value: bucket})
		}
		if st.Facts.Modality != nil {
			cs = append(cs, types.Constraint{Key: "modality", Value: *st.Facts.Modality})
		}
		if st.Facts.Setting != nil && *st.Facts.Setting != types.SettingOther {
			cs = append(cs, types.Constraint{Key: "setting", Value: *st.Facts.Setting})
		}
		if st.Facts.Specialty != nil {
			cs = append(cs, types.Constraint{Key: "specialty", Value: *st.Facts.Specialty})
		}
		if st.Facts.FirstOrReview != nil {
			cs = append(cs, types.Constraint{Key: "visit", Value: *st.Facts.FirstOrReview})
		}
	}
	for _, code := range st.BannedCodes {
		cs = append(cs, types.Constraint{Key: "code", Value: code, Negated: true})
	}
	st.CriticConstraints = cs
	return st, nil
}

// nodeSmartPropose is the Smart-mode short-circuit: one retrieval with
// both reflection knobs on and no verification.
func (o *Orchestrator) nodeSmartPropose(ctx context.Context, st *types.AgentState) (*types.AgentState, error) {
	st.Iterations++
	query := retrieval.AppendConstraints(st.EnhancedQuery, st.ReflectionConstraints)
	res, err := o.retriever.Retrieve(ctx, query, retrieval.Options{
		TopK:                   st.TopN,
		EnableStage2Reflection: true,
		EnableLLMReflection:    true,
	})
	if err != nil {
		return nil, err
	}
	for _, item := range res.Results {
		st.MarkSeen(item.ItemNum)
		st.Ban(item.ItemNum)
		score := item.MatchScore
		reason := item.MatchReason
		if reason == "" {
			reason = "Enhanced by query self-reflection"
		}
		st.Accepted = append(st.Accepted, types.VerifiedItem{
			Code:        item.ItemNum,
			Display:     item.Title,
			Fee:         item.Fee,
			Score:       &score,
			Verify:      nil,
			MatchReason: reason,
		})
	}
	st.Done = true
	return st, nil
}

// recordFromResult reconstructs the catalog record the rule parser
// needs from a retrieval result's metadata.
func recordFromResult(item types.ResultItem) *types.CatalogRecord {
	rec := &types.CatalogRecord{ItemNum: item.ItemNum, Description: item.Title}
	if item.Meta == nil {
		return rec
	}
	if v, ok := item.Meta["description"].(string); ok && v != "" {
		rec.Description = v
	}
	if v, ok := item.Meta[types.MetaGroup].(string); ok {
		rec.Group = v
	}
	if v, ok := item.Meta[types.MetaSubgroup].(string); ok {
		rec.Subgroup = v
	}
	if v, ok := item.Meta[types.MetaCategory].(string); ok {
		rec.Category = v
	}
	// Zeroed duration metadata encodes "no window" (the vector store
	// cannot represent null numerics).
	minV, hasMin := metaInt(item.Meta, types.MetaDurationMin)
	maxV, hasMax := metaInt(item.Meta, types.MetaDurationMax)
	if (hasMin || hasMax) && (minV != 0 || maxV != 0) {
		if hasMin && minV != 0 {
			rec.DurationMinMinutes = &minV
		}
		if hasMax && maxV != 0 {
			rec.DurationMaxMinutes = &maxV
		}
	}
	if v, ok := metaInt(item.Meta, types.MetaDurMinIncl); ok {
		b := v != 0
		rec.DurationMinInclusive = &b
	}
	if v, ok := metaInt(item.Meta, types.MetaDurMaxIncl); ok {
		b := v != 0
		rec.DurationMaxInclusive = &b
	}
	if v, ok := metaFloat(item.Meta, types.MetaScheduleFee); ok {
		rec.ScheduleFee = &v
	}
	return rec
}

func metaInt(meta map[string]any, key string) (int, bool) {
	switch v := meta[key].(type) {
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	case int:
		return v, true
	case bool:
		if v {
			return 1, true
		}
		return 0, true
	}
	return 0, false
}

func metaFloat(meta map[string]any, key string) (float64, bool) {
	switch v := meta[key].(type) {
	case float64:
		return v, true
	case int64:
		return float64(v), true
	case int:
		return float64(v), true
	}
	return 0, false
}

func appendUnique(cs []types.Constraint, c types.Constraint) []types.Constraint {
	for _, existing := range cs {
		if existing == c {
			return cs
		}
	}
	return append(cs, c)
}
