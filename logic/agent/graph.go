package agent

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/compose"

	"github.com/Ethan225300/mbspro/logic/verify"
	"github.com/Ethan225300/mbspro/types"
)

// Run executes one agent request. Any graph construction or runtime
// failure downgrades to the linear fallback pipeline; the caller only
// sees an error when both paths break, or when the context is cancelled
// during the graph run (then the fallback is skipped).
func (o *Orchestrator) Run(ctx context.Context, note string, topN int, mode string) (*types.AgentResult, error) {
	if topN <= 0 {
		topN = 5
	}
	st := &types.AgentState{Note: note, TopN: topN, Mode: mode}

	runnable, err := o.buildGraph(ctx)
	if err != nil {
		fmt.Printf(">>> [Agent] graph compile failed (%v), using fallback pipeline\n", err)
		return o.runFallback(ctx, st)
	}
	out, err := runnable.Invoke(ctx, st)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		fmt.Printf(">>> [Agent] graph run failed (%v), using fallback pipeline\n", err)
		return o.runFallback(ctx, &types.AgentState{Note: note, TopN: topN, Mode: mode})
	}
	return buildResult(out), nil
}

// buildGraph assembles the state graph:
//
//	START → extract_facts → query_reflection
//	  deep:  → propose → verify ⇄ (critic → refine_propose) → END
//	  smart: → smart_propose → END
func (o *Orchestrator) buildGraph(ctx context.Context) (compose.Runnable[*types.AgentState, *types.AgentState], error) {
	g := compose.NewGraph[*types.AgentState, *types.AgentState]()

	if err := g.AddLambdaNode("extract_facts", compose.InvokableLambda(o.nodeExtractFacts)); err != nil {
		return nil, err
	}
	if err := g.AddLambdaNode("query_reflection", compose.InvokableLambda(o.nodeQueryReflection)); err != nil {
		return nil, err
	}
	if err := g.AddLambdaNode("propose", compose.InvokableLambda(o.nodePropose)); err != nil {
		return nil, err
	}
	if err := g.AddLambdaNode("smart_propose", compose.InvokableLambda(o.nodeSmartPropose)); err != nil {
		return nil, err
	}
	if err := g.AddLambdaNode("verify", compose.InvokableLambda(o.nodeVerify)); err != nil {
		return nil, err
	}
	if err := g.AddLambdaNode("critic", compose.InvokableLambda(o.nodeCritic)); err != nil {
		return nil, err
	}
	if err := g.AddLambdaNode("refine_propose", compose.InvokableLambda(o.nodeRefinePropose)); err != nil {
		return nil, err
	}

	if err := g.AddEdge(compose.START, "extract_facts"); err != nil {
		return nil, err
	}
	if err := g.AddEdge("extract_facts", "query_reflection"); err != nil {
		return nil, err
	}

	modeBranch := compose.NewGraphBranch(
		func(ctx context.Context, st *types.AgentState) (string, error) {
			if st.Mode == types.ModeSmart {
				return "smart_propose", nil
			}
			return "propose", nil
		},
		map[string]bool{"propose": true, "smart_propose": true},
	)
	if err := g.AddBranch("query_reflection", modeBranch); err != nil {
		return nil, err
	}

	if err := g.AddEdge("propose", "verify"); err != nil {
		return nil, err
	}
	if err := g.AddEdge("smart_propose", compose.END); err != nil {
		return nil, err
	}

	loopBranch := compose.NewGraphBranch(
		func(ctx context.Context, st *types.AgentState) (string, error) {
			if st.Done || st.Iterations >= maxProposeRounds {
				return compose.END, nil
			}
			return "critic", nil
		},
		map[string]bool{"critic": true, compose.END: true},
	)
	if err := g.AddBranch("verify", loopBranch); err != nil {
		return nil, err
	}

	if err := g.AddEdge("critic", "refine_propose"); err != nil {
		return nil, err
	}
	if err := g.AddEdge("refine_propose", "verify"); err != nil {
		return nil, err
	}

	return g.Compile(ctx, compose.WithMaxRunSteps(24))
}

// buildResult finalizes the state: conflict resolution seam, topN cap,
// result shaping.
func buildResult(st *types.AgentState) *types.AgentResult {
	items, notes := verify.ResolveTimeConflicts(st.Accepted)
	if len(items) > st.TopN {
		items = items[:st.TopN]
	}
	if items == nil {
		items = []types.VerifiedItem{}
	}
	return &types.AgentResult{
		NoteFacts:         st.Facts,
		Items:             items,
		ConflictsResolved: notes,
		Iterations:        st.Iterations,
		Reflections:       st.Reflection,
	}
}
