package agent

import (
	"context"

	"github.com/Ethan225300/mbspro/types"
)

// runFallback is the linear degradation of the graph: extract, reflect,
// retrieve, verify, and at most one critic-hinted refinement. Smart mode
// degrades to a single reflected retrieval.
func (o *Orchestrator) runFallback(ctx context.Context, st *types.AgentState) (*types.AgentResult, error) {
	if _, err := o.nodeExtractFacts(ctx, st); err != nil {
		return nil, err
	}
	if _, err := o.nodeQueryReflection(ctx, st); err != nil {
		return nil, err
	}

	if st.Mode == types.ModeSmart {
		if _, err := o.nodeSmartPropose(ctx, st); err != nil {
			return nil, err
		}
		return buildResult(st), nil
	}

	if _, err := o.nodePropose(ctx, st); err != nil {
		return nil, err
	}
	if _, err := o.nodeVerify(ctx, st); err != nil {
		return nil, err
	}

	if !st.Done {
		if _, err := o.nodeCritic(ctx, st); err != nil {
			return nil, err
		}
		if _, err := o.nodeRefinePropose(ctx, st); err != nil {
			return nil, err
		}
		if _, err := o.nodeVerify(ctx, st); err != nil {
			return nil, err
		}
	}
	return buildResult(st), nil
}
