package service

import (
	"context"
	"strings"

	"github.com/Ethan225300/mbspro/logic/agent"
	"github.com/Ethan225300/mbspro/types"
)

// AgentService runs the orchestrator and shapes its output for the API.
type AgentService struct {
	orch *agent.Orchestrator
}

func NewAgentService(orch *agent.Orchestrator) *AgentService {
	return &AgentService{orch: orch}
}

func (s *AgentService) RunDeep(ctx context.Context, note string, top int) (*types.AgentResult, error) {
	return s.orch.Run(ctx, note, top, types.ModeDeep)
}

func (s *AgentService) RunSmart(ctx context.Context, note string, top int) (*types.AgentResult, error) {
	return s.orch.Run(ctx, note, top, types.ModeSmart)
}

// APIItems flattens an agent result into the wire shape. A missing
// match reason falls back to the verification rationale headline.
func APIItems(result *types.AgentResult) []types.ResultItem {
	items := make([]types.ResultItem, 0, len(result.Items))
	for _, item := range result.Items {
		out := types.ResultItem{
			ItemNum:     item.Code,
			Title:       item.Display,
			MatchReason: item.MatchReason,
			Fee:         item.Fee,
		}
		if item.Score != nil {
			out.MatchScore = *item.Score
		}
		if out.MatchReason == "" && item.Verify != nil {
			out.MatchReason = rationaleHeadline(item.Verify.RationaleMarkdown)
		}
		items = append(items, out)
	}
	return items
}

func rationaleHeadline(rationale string) string {
	lines := strings.SplitN(strings.TrimSpace(rationale), "\n", 2)
	if len(lines) == 0 {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(lines[0], "###"))
}
