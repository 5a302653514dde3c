package memory

import (
	"context"

	"github.com/remora-agent/remora/pkg/model"
	"github.com/remora-agent/remora/pkg/utils/logging"
)

// AgentName identifies the memory agent in its discovery card
const AgentName = "Remora Memory Agent"

// HandleMessage dispatches one inbound agent message to the service.
// Structured store/retrieve payloads are decoded from the message text;
// anything else is treated as a retrieve query. The reply is always a
// non-empty string.
func (s *Service) HandleMessage(ctx context.Context, text string) string {
	req := DecodeRequest(text)

	switch req.Action {
	case ActionStore:
		logging.From(ctx).Info("store request", "key", model.NewSolutionKey(req.Problem))
		return s.Store(ctx, req.Problem, req.Solution, req.Resources)
	default:
		logging.From(ctx).Info("retrieve request", "top_k", req.TopK)
		return s.Retrieve(ctx, req.Query, req.TopK)
	}
}

// Card builds the discovery card advertising the memory agent's
// operations at the given public URL.
func Card(publicURL string) *model.AgentCard {
	return &model.AgentCard{
		Name:        AgentName,
		Description: "Stores and retrieves Kubernetes troubleshooting solutions by semantic similarity",
		URL:         publicURL,
		Version:     "0.1.0",
		Skills: []model.AgentSkill{
			{
				ID:          "store_solution",
				Name:        "Store solution",
				Description: "Persist a troubleshooting solution keyed by its problem description",
			},
			{
				ID:          "retrieve_solution",
				Name:        "Retrieve solutions",
				Description: "Find past solutions similar to a problem description",
			},
		},
	}
}
