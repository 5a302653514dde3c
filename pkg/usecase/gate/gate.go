package gate

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/remora-agent/remora/pkg/adapter"
	"github.com/remora-agent/remora/pkg/utils/logging"
	"google.golang.org/genai"
)

const classificationPrompt = `Is this message related to Kubernetes, system troubleshooting, technical issues, or requests for help?

Message: %q

Answer as JSON.`

// Gate decides whether the orchestrator should act on an inbound message
// at all. It is a pure decision: classifier failures degrade silently to
// the keyword fallback and are never surfaced to the caller.
type Gate struct {
	gemini adapter.Gemini
}

// New creates a response gate. A nil gemini disables model classification
// and keeps only the keyword fallback.
func New(gemini adapter.Gemini) *Gate {
	return &Gate{gemini: gemini}
}

// ShouldRespond applies the gating policy in order, first match wins:
// direct mention, active thread, model classification, keyword fallback.
func (g *Gate) ShouldRespond(ctx context.Context, message string, isMention, isInThread bool) bool {
	if isMention {
		return true
	}
	if isInThread {
		return true
	}

	if g.gemini != nil {
		related, err := g.classify(ctx, message)
		if err == nil {
			return related
		}
		logging.From(ctx).Warn("classification failed, falling back to keywords", "error", err)
	}

	return matchKeywords(message)
}

type classification struct {
	Related bool `json:"related"`
}

// classify asks the model for a strict JSON verdict. Anything other than
// well-formed JSON counts as a classifier failure.
func (g *Gate) classify(ctx context.Context, message string) (bool, error) {
	temperature := float32(0)
	config := &genai.GenerateContentConfig{
		Temperature:      &temperature,
		ResponseMIMEType: "application/json",
		ResponseSchema: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"related": {
					Type:        genai.TypeBoolean,
					Description: "true if the message is about Kubernetes or troubleshooting",
				},
			},
			Required: []string{"related"},
		},
	}

	prompt := fmt.Sprintf(classificationPrompt, message)
	contents := []*genai.Content{
		genai.NewContentFromText(prompt, genai.RoleUser),
	}

	resp, err := g.gemini.GenerateContent(ctx, contents, config)
	if err != nil {
		return false, err
	}

	text := resp.Text()
	var verdict classification
	if err := json.Unmarshal([]byte(text), &verdict); err != nil {
		return false, err
	}

	return verdict.Related, nil
}
