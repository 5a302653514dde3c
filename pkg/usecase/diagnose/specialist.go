package diagnose

import (
	"context"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/remora-agent/remora/pkg/adapter"
	"github.com/remora-agent/remora/pkg/tool"
	"github.com/remora-agent/remora/pkg/utils/logging"
	"google.golang.org/genai"
)

const systemPrompt = `You are a K8s troubleshooting specialist. Your approach:

1. Analyze the problem systematically
2. Use available tools to gather information (logs, events, resource status)
3. Provide step-by-step solutions
4. Always explain what each command does
5. Be direct and actionable - avoid lengthy explanations`

// A function-calling round trip per iteration; the loop is bounded so a
// confused model cannot spin forever.
const maxIterations = 10

// Specialist runs the diagnostic tool loop: Gemini function calling over
// the tool registry until the model produces a final answer.
type Specialist struct {
	gemini   adapter.Gemini
	registry *tool.Registry
}

// New creates a diagnostic specialist
func New(gemini adapter.Gemini, registry *tool.Registry) *Specialist {
	return &Specialist{
		gemini:   gemini,
		registry: registry,
	}
}

// Troubleshoot diagnoses the issue and always returns text: tool and
// model failures are embedded in the returned string, never raised past
// this boundary.
func (s *Specialist) Troubleshoot(ctx context.Context, query string) string {
	answer, err := s.run(ctx, query)
	if err != nil {
		logging.From(ctx).Error("troubleshooting failed", "error", err)
		return "Error during troubleshooting: " + err.Error()
	}
	return answer
}

func (s *Specialist) run(ctx context.Context, query string) (string, error) {
	prompt := systemPrompt
	if toolPrompts := s.registry.Prompts(ctx); toolPrompts != "" {
		prompt += "\n\n" + toolPrompts
	}

	config := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(prompt, ""),
		Tools:             s.registry.Specs(),
	}

	contents := []*genai.Content{
		genai.NewContentFromText(query, genai.RoleUser),
	}

	var answer strings.Builder

	for range maxIterations {
		resp, err := s.gemini.GenerateContent(ctx, contents, config)
		if err != nil {
			return "", goerr.Wrap(err, "failed to generate content")
		}
		if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
			return "", goerr.New("model returned no candidates")
		}

		content := resp.Candidates[0].Content
		contents = append(contents, content)

		var functionResponses []*genai.Part
		answer.Reset()

		for _, part := range content.Parts {
			if part.Text != "" {
				answer.WriteString(part.Text)
			}

			if part.FunctionCall == nil {
				continue
			}
			logging.From(ctx).Debug("executing tool", "tool", part.FunctionCall.Name)

			funcResp, execErr := s.registry.Execute(ctx, *part.FunctionCall)
			if execErr != nil {
				// The model sees the failure and can try another tool
				funcResp = &genai.FunctionResponse{
					Name:     part.FunctionCall.Name,
					Response: map[string]any{"error": execErr.Error()},
				}
			}
			functionResponses = append(functionResponses, &genai.Part{FunctionResponse: funcResp})
		}

		if len(functionResponses) > 0 {
			contents = append(contents, &genai.Content{
				Role:  genai.RoleUser,
				Parts: functionResponses,
			})
			continue
		}

		if answer.Len() == 0 {
			return "", goerr.New("model returned empty answer")
		}
		return answer.String(), nil
	}

	return "", goerr.New("tool loop exceeded iteration limit", goerr.V("limit", maxIterations))
}
