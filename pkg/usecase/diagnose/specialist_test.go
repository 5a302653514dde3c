package diagnose_test

import (
	"context"
	"testing"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gt"
	"github.com/remora-agent/remora/pkg/tool"
	"github.com/remora-agent/remora/pkg/usecase/diagnose"
	"github.com/urfave/cli/v3"
	"google.golang.org/genai"
)

// scriptedGemini replays canned responses in order
type scriptedGemini struct {
	responses []*genai.GenerateContentResponse
	calls     int
	lastReq   []*genai.Content
}

func (m *scriptedGemini) GenerateContent(ctx context.Context, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	m.lastReq = contents
	if m.calls >= len(m.responses) {
		return nil, goerr.New("no scripted response left")
	}
	resp := m.responses[m.calls]
	m.calls++
	return resp, nil
}

func (m *scriptedGemini) Embedding(ctx context.Context, text string) ([]float32, error) {
	return nil, goerr.New("not implemented")
}

func textResponse(text string) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{
			{Content: &genai.Content{
				Role:  "model",
				Parts: []*genai.Part{{Text: text}},
			}},
		},
	}
}

func callResponse(name string, args map[string]any) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{
			{Content: &genai.Content{
				Role: "model",
				Parts: []*genai.Part{
					{FunctionCall: &genai.FunctionCall{Name: name, Args: args}},
				},
			}},
		},
	}
}

// fakeTool records executions and returns a fixed result
type fakeTool struct {
	executed []genai.FunctionCall
	result   string
	fail     bool
}

func (f *fakeTool) Spec() *genai.Tool {
	return &genai.Tool{
		FunctionDeclarations: []*genai.FunctionDeclaration{
			{Name: "get_pods", Description: "list pods"},
		},
	}
}

func (f *fakeTool) Prompt(ctx context.Context) string { return "get_pods lists pods" }
func (f *fakeTool) Flags() []cli.Flag                 { return nil }

func (f *fakeTool) Execute(ctx context.Context, fc genai.FunctionCall) (*genai.FunctionResponse, error) {
	f.executed = append(f.executed, fc)
	if f.fail {
		return nil, goerr.New("kubectl exploded")
	}
	return &genai.FunctionResponse{
		Name:     fc.Name,
		Response: map[string]any{"result": f.result},
	}, nil
}

func TestTroubleshootDirectAnswer(t *testing.T) {
	gemini := &scriptedGemini{responses: []*genai.GenerateContentResponse{
		textResponse("Delete the stuck finalizer"),
	}}
	specialist := diagnose.New(gemini, tool.New(&fakeTool{}))

	answer := specialist.Troubleshoot(context.Background(), "namespace stuck terminating")
	gt.Equal(t, answer, "Delete the stuck finalizer")
	gt.Equal(t, gemini.calls, 1)
}

func TestTroubleshootWithToolCall(t *testing.T) {
	k8sTool := &fakeTool{result: "web-1  0/1  CrashLoopBackOff"}
	gemini := &scriptedGemini{responses: []*genai.GenerateContentResponse{
		callResponse("get_pods", map[string]any{"namespace": "payments"}),
		textResponse("web-1 is crash looping; check its logs and fix the config"),
	}}
	specialist := diagnose.New(gemini, tool.New(k8sTool))

	answer := specialist.Troubleshoot(context.Background(), "payments service is down")
	gt.S(t, answer).Contains("crash looping")

	gt.A(t, k8sTool.executed).Length(1)
	gt.Equal(t, k8sTool.executed[0].Name, "get_pods")
	gt.Equal(t, k8sTool.executed[0].Args["namespace"], "payments")

	// The second request carries the model turn and the tool result
	gt.A(t, gemini.lastReq).Length(3)
}

func TestTroubleshootToolFailure(t *testing.T) {
	// A tool error is fed back to the model, which can still answer
	k8sTool := &fakeTool{fail: true}
	gemini := &scriptedGemini{responses: []*genai.GenerateContentResponse{
		callResponse("get_pods", nil),
		textResponse("Could not inspect the cluster; check kubectl access"),
	}}
	specialist := diagnose.New(gemini, tool.New(k8sTool))

	answer := specialist.Troubleshoot(context.Background(), "pods unreachable")
	gt.S(t, answer).Contains("kubectl access")
	gt.A(t, k8sTool.executed).Length(1)
}

func TestTroubleshootModelFailure(t *testing.T) {
	gemini := &scriptedGemini{} // errors immediately
	specialist := diagnose.New(gemini, tool.New(&fakeTool{}))

	answer := specialist.Troubleshoot(context.Background(), "anything")
	gt.S(t, answer).Contains("Error during troubleshooting:")
}

func TestTroubleshootIterationLimit(t *testing.T) {
	// A model that never stops calling tools runs into the loop bound
	responses := make([]*genai.GenerateContentResponse, 0, 16)
	for range 16 {
		responses = append(responses, callResponse("get_pods", nil))
	}
	gemini := &scriptedGemini{responses: responses}
	specialist := diagnose.New(gemini, tool.New(&fakeTool{result: "ok"}))

	answer := specialist.Troubleshoot(context.Background(), "looping")
	gt.S(t, answer).Contains("Error during troubleshooting:")
	gt.Equal(t, gemini.calls, 10)
}
