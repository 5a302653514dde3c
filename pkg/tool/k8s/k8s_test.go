package k8s_test

import (
	"context"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/remora-agent/remora/pkg/tool/k8s"
	"google.golang.org/genai"
)

func TestFlags(t *testing.T) {
	k8sTool := k8s.New()

	flagNames := make(map[string]bool)
	for _, flag := range k8sTool.Flags() {
		for _, name := range flag.Names() {
			flagNames[name] = true
		}
	}

	gt.True(t, flagNames["kubectl-path"])
	gt.True(t, flagNames["kube-context"])
}

func TestSpec(t *testing.T) {
	spec := k8s.New().Spec()
	gt.V(t, spec).NotNil()

	names := make(map[string]bool)
	for _, fd := range spec.FunctionDeclarations {
		names[fd.Name] = true
	}
	gt.True(t, names["get_pods"])
	gt.True(t, names["describe_pod"])
	gt.True(t, names["get_pod_logs"])
}

func TestExecuteValidation(t *testing.T) {
	ctx := context.Background()
	k8sTool := k8s.New()

	t.Run("describe_pod requires a name", func(t *testing.T) {
		_, err := k8sTool.Execute(ctx, genai.FunctionCall{
			Name: "describe_pod",
			Args: map[string]any{"namespace": "default"},
		})
		gt.Error(t, err)
	})

	t.Run("get_pod_logs requires a name", func(t *testing.T) {
		_, err := k8sTool.Execute(ctx, genai.FunctionCall{
			Name: "get_pod_logs",
			Args: map[string]any{},
		})
		gt.Error(t, err)
	})

	t.Run("unknown function", func(t *testing.T) {
		_, err := k8sTool.Execute(ctx, genai.FunctionCall{
			Name: "delete_everything",
		})
		gt.Error(t, err)
	})
}
