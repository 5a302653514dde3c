package k8s

import (
	"context"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
	"google.golang.org/genai"
)

const commandTimeout = 30 * time.Second

// Tool provides builtin cluster inspection through kubectl: pod listing,
// pod description and log retrieval. Remote cluster tools come in
// addition via MCP.
type Tool struct {
	kubectlPath string
	context     string
}

// New creates the builtin kubectl tool
func New() *Tool {
	return &Tool{kubectlPath: "kubectl"}
}

// Flags returns CLI flags for this tool
func (t *Tool) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "kubectl-path",
			Usage:       "Path to the kubectl binary",
			Value:       "kubectl",
			Sources:     cli.EnvVars("REMORA_KUBECTL_PATH"),
			Destination: &t.kubectlPath,
		},
		&cli.StringFlag{
			Name:        "kube-context",
			Usage:       "kubeconfig context to inspect",
			Sources:     cli.EnvVars("REMORA_KUBE_CONTEXT"),
			Destination: &t.context,
		},
	}
}

// Spec returns the tool specification for Gemini function calling
func (t *Tool) Spec() *genai.Tool {
	return &genai.Tool{
		FunctionDeclarations: []*genai.FunctionDeclaration{
			{
				Name:        "get_pods",
				Description: "List pods in a namespace with their status, restarts and age",
				Parameters: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"namespace": {
							Type:        genai.TypeString,
							Description: "Namespace to list (default: default)",
						},
					},
				},
			},
			{
				Name:        "describe_pod",
				Description: "Describe a pod: events, container states, conditions",
				Parameters: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"name": {
							Type:        genai.TypeString,
							Description: "Pod name",
						},
						"namespace": {
							Type:        genai.TypeString,
							Description: "Namespace of the pod (default: default)",
						},
					},
					Required: []string{"name"},
				},
			},
			{
				Name:        "get_pod_logs",
				Description: "Fetch recent logs of a pod",
				Parameters: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"name": {
							Type:        genai.TypeString,
							Description: "Pod name",
						},
						"namespace": {
							Type:        genai.TypeString,
							Description: "Namespace of the pod (default: default)",
						},
						"tail": {
							Type:        genai.TypeInteger,
							Description: "Number of trailing lines (default: 100)",
						},
					},
					Required: []string{"name"},
				},
			},
		},
	}
}

// Prompt returns additional information to be added to the system prompt
func (t *Tool) Prompt(ctx context.Context) string {
	return "You can inspect the cluster with get_pods, describe_pod and get_pod_logs. Gather evidence before proposing a fix."
}

// Execute runs the tool with the given function call
func (t *Tool) Execute(ctx context.Context, fc genai.FunctionCall) (*genai.FunctionResponse, error) {
	namespace := stringArg(fc.Args, "namespace")
	if namespace == "" {
		namespace = "default"
	}

	var args []string
	switch fc.Name {
	case "get_pods":
		args = []string{"get", "pods", "-n", namespace, "-o", "wide"}

	case "describe_pod":
		name := stringArg(fc.Args, "name")
		if name == "" {
			return nil, goerr.New("pod name is required", goerr.V("tool", fc.Name))
		}
		args = []string{"describe", "pod", name, "-n", namespace}

	case "get_pod_logs":
		name := stringArg(fc.Args, "name")
		if name == "" {
			return nil, goerr.New("pod name is required", goerr.V("tool", fc.Name))
		}
		tail := intArg(fc.Args, "tail")
		if tail <= 0 {
			tail = 100
		}
		args = []string{"logs", name, "-n", namespace, "--tail", strconv.Itoa(tail)}

	default:
		return nil, goerr.New("unknown function", goerr.V("name", fc.Name))
	}

	if t.context != "" {
		args = append(args, "--context", t.context)
	}

	output := t.runKubectl(ctx, args)
	return &genai.FunctionResponse{
		Name:     fc.Name,
		Response: map[string]any{"result": output},
	}, nil
}

// runKubectl executes kubectl and folds failures into the output text so
// the model can reason about them.
func (t *Tool) runKubectl(ctx context.Context, args []string) string {
	ctx, cancel := context.WithTimeout(ctx, commandTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, t.kubectlPath, args...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return "kubectl " + strings.Join(args, " ") + " failed: " + err.Error() + "\n" + string(out)
	}
	return string(out)
}

func stringArg(args map[string]any, key string) string {
	if v, ok := args[key].(string); ok {
		return v
	}
	return ""
}

func intArg(args map[string]any, key string) int {
	switch v := args[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	}
	return 0
}
