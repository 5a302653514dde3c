package cli

import (
	"context"
	"os"

	"github.com/m-mizutani/goerr/v2"
	"github.com/remora-agent/remora/pkg/adapter"
	"github.com/remora-agent/remora/pkg/repository"
	"github.com/remora-agent/remora/pkg/service/a2a"
	"github.com/remora-agent/remora/pkg/service/memory"
	"github.com/remora-agent/remora/pkg/service/mcp"
	"github.com/remora-agent/remora/pkg/tool"
	"github.com/remora-agent/remora/pkg/usecase/diagnose"
	"github.com/remora-agent/remora/pkg/usecase/gate"
	"github.com/remora-agent/remora/pkg/usecase/orchestrate"
	"github.com/remora-agent/remora/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

// config holds configuration values
type config struct {
	logLevel string

	// Vector index
	backend    string
	project    string
	database   string
	collection string
	bucket     string

	// Remote memory agent
	memoryURL string
	topK      int64

	// Adapters
	geminiProject   string
	geminiLocation  string
	generativeModel string
	embeddingModel  string

	// Tools
	mcpConfig string
}

// globalFlags returns common flags used across commands with destination config
func globalFlags(cfg *config) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "log-level",
			Usage:       "Log level (debug, info, warn, error)",
			Value:       "info",
			Sources:     cli.EnvVars("REMORA_LOG_LEVEL"),
			Destination: &cfg.logLevel,
		},
	}
}

// llmFlags returns flags for LLM-related configuration with destination config
func llmFlags(cfg *config) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "gemini-project",
			Usage:       "Google Cloud project ID for Gemini",
			Sources:     cli.EnvVars("REMORA_GEMINI_PROJECT", "GOOGLE_CLOUD_PROJECT"),
			Destination: &cfg.geminiProject,
		},
		&cli.StringFlag{
			Name:        "gemini-location",
			Usage:       "Google Cloud location for Gemini",
			Value:       "us-central1",
			Sources:     cli.EnvVars("REMORA_GEMINI_LOCATION"),
			Destination: &cfg.geminiLocation,
		},
		&cli.StringFlag{
			Name:        "generative-model",
			Usage:       "Gemini model for generation",
			Sources:     cli.EnvVars("REMORA_GENERATIVE_MODEL"),
			Destination: &cfg.generativeModel,
		},
		&cli.StringFlag{
			Name:        "embedding-model",
			Usage:       "Gemini model for embeddings",
			Sources:     cli.EnvVars("REMORA_EMBEDDING_MODEL"),
			Destination: &cfg.embeddingModel,
		},
	}
}

// memoryFlags returns flags for the vector index and memory agent
func memoryFlags(cfg *config) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "memory-backend",
			Usage:       "Vector index backend (chromem or firestore)",
			Value:       "chromem",
			Sources:     cli.EnvVars("REMORA_MEMORY_BACKEND"),
			Destination: &cfg.backend,
		},
		&cli.StringFlag{
			Name:        "project",
			Aliases:     []string{"p"},
			Usage:       "Google Cloud project ID for Firestore",
			Sources:     cli.EnvVars("REMORA_FIRESTORE_PROJECT", "GOOGLE_CLOUD_PROJECT"),
			Destination: &cfg.project,
		},
		&cli.StringFlag{
			Name:        "database",
			Aliases:     []string{"d"},
			Usage:       "Firestore database ID",
			Value:       "(default)",
			Sources:     cli.EnvVars("REMORA_FIRESTORE_DATABASE"),
			Destination: &cfg.database,
		},
		&cli.StringFlag{
			Name:        "collection",
			Usage:       "Firestore collection for solution records",
			Value:       "solutions",
			Sources:     cli.EnvVars("REMORA_FIRESTORE_COLLECTION"),
			Destination: &cfg.collection,
		},
		&cli.StringFlag{
			Name:        "bucket",
			Usage:       "Cloud Storage bucket for the solution archive (optional)",
			Sources:     cli.EnvVars("REMORA_ARCHIVE_BUCKET"),
			Destination: &cfg.bucket,
		},
		&cli.StringFlag{
			Name:        "memory-url",
			Usage:       "Base URL of the remote memory agent (empty disables memory)",
			Sources:     cli.EnvVars("REMORA_MEMORY_URL"),
			Destination: &cfg.memoryURL,
		},
		&cli.IntFlag{
			Name:        "top-k",
			Usage:       "Number of similar solutions to retrieve",
			Value:       int64(memory.DefaultTopK),
			Sources:     cli.EnvVars("REMORA_TOP_K"),
			Destination: &cfg.topK,
		},
	}
}

// mcpFlags returns flags for the MCP tool configuration
func mcpFlags(cfg *config) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "mcp-config",
			Usage:       "Path to MCP server configuration YAML",
			Sources:     cli.EnvVars("REMORA_MCP_CONFIG"),
			Destination: &cfg.mcpConfig,
		},
	}
}

// loggingContext installs a logger built from the configured level and
// returns the context carrying it
func (cfg *config) loggingContext(ctx context.Context) context.Context {
	logger := logging.New(cfg.logLevel, os.Stderr)
	logging.SetDefault(logger)
	return logging.With(ctx, logger)
}

// newGemini creates a new Gemini adapter instance
func (cfg *config) newGemini(ctx context.Context) (adapter.Gemini, error) {
	if cfg.geminiProject == "" {
		return nil, goerr.New("gemini-project is required")
	}
	if cfg.geminiLocation == "" {
		return nil, goerr.New("gemini-location is required")
	}

	var opts []adapter.GeminiOption
	if cfg.generativeModel != "" {
		opts = append(opts, adapter.WithGenerativeModel(cfg.generativeModel))
	}
	if cfg.embeddingModel != "" {
		opts = append(opts, adapter.WithEmbeddingModel(cfg.embeddingModel))
	}

	gemini, err := adapter.NewGemini(ctx, cfg.geminiProject, cfg.geminiLocation, opts...)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create gemini adapter")
	}
	return gemini, nil
}

// newIndex creates the configured vector index backend
func (cfg *config) newIndex(ctx context.Context) (repository.VectorIndex, error) {
	switch cfg.backend {
	case "chromem":
		return repository.NewChromem()

	case "firestore":
		if cfg.project == "" {
			return nil, goerr.New("project is required for the firestore backend")
		}
		index, err := repository.NewFirestore(ctx, cfg.project, cfg.database, cfg.collection)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to create firestore index")
		}
		return index, nil

	default:
		return nil, goerr.New("unknown memory backend",
			goerr.V("backend", cfg.backend),
			goerr.V("supported", []string{"chromem", "firestore"}))
	}
}

// newStorage creates the archive storage adapter, or nil when no bucket
// is configured
func (cfg *config) newStorage(ctx context.Context) (adapter.Storage, error) {
	if cfg.bucket == "" {
		return nil, nil
	}

	storage, err := adapter.NewStorage(ctx, cfg.bucket)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create storage")
	}
	return storage, nil
}

// newMemoryService builds a memory service with direct index access, used
// by the memory agent server and the admin commands
func (cfg *config) newMemoryService(ctx context.Context, opts ...memory.Option) (*memory.Service, repository.VectorIndex, error) {
	gemini, err := cfg.newGemini(ctx)
	if err != nil {
		return nil, nil, err
	}

	index, err := cfg.newIndex(ctx)
	if err != nil {
		return nil, nil, err
	}

	storage, err := cfg.newStorage(ctx)
	if err != nil {
		index.Close()
		return nil, nil, err
	}
	if storage != nil {
		opts = append(opts, memory.WithArchive(storage))
	}

	return memory.New(index, gemini, opts...), index, nil
}

// newEngine builds the orchestration engine: gate, tool registry,
// diagnostic specialist, and the remote memory transport when configured.
// Tools with CLI flags are created at command construction and passed in.
func (cfg *config) newEngine(ctx context.Context, tools ...tool.Tool) (*orchestrate.Engine, error) {
	gemini, err := cfg.newGemini(ctx)
	if err != nil {
		return nil, err
	}

	mcpTool, err := mcp.LoadAndConnect(ctx, cfg.mcpConfig)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to set up MCP tools")
	}
	if mcpTool != nil {
		tools = append(tools, mcpTool)
	}

	registry := tool.New(tools...)
	specialist := diagnose.New(gemini, registry)
	responder := gate.New(gemini)

	opts := []orchestrate.Option{
		orchestrate.WithTopK(int(cfg.topK)),
	}
	if cfg.memoryURL != "" {
		opts = append(opts, orchestrate.WithMemory(a2a.NewClient(), cfg.memoryURL))
	}

	return orchestrate.New(responder, specialist, opts...), nil
}
