package cli

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/remora-agent/remora/pkg/service/a2a"
	"github.com/remora-agent/remora/pkg/service/memory"
	"github.com/remora-agent/remora/pkg/utils/logging"
	"github.com/remora-agent/remora/pkg/utils/metrics"
	"github.com/urfave/cli/v3"
)

const shutdownTimeout = 10 * time.Second

func serveCommand() *cli.Command {
	var (
		cfg       config
		addr      string
		publicURL string
	)

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "addr",
			Usage:       "Listen address for the memory agent",
			Value:       ":10001",
			Sources:     cli.EnvVars("REMORA_ADDR"),
			Destination: &addr,
		},
		&cli.StringFlag{
			Name:        "public-url",
			Usage:       "Public base URL advertised in the agent card",
			Sources:     cli.EnvVars("REMORA_PUBLIC_URL"),
			Destination: &publicURL,
		},
	}
	flags = append(flags, globalFlags(&cfg)...)
	flags = append(flags, llmFlags(&cfg)...)
	flags = append(flags, memoryFlags(&cfg)...)

	return &cli.Command{
		Name:  "serve",
		Usage: "Run the memory agent server",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx = cfg.loggingContext(ctx)
			ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			recorder := metrics.NewPrometheus()

			svc, index, err := cfg.newMemoryService(ctx, memory.WithMetrics(recorder))
			if err != nil {
				return err
			}
			defer index.Close()

			if publicURL == "" {
				publicURL = "http://localhost" + addr
			}

			agent := a2a.NewServer(memory.Card(publicURL), svc,
				a2a.WithServerMetrics(recorder))

			mux := http.NewServeMux()
			mux.Handle("/metrics", recorder.Handler())
			mux.Handle("/", agent)

			srv := &http.Server{
				Addr:    addr,
				Handler: mux,
			}

			errCh := make(chan error, 1)
			go func() {
				logging.From(ctx).Info("memory agent listening",
					"addr", addr, "public_url", publicURL, "backend", cfg.backend)
				errCh <- srv.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				if err != nil && !errors.Is(err, http.ErrServerClosed) {
					return goerr.Wrap(err, "server failed")
				}
				return nil

			case <-ctx.Done():
				logging.From(ctx).Info("shutting down")
				shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
				defer cancel()
				if err := srv.Shutdown(shutdownCtx); err != nil {
					return goerr.Wrap(err, "failed to shut down server")
				}
				return nil
			}
		},
	}
}
