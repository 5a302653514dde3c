package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/remora-agent/remora/pkg/model"
	"github.com/remora-agent/remora/pkg/tool/k8s"
	"github.com/remora-agent/remora/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

func askCommand() *cli.Command {
	var (
		cfg       config
		message   string
		isMention bool
		isThread  bool
	)
	k8sTool := k8s.New()

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "message",
			Aliases:     []string{"m"},
			Usage:       "Message to run through the pipeline",
			Destination: &message,
		},
		&cli.BoolFlag{
			Name:        "mention",
			Usage:       "Treat the message as a direct mention",
			Destination: &isMention,
		},
		&cli.BoolFlag{
			Name:        "thread",
			Usage:       "Treat the message as part of an active thread",
			Destination: &isThread,
		},
	}
	flags = append(flags, globalFlags(&cfg)...)
	flags = append(flags, llmFlags(&cfg)...)
	flags = append(flags, memoryFlags(&cfg)...)
	flags = append(flags, mcpFlags(&cfg)...)
	flags = append(flags, k8sTool.Flags()...)

	return &cli.Command{
		Name:      "ask",
		Usage:     "Ask a one-shot troubleshooting question",
		ArgsUsage: "[question]",
		Flags:     flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx = cfg.loggingContext(ctx)

			if message == "" {
				message = strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
			}
			if message == "" {
				return goerr.New("message is required")
			}

			engine, err := cfg.newEngine(ctx, k8sTool)
			if err != nil {
				return err
			}

			outcome := engine.Handle(ctx, message, isMention, isThread)
			switch outcome.Kind {
			case model.OutcomeReply:
				fmt.Fprintf(c.Root().Writer, "%s\n", outcome.Text)
				return nil
			case model.OutcomeSuppressed:
				// Suppression produces no output and is not an error
				logging.From(ctx).Debug("message suppressed", "reason", outcome.Reason)
				return nil
			default:
				return goerr.New("troubleshooting failed", goerr.V("reason", outcome.Reason))
			}
		},
	}
}
