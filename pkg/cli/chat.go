package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/briandowns/spinner"
	"github.com/chzyer/readline"
	"github.com/m-mizutani/goerr/v2"
	"github.com/remora-agent/remora/pkg/model"
	"github.com/remora-agent/remora/pkg/tool/k8s"
	"github.com/urfave/cli/v3"
)

func chatCommand() *cli.Command {
	var cfg config
	k8sTool := k8s.New()

	flags := globalFlags(&cfg)
	flags = append(flags, llmFlags(&cfg)...)
	flags = append(flags, memoryFlags(&cfg)...)
	flags = append(flags, mcpFlags(&cfg)...)
	flags = append(flags, k8sTool.Flags()...)

	return &cli.Command{
		Name:  "chat",
		Usage: "Interactive troubleshooting session",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx = cfg.loggingContext(ctx)

			engine, err := cfg.newEngine(ctx, k8sTool)
			if err != nil {
				return err
			}

			rl, err := readline.New("remora> ")
			if err != nil {
				return goerr.Wrap(err, "failed to initialize prompt")
			}
			defer rl.Close()

			fmt.Fprintf(c.Root().Writer, "Chat session started. Type 'exit' to quit.\n")

			replied := false
			for {
				line, err := rl.Readline()
				if errors.Is(err, readline.ErrInterrupt) {
					continue
				}
				if errors.Is(err, io.EOF) {
					break
				}
				if err != nil {
					return goerr.Wrap(err, "failed to read input")
				}

				if line == "exit" {
					break
				}
				if line == "" {
					continue
				}

				sp := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
				sp.Suffix = " thinking..."
				sp.Start()

				// Later turns of a session behave like an active thread
				outcome := engine.Handle(ctx, line, false, replied)
				sp.Stop()

				switch outcome.Kind {
				case model.OutcomeReply:
					fmt.Fprintf(c.Root().Writer, "%s\n\n", outcome.Text)
					replied = true
				case model.OutcomeSuppressed:
					fmt.Fprintf(c.Root().Writer, "(no response: %s)\n\n", outcome.Reason)
				default:
					fmt.Fprintf(c.Root().Writer, "troubleshooting failed: %s\n\n", outcome.Reason)
				}
			}

			fmt.Fprintf(c.Root().Writer, "\nChat session completed\n")
			return nil
		},
	}
}
