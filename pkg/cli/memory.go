package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

func memoryCommand() *cli.Command {
	return &cli.Command{
		Name:  "memory",
		Usage: "Inspect and manage stored solutions",
		Commands: []*cli.Command{
			memoryListCommand(),
			memorySearchCommand(),
			memoryPurgeCommand(),
		},
	}
}

func memoryListCommand() *cli.Command {
	var cfg config

	flags := globalFlags(&cfg)
	flags = append(flags, llmFlags(&cfg)...)
	flags = append(flags, memoryFlags(&cfg)...)

	return &cli.Command{
		Name:  "list",
		Usage: "List all stored solutions",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx = cfg.loggingContext(ctx)

			svc, index, err := cfg.newMemoryService(ctx)
			if err != nil {
				return err
			}
			defer index.Close()

			records, err := svc.List(ctx)
			if err != nil {
				return err
			}

			if len(records) == 0 {
				fmt.Fprintf(c.Root().Writer, "No solutions stored\n")
				return nil
			}

			for _, record := range records {
				fmt.Fprintf(c.Root().Writer, "%s  %s  %s\n",
					record.Key,
					record.CreatedAt.Format("2006-01-02 15:04:05"),
					truncate(record.Problem, 80))
			}
			fmt.Fprintf(c.Root().Writer, "\n%d solution(s)\n", len(records))
			return nil
		},
	}
}

func memorySearchCommand() *cli.Command {
	var cfg config

	flags := globalFlags(&cfg)
	flags = append(flags, llmFlags(&cfg)...)
	flags = append(flags, memoryFlags(&cfg)...)

	return &cli.Command{
		Name:      "search",
		Usage:     "Search stored solutions by similarity",
		ArgsUsage: "<query>",
		Flags:     flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx = cfg.loggingContext(ctx)

			query := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
			if query == "" {
				return goerr.New("query is required")
			}

			svc, index, err := cfg.newMemoryService(ctx)
			if err != nil {
				return err
			}
			defer index.Close()

			fmt.Fprintf(c.Root().Writer, "%s\n", svc.Retrieve(ctx, query, int(cfg.topK)))
			return nil
		},
	}
}

func memoryPurgeCommand() *cli.Command {
	var (
		cfg   config
		force bool
	)

	flags := []cli.Flag{
		&cli.BoolFlag{
			Name:        "force",
			Usage:       "Confirm deletion of all stored solutions",
			Destination: &force,
		},
	}
	flags = append(flags, globalFlags(&cfg)...)
	flags = append(flags, llmFlags(&cfg)...)
	flags = append(flags, memoryFlags(&cfg)...)

	return &cli.Command{
		Name:  "purge",
		Usage: "Delete all stored solutions",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx = cfg.loggingContext(ctx)

			if !force {
				return goerr.New("refusing to purge without --force")
			}

			svc, index, err := cfg.newMemoryService(ctx)
			if err != nil {
				return err
			}
			defer index.Close()

			deleted, err := svc.Purge(ctx)
			if err != nil {
				return err
			}

			fmt.Fprintf(c.Root().Writer, "Deleted %d solution(s)\n", deleted)
			return nil
		},
	}
}

func truncate(s string, max int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
