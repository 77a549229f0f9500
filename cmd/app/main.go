package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/sowilo/internal"
	pkgconfig "github.com/starford/sowilo/pkg/config"
)

func options(cmd *cli.Command) ([]internal.Option, error) {
	configPath := cmd.String("config")

	cfg := internal.NewDefaultConfig()
	if err := pkgconfig.Load(configPath, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return []internal.Option{
		internal.WithConfig(cfg),
	}, nil
}

func serve(ctx context.Context, cmd *cli.Command) error {
	opts, err := options(cmd)
	if err != nil {
		return err
	}
	if err := internal.Run(ctx, opts...); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}
	return nil
}

func mcp(ctx context.Context, cmd *cli.Command) error {
	opts, err := options(cmd)
	if err != nil {
		return err
	}
	return internal.RunMCP(ctx, opts...)
}

func suggest(ctx context.Context, cmd *cli.Command) error {
	if cmd.Args().Len() != 1 {
		return fmt.Errorf("usage: sowilo suggest [--duration 45m] TASK_ID")
	}
	opts, err := options(cmd)
	if err != nil {
		return err
	}
	return internal.Suggest(ctx, cmd.Args().First(), cmd.Duration("duration"), opts...)
}

func schedule(ctx context.Context, cmd *cli.Command) error {
	opts, err := options(cmd)
	if err != nil {
		return err
	}
	return internal.Schedule(ctx, cmd.Args().Slice(), opts...)
}

func importTasks(ctx context.Context, cmd *cli.Command) error {
	if cmd.Args().Len() == 0 {
		return fmt.Errorf("usage: sowilo import PATH...")
	}
	opts, err := options(cmd)
	if err != nil {
		return err
	}
	return internal.Import(ctx, cmd.Args().Slice(), opts...)
}

func main() {
	cmd := &cli.Command{
		Name:   "sowilo",
		Usage:  "Task scheduler that finds free calendar slots and books tasks into them",
		Action: serve,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file",
				DefaultText: "config/config.yaml",
				Value:       "config/config.yaml",
				Sources:     cli.EnvVars("APP_CONFIG_FILE"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run the HTTP API, SSE stream, preferences watcher and backlog sweep",
				Action: serve,
			},
			{
				Name:   "mcp",
				Usage:  "Serve MCP tools over stdio",
				Action: mcp,
			},
			{
				Name:      "suggest",
				Usage:     "Print ranked slot suggestions for a task",
				ArgsUsage: "TASK_ID",
				Flags: []cli.Flag{
					&cli.DurationFlag{
						Name:    "duration",
						Aliases: []string{"d"},
						Usage:   "Required duration (default: estimate)",
					},
				},
				Action: suggest,
			},
			{
				Name:      "schedule",
				Usage:     "Book the given tasks, or the whole backlog when no id is given",
				ArgsUsage: "[TASK_ID...]",
				Action:    schedule,
			},
			{
				Name:      "import",
				Usage:     "Create tasks from Markdown task files or directories",
				ArgsUsage: "PATH...",
				Action:    importTasks,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
