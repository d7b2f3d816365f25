package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/raido/internal"
	pkgconfig "github.com/starford/raido/pkg/config"
)

// loadConfig reads the app config, applies flag overrides and validates.
// A missing config file at the default location falls back to defaults.
func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	configPath := cmd.String("config")

	cfg := internal.NewDefaultConfig()
	decode := pkgconfig.DecodeOptional[internal.Config]
	if cmd.IsSet("config") {
		decode = pkgconfig.Decode[internal.Config]
	}
	if err := decode(configPath, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if v := cmd.String("toolchain"); v != "" {
		cfg.Toolchain.Path = v
	}
	if v := cmd.String("design"); v != "" {
		cfg.Design.Path = v
	}
	if err := pkgconfig.Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func withConfig(cmd *cli.Command) ([]internal.Option, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	return []internal.Option{internal.WithConfig(cfg)}, nil
}

func requireName(cmd *cli.Command) (string, error) {
	name := cmd.Args().First()
	if name == "" {
		return "", fmt.Errorf("%s: command name is required", cmd.Name)
	}
	return name, nil
}

func serve(ctx context.Context, cmd *cli.Command) error {
	opts, err := withConfig(cmd)
	if err != nil {
		return err
	}
	if err := internal.Run(ctx, opts...); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}
	return nil
}

func serveMCP(ctx context.Context, cmd *cli.Command) error {
	opts, err := withConfig(cmd)
	if err != nil {
		return err
	}
	return internal.ServeMCP(ctx, opts...)
}

func list(ctx context.Context, cmd *cli.Command) error {
	opts, err := withConfig(cmd)
	if err != nil {
		return err
	}
	return internal.ListCommands(ctx, opts...)
}

func run(ctx context.Context, cmd *cli.Command) error {
	name, err := requireName(cmd)
	if err != nil {
		return err
	}
	opts, err := withConfig(cmd)
	if err != nil {
		return err
	}
	return internal.RunCommand(ctx, name, cmd.Bool("interactive"), opts...)
}

func watchDesign(ctx context.Context, cmd *cli.Command) error {
	name, err := requireName(cmd)
	if err != nil {
		return err
	}
	opts, err := withConfig(cmd)
	if err != nil {
		return err
	}
	return internal.WatchCommand(ctx, name, opts...)
}

func history(ctx context.Context, cmd *cli.Command) error {
	opts, err := withConfig(cmd)
	if err != nil {
		return err
	}
	return internal.ShowHistory(ctx, cmd.String("command"), int(cmd.Int("limit")), opts...)
}

func main() {
	cmd := &cli.Command{
		Name:  "raido",
		Usage: "Run HDL toolchain commands declared in an IDE configuration against the active design",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file",
				DefaultText: "config/config.yaml",
				Value:       "config/config.yaml",
				Sources:     cli.EnvVars("APP_CONFIG_FILE"),
			},
			&cli.StringFlag{
				Name:    "toolchain",
				Aliases: []string{"t"},
				Usage:   "IDE configuration file (.xml, .yaml, .toml); overrides toolchain.path",
				Sources: cli.EnvVars("RAIDO_TOOLCHAIN"),
			},
			&cli.StringFlag{
				Name:    "design",
				Aliases: []string{"d"},
				Usage:   "Active design file; overrides design.path",
				Sources: cli.EnvVars("RAIDO_DESIGN"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "list",
				Usage:  "List configured commands",
				Action: list,
			},
			{
				Name:      "run",
				Usage:     "Run a command against the active design",
				ArgsUsage: "NAME",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:    "interactive",
						Aliases: []string{"i"},
						Usage:   "Attach the process to this terminal",
					},
				},
				Action: run,
			},
			{
				Name:      "watch",
				Usage:     "Run a command every time the design changes",
				ArgsUsage: "NAME",
				Action:    watchDesign,
			},
			{
				Name:  "history",
				Usage: "Show recent executions",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "command",
						Usage: "Only show executions of this command",
					},
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum number of executions",
						Value: 20,
					},
				},
				Action: history,
			},
			{
				Name:   "serve",
				Usage:  "Serve the HTTP API and execution events",
				Action: serve,
			},
			{
				Name:   "mcp",
				Usage:  "Serve the MCP protocol on stdio",
				Action: serveMCP,
			},
		},
	}

	os.Exit(exitCode(cmd.Run(context.Background(), os.Args)))
}

// exitCode logs err unless it was already shown to the user and returns
// the process exit status.
func exitCode(err error) int {
	if err == nil {
		return 0
	}
	var reported *internal.ReportedError
	if !errors.As(err, &reported) {
		slog.Error("application error", slog.String("error", err.Error()))
	}
	return 1
}
