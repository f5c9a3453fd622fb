package commands

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/dohr-michael/fakegpt/internal/config"
)

// NewRootCommand returns the top-level CLI command.
func NewRootCommand() *cli.Command {
	return &cli.Command{
		Name:  "fakegpt",
		Usage: "A chat bot that streams canned answers over a simulated network",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to config file",
				Value:   config.ConfigPath(),
			},
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "Enable debug logging",
			},
		},
		Commands: []*cli.Command{
			NewGatewayCommand(),
			NewTUICommand(),
			NewAskCommand(),
			NewDemoCommand(),
			NewTopicsCommand(),
			NewSimulateCommand(),
		},
	}
}

// loadConfig reads the config named by --config and installs the logger.
func loadConfig(cmd *cli.Command, logOut io.Writer) (*config.Config, error) {
	path := cmd.String("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load config %s: %w", path, err)
	}
	setupLogging(logOut, cmd.Bool("debug"), cfg.Events.LogLevel)
	return cfg, nil
}

// setupLogging installs a text handler on w as the default slog logger.
// --debug wins over the configured level.
func setupLogging(w io.Writer, debug bool, level string) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	if debug {
		lvl = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl})))
}

// stderrLogging is the logger setup for commands that do not read the config.
func stderrLogging(cmd *cli.Command) {
	setupLogging(os.Stderr, cmd.Bool("debug"), "warn")
}
