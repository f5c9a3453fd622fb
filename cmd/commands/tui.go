package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/urfave/cli/v3"
	"golang.org/x/term"

	"github.com/dohr-michael/fakegpt/clients/tui"
	wsclient "github.com/dohr-michael/fakegpt/clients/ws"
	"github.com/dohr-michael/fakegpt/internal/app"
	"github.com/dohr-michael/fakegpt/internal/config"
)

// NewTUICommand returns the tui subcommand.
func NewTUICommand() *cli.Command {
	return &cli.Command{
		Name:  "tui",
		Usage: "Chat with FakeGPT in the terminal",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "gateway",
				Usage: "Gateway WebSocket URL; empty runs the bot in-process",
			},
		},
		Action: runTUI,
	}
}

func runTUI(ctx context.Context, cmd *cli.Command) error {
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		return errors.New("tui needs an interactive terminal")
	}

	// The screen belongs to the UI; logs go to a file when debugging.
	logOut, closeLog := tuiLogOutput(cmd.Bool("debug"))
	defer closeLog()

	if url := cmd.String("gateway"); url != "" {
		setupLogging(logOut, cmd.Bool("debug"), "info")
		client, err := wsclient.Dial(ctx, url)
		if err != nil {
			return fmt.Errorf("connect to gateway: %w", err)
		}
		backend := tui.NewRemoteBackend(client)
		defer backend.Close()
		// Restart so the greeting is streamed to this client.
		if err := backend.Clear(); err != nil {
			return err
		}
		return tui.Run(ctx, backend)
	}

	cfg, err := loadConfig(cmd, logOut)
	if err != nil {
		return err
	}
	a, err := app.New(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	backend := tui.NewLocalBackend(a.Bus)
	defer backend.Close()
	a.Start()

	return tui.Run(ctx, backend)
}

func tuiLogOutput(debug bool) (io.Writer, func()) {
	if !debug {
		return io.Discard, func() {}
	}
	path := config.LogPath("tui")
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return io.Discard, func() {}
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return io.Discard, func() {}
	}
	return f, func() { f.Close() }
}
