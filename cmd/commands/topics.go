package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"

	"github.com/dohr-michael/fakegpt/internal/content"
)

var (
	topicIDStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#7C3AED")).Bold(true)
	topicLabelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#E5E7EB")).Bold(true)
	subtopicStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#9CA3AF"))
)

// NewTopicsCommand returns the topics subcommand.
func NewTopicsCommand() *cli.Command {
	return &cli.Command{
		Name:  "topics",
		Usage: "Print the topic catalog, overlays included",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Usage:   "Output format: text, json or yaml",
				Value:   "text",
			},
		},
		Action: runTopics,
	}
}

func runTopics(_ context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd, os.Stderr)
	if err != nil {
		return err
	}
	catalog, err := content.Load(cfg.Content.Overlays)
	if err != nil {
		return err
	}
	return writeCatalog(os.Stdout, catalog, cmd.String("format"))
}

func writeCatalog(w io.Writer, c *content.Catalog, format string) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(c)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(c); err != nil {
			return err
		}
		return enc.Close()
	case "text", "":
		for _, t := range c.MainTopics() {
			fmt.Fprintf(w, "%s  %s\n", topicIDStyle.Render(t.ID), topicLabelStyle.Render(t.Label))
			for _, s := range t.Subtopics {
				fmt.Fprintf(w, "    %s\n", subtopicStyle.Render(s.ID+"  "+s.Label))
			}
		}
		return nil
	default:
		return fmt.Errorf("unknown format %q (want text, json or yaml)", format)
	}
}
