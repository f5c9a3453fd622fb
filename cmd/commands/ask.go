package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/urfave/cli/v3"
	"golang.org/x/term"

	wsclient "github.com/dohr-michael/fakegpt/clients/ws"
	"github.com/dohr-michael/fakegpt/internal/events"
	wsprotocol "github.com/dohr-michael/fakegpt/internal/gateway/ws"
)

const defaultGatewayURL = "ws://127.0.0.1:18520/api/ws"

var (
	replyIDStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#7C3AED")).Bold(true)
	replyLabelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#E5E7EB"))
	networkStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280")).Italic(true)
	failedStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444"))
)

func gatewayFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:  "gateway",
		Usage: "Gateway WebSocket URL",
		Value: defaultGatewayURL,
	}
}

// NewAskCommand returns the ask subcommand.
func NewAskCommand() *cli.Command {
	return &cli.Command{
		Name:      "ask",
		Usage:     "Send a message or pick a quick reply and print the answer",
		ArgsUsage: "<message>",
		Flags: []cli.Flag{
			gatewayFlag(),
			&cli.StringFlag{
				Name:    "reply",
				Aliases: []string{"r"},
				Usage:   "Quick reply id to select instead of sending a message",
			},
			&cli.IntFlag{
				Name:  "timeout",
				Usage: "Response timeout in seconds",
				Value: 60,
			},
		},
		Action: runAsk,
	}
}

func runAsk(ctx context.Context, cmd *cli.Command) error {
	stderrLogging(cmd)

	message := strings.TrimSpace(strings.Join(cmd.Args().Slice(), " "))
	reply := cmd.String("reply")
	if (message == "") == (reply == "") {
		return errors.New("usage: fakegpt ask <message> | fakegpt ask --reply <id>")
	}

	ctx, cancel := context.WithTimeout(ctx, time.Duration(cmd.Int("timeout"))*time.Second)
	defer cancel()

	client, err := wsclient.Dial(ctx, cmd.String("gateway"))
	if err != nil {
		return fmt.Errorf("connect to gateway: %w", err)
	}
	defer client.Close()

	var id string
	if reply != "" {
		id, err = client.SelectReply(reply)
	} else {
		id, err = client.SendMessage(message)
	}
	if err != nil {
		return fmt.Errorf("send: %w", err)
	}

	p := newAskPrinter(os.Stdout, os.Stderr)
	done := false
	onEvent := func(f wsprotocol.Frame) {
		if !done {
			done = p.handle(f)
		}
	}
	if _, err := client.Await(id, onEvent); err != nil {
		return fmt.Errorf("gateway: %w", err)
	}

	for !done {
		f, err := client.ReadFrame()
		if err != nil {
			if ctx.Err() != nil {
				return errors.New("timeout waiting for response")
			}
			return fmt.Errorf("read frame: %w", err)
		}
		if f.Type == wsprotocol.FrameTypeEvent {
			done = p.handle(f)
		}
	}
	return nil
}

// askPrinter renders one exchange: streamed text on out, network
// attempts on status when it is a terminal.
type askPrinter struct {
	out      io.Writer
	status   io.Writer
	width    int
	streamed map[string]bool
}

func newAskPrinter(out, status *os.File) *askPrinter {
	p := &askPrinter{out: out, width: 80, streamed: map[string]bool{}}
	if term.IsTerminal(int(status.Fd())) {
		p.status = status
	}
	if w, _, err := term.GetSize(int(out.Fd())); err == nil && w > 0 {
		p.width = w
	}
	return p
}

// handle prints f and reports whether the exchange is over: a finished bot
// message that offers quick replies.
func (p *askPrinter) handle(f wsprotocol.Frame) bool {
	var e events.Event
	if err := json.Unmarshal(f.Payload, &e); err != nil {
		return false
	}

	switch e.Type {
	case events.EventAssistantStream:
		s, ok := events.GetAssistantStreamPayload(e)
		if !ok {
			return false
		}
		switch s.Phase {
		case events.StreamPhaseDelta:
			p.streamed[s.MessageID] = true
			fmt.Fprint(p.out, s.Content)
		case events.StreamPhaseEnd:
			if p.streamed[s.MessageID] {
				fmt.Fprintln(p.out)
			}
		}

	case events.EventNetworkRequest:
		n, ok := events.GetNetworkRequestPayload(e)
		if !ok || p.status == nil {
			return false
		}
		line := fmt.Sprintf("network: %s attempt %d, %dms", n.Operation, n.Attempt, n.DelayMS)
		if n.Failed {
			fmt.Fprintln(p.status, failedStyle.Render(line+", failed"))
		} else {
			fmt.Fprintln(p.status, networkStyle.Render(line))
		}

	case events.EventAssistantMessage:
		m, ok := events.GetAssistantMessagePayload(e)
		if !ok {
			return false
		}
		if m.Error != "" {
			fmt.Fprintln(p.out, failedStyle.Render(m.Error))
		}
		if !p.streamed[m.MessageID] && m.Content != "" {
			fmt.Fprintln(p.out, m.Content)
		}
		if m.Interrupted || len(m.QuickReplies) == 0 {
			return false
		}
		p.printReplies(m.QuickReplies)
		return true
	}
	return false
}

func (p *askPrinter) printReplies(replies []events.Reply) {
	fmt.Fprintln(p.out)
	for _, r := range replies {
		line := replyIDStyle.Render(r.ID) + "  " + replyLabelStyle.Render(r.Label)
		fmt.Fprintln(p.out, lipgloss.NewStyle().MaxWidth(p.width).Render(line))
	}
}
