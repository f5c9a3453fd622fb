package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// StatusBar shows the demo mode, the streaming state and the last
// simulated network request.
type StatusBar struct {
	width     int
	spinner   spinner.Model
	streaming bool
	demo      string
	network   string
	failed    bool
}

// NewStatusBar creates a status bar.
func NewStatusBar() *StatusBar {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Background(Surface).Foreground(Secondary)
	return &StatusBar{spinner: s}
}

// Init starts the spinner.
func (b *StatusBar) Init() tea.Cmd {
	return b.spinner.Tick
}

// SetWidth sets the bar width.
func (b *StatusBar) SetWidth(width int) {
	b.width = width
}

// SetStreaming toggles the streaming indicator.
func (b *StatusBar) SetStreaming(streaming bool) {
	b.streaming = streaming
}

// SetDemo shows the armed scenario, or hides it when mode is empty.
func (b *StatusBar) SetDemo(enabled bool, mode string) {
	if !enabled {
		b.demo = ""
		return
	}
	b.demo = mode
}

// Demo returns the displayed demo mode.
func (b *StatusBar) Demo() string {
	return b.demo
}

// SetNetwork records the outcome of the last simulated request.
func (b *StatusBar) SetNetwork(op string, attempt int, delayMS int64, slow, failed bool) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s #%d %dms", op, attempt, delayMS)
	if slow {
		sb.WriteString(" slow")
	}
	if failed {
		sb.WriteString(" failed")
	}
	b.network = sb.String()
	b.failed = failed
}

// Network returns the last network line.
func (b *StatusBar) Network() string {
	return b.network
}

// Update advances the spinner.
func (b *StatusBar) Update(msg tea.Msg) (*StatusBar, tea.Cmd) {
	if _, ok := msg.(spinner.TickMsg); !ok {
		return b, nil
	}
	var cmd tea.Cmd
	b.spinner, cmd = b.spinner.Update(msg)
	return b, cmd
}

// View renders the bar.
func (b *StatusBar) View() string {
	left := StatusBrandStyle.Render("FakeGPT")
	if b.demo != "" {
		left += StatusBarStyle.Render("demo:") + StatusDemoStyle.Render(b.demo)
	}

	var right string
	if b.network != "" {
		style := StatusOKStyle
		if b.failed {
			style = StatusFailStyle
		}
		right = style.Render(b.network)
	}
	if b.streaming {
		right += StatusBarStyle.Render(" ") + b.spinner.View()
	}

	padding := b.width - lipgloss.Width(left) - lipgloss.Width(right) - 2
	if padding < 1 {
		padding = 1
	}
	return StatusBarStyle.Width(b.width).Render(left + strings.Repeat(" ", padding) + right)
}
