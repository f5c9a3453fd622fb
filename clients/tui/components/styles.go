// Package components provides reusable TUI components and styles.
package components

import "github.com/charmbracelet/lipgloss"

const (
	ColorPrimary   = "#7C3AED" // violet: user messages, headings
	ColorSecondary = "#10B981" // green: bot, success
	ColorAccent    = "#60A5FA" // blue: selected reply
	ColorWarning   = "#F59E0B" // amber: slow network, demo
	ColorError     = "#EF4444"

	ColorMuted      = "#6B7280"
	ColorBorder     = "#374151"
	ColorBackground = "#1F2937"
	ColorSurface    = "#1E293B"

	ColorText       = "#E5E7EB"
	ColorTextBright = "#FFFFFF"
	ColorTextDim    = "#9CA3AF"
)

var (
	Primary    = lipgloss.Color(ColorPrimary)
	Secondary  = lipgloss.Color(ColorSecondary)
	Accent     = lipgloss.Color(ColorAccent)
	Warning    = lipgloss.Color(ColorWarning)
	Error      = lipgloss.Color(ColorError)
	Muted      = lipgloss.Color(ColorMuted)
	Border     = lipgloss.Color(ColorBorder)
	Surface    = lipgloss.Color(ColorSurface)
	Text       = lipgloss.Color(ColorText)
	TextBright = lipgloss.Color(ColorTextBright)
	TextDim    = lipgloss.Color(ColorTextDim)
)

// Message styles.
var (
	UserStyle = lipgloss.NewStyle().
			Foreground(Primary).
			Bold(true)

	BotStyle = lipgloss.NewStyle().
			Foreground(Secondary).
			Bold(true)

	SystemStyle = lipgloss.NewStyle().
			Foreground(Muted).
			Italic(true)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(Error).
			Bold(true)

	InterruptedStyle = lipgloss.NewStyle().
				Foreground(TextDim).
				Italic(true)

	CaretStyle = lipgloss.NewStyle().
			Foreground(Secondary)
)

// Quick reply styles.
var (
	ReplyStyle = lipgloss.NewStyle().
			Foreground(Text).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(Border).
			Padding(0, 1)

	ReplyPrimaryStyle = ReplyStyle.
				BorderForeground(Secondary)

	ReplySelectedStyle = ReplyStyle.
				Foreground(TextBright).
				BorderForeground(Accent).
				Bold(true)

	ReplyHintStyle = lipgloss.NewStyle().
			Foreground(Muted)
)

// Status bar styles.
var (
	StatusBarStyle = lipgloss.NewStyle().
			Background(Surface).
			Foreground(TextDim).
			Padding(0, 1)

	StatusBrandStyle = lipgloss.NewStyle().
				Background(Surface).
				Foreground(Primary).
				Bold(true)

	StatusDemoStyle = lipgloss.NewStyle().
			Background(Surface).
			Foreground(Warning).
			Bold(true)

	StatusOKStyle = lipgloss.NewStyle().
			Background(Surface).
			Foreground(Secondary)

	StatusFailStyle = lipgloss.NewStyle().
			Background(Surface).
			Foreground(Error)
)
