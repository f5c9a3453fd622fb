package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/dohr-michael/fakegpt/clients/tui/components"
)

const helpText = `Commands:
  /normal /slow /fail   toggle a network demo scenario
  /off                  leave demo mode
  /clear                restart the conversation (ctrl+l)
  /quit                 exit (ctrl+c)
Quick replies: tab or ←/→ to move, enter on an empty input to select.`

// App is the main TUI application model.
// Layout: CHAT | REPLIES | INPUT | STATUS
type App struct {
	chat    *components.Chat
	replies *components.Replies
	status  *components.StatusBar
	input   textinput.Model

	width       int
	height      int
	streamingID string
	quitting    bool

	backend Backend
}

// NewApp creates a new TUI application on top of backend.
func NewApp(backend Backend) *App {
	ti := textinput.New()
	ti.Prompt = PromptStyle.Render("> ")
	ti.Placeholder = "Ask FakeGPT something, or /help"
	ti.CharLimit = 2000
	ti.Focus()

	return &App{
		chat:    components.NewChat(),
		replies: components.NewReplies(),
		status:  components.NewStatusBar(),
		input:   ti,
		backend: backend,
	}
}

// Run starts the program and blocks until the user quits or ctx ends.
func Run(ctx context.Context, backend Backend) error {
	p := tea.NewProgram(NewApp(backend),
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
		tea.WithContext(ctx),
	)
	_, err := p.Run()
	return err
}

// Init starts the cursor blink, the spinner and the event listener.
func (a *App) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, a.status.Init(), a.listen())
}

// listen waits for the next backend event that maps to a TUI message.
func (a *App) listen() tea.Cmd {
	ch := a.backend.Events()
	return func() tea.Msg {
		for {
			e, ok := <-ch
			if !ok {
				return DisconnectedMsg{}
			}
			if msg := Project(e); msg != nil {
				return msg
			}
		}
	}
}

// Update handles messages and updates state.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height

	case tea.KeyMsg:
		// Drop unparsed SGR mouse escape sequence fragments.
		if msg.Type == tea.KeyRunes && isMouseEscapeFragment(string(msg.Runes)) {
			return a, nil
		}
		cmds = append(cmds, a.handleKey(msg))

	case tea.MouseMsg:
		var cmd tea.Cmd
		a.chat, cmd = a.chat.Update(msg)
		cmds = append(cmds, cmd)

	case spinner.TickMsg:
		var cmd tea.Cmd
		a.status, cmd = a.status.Update(msg)
		cmds = append(cmds, cmd)

	case MessageCreatedMsg:
		kind := components.EntryBot
		if msg.Role == "user" {
			kind = components.EntryUser
			a.replies.Clear()
		}
		a.chat.Add(components.Entry{ID: msg.ID, Kind: kind, Content: msg.Content, Streaming: msg.Streaming})

	case StreamStartMsg:
		a.streamingID = msg.ID
		a.status.SetStreaming(true)
		a.replies.Clear()

	case StreamDeltaMsg:
		a.chat.Append(msg.ID, msg.Content)

	case StreamEndMsg:
		if msg.ID == a.streamingID {
			a.streamingID = ""
			a.status.SetStreaming(false)
		}

	case AssistantMessageMsg:
		if msg.Error != "" {
			a.chat.AddError(msg.Error)
		}
		a.chat.Complete(msg.ID, msg.Content, msg.Interrupted)
		if !msg.Interrupted {
			a.replies.Set(toReplies(msg))
		}

	case MessageDeletedMsg:
		a.chat.Remove(msg.ID)

	case ConversationClearedMsg:
		a.chat.Clear()
		a.replies.Clear()
		a.streamingID = ""
		a.status.SetStreaming(false)

	case DemoModeMsg:
		a.status.SetDemo(msg.Enabled, msg.Mode)

	case NetworkRequestMsg:
		a.status.SetNetwork(msg.Operation, msg.Attempt, msg.DelayMS, msg.Slow, msg.Failed)

	case DisconnectedMsg:
		a.chat.AddError("Disconnected from FakeGPT.")
		a.status.SetStreaming(false)

	case sendErrorMsg:
		a.chat.AddError(fmt.Sprintf("Send error: %v", msg.err))
	}

	if _, ok := msg.(eventMsg); ok {
		cmds = append(cmds, a.listen())
	}
	a.updateSizes()

	return a, tea.Batch(cmds...)
}

func toReplies(msg AssistantMessageMsg) []components.Reply {
	out := make([]components.Reply, len(msg.QuickReplies))
	for i, r := range msg.QuickReplies {
		out[i] = components.Reply{ID: r.ID, Label: r.Label, Variant: r.Variant}
	}
	return out
}

func (a *App) handleKey(msg tea.KeyMsg) tea.Cmd {
	empty := a.input.Value() == ""

	switch msg.String() {
	case "ctrl+c":
		a.quitting = true
		return tea.Quit
	case "ctrl+l":
		return a.call(a.backend.Clear)
	case "pgup", "pgdown":
		var cmd tea.Cmd
		a.chat, cmd = a.chat.Update(msg)
		return cmd
	case "tab":
		a.replies.Next()
		return nil
	case "shift+tab":
		a.replies.Prev()
		return nil
	case "right":
		if empty && a.replies.Visible() {
			a.replies.Next()
			return nil
		}
	case "left":
		if empty && a.replies.Visible() {
			a.replies.Prev()
			return nil
		}
	case "enter":
		return a.submit()
	}

	var cmd tea.Cmd
	a.input, cmd = a.input.Update(msg)
	return cmd
}

// submit sends the typed text, or the highlighted quick reply when the
// input is empty.
func (a *App) submit() tea.Cmd {
	text := strings.TrimSpace(a.input.Value())
	a.input.Reset()

	if text == "" {
		r, ok := a.replies.Selected()
		if !ok {
			return nil
		}
		a.replies.Clear()
		return a.call(func() error { return a.backend.SelectReply(r.ID) })
	}
	if strings.HasPrefix(text, "/") {
		return a.handleSlashCommand(text)
	}
	return a.call(func() error { return a.backend.SendMessage(text) })
}

// handleSlashCommand processes slash commands.
func (a *App) handleSlashCommand(text string) tea.Cmd {
	command := strings.Fields(text)[0]

	switch command {
	case "/quit", "/exit":
		a.quitting = true
		return tea.Quit
	case "/clear":
		return a.call(a.backend.Clear)
	case "/normal", "/slow", "/fail":
		scenario := strings.TrimPrefix(command, "/")
		return a.call(func() error { return a.backend.SetDemo(scenario, true) })
	case "/off":
		return a.call(func() error { return a.backend.SetDemo("off", false) })
	case "/help":
		a.chat.AddSystem(helpText)
	default:
		a.chat.AddSystem(fmt.Sprintf("Unknown command: %s (try /help)", command))
	}
	return nil
}

func (a *App) call(fn func() error) tea.Cmd {
	return func() tea.Msg {
		if err := fn(); err != nil {
			return sendErrorMsg{err: err}
		}
		return nil
	}
}

func (a *App) updateSizes() {
	if a.width == 0 || a.height == 0 {
		return
	}
	a.replies.SetWidth(a.width)
	a.status.SetWidth(a.width)
	a.input.Width = a.width - 4

	// input line plus its top and bottom border, then the status bar.
	chatHeight := a.height - 3 - 1 - a.replies.Height()
	if chatHeight < 3 {
		chatHeight = 3
	}
	a.chat.SetSize(a.width, chatHeight)
}

// View renders the application.
func (a *App) View() string {
	if a.quitting {
		return "Goodbye!\n"
	}

	parts := []string{a.chat.View()}
	if a.replies.Visible() {
		parts = append(parts, a.replies.View())
	}
	parts = append(parts,
		InputBorderStyle.Width(a.width).Render(a.input.View()),
		a.status.View(),
	)
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

// isMouseEscapeFragment returns true if s looks like one or more unparsed
// SGR mouse escape sequence fragments (e.g. "[<65;80;14M").
func isMouseEscapeFragment(s string) bool {
	if len(s) < 5 || s[0] != '[' || s[1] != '<' {
		return false
	}
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
		case r == '[', r == '<', r == ';', r == 'M', r == 'm':
		default:
			return false
		}
	}
	return true
}
