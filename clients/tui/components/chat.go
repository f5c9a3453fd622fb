package components

import (
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// EntryKind tells how a chat entry is rendered.
type EntryKind int

const (
	EntryUser EntryKind = iota
	EntryBot
	EntrySystem
	EntryError
)

// Entry is one rendered line group of the transcript.
type Entry struct {
	ID          string
	Kind        EntryKind
	Content     string
	Streaming   bool
	Interrupted bool
}

// Chat is a scrollable transcript backed by a viewport.
type Chat struct {
	viewport   viewport.Model
	entries    []Entry
	width      int
	height     int
	autoScroll bool
}

// NewChat creates an empty chat transcript.
func NewChat() *Chat {
	vp := viewport.New(0, 0)
	// Keys belong to the input and reply bar; only paging scrolls.
	vp.KeyMap = viewport.KeyMap{}
	return &Chat{viewport: vp, autoScroll: true}
}

// SetSize resizes the transcript.
func (c *Chat) SetSize(width, height int) {
	c.width = width
	c.height = height
	c.viewport.Width = width
	c.viewport.Height = height
	c.refresh()
}

// Entries returns the transcript entries.
func (c *Chat) Entries() []Entry {
	return c.entries
}

// Add appends an entry, or replaces the entry with the same non-empty ID.
func (c *Chat) Add(e Entry) {
	if e.ID != "" {
		if i := c.index(e.ID); i >= 0 {
			c.entries[i] = e
			c.refresh()
			return
		}
	}
	c.entries = append(c.entries, e)
	c.refresh()
}

// AddSystem appends an informational line.
func (c *Chat) AddSystem(text string) {
	c.Add(Entry{Kind: EntrySystem, Content: text})
}

// AddError appends an error line.
func (c *Chat) AddError(text string) {
	c.Add(Entry{Kind: EntryError, Content: text})
}

// Append adds a streamed chunk to the bot entry id, creating it when needed.
func (c *Chat) Append(id, chunk string) {
	i := c.index(id)
	if i < 0 {
		c.entries = append(c.entries, Entry{ID: id, Kind: EntryBot, Streaming: true})
		i = len(c.entries) - 1
	}
	c.entries[i].Content += chunk
	c.refresh()
}

// Complete finalises the bot entry id with its full content.
func (c *Chat) Complete(id, content string, interrupted bool) {
	e := Entry{ID: id, Kind: EntryBot, Content: content, Interrupted: interrupted}
	if i := c.index(id); i >= 0 && interrupted {
		// An interrupted stream keeps what was shown.
		e.Content = c.entries[i].Content
	}
	c.Add(e)
}

// Remove deletes the entry id.
func (c *Chat) Remove(id string) {
	if i := c.index(id); i >= 0 {
		c.entries = append(c.entries[:i], c.entries[i+1:]...)
		c.refresh()
	}
}

// Clear empties the transcript.
func (c *Chat) Clear() {
	c.entries = nil
	c.autoScroll = true
	c.refresh()
}

func (c *Chat) index(id string) int {
	for i := len(c.entries) - 1; i >= 0; i-- {
		if c.entries[i].ID == id {
			return i
		}
	}
	return -1
}

// Update handles paging and mouse wheel scrolling.
func (c *Chat) Update(msg tea.Msg) (*Chat, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "pgup":
			c.viewport.PageUp()
		case "pgdown":
			c.viewport.PageDown()
		}
		c.autoScroll = c.viewport.AtBottom()
		return c, nil
	case tea.MouseMsg:
		var cmd tea.Cmd
		c.viewport, cmd = c.viewport.Update(msg)
		c.autoScroll = c.viewport.AtBottom()
		return c, cmd
	}
	return c, nil
}

func (c *Chat) refresh() {
	c.viewport.SetContent(c.render())
	if c.autoScroll {
		c.viewport.GotoBottom()
	}
}

func (c *Chat) render() string {
	width := c.width - 2
	if width < 20 {
		width = 20
	}
	blocks := make([]string, 0, len(c.entries))
	for _, e := range c.entries {
		blocks = append(blocks, c.renderEntry(e, width))
	}
	return strings.Join(blocks, "\n\n")
}

func (c *Chat) renderEntry(e Entry, width int) string {
	switch e.Kind {
	case EntryUser:
		return UserStyle.Render("You") + "\n" + lipgloss.NewStyle().Width(width).Render(e.Content)
	case EntrySystem:
		return SystemStyle.Width(width).Render(e.Content)
	case EntryError:
		return ErrorStyle.Width(width).Render(e.Content)
	}

	var body string
	if e.Streaming {
		// Raw text while streaming; markdown may be incomplete.
		body = lipgloss.NewStyle().Width(width).Render(e.Content) + CaretStyle.Render("▍")
	} else {
		body = RenderMarkdown(e.Content, width)
	}
	out := BotStyle.Render("FakeGPT") + "\n" + body
	if e.Interrupted {
		out += "\n" + InterruptedStyle.Render("(interrupted)")
	}
	return out
}

// View renders the transcript.
func (c *Chat) View() string {
	return c.viewport.View()
}
