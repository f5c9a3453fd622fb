package components

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Reply is a quick reply button as shown in the bar.
type Reply struct {
	ID      string
	Label   string
	Variant string
}

// Replies is a horizontal bar of quick reply buttons with a cursor.
type Replies struct {
	items  []Reply
	cursor int
	width  int
}

// NewReplies creates an empty reply bar.
func NewReplies() *Replies {
	return &Replies{}
}

// Set replaces the offered replies and resets the cursor.
func (r *Replies) Set(items []Reply) {
	r.items = items
	r.cursor = 0
}

// Clear hides the bar.
func (r *Replies) Clear() {
	r.items = nil
	r.cursor = 0
}

// Visible reports whether any reply is offered.
func (r *Replies) Visible() bool {
	return len(r.items) > 0
}

// Items returns the offered replies.
func (r *Replies) Items() []Reply {
	return r.items
}

// Next moves the cursor right, wrapping around.
func (r *Replies) Next() {
	if len(r.items) > 0 {
		r.cursor = (r.cursor + 1) % len(r.items)
	}
}

// Prev moves the cursor left, wrapping around.
func (r *Replies) Prev() {
	if len(r.items) > 0 {
		r.cursor = (r.cursor - 1 + len(r.items)) % len(r.items)
	}
}

// Selected returns the reply under the cursor.
func (r *Replies) Selected() (Reply, bool) {
	if len(r.items) == 0 {
		return Reply{}, false
	}
	return r.items[r.cursor], true
}

// SetWidth sets the wrap width.
func (r *Replies) SetWidth(width int) {
	r.width = width
}

// Height is the number of terminal lines View occupies.
func (r *Replies) Height() int {
	if !r.Visible() {
		return 0
	}
	return lipgloss.Height(r.View())
}

// View renders the buttons, wrapping onto new rows when needed.
func (r *Replies) View() string {
	if !r.Visible() {
		return ""
	}
	var rows []string
	var row []string
	rowWidth := 0
	for i, item := range r.items {
		style := ReplyStyle
		switch {
		case i == r.cursor:
			style = ReplySelectedStyle
		case item.Variant == "primary":
			style = ReplyPrimaryStyle
		}
		button := style.Render(item.Label)
		w := lipgloss.Width(button)
		if r.width > 0 && rowWidth > 0 && rowWidth+w+1 > r.width {
			rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, row...))
			row, rowWidth = nil, 0
		}
		if rowWidth > 0 {
			row = append(row, " ")
			rowWidth++
		}
		row = append(row, button)
		rowWidth += w
	}
	rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, row...))
	rows = append(rows, ReplyHintStyle.Render(strings.Join([]string{"tab/←→ move", "enter select"}, " · ")))
	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}
