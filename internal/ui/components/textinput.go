package components

import (
	"strings"

	"charm.land/bubbles/v2/textinput"
	tea "charm.land/bubbletea/v2"
)

// TextInput is the single-line chat prompt.
type TextInput struct {
	Model    textinput.Model
	disabled bool
}

// NewTextInput returns a focused input. charLimit 0 means unlimited.
func NewTextInput(placeholder string, charLimit int) TextInput {
	ti := textinput.New()
	ti.Placeholder = placeholder
	ti.Prompt = "> "
	if charLimit > 0 {
		ti.CharLimit = charLimit
	}
	ti.Focus()
	return TextInput{Model: ti}
}

func (t TextInput) Init() tea.Cmd {
	return t.Model.Focus()
}

// Update forwards msg to the underlying input unless it is disabled, e.g.
// while a reply is pending.
func (t TextInput) Update(msg tea.Msg) (TextInput, tea.Cmd) {
	if t.disabled {
		return t, nil
	}
	var cmd tea.Cmd
	t.Model, cmd = t.Model.Update(msg)
	return t, cmd
}

func (t TextInput) View() string {
	return t.Model.View()
}

// Value returns the trimmed input text.
func (t TextInput) Value() string {
	return strings.TrimSpace(t.Model.Value())
}

// Take returns the trimmed text and clears the input.
func (t *TextInput) Take() string {
	v := t.Value()
	t.Model.Reset()
	return v
}

// SetDisabled stops or resumes accepting keystrokes.
func (t *TextInput) SetDisabled(disabled bool) {
	t.disabled = disabled
}
