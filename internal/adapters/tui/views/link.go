package views

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"canvaslink/internal/adapters/tui/styles"
	"canvaslink/internal/application/commands"
	"canvaslink/internal/ports"
)

// LinkKeyMap defines key bindings for the link view
type LinkKeyMap struct {
	Submit key.Binding
	Cancel key.Binding
}

var LinkKeys = LinkKeyMap{
	Submit: key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("enter", "link"),
	),
	Cancel: key.NewBinding(
		key.WithKeys("esc"),
		key.WithHelp("esc", "cancel"),
	),
}

// LinkModel asks for a canvas path and links it with the anchor canvas
type LinkModel struct {
	ViewState
	registry ports.GroupRegistry
	store    ports.DocumentStore
	anchor   string
	input    textinput.Model
}

// NewLinkModel creates a new link view model
func NewLinkModel(registry ports.GroupRegistry, store ports.DocumentStore) *LinkModel {
	input := textinput.New()
	input.Placeholder = "boards/Other.canvas"
	input.CharLimit = 512

	return &LinkModel{
		registry: registry,
		store:    store,
		input:    input,
	}
}

// SetAnchor resets the form for linking a canvas with anchor
func (m *LinkModel) SetAnchor(anchor string) {
	m.anchor = anchor
	m.input.SetValue("")
	m.input.Focus()
	m.ClearMessage()
}

// Init initializes the link view
func (m *LinkModel) Init() tea.Cmd {
	return textinput.Blink
}

// Update handles messages for the link view
func (m *LinkModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.SetSize(msg.Width, msg.Height)
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, LinkKeys.Cancel):
			return m, func() tea.Msg { return SwitchToGroupsMsg{} }

		case key.Matches(msg, LinkKeys.Submit):
			path := strings.TrimSpace(m.input.Value())
			if path == "" {
				m.SetMessage("Enter a canvas path", true)
				return m, nil
			}
			return m, m.doLink(path)
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *LinkModel) doLink(path string) tea.Cmd {
	anchor := m.anchor
	return func() tea.Msg {
		res, err := commands.NewLinkCommand(m.registry, m.store, []string{anchor, path}).Execute(context.Background())
		if err != nil {
			return ResultMsg{Err: err}
		}
		return ResultMsg{Message: res.Message}
	}
}

// View renders the link view
func (m *LinkModel) View() string {
	v := NewViewBuilder().
		Title("Link Canvas").
		Subtitle("Edits to either canvas will be replayed on the other")

	v.Line(styles.InputLabel.Render("Link with"))
	v.Line("  " + m.anchor)
	v.BlankLine()
	v.Line(styles.InputLabel.Render("Canvas path"))
	v.Line(styles.InputFocused.Render(m.input.View()))
	v.BlankLine()
	v.Message(m.Message, m.MessageErr)
	v.Help(LinkKeys.Submit, LinkKeys.Cancel)

	return v.String()
}
