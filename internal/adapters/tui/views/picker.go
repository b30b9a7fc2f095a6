package views

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"canvaslink/internal/adapters/tui/styles"
	"canvaslink/internal/application/commands"
	"canvaslink/internal/ports"
)

// PickerKeyMap defines key bindings for the canvas picker
type PickerKeyMap struct {
	Up     key.Binding
	Down   key.Binding
	Select key.Binding
	Cancel key.Binding
}

var PickerKeys = PickerKeyMap{
	Up: key.NewBinding(
		key.WithKeys("up", "ctrl+p"),
		key.WithHelp("↑", "up"),
	),
	Down: key.NewBinding(
		key.WithKeys("down", "ctrl+n"),
		key.WithHelp("↓", "down"),
	),
	Select: key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("enter", "new version"),
	),
	Cancel: key.NewBinding(
		key.WithKeys("esc"),
		key.WithHelp("esc", "cancel"),
	),
}

const pickerMaxRows = 10

type canvasesLoadedMsg struct {
	paths []string
	err   error
}

// PickerModel lists the canvases that are in no group so one can be picked
// to start a new group
type PickerModel struct {
	ViewState
	store    ports.DocumentStore
	registry ports.GroupRegistry
	engine   ports.SyncEngine
	opener   ports.ObsidianOpener

	input    textinput.Model
	canvases []string
	matches  []string
	cursor   int
	loaded   bool
	busy     bool
}

// NewPickerModel creates the canvas picker. opener may be nil.
func NewPickerModel(store ports.DocumentStore, registry ports.GroupRegistry, engine ports.SyncEngine, opener ports.ObsidianOpener) *PickerModel {
	input := textinput.New()
	input.Placeholder = "Filter..."
	input.CharLimit = 256

	return &PickerModel{
		store:    store,
		registry: registry,
		engine:   engine,
		opener:   opener,
		input:    input,
	}
}

// Reset clears the filter and lists the canvases again
func (m *PickerModel) Reset() tea.Cmd {
	m.input.SetValue("")
	m.input.Focus()
	m.canvases = nil
	m.matches = nil
	m.cursor = 0
	m.loaded = false
	m.busy = false
	m.ClearMessage()
	return tea.Batch(textinput.Blink, m.load)
}

// Init initializes the picker
func (m *PickerModel) Init() tea.Cmd {
	return m.Reset()
}

func (m *PickerModel) load() tea.Msg {
	if m.store == nil {
		return canvasesLoadedMsg{err: fmt.Errorf("listing canvases is not available")}
	}
	paths, err := m.store.List(context.Background())
	if err != nil {
		return canvasesLoadedMsg{err: err}
	}
	return canvasesLoadedMsg{paths: paths}
}

// Update handles messages for the picker
func (m *PickerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.SetSize(msg.Width, msg.Height)
		return m, nil

	case canvasesLoadedMsg:
		m.loaded = true
		if msg.err != nil {
			m.SetMessage(msg.err.Error(), true)
			return m, nil
		}
		m.setCanvases(msg.paths)
		return m, nil

	case tea.KeyMsg:
		if m.busy {
			return m, nil
		}
		switch {
		case key.Matches(msg, PickerKeys.Cancel):
			return m, func() tea.Msg { return SwitchToGroupsMsg{} }

		case key.Matches(msg, PickerKeys.Up):
			if m.cursor > 0 {
				m.cursor--
			}
			return m, nil

		case key.Matches(msg, PickerKeys.Down):
			if m.cursor < len(m.matches)-1 {
				m.cursor++
			}
			return m, nil

		case key.Matches(msg, PickerKeys.Select):
			if m.cursor < 0 || m.cursor >= len(m.matches) {
				return m, nil
			}
			path := m.matches[m.cursor]
			m.busy = true
			m.SetMessage("Creating linked version of "+path, false)
			return m, m.derive(path)
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	m.filter()
	return m, cmd
}

// SetMessage shows msg and, for errors, lets the user pick again
func (m *PickerModel) SetMessage(msg string, isErr bool) {
	if isErr {
		m.busy = false
	}
	m.ViewState.SetMessage(msg, isErr)
}

func (m *PickerModel) derive(path string) tea.Cmd {
	return func() tea.Msg {
		res, err := commands.NewDeriveCommand(m.engine, m.opener, path, false).Execute(context.Background())
		if err != nil {
			return ResultMsg{Err: err}
		}
		return ResultMsg{Message: res.Message}
	}
}

// setCanvases keeps the canvases that are in no group
func (m *PickerModel) setCanvases(paths []string) {
	m.canvases = m.canvases[:0]
	for _, p := range paths {
		if m.registry != nil {
			if _, ok := m.registry.FindGroupContaining(p); ok {
				continue
			}
		}
		m.canvases = append(m.canvases, p)
	}
	m.filter()
}

func (m *PickerModel) filter() {
	query := strings.ToLower(strings.TrimSpace(m.input.Value()))
	m.matches = m.matches[:0]
	for _, p := range m.canvases {
		if query == "" || strings.Contains(strings.ToLower(p), query) {
			m.matches = append(m.matches, p)
		}
	}
	if m.cursor >= len(m.matches) {
		m.cursor = max(len(m.matches)-1, 0)
	}
}

// View renders the picker
func (m *PickerModel) View() string {
	v := NewViewBuilder().
		Title("New Group").
		Subtitle("Pick a canvas to create its first linked version")

	v.Line(styles.InputFocused.Render(m.input.View()))
	v.BlankLine()

	switch {
	case !m.loaded:
		v.Muted("Loading...")
	case len(m.canvases) == 0:
		v.Muted("Every canvas in the vault is already linked.")
	case len(m.matches) == 0:
		v.Muted("No canvas matches the filter")
	default:
		// keep the cursor inside the window
		start := 0
		if m.cursor >= pickerMaxRows {
			start = m.cursor - pickerMaxRows + 1
		}
		end := min(start+pickerMaxRows, len(m.matches))
		for i := start; i < end; i++ {
			if i == m.cursor {
				v.Line(styles.MemberSelected.Render(m.matches[i]))
			} else {
				v.Line(styles.Member.Render(m.matches[i]))
			}
		}
		if rest := len(m.matches) - end; rest > 0 {
			v.Muted(fmt.Sprintf("... and %d more", rest))
		}
	}
	v.BlankLine()
	v.Message(m.Message, m.MessageErr)
	v.Help(PickerKeys.Up, PickerKeys.Down, PickerKeys.Select, PickerKeys.Cancel)

	return v.String()
}
