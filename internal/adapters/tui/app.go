// Package tui is the interactive settings view: it lists linkage groups and
// lets the user derive, link and unlink canvases.
package tui

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"canvaslink/internal/adapters/editor"
	"canvaslink/internal/adapters/tui/views"
	"canvaslink/internal/ports"
)

// ViewState represents the current view
type ViewState int

const (
	ViewGroups ViewState = iota
	ViewConfirm
	ViewLink
	ViewPicker
	ViewHelp
)

// Deps are the services the views act on. Opener and Editor may be nil.
type Deps struct {
	Registry ports.GroupRegistry
	Engine   ports.SyncEngine
	Store    ports.DocumentStore
	Opener   ports.ObsidianOpener

	Editor *editor.Opener
	// AbsPath maps a vault-relative path to the file the editor opens
	AbsPath func(rel string) (string, error)
}

// App is the main TUI application model
type App struct {
	editor  *editor.Opener
	absPath func(string) (string, error)

	state   ViewState
	groups  *views.GroupsModel
	confirm *views.UnlinkModel
	link    *views.LinkModel
	picker  *views.PickerModel
	help    *views.HelpModel

	width  int
	height int
}

// NewApp creates a new TUI application
func NewApp(deps Deps) *App {
	return &App{
		editor:  deps.Editor,
		absPath: deps.AbsPath,
		state:   ViewGroups,
		groups:  views.NewGroupsModel(deps.Registry, deps.Engine, deps.Opener),
		confirm: views.NewUnlinkModel(deps.Registry),
		link:    views.NewLinkModel(deps.Registry, deps.Store),
		picker:  views.NewPickerModel(deps.Store, deps.Registry, deps.Engine, deps.Opener),
		help:    views.NewHelpModel(),
	}
}

// Init initializes the application
func (a *App) Init() tea.Cmd {
	return a.groups.Init()
}

// State returns the view currently shown
func (a *App) State() ViewState {
	return a.state
}

// Update handles messages for the application
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.confirm.SetSize(msg.Width, msg.Height)
		a.link.SetSize(msg.Width, msg.Height)
		a.picker.SetSize(msg.Width, msg.Height)
		a.help.SetSize(msg.Width, msg.Height)
		_, cmd := a.groups.Update(msg)
		return a, cmd

	// View switching messages
	case views.SwitchToConfirmMsg:
		a.state = ViewConfirm
		a.confirm.SetTarget(msg.Group)
		return a, a.confirm.Init()

	case views.SwitchToLinkMsg:
		a.state = ViewLink
		a.link.SetAnchor(msg.Anchor)
		return a, a.link.Init()

	case views.SwitchToPickerMsg:
		a.state = ViewPicker
		return a, a.picker.Reset()

	case views.SwitchToHelpMsg:
		a.state = ViewHelp
		return a, nil

	case views.SwitchToGroupsMsg:
		a.state = ViewGroups
		return a, a.groups.Reload()

	case views.ResultMsg:
		if msg.Err != nil && a.state == ViewLink {
			a.link.SetMessage(msg.Err.Error(), true)
			return a, nil
		}
		if msg.Err != nil && a.state == ViewPicker {
			a.picker.SetMessage(msg.Err.Error(), true)
			return a, nil
		}
		a.state = ViewGroups
		_, cmd := a.groups.Update(msg)
		return a, cmd

	case views.OpenEditorMsg:
		return a, a.openEditor(msg.Path)

	case editorFinishedMsg:
		if msg.err != nil {
			return a, func() tea.Msg { return views.ResultMsg{Err: msg.err} }
		}
		return a, a.groups.Reload()

	case views.NoticeMsg:
		// Notices always land on the group list, whatever is shown
		_, cmd := a.groups.Update(msg)
		return a, cmd
	}

	// Delegate to current view
	var cmd tea.Cmd
	switch a.state {
	case ViewGroups:
		_, cmd = a.groups.Update(msg)
	case ViewConfirm:
		_, cmd = a.confirm.Update(msg)
	case ViewLink:
		_, cmd = a.link.Update(msg)
	case ViewPicker:
		_, cmd = a.picker.Update(msg)
	case ViewHelp:
		_, cmd = a.help.Update(msg)
	}

	return a, cmd
}

type editorFinishedMsg struct{ err error }

func (a *App) openEditor(relPath string) tea.Cmd {
	fail := func(err error) tea.Cmd {
		return func() tea.Msg { return editorFinishedMsg{err: err} }
	}
	if a.editor == nil || a.absPath == nil {
		return fail(fmt.Errorf("editing is not available"))
	}

	path, err := a.absPath(relPath)
	if err != nil {
		return fail(err)
	}
	cmd, err := a.editor.Command(path)
	if err != nil {
		return fail(err)
	}

	return tea.ExecProcess(cmd, func(err error) tea.Msg {
		return editorFinishedMsg{err: err}
	})
}

// View renders the current view
func (a *App) View() string {
	switch a.state {
	case ViewConfirm:
		return a.confirm.View()
	case ViewLink:
		return a.link.View()
	case ViewPicker:
		return a.picker.View()
	case ViewHelp:
		return a.help.View()
	default:
		return a.groups.View()
	}
}
