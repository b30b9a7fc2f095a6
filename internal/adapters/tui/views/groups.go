package views

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"canvaslink/internal/adapters/tui/styles"
	"canvaslink/internal/application/commands"
	"canvaslink/internal/domain"
	"canvaslink/internal/ports"
)

// GroupsKeyMap defines key bindings for the group list
type GroupsKeyMap struct {
	Up       key.Binding
	Down     key.Binding
	PrevPage key.Binding
	NextPage key.Binding
	Derive   key.Binding
	NewGroup key.Binding
	Link     key.Binding
	Remove   key.Binding
	Unlink   key.Binding
	Reset    key.Binding
	Open     key.Binding
	Edit     key.Binding
	Copy     key.Binding
	Reload   key.Binding
	Help     key.Binding
	Quit     key.Binding
}

var GroupsKeys = GroupsKeyMap{
	Up: key.NewBinding(
		key.WithKeys("k", "up"),
		key.WithHelp("k/↑", "up"),
	),
	Down: key.NewBinding(
		key.WithKeys("j", "down"),
		key.WithHelp("j/↓", "down"),
	),
	PrevPage: key.NewBinding(
		key.WithKeys("h", "left", "pgup"),
		key.WithHelp("h/←", "prev page"),
	),
	NextPage: key.NewBinding(
		key.WithKeys("l", "right", "pgdown"),
		key.WithHelp("l/→", "next page"),
	),
	Derive: key.NewBinding(
		key.WithKeys("n"),
		key.WithHelp("n", "new version"),
	),
	NewGroup: key.NewBinding(
		key.WithKeys("N"),
		key.WithHelp("N", "new group"),
	),
	Link: key.NewBinding(
		key.WithKeys("a"),
		key.WithHelp("a", "link"),
	),
	Remove: key.NewBinding(
		key.WithKeys("x"),
		key.WithHelp("x", "remove"),
	),
	Unlink: key.NewBinding(
		key.WithKeys("d"),
		key.WithHelp("d", "unlink group"),
	),
	Reset: key.NewBinding(
		key.WithKeys("R"),
		key.WithHelp("R", "reset"),
	),
	Open: key.NewBinding(
		key.WithKeys("o"),
		key.WithHelp("o", "open"),
	),
	Edit: key.NewBinding(
		key.WithKeys("e"),
		key.WithHelp("e", "edit json"),
	),
	Copy: key.NewBinding(
		key.WithKeys("y"),
		key.WithHelp("y", "copy path"),
	),
	Reload: key.NewBinding(
		key.WithKeys("r"),
		key.WithHelp("r", "reload"),
	),
	Help: key.NewBinding(
		key.WithKeys("?"),
		key.WithHelp("?", "help"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
}

// groupRow is one member line of the list
type groupRow struct {
	group int // index into GroupsModel.groups
	path  string
}

type groupsLoadedMsg struct {
	groups []domain.LinkageGroup
}

// GroupsModel lists linkage groups and the canvases in each
type GroupsModel struct {
	ViewState
	registry ports.GroupRegistry
	engine   ports.SyncEngine
	opener   ports.ObsidianOpener
	copy     func(string) error
	now      func() time.Time

	groups []domain.LinkageGroup
	rows   []groupRow
	pager  *Paginator
	loaded bool

	spinner spinner.Model
	busy    string // action in flight, shown next to the spinner
}

// NewGroupsModel creates the group list. opener may be nil.
func NewGroupsModel(registry ports.GroupRegistry, engine ports.SyncEngine, opener ports.ObsidianOpener) *GroupsModel {
	return &GroupsModel{
		registry: registry,
		engine:   engine,
		opener:   opener,
		copy:     clipboard.WriteAll,
		now:      time.Now,
		pager:    NewPaginator(12),
		spinner:  spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(styles.HelpKey)),
	}
}

// Init loads the groups
func (m *GroupsModel) Init() tea.Cmd {
	return m.load
}

// Reload reloads the groups from the registry
func (m *GroupsModel) Reload() tea.Cmd {
	return m.load
}

func (m *GroupsModel) load() tea.Msg {
	groups, err := commands.NewListGroupsCommand(m.registry).Execute(context.Background())
	if err != nil {
		return ResultMsg{Err: err}
	}
	return groupsLoadedMsg{groups: groups}
}

// Update handles messages for the group list
func (m *GroupsModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.SetSize(msg.Width, msg.Height)
		// title, status and help take about ten lines
		m.pager.SetPageSize(max(msg.Height-10, 3))
		return m, nil

	case groupsLoadedMsg:
		m.setGroups(msg.groups)
		return m, nil

	case spinner.TickMsg:
		if m.busy == "" {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case ResultMsg:
		m.busy = ""
		if msg.Err != nil {
			m.SetMessage(msg.Err.Error(), true)
			return m, nil
		}
		m.SetMessage(msg.Message, false)
		return m, m.Reload()

	case NoticeMsg:
		m.SetMessage(msg.Notice.Message, msg.Notice.Level == ports.NoticeError)
		return m, m.Reload()

	case tea.KeyMsg:
		if m.busy != "" && !key.Matches(msg, GroupsKeys.Quit) {
			return m, nil
		}
		m.ClearMessage()
		return m, m.handleKey(msg)
	}

	return m, nil
}

func (m *GroupsModel) handleKey(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, GroupsKeys.Quit):
		return tea.Quit

	case key.Matches(msg, GroupsKeys.Up):
		m.pager.CursorUp()
	case key.Matches(msg, GroupsKeys.Down):
		m.pager.CursorDown()
	case key.Matches(msg, GroupsKeys.PrevPage):
		m.pager.PrevPage()
	case key.Matches(msg, GroupsKeys.NextPage):
		m.pager.NextPage()

	case key.Matches(msg, GroupsKeys.Reload):
		return m.Reload()

	case key.Matches(msg, GroupsKeys.Help):
		return func() tea.Msg { return SwitchToHelpMsg{} }

	case key.Matches(msg, GroupsKeys.NewGroup):
		return func() tea.Msg { return SwitchToPickerMsg{} }

	case key.Matches(msg, GroupsKeys.Reset):
		if len(m.groups) == 0 {
			m.SetMessage("No linkage groups", false)
			return nil
		}
		return func() tea.Msg { return SwitchToConfirmMsg{} }
	}

	row, ok := m.selected()
	if !ok {
		return nil
	}
	group := m.groups[row.group]

	switch {
	case key.Matches(msg, GroupsKeys.Unlink):
		return func() tea.Msg { return SwitchToConfirmMsg{Group: &group} }

	case key.Matches(msg, GroupsKeys.Link):
		return func() tea.Msg { return SwitchToLinkMsg{Anchor: row.path} }

	case key.Matches(msg, GroupsKeys.Remove):
		return m.removeMember(row.path)

	case key.Matches(msg, GroupsKeys.Derive):
		m.busy = "Creating linked version of " + row.path
		return tea.Batch(m.spinner.Tick, m.derive(row.path))

	case key.Matches(msg, GroupsKeys.Open):
		if m.opener == nil {
			m.SetMessage("Opening in Obsidian is not available", true)
			return nil
		}
		return m.open(row.path)

	case key.Matches(msg, GroupsKeys.Edit):
		return func() tea.Msg { return OpenEditorMsg{Path: row.path} }

	case key.Matches(msg, GroupsKeys.Copy):
		if err := m.copy(row.path); err != nil {
			m.SetMessage(fmt.Sprintf("Failed to copy: %v", err), true)
			return nil
		}
		m.SetMessage("Copied "+row.path, false)
	}
	return nil
}

func (m *GroupsModel) derive(path string) tea.Cmd {
	return func() tea.Msg {
		res, err := commands.NewDeriveCommand(m.engine, m.opener, path, false).Execute(context.Background())
		if err != nil {
			return ResultMsg{Err: err}
		}
		return ResultMsg{Message: res.Message}
	}
}

func (m *GroupsModel) removeMember(path string) tea.Cmd {
	return func() tea.Msg {
		res, err := commands.NewUnlinkDocumentCommand(m.registry, path).Execute(context.Background())
		if err != nil {
			return ResultMsg{Err: err}
		}
		return ResultMsg{Message: res.Message}
	}
}

func (m *GroupsModel) open(path string) tea.Cmd {
	return func() tea.Msg {
		if err := m.opener.OpenFile(path); err != nil {
			return ResultMsg{Err: err}
		}
		return nil
	}
}

func (m *GroupsModel) setGroups(groups []domain.LinkageGroup) {
	m.groups = groups
	m.rows = m.rows[:0]
	for i, g := range groups {
		for _, p := range g.Members {
			m.rows = append(m.rows, groupRow{group: i, path: p})
		}
	}
	m.pager.SetTotal(len(m.rows))
	m.loaded = true
}

func (m *GroupsModel) selected() (groupRow, bool) {
	c := m.pager.Cursor()
	if c < 0 || c >= len(m.rows) {
		return groupRow{}, false
	}
	return m.rows[c], true
}

// View renders the group list
func (m *GroupsModel) View() string {
	if !m.loaded {
		return "Loading..."
	}

	v := NewViewBuilder().
		Title("canvaslink").
		Subtitle("Linkage groups")

	if len(m.rows) == 0 {
		v.Muted("No linked canvases yet.")
		v.Muted("Press N to pick a canvas and create its first linked version.")
	}

	start, end := m.pager.VisibleRange()
	for i := start; i < end; i++ {
		row := m.rows[i]
		g := m.groups[row.group]
		if i == start || m.rows[i-1].group != row.group {
			v.Line(m.renderHeader(row.group, g))
		}
		last := i+1 >= len(m.rows) || m.rows[i+1].group != row.group
		v.Line(m.renderMember(row.path, last, i == m.pager.Cursor()))
	}

	status := fmt.Sprintf("%d groups, %d canvases", len(m.groups), len(m.rows))
	if ind := m.pager.Indicator(); ind != "" {
		status += "  " + ind
	}
	v.Line(styles.StatusBar.Render(status))
	v.BlankLine()
	if m.busy != "" {
		v.Line(m.spinner.View() + " " + styles.MutedText.Render(m.busy))
		v.BlankLine()
	}
	v.Message(m.Message, m.MessageErr)
	v.Help(GroupsKeys.Derive, GroupsKeys.NewGroup, GroupsKeys.Link, GroupsKeys.Unlink, GroupsKeys.Open, GroupsKeys.Copy, GroupsKeys.Help, GroupsKeys.Quit)

	return v.String()
}

func (m *GroupsModel) renderHeader(index int, g domain.LinkageGroup) string {
	return fmt.Sprintf("%s %s",
		styles.GroupHeader.Render(fmt.Sprintf("Group %d", index+1)),
		styles.GroupMeta.Render(fmt.Sprintf("(%d canvases, %s)", len(g.Members), RenderSince(g.LastSyncedAt, m.now()))),
	)
}

func (m *GroupsModel) renderMember(path string, last, selected bool) string {
	branch := styles.MemberMid
	if last {
		branch = styles.MemberLast
	}
	text := styles.Member.Render(path)
	if selected {
		text = styles.MemberSelected.Render(path)
	}
	return strings.Join([]string{"  ", styles.MemberBranch.Render(branch), text}, "")
}
