package views

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"canvaslink/internal/adapters/tui/styles"
	"canvaslink/internal/application/commands"
	"canvaslink/internal/ports"
)

// UnlinkModel confirms unlinking one group, or resetting every group
type UnlinkModel struct {
	ConfirmationModel
	registry ports.GroupRegistry
}

// NewUnlinkModel creates a new unlink confirmation model
func NewUnlinkModel(registry ports.GroupRegistry) *UnlinkModel {
	return &UnlinkModel{
		ConfirmationModel: NewConfirmationModel(),
		registry:          registry,
	}
}

// Init initializes the unlink view
func (m *UnlinkModel) Init() tea.Cmd {
	return nil
}

// Update handles messages for the unlink view
func (m *UnlinkModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.SetSize(msg.Width, msg.Height)
		return m, nil

	case tea.KeyMsg:
		handled, cmd := m.HandleKeyMsg(msg,
			m.doUnlink,
			func() tea.Msg { return SwitchToGroupsMsg{} },
		)
		if handled {
			return m, cmd
		}
	}

	return m, nil
}

func (m *UnlinkModel) doUnlink() tea.Msg {
	ctx := context.Background()

	if m.Target == nil {
		res, err := commands.NewResetGroupsCommand(m.registry).Execute(ctx)
		if err != nil {
			return ResultMsg{Err: err}
		}
		return ResultMsg{Message: res.Message}
	}

	res, err := commands.NewUnlinkGroupCommand(m.registry, m.Target.ID).Execute(ctx)
	if err != nil {
		return ResultMsg{Err: err}
	}
	return ResultMsg{Message: res.Message}
}

// View renders the unlink confirmation view
func (m *UnlinkModel) View() string {
	v := NewViewBuilder()

	if m.Target == nil {
		v.Title("Reset Linkage Groups")
		v.Line(styles.WarningMsg.Render(fmt.Sprintf("All %d groups will be removed.", len(m.registry.All()))))
	} else {
		v.Title("Unlink Group")
		v.Line(RenderTargetInfo(m.Target, "Unlink"))
	}
	v.BlankLine()
	v.Muted("Canvases stay on disk; edits stop propagating between them.")
	v.BlankLine()
	v.Line(RenderConfirmPrompt("Are you sure?"))

	return v.String()
}
