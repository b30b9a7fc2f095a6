package views

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"canvaslink/internal/adapters/tui/styles"
)

// HelpKeyMap defines key bindings for the help view
type HelpKeyMap struct {
	Close key.Binding
}

var HelpKeys = HelpKeyMap{
	Close: key.NewBinding(
		key.WithKeys("esc", "q", "?"),
		key.WithHelp("esc/q/?", "close"),
	),
}

// HelpModel is the model for the help view
type HelpModel struct {
	ViewState
}

// NewHelpModel creates a new help view model
func NewHelpModel() *HelpModel {
	return &HelpModel{}
}

// Init initializes the help view
func (m *HelpModel) Init() tea.Cmd {
	return nil
}

// Update handles messages for the help view
func (m *HelpModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.SetSize(msg.Width, msg.Height)
		return m, nil

	case tea.KeyMsg:
		if key.Matches(msg, HelpKeys.Close) {
			return m, func() tea.Msg {
				return SwitchToGroupsMsg{}
			}
		}
	}

	return m, nil
}

// View renders the help view
func (m *HelpModel) View() string {
	v := NewViewBuilder().
		Title("canvaslink Help").
		Subtitle("Linked canvas versions")

	v.Line(styles.InputLabel.Render("Navigation"))
	v.Raw(helpLine("j / k / ↑ / ↓", "Move between canvases"))
	v.Raw(helpLine("h / l / ← / →", "Previous / next page"))
	v.BlankLine()

	v.Line(styles.InputLabel.Render("Canvas"))
	v.Raw(helpLine("n", "Create the next linked version"))
	v.Raw(helpLine("a", "Link another canvas to this group"))
	v.Raw(helpLine("x", "Remove this canvas from its group"))
	v.Raw(helpLine("o", "Open in Obsidian"))
	v.Raw(helpLine("e", "Edit the canvas JSON in $EDITOR"))
	v.Raw(helpLine("y", "Copy path"))
	v.BlankLine()

	v.Line(styles.InputLabel.Render("Groups"))
	v.Raw(helpLine("N", "Pick a canvas to start a new group"))
	v.Raw(helpLine("d", "Unlink the selected group"))
	v.Raw(helpLine("R", "Reset: remove every group"))
	v.Raw(helpLine("r", "Reload"))
	v.BlankLine()

	v.Line(styles.InputLabel.Render("General"))
	v.Raw(helpLine("?", "Toggle help"))
	v.Raw(helpLine("q / Ctrl+C", "Quit"))
	v.BlankLine()

	v.Line(styles.InputLabel.Render("Versions"))
	v.Muted("  Map.canvas → MapC1.canvas → MapC2.canvas")
	v.Muted("  Node creation, deletion and text edits made on one")
	v.Muted("  member are replayed on every other member.")
	v.BlankLine()

	v.Raw(styles.HelpDesc.Render("Press "))
	v.Raw(styles.HelpKey.Render("esc"))
	v.Raw(styles.HelpDesc.Render(" or "))
	v.Raw(styles.HelpKey.Render("?"))
	v.Raw(styles.HelpDesc.Render(" to close"))

	return v.String()
}

func helpLine(key, desc string) string {
	return "  " + styles.HelpKey.Render(padRight(key, 20)) + styles.HelpDesc.Render(desc) + "\n"
}

func padRight(s string, length int) string {
	n := len([]rune(s))
	if n >= length {
		return s
	}
	return s + strings.Repeat(" ", length-n)
}
