package views

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"canvaslink/internal/adapters/filesystem"
)

func newPickerVault(t *testing.T, names ...string) *filesystem.Repository {
	t.Helper()
	vault := t.TempDir()
	for _, name := range names {
		path := filepath.Join(vault, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(`{"nodes":[],"edges":[]}`), 0644); err != nil {
			t.Fatal(err)
		}
	}
	return filesystem.NewRepository(vault)
}

func loadedPicker(t *testing.T, m *PickerModel) {
	t.Helper()
	if m.Reset() == nil {
		t.Fatal("Reset should return a command")
	}
	m.Update(m.load())
}

func TestPickerModel_ListsUnlinkedCanvases(t *testing.T) {
	repo := newPickerVault(t, "Map.canvas", "MapC1.canvas", "Plan.canvas", "boards/Sketch.canvas", "notes.md")
	reg := newTestRegistry(t, []string{"Map.canvas", "MapC1.canvas"})
	m := NewPickerModel(repo, reg, &stubEngine{}, nil)
	loadedPicker(t, m)

	want := []string{"Plan.canvas", "boards/Sketch.canvas"}
	if strings.Join(m.matches, ",") != strings.Join(want, ",") {
		t.Fatalf("matches = %v, want %v", m.matches, want)
	}
	view := m.View()
	if strings.Contains(view, "MapC1.canvas") {
		t.Error("grouped canvases should not be offered")
	}
	if !strings.Contains(view, "boards/Sketch.canvas") {
		t.Error("view does not list boards/Sketch.canvas")
	}
}

func TestPickerModel_FilterAndDerive(t *testing.T) {
	repo := newPickerVault(t, "Plan.canvas", "boards/Sketch.canvas", "boards/Storyboard.canvas")
	engine := &stubEngine{}
	m := NewPickerModel(repo, newTestRegistry(t), engine, nil)
	loadedPicker(t, m)

	m.Update(keyPress("boards"))
	if len(m.matches) != 2 {
		t.Fatalf("matches = %v", m.matches)
	}
	m.Update(tea.KeyMsg{Type: tea.KeyDown})
	m.Update(tea.KeyMsg{Type: tea.KeyDown})
	if m.cursor != 1 {
		t.Fatalf("cursor = %d, want it clamped to 1", m.cursor)
	}

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if cmd == nil {
		t.Fatal("expected a command")
	}
	if !strings.Contains(m.View(), "Creating linked version of boards/Storyboard.canvas") {
		t.Error("expected a progress message")
	}
	if _, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEsc}); cmd != nil {
		t.Error("keys are ignored while a derive is running")
	}

	res, ok := cmd().(ResultMsg)
	if !ok || res.Err != nil {
		t.Fatalf("got %#v", res)
	}
	if len(engine.derived) != 1 || engine.derived[0] != "boards/Storyboard.canvas" {
		t.Errorf("derived = %v", engine.derived)
	}
}

func TestPickerModel_EmptyAndCancel(t *testing.T) {
	repo := newPickerVault(t, "Map.canvas", "MapC1.canvas")
	m := NewPickerModel(repo, newTestRegistry(t, []string{"Map.canvas", "MapC1.canvas"}), &stubEngine{}, nil)
	loadedPicker(t, m)

	if !strings.Contains(m.View(), "already linked") {
		t.Error("expected the empty state")
	}
	if _, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter}); cmd != nil {
		t.Error("enter without a canvas should do nothing")
	}

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	if _, ok := cmd().(SwitchToGroupsMsg); !ok {
		t.Error("esc should return to the group list")
	}
}

func TestPickerModel_NoStore(t *testing.T) {
	m := NewPickerModel(nil, newTestRegistry(t), &stubEngine{}, nil)
	loadedPicker(t, m)

	if !m.MessageErr {
		t.Errorf("Message = %q, want an error", m.Message)
	}
}

func TestGroupsModel_NewGroupFromEmptyList(t *testing.T) {
	m := loadedGroupsModel(t, newTestRegistry(t), &stubEngine{})

	if !strings.Contains(m.View(), "Press N") {
		t.Error("empty state should point at the picker")
	}
	_, cmd := m.Update(keyPress("N"))
	if cmd == nil {
		t.Fatal("expected a command")
	}
	if _, ok := cmd().(SwitchToPickerMsg); !ok {
		t.Error("N should open the picker")
	}
}
