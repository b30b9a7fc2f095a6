package commands

import (
	"context"
	"errors"
	"testing"

	"canvaslink/internal/application"
)

func TestDeriveCommand_Validate(t *testing.T) {
	tests := []struct {
		name       string
		sourcePath string
		open       bool
		opener     *fakeOpener
		wantErr    bool
		errMsg     string
	}{
		{
			name:       "valid canvas",
			sourcePath: "boards/Plan.canvas",
		},
		{
			name:       "empty path",
			sourcePath: "",
			wantErr:    true,
			errMsg:     "source path is required",
		},
		{
			name:       "markdown file",
			sourcePath: "Plan.md",
			wantErr:    true,
			errMsg:     "expected a .canvas file",
		},
		{
			name:       "outside the vault",
			sourcePath: "../Plan.canvas",
			wantErr:    true,
			errMsg:     "must be inside the vault",
		},
		{
			name:       "open without opener",
			sourcePath: "Plan.canvas",
			open:       true,
			wantErr:    true,
			errMsg:     "no Obsidian opener",
		},
		{
			name:       "open with opener",
			sourcePath: "Plan.canvas",
			open:       true,
			opener:     &fakeOpener{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := &DeriveCommand{SourcePath: tt.sourcePath, Open: tt.open}
			if tt.opener != nil {
				cmd.opener = tt.opener
			}
			err := cmd.Validate()

			if tt.wantErr {
				if err == nil {
					t.Errorf("expected error containing %q, got nil", tt.errMsg)
					return
				}
				if !contains(err.Error(), tt.errMsg) {
					t.Errorf("expected error containing %q, got %q", tt.errMsg, err.Error())
				}
			} else if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestDeriveCommand_Execute(t *testing.T) {
	engine := &fakeEngine{deriveTo: "boards/PlanC1.canvas"}
	opener := &fakeOpener{}

	cmd := NewDeriveCommand(engine, opener, `boards\Plan.canvas`, true)
	result, err := cmd.Execute(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(engine.derived) != 1 || engine.derived[0] != "boards/Plan.canvas" {
		t.Errorf("expected derive of cleaned path, got %v", engine.derived)
	}
	if result.NewPath != "boards/PlanC1.canvas" {
		t.Errorf("NewPath = %q", result.NewPath)
	}
	if !result.Opened || len(opener.opened) != 1 || opener.opened[0] != "boards/PlanC1.canvas" {
		t.Errorf("expected new version to be opened, got %v", opener.opened)
	}
}

func TestDeriveCommand_ExecuteWrapsEngineError(t *testing.T) {
	engine := &fakeEngine{deriveErr: &application.DocumentError{Op: "derive", Path: "A.canvas", Kind: application.ErrNotFound}}

	_, err := NewDeriveCommand(engine, nil, "A.canvas", false).Execute(context.Background())
	if !errors.Is(err, application.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestDeriveCommand_OpenFailureKeepsResult(t *testing.T) {
	engine := &fakeEngine{deriveTo: "AC1.canvas"}

	result, err := NewDeriveCommand(engine, &fakeOpener{err: errBoom}, "A.canvas", true).Execute(context.Background())
	if !errors.Is(err, errBoom) {
		t.Fatalf("expected opener error, got %v", err)
	}
	if result == nil || result.NewPath != "AC1.canvas" || result.Opened {
		t.Errorf("expected derivation result without open, got %+v", result)
	}
}
