package commands

import (
	"context"
	"fmt"

	"canvaslink/internal/application"
	"canvaslink/internal/ports"
)

// DeriveResult contains the result of a derivation
type DeriveResult struct {
	SourcePath string
	NewPath    string
	Opened     bool
	Message    string
}

// DeriveCommand creates the next linked version of a canvas
type DeriveCommand struct {
	engine     ports.SyncEngine
	opener     ports.ObsidianOpener
	SourcePath string
	Open       bool // open the new version in Obsidian afterwards
}

// NewDeriveCommand creates a new DeriveCommand. opener may be nil when
// Open is never set.
func NewDeriveCommand(engine ports.SyncEngine, opener ports.ObsidianOpener, sourcePath string, open bool) *DeriveCommand {
	return &DeriveCommand{
		engine:     engine,
		opener:     opener,
		SourcePath: sourcePath,
		Open:       open,
	}
}

// Validate checks if the derivation request is valid
func (c *DeriveCommand) Validate() error {
	cleaned, err := application.ValidateCanvasPath("sourcePath", c.SourcePath)
	if err != nil {
		return err
	}
	c.SourcePath = cleaned

	if c.Open && c.opener == nil {
		return &application.ValidationError{
			Field:   "open",
			Message: "no Obsidian opener configured",
		}
	}
	return nil
}

// Execute runs the derive command
func (c *DeriveCommand) Execute(ctx context.Context) (*DeriveResult, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	newPath, err := c.engine.Derive(ctx, c.SourcePath)
	if err != nil {
		return nil, fmt.Errorf("failed to derive %s: %w", c.SourcePath, err)
	}

	result := &DeriveResult{
		SourcePath: c.SourcePath,
		NewPath:    newPath,
		Message:    fmt.Sprintf("Created linked version %s from %s", newPath, c.SourcePath),
	}

	if c.Open {
		if err := c.opener.OpenFile(newPath); err != nil {
			return result, fmt.Errorf("created %s but failed to open it: %w", newPath, err)
		}
		result.Opened = true
	}

	return result, nil
}
