package commands

import (
	"context"
	"fmt"

	"canvaslink/internal/application"
	"canvaslink/internal/ports"
)

// UnlinkResult contains the result of an unlink operation
type UnlinkResult struct {
	GroupID string
	Members []string
	Message string
}

// UnlinkGroupCommand removes a linkage group. The documents stay on disk.
type UnlinkGroupCommand struct {
	registry ports.GroupRegistry
	GroupID  string
}

// NewUnlinkGroupCommand creates a new UnlinkGroupCommand
func NewUnlinkGroupCommand(registry ports.GroupRegistry, groupID string) *UnlinkGroupCommand {
	return &UnlinkGroupCommand{
		registry: registry,
		GroupID:  groupID,
	}
}

// Validate checks if the unlink operation is valid
func (c *UnlinkGroupCommand) Validate() error {
	return application.ValidateRequired("groupID", c.GroupID)
}

// Execute runs the unlink group command
func (c *UnlinkGroupCommand) Execute(ctx context.Context) (*UnlinkResult, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	g, ok := c.registry.Get(c.GroupID)
	if !ok {
		return nil, fmt.Errorf("group %s: %w", c.GroupID, application.ErrNotFound)
	}

	if err := c.registry.RemoveGroup(ctx, c.GroupID); err != nil {
		return nil, fmt.Errorf("failed to unlink group %s: %w", c.GroupID, err)
	}

	return &UnlinkResult{
		GroupID: g.ID,
		Members: g.Members,
		Message: fmt.Sprintf("Unlinked %d canvases", len(g.Members)),
	}, nil
}

// UnlinkDocumentCommand removes one canvas from its group
type UnlinkDocumentCommand struct {
	registry ports.GroupRegistry
	Path     string
}

// NewUnlinkDocumentCommand creates a new UnlinkDocumentCommand
func NewUnlinkDocumentCommand(registry ports.GroupRegistry, path string) *UnlinkDocumentCommand {
	return &UnlinkDocumentCommand{
		registry: registry,
		Path:     path,
	}
}

// Validate checks if the unlink operation is valid
func (c *UnlinkDocumentCommand) Validate() error {
	cleaned, err := application.ValidateCanvasPath("path", c.Path)
	if err != nil {
		return err
	}
	c.Path = cleaned
	return nil
}

// Execute runs the unlink document command
func (c *UnlinkDocumentCommand) Execute(ctx context.Context) (*UnlinkResult, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	g, ok := c.registry.FindGroupContaining(c.Path)
	if !ok {
		return nil, fmt.Errorf("%s is not linked: %w", c.Path, application.ErrNotFound)
	}

	if err := c.registry.RemoveMember(ctx, c.Path); err != nil {
		return nil, fmt.Errorf("failed to unlink %s: %w", c.Path, err)
	}

	return &UnlinkResult{
		GroupID: g.ID,
		Members: g.Others(c.Path),
		Message: fmt.Sprintf("Unlinked %s", c.Path),
	}, nil
}

// ResetGroupsResult contains the result of a reset
type ResetGroupsResult struct {
	Removed int
	Message string
}

// ResetGroupsCommand drops every linkage group
type ResetGroupsCommand struct {
	registry ports.GroupRegistry
}

// NewResetGroupsCommand creates a new ResetGroupsCommand
func NewResetGroupsCommand(registry ports.GroupRegistry) *ResetGroupsCommand {
	return &ResetGroupsCommand{registry: registry}
}

// Execute runs the reset command
func (c *ResetGroupsCommand) Execute(ctx context.Context) (*ResetGroupsResult, error) {
	n := len(c.registry.All())
	if err := c.registry.ReplaceAll(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to reset groups: %w", err)
	}
	return &ResetGroupsResult{
		Removed: n,
		Message: fmt.Sprintf("Removed %d groups", n),
	}, nil
}
