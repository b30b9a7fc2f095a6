package commands

import (
	"context"
	"fmt"

	"canvaslink/internal/application"
	"canvaslink/internal/domain"
	"canvaslink/internal/ports"
)

// ListGroupsCommand lists all linkage groups
type ListGroupsCommand struct {
	registry ports.GroupRegistry
}

// NewListGroupsCommand creates a new ListGroupsCommand
func NewListGroupsCommand(registry ports.GroupRegistry) *ListGroupsCommand {
	return &ListGroupsCommand{registry: registry}
}

// Execute runs the list groups command
func (c *ListGroupsCommand) Execute(ctx context.Context) ([]domain.LinkageGroup, error) {
	return c.registry.All(), nil
}

// FindGroupCommand looks up the group a canvas belongs to
type FindGroupCommand struct {
	registry ports.GroupRegistry
	Path     string
}

// NewFindGroupCommand creates a new FindGroupCommand
func NewFindGroupCommand(registry ports.GroupRegistry, path string) *FindGroupCommand {
	return &FindGroupCommand{
		registry: registry,
		Path:     path,
	}
}

// Execute runs the find group command
func (c *FindGroupCommand) Execute(ctx context.Context) (*domain.LinkageGroup, error) {
	cleaned, err := application.ValidateCanvasPath("path", c.Path)
	if err != nil {
		return nil, err
	}

	g, ok := c.registry.FindGroupContaining(cleaned)
	if !ok {
		return nil, fmt.Errorf("%s is not linked: %w", cleaned, application.ErrNotFound)
	}
	return &g, nil
}
