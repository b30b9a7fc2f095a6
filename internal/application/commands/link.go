package commands

import (
	"context"
	"fmt"
	"strings"
	"time"

	"canvaslink/internal/application"
	"canvaslink/internal/ports"
)

// LinkResult contains the result of linking canvases
type LinkResult struct {
	GroupID string
	Added   []string
	Created bool // a new group was formed
	Message string
}

// LinkCommand puts existing canvases into one linkage group. If exactly
// one of them is already linked, the others join that group.
type LinkCommand struct {
	registry ports.GroupRegistry
	store    ports.DocumentStore
	now      func() time.Time
	Paths    []string
}

// NewLinkCommand creates a new LinkCommand
func NewLinkCommand(registry ports.GroupRegistry, store ports.DocumentStore, paths []string) *LinkCommand {
	return &LinkCommand{
		registry: registry,
		store:    store,
		now:      time.Now,
		Paths:    paths,
	}
}

// Validate checks if the link operation is valid
func (c *LinkCommand) Validate() error {
	if len(c.Paths) < 2 {
		return &application.ValidationError{
			Field:   "paths",
			Message: "at least two canvases are required",
		}
	}

	seen := make(map[string]bool, len(c.Paths))
	cleaned := make([]string, 0, len(c.Paths))
	for _, p := range c.Paths {
		cp, err := application.ValidateCanvasPath("path", p)
		if err != nil {
			return err
		}
		if seen[cp] {
			return &application.GroupConflictError{Path: cp, Reason: "listed twice"}
		}
		seen[cp] = true
		cleaned = append(cleaned, cp)
	}
	c.Paths = cleaned
	return nil
}

// Execute runs the link command
func (c *LinkCommand) Execute(ctx context.Context) (*LinkResult, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	for _, p := range c.Paths {
		if info, ok := c.store.Resolve(ctx, p); !ok || !info.IsFile {
			return nil, &application.DocumentError{Op: "link", Path: p, Kind: application.ErrNotFound}
		}
	}

	// Find the one existing group, if any
	groupID := ""
	var unlinked []string
	for _, p := range c.Paths {
		g, ok := c.registry.FindGroupContaining(p)
		if !ok {
			unlinked = append(unlinked, p)
			continue
		}
		if groupID != "" && g.ID != groupID {
			return nil, &application.GroupConflictError{Path: p, GroupID: g.ID, Reason: "already linked to a different group"}
		}
		groupID = g.ID
	}

	now := c.now()
	if groupID == "" {
		g, err := c.registry.CreateGroup(ctx, c.Paths, now)
		if err != nil {
			return nil, fmt.Errorf("failed to link canvases: %w", err)
		}
		return &LinkResult{
			GroupID: g.ID,
			Added:   g.Members,
			Created: true,
			Message: fmt.Sprintf("Linked %s", strings.Join(g.Members, ", ")),
		}, nil
	}

	for _, p := range unlinked {
		if err := c.registry.AddMember(ctx, groupID, p, now); err != nil {
			return nil, fmt.Errorf("failed to add %s to group: %w", p, err)
		}
	}

	msg := "All canvases are already linked"
	if len(unlinked) > 0 {
		msg = fmt.Sprintf("Added %s to group %s", strings.Join(unlinked, ", "), groupID)
	}
	return &LinkResult{
		GroupID: groupID,
		Added:   unlinked,
		Message: msg,
	}, nil
}
