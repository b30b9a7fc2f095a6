package commands

import (
	"context"
	"encoding/json"
	"fmt"

	"canvaslink/internal/application"
	"canvaslink/internal/domain"
	"canvaslink/internal/ports"
)

// EditNodeResult contains the result of a node edit
type EditNodeResult struct {
	Operation     domain.Operation
	SourceChanged bool
	Linked        bool // the source belongs to a group, so the edit propagates
	Message       string
}

// EditNodeCommand applies a structural edit to a canvas and hands it to
// the sync engine for propagation to the rest of the group
type EditNodeCommand struct {
	store    ports.DocumentStore
	engine   ports.SyncEngine
	registry ports.GroupRegistry
	Op       domain.Operation
}

// NewEditNodeCommand creates a new EditNodeCommand
func NewEditNodeCommand(store ports.DocumentStore, engine ports.SyncEngine, registry ports.GroupRegistry, op domain.Operation) *EditNodeCommand {
	return &EditNodeCommand{
		store:    store,
		engine:   engine,
		registry: registry,
		Op:       op,
	}
}

// NewCreateNodeCommand creates an EditNodeCommand that inserts node into source
func NewCreateNodeCommand(store ports.DocumentStore, engine ports.SyncEngine, registry ports.GroupRegistry, source string, node *domain.Node) *EditNodeCommand {
	return NewEditNodeCommand(store, engine, registry, domain.CreateNode(source, node))
}

// NewDeleteNodeCommand creates an EditNodeCommand that removes a node from source
func NewDeleteNodeCommand(store ports.DocumentStore, engine ports.SyncEngine, registry ports.GroupRegistry, source, nodeID string) *EditNodeCommand {
	return NewEditNodeCommand(store, engine, registry, domain.DeleteNode(source, nodeID))
}

// NewSetNodeTextCommand creates an EditNodeCommand that replaces a node's text
func NewSetNodeTextCommand(store ports.DocumentStore, engine ports.SyncEngine, registry ports.GroupRegistry, source, nodeID, text string) *EditNodeCommand {
	return NewEditNodeCommand(store, engine, registry, domain.UpdateNodeText(source, nodeID, text))
}

// Validate checks if the edit is valid
func (c *EditNodeCommand) Validate() error {
	source, err := application.ValidateCanvasPath("sourcePath", c.Op.Source)
	if err != nil {
		return err
	}
	c.Op.Source = source

	if err := application.ValidateRequired("nodeID", c.Op.NodeID); err != nil {
		return err
	}

	if err := c.Op.Validate(); err != nil {
		return &application.ValidationError{
			Field:   "operation",
			Message: err.Error(),
		}
	}
	return nil
}

// Execute runs the edit command
func (c *EditNodeCommand) Execute(ctx context.Context) (*EditNodeResult, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	content, err := c.store.Read(ctx, c.Op.Source)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", c.Op.Source, err)
	}
	canvas, err := domain.ParseCanvas(content)
	if err != nil {
		return nil, &application.DocumentError{Op: "parse", Path: c.Op.Source, Kind: application.ErrParseFailure, Err: err}
	}

	if c.Op.Kind == domain.OpUpdateNodeText {
		if _, ok := canvas.Node(c.Op.NodeID); !ok {
			return nil, fmt.Errorf("node %s in %s: %w", c.Op.NodeID, c.Op.Source, application.ErrNotFound)
		}
	}

	changed := c.Op.Apply(canvas)
	if changed {
		out, err := canvas.Marshal()
		if err != nil {
			return nil, fmt.Errorf("failed to encode %s: %w", c.Op.Source, err)
		}
		if err := c.store.Modify(ctx, c.Op.Source, out); err != nil {
			return nil, fmt.Errorf("failed to write %s: %w", c.Op.Source, err)
		}
	}

	if err := c.engine.Submit(c.Op); err != nil {
		return nil, fmt.Errorf("failed to submit %s: %w", c.Op, err)
	}

	_, linked := c.registry.FindGroupContaining(c.Op.Source)
	msg := fmt.Sprintf("Applied %s to %s", c.Op.Kind, c.Op.Source)
	if linked {
		msg += ", propagating to linked canvases"
	}

	return &EditNodeResult{
		Operation:     c.Op,
		SourceChanged: changed,
		Linked:        linked,
		Message:       msg,
	}, nil
}

// Default size of created nodes, matching Obsidian's text cards
const (
	DefaultNodeWidth  = 250
	DefaultNodeHeight = 60
)

// NodeSpec describes a node to create
type NodeSpec struct {
	ID      string // generated when empty
	Type    domain.NodeType
	Content string // text, file path, url or group label depending on Type
	X, Y    int
	Width   int
	Height  int
}

// Build creates the node
func (s NodeSpec) Build() (*domain.Node, error) {
	id := s.ID
	if id == "" {
		id = domain.NewNodeID()
	}
	w, h := s.Width, s.Height
	if w <= 0 {
		w = DefaultNodeWidth
	}
	if h <= 0 {
		h = DefaultNodeHeight
	}

	switch s.Type {
	case domain.NodeTypeText, "":
		return domain.NewTextNode(id, s.Content, s.X, s.Y, w, h), nil
	case domain.NodeTypeFile:
		if err := application.ValidateRequired("file", s.Content); err != nil {
			return nil, err
		}
		return domain.NewFileNode(id, s.Content, s.X, s.Y, w, h), nil
	case domain.NodeTypeLink:
		if err := application.ValidateRequired("url", s.Content); err != nil {
			return nil, err
		}
		return domain.NewLinkNode(id, s.Content, s.X, s.Y, w, h), nil
	case domain.NodeTypeGroup:
		n := domain.NewNode(id, domain.NodeTypeGroup, s.X, s.Y, w, h)
		if s.Content != "" {
			label, err := json.Marshal(s.Content)
			if err != nil {
				return nil, err
			}
			n.SetRaw("label", label)
		}
		return n, nil
	default:
		return nil, &application.ValidationError{
			Field:   "type",
			Message: fmt.Sprintf("unknown node type %q (expected text, file, link or group)", s.Type),
		}
	}
}
