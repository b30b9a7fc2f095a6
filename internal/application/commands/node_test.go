package commands

import (
	"context"
	"errors"
	"testing"
	"time"

	"canvaslink/internal/application"
	"canvaslink/internal/application/registry"
	"canvaslink/internal/domain"
)

func TestEditNodeCommand_Validate(t *testing.T) {
	tests := []struct {
		name    string
		op      domain.Operation
		wantErr bool
		errMsg  string
	}{
		{
			name: "valid delete",
			op:   domain.DeleteNode("A.canvas", "n1"),
		},
		{
			name:    "missing node id",
			op:      domain.UpdateNodeText("A.canvas", "", "x"),
			wantErr: true,
			errMsg:  "node ID is required",
		},
		{
			name:    "source is not a canvas",
			op:      domain.DeleteNode("A.json", "n1"),
			wantErr: true,
			errMsg:  "expected a .canvas file",
		},
		{
			name:    "create without node",
			op:      domain.Operation{Kind: domain.OpCreateNode, Source: "A.canvas", NodeID: "n1"},
			wantErr: true,
			errMsg:  "node is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := &EditNodeCommand{Op: tt.op}
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

func TestCreateNodeCommand_EditsSourceAndSubmits(t *testing.T) {
	ctx := context.Background()
	store := &fakeStore{files: map[string]string{"A.canvas": `{"nodes":[],"edges":[]}`}}
	engine := &fakeEngine{}
	reg := registry.New(nil)
	if _, err := reg.CreateGroup(ctx, []string{"A.canvas", "AC1.canvas"}, time.Now()); err != nil {
		t.Fatalf("setup failed: %v", err)
	}

	node := domain.NewTextNode("n1", "idea", 0, 0, 250, 60)
	result, err := NewCreateNodeCommand(store, engine, reg, "A.canvas", node).Execute(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.SourceChanged || !result.Linked {
		t.Errorf("unexpected result %+v", result)
	}

	c, err := domain.ParseCanvas([]byte(store.files["A.canvas"]))
	if err != nil {
		t.Fatalf("source no longer parses: %v", err)
	}
	if _, ok := c.Node("n1"); !ok {
		t.Error("node was not written to the source")
	}
	if len(engine.submitted) != 1 || engine.submitted[0].Kind != domain.OpCreateNode {
		t.Errorf("expected one create submitted, got %v", engine.submitted)
	}
}

func TestSetNodeTextCommand_MissingNode(t *testing.T) {
	store := &fakeStore{files: map[string]string{"A.canvas": `{"nodes":[]}`}}
	engine := &fakeEngine{}

	_, err := NewSetNodeTextCommand(store, engine, registry.New(nil), "A.canvas", "ghost", "x").Execute(context.Background())
	if !errors.Is(err, application.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if len(engine.submitted) != 0 {
		t.Error("nothing should be submitted")
	}
}

func TestDeleteNodeCommand_UnparseableSource(t *testing.T) {
	store := &fakeStore{files: map[string]string{"A.canvas": `{"nodes":`}}

	_, err := NewDeleteNodeCommand(store, &fakeEngine{}, registry.New(nil), "A.canvas", "n1").Execute(context.Background())
	if !errors.Is(err, application.ErrParseFailure) {
		t.Errorf("expected ErrParseFailure, got %v", err)
	}
}

func TestNodeSpec_Build(t *testing.T) {
	tests := []struct {
		name     string
		spec     NodeSpec
		wantType domain.NodeType
		wantErr  bool
		check    func(t *testing.T, n *domain.Node)
	}{
		{
			name:     "text with defaults",
			spec:     NodeSpec{ID: "n1", Content: "hello"},
			wantType: domain.NodeTypeText,
			check: func(t *testing.T, n *domain.Node) {
				if text, _ := n.Text(); text != "hello" {
					t.Errorf("text = %q", text)
				}
				_, _, w, h := n.Geometry()
				if w != DefaultNodeWidth || h != DefaultNodeHeight {
					t.Errorf("size = %vx%v", w, h)
				}
			},
		},
		{
			name:     "file",
			spec:     NodeSpec{ID: "n2", Type: domain.NodeTypeFile, Content: "notes/a.md", Width: 400, Height: 300},
			wantType: domain.NodeTypeFile,
			check: func(t *testing.T, n *domain.Node) {
				if n.File() != "notes/a.md" {
					t.Errorf("file = %q", n.File())
				}
			},
		},
		{
			name:     "link",
			spec:     NodeSpec{ID: "n3", Type: domain.NodeTypeLink, Content: "https://obsidian.md"},
			wantType: domain.NodeTypeLink,
		},
		{
			name:     "group label",
			spec:     NodeSpec{ID: "n4", Type: domain.NodeTypeGroup, Content: "Ideas"},
			wantType: domain.NodeTypeGroup,
			check: func(t *testing.T, n *domain.Node) {
				if raw, ok := n.Raw("label"); !ok || string(raw) != `"Ideas"` {
					t.Errorf("label = %s", raw)
				}
			},
		},
		{
			name:    "file without path",
			spec:    NodeSpec{Type: domain.NodeTypeFile},
			wantErr: true,
		},
		{
			name:    "unknown type",
			spec:    NodeSpec{Type: "sticker"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n, err := tt.spec.Build()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Build() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if n.Type() != tt.wantType {
				t.Errorf("type = %q, want %q", n.Type(), tt.wantType)
			}
			if tt.spec.ID != "" && n.ID() != tt.spec.ID {
				t.Errorf("id = %q", n.ID())
			}
			if tt.check != nil {
				tt.check(t, n)
			}
		})
	}
}

func TestNodeSpec_GeneratesID(t *testing.T) {
	a, _ := NodeSpec{Content: "x"}.Build()
	b, _ := NodeSpec{Content: "x"}.Build()
	if len(a.ID()) != 16 || a.ID() == b.ID() {
		t.Errorf("ids %q and %q", a.ID(), b.ID())
	}
}
