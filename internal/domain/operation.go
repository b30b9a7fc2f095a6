package domain

import (
	"fmt"

	"github.com/google/uuid"
)

// OperationKind identifies the structural edit an Operation carries
type OperationKind int

const (
	OpCreateNode OperationKind = iota + 1
	OpDeleteNode
	OpUpdateNodeText
)

func (k OperationKind) String() string {
	switch k {
	case OpCreateNode:
		return "create_node"
	case OpDeleteNode:
		return "delete_node"
	case OpUpdateNodeText:
		return "update_node_text"
	default:
		return "unknown"
	}
}

// Operation is a single structural edit observed on Source. It is consumed
// once by the propagation pipeline and never persisted.
type Operation struct {
	ID     string
	Kind   OperationKind
	Source string // document the edit was observed on
	NodeID string
	Node   *Node  // set for OpCreateNode
	Text   string // set for OpUpdateNodeText
}

// CreateNode builds an operation that inserts or overwrites node
func CreateNode(source string, node *Node) Operation {
	return Operation{
		ID:     uuid.NewString(),
		Kind:   OpCreateNode,
		Source: source,
		NodeID: node.ID(),
		Node:   node.Clone(),
	}
}

// DeleteNode builds an operation that removes a node and its edges
func DeleteNode(source, nodeID string) Operation {
	return Operation{
		ID:     uuid.NewString(),
		Kind:   OpDeleteNode,
		Source: source,
		NodeID: nodeID,
	}
}

// UpdateNodeText builds an operation that replaces a node's text payload
func UpdateNodeText(source, nodeID, text string) Operation {
	return Operation{
		ID:     uuid.NewString(),
		Kind:   OpUpdateNodeText,
		Source: source,
		NodeID: nodeID,
		Text:   text,
	}
}

func (op Operation) String() string {
	return fmt.Sprintf("%s(%s) from %s", op.Kind, op.NodeID, op.Source)
}

// Validate checks that the operation carries what its kind needs
func (op Operation) Validate() error {
	if op.Source == "" {
		return fmt.Errorf("operation %s: source is required", op.Kind)
	}
	if op.NodeID == "" {
		return fmt.Errorf("operation %s: node id is required", op.Kind)
	}
	switch op.Kind {
	case OpCreateNode:
		if op.Node == nil {
			return fmt.Errorf("operation %s: node is required", op.Kind)
		}
		if op.Node.ID() != op.NodeID {
			return fmt.Errorf("operation %s: node id mismatch %q != %q", op.Kind, op.Node.ID(), op.NodeID)
		}
	case OpDeleteNode, OpUpdateNodeText:
	default:
		return fmt.Errorf("unknown operation kind %d", op.Kind)
	}
	return nil
}

// Apply performs the edit on c and reports whether c changed.
// UpdateNodeText on a missing node is a no-op: the target may lag behind.
func (op Operation) Apply(c *Canvas) bool {
	switch op.Kind {
	case OpCreateNode:
		if existing, ok := c.Node(op.NodeID); ok && existing.Equal(op.Node) {
			return false
		}
		c.PutNode(op.Node)
		return true

	case OpDeleteNode:
		removedNode := c.RemoveNode(op.NodeID)
		removedEdges := c.RemoveEdgesTouching(op.NodeID)
		return removedNode || removedEdges > 0

	case OpUpdateNodeText:
		node, ok := c.Node(op.NodeID)
		if !ok {
			return false
		}
		if text, has := node.Text(); has && text == op.Text {
			return false
		}
		node.SetText(op.Text)
		return true
	}
	return false
}
