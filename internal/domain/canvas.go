package domain

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// CanvasExt is the file suffix of canvas documents
const CanvasExt = ".canvas"

// ErrMalformedCanvas is returned when content is not a well-formed canvas
var ErrMalformedCanvas = errors.New("malformed canvas")

// NodeType is the type tag of a canvas node
type NodeType string

const (
	NodeTypeText  NodeType = "text"
	NodeTypeFile  NodeType = "file"
	NodeTypeLink  NodeType = "link"
	NodeTypeGroup NodeType = "group"
)

// fields holds a JSON object with its key order and raw values intact.
type fields = orderedmap.OrderedMap[string, json.RawMessage]

// Node is a single canvas node. Only the keys that are explicitly set are
// re-encoded; everything else is written back exactly as it was read.
type Node struct {
	fields *fields
}

// NewNode creates a node with the mandatory JSON Canvas keys
func NewNode(id string, typ NodeType, x, y, width, height int) *Node {
	n := &Node{fields: orderedmap.New[string, json.RawMessage]()}
	n.set("id", id)
	n.set("type", string(typ))
	n.set("x", x)
	n.set("y", y)
	n.set("width", width)
	n.set("height", height)
	return n
}

// NewTextNode creates a text node
func NewTextNode(id, text string, x, y, width, height int) *Node {
	n := NewNode(id, NodeTypeText, x, y, width, height)
	n.SetText(text)
	return n
}

// NewFileNode creates a node embedding a vault file
func NewFileNode(id, file string, x, y, width, height int) *Node {
	n := NewNode(id, NodeTypeFile, x, y, width, height)
	n.set("file", file)
	return n
}

// NewLinkNode creates a node pointing at a url
func NewLinkNode(id, url string, x, y, width, height int) *Node {
	n := NewNode(id, NodeTypeLink, x, y, width, height)
	n.set("url", url)
	return n
}

// NewNodeID returns a random 16 hex digit id, the shape Obsidian uses
func NewNodeID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:16]
}

// ID returns the node id
func (n *Node) ID() string {
	return n.str("id")
}

// Type returns the node type tag
func (n *Node) Type() NodeType {
	return NodeType(n.str("type"))
}

// Text returns the text payload and whether the node has one
func (n *Node) Text() (string, bool) {
	if _, ok := n.fields.Get("text"); !ok {
		return "", false
	}
	return n.str("text"), true
}

// SetText replaces the text payload
func (n *Node) SetText(text string) {
	n.set("text", text)
}

// File returns the file reference of a file node
func (n *Node) File() string {
	return n.str("file")
}

// URL returns the url of a link node
func (n *Node) URL() string {
	return n.str("url")
}

// Geometry returns position and size
func (n *Node) Geometry() (x, y, width, height float64) {
	return n.num("x"), n.num("y"), n.num("width"), n.num("height")
}

// Raw returns the raw value of an arbitrary key
func (n *Node) Raw(key string) (json.RawMessage, bool) {
	return n.fields.Get(key)
}

// SetRaw sets an arbitrary key to an already-encoded JSON value
func (n *Node) SetRaw(key string, value json.RawMessage) {
	n.fields.Set(key, value)
}

// Clone returns a deep copy
func (n *Node) Clone() *Node {
	return &Node{fields: cloneFields(n.fields)}
}

// Equal reports whether two nodes encode to the same JSON
func (n *Node) Equal(other *Node) bool {
	a, errA := n.MarshalJSON()
	b, errB := other.MarshalJSON()
	return errA == nil && errB == nil && bytes.Equal(a, b)
}

// MarshalJSON implements json.Marshaler
func (n *Node) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	writeFields(&buf, n.fields)
	return buf.Bytes(), nil
}

// UnmarshalJSON implements json.Unmarshaler
func (n *Node) UnmarshalJSON(data []byte) error {
	f, err := decodeFields(data)
	if err != nil {
		return err
	}
	n.fields = f
	return nil
}

func (n *Node) str(key string) string {
	raw, ok := n.fields.Get(key)
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return s
}

func (n *Node) num(key string) float64 {
	raw, ok := n.fields.Get(key)
	if !ok {
		return 0
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err != nil {
		return 0
	}
	return f
}

func (n *Node) set(key string, v any) {
	raw, err := encodeValue(v)
	if err != nil {
		return
	}
	n.fields.Set(key, raw)
}

// Edge is a canvas edge. Only fromNode/toNode are interpreted.
type Edge struct {
	fields *fields
}

// NewEdge creates an edge between two nodes
func NewEdge(id, fromNode, toNode string) *Edge {
	e := &Edge{fields: orderedmap.New[string, json.RawMessage]()}
	for _, kv := range [][2]string{{"id", id}, {"fromNode", fromNode}, {"toNode", toNode}} {
		raw, _ := encodeValue(kv[1])
		e.fields.Set(kv[0], raw)
	}
	return e
}

// ID returns the edge id
func (e *Edge) ID() string { return rawString(e.fields, "id") }

// FromNode returns the source node id
func (e *Edge) FromNode() string { return rawString(e.fields, "fromNode") }

// ToNode returns the destination node id
func (e *Edge) ToNode() string { return rawString(e.fields, "toNode") }

// Touches reports whether either endpoint is nodeID
func (e *Edge) Touches(nodeID string) bool {
	return e.FromNode() == nodeID || e.ToNode() == nodeID
}

// MarshalJSON implements json.Marshaler
func (e *Edge) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	writeFields(&buf, e.fields)
	return buf.Bytes(), nil
}

// Canvas is an in-memory canvas document: nodes keyed by id in document
// order, plus the edge list. Top-level keys other than nodes and edges are
// preserved.
type Canvas struct {
	top        *fields
	nodes      *orderedmap.OrderedMap[string, *Node]
	edges      []*Edge
	nodesKeyed bool // nodes stored as an id->node object instead of an array
}

// NewCanvas returns an empty canvas
func NewCanvas() *Canvas {
	return &Canvas{
		top:   orderedmap.New[string, json.RawMessage](),
		nodes: orderedmap.New[string, *Node](),
	}
}

// ParseCanvas decodes canvas content. Empty content is an empty canvas.
func ParseCanvas(data []byte) (*Canvas, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return NewCanvas(), nil
	}
	if err := ValidateCanvas(data); err != nil {
		return nil, err
	}

	top, err := decodeFields(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedCanvas, err)
	}

	c := &Canvas{top: top, nodes: orderedmap.New[string, *Node]()}

	if raw, ok := top.Get("nodes"); ok {
		if err := c.decodeNodes(raw); err != nil {
			return nil, err
		}
	}

	if raw, ok := top.Get("edges"); ok {
		var list []json.RawMessage
		if err := json.Unmarshal(raw, &list); err != nil {
			return nil, fmt.Errorf("%w: edges: %v", ErrMalformedCanvas, err)
		}
		for _, item := range list {
			f, err := decodeFields(item)
			if err != nil {
				return nil, fmt.Errorf("%w: edge: %v", ErrMalformedCanvas, err)
			}
			c.edges = append(c.edges, &Edge{fields: f})
		}
	}

	return c, nil
}

func (c *Canvas) decodeNodes(raw json.RawMessage) error {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		c.nodesKeyed = true
		keyed, err := decodeFields(trimmed)
		if err != nil {
			return fmt.Errorf("%w: nodes: %v", ErrMalformedCanvas, err)
		}
		for pair := keyed.Oldest(); pair != nil; pair = pair.Next() {
			node := &Node{}
			if err := node.UnmarshalJSON(pair.Value); err != nil {
				return fmt.Errorf("%w: node %s: %v", ErrMalformedCanvas, pair.Key, err)
			}
			c.nodes.Set(pair.Key, node)
		}
		return nil
	}

	var list []json.RawMessage
	if err := json.Unmarshal(trimmed, &list); err != nil {
		return fmt.Errorf("%w: nodes: %v", ErrMalformedCanvas, err)
	}
	for _, item := range list {
		node := &Node{}
		if err := node.UnmarshalJSON(item); err != nil {
			return fmt.Errorf("%w: node: %v", ErrMalformedCanvas, err)
		}
		id := node.ID()
		if _, dup := c.nodes.Get(id); dup {
			return fmt.Errorf("%w: duplicate node id %q", ErrMalformedCanvas, id)
		}
		c.nodes.Set(id, node)
	}
	return nil
}

// Node returns the node with the given id
func (c *Canvas) Node(id string) (*Node, bool) {
	return c.nodes.Get(id)
}

// Nodes returns the nodes in document order
func (c *Canvas) Nodes() []*Node {
	out := make([]*Node, 0, c.nodes.Len())
	for pair := c.nodes.Oldest(); pair != nil; pair = pair.Next() {
		out = append(out, pair.Value)
	}
	return out
}

// NodeCount returns the number of nodes
func (c *Canvas) NodeCount() int {
	return c.nodes.Len()
}

// PutNode inserts a copy of n, replacing any node with the same id in place
func (c *Canvas) PutNode(n *Node) {
	c.nodes.Set(n.ID(), n.Clone())
}

// RemoveNode deletes a node; it reports whether the node existed
func (c *Canvas) RemoveNode(id string) bool {
	_, ok := c.nodes.Delete(id)
	return ok
}

// Edges returns the edges in document order
func (c *Canvas) Edges() []*Edge {
	return append([]*Edge(nil), c.edges...)
}

// AddEdge appends an edge
func (c *Canvas) AddEdge(e *Edge) {
	c.edges = append(c.edges, e)
}

// RemoveEdgesTouching drops every edge whose fromNode or toNode is nodeID
// and returns how many were removed
func (c *Canvas) RemoveEdgesTouching(nodeID string) int {
	kept := c.edges[:0]
	removed := 0
	for _, e := range c.edges {
		if e.Touches(nodeID) {
			removed++
			continue
		}
		kept = append(kept, e)
	}
	c.edges = kept
	return removed
}

// Marshal encodes the canvas tab-indented, the way Obsidian writes it
func (c *Canvas) Marshal() ([]byte, error) {
	var nodes bytes.Buffer
	if c.nodesKeyed {
		nodes.WriteByte('{')
		i := 0
		for pair := c.nodes.Oldest(); pair != nil; pair = pair.Next() {
			if i > 0 {
				nodes.WriteByte(',')
			}
			key, err := encodeValue(pair.Key)
			if err != nil {
				return nil, err
			}
			nodes.Write(key)
			nodes.WriteByte(':')
			writeFields(&nodes, pair.Value.fields)
			i++
		}
		nodes.WriteByte('}')
	} else {
		nodes.WriteByte('[')
		i := 0
		for pair := c.nodes.Oldest(); pair != nil; pair = pair.Next() {
			if i > 0 {
				nodes.WriteByte(',')
			}
			writeFields(&nodes, pair.Value.fields)
			i++
		}
		nodes.WriteByte(']')
	}

	var edges bytes.Buffer
	edges.WriteByte('[')
	for i, e := range c.edges {
		if i > 0 {
			edges.WriteByte(',')
		}
		writeFields(&edges, e.fields)
	}
	edges.WriteByte(']')

	top := cloneFields(c.top)
	top.Set("nodes", nodes.Bytes())
	top.Set("edges", edges.Bytes())

	var compact bytes.Buffer
	writeFields(&compact, top)

	var out bytes.Buffer
	if err := json.Indent(&out, compact.Bytes(), "", "\t"); err != nil {
		return nil, fmt.Errorf("encode canvas: %w", err)
	}
	return out.Bytes(), nil
}

// Clone returns a deep copy
func (c *Canvas) Clone() *Canvas {
	out := &Canvas{
		top:        cloneFields(c.top),
		nodes:      orderedmap.New[string, *Node](),
		nodesKeyed: c.nodesKeyed,
	}
	for pair := c.nodes.Oldest(); pair != nil; pair = pair.Next() {
		out.nodes.Set(pair.Key, pair.Value.Clone())
	}
	for _, e := range c.edges {
		out.edges = append(out.edges, &Edge{fields: cloneFields(e.fields)})
	}
	return out
}

func decodeFields(data []byte) (*fields, error) {
	f := orderedmap.New[string, json.RawMessage]()
	if err := f.UnmarshalJSON(data); err != nil {
		return nil, err
	}
	return f, nil
}

func cloneFields(src *fields) *fields {
	dst := orderedmap.New[string, json.RawMessage]()
	if src == nil {
		return dst
	}
	for pair := src.Oldest(); pair != nil; pair = pair.Next() {
		dst.Set(pair.Key, append(json.RawMessage(nil), pair.Value...))
	}
	return dst
}

// writeFields writes an object with raw values copied verbatim. The
// ordered map's own MarshalJSON re-encodes raw values with HTML escaping,
// which would rewrite untouched text.
func writeFields(buf *bytes.Buffer, f *fields) {
	buf.WriteByte('{')
	i := 0
	for pair := f.Oldest(); pair != nil; pair = pair.Next() {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, _ := encodeValue(pair.Key)
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(pair.Value)
		i++
	}
	buf.WriteByte('}')
}

func encodeValue(v any) (json.RawMessage, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

func rawString(f *fields, key string) string {
	raw, ok := f.Get(key)
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return s
}
