package domain

// Diff derives the structural operations that turn before into after, as
// observed on document source. Deletions come first, then creations and
// text changes in after's node order. Moves, resizes and edge edits are not
// propagated.
func Diff(source string, before, after *Canvas) []Operation {
	var ops []Operation

	for _, n := range before.Nodes() {
		if _, ok := after.Node(n.ID()); !ok {
			ops = append(ops, DeleteNode(source, n.ID()))
		}
	}

	for _, n := range after.Nodes() {
		prev, ok := before.Node(n.ID())
		if !ok {
			ops = append(ops, CreateNode(source, n))
			continue
		}
		text, hasText := n.Text()
		prevText, prevHasText := prev.Text()
		if hasText && (!prevHasText || text != prevText) {
			ops = append(ops, UpdateNodeText(source, n.ID(), text))
		}
	}

	return ops
}
