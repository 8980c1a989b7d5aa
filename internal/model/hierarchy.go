package model

import "fmt"

// RequirementHierarchy is an ordered list of root requirements plus
// free-form metadata (e.g. source document names, decomposition run id).
type RequirementHierarchy struct {
	Roots    []*RequirementNode     `json:"roots"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// NewRequirementHierarchy returns an empty hierarchy.
func NewRequirementHierarchy() *RequirementHierarchy {
	return &RequirementHierarchy{Metadata: map[string]interface{}{}}
}

// AddRoot appends root to the hierarchy's top level. root must be of type
// parent and must not collide with an existing ID.
func (h *RequirementHierarchy) AddRoot(root *RequirementNode) error {
	if root == nil {
		return fmt.Errorf("model: cannot add nil root")
	}
	if _, ok := h.FindByID(root.ID); ok {
		return fmt.Errorf("model: duplicate requirement id %q", root.ID)
	}
	h.Roots = append(h.Roots, root)
	return nil
}

// AddChildByID finds the node with id parentID (O(N)) and attaches child to
// it, enforcing MaxDepth via RequirementNode.AddChild.
func (h *RequirementHierarchy) AddChildByID(parentID string, child *RequirementNode) error {
	parent, ok := h.FindByID(parentID)
	if !ok {
		return fmt.Errorf("model: parent %q not found", parentID)
	}
	if _, exists := h.FindByID(child.ID); exists {
		return fmt.Errorf("model: duplicate requirement id %q", child.ID)
	}
	return parent.AddChild(child)
}

// FindByID performs an O(N) depth-first search for id across every root.
func (h *RequirementHierarchy) FindByID(id string) (*RequirementNode, bool) {
	for _, root := range h.Roots {
		if n, ok := findByIDRec(root, id); ok {
			return n, true
		}
	}
	return nil, false
}

func findByIDRec(n *RequirementNode, id string) (*RequirementNode, bool) {
	if n == nil {
		return nil, false
	}
	if n.ID == id {
		return n, true
	}
	for _, c := range n.Children {
		if found, ok := findByIDRec(c, id); ok {
			return found, true
		}
	}
	return nil, false
}

// Walk calls fn for every node in the hierarchy in depth-first, pre-order
// traversal order, passing the node's parent (nil for roots).
func (h *RequirementHierarchy) Walk(fn func(node, parent *RequirementNode)) {
	for _, root := range h.Roots {
		walkRec(root, nil, fn)
	}
}

func walkRec(n, parent *RequirementNode, fn func(node, parent *RequirementNode)) {
	if n == nil {
		return
	}
	fn(n, parent)
	for _, c := range n.Children {
		walkRec(c, n, fn)
	}
}

// Equal performs structural comparison of two hierarchies' roots (root
// order matters). Metadata is free-form and is not compared.
func (h *RequirementHierarchy) Equal(other *RequirementHierarchy) bool {
	if h == nil || other == nil {
		return h == other
	}
	if len(h.Roots) != len(other.Roots) {
		return false
	}
	for i := range h.Roots {
		if !h.Roots[i].Equal(other.Roots[i]) {
			return false
		}
	}
	return true
}

// Count returns the total number of nodes across the whole hierarchy.
func (h *RequirementHierarchy) Count() int {
	n := 0
	h.Walk(func(*RequirementNode, *RequirementNode) { n++ })
	return n
}

// PruneIDs removes every node whose ID is in ids, together with all of its
// descendants, wherever it occurs in the hierarchy (root or nested child).
// It returns the total number of nodes removed. Used by the structural
// validation step under --force-all to drop blocking nodes instead of
// failing the run (spec.md §4.5/§7).
func (h *RequirementHierarchy) PruneIDs(ids map[string]bool) int {
	survivors, pruned := pruneChildren(h.Roots, ids)
	h.Roots = survivors
	return pruned
}

func pruneChildren(nodes []*RequirementNode, ids map[string]bool) ([]*RequirementNode, int) {
	var kept []*RequirementNode
	pruned := 0
	for _, n := range nodes {
		if ids[n.ID] {
			pruned += 1 + countNodes(n.Children)
			continue
		}
		survivors, childPruned := pruneChildren(n.Children, ids)
		n.Children = survivors
		pruned += childPruned
		kept = append(kept, n)
	}
	return kept, pruned
}

func countNodes(nodes []*RequirementNode) int {
	n := 0
	for _, node := range nodes {
		n++
		n += countNodes(node.Children)
	}
	return n
}
