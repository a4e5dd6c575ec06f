package tree

import (
	"errors"
	"fmt"
)

var (
	ErrDuplicateID     = errors.New("duplicate node id")
	ErrTerminalParent  = errors.New("terminal node has children")
	ErrUnknownNodeType = errors.New("unknown node type")
	ErrEmptyTree       = errors.New("empty tree")
	ErrNilChild        = errors.New("nil child")
)

// PostOrder lists every node with all children before their parent, children
// left to right.
func PostOrder(root *Node) []*Node {
	if root == nil {
		return nil
	}
	order := make([]*Node, 0, Count(root))
	var visit func(n *Node)
	visit = func(n *Node) {
		for _, child := range n.Children {
			visit(child)
		}
		order = append(order, n)
	}
	visit(root)
	return order
}

func Count(root *Node) int {
	if root == nil {
		return 0
	}
	count := 1
	for _, child := range root.Children {
		count += Count(child)
	}
	return count
}

// Depth returns the number of levels below and including root.
func Depth(root *Node) int {
	if root == nil {
		return 0
	}
	deepest := 0
	for _, child := range root.Children {
		if d := Depth(child); d > deepest {
			deepest = d
		}
	}
	return deepest + 1
}

// ClearResults returns a tree without any calculated value or optimal flag.
// Subtrees that carry no derived fields are shared.
func ClearResults(root *Node) *Node {
	if root == nil {
		return nil
	}
	cleared, _ := clearResults(root)
	return cleared
}

func clearResults(n *Node) (*Node, bool) {
	changed := n.CalculatedValue != nil || n.IsOptimal != nil
	children := n.Children
	copied := false
	for i, child := range n.Children {
		cleared, childChanged := clearResults(child)
		if !childChanged {
			continue
		}
		if !copied {
			children = make([]*Node, len(n.Children))
			copy(children, n.Children)
			copied = true
		}
		children[i] = cleared
		changed = true
	}
	if !changed {
		return n, false
	}
	c := *n
	c.Children = children
	c.CalculatedValue = nil
	c.IsOptimal = nil
	return &c, true
}

// HasResults reports whether any node carries a derived field.
func HasResults(root *Node) bool {
	if root == nil {
		return false
	}
	if root.CalculatedValue != nil || root.IsOptimal != nil {
		return true
	}
	for _, child := range root.Children {
		if HasResults(child) {
			return true
		}
	}
	return false
}

// Clone deep copies the tree.
func Clone(root *Node) *Node {
	if root == nil {
		return nil
	}
	c := *root
	if root.CalculatedValue != nil {
		c.CalculatedValue = Float(*root.CalculatedValue)
	}
	if root.IsOptimal != nil {
		c.IsOptimal = Bool(*root.IsOptimal)
	}
	c.Children = make([]*Node, len(root.Children))
	for i, child := range root.Children {
		c.Children[i] = Clone(child)
	}
	return &c
}

// Validate checks the structural invariants: no nil children, known types,
// unique ids and childless terminal nodes.
func Validate(root *Node) error {
	if root == nil {
		return ErrEmptyTree
	}
	if err := checkChildren(root); err != nil {
		return err
	}
	seen := make(map[string]bool)
	for _, n := range PostOrder(root) {
		if !n.Type.Valid() {
			return fmt.Errorf("node %q: %w %q", n.ID, ErrUnknownNodeType, string(n.Type))
		}
		if seen[n.ID] {
			return fmt.Errorf("node %q: %w", n.ID, ErrDuplicateID)
		}
		seen[n.ID] = true
		if n.Type == Terminal && len(n.Children) > 0 {
			return fmt.Errorf("node %q: %w", n.ID, ErrTerminalParent)
		}
	}
	return nil
}

func checkChildren(n *Node) error {
	for i, child := range n.Children {
		if child == nil {
			return fmt.Errorf("node %q: child %d: %w", n.ID, i, ErrNilChild)
		}
		if err := checkChildren(child); err != nil {
			return err
		}
	}
	return nil
}
