package tree

import (
	"github.com/google/uuid"
)

// NewID returns a fresh globally unique node id
var NewID = uuid.NewString

// NewRoot returns a tree holding a single decision node with the distinguished root id.
func NewRoot(label string) *Node {
	return &Node{
		ID:       RootID,
		Type:     Decision,
		Label:    label,
		Children: []*Node{},
	}
}

// Find searches the tree depth-first for the node with the given id.
func Find(root *Node, id string) (*Node, bool) {
	if root == nil {
		return nil, false
	}
	if root.ID == id {
		return root, true
	}
	for _, child := range root.Children {
		if found, ok := Find(child, id); ok {
			return found, true
		}
	}
	return nil, false
}

// Update returns a new tree in which the node with the given id has the patch
// merged in. Ancestors of the node are copied, everything else is shared.
// The original root is returned when no node matches.
func Update(root *Node, id string, patch Patch) *Node {
	updated, ok := rewrite(root, id, func(n *Node) *Node {
		n = n.shallow()
		patch.apply(n)
		return n
	})
	if !ok {
		return root
	}
	return updated
}

// AddChild appends a new node of the given type as the last child of the
// parent. It returns the new root and the id of the new node, or the original
// root and "" when the type is unknown or no parent matches.
func AddChild(root *Node, parentID string, nodeType NodeType) (*Node, string) {
	if !nodeType.Valid() {
		return root, ""
	}
	child := &Node{
		ID:          NewID(),
		Type:        nodeType,
		Label:       nodeType.defaultLabel(),
		Value:       0,
		Probability: DefaultProbability,
		Children:    []*Node{},
	}
	updated, ok := rewrite(root, parentID, func(n *Node) *Node {
		n = n.shallow()
		n.Children = append(n.Children, child)
		return n
	})
	if !ok {
		return root, ""
	}
	return updated, child.ID
}

// Delete returns a new tree without any node with the given id. Every match is
// removed, not just the first one. Deleting the root itself is not handled
// here and callers must refuse it.
func Delete(root *Node, id string) *Node {
	if root == nil {
		return nil
	}
	updated, changed := prune(root, id)
	if !changed {
		return root
	}
	return updated
}

func prune(node *Node, id string) (*Node, bool) {
	var kept []*Node
	changed := false
	for i, child := range node.Children {
		if child.ID == id {
			if !changed {
				kept = append(make([]*Node, 0, len(node.Children)), node.Children[:i]...)
			}
			changed = true
			continue
		}
		pruned, childChanged := prune(child, id)
		if childChanged && !changed {
			kept = append(make([]*Node, 0, len(node.Children)), node.Children[:i]...)
			changed = true
		}
		if changed {
			kept = append(kept, pruned)
		}
	}
	if !changed {
		return node, false
	}
	c := *node
	c.Children = kept
	if c.Children == nil {
		c.Children = []*Node{}
	}
	return &c, true
}

// rewrite replaces the first node matching id by fn(node) and path-copies its
// ancestors.
func rewrite(node *Node, id string, fn func(*Node) *Node) (*Node, bool) {
	if node == nil {
		return nil, false
	}
	if node.ID == id {
		return fn(node), true
	}
	for i, child := range node.Children {
		if updated, ok := rewrite(child, id, fn); ok {
			c := node.shallow()
			c.Children[i] = updated
			return c, true
		}
	}
	return node, false
}
