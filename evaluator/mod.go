// Package evaluator computes expected monetary values over decision trees by
// backward induction. Every function here is pure: it reads the given nodes
// and returns new values or new trees without touching its input.
package evaluator

import (
	"fmt"

	"dtree/tree"
	"dtree/utils"
)

// ComputeValue derives a node's value from its children's calculated values.
// Children that are not evaluated yet count as 0.
func ComputeValue(node *tree.Node) float64 {
	switch node.Type {
	case tree.Terminal:
		return node.Value
	case tree.Decision:
		return maxValue(node)
	case tree.Chance:
		return expectedValue(node)
	default:
		panic(fmt.Sprintf("unexpected node type %q", string(node.Type)))
	}
}

// Formula renders how ComputeValue derives the node's value.
func Formula(node *tree.Node) string {
	switch node.Type {
	case tree.Terminal:
		return utils.FormatLiteral(node.Value)
	case tree.Decision:
		return maxFormula(node)
	case tree.Chance:
		return expectedFormula(node)
	default:
		panic(fmt.Sprintf("unexpected node type %q", string(node.Type)))
	}
}

// Evaluate runs the whole backward induction and marks the optimal path.
func Evaluate(root *tree.Node) *tree.Node {
	if root == nil {
		return nil
	}
	return MarkOptimalPath(evaluate(root))
}

func evaluate(node *tree.Node) *tree.Node {
	c := *node
	c.Children = make([]*tree.Node, len(node.Children))
	for i, child := range node.Children {
		c.Children[i] = evaluate(child)
	}
	c.CalculatedValue = tree.Float(ComputeValue(&c))
	return &c
}

func formatChild(child *tree.Node) string {
	if !child.Evaluated() {
		return "?"
	}
	return utils.FormatAmount(*child.CalculatedValue)
}
