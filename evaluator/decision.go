package evaluator

import (
	"math"
	"strings"

	"dtree/tree"
	"dtree/utils"
)

// A decision takes the best of its options
func maxValue(node *tree.Node) float64 {
	if len(node.Children) == 0 {
		return 0
	}

	best := math.Inf(-1)
	for _, child := range node.Children {
		if v := child.Result(); v > best {
			best = v
		}
	}
	return best
}

func maxFormula(node *tree.Node) string {
	values := make([]string, len(node.Children))
	for i, child := range node.Children {
		values[i] = formatChild(child)
	}
	return "MAX(" + strings.Join(values, ", ") + ")"
}

// MarkOptimalPath returns a new tree in which the children of every evaluated
// decision node carry an optimal flag: true when the child's value matches
// the decision's value, false otherwise. Ties are all marked. Children of
// chance nodes keep whatever flag they had, since every outcome of a chance
// node stays possible.
func MarkOptimalPath(root *tree.Node) *tree.Node {
	if root == nil {
		return nil
	}
	return mark(root, root.IsOptimal)
}

func mark(node *tree.Node, flag *bool) *tree.Node {
	c := *node
	c.IsOptimal = flag
	c.Children = make([]*tree.Node, len(node.Children))
	for i, child := range node.Children {
		childFlag := child.IsOptimal
		if node.Type == tree.Decision && node.Evaluated() {
			childFlag = tree.Bool(isBest(child, *node.CalculatedValue))
		}
		c.Children[i] = mark(child, childFlag)
	}
	return &c
}

func isBest(child *tree.Node, best float64) bool {
	return child.Evaluated() && utils.ApproxEqual(*child.CalculatedValue, best, utils.Tolerance)
}
