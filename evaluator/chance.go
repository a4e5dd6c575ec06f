package evaluator

import (
	"strings"

	"dtree/tree"
	"dtree/utils"
)

// A chance node is worth the probability weighted sum of its outcomes
func expectedValue(node *tree.Node) float64 {
	sum := 0.0
	for _, child := range node.Children {
		sum += child.Result() * child.Probability
	}
	return sum
}

func expectedFormula(node *tree.Node) string {
	if len(node.Children) == 0 {
		return "0"
	}
	terms := make([]string, len(node.Children))
	for i, child := range node.Children {
		terms[i] = "(" + utils.FormatLiteral(child.Probability) + " × " + formatChild(child) + ")"
	}
	return strings.Join(terms, " + ")
}

// Warning flags a chance node whose branch probabilities do not add up to 1.
type Warning struct {
	NodeID string  `json:"nodeId"`
	Label  string  `json:"label"`
	Sum    float64 `json:"sum"`
}

// CheckProbabilities lists every chance node whose children's probabilities do
// not sum to 1. It is advisory only, evaluation works with any weights.
func CheckProbabilities(root *tree.Node) []Warning {
	var warnings []Warning
	for _, node := range tree.PostOrder(root) {
		if node.Type != tree.Chance {
			continue
		}
		sum := 0.0
		for _, child := range node.Children {
			sum += child.Probability
		}
		if !utils.ApproxEqual(sum, 1, utils.Tolerance) {
			warnings = append(warnings, Warning{NodeID: node.ID, Label: node.Label, Sum: sum})
		}
	}
	return warnings
}
