package evaluator

import "dtree/tree"

func terminal(id string, value, probability float64) *tree.Node {
	return &tree.Node{ID: id, Type: tree.Terminal, Label: id, Value: value, Probability: probability, Children: []*tree.Node{}}
}

func evaluated(n *tree.Node, value float64) *tree.Node {
	n.CalculatedValue = tree.Float(value)
	return n
}

// scenarioA is a decision between a coin flip worth 100 or nothing and a
// sure 40.
func scenarioA() *tree.Node {
	return &tree.Node{
		ID:    tree.RootID,
		Type:  tree.Decision,
		Label: "Choose",
		Children: []*tree.Node{
			{ID: "A", Type: tree.Chance, Label: "A", Probability: 0.5, Children: []*tree.Node{
				terminal("A1", 100, 0.5),
				terminal("A2", 0, 0.5),
			}},
			{ID: "B", Type: tree.Chance, Label: "B", Probability: 0.5, Children: []*tree.Node{
				terminal("B1", 40, 1.0),
			}},
		},
	}
}
