package tree

// Example returns a small investment decision: launch a product into an
// uncertain market or keep the money in a safe deposit.
func Example() *Node {
	return &Node{
		ID:    RootID,
		Type:  Decision,
		Label: "Investment",
		Children: []*Node{
			{
				ID:          "launch",
				Type:        Chance,
				Label:       "Launch product",
				Probability: DefaultProbability,
				Children: []*Node{
					{ID: "launch-strong", Type: Terminal, Label: "Strong demand", Value: 100000, Probability: 0.6, Children: []*Node{}},
					{ID: "launch-weak", Type: Terminal, Label: "Weak demand", Value: -30000, Probability: 0.4, Children: []*Node{}},
				},
			},
			{
				ID:          "deposit",
				Type:        Terminal,
				Label:       "Safe deposit",
				Value:       20000,
				Probability: DefaultProbability,
				Children:    []*Node{},
			},
		},
	}
}
