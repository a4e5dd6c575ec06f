package evaluator

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"dtree/tree"
)

func TestTerminal(t *testing.T) {
	node := terminal("x", 12.5, 0)

	require.Equal(t, 12.5, ComputeValue(node))
	require.Equal(t, "12.5", Formula(node))
}

func TestEvaluateScenarioA(t *testing.T) {
	root := Evaluate(scenarioA())

	a, _ := tree.Find(root, "A")
	b, _ := tree.Find(root, "B")
	require.Equal(t, 50.0, a.Result())
	require.Equal(t, 40.0, b.Result())
	require.Equal(t, 50.0, root.Result())
	require.True(t, a.Optimal())
	require.False(t, b.Optimal())
}

func TestEvaluateIsIdempotent(t *testing.T) {
	first := Evaluate(tree.Example())
	second := Evaluate(tree.Example())
	again := Evaluate(first)

	require.Empty(t, cmp.Diff(first, second))
	require.Empty(t, cmp.Diff(first, again))
}

func TestEvaluateDoesNotMutate(t *testing.T) {
	root := scenarioA()
	before := tree.Clone(root)

	Evaluate(root)

	require.Empty(t, cmp.Diff(before, root))
}

func TestChanceExpectation(t *testing.T) {
	root := Evaluate(tree.Example())

	for _, node := range tree.PostOrder(root) {
		if node.Type != tree.Chance {
			continue
		}
		sum := 0.0
		for _, child := range node.Children {
			sum += child.Result() * child.Probability
		}
		require.InDelta(t, sum, node.Result(), 1e-9)
	}
	require.InDelta(t, 48000.0, root.Result(), 1e-9)
}

func TestNewLogEntry(t *testing.T) {
	at := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	node := &tree.Node{ID: "A", Type: tree.Chance, Label: "Gamble", Children: []*tree.Node{
		evaluated(terminal("x", 100, 0.5), 100),
		evaluated(terminal("y", 0, 0.5), 0),
	}}

	got := NewLogEntry(node, 50, at)

	require.NotEmpty(t, got.ID)
	require.Equal(t, "A", got.NodeID)
	require.Equal(t, "Gamble", got.NodeLabel)
	require.Equal(t, tree.Chance, got.NodeType)
	require.Equal(t, "(0.5 × 100.00) + (0.5 × 0.00)", got.Formula)
	require.Equal(t, 50.0, got.Result)
	require.Equal(t, at, got.Timestamp)
}
