package evaluator

import (
	"testing"

	"github.com/stretchr/testify/require"

	"dtree/tree"
)

func TestDecisionComputeValue(t *testing.T) {
	t.Run("taking the maximum option", func(t *testing.T) {
		node := &tree.Node{Type: tree.Decision, Children: []*tree.Node{
			evaluated(terminal("x", 0, 0), 10),
			evaluated(terminal("y", 0, 0), 30),
			evaluated(terminal("z", 0, 0), 20),
		}}

		require.Equal(t, 30.0, ComputeValue(node))
	})

	t.Run("all options negative", func(t *testing.T) {
		node := &tree.Node{Type: tree.Decision, Children: []*tree.Node{
			evaluated(terminal("x", 0, 0), -10),
			evaluated(terminal("y", 0, 0), -3),
		}}

		require.Equal(t, -3.0, ComputeValue(node), "Should not clamp to 0")
	})

	t.Run("unevaluated children count as 0", func(t *testing.T) {
		node := &tree.Node{Type: tree.Decision, Children: []*tree.Node{
			evaluated(terminal("x", 0, 0), -10),
			terminal("y", 99, 0),
		}}

		require.Equal(t, 0.0, ComputeValue(node))
	})

	t.Run("no options", func(t *testing.T) {
		require.Equal(t, 0.0, ComputeValue(&tree.Node{Type: tree.Decision}))
	})
}

func TestDecisionFormula(t *testing.T) {
	node := &tree.Node{Type: tree.Decision, Children: []*tree.Node{
		evaluated(terminal("x", 0, 0), 50),
		terminal("y", 0, 0),
		evaluated(terminal("z", 0, 0), 12.345),
	}}

	require.Equal(t, "MAX(50.00, ?, 12.35)", Formula(node))
	require.Equal(t, "MAX()", Formula(&tree.Node{Type: tree.Decision}))
}

func TestMarkOptimalPath(t *testing.T) {
	t.Run("flagging the best option", func(t *testing.T) {
		root := Evaluate(scenarioA())

		require.True(t, root.Children[0].Optimal(), "A should be optimal")
		require.NotNil(t, root.Children[1].IsOptimal)
		require.False(t, *root.Children[1].IsOptimal, "B should be flagged not optimal")
		require.Nil(t, root.IsOptimal, "Root has no parent decision")
	})

	t.Run("chance children are never flagged", func(t *testing.T) {
		root := Evaluate(scenarioA())

		for _, outcome := range root.Children[0].Children {
			require.Nil(t, outcome.IsOptimal, "Outcome %s should not carry a flag", outcome.ID)
		}
	})

	t.Run("marking ties", func(t *testing.T) {
		root := &tree.Node{ID: tree.RootID, Type: tree.Decision, Children: []*tree.Node{
			terminal("x", 10, 0),
			terminal("y", 10.00001, 0),
			terminal("z", 9, 0),
		}}

		got := Evaluate(root)

		require.True(t, got.Children[0].Optimal())
		require.True(t, got.Children[1].Optimal(), "Values within tolerance should tie")
		require.False(t, got.Children[2].Optimal())
	})

	t.Run("unevaluated decisions are skipped", func(t *testing.T) {
		root := scenarioA()

		got := MarkOptimalPath(root)

		for _, child := range got.Children {
			require.Nil(t, child.IsOptimal)
		}
	})

	t.Run("nested decisions are independent", func(t *testing.T) {
		inner := &tree.Node{ID: "inner", Type: tree.Decision, Children: []*tree.Node{
			terminal("i1", 5, 0),
			terminal("i2", 1, 0),
		}}
		root := &tree.Node{ID: tree.RootID, Type: tree.Decision, Children: []*tree.Node{
			inner,
			terminal("big", 100, 0),
		}}

		got := Evaluate(root)

		require.False(t, got.Children[0].Optimal(), "Inner decision is not chosen at the root")
		require.True(t, got.Children[0].Children[0].Optimal(), "Inner decision still marks its best option")
		require.False(t, got.Children[0].Children[1].Optimal())
	})

	t.Run("input is untouched", func(t *testing.T) {
		solved := evaluate(scenarioA())
		before := tree.Clone(solved)

		MarkOptimalPath(solved)

		require.Equal(t, before, solved)
	})
}

func TestDecisionOptimality(t *testing.T) {
	root := Evaluate(tree.Example())

	for _, node := range tree.PostOrder(root) {
		if node.Type != tree.Decision || len(node.Children) == 0 {
			continue
		}
		found := false
		for _, child := range node.Children {
			if child.Optimal() {
				require.InDelta(t, node.Result(), child.Result(), 1e-4)
				found = true
			}
		}
		require.True(t, found, "Decision %s should have an optimal option", node.ID)
	}
}
