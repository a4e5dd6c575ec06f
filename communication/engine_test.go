package communication

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"dtree/advisor"
	"dtree/layout"
	"dtree/solver"
	"dtree/tree"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeAnalyzer struct {
	text    string
	err     error
	request advisor.Request
}

func (f *fakeAnalyzer) Analyze(ctx context.Context, request advisor.Request) (string, error) {
	f.request = request
	return f.text, f.err
}

func newEngine(t *testing.T, analyzer advisor.Analyzer, options ...solver.Option) *Engine {
	e := NewEngine(tree.Example(), layout.DefaultOptions(), analyzer, options...)
	t.Cleanup(e.Close)
	return e
}

// awaitMode reads views until one reaches mode.
func awaitMode(t *testing.T, views <-chan View, mode solver.Mode) View {
	timeout := time.After(5 * time.Second)
	for {
		select {
		case v := <-views:
			if v.Mode == mode {
				return v
			}
		case <-timeout:
			t.Fatalf("No view reached %s", mode)
		}
	}
}

func TestEngineView(t *testing.T) {
	e := newEngine(t, nil)

	v, err := e.GetView(context.Background())

	require.NoError(t, err)
	require.Equal(t, solver.Edit, v.Mode)
	require.Equal(t, "Investment", v.Tree.Label)
	require.Len(t, v.Layout.Nodes, 5)
	require.Empty(t, v.Log)
	require.Empty(t, v.Warnings)
	require.Nil(t, v.EMV())
}

func TestEngineActions(t *testing.T) {
	t.Run("stepping to the end", func(t *testing.T) {
		e := newEngine(t, nil)

		first, err := e.SendAction(context.Background(), Action{Kind: ActionStep})
		require.NoError(t, err)
		require.Equal(t, solver.Stepping, first.Mode)
		last, err := e.SendAction(context.Background(), Action{Kind: ActionStep})
		require.NoError(t, err)

		require.Equal(t, solver.Solved, last.Mode)
		v, _ := e.GetView(context.Background())
		require.Equal(t, 48000.0, *v.EMV())
		require.Len(t, v.Log, 2)
	})

	t.Run("auto replay streams views", func(t *testing.T) {
		e := newEngine(t, nil, solver.WithDelay(0))
		views, unsubscribe := e.Subscribe()
		defer unsubscribe()

		result, err := e.SendAction(context.Background(), Action{Kind: ActionAuto})
		require.NoError(t, err)
		require.NotEqual(t, solver.Edit, result.Mode)

		v := awaitMode(t, views, solver.Solved)
		require.Equal(t, 48000.0, *v.EMV())
		require.Len(t, v.Layout.Connectors, 4)
	})

	t.Run("cancelling auto", func(t *testing.T) {
		e := newEngine(t, nil, solver.WithDelay(time.Hour))

		_, err := e.SendAction(context.Background(), Action{Kind: ActionAuto})
		require.NoError(t, err)
		require.True(t, e.Controller().Running())
		_, err = e.SendAction(context.Background(), Action{Kind: ActionCancel})
		require.NoError(t, err)

		require.Eventually(t, func() bool { return !e.Controller().Running() }, time.Second, time.Millisecond)
	})

	t.Run("editing", func(t *testing.T) {
		e := newEngine(t, nil)

		added, err := e.SendAction(context.Background(), Action{Kind: ActionAddChild, NodeID: "launch", NodeType: tree.Terminal})
		require.NoError(t, err)
		require.NotEmpty(t, added.NodeID)

		_, err = e.SendAction(context.Background(), Action{Kind: ActionUpdate, NodeID: added.NodeID, Patch: &tree.Patch{Probability: tree.Float(0)}})
		require.NoError(t, err)
		_, err = e.SendAction(context.Background(), Action{Kind: ActionDelete, NodeID: added.NodeID})
		require.NoError(t, err)

		v, _ := e.GetView(context.Background())
		require.Equal(t, 5, tree.Count(v.Tree))
	})

	t.Run("probability warnings", func(t *testing.T) {
		e := newEngine(t, nil)

		_, err := e.SendAction(context.Background(), Action{Kind: ActionUpdate, NodeID: "launch-weak", Patch: &tree.Patch{Probability: tree.Float(0.1)}})
		require.NoError(t, err)

		v, _ := e.GetView(context.Background())
		require.Len(t, v.Warnings, 1)
		require.Equal(t, "launch", v.Warnings[0].NodeID)
	})

	t.Run("loading a tree", func(t *testing.T) {
		e := newEngine(t, nil)

		_, err := e.SendAction(context.Background(), Action{Kind: ActionLoad, Tree: tree.NewRoot("Fresh")})
		require.NoError(t, err)

		v, _ := e.GetView(context.Background())
		require.Equal(t, "Fresh", v.Tree.Label)
	})

	t.Run("rejections", func(t *testing.T) {
		e := newEngine(t, nil)
		ctx := context.Background()

		_, err := e.SendAction(ctx, Action{Kind: ActionDelete, NodeID: tree.RootID})
		require.ErrorIs(t, err, solver.ErrInvalidTopology)
		_, err = e.SendAction(ctx, Action{Kind: ActionDelete, NodeID: "missing"})
		require.ErrorIs(t, err, solver.ErrNotFound)
		_, err = e.SendAction(ctx, Action{Kind: ActionUpdate, NodeID: "launch"})
		require.ErrorIs(t, err, ErrBadRequest)
		_, err = e.SendAction(ctx, Action{Kind: ActionLoad})
		require.ErrorIs(t, err, ErrBadRequest)
		_, err = e.SendAction(ctx, Action{Kind: "jump"})
		require.ErrorIs(t, err, ErrUnknownAction)
	})

	t.Run("auto after close", func(t *testing.T) {
		e := newEngine(t, nil, solver.WithDelay(time.Hour))
		e.Close()

		_, err := e.SendAction(context.Background(), Action{Kind: ActionAuto})

		require.ErrorIs(t, err, ErrClosed)
		require.False(t, e.Controller().Running())
	})

	t.Run("closing while autos arrive", func(t *testing.T) {
		e := newEngine(t, nil, solver.WithDelay(time.Hour))
		ctx := context.Background()

		errs := make(chan error, 1)
		go func() {
			var err error
			for i := 0; i < 50 && err == nil; i++ {
				_, err = e.SendAction(ctx, Action{Kind: ActionAuto})
			}
			errs <- err
		}()
		e.Close()
		if err := <-errs; err != nil {
			require.ErrorIs(t, err, ErrClosed)
		}

		_, err := e.SendAction(ctx, Action{Kind: ActionAuto})
		require.ErrorIs(t, err, ErrClosed)
	})
}

func TestEngineAdvise(t *testing.T) {
	t.Run("sending the stripped tree", func(t *testing.T) {
		analyzer := &fakeAnalyzer{text: "Launch."}
		e := newEngine(t, analyzer)

		text, err := e.Advise(context.Background())

		require.NoError(t, err)
		require.Equal(t, "Launch.", text)
		require.Equal(t, tree.RootID, analyzer.request.Tree.ID)
		require.Empty(t, analyzer.request.Tree.Children[0].ID)
	})

	t.Run("failures leave the solver alone", func(t *testing.T) {
		analyzer := &fakeAnalyzer{err: errors.Join(advisor.ErrServiceFailure, errors.New("timeout"))}
		e := newEngine(t, analyzer)
		_, err := e.SendAction(context.Background(), Action{Kind: ActionStep})
		require.NoError(t, err)
		before := e.Controller().Snapshot()

		_, err = e.Advise(context.Background())

		require.ErrorIs(t, err, advisor.ErrServiceFailure)
		require.Same(t, before, e.Controller().Snapshot())
		require.Equal(t, solver.Stepping, e.Controller().Mode())
	})

	t.Run("no analyzer", func(t *testing.T) {
		e := newEngine(t, nil)

		_, err := e.Advise(context.Background())

		require.ErrorIs(t, err, advisor.ErrMissingKey)
	})
}

func TestSubscribe(t *testing.T) {
	e := newEngine(t, nil)
	views, unsubscribe := e.Subscribe()

	_, err := e.SendAction(context.Background(), Action{Kind: ActionReset})
	require.NoError(t, err)
	v := <-views
	require.Equal(t, solver.Edit, v.Mode)

	unsubscribe()
	unsubscribe()
	_, open := <-views
	require.False(t, open)
}
