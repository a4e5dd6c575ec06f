package solver

import (
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/exp/slices"

	"dtree/evaluator"
	"dtree/metrics"
	"dtree/tree"
)

type Controller struct {
	mu        sync.Mutex
	root      *tree.Node
	mode      Mode
	log       []evaluator.LogEntry
	replay    *replay
	delay     time.Duration
	now       func() time.Time
	observers []Observer
	metrics   metrics.Collector
	last      metrics.SolveMetric
}

func New(root *tree.Node, options ...Option) *Controller {
	if root == nil {
		panic("controller needs a root node")
	}
	c := &Controller{ // Default values
		root:    tree.ClearResults(root),
		mode:    Edit,
		delay:   DefaultDelay,
		now:     time.Now,
		metrics: metrics.NewDummyCollector(),
	}
	for _, option := range options {
		option(c)
	}
	return c
}

// Snapshot returns the last committed tree. The tree is never modified in
// place and can be read without locking.
func (c *Controller) Snapshot() *tree.Node {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.root
}

func (c *Controller) Log() []evaluator.LogEntry {
	c.mu.Lock()
	defer c.mu.Unlock()

	return slices.Clone(c.log)
}

func (c *Controller) Mode() Mode {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.mode
}

// Running reports whether an automatic replay is in flight.
func (c *Controller) Running() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.replay != nil
}

// Warnings lists chance nodes whose probabilities do not sum to 1.
func (c *Controller) Warnings() []evaluator.Warning {
	return evaluator.CheckProbabilities(c.Snapshot())
}

// Metrics returns the metrics of the last completed run.
func (c *Controller) Metrics() metrics.SolveMetric {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.last
}

// State returns mode, tree and log as one consistent view.
func (c *Controller) State() Update {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.update()
}

// Cancel stops an in-flight automatic replay. The tree keeps whatever values
// were committed before. Cancelling when nothing runs is a no-op.
func (c *Controller) Cancel() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.replay != nil {
		c.replay.stop()
	}
}

// Reset cancels any replay, clears every derived value and the log, and
// returns to Edit.
func (c *Controller) Reset() {
	c.acquire()
	c.invalidate()
	u := c.update()
	c.mu.Unlock()

	log.Info().Msg("solver reset")
	c.publish(u)
}

// Load replaces the whole tree.
func (c *Controller) Load(root *tree.Node) error {
	if err := tree.Validate(root); err != nil {
		return fmt.Errorf("cannot load tree: %w", err)
	}

	c.acquire()
	c.root = root
	c.invalidate()
	u := c.update()
	c.mu.Unlock()

	log.Info().Msgf("loaded tree with %d nodes", tree.Count(root))
	c.publish(u)
	return nil
}

// Update merges the patch into a node. Changes to type, value or probability
// cancel any replay and reset every result; label, notes and collapsed only
// change the presentation.
func (c *Controller) Update(id string, patch tree.Patch) error {
	// Derived fields belong to the solver
	patch.CalculatedValue = nil
	patch.IsOptimal = nil

	if !patch.Structural() {
		c.mu.Lock()
		if _, ok := tree.Find(c.root, id); !ok {
			c.mu.Unlock()
			return fmt.Errorf("cannot update %q: %w", id, ErrNotFound)
		}
		c.root = tree.Update(c.root, id, patch)
		u := c.update()
		c.mu.Unlock()

		c.publish(u)
		return nil
	}

	c.acquire()
	node, ok := tree.Find(c.root, id)
	if !ok {
		c.mu.Unlock()
		return fmt.Errorf("cannot update %q: %w", id, ErrNotFound)
	}
	if patch.Type != nil {
		if !patch.Type.Valid() {
			c.mu.Unlock()
			return fmt.Errorf("cannot update %q: %w %q", id, tree.ErrUnknownNodeType, string(*patch.Type))
		}
		if *patch.Type == tree.Terminal && len(node.Children) > 0 {
			c.mu.Unlock()
			return fmt.Errorf("cannot turn %q with children into a terminal: %w", id, ErrInvalidTopology)
		}
	}
	c.root = tree.Update(c.root, id, patch)
	c.invalidate()
	u := c.update()
	c.mu.Unlock()

	c.publish(u)
	return nil
}

// AddChild appends a new node under the parent and returns its id.
func (c *Controller) AddChild(parentID string, nodeType tree.NodeType) (string, error) {
	if !nodeType.Valid() {
		return "", fmt.Errorf("cannot add child: %w %q", tree.ErrUnknownNodeType, string(nodeType))
	}

	c.acquire()
	parent, ok := tree.Find(c.root, parentID)
	if !ok {
		c.mu.Unlock()
		return "", fmt.Errorf("cannot add child to %q: %w", parentID, ErrNotFound)
	}
	if parent.Type == tree.Terminal {
		c.mu.Unlock()
		return "", fmt.Errorf("cannot add child to terminal %q: %w", parentID, ErrInvalidTopology)
	}
	root, id := tree.AddChild(c.root, parentID, nodeType)
	c.root = root
	c.invalidate()
	u := c.update()
	c.mu.Unlock()

	c.publish(u)
	return id, nil
}

// Delete removes a node and its subtree. The root cannot be deleted.
func (c *Controller) Delete(id string) error {
	c.acquire()
	if id == c.root.ID {
		c.mu.Unlock()
		return fmt.Errorf("cannot delete root %q: %w", id, ErrInvalidTopology)
	}
	if _, ok := tree.Find(c.root, id); !ok {
		c.mu.Unlock()
		return fmt.Errorf("cannot delete %q: %w", id, ErrNotFound)
	}
	c.root = tree.Delete(c.root, id)
	c.invalidate()
	u := c.update()
	c.mu.Unlock()

	c.publish(u)
	return nil
}

// acquire stops any replay in flight, waits for it to wind down, and returns
// with the lock held.
func (c *Controller) acquire() {
	for {
		c.mu.Lock()
		r := c.replay
		if r == nil {
			return
		}
		r.stop()
		c.mu.Unlock()
		<-r.done
	}
}

// invalidate must be called with the lock held.
func (c *Controller) invalidate() {
	c.root = tree.ClearResults(c.root)
	c.log = nil
	c.mode = Edit
}

// commit evaluates a node whose children all carry values, stores the result
// and appends its log entry. It must be called with the lock held.
func (c *Controller) commit(id string) {
	node, ok := tree.Find(c.root, id)
	if !ok {
		panic(fmt.Sprintf("node %q vanished during evaluation", id))
	}
	value := evaluator.ComputeValue(node)
	entry := evaluator.NewLogEntry(node, value, c.now())
	c.root = tree.Update(c.root, id, tree.Patch{CalculatedValue: tree.Float(value)})
	c.log = append(c.log, entry)
	c.metrics.AddStep()

	log.Debug().Str("node", id).Str("formula", entry.Formula).Float64("value", value).Msg("evaluated node")
}

// assign installs a terminal's payout without logging it. It must be called
// with the lock held.
func (c *Controller) assign(id string, value float64) {
	c.root = tree.Update(c.root, id, tree.Patch{CalculatedValue: tree.Float(value)})
	c.metrics.AddTerminal()
}

// finish marks the optimal path and enters Solved. It must be called with the
// lock held.
func (c *Controller) finish() {
	c.root = evaluator.MarkOptimalPath(c.root)
	c.mode = Solved
	c.metrics.SetSolved(true)

	log.Info().Msgf("solved tree with expected value %.2f", c.root.Result())
}

func (c *Controller) update() Update {
	return Update{
		Mode: c.mode,
		Tree: c.root,
		Log:  slices.Clone(c.log),
	}
}

func (c *Controller) publish(u Update) {
	for _, observer := range c.observers {
		observer(u)
	}
}
