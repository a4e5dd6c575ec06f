package solver

import (
	"dtree/metrics"
	"dtree/tree"
)

// Step evaluates the next node in post-order and logs it. Pending terminal
// leaves in front of that node receive their payout on the way without a log
// entry of their own. Once the root has a value the optimal path is marked
// and the controller is Solved. Any automatic replay in flight is cancelled
// first.
func (c *Controller) Step() Mode {
	c.acquire()

	if c.mode == Solved {
		c.mu.Unlock()
		return Solved
	}

	c.metrics.Start(metrics.StepRun)
	c.mode = Stepping

	if target := c.advance(); target != "" {
		c.commit(target)
	}
	if c.root.Evaluated() {
		c.finish()
	}

	c.last = c.metrics.Complete()
	mode := c.mode
	u := c.update()
	c.mu.Unlock()

	c.publish(u)
	return mode
}

// advance assigns pending terminal leaves up to the first pending node that
// needs a computation, and returns that node's id ("" when none is left). It
// must be called with the lock held.
func (c *Controller) advance() string {
	rootID := c.root.ID
	for _, node := range tree.PostOrder(c.root) {
		if node.Evaluated() {
			continue
		}
		if node.Type == tree.Terminal && node.ID != rootID {
			c.assign(node.ID, node.Value)
			continue
		}
		return node.ID
	}
	return ""
}
