package solver

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"dtree/metrics"
	"dtree/tree"
)

type replay struct {
	cancel chan struct{}
	done   chan struct{}
	once   sync.Once
}

func newReplay() *replay {
	return &replay{
		cancel: make(chan struct{}),
		done:   make(chan struct{}),
	}
}

func (r *replay) stop() {
	r.once.Do(func() { close(r.cancel) })
}

func (r *replay) stopped() bool {
	select {
	case <-r.cancel:
		return true
	default:
		return false
	}
}

// wait blocks for the pacing delay unless the replay is stopped or the
// context ends first.
func (r *replay) wait(ctx context.Context, delay time.Duration) error {
	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-r.cancel:
		return ErrCancelled
	case <-ctx.Done():
		return ctx.Err()
	}
}

type pending struct {
	id       string
	terminal bool
	value    float64
}

// Auto replays the whole evaluation. Starting from Edit or Solved it first
// resets every result; from Stepping it continues where the manual steps left
// off. The post-order sequence of pending nodes is fixed up front. Terminal
// leaves get their payout at once, every other node waits the pacing delay,
// is evaluated, logged and published. At the end the optimal path is marked.
//
// Auto blocks until the replay ends. It returns ErrCancelled when stopped by
// Cancel, Reset, a mutation or a newer run, and the context's error when the
// context ends. A stopped replay leaves its partial results in place.
func (c *Controller) Auto(ctx context.Context) error {
	r, sequence := c.begin()
	return c.drive(ctx, r, sequence)
}

// Start is Auto in the background. The replay owns the controller when Start
// returns, and its result arrives on the channel.
func (c *Controller) Start(ctx context.Context) <-chan error {
	r, sequence := c.begin()
	result := make(chan error, 1)
	go func() {
		result <- c.drive(ctx, r, sequence)
	}()
	return result
}

func (c *Controller) begin() (*replay, []pending) {
	c.acquire()

	if c.mode != Stepping {
		c.invalidate()
	}
	c.mode = Stepping
	sequence := pendingSequence(c.root)
	r := newReplay()
	c.replay = r
	c.metrics.Start(metrics.AutoRun)
	u := c.update()
	c.mu.Unlock()

	log.Info().Msgf("starting auto replay of %d nodes", len(sequence))
	c.publish(u)
	return r, sequence
}

func (c *Controller) drive(ctx context.Context, r *replay, sequence []pending) error {
	defer close(r.done)

	err := c.run(ctx, r, sequence)

	c.mu.Lock()
	if c.replay == r {
		c.replay = nil
	}
	if err == nil {
		c.finish()
	} else {
		c.metrics.SetCancelled(true)
	}
	c.last = c.metrics.Complete()
	u := c.update()
	c.mu.Unlock()

	if err != nil {
		log.Info().Msgf("auto replay stopped: %v", err)
		return err
	}
	c.publish(u)
	return nil
}

func (c *Controller) run(ctx context.Context, r *replay, sequence []pending) error {
	for _, p := range sequence {
		if !p.terminal {
			if err := r.wait(ctx, c.delay); err != nil {
				return err
			}
		}

		c.mu.Lock()
		if r.stopped() {
			c.mu.Unlock()
			return ErrCancelled
		}
		if err := ctx.Err(); err != nil {
			c.mu.Unlock()
			return err
		}
		if p.terminal {
			c.assign(p.id, p.value)
			c.mu.Unlock()
			continue
		}
		c.commit(p.id)
		u := c.update()
		c.mu.Unlock()

		c.publish(u)
	}
	return nil
}

// pendingSequence lists the nodes without a value in post-order. A terminal
// root is evaluated like an internal node so that it gets logged.
func pendingSequence(root *tree.Node) []pending {
	var sequence []pending
	for _, node := range tree.PostOrder(root) {
		if node.Evaluated() {
			continue
		}
		sequence = append(sequence, pending{
			id:       node.ID,
			terminal: node.Type == tree.Terminal && node != root,
			value:    node.Value,
		})
	}
	return sequence
}
