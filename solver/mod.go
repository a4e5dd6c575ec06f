// Package solver replays the backward induction of a decision tree, one node
// at a time on request or automatically with a fixed pacing delay.
//
// A Controller owns the current tree snapshot and calculation log. Every
// change is committed by swapping in a new immutable snapshot, so readers
// only ever see whole steps.
package solver

import (
	"errors"
	"fmt"
	"time"

	"dtree/evaluator"
	"dtree/metrics"
	"dtree/tree"
)

// DefaultDelay paces automatic replays between internal nodes
const DefaultDelay = 600 * time.Millisecond

var (
	ErrCancelled       = errors.New("replay cancelled")
	ErrNotFound        = errors.New("node not found")
	ErrInvalidTopology = errors.New("invalid topology")
)

type Mode int

const (
	Edit Mode = iota
	Stepping
	Solved
)

func (m Mode) String() string {
	switch m {
	case Edit:
		return "edit"
	case Stepping:
		return "stepping"
	case Solved:
		return "solved"
	default:
		return "unknown"
	}
}

func (m Mode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

func (m *Mode) UnmarshalText(text []byte) error {
	switch string(text) {
	case "edit":
		*m = Edit
	case "stepping":
		*m = Stepping
	case "solved":
		*m = Solved
	default:
		return fmt.Errorf("unknown mode %q", text)
	}
	return nil
}

// Update is published to observers after every committed change.
type Update struct {
	Mode Mode                 `json:"mode"`
	Tree *tree.Node           `json:"tree"`
	Log  []evaluator.LogEntry `json:"log"`
}

// Observer receives updates on the goroutine that committed them. It must not
// block and must not call back into the controller.
type Observer func(Update)

type Option func(c *Controller)

func WithDelay(delay time.Duration) Option {
	return func(c *Controller) {
		if delay >= 0 {
			c.delay = delay
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(c *Controller) {
		if now != nil {
			c.now = now
		}
	}
}

func WithObserver(observer Observer) Option {
	return func(c *Controller) {
		if observer != nil {
			c.observers = append(c.observers, observer)
		}
	}
}

func WithMetrics(collector metrics.Collector) Option {
	return func(c *Controller) {
		if collector != nil {
			c.metrics = collector
		}
	}
}
