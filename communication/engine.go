package communication

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"

	"dtree/advisor"
	"dtree/layout"
	"dtree/solver"
	"dtree/tree"
)

const subscriberBuffer = 16

// Engine is the in-process Communicator. It owns a solver controller, runs
// automatic replays in the background and fans every committed update out to
// its subscribers.
type Engine struct {
	controller *solver.Controller
	layout     layout.Options
	analyzer   advisor.Analyzer

	mutex       sync.Mutex
	subscribers map[int]chan View
	next        int
	closed      bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewEngine builds the controller for root. A nil analyzer disables Advise.
func NewEngine(root *tree.Node, opts layout.Options, analyzer advisor.Analyzer, options ...solver.Option) *Engine {
	ctx, cancel := context.WithCancel(context.Background())
	e := &Engine{
		layout:      opts,
		analyzer:    analyzer,
		subscribers: make(map[int]chan View),
		ctx:         ctx,
		cancel:      cancel,
	}
	options = append(options, solver.WithObserver(e.broadcast))
	e.controller = solver.New(root, options...)
	return e
}

func (e *Engine) Controller() *solver.Controller {
	return e.controller
}

func (e *Engine) GetView(ctx context.Context) (View, error) {
	return NewView(e.controller.State(), e.layout), nil
}

func (e *Engine) SendAction(ctx context.Context, action Action) (Result, error) {
	var id string
	var err error

	switch action.Kind {
	case ActionStep:
		e.controller.Step()
	case ActionAuto:
		err = e.startAuto()
	case ActionCancel:
		e.controller.Cancel()
	case ActionReset:
		e.controller.Reset()
	case ActionAddChild:
		id, err = e.controller.AddChild(action.NodeID, action.NodeType)
	case ActionUpdate:
		if action.Patch == nil {
			return Result{}, fmt.Errorf("%w: update without patch", ErrBadRequest)
		}
		err = e.controller.Update(action.NodeID, *action.Patch)
	case ActionDelete:
		err = e.controller.Delete(action.NodeID)
	case ActionLoad:
		if action.Tree == nil {
			return Result{}, fmt.Errorf("%w: load without tree", ErrBadRequest)
		}
		err = e.controller.Load(action.Tree)
	default:
		return Result{}, fmt.Errorf("%w: %q", ErrUnknownAction, action.Kind)
	}
	if err != nil {
		return Result{}, err
	}
	return Result{Mode: e.controller.Mode(), NodeID: id}, nil
}

// startAuto launches a replay and returns once it owns the controller.
func (e *Engine) startAuto() error {
	e.mutex.Lock()
	if e.closed {
		e.mutex.Unlock()
		return ErrClosed
	}
	e.wg.Add(1)
	e.mutex.Unlock()

	result := e.controller.Start(e.ctx)
	go func() {
		defer e.wg.Done()
		err := <-result
		if err != nil && !errors.Is(err, solver.ErrCancelled) && !errors.Is(err, context.Canceled) {
			log.Error().Err(err).Msg("auto replay failed")
		}
	}()
	return nil
}

func (e *Engine) Advise(ctx context.Context) (string, error) {
	if e.analyzer == nil {
		return "", advisor.ErrMissingKey
	}
	return e.analyzer.Analyze(ctx, advisor.NewRequest(e.controller.Snapshot()))
}

// Subscribe returns a channel of views, one per committed update. Slow
// subscribers miss updates rather than block the solver. The returned
// function unsubscribes and closes the channel.
func (e *Engine) Subscribe() (<-chan View, func()) {
	ch := make(chan View, subscriberBuffer)

	e.mutex.Lock()
	id := e.next
	e.next++
	e.subscribers[id] = ch
	e.mutex.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			e.mutex.Lock()
			delete(e.subscribers, id)
			e.mutex.Unlock()
			close(ch)
		})
	}
}

// Subscribers reports how many view subscriptions are open.
func (e *Engine) Subscribers() int {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	return len(e.subscribers)
}

// Close stops any replay and waits for background work to end. Later auto
// actions fail with ErrClosed.
func (e *Engine) Close() {
	e.mutex.Lock()
	e.closed = true
	e.mutex.Unlock()

	e.cancel()
	e.controller.Cancel()
	e.wg.Wait()
}

func (e *Engine) broadcast(u solver.Update) {
	view := NewView(u, e.layout)

	e.mutex.Lock()
	defer e.mutex.Unlock()

	for _, ch := range e.subscribers {
		select {
		case ch <- view:
		default:
			log.Warn().Msg("dropping view for slow subscriber")
		}
	}
}
