// Package communication connects a renderer to the solve engine. The engine
// runs in-process behind Engine, or remotely behind the HTTP server and client
// subpackages. Both sides speak in Views and Actions.
package communication

import (
	"context"
	"errors"

	"dtree/evaluator"
	"dtree/layout"
	"dtree/solver"
	"dtree/tree"
)

var (
	ErrUnknownAction = errors.New("unknown action")
	ErrBadRequest    = errors.New("bad request")
	ErrClosed        = errors.New("engine closed")
)

// View is everything a renderer needs to draw the current state.
type View struct {
	Mode     solver.Mode          `json:"mode"`
	Tree     *tree.Node           `json:"tree"`
	Log      []evaluator.LogEntry `json:"log"`
	Layout   layout.Layout        `json:"layout"`
	Warnings []evaluator.Warning  `json:"warnings"`
}

// EMV is the value of the whole tree, nil until the root is evaluated.
func (v View) EMV() *float64 {
	if v.Tree == nil {
		return nil
	}
	return v.Tree.CalculatedValue
}

func NewView(u solver.Update, opts layout.Options) View {
	log := u.Log
	if log == nil {
		log = []evaluator.LogEntry{}
	}
	warnings := evaluator.CheckProbabilities(u.Tree)
	if warnings == nil {
		warnings = []evaluator.Warning{}
	}
	return View{
		Mode:     u.Mode,
		Tree:     u.Tree,
		Log:      log,
		Layout:   layout.Compute(u.Tree, opts),
		Warnings: warnings,
	}
}

type ActionKind string

const (
	ActionStep     ActionKind = "step"
	ActionAuto     ActionKind = "auto"
	ActionCancel   ActionKind = "cancel"
	ActionReset    ActionKind = "reset"
	ActionAddChild ActionKind = "add_child"
	ActionUpdate   ActionKind = "update"
	ActionDelete   ActionKind = "delete"
	ActionLoad     ActionKind = "load"
)

// Action is a request from the renderer. Only the fields its kind needs are
// set.
type Action struct {
	Kind     ActionKind    `json:"kind"`
	NodeID   string        `json:"nodeId,omitempty"`
	NodeType tree.NodeType `json:"nodeType,omitempty"`
	Patch    *tree.Patch   `json:"patch,omitempty"`
	Tree     *tree.Node    `json:"tree,omitempty"`
}

type Result struct {
	Mode   solver.Mode `json:"mode"`
	NodeID string      `json:"nodeId,omitempty"` // Set by add_child
}

// Communicator is an interface that abstracts the communication mechanism.
type Communicator interface {
	GetView(ctx context.Context) (View, error)
	SendAction(ctx context.Context, action Action) (Result, error)
	Advise(ctx context.Context) (string, error)
}
