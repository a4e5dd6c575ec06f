// Package advisor asks an external language model for a free-text analysis of
// a decision tree. The tree is sent as a stripped, read-only snapshot and the
// solver state is never touched.
package advisor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"dtree/tree"
)

var (
	ErrServiceFailure = errors.New("advisor service failure")
	ErrMissingKey     = errors.New("advisor api key not set")
)

// Branch is the advisor's view of a node. Presentation state and optimal
// flags are left out, and only the root keeps its id.
type Branch struct {
	ID              string        `json:"id,omitempty"`
	Type            tree.NodeType `json:"type"`
	Label           string        `json:"label"`
	Value           float64       `json:"value,omitempty"`
	Probability     float64       `json:"probability,omitempty"`
	CalculatedValue *float64      `json:"calculatedValue,omitempty"`
	Notes           string        `json:"notes,omitempty"`
	Children        []Branch      `json:"children,omitempty"`
}

// Strip converts a tree into the payload sent to the advisor.
func Strip(root *tree.Node) Branch {
	b := strip(root)
	b.ID = root.ID
	return b
}

func strip(n *tree.Node) Branch {
	b := Branch{
		Type:            n.Type,
		Label:           n.Label,
		Value:           n.Value,
		Probability:     n.Probability,
		CalculatedValue: n.CalculatedValue,
		Notes:           n.Notes,
	}
	for _, child := range n.Children {
		b.Children = append(b.Children, strip(child))
	}
	return b
}

type Request struct {
	Tree Branch   `json:"tree"`
	EMV  *float64 `json:"emv,omitempty"`
}

// NewRequest builds a request from the current tree. EMV is set once the
// root has been evaluated.
func NewRequest(root *tree.Node) Request {
	return Request{
		Tree: Strip(root),
		EMV:  root.CalculatedValue,
	}
}

func (r Request) prompt() (string, error) {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode request: %w", err)
	}
	return string(data), nil
}

// Analyzer turns a tree snapshot into free text. Failures wrap
// ErrServiceFailure.
type Analyzer interface {
	Analyze(ctx context.Context, request Request) (string, error)
}
