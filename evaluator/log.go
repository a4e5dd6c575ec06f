package evaluator

import (
	"time"

	"github.com/google/uuid"

	"dtree/tree"
)

// LogEntry records how one node's value was derived.
type LogEntry struct {
	ID        string        `json:"id"`
	NodeID    string        `json:"nodeId"`
	NodeLabel string        `json:"nodeLabel"`
	NodeType  tree.NodeType `json:"nodeType"`
	Formula   string        `json:"formula"`
	Result    float64       `json:"result"`
	Timestamp time.Time     `json:"timestamp"`
}

// NewLogEntry describes the evaluation of node, whose children must already
// carry their calculated values.
func NewLogEntry(node *tree.Node, result float64, at time.Time) LogEntry {
	return LogEntry{
		ID:        uuid.NewString(),
		NodeID:    node.ID,
		NodeLabel: node.Label,
		NodeType:  node.Type,
		Formula:   Formula(node),
		Result:    result,
		Timestamp: at,
	}
}
