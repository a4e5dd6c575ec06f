package tree

type NodeType string

const (
	Decision NodeType = "decision"
	Chance   NodeType = "chance"
	Terminal NodeType = "terminal"
)

const RootID = "root"

// DefaultProbability is assigned to every new branch
const DefaultProbability = 0.5

func (t NodeType) Valid() bool {
	switch t {
	case Decision, Chance, Terminal:
		return true
	}
	return false
}

func (t NodeType) String() string {
	return string(t)
}

func (t NodeType) defaultLabel() string {
	switch t {
	case Decision:
		return "New Decision"
	case Chance:
		return "New Chance"
	case Terminal:
		return "New Outcome"
	}
	return ""
}

// Node is one vertex of a decision tree. Nodes are treated as immutable
// values: every operation in this package returns a new root and shares
// untouched subtrees with the old one.
type Node struct {
	ID          string   `json:"id" yaml:"id"`
	Type        NodeType `json:"type" yaml:"type"`
	Label       string   `json:"label" yaml:"label"`
	Value       float64  `json:"value,omitempty" yaml:"value,omitempty"`
	Probability float64  `json:"probability,omitempty" yaml:"probability,omitempty"`
	Children    []*Node  `json:"children" yaml:"children"`

	// Derived by evaluation
	CalculatedValue *float64 `json:"calculatedValue,omitempty" yaml:"calculatedValue,omitempty"`
	IsOptimal       *bool    `json:"isOptimal,omitempty" yaml:"isOptimal,omitempty"`

	// Presentation only
	Collapsed bool   `json:"collapsed,omitempty" yaml:"collapsed,omitempty"`
	Notes     string `json:"notes,omitempty" yaml:"notes,omitempty"`
}

func (n *Node) IsLeaf() bool {
	return len(n.Children) == 0
}

func (n *Node) Evaluated() bool {
	return n.CalculatedValue != nil
}

// Result returns the calculated value, 0 if the node is not evaluated yet.
func (n *Node) Result() float64 {
	if n.CalculatedValue == nil {
		return 0
	}
	return *n.CalculatedValue
}

func (n *Node) Optimal() bool {
	return n.IsOptimal != nil && *n.IsOptimal
}

// shallow copies the node. The children slice is copied, the children are not.
func (n *Node) shallow() *Node {
	c := *n
	if n.Children != nil {
		c.Children = make([]*Node, len(n.Children))
		copy(c.Children, n.Children)
	}
	return &c
}

// Patch holds the fields to merge into a node. Nil fields are left as they are.
type Patch struct {
	Type            *NodeType `json:"type,omitempty"`
	Label           *string   `json:"label,omitempty"`
	Value           *float64  `json:"value,omitempty"`
	Probability     *float64  `json:"probability,omitempty"`
	Collapsed       *bool     `json:"collapsed,omitempty"`
	Notes           *string   `json:"notes,omitempty"`
	CalculatedValue *float64  `json:"calculatedValue,omitempty"`
	IsOptimal       *bool     `json:"isOptimal,omitempty"`
}

// Structural reports whether applying the patch can change evaluation results.
func (p Patch) Structural() bool {
	return p.Type != nil || p.Value != nil || p.Probability != nil
}

func (p Patch) apply(n *Node) {
	if p.Type != nil {
		n.Type = *p.Type
	}
	if p.Label != nil {
		n.Label = *p.Label
	}
	if p.Value != nil {
		n.Value = *p.Value
	}
	if p.Probability != nil {
		n.Probability = *p.Probability
	}
	if p.Collapsed != nil {
		n.Collapsed = *p.Collapsed
	}
	if p.Notes != nil {
		n.Notes = *p.Notes
	}
	if p.CalculatedValue != nil {
		v := *p.CalculatedValue
		n.CalculatedValue = &v
	}
	if p.IsOptimal != nil {
		b := *p.IsOptimal
		n.IsOptimal = &b
	}
}

func Float(v float64) *float64 {
	return &v
}

func Bool(b bool) *bool {
	return &b
}

func String(s string) *string {
	return &s
}

func Type(t NodeType) *NodeType {
	return &t
}
