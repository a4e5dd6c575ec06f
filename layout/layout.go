// Package layout positions the nodes of a decision tree in 2D space for a
// renderer. Positions depend only on the shape of the tree.
package layout

import (
	"dtree/tree"
)

const (
	DefaultHorizontalSpacing = 220.0
	DefaultVerticalSpacing   = 100.0
	DefaultAnchorOffset      = 30.0
)

type Options struct {
	HorizontalSpacing float64 `json:"horizontalSpacing" yaml:"horizontal_spacing" validate:"gt=0"`
	VerticalSpacing   float64 `json:"verticalSpacing" yaml:"vertical_spacing" validate:"gt=0"`
	AnchorOffset      float64 `json:"anchorOffset" yaml:"anchor_offset" validate:"gte=0"`
	OriginX           float64 `json:"originX" yaml:"origin_x"`
	OriginY           float64 `json:"originY" yaml:"origin_y"`
}

func DefaultOptions() Options {
	return Options{
		HorizontalSpacing: DefaultHorizontalSpacing,
		VerticalSpacing:   DefaultVerticalSpacing,
		AnchorOffset:      DefaultAnchorOffset,
	}
}

type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Position places one node. In and Out are where incoming and outgoing
// connectors attach.
type Position struct {
	ID    string  `json:"id"`
	Depth int     `json:"depth"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	In    Point   `json:"in"`
	Out   Point   `json:"out"`
}

type Connector struct {
	From  string `json:"from"`
	To    string `json:"to"`
	Start Point  `json:"start"`
	End   Point  `json:"end"`
}

type Layout struct {
	Nodes      []Position  `json:"nodes"` // Depth-first, parents before children
	Connectors []Connector `json:"connectors"`
	Width      float64     `json:"width"`
	Height     float64     `json:"height"`
}

// Find returns the position of a node.
func (l Layout) Find(id string) (Position, bool) {
	for _, p := range l.Nodes {
		if p.ID == id {
			return p, true
		}
	}
	return Position{}, false
}

// Compute lays the tree out left to right. Depth sets the horizontal
// coordinate. Leaves take consecutive vertical slots in depth-first order and
// every parent sits halfway between its first and last child.
func Compute(root *tree.Node, opts Options) Layout {
	l := Layout{
		Nodes:      []Position{},
		Connectors: []Connector{},
	}
	if root == nil {
		return l
	}

	slot := 0
	var place func(n *tree.Node, depth int) int
	place = func(n *tree.Node, depth int) int {
		index := len(l.Nodes)
		l.Nodes = append(l.Nodes, Position{ID: n.ID, Depth: depth})

		var y float64
		if n.IsLeaf() {
			y = opts.OriginY + float64(slot)*opts.VerticalSpacing
			slot++
		} else {
			first, last := 0, 0
			for i, child := range n.Children {
				ci := place(child, depth+1)
				if i == 0 {
					first = ci
				}
				last = ci
			}
			y = (l.Nodes[first].Y + l.Nodes[last].Y) / 2
		}

		x := opts.OriginX + float64(depth)*opts.HorizontalSpacing
		l.Nodes[index].X = x
		l.Nodes[index].Y = y
		l.Nodes[index].In = Point{X: x - opts.AnchorOffset, Y: y}
		l.Nodes[index].Out = Point{X: x + opts.AnchorOffset, Y: y}
		return index
	}
	place(root, 0)

	l.Connectors = connect(root, l.Nodes)
	l.Width = float64(tree.Depth(root)-1) * opts.HorizontalSpacing
	l.Height = float64(slot-1) * opts.VerticalSpacing
	return l
}

func connect(root *tree.Node, nodes []Position) []Connector {
	byID := make(map[string]Position, len(nodes))
	for _, p := range nodes {
		byID[p.ID] = p
	}

	connectors := []Connector{}
	var walk func(n *tree.Node)
	walk = func(n *tree.Node) {
		from := byID[n.ID]
		for _, child := range n.Children {
			to := byID[child.ID]
			connectors = append(connectors, Connector{
				From:  n.ID,
				To:    child.ID,
				Start: from.Out,
				End:   to.In,
			})
			walk(child)
		}
	}
	walk(root)
	return connectors
}
