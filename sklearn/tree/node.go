// Package tree implements CART decision trees (regressor and classifier) with a
// scikit-learn compatible parameter surface.
//
// A fitted tree is exposed as a linked binary structure: every Node is either a
// leaf (Left == Right == nil) carrying a prediction value, or an internal split
// that sends a sample left when X[Feature] <= Threshold and right otherwise.
package tree

// Node is one node of a fitted decision tree.
type Node struct {
	// Feature is the column index tested by an internal node; -1 for leaves.
	Feature int
	// Threshold is the split value; samples with X[Feature] <= Threshold go left.
	Threshold float64
	Left      *Node
	Right     *Node

	// Value is the node prediction: one element for regression, the class
	// probabilities for classification.
	Value []float64
	// Impurity is the criterion value of the samples reaching the node.
	Impurity float64
	// NSamples is the number of training samples reaching the node.
	NSamples int
	// Depth is the distance from the root (root = 0).
	Depth int
}

// IsLeaf reports whether the node is terminal.
func (n *Node) IsLeaf() bool {
	return n.Left == nil && n.Right == nil
}

// Tree is a fitted decision tree.
type Tree struct {
	Root      *Node
	NFeatures int
	// NOutputs is 1 for regression and the number of classes for classification.
	NOutputs int
}

// Apply returns the leaf reached by row.
func (t *Tree) Apply(row []float64) *Node {
	n := t.Root
	for !n.IsLeaf() {
		if row[n.Feature] <= n.Threshold {
			n = n.Left
		} else {
			n = n.Right
		}
	}
	return n
}

// Leaves returns the leaves in left-to-right order.
func (t *Tree) Leaves() []*Node {
	var leaves []*Node
	var walk func(n *Node)
	walk = func(n *Node) {
		if n.IsLeaf() {
			leaves = append(leaves, n)
			return
		}
		walk(n.Left)
		walk(n.Right)
	}
	if t.Root != nil {
		walk(t.Root)
	}
	return leaves
}

// Depth returns the maximum leaf depth.
func (t *Tree) Depth() int {
	depth := 0
	for _, leaf := range t.Leaves() {
		if leaf.Depth > depth {
			depth = leaf.Depth
		}
	}
	return depth
}

// NLeaves returns the number of leaves.
func (t *Tree) NLeaves() int {
	return len(t.Leaves())
}

// NodeCount returns the total number of nodes.
func (t *Tree) NodeCount() int {
	count := 0
	var walk func(n *Node)
	walk = func(n *Node) {
		if n == nil {
			return
		}
		count++
		walk(n.Left)
		walk(n.Right)
	}
	walk(t.Root)
	return count
}
