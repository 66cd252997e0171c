// Package boosting implements gradient boosted regression trees with a
// squared-error objective: greedy exact splits, L2-regularized leaf
// values and shrinkage, plus per-iteration row subsampling.
package boosting

import (
	"gonum.org/v1/gonum/mat"

	"github.com/mohsenim/carprice/pkg/errors"
)

// Node is a single node in a regression tree. Leaf nodes have both
// child indices set to -1.
type Node struct {
	SplitFeature int     // feature index used for splitting
	Threshold    float64 // go left when value <= Threshold
	LeftChild    int
	RightChild   int
	LeafValue    float64 // shrinkage already applied
	Gain         float64 // loss reduction of the split
}

// IsLeaf reports whether the node is a leaf.
func (n *Node) IsLeaf() bool {
	return n.LeftChild == -1 && n.RightChild == -1
}

// Tree is one regression tree of the ensemble, nodes stored by index
// with the root at 0.
type Tree struct {
	Nodes     []Node
	NumLeaves int
}

// Predict returns the tree output for a single feature row.
func (t *Tree) Predict(features []float64) float64 {
	nodeID := 0
	for nodeID >= 0 && nodeID < len(t.Nodes) {
		node := &t.Nodes[nodeID]
		if node.IsLeaf() {
			return node.LeafValue
		}
		if features[node.SplitFeature] <= node.Threshold {
			nodeID = node.LeftChild
		} else {
			nodeID = node.RightChild
		}
	}
	return 0.0
}

// Model is a fitted ensemble. It is the unit of serialization: all
// fields needed to reproduce predictions are exported.
type Model struct {
	Trees         []Tree
	NumFeatures   int
	InitScore     float64 // base prediction, the training target mean
	LearningRate  float64
	MaxDepth      int
	NumIterations int
}

// PredictRow returns the ensemble prediction for one feature row.
func (m *Model) PredictRow(features []float64) float64 {
	pred := m.InitScore
	for i := range m.Trees {
		pred += m.Trees[i].Predict(features)
	}
	return pred
}

// Predict returns an n×1 matrix of predictions for X.
func (m *Model) Predict(X mat.Matrix) (*mat.Dense, error) {
	rows, cols := X.Dims()
	if cols != m.NumFeatures {
		return nil, errors.NewDimensionError("Model.Predict", m.NumFeatures, cols, 1)
	}

	predictions := mat.NewDense(rows, 1, nil)
	features := make([]float64, cols)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			features[j] = X.At(i, j)
		}
		predictions.Set(i, 0, m.PredictRow(features))
	}
	return predictions, nil
}
