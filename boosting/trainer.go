package boosting

import (
	"math"
	"math/rand"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/mohsenim/carprice/pkg/errors"
	"github.com/mohsenim/carprice/pkg/log"
)

// TrainingParams contains the training hyperparameters.
type TrainingParams struct {
	NumIterations  int     `json:"num_iterations"`
	LearningRate   float64 `json:"learning_rate"`
	MaxDepth       int     `json:"max_depth"` // <= 0 means unlimited
	MinDataInLeaf  int     `json:"min_data_in_leaf"`
	Lambda         float64 `json:"lambda_l2"`
	MinGainToSplit float64 `json:"min_gain_to_split"`

	// Subsample is the fraction of rows drawn (without replacement) for
	// each boosting iteration. 1.0 disables bagging.
	Subsample float64 `json:"subsample"`

	Seed      int64 `json:"seed"`
	Verbosity int   `json:"verbosity"`
}

// SplitInfo describes a candidate split during tree construction.
type SplitInfo struct {
	Feature    int
	Threshold  float64
	Gain       float64
	LeftCount  int
	RightCount int
}

// Trainer fits a gradient boosted ensemble with the squared-error
// objective: gradient = prediction - target, hessian = 1.
type Trainer struct {
	params TrainingParams

	X *mat.Dense
	y []float64

	gradients   []float64
	hessians    []float64
	predictions []float64 // running ensemble output per training row

	trees     []Tree
	initScore float64
	iteration int
	rng       *rand.Rand
}

// NewTrainer creates a trainer, filling unset parameters with defaults.
func NewTrainer(params TrainingParams) *Trainer {
	if params.NumIterations == 0 {
		params.NumIterations = 100
	}
	if params.LearningRate == 0 {
		params.LearningRate = 0.1
	}
	if params.MinDataInLeaf == 0 {
		params.MinDataInLeaf = 20
	}
	if params.Subsample == 0 {
		params.Subsample = 1.0
	}
	if params.MinGainToSplit == 0 {
		params.MinGainToSplit = 1e-7
	}

	return &Trainer{
		params: params,
		rng:    rand.New(rand.NewSource(params.Seed)),
	}
}

// Fit trains the ensemble on X and the n×1 target matrix y.
func (t *Trainer) Fit(X, y mat.Matrix) error {
	rows, cols := X.Dims()
	yRows, yCols := y.Dims()
	if rows == 0 || cols == 0 {
		return errors.NewModelError("Trainer.Fit", "empty data", errors.ErrEmptyData)
	}
	if yRows != rows {
		return errors.NewDimensionError("Trainer.Fit", rows, yRows, 0)
	}
	if yCols != 1 {
		return errors.NewDimensionError("Trainer.Fit", 1, yCols, 1)
	}
	if t.params.Subsample <= 0 || t.params.Subsample > 1 {
		return errors.NewValidationError("Subsample", "must be in (0, 1]", t.params.Subsample)
	}

	t.X = mat.DenseCopyOf(X)
	t.y = make([]float64, rows)
	for i := 0; i < rows; i++ {
		t.y[i] = y.At(i, 0)
	}

	t.gradients = make([]float64, rows)
	t.hessians = make([]float64, rows)
	t.trees = t.trees[:0]

	// Base prediction: the target mean minimizes squared error.
	t.initScore = 0
	for _, v := range t.y {
		t.initScore += v
	}
	t.initScore /= float64(rows)

	t.predictions = make([]float64, rows)
	for i := range t.predictions {
		t.predictions[i] = t.initScore
	}

	logger := log.GetLoggerWithName("boosting.trainer")
	for iter := 0; iter < t.params.NumIterations; iter++ {
		t.iteration = iter
		t.calculateGradients()

		tree := t.buildTree(t.sampleRows())
		t.trees = append(t.trees, tree)
		t.updatePredictions(&tree)

		if t.params.Verbosity > 0 && iter%10 == 0 {
			logger.Debug("training progress",
				log.IterationKey, iter,
				log.LossKey, t.trainingLoss())
		}
	}

	return nil
}

// calculateGradients refreshes gradients and hessians from the cached
// ensemble predictions.
func (t *Trainer) calculateGradients() {
	for i := range t.y {
		t.gradients[i] = t.predictions[i] - t.y[i]
		t.hessians[i] = 1.0
	}
}

// sampleRows draws the bagging subset for the current iteration.
func (t *Trainer) sampleRows() []int {
	n := len(t.y)
	if t.params.Subsample >= 1.0 {
		indices := make([]int, n)
		for i := range indices {
			indices[i] = i
		}
		return indices
	}

	k := int(math.Round(float64(n) * t.params.Subsample))
	if k < 1 {
		k = 1
	}
	perm := t.rng.Perm(n)
	indices := perm[:k]
	sort.Ints(indices)
	return indices
}

// updatePredictions folds the new tree into the cached ensemble output.
func (t *Trainer) updatePredictions(tree *Tree) {
	_, cols := t.X.Dims()
	features := make([]float64, cols)
	for i := range t.predictions {
		for j := 0; j < cols; j++ {
			features[j] = t.X.At(i, j)
		}
		t.predictions[i] += tree.Predict(features)
	}
}

func (t *Trainer) trainingLoss() float64 {
	var loss float64
	for i := range t.y {
		diff := t.predictions[i] - t.y[i]
		loss += diff * diff
	}
	return loss / float64(len(t.y))
}

// buildTree constructs one regression tree on the sampled rows.
func (t *Trainer) buildTree(indices []int) Tree {
	tree := Tree{Nodes: []Node{}}
	t.buildNode(&tree, indices, 0)

	for i := range tree.Nodes {
		if tree.Nodes[i].IsLeaf() {
			tree.NumLeaves++
		}
	}
	return tree
}

// buildNode recursively grows tree nodes and returns the node index.
func (t *Trainer) buildNode(tree *Tree, indices []int, depth int) int {
	nodeIdx := len(tree.Nodes)

	if (t.params.MaxDepth > 0 && depth >= t.params.MaxDepth) ||
		len(indices) < 2*t.params.MinDataInLeaf {
		tree.Nodes = append(tree.Nodes, t.newLeaf(indices))
		return nodeIdx
	}

	bestSplit := t.findBestSplit(indices)
	if bestSplit.Gain < t.params.MinGainToSplit {
		tree.Nodes = append(tree.Nodes, t.newLeaf(indices))
		return nodeIdx
	}

	tree.Nodes = append(tree.Nodes, Node{
		SplitFeature: bestSplit.Feature,
		Threshold:    bestSplit.Threshold,
		Gain:         bestSplit.Gain,
		LeftChild:    -1,
		RightChild:   -1,
	})

	leftIndices, rightIndices := t.splitData(indices, bestSplit)
	leftChild := t.buildNode(tree, leftIndices, depth+1)
	rightChild := t.buildNode(tree, rightIndices, depth+1)

	tree.Nodes[nodeIdx].LeftChild = leftChild
	tree.Nodes[nodeIdx].RightChild = rightChild
	return nodeIdx
}

func (t *Trainer) newLeaf(indices []int) Node {
	return Node{
		LeftChild:  -1,
		RightChild: -1,
		LeafValue:  t.leafValue(indices) * t.params.LearningRate,
	}
}

// findBestSplit scans all features for the best gain split.
func (t *Trainer) findBestSplit(indices []int) SplitInfo {
	_, cols := t.X.Dims()
	bestSplit := SplitInfo{Gain: -math.MaxFloat64}

	for j := 0; j < cols; j++ {
		split := t.findBestSplitForFeature(indices, j)
		if split.Gain > bestSplit.Gain {
			bestSplit = split
		}
	}
	return bestSplit
}

// findBestSplitForFeature scans the sorted values of one feature.
func (t *Trainer) findBestSplitForFeature(indices []int, feature int) SplitInfo {
	type valueIdx struct {
		value float64
		idx   int
	}
	values := make([]valueIdx, len(indices))
	for i, idx := range indices {
		values[i] = valueIdx{value: t.X.At(idx, feature), idx: idx}
	}
	sort.Slice(values, func(i, j int) bool {
		return values[i].value < values[j].value
	})

	var totalGrad, totalHess float64
	for _, idx := range indices {
		totalGrad += t.gradients[idx]
		totalHess += t.hessians[idx]
	}

	bestSplit := SplitInfo{Feature: feature, Gain: -math.MaxFloat64}

	var leftGrad, leftHess float64
	leftCount := 0
	for i := 0; i < len(values)-1; i++ {
		idx := values[i].idx
		leftGrad += t.gradients[idx]
		leftHess += t.hessians[idx]
		leftCount++

		// No valid threshold between equal values.
		if values[i].value == values[i+1].value {
			continue
		}

		rightCount := len(indices) - leftCount
		if leftCount < t.params.MinDataInLeaf || rightCount < t.params.MinDataInLeaf {
			continue
		}

		gain := t.splitGain(leftGrad, leftHess, totalGrad-leftGrad, totalHess-leftHess, totalGrad, totalHess)
		if gain > bestSplit.Gain {
			bestSplit.Gain = gain
			bestSplit.Threshold = (values[i].value + values[i+1].value) / 2
			bestSplit.LeftCount = leftCount
			bestSplit.RightCount = rightCount
		}
	}

	return bestSplit
}

// splitGain is the standard second-order gain with L2 regularization.
func (t *Trainer) splitGain(leftGrad, leftHess, rightGrad, rightHess, totalGrad, totalHess float64) float64 {
	lambda := t.params.Lambda

	leftScore := (leftGrad * leftGrad) / (leftHess + lambda)
	rightScore := (rightGrad * rightGrad) / (rightHess + lambda)
	totalScore := (totalGrad * totalGrad) / (totalHess + lambda)

	return 0.5 * (leftScore + rightScore - totalScore)
}

func (t *Trainer) splitData(indices []int, split SplitInfo) ([]int, []int) {
	var leftIndices, rightIndices []int
	for _, idx := range indices {
		if t.X.At(idx, split.Feature) <= split.Threshold {
			leftIndices = append(leftIndices, idx)
		} else {
			rightIndices = append(rightIndices, idx)
		}
	}
	return leftIndices, rightIndices
}

// leafValue is the optimal leaf output under L2 regularization.
func (t *Trainer) leafValue(indices []int) float64 {
	var sumGrad, sumHess float64
	for _, idx := range indices {
		sumGrad += t.gradients[idx]
		sumHess += t.hessians[idx]
	}

	const epsilon = 1e-10
	if math.Abs(sumHess) < epsilon {
		sumHess = epsilon
	}
	return -sumGrad / (sumHess + t.params.Lambda + epsilon)
}

// GetModel returns the trained ensemble.
func (t *Trainer) GetModel() *Model {
	_, cols := t.X.Dims()
	return &Model{
		Trees:         t.trees,
		NumFeatures:   cols,
		InitScore:     t.initScore,
		LearningRate:  t.params.LearningRate,
		MaxDepth:      t.params.MaxDepth,
		NumIterations: len(t.trees),
	}
}
