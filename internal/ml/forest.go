package ml

import (
	"errors"
	"fmt"
)

// TreeNode is one node of a flattened decision tree. Internal nodes route
// x[FeatureIdx] <= Threshold to LeftChild, otherwise RightChild. Leaves carry
// per-class sample counts (or weights) in Value.
type TreeNode struct {
	FeatureIdx int       `json:"feature_idx"`
	Threshold  float64   `json:"threshold"`
	LeftChild  int       `json:"left_child"`
	RightChild int       `json:"right_child"`
	IsLeaf     bool      `json:"is_leaf"`
	Value      []float64 `json:"value,omitempty"`
}

// DecisionTree is a single fitted tree; node 0 is the root.
type DecisionTree struct {
	Nodes []TreeNode `json:"nodes"`
}

// RandomForest averages the normalized leaf distributions of its trees.
type RandomForest struct {
	Trees    []DecisionTree `json:"trees"`
	features int
	classes  int
}

func (dt *DecisionTree) leaf(x []float64) ([]float64, error) {
	if len(dt.Nodes) == 0 {
		return nil, errors.New("empty tree")
	}
	idx := 0
	// a valid tree reaches a leaf within len(Nodes) steps
	for steps := 0; steps <= len(dt.Nodes); steps++ {
		node := dt.Nodes[idx]
		if node.IsLeaf {
			return node.Value, nil
		}
		if x[node.FeatureIdx] <= node.Threshold {
			idx = node.LeftChild
		} else {
			idx = node.RightChild
		}
	}
	return nil, errors.New("tree contains a cycle")
}

func (dt *DecisionTree) validate(nFeatures, nClasses int) error {
	if len(dt.Nodes) == 0 {
		return errors.New("tree has no nodes")
	}
	for i, node := range dt.Nodes {
		if node.IsLeaf {
			if len(node.Value) != nClasses {
				return fmt.Errorf("leaf %d has %d class values, want %d", i, len(node.Value), nClasses)
			}
			for _, v := range node.Value {
				if v < 0 {
					return fmt.Errorf("leaf %d has a negative class value", i)
				}
			}
			continue
		}
		if node.FeatureIdx < 0 || node.FeatureIdx >= nFeatures {
			return fmt.Errorf("node %d: feature index %d out of range", i, node.FeatureIdx)
		}
		if node.LeftChild <= i || node.LeftChild >= len(dt.Nodes) ||
			node.RightChild <= i || node.RightChild >= len(dt.Nodes) {
			return fmt.Errorf("node %d: child index out of range", i)
		}
	}
	return nil
}

func (rf *RandomForest) init(nFeatures, nClasses int) error {
	if len(rf.Trees) == 0 {
		return fmt.Errorf("%w: random forest has no trees", ErrInvalidModel)
	}
	for i := range rf.Trees {
		if err := rf.Trees[i].validate(nFeatures, nClasses); err != nil {
			return fmt.Errorf("%w: tree %d: %v", ErrInvalidModel, i, err)
		}
	}
	rf.features = nFeatures
	rf.classes = nClasses
	return nil
}

// PredictProba returns the mean of each tree's normalized leaf distribution.
func (rf *RandomForest) PredictProba(x []float64) ([]float64, error) {
	if len(x) != rf.features {
		return nil, fmt.Errorf("expected %d features, got %d", rf.features, len(x))
	}
	proba := make([]float64, rf.classes)
	for i := range rf.Trees {
		value, err := rf.Trees[i].leaf(x)
		if err != nil {
			return nil, fmt.Errorf("tree %d: %w", i, err)
		}
		var total float64
		for _, v := range value {
			total += v
		}
		if total == 0 {
			continue
		}
		for c, v := range value {
			proba[c] += v / total
		}
	}
	for c := range proba {
		proba[c] /= float64(len(rf.Trees))
	}
	return proba, nil
}

func (rf *RandomForest) NumFeatures() int { return rf.features }
func (rf *RandomForest) NumClasses() int  { return rf.classes }
