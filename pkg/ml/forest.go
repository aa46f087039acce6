package ml

import (
	"fmt"
	"math"
	"math/rand"
)

// ForestConfig bounds a bagged forest fit.
type ForestConfig struct {
	Trees    int
	MaxDepth int
	MinLeaf  int
	Seed     int64
}

// DefaultForestConfig matches the historical production model: 100 bagged
// trees of depth 10.
func DefaultForestConfig() ForestConfig {
	return ForestConfig{
		Trees:    100,
		MaxDepth: 10,
		MinLeaf:  1,
		Seed:     42,
	}
}

// randomForest is an ensemble of bagged CART trees over behavior feature
// vectors. Class probabilities are the mean of per-tree leaf probabilities.
type randomForest struct {
	trees      []*treeNode
	importance [NumFeatures]float64
}

// fitForest trains the ensemble on scaled feature vectors. Sample weights
// correct class imbalance (balanced weighting over the training labels).
// Per-feature importance is total weighted impurity decrease, normalized to
// sum to 1 across the forest.
func fitForest(samples []FeatureVector, labels []bool, cfg ForestConfig) (*randomForest, error) {
	n := len(samples)
	if n < 2 {
		return nil, fmt.Errorf("%w: %d samples is not enough to fit a forest", ErrTrainingFailure, n)
	}

	humans := 0
	for _, l := range labels {
		if l {
			humans++
		}
	}
	if humans == 0 || humans == n {
		return nil, fmt.Errorf("%w: training partition contains a single class", ErrTrainingFailure)
	}

	// Balanced class weights: w_c = n / (2 * count_c), computed once on the
	// full training partition as the reference model did.
	humanWeight := float64(n) / (2 * float64(humans))
	botWeight := float64(n) / (2 * float64(n-humans))
	weights := make([]float64, n)
	for i, l := range labels {
		if l {
			weights[i] = humanWeight
		} else {
			weights[i] = botWeight
		}
	}

	rng := rand.New(rand.NewSource(cfg.Seed))
	featuresPer := int(math.Ceil(math.Sqrt(NumFeatures)))

	f := &randomForest{trees: make([]*treeNode, 0, cfg.Trees)}
	for t := 0; t < cfg.Trees; t++ {
		rows := make([]int, n)
		for i := range rows {
			rows[i] = rng.Intn(n)
		}
		tree := fitTree(samples, labels, weights, rows, treeParams{
			maxDepth:    cfg.MaxDepth,
			minLeaf:     cfg.MinLeaf,
			featuresPer: featuresPer,
			rng:         rng,
			importance:  &f.importance,
		})
		f.trees = append(f.trees, tree)
	}

	total := 0.0
	for _, imp := range f.importance {
		total += imp
	}
	if total > 0 {
		for i := range f.importance {
			f.importance[i] /= total
		}
	}

	return f, nil
}

// predictProba returns P(human) for a scaled feature vector.
func (f *randomForest) predictProba(v FeatureVector) float64 {
	sum := 0.0
	for _, t := range f.trees {
		sum += t.predict(v)
	}
	return sum / float64(len(f.trees))
}

// accuracy scores argmax predictions against labels.
func (f *randomForest) accuracy(samples []FeatureVector, labels []bool) float64 {
	if len(samples) == 0 {
		return 0
	}
	correct := 0
	for i, v := range samples {
		if (f.predictProba(v) >= 0.5) == labels[i] {
			correct++
		}
	}
	return float64(correct) / float64(len(samples))
}
