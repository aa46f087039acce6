package ml

import (
	"math/rand"
	"sort"
)

// treeNode is a single CART node. Leaves carry the weighted human
// probability of the training samples that reached them.
type treeNode struct {
	leaf      bool
	probHuman float64

	feature   int
	threshold float64
	left      *treeNode
	right     *treeNode
}

// treeParams bound a single tree fit. Feature importance is accumulated into
// importance as weighted impurity decrease per split feature.
type treeParams struct {
	maxDepth    int
	minLeaf     int
	featuresPer int // features sampled per split (sqrt subsampling)
	rng         *rand.Rand
	importance  *[NumFeatures]float64
}

// fitTree grows a CART tree on the given rows using weighted Gini impurity.
// rows index into samples/labels/weights so bootstrap resampling stays cheap.
func fitTree(samples []FeatureVector, labels []bool, weights []float64, rows []int, p treeParams) *treeNode {
	return growNode(samples, labels, weights, rows, 0, p)
}

func growNode(samples []FeatureVector, labels []bool, weights []float64, rows []int, depth int, p treeParams) *treeNode {
	totalW, humanW := weightTotals(labels, weights, rows)
	node := &treeNode{probHuman: safeRatio(humanW, totalW)}

	if depth >= p.maxDepth || len(rows) < 2*p.minLeaf || humanW == 0 || humanW == totalW {
		node.leaf = true
		return node
	}

	feature, threshold, gain := bestSplit(samples, labels, weights, rows, p)
	if gain <= 0 {
		node.leaf = true
		return node
	}

	var leftRows, rightRows []int
	for _, r := range rows {
		if samples[r][feature] <= threshold {
			leftRows = append(leftRows, r)
		} else {
			rightRows = append(rightRows, r)
		}
	}
	if len(leftRows) < p.minLeaf || len(rightRows) < p.minLeaf {
		node.leaf = true
		return node
	}

	p.importance[feature] += gain

	node.feature = feature
	node.threshold = threshold
	node.left = growNode(samples, labels, weights, leftRows, depth+1, p)
	node.right = growNode(samples, labels, weights, rightRows, depth+1, p)
	return node
}

// bestSplit searches a random feature subset for the threshold with the
// largest weighted Gini impurity decrease.
func bestSplit(samples []FeatureVector, labels []bool, weights []float64, rows []int, p treeParams) (int, float64, float64) {
	totalW, humanW := weightTotals(labels, weights, rows)
	parentImpurity := giniImpurity(humanW, totalW)

	bestFeature := -1
	bestThreshold := 0.0
	bestGain := 0.0

	for _, f := range sampleFeatures(p.rng, p.featuresPer) {
		sorted := make([]int, len(rows))
		copy(sorted, rows)
		sort.Slice(sorted, func(i, j int) bool {
			return samples[sorted[i]][f] < samples[sorted[j]][f]
		})

		leftW, leftHumanW := 0.0, 0.0
		for i := 0; i < len(sorted)-1; i++ {
			r := sorted[i]
			leftW += weights[r]
			if labels[r] {
				leftHumanW += weights[r]
			}

			cur := samples[r][f]
			next := samples[sorted[i+1]][f]
			if cur == next {
				continue
			}

			rightW := totalW - leftW
			rightHumanW := humanW - leftHumanW
			childImpurity := (leftW*giniImpurity(leftHumanW, leftW) +
				rightW*giniImpurity(rightHumanW, rightW)) / totalW
			gain := (parentImpurity - childImpurity) * totalW

			if gain > bestGain {
				bestGain = gain
				bestFeature = f
				bestThreshold = (cur + next) / 2
			}
		}
	}

	return bestFeature, bestThreshold, bestGain
}

// sampleFeatures draws k distinct feature indices without replacement.
func sampleFeatures(rng *rand.Rand, k int) []int {
	perm := rng.Perm(NumFeatures)
	if k > NumFeatures {
		k = NumFeatures
	}
	return perm[:k]
}

func weightTotals(labels []bool, weights []float64, rows []int) (total, human float64) {
	for _, r := range rows {
		total += weights[r]
		if labels[r] {
			human += weights[r]
		}
	}
	return total, human
}

// giniImpurity for the two-class case: 2p(1-p).
func giniImpurity(humanW, totalW float64) float64 {
	if totalW == 0 {
		return 0
	}
	p := humanW / totalW
	return 2 * p * (1 - p)
}

func safeRatio(num, den float64) float64 {
	if den == 0 {
		return 0
	}
	return num / den
}

func (n *treeNode) predict(v FeatureVector) float64 {
	for !n.leaf {
		if v[n.feature] <= n.threshold {
			n = n.left
		} else {
			n = n.right
		}
	}
	return n.probHuman
}
