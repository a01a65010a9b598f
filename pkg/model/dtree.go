package model

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"math"
	"math/rand"
	"sort"
	"sync"

	"github.com/KMoex-HZ/Creditworthiness-Prediction-using-CART-and-Random-Forest/pkg/data"
	"github.com/pkg/errors"
)

// ---------------------------
// Types & options
// ---------------------------

// DecisionTreeClassifier is a binary CART classifier over Bad/Good labels.
type DecisionTreeClassifier struct {
	// Hyperparameters / options
	MaxDepth            int     // maximum depth (root depth = 0). 0 => no limit
	MinSamplesSplit     int     // minimum samples to attempt a split
	MinSamplesLeaf      int     // minimum samples required in each leaf
	Criterion           string  // "gini" (default) or "entropy"
	MaxFeatures         int     // 0 => use all features, >0 => number of features to sample at each split
	MinImpurityDecrease float64 // minimal impurity decrease to accept a split
	RandomState         int64   // seed for feature subsampling

	// Features and Kinds describe the input columns. Nil Kinds means all numeric.
	Features []string
	Kinds    []data.Kind

	Root *Node

	// Filled in by PruneCV.
	CPTable    []CPRow
	SelectedCP float64

	parallel bool // fan the per-node split search out over features
}

// Node is one node of a fitted tree. Exported for gob.
type Node struct {
	Leaf bool

	// split: numeric x <= Threshold goes left; categorical uses Route
	Feature     int
	Threshold   float64
	Categorical bool
	Route       []int8 // per level: -1 left, 1 right, 0 unseen during training
	Left        *Node
	Right       *Node

	N           int
	Counts      [2]int  // Bad, Good
	Improvement float64 // N * impurity decrease of the split
	CP          float64 // complexity at which this subtree collapses into a leaf
}

// Proba is the node's Good frequency.
func (n *Node) Proba() float64 {
	if n.N == 0 {
		return 0.5
	}
	return float64(n.Counts[data.Good]) / float64(n.N)
}

// Errors is the number of training records the node misclassifies as a leaf.
func (n *Node) Errors() int {
	if n.Counts[data.Good] >= n.Counts[data.Bad] {
		return n.Counts[data.Bad]
	}
	return n.Counts[data.Good]
}

// Option functional config
type Option func(*DecisionTreeClassifier)

func WithMaxDepth(d int) Option { return func(t *DecisionTreeClassifier) { t.MaxDepth = d } }
func WithMinSamplesSplit(n int) Option {
	return func(t *DecisionTreeClassifier) { t.MinSamplesSplit = n }
}
func WithMinSamplesLeaf(n int) Option {
	return func(t *DecisionTreeClassifier) { t.MinSamplesLeaf = n }
}
func WithCriterion(c string) Option { return func(t *DecisionTreeClassifier) { t.Criterion = c } }
func WithMaxFeatures(k int) Option  { return func(t *DecisionTreeClassifier) { t.MaxFeatures = k } }
func WithMinImpurityDecrease(v float64) Option {
	return func(t *DecisionTreeClassifier) { t.MinImpurityDecrease = v }
}
func WithRandomState(seed int64) Option {
	return func(t *DecisionTreeClassifier) { t.RandomState = seed }
}

// WithColumns sets the feature names and kinds.
func WithColumns(names []string, kinds []data.Kind) Option {
	return func(t *DecisionTreeClassifier) {
		t.Features = names
		t.Kinds = kinds
	}
}

// WithParallelSplits toggles the per-feature goroutine fan-out.
func WithParallelSplits(on bool) Option {
	return func(t *DecisionTreeClassifier) { t.parallel = on }
}

// NewDecisionTreeClassifier returns a classifier with loose (overgrowing) defaults.
func NewDecisionTreeClassifier(opts ...Option) *DecisionTreeClassifier {
	d := &DecisionTreeClassifier{
		MaxDepth:            0,
		MinSamplesSplit:     2,
		MinSamplesLeaf:      1,
		Criterion:           "gini",
		MaxFeatures:         0,
		MinImpurityDecrease: 0.0,
		parallel:            true,
	}
	for _, o := range opts {
		o(d)
	}
	return d
}

// ---------------------------
// Public API
// ---------------------------

// Name implements Classifier.
func (t *DecisionTreeClassifier) Name() string { return "CART" }

// Fit trains the tree on X (n x p) and class indices y (0 = Bad, 1 = Good).
func (t *DecisionTreeClassifier) Fit(X [][]float64, y []int) error {
	idx := make([]int, len(X))
	for i := range idx {
		idx[i] = i
	}
	return t.FitIndices(X, y, idx)
}

// FitIndices trains on the rows of X listed in idx. Rows may repeat
// (bootstrap samples).
func (t *DecisionTreeClassifier) FitIndices(X [][]float64, y []int, idx []int) error {
	if len(X) == 0 || len(idx) == 0 {
		return errors.New("dtree: empty X")
	}
	if len(y) != len(X) {
		return errors.New("dtree: X and y length mismatch")
	}
	p := len(X[0])
	for i := range X {
		if len(X[i]) != p {
			return errors.New("dtree: inconsistent number of features in X rows")
		}
	}
	for _, l := range y {
		if l != int(data.Bad) && l != int(data.Good) {
			return errors.New("dtree: labels must be 0 (Bad) or 1 (Good)")
		}
	}
	if t.Kinds != nil && len(t.Kinds) != p {
		return errors.New("dtree: kinds do not match number of features")
	}

	rnd := rand.New(rand.NewSource(t.RandomState))
	t.CPTable = nil
	t.SelectedCP = 0
	t.Root = t.buildNode(X, y, append([]int(nil), idx...), 0, p, rnd)
	return nil
}

// PredictProba returns P(Good) from the leaf x falls into.
func (t *DecisionTreeClassifier) PredictProba(x []float64) float64 {
	return t.leaf(x, -1).Proba()
}

// PredictLabel returns Good iff PredictProba(x) >= 0.5.
func (t *DecisionTreeClassifier) PredictLabel(x []float64) data.Label {
	if t.PredictProba(x) >= 0.5 {
		return data.Good
	}
	return data.Bad
}

// NumLeaves counts the leaves of the fitted tree.
func (t *DecisionTreeClassifier) NumLeaves() int {
	if t.Root == nil {
		return 0
	}
	return countLeaves(t.Root, -1)
}

// Importance sums the split improvements of each feature over the tree.
func (t *DecisionTreeClassifier) Importance() []FeatureImportance {
	score := make(map[int]float64)
	walk(t.Root, func(n *Node) {
		if !n.Leaf {
			score[n.Feature] += n.Improvement
		}
	})
	return rankImportance(t.Features, score)
}

// treeState is the gob wire form of a fitted tree.
type treeState struct {
	MaxDepth            int
	MinSamplesSplit     int
	MinSamplesLeaf      int
	Criterion           string
	MaxFeatures         int
	MinImpurityDecrease float64
	RandomState         int64
	Features            []string
	Kinds               []data.Kind
	CPTable             []CPRow
	SelectedCP          float64
	Root                *Node
}

// MarshalBinary implements encoding.BinaryMarshaler using gob.
func (t *DecisionTreeClassifier) MarshalBinary() ([]byte, error) {
	if t.Root == nil {
		return nil, errors.New("dtree: tree not trained")
	}
	var buf bytes.Buffer
	err := gob.NewEncoder(&buf).Encode(treeState{
		MaxDepth:            t.MaxDepth,
		MinSamplesSplit:     t.MinSamplesSplit,
		MinSamplesLeaf:      t.MinSamplesLeaf,
		Criterion:           t.Criterion,
		MaxFeatures:         t.MaxFeatures,
		MinImpurityDecrease: t.MinImpurityDecrease,
		RandomState:         t.RandomState,
		Features:            t.Features,
		Kinds:               t.Kinds,
		CPTable:             t.CPTable,
		SelectedCP:          t.SelectedCP,
		Root:                t.Root,
	})
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler using gob.
func (t *DecisionTreeClassifier) UnmarshalBinary(b []byte) error {
	var st treeState
	if err := gob.NewDecoder(bytes.NewReader(b)).Decode(&st); err != nil {
		return err
	}
	*t = DecisionTreeClassifier{
		MaxDepth:            st.MaxDepth,
		MinSamplesSplit:     st.MinSamplesSplit,
		MinSamplesLeaf:      st.MinSamplesLeaf,
		Criterion:           st.Criterion,
		MaxFeatures:         st.MaxFeatures,
		MinImpurityDecrease: st.MinImpurityDecrease,
		RandomState:         st.RandomState,
		Features:            st.Features,
		Kinds:               st.Kinds,
		CPTable:             st.CPTable,
		SelectedCP:          st.SelectedCP,
		Root:                st.Root,
	}
	return nil
}

// ---------------------------
// Internal builders & helpers
// ---------------------------

// splitResult holds the best split found for a single feature.
type splitResult struct {
	gain        float64
	feature     int
	threshold   float64
	categorical bool
	route       []int8
	leftIdx     []int
	rightIdx    []int
}

// pair is a value and the row it came from.
type pair struct {
	v float64
	i int
}

func (t *DecisionTreeClassifier) impurity(c [2]int) float64 {
	if t.Criterion == "entropy" {
		return entropyFromCounts(c)
	}
	return giniFromCounts(c)
}

func (t *DecisionTreeClassifier) kind(f int) data.Kind {
	if t.Kinds == nil {
		return data.Numeric
	}
	return t.Kinds[f]
}

func (t *DecisionTreeClassifier) buildNode(X [][]float64, y []int, idx []int, depth, p int, rnd *rand.Rand) *Node {
	counts := countsFromIndices(y, idx)
	node := &Node{N: len(idx), Counts: counts, Leaf: true}

	// make leaf if pure or too few samples or depth reached
	if isPure(counts) || len(idx) < t.MinSamplesSplit || len(idx) < 2*max(t.MinSamplesLeaf, 1) {
		return node
	}
	if t.MaxDepth > 0 && depth >= t.MaxDepth {
		return node
	}

	// determine features to try
	featIndices := make([]int, p)
	for j := 0; j < p; j++ {
		featIndices[j] = j
	}
	if t.MaxFeatures > 0 && t.MaxFeatures < p {
		for i := 0; i < t.MaxFeatures; i++ {
			j := i + rnd.Intn(p-i)
			featIndices[i], featIndices[j] = featIndices[j], featIndices[i]
		}
		featIndices = featIndices[:t.MaxFeatures]
		sort.Ints(featIndices)
	}

	parentImpurity := t.impurity(counts)
	results := make([]splitResult, len(featIndices))
	if t.parallel && len(featIndices) > 1 {
		var wg sync.WaitGroup
		for k, f := range featIndices {
			wg.Add(1)
			go func(k, f int) {
				defer wg.Done()
				results[k] = t.findBestSplitForFeature(X, y, idx, f, counts, parentImpurity)
			}(k, f)
		}
		wg.Wait()
	} else {
		for k, f := range featIndices {
			results[k] = t.findBestSplitForFeature(X, y, idx, f, counts, parentImpurity)
		}
	}

	// strict comparison keeps the lowest feature index on ties
	best := splitResult{feature: -1}
	for _, r := range results {
		if r.feature >= 0 && r.gain > best.gain {
			best = r
		}
	}
	if best.feature == -1 || best.gain <= 0 || best.gain < t.MinImpurityDecrease {
		return node
	}

	node.Leaf = false
	node.Feature = best.feature
	node.Threshold = best.threshold
	node.Categorical = best.categorical
	node.Route = best.route
	node.Improvement = float64(len(idx)) * best.gain
	node.CP = math.Inf(1)
	node.Left = t.buildNode(X, y, best.leftIdx, depth+1, p, rnd)
	node.Right = t.buildNode(X, y, best.rightIdx, depth+1, p, rnd)
	return node
}

// findBestSplitForFeature scans every admissible split of feature f.
func (t *DecisionTreeClassifier) findBestSplitForFeature(X [][]float64, y []int, idx []int, f int, counts [2]int, parentImpurity float64) splitResult {
	if t.kind(f) == data.Categorical {
		return t.bestCategoricalSplit(X, y, idx, f, counts, parentImpurity)
	}
	return t.bestNumericSplit(X, y, idx, f, counts, parentImpurity)
}

func (t *DecisionTreeClassifier) bestNumericSplit(X [][]float64, y []int, idx []int, f int, counts [2]int, parentImpurity float64) splitResult {
	result := splitResult{feature: -1}

	valid := make([]pair, len(idx))
	for k, ii := range idx {
		valid[k] = pair{X[ii][f], ii}
	}
	sort.SliceStable(valid, func(a, b int) bool { return valid[a].v < valid[b].v })

	n := len(valid)
	minLeaf := max(t.MinSamplesLeaf, 1)
	var left [2]int
	bestAt := -1
	for s := 1; s < n; s++ {
		left[y[valid[s-1].i]]++
		if valid[s].v == valid[s-1].v {
			continue
		}
		if s < minLeaf || n-s < minLeaf {
			continue
		}
		right := [2]int{counts[0] - left[0], counts[1] - left[1]}
		gain := parentImpurity - t.weighted(left, right, n)
		if gain > result.gain {
			result.gain = gain
			result.feature = f
			result.threshold = (valid[s-1].v + valid[s].v) / 2.0
			bestAt = s
		}
	}
	if bestAt < 0 {
		return splitResult{feature: -1}
	}
	result.leftIdx = indicesFromPairs(valid[:bestAt])
	result.rightIdx = indicesFromPairs(valid[bestAt:])
	return result
}

// bestCategoricalSplit orders the levels present at the node by their Good
// share; for two classes the best subset split is a prefix of that order.
func (t *DecisionTreeClassifier) bestCategoricalSplit(X [][]float64, y []int, idx []int, f int, counts [2]int, parentImpurity float64) splitResult {
	result := splitResult{feature: -1}

	nLevels := 0
	for _, ii := range idx {
		if l := int(X[ii][f]) + 1; l > nLevels {
			nLevels = l
		}
	}
	perLevel := make([][2]int, nLevels)
	for _, ii := range idx {
		perLevel[int(X[ii][f])][y[ii]]++
	}
	var present []int
	for l, c := range perLevel {
		if c[0]+c[1] > 0 {
			present = append(present, l)
		}
	}
	if len(present) < 2 {
		return result
	}
	share := func(l int) float64 {
		c := perLevel[l]
		return float64(c[1]) / float64(c[0]+c[1])
	}
	sort.SliceStable(present, func(a, b int) bool { return share(present[a]) < share(present[b]) })

	n := len(idx)
	minLeaf := max(t.MinSamplesLeaf, 1)
	var left [2]int
	bestCut := -1
	for s := 1; s < len(present); s++ {
		c := perLevel[present[s-1]]
		left[0] += c[0]
		left[1] += c[1]
		nl := left[0] + left[1]
		if nl < minLeaf || n-nl < minLeaf {
			continue
		}
		right := [2]int{counts[0] - left[0], counts[1] - left[1]}
		gain := parentImpurity - t.weighted(left, right, n)
		if gain > result.gain {
			result.gain = gain
			result.feature = f
			bestCut = s
		}
	}
	if bestCut < 0 {
		return splitResult{feature: -1}
	}

	route := make([]int8, nLevels)
	for s, l := range present {
		if s < bestCut {
			route[l] = -1
		} else {
			route[l] = 1
		}
	}
	result.categorical = true
	result.route = route
	for _, ii := range idx {
		if route[int(X[ii][f])] < 0 {
			result.leftIdx = append(result.leftIdx, ii)
		} else {
			result.rightIdx = append(result.rightIdx, ii)
		}
	}
	return result
}

func (t *DecisionTreeClassifier) weighted(left, right [2]int, n int) float64 {
	nl := float64(left[0] + left[1])
	nr := float64(right[0] + right[1])
	return (nl/float64(n))*t.impurity(left) + (nr/float64(n))*t.impurity(right)
}

func indicesFromPairs(pairs []pair) []int {
	out := make([]int, 0, len(pairs))
	for _, p := range pairs {
		out = append(out, p.i)
	}
	return out
}

func countsFromIndices(y []int, idx []int) [2]int {
	var counts [2]int
	for _, ii := range idx {
		counts[y[ii]]++
	}
	return counts
}

// ---------------------------
// Prediction helper
// ---------------------------

// goesLeft reports the branch x takes at an internal node.
func (n *Node) goesLeft(x []float64) bool {
	v := x[n.Feature]
	if !n.Categorical {
		return v <= n.Threshold
	}
	l := int(v)
	if l >= 0 && l < len(n.Route) && n.Route[l] != 0 {
		return n.Route[l] < 0
	}
	// level not seen at this node: follow the larger child
	return n.Left.N >= n.Right.N
}

// leaf walks x down the tree, stopping early at nodes whose CP is at most
// cp. A negative cp walks the whole tree.
func (t *DecisionTreeClassifier) leaf(x []float64, cp float64) *Node {
	if t.Root == nil {
		return &Node{}
	}
	node := t.Root
	for !node.Leaf && node.CP > cp {
		if node.goesLeft(x) {
			node = node.Left
		} else {
			node = node.Right
		}
	}
	return node
}

// ---------------------------
// Utilities: impurity & misc
// ---------------------------

func giniFromCounts(counts [2]int) float64 {
	n := float64(counts[0] + counts[1])
	if n == 0 {
		return 0
	}
	res := 0.0
	for _, c := range counts {
		p := float64(c) / n
		res += p * (1 - p)
	}
	return res
}

func entropyFromCounts(counts [2]int) float64 {
	n := float64(counts[0] + counts[1])
	if n == 0 {
		return 0
	}
	res := 0.0
	for _, c := range counts {
		if c == 0 {
			continue
		}
		p := float64(c) / n
		res -= p * math.Log2(p)
	}
	return res
}

func isPure(counts [2]int) bool {
	return counts[0] == 0 || counts[1] == 0
}

func walk(n *Node, fn func(*Node)) {
	if n == nil {
		return
	}
	fn(n)
	if !n.Leaf {
		walk(n.Left, fn)
		walk(n.Right, fn)
	}
}

// countLeaves counts leaves of the subtree pruned at cp (cp < 0: unpruned).
func countLeaves(n *Node, cp float64) int {
	if n.Leaf || n.CP <= cp {
		return 1
	}
	return countLeaves(n.Left, cp) + countLeaves(n.Right, cp)
}

func rankImportance(names []string, score map[int]float64) []FeatureImportance {
	out := make([]FeatureImportance, 0, len(score))
	for f, s := range score {
		name := fmt.Sprintf("x%d", f)
		if f < len(names) {
			name = names[f]
		}
		out = append(out, FeatureImportance{Variable: name, Importance: s})
	}
	sort.Slice(out, func(a, b int) bool {
		if out[a].Importance != out[b].Importance {
			return out[a].Importance > out[b].Importance
		}
		return out[a].Variable < out[b].Variable
	})
	return out
}
