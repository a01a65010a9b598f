package model

import (
	"bytes"
	"encoding/gob"
	"math"
	"math/rand"
	"runtime"
	"sync"

	"github.com/KMoex-HZ/Creditworthiness-Prediction-using-CART-and-Random-Forest/pkg/data"
	"github.com/pkg/errors"
)

// RandomForest for classification
type RandomForest struct {
	// Hyperparameters / options
	NEstimators     int
	MaxDepth        int
	MinSamplesSplit int
	MinSamplesLeaf  int
	MaxFeatures     int // 0 => floor(sqrt(p))
	Bootstrap       bool
	RandomState     int64
	Workers         int // 0 => GOMAXPROCS

	Features []string
	Kinds    []data.Kind

	// Internal state
	Trees       []*DecisionTreeClassifier
	Importances []FeatureImportance
}

// RandomForestOption functional config for RandomForest
type RandomForestOption func(*RandomForest)

func WithNEstimators(n int) RandomForestOption { return func(rf *RandomForest) { rf.NEstimators = n } }
func WithBootstrap(b bool) RandomForestOption  { return func(rf *RandomForest) { rf.Bootstrap = b } }
func WithForestMaxFeatures(k int) RandomForestOption {
	return func(rf *RandomForest) { rf.MaxFeatures = k }
}
func WithForestMinSamplesLeaf(n int) RandomForestOption {
	return func(rf *RandomForest) { rf.MinSamplesLeaf = n }
}
func WithForestMaxDepth(d int) RandomForestOption { return func(rf *RandomForest) { rf.MaxDepth = d } }
func WithForestSeed(seed int64) RandomForestOption {
	return func(rf *RandomForest) { rf.RandomState = seed }
}
func WithWorkers(n int) RandomForestOption { return func(rf *RandomForest) { rf.Workers = n } }
func WithForestColumns(names []string, kinds []data.Kind) RandomForestOption {
	return func(rf *RandomForest) {
		rf.Features = names
		rf.Kinds = kinds
	}
}

// NewRandomForest initializes the forest with sensible defaults.
func NewRandomForest(opts ...RandomForestOption) *RandomForest {
	rf := &RandomForest{
		NEstimators:     500,
		MaxDepth:        0,
		MinSamplesSplit: 2,
		MinSamplesLeaf:  1,
		MaxFeatures:     0,
		Bootstrap:       true,
	}
	for _, o := range opts {
		o(rf)
	}
	return rf
}

// Name implements Classifier.
func (rf *RandomForest) Name() string { return "RandomForest" }

// Fit trains the random forest.
// It uses index-based sampling for memory efficiency.
func (rf *RandomForest) Fit(X [][]float64, y []int) error {
	if len(X) == 0 {
		return errors.New("randomforest: empty X")
	}
	n := len(X)
	if len(y) != n {
		return errors.New("randomforest: X and y length mismatch")
	}
	if rf.NEstimators < 1 {
		return errors.New("randomforest: need at least one tree")
	}
	p := len(X[0])
	mtry := rf.MaxFeatures
	if mtry <= 0 {
		mtry = int(math.Floor(math.Sqrt(float64(p))))
	}
	if mtry < 1 {
		mtry = 1
	}
	if mtry > p {
		mtry = p
	}

	// seeds are drawn up front so the forest does not depend on scheduling
	seedRand := rand.New(rand.NewSource(rf.RandomState))
	seeds := make([]int64, rf.NEstimators)
	for i := range seeds {
		seeds[i] = seedRand.Int63()
	}

	workers := rf.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	rf.Trees = make([]*DecisionTreeClassifier, rf.NEstimators)
	drop := make([][]float64, rf.NEstimators) // per tree OOB error increase per feature
	var wg sync.WaitGroup
	sem := make(chan struct{}, workers)
	errCh := make(chan error, rf.NEstimators)

	for i := 0; i < rf.NEstimators; i++ {
		wg.Add(1)
		sem <- struct{}{}
		go func(idx int) {
			defer wg.Done()
			defer func() { <-sem }()

			treeRand := rand.New(rand.NewSource(seeds[idx]))

			// Bootstrap sampling: create an index slice, not a copy of the data.
			sampleIndices := make([]int, n)
			inBag := make([]bool, n)
			for j := 0; j < n; j++ {
				if rf.Bootstrap {
					sampleIndices[j] = treeRand.Intn(n)
				} else {
					sampleIndices[j] = j
				}
				inBag[sampleIndices[j]] = true
			}

			tree := NewDecisionTreeClassifier(
				WithMaxDepth(rf.MaxDepth),
				WithMinSamplesSplit(rf.MinSamplesSplit),
				WithMinSamplesLeaf(rf.MinSamplesLeaf),
				WithMaxFeatures(mtry),
				WithRandomState(treeRand.Int63()),
				WithColumns(rf.Features, rf.Kinds),
				WithParallelSplits(false),
			)
			if err := tree.FitIndices(X, y, sampleIndices); err != nil {
				errCh <- err
				return
			}
			rf.Trees[idx] = tree

			var oob []int
			for j := 0; j < n; j++ {
				if !inBag[j] {
					oob = append(oob, j)
				}
			}
			drop[idx] = permutationDrop(tree, X, y, oob, p, treeRand)
		}(i)
	}
	wg.Wait()
	close(errCh)

	// Check for any errors from goroutines.
	for err := range errCh {
		if err != nil {
			return err
		}
	}

	rf.Importances = rf.aggregateImportance(drop, p)
	return nil
}

// permutationDrop returns, per feature, the increase in the tree's error on
// its out-of-bag rows after that feature's values are shuffled among them.
// It returns nil when the tree has no out-of-bag rows.
func permutationDrop(tree *DecisionTreeClassifier, X [][]float64, y []int, oob []int, p int, rnd *rand.Rand) []float64 {
	if len(oob) == 0 {
		return nil
	}
	base := oobError(tree, X, y, oob, -1, nil)
	out := make([]float64, p)
	for f := 0; f < p; f++ {
		perm := rnd.Perm(len(oob))
		out[f] = oobError(tree, X, y, oob, f, perm) - base
	}
	return out
}

func oobError(tree *DecisionTreeClassifier, X [][]float64, y []int, oob []int, f int, perm []int) float64 {
	row := make([]float64, len(X[0]))
	wrong := 0
	for a, i := range oob {
		copy(row, X[i])
		if f >= 0 {
			row[f] = X[oob[perm[a]]][f]
		}
		if int(tree.PredictLabel(row)) != y[i] {
			wrong++
		}
	}
	return float64(wrong) / float64(len(oob))
}

// aggregateImportance averages per-tree drops in tree order.
func (rf *RandomForest) aggregateImportance(drop [][]float64, p int) []FeatureImportance {
	sum := make([]float64, p)
	used := 0
	for _, d := range drop {
		if d == nil {
			continue
		}
		used++
		for f, v := range d {
			sum[f] += v
		}
	}
	score := make(map[int]float64, p)
	for f := range sum {
		if used > 0 {
			score[f] = sum[f] / float64(used)
		} else {
			score[f] = 0
		}
	}
	return rankImportance(rf.Features, score)
}

// PredictProba averages the leaf Good frequency over all trees.
func (rf *RandomForest) PredictProba(x []float64) float64 {
	if len(rf.Trees) == 0 {
		return 0.5
	}
	s := 0.0
	for _, t := range rf.Trees {
		s += t.PredictProba(x)
	}
	return s / float64(len(rf.Trees))
}

// VoteShare returns the fraction of trees voting Good for x.
func (rf *RandomForest) VoteShare(x []float64) float64 {
	if len(rf.Trees) == 0 {
		return 0.5
	}
	good := 0
	for _, t := range rf.Trees {
		if t.PredictLabel(x) == data.Good {
			good++
		}
	}
	return float64(good) / float64(len(rf.Trees))
}

// PredictLabel returns the majority vote of all trees. An exact tie goes to Good.
func (rf *RandomForest) PredictLabel(x []float64) data.Label {
	if rf.VoteShare(x) >= 0.5 {
		return data.Good
	}
	return data.Bad
}

// Importance returns the out-of-bag permutation importance computed by Fit.
func (rf *RandomForest) Importance() []FeatureImportance {
	return append([]FeatureImportance(nil), rf.Importances...)
}

// forestState is the gob wire form of a fitted forest.
type forestState struct {
	NEstimators     int
	MaxDepth        int
	MinSamplesSplit int
	MinSamplesLeaf  int
	MaxFeatures     int
	Bootstrap       bool
	RandomState     int64
	Features        []string
	Kinds           []data.Kind
	Trees           []*DecisionTreeClassifier
	Importances     []FeatureImportance
}

// MarshalBinary implements encoding.BinaryMarshaler.
func (rf *RandomForest) MarshalBinary() ([]byte, error) {
	var buf bytes.Buffer
	err := gob.NewEncoder(&buf).Encode(forestState{
		NEstimators:     rf.NEstimators,
		MaxDepth:        rf.MaxDepth,
		MinSamplesSplit: rf.MinSamplesSplit,
		MinSamplesLeaf:  rf.MinSamplesLeaf,
		MaxFeatures:     rf.MaxFeatures,
		Bootstrap:       rf.Bootstrap,
		RandomState:     rf.RandomState,
		Features:        rf.Features,
		Kinds:           rf.Kinds,
		Trees:           rf.Trees,
		Importances:     rf.Importances,
	})
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler.
func (rf *RandomForest) UnmarshalBinary(b []byte) error {
	var s forestState
	if err := gob.NewDecoder(bytes.NewReader(b)).Decode(&s); err != nil {
		return err
	}
	*rf = RandomForest{
		NEstimators:     s.NEstimators,
		MaxDepth:        s.MaxDepth,
		MinSamplesSplit: s.MinSamplesSplit,
		MinSamplesLeaf:  s.MinSamplesLeaf,
		MaxFeatures:     s.MaxFeatures,
		Bootstrap:       s.Bootstrap,
		RandomState:     s.RandomState,
		Features:        s.Features,
		Kinds:           s.Kinds,
		Trees:           s.Trees,
		Importances:     s.Importances,
	}
	return nil
}
