package model

import (
	"math"
	"sort"
	"sync"

	"github.com/KMoex-HZ/Creditworthiness-Prediction-using-CART-and-Random-Forest/pkg/loader"
	"github.com/montanaflynn/stats"
	"github.com/pkg/errors"
)

// CPRow is one line of the cost-complexity table. CP is scaled by the root
// error so the root-only tree sits at the largest CP. RelError, XError and
// XStd are relative to the root error as well.
type CPRow struct {
	CP       float64
	NSplit   int
	RelError float64
	XError   float64
	XStd     float64
}

// PruneCV prunes the fitted tree with the 1-SE rule. It computes the
// weakest-link complexity sequence, estimates the misclassification rate of
// every subtree in it by k-fold cross-validation (folds are trained
// concurrently), picks the simplest subtree whose error is within one
// standard error of the minimum and collapses everything below that CP.
// X and y must be the data the tree was fitted on.
func (t *DecisionTreeClassifier) PruneCV(X [][]float64, y []int, k int, seed int64) error {
	if t.Root == nil {
		return errors.New("dtree: tree not trained")
	}
	rows := complexityTable(t.Root)
	if len(rows) < 2 || k < 2 {
		t.CPTable = rows
		return nil
	}
	if k > len(y) {
		k = len(y)
	}
	folds, err := loader.StratifiedKFold(y, k, seed)
	if err != nil {
		return err
	}

	loss, err := t.crossValidate(X, y, folds, representativeCPs(rows))
	if err != nil {
		return err
	}
	rootRate := float64(t.Root.Errors()) / float64(len(y))
	for i := range rows {
		mean, _ := stats.Mean(loss[i])
		sd, err := stats.StandardDeviationSample(loss[i])
		if err != nil {
			sd = 0
		}
		rows[i].XError = mean / rootRate
		rows[i].XStd = sd / math.Sqrt(float64(len(y))) / rootRate
	}

	chosen := oneSE(rows)
	t.CPTable = rows
	t.SelectedCP = rows[chosen].CP
	t.Root = pruneTo(t.Root, t.SelectedCP)
	return nil
}

// oneSE returns the row of the simplest tree whose XError is within one
// standard error of the minimum. Rows are ordered by increasing NSplit.
func oneSE(rows []CPRow) int {
	best := 0
	for i, r := range rows {
		if r.XError < rows[best].XError {
			best = i
		}
	}
	limit := rows[best].XError + rows[best].XStd
	for i, r := range rows {
		if r.XError <= limit+1e-12 {
			return i
		}
	}
	return best
}

// crossValidate returns, per table row, the 0/1 loss of every record when
// predicted by a tree grown without its fold and pruned at that row's CP.
func (t *DecisionTreeClassifier) crossValidate(X [][]float64, y []int, folds [][]int, cps []float64) ([][]float64, error) {
	loss := make([][]float64, len(cps))
	for i := range loss {
		loss[i] = make([]float64, len(y))
	}

	var wg sync.WaitGroup
	errCh := make(chan error, len(folds))
	for f := range folds {
		wg.Add(1)
		go func(f int) {
			defer wg.Done()
			held := make(map[int]bool, len(folds[f]))
			for _, i := range folds[f] {
				held[i] = true
			}
			idx := make([]int, 0, len(y)-len(folds[f]))
			for i := range y {
				if !held[i] {
					idx = append(idx, i)
				}
			}

			cv := t.cloneConfig()
			if err := cv.FitIndices(X, y, idx); err != nil {
				errCh <- err
				return
			}
			annotateComplexity(cv.Root)
			// folds are disjoint, so each goroutine writes its own cells
			for r, cp := range cps {
				for _, i := range folds[f] {
					if int(cv.leaf(X[i], cp).label()) != y[i] {
						loss[r][i] = 1
					}
				}
			}
		}(f)
	}
	wg.Wait()
	close(errCh)
	for err := range errCh {
		if err != nil {
			return nil, err
		}
	}
	return loss, nil
}

func (t *DecisionTreeClassifier) cloneConfig() *DecisionTreeClassifier {
	return &DecisionTreeClassifier{
		MaxDepth:            t.MaxDepth,
		MinSamplesSplit:     t.MinSamplesSplit,
		MinSamplesLeaf:      t.MinSamplesLeaf,
		Criterion:           t.Criterion,
		MaxFeatures:         t.MaxFeatures,
		MinImpurityDecrease: t.MinImpurityDecrease,
		RandomState:         t.RandomState,
		Features:            t.Features,
		Kinds:               t.Kinds,
	}
}

// representativeCPs maps each row to the geometric mean of its CP and the
// next larger one; the root-only row maps to +Inf.
func representativeCPs(rows []CPRow) []float64 {
	out := make([]float64, len(rows))
	out[0] = math.Inf(1)
	for i := 1; i < len(rows); i++ {
		out[i] = math.Sqrt(rows[i].CP * rows[i-1].CP)
	}
	return out
}

// ---------------------------
// Weakest-link complexity sequence
// ---------------------------

// annotateComplexity sets CP on every internal node to the complexity at
// which the node is pruned away, and returns the increasing sequence of
// distinct CPs. After it runs, a node's CP never exceeds its parent's.
func annotateComplexity(root *Node) []float64 {
	walk(root, func(n *Node) {
		if !n.Leaf {
			n.CP = math.Inf(1)
		}
	})
	if root.Leaf {
		return nil
	}
	scale := float64(root.Errors())
	if scale == 0 {
		scale = 1
	}

	collapsed := make(map[*Node]bool)
	var cps []float64
	last := 0.0
	for !collapsed[root] {
		minG := math.Inf(1)
		visitInternal(root, collapsed, func(n *Node) {
			if g := linkStrength(n, collapsed) / scale; g < minG {
				minG = g
			}
		})
		alpha := math.Max(minG, last)
		visitInternal(root, collapsed, func(n *Node) {
			if linkStrength(n, collapsed)/scale <= alpha+1e-12 {
				collapsed[n] = true
				n.CP = alpha
			}
		})
		cps = append(cps, alpha)
		last = alpha
	}

	// nodes removed together with an ancestor inherit its CP
	var inherit func(n *Node, parent float64)
	inherit = func(n *Node, parent float64) {
		if n.Leaf {
			return
		}
		if n.CP > parent {
			n.CP = parent
		}
		inherit(n.Left, n.CP)
		inherit(n.Right, n.CP)
	}
	inherit(root, math.Inf(1))
	return cps
}

// visitInternal calls fn post-order on every internal node that has not been
// collapsed and has no collapsed ancestor.
func visitInternal(n *Node, collapsed map[*Node]bool, fn func(*Node)) {
	if n.Leaf || collapsed[n] {
		return
	}
	visitInternal(n.Left, collapsed, fn)
	visitInternal(n.Right, collapsed, fn)
	fn(n)
}

// linkStrength is g(t) = (R(t) - R(T_t)) / (|leaves(T_t)| - 1), the error
// added per removed leaf if the subtree at n were collapsed.
func linkStrength(n *Node, collapsed map[*Node]bool) float64 {
	errs, leaves := subtreeErrors(n, collapsed)
	return (float64(n.Errors()) - float64(errs)) / float64(leaves-1)
}

func subtreeErrors(n *Node, collapsed map[*Node]bool) (errs, leaves int) {
	if n.Leaf || collapsed[n] {
		return n.Errors(), 1
	}
	le, ll := subtreeErrors(n.Left, collapsed)
	re, rl := subtreeErrors(n.Right, collapsed)
	return le + re, ll + rl
}

// complexityTable annotates root and returns one row per distinct subtree
// of the pruning sequence, ordered root-only first.
func complexityTable(root *Node) []CPRow {
	cps := annotateComplexity(root)
	rootErr := float64(root.Errors())
	if rootErr == 0 {
		rootErr = 1
	}

	levels := append([]float64{0}, cps...)
	sort.Float64s(levels)
	var rows []CPRow
	for i := len(levels) - 1; i >= 0; i-- {
		cp := levels[i]
		if len(rows) > 0 && rows[len(rows)-1].CP == cp {
			continue
		}
		errs, leaves := prunedErrors(root, cp)
		rows = append(rows, CPRow{
			CP:       cp,
			NSplit:   leaves - 1,
			RelError: float64(errs) / rootErr,
		})
	}
	return rows
}

// prunedErrors returns training errors and leaf count of root pruned at cp.
func prunedErrors(n *Node, cp float64) (errs, leaves int) {
	if n.Leaf || n.CP <= cp {
		return n.Errors(), 1
	}
	le, ll := prunedErrors(n.Left, cp)
	re, rl := prunedErrors(n.Right, cp)
	return le + re, ll + rl
}

// pruneTo returns a copy of the tree with every node whose CP is at most cp
// turned into a leaf.
func pruneTo(n *Node, cp float64) *Node {
	c := *n
	if n.Leaf {
		return &c
	}
	if n.CP <= cp {
		c.Leaf = true
		c.Left, c.Right = nil, nil
		c.Route = nil
		c.Improvement = 0
		return &c
	}
	c.Left = pruneTo(n.Left, cp)
	c.Right = pruneTo(n.Right, cp)
	return &c
}

func (n *Node) label() int {
	if n.Proba() >= 0.5 {
		return 1
	}
	return 0
}
