package loader

import (
	"fmt"
	"math"
	"math/rand"
	"sort"

	"github.com/KMoex-HZ/Creditworthiness-Prediction-using-CART-and-Random-Forest/pkg/data"
	"github.com/pkg/errors"
)

// InvalidFractionError is returned when a train fraction is outside (0,1).
type InvalidFractionError struct {
	Fraction float64
}

func (e *InvalidFractionError) Error() string {
	return fmt.Sprintf("loader: train fraction %v not in (0,1)", e.Fraction)
}

// StratifiedSplit partitions ds into train and test sets. Each label stratum
// is shuffled with a generator seeded by seed and round(n*trainFraction) of
// its records go to train. Both outputs keep the input order, so the same
// seed and input always give the same split.
func StratifiedSplit(ds *data.Dataset, trainFraction float64, seed int64) (train, test *data.Dataset, err error) {
	if !(trainFraction > 0 && trainFraction < 1) {
		return nil, nil, &InvalidFractionError{Fraction: trainFraction}
	}
	rnd := rand.New(rand.NewSource(seed))

	var trainIdx, testIdx []int
	for _, stratum := range ds.ByLabel() {
		perm := rnd.Perm(len(stratum))
		nTrain := int(math.Round(float64(len(stratum)) * trainFraction))
		for i, p := range perm {
			if i < nTrain {
				trainIdx = append(trainIdx, stratum[p])
			} else {
				testIdx = append(testIdx, stratum[p])
			}
		}
	}
	sort.Ints(trainIdx)
	sort.Ints(testIdx)
	return ds.Subset(trainIdx), ds.Subset(testIdx), nil
}

// StratifiedKFold yields k folds of row indices. Rows of each label are
// shuffled and dealt round-robin, so every fold carries both classes in
// roughly the source proportion.
func StratifiedKFold(labels []int, k int, seed int64) ([][]int, error) {
	if k < 2 {
		return nil, errors.Errorf("loader: need at least 2 folds, got %d", k)
	}
	if k > len(labels) {
		return nil, errors.Errorf("loader: %d folds for %d rows", k, len(labels))
	}
	rnd := rand.New(rand.NewSource(seed))

	var strata [2][]int
	for i, l := range labels {
		strata[l] = append(strata[l], i)
	}
	folds := make([][]int, k)
	next := 0
	for _, stratum := range strata {
		for _, p := range rnd.Perm(len(stratum)) {
			folds[next%k] = append(folds[next%k], stratum[p])
			next++
		}
	}
	for _, f := range folds {
		sort.Ints(f)
	}
	return folds, nil
}
