package dataprep

import (
	"math"
	"math/rand"

	"github.com/KMoex-HZ/Creditworthiness-Prediction-using-CART-and-Random-Forest/pkg/data"
	"github.com/montanaflynn/stats"
	"github.com/pkg/errors"
)

// BalanceOptions configures Balance.
type BalanceOptions struct {
	Seed int64
	// Size is the number of records to generate; 0 means len(train).
	Size int
	// Jitter enables the smoothed bootstrap: numeric attributes of each drawn
	// record get Gaussian kernel noise. Without it Balance is plain random
	// oversampling with replacement.
	Jitter bool
	// Shrink scales the kernel bandwidth. 0 means 1.
	Shrink float64
}

// Balance synthesises a label-balanced training set from train using
// ROSE-style random oversampling. Half of the output is drawn from each
// class (an odd remainder goes to Good). Only train is read, and the result
// is a new dataset whose records point back at their source via Origin.
func Balance(train *data.Dataset, opts BalanceOptions) (*data.Dataset, error) {
	size := opts.Size
	if size == 0 {
		size = train.Len()
	}
	if size < 2 {
		return nil, errors.Errorf("dataprep: balanced size %d too small", size)
	}
	shrink := opts.Shrink
	if shrink == 0 {
		shrink = 1
	}

	byLabel := train.ByLabel()
	for _, l := range data.Labels {
		if len(byLabel[l]) == 0 {
			return nil, errors.Errorf("dataprep: no %s records to oversample", l)
		}
	}

	kinds := train.Schema.Kinds()
	targets := [2]int{size / 2, size - size/2}
	rnd := rand.New(rand.NewSource(opts.Seed))

	out := make([]data.Record, 0, size)
	for _, l := range data.Labels {
		members := byLabel[l]
		var h []float64
		if opts.Jitter {
			h = bandwidths(train, members, kinds, shrink)
		}
		for k := 0; k < targets[l]; k++ {
			src := train.Records[members[rnd.Intn(len(members))]]
			vals := make([]float64, len(src.Values))
			copy(vals, src.Values)
			for j, hj := range h {
				if hj > 0 {
					vals[j] += hj * rnd.NormFloat64()
				}
			}
			out = append(out, data.Record{
				ID:     len(out),
				Origin: src.Origin,
				Values: vals,
				Label:  src.Label,
			})
		}
	}
	return data.New(train.Schema, out), nil
}

// bandwidths returns the per-feature kernel width for one class: the
// normal-reference rule h_j = shrink * (4/((d+2)n))^(1/(d+4)) * sd_j over
// the d numeric features. Categorical features get 0.
func bandwidths(train *data.Dataset, members []int, kinds []data.Kind, shrink float64) []float64 {
	d := 0
	for _, k := range kinds {
		if k == data.Numeric {
			d++
		}
	}
	h := make([]float64, len(kinds))
	n := float64(len(members))
	if d == 0 || len(members) < 2 {
		return h
	}
	factor := shrink * math.Pow(4/((float64(d)+2)*n), 1/(float64(d)+4))

	col := make(stats.Float64Data, len(members))
	for j, k := range kinds {
		if k != data.Numeric {
			continue
		}
		for i, m := range members {
			col[i] = train.Records[m].Values[j]
		}
		sd, err := stats.StandardDeviationSample(col)
		if err != nil || math.IsNaN(sd) {
			continue
		}
		h[j] = factor * sd
	}
	return h
}
