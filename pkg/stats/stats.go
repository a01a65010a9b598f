// Package stats computes the descriptive summary of a credit dataset.
package stats

import (
	"github.com/KMoex-HZ/Creditworthiness-Prediction-using-CART-and-Random-Forest/pkg/data"
	"github.com/montanaflynn/stats"
	"github.com/pkg/errors"
)

// NumericSummary describes one numeric column. Outliers counts values beyond
// the 1.5·IQR fences.
type NumericSummary struct {
	Variable string
	N        int
	Mean     float64
	SD       float64
	Min      float64
	Q1       float64
	Median   float64
	Q3       float64
	Max      float64
	Outliers int
}

// LevelSummary describes one level of a categorical column.
type LevelSummary struct {
	Variable string
	Level    string
	Count    int
	Share    float64
	GoodRate float64
}

// Correlation is the Pearson correlation of two numeric columns.
type Correlation struct {
	A, B string
	R    float64
}

// Summary is the descriptive statistics of a dataset.
type Summary struct {
	Records      int
	LabelCounts  [2]int
	Numeric      []NumericSummary
	Levels       []LevelSummary
	Correlations []Correlation
}

// Describe summarises every column of ds. Columns are visited in schema
// order and levels in their encoded order.
func Describe(ds *data.Dataset) (*Summary, error) {
	if ds.Len() == 0 {
		return nil, errors.New("stats: empty dataset")
	}
	s := &Summary{Records: ds.Len(), LabelCounts: ds.LabelCounts()}

	var numCols []int
	cols := make([]stats.Float64Data, len(ds.Schema.Features))
	for j, c := range ds.Schema.Features {
		col := make(stats.Float64Data, ds.Len())
		for i, r := range ds.Records {
			col[i] = r.Values[j]
		}
		cols[j] = col

		if c.Kind == data.Categorical {
			s.Levels = append(s.Levels, describeLevels(ds, j)...)
			continue
		}
		ns, err := describeNumeric(c.Name, col)
		if err != nil {
			return nil, err
		}
		s.Numeric = append(s.Numeric, ns)
		numCols = append(numCols, j)
	}

	for a := 0; a < len(numCols); a++ {
		for b := a + 1; b < len(numCols); b++ {
			r, err := stats.Correlation(cols[numCols[a]], cols[numCols[b]])
			if err != nil {
				// constant column
				r = 0
			}
			s.Correlations = append(s.Correlations, Correlation{
				A: ds.Schema.Features[numCols[a]].Name,
				B: ds.Schema.Features[numCols[b]].Name,
				R: r,
			})
		}
	}
	return s, nil
}

func describeNumeric(name string, col stats.Float64Data) (NumericSummary, error) {
	ns := NumericSummary{Variable: name, N: len(col)}
	var err error
	if ns.Mean, err = stats.Mean(col); err != nil {
		return ns, err
	}
	if len(col) > 1 {
		if ns.SD, err = stats.StandardDeviationSample(col); err != nil {
			return ns, err
		}
	}
	if ns.Min, err = stats.Min(col); err != nil {
		return ns, err
	}
	if ns.Max, err = stats.Max(col); err != nil {
		return ns, err
	}
	if ns.Median, err = stats.Median(col); err != nil {
		return ns, err
	}
	if len(col) > 1 {
		q, err := stats.Quartile(col)
		if err != nil {
			return ns, err
		}
		ns.Q1, ns.Q3 = q.Q1, q.Q3
	} else {
		ns.Q1, ns.Q3 = ns.Median, ns.Median
	}

	iqr := ns.Q3 - ns.Q1
	lo, hi := ns.Q1-1.5*iqr, ns.Q3+1.5*iqr
	for _, v := range col {
		if v < lo || v > hi {
			ns.Outliers++
		}
	}
	return ns, nil
}

func describeLevels(ds *data.Dataset, j int) []LevelSummary {
	col := ds.Schema.Features[j]
	counts := make([]int, len(col.Levels))
	good := make([]int, len(col.Levels))
	for _, r := range ds.Records {
		l := int(r.Values[j])
		if l < 0 || l >= len(counts) {
			continue
		}
		counts[l]++
		if r.Label == data.Good {
			good[l]++
		}
	}
	out := make([]LevelSummary, len(col.Levels))
	for l, name := range col.Levels {
		out[l] = LevelSummary{
			Variable: col.Name,
			Level:    name,
			Count:    counts[l],
			Share:    float64(counts[l]) / float64(ds.Len()),
		}
		if counts[l] > 0 {
			out[l].GoodRate = float64(good[l]) / float64(counts[l])
		}
	}
	return out
}
