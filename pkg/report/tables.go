package report

import (
	"os"

	"github.com/KMoex-HZ/Creditworthiness-Prediction-using-CART-and-Random-Forest/pkg/model"
	"github.com/KMoex-HZ/Creditworthiness-Prediction-using-CART-and-Random-Forest/pkg/stats"
	"github.com/gocarina/gocsv"
	"github.com/pkg/errors"
)

type importanceRow struct {
	Variable   string  `csv:"Variable"`
	Importance float64 `csv:"Importance"`
}

type cpRow struct {
	CP       float64 `csv:"CP"`
	NSplit   int     `csv:"nsplit"`
	RelError float64 `csv:"rel_error"`
	XError   float64 `csv:"xerror"`
	XStd     float64 `csv:"xstd"`
}

type numericRow struct {
	Variable string  `csv:"Variable"`
	N        int     `csv:"N"`
	Mean     float64 `csv:"Mean"`
	SD       float64 `csv:"SD"`
	Min      float64 `csv:"Min"`
	Q1       float64 `csv:"Q1"`
	Median   float64 `csv:"Median"`
	Q3       float64 `csv:"Q3"`
	Max      float64 `csv:"Max"`
	Outliers int     `csv:"Outliers"`
}

type levelRow struct {
	Variable string  `csv:"Variable"`
	Level    string  `csv:"Level"`
	Count    int     `csv:"Count"`
	Share    float64 `csv:"Share"`
	GoodRate float64 `csv:"Good_Rate"`
}

type correlationRow struct {
	A string  `csv:"Variable_A"`
	B string  `csv:"Variable_B"`
	R float64 `csv:"Pearson_R"`
}

func writeCSV(path string, rows interface{}) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "create %s", path)
	}
	if err := gocsv.MarshalFile(rows, f); err != nil {
		f.Close()
		return errors.Wrapf(err, "write %s", path)
	}
	return errors.Wrapf(f.Close(), "close %s", path)
}

// WriteComparison writes model_comparison.csv.
func WriteComparison(path string, c *ComparisonReport) error {
	rows := c.Rows()
	return writeCSV(path, &rows)
}

// WriteImportance writes the topN most important variables, highest first.
func WriteImportance(path string, imp []model.FeatureImportance, topN int) error {
	rows := make([]*importanceRow, 0, topN)
	for _, fi := range TopN(imp, topN) {
		rows = append(rows, &importanceRow{Variable: fi.Variable, Importance: fi.Importance})
	}
	return writeCSV(path, &rows)
}

// TopN returns the first n entries of an importance ranking.
func TopN(imp []model.FeatureImportance, n int) []model.FeatureImportance {
	if n > 0 && len(imp) > n {
		return imp[:n]
	}
	return imp
}

// WriteCPTable writes the cost-complexity table of the pruned tree.
func WriteCPTable(path string, table []model.CPRow) error {
	rows := make([]*cpRow, len(table))
	for i, r := range table {
		rows[i] = &cpRow{CP: r.CP, NSplit: r.NSplit, RelError: r.RelError, XError: r.XError, XStd: r.XStd}
	}
	return writeCSV(path, &rows)
}

// WriteNumericSummary writes the per-column numeric statistics.
func WriteNumericSummary(path string, s *stats.Summary) error {
	rows := make([]*numericRow, len(s.Numeric))
	for i, n := range s.Numeric {
		rows[i] = &numericRow{
			Variable: n.Variable, N: n.N, Mean: n.Mean, SD: n.SD,
			Min: n.Min, Q1: n.Q1, Median: n.Median, Q3: n.Q3, Max: n.Max,
			Outliers: n.Outliers,
		}
	}
	return writeCSV(path, &rows)
}

// WriteCategoricalSummary writes the level counts of every categorical column.
func WriteCategoricalSummary(path string, s *stats.Summary) error {
	rows := make([]*levelRow, len(s.Levels))
	for i, l := range s.Levels {
		rows[i] = &levelRow{Variable: l.Variable, Level: l.Level, Count: l.Count, Share: l.Share, GoodRate: l.GoodRate}
	}
	return writeCSV(path, &rows)
}

// WriteCorrelations writes the pairwise correlations of numeric columns.
func WriteCorrelations(path string, s *stats.Summary) error {
	rows := make([]*correlationRow, len(s.Correlations))
	for i, c := range s.Correlations {
		rows[i] = &correlationRow{A: c.A, B: c.B, R: c.R}
	}
	return writeCSV(path, &rows)
}
