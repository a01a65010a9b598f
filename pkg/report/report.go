// Package report renders the model comparison: CSV tables, charts, the
// pruned tree diagram, the run manifest and the console summary.
package report

import (
	"math"

	"github.com/KMoex-HZ/Creditworthiness-Prediction-using-CART-and-Random-Forest/pkg/model"
)

// ComparisonReport collects the evaluation results of every trained model
// in training order.
type ComparisonReport struct {
	Results []*model.EvaluationResult
}

// NewComparison builds a report over results.
func NewComparison(results ...*model.EvaluationResult) *ComparisonReport {
	return &ComparisonReport{Results: results}
}

// Best returns the result with the highest value of metric. NaN values are
// skipped and ties keep the earlier model. It returns nil when no model has
// a defined value.
func (c *ComparisonReport) Best(metric string) *model.EvaluationResult {
	var best *model.EvaluationResult
	for _, r := range c.Results {
		v := r.Value(metric)
		if math.IsNaN(v) {
			continue
		}
		if best == nil || v > best.Value(metric) {
			best = r
		}
	}
	return best
}

// BestByAUC returns the model with the largest AUC.
func (c *ComparisonReport) BestByAUC() *model.EvaluationResult { return c.Best(model.MetricAUC) }

// BestByF1 returns the model with the largest F1 score.
func (c *ComparisonReport) BestByF1() *model.EvaluationResult { return c.Best(model.MetricF1) }

// Warnings gathers the degenerate metric warnings of all models.
func (c *ComparisonReport) Warnings() []model.DegenerateMetricWarning {
	var out []model.DegenerateMetricWarning
	for _, r := range c.Results {
		out = append(out, r.Warnings...)
	}
	return out
}

// ComparisonRow is one line of model_comparison.csv.
type ComparisonRow struct {
	Model       string  `csv:"Model"`
	Accuracy    float64 `csv:"Accuracy"`
	Sensitivity float64 `csv:"Sensitivity"`
	Specificity float64 `csv:"Specificity"`
	Precision   float64 `csv:"Precision"`
	F1          float64 `csv:"F1_Score"`
	AUC         float64 `csv:"AUC"`
	Kappa       float64 `csv:"Kappa"`
}

// Rows returns the comparison table, one row per model.
func (c *ComparisonReport) Rows() []*ComparisonRow {
	rows := make([]*ComparisonRow, len(c.Results))
	for i, r := range c.Results {
		rows[i] = &ComparisonRow{
			Model:       r.Model,
			Accuracy:    r.Accuracy,
			Sensitivity: r.Sensitivity,
			Specificity: r.Specificity,
			Precision:   r.Precision,
			F1:          r.F1,
			AUC:         r.AUC,
			Kappa:       r.Kappa,
		}
	}
	return rows
}
