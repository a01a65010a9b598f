package model

import (
	"fmt"
	"math"

	"github.com/KMoex-HZ/Creditworthiness-Prediction-using-CART-and-Random-Forest/pkg/data"
)

// ConfusionMatrix counts outcomes with rows = actual and columns =
// predicted, both indexed by data.Label (0 = Bad, 1 = Good).
type ConfusionMatrix [2][2]int

// Add records one prediction.
func (c *ConfusionMatrix) Add(actual, predicted data.Label) { c[actual][predicted]++ }

// Total returns the number of recorded predictions.
func (c ConfusionMatrix) Total() int { return c[0][0] + c[0][1] + c[1][0] + c[1][1] }

// TP, FN, FP and TN treat Good as the positive class.
func (c ConfusionMatrix) TP() int { return c[data.Good][data.Good] }
func (c ConfusionMatrix) FN() int { return c[data.Good][data.Bad] }
func (c ConfusionMatrix) FP() int { return c[data.Bad][data.Good] }
func (c ConfusionMatrix) TN() int { return c[data.Bad][data.Bad] }

// Metric names as they appear in reports.
const (
	MetricAccuracy    = "Accuracy"
	MetricSensitivity = "Sensitivity"
	MetricSpecificity = "Specificity"
	MetricPrecision   = "Precision"
	MetricF1          = "F1_Score"
	MetricAUC         = "AUC"
	MetricKappa       = "Kappa"
)

// DegenerateMetricWarning reports a metric that was undefined because its
// denominator was zero. The metric value is NaN.
type DegenerateMetricWarning struct {
	Model  string
	Metric string
}

func (w DegenerateMetricWarning) Error() string {
	return fmt.Sprintf("model: %s for %s is undefined (zero denominator)", w.Metric, w.Model)
}

// Metrics holds the threshold metrics derived from a confusion matrix.
type Metrics struct {
	Accuracy    float64
	Sensitivity float64
	Specificity float64
	Precision   float64
	F1          float64
	Kappa       float64
}

// ComputeMetrics derives the metrics of c. Every metric with a zero
// denominator is NaN and produces a warning tagged with model.
func ComputeMetrics(model string, c ConfusionMatrix) (Metrics, []DegenerateMetricWarning) {
	var warns []DegenerateMetricWarning
	ratio := func(metric string, num, den float64) float64 {
		if den == 0 {
			warns = append(warns, DegenerateMetricWarning{Model: model, Metric: metric})
			return math.NaN()
		}
		return num / den
	}

	tp, fn := float64(c.TP()), float64(c.FN())
	fp, tn := float64(c.FP()), float64(c.TN())
	n := tp + fn + fp + tn

	var m Metrics
	m.Accuracy = ratio(MetricAccuracy, tp+tn, n)
	m.Sensitivity = ratio(MetricSensitivity, tp, tp+fn)
	m.Specificity = ratio(MetricSpecificity, tn, tn+fp)
	m.Precision = ratio(MetricPrecision, tp, tp+fp)
	if math.IsNaN(m.Precision) || math.IsNaN(m.Sensitivity) {
		m.F1 = ratio(MetricF1, 0, 0)
	} else {
		m.F1 = ratio(MetricF1, 2*m.Precision*m.Sensitivity, m.Precision+m.Sensitivity)
	}

	if n == 0 {
		m.Kappa = ratio(MetricKappa, 0, 0)
		return m, warns
	}
	po := (tp + tn) / n
	pe := ((tp+fn)*(tp+fp) + (tn+fp)*(tn+fn)) / (n * n)
	m.Kappa = ratio(MetricKappa, po-pe, 1-pe)
	return m, warns
}

// Value returns the metric called name, or NaN for unknown names.
func (m Metrics) Value(name string) float64 {
	switch name {
	case MetricAccuracy:
		return m.Accuracy
	case MetricSensitivity:
		return m.Sensitivity
	case MetricSpecificity:
		return m.Specificity
	case MetricPrecision:
		return m.Precision
	case MetricF1:
		return m.F1
	case MetricKappa:
		return m.Kappa
	}
	return math.NaN()
}
