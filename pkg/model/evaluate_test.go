package model

import (
	"math"
	"math/rand"
	"testing"

	"github.com/KMoex-HZ/Creditworthiness-Prediction-using-CART-and-Random-Forest/pkg/data"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scoreFunc is a Classifier whose probability is read from the first value.
type scoreFunc struct{}

func (scoreFunc) Name() string                     { return "score" }
func (scoreFunc) PredictProba(x []float64) float64 { return x[0] }
func (s scoreFunc) PredictLabel(x []float64) data.Label {
	if s.PredictProba(x) >= 0.5 {
		return data.Good
	}
	return data.Bad
}

func scored(proba []float64, labels []data.Label) *data.Dataset {
	schema := data.Schema{Features: []data.Column{{Name: "p", Kind: data.Numeric}}, Label: "class"}
	recs := make([]data.Record, len(proba))
	for i := range proba {
		recs[i] = data.Record{ID: i, Origin: i, Values: []float64{proba[i]}, Label: labels[i]}
	}
	return data.New(schema, recs)
}

func TestConfusionOrientation(t *testing.T) {
	var c ConfusionMatrix
	c.Add(data.Good, data.Good)
	c.Add(data.Good, data.Bad)
	c.Add(data.Bad, data.Good)
	c.Add(data.Bad, data.Good)
	c.Add(data.Bad, data.Bad)

	assert.Equal(t, 1, c.TP())
	assert.Equal(t, 1, c.FN())
	assert.Equal(t, 2, c.FP())
	assert.Equal(t, 1, c.TN())
	assert.Equal(t, 2, c[data.Bad][data.Good])
	assert.Equal(t, 5, c.Total())
}

func TestMetricsFormulas(t *testing.T) {
	c := ConfusionMatrix{{50, 10}, {20, 120}} // TN FP / FN TP
	m, warns := ComputeMetrics("m", c)
	assert.Empty(t, warns)
	assert.InDelta(t, 170.0/200, m.Accuracy, 1e-12)
	assert.InDelta(t, 120.0/140, m.Sensitivity, 1e-12)
	assert.InDelta(t, 50.0/60, m.Specificity, 1e-12)
	assert.InDelta(t, 120.0/130, m.Precision, 1e-12)
	p, r := 120.0/130, 120.0/140
	assert.InDelta(t, 2*p*r/(p+r), m.F1, 1e-12)

	po := 170.0 / 200
	pe := (140.0*130 + 60.0*70) / (200 * 200)
	assert.InDelta(t, (po-pe)/(1-pe), m.Kappa, 1e-12)
}

func TestKappaPerfectAndChance(t *testing.T) {
	m, _ := ComputeMetrics("perfect", ConfusionMatrix{{7, 0}, {0, 13}})
	assert.InDelta(t, 1.0, m.Kappa, 1e-12)

	m, _ = ComputeMetrics("chance", ConfusionMatrix{{1, 1}, {1, 1}})
	assert.InDelta(t, 0.0, m.Kappa, 1e-12)
}

func TestDegenerateMetrics(t *testing.T) {
	// nothing predicted Good
	m, warns := ComputeMetrics("allbad", ConfusionMatrix{{6, 0}, {4, 0}})
	assert.True(t, math.IsNaN(m.Precision))
	assert.True(t, math.IsNaN(m.F1))
	assert.Equal(t, 0.0, m.Sensitivity)
	assert.Contains(t, warns, DegenerateMetricWarning{Model: "allbad", Metric: MetricPrecision})
	assert.Contains(t, warns, DegenerateMetricWarning{Model: "allbad", Metric: MetricF1})

	m, warns = ComputeMetrics("empty", ConfusionMatrix{})
	assert.True(t, math.IsNaN(m.Accuracy))
	assert.True(t, math.IsNaN(m.Kappa))
	assert.Len(t, warns, 6)
	assert.EqualError(t, warns[0], "model: Accuracy for empty is undefined (zero denominator)")
}

func TestEvaluateConfusionSumsToTestSize(t *testing.T) {
	rnd := rand.New(rand.NewSource(3))
	proba := make([]float64, 137)
	labels := make([]data.Label, len(proba))
	for i := range proba {
		proba[i] = rnd.Float64()
		labels[i] = data.Label(rnd.Intn(2))
	}
	res := Evaluate("score", scoreFunc{}, scored(proba, labels))
	assert.Equal(t, 137, res.Confusion.Total())
	assert.Len(t, res.Proba, 137)
	assert.Len(t, res.Labels, 137)
}

func TestROCEndpointsAndMonotone(t *testing.T) {
	proba := []float64{0.9, 0.8, 0.8, 0.4, 0.3, 0.1}
	labels := []data.Label{data.Good, data.Good, data.Bad, data.Good, data.Bad, data.Bad}
	roc := ROC(labels, proba)

	require.Len(t, roc, 6) // origin + five distinct thresholds
	assert.Equal(t, 0.0, roc[0].FPR)
	assert.Equal(t, 0.0, roc[0].TPR)
	last := roc[len(roc)-1]
	assert.Equal(t, 1.0, last.FPR)
	assert.Equal(t, 1.0, last.TPR)
	for i := 1; i < len(roc); i++ {
		assert.GreaterOrEqual(t, roc[i].FPR, roc[i-1].FPR)
		assert.GreaterOrEqual(t, roc[i].TPR, roc[i-1].TPR)
		assert.Less(t, roc[i].Threshold, roc[i-1].Threshold)
	}

	// tied 0.8 scores move diagonally: (0,1/3) -> (1/3,2/3)
	assert.InDelta(t, 1.0/3, roc[2].FPR, 1e-12)
	assert.InDelta(t, 2.0/3, roc[2].TPR, 1e-12)
	assert.InDelta(t, 5.0/6, AUC(roc), 1e-12)
}

func TestAUCPerfectInvertedAndTied(t *testing.T) {
	labels := []data.Label{data.Bad, data.Bad, data.Good, data.Good}

	res := Evaluate("perfect", scoreFunc{}, scored([]float64{0.1, 0.2, 0.8, 0.9}, labels))
	assert.InDelta(t, 1.0, res.AUC, 1e-12)

	res = Evaluate("inverted", scoreFunc{}, scored([]float64{0.9, 0.8, 0.2, 0.1}, labels))
	assert.InDelta(t, 0.0, res.AUC, 1e-12)

	res = Evaluate("tied", scoreFunc{}, scored([]float64{0.5, 0.5, 0.5, 0.5}, labels))
	assert.InDelta(t, 0.5, res.AUC, 1e-12)
	require.Len(t, res.ROC, 2)
}

func TestAUCRandomClassifier(t *testing.T) {
	rnd := rand.New(rand.NewSource(2024))
	n := 20000
	proba := make([]float64, n)
	labels := make([]data.Label, n)
	for i := range proba {
		proba[i] = rnd.Float64()
		labels[i] = data.Label(rnd.Intn(2))
	}
	res := Evaluate("random", scoreFunc{}, scored(proba, labels))
	assert.InDelta(t, 0.5, res.AUC, 0.02)
}

func TestEvaluateSingleClassAUC(t *testing.T) {
	res := Evaluate("onlygood", scoreFunc{}, scored([]float64{0.2, 0.7}, []data.Label{data.Good, data.Good}))
	assert.True(t, math.IsNaN(res.AUC))
	assert.True(t, math.IsNaN(res.Specificity))
	assert.Contains(t, res.Warnings, DegenerateMetricWarning{Model: "onlygood", Metric: MetricAUC})
}

func TestEvaluationResultValue(t *testing.T) {
	res := Evaluate("perfect", scoreFunc{}, scored([]float64{0.1, 0.9}, []data.Label{data.Bad, data.Good}))
	assert.Equal(t, 1.0, res.Value(MetricAUC))
	assert.Equal(t, 1.0, res.Value(MetricF1))
	assert.Equal(t, 1.0, res.Value(MetricKappa))
	assert.True(t, math.IsNaN(res.Value("nope")))
}
