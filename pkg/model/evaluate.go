package model

import (
	"math"
	"sort"

	"github.com/KMoex-HZ/Creditworthiness-Prediction-using-CART-and-Random-Forest/pkg/data"
	"gonum.org/v1/gonum/integrate"
)

// ROCPoint is one operating point of the ROC curve.
type ROCPoint struct {
	Threshold float64
	FPR       float64
	TPR       float64
}

// EvaluationResult is the scored outcome of one model on the test set.
type EvaluationResult struct {
	Model     string
	Confusion ConfusionMatrix
	Metrics
	AUC      float64
	ROC      []ROCPoint
	Labels   []data.Label
	Proba    []float64
	Warnings []DegenerateMetricWarning
}

// Value returns the metric called name, including AUC.
func (r *EvaluationResult) Value(name string) float64 {
	if name == MetricAUC {
		return r.AUC
	}
	return r.Metrics.Value(name)
}

// Evaluate scores clf on every record of test. Good is the positive class.
func Evaluate(name string, clf Classifier, test *data.Dataset) *EvaluationResult {
	res := &EvaluationResult{
		Model:  name,
		Labels: make([]data.Label, test.Len()),
		Proba:  make([]float64, test.Len()),
	}
	actual := make([]data.Label, test.Len())
	for i, r := range test.Records {
		res.Labels[i] = clf.PredictLabel(r.Values)
		res.Proba[i] = clf.PredictProba(r.Values)
		actual[i] = r.Label
		res.Confusion.Add(r.Label, res.Labels[i])
	}
	res.Metrics, res.Warnings = ComputeMetrics(name, res.Confusion)

	res.ROC = ROC(actual, res.Proba)
	pos, neg := res.Confusion.TP()+res.Confusion.FN(), res.Confusion.TN()+res.Confusion.FP()
	if pos == 0 || neg == 0 {
		res.AUC = math.NaN()
		res.Warnings = append(res.Warnings, DegenerateMetricWarning{Model: name, Metric: MetricAUC})
	} else {
		res.AUC = AUC(res.ROC)
	}
	return res
}

// ROC sweeps the decision threshold over the distinct probabilities in
// descending order. The curve starts at (0,0) and ends at (1,1); a class
// without records keeps its rate at zero.
func ROC(actual []data.Label, proba []float64) []ROCPoint {
	order := make([]int, len(proba))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return proba[order[a]] > proba[order[b]] })

	var pos, neg float64
	for _, l := range actual {
		if l == data.Good {
			pos++
		} else {
			neg++
		}
	}
	rate := func(k, total float64) float64 {
		if total == 0 {
			return 0
		}
		return k / total
	}

	pts := []ROCPoint{{Threshold: math.Inf(1)}}
	var tp, fp float64
	for k := 0; k < len(order); {
		thr := proba[order[k]]
		for k < len(order) && proba[order[k]] == thr {
			if actual[order[k]] == data.Good {
				tp++
			} else {
				fp++
			}
			k++
		}
		pts = append(pts, ROCPoint{Threshold: thr, FPR: rate(fp, neg), TPR: rate(tp, pos)})
	}
	if last := pts[len(pts)-1]; last.FPR != 1 || last.TPR != 1 {
		pts = append(pts, ROCPoint{Threshold: math.Inf(-1), FPR: 1, TPR: 1})
	}
	return pts
}

// AUC integrates the ROC curve with the trapezoidal rule.
func AUC(roc []ROCPoint) float64 {
	if len(roc) < 2 {
		return math.NaN()
	}
	fpr := make([]float64, len(roc))
	tpr := make([]float64, len(roc))
	for i, p := range roc {
		fpr[i] = p.FPR
		tpr[i] = p.TPR
	}
	return integrate.Trapezoidal(fpr, tpr)
}
