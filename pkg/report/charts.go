package report

import (
	"math"
	"os"

	"github.com/KMoex-HZ/Creditworthiness-Prediction-using-CART-and-Random-Forest/pkg/data"
	"github.com/KMoex-HZ/Creditworthiness-Prediction-using-CART-and-Random-Forest/pkg/model"
	"github.com/pkg/errors"
	"github.com/wcharczuk/go-chart"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
)

// PlotROC draws every model's ROC curve and the chance diagonal.
func PlotROC(path string, c *ComparisonReport) error {
	var series []chart.Series
	for i, r := range c.Results {
		fpr := make([]float64, len(r.ROC))
		tpr := make([]float64, len(r.ROC))
		for k, p := range r.ROC {
			fpr[k], tpr[k] = p.FPR, p.TPR
		}
		series = append(series, chart.ContinuousSeries{
			Name:    r.Model,
			XValues: fpr,
			YValues: tpr,
			Style: chart.Style{
				Show:        true,
				StrokeColor: chart.GetAlternateColor(i),
				StrokeWidth: 2,
			},
		})
	}
	series = append(series, chart.ContinuousSeries{
		Name:    "chance",
		XValues: []float64{0, 1},
		YValues: []float64{0, 1},
		Style: chart.Style{
			Show:            true,
			StrokeColor:     chart.ColorAlternateGray,
			StrokeDashArray: []float64{5.0, 5.0},
		},
	})

	graph := chart.Chart{
		Title:      "ROC Curves",
		TitleStyle: chart.StyleShow(),
		XAxis: chart.XAxis{
			Name:      "False Positive Rate",
			NameStyle: chart.StyleShow(),
			Style:     chart.StyleShow(),
			Range:     &chart.ContinuousRange{Min: 0, Max: 1},
		},
		YAxis: chart.YAxis{
			Name:      "True Positive Rate",
			NameStyle: chart.StyleShow(),
			Style:     chart.StyleShow(),
			Range:     &chart.ContinuousRange{Min: 0, Max: 1},
		},
		Series: series,
	}
	graph.Elements = []chart.Renderable{
		chart.Legend(&graph),
	}

	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "create %s", path)
	}
	if err := graph.Render(chart.PNG, f); err != nil {
		f.Close()
		return errors.Wrapf(err, "render %s", path)
	}
	return errors.Wrapf(f.Close(), "close %s", path)
}

// metricOrder is the column order of the comparison chart.
var metricOrder = []string{
	model.MetricAccuracy,
	model.MetricSensitivity,
	model.MetricSpecificity,
	model.MetricPrecision,
	model.MetricF1,
	model.MetricAUC,
	model.MetricKappa,
}

// PlotMetrics draws the metrics of all models as grouped bars. Undefined
// metrics are drawn as zero.
func PlotMetrics(path string, c *ComparisonReport) error {
	p := plot.New()
	p.Title.Text = "Model Comparison"
	p.Y.Label.Text = "Score"
	p.Legend.Top = true

	w := vg.Points(14)
	n := len(c.Results)
	for i, r := range c.Results {
		vals := make(plotter.Values, len(metricOrder))
		for k, m := range metricOrder {
			vals[k] = finite(r.Value(m))
		}
		bars, err := plotter.NewBarChart(vals, w)
		if err != nil {
			return errors.Wrap(err, "metric bars")
		}
		bars.LineStyle.Width = vg.Length(0)
		bars.Color = plotutil.Color(i)
		bars.Offset = w * vg.Length(float64(i)-float64(n-1)/2)
		p.Add(bars)
		p.Legend.Add(r.Model, bars)
	}
	p.NominalX(metricOrder...)
	p.Y.Min, p.Y.Max = 0, 1.1
	return errors.Wrapf(p.Save(9*vg.Inch, 4*vg.Inch, path), "save %s", path)
}

// PlotImportance draws a horizontal bar chart of the topN variables.
func PlotImportance(path, title string, imp []model.FeatureImportance, topN int) error {
	top := TopN(imp, topN)
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "Importance"
	if len(top) == 0 {
		return errors.Wrapf(p.Save(6*vg.Inch, 4*vg.Inch, path), "save %s", path)
	}

	// most important on top
	vals := make(plotter.Values, len(top))
	names := make([]string, len(top))
	for i, fi := range top {
		k := len(top) - 1 - i
		vals[k] = finite(fi.Importance)
		names[k] = fi.Variable
	}
	bars, err := plotter.NewBarChart(vals, vg.Points(12))
	if err != nil {
		return errors.Wrap(err, "importance bars")
	}
	bars.Horizontal = true
	bars.LineStyle.Width = vg.Length(0)
	bars.Color = plotutil.Color(0)
	p.Add(bars)
	p.NominalY(names...)
	return errors.Wrapf(p.Save(6*vg.Inch, vg.Length(1+0.3*float64(len(top)))*vg.Inch, path), "save %s", path)
}

// ClassCount is the label distribution of one dataset.
type ClassCount struct {
	Name   string
	Counts [2]int
}

// PlotClassBalance draws the Bad and Good counts of each dataset side by side.
func PlotClassBalance(path string, sets []ClassCount) error {
	p := plot.New()
	p.Title.Text = "Class Balance"
	p.Y.Label.Text = "Records"
	p.Legend.Top = true

	w := vg.Points(20)
	names := make([]string, len(sets))
	for i, s := range sets {
		names[i] = s.Name
	}
	for k, l := range data.Labels {
		vals := make(plotter.Values, len(sets))
		for i, s := range sets {
			vals[i] = float64(s.Counts[l])
		}
		bars, err := plotter.NewBarChart(vals, w)
		if err != nil {
			return errors.Wrap(err, "class bars")
		}
		bars.LineStyle.Width = vg.Length(0)
		bars.Color = plotutil.Color(k)
		bars.Offset = w * vg.Length(float64(k)-0.5)
		p.Add(bars)
		p.Legend.Add(l.String(), bars)
	}
	p.NominalX(names...)
	return errors.Wrapf(p.Save(6*vg.Inch, 4*vg.Inch, path), "save %s", path)
}

func finite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
