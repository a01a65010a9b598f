package report

import (
	"bytes"
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/KMoex-HZ/Creditworthiness-Prediction-using-CART-and-Random-Forest/pkg/data"
	"github.com/KMoex-HZ/Creditworthiness-Prediction-using-CART-and-Random-Forest/pkg/model"
	"github.com/KMoex-HZ/Creditworthiness-Prediction-using-CART-and-Random-Forest/pkg/stats"
	"github.com/gocarina/gocsv"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func result(name string, auc, f1 float64) *model.EvaluationResult {
	return &model.EvaluationResult{
		Model:   name,
		Metrics: model.Metrics{Accuracy: 0.7, Sensitivity: 0.8, Specificity: 0.5, Precision: 0.75, F1: f1, Kappa: 0.3},
		AUC:     auc,
		ROC: []model.ROCPoint{
			{Threshold: math.Inf(1)},
			{Threshold: 0.6, FPR: 0.2, TPR: 0.7},
			{Threshold: 0.1, FPR: 1, TPR: 1},
		},
	}
}

func TestBestSkipsNaNAndKeepsFirstOnTie(t *testing.T) {
	c := NewComparison(result("CART", math.NaN(), 0.8), result("RandomForest", 0.77, 0.8), result("Other", 0.77, 0.7))
	assert.Equal(t, "RandomForest", c.BestByAUC().Model)
	assert.Equal(t, "CART", c.BestByF1().Model)
	assert.Equal(t, "CART", c.Best(model.MetricAccuracy).Model)

	none := NewComparison(result("CART", math.NaN(), math.NaN()))
	assert.Nil(t, none.BestByAUC())
}

func TestWriteComparisonCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model_comparison.csv")
	c := NewComparison(result("CART", 0.71, 0.8), result("RandomForest", 0.78, math.NaN()))
	require.NoError(t, WriteComparison(path, c))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	header := strings.SplitN(string(raw), "\n", 2)[0]
	assert.Equal(t, "Model,Accuracy,Sensitivity,Specificity,Precision,F1_Score,AUC,Kappa", strings.TrimSpace(header))

	var rows []*ComparisonRow
	require.NoError(t, gocsv.UnmarshalBytes(raw, &rows))
	require.Len(t, rows, 2)
	assert.Equal(t, "RandomForest", rows[1].Model)
	assert.Equal(t, 0.78, rows[1].AUC)
	assert.True(t, math.IsNaN(rows[1].F1))
}

func TestWriteImportanceTopN(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rf_variable_importance.csv")
	imp := []model.FeatureImportance{
		{Variable: "checking_status", Importance: 0.05},
		{Variable: "duration", Importance: 0.03},
		{Variable: "age", Importance: 0.01},
	}
	require.NoError(t, WriteImportance(path, imp, 2))

	var rows []*importanceRow
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, gocsv.UnmarshalFile(f, &rows))
	require.Len(t, rows, 2)
	assert.Equal(t, "checking_status", rows[0].Variable)
	assert.Equal(t, 0.03, rows[1].Importance)
}

func TestWriteCPTable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cart_cp_table.csv")
	table := []model.CPRow{{CP: 0.6, NSplit: 0, RelError: 1, XError: 1, XStd: 0.05}, {CP: 0, NSplit: 3, RelError: 0.4, XError: 0.6, XStd: 0.04}}
	require.NoError(t, WriteCPTable(path, table))

	var rows []*cpRow
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NoError(t, gocsv.UnmarshalBytes(raw, &rows))
	require.Len(t, rows, 2)
	assert.Equal(t, 3, rows[1].NSplit)
	assert.Equal(t, 0.6, rows[1].XError)
}

func TestWriteSummaries(t *testing.T) {
	dir := t.TempDir()
	s := &stats.Summary{
		Records: 4,
		Numeric: []stats.NumericSummary{{Variable: "age", N: 4, Mean: 35, Median: 33}},
		Levels:  []stats.LevelSummary{{Variable: "housing", Level: "own", Count: 3, Share: 0.75, GoodRate: 2.0 / 3}},
		Correlations: []stats.Correlation{
			{A: "age", B: "duration", R: -0.04},
		},
	}
	require.NoError(t, WriteNumericSummary(filepath.Join(dir, "numeric_summary.csv"), s))
	require.NoError(t, WriteCategoricalSummary(filepath.Join(dir, "categorical_summary.csv"), s))
	require.NoError(t, WriteCorrelations(filepath.Join(dir, "numeric_correlation.csv"), s))

	raw, err := os.ReadFile(filepath.Join(dir, "categorical_summary.csv"))
	require.NoError(t, err)
	assert.Contains(t, string(raw), "Variable,Level,Count,Share,Good_Rate")
	assert.Contains(t, string(raw), "housing,own,3,0.75")

	raw, err = os.ReadFile(filepath.Join(dir, "numeric_summary.csv"))
	require.NoError(t, err)
	assert.Contains(t, string(raw), "age,4,35")
}

func TestManifest(t *testing.T) {
	m := NewManifest("credit.csv", 123, time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC))
	m.Records, m.Train, m.Balanced, m.Test = 1000, 700, 700, 300
	m.AddStage("load", 1500*time.Millisecond)
	c := NewComparison(result("CART", 0.71, 0.82), result("RandomForest", 0.78, 0.8))
	m.SetBest(c)

	_, err := uuid.Parse(m.RunID)
	require.NoError(t, err)
	require.Len(t, m.Best, 2)
	assert.Equal(t, BestModel{Metric: model.MetricAUC, Model: "RandomForest", Value: 0.78}, m.Best[0])
	assert.Equal(t, "CART", m.Best[1].Model)

	path := filepath.Join(t.TempDir(), "run.json")
	require.NoError(t, m.Write(path))
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	var back Manifest
	require.NoError(t, json.Unmarshal(raw, &back))
	assert.Equal(t, m.RunID, back.RunID)
	assert.Equal(t, "1.5s", back.Stages[0].Duration)

	var out bytes.Buffer
	PrintSummary(&out, m, c)
	assert.Contains(t, out.String(), "1,000 records")
	assert.Contains(t, out.String(), "Best model by AUC: RandomForest (0.7800)")
	assert.Contains(t, out.String(), "Best model by F1_Score: CART (0.8200)")
}

func TestSummaryShowsNaN(t *testing.T) {
	c := NewComparison(result("CART", 0.7, math.NaN()))
	c.Results[0].Warnings = []model.DegenerateMetricWarning{{Model: "CART", Metric: model.MetricF1}}
	m := NewManifest("x.csv", 1, time.Now())
	m.SetBest(c)

	var out bytes.Buffer
	PrintSummary(&out, m, c)
	assert.Contains(t, out.String(), "NaN")
	assert.Contains(t, out.String(), "warning: model: F1_Score for CART is undefined")
}

func TestSaveModel(t *testing.T) {
	X := [][]float64{{4}, {4}, {6}, {6}}
	tree := model.NewDecisionTreeClassifier()
	require.NoError(t, tree.Fit(X, []int{0, 0, 1, 1}))
	path := filepath.Join(t.TempDir(), "cart.gob")
	n, err := SaveModel(path, tree)
	require.NoError(t, err)
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, int64(n), info.Size())
}

func TestNodeLabel(t *testing.T) {
	schema := data.Schema{Features: []data.Column{
		{Name: "duration", Kind: data.Numeric},
		{Name: "housing", Kind: data.Categorical, Levels: []string{"free", "own", "rent"}},
	}}
	num := &model.Node{Feature: 0, Threshold: 22.5}
	assert.Equal(t, "duration <= 22.5", NodeLabel(num, schema))

	cat := &model.Node{Feature: 1, Categorical: true, Route: []int8{-1, 1, -1}}
	assert.Equal(t, "housing in {free,rent}", NodeLabel(cat, schema))

	leaf := &model.Node{Leaf: true, N: 10, Counts: [2]int{2, 8}}
	assert.Equal(t, "Good\n0.80 (n=10)", NodeLabel(leaf, schema))
}

func TestCharts(t *testing.T) {
	dir := t.TempDir()
	c := NewComparison(result("CART", 0.71, 0.8), result("RandomForest", 0.78, math.NaN()))
	imp := []model.FeatureImportance{{Variable: "duration", Importance: 4}, {Variable: "age", Importance: -0.5}}

	schema := data.Schema{Features: []data.Column{{Name: "x", Kind: data.Numeric}}, Label: "class"}
	tree := model.NewDecisionTreeClassifier(model.WithColumns([]string{"x"}, []data.Kind{data.Numeric}))
	require.NoError(t, tree.Fit([][]float64{{1}, {2}, {3}, {8}, {9}}, []int{0, 0, 1, 1, 1}))

	require.NoError(t, PlotROC(filepath.Join(dir, "roc_curves.png"), c))
	require.NoError(t, PlotMetrics(filepath.Join(dir, "model_metrics.png"), c))
	require.NoError(t, PlotImportance(filepath.Join(dir, "rf_importance.png"), "Random Forest", imp, 10))
	require.NoError(t, PlotClassBalance(filepath.Join(dir, "class_balance.png"), []ClassCount{
		{Name: "train", Counts: [2]int{210, 490}},
		{Name: "balanced", Counts: [2]int{350, 350}},
	}))
	require.NoError(t, PlotTree(filepath.Join(dir, "cart_tree.svg"), tree, schema))
	require.NoError(t, PlotTree(filepath.Join(dir, "cart_tree.png"), tree, schema))

	for _, name := range []string{"roc_curves.png", "model_metrics.png", "rf_importance.png", "class_balance.png", "cart_tree.svg", "cart_tree.png"} {
		info, err := os.Stat(filepath.Join(dir, name))
		require.NoError(t, err, name)
		assert.Greater(t, info.Size(), int64(0), name)
	}
}

func TestLayoutTree(t *testing.T) {
	leaf := func() *model.Node { return &model.Node{Leaf: true, N: 1, Counts: [2]int{1, 0}} }
	root := &model.Node{Left: leaf(), Right: &model.Node{Left: leaf(), Right: leaf()}}
	nodes, edges := layoutTree(root, data.Schema{})
	require.Len(t, nodes, 5)
	assert.Len(t, edges, 4)
	// root, left leaf, right split, its two leaves
	assert.Equal(t, 0.0, nodes[1].x)
	assert.Equal(t, 1.5, nodes[2].x)
	assert.Equal(t, 0.75, nodes[0].x)
	assert.Equal(t, -2.0, nodes[4].y)
}
