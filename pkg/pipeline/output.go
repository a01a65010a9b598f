package pipeline

import (
	"encoding"
	"os"
	"path/filepath"
	"strings"

	"github.com/KMoex-HZ/Creditworthiness-Prediction-using-CART-and-Random-Forest/pkg/model"
	"github.com/KMoex-HZ/Creditworthiness-Prediction-using-CART-and-Random-Forest/pkg/report"
	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// ManifestFile is the name of the run manifest inside the output directory.
const ManifestFile = "run.json"

// filePrefix maps a model name to the prefix of its output files.
func filePrefix(name string) string {
	switch name {
	case "CART":
		return "cart"
	case "RandomForest":
		return "rf"
	}
	return strings.ToLower(name)
}

// writeReport renders every table and chart of a finished run into the
// output directory.
func writeReport(res *Result, log *zap.Logger) error {
	cfg := res.Config
	dir := cfg.OutputDir
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrapf(err, "create %s", dir)
	}
	out := func(name string) string {
		p := filepath.Join(dir, name)
		res.Outputs = append(res.Outputs, p)
		return p
	}

	steps := []struct {
		what string
		run  func() error
	}{
		{"comparison table", func() error { return report.WriteComparison(out("model_comparison.csv"), res.Comparison) }},
		{"numeric summary", func() error { return report.WriteNumericSummary(out("numeric_summary.csv"), res.Summary) }},
		{"categorical summary", func() error { return report.WriteCategoricalSummary(out("categorical_summary.csv"), res.Summary) }},
		{"correlations", func() error { return report.WriteCorrelations(out("numeric_correlation.csv"), res.Summary) }},
		{"roc chart", func() error { return report.PlotROC(out("roc_curves.png"), res.Comparison) }},
		{"metrics chart", func() error { return report.PlotMetrics(out("model_metrics.png"), res.Comparison) }},
		{"class balance chart", func() error {
			return report.PlotClassBalance(out("class_balance.png"), []report.ClassCount{
				{Name: "full", Counts: res.Data.LabelCounts()},
				{Name: "train", Counts: res.Train.LabelCounts()},
				{Name: "balanced", Counts: res.Balanced.LabelCounts()},
				{Name: "test", Counts: res.Test.LabelCounts()},
			})
		}},
	}
	for _, s := range steps {
		if err := s.run(); err != nil {
			return errors.Wrap(err, s.what)
		}
	}

	for _, clf := range res.Models {
		prefix := filePrefix(clf.Name())
		if ir, ok := clf.(model.ImportanceReporter); ok {
			imp := ir.Importance()
			if err := report.WriteImportance(out(prefix+"_variable_importance.csv"), imp, cfg.Report.TopN); err != nil {
				return err
			}
			if err := report.PlotImportance(out(prefix+"_importance.png"), clf.Name()+" variable importance", imp, cfg.Report.TopN); err != nil {
				return err
			}
		}
		if tree, ok := clf.(*model.DecisionTreeClassifier); ok {
			if err := report.WriteCPTable(out(prefix+"_cp_table.csv"), tree.CPTable); err != nil {
				return err
			}
			if err := report.PlotTree(out(prefix+"_tree."+cfg.Report.DiagramFormat), tree, res.Schema); err != nil {
				return err
			}
			log.Debug("tree pruned", zap.Float64("cp", tree.SelectedCP), zap.Int("leaves", tree.NumLeaves()))
		}
		if m, ok := clf.(encoding.BinaryMarshaler); ok && cfg.Report.SaveModels {
			n, err := report.SaveModel(out(prefix+".gob"), m)
			if err != nil {
				return err
			}
			log.Info("model saved", zap.String("model", clf.Name()), zap.String("size", humanize.Bytes(uint64(n))))
		}
	}

	res.Manifest.Outputs = append(res.Manifest.Outputs, res.Outputs...)
	return nil
}

// writeManifest stores run.json once every stage timing is known.
func writeManifest(res *Result) error {
	path := filepath.Join(res.Config.OutputDir, ManifestFile)
	res.Manifest.Outputs = append(res.Manifest.Outputs, path)
	res.Outputs = append(res.Outputs, path)
	return res.Manifest.Write(path)
}
