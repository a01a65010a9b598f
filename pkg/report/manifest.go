package report

import (
	"encoding"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"time"

	"github.com/KMoex-HZ/Creditworthiness-Prediction-using-CART-and-Random-Forest/pkg/model"
	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// StageTiming records how long one pipeline stage took.
type StageTiming struct {
	Stage    string  `json:"stage"`
	Seconds  float64 `json:"seconds"`
	Duration string  `json:"duration"`
}

// BestModel names the winner of one metric.
type BestModel struct {
	Metric string  `json:"metric"`
	Model  string  `json:"model"`
	Value  float64 `json:"value"`
}

// Manifest is the run.json record of one pipeline execution.
type Manifest struct {
	RunID     string        `json:"run_id"`
	StartedAt time.Time     `json:"started_at"`
	Input     string        `json:"input"`
	Seed      int64         `json:"seed"`
	Records   int           `json:"records"`
	Train     int           `json:"train"`
	Balanced  int           `json:"balanced"`
	Test      int           `json:"test"`
	Stages    []StageTiming `json:"stages"`
	Best      []BestModel   `json:"best"`
	Warnings  []string      `json:"warnings,omitempty"`
	Outputs   []string      `json:"outputs"`
}

// NewManifest starts a manifest with a fresh run ID.
func NewManifest(input string, seed int64, started time.Time) *Manifest {
	return &Manifest{
		RunID:     uuid.New().String(),
		StartedAt: started.UTC(),
		Input:     input,
		Seed:      seed,
	}
}

// AddStage appends the timing of a finished stage.
func (m *Manifest) AddStage(stage string, d time.Duration) {
	m.Stages = append(m.Stages, StageTiming{Stage: stage, Seconds: d.Seconds(), Duration: d.Round(time.Millisecond).String()})
}

// SetBest records the best model by AUC and by F1.
func (m *Manifest) SetBest(c *ComparisonReport) {
	m.Best = nil
	for _, metric := range []string{model.MetricAUC, model.MetricF1} {
		if r := c.Best(metric); r != nil {
			m.Best = append(m.Best, BestModel{Metric: metric, Model: r.Model, Value: r.Value(metric)})
		}
	}
	m.Warnings = nil
	for _, w := range c.Warnings() {
		m.Warnings = append(m.Warnings, w.Error())
	}
}

// Write stores the manifest as indented JSON.
func (m *Manifest) Write(path string) error {
	b, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return errors.Wrap(err, "encode manifest")
	}
	return errors.Wrapf(os.WriteFile(path, b, 0o644), "write %s", path)
}

// SaveModel writes a gob-encoded model and returns its size in bytes.
func SaveModel(path string, m encoding.BinaryMarshaler) (int, error) {
	b, err := m.MarshalBinary()
	if err != nil {
		return 0, errors.Wrapf(err, "encode %s", path)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return 0, errors.Wrapf(err, "write %s", path)
	}
	return len(b), nil
}

// PrintSummary writes the console summary of a run.
func PrintSummary(w io.Writer, m *Manifest, c *ComparisonReport) {
	fmt.Fprintf(w, "Run %s: %s records (train %s, balanced %s, test %s)\n",
		m.RunID, humanize.Comma(int64(m.Records)), humanize.Comma(int64(m.Train)),
		humanize.Comma(int64(m.Balanced)), humanize.Comma(int64(m.Test)))
	fmt.Fprintf(w, "%-14s %9s %11s %11s %9s %9s %9s %9s\n",
		"Model", "Accuracy", "Sensitivity", "Specificity", "Precision", "F1", "AUC", "Kappa")
	for _, r := range c.Rows() {
		fmt.Fprintf(w, "%-14s %9s %11s %11s %9s %9s %9s %9s\n", r.Model,
			score(r.Accuracy), score(r.Sensitivity), score(r.Specificity),
			score(r.Precision), score(r.F1), score(r.AUC), score(r.Kappa))
	}
	for _, b := range m.Best {
		fmt.Fprintf(w, "Best model by %s: %s (%s)\n", b.Metric, b.Model, score(b.Value))
	}
	for _, warn := range m.Warnings {
		fmt.Fprintf(w, "warning: %s\n", warn)
	}
}

func score(v float64) string {
	if math.IsNaN(v) {
		return "NaN"
	}
	return fmt.Sprintf("%.4f", v)
}
