// Package config holds the run configuration of the credit risk pipeline.
package config

import (
	"fmt"
	"math"
	"os"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Column declares one feature column of the input file.
type Column struct {
	Name string `yaml:"name"`
	Kind string `yaml:"kind"`
}

// Schema declares the input layout. An empty schema means the German credit
// layout.
type Schema struct {
	Columns []Column `yaml:"columns,omitempty"`
	Label   string   `yaml:"label,omitempty"`
}

type Split struct {
	TrainFraction float64 `yaml:"train_fraction"`
}

type Balance struct {
	Size   int     `yaml:"size"`
	Shrink float64 `yaml:"shrink"`
	Jitter bool    `yaml:"jitter"`
}

type Tree struct {
	Criterion      string  `yaml:"criterion"`
	MinSplit       int     `yaml:"min_split"`
	MinLeaf        int     `yaml:"min_leaf"`
	MinImprovement float64 `yaml:"min_improvement"`
	MaxDepth       int     `yaml:"max_depth"`
	CVFolds        int     `yaml:"cv_folds"`
}

type Forest struct {
	Trees       int `yaml:"trees"`
	MaxFeatures int `yaml:"max_features"`
	MinLeaf     int `yaml:"min_leaf"`
	Workers     int `yaml:"workers"`
}

type Report struct {
	TopN          int    `yaml:"top_n"`
	SaveModels    bool   `yaml:"save_models"`
	DiagramFormat string `yaml:"diagram_format"`
}

// Config is the full run configuration.
type Config struct {
	Input        string  `yaml:"input"`
	OutputDir    string  `yaml:"output_dir"`
	Seed         int64   `yaml:"seed"`
	ExpectedRows int     `yaml:"expected_rows"`
	Schema       Schema  `yaml:"schema,omitempty"`
	Split        Split   `yaml:"split"`
	Balance      Balance `yaml:"balance"`
	Tree         Tree    `yaml:"tree"`
	Forest       Forest  `yaml:"forest"`
	Report       Report  `yaml:"report"`
}

// InvalidConfigError reports a configuration value out of its valid range.
type InvalidConfigError struct {
	Field  string
	Reason string
}

func (e *InvalidConfigError) Error() string {
	return fmt.Sprintf("config: invalid %s: %s", e.Field, e.Reason)
}

// Default returns the configuration of the reference analysis: a 70/30
// split of the 1000-record German credit file, 500 trees and 10-fold
// pruning.
func Default() Config {
	return Config{
		Input:        "german_credit.csv",
		OutputDir:    "output",
		Seed:         123,
		ExpectedRows: 1000,
		Split:        Split{TrainFraction: 0.7},
		Balance:      Balance{Size: 0, Shrink: 1, Jitter: true},
		Tree: Tree{
			Criterion:      "gini",
			MinSplit:       20,
			MinLeaf:        7,
			MinImprovement: 0,
			MaxDepth:       30,
			CVFolds:        10,
		},
		Forest: Forest{Trees: 500, MaxFeatures: 0, MinLeaf: 1, Workers: 0},
		Report: Report{TopN: 10, SaveModels: false, DiagramFormat: "svg"},
	}
}

// Load reads a YAML file on top of Default and validates the result.
func Load(path string) (Config, error) {
	cfg := Default()
	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, errors.Wrapf(err, "read config %s", path)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, errors.Wrapf(err, "parse config %s", path)
	}
	return cfg, cfg.Validate()
}

// Marshal renders cfg as YAML.
func (c Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}

// Validate checks every field before any computation starts.
func (c Config) Validate() error {
	invalid := func(field, reason string, args ...any) error {
		return &InvalidConfigError{Field: field, Reason: fmt.Sprintf(reason, args...)}
	}
	switch {
	case strings.TrimSpace(c.Input) == "":
		return invalid("input", "path is empty")
	case strings.TrimSpace(c.OutputDir) == "":
		return invalid("output_dir", "path is empty")
	case c.ExpectedRows < 0:
		return invalid("expected_rows", "must be >= 0, got %d", c.ExpectedRows)
	case math.IsNaN(c.Split.TrainFraction) || c.Split.TrainFraction <= 0 || c.Split.TrainFraction >= 1:
		return invalid("split.train_fraction", "must be in (0,1), got %v", c.Split.TrainFraction)
	case c.Balance.Size < 0 || c.Balance.Size == 1:
		return invalid("balance.size", "must be 0 or >= 2, got %d", c.Balance.Size)
	case c.Balance.Shrink < 0:
		return invalid("balance.shrink", "must be >= 0, got %v", c.Balance.Shrink)
	case c.Tree.Criterion != "gini" && c.Tree.Criterion != "entropy":
		return invalid("tree.criterion", "must be gini or entropy, got %q", c.Tree.Criterion)
	case c.Tree.MinSplit < 2:
		return invalid("tree.min_split", "must be >= 2, got %d", c.Tree.MinSplit)
	case c.Tree.MinLeaf < 1:
		return invalid("tree.min_leaf", "must be >= 1, got %d", c.Tree.MinLeaf)
	case c.Tree.MinImprovement < 0:
		return invalid("tree.min_improvement", "must be >= 0, got %v", c.Tree.MinImprovement)
	case c.Tree.MaxDepth < 0:
		return invalid("tree.max_depth", "must be >= 0, got %d", c.Tree.MaxDepth)
	case c.Tree.CVFolds < 0 || c.Tree.CVFolds == 1:
		return invalid("tree.cv_folds", "must be 0 or >= 2, got %d", c.Tree.CVFolds)
	case c.Forest.Trees < 1:
		return invalid("forest.trees", "must be >= 1, got %d", c.Forest.Trees)
	case c.Forest.MaxFeatures < 0:
		return invalid("forest.max_features", "must be >= 0, got %d", c.Forest.MaxFeatures)
	case c.Forest.MinLeaf < 1:
		return invalid("forest.min_leaf", "must be >= 1, got %d", c.Forest.MinLeaf)
	case c.Forest.Workers < 0:
		return invalid("forest.workers", "must be >= 0, got %d", c.Forest.Workers)
	case c.Report.TopN < 1:
		return invalid("report.top_n", "must be >= 1, got %d", c.Report.TopN)
	case c.Report.DiagramFormat != "svg" && c.Report.DiagramFormat != "png":
		return invalid("report.diagram_format", "must be svg or png, got %q", c.Report.DiagramFormat)
	}
	if len(c.Schema.Columns) > 0 {
		if c.Schema.Label == "" {
			return invalid("schema.label", "required when columns are set")
		}
		seen := map[string]bool{c.Schema.Label: true}
		for i, col := range c.Schema.Columns {
			if col.Name == "" {
				return invalid(fmt.Sprintf("schema.columns[%d].name", i), "is empty")
			}
			if seen[col.Name] {
				return invalid(fmt.Sprintf("schema.columns[%d].name", i), "duplicate column %q", col.Name)
			}
			seen[col.Name] = true
			switch strings.ToLower(col.Kind) {
			case "numeric", "categorical":
			default:
				return invalid(fmt.Sprintf("schema.columns[%d].kind", i), "must be numeric or categorical, got %q", col.Kind)
			}
		}
	}
	return nil
}
