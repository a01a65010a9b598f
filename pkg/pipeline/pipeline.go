// Package pipeline runs the credit risk analysis end to end:
// load, describe, split, balance, fit, evaluate and report.
package pipeline

import (
	"context"
	"math/rand"
	"time"

	"github.com/KMoex-HZ/Creditworthiness-Prediction-using-CART-and-Random-Forest/pkg/config"
	"github.com/KMoex-HZ/Creditworthiness-Prediction-using-CART-and-Random-Forest/pkg/data"
	"github.com/KMoex-HZ/Creditworthiness-Prediction-using-CART-and-Random-Forest/pkg/dataprep"
	"github.com/KMoex-HZ/Creditworthiness-Prediction-using-CART-and-Random-Forest/pkg/loader"
	"github.com/KMoex-HZ/Creditworthiness-Prediction-using-CART-and-Random-Forest/pkg/model"
	"github.com/KMoex-HZ/Creditworthiness-Prediction-using-CART-and-Random-Forest/pkg/report"
	"github.com/KMoex-HZ/Creditworthiness-Prediction-using-CART-and-Random-Forest/pkg/stats"
	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Result holds the output of every stage. Each field is written once by its
// stage and only read afterwards.
type Result struct {
	Config   config.Config
	Schema   data.Schema
	Data     *data.Dataset
	Summary  *stats.Summary
	Train    *data.Dataset
	Test     *data.Dataset
	Balanced *data.Dataset

	Models     []model.Classifier
	Comparison *report.ComparisonReport
	Manifest   *report.Manifest
	Outputs    []string
}

// Stage is one step of the pipeline.
type Stage struct {
	Name string
	Run  func(ctx context.Context, res *Result) error
}

// Pipeline chains stages.
type Pipeline struct {
	steps []Stage
	log   *zap.Logger
}

func NewPipeline(log *zap.Logger, steps ...Stage) *Pipeline {
	return &Pipeline{steps: steps, log: log}
}

// Execute runs the stages in order. The context is checked before every
// stage; the first failure stops the run and is wrapped with the stage name.
func (p *Pipeline) Execute(ctx context.Context, res *Result) error {
	for _, step := range p.steps {
		if err := ctx.Err(); err != nil {
			return errors.Wrapf(err, "%s stage", step.Name)
		}
		start := time.Now()
		p.log.Debug("stage started", zap.String("stage", step.Name))
		if err := step.Run(ctx, res); err != nil {
			p.log.Error("stage failed", zap.String("stage", step.Name), zap.Error(err))
			return errors.Wrapf(err, "%s stage", step.Name)
		}
		took := time.Since(start)
		if res.Manifest != nil {
			res.Manifest.AddStage(step.Name, took)
		}
		p.log.Info("stage done", zap.String("stage", step.Name), zap.Duration("took", took))
	}
	return nil
}

// seeds derives the stage-scoped seeds of a run from the configured seed.
type seeds struct {
	split, balance int64
	trainers       []int64
}

func deriveSeeds(seed int64, trainers int) seeds {
	rnd := rand.New(rand.NewSource(seed))
	s := seeds{split: rnd.Int63(), balance: rnd.Int63()}
	for i := 0; i < trainers; i++ {
		s.trainers = append(s.trainers, rnd.Int63())
	}
	return s
}

// Trainers builds the CART and random forest trainers described by cfg.
func Trainers(cfg config.Config) []model.Trainer {
	tree := model.TreeTrainer{
		CVFolds: cfg.Tree.CVFolds,
		Options: []model.Option{
			model.WithCriterion(cfg.Tree.Criterion),
			model.WithMinSamplesSplit(cfg.Tree.MinSplit),
			model.WithMinSamplesLeaf(cfg.Tree.MinLeaf),
			model.WithMinImpurityDecrease(cfg.Tree.MinImprovement),
			model.WithMaxDepth(cfg.Tree.MaxDepth),
		},
	}
	forest := model.ForestTrainer{
		Options: []model.RandomForestOption{
			model.WithNEstimators(cfg.Forest.Trees),
			model.WithForestMaxFeatures(cfg.Forest.MaxFeatures),
			model.WithForestMinSamplesLeaf(cfg.Forest.MinLeaf),
			model.WithWorkers(cfg.Forest.Workers),
		},
	}
	return []model.Trainer{tree, forest}
}

// Run validates cfg and executes the full analysis.
func Run(ctx context.Context, cfg config.Config, log *zap.Logger) (*Result, error) {
	res, stages, log, err := prepare(cfg, log)
	if err != nil {
		return nil, err
	}
	if err := NewPipeline(log, stages...).Execute(ctx, res); err != nil {
		return res, err
	}
	if err := writeManifest(res); err != nil {
		return res, errors.Wrap(err, "report stage")
	}
	for _, b := range res.Manifest.Best {
		log.Info("best model", zap.String("metric", b.Metric), zap.String("model", b.Model), zap.Float64("value", b.Value))
	}
	return res, nil
}

// Describe runs only the load and describe stages.
func Describe(ctx context.Context, cfg config.Config, log *zap.Logger) (*Result, error) {
	res, stages, log, err := prepare(cfg, log)
	if err != nil {
		return nil, err
	}
	if err := NewPipeline(log, stages[:2]...).Execute(ctx, res); err != nil {
		return res, err
	}
	return res, nil
}

func prepare(cfg config.Config, log *zap.Logger) (*Result, []Stage, *zap.Logger, error) {
	if err := cfg.Validate(); err != nil {
		return nil, nil, nil, err
	}
	schema, err := SchemaFromConfig(cfg.Schema)
	if err != nil {
		return nil, nil, nil, err
	}

	trainers := Trainers(cfg)
	sd := deriveSeeds(cfg.Seed, len(trainers))
	res := &Result{
		Config:   cfg,
		Schema:   schema,
		Manifest: report.NewManifest(cfg.Input, cfg.Seed, time.Now()),
	}
	log = log.With(zap.String("run_id", res.Manifest.RunID))

	stages := []Stage{
		{Name: "load", Run: func(_ context.Context, res *Result) error {
			ds, err := data.Load(cfg.Input, schema, cfg.ExpectedRows)
			if err != nil {
				return err
			}
			res.Data = ds
			res.Schema = ds.Schema
			res.Manifest.Records = ds.Len()
			log.Debug("loaded", zap.String("records", humanize.Comma(int64(ds.Len()))), zap.Ints("labels", counts(ds)))
			return nil
		}},
		{Name: "describe", Run: func(_ context.Context, res *Result) error {
			s, err := stats.Describe(res.Data)
			if err != nil {
				return err
			}
			res.Summary = s
			return nil
		}},
		{Name: "split", Run: func(_ context.Context, res *Result) error {
			train, test, err := loader.StratifiedSplit(res.Data, cfg.Split.TrainFraction, sd.split)
			if err != nil {
				return err
			}
			res.Train, res.Test = train, test
			res.Manifest.Train, res.Manifest.Test = train.Len(), test.Len()
			log.Debug("split", zap.Ints("train", counts(train)), zap.Ints("test", counts(test)))
			return nil
		}},
		{Name: "balance", Run: func(_ context.Context, res *Result) error {
			bal, err := dataprep.Balance(res.Train, dataprep.BalanceOptions{
				Seed:   sd.balance,
				Size:   cfg.Balance.Size,
				Jitter: cfg.Balance.Jitter,
				Shrink: cfg.Balance.Shrink,
			})
			if err != nil {
				return err
			}
			res.Balanced = bal
			res.Manifest.Balanced = bal.Len()
			log.Debug("balanced", zap.Ints("labels", counts(bal)))
			return nil
		}},
		{Name: "fit", Run: func(ctx context.Context, res *Result) error {
			for i, tr := range trainers {
				if err := ctx.Err(); err != nil {
					return err
				}
				start := time.Now()
				clf, err := tr.Train(res.Balanced, sd.trainers[i])
				if err != nil {
					return errors.Wrap(err, tr.Name())
				}
				res.Models = append(res.Models, clf)
				log.Info("model trained", zap.String("model", tr.Name()), zap.Duration("took", time.Since(start)))
			}
			return nil
		}},
		{Name: "evaluate", Run: func(_ context.Context, res *Result) error {
			var results []*model.EvaluationResult
			for _, clf := range res.Models {
				r := model.Evaluate(clf.Name(), clf, res.Test)
				for _, w := range r.Warnings {
					log.Warn("degenerate metric", zap.String("model", w.Model), zap.String("metric", w.Metric))
				}
				results = append(results, r)
			}
			res.Comparison = report.NewComparison(results...)
			res.Manifest.SetBest(res.Comparison)
			return nil
		}},
		{Name: "report", Run: func(_ context.Context, res *Result) error {
			return writeReport(res, log)
		}},
	}
	return res, stages, log, nil
}

func counts(ds *data.Dataset) []int {
	c := ds.LabelCounts()
	return c[:]
}
