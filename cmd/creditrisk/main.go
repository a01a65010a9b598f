package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/KMoex-HZ/Creditworthiness-Prediction-using-CART-and-Random-Forest/pkg/config"
	"github.com/KMoex-HZ/Creditworthiness-Prediction-using-CART-and-Random-Forest/pkg/logging"
	"github.com/KMoex-HZ/Creditworthiness-Prediction-using-CART-and-Random-Forest/pkg/pipeline"
	"github.com/KMoex-HZ/Creditworthiness-Prediction-using-CART-and-Random-Forest/pkg/report"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const (
	exitFailure = 1
	exitUsage   = 2
)

type cliError struct {
	code int
	err  error
}

func (e cliError) Error() string { return e.err.Error() }

func usageError(err error) error {
	if err == nil {
		return nil
	}
	return cliError{code: exitUsage, err: err}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	root := newRootCommand()
	if err := root.ExecuteContext(ctx); err != nil {
		var ce cliError
		if errors.As(err, &ce) {
			fmt.Fprintln(os.Stderr, ce.err)
			stop()
			os.Exit(ce.code)
		}
		// anything cobra rejects before a command runs is a usage error
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(exitUsage)
	}
}

type globalFlags struct {
	configPath string
	verbose    bool
	jsonLog    bool
}

func newRootCommand() *cobra.Command {
	g := &globalFlags{}
	root := &cobra.Command{
		Use:           "creditrisk",
		Short:         "Compare pruned CART and random forest credit scoring models",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error { return usageError(err) })
	root.PersistentFlags().StringVarP(&g.configPath, "config", "c", "", "YAML run configuration (defaults apply when empty)")
	root.PersistentFlags().BoolVarP(&g.verbose, "verbose", "v", false, "enable debug logging")
	root.PersistentFlags().BoolVar(&g.jsonLog, "json-log", false, "log as JSON")

	root.AddCommand(newRunCommand(g))
	root.AddCommand(newDescribeCommand(g))
	root.AddCommand(newInitCommand())
	return root
}

func loadConfig(g *globalFlags) (config.Config, error) {
	if g.configPath == "" {
		return config.Default(), nil
	}
	cfg, err := config.Load(g.configPath)
	return cfg, usageError(err)
}

// resolveConfig loads the configuration, applies the flags the user set and
// validates the result.
func resolveConfig(cmd *cobra.Command, g *globalFlags, f *runFlags) (config.Config, error) {
	cfg, err := loadConfig(g)
	if err != nil {
		return cfg, err
	}
	f.apply(cmd, &cfg)
	return cfg, usageError(cfg.Validate())
}

// stageError reports a pipeline failure, keeping configuration problems on
// the usage exit code.
func stageError(err error) error {
	var ice *config.InvalidConfigError
	if errors.As(err, &ice) {
		return usageError(err)
	}
	return cliError{code: exitFailure, err: err}
}

type runFlags struct {
	input         string
	output        string
	seed          int64
	trees         int
	trainFraction float64
	cvFolds       int
	saveModels    bool
}

// apply copies every flag the user set onto cfg.
func (f *runFlags) apply(cmd *cobra.Command, cfg *config.Config) {
	changed := cmd.Flags().Changed
	if changed("input") {
		cfg.Input = f.input
	}
	if changed("output") {
		cfg.OutputDir = f.output
	}
	if changed("seed") {
		cfg.Seed = f.seed
	}
	if changed("trees") {
		cfg.Forest.Trees = f.trees
	}
	if changed("train-fraction") {
		cfg.Split.TrainFraction = f.trainFraction
	}
	if changed("cv-folds") {
		cfg.Tree.CVFolds = f.cvFolds
	}
	if changed("save-models") {
		cfg.Report.SaveModels = f.saveModels
	}
}

func addDataFlags(cmd *cobra.Command, f *runFlags) {
	cmd.Flags().StringVarP(&f.input, "input", "i", "", "input CSV")
}

func newRunCommand(g *globalFlags) *cobra.Command {
	f := &runFlags{}
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the full analysis and write the comparison report",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := resolveConfig(cmd, g, f)
			if err != nil {
				return err
			}

			log := logging.New(g.verbose, g.jsonLog)
			defer log.Sync()

			res, err := pipeline.Run(cmd.Context(), cfg, log)
			if err != nil {
				return stageError(err)
			}
			report.PrintSummary(cmd.OutOrStdout(), res.Manifest, res.Comparison)
			log.Info("report written", zap.String("dir", cfg.OutputDir), zap.Int("files", len(res.Outputs)))
			return nil
		},
	}
	addDataFlags(cmd, f)
	cmd.Flags().StringVarP(&f.output, "output", "o", "", "output directory")
	cmd.Flags().Int64Var(&f.seed, "seed", 0, "random seed")
	cmd.Flags().IntVar(&f.trees, "trees", 0, "number of random forest trees")
	cmd.Flags().Float64Var(&f.trainFraction, "train-fraction", 0, "share of records used for training")
	cmd.Flags().IntVar(&f.cvFolds, "cv-folds", 0, "cross-validation folds for tree pruning (0 disables pruning)")
	cmd.Flags().BoolVar(&f.saveModels, "save-models", false, "write gob encoded models")
	return cmd
}

func newDescribeCommand(g *globalFlags) *cobra.Command {
	f := &runFlags{}
	cmd := &cobra.Command{
		Use:   "describe",
		Short: "Load the dataset and print descriptive statistics",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := resolveConfig(cmd, g, f)
			if err != nil {
				return err
			}

			log := logging.New(g.verbose, g.jsonLog)
			defer log.Sync()

			res, err := pipeline.Describe(cmd.Context(), cfg, log)
			if err != nil {
				return stageError(err)
			}
			printDescription(cmd.OutOrStdout(), res)
			return nil
		},
	}
	addDataFlags(cmd, f)
	return cmd
}

func printDescription(w io.Writer, res *pipeline.Result) {
	s := res.Summary
	fmt.Fprintf(w, "%d records: %d Bad, %d Good\n\n", s.Records, s.LabelCounts[0], s.LabelCounts[1])
	fmt.Fprintf(w, "%-24s %10s %10s %10s %10s %10s %10s %10s %8s\n", "Variable", "Mean", "SD", "Min", "Q1", "Median", "Q3", "Max", "Outliers")
	for _, n := range s.Numeric {
		fmt.Fprintf(w, "%-24s %10.2f %10.2f %10.2f %10.2f %10.2f %10.2f %10.2f %8d\n",
			n.Variable, n.Mean, n.SD, n.Min, n.Q1, n.Median, n.Q3, n.Max, n.Outliers)
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "%-24s %-10s %8s %8s %10s\n", "Variable", "Level", "Count", "Share", "Good rate")
	for _, l := range s.Levels {
		fmt.Fprintf(w, "%-24s %-10s %8d %8.3f %10.3f\n", l.Variable, l.Level, l.Count, l.Share, l.GoodRate)
	}
}

func newInitCommand() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init [path]",
		Short: "Write the default run configuration",
		Args: func(cmd *cobra.Command, args []string) error {
			return usageError(cobra.MaximumNArgs(1)(cmd, args))
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "creditrisk.yaml"
			if len(args) == 1 {
				path = args[0]
			}
			if _, err := os.Stat(path); err == nil && !force {
				return usageError(fmt.Errorf("%s already exists (use --force to overwrite)", path))
			}
			b, err := config.Default().Marshal()
			if err != nil {
				return cliError{code: exitFailure, err: err}
			}
			if err := os.WriteFile(path, b, 0o644); err != nil {
				return cliError{code: exitFailure, err: err}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", path)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")
	return cmd
}
