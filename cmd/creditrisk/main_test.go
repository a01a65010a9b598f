package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/KMoex-HZ/Creditworthiness-Prediction-using-CART-and-Random-Forest/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeRunConfig(t *testing.T, dir string) string {
	t.Helper()
	var b strings.Builder
	b.WriteString("amount,purpose,class\n")
	for i := 0; i < 20; i++ {
		if i%2 == 0 {
			b.WriteString("4,car,bad\n")
		} else {
			b.WriteString("6,tv,good\n")
		}
	}
	input := filepath.Join(dir, "credit.csv")
	require.NoError(t, os.WriteFile(input, []byte(b.String()), 0o644))

	cfg := config.Default()
	cfg.Input = input
	cfg.OutputDir = filepath.Join(dir, "out")
	cfg.ExpectedRows = 20
	cfg.Schema = config.Schema{Label: "class", Columns: []config.Column{
		{Name: "amount", Kind: "numeric"},
		{Name: "purpose", Kind: "categorical"},
	}}
	cfg.Split.TrainFraction = 0.5
	cfg.Tree.MinSplit = 2
	cfg.Tree.MinLeaf = 1
	cfg.Tree.CVFolds = 5
	cfg.Forest.Trees = 10
	raw, err := cfg.Marshal()
	require.NoError(t, err)
	path := filepath.Join(dir, "creditrisk.yaml")
	require.NoError(t, os.WriteFile(path, raw, 0o644))
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestInitWritesDefaultConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.yaml")
	out, err := execute(t, "init", path)
	require.NoError(t, err)
	assert.Contains(t, out, "wrote "+path)

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, config.Default(), cfg)

	_, err = execute(t, "init", path)
	var ce cliError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, 2, ce.code)

	_, err = execute(t, "init", "--force", path)
	assert.NoError(t, err)
}

func TestDescribePrintsSummaries(t *testing.T) {
	path := writeRunConfig(t, t.TempDir())
	out, err := execute(t, "describe", "-c", path)
	require.NoError(t, err)
	assert.Contains(t, out, "20 records: 10 Bad, 10 Good")
	assert.Contains(t, out, "amount")
	assert.Contains(t, out, "purpose")
}

func TestRunWritesReport(t *testing.T) {
	dir := t.TempDir()
	path := writeRunConfig(t, dir)
	outDir := filepath.Join(dir, "elsewhere")
	out, err := execute(t, "run", "-c", path, "--output", outDir, "--trees", "5", "--seed", "7")
	require.NoError(t, err)
	assert.Contains(t, out, "Best model by")

	_, err = os.Stat(filepath.Join(outDir, "run.json"))
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(dir, "out"))
	assert.True(t, os.IsNotExist(err))
}

func TestRunReportsStageFailure(t *testing.T) {
	path := writeRunConfig(t, t.TempDir())
	_, err := execute(t, "run", "-c", path, "--input", filepath.Join(t.TempDir(), "nope.csv"))
	var ce cliError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, 1, ce.code)
	assert.True(t, strings.HasPrefix(err.Error(), "load stage: "), err.Error())
}

func TestInvalidConfigExitsWithUsageCode(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("split:\n  train_fraction: 3\n"), 0o644))
	_, err := execute(t, "describe", "-c", path)
	var ce cliError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, 2, ce.code)
}

func TestFlagsThatBreakConfigExitWithUsageCode(t *testing.T) {
	path := writeRunConfig(t, t.TempDir())
	for _, args := range [][]string{
		{"run", "-c", path, "--train-fraction", "1.5"},
		{"run", "-c", path, "--trees", "0"},
		{"describe", "-c", path, "--input", ""},
	} {
		_, err := execute(t, args...)
		var ce cliError
		require.True(t, errors.As(err, &ce), "%v: %v", args, err)
		assert.Equal(t, exitUsage, ce.code, "%v", args)
		assert.Equal(t, 1, strings.Count(err.Error(), "config: "), err.Error())
	}
}

func TestUnknownFlagExitsWithUsageCode(t *testing.T) {
	for _, args := range [][]string{
		{"run", "--bogus-flag"},
		{"describe", "--bogus-flag"},
		{"init", "a.yaml", "b.yaml"},
	} {
		_, err := execute(t, args...)
		var ce cliError
		require.True(t, errors.As(err, &ce), "%v: %v", args, err)
		assert.Equal(t, exitUsage, ce.code, "%v", args)
	}
}
