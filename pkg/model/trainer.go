package model

import (
	"github.com/KMoex-HZ/Creditworthiness-Prediction-using-CART-and-Random-Forest/pkg/data"
)

// TreeTrainer grows a CART tree on the whole training set and prunes it by
// cross-validation. CVFolds < 2 disables pruning.
type TreeTrainer struct {
	Options []Option
	CVFolds int
}

// Name implements Trainer.
func (TreeTrainer) Name() string { return "CART" }

// Train implements Trainer.
func (tt TreeTrainer) Train(ds *data.Dataset, seed int64) (Classifier, error) {
	opts := append([]Option{
		WithColumns(ds.Schema.FeatureNames(), ds.Schema.Kinds()),
		WithRandomState(seed),
	}, tt.Options...)
	tree := NewDecisionTreeClassifier(opts...)

	X, y := ds.X(), ds.Labels()
	if err := tree.Fit(X, y); err != nil {
		return nil, err
	}
	if err := tree.PruneCV(X, y, tt.CVFolds, seed); err != nil {
		return nil, err
	}
	return tree, nil
}

// ForestTrainer fits a bagged random forest.
type ForestTrainer struct {
	Options []RandomForestOption
}

// Name implements Trainer.
func (ForestTrainer) Name() string { return "RandomForest" }

// Train implements Trainer.
func (ft ForestTrainer) Train(ds *data.Dataset, seed int64) (Classifier, error) {
	opts := append([]RandomForestOption{
		WithForestColumns(ds.Schema.FeatureNames(), ds.Schema.Kinds()),
		WithForestSeed(seed),
	}, ft.Options...)
	rf := NewRandomForest(opts...)
	if err := rf.Fit(ds.X(), ds.Labels()); err != nil {
		return nil, err
	}
	return rf, nil
}
