package model

import "github.com/KMoex-HZ/Creditworthiness-Prediction-using-CART-and-Random-Forest/pkg/data"

// Classifier is a trained binary credit model.
type Classifier interface {
	Name() string
	PredictLabel(x []float64) data.Label
	PredictProba(x []float64) float64 // returns P(Good)
}

// Trainer builds a Classifier from a (balanced) training set. Trainers are
// stateless; all randomness comes from seed.
type Trainer interface {
	Name() string
	Train(ds *data.Dataset, seed int64) (Classifier, error)
}

// FeatureImportance scores one input variable.
type FeatureImportance struct {
	Variable   string
	Importance float64
}

// ImportanceReporter is implemented by models that rank their inputs.
type ImportanceReporter interface {
	Importance() []FeatureImportance
}
