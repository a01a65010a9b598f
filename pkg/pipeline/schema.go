package pipeline

import (
	"github.com/KMoex-HZ/Creditworthiness-Prediction-using-CART-and-Random-Forest/pkg/config"
	"github.com/KMoex-HZ/Creditworthiness-Prediction-using-CART-and-Random-Forest/pkg/data"
)

// SchemaFromConfig translates the configured columns into a data.Schema.
// An empty column list selects the German credit layout.
func SchemaFromConfig(s config.Schema) (data.Schema, error) {
	if len(s.Columns) == 0 {
		schema := data.GermanCreditSchema()
		if s.Label != "" {
			schema.Label = s.Label
		}
		return schema, nil
	}
	schema := data.Schema{Label: s.Label, Features: make([]data.Column, len(s.Columns))}
	for i, c := range s.Columns {
		kind, err := data.ParseKind(c.Kind)
		if err != nil {
			return data.Schema{}, &config.InvalidConfigError{Field: "schema.columns." + c.Name + ".kind", Reason: err.Error()}
		}
		schema.Features[i] = data.Column{Name: c.Name, Kind: kind}
	}
	return schema, nil
}
