package data

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// Kind is the storage type of a feature column.
type Kind int

const (
	Numeric Kind = iota
	Categorical
)

func (k Kind) String() string {
	switch k {
	case Numeric:
		return "numeric"
	case Categorical:
		return "categorical"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// ParseKind accepts "numeric"/"num" and "categorical"/"cat"/"factor".
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "numeric", "num", "float", "int":
		return Numeric, nil
	case "categorical", "cat", "factor", "category":
		return Categorical, nil
	}
	return 0, errors.Errorf("data: unknown column kind %q", s)
}

// Column describes one feature. Levels is filled in at load time for
// categorical columns and holds the sorted set of observed categories.
type Column struct {
	Name   string
	Kind   Kind
	Levels []string
}

// Schema is the fixed layout of a credit dataset: the ordered feature columns
// followed by a single binary label column.
type Schema struct {
	Features []Column
	Label    string
}

// Header returns the expected CSV header, label last.
func (s Schema) Header() []string {
	h := make([]string, 0, len(s.Features)+1)
	for _, c := range s.Features {
		h = append(h, c.Name)
	}
	return append(h, s.Label)
}

// FeatureNames returns the feature column names in order.
func (s Schema) FeatureNames() []string {
	names := make([]string, len(s.Features))
	for i, c := range s.Features {
		names[i] = c.Name
	}
	return names
}

// Kinds returns the feature kinds in column order.
func (s Schema) Kinds() []Kind {
	kinds := make([]Kind, len(s.Features))
	for i, c := range s.Features {
		kinds[i] = c.Kind
	}
	return kinds
}

// Format renders value v of feature j the way it appeared in the input.
func (s Schema) Format(j int, v float64) string {
	c := s.Features[j]
	if c.Kind == Categorical {
		i := int(v)
		if i >= 0 && i < len(c.Levels) {
			return c.Levels[i]
		}
		return "?"
	}
	return fmt.Sprintf("%g", v)
}

// GermanCreditSchema is the Statlog German credit layout (1000 applicants,
// 7 numeric and 13 categorical attributes, label column "class").
func GermanCreditSchema() Schema {
	cat := func(n string) Column { return Column{Name: n, Kind: Categorical} }
	num := func(n string) Column { return Column{Name: n, Kind: Numeric} }
	return Schema{
		Features: []Column{
			cat("checking_status"),
			num("duration"),
			cat("credit_history"),
			cat("purpose"),
			num("credit_amount"),
			cat("savings_status"),
			cat("employment"),
			num("installment_commitment"),
			cat("personal_status"),
			cat("other_parties"),
			num("residence_since"),
			cat("property_magnitude"),
			num("age"),
			cat("other_payment_plans"),
			cat("housing"),
			num("existing_credits"),
			cat("job"),
			num("num_dependents"),
			cat("own_telephone"),
			cat("foreign_worker"),
		},
		Label: "class",
	}
}
