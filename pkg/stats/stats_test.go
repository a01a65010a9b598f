package stats

import (
	"testing"

	"github.com/KMoex-HZ/Creditworthiness-Prediction-using-CART-and-Random-Forest/pkg/data"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sample() *data.Dataset {
	schema := data.Schema{
		Features: []data.Column{
			{Name: "age", Kind: data.Numeric},
			{Name: "housing", Kind: data.Categorical, Levels: []string{"own", "rent"}},
			{Name: "amount", Kind: data.Numeric},
		},
		Label: "class",
	}
	rows := []struct {
		age, housing, amount float64
		label                data.Label
	}{
		{20, 0, 100, data.Good},
		{30, 0, 200, data.Good},
		{40, 1, 300, data.Bad},
		{50, 1, 400, data.Good},
		{60, 0, 500, data.Bad},
		{70, 0, 600, data.Good},
		{80, 1, 700, data.Good},
		{900, 0, 800, data.Good},
	}
	recs := make([]data.Record, len(rows))
	for i, r := range rows {
		recs[i] = data.Record{ID: i, Origin: i, Values: []float64{r.age, r.housing, r.amount}, Label: r.label}
	}
	return data.New(schema, recs)
}

func TestDescribeNumeric(t *testing.T) {
	s, err := Describe(sample())
	require.NoError(t, err)
	assert.Equal(t, 8, s.Records)
	assert.Equal(t, [2]int{2, 6}, s.LabelCounts)

	require.Len(t, s.Numeric, 2)
	age := s.Numeric[0]
	assert.Equal(t, "age", age.Variable)
	assert.Equal(t, 8, age.N)
	assert.InDelta(t, 156.25, age.Mean, 1e-9)
	assert.Equal(t, 20.0, age.Min)
	assert.Equal(t, 900.0, age.Max)
	assert.Equal(t, 55.0, age.Median)
	assert.LessOrEqual(t, age.Q1, age.Median)
	assert.GreaterOrEqual(t, age.Q3, age.Median)
	assert.Equal(t, 1, age.Outliers)

	amount := s.Numeric[1]
	assert.Equal(t, "amount", amount.Variable)
	assert.Equal(t, 0, amount.Outliers)
	assert.Greater(t, amount.SD, 0.0)
}

func TestDescribeLevels(t *testing.T) {
	s, err := Describe(sample())
	require.NoError(t, err)
	require.Len(t, s.Levels, 2)

	own := s.Levels[0]
	assert.Equal(t, "housing", own.Variable)
	assert.Equal(t, "own", own.Level)
	assert.Equal(t, 5, own.Count)
	assert.InDelta(t, 5.0/8, own.Share, 1e-12)
	assert.InDelta(t, 4.0/5, own.GoodRate, 1e-12)

	rent := s.Levels[1]
	assert.Equal(t, 3, rent.Count)
	assert.InDelta(t, 2.0/3, rent.GoodRate, 1e-12)
}

func TestDescribeCorrelations(t *testing.T) {
	s, err := Describe(sample())
	require.NoError(t, err)
	require.Len(t, s.Correlations, 1)
	c := s.Correlations[0]
	assert.Equal(t, "age", c.A)
	assert.Equal(t, "amount", c.B)
	assert.Greater(t, c.R, 0.0)
	assert.LessOrEqual(t, c.R, 1.0)
}

func TestDescribeEmpty(t *testing.T) {
	s, err := Describe(data.New(data.GermanCreditSchema(), nil))
	require.Error(t, err)
	assert.Nil(t, s)
	assert.Contains(t, err.Error(), "empty dataset")
}
