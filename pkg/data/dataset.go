package data

// Record is one applicant. Categorical values hold the level index into the
// matching schema column. Origin is the ID of the ingested record this one
// was derived from (its own ID for ingested records).
type Record struct {
	ID     int
	Origin int
	Values []float64
	Label  Label
}

// Dataset is an ordered sequence of records sharing one schema. Stages never
// mutate a Dataset; they build new ones.
type Dataset struct {
	Schema  Schema
	Records []Record
}

// New builds a dataset over recs. The slice is owned by the dataset afterwards.
func New(schema Schema, recs []Record) *Dataset {
	return &Dataset{Schema: schema, Records: recs}
}

// Len returns the number of records.
func (d *Dataset) Len() int { return len(d.Records) }

// X returns the feature rows. Rows alias record values and must not be modified.
func (d *Dataset) X() [][]float64 {
	X := make([][]float64, len(d.Records))
	for i, r := range d.Records {
		X[i] = r.Values
	}
	return X
}

// Labels returns the labels as class indices (Bad=0, Good=1).
func (d *Dataset) Labels() []int {
	y := make([]int, len(d.Records))
	for i, r := range d.Records {
		y[i] = int(r.Label)
	}
	return y
}

// LabelCounts returns the number of Bad and Good records.
func (d *Dataset) LabelCounts() [2]int {
	var c [2]int
	for _, r := range d.Records {
		c[r.Label]++
	}
	return c
}

// Subset returns the records at positions idx, in the given order.
func (d *Dataset) Subset(idx []int) *Dataset {
	recs := make([]Record, len(idx))
	for i, k := range idx {
		recs[i] = d.Records[k]
	}
	return New(d.Schema, recs)
}

// ByLabel returns the record positions of each class, in dataset order.
func (d *Dataset) ByLabel() [2][]int {
	var out [2][]int
	for i, r := range d.Records {
		out[r.Label] = append(out[r.Label], i)
	}
	return out
}
