package data

import (
	"strings"

	"github.com/pkg/errors"
)

// Label is the binary credit outcome. The negative class is listed first so
// that probabilities everywhere mean P(Good).
type Label int

const (
	Bad Label = iota
	Good
)

// Labels lists the label levels in their fixed order.
var Labels = [2]Label{Bad, Good}

func (l Label) String() string {
	if l == Good {
		return "Good"
	}
	return "Bad"
}

// ParseLabel accepts good/bad in any case and the Statlog coding 1=good, 2=bad.
func ParseLabel(s string) (Label, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "good", "1":
		return Good, nil
	case "bad", "2":
		return Bad, nil
	}
	return Bad, errors.Errorf("data: unrecognised label %q", s)
}
