package logging

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLevelsSplitAcrossWriters(t *testing.T) {
	var out, errOut bytes.Buffer
	log := newLogger(&out, &errOut, false, true)
	log.Debug("hidden")
	log.Info("stage done")
	log.Error("stage failed")

	assert.NotContains(t, out.String(), "hidden")
	assert.Contains(t, out.String(), "stage done")
	assert.NotContains(t, out.String(), "stage failed")
	assert.Contains(t, errOut.String(), "stage failed")
	assert.Contains(t, out.String(), `"level":"info"`)
}

func TestVerboseEnablesDebug(t *testing.T) {
	var out, errOut bytes.Buffer
	log := newLogger(&out, &errOut, true, false)
	log.Debug("split sizes")
	assert.Contains(t, out.String(), "DEBUG")
	assert.Contains(t, out.String(), "split sizes")
	assert.Empty(t, errOut.String())
}
