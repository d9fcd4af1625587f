package common

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTimerStop(t *testing.T) {
	timer := NewTimer()
	time.Sleep(time.Millisecond)
	d := timer.Stop()
	assert.Positive(t, d)
	assert.Equal(t, d, timer.Duration())
}

func TestNamedTimerString(t *testing.T) {
	timer := NewNamedTimer("threshold")
	timer.Stop()
	assert.Contains(t, timer.String(), "threshold:")
}

func TestUnnamedTimerString(t *testing.T) {
	timer := NewTimer()
	timer.Stop()
	assert.NotContains(t, timer.String(), ":")
	assert.NotEmpty(t, timer.String())
}
