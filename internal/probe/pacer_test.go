package probe

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPacerSleepsOnlyEveryBurst(t *testing.T) {
	p := newPacer()
	p.burst = 3
	var slept int
	p.sleep = func(time.Duration) { slept++ }

	for i := 0; i < 7; i++ {
		p.tick()
	}

	assert.Equal(t, 2, slept)
}

func TestPacerNeverSleepsBelowBurst(t *testing.T) {
	p := newPacer()
	p.burst = 100
	var slept int
	p.sleep = func(time.Duration) { slept++ }

	for i := 0; i < 50; i++ {
		p.tick()
	}

	assert.Equal(t, 0, slept)
}
