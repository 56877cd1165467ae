package humanize

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/shuiyuan-tools/discourse_automation/config"
)

func TestBetweenBounds(t *testing.T) {
	for i := 0; i < 100; i++ {
		d := Between(1, 3)
		assert.GreaterOrEqual(t, d, 1*time.Second)
		assert.LessOrEqual(t, d, 3*time.Second)
	}
}

func TestBetweenZeroMaxIsOptOut(t *testing.T) {
	assert.Equal(t, time.Duration(0), Between(0, 0))
	assert.Equal(t, time.Duration(0), Between(2, 0))
	assert.Equal(t, time.Duration(0), Between(0, -1))
}

func TestBetweenDegenerateRange(t *testing.T) {
	assert.Equal(t, 2*time.Second, Between(2, 2))
}

func TestPacerZeroRangeDoesNotSleep(t *testing.T) {
	p := NewPacer(config.RateControl{})

	slept := false
	p.sleep = func(time.Duration) { slept = true }

	p.Scroll()
	p.Like()
	p.Topic()
	assert.False(t, slept, "zero-range pacer must not wait at all")
}

func TestPacerWaitsWithinKindRange(t *testing.T) {
	p := NewPacer(config.RateControl{
		ScrollDelayMin: 1, ScrollDelayMax: 2,
		LikeDelayMin: 0.5, LikeDelayMax: 0.6,
		TopicDelayMin: 5, TopicDelayMax: 10,
	})

	var got time.Duration
	p.sleep = func(d time.Duration) { got = d }

	for i := 0; i < 50; i++ {
		p.Wait(KindScroll)
		assert.GreaterOrEqual(t, got, 1*time.Second)
		assert.LessOrEqual(t, got, 2*time.Second)

		p.Wait(KindTopic)
		assert.GreaterOrEqual(t, got, 5*time.Second)
		assert.LessOrEqual(t, got, 10*time.Second)
	}
}

func TestPacerNormalizesSwappedBounds(t *testing.T) {
	p := NewPacer(config.RateControl{ScrollDelayMin: 3, ScrollDelayMax: 1})

	var got time.Duration
	p.sleep = func(d time.Duration) { got = d }

	p.Wait(KindScroll)
	assert.GreaterOrEqual(t, got, 1*time.Second)
	assert.LessOrEqual(t, got, 3*time.Second)
}
