// Package humanize provides randomized pacing so the automation's
// interaction rhythm stays variable instead of obviously robotic.
package humanize

import (
	"math/rand"
	"time"

	"github.com/shuiyuan-tools/discourse_automation/config"
)

// Kind names a paced interaction.
type Kind string

const (
	KindScroll Kind = "scroll"
	KindLike   Kind = "like"
	KindTopic  Kind = "topic"
)

// Pacer converts configured delay ranges into actual waits. It is a
// blocking, single-threaded suspension; there is no concurrency to
// coordinate with.
type Pacer struct {
	rc    config.RateControl
	sleep func(time.Duration)
}

// NewPacer builds a pacer from an already-normalized rate control.
func NewPacer(rc config.RateControl) *Pacer {
	rc.Normalize()
	return &Pacer{rc: rc, sleep: time.Sleep}
}

// Wait blocks for a duration drawn uniformly from the kind's [min, max]
// range. A max of zero or below means the wait is explicitly opted out.
func (p *Pacer) Wait(kind Kind) {
	min, max := p.bounds(kind)
	d := Between(min, max)
	if d <= 0 {
		return
	}
	p.sleep(d)
}

// Scroll pauses between scroll steps.
func (p *Pacer) Scroll() { p.Wait(KindScroll) }

// Like pauses after a like click.
func (p *Pacer) Like() { p.Wait(KindLike) }

// Topic pauses between topic visits.
func (p *Pacer) Topic() { p.Wait(KindTopic) }

func (p *Pacer) bounds(kind Kind) (float64, float64) {
	switch kind {
	case KindScroll:
		return p.rc.ScrollDelayMin, p.rc.ScrollDelayMax
	case KindLike:
		return p.rc.LikeDelayMin, p.rc.LikeDelayMax
	case KindTopic:
		return p.rc.TopicDelayMin, p.rc.TopicDelayMax
	default:
		return 0, 0
	}
}

// Between returns a random duration drawn uniformly from [min, max] seconds.
// A non-positive max yields zero.
func Between(min, max float64) time.Duration {
	if max <= 0 {
		return 0
	}
	if min < 0 {
		min = 0
	}
	if min >= max {
		return time.Duration(min * float64(time.Second))
	}
	n := min + rand.Float64()*(max-min)
	return time.Duration(n * float64(time.Second))
}

// SleepBetween blocks for a random duration between min and max seconds.
func SleepBetween(min, max float64) {
	time.Sleep(Between(min, max))
}

// SleepMillis blocks for a random duration between min and max milliseconds.
func SleepMillis(min, max int) {
	if max <= 0 {
		return
	}
	if min >= max {
		time.Sleep(time.Duration(min) * time.Millisecond)
		return
	}
	n := rand.Intn(max-min+1) + min
	time.Sleep(time.Duration(n) * time.Millisecond)
}
