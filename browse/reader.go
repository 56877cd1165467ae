package browse

import (
	"errors"

	"github.com/sirupsen/logrus"

	"github.com/shuiyuan-tools/discourse_automation/humanize"
)

// Tunable loop constants. The stability threshold and epsilon are
// empirically chosen; validate against real infinite-scroll threads before
// changing them.
const (
	// bottomEpsilon is how close to the document end counts as "at the
	// bottom", in pixels.
	bottomEpsilon = 100.0
	// stableChecksNeeded is how many consecutive at-bottom confirmations,
	// with no intervening height growth, end the visit.
	stableChecksNeeded = 2
	// maxIterations bounds worst-case runtime on pathological
	// infinite-scroll pages.
	maxIterations = 300
	// exhaustPassLimit bounds the repeated single-activation calls of an
	// exhaustive like pass.
	exhaustPassLimit = 50

	// Step sizing: a large stride while far from the bottom, a small one
	// close to it so un-rendered content near the end is not overshot.
	farStepFraction  = 0.8
	nearStepFraction = 0.35
	fallbackStep     = 400.0
)

// Stats summarizes one topic visit.
type Stats struct {
	Iterations int
	Scrolls    int
	Liked      int
	Bottom     bool // true when the loop ended on confirmed bottom, not the hard cap
}

// Reader runs the scroll/read/like loop over a Driver.
type Reader struct {
	drv   Driver
	pacer *humanize.Pacer

	// LikeEnabled turns the like passes on.
	LikeEnabled bool
	// LikesPerScroll caps activations between scroll steps; 0 exhausts
	// every visible candidate before moving on.
	LikesPerScroll int
	// MaxTotalLikes caps activations across the whole visit (a daily-budget
	// remainder). 0 = unlimited.
	MaxTotalLikes int
}

// NewReader builds a reader over drv with the given pacing.
func NewReader(drv Driver, pacer *humanize.Pacer) *Reader {
	return &Reader{drv: drv, pacer: pacer}
}

// Run pages through the document until a stable bottom is confirmed, liking
// along the way. Transient failures cost one iteration; only a lost session
// aborts the visit.
func (r *Reader) Run() (Stats, error) {
	stats := Stats{}
	lastHeight := -1.0
	stable := 0

	for stats.Iterations < maxIterations {
		stats.Iterations++

		// Like before moving: candidates may have just scrolled into view.
		if err := r.likePass(&stats); err != nil {
			return stats, err
		}

		m, err := r.drv.Metrics()
		if err != nil {
			if errors.Is(err, ErrSessionLost) {
				return stats, err
			}
			// Stale metrics: no progress this iteration, try again.
			logrus.WithError(err).Debug("metrics read failed, retrying")
			r.pacer.Scroll()
			continue
		}

		// A lazy-loading page that grew must never be terminated on the
		// pre-growth bottom.
		if lastHeight >= 0 && m.Height > lastHeight {
			if stable > 0 {
				logrus.Debug("document grew, resetting bottom stability")
			}
			stable = 0
		}
		lastHeight = m.Height

		if m.AtBottom(bottomEpsilon) {
			stable++
			if stable >= stableChecksNeeded {
				stats.Bottom = true
				break
			}
			// Possibly just a pause in lazy loading; wait and re-check.
			r.pacer.Scroll()
			continue
		}
		stable = 0

		step := m.Viewport * farStepFraction
		if m.Remaining() < m.Viewport {
			step = m.Viewport * nearStepFraction
		}
		if step <= 0 {
			step = fallbackStep
		}

		if err := r.drv.ScrollBy(step); err != nil {
			if errors.Is(err, ErrSessionLost) {
				return stats, err
			}
			logrus.WithError(err).Debug("scroll step failed")
		} else {
			stats.Scrolls++
		}
		r.pacer.Scroll()
	}

	if !stats.Bottom {
		logrus.Warn("stopping at the iteration cap without a confirmed bottom")
	}

	// One last pass: the bottom-most posts entered view after the final
	// scroll step.
	if err := r.likePass(&stats); err != nil {
		return stats, err
	}
	return stats, nil
}

func (r *Reader) likePass(stats *Stats) error {
	if !r.LikeEnabled {
		return nil
	}

	remaining := -1 // unlimited
	if r.MaxTotalLikes > 0 {
		remaining = r.MaxTotalLikes - stats.Liked
		if remaining <= 0 {
			return nil
		}
	}

	if r.LikesPerScroll <= 0 {
		// Exhaustive mode: one activation at a time until nothing is left.
		for i := 0; i < exhaustPassLimit; i++ {
			if remaining == 0 {
				return nil
			}
			n, err := r.drv.LikeVisible(1)
			if err != nil {
				if errors.Is(err, ErrSessionLost) {
					return err
				}
				return nil // transient, give up on this pass
			}
			if n == 0 {
				return nil
			}
			stats.Liked += n
			if remaining > 0 {
				remaining -= n
			}
		}
		return nil
	}

	limit := r.LikesPerScroll
	if remaining > 0 && remaining < limit {
		limit = remaining
	}
	n, err := r.drv.LikeVisible(limit)
	if err != nil {
		if errors.Is(err, ErrSessionLost) {
			return err
		}
		return nil
	}
	stats.Liked += n
	return nil
}
