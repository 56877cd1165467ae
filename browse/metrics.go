// Package browse implements the scroll/read/like core: page metrics,
// like-control discovery and de-duplication, and the adaptive
// bottom-detection loop that pages through a topic.
package browse

import (
	"errors"
	"fmt"

	"github.com/go-rod/rod"
)

// ErrSessionLost marks a browser failure the loop cannot recover from.
// Everything else that goes wrong inside the loop is treated as "no
// progress this iteration".
var ErrSessionLost = errors.New("browser session lost")

// Metrics is the transient scroll-position triple, recomputed from the live
// page on every iteration and never cached beyond one iteration.
type Metrics struct {
	Offset   float64 // vertical scroll offset
	Viewport float64 // visible viewport height
	Height   float64 // total scrollable document height
}

// Remaining is the distance still below the fold.
func (m Metrics) Remaining() float64 {
	r := m.Height - (m.Offset + m.Viewport)
	if r < 0 {
		return 0
	}
	return r
}

// AtBottom reports whether the viewport reaches the document end, within
// epsilon pixels.
func (m Metrics) AtBottom(epsilon float64) bool {
	return m.Offset+m.Viewport >= m.Height-epsilon
}

// readMetrics queries offset, viewport and height in a single evaluation so
// the three numbers cannot skew against each other mid-render.
func readMetrics(page *rod.Page) (Metrics, error) {
	obj, err := page.Eval(`() => ({
		top: window.pageYOffset,
		vh: window.innerHeight,
		sh: document.body.scrollHeight,
	})`)
	if err != nil {
		return Metrics{}, fmt.Errorf("failed to read page metrics: %w", err)
	}

	m := Metrics{
		Offset:   obj.Value.Get("top").Num(),
		Viewport: obj.Value.Get("vh").Num(),
		Height:   obj.Value.Get("sh").Num(),
	}
	if m.Offset < 0 {
		m.Offset = 0
	}
	if m.Viewport < 0 {
		m.Viewport = 0
	}
	if m.Height < 0 {
		m.Height = 0
	}
	return m, nil
}
