package browse

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/shuiyuan-tools/discourse_automation/config"
)

// candidate is an ephemeral reference to a live like control, annotated
// with everything the ranking and de-duplication steps need.
type candidate struct {
	index      int     // position in the enumeration order
	key        string  // rounded-position identity proxy
	top        float64 // document-absolute
	height     float64
	centerDist float64 // |element center - viewport center|
}

// positionKey builds the de-duplication key from a control's rounded
// on-page position. Position is a proxy for identity: DOM references go
// stale across Discourse re-renders, coordinates mostly do not. Collisions
// after a reflow are possible and accepted.
func positionKey(x, y float64) string {
	return fmt.Sprintf("%d_%d", int(math.Round(x)), int(math.Round(y)))
}

// intersectsViewport reports whether any part of the element is visible.
// Partially visible counts.
func intersectsViewport(top, height, viewTop, viewHeight float64) bool {
	bottom := top + height
	return bottom > viewTop && top < viewTop+viewHeight
}

// rankByCenter orders candidates by ascending distance from the viewport's
// vertical center, the way a person scans the most prominent item first.
func rankByCenter(cands []candidate, viewTop, viewHeight float64) {
	center := viewTop + viewHeight/2
	for i := range cands {
		elCenter := cands[i].top + cands[i].height/2
		cands[i].centerDist = math.Abs(elCenter - center)
	}
	sort.SliceStable(cands, func(i, j int) bool {
		return cands[i].centerDist < cands[j].centerDist
	})
}

// selectCandidates runs the eligibility pipeline over collected control
// states: keys already in seen are skipped, activated controls are recorded
// in seen and skipped, off-screen controls are dropped, and the survivors
// come back ranked by viewport-center proximity. Recording activated keys
// here is what keeps a confirmed control out of every later pass of the
// same visit.
func selectCandidates(states []controlState, seen map[string]struct{}, m config.Markers, metrics Metrics) (cands []candidate, skipped int) {
	for i, st := range states {
		key := positionKey(st.x, st.y)
		if _, done := seen[key]; done {
			skipped++
			continue
		}
		if isActivated(st.class, st.title, st.aria, m) {
			seen[key] = struct{}{}
			skipped++
			continue
		}
		if !intersectsViewport(st.y, st.height, metrics.Offset, metrics.Viewport) {
			continue
		}
		cands = append(cands, candidate{index: i, key: key, top: st.y, height: st.height})
	}

	rankByCenter(cands, metrics.Offset, metrics.Viewport)
	return cands, skipped
}

// isActivated applies the configured liked-markers to a control's
// attributes. The marker list is configuration, not code; the loop itself
// carries no presentation-layer assumptions.
func isActivated(class, title, ariaPressed string, m config.Markers) bool {
	lowerClass := strings.ToLower(class)
	for _, sub := range m.ClassSubstrings {
		if sub != "" && strings.Contains(lowerClass, strings.ToLower(sub)) {
			return true
		}
	}

	lowerTitle := strings.ToLower(title)
	for _, sub := range m.TitleSubstrings {
		if sub == "" {
			continue
		}
		if strings.Contains(lowerTitle, strings.ToLower(sub)) || strings.Contains(title, sub) {
			return true
		}
	}

	if m.AriaPressed && ariaPressed == "true" {
		return true
	}
	return false
}
