package browse

import (
	"fmt"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/sirupsen/logrus"

	"github.com/shuiyuan-tools/discourse_automation/config"
	"github.com/shuiyuan-tools/discourse_automation/humanize"
)

// Driver is the narrow surface the read loop needs from a page. The rod
// implementation lives below; tests drive the loop with a fake.
type Driver interface {
	// Metrics returns the live scroll-position triple.
	Metrics() (Metrics, error)
	// ScrollBy moves the scroll position down by px pixels.
	ScrollBy(px float64) error
	// LikeVisible activates up to max eligible like controls currently in
	// view (max <= 0 means no cap) and returns how many were confirmed.
	LikeVisible(max int) (int, error)
}

// PageDriver drives a live Discourse topic page through rod.
type PageDriver struct {
	page    *rod.Page
	site    config.Site
	markers config.Markers
	pacer   *humanize.Pacer

	// seen holds the position keys processed during this topic visit.
	// A key, once recorded, is never reprocessed until ResetMemory.
	seen map[string]struct{}
}

// NewPageDriver builds a driver for one topic visit.
func NewPageDriver(page *rod.Page, site config.Site, pacer *humanize.Pacer) *PageDriver {
	markers := site.LikedMarkers
	if len(markers.ClassSubstrings) == 0 && len(markers.TitleSubstrings) == 0 && !markers.AriaPressed {
		markers = config.DefaultMarkers()
	}
	return &PageDriver{
		page:    page,
		site:    site,
		markers: markers,
		pacer:   pacer,
		seen:    make(map[string]struct{}),
	}
}

// ResetMemory clears the interaction memory when a new topic is opened.
func (d *PageDriver) ResetMemory() {
	d.seen = make(map[string]struct{})
}

// Metrics implements Driver. A failed read is retried once after a short
// pause; if even a trivial evaluation fails the session is gone.
func (d *PageDriver) Metrics() (Metrics, error) {
	m, err := readMetrics(d.page)
	if err == nil {
		return m, nil
	}

	if !d.pageAlive() {
		return Metrics{}, fmt.Errorf("%w: %v", ErrSessionLost, err)
	}

	time.Sleep(500 * time.Millisecond)
	return readMetrics(d.page)
}

// ScrollBy implements Driver.
func (d *PageDriver) ScrollBy(px float64) error {
	_, err := d.page.Eval(`(y) => window.scrollBy(0, y)`, px)
	if err != nil && !d.pageAlive() {
		return fmt.Errorf("%w: %v", ErrSessionLost, err)
	}
	return err
}

// ScrollToTop jumps back to the document start before a visit begins.
func (d *PageDriver) ScrollToTop() {
	_, _ = d.page.Eval(`() => window.scrollTo(0, 0)`)
}

func (d *PageDriver) pageAlive() bool {
	_, err := d.page.Eval(`() => 1`)
	return err == nil
}

// controlState is what the driver reads off each matched control.
type controlState struct {
	el     *rod.Element
	x, y   float64
	height float64
	class  string
	title  string
	aria   string
}

// LikeVisible implements Driver: enumerate controls matching the site's
// selectors, drop activated/seen/off-screen ones, rank the rest by
// proximity to the viewport center and activate up to max of them.
func (d *PageDriver) LikeVisible(max int) (int, error) {
	metrics, err := d.Metrics()
	if err != nil {
		return 0, err
	}

	states := d.collectControls()
	if len(states) == 0 {
		return 0, nil
	}

	cands, skipped := selectCandidates(states, d.seen, d.markers, metrics)
	if len(cands) == 0 {
		if skipped > 0 {
			logrus.WithField("skipped", skipped).Debug("no new like controls in view")
		}
		return 0, nil
	}

	liked := 0
	for _, c := range cands {
		if max > 0 && liked >= max {
			break
		}

		// Record the key before clicking: even an unconfirmed click must
		// never be repeated against the same position.
		d.seen[c.key] = struct{}{}

		if d.activate(states[c.index].el) {
			liked++
			d.pacer.Like()
		}
	}

	if liked > 0 || skipped > 0 {
		logrus.WithFields(logrus.Fields{
			"liked":   liked,
			"skipped": skipped,
		}).Info("like pass finished")
	}
	return liked, nil
}

// collectControls gathers every control matching the configured selectors,
// with its document-absolute position and activation attributes. Individual
// element failures (stale references, mid-render mutations) are skipped.
func (d *PageDriver) collectControls() []controlState {
	selectors := d.site.LikeSelectors
	if len(selectors) == 0 {
		selectors = config.DefaultLikeSelectors()
	}

	var states []controlState
	seenEl := map[proto.RuntimeRemoteObjectID]struct{}{}

	for _, sel := range selectors {
		elems, err := d.page.Elements(sel)
		if err != nil {
			continue
		}
		for _, el := range elems {
			if el.Object != nil {
				if _, dup := seenEl[el.Object.ObjectID]; dup {
					continue
				}
				seenEl[el.Object.ObjectID] = struct{}{}
			}

			st, err := d.readControl(el)
			if err != nil {
				continue
			}
			states = append(states, st)
		}
	}
	return states
}

func (d *PageDriver) readControl(el *rod.Element) (controlState, error) {
	obj, err := el.Eval(`() => {
		const r = this.getBoundingClientRect();
		return {
			x: r.x + window.pageXOffset,
			y: r.y + window.pageYOffset,
			h: r.height,
			cls: this.getAttribute("class") || "",
			title: this.getAttribute("title") || "",
			aria: this.getAttribute("aria-pressed") || "",
		};
	}`)
	if err != nil {
		return controlState{}, err
	}

	v := obj.Value
	return controlState{
		el:     el,
		x:      v.Get("x").Num(),
		y:      v.Get("y").Num(),
		height: v.Get("h").Num(),
		class:  v.Get("cls").Str(),
		title:  v.Get("title").Str(),
		aria:   v.Get("aria").Str(),
	}, nil
}

const (
	confirmPolls    = 5
	confirmInterval = 200 * time.Millisecond
)

// activate clicks one control and confirms the state transition. Only a
// confirmed "now liked" state counts; a click swallowed by an overlay does
// not.
func (d *PageDriver) activate(el *rod.Element) bool {
	if _, err := el.Eval(`() => this.scrollIntoView({block: "center"})`); err != nil {
		return false
	}
	humanize.SleepMillis(300, 500)

	if err := el.Click(proto.InputMouseButtonLeft, 1); err != nil {
		// Overlapping layers intercept real clicks; fall back to invoking
		// the control's click behavior directly.
		if _, jsErr := el.Eval(`() => this.click()`); jsErr != nil {
			logrus.WithError(jsErr).Debug("like click failed")
			return false
		}
	}

	for i := 0; i < confirmPolls; i++ {
		time.Sleep(confirmInterval)
		st, err := d.readControl(el)
		if err != nil {
			return false
		}
		if isActivated(st.class, st.title, st.aria, d.markers) {
			return true
		}
	}

	logrus.Debug("like click issued but state change was not confirmed")
	return false
}
