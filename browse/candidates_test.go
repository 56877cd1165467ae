package browse

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shuiyuan-tools/discourse_automation/config"
)

func TestPositionKeyRounds(t *testing.T) {
	assert.Equal(t, "120_456", positionKey(120.4, 455.6))
	assert.Equal(t, positionKey(10.2, 20.3), positionKey(9.8, 19.9),
		"positions rounding to the same pixel share a key")
	assert.NotEqual(t, positionKey(10, 20), positionKey(10, 21))
}

func TestIntersectsViewport(t *testing.T) {
	tests := []struct {
		name        string
		top, height float64
		want        bool
	}{
		{"fully inside", 1200, 40, true},
		{"partially above", 980, 40, true},
		{"partially below", 1990, 40, true},
		{"fully above", 100, 40, false},
		{"fully below", 2500, 40, false},
		{"touching top edge only", 960, 40, false}, // bottom == viewTop
	}

	// Viewport covers [1000, 2000).
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, intersectsViewport(tt.top, tt.height, 1000, 1000))
		})
	}
}

func TestRankByCenterPrefersProminent(t *testing.T) {
	cands := []candidate{
		{key: "top", top: 1000, height: 40},
		{key: "center", top: 1480, height: 40},
		{key: "bottom", top: 1900, height: 40},
	}

	rankByCenter(cands, 1000, 1000) // center at 1500

	assert.Equal(t, "center", cands[0].key)
	assert.Equal(t, "bottom", cands[1].key)
	assert.Equal(t, "top", cands[2].key)
}

func TestIsActivated(t *testing.T) {
	markers := config.DefaultMarkers()

	tests := []struct {
		name                     string
		class, title, ariaPressed string
		want                     bool
	}{
		{"clean control", "widget-button like", "like this post", "", false},
		{"liked class", "widget-button like has-liked", "", "", true},
		{"liked class case-insensitive", "Liked", "", "", true},
		{"unlike tooltip", "like", "unlike this post", "", true},
		{"chinese cancel tooltip", "like", "取消赞", "", true},
		{"chinese already-liked tooltip", "like", "已赞", "", true},
		{"aria pressed", "like", "", "true", true},
		{"aria unpressed", "like", "", "false", false},
		{"everything empty", "", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isActivated(tt.class, tt.title, tt.ariaPressed, markers))
		})
	}
}

func TestSelectCandidatesMemoryHoldsAcrossPasses(t *testing.T) {
	seen := map[string]struct{}{}
	markers := config.DefaultMarkers()
	metrics := Metrics{Offset: 0, Viewport: 1000, Height: 3000}

	states := []controlState{
		{x: 40, y: 200, height: 30},                      // eligible
		{x: 40, y: 600, height: 30, class: "like liked"}, // already activated
		{x: 40, y: 2400, height: 30},                     // below the fold
	}

	cands, skipped := selectCandidates(states, seen, markers, metrics)
	require.Len(t, cands, 1)
	assert.Equal(t, positionKey(40, 200), cands[0].key)
	assert.Equal(t, 1, skipped)

	// The activated control's key was recorded without ever being clicked.
	_, recorded := seen[positionKey(40, 600)]
	assert.True(t, recorded, "activated controls must enter the seen set")

	// The click path records the chosen key before activating it.
	seen[cands[0].key] = struct{}{}

	// Second pass over the same page: nothing re-candidates.
	cands, skipped = selectCandidates(states, seen, markers, metrics)
	assert.Empty(t, cands)
	assert.Equal(t, 2, skipped)
}

func TestSelectCandidatesRanksSurvivors(t *testing.T) {
	seen := map[string]struct{}{}
	metrics := Metrics{Offset: 1000, Viewport: 1000, Height: 3000}

	states := []controlState{
		{x: 40, y: 1020, height: 40},
		{x: 40, y: 1480, height: 40},
		{x: 40, y: 1900, height: 40},
	}

	cands, _ := selectCandidates(states, seen, config.DefaultMarkers(), metrics)
	require.Len(t, cands, 3)
	assert.Equal(t, positionKey(40, 1480), cands[0].key, "center-most first")
}

func TestIsActivatedRespectsDisabledAria(t *testing.T) {
	markers := config.Markers{ClassSubstrings: []string{"liked"}}
	assert.False(t, isActivated("like", "", "true", markers),
		"aria-pressed only counts when the marker config enables it")
}
