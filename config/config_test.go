package config

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateControlNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   RateControl
		want RateControl
	}{
		{
			name: "swapped pair is reordered",
			in:   RateControl{ScrollDelayMin: 5, ScrollDelayMax: 2, LikeDelayMin: 1, LikeDelayMax: 2, TopicDelayMin: 3, TopicDelayMax: 4},
			want: RateControl{ScrollDelayMin: 2, ScrollDelayMax: 5, LikeDelayMin: 1, LikeDelayMax: 2, TopicDelayMin: 3, TopicDelayMax: 4},
		},
		{
			name: "negatives are clamped to zero",
			in:   RateControl{ScrollDelayMin: -1, ScrollDelayMax: -2, LikeDelayMin: -0.5, LikeDelayMax: 1, LikesPerScroll: -3, DailyLikeLimit: -1},
			want: RateControl{ScrollDelayMin: 0, ScrollDelayMax: 0, LikeDelayMin: 0, LikeDelayMax: 1},
		},
		{
			name: "zero config stays zero",
			in:   RateControl{},
			want: RateControl{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.in.Normalize()
			assert.Equal(t, tt.want, tt.in)

			// Invariants hold for every pair regardless of input.
			assert.GreaterOrEqual(t, tt.in.ScrollDelayMax, tt.in.ScrollDelayMin)
			assert.GreaterOrEqual(t, tt.in.LikeDelayMax, tt.in.LikeDelayMin)
			assert.GreaterOrEqual(t, tt.in.TopicDelayMax, tt.in.TopicDelayMin)
			assert.GreaterOrEqual(t, tt.in.ScrollDelayMin, 0.0)
			assert.GreaterOrEqual(t, tt.in.LikesPerScroll, 0)
		})
	}
}

func TestConfigNormalizeFillsGaps(t *testing.T) {
	cfg := &Config{
		Sites: map[string]Site{
			"forum": {Name: "Forum", BaseURL: "https://forum.example.com"},
		},
	}
	cfg.Normalize()

	site := cfg.Sites["forum"]
	assert.NotEmpty(t, site.LikeSelectors)
	assert.NotEmpty(t, site.TopicSelectors)
	assert.Equal(t, "chrome_user_data_forum", site.UserDataDir)
	assert.True(t, site.LikedMarkers.AriaPressed)
	assert.Equal(t, "forum", cfg.DefaultSite)
	assert.Equal(t, 5, cfg.Settings.DefaultCycles)
	assert.Equal(t, DefaultRateControl(), cfg.Settings.RateControl)
}

func TestLoadPartialRateControlKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sites_config.json")
	raw := `{"sites": {}, "settings": {"rate_control": {"likes_per_scroll": 2}}}`
	require.NoError(t, os.WriteFile(path, []byte(raw), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	// The one configured key wins, everything absent keeps stock pacing.
	rc := cfg.Settings.RateControl
	assert.Equal(t, 2, rc.LikesPerScroll)
	assert.Equal(t, 1.0, rc.ScrollDelayMin)
	assert.Equal(t, 3.0, rc.ScrollDelayMax)
	assert.Equal(t, 1.0, rc.LikeDelayMin)
	assert.Equal(t, 1.5, rc.LikeDelayMax)
	assert.Equal(t, 5.0, rc.TopicDelayMin)
	assert.Equal(t, 10.0, rc.TopicDelayMax)
}

func TestLoadExplicitZeroDelaySurvives(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sites_config.json")
	raw := `{"settings": {"rate_control": {
		"scroll_delay_min": 0, "scroll_delay_max": 0, "likes_per_scroll": 0}}}`
	require.NoError(t, os.WriteFile(path, []byte(raw), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	rc := cfg.Settings.RateControl
	assert.Equal(t, 0.0, rc.ScrollDelayMin, "explicit zero is the opt-out, not a gap")
	assert.Equal(t, 0.0, rc.ScrollDelayMax)
	assert.Equal(t, 0, rc.LikesPerScroll)
	assert.Equal(t, 1.0, rc.LikeDelayMin, "absent keys still get defaults")
	assert.Equal(t, 10.0, rc.TopicDelayMax)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "sites_config.json"))
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sites_config.json")

	cfg := Default()
	cfg.Settings.RateControl.LikesPerScroll = 2
	require.NoError(t, Save(cfg, path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg.DefaultSite, loaded.DefaultSite)
	assert.Equal(t, 2, loaded.Settings.RateControl.LikesPerScroll)

	site, err := loaded.Site("")
	require.NoError(t, err)
	assert.Equal(t, "https://shuiyuan.sjtu.edu.cn", site.BaseURL)

	_, err = loaded.Site("nope")
	assert.Error(t, err)
}

func TestFirstTimeSetupKeepsBuiltin(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sites_config.json")

	// Accept built-in site, 3 cycles, headless yes, like no.
	in := strings.NewReader("y\n3\ny\nn\n")
	var out bytes.Buffer

	cfg, err := RunFirstTimeSetup(NewPrompter(in, &out), path)
	require.NoError(t, err)
	assert.Equal(t, "shuiyuan", cfg.DefaultSite)
	assert.Equal(t, 3, cfg.Settings.DefaultCycles)
	assert.True(t, cfg.Settings.DefaultHeadless)
	assert.False(t, cfg.Settings.DefaultLike)

	// The file must be loadable afterwards.
	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 3, loaded.Settings.DefaultCycles)
}

func TestPrompterDefaults(t *testing.T) {
	in := strings.NewReader("\n\nabc\n")
	var out bytes.Buffer
	p := NewPrompter(in, &out)

	assert.Equal(t, "fallback", p.AskDefault("? ", "fallback"))
	assert.Equal(t, 7, p.AskInt("? ", 7))
	assert.Equal(t, 9, p.AskInt("? ", 9)) // "abc" is not a number
}
