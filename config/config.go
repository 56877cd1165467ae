// Package config handles the persisted multi-site configuration for the
// Discourse automation, including rate-control normalization.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

const DefaultPath = "sites_config.json"

// ErrNotConfigured indicates that no configuration file exists yet and
// first-run setup should be offered.
var ErrNotConfigured = errors.New("no configuration file found")

// Site describes one Discourse forum, with its selector catalog externalized
// so the browsing core stays free of site-specific assumptions.
type Site struct {
	Name           string   `json:"name"`
	BaseURL        string   `json:"base_url"`
	LoginURL       string   `json:"login_url,omitempty"`
	LikeSelectors  []string `json:"like_selectors"`
	TopicSelectors []string `json:"topic_selectors"`
	LikedMarkers   Markers  `json:"liked_markers"`
	UserDataDir    string   `json:"user_data_dir"`
}

// Markers define how an already-activated like control is recognized.
// They are configuration, not code: forum themes and locales vary.
type Markers struct {
	ClassSubstrings []string `json:"class_substrings"`
	TitleSubstrings []string `json:"title_substrings"`
	AriaPressed     bool     `json:"aria_pressed"`
}

// RateControl holds the delay bounds (seconds) used to pace interactions.
type RateControl struct {
	ScrollDelayMin float64 `json:"scroll_delay_min"`
	ScrollDelayMax float64 `json:"scroll_delay_max"`
	LikeDelayMin   float64 `json:"like_delay_min"`
	LikeDelayMax   float64 `json:"like_delay_max"`
	TopicDelayMin  float64 `json:"topic_delay_min"`
	TopicDelayMax  float64 `json:"topic_delay_max"`

	// LikesPerScroll caps like clicks between scroll steps.
	// 0 means exhaust every visible candidate before scrolling on.
	LikesPerScroll int `json:"likes_per_scroll"`

	// DailyLikeLimit caps likes per calendar day across runs. 0 = unlimited.
	DailyLikeLimit int `json:"daily_like_limit,omitempty"`

	// decoded marks values that came from a JSON document, letting Normalize
	// tell an explicitly zeroed configuration apart from an absent one.
	decoded bool
}

// UnmarshalJSON applies per-field defaults, so a hand-edited file that sets
// only some keys keeps the stock pacing for the rest. An explicit 0 is kept
// as written: a zeroed max is the documented opt-out for that delay.
func (r *RateControl) UnmarshalJSON(data []byte) error {
	var raw struct {
		ScrollDelayMin *float64 `json:"scroll_delay_min"`
		ScrollDelayMax *float64 `json:"scroll_delay_max"`
		LikeDelayMin   *float64 `json:"like_delay_min"`
		LikeDelayMax   *float64 `json:"like_delay_max"`
		TopicDelayMin  *float64 `json:"topic_delay_min"`
		TopicDelayMax  *float64 `json:"topic_delay_max"`
		LikesPerScroll *int     `json:"likes_per_scroll"`
		DailyLikeLimit *int     `json:"daily_like_limit"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	def := DefaultRateControl()
	r.ScrollDelayMin = floatOr(raw.ScrollDelayMin, def.ScrollDelayMin)
	r.ScrollDelayMax = floatOr(raw.ScrollDelayMax, def.ScrollDelayMax)
	r.LikeDelayMin = floatOr(raw.LikeDelayMin, def.LikeDelayMin)
	r.LikeDelayMax = floatOr(raw.LikeDelayMax, def.LikeDelayMax)
	r.TopicDelayMin = floatOr(raw.TopicDelayMin, def.TopicDelayMin)
	r.TopicDelayMax = floatOr(raw.TopicDelayMax, def.TopicDelayMax)
	r.LikesPerScroll = intOr(raw.LikesPerScroll, def.LikesPerScroll)
	r.DailyLikeLimit = intOr(raw.DailyLikeLimit, def.DailyLikeLimit)
	r.decoded = true
	return nil
}

func floatOr(v *float64, def float64) float64 {
	if v != nil {
		return *v
	}
	return def
}

func intOr(v *int, def int) int {
	if v != nil {
		return *v
	}
	return def
}

// Settings are the run defaults shared by every site.
type Settings struct {
	DefaultCycles   int         `json:"default_cycles"`
	DefaultHeadless bool        `json:"default_headless"`
	DefaultLike     bool        `json:"default_like"`
	RateControl     RateControl `json:"rate_control"`
	BrowserBinPath  string      `json:"browser_bin_path,omitempty"`
}

// Config is the root of sites_config.json.
type Config struct {
	Sites       map[string]Site `json:"sites"`
	DefaultSite string          `json:"default_site"`
	Settings    Settings        `json:"settings"`
}

// DefaultMarkers returns the marker set that matches stock Discourse themes,
// including the Chinese-localized tooltips used by shuiyuan.
func DefaultMarkers() Markers {
	return Markers{
		ClassSubstrings: []string{"liked"},
		TitleSubstrings: []string{"unlike", "取消", "已赞"},
		AriaPressed:     true,
	}
}

// DefaultLikeSelectors are the stock Discourse like-control selectors.
func DefaultLikeSelectors() []string {
	return []string{
		".like-button",
		".post-controls .like",
		".actions .like",
		"button[title*='like']",
		"button[title*='赞']",
		".widget-button.like",
		".post-action-like",
	}
}

// DefaultTopicSelectors are the stock Discourse topic-list link selectors.
func DefaultTopicSelectors() []string {
	return []string{
		"a.title",
		".topic-list-item a.title",
		".topic-list tbody tr .main-link a",
		".topic-list .topic-list-data a",
		"tr.topic-list-item .main-link a",
	}
}

// DefaultRateControl returns the pacing used when nothing is configured.
func DefaultRateControl() RateControl {
	return RateControl{
		ScrollDelayMin: 1,
		ScrollDelayMax: 3,
		LikeDelayMin:   1,
		LikeDelayMax:   1.5,
		TopicDelayMin:  5,
		TopicDelayMax:  10,
		LikesPerScroll: 0,
	}
}

// Default returns the built-in configuration with the shuiyuan community
// pre-registered, used when no sites_config.json exists.
func Default() *Config {
	return &Config{
		Sites: map[string]Site{
			"shuiyuan": {
				Name:           "上海交大水源社区",
				BaseURL:        "https://shuiyuan.sjtu.edu.cn",
				LoginURL:       "https://jaccount.sjtu.edu.cn",
				LikeSelectors:  DefaultLikeSelectors(),
				TopicSelectors: DefaultTopicSelectors(),
				LikedMarkers:   DefaultMarkers(),
				UserDataDir:    "chrome_user_data_shuiyuan",
			},
		},
		DefaultSite: "shuiyuan",
		Settings: Settings{
			DefaultCycles:   5,
			DefaultHeadless: false,
			DefaultLike:     true,
			RateControl:     DefaultRateControl(),
		},
	}
}

// Normalize enforces the rate-control invariants in place: every value is
// non-negative and every min/max pair ends up ordered. Violations are
// auto-corrected, never rejected.
func (r *RateControl) Normalize() {
	clampPair(&r.ScrollDelayMin, &r.ScrollDelayMax)
	clampPair(&r.LikeDelayMin, &r.LikeDelayMax)
	clampPair(&r.TopicDelayMin, &r.TopicDelayMax)

	if r.LikesPerScroll < 0 {
		r.LikesPerScroll = 0
	}
	if r.DailyLikeLimit < 0 {
		r.DailyLikeLimit = 0
	}
}

func clampPair(min, max *float64) {
	if *min < 0 {
		*min = 0
	}
	if *max < 0 {
		*max = 0
	}
	if *max < *min {
		*min, *max = *max, *min
	}
}

// Normalize fills gaps left by hand-edited or older config files.
func (c *Config) Normalize() {
	if c.Sites == nil {
		c.Sites = map[string]Site{}
	}
	for key, site := range c.Sites {
		if len(site.LikeSelectors) == 0 {
			site.LikeSelectors = DefaultLikeSelectors()
		}
		if len(site.TopicSelectors) == 0 {
			site.TopicSelectors = DefaultTopicSelectors()
		}
		if len(site.LikedMarkers.ClassSubstrings) == 0 && len(site.LikedMarkers.TitleSubstrings) == 0 {
			site.LikedMarkers = DefaultMarkers()
		}
		if site.UserDataDir == "" {
			site.UserDataDir = "chrome_user_data_" + key
		}
		c.Sites[key] = site
	}

	if c.DefaultSite == "" || !c.hasSite(c.DefaultSite) {
		for key := range c.Sites {
			c.DefaultSite = key
			break
		}
	}

	if c.Settings.DefaultCycles <= 0 {
		c.Settings.DefaultCycles = 5
	}

	zero := RateControl{}
	if c.Settings.RateControl == zero {
		c.Settings.RateControl = DefaultRateControl()
	}
	c.Settings.RateControl.Normalize()
}

func (c *Config) hasSite(key string) bool {
	_, ok := c.Sites[key]
	return ok
}

// Site returns the named site, falling back to the default site when key is
// empty.
func (c *Config) Site(key string) (Site, error) {
	if key == "" {
		key = c.DefaultSite
	}
	site, ok := c.Sites[key]
	if !ok {
		return Site{}, fmt.Errorf("unknown site %q (configured: %v)", key, c.siteKeys())
	}
	return site, nil
}

func (c *Config) siteKeys() []string {
	keys := make([]string, 0, len(c.Sites))
	for key := range c.Sites {
		keys = append(keys, key)
	}
	return keys
}

// Load reads and normalizes the configuration at path.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultPath
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotConfigured
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	cfg := &Config{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	cfg.Normalize()
	return cfg, nil
}

// Save writes the configuration back to path.
func Save(cfg *Config, path string) error {
	if path == "" {
		path = DefaultPath
	}

	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
