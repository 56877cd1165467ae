package config

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Prompter wraps an input stream for interactive setup. It exists so the
// wizard can be driven by a buffer in tests.
type Prompter struct {
	in  *bufio.Reader
	out io.Writer
}

// NewPrompter creates a prompter reading from in and writing to out.
func NewPrompter(in io.Reader, out io.Writer) *Prompter {
	return &Prompter{in: bufio.NewReader(in), out: out}
}

// Ask prints the prompt and returns the trimmed answer ("" on EOF).
func (p *Prompter) Ask(prompt string) string {
	fmt.Fprint(p.out, prompt)
	text, _ := p.in.ReadString('\n')
	return strings.TrimSpace(text)
}

// AskDefault returns def when the user just presses enter.
func (p *Prompter) AskDefault(prompt, def string) string {
	answer := p.Ask(prompt)
	if answer == "" {
		return def
	}
	return answer
}

// AskYesNo interprets y/yes as true; empty input returns def.
func (p *Prompter) AskYesNo(prompt string, def bool) bool {
	answer := strings.ToLower(p.Ask(prompt))
	if answer == "" {
		return def
	}
	return answer == "y" || answer == "yes"
}

// AskInt returns def on empty or unparseable input.
func (p *Prompter) AskInt(prompt string, def int) int {
	answer := p.Ask(prompt)
	if answer == "" {
		return def
	}
	n, err := strconv.Atoi(answer)
	if err != nil {
		fmt.Fprintf(p.out, "⚠️ Invalid number, using %d\n", def)
		return def
	}
	return n
}

// RunFirstTimeSetup builds an initial configuration interactively and saves
// it to path. Called when no sites_config.json exists yet.
func RunFirstTimeSetup(p *Prompter, path string) (*Config, error) {
	fmt.Fprintln(p.out, "🔧 First-run setup — no configuration file found")
	fmt.Fprintln(p.out, strings.Repeat("-", 50))

	cfg := Default()

	if p.AskYesNo("Use the built-in shuiyuan site? (y/n, default y): ", true) {
		fmt.Fprintln(p.out, "✅ Keeping built-in site")
	} else {
		cfg.Sites = map[string]Site{}
		cfg.DefaultSite = ""
		if err := addSite(p, cfg); err != nil {
			return nil, err
		}
	}

	cfg.Settings.DefaultCycles = p.AskInt("Default cycles per run (default 5): ", 5)
	cfg.Settings.DefaultHeadless = p.AskYesNo("Run headless by default? (y/n, default n): ", false)
	cfg.Settings.DefaultLike = p.AskYesNo("Enable liking by default? (y/n, default y): ", true)

	cfg.Normalize()
	if err := Save(cfg, path); err != nil {
		return nil, fmt.Errorf("failed to save configuration: %w", err)
	}

	fmt.Fprintf(p.out, "💾 Configuration saved to %s\n", path)
	return cfg, nil
}

// ManageSites runs the interactive site-management menu against the config
// at path, creating it from defaults if needed.
func ManageSites(p *Prompter, path string) error {
	cfg, err := Load(path)
	if err != nil {
		if err != ErrNotConfigured {
			return err
		}
		cfg = Default()
	}

	for {
		fmt.Fprintln(p.out, "\n📋 Site manager:")
		fmt.Fprintln(p.out, "  1. List sites")
		fmt.Fprintln(p.out, "  2. Add site")
		fmt.Fprintln(p.out, "  3. Remove site")
		fmt.Fprintln(p.out, "  4. Set default site")
		fmt.Fprintln(p.out, "  5. Edit settings")
		fmt.Fprintln(p.out, "  0. Quit")

		switch p.Ask("\nChoose (0-5): ") {
		case "1":
			listSites(p, cfg)
		case "2":
			if err := addSite(p, cfg); err != nil {
				fmt.Fprintf(p.out, "❌ %v\n", err)
				continue
			}
			if err := Save(cfg, path); err != nil {
				return err
			}
			fmt.Fprintln(p.out, "✅ Site added")
		case "3":
			if removeSite(p, cfg) {
				if err := Save(cfg, path); err != nil {
					return err
				}
			}
		case "4":
			if setDefaultSite(p, cfg) {
				if err := Save(cfg, path); err != nil {
					return err
				}
			}
		case "5":
			editSettings(p, cfg)
			if err := Save(cfg, path); err != nil {
				return err
			}
			fmt.Fprintln(p.out, "✅ Settings saved")
		case "0", "":
			return nil
		default:
			fmt.Fprintln(p.out, "❌ Invalid choice")
		}
	}
}

func listSites(p *Prompter, cfg *Config) {
	if len(cfg.Sites) == 0 {
		fmt.Fprintln(p.out, "📋 No sites configured")
		return
	}
	fmt.Fprintln(p.out, "📋 Configured sites:")
	for key, site := range cfg.Sites {
		mark := ""
		if key == cfg.DefaultSite {
			mark = " (default)"
		}
		fmt.Fprintf(p.out, "   - %s: %s — %s%s\n", key, site.Name, site.BaseURL, mark)
	}
}

func addSite(p *Prompter, cfg *Config) error {
	key := p.Ask("Site identifier (e.g. mysite): ")
	if key == "" {
		return fmt.Errorf("site identifier must not be empty")
	}
	if _, exists := cfg.Sites[key]; exists {
		return fmt.Errorf("site %q already exists", key)
	}

	name := p.Ask("Site name: ")
	if name == "" {
		return fmt.Errorf("site name must not be empty")
	}

	baseURL := p.Ask("Base URL (e.g. https://example.com): ")
	if baseURL == "" {
		return fmt.Errorf("base URL must not be empty")
	}
	baseURL = strings.TrimSuffix(baseURL, "/")

	loginURL := p.Ask("Login URL (optional, enter to skip): ")

	cfg.Sites[key] = Site{
		Name:           name,
		BaseURL:        baseURL,
		LoginURL:       loginURL,
		LikeSelectors:  DefaultLikeSelectors(),
		TopicSelectors: DefaultTopicSelectors(),
		LikedMarkers:   DefaultMarkers(),
		UserDataDir:    "chrome_user_data_" + key,
	}

	if cfg.DefaultSite == "" {
		cfg.DefaultSite = key
	}
	return nil
}

func removeSite(p *Prompter, cfg *Config) bool {
	listSites(p, cfg)
	key := p.Ask("\nIdentifier of the site to remove: ")
	site, ok := cfg.Sites[key]
	if !ok {
		fmt.Fprintln(p.out, "❌ No such site")
		return false
	}

	if !p.AskYesNo(fmt.Sprintf("Remove %q? (y/n): ", site.Name), false) {
		fmt.Fprintln(p.out, "❌ Cancelled")
		return false
	}

	delete(cfg.Sites, key)
	if cfg.DefaultSite == key {
		cfg.DefaultSite = ""
		for k := range cfg.Sites {
			cfg.DefaultSite = k
			break
		}
	}
	fmt.Fprintf(p.out, "✅ Removed %q\n", site.Name)
	return true
}

func setDefaultSite(p *Prompter, cfg *Config) bool {
	listSites(p, cfg)
	key := p.Ask("\nIdentifier of the new default site: ")
	site, ok := cfg.Sites[key]
	if !ok {
		fmt.Fprintln(p.out, "❌ No such site")
		return false
	}
	cfg.DefaultSite = key
	fmt.Fprintf(p.out, "✅ %q is now the default site\n", site.Name)
	return true
}

func editSettings(p *Prompter, cfg *Config) {
	s := &cfg.Settings
	fmt.Fprintln(p.out, "\n⚙️ Current settings:")
	fmt.Fprintf(p.out, "  - default cycles: %d\n", s.DefaultCycles)
	fmt.Fprintf(p.out, "  - default headless: %v\n", s.DefaultHeadless)
	fmt.Fprintf(p.out, "  - default like: %v\n", s.DefaultLike)
	fmt.Fprintf(p.out, "  - scroll delay: %.1f-%.1fs\n", s.RateControl.ScrollDelayMin, s.RateControl.ScrollDelayMax)
	fmt.Fprintf(p.out, "  - topic delay: %.1f-%.1fs\n", s.RateControl.TopicDelayMin, s.RateControl.TopicDelayMax)
	fmt.Fprintf(p.out, "  - likes per scroll: %d (0 = all visible)\n", s.RateControl.LikesPerScroll)

	s.DefaultCycles = p.AskInt(fmt.Sprintf("Default cycles (current %d): ", s.DefaultCycles), s.DefaultCycles)
	s.DefaultHeadless = p.AskYesNo(fmt.Sprintf("Default headless? (y/n, current %v): ", s.DefaultHeadless), s.DefaultHeadless)
	s.DefaultLike = p.AskYesNo(fmt.Sprintf("Default like? (y/n, current %v): ", s.DefaultLike), s.DefaultLike)
	s.RateControl.LikesPerScroll = p.AskInt(
		fmt.Sprintf("Likes per scroll (current %d): ", s.RateControl.LikesPerScroll),
		s.RateControl.LikesPerScroll)

	s.RateControl.Normalize()
}
