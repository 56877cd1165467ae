package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/shuiyuan-tools/discourse_automation/config"
	"github.com/shuiyuan-tools/discourse_automation/doctor"
)

var (
	flagConfigPath string
	flagSite       string
	flagURL        string
	flagCycles     int
	flagHeadless   bool
	flagLike       bool
	flagBaseURL    string
	flagConfigure  bool
	flagYes        bool
	flagDBPath     string
)

var rootCmd = &cobra.Command{
	Use:   "discourse-automation",
	Short: "Automated browsing and liking for Discourse forums",
	Long: `Opens a real browser session against a configured Discourse forum,
reuses or establishes a login, then browses topics (randomly picked or via a
direct link), scrolling through each one like a reader and optionally liking
the visible posts.`,
	SilenceUsage: true,
	RunE:         runRoot,
}

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Repair the local browser environment (stray processes, stale locks)",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(flagConfigPath)
		if err != nil {
			if err != config.ErrNotConfigured {
				return err
			}
			cfg = config.Default()
		}
		clearCache, _ := cmd.Flags().GetBool("clear-browser-cache")
		doctor.Run(cfg, doctor.Options{
			KillProcesses:     true,
			ClearBrowserCache: clearCache,
		})
		return nil
	},
}

var sitesCmd = &cobra.Command{
	Use:   "sites",
	Short: "Manage the multi-site configuration interactively",
	RunE: func(cmd *cobra.Command, args []string) error {
		p := config.NewPrompter(os.Stdin, os.Stdout)
		return config.ManageSites(p, flagConfigPath)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfigPath, "config", config.DefaultPath, "path to sites_config.json")
	rootCmd.Flags().StringVar(&flagSite, "site", "", "site key from the configuration (default: configured default site)")
	rootCmd.Flags().StringVar(&flagURL, "url", "", "direct topic link to browse instead of random topics")
	rootCmd.Flags().IntVar(&flagCycles, "cycles", 0, "number of browse cycles (default: configured value)")
	rootCmd.Flags().BoolVar(&flagHeadless, "headless", false, "run the browser without a visible window")
	rootCmd.Flags().BoolVar(&flagLike, "like", true, "like visible posts while browsing")
	rootCmd.Flags().StringVar(&flagBaseURL, "base-url", "", "override the site's base URL for this run")
	rootCmd.Flags().BoolVar(&flagConfigure, "configure", false, "run the setup wizard and exit")
	rootCmd.Flags().BoolVar(&flagYes, "yes", false, "skip the confirmation prompt")
	rootCmd.Flags().StringVar(&flagDBPath, "db", "", "path to the history database")

	doctorCmd.Flags().Bool("clear-browser-cache", false, "also clear rod's downloaded-browser cache")

	rootCmd.AddCommand(doctorCmd, sitesCmd)
}

func runRoot(cmd *cobra.Command, args []string) error {
	prompter := config.NewPrompter(os.Stdin, os.Stdout)

	if flagConfigure {
		_, err := config.RunFirstTimeSetup(prompter, flagConfigPath)
		return err
	}

	cfg, err := config.Load(flagConfigPath)
	if err == config.ErrNotConfigured {
		cfg, err = config.RunFirstTimeSetup(prompter, flagConfigPath)
	}
	if err != nil {
		return err
	}

	siteKey := flagSite
	if siteKey == "" {
		siteKey = os.Getenv("DISCOURSE_SITE")
	}
	site, err := cfg.Site(siteKey)
	if err != nil {
		return err
	}
	if flagBaseURL != "" {
		site.BaseURL = strings.TrimSuffix(flagBaseURL, "/")
	}

	opts := runOptions{
		cfg:      cfg,
		site:     site,
		cycles:   cfg.Settings.DefaultCycles,
		headless: cfg.Settings.DefaultHeadless,
		like:     cfg.Settings.DefaultLike,
		dbPath:   flagDBPath,
	}
	if flagCycles > 0 {
		opts.cycles = flagCycles
	}
	if cmd.Flags().Changed("headless") {
		opts.headless = flagHeadless
	}
	if cmd.Flags().Changed("like") {
		opts.like = flagLike
	}

	if flagURL != "" {
		opts.directURL = strings.TrimSpace(flagURL)
		opts.cycles = 1
		if !strings.HasPrefix(opts.directURL, site.BaseURL) {
			fmt.Printf("⚠️ The link does not belong to %s (%s)\n", site.Name, site.BaseURL)
			if !flagYes && !prompter.AskYesNo("Continue anyway? (y/n): ", false) {
				fmt.Println("Cancelled")
				return nil
			}
		}
	}

	printRunPlan(opts)
	if !flagYes && !prompter.AskYesNo("Start the run? (y/n, default y): ", true) {
		fmt.Println("Cancelled")
		return nil
	}

	setupLogging(site)

	if err := run(opts); err != nil {
		fmt.Printf("\n❌ Run failed: %v\n", err)
		fmt.Println("💡 Try `discourse-automation doctor` to repair the browser environment")
		return err
	}
	return nil
}

func printRunPlan(opts runOptions) {
	fmt.Println("📋 Run plan:")
	fmt.Printf("   - site: %s (%s)\n", opts.site.Name, opts.site.BaseURL)
	if opts.directURL != "" {
		fmt.Printf("   - mode: direct link (%s)\n", opts.directURL)
	} else {
		fmt.Printf("   - mode: random browsing, %d cycle(s)\n", opts.cycles)
	}
	fmt.Printf("   - headless: %v\n", opts.headless)
	fmt.Printf("   - liking: %v\n", opts.like)
	fmt.Println("   - login state: saved in the browser profile")
}

// setupLogging tees diagnostics to stdout and a per-site logfile.
func setupLogging(site config.Site) {
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	name := strings.ToLower(strings.ReplaceAll(site.Name, " ", "_"))
	if name == "" {
		name = "discourse"
	}
	logPath := name + "_automation.log"

	file, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		logrus.WithError(err).Warn("could not open logfile, logging to stdout only")
		return
	}
	logrus.SetOutput(io.MultiWriter(os.Stdout, file))
	fmt.Printf("📝 Detailed log: %s\n", logPath)
}

func main() {
	if err := godotenv.Load(); err == nil {
		logrus.Debug("loaded .env overrides")
	}

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
