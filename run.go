package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/go-rod/rod"
	"github.com/sirupsen/logrus"

	"github.com/shuiyuan-tools/discourse_automation/auth"
	"github.com/shuiyuan-tools/discourse_automation/browse"
	"github.com/shuiyuan-tools/discourse_automation/config"
	"github.com/shuiyuan-tools/discourse_automation/humanize"
	"github.com/shuiyuan-tools/discourse_automation/persistence"
	"github.com/shuiyuan-tools/discourse_automation/session"
)

// revisitWindow keeps random mode away from topics it browsed recently.
const revisitWindow = 24 * time.Hour

type runOptions struct {
	cfg       *config.Config
	site      config.Site
	cycles    int
	headless  bool
	like      bool
	directURL string
	dbPath    string
}

// run owns the whole automation flow: session, login, cycles, teardown.
func run(opts runOptions) error {
	sess, err := session.New(session.Options{
		Site:     opts.site,
		Headless: opts.headless,
		BinPath:  opts.cfg.Settings.BrowserBinPath,
	})
	if err != nil {
		return err
	}
	defer sess.Close()

	store, err := persistence.NewStore(opts.dbPath)
	if err != nil {
		// History is a convenience, not a prerequisite for browsing.
		logrus.WithError(err).Warn("history database unavailable, continuing without it")
		store = nil
	} else {
		defer store.Close()
	}

	// Progress counters are atomics because the interrupt handler reads
	// them mid-run to close out the history row with real totals.
	var (
		runID      atomic.Int64
		visited    atomic.Int64
		totalLiked atomic.Int64
	)

	// The interrupt handler shares the same session context as the normal
	// flow; Close is once-only so whichever path gets there first wins.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		<-sigCh
		fmt.Println("\n⏹️ Interrupted, cleaning up...")
		interruptRun(store, runID.Load(), int(visited.Load()), int(totalLiked.Load()))
		sess.Close()
		os.Exit(130)
	}()

	page, err := sess.Page("")
	if err != nil {
		return err
	}

	cookiePath := opts.site.UserDataDir + "_cookies.json"
	if err := auth.EnsureAuthenticated(page, opts.site, cookiePath); err != nil {
		return fmt.Errorf("authentication failed: %w", err)
	}

	pacer := humanize.NewPacer(opts.cfg.Settings.RateControl)

	mode := "random"
	if opts.directURL != "" {
		mode = "direct_link"
	}

	if store != nil {
		if id, err := store.StartRun(opts.site.Name, mode, opts.cycles); err == nil {
			runID.Store(id)
		}
	}

	likeState := "disabled"
	if opts.like {
		likeState = "enabled"
	}
	fmt.Printf("\n🚀 Starting: %d cycle(s), liking %s\n", opts.cycles, likeState)

	status := persistence.RunStatusCompleted

	if opts.directURL != "" {
		stats, err := visitTopic(page, browse.Topic{URL: opts.directURL}, opts, pacer, store, runID.Load())
		if err != nil {
			if store != nil {
				store.FinishRun(runID.Load(), persistence.RunStatusFailed, 0, 0)
			}
			return err
		}
		visited.Store(1)
		totalLiked.Store(int64(stats.Liked))
	} else {
		for cycle := 0; cycle < opts.cycles; cycle++ {
			fmt.Printf("\n🔄 Cycle %d/%d\n", cycle+1, opts.cycles)

			stats, err := runCycle(page, opts, pacer, store, runID.Load())
			if err != nil {
				if isFatal(err) {
					status = persistence.RunStatusFailed
					if store != nil {
						store.FinishRun(runID.Load(), status, int(visited.Load()), int(totalLiked.Load()))
					}
					return err
				}
				// Content-discovery failures skip the cycle, the run goes on.
				logrus.WithError(err).Warn("cycle skipped")
				continue
			}

			visited.Add(1)
			totalLiked.Add(int64(stats.Liked))

			if cycle < opts.cycles-1 {
				pacer.Topic()
			}
		}
	}

	if store != nil {
		store.FinishRun(runID.Load(), status, int(visited.Load()), int(totalLiked.Load()))
	}

	fmt.Printf("\n✅ Done: %d topic(s) browsed, %d like(s) confirmed\n", visited.Load(), totalLiked.Load())
	return nil
}

// interruptRun closes out the history row for a run cut short by a signal,
// keeping the totals accumulated up to that point.
func interruptRun(store *persistence.Store, runID int64, visited, liked int) {
	if store == nil || runID == 0 {
		return
	}
	store.FinishRun(runID, persistence.RunStatusInterrupted, visited, liked)
}

// runCycle picks one random topic and browses it.
func runCycle(page *rod.Page, opts runOptions, pacer *humanize.Pacer, store *persistence.Store, runID int64) (browse.Stats, error) {
	topics, err := browse.CollectTopics(page, opts.site)
	if err != nil {
		return browse.Stats{}, err
	}

	var skip func(string) bool
	if store != nil {
		skip = func(url string) bool {
			recent, err := store.RecentlyVisited(url, revisitWindow)
			return err == nil && recent
		}
	}

	topic, ok := browse.PickRandom(topics, skip)
	if !ok {
		return browse.Stats{}, fmt.Errorf("no topic to browse on %s", opts.site.BaseURL)
	}

	fmt.Printf("📖 Topic: %s\n", topic.Title)
	return visitTopic(page, topic, opts, pacer, store, runID)
}

// visitTopic opens one topic and runs the scroll/read/like loop over it.
func visitTopic(page *rod.Page, topic browse.Topic, opts runOptions, pacer *humanize.Pacer, store *persistence.Store, runID int64) (browse.Stats, error) {
	if err := page.Navigate(topic.URL); err != nil {
		return browse.Stats{}, fmt.Errorf("failed to open topic %s: %w", topic.URL, err)
	}
	if err := page.WaitLoad(); err != nil {
		logrus.WithError(err).Debug("topic load wait failed")
	}
	humanize.SleepBetween(2, 3)

	// Fresh interaction memory per topic visit.
	drv := browse.NewPageDriver(page, opts.site, pacer)
	drv.ScrollToTop()

	reader := browse.NewReader(drv, pacer)
	reader.LikeEnabled = opts.like
	reader.LikesPerScroll = opts.cfg.Settings.RateControl.LikesPerScroll
	reader.MaxTotalLikes = likeBudget(opts.cfg.Settings.RateControl.DailyLikeLimit, store)
	if opts.like && reader.MaxTotalLikes < 0 {
		fmt.Println("🚫 Daily like limit reached, browsing without liking")
		reader.LikeEnabled = false
	}
	if reader.MaxTotalLikes < 0 {
		reader.MaxTotalLikes = 0
	}

	stats, err := reader.Run()
	if err != nil {
		return stats, err
	}

	logrus.WithFields(logrus.Fields{
		"url":     topic.URL,
		"scrolls": stats.Scrolls,
		"liked":   stats.Liked,
		"bottom":  stats.Bottom,
	}).Info("topic visit finished")

	if store != nil {
		if err := store.RecordVisit(persistence.Visit{
			RunID:   runID,
			Site:    opts.site.Name,
			URL:     topic.URL,
			Title:   topic.Title,
			Liked:   stats.Liked,
			Scrolls: stats.Scrolls,
		}); err != nil {
			logrus.WithError(err).Warn("failed to record visit")
		}
	}

	// Linger at the bottom the way a reader would before moving on.
	humanize.SleepBetween(2, 4)
	return stats, nil
}

// likeBudget translates the configured daily cap into the remaining budget
// for this visit: 0 = unlimited, negative = exhausted.
func likeBudget(dailyLimit int, store *persistence.Store) int {
	if dailyLimit <= 0 || store == nil {
		return 0
	}
	used, err := store.LikesToday()
	if err != nil {
		logrus.WithError(err).Warn("could not read daily like count")
		return 0
	}
	remaining := dailyLimit - used
	if remaining <= 0 {
		return -1
	}
	return remaining
}

// isFatal separates a lost browser session from recoverable cycle errors.
func isFatal(err error) bool {
	return errors.Is(err, browse.ErrSessionLost)
}
