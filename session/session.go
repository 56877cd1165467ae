// Package session owns the browser lifecycle: launching Chrome against a
// persistent profile directory, opening stealth pages, and tearing the
// whole thing down exactly once.
package session

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/stealth"
	"github.com/sirupsen/logrus"

	"github.com/shuiyuan-tools/discourse_automation/config"
)

// Options configure a browser session.
type Options struct {
	Site     config.Site
	Headless bool
	// BinPath overrides browser binary resolution when set.
	BinPath string
}

// Session is the explicit context handed to both the normal flow and the
// interrupt handler, so cleanup never depends on hidden globals.
type Session struct {
	Browser    *rod.Browser
	ProfileDir string

	closeOnce sync.Once
	closeErr  error
}

// New launches the browser bound to the site's profile directory and
// connects to it. The profile directory keeps cookies and local storage so
// a login survives across runs.
func New(opts Options) (*Session, error) {
	profileDir, err := filepath.Abs(opts.Site.UserDataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve profile directory: %w", err)
	}
	if err := os.MkdirAll(profileDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create profile directory: %w", err)
	}

	l := launcher.New().
		UserDataDir(profileDir).
		// Keeps navigator.webdriver unset and drops the automation banner.
		Set("disable-blink-features", "AutomationControlled").
		Set("no-first-run").
		Set("no-default-browser-check").
		Set("disable-dev-shm-usage").
		Set("window-size", "1920,1080").
		Headless(opts.Headless).
		Leakless(false)

	if opts.BinPath != "" {
		l = l.Bin(opts.BinPath)
	}

	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		return nil, fmt.Errorf("failed to connect to browser: %w", err)
	}

	mode := "headed"
	if opts.Headless {
		mode = "headless"
	}
	logrus.WithFields(logrus.Fields{
		"mode":    mode,
		"profile": profileDir,
	}).Info("browser session started")

	return &Session{Browser: browser, ProfileDir: profileDir}, nil
}

// Page opens a stealth-patched page and navigates it to url.
func (s *Session) Page(url string) (*rod.Page, error) {
	page, err := stealth.Page(s.Browser)
	if err != nil {
		return nil, fmt.Errorf("failed to open page: %w", err)
	}
	if url != "" {
		if err := page.Navigate(url); err != nil {
			page.Close()
			return nil, fmt.Errorf("failed to navigate to %s: %w", url, err)
		}
	}
	return page, nil
}

// Close tears the session down: close the browser, then best-effort kill of
// any browser process still bound to this profile directory. Safe to call
// from both the normal flow and a signal handler; only the first call does
// the work.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		logrus.Info("closing browser session")
		if s.Browser != nil {
			s.closeErr = s.Browser.Close()
		}
		if n := KillProfileProcesses(s.ProfileDir); n > 0 {
			logrus.WithField("killed", n).Warn("terminated leftover browser processes")
		}
	})
	return s.closeErr
}
