// Package doctor repairs the local browser environment: stray processes,
// stale profile locks and a corrupted downloaded-browser cache are the
// usual reasons a run refuses to start.
package doctor

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-rod/rod/lib/launcher"

	"github.com/shuiyuan-tools/discourse_automation/config"
	"github.com/shuiyuan-tools/discourse_automation/session"
)

// Options control which repairs run.
type Options struct {
	// KillProcesses terminates every Chrome/Chromium process.
	KillProcesses bool
	// ClearBrowserCache removes rod's downloaded-browser directory so the
	// next launch fetches a fresh, version-matched binary.
	ClearBrowserCache bool
}

// Run executes the fix routines against every configured site. Each step is
// best-effort; a partial failure is reported but never aborts the rest.
func Run(cfg *config.Config, opts Options) {
	fmt.Println("🩺 Checking browser environment...")

	if opts.KillProcesses {
		if n := session.KillBrowserProcesses(); n > 0 {
			fmt.Println("✅ Terminated leftover browser processes")
		} else {
			fmt.Println("✅ No leftover browser processes found")
		}
	}

	for key, site := range cfg.Sites {
		removed, err := clearProfileLocks(site.UserDataDir)
		switch {
		case err != nil:
			fmt.Printf("⚠️ %s: could not inspect profile: %v\n", key, err)
		case removed > 0:
			fmt.Printf("✅ %s: removed %d stale profile lock(s)\n", key, removed)
		default:
			fmt.Printf("✅ %s: profile is clean\n", key)
		}
	}

	if opts.ClearBrowserCache {
		dir := launcher.DefaultBrowserDir
		if err := os.RemoveAll(dir); err != nil {
			fmt.Printf("⚠️ Could not clear browser cache %s: %v\n", dir, err)
		} else {
			fmt.Printf("✅ Cleared downloaded-browser cache (%s)\n", dir)
		}
	}

	reportBrowserResolution(cfg.Settings.BrowserBinPath)
}

// Chromium leaves these behind when it dies uncleanly; a locked profile
// then refuses to start.
var lockNames = []string{"SingletonLock", "SingletonCookie", "SingletonSocket", "lockfile"}

func clearProfileLocks(profileDir string) (int, error) {
	if profileDir == "" {
		return 0, nil
	}
	abs, err := filepath.Abs(profileDir)
	if err != nil {
		return 0, err
	}
	if _, err := os.Stat(abs); os.IsNotExist(err) {
		return 0, nil
	}

	removed := 0
	for _, name := range lockNames {
		path := filepath.Join(abs, name)
		if _, err := os.Lstat(path); err != nil {
			continue
		}
		if err := os.Remove(path); err == nil {
			removed++
		}
	}
	return removed, nil
}

func reportBrowserResolution(override string) {
	if override != "" {
		if _, err := os.Stat(override); err != nil {
			fmt.Printf("⚠️ Configured browser binary is missing: %s\n", override)
			fmt.Println("   Fix browser_bin_path in sites_config.json or remove it to auto-resolve")
		} else {
			fmt.Printf("✅ Using configured browser binary: %s\n", override)
		}
		return
	}

	if path, ok := launcher.LookPath(); ok {
		fmt.Printf("✅ Browser binary resolves to: %s\n", path)
	} else {
		fmt.Println("⚠️ No local browser found; the first run will download one")
	}
}
