package session

import (
	"os/exec"
	"runtime"
	"strconv"
	"strings"
)

// KillProfileProcesses terminates browser processes still holding the given
// profile directory and returns how many were signalled. Used after a
// browser close to make sure the profile lock is released for the next run.
func KillProfileProcesses(profileDir string) int {
	if profileDir == "" {
		return 0
	}

	switch runtime.GOOS {
	case "windows":
		// Windows has no pkill -f equivalent without WMI queries; the
		// doctor command handles stray chrome.exe there.
		return 0
	default:
		return pkillByCommandLine("user-data-dir=" + profileDir)
	}
}

// KillBrowserProcesses terminates every Chrome/Chromium process on the
// machine, matching the original heavy-handed fix routine. Doctor-only.
func KillBrowserProcesses() int {
	if runtime.GOOS == "windows" {
		killed := 0
		for _, image := range []string{"chrome.exe", "chromium.exe"} {
			if exec.Command("taskkill", "/F", "/IM", image).Run() == nil {
				killed++
			}
		}
		return killed
	}

	killed := 0
	for _, name := range []string{"chrome", "chromium", "chromium-browser"} {
		if exec.Command("pkill", "-x", name).Run() == nil {
			killed++
		}
	}
	return killed
}

func pkillByCommandLine(pattern string) int {
	out, err := exec.Command("pgrep", "-f", pattern).Output()
	if err != nil {
		return 0 // no matches, or pgrep unavailable
	}

	count := 0
	for _, line := range strings.Split(strings.TrimSpace(string(out)), "\n") {
		if _, err := strconv.Atoi(strings.TrimSpace(line)); err == nil {
			count++
		}
	}
	if count > 0 {
		_ = exec.Command("pkill", "-f", pattern).Run()
	}
	return count
}
