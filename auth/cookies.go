package auth

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
)

// Cookie snapshots supplement the browser profile directory: if the profile
// is wiped by a fix routine, the session can still be restored from the
// snapshot file.

// SaveCookies writes the browser's current cookies to path as JSON.
func SaveCookies(browser *rod.Browser, path string) error {
	cookies, err := browser.GetCookies()
	if err != nil {
		return fmt.Errorf("failed to read cookies: %w", err)
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create cookie file: %w", err)
	}
	defer file.Close()

	return json.NewEncoder(file).Encode(cookies)
}

// LoadCookies restores a cookie snapshot from path into the browser.
func LoadCookies(browser *rod.Browser, path string) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()

	var cookies []*proto.NetworkCookie
	if err := json.NewDecoder(file).Decode(&cookies); err != nil {
		return fmt.Errorf("failed to parse cookie file: %w", err)
	}

	params := make([]*proto.NetworkCookieParam, 0, len(cookies))
	for _, c := range cookies {
		params = append(params, &proto.NetworkCookieParam{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			Expires:  c.Expires,
			Secure:   c.Secure,
			HTTPOnly: c.HTTPOnly,
			SameSite: c.SameSite,
		})
	}

	return browser.SetCookies(params)
}
