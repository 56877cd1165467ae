package browse

import (
	"fmt"
	"math/rand"
	"net/url"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/sirupsen/logrus"

	"github.com/shuiyuan-tools/discourse_automation/config"
)

// Topic is a discussion thread discovered on the front page.
type Topic struct {
	URL   string
	Title string
}

// CollectTopics loads the site front page and returns the topic links it
// finds. The first topic selector that yields elements wins, matching how
// the selector lists are ordered from most to least specific.
func CollectTopics(page *rod.Page, site config.Site) ([]Topic, error) {
	if err := page.Navigate(site.BaseURL); err != nil {
		return nil, fmt.Errorf("failed to open front page: %w", err)
	}
	if err := page.WaitLoad(); err != nil {
		logrus.WithError(err).Debug("front page load wait failed")
	}
	time.Sleep(3 * time.Second)

	selectors := site.TopicSelectors
	if len(selectors) == 0 {
		selectors = config.DefaultTopicSelectors()
	}

	var raw []Topic
	for _, sel := range selectors {
		elems, err := page.Elements(sel)
		if err != nil || len(elems) == 0 {
			continue
		}
		for _, el := range elems {
			title, err := el.Text()
			if err != nil {
				continue
			}
			href, err := el.Attribute("href")
			if err != nil || href == nil {
				continue
			}
			raw = append(raw, Topic{URL: *href, Title: strings.TrimSpace(title)})
		}
		break
	}

	topics := filterTopics(site.BaseURL, raw)
	if len(topics) == 0 {
		return nil, fmt.Errorf("no topic links found on %s", site.BaseURL)
	}
	return topics, nil
}

// filterTopics resolves relative links against the base URL and drops
// entries without a title or pointing off-site.
func filterTopics(baseURL string, raw []Topic) []Topic {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil
	}

	var out []Topic
	seen := map[string]struct{}{}
	for _, t := range raw {
		if t.Title == "" {
			continue
		}
		ref, err := url.Parse(t.URL)
		if err != nil {
			continue
		}
		abs := base.ResolveReference(ref).String()
		if !strings.HasPrefix(abs, strings.TrimSuffix(baseURL, "/")) {
			continue
		}
		if _, dup := seen[abs]; dup {
			continue
		}
		seen[abs] = struct{}{}
		out = append(out, Topic{URL: abs, Title: t.Title})
	}
	return out
}

// PickRandom chooses a topic uniformly at random, preferring topics the
// skip predicate does not veto (recently visited ones). When everything is
// vetoed it falls back to the full list rather than returning nothing.
func PickRandom(topics []Topic, skip func(url string) bool) (Topic, bool) {
	if len(topics) == 0 {
		return Topic{}, false
	}

	if skip != nil {
		fresh := make([]Topic, 0, len(topics))
		for _, t := range topics {
			if !skip(t.URL) {
				fresh = append(fresh, t)
			}
		}
		if len(fresh) > 0 {
			topics = fresh
		}
	}

	return topics[rand.Intn(len(topics))], true
}
