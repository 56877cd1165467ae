package browse

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFilterTopics(t *testing.T) {
	base := "https://forum.example.com"
	raw := []Topic{
		{URL: "/t/interesting-thread/123", Title: "Interesting thread"},
		{URL: "https://forum.example.com/t/other/456", Title: "Other"},
		{URL: "https://elsewhere.example.org/t/offsite/1", Title: "Offsite"},
		{URL: "/t/no-title/789", Title: ""},
		{URL: "/t/interesting-thread/123", Title: "Duplicate of the first"},
		{URL: "://bad url", Title: "Broken"},
	}

	got := filterTopics(base, raw)

	assert.Len(t, got, 2)
	assert.Equal(t, "https://forum.example.com/t/interesting-thread/123", got[0].URL)
	assert.Equal(t, "Interesting thread", got[0].Title)
	assert.Equal(t, "https://forum.example.com/t/other/456", got[1].URL)
}

func TestFilterTopicsEmpty(t *testing.T) {
	assert.Empty(t, filterTopics("https://forum.example.com", nil))
}

func TestPickRandomSkipsRecentlyVisited(t *testing.T) {
	topics := []Topic{
		{URL: "https://f.example/t/1", Title: "one"},
		{URL: "https://f.example/t/2", Title: "two"},
		{URL: "https://f.example/t/3", Title: "three"},
	}
	visited := map[string]bool{
		"https://f.example/t/1": true,
		"https://f.example/t/3": true,
	}

	for i := 0; i < 20; i++ {
		got, ok := PickRandom(topics, func(url string) bool { return visited[url] })
		assert.True(t, ok)
		assert.Equal(t, "https://f.example/t/2", got.URL)
	}
}

func TestPickRandomFallsBackWhenAllVisited(t *testing.T) {
	topics := []Topic{{URL: "https://f.example/t/1", Title: "one"}}

	got, ok := PickRandom(topics, func(string) bool { return true })
	assert.True(t, ok)
	assert.Equal(t, "https://f.example/t/1", got.URL)
}

func TestPickRandomEmpty(t *testing.T) {
	_, ok := PickRandom(nil, nil)
	assert.False(t, ok)
}
