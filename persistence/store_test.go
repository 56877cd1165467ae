package persistence

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestRunLifecycle(t *testing.T) {
	store := newTestStore(t)

	runID, err := store.StartRun("shuiyuan", "random", 5)
	require.NoError(t, err)
	assert.Greater(t, runID, int64(0))

	require.NoError(t, store.FinishRun(runID, RunStatusCompleted, 5, 12))

	var status string
	var liked int
	err = store.db.QueryRow(`SELECT status, total_liked FROM runs WHERE id = ?`, runID).
		Scan(&status, &liked)
	require.NoError(t, err)
	assert.Equal(t, RunStatusCompleted, status)
	assert.Equal(t, 12, liked)
}

func TestRecordVisitAndRecentlyVisited(t *testing.T) {
	store := newTestStore(t)

	url := "https://forum.example.com/t/thread/1"
	require.NoError(t, store.RecordVisit(Visit{
		Site: "forum", URL: url, Title: "Thread", Liked: 3, Scrolls: 10,
	}))

	recent, err := store.RecentlyVisited(url, 24*time.Hour)
	require.NoError(t, err)
	assert.True(t, recent)

	recent, err = store.RecentlyVisited("https://forum.example.com/t/other/2", 24*time.Hour)
	require.NoError(t, err)
	assert.False(t, recent)

	// A zero window puts the cutoff at "now": nothing is recent.
	recent, err = store.RecentlyVisited(url, 0)
	require.NoError(t, err)
	assert.False(t, recent)
}

func TestDailyLikeCounter(t *testing.T) {
	store := newTestStore(t)

	likes, err := store.LikesToday()
	require.NoError(t, err)
	assert.Equal(t, 0, likes)

	require.NoError(t, store.AddLikes(4))
	require.NoError(t, store.AddLikes(3))

	likes, err = store.LikesToday()
	require.NoError(t, err)
	assert.Equal(t, 7, likes)
}

func TestVisitBumpsDailyStats(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.RecordVisit(Visit{Site: "f", URL: "u", Liked: 2}))
	require.NoError(t, store.RecordVisit(Visit{Site: "f", URL: "u2", Liked: 0}))

	likes, err := store.LikesToday()
	require.NoError(t, err)
	assert.Equal(t, 2, likes)
}
