// Package persistence provides SQLite-based history for the automation:
// run summaries, visited topics and the daily like budget.
package persistence

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

const DefaultDBPath = "discourse_automation.db"

// Store handles all persistence operations using SQLite.
type Store struct {
	db     *sql.DB
	dbPath string
}

// NewStore opens (or creates) the database at dbPath.
func NewStore(dbPath string) (*Store, error) {
	if dbPath == "" {
		dbPath = DefaultDBPath
	}

	if dir := filepath.Dir(dbPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set WAL mode: %w", err)
	}

	store := &Store{db: db, dbPath: dbPath}
	if err := store.initTables(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize tables: %w", err)
	}
	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *Store) initTables() error {
	tables := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			site TEXT NOT NULL,
			mode TEXT NOT NULL,
			cycles INTEGER DEFAULT 0,
			topics_visited INTEGER DEFAULT 0,
			total_liked INTEGER DEFAULT 0,
			status TEXT DEFAULT 'running',
			started_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			finished_at DATETIME
		)`,

		`CREATE TABLE IF NOT EXISTS topic_visits (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id INTEGER,
			site TEXT NOT NULL,
			url TEXT NOT NULL,
			title TEXT,
			liked INTEGER DEFAULT 0,
			scrolls INTEGER DEFAULT 0,
			visited_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS daily_stats (
			date TEXT PRIMARY KEY,
			likes INTEGER DEFAULT 0
		)`,

		`CREATE INDEX IF NOT EXISTS idx_topic_visits_url ON topic_visits(url, visited_at)`,
	}

	for _, table := range tables {
		if _, err := s.db.Exec(table); err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}
	}
	return nil
}

// Run statuses.
const (
	RunStatusRunning     = "running"
	RunStatusCompleted   = "completed"
	RunStatusInterrupted = "interrupted"
	RunStatusFailed      = "failed"
)

// StartRun records a new run and returns its id.
func (s *Store) StartRun(site, mode string, cycles int) (int64, error) {
	res, err := s.db.Exec(
		`INSERT INTO runs (site, mode, cycles, started_at) VALUES (?, ?, ?, ?)`,
		site, mode, cycles, time.Now())
	if err != nil {
		return 0, fmt.Errorf("failed to record run: %w", err)
	}
	return res.LastInsertId()
}

// FinishRun closes out a run with its final numbers.
func (s *Store) FinishRun(runID int64, status string, topicsVisited, totalLiked int) error {
	_, err := s.db.Exec(
		`UPDATE runs SET status = ?, topics_visited = ?, total_liked = ?, finished_at = ? WHERE id = ?`,
		status, topicsVisited, totalLiked, time.Now(), runID)
	if err != nil {
		return fmt.Errorf("failed to finish run: %w", err)
	}
	return nil
}

// RunRecord is one row from the runs table.
type RunRecord struct {
	ID            int64
	Site          string
	Mode          string
	Cycles        int
	TopicsVisited int
	TotalLiked    int
	Status        string
}

// GetRun loads one run's summary row.
func (s *Store) GetRun(id int64) (RunRecord, error) {
	var r RunRecord
	err := s.db.QueryRow(
		`SELECT id, site, mode, cycles, topics_visited, total_liked, status FROM runs WHERE id = ?`, id).
		Scan(&r.ID, &r.Site, &r.Mode, &r.Cycles, &r.TopicsVisited, &r.TotalLiked, &r.Status)
	if err != nil {
		return RunRecord{}, fmt.Errorf("failed to load run: %w", err)
	}
	return r, nil
}

// Visit is one topic visit's summary.
type Visit struct {
	RunID   int64
	Site    string
	URL     string
	Title   string
	Liked   int
	Scrolls int
}

// RecordVisit stores a topic visit and bumps the daily like counter.
func (s *Store) RecordVisit(v Visit) error {
	_, err := s.db.Exec(
		`INSERT INTO topic_visits (run_id, site, url, title, liked, scrolls, visited_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		v.RunID, v.Site, v.URL, v.Title, v.Liked, v.Scrolls, time.Now())
	if err != nil {
		return fmt.Errorf("failed to record visit: %w", err)
	}
	if v.Liked > 0 {
		return s.AddLikes(v.Liked)
	}
	return nil
}

// RecentlyVisited reports whether url was visited within the window.
func (s *Store) RecentlyVisited(url string, window time.Duration) (bool, error) {
	cutoff := time.Now().Add(-window)
	var count int
	err := s.db.QueryRow(
		`SELECT COUNT(*) FROM topic_visits WHERE url = ? AND visited_at > ?`,
		url, cutoff).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to query visits: %w", err)
	}
	return count > 0, nil
}

// AddLikes bumps today's like counter by n.
func (s *Store) AddLikes(n int) error {
	_, err := s.db.Exec(`
		INSERT INTO daily_stats (date, likes) VALUES (?, ?)
		ON CONFLICT(date) DO UPDATE SET likes = likes + excluded.likes`,
		today(), n)
	if err != nil {
		return fmt.Errorf("failed to update daily stats: %w", err)
	}
	return nil
}

// LikesToday returns how many likes were recorded today.
func (s *Store) LikesToday() (int, error) {
	var likes int
	err := s.db.QueryRow(`SELECT likes FROM daily_stats WHERE date = ?`, today()).Scan(&likes)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to query daily stats: %w", err)
	}
	return likes, nil
}

func today() string {
	return time.Now().Format("2006-01-02")
}
