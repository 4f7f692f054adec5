// Package storage provides SQLite-based local persistence for the game:
// the in-progress session snapshot, lifetime statistics, user settings and
// the cached authenticated user. Uses the pure-Go modernc.org/sqlite driver
// to avoid CGO dependencies.
//
// Each record is a whole JSON document stored under a fixed key and replaced
// atomically on every write; no cross-record transactionality is needed.
package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// Record keys. One row per key in the state table.
const (
	keySnapshot   = "session_snapshot"
	keyStatistics = "statistics"
	keySettings   = "settings"
	keyUser       = "user"
)

// SnapshotMaxAge is the staleness threshold for saved games. Snapshots older
// than this are treated as absent and removed on load.
const SnapshotMaxAge = 24 * time.Hour

// ErrNoRecord is returned when a requested record does not exist.
var ErrNoRecord = errors.New("storage: record not found")

// Store manages the SQLite database holding local game state.
type Store struct {
	db *sql.DB
}

// Snapshot is a persisted record of an in-progress session, enabling resume
// after the process exits.
type Snapshot struct {
	Level      int   `json:"level"`
	CurrentPos int   `json:"currentPos"`
	TimeLeft   int   `json:"timeLeft"`
	Score      int   `json:"score"`
	Active     bool  `json:"active"`
	Timestamp  int64 `json:"timestamp"` // Unix milliseconds
}

// Settings holds user-configurable options.
type Settings struct {
	ShowAnimations bool   `json:"showAnimations"`
	SoundEnabled   bool   `json:"soundEnabled"`
	AnimationSpeed string `json:"animationSpeed"` // "fast", "normal", "slow"
}

// DefaultSettings returns the settings used when nothing is stored.
func DefaultSettings() Settings {
	return Settings{
		ShowAnimations: true,
		SoundEnabled:   true,
		AnimationSpeed: "normal",
	}
}

// SnakeDelay maps the animation settings to the pause shown when a snake
// drags the player back. Disabled animations keep a barely visible pause so
// the setback is still noticeable.
func (s Settings) SnakeDelay() time.Duration {
	if !s.ShowAnimations {
		return 50 * time.Millisecond
	}
	switch s.AnimationSpeed {
	case "fast":
		return 300 * time.Millisecond
	case "slow":
		return time.Second
	default:
		return 600 * time.Millisecond
	}
}

// User is the locally cached authenticated user record. The score client
// treats it as a hint only; a freshness check runs before every submission.
type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Score    int    `json:"score"`
	Avatar   string `json:"avatar,omitempty"`
	Session  string `json:"session,omitempty"` // backend session cookie value
}

// Open creates or opens a SQLite database at the given path.
// It creates the parent directories if needed and runs migrations.
func Open(dbPath string) (*Store, error) {
	// Expand ~ to home directory
	if dbPath != "" && dbPath[0] == '~' {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("storage: cannot expand home directory: %w", err)
		}
		dbPath = filepath.Join(home, dbPath[1:])
	}

	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("storage: cannot create directory %s: %w", dir, err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("storage: cannot open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage: cannot connect to database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage: migration failed: %w", err)
	}

	return store, nil
}

// migrate creates the database schema if it doesn't exist.
func (s *Store) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS state (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// putRecord replaces the whole record stored under key.
func (s *Store) putRecord(key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("storage: cannot marshal %s: %w", key, err)
	}
	_, err = s.db.Exec(
		`INSERT INTO state (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP`,
		key, string(data),
	)
	if err != nil {
		return fmt.Errorf("storage: cannot write %s: %w", key, err)
	}
	return nil
}

// getRecord reads the record stored under key into v.
func (s *Store) getRecord(key string, v any) error {
	var raw string
	err := s.db.QueryRow("SELECT value FROM state WHERE key = ?", key).Scan(&raw)
	if err == sql.ErrNoRows {
		return ErrNoRecord
	}
	if err != nil {
		return fmt.Errorf("storage: cannot read %s: %w", key, err)
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return fmt.Errorf("storage: cannot decode %s: %w", key, err)
	}
	return nil
}

// delRecord removes the record stored under key. Missing records are fine.
func (s *Store) delRecord(key string) error {
	if _, err := s.db.Exec("DELETE FROM state WHERE key = ?", key); err != nil {
		return fmt.Errorf("storage: cannot delete %s: %w", key, err)
	}
	return nil
}

// SaveSnapshot stores the in-progress session snapshot, stamping it with the
// current time.
func (s *Store) SaveSnapshot(snap Snapshot) error {
	snap.Timestamp = time.Now().UnixMilli()
	return s.putRecord(keySnapshot, snap)
}

// LoadSnapshot returns the saved session snapshot. A snapshot older than
// SnapshotMaxAge is deleted and reported as absent via ErrNoRecord.
func (s *Store) LoadSnapshot() (Snapshot, error) {
	var snap Snapshot
	if err := s.getRecord(keySnapshot, &snap); err != nil {
		return Snapshot{}, err
	}
	age := time.Since(time.UnixMilli(snap.Timestamp))
	if age > SnapshotMaxAge {
		//nolint:errcheck // Best-effort cleanup of the stale record
		s.delRecord(keySnapshot)
		return Snapshot{}, ErrNoRecord
	}
	return snap, nil
}

// ClearSnapshot removes any saved session snapshot.
func (s *Store) ClearSnapshot() error {
	return s.delRecord(keySnapshot)
}

// SaveSettings stores the user settings.
func (s *Store) SaveSettings(settings Settings) error {
	return s.putRecord(keySettings, settings)
}

// LoadSettings returns the stored settings, or defaults when nothing is
// stored or the record cannot be decoded.
func (s *Store) LoadSettings() Settings {
	var settings Settings
	if err := s.getRecord(keySettings, &settings); err != nil {
		return DefaultSettings()
	}
	if settings.AnimationSpeed == "" {
		settings.AnimationSpeed = "normal"
	}
	return settings
}

// SaveUser caches the authenticated user record.
func (s *Store) SaveUser(u User) error {
	return s.putRecord(keyUser, u)
}

// LoadUser returns the cached user record, or ErrNoRecord when logged out.
func (s *Store) LoadUser() (User, error) {
	var u User
	if err := s.getRecord(keyUser, &u); err != nil {
		return User{}, err
	}
	return u, nil
}

// ClearUser removes the cached user record. Called when the backend reports
// the session as expired.
func (s *Store) ClearUser() error {
	return s.delRecord(keyUser)
}
