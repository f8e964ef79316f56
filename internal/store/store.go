// Package store provides the embedded SQLite database that mirrors a subset
// of the badwave remote store for offline use.
//
// The database runs fully embedded (ncruces/go-sqlite3, wazero-backed) with
// WAL mode for concurrent reads. It holds song, playlist, membership, liked
// and spotlight metadata plus a section-order cache, and is the only
// durable state the offline engine owns.
//
// Ownership: the store is exclusively mutated by the engine's background
// process. Song rows carry two classes of fields:
//
//   - remote-owned: title, author, original_* paths, duration, genre,
//     lyrics, created_at: always overwritten by metadata sync
//   - locally-owned: song_path, image_path, video_path, downloaded_at,
//     last_played_at: written only by the download manager and playback
//     tracking, never by metadata sync
//
// All sync-engine writes run on a single logical writer so that the
// read-projection/merge/write sequence for one song id never interleaves
// with itself.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
)

// DB wraps the embedded SQLite connection.
type DB struct {
	conn   *sql.DB
	path   string
	logger *log.Logger
}

// Open creates a database connection at the specified path.
//
// The database is opened in embedded mode with WAL for concurrent reads.
// If the database doesn't exist it is created; call InitSchema before first
// use. The caller MUST call Close when done.
//
// If logger is nil, a default logger writing to stderr is used.
func Open(path string, logger *log.Logger) (*DB, error) {
	if logger == nil {
		logger = log.New(os.Stderr, "[store] ", log.LstdFlags)
	}

	// Ensure parent directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	conn, err := sql.Open("sqlite3", "file:"+path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := conn.Ping(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	conn.SetMaxOpenConns(25)
	conn.SetMaxIdleConns(5)
	conn.SetConnMaxLifetime(5 * time.Minute)

	db := &DB{conn: conn, path: path, logger: logger}

	// WAL lets the UI read while a sync writes
	if _, err := db.conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	if _, err := db.conn.Exec("PRAGMA busy_timeout=5000"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	if _, err := db.conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	return db, nil
}

// RawDB returns the underlying sql.DB connection.
func (db *DB) RawDB() *sql.DB {
	return db.conn
}

// Path returns the database file path.
func (db *DB) Path() string {
	return db.path
}

// Close closes the database connection.
// Performs a WAL checkpoint to ensure all changes are persisted.
func (db *DB) Close() error {
	if db.conn == nil {
		return nil
	}

	if _, err := db.conn.Exec("PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		db.logger.Printf("Warning: failed to checkpoint WAL: %v", err)
	}

	if err := db.conn.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}

	db.conn = nil
	return nil
}

// InitSchema creates the database schema if it doesn't exist.
// Idempotent; safe to call on every startup.
func (db *DB) InitSchema() error {
	return db.InitSchemaContext(context.Background())
}

// InitSchemaContext creates the database schema with context support.
func (db *DB) InitSchemaContext(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS songs (
		id TEXT PRIMARY KEY,
		user_id TEXT,
		title TEXT NOT NULL,
		author TEXT,

		-- locally-owned: non-null iff the asset is on disk
		song_path TEXT,
		image_path TEXT,
		video_path TEXT,

		-- remote-owned asset URLs
		original_song_path TEXT,
		original_image_path TEXT,
		original_video_path TEXT,

		duration INTEGER NOT NULL DEFAULT 0,
		genre TEXT,
		lyrics TEXT,
		created_at TEXT,

		-- locally-owned timestamps
		downloaded_at TEXT,
		last_played_at TEXT
	);

	CREATE TABLE IF NOT EXISTS playlists (
		id TEXT PRIMARY KEY,
		user_id TEXT,
		title TEXT NOT NULL,
		image_path TEXT,
		original_image_path TEXT,
		is_public INTEGER NOT NULL DEFAULT 0,
		created_at TEXT
	);

	CREATE TABLE IF NOT EXISTS playlist_songs (
		id TEXT PRIMARY KEY,  -- deterministic: <playlist_id>_<song_id>
		playlist_id TEXT NOT NULL,
		song_id TEXT NOT NULL,
		added_at TEXT,
		UNIQUE(playlist_id, song_id)
	);

	CREATE TABLE IF NOT EXISTS liked_songs (
		user_id TEXT NOT NULL,
		song_id TEXT NOT NULL,
		liked_at TEXT,
		PRIMARY KEY (user_id, song_id)
	);

	CREATE TABLE IF NOT EXISTS spotlights (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		description TEXT,
		image_path TEXT,
		song_id TEXT,
		created_at TEXT
	);

	-- key -> ordered list of item ids; payloads live in the tables above
	CREATE TABLE IF NOT EXISTS section_cache (
		key TEXT PRIMARY KEY,
		item_ids TEXT NOT NULL,  -- JSON array
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_songs_user ON songs(user_id);
	CREATE INDEX IF NOT EXISTS idx_songs_downloaded ON songs(song_path)
	    WHERE song_path IS NOT NULL;
	CREATE INDEX IF NOT EXISTS idx_playlists_user ON playlists(user_id);
	CREATE INDEX IF NOT EXISTS idx_playlist_songs_playlist
	    ON playlist_songs(playlist_id);
	CREATE INDEX IF NOT EXISTS idx_liked_songs_user ON liked_songs(user_id);
	`

	if _, err := db.conn.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	return nil
}

// timeToNullString converts a time pointer to a nullable string for SQL.
func timeToNullString(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{Valid: false}
	}
	return sql.NullString{String: t.Format(time.RFC3339), Valid: true}
}

// nullStringToTime converts a nullable SQL string to a time pointer.
func nullStringToTime(ns sql.NullString) *time.Time {
	if !ns.Valid {
		return nil
	}
	t, err := time.Parse(time.RFC3339, ns.String)
	if err != nil {
		return nil
	}
	return &t
}

// stringToNull converts a string pointer to a nullable SQL string.
func stringToNull(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{Valid: false}
	}
	return sql.NullString{String: *s, Valid: true}
}

// nullToString converts a nullable SQL string to a string pointer.
func nullToString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}
