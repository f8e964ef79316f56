package store

import (
	"context"
	"fmt"
	"time"
)

// PlaylistSong is a playlist membership row. The id is deterministic from
// the (playlist, song) pair so re-syncing the same membership is a no-op.
type PlaylistSong struct {
	ID         string `json:"id"`
	PlaylistID string `json:"playlist_id"`
	SongID     string `json:"song_id"`
	AddedAt    string `json:"added_at"`
}

// LikedSong is a user's like relationship to a song.
type LikedSong struct {
	UserID  string `json:"user_id"`
	SongID  string `json:"song_id"`
	LikedAt string `json:"liked_at"`
}

// InsertPlaylistSong records a song's membership in a playlist.
//
// Membership rows have no mutable remote-owned fields beyond their
// existence, so this is insert-or-ignore: at most one row per
// (playlist, song) pair, duplicates are a silent no-op.
func (db *DB) InsertPlaylistSong(ctx context.Context, link *PlaylistSong) error {
	if link.PlaylistID == "" || link.SongID == "" {
		return fmt.Errorf("playlist id and song id are required")
	}
	if link.ID == "" {
		link.ID = link.PlaylistID + "_" + link.SongID
	}
	if link.AddedAt == "" {
		link.AddedAt = time.Now().Format(time.RFC3339)
	}

	query := `
	INSERT INTO playlist_songs (id, playlist_id, song_id, added_at)
	VALUES (?, ?, ?, ?)
	ON CONFLICT(playlist_id, song_id) DO NOTHING
	`

	_, err := db.conn.ExecContext(ctx, query, link.ID, link.PlaylistID, link.SongID, link.AddedAt)
	if err != nil {
		return fmt.Errorf("failed to insert playlist song %s: %w", link.ID, err)
	}

	return nil
}

// DeletePlaylistSong removes a membership row.
// Returns nil if the link doesn't exist (idempotent).
func (db *DB) DeletePlaylistSong(ctx context.Context, playlistID, songID string) error {
	query := `DELETE FROM playlist_songs WHERE playlist_id = ? AND song_id = ?`
	if _, err := db.conn.ExecContext(ctx, query, playlistID, songID); err != nil {
		return fmt.Errorf("failed to delete playlist song %s_%s: %w", playlistID, songID, err)
	}
	return nil
}

// ReplacePlaylistSongs atomically replaces a playlist's membership set.
// Used when a full playlist sync arrives: stale links disappear, surviving
// links keep their added_at.
func (db *DB) ReplacePlaylistSongs(ctx context.Context, playlistID string, links []*PlaylistSong) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	keep := make([]string, 0, len(links))
	for _, link := range links {
		if link.ID == "" {
			link.ID = link.PlaylistID + "_" + link.SongID
		}
		if link.AddedAt == "" {
			link.AddedAt = time.Now().Format(time.RFC3339)
		}
		query := `
		INSERT INTO playlist_songs (id, playlist_id, song_id, added_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(playlist_id, song_id) DO NOTHING
		`
		if _, err := tx.ExecContext(ctx, query, link.ID, link.PlaylistID, link.SongID, link.AddedAt); err != nil {
			return fmt.Errorf("failed to insert playlist song %s: %w", link.ID, err)
		}
		keep = append(keep, link.SongID)
	}

	delQuery := "DELETE FROM playlist_songs WHERE playlist_id = ?"
	delArgs := []interface{}{playlistID}
	if len(keep) > 0 {
		delQuery += " AND song_id NOT IN (" + placeholders(len(keep)) + ")"
		delArgs = append(delArgs, idArgs(keep)...)
	}
	if _, err := tx.ExecContext(ctx, delQuery, delArgs...); err != nil {
		return fmt.Errorf("failed to prune playlist songs for %s: %w", playlistID, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit playlist songs for %s: %w", playlistID, err)
	}
	return nil
}

// GetCachedPlaylistSongs returns the songs linked to a playlist in the
// order they were added.
func (db *DB) GetCachedPlaylistSongs(ctx context.Context, playlistID string) ([]*Song, error) {
	query := selectSongColumnsQualified + `
	FROM songs
	JOIN playlist_songs ps ON ps.song_id = songs.id
	WHERE ps.playlist_id = ?
	ORDER BY ps.added_at ASC
	`

	rows, err := db.conn.QueryContext(ctx, query, playlistID)
	if err != nil {
		return nil, fmt.Errorf("failed to query playlist songs for %s: %w", playlistID, err)
	}
	defer rows.Close()

	return scanSongs(rows)
}

// InsertLikedSong records a like. Insert-or-ignore, keyed by the
// (user, song) pair.
func (db *DB) InsertLikedSong(ctx context.Context, like *LikedSong) error {
	if like.UserID == "" || like.SongID == "" {
		return fmt.Errorf("user id and song id are required")
	}
	if like.LikedAt == "" {
		like.LikedAt = time.Now().Format(time.RFC3339)
	}

	query := `
	INSERT INTO liked_songs (user_id, song_id, liked_at)
	VALUES (?, ?, ?)
	ON CONFLICT(user_id, song_id) DO NOTHING
	`

	_, err := db.conn.ExecContext(ctx, query, like.UserID, like.SongID, like.LikedAt)
	if err != nil {
		return fmt.Errorf("failed to insert liked song %s/%s: %w", like.UserID, like.SongID, err)
	}

	return nil
}

// DeleteLikedSong removes a like.
// Returns nil if the like doesn't exist (idempotent).
func (db *DB) DeleteLikedSong(ctx context.Context, userID, songID string) error {
	query := `DELETE FROM liked_songs WHERE user_id = ? AND song_id = ?`
	if _, err := db.conn.ExecContext(ctx, query, userID, songID); err != nil {
		return fmt.Errorf("failed to delete liked song %s/%s: %w", userID, songID, err)
	}
	return nil
}

// GetCachedLikedSongs returns a user's liked songs, most recently liked
// first.
func (db *DB) GetCachedLikedSongs(ctx context.Context, userID string) ([]*Song, error) {
	query := selectSongColumnsQualified + `
	FROM songs
	JOIN liked_songs ls ON ls.song_id = songs.id
	WHERE ls.user_id = ?
	ORDER BY ls.liked_at DESC
	`

	rows, err := db.conn.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query liked songs for user %s: %w", userID, err)
	}
	defer rows.Close()

	return scanSongs(rows)
}

// GetLikedSongCount returns the number of liked-song rows for a user.
func (db *DB) GetLikedSongCount(ctx context.Context, userID string) (int, error) {
	var count int
	err := db.conn.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM liked_songs WHERE user_id = ?", userID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to get liked song count: %w", err)
	}
	return count, nil
}
