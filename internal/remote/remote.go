// Package remote provides the read-only client for the badwave remote
// store, reached over libsql.
//
// The remote store is the single writer of record for all music metadata;
// this client only queries it. Ranking and recommendation logic lives
// server-side; the queries here select and order, nothing more. Every
// call can fail with a generic transport error; callers treat all of them
// identically (caught, reported, non-fatal).
package remote

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"

	_ "github.com/tursodatabase/go-libsql"

	"github.com/bads1de/badwave-desktop-sub000/internal/schema"
)

// Client queries the remote store.
type Client struct {
	db     *sql.DB
	logger *log.Logger
}

// Open connects to the remote store at the given libsql URL.
//
// url has the form "libsql://<database>.turso.io?authToken=<token>".
// The connection is lazy: a failure surfaces on the first query, not
// here. If logger is nil, a default logger writing to stderr is used.
func Open(url string, logger *log.Logger) (*Client, error) {
	if logger == nil {
		logger = log.New(os.Stderr, "[remote] ", log.LstdFlags)
	}

	db, err := sql.Open("libsql", url)
	if err != nil {
		return nil, fmt.Errorf("failed to open remote store: %w", err)
	}

	return &Client{db: db, logger: logger}, nil
}

// NewWithDB wraps an existing database handle. Used by tests to point the
// client at a local fixture database.
func NewWithDB(db *sql.DB, logger *log.Logger) *Client {
	if logger == nil {
		logger = log.New(os.Stderr, "[remote] ", log.LstdFlags)
	}
	return &Client{db: db, logger: logger}
}

// Close closes the remote connection.
func (c *Client) Close() error {
	return c.db.Close()
}

// Ping verifies the remote store is reachable.
func (c *Client) Ping(ctx context.Context) error {
	return c.db.PingContext(ctx)
}

const selectRemoteSong = `
SELECT id, user_id, title, author, song_path, image_path, video_path,
       duration, genre, lyrics, created_at, count
FROM songs`

// TrendingSongs returns the top-n songs by play count.
// When days > 0 only songs created inside the window are ranked, which
// serves the "trending this week" section; days = 0 means all time.
func (c *Client) TrendingSongs(ctx context.Context, days, n int) ([]*schema.RemoteSong, error) {
	query := selectRemoteSong
	args := []interface{}{}
	if days > 0 {
		query += ` WHERE created_at >= datetime('now', ?)`
		args = append(args, fmt.Sprintf("-%d day", days))
	}
	query += ` ORDER BY count DESC LIMIT ?`
	args = append(args, n)

	return c.querySongs(ctx, query, args...)
}

// LatestSongs returns the n most recently added songs.
func (c *Client) LatestSongs(ctx context.Context, n int) ([]*schema.RemoteSong, error) {
	query := selectRemoteSong + ` ORDER BY created_at DESC LIMIT ?`
	return c.querySongs(ctx, query, n)
}

// RecommendedSongs returns up to n songs sharing a genre with the user's
// liked songs, ranked by play count. Falls back to the overall top-n when
// the user has no likes.
func (c *Client) RecommendedSongs(ctx context.Context, userID string, n int) ([]*schema.RemoteSong, error) {
	query := selectRemoteSong + `
	WHERE genre IN (
		SELECT DISTINCT s.genre
		FROM songs s
		JOIN liked_songs ls ON ls.song_id = s.id
		WHERE ls.user_id = ? AND s.genre IS NOT NULL
	)
	AND id NOT IN (SELECT song_id FROM liked_songs WHERE user_id = ?)
	ORDER BY count DESC LIMIT ?`

	songs, err := c.querySongs(ctx, query, userID, userID, n)
	if err != nil {
		return nil, err
	}
	if len(songs) > 0 {
		return songs, nil
	}

	return c.TrendingSongs(ctx, 0, n)
}

// Spotlights returns the current curated spotlight entries, newest first.
func (c *Client) Spotlights(ctx context.Context, n int) ([]*schema.RemoteSpotlight, error) {
	query := `
	SELECT id, title, description, image_path, song_id, created_at
	FROM spotlights ORDER BY created_at DESC LIMIT ?`

	rows, err := c.db.QueryContext(ctx, query, n)
	if err != nil {
		return nil, fmt.Errorf("failed to query spotlights: %w", err)
	}
	defer rows.Close()

	var spotlights []*schema.RemoteSpotlight
	for rows.Next() {
		var s schema.RemoteSpotlight
		var id, songID any
		var description, imagePath, createdAt sql.NullString
		if err := rows.Scan(&id, &s.Title, &description, &imagePath, &songID, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan spotlight: %w", err)
		}
		s.ID = id
		s.SongID = songID
		s.Description = description.String
		s.ImagePath = imagePath.String
		s.CreatedAt = createdAt.String
		spotlights = append(spotlights, &s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating spotlights: %w", err)
	}

	return spotlights, nil
}

// PublicPlaylists returns the n most recent public playlists.
func (c *Client) PublicPlaylists(ctx context.Context, n int) ([]*schema.RemotePlaylist, error) {
	query := selectRemotePlaylist + ` WHERE is_public = 1 ORDER BY created_at DESC LIMIT ?`
	return c.queryPlaylists(ctx, query, n)
}

// UserPlaylists returns every playlist owned by the user.
func (c *Client) UserPlaylists(ctx context.Context, userID string) ([]*schema.RemotePlaylist, error) {
	query := selectRemotePlaylist + ` WHERE user_id = ? ORDER BY created_at DESC`
	return c.queryPlaylists(ctx, query, userID)
}

// PlaylistSongs returns the songs belonging to a playlist in added order.
func (c *Client) PlaylistSongs(ctx context.Context, playlistID string) ([]*schema.RemoteSong, error) {
	query := `
	SELECT s.id, s.user_id, s.title, s.author, s.song_path, s.image_path, s.video_path,
	       s.duration, s.genre, s.lyrics, s.created_at, s.count
	FROM songs s
	JOIN playlist_songs ps ON ps.song_id = s.id
	WHERE ps.playlist_id = ?
	ORDER BY ps.created_at ASC`

	return c.querySongs(ctx, query, playlistID)
}

// LikedSongs returns the user's liked songs, most recently liked first.
func (c *Client) LikedSongs(ctx context.Context, userID string) ([]*schema.RemoteSong, error) {
	query := `
	SELECT s.id, s.user_id, s.title, s.author, s.song_path, s.image_path, s.video_path,
	       s.duration, s.genre, s.lyrics, s.created_at, s.count
	FROM songs s
	JOIN liked_songs ls ON ls.song_id = s.id
	WHERE ls.user_id = ?
	ORDER BY ls.created_at DESC`

	return c.querySongs(ctx, query, userID)
}

// GetSong fetches a single remote song by id.
// Returns sql.ErrNoRows if the song doesn't exist.
func (c *Client) GetSong(ctx context.Context, id string) (*schema.RemoteSong, error) {
	songs, err := c.querySongs(ctx, selectRemoteSong+` WHERE id = ?`, id)
	if err != nil {
		return nil, err
	}
	if len(songs) == 0 {
		return nil, sql.ErrNoRows
	}
	return songs[0], nil
}

const selectRemotePlaylist = `
SELECT id, user_id, title, image_path, is_public, created_at
FROM playlists`

func (c *Client) querySongs(ctx context.Context, query string, args ...interface{}) ([]*schema.RemoteSong, error) {
	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query remote songs: %w", err)
	}
	defer rows.Close()

	var songs []*schema.RemoteSong
	for rows.Next() {
		var s schema.RemoteSong
		var id, userID any
		var author, songPath, imagePath, videoPath sql.NullString
		var genre, lyrics, createdAt sql.NullString
		var duration, count sql.NullInt64

		err := rows.Scan(&id, &userID, &s.Title, &author, &songPath, &imagePath, &videoPath,
			&duration, &genre, &lyrics, &createdAt, &count)
		if err != nil {
			return nil, fmt.Errorf("failed to scan remote song: %w", err)
		}

		s.ID = id
		s.UserID = userID
		s.Author = author.String
		s.SongPath = songPath.String
		s.ImagePath = imagePath.String
		s.VideoPath = videoPath.String
		s.Duration = int(duration.Int64)
		s.Genre = genre.String
		s.Lyrics = lyrics.String
		s.CreatedAt = createdAt.String
		s.Count = int(count.Int64)

		songs = append(songs, &s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating remote songs: %w", err)
	}

	return songs, nil
}

func (c *Client) queryPlaylists(ctx context.Context, query string, args ...interface{}) ([]*schema.RemotePlaylist, error) {
	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query remote playlists: %w", err)
	}
	defer rows.Close()

	var playlists []*schema.RemotePlaylist
	for rows.Next() {
		var p schema.RemotePlaylist
		var id, userID any
		var imagePath, createdAt sql.NullString
		var isPublic sql.NullInt64

		if err := rows.Scan(&id, &userID, &p.Title, &imagePath, &isPublic, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan remote playlist: %w", err)
		}

		p.ID = id
		p.UserID = userID
		p.ImagePath = imagePath.String
		p.IsPublic = isPublic.Int64 != 0
		p.CreatedAt = createdAt.String

		playlists = append(playlists, &p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating remote playlists: %w", err)
	}

	return playlists, nil
}
