package store

import (
	"context"
	"database/sql"
	"fmt"
)

// Playlist is an embedded-store playlist row.
// Title and the public flag are remote-owned and always overwritten by sync;
// the local image path is set only when the cover has been downloaded.
type Playlist struct {
	ID                string  `json:"id"`
	UserID            string  `json:"user_id"`
	Title             string  `json:"title"`
	ImagePath         *string `json:"image_path"`
	OriginalImagePath string  `json:"original_image_path"`
	IsPublic          bool    `json:"is_public"`
	CreatedAt         string  `json:"created_at"`
}

// UpsertPlaylist inserts or updates a playlist.
// The local image path is preserved on conflict; everything else is
// remote-owned.
func (db *DB) UpsertPlaylist(ctx context.Context, p *Playlist) error {
	if p.ID == "" {
		return fmt.Errorf("playlist id is required")
	}

	query := `
	INSERT INTO playlists (
		id, user_id, title, image_path, original_image_path, is_public, created_at
	) VALUES (?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		user_id = excluded.user_id,
		title = excluded.title,
		original_image_path = excluded.original_image_path,
		is_public = excluded.is_public,
		created_at = excluded.created_at
	`

	_, err := db.conn.ExecContext(ctx, query,
		p.ID, p.UserID, p.Title, stringToNull(p.ImagePath),
		p.OriginalImagePath, boolToInt(p.IsPublic), p.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert playlist %s: %w", p.ID, err)
	}

	return nil
}

// GetPlaylist retrieves a single playlist by id.
// Returns sql.ErrNoRows if not found.
func (db *DB) GetPlaylist(ctx context.Context, id string) (*Playlist, error) {
	row := db.conn.QueryRowContext(ctx, selectPlaylistColumns+" FROM playlists WHERE id = ?", id)

	p, err := scanPlaylist(row)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan playlist: %w", err)
	}
	return p, nil
}

// GetCachedPlaylists returns all playlists owned by a user, newest first.
func (db *DB) GetCachedPlaylists(ctx context.Context, userID string) ([]*Playlist, error) {
	query := selectPlaylistColumns + `
	FROM playlists
	WHERE user_id = ?
	ORDER BY created_at DESC
	`

	rows, err := db.conn.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query playlists for user %s: %w", userID, err)
	}
	defer rows.Close()

	return scanPlaylists(rows)
}

// DeletePlaylist removes a playlist row.
// Returns nil if the playlist doesn't exist (idempotent).
func (db *DB) DeletePlaylist(ctx context.Context, id string) error {
	if _, err := db.conn.ExecContext(ctx, "DELETE FROM playlists WHERE id = ?", id); err != nil {
		return fmt.Errorf("failed to delete playlist %s: %w", id, err)
	}
	return nil
}

// GetPlaylistCount returns the total number of playlist rows.
func (db *DB) GetPlaylistCount(ctx context.Context) (int, error) {
	var count int
	if err := db.conn.QueryRowContext(ctx, "SELECT COUNT(*) FROM playlists").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to get playlist count: %w", err)
	}
	return count, nil
}

// getPlaylistsByIDs fetches playlists for an id set, keyed by id.
func (db *DB) getPlaylistsByIDs(ctx context.Context, ids []string) (map[string]*Playlist, error) {
	if len(ids) == 0 {
		return map[string]*Playlist{}, nil
	}

	query := selectPlaylistColumns + " FROM playlists WHERE id IN (" + placeholders(len(ids)) + ")"

	rows, err := db.conn.QueryContext(ctx, query, idArgs(ids)...)
	if err != nil {
		return nil, fmt.Errorf("failed to query playlists by ids: %w", err)
	}
	defer rows.Close()

	list, err := scanPlaylists(rows)
	if err != nil {
		return nil, err
	}

	byID := make(map[string]*Playlist, len(list))
	for _, p := range list {
		byID[p.ID] = p
	}
	return byID, nil
}

const selectPlaylistColumns = `
SELECT id, user_id, title, image_path, original_image_path, is_public, created_at`

func scanPlaylist(sc rowScanner) (*Playlist, error) {
	var p Playlist
	var userID, origImage, createdAt sql.NullString
	var imagePath sql.NullString
	var isPublic int

	err := sc.Scan(&p.ID, &userID, &p.Title, &imagePath, &origImage, &isPublic, &createdAt)
	if err != nil {
		return nil, err
	}

	p.UserID = userID.String
	p.ImagePath = nullToString(imagePath)
	p.OriginalImagePath = origImage.String
	p.IsPublic = isPublic != 0
	p.CreatedAt = createdAt.String

	return &p, nil
}

func scanPlaylists(rows *sql.Rows) ([]*Playlist, error) {
	var playlists []*Playlist
	for rows.Next() {
		p, err := scanPlaylist(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan playlist: %w", err)
		}
		playlists = append(playlists, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating playlists: %w", err)
	}
	return playlists, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func placeholders(n int) string {
	if n == 0 {
		return ""
	}
	s := make([]byte, 0, n*2)
	for i := 0; i < n; i++ {
		if i > 0 {
			s = append(s, ',')
		}
		s = append(s, '?')
	}
	return string(s)
}

func idArgs(ids []string) []interface{} {
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return args
}
