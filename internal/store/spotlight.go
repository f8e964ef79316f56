package store

import (
	"context"
	"database/sql"
	"fmt"
)

// Spotlight is a curated home-screen entry referencing a song.
type Spotlight struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	ImagePath   string `json:"image_path"`
	SongID      string `json:"song_id"`
	CreatedAt   string `json:"created_at"`
}

// UpsertSpotlight inserts or updates a spotlight entry.
// All spotlight fields are remote-owned.
func (db *DB) UpsertSpotlight(ctx context.Context, s *Spotlight) error {
	if s.ID == "" {
		return fmt.Errorf("spotlight id is required")
	}

	query := `
	INSERT INTO spotlights (id, title, description, image_path, song_id, created_at)
	VALUES (?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		title = excluded.title,
		description = excluded.description,
		image_path = excluded.image_path,
		song_id = excluded.song_id,
		created_at = excluded.created_at
	`

	_, err := db.conn.ExecContext(ctx, query,
		s.ID, s.Title, s.Description, s.ImagePath, s.SongID, s.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert spotlight %s: %w", s.ID, err)
	}

	return nil
}

// getSpotlightsByIDs fetches spotlights for an id set, keyed by id.
func (db *DB) getSpotlightsByIDs(ctx context.Context, ids []string) (map[string]*Spotlight, error) {
	if len(ids) == 0 {
		return map[string]*Spotlight{}, nil
	}

	query := `
	SELECT id, title, description, image_path, song_id, created_at
	FROM spotlights WHERE id IN (` + placeholders(len(ids)) + `)`

	rows, err := db.conn.QueryContext(ctx, query, idArgs(ids)...)
	if err != nil {
		return nil, fmt.Errorf("failed to query spotlights by ids: %w", err)
	}
	defer rows.Close()

	byID := make(map[string]*Spotlight)
	for rows.Next() {
		var s Spotlight
		var description, imagePath, songID, createdAt sql.NullString
		if err := rows.Scan(&s.ID, &s.Title, &description, &imagePath, &songID, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan spotlight: %w", err)
		}
		s.Description = description.String
		s.ImagePath = imagePath.String
		s.SongID = songID.String
		s.CreatedAt = createdAt.String
		byID[s.ID] = &s
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating spotlights: %w", err)
	}

	return byID, nil
}
