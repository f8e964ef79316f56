package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// SectionType selects which metadata table a section's ids join against.
type SectionType string

const (
	// SectionSongs joins ids against the songs table.
	SectionSongs SectionType = "songs"
	// SectionSpotlights joins ids against the spotlights table.
	SectionSpotlights SectionType = "spotlights"
	// SectionPlaylists joins ids against the playlists table.
	SectionPlaylists SectionType = "playlists"
)

// SectionItems is an ordered section read result. Exactly one of the slices
// is populated, matching the requested type.
type SectionItems struct {
	Songs      []*Song
	Spotlights []*Spotlight
	Playlists  []*Playlist
	UpdatedAt  *time.Time
}

// Len returns the number of resolved items.
func (si *SectionItems) Len() int {
	return len(si.Songs) + len(si.Spotlights) + len(si.Playlists)
}

// SetSectionIDs atomically replaces the ordered id list stored for key.
//
// The list may reference ids not yet present in the metadata tables; those
// resolve at read time. Stale entries are fully replaced, never patched. The
// caller is responsible for upserting item payloads first so the new order
// is immediately resolvable.
func (db *DB) SetSectionIDs(ctx context.Context, key string, ids []string) error {
	if key == "" {
		return fmt.Errorf("section key is required")
	}

	idsJSON, err := json.Marshal(ids)
	if err != nil {
		return fmt.Errorf("failed to marshal section ids: %w", err)
	}

	query := `
	INSERT INTO section_cache (key, item_ids, updated_at)
	VALUES (?, ?, ?)
	ON CONFLICT(key) DO UPDATE SET
		item_ids = excluded.item_ids,
		updated_at = excluded.updated_at
	`

	_, err = db.conn.ExecContext(ctx, query, key, string(idsJSON), time.Now().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to set section %s: %w", key, err)
	}

	return nil
}

// GetSectionIDs reads the stored id list for key.
// A missing key yields an empty list, not an error.
func (db *DB) GetSectionIDs(ctx context.Context, key string) ([]string, *time.Time, error) {
	var idsJSON string
	var updatedAt string

	err := db.conn.QueryRowContext(ctx,
		"SELECT item_ids, updated_at FROM section_cache WHERE key = ?", key).
		Scan(&idsJSON, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read section %s: %w", key, err)
	}

	var ids []string
	if err := json.Unmarshal([]byte(idsJSON), &ids); err != nil {
		return nil, nil, fmt.Errorf("failed to unmarshal section %s ids: %w", key, err)
	}

	ts := nullStringToTime(sql.NullString{String: updatedAt, Valid: true})
	return ids, ts, nil
}

// GetSection resolves a section's id list against the metadata table for
// typ and returns the items in the exact stored order.
//
// Order is a hard contract: the stored list reflects a deliberate ranking
// that no join can reproduce. Ids with no resolvable row are dropped
// silently; they are treated as not-yet-synced, not as an error.
func (db *DB) GetSection(ctx context.Context, key string, typ SectionType) (*SectionItems, error) {
	ids, updatedAt, err := db.GetSectionIDs(ctx, key)
	if err != nil {
		return nil, err
	}

	items := &SectionItems{UpdatedAt: updatedAt}
	if len(ids) == 0 {
		return items, nil
	}

	switch typ {
	case SectionSongs:
		byID, err := db.getSongsByIDs(ctx, ids)
		if err != nil {
			return nil, err
		}
		for _, id := range ids {
			if s, ok := byID[id]; ok {
				items.Songs = append(items.Songs, s)
			}
		}

	case SectionSpotlights:
		byID, err := db.getSpotlightsByIDs(ctx, ids)
		if err != nil {
			return nil, err
		}
		for _, id := range ids {
			if s, ok := byID[id]; ok {
				items.Spotlights = append(items.Spotlights, s)
			}
		}

	case SectionPlaylists:
		byID, err := db.getPlaylistsByIDs(ctx, ids)
		if err != nil {
			return nil, err
		}
		for _, id := range ids {
			if p, ok := byID[id]; ok {
				items.Playlists = append(items.Playlists, p)
			}
		}

	default:
		return nil, fmt.Errorf("unknown section type %q", typ)
	}

	return items, nil
}

// ListSectionKeys returns all cached section keys with their update times.
func (db *DB) ListSectionKeys(ctx context.Context) (map[string]time.Time, error) {
	rows, err := db.conn.QueryContext(ctx, "SELECT key, updated_at FROM section_cache")
	if err != nil {
		return nil, fmt.Errorf("failed to list section keys: %w", err)
	}
	defer rows.Close()

	keys := make(map[string]time.Time)
	for rows.Next() {
		var key, updatedAt string
		if err := rows.Scan(&key, &updatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan section key: %w", err)
		}
		if t, err := time.Parse(time.RFC3339, updatedAt); err == nil {
			keys[key] = t
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating section keys: %w", err)
	}

	return keys, nil
}
