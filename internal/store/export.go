package store

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
)

// exportRecord is one JSONL line in a library export. Kind discriminates
// the payload: "song" or "playlist".
type exportRecord struct {
	Kind     string    `json:"kind"`
	Song     *Song     `json:"song,omitempty"`
	Playlist *Playlist `json:"playlist,omitempty"`
}

// ExportResult contains statistics about an export or import.
type ExportResult struct {
	Songs     int
	Playlists int
	Skipped   int
}

// ExportLibrary writes all song and playlist rows to w as JSONL,
// one record per line. Used for device migration backups.
func (db *DB) ExportLibrary(ctx context.Context, w io.Writer) (*ExportResult, error) {
	result := &ExportResult{}
	enc := json.NewEncoder(w)

	rows, err := db.conn.QueryContext(ctx, selectSongColumns+" FROM songs ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("failed to query songs for export: %w", err)
	}
	songs, err := scanSongs(rows)
	rows.Close()
	if err != nil {
		return nil, err
	}
	for _, s := range songs {
		if err := enc.Encode(exportRecord{Kind: "song", Song: s}); err != nil {
			return nil, fmt.Errorf("failed to encode song %s: %w", s.ID, err)
		}
		result.Songs++
	}

	rows, err = db.conn.QueryContext(ctx, selectPlaylistColumns+" FROM playlists ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("failed to query playlists for export: %w", err)
	}
	playlists, err := scanPlaylists(rows)
	rows.Close()
	if err != nil {
		return nil, err
	}
	for _, p := range playlists {
		if err := enc.Encode(exportRecord{Kind: "playlist", Playlist: p}); err != nil {
			return nil, fmt.Errorf("failed to encode playlist %s: %w", p.ID, err)
		}
		result.Playlists++
	}

	return result, nil
}

// ImportLibrary reads a JSONL export from r and upserts its records.
//
// Songs are written through the download-path upsert so exported local
// fields survive the restore. Unknown kinds are counted and skipped rather
// than failing the whole import.
func (db *DB) ImportLibrary(ctx context.Context, r io.Reader) (*ExportResult, error) {
	result := &ExportResult{}
	dec := json.NewDecoder(r)
	line := 0

	for {
		var rec exportRecord
		if err := dec.Decode(&rec); err != nil {
			if err == io.EOF {
				break
			}
			return result, fmt.Errorf("invalid JSON at record %d: %w", line+1, err)
		}
		line++

		switch {
		case rec.Kind == "song" && rec.Song != nil:
			if err := db.UpsertDownloadedSong(ctx, rec.Song); err != nil {
				return result, fmt.Errorf("failed to import song at record %d: %w", line, err)
			}
			result.Songs++
		case rec.Kind == "playlist" && rec.Playlist != nil:
			if err := db.UpsertPlaylist(ctx, rec.Playlist); err != nil {
				return result, fmt.Errorf("failed to import playlist at record %d: %w", line, err)
			}
			result.Playlists++
		default:
			result.Skipped++
		}
	}

	return result, nil
}
