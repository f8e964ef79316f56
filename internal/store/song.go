package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// Song is a full embedded-store song row.
//
// Local path fields are nil until the download manager has fetched the
// corresponding asset. CreatedAt is the remote-origin timestamp and is
// carried as an opaque string.
type Song struct {
	ID     string `json:"id"`
	UserID string `json:"user_id"`
	Title  string `json:"title"`
	Author string `json:"author"`

	SongPath  *string `json:"song_path"`
	ImagePath *string `json:"image_path"`
	VideoPath *string `json:"video_path"`

	OriginalSongPath  string `json:"original_song_path"`
	OriginalImagePath string `json:"original_image_path"`
	OriginalVideoPath string `json:"original_video_path"`

	Duration  int    `json:"duration"`
	Genre     string `json:"genre"`
	Lyrics    string `json:"lyrics"`
	CreatedAt string `json:"created_at"`

	DownloadedAt *time.Time `json:"downloaded_at"`
	LastPlayedAt *time.Time `json:"last_played_at"`
}

// IsDownloaded reports whether the song's audio asset is on disk.
// A song is downloaded iff its local song path is set.
func (s *Song) IsDownloaded() bool {
	return s.SongPath != nil
}

// MarshalJSON annotates the serialized row with a derived is_downloaded
// flag so API consumers don't have to infer it from song_path.
func (s *Song) MarshalJSON() ([]byte, error) {
	type plain Song
	return json.Marshal(struct {
		*plain
		Downloaded bool `json:"is_downloaded"`
	}{(*plain)(s), s.IsDownloaded()})
}

// LocalFields is the narrow projection of a song's locally-owned fields.
// The merge engine reads this instead of the full row to carry local state
// across a metadata upsert.
type LocalFields struct {
	SongPath     *string
	ImagePath    *string
	VideoPath    *string
	DownloadedAt *time.Time
	LastPlayedAt *time.Time
}

// GetLocalFields reads the locally-owned fields for a song id.
// Returns found=false (not an error) when the row doesn't exist.
func (db *DB) GetLocalFields(ctx context.Context, id string) (LocalFields, bool, error) {
	query := `
	SELECT song_path, image_path, video_path, downloaded_at, last_played_at
	FROM songs WHERE id = ?
	`

	var songPath, imagePath, videoPath, downloadedAt, lastPlayedAt sql.NullString
	err := db.conn.QueryRowContext(ctx, query, id).Scan(
		&songPath, &imagePath, &videoPath, &downloadedAt, &lastPlayedAt)
	if err == sql.ErrNoRows {
		return LocalFields{}, false, nil
	}
	if err != nil {
		return LocalFields{}, false, fmt.Errorf("failed to read local fields for %s: %w", id, err)
	}

	return LocalFields{
		SongPath:     nullToString(songPath),
		ImagePath:    nullToString(imagePath),
		VideoPath:    nullToString(videoPath),
		DownloadedAt: nullStringToTime(downloadedAt),
		LastPlayedAt: nullStringToTime(lastPlayedAt),
	}, true, nil
}

// UpsertSong inserts or updates a song on the metadata-sync path.
//
// New rows are written in full; existing rows have only the remote-owned
// field set updated. Locally-owned fields (local paths, downloaded_at,
// last_played_at) are never touched on conflict, so a metadata sync can
// never undo a download.
func (db *DB) UpsertSong(ctx context.Context, song *Song) error {
	if song.ID == "" {
		return fmt.Errorf("song id is required")
	}

	query := `
	INSERT INTO songs (
		id, user_id, title, author,
		song_path, image_path, video_path,
		original_song_path, original_image_path, original_video_path,
		duration, genre, lyrics, created_at,
		downloaded_at, last_played_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		user_id = excluded.user_id,
		title = excluded.title,
		author = excluded.author,
		original_song_path = excluded.original_song_path,
		original_image_path = excluded.original_image_path,
		original_video_path = excluded.original_video_path,
		duration = excluded.duration,
		genre = excluded.genre,
		lyrics = excluded.lyrics,
		created_at = excluded.created_at
	`

	_, err := db.conn.ExecContext(ctx, query,
		song.ID, song.UserID, song.Title, song.Author,
		stringToNull(song.SongPath), stringToNull(song.ImagePath), stringToNull(song.VideoPath),
		song.OriginalSongPath, song.OriginalImagePath, song.OriginalVideoPath,
		song.Duration, song.Genre, song.Lyrics, song.CreatedAt,
		timeToNullString(song.DownloadedAt), timeToNullString(song.LastPlayedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert song %s: %w", song.ID, err)
	}

	return nil
}

// UpsertDownloadedSong inserts or updates a song on the download path.
//
// Unlike UpsertSong this writes the locally-owned fields too; the download
// manager is the authority for local paths and downloaded_at, and it writes
// the remote-owned fields from the same payload in the same call.
func (db *DB) UpsertDownloadedSong(ctx context.Context, song *Song) error {
	if song.ID == "" {
		return fmt.Errorf("song id is required")
	}

	query := `
	INSERT INTO songs (
		id, user_id, title, author,
		song_path, image_path, video_path,
		original_song_path, original_image_path, original_video_path,
		duration, genre, lyrics, created_at,
		downloaded_at, last_played_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		user_id = excluded.user_id,
		title = excluded.title,
		author = excluded.author,
		song_path = excluded.song_path,
		image_path = excluded.image_path,
		video_path = excluded.video_path,
		original_song_path = excluded.original_song_path,
		original_image_path = excluded.original_image_path,
		original_video_path = excluded.original_video_path,
		duration = excluded.duration,
		genre = excluded.genre,
		lyrics = excluded.lyrics,
		created_at = excluded.created_at,
		downloaded_at = excluded.downloaded_at
	`

	_, err := db.conn.ExecContext(ctx, query,
		song.ID, song.UserID, song.Title, song.Author,
		stringToNull(song.SongPath), stringToNull(song.ImagePath), stringToNull(song.VideoPath),
		song.OriginalSongPath, song.OriginalImagePath, song.OriginalVideoPath,
		song.Duration, song.Genre, song.Lyrics, song.CreatedAt,
		timeToNullString(song.DownloadedAt), timeToNullString(song.LastPlayedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert downloaded song %s: %w", song.ID, err)
	}

	return nil
}

// GetSong retrieves a single song by id.
// Returns sql.ErrNoRows if the song is not found.
func (db *DB) GetSong(ctx context.Context, id string) (*Song, error) {
	row := db.conn.QueryRowContext(ctx, selectSongColumns+" FROM songs WHERE id = ?", id)
	return scanSongRow(row)
}

// ClearLocalFields resets a song to metadata-only state.
//
// Local paths and downloaded_at are set to NULL; last_played_at and all
// remote-owned metadata survive so the library can still show the track as
// "available but not downloaded". Clearing a non-existent or
// already-cleared row is a no-op.
func (db *DB) ClearLocalFields(ctx context.Context, id string) error {
	query := `
	UPDATE songs SET
		song_path = NULL,
		image_path = NULL,
		video_path = NULL,
		downloaded_at = NULL
	WHERE id = ?
	`
	if _, err := db.conn.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("failed to clear local fields for %s: %w", id, err)
	}
	return nil
}

// DeleteSong removes a song row entirely.
// Returns nil if the song doesn't exist (idempotent).
func (db *DB) DeleteSong(ctx context.Context, id string) error {
	if _, err := db.conn.ExecContext(ctx, "DELETE FROM songs WHERE id = ?", id); err != nil {
		return fmt.Errorf("failed to delete song %s: %w", id, err)
	}
	return nil
}

// TouchLastPlayed stamps a song's last_played_at with the current time.
// last_played_at is locally owned and survives metadata syncs.
func (db *DB) TouchLastPlayed(ctx context.Context, id string) error {
	query := `UPDATE songs SET last_played_at = ? WHERE id = ?`
	if _, err := db.conn.ExecContext(ctx, query, time.Now().Format(time.RFC3339), id); err != nil {
		return fmt.Errorf("failed to touch last_played_at for %s: %w", id, err)
	}
	return nil
}

// ListOfflineSongs returns all songs with a local audio asset,
// most recently downloaded first.
func (db *DB) ListOfflineSongs(ctx context.Context) ([]*Song, error) {
	query := selectSongColumns + `
	FROM songs
	WHERE song_path IS NOT NULL
	ORDER BY downloaded_at DESC
	`

	rows, err := db.conn.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list offline songs: %w", err)
	}
	defer rows.Close()

	return scanSongs(rows)
}

// GetSongCount returns the total number of song rows.
func (db *DB) GetSongCount(ctx context.Context) (int, error) {
	var count int
	if err := db.conn.QueryRowContext(ctx, "SELECT COUNT(*) FROM songs").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to get song count: %w", err)
	}
	return count, nil
}

// getSongsByIDs fetches songs for an arbitrary id set, keyed by id.
// Order is not defined here; callers that need ordering apply it themselves.
func (db *DB) getSongsByIDs(ctx context.Context, ids []string) (map[string]*Song, error) {
	if len(ids) == 0 {
		return map[string]*Song{}, nil
	}

	query := selectSongColumns + " FROM songs WHERE id IN (" + placeholders(len(ids)) + ")"

	rows, err := db.conn.QueryContext(ctx, query, idArgs(ids)...)
	if err != nil {
		return nil, fmt.Errorf("failed to query songs by ids: %w", err)
	}
	defer rows.Close()

	songs, err := scanSongs(rows)
	if err != nil {
		return nil, err
	}

	byID := make(map[string]*Song, len(songs))
	for _, s := range songs {
		byID[s.ID] = s
	}
	return byID, nil
}

const selectSongColumns = `
SELECT id, user_id, title, author,
       song_path, image_path, video_path,
       original_song_path, original_image_path, original_video_path,
       duration, genre, lyrics, created_at,
       downloaded_at, last_played_at`

// qualified variant for joins against membership tables
const selectSongColumnsQualified = `
SELECT songs.id, songs.user_id, songs.title, songs.author,
       songs.song_path, songs.image_path, songs.video_path,
       songs.original_song_path, songs.original_image_path, songs.original_video_path,
       songs.duration, songs.genre, songs.lyrics, songs.created_at,
       songs.downloaded_at, songs.last_played_at`

// rowScanner covers both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanSong(sc rowScanner) (*Song, error) {
	var song Song
	var userID, author, genre, lyrics, createdAt sql.NullString
	var origSong, origImage, origVideo sql.NullString
	var songPath, imagePath, videoPath sql.NullString
	var downloadedAt, lastPlayedAt sql.NullString

	err := sc.Scan(
		&song.ID, &userID, &song.Title, &author,
		&songPath, &imagePath, &videoPath,
		&origSong, &origImage, &origVideo,
		&song.Duration, &genre, &lyrics, &createdAt,
		&downloadedAt, &lastPlayedAt,
	)
	if err != nil {
		return nil, err
	}

	song.UserID = userID.String
	song.Author = author.String
	song.Genre = genre.String
	song.Lyrics = lyrics.String
	song.CreatedAt = createdAt.String
	song.OriginalSongPath = origSong.String
	song.OriginalImagePath = origImage.String
	song.OriginalVideoPath = origVideo.String
	song.SongPath = nullToString(songPath)
	song.ImagePath = nullToString(imagePath)
	song.VideoPath = nullToString(videoPath)
	song.DownloadedAt = nullStringToTime(downloadedAt)
	song.LastPlayedAt = nullStringToTime(lastPlayedAt)

	return &song, nil
}

func scanSongRow(row *sql.Row) (*Song, error) {
	song, err := scanSong(row)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan song: %w", err)
	}
	return song, nil
}

func scanSongs(rows *sql.Rows) ([]*Song, error) {
	var songs []*Song
	for rows.Next() {
		song, err := scanSong(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan song: %w", err)
		}
		songs = append(songs, song)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating songs: %w", err)
	}
	return songs, nil
}
