package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

// setupTestDB creates a temporary database for testing.
func setupTestDB(t *testing.T) *DB {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")
	db, err := Open(dbPath, nil)
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := db.InitSchema(); err != nil {
		t.Fatalf("failed to initialize schema: %v", err)
	}

	return db
}

func testSong(id, title string) *Song {
	return &Song{
		ID:                id,
		UserID:            "u1",
		Title:             title,
		Author:            "Author",
		OriginalSongPath:  "https://cdn.example.com/audio/" + id + ".mp3",
		OriginalImagePath: "https://cdn.example.com/images/" + id + ".jpg",
		Duration:          180,
		Genre:             "electronic",
		CreatedAt:         "2024-01-15T10:00:00Z",
	}
}

func TestUpsertSongIdempotent(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	song := testSong("1", "First")
	if err := db.UpsertSong(ctx, song); err != nil {
		t.Fatalf("first upsert failed: %v", err)
	}

	first, err := db.GetSong(ctx, "1")
	if err != nil {
		t.Fatalf("GetSong failed: %v", err)
	}

	if err := db.UpsertSong(ctx, song); err != nil {
		t.Fatalf("second upsert failed: %v", err)
	}

	second, err := db.GetSong(ctx, "1")
	if err != nil {
		t.Fatalf("GetSong after second upsert failed: %v", err)
	}

	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("second upsert changed the row (-first +second):\n%s", diff)
	}

	count, err := db.GetSongCount(ctx)
	if err != nil {
		t.Fatalf("GetSongCount failed: %v", err)
	}
	if count != 1 {
		t.Errorf("expected 1 song, got %d", count)
	}
}

func TestUpsertSongPreservesLocalFields(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	// Download path writes local fields
	downloadedAt := time.Now().Truncate(time.Second)
	localPath := "/data/downloads/audio/1.mp3"
	song := testSong("1", "Original Title")
	song.SongPath = &localPath
	song.DownloadedAt = &downloadedAt
	if err := db.UpsertDownloadedSong(ctx, song); err != nil {
		t.Fatalf("UpsertDownloadedSong failed: %v", err)
	}

	// Metadata sync arrives with new remote-owned values
	update := testSong("1", "New Title")
	update.Author = "New Author"
	if err := db.UpsertSong(ctx, update); err != nil {
		t.Fatalf("metadata upsert failed: %v", err)
	}

	got, err := db.GetSong(ctx, "1")
	if err != nil {
		t.Fatalf("GetSong failed: %v", err)
	}

	if got.Title != "New Title" || got.Author != "New Author" {
		t.Errorf("remote-owned fields not updated: title=%q author=%q", got.Title, got.Author)
	}
	if got.SongPath == nil || *got.SongPath != localPath {
		t.Errorf("local song path not preserved: %v", got.SongPath)
	}
	if got.DownloadedAt == nil || !got.DownloadedAt.Equal(downloadedAt) {
		t.Errorf("downloaded_at not preserved: %v", got.DownloadedAt)
	}
	if !got.IsDownloaded() {
		t.Error("song should still report downloaded")
	}
}

func TestUpsertSongPreservesLastPlayed(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	if err := db.UpsertSong(ctx, testSong("1", "Track")); err != nil {
		t.Fatalf("upsert failed: %v", err)
	}
	if err := db.TouchLastPlayed(ctx, "1"); err != nil {
		t.Fatalf("TouchLastPlayed failed: %v", err)
	}

	if err := db.UpsertSong(ctx, testSong("1", "Track v2")); err != nil {
		t.Fatalf("second upsert failed: %v", err)
	}

	got, err := db.GetSong(ctx, "1")
	if err != nil {
		t.Fatalf("GetSong failed: %v", err)
	}
	if got.LastPlayedAt == nil {
		t.Error("last_played_at lost across metadata sync")
	}
}

func TestGetLocalFields(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	_, found, err := db.GetLocalFields(ctx, "missing")
	if err != nil {
		t.Fatalf("GetLocalFields failed: %v", err)
	}
	if found {
		t.Error("expected found=false for missing row")
	}

	downloadedAt := time.Now().Truncate(time.Second)
	localPath := "/data/downloads/audio/1.mp3"
	song := testSong("1", "Track")
	song.SongPath = &localPath
	song.DownloadedAt = &downloadedAt
	if err := db.UpsertDownloadedSong(ctx, song); err != nil {
		t.Fatalf("UpsertDownloadedSong failed: %v", err)
	}

	fields, found, err := db.GetLocalFields(ctx, "1")
	if err != nil {
		t.Fatalf("GetLocalFields failed: %v", err)
	}
	if !found {
		t.Fatal("expected found=true")
	}
	if fields.SongPath == nil || *fields.SongPath != localPath {
		t.Errorf("unexpected song path: %v", fields.SongPath)
	}
	if fields.DownloadedAt == nil || !fields.DownloadedAt.Equal(downloadedAt) {
		t.Errorf("unexpected downloaded_at: %v", fields.DownloadedAt)
	}
}

func TestClearLocalFields(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	localPath := "/data/downloads/audio/1.mp3"
	now := time.Now()
	song := testSong("1", "Track")
	song.SongPath = &localPath
	song.DownloadedAt = &now
	if err := db.UpsertDownloadedSong(ctx, song); err != nil {
		t.Fatalf("UpsertDownloadedSong failed: %v", err)
	}

	if err := db.ClearLocalFields(ctx, "1"); err != nil {
		t.Fatalf("ClearLocalFields failed: %v", err)
	}

	got, err := db.GetSong(ctx, "1")
	if err != nil {
		t.Fatalf("GetSong failed: %v", err)
	}
	if got.IsDownloaded() {
		t.Error("song still reports downloaded after clear")
	}
	if got.DownloadedAt != nil {
		t.Error("downloaded_at not cleared")
	}
	if got.Title != "Track" {
		t.Error("metadata lost on clear")
	}

	// Clearing again (or a missing id) is a no-op
	if err := db.ClearLocalFields(ctx, "1"); err != nil {
		t.Errorf("repeat clear failed: %v", err)
	}
	if err := db.ClearLocalFields(ctx, "missing"); err != nil {
		t.Errorf("clear of missing row failed: %v", err)
	}
}

func TestListOfflineSongs(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	if err := db.UpsertSong(ctx, testSong("1", "Metadata Only")); err != nil {
		t.Fatalf("upsert failed: %v", err)
	}

	localPath := "/data/downloads/audio/2.mp3"
	now := time.Now()
	downloaded := testSong("2", "Downloaded")
	downloaded.SongPath = &localPath
	downloaded.DownloadedAt = &now
	if err := db.UpsertDownloadedSong(ctx, downloaded); err != nil {
		t.Fatalf("UpsertDownloadedSong failed: %v", err)
	}

	offline, err := db.ListOfflineSongs(ctx)
	if err != nil {
		t.Fatalf("ListOfflineSongs failed: %v", err)
	}
	if len(offline) != 1 {
		t.Fatalf("expected 1 offline song, got %d", len(offline))
	}
	if offline[0].ID != "2" {
		t.Errorf("expected song 2, got %s", offline[0].ID)
	}
}
