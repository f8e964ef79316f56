package watcher

import (
	"context"
	"io"
	"log"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bads1de/badwave-desktop-sub000/internal/store"
)

func testLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

// seedDownload writes fake asset files and a matching downloaded row.
func seedDownload(t *testing.T, db *store.DB, root, id string) *store.Song {
	t.Helper()

	audio := filepath.Join(root, "audio", id+".mp3")
	image := filepath.Join(root, "images", id+".jpg")
	for _, p := range []string{audio, image} {
		if err := os.WriteFile(p, []byte("data"), 0o644); err != nil {
			t.Fatalf("failed to write asset: %v", err)
		}
	}

	now := time.Now().UTC()
	song := &store.Song{
		ID:           id,
		UserID:       "u1",
		Title:        "Track " + id,
		Author:       "Artist",
		SongPath:     &audio,
		ImagePath:    &image,
		DownloadedAt: &now,
	}
	if err := db.UpsertDownloadedSong(context.Background(), song); err != nil {
		t.Fatalf("failed to seed download: %v", err)
	}
	return song
}

func setupWatcher(t *testing.T) (*Watcher, *store.DB, string) {
	t.Helper()

	dir := t.TempDir()
	root := filepath.Join(dir, "downloads")
	for _, sub := range []string{"audio", "images", "video"} {
		if err := os.MkdirAll(filepath.Join(root, sub), 0o755); err != nil {
			t.Fatalf("failed to create dir: %v", err)
		}
	}

	db, err := store.Open(filepath.Join(dir, "test.db"), testLogger())
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := db.InitSchema(); err != nil {
		t.Fatalf("failed to init schema: %v", err)
	}

	cfg := DefaultConfig()
	cfg.DebounceInterval = 50 * time.Millisecond
	cfg.Logger = testLogger()
	w, err := New(db, root, cfg)
	if err != nil {
		t.Fatalf("failed to create watcher: %v", err)
	}
	return w, db, root
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

func TestReconcileClearsMissingDownloads(t *testing.T) {
	w, db, root := setupWatcher(t)
	ctx := context.Background()

	intact := seedDownload(t, db, root, "keep")
	stale := seedDownload(t, db, root, "stale")
	os.Remove(*stale.SongPath)

	cleared, err := w.Reconcile(ctx)
	if err != nil {
		t.Fatalf("Reconcile failed: %v", err)
	}
	if cleared != 1 {
		t.Errorf("expected 1 cleared, got %d", cleared)
	}

	got, err := db.GetSong(ctx, "stale")
	if err != nil {
		t.Fatalf("GetSong failed: %v", err)
	}
	if got.IsDownloaded() {
		t.Error("stale song still marked downloaded")
	}
	// The orphaned image is removed too
	if _, err := os.Stat(*stale.ImagePath); !os.IsNotExist(err) {
		t.Error("orphaned image file not removed")
	}

	got, err = db.GetSong(ctx, "keep")
	if err != nil {
		t.Fatalf("GetSong failed: %v", err)
	}
	if !got.IsDownloaded() {
		t.Error("intact song must stay downloaded")
	}
	_ = intact
}

func TestWatcherClearsOnOutOfBandDelete(t *testing.T) {
	w, db, root := setupWatcher(t)
	ctx := context.Background()

	var clearedID string
	done := make(chan struct{})
	w.config.OnCleared = func(songID string) {
		clearedID = songID
		close(done)
	}

	song := seedDownload(t, db, root, "gone")

	if err := w.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer w.Stop()

	if err := os.Remove(*song.SongPath); err != nil {
		t.Fatalf("failed to remove audio: %v", err)
	}

	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("watcher never cleared the song")
	}
	if clearedID != "gone" {
		t.Errorf("cleared id = %q, want %q", clearedID, "gone")
	}

	got, err := db.GetSong(ctx, "gone")
	if err != nil {
		t.Fatalf("GetSong failed: %v", err)
	}
	if got.IsDownloaded() {
		t.Error("song still marked downloaded")
	}
	if got.Title != "Track gone" {
		t.Error("remote metadata must survive")
	}
}

func TestWatcherIgnoresPartFiles(t *testing.T) {
	if got := songIDFromPath("/data/downloads/audio/s1.mp3.part"); got != "" {
		t.Errorf("expected empty id for part file, got %q", got)
	}
	if got := songIDFromPath("/data/downloads/audio/s1.mp3"); got != "s1" {
		t.Errorf("expected s1, got %q", got)
	}
}

func TestWatcherDebouncesRapidEvents(t *testing.T) {
	w, db, root := setupWatcher(t)

	var cleared atomic.Int32
	w.config.OnCleared = func(string) { cleared.Add(1) }

	song := seedDownload(t, db, root, "burst")

	if err := w.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer w.Stop()

	// Both asset removals land within one debounce window
	os.Remove(*song.SongPath)
	os.Remove(*song.ImagePath)

	waitFor(t, func() bool { return cleared.Load() >= 1 })
	time.Sleep(200 * time.Millisecond)
	if got := cleared.Load(); got != 1 {
		t.Errorf("expected a single clear, got %d", got)
	}
}
