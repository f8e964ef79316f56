// Package watcher keeps the embedded store honest about files on disk.
//
// Downloads can disappear out of band: the user clears the directory, an
// external cleaner runs, a volume unmounts. The watcher observes the
// downloads tree and clears a song's local fields when its assets no
// longer exist, so the library never claims offline availability it
// cannot honor.
package watcher

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/bads1de/badwave-desktop-sub000/internal/store"
)

// Config holds configuration for the downloads watcher.
type Config struct {
	// DebounceInterval is how long to wait before reconciling a changed
	// song. This batches rapid file events together.
	DebounceInterval time.Duration

	// OnCleared, if set, is called after a song's local fields were
	// cleared because its files went missing.
	OnCleared func(songID string)

	// Logger for watcher activity
	Logger *log.Logger
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		DebounceInterval: 500 * time.Millisecond,
		Logger:           log.New(os.Stderr, "[watcher] ", log.LstdFlags),
	}
}

// Watcher observes the downloads directory tree.
type Watcher struct {
	store  *store.DB
	root   string
	config *Config

	watcher *fsnotify.Watcher

	changeQueue   map[string]time.Time // song id -> last event
	changeQueueMu sync.Mutex

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a watcher over the downloads root (the directory holding the
// audio/, images/ and video/ subdirectories).
func New(st *store.DB, root string, config *Config) (*Watcher, error) {
	if st == nil {
		return nil, fmt.Errorf("store cannot be nil")
	}
	if root == "" {
		return nil, fmt.Errorf("root cannot be empty")
	}
	if config == nil {
		config = DefaultConfig()
	}
	if config.Logger == nil {
		config.Logger = log.New(os.Stderr, "[watcher] ", log.LstdFlags)
	}
	if config.DebounceInterval <= 0 {
		config.DebounceInterval = 500 * time.Millisecond
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Watcher{
		store:       st,
		root:        root,
		config:      config,
		watcher:     fw,
		changeQueue: make(map[string]time.Time),
		ctx:         ctx,
		cancel:      cancel,
	}, nil
}

// Start begins watching. It reconciles the store against disk once, then
// processes file events until Stop is called.
func (w *Watcher) Start() error {
	if _, err := w.Reconcile(w.ctx); err != nil {
		return fmt.Errorf("initial reconcile failed: %w", err)
	}

	for _, sub := range []string{"audio", "images", "video"} {
		dir := filepath.Join(w.root, sub)
		if err := w.watcher.Add(dir); err != nil {
			return fmt.Errorf("failed to watch %s: %w", dir, err)
		}
	}

	w.config.Logger.Printf("Watching %s", w.root)

	w.wg.Add(2)
	go w.watchFileEvents()
	go w.processChangeQueue()
	return nil
}

// Stop shuts the watcher down and waits for its goroutines.
func (w *Watcher) Stop() error {
	w.cancel()
	if err := w.watcher.Close(); err != nil {
		w.config.Logger.Printf("Error closing watcher: %v", err)
	}
	w.wg.Wait()
	return nil
}

// Reconcile scans every song the store believes is downloaded and clears
// the ones whose audio file no longer exists. Returns the number cleared.
func (w *Watcher) Reconcile(ctx context.Context) (int, error) {
	songs, err := w.store.ListOfflineSongs(ctx)
	if err != nil {
		return 0, err
	}

	cleared := 0
	for _, song := range songs {
		if w.assetsIntact(song) {
			continue
		}
		if err := w.clear(ctx, song); err != nil {
			return cleared, err
		}
		cleared++
	}

	if cleared > 0 {
		w.config.Logger.Printf("Reconciled %d stale downloads", cleared)
	}
	return cleared, nil
}

// watchFileEvents queues song ids for affected files.
func (w *Watcher) watchFileEvents() {
	defer w.wg.Done()

	for {
		select {
		case <-w.ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			// Only removals can invalidate a download
			if !event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
				continue
			}
			id := songIDFromPath(event.Name)
			if id == "" {
				continue
			}
			w.changeQueueMu.Lock()
			w.changeQueue[id] = time.Now()
			w.changeQueueMu.Unlock()

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.config.Logger.Printf("Watcher error: %v", err)
		}
	}
}

// processChangeQueue periodically drains debounced song ids and reconciles
// them individually.
func (w *Watcher) processChangeQueue() {
	defer w.wg.Done()

	ticker := time.NewTicker(w.config.DebounceInterval / 2)
	defer ticker.Stop()

	for {
		select {
		case <-w.ctx.Done():
			return
		case <-ticker.C:
			w.drainQueue()
		}
	}
}

func (w *Watcher) drainQueue() {
	now := time.Now()

	w.changeQueueMu.Lock()
	var due []string
	for id, ts := range w.changeQueue {
		if now.Sub(ts) >= w.config.DebounceInterval {
			due = append(due, id)
			delete(w.changeQueue, id)
		}
	}
	w.changeQueueMu.Unlock()

	for _, id := range due {
		if err := w.reconcileSong(w.ctx, id); err != nil {
			w.config.Logger.Printf("Failed to reconcile song %s: %v", id, err)
		}
	}
}

// reconcileSong checks one song's assets and clears its local fields when
// any recorded file is gone.
func (w *Watcher) reconcileSong(ctx context.Context, id string) error {
	song, err := w.store.GetSong(ctx, id)
	if err != nil {
		// Row may be gone entirely; nothing to clear
		return nil
	}
	if !song.IsDownloaded() || w.assetsIntact(song) {
		return nil
	}
	return w.clear(ctx, song)
}

// clear drops the song's remaining files and its local fields.
func (w *Watcher) clear(ctx context.Context, song *store.Song) error {
	for _, p := range []*string{song.SongPath, song.ImagePath, song.VideoPath} {
		if p == nil {
			continue
		}
		if err := os.Remove(*p); err != nil && !os.IsNotExist(err) {
			w.config.Logger.Printf("WARNING: failed to remove %s: %v", *p, err)
		}
	}

	if err := w.store.ClearLocalFields(ctx, song.ID); err != nil {
		return err
	}

	w.config.Logger.Printf("Cleared stale download for song %s", song.ID)
	if w.config.OnCleared != nil {
		w.config.OnCleared(song.ID)
	}
	return nil
}

// assetsIntact reports whether every recorded local file still exists.
func (w *Watcher) assetsIntact(song *store.Song) bool {
	for _, p := range []*string{song.SongPath, song.ImagePath, song.VideoPath} {
		if p == nil {
			continue
		}
		if _, err := os.Stat(*p); err != nil {
			return false
		}
	}
	return true
}

// songIDFromPath maps an asset path back to its song id. Assets are named
// <id>.<ext>; partial download temp files are ignored.
func songIDFromPath(p string) string {
	base := filepath.Base(p)
	if strings.HasSuffix(base, ".part") {
		return ""
	}
	ext := filepath.Ext(base)
	return strings.TrimSuffix(base, ext)
}
