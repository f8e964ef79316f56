// Package download manages offline copies of song assets.
//
// A download is all-or-nothing: the audio, cover image and video (when the
// song has one) are fetched together, and the embedded store only learns
// about the download after every asset landed on disk. A partial failure
// cleans up whatever was written and leaves the song in its previous
// state.
package download

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/dhowden/tag"

	"github.com/bads1de/badwave-desktop-sub000/internal/schema"
	"github.com/bads1de/badwave-desktop-sub000/internal/store"
)

// Asset kind subdirectories under <dataDir>/downloads.
const (
	audioDir = "audio"
	imageDir = "images"
	videoDir = "video"
)

// Default file extensions when the remote URL carries none.
const (
	defaultAudioExt = ".mp3"
	defaultImageExt = ".jpg"
	defaultVideoExt = ".mp4"
)

// Config holds configuration for the download manager.
type Config struct {
	// DataDir is the application data root. Assets land under
	// <DataDir>/downloads/{audio,images,video}/<id>.<ext>.
	DataDir string

	// Client is the HTTP client used for asset fetches. Route it through
	// the connectivity transport so simulated-offline blocks downloads.
	Client *http.Client

	// Logger for download activity
	Logger *log.Logger
}

// Manager downloads song assets and records them in the embedded store.
type Manager struct {
	store  *store.DB
	client *http.Client
	root   string
	logger *log.Logger
}

// Status describes a song's offline state.
type Status struct {
	SongID       string     `json:"song_id"`
	Downloaded   bool       `json:"downloaded"`
	SongPath     string     `json:"song_path,omitempty"`
	ImagePath    string     `json:"image_path,omitempty"`
	VideoPath    string     `json:"video_path,omitempty"`
	DownloadedAt *time.Time `json:"downloaded_at,omitempty"`
}

// New creates a download manager writing under config.DataDir.
func New(st *store.DB, config *Config) (*Manager, error) {
	if st == nil {
		return nil, fmt.Errorf("store cannot be nil")
	}
	if config == nil || config.DataDir == "" {
		return nil, fmt.Errorf("data dir cannot be empty")
	}

	client := config.Client
	if client == nil {
		client = &http.Client{Timeout: 2 * time.Minute}
	}
	logger := config.Logger
	if logger == nil {
		logger = log.New(os.Stderr, "[download] ", log.LstdFlags)
	}

	root := filepath.Join(config.DataDir, "downloads")
	for _, sub := range []string{audioDir, imageDir, videoDir} {
		if err := os.MkdirAll(filepath.Join(root, sub), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create downloads directory: %w", err)
		}
	}

	return &Manager{store: st, client: client, root: root, logger: logger}, nil
}

// Root returns the downloads directory root.
func (m *Manager) Root() string {
	return m.root
}

// asset is one fetch unit within a download.
type asset struct {
	kind string // subdirectory
	url  string
	ext  string // fallback extension

	path string // destination, set before fetching
	err  error
}

// Download fetches every asset of a remote song and records the offline
// copy. The song's remote metadata is upserted together with the local
// paths in a single write, so a half-finished download is never visible.
func (m *Manager) Download(ctx context.Context, remote *schema.RemoteSong) (*store.Song, error) {
	remote.SetDefaults()
	if err := remote.Validate(); err != nil {
		return nil, fmt.Errorf("invalid song: %w", err)
	}
	id := remote.SongID()

	if remote.SongPath == "" {
		return nil, fmt.Errorf("song %s has no audio url", id)
	}

	assets := []*asset{
		{kind: audioDir, url: remote.SongPath, ext: defaultAudioExt},
	}
	if remote.ImagePath != "" {
		assets = append(assets, &asset{kind: imageDir, url: remote.ImagePath, ext: defaultImageExt})
	}
	if remote.VideoPath != "" {
		assets = append(assets, &asset{kind: videoDir, url: remote.VideoPath, ext: defaultVideoExt})
	}

	for _, a := range assets {
		a.path = filepath.Join(m.root, a.kind, id+extFromURL(a.url, a.ext))
	}

	m.logger.Printf("Downloading song %s (%d assets)", id, len(assets))

	var wg sync.WaitGroup
	for _, a := range assets {
		wg.Add(1)
		go func(a *asset) {
			defer wg.Done()
			a.err = m.fetch(ctx, a.url, a.path)
		}(a)
	}
	wg.Wait()

	for _, a := range assets {
		if a.err != nil {
			m.cleanup(assets)
			return nil, fmt.Errorf("failed to download %s asset: %w", a.kind, a.err)
		}
	}

	song := m.buildRecord(remote, assets)
	if err := m.store.UpsertDownloadedSong(ctx, song); err != nil {
		m.cleanup(assets)
		return nil, fmt.Errorf("failed to record download: %w", err)
	}

	m.logger.Printf("Downloaded song %s", id)
	return song, nil
}

// fetch streams one URL to path via a temp file, renaming only on success.
func (m *Manager) fetch(ctx context.Context, rawURL, dest string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := m.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	tmp := dest + ".part"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}

	if _, err := io.Copy(f, resp.Body); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("failed to write file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to close file: %w", err)
	}

	return os.Rename(tmp, dest)
}

// cleanup removes every file a failed download may have written.
func (m *Manager) cleanup(assets []*asset) {
	for _, a := range assets {
		for _, p := range []string{a.path, a.path + ".part"} {
			if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
				m.logger.Printf("WARNING: failed to remove %s: %v", p, err)
			}
		}
	}
}

// buildRecord assembles the downloaded-song row: remote metadata plus the
// local paths, with blank metadata backfilled from the audio file's tags.
func (m *Manager) buildRecord(remote *schema.RemoteSong, assets []*asset) *store.Song {
	now := time.Now().UTC()
	song := &store.Song{
		ID:                remote.SongID(),
		UserID:            remote.OwnerID(),
		Title:             remote.Title,
		Author:            remote.Author,
		OriginalSongPath:  remote.SongPath,
		OriginalImagePath: remote.ImagePath,
		OriginalVideoPath: remote.VideoPath,
		Duration:          remote.Duration,
		Genre:             remote.Genre,
		Lyrics:            remote.Lyrics,
		CreatedAt:         remote.CreatedAt,
		DownloadedAt:      &now,
	}

	for _, a := range assets {
		p := a.path
		switch a.kind {
		case audioDir:
			song.SongPath = &p
		case imageDir:
			song.ImagePath = &p
		case videoDir:
			song.VideoPath = &p
		}
	}

	if song.SongPath != nil {
		m.probeTags(song)
	}
	return song
}

// probeTags fills blank metadata from the downloaded audio file's embedded
// tags. Probe failures are logged and ignored; remote metadata wins when
// present.
func (m *Manager) probeTags(song *store.Song) {
	f, err := os.Open(*song.SongPath)
	if err != nil {
		m.logger.Printf("WARNING: tag probe open failed for %s: %v", song.ID, err)
		return
	}
	defer f.Close()

	meta, err := tag.ReadFrom(f)
	if err != nil {
		return
	}
	if song.Title == "" {
		song.Title = meta.Title()
	}
	if song.Author == "" || song.Author == "Unknown" {
		if artist := meta.Artist(); artist != "" {
			song.Author = artist
		}
	}
	if song.Genre == "" {
		song.Genre = meta.Genre()
	}
}

// Remove deletes a song's offline copy. Removal is idempotent: missing
// files and unknown song ids are not errors, and the store row's local
// fields are cleared regardless. With deleteRow set the row itself is
// removed instead.
func (m *Manager) Remove(ctx context.Context, id string, deleteRow bool) error {
	song, err := m.store.GetSong(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		return err
	}

	for _, p := range []*string{song.SongPath, song.ImagePath, song.VideoPath} {
		if p == nil {
			continue
		}
		if err := os.Remove(*p); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to remove %s: %w", *p, err)
		}
	}

	if deleteRow {
		return m.store.DeleteSong(ctx, id)
	}
	return m.store.ClearLocalFields(ctx, id)
}

// CheckStatus reports a song's offline state, verifying the recorded audio
// file still exists on disk. Unknown song ids report not-downloaded rather
// than an error.
func (m *Manager) CheckStatus(ctx context.Context, id string) (*Status, error) {
	song, err := m.store.GetSong(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return &Status{SongID: id}, nil
	}
	if err != nil {
		return nil, err
	}

	st := &Status{SongID: id, DownloadedAt: song.DownloadedAt}
	if song.SongPath != nil {
		st.SongPath = *song.SongPath
	}
	if song.ImagePath != nil {
		st.ImagePath = *song.ImagePath
	}
	if song.VideoPath != nil {
		st.VideoPath = *song.VideoPath
	}

	st.Downloaded = song.IsDownloaded()
	if st.Downloaded {
		if _, err := os.Stat(st.SongPath); err != nil {
			st.Downloaded = false
		}
	}
	return st, nil
}

// Usage reports the total bytes under the downloads directory.
func (m *Manager) Usage() (int64, error) {
	var total int64
	err := filepath.WalkDir(m.root, func(p string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		total += info.Size()
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to measure downloads: %w", err)
	}
	return total, nil
}

// extFromURL derives the destination extension from the URL path, falling
// back when the URL carries none.
func extFromURL(rawURL, fallback string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fallback
	}
	ext := path.Ext(u.Path)
	if ext == "" || strings.ContainsAny(ext, "%?") || len(ext) > 8 {
		return fallback
	}
	return ext
}
