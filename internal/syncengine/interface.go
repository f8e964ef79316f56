// Package syncengine reconciles remote-store metadata into the embedded
// store.
//
// The engine owns the merge discipline: remote-owned fields always come
// from the incoming payload, locally-owned fields (local paths,
// downloaded_at, last_played_at) are carried over from the existing row and
// never written on the metadata path. Per-domain orchestrators wrap the
// engine with the fetch → upsert → section → invalidate flow.
package syncengine

import (
	"context"

	"github.com/bads1de/badwave-desktop-sub000/internal/store"
)

// Store is the slice of the embedded store the engine writes through.
//
// It is an interface so the merge step can be unit-tested against a fake
// without a real database. *store.DB satisfies it.
type Store interface {
	// GetLocalFields reads the locally-owned projection for a song id.
	// found=false means no prior row exists.
	GetLocalFields(ctx context.Context, id string) (store.LocalFields, bool, error)

	// UpsertSong writes a song on the metadata path: insert if absent,
	// update remote-owned fields only if present.
	UpsertSong(ctx context.Context, song *store.Song) error

	// UpsertPlaylist writes a playlist, preserving its local image path.
	UpsertPlaylist(ctx context.Context, p *store.Playlist) error

	// InsertPlaylistSong records a membership row, ignoring duplicates.
	InsertPlaylistSong(ctx context.Context, link *store.PlaylistSong) error

	// ReplacePlaylistSongs atomically replaces a playlist's membership set.
	ReplacePlaylistSongs(ctx context.Context, playlistID string, links []*store.PlaylistSong) error

	// InsertLikedSong records a like, ignoring duplicates.
	InsertLikedSong(ctx context.Context, like *store.LikedSong) error

	// UpsertSpotlight writes a spotlight entry.
	UpsertSpotlight(ctx context.Context, s *store.Spotlight) error

	// SetSectionIDs atomically replaces the ordered id list for a key.
	SetSectionIDs(ctx context.Context, key string, ids []string) error
}

// Invalidator receives UI read-cache invalidation tags after successful
// syncs and downloads. The gateway's websocket broadcaster implements it;
// tests use a recording fake.
type Invalidator interface {
	Invalidate(tag string)
}

// InvalidatorFunc adapts a function to the Invalidator interface.
type InvalidatorFunc func(tag string)

// Invalidate implements Invalidator.
func (f InvalidatorFunc) Invalidate(tag string) { f(tag) }
