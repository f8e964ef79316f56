package syncengine

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/bads1de/badwave-desktop-sub000/internal/schema"
	"github.com/bads1de/badwave-desktop-sub000/internal/store"
)

// Engine writes remote-sourced records into the embedded store while
// preserving locally-owned state.
//
// All Engine writes must run on a single logical writer per id-space: the
// read-projection/merge/write sequence for one song id must never
// interleave with another upsert for the same id.
type Engine struct {
	store  Store
	logger *log.Logger
}

// New creates an Engine writing through the given store.
// If logger is nil, a default logger writing to stderr is used.
func New(st Store, logger *log.Logger) *Engine {
	if logger == nil {
		logger = log.New(os.Stderr, "[syncengine] ", log.LstdFlags)
	}
	return &Engine{store: st, logger: logger}
}

// UpsertSongs reconciles a batch of remote songs into the embedded store
// and returns the number written.
//
// Each record is validated, defaulted and id-normalized, then merged with
// the existing row's locally-owned projection. Running this twice with
// identical input is idempotent. Invalid records are skipped with a
// warning; they don't fail the batch.
func (e *Engine) UpsertSongs(ctx context.Context, songs []*schema.RemoteSong) (int, error) {
	count := 0
	for _, remote := range songs {
		remote.SetDefaults()
		if err := remote.Validate(); err != nil {
			e.logger.Printf("WARNING: skipping invalid song: %v", err)
			continue
		}

		local, _, err := e.store.GetLocalFields(ctx, remote.SongID())
		if err != nil {
			return count, fmt.Errorf("failed to read local fields: %w", err)
		}

		if err := e.store.UpsertSong(ctx, mergeSong(remote, local)); err != nil {
			return count, fmt.Errorf("failed to upsert song: %w", err)
		}
		count++
	}

	return count, nil
}

// UpsertPlaylists reconciles a batch of remote playlists.
func (e *Engine) UpsertPlaylists(ctx context.Context, playlists []*schema.RemotePlaylist) (int, error) {
	count := 0
	for _, remote := range playlists {
		if err := remote.Validate(); err != nil {
			e.logger.Printf("WARNING: skipping invalid playlist: %v", err)
			continue
		}

		if err := e.store.UpsertPlaylist(ctx, mergePlaylist(remote)); err != nil {
			return count, fmt.Errorf("failed to upsert playlist: %w", err)
		}
		count++
	}

	return count, nil
}

// UpsertPlaylistSongs reconciles a playlist's membership. The song payloads
// are upserted first so every link resolves, then the membership set is
// replaced. Duplicate links are a no-op.
func (e *Engine) UpsertPlaylistSongs(ctx context.Context, playlistID string, songs []*schema.RemoteSong) (int, error) {
	playlistID = schema.NormalizeID(playlistID)
	if playlistID == "" {
		return 0, fmt.Errorf("playlist id is required")
	}

	count, err := e.UpsertSongs(ctx, songs)
	if err != nil {
		return count, err
	}

	links := make([]*store.PlaylistSong, 0, len(songs))
	for _, s := range songs {
		id := s.SongID()
		if id == "" {
			continue
		}
		links = append(links, &store.PlaylistSong{
			ID:         schema.LinkID(playlistID, id),
			PlaylistID: playlistID,
			SongID:     id,
			AddedAt:    s.CreatedAt,
		})
	}

	if err := e.store.ReplacePlaylistSongs(ctx, playlistID, links); err != nil {
		return count, err
	}

	return count, nil
}

// UpsertLikedSongs reconciles a user's liked songs: payloads first, then
// insert-or-ignore like rows.
func (e *Engine) UpsertLikedSongs(ctx context.Context, userID string, songs []*schema.RemoteSong) (int, error) {
	userID = schema.NormalizeID(userID)
	if userID == "" {
		return 0, fmt.Errorf("user id is required")
	}

	count, err := e.UpsertSongs(ctx, songs)
	if err != nil {
		return count, err
	}

	for _, s := range songs {
		id := s.SongID()
		if id == "" {
			continue
		}
		like := &store.LikedSong{UserID: userID, SongID: id, LikedAt: s.CreatedAt}
		if err := e.store.InsertLikedSong(ctx, like); err != nil {
			return count, err
		}
	}

	return count, nil
}

// UpsertSpotlights reconciles curated spotlight entries.
func (e *Engine) UpsertSpotlights(ctx context.Context, spotlights []*schema.RemoteSpotlight) (int, error) {
	count := 0
	for _, remote := range spotlights {
		if remote.SpotlightID() == "" {
			e.logger.Printf("WARNING: skipping spotlight without id")
			continue
		}
		if err := e.store.UpsertSpotlight(ctx, mergeSpotlight(remote)); err != nil {
			return count, fmt.Errorf("failed to upsert spotlight: %w", err)
		}
		count++
	}
	return count, nil
}

// SetSongSection upserts the song payloads, then atomically replaces the
// ordered id list for key. The payload write happens first so the section's
// referenced ids are guaranteed resolvable by the time the order lands.
func (e *Engine) SetSongSection(ctx context.Context, key string, songs []*schema.RemoteSong) (int, error) {
	count, err := e.UpsertSongs(ctx, songs)
	if err != nil {
		return count, err
	}

	ids := make([]string, 0, len(songs))
	for _, s := range songs {
		if id := s.SongID(); id != "" {
			ids = append(ids, id)
		}
	}

	if err := e.store.SetSectionIDs(ctx, key, ids); err != nil {
		return count, err
	}
	return count, nil
}

// SetSpotlightSection upserts spotlight payloads, then records the order.
func (e *Engine) SetSpotlightSection(ctx context.Context, key string, spotlights []*schema.RemoteSpotlight) (int, error) {
	count, err := e.UpsertSpotlights(ctx, spotlights)
	if err != nil {
		return count, err
	}

	ids := make([]string, 0, len(spotlights))
	for _, s := range spotlights {
		if id := s.SpotlightID(); id != "" {
			ids = append(ids, id)
		}
	}

	if err := e.store.SetSectionIDs(ctx, key, ids); err != nil {
		return count, err
	}
	return count, nil
}

// SetPlaylistSection upserts playlist payloads, then records the order.
func (e *Engine) SetPlaylistSection(ctx context.Context, key string, playlists []*schema.RemotePlaylist) (int, error) {
	count, err := e.UpsertPlaylists(ctx, playlists)
	if err != nil {
		return count, err
	}

	ids := make([]string, 0, len(playlists))
	for _, p := range playlists {
		if id := p.PlaylistID(); id != "" {
			ids = append(ids, id)
		}
	}

	if err := e.store.SetSectionIDs(ctx, key, ids); err != nil {
		return count, err
	}
	return count, nil
}
