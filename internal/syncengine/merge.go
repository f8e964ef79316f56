package syncengine

import (
	"github.com/bads1de/badwave-desktop-sub000/internal/schema"
	"github.com/bads1de/badwave-desktop-sub000/internal/store"
)

// mergeSong builds the full embedded-store record for an incoming remote
// song: remote-owned fields from the payload, locally-owned fields carried
// over unchanged from the existing row (zero values when no row existed).
//
// Pure function: the read-projection / merge / write phases are kept
// separate so this step is testable without a database.
func mergeSong(remote *schema.RemoteSong, local store.LocalFields) *store.Song {
	return &store.Song{
		ID:     remote.SongID(),
		UserID: remote.OwnerID(),
		Title:  remote.Title,
		Author: remote.Author,

		SongPath:  local.SongPath,
		ImagePath: local.ImagePath,
		VideoPath: local.VideoPath,

		OriginalSongPath:  remote.SongPath,
		OriginalImagePath: remote.ImagePath,
		OriginalVideoPath: remote.VideoPath,

		Duration:  remote.Duration,
		Genre:     remote.Genre,
		Lyrics:    remote.Lyrics,
		CreatedAt: remote.CreatedAt,

		DownloadedAt: local.DownloadedAt,
		LastPlayedAt: local.LastPlayedAt,
	}
}

// mergePlaylist builds the embedded-store playlist record. Playlists have a
// single locally-owned field, the downloaded cover path, carried by the
// store's upsert itself, so the merge is a plain mapping.
func mergePlaylist(remote *schema.RemotePlaylist) *store.Playlist {
	return &store.Playlist{
		ID:                remote.PlaylistID(),
		UserID:            remote.OwnerID(),
		Title:             remote.Title,
		OriginalImagePath: remote.ImagePath,
		IsPublic:          remote.IsPublic,
		CreatedAt:         remote.CreatedAt,
	}
}

// mergeSpotlight maps a remote spotlight entry. All fields are remote-owned.
func mergeSpotlight(remote *schema.RemoteSpotlight) *store.Spotlight {
	return &store.Spotlight{
		ID:          remote.SpotlightID(),
		Title:       remote.Title,
		Description: remote.Description,
		ImagePath:   remote.ImagePath,
		SongID:      schema.NormalizeID(remote.SongID),
		CreatedAt:   remote.CreatedAt,
	}
}
