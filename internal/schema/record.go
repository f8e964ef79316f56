package schema

import (
	"fmt"
)

// RemoteSong is a song record as returned by the remote store.
//
// ID and UserID are declared as any because the transport does not guarantee
// their type; use SongID / OwnerID for the normalized forms. Path fields are
// remote URLs; local filesystem paths never appear in remote records.
type RemoteSong struct {
	ID        any    `json:"id"`
	UserID    any    `json:"user_id"`
	Title     string `json:"title"`
	Author    string `json:"author"`
	SongPath  string `json:"song_path"`
	ImagePath string `json:"image_path"`
	VideoPath string `json:"video_path"`
	Duration  int    `json:"duration"`
	Genre     string `json:"genre"`
	Lyrics    string `json:"lyrics"`
	CreatedAt string `json:"created_at"`

	// Count is the ranking signal for trending queries (play count).
	// Zero for domains that don't rank by it.
	Count int `json:"count,omitempty"`
}

// SongID returns the normalized identifier.
func (s *RemoteSong) SongID() string { return NormalizeID(s.ID) }

// OwnerID returns the normalized owner identifier.
func (s *RemoteSong) OwnerID() string { return NormalizeID(s.UserID) }

// Validate checks the fields required before the record may be upserted.
func (s *RemoteSong) Validate() error {
	if s.SongID() == "" {
		return fmt.Errorf("song id is required")
	}
	if s.Title == "" {
		return fmt.Errorf("song %s: title is required", s.SongID())
	}
	return nil
}

// SetDefaults applies defaults for optional fields.
func (s *RemoteSong) SetDefaults() {
	if s.Author == "" {
		s.Author = "Unknown"
	}
}

// RemotePlaylist is a playlist record as returned by the remote store.
type RemotePlaylist struct {
	ID        any    `json:"id"`
	UserID    any    `json:"user_id"`
	Title     string `json:"title"`
	ImagePath string `json:"image_path"`
	IsPublic  bool   `json:"is_public"`
	CreatedAt string `json:"created_at"`
}

// PlaylistID returns the normalized identifier.
func (p *RemotePlaylist) PlaylistID() string { return NormalizeID(p.ID) }

// OwnerID returns the normalized owner identifier.
func (p *RemotePlaylist) OwnerID() string { return NormalizeID(p.UserID) }

// Validate checks the fields required before the record may be upserted.
func (p *RemotePlaylist) Validate() error {
	if p.PlaylistID() == "" {
		return fmt.Errorf("playlist id is required")
	}
	if p.Title == "" {
		return fmt.Errorf("playlist %s: title is required", p.PlaylistID())
	}
	return nil
}

// RemotePlaylistSong is a playlist membership row.
type RemotePlaylistSong struct {
	PlaylistID any    `json:"playlist_id"`
	SongID     any    `json:"song_id"`
	AddedAt    string `json:"created_at"`
}

// LinkID returns the deterministic composite id for this membership.
func LinkID(playlistID, songID string) string {
	return playlistID + "_" + songID
}

// RemoteLikedSong is a like relationship row.
type RemoteLikedSong struct {
	UserID  any    `json:"user_id"`
	SongID  any    `json:"song_id"`
	LikedAt string `json:"created_at"`
}

// RemoteSpotlight is a curated spotlight entry. Spotlights reference songs
// but carry their own display fields, so they get their own section type.
type RemoteSpotlight struct {
	ID          any    `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	ImagePath   string `json:"image_path"`
	SongID      any    `json:"song_id"`
	CreatedAt   string `json:"created_at"`
}

// SpotlightID returns the normalized identifier.
func (s *RemoteSpotlight) SpotlightID() string { return NormalizeID(s.ID) }
