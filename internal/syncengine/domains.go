package syncengine

import (
	"context"
	"log"

	"github.com/bads1de/badwave-desktop-sub000/internal/connectivity"
	"github.com/bads1de/badwave-desktop-sub000/internal/remote"
)

// Section cache keys and invalidation tags for the standard domains.
const (
	KeyTrendWeek       = "trend_week"
	KeyTrendAll        = "trend_all"
	KeyHomeSpotlight   = "home_spotlight"
	KeyHomeLatest      = "home_latest"
	KeyHomeRecommended = "home_recommended"
	KeyPublicPlaylists = "public_playlists"
	KeyUserPlaylists   = "user_playlists"

	TagTrends    = "trends"
	TagSpotlight = "spotlight"
	TagLatest    = "latest"
	TagRecommend = "recommended"
	TagPlaylists = "playlists"
	TagLiked     = "liked"
)

// DomainConfig parameterizes the standard orchestrator set.
type DomainConfig struct {
	// UserID scopes the user-bound domains (recommendations, user
	// playlists, liked songs). Empty disables them.
	UserID string
	// SectionLimit caps ranked sections (default 20).
	SectionLimit int
	// TrendWindowDays is the "this week" window (default 7).
	TrendWindowDays int
	// Logger is shared by the orchestrators.
	Logger *log.Logger
}

// BuildOrchestrators wires the standard per-domain orchestrators:
// trending (weekly and all-time), spotlight, latest, recommendations,
// public playlists, user playlists and liked songs.
//
// Domains touch disjoint section keys and may run concurrently with each
// other; the per-domain single-flight discipline lives in the scheduler.
func BuildOrchestrators(engine *Engine, client *remote.Client, state *connectivity.State, inv Invalidator, cfg DomainConfig) []*Orchestrator {
	if cfg.SectionLimit <= 0 {
		cfg.SectionLimit = 20
	}
	if cfg.TrendWindowDays <= 0 {
		cfg.TrendWindowDays = 7
	}

	orchestrators := []*Orchestrator{
		NewOrchestrator(KeyTrendWeek, TagTrends, state, inv, func(ctx context.Context) (int, error) {
			songs, err := client.TrendingSongs(ctx, cfg.TrendWindowDays, cfg.SectionLimit)
			if err != nil || len(songs) == 0 {
				return 0, err
			}
			return engine.SetSongSection(ctx, KeyTrendWeek, songs)
		}, cfg.Logger),

		NewOrchestrator(KeyTrendAll, TagTrends, state, inv, func(ctx context.Context) (int, error) {
			songs, err := client.TrendingSongs(ctx, 0, cfg.SectionLimit)
			if err != nil || len(songs) == 0 {
				return 0, err
			}
			return engine.SetSongSection(ctx, KeyTrendAll, songs)
		}, cfg.Logger),

		NewOrchestrator(KeyHomeSpotlight, TagSpotlight, state, inv, func(ctx context.Context) (int, error) {
			spotlights, err := client.Spotlights(ctx, cfg.SectionLimit)
			if err != nil || len(spotlights) == 0 {
				return 0, err
			}
			return engine.SetSpotlightSection(ctx, KeyHomeSpotlight, spotlights)
		}, cfg.Logger),

		NewOrchestrator(KeyHomeLatest, TagLatest, state, inv, func(ctx context.Context) (int, error) {
			songs, err := client.LatestSongs(ctx, cfg.SectionLimit)
			if err != nil || len(songs) == 0 {
				return 0, err
			}
			return engine.SetSongSection(ctx, KeyHomeLatest, songs)
		}, cfg.Logger),

		NewOrchestrator(KeyPublicPlaylists, TagPlaylists, state, inv, func(ctx context.Context) (int, error) {
			playlists, err := client.PublicPlaylists(ctx, cfg.SectionLimit)
			if err != nil || len(playlists) == 0 {
				return 0, err
			}
			return engine.SetPlaylistSection(ctx, KeyPublicPlaylists, playlists)
		}, cfg.Logger),
	}

	if cfg.UserID == "" {
		return orchestrators
	}

	orchestrators = append(orchestrators,
		NewOrchestrator(KeyHomeRecommended, TagRecommend, state, inv, func(ctx context.Context) (int, error) {
			songs, err := client.RecommendedSongs(ctx, cfg.UserID, cfg.SectionLimit)
			if err != nil || len(songs) == 0 {
				return 0, err
			}
			return engine.SetSongSection(ctx, KeyHomeRecommended, songs)
		}, cfg.Logger),

		NewOrchestrator(KeyUserPlaylists, TagPlaylists, state, inv, func(ctx context.Context) (int, error) {
			playlists, err := client.UserPlaylists(ctx, cfg.UserID)
			if err != nil || len(playlists) == 0 {
				return 0, err
			}
			count, err := engine.SetPlaylistSection(ctx, KeyUserPlaylists, playlists)
			if err != nil {
				return count, err
			}
			// Pull membership too so playlists open offline
			for _, p := range playlists {
				songs, err := client.PlaylistSongs(ctx, p.PlaylistID())
				if err != nil {
					return count, err
				}
				if len(songs) == 0 {
					continue
				}
				if _, err := engine.UpsertPlaylistSongs(ctx, p.PlaylistID(), songs); err != nil {
					return count, err
				}
			}
			return count, nil
		}, cfg.Logger),

		NewOrchestrator("liked_songs", TagLiked, state, inv, func(ctx context.Context) (int, error) {
			songs, err := client.LikedSongs(ctx, cfg.UserID)
			if err != nil || len(songs) == 0 {
				return 0, err
			}
			return engine.UpsertLikedSongs(ctx, cfg.UserID, songs)
		}, cfg.Logger),
	)

	return orchestrators
}
