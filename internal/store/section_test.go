package store

import (
	"context"
	"testing"
)

func TestSectionOrderingRoundTrip(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c"} {
		if err := db.UpsertSong(ctx, testSong(id, "Song "+id)); err != nil {
			t.Fatalf("upsert failed: %v", err)
		}
	}

	// Deliberate ranking, not insertion or alphabetical order
	want := []string{"c", "a", "b"}
	if err := db.SetSectionIDs(ctx, "trend_week", want); err != nil {
		t.Fatalf("SetSectionIDs failed: %v", err)
	}

	items, err := db.GetSection(ctx, "trend_week", SectionSongs)
	if err != nil {
		t.Fatalf("GetSection failed: %v", err)
	}
	if len(items.Songs) != 3 {
		t.Fatalf("expected 3 songs, got %d", len(items.Songs))
	}
	for i, id := range want {
		if items.Songs[i].ID != id {
			t.Errorf("position %d: got %s, want %s", i, items.Songs[i].ID, id)
		}
	}
}

func TestSectionDropsUnresolvableIDs(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	if err := db.UpsertSong(ctx, testSong("1", "Present")); err != nil {
		t.Fatalf("upsert failed: %v", err)
	}

	// "ghost" has no row yet; not an error, just excluded
	if err := db.SetSectionIDs(ctx, "home_latest", []string{"ghost", "1"}); err != nil {
		t.Fatalf("SetSectionIDs failed: %v", err)
	}

	items, err := db.GetSection(ctx, "home_latest", SectionSongs)
	if err != nil {
		t.Fatalf("GetSection failed: %v", err)
	}
	if len(items.Songs) != 1 || items.Songs[0].ID != "1" {
		t.Errorf("expected only song 1, got %d items", len(items.Songs))
	}
}

func TestSectionReplaceNotPatch(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	for _, id := range []string{"1", "2", "3"} {
		if err := db.UpsertSong(ctx, testSong(id, "Song "+id)); err != nil {
			t.Fatalf("upsert failed: %v", err)
		}
	}

	if err := db.SetSectionIDs(ctx, "trend_all", []string{"1", "2", "3"}); err != nil {
		t.Fatalf("first SetSectionIDs failed: %v", err)
	}
	if err := db.SetSectionIDs(ctx, "trend_all", []string{"3", "1"}); err != nil {
		t.Fatalf("second SetSectionIDs failed: %v", err)
	}

	ids, updatedAt, err := db.GetSectionIDs(ctx, "trend_all")
	if err != nil {
		t.Fatalf("GetSectionIDs failed: %v", err)
	}
	if len(ids) != 2 || ids[0] != "3" || ids[1] != "1" {
		t.Errorf("stale entry not fully replaced: %v", ids)
	}
	if updatedAt == nil {
		t.Error("expected updated_at to be set")
	}
}

func TestSectionMissingKey(t *testing.T) {
	db := setupTestDB(t)

	items, err := db.GetSection(context.Background(), "never_set", SectionSongs)
	if err != nil {
		t.Fatalf("GetSection failed: %v", err)
	}
	if items.Len() != 0 {
		t.Errorf("expected empty result for missing key, got %d", items.Len())
	}
}

func TestSectionPlaylistsAndSpotlights(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	if err := db.UpsertPlaylist(ctx, &Playlist{ID: "p1", UserID: "u1", Title: "Mix"}); err != nil {
		t.Fatalf("UpsertPlaylist failed: %v", err)
	}
	if err := db.UpsertSpotlight(ctx, &Spotlight{ID: "s1", Title: "Featured", SongID: "1"}); err != nil {
		t.Fatalf("UpsertSpotlight failed: %v", err)
	}

	if err := db.SetSectionIDs(ctx, "public_playlists", []string{"p1"}); err != nil {
		t.Fatalf("SetSectionIDs failed: %v", err)
	}
	items, err := db.GetSection(ctx, "public_playlists", SectionPlaylists)
	if err != nil {
		t.Fatalf("GetSection playlists failed: %v", err)
	}
	if len(items.Playlists) != 1 || items.Playlists[0].Title != "Mix" {
		t.Errorf("unexpected playlist section: %+v", items.Playlists)
	}

	if err := db.SetSectionIDs(ctx, "home_spotlight", []string{"s1"}); err != nil {
		t.Fatalf("SetSectionIDs failed: %v", err)
	}
	items, err = db.GetSection(ctx, "home_spotlight", SectionSpotlights)
	if err != nil {
		t.Fatalf("GetSection spotlights failed: %v", err)
	}
	if len(items.Spotlights) != 1 || items.Spotlights[0].Title != "Featured" {
		t.Errorf("unexpected spotlight section: %+v", items.Spotlights)
	}
}
