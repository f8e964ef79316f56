package store

import (
	"bytes"
	"context"
	"database/sql"
	"testing"
)

func TestInsertPlaylistSongIgnoresDuplicates(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	link := &PlaylistSong{PlaylistID: "p1", SongID: "1"}
	if err := db.InsertPlaylistSong(ctx, link); err != nil {
		t.Fatalf("first insert failed: %v", err)
	}
	if err := db.InsertPlaylistSong(ctx, &PlaylistSong{PlaylistID: "p1", SongID: "1"}); err != nil {
		t.Fatalf("duplicate insert failed: %v", err)
	}

	var count int
	err := db.RawDB().QueryRow(
		"SELECT COUNT(*) FROM playlist_songs WHERE playlist_id = 'p1' AND song_id = '1'").Scan(&count)
	if err != nil {
		t.Fatalf("count query failed: %v", err)
	}
	if count != 1 {
		t.Errorf("expected exactly 1 link, got %d", count)
	}

	if link.ID != "p1_1" {
		t.Errorf("expected deterministic link id p1_1, got %q", link.ID)
	}
}

func TestInsertLikedSongIgnoresDuplicates(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	if err := db.InsertLikedSong(ctx, &LikedSong{UserID: "u1", SongID: "1"}); err != nil {
		t.Fatalf("first insert failed: %v", err)
	}
	if err := db.InsertLikedSong(ctx, &LikedSong{UserID: "u1", SongID: "1"}); err != nil {
		t.Fatalf("duplicate insert failed: %v", err)
	}

	count, err := db.GetLikedSongCount(ctx, "u1")
	if err != nil {
		t.Fatalf("GetLikedSongCount failed: %v", err)
	}
	if count != 1 {
		t.Errorf("expected exactly 1 like, got %d", count)
	}
}

func TestGetCachedLikedSongs(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	if err := db.UpsertSong(ctx, testSong("1", "Liked Track")); err != nil {
		t.Fatalf("upsert failed: %v", err)
	}
	if err := db.InsertLikedSong(ctx, &LikedSong{UserID: "u1", SongID: "1"}); err != nil {
		t.Fatalf("InsertLikedSong failed: %v", err)
	}

	songs, err := db.GetCachedLikedSongs(ctx, "u1")
	if err != nil {
		t.Fatalf("GetCachedLikedSongs failed: %v", err)
	}
	if len(songs) != 1 || songs[0].Title != "Liked Track" {
		t.Errorf("unexpected liked songs: %+v", songs)
	}

	// Other users see nothing
	songs, err = db.GetCachedLikedSongs(ctx, "u2")
	if err != nil {
		t.Fatalf("GetCachedLikedSongs failed: %v", err)
	}
	if len(songs) != 0 {
		t.Errorf("expected no likes for u2, got %d", len(songs))
	}
}

func TestReplacePlaylistSongs(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	for _, id := range []string{"1", "2", "3"} {
		if err := db.UpsertSong(ctx, testSong(id, "Song "+id)); err != nil {
			t.Fatalf("upsert failed: %v", err)
		}
	}

	links := []*PlaylistSong{
		{PlaylistID: "p1", SongID: "1"},
		{PlaylistID: "p1", SongID: "2"},
	}
	if err := db.ReplacePlaylistSongs(ctx, "p1", links); err != nil {
		t.Fatalf("ReplacePlaylistSongs failed: %v", err)
	}

	// Song 2 drops out, song 3 joins
	links = []*PlaylistSong{
		{PlaylistID: "p1", SongID: "1"},
		{PlaylistID: "p1", SongID: "3"},
	}
	if err := db.ReplacePlaylistSongs(ctx, "p1", links); err != nil {
		t.Fatalf("second ReplacePlaylistSongs failed: %v", err)
	}

	songs, err := db.GetCachedPlaylistSongs(ctx, "p1")
	if err != nil {
		t.Fatalf("GetCachedPlaylistSongs failed: %v", err)
	}
	got := map[string]bool{}
	for _, s := range songs {
		got[s.ID] = true
	}
	if len(got) != 2 || !got["1"] || !got["3"] {
		t.Errorf("unexpected membership after replace: %v", got)
	}
}

func TestPlaylistUpsertOverwritesRemoteFields(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	p := &Playlist{ID: "p1", UserID: "u1", Title: "Old Name", IsPublic: false}
	if err := db.UpsertPlaylist(ctx, p); err != nil {
		t.Fatalf("UpsertPlaylist failed: %v", err)
	}

	p = &Playlist{ID: "p1", UserID: "u1", Title: "New Name", IsPublic: true}
	if err := db.UpsertPlaylist(ctx, p); err != nil {
		t.Fatalf("second UpsertPlaylist failed: %v", err)
	}

	got, err := db.GetPlaylist(ctx, "p1")
	if err != nil {
		t.Fatalf("GetPlaylist failed: %v", err)
	}
	if got.Title != "New Name" || !got.IsPublic {
		t.Errorf("remote-owned fields not overwritten: %+v", got)
	}
}

func TestGetPlaylistNotFound(t *testing.T) {
	db := setupTestDB(t)

	_, err := db.GetPlaylist(context.Background(), "missing")
	if err != sql.ErrNoRows {
		t.Errorf("expected sql.ErrNoRows, got %v", err)
	}
}

func TestExportImportRoundTrip(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	localPath := "/data/downloads/audio/1.mp3"
	song := testSong("1", "Keeper")
	song.SongPath = &localPath
	if err := db.UpsertDownloadedSong(ctx, song); err != nil {
		t.Fatalf("upsert failed: %v", err)
	}
	if err := db.UpsertPlaylist(ctx, &Playlist{ID: "p1", UserID: "u1", Title: "Mix"}); err != nil {
		t.Fatalf("UpsertPlaylist failed: %v", err)
	}

	var buf bytes.Buffer
	exported, err := db.ExportLibrary(ctx, &buf)
	if err != nil {
		t.Fatalf("ExportLibrary failed: %v", err)
	}
	if exported.Songs != 1 || exported.Playlists != 1 {
		t.Errorf("unexpected export counts: %+v", exported)
	}

	fresh := setupTestDB(t)
	imported, err := fresh.ImportLibrary(ctx, &buf)
	if err != nil {
		t.Fatalf("ImportLibrary failed: %v", err)
	}
	if imported.Songs != 1 || imported.Playlists != 1 {
		t.Errorf("unexpected import counts: %+v", imported)
	}

	got, err := fresh.GetSong(ctx, "1")
	if err != nil {
		t.Fatalf("GetSong after import failed: %v", err)
	}
	if got.SongPath == nil || *got.SongPath != localPath {
		t.Error("local path lost in round trip")
	}
}
