package gateway

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/bads1de/badwave-desktop-sub000/internal/connectivity"
	"github.com/bads1de/badwave-desktop-sub000/internal/download"
	"github.com/bads1de/badwave-desktop-sub000/internal/remote"
	"github.com/bads1de/badwave-desktop-sub000/internal/scheduler"
	"github.com/bads1de/badwave-desktop-sub000/internal/store"
	"github.com/bads1de/badwave-desktop-sub000/internal/syncengine"
)

// API serves the gateway's JSON endpoints. All reads come from the
// embedded store; the remote store is touched only by sync triggers and
// downloads.
type API struct {
	store     *store.DB
	remote    *remote.Client
	scheduler *scheduler.Scheduler
	downloads *download.Manager
	state     *connectivity.State
	notify    func(songID string, downloaded bool)
	logger    *log.Logger
}

// APIConfig wires the API's collaborators. Any of them may be nil; the
// endpoints needing an absent collaborator answer 503.
type APIConfig struct {
	Store     *store.DB
	Remote    *remote.Client
	Scheduler *scheduler.Scheduler
	Downloads *download.Manager
	State     *connectivity.State

	// NotifyDownload, if set, is called after a download lands or is
	// removed. The server wires its WebSocket push here.
	NotifyDownload func(songID string, downloaded bool)

	// Logger for request activity
	Logger *log.Logger
}

// NewAPI creates the gateway API.
func NewAPI(config *APIConfig) *API {
	if config == nil {
		config = &APIConfig{}
	}
	logger := config.Logger
	if logger == nil {
		logger = log.New(os.Stderr, "[gateway] ", log.LstdFlags)
	}
	return &API{
		store:     config.Store,
		remote:    config.Remote,
		scheduler: config.Scheduler,
		downloads: config.Downloads,
		state:     config.State,
		notify:    config.NotifyDownload,
		logger:    logger,
	}
}

// SetScheduler wires the scheduler after construction. The gateway server
// is itself the orchestrators' invalidator, so the scheduler can only be
// built once the server exists.
func (a *API) SetScheduler(s *scheduler.Scheduler) {
	a.scheduler = s
}

func (a *API) registerRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/sync", a.wrap(a.handleSyncAll))
	mux.HandleFunc("POST /api/sync/{domain}", a.wrap(a.handleSyncDomain))

	mux.HandleFunc("GET /api/sections/{key}", a.wrap(a.handleGetSection))

	mux.HandleFunc("GET /api/songs/{id}", a.wrap(a.handleGetSong))
	mux.HandleFunc("POST /api/songs/{id}/played", a.wrap(a.handleSongPlayed))

	mux.HandleFunc("GET /api/playlists", a.wrap(a.handleGetPlaylists))
	mux.HandleFunc("GET /api/playlists/{id}/songs", a.wrap(a.handleGetPlaylistSongs))
	mux.HandleFunc("GET /api/likes", a.wrap(a.handleGetLikes))

	mux.HandleFunc("GET /api/offline", a.wrap(a.handleListOffline))
	mux.HandleFunc("POST /api/downloads/{id}", a.wrap(a.handleDownload))
	mux.HandleFunc("GET /api/downloads/{id}", a.wrap(a.handleDownloadStatus))
	mux.HandleFunc("DELETE /api/downloads/{id}", a.wrap(a.handleDownloadRemove))

	mux.HandleFunc("GET /api/status", a.wrap(a.handleStatus))
	mux.HandleFunc("POST /api/connectivity/simulate-offline", a.wrap(a.handleSimulateOffline))
}

// wrap tags each request with an id and logs its outcome.
func (a *API) wrap(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		reqID := uuid.NewString()
		w.Header().Set("X-Request-ID", reqID)
		start := time.Now()
		h(w, r)
		a.logger.Printf("%s %s [%s] %s", r.Method, r.URL.Path, reqID, time.Since(start))
	}
}

// errorResponse is the JSON error envelope
type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func (a *API) handleSyncAll(w http.ResponseWriter, r *http.Request) {
	if a.scheduler == nil {
		writeError(w, http.StatusServiceUnavailable, errors.New("sync not available"))
		return
	}
	a.scheduler.TriggerAll()
	writeJSON(w, http.StatusAccepted, map[string]any{"domains": a.scheduler.Domains()})
}

func (a *API) handleSyncDomain(w http.ResponseWriter, r *http.Request) {
	if a.scheduler == nil {
		writeError(w, http.StatusServiceUnavailable, errors.New("sync not available"))
		return
	}
	domain := r.PathValue("domain")

	// ?wait=1 runs synchronously and reports the result
	if r.URL.Query().Get("wait") != "" {
		result, err := a.scheduler.SyncNow(r.Context(), domain)
		if err != nil {
			writeError(w, http.StatusNotFound, err)
			return
		}
		if result.Err != nil {
			result.Reason = result.Err.Error()
		}
		writeJSON(w, http.StatusOK, result)
		return
	}

	if err := a.scheduler.Trigger(domain); err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"domain": domain})
}

// sectionTypeForKey maps a section key to the record type it orders.
func sectionTypeForKey(key string) store.SectionType {
	switch key {
	case syncengine.KeyHomeSpotlight:
		return store.SectionSpotlights
	case syncengine.KeyPublicPlaylists, syncengine.KeyUserPlaylists:
		return store.SectionPlaylists
	default:
		return store.SectionSongs
	}
}

func (a *API) handleGetSection(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")
	items, err := a.store.GetSection(r.Context(), key, sectionTypeForKey(key))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (a *API) handleGetSong(w http.ResponseWriter, r *http.Request) {
	song, err := a.store.GetSong(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}
	writeJSON(w, http.StatusOK, song)
}

func (a *API) handleSongPlayed(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := a.store.TouchLastPlayed(r.Context(), id); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"song_id": id})
}

func (a *API) handleGetPlaylists(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		writeError(w, http.StatusBadRequest, errors.New("user_id is required"))
		return
	}
	playlists, err := a.store.GetCachedPlaylists(r.Context(), userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, playlists)
}

func (a *API) handleGetPlaylistSongs(w http.ResponseWriter, r *http.Request) {
	songs, err := a.store.GetCachedPlaylistSongs(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, songs)
}

func (a *API) handleGetLikes(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		writeError(w, http.StatusBadRequest, errors.New("user_id is required"))
		return
	}
	songs, err := a.store.GetCachedLikedSongs(r.Context(), userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, songs)
}

func (a *API) handleListOffline(w http.ResponseWriter, r *http.Request) {
	songs, err := a.store.ListOfflineSongs(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, songs)
}

func (a *API) handleDownload(w http.ResponseWriter, r *http.Request) {
	if a.downloads == nil || a.remote == nil {
		writeError(w, http.StatusServiceUnavailable, errors.New("downloads not available"))
		return
	}
	if a.state != nil && !a.state.Online() {
		writeError(w, http.StatusConflict, errors.New("device is offline"))
		return
	}
	id := r.PathValue("id")

	remoteSong, err := a.remote.GetSong(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusNotFound, fmt.Errorf("song %s: %w", id, err))
		return
	}

	song, err := a.downloads.Download(r.Context(), remoteSong)
	if err != nil {
		writeError(w, http.StatusBadGateway, err)
		return
	}

	if a.notify != nil {
		a.notify(song.ID, true)
	}
	writeJSON(w, http.StatusOK, song)
}

func (a *API) handleDownloadStatus(w http.ResponseWriter, r *http.Request) {
	if a.downloads == nil {
		writeError(w, http.StatusServiceUnavailable, errors.New("downloads not available"))
		return
	}
	st, err := a.downloads.CheckStatus(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (a *API) handleDownloadRemove(w http.ResponseWriter, r *http.Request) {
	if a.downloads == nil {
		writeError(w, http.StatusServiceUnavailable, errors.New("downloads not available"))
		return
	}
	id := r.PathValue("id")
	deleteRow := r.URL.Query().Get("purge") != ""

	if err := a.downloads.Remove(r.Context(), id, deleteRow); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if a.notify != nil {
		a.notify(id, false)
	}
	writeJSON(w, http.StatusOK, map[string]string{"song_id": id})
}

// StatusReport summarizes the local mirror for the status endpoint and CLI.
type StatusReport struct {
	Online       bool                 `json:"online"`
	Simulating   bool                 `json:"simulating_offline"`
	Songs        int                  `json:"songs"`
	Playlists    int                  `json:"playlists"`
	OfflineSongs int                  `json:"offline_songs"`
	StorageBytes int64                `json:"storage_bytes"`
	Sections     map[string]time.Time `json:"sections"`
}

func (a *API) handleStatus(w http.ResponseWriter, r *http.Request) {
	report, err := a.buildStatus(r)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (a *API) buildStatus(r *http.Request) (*StatusReport, error) {
	ctx := r.Context()
	report := &StatusReport{}

	if a.state != nil {
		report.Online = a.state.Online()
		report.Simulating = a.state.SimulatingOffline()
	}

	var err error
	if report.Songs, err = a.store.GetSongCount(ctx); err != nil {
		return nil, err
	}
	if report.Playlists, err = a.store.GetPlaylistCount(ctx); err != nil {
		return nil, err
	}

	offline, err := a.store.ListOfflineSongs(ctx)
	if err != nil {
		return nil, err
	}
	report.OfflineSongs = len(offline)

	if report.Sections, err = a.store.ListSectionKeys(ctx); err != nil {
		return nil, err
	}

	if a.downloads != nil {
		if report.StorageBytes, err = a.downloads.Usage(); err != nil {
			return nil, err
		}
	}
	return report, nil
}

func (a *API) handleSimulateOffline(w http.ResponseWriter, r *http.Request) {
	if a.state == nil {
		writeError(w, http.StatusServiceUnavailable, errors.New("connectivity not available"))
		return
	}

	var body struct {
		Enabled bool `json:"enabled"`
	}
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<10)).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid body: %w", err))
		return
	}

	a.state.SetSimulateOffline(body.Enabled)
	writeJSON(w, http.StatusOK, map[string]bool{
		"simulating_offline": body.Enabled,
		"online":             a.state.Online(),
	})
}
