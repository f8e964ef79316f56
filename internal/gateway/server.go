// Package gateway exposes the local HTTP and WebSocket surface the player
// UI talks to.
//
// The HTTP API serves cached reads, sync triggers and download operations.
// The WebSocket endpoint pushes cache invalidation tags and connectivity
// transitions, so the UI refetches exactly the domains that changed.
package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"

	"github.com/bads1de/badwave-desktop-sub000/internal/connectivity"
)

// MessageType defines the type of gateway push message
type MessageType string

const (
	// MessageTypeCacheInvalidate tells the UI a domain's read cache is stale
	MessageTypeCacheInvalidate MessageType = "cache_invalidate"

	// MessageTypeConnectivity announces an online/offline transition
	MessageTypeConnectivity MessageType = "connectivity"

	// MessageTypeDownloadUpdate announces a finished or removed download
	MessageTypeDownloadUpdate MessageType = "download_update"
)

// Message represents a gateway push message
type Message struct {
	Type      MessageType     `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data,omitempty"`
}

// InvalidateData names the stale read-cache tag
type InvalidateData struct {
	Tag string `json:"tag"`
}

// ConnectivityData carries an online/offline transition
type ConnectivityData struct {
	Online bool `json:"online"`
}

// DownloadUpdateData carries a download state change
type DownloadUpdateData struct {
	SongID     string `json:"song_id"`
	Downloaded bool   `json:"downloaded"`
}

// Server manages the HTTP listener and WebSocket push connections
type Server struct {
	addr     string
	listener net.Listener
	server   *http.Server
	api      *API
	state    *connectivity.State

	clients   map[*websocket.Conn]bool
	clientsMu sync.RWMutex

	broadcast chan Message

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	logger *log.Logger
}

// Config holds server configuration
type Config struct {
	// Port to listen on (default: 8090). The listener binds loopback
	// only; the gateway is a local surface, not a network service.
	Port int

	// Logger for server activity (default: stderr logger)
	Logger *log.Logger
}

// DefaultConfig returns sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Port:   8090,
		Logger: log.Default(),
	}
}

// NewServer creates a gateway server. api provides the HTTP routes; state
// may be nil when connectivity pushes aren't wanted.
func NewServer(api *API, state *connectivity.State, config *Config) *Server {
	if config == nil {
		config = DefaultConfig()
	}
	if config.Logger == nil {
		config.Logger = log.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Server{
		addr:      fmt.Sprintf("127.0.0.1:%d", config.Port),
		api:       api,
		state:     state,
		clients:   make(map[*websocket.Conn]bool),
		broadcast: make(chan Message, 100),
		ctx:       ctx,
		cancel:    cancel,
		logger:    config.Logger,
	}
}

// Start begins the HTTP server and WebSocket handler
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.addr, err)
	}
	s.listener = ln

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/health", s.handleHealth)
	if s.api != nil {
		s.api.registerRoutes(mux)
	}

	s.server = &http.Server{
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 2 * time.Minute, // download requests stream assets
	}

	s.wg.Add(1)
	go s.broadcastLoop()

	if s.state != nil {
		events := s.state.Subscribe()
		s.wg.Add(1)
		go s.watchConnectivity(events)
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.logger.Printf("Gateway listening on %s", s.addr)
		if err := s.server.Serve(ln); err != nil && err != http.ErrServerClosed {
			s.logger.Printf("Server error: %v", err)
		}
	}()

	return nil
}

// Stop gracefully shuts down the server
func (s *Server) Stop() error {
	s.logger.Println("Stopping gateway")

	s.cancel()

	s.clientsMu.Lock()
	for conn := range s.clients {
		_ = conn.Close(websocket.StatusGoingAway, "Server shutting down")
		delete(s.clients, conn)
	}
	s.clientsMu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}

	s.wg.Wait()

	s.logger.Println("Gateway stopped")
	return nil
}

// Addr returns the server's listening address
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.addr
}

// ClientCount returns the current number of connected clients
func (s *Server) ClientCount() int {
	s.clientsMu.RLock()
	defer s.clientsMu.RUnlock()
	return len(s.clients)
}

// Invalidate broadcasts a cache_invalidate push for tag. It satisfies the
// sync engine's invalidator so successful domain syncs flow straight to
// connected UIs.
func (s *Server) Invalidate(tag string) {
	data, _ := json.Marshal(InvalidateData{Tag: tag})
	s.Broadcast(Message{Type: MessageTypeCacheInvalidate, Data: data})
}

// NotifyDownload broadcasts a download state change.
func (s *Server) NotifyDownload(songID string, downloaded bool) {
	data, _ := json.Marshal(DownloadUpdateData{SongID: songID, Downloaded: downloaded})
	s.Broadcast(Message{Type: MessageTypeDownloadUpdate, Data: data})
}

// Broadcast sends a message to all connected clients
func (s *Server) Broadcast(msg Message) {
	select {
	case s.broadcast <- msg:
	case <-s.ctx.Done():
		return
	default:
		s.logger.Println("Warning: broadcast channel full, dropping message")
	}
}

// watchConnectivity forwards online/offline transitions to clients.
func (s *Server) watchConnectivity(events <-chan connectivity.Event) {
	defer s.wg.Done()

	for {
		select {
		case <-s.ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			data, _ := json.Marshal(ConnectivityData{Online: ev.Online})
			s.Broadcast(Message{Type: MessageTypeConnectivity, Data: data})
		}
	}
}

// broadcastLoop handles message delivery to all clients
func (s *Server) broadcastLoop() {
	defer s.wg.Done()

	for {
		select {
		case <-s.ctx.Done():
			return

		case msg := <-s.broadcast:
			if msg.Timestamp.IsZero() {
				msg.Timestamp = time.Now()
			}

			data, err := json.Marshal(msg)
			if err != nil {
				s.logger.Printf("Failed to marshal message: %v", err)
				continue
			}

			s.clientsMu.RLock()
			clients := make([]*websocket.Conn, 0, len(s.clients))
			for conn := range s.clients {
				clients = append(clients, conn)
			}
			s.clientsMu.RUnlock()

			// Send outside the read lock to avoid blocking broadcasts
			for _, conn := range clients {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				err := conn.Write(ctx, websocket.MessageText, data)
				cancel()

				if err != nil {
					s.logger.Printf("Failed to send to client: %v", err)
					s.removeClient(conn)
				}
			}
		}
	}
}

// handleWebSocket upgrades HTTP connections to WebSocket
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"}, // local loopback surface
	})
	if err != nil {
		s.logger.Printf("WebSocket upgrade failed: %v", err)
		return
	}

	s.clientsMu.Lock()
	s.clients[conn] = true
	clientCount := len(s.clients)
	s.clientsMu.Unlock()

	s.logger.Printf("Client connected (total: %d)", clientCount)

	// Initial connectivity snapshot
	if s.state != nil {
		data, _ := json.Marshal(ConnectivityData{Online: s.state.Online()})
		snapshot, _ := json.Marshal(Message{
			Type:      MessageTypeConnectivity,
			Timestamp: time.Now(),
			Data:      data,
		})
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		_ = conn.Write(ctx, websocket.MessageText, snapshot)
		cancel()
	}

	go s.readLoop(conn)
}

// readLoop keeps the connection alive and handles client disconnects
func (s *Server) readLoop(conn *websocket.Conn) {
	defer s.removeClient(conn)

	for {
		_, _, err := conn.Read(s.ctx)
		if err != nil {
			return
		}
		// Clients don't send messages; reads only detect disconnect
	}
}

// removeClient safely removes a client connection
func (s *Server) removeClient(conn *websocket.Conn) {
	s.clientsMu.Lock()
	if _, exists := s.clients[conn]; exists {
		delete(s.clients, conn)
		clientCount := len(s.clients)
		s.clientsMu.Unlock()

		_ = conn.Close(websocket.StatusNormalClosure, "")
		s.logger.Printf("Client disconnected (total: %d)", clientCount)
	} else {
		s.clientsMu.Unlock()
	}
}

// handleHealth returns server health status
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.clientsMu.RLock()
	clientCount := len(s.clients)
	s.clientsMu.RUnlock()

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"status":  "ok",
		"clients": clientCount,
	})
}
