package transport

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/mvarner/gambit/internal/auth"
	"github.com/mvarner/gambit/internal/chess"
	"github.com/mvarner/gambit/internal/game"
	"github.com/mvarner/gambit/internal/registry"
	"github.com/mvarner/gambit/internal/session"
)

// WebSocket upgrader with reasonable settings
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Allow all origins for now, tighten in production
		return true
	},
}

// Service exposes the HTTP surface: seating, health, the game socket and
// the active-game-count feed.
type Service struct {
	hub      *Hub
	manager  *session.Manager
	registry *registry.Registry
	tokens   *auth.Tokens
}

func NewService(hub *Hub, manager *session.Manager, reg *registry.Registry, tokens *auth.Tokens) *Service {
	return &Service{
		hub:      hub,
		manager:  manager,
		registry: reg,
		tokens:   tokens,
	}
}

func (s *Service) Routes(router *mux.Router) {
	router.HandleFunc("/api/health", s.HealthHandler).Methods("GET")
	router.HandleFunc("/api/games", s.SeatGameHandler).Methods("POST")
	router.HandleFunc("/ws", s.GameSocketHandler)
	router.HandleFunc("/ws/count", s.CountFeedHandler)
}

func (s *Service) HealthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"status":      "ok",
		"activeGames": s.registry.ActiveCount(),
	})
}

type SeatGameRequest struct {
	WhiteID   string `json:"whiteId"`
	BlackID   string `json:"blackId"`
	Untimed   bool   `json:"untimed"`
	Publicity string `json:"publicity,omitempty"`
}

// SeatGameHandler creates a game for two players and hands back the seat
// tokens their sockets will present. Matchmaking proper lives upstream.
func (s *Service) SeatGameHandler(w http.ResponseWriter, r *http.Request) {
	var req SeatGameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.WhiteID == "" || req.BlackID == "" {
		http.Error(w, "whiteId and blackId are required", http.StatusBadRequest)
		return
	}

	publicity := game.Public
	if req.Publicity == string(game.Private) {
		publicity = game.Private
	}

	g := s.manager.Seat(req.WhiteID, req.BlackID, req.Untimed, publicity)

	whiteToken, err := s.tokens.Issue(g.ID, req.WhiteID, chess.White)
	if err != nil {
		log.Error().Err(err).Str("gameID", g.ID).Msg("Failed to issue white seat token")
		http.Error(w, "Failed to seat game", http.StatusInternalServerError)
		return
	}
	blackToken, err := s.tokens.Issue(g.ID, req.BlackID, chess.Black)
	if err != nil {
		log.Error().Err(err).Str("gameID", g.ID).Msg("Failed to issue black seat token")
		http.Error(w, "Failed to seat game", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{
		"gameId":     g.ID,
		"whiteToken": whiteToken,
		"blackToken": blackToken,
	})
}

// GameSocketHandler upgrades a player connection. The seat token on the
// query string proves which seat of which game the socket belongs to.
func (s *Service) GameSocketHandler(w http.ResponseWriter, r *http.Request) {
	tokenString := r.URL.Query().Get("token")
	if tokenString == "" {
		http.Error(w, "Missing token parameter", http.StatusBadRequest)
		return
	}

	claims, err := s.tokens.Validate(tokenString)
	if err != nil {
		log.Warn().Err(err).Msg("Rejected socket with invalid seat token")
		http.Error(w, "Invalid token", http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("Failed to upgrade WebSocket connection")
		return
	}

	client := &Client{
		hub:      s.hub,
		conn:     conn,
		send:     make(chan []byte, 256),
		id:       uuid.NewString(),
		playerID: claims.PlayerID,
		gameID:   claims.GameID,
	}
	client.cacheColor(chess.Color(claims.Color))

	go client.writePump()

	// Rejoin before reading: re-seats the socket and settles timers.
	s.manager.Join(client, s.manager.Lookup(claims.GameID))

	go client.readPump()
}

// CountFeedHandler streams the active-game count to anyone who asks.
func (s *Service) CountFeedHandler(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("Failed to upgrade count feed connection")
		return
	}

	var writeMu sync.Mutex
	push := func(count int) {
		writeMu.Lock()
		defer writeMu.Unlock()
		_ = conn.WriteJSON(map[string]interface{}{
			"type": "gamecount",
			"data": count,
		})
	}

	push(s.registry.ActiveCount())
	unsubscribe := s.registry.SubscribeCount(push)

	// Reads only detect the close.
	go func() {
		defer func() {
			unsubscribe()
			conn.Close()
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}
