// Package server exposes the chat over HTTP and WebSocket: history and
// search as plain JSON endpoints, the composer pipeline and live
// fan-out over a per-session WebSocket.
package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/samber/lo"

	"moonchat/auth"
	"moonchat/composer"
	"moonchat/domain/chat"
	"moonchat/moderation"
	"moonchat/observability"
	"moonchat/profiles"
	"moonchat/repositories"
	"moonchat/search"
	"moonchat/services"
	"moonchat/sink"
)

var validate = validator.New()

// SessionConfig carries the per-composer tuning constants.
type SessionConfig struct {
	DraftDebounce    time.Duration
	DraftCheckBudget time.Duration
	SendCheckBudget  time.Duration
	SendGraceWindow  time.Duration
	ConnBufferSize   int
	HistoryLimit     int
}

type Server struct {
	log        *slog.Logger
	service    services.IChatService
	cache      *profiles.Cache
	index      *search.Index
	classifier moderation.IClassifier
	stats      *observability.PipelineStats
	secret     []byte
	config     SessionConfig
	upgrader   websocket.Upgrader
}

func NewServer(log *slog.Logger, service services.IChatService,
	cache *profiles.Cache, index *search.Index,
	classifier moderation.IClassifier, stats *observability.PipelineStats,
	secret []byte, config SessionConfig) *Server {
	return &Server{
		log:        log,
		service:    service,
		cache:      cache,
		index:      index,
		classifier: classifier,
		stats:      stats,
		secret:     secret,
		config:     config,
		upgrader: websocket.Upgrader{
			// Cross-origin policy is enforced by the CORS middleware in
			// front of the router.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

func (s *Server) Router() *mux.Router {
	router := mux.NewRouter()
	router.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	router.HandleFunc("/api/messages", s.handleRecentMessages).Methods(http.MethodGet)
	router.HandleFunc("/api/search", s.handleSearch).Methods(http.MethodGet)
	router.HandleFunc("/ws", s.handleWebSocket).Methods(http.MethodGet)
	return router
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleRecentMessages serves the initial page: recent history oldest
// first, authors bulk-resolved in one pass.
func (s *Server) handleRecentMessages(w http.ResponseWriter, r *http.Request) {
	limit := s.config.HistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > s.config.HistoryLimit {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid limit"})
			return
		}
		limit = parsed
	}

	messages, err := s.service.Recent(limit)
	if err != nil {
		s.log.Error("History load failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to load messages"})
		return
	}

	resolved := s.cache.Resolve(repositories.AuthorIDs(messages))

	rows := lo.Map(messages, func(item chat.Message, _ int) MessageFrame {
		return newMessageFrame(item, resolved[item.AuthorID])
	})
	writeJSON(w, http.StatusOK, rows)
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing q parameter"})
		return
	}
	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 && parsed <= 100 {
			limit = parsed
		}
	}

	hits, err := s.index.Search(r.Context(), query, limit)
	if err != nil {
		s.log.Error("Search failed", "query", query, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "search failed"})
		return
	}
	writeJSON(w, http.StatusOK, hits)
}

// handleWebSocket authenticates the connection, then hands it to a
// Session. A missing or invalid token still upgrades so the client can
// receive the unclosable sign-in roadblock before the close.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("WebSocket upgrade failed", "error", err)
		return
	}

	claims, err := s.authenticate(r)
	if err != nil {
		s.log.Info("Unauthenticated connection refused", "error", err)
		_ = conn.WriteJSON(newSignInRoadblock())
		_ = conn.Close()
		return
	}

	user := chat.Profile{ID: claims.UserID, Username: claims.Username}.WithDefaults()

	// The validator pushes advisory updates through the session's
	// outbound queue; the callback closes over the session variable
	// because both sides need each other.
	var session *Session
	draft := composer.NewDraftValidator(s.classifier,
		s.config.DraftDebounce, s.config.DraftCheckBudget,
		func(update composer.DraftUpdate) {
			session.Enqueue(newDraftStateFrame(update))
		}, s.log)
	gate := composer.NewSendGate(s.classifier, s.service,
		s.config.SendCheckBudget, s.config.SendGraceWindow, s.log)
	channelSink := sink.NewChannelSink(s.config.ConnBufferSize)
	outbound := make(chan any, s.config.ConnBufferSize)

	session = NewSession(user, conn, s.service, s.cache, draft, gate,
		channelSink, outbound, s.stats, s.log)

	s.log.Info("Participant connected", "user_id", user.ID, "username", user.Username)
	session.Run(r.Context())
	s.log.Info("Participant disconnected", "user_id", user.ID)
}

func (s *Server) authenticate(r *http.Request) (*auth.CustomClaims, error) {
	token := r.URL.Query().Get("token")
	if token == "" {
		token = r.Header.Get("Authorization")
	}
	return auth.ValidateToken(s.secret, token)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
