package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"go.uber.org/zap"

	"botroom/room"
	"botroom/types"
)

// Handler serves the room API: the message feed, message submission,
// the conversation toggle, settings, and a websocket stream of feed
// updates.
type Handler struct {
	room   *room.Room
	logger *zap.Logger
}

// NewHandler creates the room API handler.
func NewHandler(r *room.Room, logger *zap.Logger) *Handler {
	return &Handler{
		room:   r,
		logger: logger.With(zap.String("component", "handler")),
	}
}

// Register installs the API routes on mux. The submit route gets its
// own rate limit; reads and the stream are unlimited.
func (h *Handler) Register(mux *http.ServeMux, submitLimit Middleware) {
	mux.HandleFunc("GET /healthz", h.handleHealthz)
	mux.HandleFunc("GET /api/feed", h.handleFeed)
	mux.Handle("POST /api/messages", submitLimit(http.HandlerFunc(h.handleSubmit)))
	mux.HandleFunc("POST /api/conversation/toggle", h.handleToggle)
	mux.HandleFunc("GET /api/settings", h.handleGetSettings)
	mux.HandleFunc("PUT /api/settings", h.handlePutSettings)
	mux.HandleFunc("GET /api/stream", h.handleStream)
}

type feedResponse struct {
	Messages            []types.Message `json:"messages"`
	Pending             []string        `json:"pending"`
	ConversationRunning bool            `json:"conversation_running"`
}

type submitRequest struct {
	Text string `json:"text"`
}

type toggleResponse struct {
	Running bool `json:"running"`
}

// settingsResponse never echoes credentials back; it only reports
// whether they are set.
type settingsResponse struct {
	GeminiAPIKeySet     bool             `json:"gemini_api_key_set"`
	OpenRouterAPIKeySet bool             `json:"openrouter_api_key_set"`
	LMStudioURL         string           `json:"lmstudio_url"`
	ActiveBots          types.ActiveBots `json:"active_bots"`
}

// settingsUpdateRequest applies partial updates; nil fields keep their
// current value, so a client can flip bots without resending keys.
type settingsUpdateRequest struct {
	GeminiAPIKey     *string           `json:"gemini_api_key"`
	OpenRouterAPIKey *string           `json:"openrouter_api_key"`
	LMStudioURL      *string           `json:"lmstudio_url"`
	ActiveBots       *types.ActiveBots `json:"active_bots"`
}

func (h *Handler) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) handleFeed(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.feedSnapshot())
}

func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, types.ErrInvalidRequest, "malformed request body")
		return
	}

	// The round outlives this request; it must not die with r.Context().
	_, err := h.room.Submit(context.Background(), req.Text)
	if err != nil {
		var e *types.Error
		if errors.As(err, &e) && e.Code == types.ErrInvalidRequest {
			writeError(w, http.StatusBadRequest, e.Code, e.Message)
			return
		}
		h.logger.Error("submit failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, types.ErrUpstreamError, "failed to submit message")
		return
	}

	writeJSON(w, http.StatusAccepted, h.feedSnapshot())
}

func (h *Handler) handleToggle(w http.ResponseWriter, r *http.Request) {
	running := h.room.ToggleConversation(context.Background())
	writeJSON(w, http.StatusOK, toggleResponse{Running: running})
}

func (h *Handler) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	s := h.room.Settings()
	writeJSON(w, http.StatusOK, settingsResponse{
		GeminiAPIKeySet:     s.GeminiAPIKey != "",
		OpenRouterAPIKeySet: s.OpenRouterAPIKey != "",
		LMStudioURL:         s.LMStudioURL,
		ActiveBots:          s.ActiveBots,
	})
}

func (h *Handler) handlePutSettings(w http.ResponseWriter, r *http.Request) {
	var req settingsUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, types.ErrInvalidRequest, "malformed request body")
		return
	}

	s := h.room.Settings()
	if req.GeminiAPIKey != nil {
		s.GeminiAPIKey = *req.GeminiAPIKey
	}
	if req.OpenRouterAPIKey != nil {
		s.OpenRouterAPIKey = *req.OpenRouterAPIKey
	}
	if req.LMStudioURL != nil {
		s.LMStudioURL = *req.LMStudioURL
	}
	if req.ActiveBots != nil {
		s.ActiveBots = *req.ActiveBots
	}
	h.room.UpdateSettings(s)

	h.handleGetSettings(w, r)
}

// handleStream pushes a feed snapshot over a websocket whenever the
// room state changes, plus a periodic keepalive snapshot.
func (h *Handler) handleStream(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		h.logger.Debug("websocket accept failed", zap.Error(err))
		return
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	ctx := r.Context()
	updates, cancel := h.room.Subscribe()
	defer cancel()

	// Initial snapshot so a fresh client renders without waiting for a
	// change.
	if err := wsjson.Write(ctx, conn, h.feedSnapshot()); err != nil {
		return
	}

	keepalive := time.NewTicker(30 * time.Second)
	defer keepalive.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-updates:
		case <-keepalive.C:
		}
		if err := wsjson.Write(ctx, conn, h.feedSnapshot()); err != nil {
			h.logger.Debug("websocket write failed", zap.Error(err))
			return
		}
	}
}

func (h *Handler) feedSnapshot() feedResponse {
	return feedResponse{
		Messages:            h.room.Messages(),
		Pending:             h.room.Pending(),
		ConversationRunning: h.room.ConversationRunning(),
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code types.ErrorCode, message string) {
	writeJSON(w, status, map[string]any{
		"error": map[string]string{
			"code":    string(code),
			"message": message,
		},
	})
}
