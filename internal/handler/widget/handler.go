package widget

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/zhouzirui/linguabot/backend/internal/model/chat"
	"github.com/zhouzirui/linguabot/backend/internal/service/bridge"
	chatservice "github.com/zhouzirui/linguabot/backend/internal/service/chat"
	"github.com/zhouzirui/linguabot/backend/internal/service/widget"
	"github.com/zhouzirui/linguabot/backend/pkg/logger"
	"github.com/zhouzirui/linguabot/backend/pkg/utils"
)

const heartbeatInterval = 15 * time.Second

// Sessions is the registry the handler drives.
type Sessions interface {
	CreateSession(ctx context.Context, opts chatservice.CreateOptions) (*chatservice.Session, error)
	GetSession(ctx context.Context, id string) (*chatservice.Session, error)
	RemoveSession(ctx context.Context, id string) error
}

// Strings resolves UI text for the renderer.
type Strings interface {
	Strings(code string) map[string]string
	Questions(code string) []string
}

// Handler 组件会话的HTTP与WebSocket处理器
type Handler struct {
	sessions Sessions
	strings  Strings
	upgrader websocket.Upgrader
}

// New 创建组件处理器
func New(sessions Sessions, strings Strings) *Handler {
	return &Handler{
		sessions: sessions,
		strings:  strings,
		upgrader: newUpgrader(),
	}
}

// RegisterRoutes 注册组件会话相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/session", h.handleCreateSession)
	r.Route("/session/{sessionID}", func(s chi.Router) {
		s.Get("/", h.handleGetSession)
		s.Delete("/", h.handleDeleteSession)
		s.Get("/stream", h.handleStream)
		s.Post("/toggle", h.handleToggle)
		s.Post("/messages", h.handleSendMessage)
		s.Post("/language", h.handleChangeLanguage)
		s.Post("/human", h.handleRequestHuman)
		s.Post("/feedback", h.handleSubmitFeedback)
		s.Post("/quick-action", h.handleQuickAction)
		s.Post("/questions", h.handleSelectQuestion)
		s.Post("/draft", h.handleSetDraft)
		s.Post("/theme", h.handleSetTheme)
	})
	r.Get("/ws/{sessionID}", h.handleWebSocket)
}

// sessionView is everything a renderer needs to draw the widget.
type sessionView struct {
	Session    chat.Session      `json:"session"`
	State      widget.State      `json:"state"`
	Phase      widget.Phase      `json:"phase"`
	Strings    map[string]string `json:"strings"`
	Questions  []string          `json:"questions"`
	Voice      bool              `json:"voice"`
	Background string            `json:"background"`
}

func (h *Handler) view(sess *chatservice.Session, state widget.State) sessionView {
	return sessionView{
		Session:    sess.InfoIn(state.CurrentLanguage),
		State:      state,
		Phase:      state.Phase(),
		Strings:    h.strings.Strings(state.CurrentLanguage),
		Questions:  h.strings.Questions(state.CurrentLanguage),
		Voice:      sess.Voice.Supported(),
		Background: bridge.FormatCSS(state.Theme),
	}
}

func (h *Handler) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Language string       `json:"language"`
		Embedded bool         `json:"embedded"`
		Theme    widget.Theme `json:"theme"`
	}
	if err := utils.DecodeJSON(r, &payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if embedded, err := strconv.ParseBool(r.URL.Query().Get("embedded")); err == nil && embedded {
		payload.Embedded = true
	}

	sess, err := h.sessions.CreateSession(r.Context(), chatservice.CreateOptions{
		Language:       payload.Language,
		AcceptLanguage: r.Header.Get("Accept-Language"),
		Embedded:       payload.Embedded,
		Theme:          payload.Theme,
	})
	if err != nil {
		respondServiceError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusCreated, h.view(sess, sess.Controller.Snapshot()))
}

// withSession resolves {sessionID} before calling fn.
func (h *Handler) withSession(w http.ResponseWriter, r *http.Request, fn func(*chatservice.Session) error) {
	sess, err := h.sessions.GetSession(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	if err := fn(sess); err != nil {
		respondServiceError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, h.view(sess, sess.Controller.Snapshot()))
}

func (h *Handler) handleGetSession(w http.ResponseWriter, r *http.Request) {
	h.withSession(w, r, func(*chatservice.Session) error { return nil })
}

func (h *Handler) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.RemoveSession(r.Context(), chi.URLParam(r, "sessionID")); err != nil {
		respondServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleToggle(w http.ResponseWriter, r *http.Request) {
	h.withSession(w, r, func(sess *chatservice.Session) error {
		return sess.Controller.Toggle()
	})
}

func (h *Handler) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Text string `json:"text"`
	}
	if !decode(w, r, &payload) {
		return
	}
	h.withSession(w, r, func(sess *chatservice.Session) error {
		return sess.Controller.SendUserMessage(payload.Text)
	})
}

func (h *Handler) handleChangeLanguage(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Language string `json:"language"`
	}
	if !decode(w, r, &payload) {
		return
	}
	h.withSession(w, r, func(sess *chatservice.Session) error {
		return sess.Controller.ChangeLanguage(payload.Language)
	})
}

func (h *Handler) handleRequestHuman(w http.ResponseWriter, r *http.Request) {
	h.withSession(w, r, func(sess *chatservice.Session) error {
		return sess.Controller.RequestHuman()
	})
}

func (h *Handler) handleSubmitFeedback(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Rating  int    `json:"rating"`
		Comment string `json:"comment"`
	}
	if !decode(w, r, &payload) {
		return
	}
	h.withSession(w, r, func(sess *chatservice.Session) error {
		return sess.Controller.SubmitFeedback(payload.Rating, payload.Comment)
	})
}

func (h *Handler) handleQuickAction(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Action widget.QuickAction `json:"action"`
	}
	if !decode(w, r, &payload) {
		return
	}
	h.withSession(w, r, func(sess *chatservice.Session) error {
		return sess.Controller.QuickAction(payload.Action)
	})
}

func (h *Handler) handleSelectQuestion(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Question string `json:"question"`
	}
	if !decode(w, r, &payload) {
		return
	}
	h.withSession(w, r, func(sess *chatservice.Session) error {
		return sess.Controller.SelectQuestion(payload.Question)
	})
}

func (h *Handler) handleSetDraft(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Text string `json:"text"`
	}
	if !decode(w, r, &payload) {
		return
	}
	h.withSession(w, r, func(sess *chatservice.Session) error {
		return sess.Controller.SetDraft(payload.Text)
	})
}

func (h *Handler) handleSetTheme(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Theme      widget.Theme `json:"theme"`
		Background string       `json:"background"`
	}
	if !decode(w, r, &payload) {
		return
	}
	theme := payload.Theme
	if theme == "" && payload.Background != "" {
		theme = bridge.ProbeTheme(payload.Background)
	}
	h.withSession(w, r, func(sess *chatservice.Session) error {
		return sess.Controller.SetTheme(theme)
	})
}

// handleStream pushes a state event per transition until the client leaves.
func (h *Handler) handleStream(w http.ResponseWriter, r *http.Request) {
	sess, err := h.sessions.GetSession(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		utils.RespondError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	updates := make(chan widget.State, 32)
	unsubscribe := sess.Controller.Subscribe(func(u widget.Update) {
		select {
		case updates <- u.State:
		default:
			logger.WarnCF("sse", "Dropped state update", map[string]interface{}{"session_id": sess.ID()})
		}
	})
	defer unsubscribe()

	utils.SetupSSEHeaders(w)
	w.WriteHeader(http.StatusOK)
	if err := utils.SendSSEEvent(w, flusher, "state", h.view(sess, sess.Controller.Snapshot())); err != nil {
		return
	}

	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case state := <-updates:
			if err := utils.SendSSEEvent(w, flusher, "state", h.view(sess, state)); err != nil {
				return
			}
		case <-ticker.C:
			if err := utils.SendSSEComment(w, flusher, "heartbeat"); err != nil {
				return
			}
		}
	}
}

func decode(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := utils.DecodeJSON(r, dst); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

// errorStatus maps service errors onto HTTP status codes.
func errorStatus(err error) int {
	switch {
	case errors.Is(err, chatservice.ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, widget.ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, widget.ErrClosed):
		return http.StatusGone
	case errors.Is(err, widget.ErrEmptyMessage),
		errors.Is(err, widget.ErrUnknownLanguage),
		errors.Is(err, widget.ErrInvalidRating),
		errors.Is(err, widget.ErrUnknownAction),
		errors.Is(err, widget.ErrInvalidTheme):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func respondServiceError(w http.ResponseWriter, err error) {
	status := errorStatus(err)
	if status == http.StatusInternalServerError {
		logger.ErrorCF("widget", "Request failed", map[string]interface{}{"error": err.Error()})
	}
	utils.RespondError(w, status, strings.TrimSpace(err.Error()))
}
