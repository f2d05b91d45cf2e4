package speech

import (
	"context"
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/linguabot/backend/internal/locale"
	speechmodel "github.com/zhouzirui/linguabot/backend/internal/model/speech"
	chatservice "github.com/zhouzirui/linguabot/backend/internal/service/chat"
	"github.com/zhouzirui/linguabot/backend/pkg/logger"
	"github.com/zhouzirui/linguabot/backend/pkg/utils"
)

const maxUpload = 32 << 20 // 32MB

// SpeechService 抽象语音识别，便于测试与替换实现
type SpeechService interface {
	TranscribeBuffer(ctx context.Context, sessionID string, audio []byte, format, language string) (*speechmodel.ASRResponse, error)
}

// SessionLookup 找到挂载识别结果的组件会话
type SessionLookup interface {
	GetSession(ctx context.Context, id string) (*chatservice.Session, error)
}

// Handler 语音识别的HTTP处理器
type Handler struct {
	speechSvc SpeechService
	sessions  SessionLookup
}

// New 创建语音处理器
func New(speechSvc SpeechService, sessions SessionLookup) *Handler {
	return &Handler{speechSvc: speechSvc, sessions: sessions}
}

// RegisterRoutes 注册语音相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/speech", func(speechRouter chi.Router) {
		speechRouter.Post("/transcribe", h.handleTranscribe)
		speechRouter.Post("/transcribe/{sessionID}", h.handleTranscribeWithSession)
		speechRouter.Get("/health", h.handleHealth)
	})
}

func (h *Handler) handleTranscribe(w http.ResponseWriter, r *http.Request) {
	h.processTranscribe(w, r, nil)
}

// handleTranscribeWithSession 识别结果写入该会话的输入框
func (h *Handler) handleTranscribeWithSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	sess, err := h.sessions.GetSession(r.Context(), sessionID)
	if err != nil {
		if errors.Is(err, chatservice.ErrSessionNotFound) {
			utils.RespondError(w, http.StatusNotFound, "session not found")
			return
		}
		utils.RespondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	h.processTranscribe(w, r, sess)
}

func (h *Handler) processTranscribe(w http.ResponseWriter, r *http.Request, sess *chatservice.Session) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUpload)
	if err := r.ParseMultipartForm(maxUpload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "failed to parse multipart form: "+err.Error())
		return
	}
	if r.MultipartForm != nil {
		defer r.MultipartForm.RemoveAll()
	}

	file, header, err := r.FormFile("audio")
	if err != nil {
		utils.RespondError(w, http.StatusBadRequest, "audio file is required")
		return
	}
	defer file.Close()

	audio, err := io.ReadAll(file)
	if err != nil {
		utils.RespondError(w, http.StatusBadRequest, "failed to read audio")
		return
	}

	sessionID := r.FormValue("sessionId")
	lang := r.FormValue("language")
	if sess != nil {
		sessionID = sess.ID()
		if lang == "" {
			lang = sess.Controller.Language()
		}
	}
	if sessionID == "" {
		sessionID = "default"
	}

	resp, err := h.speechSvc.TranscribeBuffer(r.Context(), sessionID, audio, inferAudioFormat(header.Filename), lang)
	if err != nil {
		logger.WarnCF("speech", "Transcription failed", map[string]interface{}{
			"session_id": sessionID,
			"error":      err.Error(),
		})
		if sess != nil {
			sess.Controller.Announce(locale.KeyVoiceNotSupported)
		}
		utils.RespondError(w, http.StatusBadGateway, "speech recognition failed")
		return
	}

	if sess != nil {
		if text := strings.TrimSpace(resp.Text); text != "" {
			_ = sess.Controller.SetDraft(text)
		}
	}
	utils.RespondJSON(w, http.StatusOK, resp)
}

// handleHealth 健康检查端点
func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	utils.RespondJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "speech",
	})
}

// inferAudioFormat 从文件名推断音频格式
func inferAudioFormat(filename string) string {
	switch ext := strings.ToLower(filepath.Ext(filename)); ext {
	case ".mp3", ".wav", ".webm", ".ogg", ".pcm":
		return ext[1:]
	case ".m4a", ".aac":
		return "aac"
	default:
		return "wav"
	}
}
