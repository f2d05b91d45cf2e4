package language

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/linguabot/backend/internal/model/language"
	"github.com/zhouzirui/linguabot/backend/pkg/utils"
)

// Strings exposes the UI text and suggested questions of a language.
type Strings interface {
	Strings(code string) map[string]string
	Questions(code string) []string
}

// Handler 语言注册表的HTTP处理器
type Handler struct {
	languages language.Store
	strings   Strings
}

// New 创建语言处理器
func New(languages language.Store, strings Strings) *Handler {
	return &Handler{languages: languages, strings: strings}
}

// RegisterRoutes 注册语言相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/languages", h.handleListLanguages)
	r.Get("/languages/{code}/strings", h.handleStrings)
}

// handleListLanguages 列出所有支持的语言
func (h *Handler) handleListLanguages(w http.ResponseWriter, _ *http.Request) {
	utils.RespondJSON(w, http.StatusOK, map[string]any{
		"default":   h.languages.Default().Code,
		"languages": h.languages.List(),
	})
}

func (h *Handler) handleStrings(w http.ResponseWriter, r *http.Request) {
	lang, ok := h.languages.Find(chi.URLParam(r, "code"))
	if !ok {
		utils.RespondError(w, http.StatusNotFound, "language not found")
		return
	}
	utils.RespondJSON(w, http.StatusOK, map[string]any{
		"language":  lang,
		"strings":   h.strings.Strings(lang.Code),
		"questions": h.strings.Questions(lang.Code),
	})
}
