package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/linguabot/backend/internal/locale"
	languageModel "github.com/zhouzirui/linguabot/backend/internal/model/language"
	chatService "github.com/zhouzirui/linguabot/backend/internal/service/chat"
	"github.com/zhouzirui/linguabot/backend/internal/service/responder"
)

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	catalog, err := locale.Load()
	require.NoError(t, err)
	languages := languageModel.NewMemoryStore(languageModel.Seed())

	sessions := chatService.NewService(chatService.Deps{
		Locales:   catalog,
		Languages: languages,
		Responder: responder.New(catalog),
	}, chatService.Config{})
	t.Cleanup(sessions.Close)

	return NewRouter(Deps{
		Languages: languages,
		Catalog:   catalog,
		Sessions:  sessions,
		Assets: fstest.MapFS{
			"widget.html": {Data: []byte("<html>widget</html>")},
			"widget.js":   {Data: []byte("// renderer")},
			"embed.js":    {Data: []byte("// embed")},
		},
		AllowedOrigins: []string{"*"},
	})
}

func TestRouterHealthz(t *testing.T) {
	router := newTestRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"ok"`)
}

func TestRouterServesAssets(t *testing.T) {
	router := newTestRouter(t)

	for path, want := range map[string]string{
		"/widget":    "widget",
		"/widget.js": "renderer",
		"/embed.js":  "embed",
	} {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, rec.Code, path)
		assert.Contains(t, rec.Body.String(), want, path)
	}
}

func TestRouterMountsAPI(t *testing.T) {
	router := newTestRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/languages", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Default   string `json:"default"`
		Languages []struct {
			Code string `json:"code"`
		} `json:"languages"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "en", body.Default)
	assert.Len(t, body.Languages, 6)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/session", strings.NewReader(`{"language":"fr"}`)))
	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestRouterOmitsSpeechWithoutCredentials(t *testing.T) {
	router := newTestRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/speech/health", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRouterPreflight(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/session", nil)
	req.Header.Set("Origin", "https://shop.example")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}
