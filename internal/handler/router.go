package handler

import (
	"io/fs"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/zhouzirui/linguabot/backend/internal/handler/language"
	"github.com/zhouzirui/linguabot/backend/internal/handler/speech"
	"github.com/zhouzirui/linguabot/backend/internal/handler/widget"
	"github.com/zhouzirui/linguabot/backend/internal/locale"
	middlewarePkg "github.com/zhouzirui/linguabot/backend/internal/middleware"
	languageModel "github.com/zhouzirui/linguabot/backend/internal/model/language"
	chatService "github.com/zhouzirui/linguabot/backend/internal/service/chat"
	speechService "github.com/zhouzirui/linguabot/backend/internal/service/speech"
	"github.com/zhouzirui/linguabot/backend/pkg/utils"
)

// Deps are the services the router exposes.
type Deps struct {
	Languages      languageModel.Store
	Catalog        *locale.Catalog
	Sessions       *chatService.Service
	Speech         *speechService.Service
	Assets         fs.FS
	AllowedOrigins []string
}

// NewRouter wires HTTP routes to core services.
func NewRouter(deps Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS(deps.AllowedOrigins))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		utils.RespondJSON(w, http.StatusOK, map[string]any{"status": "ok"})
	})

	if deps.Assets != nil {
		r.Get("/widget", serveAsset(deps.Assets, "widget.html"))
		r.Get("/widget.js", serveAsset(deps.Assets, "widget.js"))
		r.Get("/embed.js", serveAsset(deps.Assets, "embed.js"))
	}

	r.Route("/api", func(api chi.Router) {
		language.New(deps.Languages, deps.Catalog).RegisterRoutes(api)
		widget.New(deps.Sessions, deps.Catalog).RegisterRoutes(api)

		if deps.Speech.Enabled() {
			speech.New(deps.Speech, deps.Sessions).RegisterRoutes(api)
		}
	})

	return r
}

func serveAsset(assets fs.FS, name string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		http.ServeFileFS(w, r, assets, name)
	}
}
