package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mvasilyev/mediavault/internal/logging"
	"github.com/mvasilyev/mediavault/internal/server/auth"
	"github.com/mvasilyev/mediavault/internal/server/metrics"
	"github.com/mvasilyev/mediavault/internal/server/services"
)

// RouterDeps bundles everything NewRouter needs.
type RouterDeps struct {
	Users         *services.UserService
	Assets        *services.AssetService
	Identity      *auth.IdentityExtractor
	Collector     *metrics.Collector
	MaxUploadSize int64
	Logger        logging.Logger
}

// NewRouter wires all endpoints. The /auth routes are public; the /media
// routes sit behind the bearer middleware, which is the single place
// request identity is established.
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(NewObservabilityMiddleware(deps.Logger, deps.Collector))

	authHandler := NewAuthHandler(deps.Users, deps.Logger)
	mediaHandler := NewMediaHandler(deps.Assets, deps.MaxUploadSize, deps.Logger)

	r.Get("/ping", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "OK"})
	})
	r.Method(http.MethodGet, "/metrics", deps.Collector.Handler())

	requireAuth := NewBearerAuthMiddleware(deps.Identity)

	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", authHandler.Register)
		r.Post("/login", authHandler.Login)
		r.With(requireAuth).Get("/me", authHandler.Me)
	})

	r.Group(func(r chi.Router) {
		r.Use(requireAuth)

		r.Route("/media", func(r chi.Router) {
			r.Post("/", mediaHandler.Upload)
			r.Get("/", mediaHandler.List)
			r.Get("/search", mediaHandler.Search)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", mediaHandler.Get)
				r.Put("/", mediaHandler.Update)
				r.Delete("/", mediaHandler.Delete)
			})
		})
	})

	return r
}
