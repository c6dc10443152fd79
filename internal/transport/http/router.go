package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"doska-client/internal/backend"
	"doska-client/internal/handler"
	"doska-client/internal/httputil"
	"doska-client/internal/session"
	sessionmw "doska-client/internal/transport/http/middleware"
)

// RouterConfig holds the dependencies needed to create routes
type RouterConfig struct {
	AuthHandler     *handler.AuthHandler
	ListingHandler  *handler.ListingHandler
	CategoryHandler *handler.CategoryHandler
	AdminHandler    *handler.AdminHandler

	SessionStore *session.CookieStore
	Backend      *backend.Client
	Logger       *zap.Logger
}

// NewRouter creates and configures a new Chi router with all route groups
func NewRouter(cfg RouterConfig) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(sessionmw.Session(cfg.SessionStore, cfg.Backend, cfg.Logger))

	requireAuth := sessionmw.RequireAuth(cfg.Logger)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteJSON(w, 200, map[string]string{"status": "ok"})
	})

	// Auth: login/register/logout are public; the rest needs a session
	r.Route("/auth", func(r chi.Router) {
		r.Post("/login", cfg.AuthHandler.Login)
		r.Post("/register", cfg.AuthHandler.Register)
		r.Post("/logout", cfg.AuthHandler.Logout)

		r.Group(func(r chi.Router) {
			r.Use(requireAuth)
			r.Get("/me", cfg.AuthHandler.Me)
			r.Patch("/profile", cfg.AuthHandler.UpdateProfile)
		})
	})

	// Public browsing; detail works for everyone but shows more to owners
	r.Get("/listings", cfg.ListingHandler.Browse)
	r.Get("/listings/{id}", cfg.ListingHandler.Detail)
	r.Get("/categories", cfg.CategoryHandler.List)

	// Owner actions
	r.Group(func(r chi.Router) {
		r.Use(requireAuth)
		r.Get("/my-listings", cfg.ListingHandler.My)
		r.Delete("/listings/{id}", cfg.ListingHandler.Delete)
		r.Post("/listings/{id}/edit-form", cfg.ListingHandler.OpenEditForm)
	})

	// Listing form workflow
	r.Route("/forms", func(r chi.Router) {
		r.Use(requireAuth)
		r.Post("/listings", cfg.ListingHandler.OpenCreateForm)

		r.Route("/{formID}", func(r chi.Router) {
			r.Get("/", cfg.ListingHandler.FormState)
			r.Delete("/", cfg.ListingHandler.Discard)
			r.Patch("/fields", cfg.ListingHandler.SetFields)
			r.Post("/images", cfg.ListingHandler.AddImages)
			r.Delete("/images/{position}", cfg.ListingHandler.RemoveImage)
			r.Post("/images/move", cfg.ListingHandler.MoveImage)
			r.Get("/previews/{ref}", cfg.ListingHandler.Preview)
			r.Post("/submit", cfg.ListingHandler.Submit)
		})
	})

	// Moderator surface
	r.Route("/admin", func(r chi.Router) {
		r.Use(requireAuth)
		r.Use(sessionmw.RequireModerator())
		r.Get("/stats", cfg.AdminHandler.Stats)
		r.Get("/listings", cfg.AdminHandler.Listings)
		r.Patch("/listings/{id}/moderate", cfg.AdminHandler.Moderate)
	})

	return r
}
