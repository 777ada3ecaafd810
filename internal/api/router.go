package api

import (
	"database/sql"
	"net/http"

	"github.com/erazemk/sneakerdex/internal/browse"
	"github.com/erazemk/sneakerdex/internal/model"
	"github.com/erazemk/sneakerdex/internal/prefs"
)

// NewRouter creates the API router with all endpoints registered.
func NewRouter(db *sql.DB, jwtSecret string, preferences *prefs.Service, sessions *browse.Manager) http.Handler {
	mux := http.NewServeMux()

	authHandler := &AuthHandler{DB: db, JWTSecret: jwtSecret}
	usersHandler := &UsersHandler{DB: db}
	sneakersHandler := NewSneakersHandler(db, preferences, sessions)
	browseHandler := &BrowseHandler{Browse: sessions, Prefs: preferences}
	prefsHandler := &PreferencesHandler{Prefs: preferences}

	authMW := AuthMiddleware(jwtSecret, db)
	requireAdmin := RequireRole(model.RoleAdmin)

	// Public: login.
	mux.HandleFunc("POST /api/auth/login", authHandler.Login)

	// Authenticated routes.
	mux.Handle("POST /api/auth/logout", authMW(http.HandlerFunc(authHandler.Logout)))

	// Users (admin only).
	mux.Handle("GET /api/users", authMW(requireAdmin(http.HandlerFunc(usersHandler.List))))
	mux.Handle("POST /api/users", authMW(requireAdmin(http.HandlerFunc(usersHandler.Create))))
	mux.Handle("DELETE /api/users/{id}", authMW(requireAdmin(http.HandlerFunc(usersHandler.Delete))))

	// Sneakers: the authenticated user's own collection.
	mux.Handle("GET /api/sneakers", authMW(http.HandlerFunc(sneakersHandler.List)))
	mux.Handle("POST /api/sneakers", authMW(http.HandlerFunc(sneakersHandler.Create)))
	mux.Handle("GET /api/sneakers/facets", authMW(http.HandlerFunc(sneakersHandler.Facets)))
	mux.Handle("GET /api/sneakers/summary", authMW(http.HandlerFunc(sneakersHandler.Summary)))
	mux.Handle("POST /api/sneakers/validate", authMW(http.HandlerFunc(sneakersHandler.Validate)))
	mux.Handle("GET /api/sneakers/{id}", authMW(http.HandlerFunc(sneakersHandler.Get)))
	mux.Handle("PUT /api/sneakers/{id}", authMW(http.HandlerFunc(sneakersHandler.Update)))
	mux.Handle("DELETE /api/sneakers/{id}", authMW(http.HandlerFunc(sneakersHandler.Delete)))

	// Browse sessions.
	mux.Handle("POST /api/browse", authMW(http.HandlerFunc(browseHandler.Open)))
	mux.Handle("GET /api/browse/{id}", authMW(http.HandlerFunc(browseHandler.Get)))
	mux.Handle("PUT /api/browse/{id}", authMW(http.HandlerFunc(browseHandler.Update)))
	mux.Handle("POST /api/browse/{id}/scroll", authMW(http.HandlerFunc(browseHandler.Scroll)))
	mux.Handle("DELETE /api/browse/{id}", authMW(http.HandlerFunc(browseHandler.Close)))

	// Preferences: read (all), write (admin).
	mux.Handle("GET /api/preferences", authMW(http.HandlerFunc(prefsHandler.Get)))
	mux.Handle("PUT /api/preferences", authMW(requireAdmin(http.HandlerFunc(prefsHandler.Update))))

	return mux
}
