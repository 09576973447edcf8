package api

import (
	"database/sql"
	"net/http"

	"github.com/trocaroupa/trocas/internal/model"
	"github.com/trocaroupa/trocas/internal/troca"
)

// NewRouter creates the API router with all endpoints registered.
func NewRouter(db *sql.DB, engine *troca.Engine, jwtSecret string) http.Handler {
	mux := http.NewServeMux()

	authHandler := &AuthHandler{DB: db, JWTSecret: jwtSecret}
	usersHandler := &UsersHandler{DB: db}
	itemsHandler := &ItemsHandler{DB: db}
	trocasHandler := &TrocasHandler{Engine: engine, Query: troca.NewQuery(db)}

	authMW := AuthMiddleware(jwtSecret, db)
	requireAdmin := RequireRole(model.RoleAdmin)
	authed := func(h http.HandlerFunc) http.Handler { return authMW(h) }
	admin := func(h http.HandlerFunc) http.Handler { return authMW(requireAdmin(h)) }

	// Public: login.
	mux.HandleFunc("POST /api/auth/login", authHandler.Login)

	mux.Handle("POST /api/auth/logout", authed(authHandler.Logout))
	mux.Handle("GET /api/auth/me", authed(authHandler.Me))
	mux.Handle("PUT /api/auth/password", authed(authHandler.ChangePassword))

	// Items: owners edit their own listings.
	mux.Handle("GET /api/items", authed(itemsHandler.List))
	mux.Handle("POST /api/items", authed(itemsHandler.Create))
	mux.Handle("GET /api/items/{id}", authed(itemsHandler.Get))
	mux.Handle("PUT /api/items/{id}", authed(itemsHandler.Update))
	mux.Handle("DELETE /api/items/{id}", authed(itemsHandler.Delete))
	mux.Handle("PUT /api/items/{id}/image", authed(itemsHandler.UploadImage))
	mux.Handle("GET /api/items/{id}/image", authed(itemsHandler.GetImage))

	// Trocas.
	mux.Handle("POST /api/trocas", authed(trocasHandler.Propose))
	mux.Handle("GET /api/trocas", authed(trocasHandler.List))
	mux.Handle("GET /api/trocas/stats", authed(trocasHandler.Stats))
	mux.Handle("GET /api/trocas/{id}", authed(trocasHandler.Get))
	mux.Handle("POST /api/trocas/{id}/accept", authed(trocasHandler.command(engine.Accept)))
	mux.Handle("POST /api/trocas/{id}/reject", authed(trocasHandler.command(engine.Reject)))
	mux.Handle("POST /api/trocas/{id}/cancel", authed(trocasHandler.command(engine.Cancel)))
	mux.Handle("POST /api/trocas/{id}/confirm", authed(trocasHandler.command(engine.ConfirmFinalizacao)))

	// Admin.
	mux.Handle("GET /api/users", admin(usersHandler.List))
	mux.Handle("POST /api/users", admin(usersHandler.Create))
	mux.Handle("GET /api/users/{id}", admin(usersHandler.Get))
	mux.Handle("PUT /api/users/{id}", admin(usersHandler.Update))
	mux.Handle("PUT /api/users/{id}/password", admin(usersHandler.ResetPassword))
	mux.Handle("DELETE /api/users/{id}", admin(usersHandler.Delete))
	mux.Handle("GET /api/admin/conflicts", admin(trocasHandler.Conflicts))

	return mux
}
