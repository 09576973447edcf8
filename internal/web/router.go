package web

import (
	"database/sql"
	"net/http"

	"github.com/trocaroupa/trocas/internal/troca"
	webembed "github.com/trocaroupa/trocas/web"
)

// NewRouter creates the web page router with all page routes registered.
func NewRouter(db *sql.DB, engine *troca.Engine, jwtSecret string) (http.Handler, error) {
	templates, err := LoadTemplates()
	if err != nil {
		return nil, err
	}

	s := &Server{
		DB:        db,
		Engine:    engine,
		Query:     troca.NewQuery(db),
		Templates: templates,
		JWTSecret: jwtSecret,
	}

	mux := http.NewServeMux()
	cookieAuth := CookieAuthMiddleware(jwtSecret, db)
	page := func(h http.HandlerFunc) http.Handler { return cookieAuth(h) }
	admin := func(h http.HandlerFunc) http.Handler { return cookieAuth(RequireAdmin(h)) }

	// Static assets.
	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServer(http.FS(webembed.StaticFS()))))

	// Public routes.
	mux.HandleFunc("GET /login", s.LoginPage)
	mux.HandleFunc("POST /login", s.LoginSubmit)
	mux.HandleFunc("GET /register", s.RegisterPage)
	mux.HandleFunc("POST /register", s.RegisterSubmit)
	mux.HandleFunc("POST /logout", s.Logout)

	// Authenticated routes.
	mux.Handle("GET /{$}", page(s.Dashboard))

	mux.Handle("GET /items", page(s.BrowsePage))
	mux.Handle("GET /items/{id}", page(s.ItemDetailPage))
	mux.Handle("POST /items/{id}", page(s.ItemUpdateSubmit))
	mux.Handle("POST /items/{id}/delete", page(s.ItemDeleteSubmit))
	mux.Handle("POST /items/{id}/image", page(s.ItemImageSubmit))
	mux.Handle("GET /items/{id}/image", page(s.ItemImageGet))
	mux.Handle("GET /my/items", page(s.MyItemsPage))
	mux.Handle("POST /my/items", page(s.ItemCreateSubmit))

	mux.Handle("GET /trocas", page(s.TrocasPage))
	mux.Handle("POST /trocas", page(s.TrocaProposeSubmit))
	mux.Handle("GET /trocas/{id}", page(s.TrocaDetailPage))
	mux.Handle("POST /trocas/{id}/accept", page(s.trocaAction(engine.Accept, "troca-aceita")))
	mux.Handle("POST /trocas/{id}/reject", page(s.trocaAction(engine.Reject, "troca-recusada")))
	mux.Handle("POST /trocas/{id}/cancel", page(s.trocaAction(engine.Cancel, "troca-cancelada")))
	mux.Handle("POST /trocas/{id}/confirm", page(s.trocaAction(engine.ConfirmFinalizacao, "troca-confirmada")))

	mux.Handle("GET /settings", page(s.SettingsPage))
	mux.Handle("POST /settings", page(s.SettingsSubmit))

	// Admin.
	mux.Handle("GET /admin/users", admin(s.UsersPage))
	mux.Handle("POST /admin/users/{id}/role", admin(s.UserRoleSubmit))
	mux.Handle("POST /admin/users/{id}/delete", admin(s.UserDeleteSubmit))
	mux.Handle("GET /admin/conflicts", admin(s.ConflictsPage))

	return mux, nil
}
