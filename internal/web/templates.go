package web

import (
	"database/sql"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"time"

	"github.com/trocaroupa/trocas/internal/auth"
	"github.com/trocaroupa/trocas/internal/model"
	"github.com/trocaroupa/trocas/internal/troca"
	webembed "github.com/trocaroupa/trocas/web"
)

// Templates holds parsed HTML templates.
type Templates struct {
	templates map[string]*template.Template
}

var (
	roleNames = map[string]string{
		model.RoleAdmin: "Administrador",
		model.RoleUser:  "Usuário",
	}
	itemStatusNames = map[string]string{
		model.ItemStatusActive:     "Disponível",
		model.ItemStatusInExchange: "Em troca",
		model.ItemStatusHistoric:   "Trocado",
	}
	trocaStatusNames = map[string]string{
		model.TrocaStatusPending:   "Pendente",
		model.TrocaStatusAccepted:  "Aceita",
		model.TrocaStatusRejected:  "Recusada",
		model.TrocaStatusFinalized: "Finalizada",
		model.TrocaStatusCancelled: "Cancelada",
		model.TrocaStatusConflict:  "Em conflito",
	}
	categoryNames = map[string]string{
		"camisa":    "Camisa",
		"camiseta":  "Camiseta",
		"calca":     "Calça",
		"saia":      "Saia",
		"vestido":   "Vestido",
		"casaco":    "Casaco",
		"calcado":   "Calçado",
		"acessorio": "Acessório",
		"outro":     "Outro",
	}
	conditionNames = map[string]string{
		"novo":     "Novo",
		"seminovo": "Seminovo",
		"usado":    "Usado",
	}
)

func label(names map[string]string) func(string) string {
	return func(key string) string {
		if name, ok := names[key]; ok {
			return name
		}
		return key
	}
}

// FuncMap returns the template function map.
func FuncMap() template.FuncMap {
	return template.FuncMap{
		"roleAtLeast":     model.RoleAtLeast,
		"roleName":        label(roleNames),
		"statusName":      label(itemStatusNames),
		"trocaStatusName": label(trocaStatusNames),
		"categoryName":    label(categoryNames),
		"conditionName":   label(conditionNames),
		"categories":      func() []string { return model.Categories },
		"conditions":      func() []string { return model.Conditions },
		"trocaStatuses":   func() []string { return model.TrocaStatuses },
		"date": func(t time.Time) string {
			return t.Local().Format("02/01/2006 15:04")
		},
		"dateptr": func(t *time.Time) string {
			if t == nil {
				return "-"
			}
			return t.Local().Format("02/01/2006 15:04")
		},
	}
}

// LoadTemplates parses all page templates with the layout.
func LoadTemplates() (*Templates, error) {
	tfs := webembed.TemplatesFS()

	layoutBytes, err := fs.ReadFile(tfs, "layout.html")
	if err != nil {
		return nil, fmt.Errorf("reading layout template: %w", err)
	}

	pages := []string{
		"login.html",
		"register.html",
		"dashboard.html",
		"items.html",
		"my_items.html",
		"item_detail.html",
		"trocas.html",
		"troca_detail.html",
		"users.html",
		"conflicts.html",
		"settings.html",
	}

	ts := &Templates{templates: make(map[string]*template.Template)}

	for _, page := range pages {
		pageBytes, err := fs.ReadFile(tfs, page)
		if err != nil {
			return nil, fmt.Errorf("reading template %s: %w", page, err)
		}

		tmpl, err := template.New(page).Funcs(FuncMap()).Parse(string(layoutBytes))
		if err != nil {
			return nil, fmt.Errorf("parsing layout for %s: %w", page, err)
		}
		if tmpl, err = tmpl.Parse(string(pageBytes)); err != nil {
			return nil, fmt.Errorf("parsing template %s: %w", page, err)
		}

		ts.templates[page] = tmpl
	}

	return ts, nil
}

// Render renders a template with the given data.
func (ts *Templates) Render(w http.ResponseWriter, name string, data any) {
	ts.RenderStatus(w, http.StatusOK, name, data)
}

// RenderStatus renders a template with a non-200 status.
func (ts *Templates) RenderStatus(w http.ResponseWriter, status int, name string, data any) {
	tmpl, ok := ts.templates[name]
	if !ok {
		http.Error(w, "template not found", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := tmpl.ExecuteTemplate(w, "layout", data); err != nil {
		slog.Error("failed to render template", "template", name, "error", err)
	}
}

// PageData is the base data passed to all templates.
type PageData struct {
	Title   string
	User    *auth.Claims
	Error   string
	Success string
}

// Server holds all dependencies for page handlers.
type Server struct {
	DB        *sql.DB
	Engine    *troca.Engine
	Query     *troca.Query
	Templates *Templates
	JWTSecret string
}

// page builds the PageData for an authenticated page, picking up the
// message a redirect left in the query string.
func (s *Server) page(r *http.Request, title string) PageData {
	q := r.URL.Query()
	return PageData{
		Title:   title,
		User:    GetWebClaims(r.Context()),
		Success: notices[q.Get("ok")],
		Error:   errorMessages[q.Get("erro")],
	}
}
