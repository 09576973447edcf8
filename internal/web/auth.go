package web

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/trocaroupa/trocas/internal/auth"
	"github.com/trocaroupa/trocas/internal/model"
	"github.com/trocaroupa/trocas/internal/store"
)

// LoginPage handles GET /login.
func (s *Server) LoginPage(w http.ResponseWriter, r *http.Request) {
	s.Templates.Render(w, "login.html", &PageData{Title: "Entrar"})
}

// LoginSubmit handles POST /login.
func (s *Server) LoginSubmit(w http.ResponseWriter, r *http.Request) {
	email, err := model.NormalizeEmail(r.FormValue("email"))
	password := r.FormValue("password")
	if err != nil || password == "" {
		s.Templates.RenderStatus(w, http.StatusBadRequest, "login.html", &PageData{
			Title: "Entrar",
			Error: "Informe e-mail e senha.",
		})
		return
	}

	user, err := store.GetUserByEmail(r.Context(), s.DB, email)
	if err != nil {
		slog.Error("failed to look up user", "error", err)
	}
	if user == nil || !auth.CheckPassword(user.PasswordHash, password) {
		slog.Warn("login failed", "email", email, "remote", r.RemoteAddr)
		s.Templates.RenderStatus(w, http.StatusUnauthorized, "login.html", &PageData{
			Title: "Entrar",
			Error: "E-mail ou senha incorretos.",
		})
		return
	}

	s.startSession(w, r, user)
}

// RegisterPage handles GET /register.
func (s *Server) RegisterPage(w http.ResponseWriter, r *http.Request) {
	s.Templates.Render(w, "register.html", &PageData{Title: "Criar conta"})
}

// RegisterSubmit handles POST /register. New accounts get the user role.
func (s *Server) RegisterSubmit(w http.ResponseWriter, r *http.Request) {
	fail := func(status int, msg string) {
		s.Templates.RenderStatus(w, status, "register.html", &PageData{Title: "Criar conta", Error: msg})
	}

	name := strings.TrimSpace(r.FormValue("name"))
	email, err := model.NormalizeEmail(r.FormValue("email"))
	if err != nil || name == "" {
		fail(http.StatusBadRequest, "Informe nome e um e-mail válido.")
		return
	}
	password := r.FormValue("password")
	if err := model.ValidatePassword(password); err != nil {
		fail(http.StatusBadRequest, "A senha precisa ter pelo menos 8 caracteres.")
		return
	}
	if password != r.FormValue("password_confirm") {
		fail(http.StatusBadRequest, "As senhas não conferem.")
		return
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		slog.Error("failed to hash password", "error", err)
		fail(http.StatusInternalServerError, errorText(err))
		return
	}
	user, err := store.CreateUser(r.Context(), s.DB, name, email, hash, model.RoleUser)
	if errors.Is(err, model.ErrEmailTaken) {
		fail(http.StatusConflict, errorText(err))
		return
	}
	if err != nil {
		slog.Error("failed to create user", "error", err)
		fail(http.StatusInternalServerError, errorText(err))
		return
	}

	slog.Info("user registered", "user", user.ID)
	s.startSession(w, r, user)
}

func (s *Server) startSession(w http.ResponseWriter, r *http.Request, user *model.User) {
	token, err := auth.GenerateToken(s.JWTSecret, user)
	if err != nil {
		slog.Error("failed to generate token", "error", err)
		s.Templates.RenderStatus(w, http.StatusInternalServerError, "login.html", &PageData{
			Title: "Entrar",
			Error: "Erro ao entrar. Tente novamente.",
		})
		return
	}

	setAuthCookie(w, token)
	slog.Info("user logged in", "user", user.ID, "role", user.Role)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// Logout handles POST /logout. The session token is revoked server-side.
func (s *Server) Logout(w http.ResponseWriter, r *http.Request) {
	claims, err := sessionClaims(r, s.JWTSecret, s.DB)
	if err != nil {
		slog.Error("failed to check session", "error", err)
	}
	if claims != nil {
		if err := store.RevokeToken(r.Context(), s.DB, claims.ID, claims.ExpiresAt.Time); err != nil {
			slog.Error("failed to revoke token", "error", err)
		}
	}

	clearAuthCookie(w)
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}
