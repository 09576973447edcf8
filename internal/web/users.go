package web

import (
	"log/slog"
	"net/http"

	"github.com/trocaroupa/trocas/internal/auth"
	"github.com/trocaroupa/trocas/internal/model"
	"github.com/trocaroupa/trocas/internal/store"
)

// UsersPage handles GET /admin/users.
func (s *Server) UsersPage(w http.ResponseWriter, r *http.Request) {
	data := s.page(r, "Usuários")
	users, err := store.ListUsers(r.Context(), s.DB)
	if err != nil {
		slog.Error("failed to list users", "error", err)
		data.Error = errorText(err)
	}

	s.Templates.Render(w, "users.html", &struct {
		PageData
		Users []model.User
	}{
		PageData: data,
		Users:    users,
	})
}

// UserRoleSubmit handles POST /admin/users/{id}/role.
func (s *Server) UserRoleSubmit(w http.ResponseWriter, r *http.Request) {
	claims := GetWebClaims(r.Context())
	id, ok := pathID(r)
	role := r.FormValue("role")
	if !ok || (role != model.RoleAdmin && role != model.RoleUser) || id == claims.UserID {
		redirectError(w, r, "/admin/users", model.ErrInvalidInput)
		return
	}

	if err := store.UpdateUserRole(r.Context(), s.DB, id, role); err != nil {
		redirectError(w, r, "/admin/users", err)
		return
	}

	slog.Info("user role updated", "by", claims.UserID, "user", id, "role", role)
	redirectOK(w, r, "/admin/users", "usuario-salvo")
}

// UserDeleteSubmit handles POST /admin/users/{id}/delete.
func (s *Server) UserDeleteSubmit(w http.ResponseWriter, r *http.Request) {
	claims := GetWebClaims(r.Context())
	id, ok := pathID(r)
	if !ok || id == claims.UserID {
		redirectError(w, r, "/admin/users", model.ErrInvalidInput)
		return
	}

	if err := store.DeleteUser(r.Context(), s.DB, id); err != nil {
		redirectError(w, r, "/admin/users", err)
		return
	}

	slog.Info("user deleted", "by", claims.UserID, "user", id)
	redirectOK(w, r, "/admin/users", "usuario-removido")
}

// ConflictsPage handles GET /admin/conflicts: trocas awaiting manual review.
func (s *Server) ConflictsPage(w http.ResponseWriter, r *http.Request) {
	data := s.page(r, "Conflitos")
	conflicts, err := s.Query.ListConflicts(r.Context())
	if err != nil {
		data.Error = errorText(err)
	}

	s.Templates.Render(w, "conflicts.html", &struct {
		PageData
		Conflicts []model.Troca
	}{
		PageData:  data,
		Conflicts: conflicts,
	})
}

// SettingsPage handles GET /settings.
func (s *Server) SettingsPage(w http.ResponseWriter, r *http.Request) {
	data := s.page(r, "Conta")
	s.Templates.Render(w, "settings.html", &data)
}

// SettingsSubmit handles POST /settings (change own password).
func (s *Server) SettingsSubmit(w http.ResponseWriter, r *http.Request) {
	claims := GetWebClaims(r.Context())
	fail := func(status int, msg string) {
		data := s.page(r, "Conta")
		data.Error = msg
		s.Templates.RenderStatus(w, status, "settings.html", &data)
	}

	current := r.FormValue("current_password")
	next := r.FormValue("new_password")
	if err := model.ValidatePassword(next); err != nil {
		fail(http.StatusBadRequest, "A nova senha precisa ter pelo menos 8 caracteres.")
		return
	}

	user, err := store.GetUser(r.Context(), s.DB, claims.UserID)
	if err != nil || user == nil {
		slog.Error("failed to load user", "user", claims.UserID, "error", err)
		fail(http.StatusInternalServerError, errorText(err))
		return
	}
	if !auth.CheckPassword(user.PasswordHash, current) {
		fail(http.StatusBadRequest, "A senha atual está incorreta.")
		return
	}

	hash, err := auth.HashPassword(next)
	if err == nil {
		err = store.UpdateUserPassword(r.Context(), s.DB, claims.UserID, hash)
	}
	if err != nil {
		slog.Error("failed to update password", "user", claims.UserID, "error", err)
		fail(http.StatusInternalServerError, errorText(err))
		return
	}

	slog.Info("user changed own password", "user", claims.UserID)
	redirectOK(w, r, "/settings", "senha-alterada")
}
