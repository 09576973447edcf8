package web

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/trocaroupa/trocas/internal/imaging"
	"github.com/trocaroupa/trocas/internal/model"
	"github.com/trocaroupa/trocas/internal/store"
)

func itemInput(r *http.Request) store.ItemInput {
	return store.ItemInput{
		Name:        r.FormValue("name"),
		Description: r.FormValue("description"),
		Category:    r.FormValue("category"),
		Size:        r.FormValue("size"),
		Condition:   r.FormValue("condition"),
		Fabric:      r.FormValue("fabric"),
		Color:       r.FormValue("color"),
	}
}

func pathID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	return id, err == nil && id > 0
}

// BrowsePage handles GET /items: other users' available pieces.
func (s *Server) BrowsePage(w http.ResponseWriter, r *http.Request) {
	claims := GetWebClaims(r.Context())
	category := r.URL.Query().Get("category")
	if !model.ValidCategory(category) {
		category = ""
	}

	items, err := store.ListItems(r.Context(), s.DB, store.ItemFilter{
		ExcludeOwnerID: claims.UserID,
		Status:         model.ItemStatusActive,
		Category:       category,
	})
	data := s.page(r, "Explorar")
	if err != nil {
		slog.Error("failed to list items", "error", err)
		data.Error = errorText(err)
	}

	s.Templates.Render(w, "items.html", &struct {
		PageData
		Items    []model.Item
		Category string
	}{
		PageData: data,
		Items:    items,
		Category: category,
	})
}

// MyItemsPage handles GET /my/items.
func (s *Server) MyItemsPage(w http.ResponseWriter, r *http.Request) {
	claims := GetWebClaims(r.Context())
	items, err := store.ListItems(r.Context(), s.DB, store.ItemFilter{OwnerID: claims.UserID})
	data := s.page(r, "Minhas peças")
	if err != nil {
		slog.Error("failed to list items", "error", err)
		data.Error = errorText(err)
	}

	s.Templates.Render(w, "my_items.html", &struct {
		PageData
		Items []model.Item
	}{
		PageData: data,
		Items:    items,
	})
}

// ItemCreateSubmit handles POST /my/items.
func (s *Server) ItemCreateSubmit(w http.ResponseWriter, r *http.Request) {
	claims := GetWebClaims(r.Context())

	in := itemInput(r)
	if err := in.Validate(); err != nil {
		redirectError(w, r, "/my/items", err)
		return
	}

	item, err := store.CreateItem(r.Context(), s.DB, claims.UserID, in)
	if err != nil {
		redirectError(w, r, "/my/items", err)
		return
	}

	slog.Info("item listed", "item", item.ID, "owner", claims.UserID)
	redirectOK(w, r, fmt.Sprintf("/items/%d", item.ID), "item-criado")
}

// ItemDetailPage handles GET /items/{id}. Owners get the edit form; other
// users get the proposal form with their own available pieces.
func (s *Server) ItemDetailPage(w http.ResponseWriter, r *http.Request) {
	claims := GetWebClaims(r.Context())
	id, ok := pathID(r)
	if !ok {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	item, err := store.GetItem(r.Context(), s.DB, id)
	if err != nil {
		slog.Error("failed to get item", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if item == nil || item.DeletedAt != nil {
		http.NotFound(w, r)
		return
	}

	isOwner := item.OwnerID == claims.UserID
	var offerable []model.Item
	if !isOwner && item.Available() {
		offerable, err = store.ListItems(r.Context(), s.DB, store.ItemFilter{
			OwnerID: claims.UserID,
			Status:  model.ItemStatusActive,
		})
		if err != nil {
			slog.Error("failed to list offerable items", "error", err)
		}
	}

	s.Templates.Render(w, "item_detail.html", &struct {
		PageData
		Item      *model.Item
		IsOwner   bool
		Offerable []model.Item
	}{
		PageData:  s.page(r, item.Name),
		Item:      item,
		IsOwner:   isOwner,
		Offerable: offerable,
	})
}

// ownedItem loads the {id} item for a form submission, refusing anyone but
// the owner (or an admin, when allowed).
func (s *Server) ownedItem(w http.ResponseWriter, r *http.Request, allowAdmin bool) (*model.Item, bool) {
	claims := GetWebClaims(r.Context())
	id, ok := pathID(r)
	if !ok {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return nil, false
	}

	item, err := store.GetItem(r.Context(), s.DB, id)
	if err != nil {
		redirectError(w, r, "/my/items", err)
		return nil, false
	}
	if item == nil || item.DeletedAt != nil {
		redirectError(w, r, "/my/items", model.ErrNotFound)
		return nil, false
	}
	if item.OwnerID != claims.UserID && !(allowAdmin && model.RoleAtLeast(claims.Role, model.RoleAdmin)) {
		http.Error(w, "forbidden", http.StatusForbidden)
		return nil, false
	}
	return item, true
}

// ItemUpdateSubmit handles POST /items/{id}.
func (s *Server) ItemUpdateSubmit(w http.ResponseWriter, r *http.Request) {
	item, ok := s.ownedItem(w, r, false)
	if !ok {
		return
	}
	back := fmt.Sprintf("/items/%d", item.ID)

	in := itemInput(r)
	if err := in.Validate(); err != nil {
		redirectError(w, r, back, err)
		return
	}
	if err := store.UpdateItem(r.Context(), s.DB, item.ID, in); err != nil {
		redirectError(w, r, back, err)
		return
	}

	slog.Info("item updated", "item", item.ID, "user", GetWebClaims(r.Context()).UserID)
	redirectOK(w, r, back, "item-salvo")
}

// ItemDeleteSubmit handles POST /items/{id}/delete.
func (s *Server) ItemDeleteSubmit(w http.ResponseWriter, r *http.Request) {
	item, ok := s.ownedItem(w, r, true)
	if !ok {
		return
	}

	if err := store.DeleteItem(r.Context(), s.DB, item.ID); err != nil {
		redirectError(w, r, fmt.Sprintf("/items/%d", item.ID), err)
		return
	}

	slog.Info("item deleted", "item", item.ID, "user", GetWebClaims(r.Context()).UserID)
	redirectOK(w, r, "/my/items", "item-removido")
}

// ItemImageSubmit handles POST /items/{id}/image.
func (s *Server) ItemImageSubmit(w http.ResponseWriter, r *http.Request) {
	item, ok := s.ownedItem(w, r, false)
	if !ok {
		return
	}
	back := fmt.Sprintf("/items/%d", item.ID)

	r.Body = http.MaxBytesReader(w, r.Body, imaging.MaxUploadBytes+1<<20)
	if err := r.ParseMultipartForm(imaging.MaxUploadBytes); err != nil {
		http.Redirect(w, r, back+"?erro=foto-invalida", http.StatusSeeOther)
		return
	}

	file, _, err := r.FormFile("image")
	if err != nil {
		http.Redirect(w, r, back+"?erro=foto-invalida", http.StatusSeeOther)
		return
	}
	defer file.Close()

	photo, err := imaging.Process(file)
	if err != nil {
		if !errors.Is(err, imaging.ErrUnsupported) {
			slog.Warn("rejected image upload", "item", item.ID, "error", err)
		}
		http.Redirect(w, r, back+"?erro=foto-invalida", http.StatusSeeOther)
		return
	}

	if err := store.SetItemImage(r.Context(), s.DB, item.ID, photo.Data, photo.Thumb, photo.MIME); err != nil {
		redirectError(w, r, back, err)
		return
	}

	slog.Info("item image uploaded", "item", item.ID)
	redirectOK(w, r, back, "foto-salva")
}

// ItemImageGet handles GET /items/{id}/image. ?thumb=1 serves the thumbnail.
func (s *Server) ItemImageGet(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	data, mime, err := store.GetItemImage(r.Context(), s.DB, id, r.URL.Query().Get("thumb") == "1")
	if err != nil {
		slog.Error("failed to get image", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if data == nil {
		http.NotFound(w, r)
		return
	}

	w.Header().Set("Content-Type", mime)
	w.Header().Set("Content-Disposition", "inline")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("Cache-Control", "private, max-age=3600")
	if _, err := w.Write(data); err != nil {
		slog.Error("failed to write image response", "error", err)
	}
}
