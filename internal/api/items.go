package api

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/trocaroupa/trocas/internal/imaging"
	"github.com/trocaroupa/trocas/internal/model"
	"github.com/trocaroupa/trocas/internal/store"
)

// ItemsHandler handles clothing listing endpoints.
type ItemsHandler struct {
	DB *sql.DB
}

type itemRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Category    string `json:"category"`
	Size        string `json:"size"`
	Condition   string `json:"condition"`
	Fabric      string `json:"fabric"`
	Color       string `json:"color"`
}

func (req itemRequest) input() store.ItemInput {
	return store.ItemInput{
		Name:        req.Name,
		Description: req.Description,
		Category:    req.Category,
		Size:        req.Size,
		Condition:   req.Condition,
		Fabric:      req.Fabric,
		Color:       req.Color,
	}
}

// List handles GET /api/items. By default it lists other users' available
// items; ?owner=me lists the caller's own listings in every status.
func (h *ItemsHandler) List(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())
	q := r.URL.Query()

	f := store.ItemFilter{Category: q.Get("category")}
	if f.Category != "" && !model.ValidCategory(f.Category) {
		jsonError(w, http.StatusBadRequest, "invalid category")
		return
	}
	if q.Get("owner") == "me" {
		f.OwnerID = claims.UserID
	} else {
		f.ExcludeOwnerID = claims.UserID
		f.Status = model.ItemStatusActive
	}

	items, err := store.ListItems(r.Context(), h.DB, f)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if items == nil {
		items = []model.Item{}
	}
	jsonResponse(w, http.StatusOK, items)
}

// Create handles POST /api/items.
func (h *ItemsHandler) Create(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())

	var req itemRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	in := req.input()
	if err := in.Validate(); err != nil {
		writeError(w, r, err)
		return
	}

	item, err := store.CreateItem(r.Context(), h.DB, claims.UserID, in)
	if err != nil {
		writeError(w, r, err)
		return
	}

	slog.Info("item listed", "item", item.ID, "owner", claims.UserID)
	jsonResponse(w, http.StatusCreated, item)
}

// Get handles GET /api/items/{id}.
func (h *ItemsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	item, err := store.GetItem(r.Context(), h.DB, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if item == nil || item.DeletedAt != nil {
		jsonError(w, http.StatusNotFound, "item not found")
		return
	}
	jsonResponse(w, http.StatusOK, item)
}

// Update handles PUT /api/items/{id}. Only the owner may edit.
func (h *ItemsHandler) Update(w http.ResponseWriter, r *http.Request) {
	item, ok := h.ownedItem(w, r, false)
	if !ok {
		return
	}

	var req itemRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	in := req.input()
	if err := in.Validate(); err != nil {
		writeError(w, r, err)
		return
	}

	if err := store.UpdateItem(r.Context(), h.DB, item.ID, in); err != nil {
		writeError(w, r, err)
		return
	}

	updated, err := store.GetItem(r.Context(), h.DB, item.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, updated)
}

// Delete handles DELETE /api/items/{id}. The owner or an admin may delete.
func (h *ItemsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	item, ok := h.ownedItem(w, r, true)
	if !ok {
		return
	}

	if err := store.DeleteItem(r.Context(), h.DB, item.ID); err != nil {
		writeError(w, r, err)
		return
	}

	slog.Info("item deleted", "item", item.ID, "by", GetClaims(r.Context()).UserID)
	jsonResponse(w, http.StatusOK, map[string]string{"message": "item deleted"})
}

// UploadImage handles PUT /api/items/{id}/image.
func (h *ItemsHandler) UploadImage(w http.ResponseWriter, r *http.Request) {
	item, ok := h.ownedItem(w, r, false)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, imaging.MaxUploadBytes+1<<20)
	if err := r.ParseMultipartForm(imaging.MaxUploadBytes); err != nil {
		jsonError(w, http.StatusBadRequest, "file too large or invalid multipart form")
		return
	}

	file, _, err := r.FormFile("image")
	if err != nil {
		jsonError(w, http.StatusBadRequest, "image file required")
		return
	}
	defer file.Close()

	photo, err := imaging.Process(file)
	if err != nil {
		if errors.Is(err, imaging.ErrUnsupported) {
			jsonError(w, http.StatusBadRequest, "image must be JPEG or PNG")
			return
		}
		jsonError(w, http.StatusBadRequest, fmt.Sprintf("invalid image: %v", err))
		return
	}

	if err := store.SetItemImage(r.Context(), h.DB, item.ID, photo.Data, photo.Thumb, photo.MIME); err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, map[string]string{"message": "image uploaded"})
}

// GetImage handles GET /api/items/{id}/image. ?thumb=1 serves the thumbnail.
func (h *ItemsHandler) GetImage(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	serveImage(w, r, h.DB, id, r.URL.Query().Get("thumb") == "1")
}

// serveImage writes an item photo or its thumbnail.
func serveImage(w http.ResponseWriter, r *http.Request, db *sql.DB, id int64, thumb bool) {
	data, mime, err := store.GetItemImage(r.Context(), db, id, thumb)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if data == nil {
		http.NotFound(w, r)
		return
	}

	w.Header().Set("Content-Type", mime)
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("Cache-Control", "private, max-age=3600")
	if _, err := w.Write(data); err != nil {
		slog.Error("writing image response", "error", err)
	}
}

// ownedItem loads the {id} item and checks the caller owns it, or is an
// admin when allowAdmin is set. It writes the error response itself.
func (h *ItemsHandler) ownedItem(w http.ResponseWriter, r *http.Request, allowAdmin bool) (*model.Item, bool) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return nil, false
	}

	item, err := store.GetItem(r.Context(), h.DB, id)
	if err != nil {
		writeError(w, r, err)
		return nil, false
	}
	if item == nil || item.DeletedAt != nil {
		jsonError(w, http.StatusNotFound, "item not found")
		return nil, false
	}

	claims := GetClaims(r.Context())
	if item.OwnerID != claims.UserID && !(allowAdmin && model.RoleAtLeast(claims.Role, model.RoleAdmin)) {
		jsonError(w, http.StatusForbidden, "not your item")
		return nil, false
	}
	return item, true
}
