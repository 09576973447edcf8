package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/trocaroupa/trocas/internal/model"
	"github.com/trocaroupa/trocas/internal/troca"
)

// TrocasHandler exposes the exchange engine.
type TrocasHandler struct {
	Engine *troca.Engine
	Query  *troca.Query
}

type proposeRequest struct {
	OfferedItemID int64  `json:"offered_item_id"`
	DesiredItemID int64  `json:"desired_item_id"`
	Message       string `json:"message"`
}

type statsResponse struct {
	Finalized       int `json:"finalized"`
	PendingReceived int `json:"pending_received"`
}

// Propose handles POST /api/trocas.
func (h *TrocasHandler) Propose(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())

	var req proposeRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.OfferedItemID <= 0 || req.DesiredItemID <= 0 {
		jsonError(w, http.StatusBadRequest, "offered_item_id and desired_item_id required")
		return
	}

	t, err := h.Engine.Propose(r.Context(), claims.UserID, req.OfferedItemID, req.DesiredItemID, req.Message)
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusCreated, t)
}

// List handles GET /api/trocas?role=sent|received&status=...
func (h *TrocasHandler) List(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())
	q := r.URL.Query()

	trocas, err := h.Query.ListForUser(r.Context(), claims.UserID, q.Get("role"), q.Get("status"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if trocas == nil {
		trocas = []model.Troca{}
	}
	jsonResponse(w, http.StatusOK, trocas)
}

// Get handles GET /api/trocas/{id}. Only the parties may see a troca.
func (h *TrocasHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	t, err := h.Query.GetForUser(r.Context(), id, GetClaims(r.Context()).UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, t)
}

// Stats handles GET /api/trocas/stats.
func (h *TrocasHandler) Stats(w http.ResponseWriter, r *http.Request) {
	userID := GetClaims(r.Context()).UserID

	finalized, err := h.Query.CountFinalized(r.Context(), userID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	pending, err := h.Query.CountPendingReceived(r.Context(), userID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, statsResponse{Finalized: finalized, PendingReceived: pending})
}

// Conflicts handles GET /api/admin/conflicts.
func (h *TrocasHandler) Conflicts(w http.ResponseWriter, r *http.Request) {
	trocas, err := h.Query.ListConflicts(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	if trocas == nil {
		trocas = []model.Troca{}
	}
	jsonResponse(w, http.StatusOK, trocas)
}

type commandFunc func(ctx context.Context, trocaID, callerID int64) (*model.Troca, error)

// command adapts an engine command to POST /api/trocas/{id}/<action>.
func (h *TrocasHandler) command(run commandFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r)
		if err != nil {
			writeError(w, r, err)
			return
		}

		t, err := run(r.Context(), id, GetClaims(r.Context()).UserID)
		if errors.Is(err, model.ErrConflictDetected) && t != nil {
			jsonResponse(w, http.StatusConflict, map[string]any{"error": err.Error(), "troca": t})
			return
		}
		if err != nil {
			writeError(w, r, err)
			return
		}
		jsonResponse(w, http.StatusOK, t)
	}
}
