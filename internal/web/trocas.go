package web

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/trocaroupa/trocas/internal/model"
)

// TrocasPage handles GET /trocas?role=sent|received&status=...
func (s *Server) TrocasPage(w http.ResponseWriter, r *http.Request) {
	claims := GetWebClaims(r.Context())
	q := r.URL.Query()
	role, status := q.Get("role"), q.Get("status")

	data := s.page(r, "Minhas trocas")
	trocas, err := s.Query.ListForUser(r.Context(), claims.UserID, role, status)
	if err != nil {
		data.Error = errorText(err)
	}

	s.Templates.Render(w, "trocas.html", &struct {
		PageData
		Trocas []model.Troca
		Role   string
		Status string
	}{
		PageData: data,
		Trocas:   trocas,
		Role:     role,
		Status:   status,
	})
}

// TrocaProposeSubmit handles POST /trocas from the item detail page.
func (s *Server) TrocaProposeSubmit(w http.ResponseWriter, r *http.Request) {
	claims := GetWebClaims(r.Context())
	desiredID, _ := strconv.ParseInt(r.FormValue("desired_item_id"), 10, 64)
	offeredID, _ := strconv.ParseInt(r.FormValue("offered_item_id"), 10, 64)
	back := fmt.Sprintf("/items/%d", desiredID)

	if desiredID <= 0 || offeredID <= 0 {
		redirectError(w, r, back, model.ErrInvalidInput)
		return
	}

	t, err := s.Engine.Propose(r.Context(), claims.UserID, offeredID, desiredID, r.FormValue("message"))
	if err != nil {
		redirectError(w, r, back, err)
		return
	}
	redirectOK(w, r, fmt.Sprintf("/trocas/%d", t.ID), "proposta-enviada")
}

// TrocaDetailPage handles GET /trocas/{id}. Only the parties may see it.
func (s *Server) TrocaDetailPage(w http.ResponseWriter, r *http.Request) {
	claims := GetWebClaims(r.Context())
	id, ok := pathID(r)
	if !ok {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	t, err := s.Query.GetForUser(r.Context(), id, claims.UserID)
	switch {
	case errors.Is(err, model.ErrNotFound):
		http.NotFound(w, r)
		return
	case errors.Is(err, model.ErrUnauthorized):
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	case err != nil:
		redirectError(w, r, "/trocas", err)
		return
	}

	isReceiver := t.ReceiverID == claims.UserID
	confirmed := t.ProposerConfirmed
	if isReceiver {
		confirmed = t.ReceiverConfirmed
	}
	pending := t.Status == model.TrocaStatusPending
	accepted := t.Status == model.TrocaStatusAccepted

	s.Templates.Render(w, "troca_detail.html", &struct {
		PageData
		Troca      *model.Troca
		IsReceiver bool
		CanAnswer  bool
		CanCancel  bool
		CanConfirm bool
		Confirmed  bool
	}{
		PageData:   s.page(r, fmt.Sprintf("Troca #%d", t.ID)),
		Troca:      t,
		IsReceiver: isReceiver,
		CanAnswer:  pending && isReceiver,
		CanCancel:  pending || accepted,
		CanConfirm: accepted && !confirmed,
		Confirmed:  confirmed,
	})
}

type engineCommand func(ctx context.Context, trocaID, callerID int64) (*model.Troca, error)

// trocaAction adapts an engine command to POST /trocas/{id}/<action>.
func (s *Server) trocaAction(run engineCommand, notice string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(r)
		if !ok {
			http.Error(w, "invalid id", http.StatusBadRequest)
			return
		}
		back := fmt.Sprintf("/trocas/%d", id)

		t, err := run(r.Context(), id, GetWebClaims(r.Context()).UserID)
		if err != nil {
			redirectError(w, r, back, err)
			return
		}
		msg := notice
		if t.Status == model.TrocaStatusFinalized {
			msg = "troca-finalizada"
		}
		redirectOK(w, r, back, msg)
	}
}
