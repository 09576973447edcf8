package web

import (
	"log/slog"
	"net/http"

	"golang.org/x/sync/errgroup"

	"github.com/trocaroupa/trocas/internal/model"
	"github.com/trocaroupa/trocas/internal/store"
)

const recentTrocas = 5

// Dashboard handles GET /.
func (s *Server) Dashboard(w http.ResponseWriter, r *http.Request) {
	userID := GetWebClaims(r.Context()).UserID

	var (
		finalized, pending int
		recent             []model.Troca
		items              []model.Item
	)
	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() (err error) {
		finalized, err = s.Query.CountFinalized(ctx, userID)
		return err
	})
	g.Go(func() (err error) {
		pending, err = s.Query.CountPendingReceived(ctx, userID)
		return err
	})
	g.Go(func() (err error) {
		recent, err = s.Query.RecentForUser(ctx, userID, recentTrocas)
		return err
	})
	g.Go(func() (err error) {
		items, err = store.ListItems(ctx, s.DB, store.ItemFilter{OwnerID: userID, Status: model.ItemStatusActive})
		return err
	})

	data := s.page(r, "Início")
	if err := g.Wait(); err != nil {
		slog.Error("failed to load dashboard", "error", err)
		data.Error = errorText(err)
	}

	s.Templates.Render(w, "dashboard.html", &struct {
		PageData
		Finalized       int
		PendingReceived int
		ActiveItems     int
		Recent          []model.Troca
	}{
		PageData:        data,
		Finalized:       finalized,
		PendingReceived: pending,
		ActiveItems:     len(items),
		Recent:          recent,
	})
}
