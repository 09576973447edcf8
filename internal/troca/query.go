package troca

import (
	"context"
	"fmt"
	"slices"

	"github.com/trocaroupa/trocas/internal/model"
	"github.com/trocaroupa/trocas/internal/store"
)

// Query serves read-only projections of trocas. It takes no locks; readers
// see the last committed state.
type Query struct {
	db store.DBTX
}

// NewQuery creates a query service over db.
func NewQuery(db store.DBTX) *Query {
	return &Query{db: db}
}

// Get returns a troca by id.
func (q *Query) Get(ctx context.Context, trocaID int64) (*model.Troca, error) {
	t, err := store.GetTroca(ctx, q.db, trocaID)
	if err != nil {
		return nil, unavailable(err)
	}
	if t == nil {
		return nil, fmt.Errorf("%w: troca %d", model.ErrNotFound, trocaID)
	}
	return t, nil
}

// GetForUser returns a troca only if userID is one of its parties.
func (q *Query) GetForUser(ctx context.Context, trocaID, userID int64) (*model.Troca, error) {
	t, err := q.Get(ctx, trocaID)
	if err != nil {
		return nil, err
	}
	if !t.IsParty(userID) {
		return nil, fmt.Errorf("%w: user %d is not a party to troca %d", model.ErrUnauthorized, userID, trocaID)
	}
	return t, nil
}

// ListForUser lists the trocas userID sent or received, most recent activity
// first. An empty role lists both sides; an empty status lists every status.
func (q *Query) ListForUser(ctx context.Context, userID int64, role, status string) ([]model.Troca, error) {
	if role != "" && role != model.TrocaRoleSent && role != model.TrocaRoleReceived {
		return nil, fmt.Errorf("%w: unknown role %q", model.ErrInvalidInput, role)
	}
	if status != "" && !slices.Contains(model.TrocaStatuses, status) {
		return nil, fmt.Errorf("%w: unknown status %q", model.ErrInvalidInput, status)
	}

	trocas, err := store.ListTrocas(ctx, q.db, store.TrocaFilter{UserID: userID, Role: role, Status: status})
	if err != nil {
		return nil, unavailable(err)
	}
	return trocas, nil
}

// RecentForUser returns the limit trocas of userID, on either side, with the
// most recent activity.
func (q *Query) RecentForUser(ctx context.Context, userID int64, limit int) ([]model.Troca, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("%w: limit %d", model.ErrInvalidInput, limit)
	}
	trocas, err := store.ListTrocas(ctx, q.db, store.TrocaFilter{UserID: userID, Limit: limit})
	if err != nil {
		return nil, unavailable(err)
	}
	return trocas, nil
}

// CountFinalized counts the finalized trocas userID took part in.
func (q *Query) CountFinalized(ctx context.Context, userID int64) (int, error) {
	n, err := store.CountTrocas(ctx, q.db, store.TrocaFilter{UserID: userID, Status: model.TrocaStatusFinalized})
	if err != nil {
		return 0, unavailable(err)
	}
	return n, nil
}

// CountPendingReceived counts proposals awaiting userID's answer.
func (q *Query) CountPendingReceived(ctx context.Context, userID int64) (int, error) {
	n, err := store.CountTrocas(ctx, q.db, store.TrocaFilter{
		UserID: userID,
		Role:   model.TrocaRoleReceived,
		Status: model.TrocaStatusPending,
	})
	if err != nil {
		return 0, unavailable(err)
	}
	return n, nil
}

// ListConflicts lists every troca waiting for manual review.
func (q *Query) ListConflicts(ctx context.Context) ([]model.Troca, error) {
	trocas, err := store.ListTrocas(ctx, q.db, store.TrocaFilter{Status: model.TrocaStatusConflict})
	if err != nil {
		return nil, unavailable(err)
	}
	return trocas, nil
}
