// Package troca implements the exchange lifecycle: proposals, answers,
// cancellation and the two-sided confirmation that finalizes a swap.
package troca

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/trocaroupa/trocas/internal/model"
	"github.com/trocaroupa/trocas/internal/store"
)

// DefaultTimeout bounds a single command, lock waits included.
const DefaultTimeout = 5 * time.Second

// Engine applies troca commands. Each command runs in one transaction over
// the troca row and both item rows, under exclusive locks on those keys.
type Engine struct {
	db      *sql.DB
	locks   *lockTable
	timeout time.Duration
	now     func() time.Time
	logger  *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithTimeout overrides DefaultTimeout.
func WithTimeout(d time.Duration) Option {
	return func(e *Engine) { e.timeout = d }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithLogger overrides slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// NewEngine creates an engine over db.
func NewEngine(db *sql.DB, opts ...Option) *Engine {
	e := &Engine{
		db:      db,
		locks:   newLockTable(),
		timeout: DefaultTimeout,
		now:     time.Now,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// conflictError signals an inconsistency between a troca and its items.
// The command records it on the troca instead of failing.
type conflictError struct {
	reason string
}

func (c *conflictError) Error() string { return c.reason }

func conflictf(format string, args ...any) error {
	return &conflictError{reason: fmt.Sprintf(format, args...)}
}

func unavailable(err error) error {
	return fmt.Errorf("%w: %w", model.ErrStorageUnavailable, err)
}

// Propose creates a pending troca in which proposerID offers offeredItemID
// for desiredItemID.
func (e *Engine) Propose(ctx context.Context, proposerID, offeredItemID, desiredItemID int64, message string) (*model.Troca, error) {
	if proposerID == 0 {
		return nil, fmt.Errorf("%w: not authenticated", model.ErrUnauthorized)
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	release, err := e.locks.acquire(ctx, itemKey(offeredItemID), itemKey(desiredItemID))
	if err != nil {
		return nil, unavailable(err)
	}
	defer release()

	tx, err := e.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, unavailable(err)
	}
	defer tx.Rollback()

	proposer, err := store.GetUser(ctx, tx, proposerID)
	if err != nil {
		return nil, unavailable(err)
	}
	if proposer == nil || proposer.DeletedAt != nil {
		return nil, fmt.Errorf("%w: unknown user %d", model.ErrUnauthorized, proposerID)
	}

	offered, err := store.GetItem(ctx, tx, offeredItemID)
	if err != nil {
		return nil, unavailable(err)
	}
	if offered == nil {
		return nil, fmt.Errorf("%w: item %d", model.ErrNotFound, offeredItemID)
	}
	desired, err := store.GetItem(ctx, tx, desiredItemID)
	if err != nil {
		return nil, unavailable(err)
	}
	if desired == nil {
		return nil, fmt.Errorf("%w: item %d", model.ErrNotFound, desiredItemID)
	}

	if desired.OwnerID == proposerID {
		return nil, fmt.Errorf("%w: item %d already belongs to user %d", model.ErrSelfTrade, desiredItemID, proposerID)
	}
	if offered.OwnerID != proposerID {
		return nil, fmt.Errorf("%w: item %d does not belong to user %d", model.ErrUnauthorized, offeredItemID, proposerID)
	}

	receiverActive, err := store.IsUserActive(ctx, tx, desired.OwnerID)
	if err != nil {
		return nil, unavailable(err)
	}
	if !receiverActive {
		return nil, fmt.Errorf("%w: owner of item %d is no longer active", model.ErrItemUnavailable, desiredItemID)
	}

	for _, item := range []*model.Item{offered, desired} {
		if !item.Available() {
			return nil, fmt.Errorf("%w: item %d is %s", model.ErrItemUnavailable, item.ID, describeItemState(item))
		}
		open, err := store.OpenTrocaForItem(ctx, tx, item.ID, 0)
		if err != nil {
			return nil, unavailable(err)
		}
		if open != nil {
			return nil, fmt.Errorf("%w: item %d is held by troca %d", model.ErrItemUnavailable, item.ID, open.ID)
		}
	}

	now := e.now().UTC()
	t, err := store.CreateTroca(ctx, tx, &model.Troca{
		ProposerID:    proposerID,
		ReceiverID:    desired.OwnerID,
		OfferedItemID: offeredItemID,
		DesiredItemID: desiredItemID,
		Status:        model.TrocaStatusPending,
		Message:       message,
		CreatedAt:     now,
		UpdatedAt:     now,
	})
	if err != nil {
		return nil, unavailable(err)
	}

	if err := tx.Commit(); err != nil {
		return nil, unavailable(err)
	}

	e.logger.Info("troca proposed", "troca", t.ID, "proposer", proposerID, "receiver", t.ReceiverID,
		"offered", offeredItemID, "desired", desiredItemID)
	return t, nil
}

// Accept moves a pending troca to accepted and locks both items in the exchange.
func (e *Engine) Accept(ctx context.Context, trocaID, callerID int64) (*model.Troca, error) {
	return e.command(ctx, "accepted", trocaID, callerID, func(ctx context.Context, tx *sql.Tx, t *model.Troca, now time.Time) (bool, error) {
		if err := t.Accept(callerID, now); err != nil {
			return false, err
		}
		if err := e.checkItems(ctx, tx, t, model.ItemStatusActive); err != nil {
			return false, err
		}
		if err := e.setItems(ctx, tx, t, model.ItemStatusInExchange, now); err != nil {
			return false, err
		}
		return true, nil
	})
}

// Reject closes a pending troca on the receiver's behalf. Items stay active.
func (e *Engine) Reject(ctx context.Context, trocaID, callerID int64) (*model.Troca, error) {
	return e.command(ctx, "rejected", trocaID, callerID, func(ctx context.Context, tx *sql.Tx, t *model.Troca, now time.Time) (bool, error) {
		if err := t.Reject(callerID, now); err != nil {
			return false, err
		}
		return true, nil
	})
}

// Cancel closes a pending or accepted troca on either party's behalf. Items
// locked by an accepted troca return to active, provided nothing else has
// touched them in the meantime.
func (e *Engine) Cancel(ctx context.Context, trocaID, callerID int64) (*model.Troca, error) {
	return e.command(ctx, "cancelled", trocaID, callerID, func(ctx context.Context, tx *sql.Tx, t *model.Troca, now time.Time) (bool, error) {
		release, err := t.Cancel(callerID, now)
		if err != nil {
			return false, err
		}
		if !release {
			return true, nil
		}
		if err := e.checkItems(ctx, tx, t, model.ItemStatusInExchange); err != nil {
			return false, err
		}
		if err := e.setItems(ctx, tx, t, model.ItemStatusActive, now); err != nil {
			return false, err
		}
		return true, nil
	})
}

// ConfirmFinalizacao records the caller's confirmation. The second party's
// confirmation finalizes the troca and retires both items as historic.
func (e *Engine) ConfirmFinalizacao(ctx context.Context, trocaID, callerID int64) (*model.Troca, error) {
	return e.command(ctx, "confirmed", trocaID, callerID, func(ctx context.Context, tx *sql.Tx, t *model.Troca, now time.Time) (bool, error) {
		finalized, changed, err := t.Confirm(callerID, now)
		if err != nil || !changed {
			return false, err
		}
		if err := e.checkItems(ctx, tx, t, model.ItemStatusInExchange); err != nil {
			return false, err
		}
		if finalized {
			if err := e.setItems(ctx, tx, t, model.ItemStatusHistoric, now); err != nil {
				return false, err
			}
		}
		return true, nil
	})
}

// applyFunc transitions next in place and applies item side effects within
// tx. It reports whether anything changed; returning a *conflictError routes
// the troca to conflict.
type applyFunc func(ctx context.Context, tx *sql.Tx, next *model.Troca, now time.Time) (bool, error)

func (e *Engine) command(ctx context.Context, event string, trocaID, callerID int64, apply applyFunc) (*model.Troca, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	// The item ids of a troca never change, so an unlocked read is enough to
	// know which keys to lock.
	current, err := store.GetTroca(ctx, e.db, trocaID)
	if err != nil {
		return nil, unavailable(err)
	}
	if current == nil {
		return nil, fmt.Errorf("%w: troca %d", model.ErrNotFound, trocaID)
	}

	release, err := e.locks.acquire(ctx, trocaKey(trocaID), itemKey(current.OfferedItemID), itemKey(current.DesiredItemID))
	if err != nil {
		return nil, unavailable(err)
	}
	defer release()

	tx, err := e.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, unavailable(err)
	}
	defer tx.Rollback()

	t, err := store.GetTroca(ctx, tx, trocaID)
	if err != nil {
		return nil, unavailable(err)
	}
	if t == nil {
		return nil, fmt.Errorf("%w: troca %d", model.ErrNotFound, trocaID)
	}

	active, err := store.IsUserActive(ctx, tx, callerID)
	if err != nil {
		return nil, unavailable(err)
	}
	if !active {
		return nil, fmt.Errorf("%w: user %d is not an active account", model.ErrUnauthorized, callerID)
	}

	now := e.now().UTC()
	next := *t
	changed, err := apply(ctx, tx, &next, now)

	var conflict *conflictError
	if errors.As(err, &conflict) {
		return e.recordConflict(ctx, tx, t, conflict.reason, now)
	}
	if err != nil {
		return nil, err
	}
	if !changed {
		return t, nil
	}

	if err := store.UpdateTroca(ctx, tx, &next); err != nil {
		return nil, unavailable(err)
	}
	if err := tx.Commit(); err != nil {
		return nil, unavailable(err)
	}

	e.logger.Info("troca "+event, "troca", next.ID, "status", next.Status,
		"proposer_confirmed", next.ProposerConfirmed, "receiver_confirmed", next.ReceiverConfirmed)
	return &next, nil
}

// recordConflict commits t as conflict and reports ErrConflictDetected with
// the committed record. Items are left exactly as found.
func (e *Engine) recordConflict(ctx context.Context, tx *sql.Tx, t *model.Troca, reason string, now time.Time) (*model.Troca, error) {
	t.MarkConflict(reason, now)
	if err := store.UpdateTroca(ctx, tx, t); err != nil {
		return nil, unavailable(err)
	}
	if err := tx.Commit(); err != nil {
		return nil, unavailable(err)
	}

	e.logger.Warn("troca conflict, manual review required", "troca", t.ID, "reason", reason)
	return t, fmt.Errorf("%w: troca %d: %s", model.ErrConflictDetected, t.ID, reason)
}

// checkItems verifies that both items still belong to their parties, carry
// the expected status and are not claimed by another open troca.
func (e *Engine) checkItems(ctx context.Context, tx *sql.Tx, t *model.Troca, want string) error {
	sides := []struct {
		label   string
		itemID  int64
		ownerID int64
	}{
		{"offered", t.OfferedItemID, t.ProposerID},
		{"desired", t.DesiredItemID, t.ReceiverID},
	}

	for _, side := range sides {
		item, err := store.GetItem(ctx, tx, side.itemID)
		if err != nil {
			return unavailable(err)
		}
		switch {
		case item == nil:
			return conflictf("%s item %d no longer exists", side.label, side.itemID)
		case item.DeletedAt != nil:
			return conflictf("%s item %d was deleted", side.label, side.itemID)
		case item.OwnerID != side.ownerID:
			return conflictf("%s item %d belongs to user %d, expected %d", side.label, side.itemID, item.OwnerID, side.ownerID)
		case item.StatusPosse != want:
			return conflictf("%s item %d is %s, expected %s", side.label, side.itemID, item.StatusPosse, want)
		}

		other, err := store.OpenTrocaForItem(ctx, tx, side.itemID, t.ID)
		if err != nil {
			return unavailable(err)
		}
		if other != nil {
			return conflictf("%s item %d is claimed by troca %d", side.label, side.itemID, other.ID)
		}
	}
	return nil
}

func (e *Engine) setItems(ctx context.Context, tx *sql.Tx, t *model.Troca, status string, now time.Time) error {
	for _, id := range []int64{t.OfferedItemID, t.DesiredItemID} {
		if _, err := store.SetItemStatus(ctx, tx, id, status, now); err != nil {
			return unavailable(err)
		}
	}
	return nil
}

func describeItemState(item *model.Item) string {
	if item.DeletedAt != nil {
		return "deleted"
	}
	return item.StatusPosse
}
