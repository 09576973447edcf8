package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/trocaroupa/trocas/internal/model"
)

// TrocaFilter narrows ListTrocas and CountTrocas. Zero values disable a filter.
type TrocaFilter struct {
	// UserID restricts to trocas where the user is a party; combined with
	// Role it restricts to one side.
	UserID int64
	Role   string
	Status string

	// Limit caps ListTrocas; CountTrocas ignores it.
	Limit int
}

const trocaSelect = `SELECT t.id, t.proposer_id, t.receiver_id, t.offered_item_id, t.desired_item_id, t.status,
	       t.proposer_confirmed, t.receiver_confirmed, t.message, t.conflict_reason,
	       t.accepted_at, t.finalized_at, t.created_at, t.updated_at,
	       pu.name AS proposer_name, ru.name AS receiver_name,
	       oi.name AS offered_item_name, di.name AS desired_item_name
	FROM trocas t
	JOIN users pu ON pu.id = t.proposer_id
	JOIN users ru ON ru.id = t.receiver_id
	JOIN items oi ON oi.id = t.offered_item_id
	JOIN items di ON di.id = t.desired_item_id`

// trocaOrder sorts by most recent activity: finalization, else acceptance,
// else creation.
const trocaOrder = ` ORDER BY COALESCE(t.finalized_at, t.accepted_at, t.created_at) DESC, t.id DESC`

func scanTroca(s rowScanner) (*model.Troca, error) {
	t := &model.Troca{}
	var message, reason sql.NullString
	err := s.Scan(&t.ID, &t.ProposerID, &t.ReceiverID, &t.OfferedItemID, &t.DesiredItemID, &t.Status,
		&t.ProposerConfirmed, &t.ReceiverConfirmed, &message, &reason,
		&t.AcceptedAt, &t.FinalizedAt, &t.CreatedAt, &t.UpdatedAt,
		&t.ProposerName, &t.ReceiverName, &t.OfferedItemName, &t.DesiredItemName)
	if err != nil {
		return nil, err
	}
	t.Message = message.String
	t.ConflictReason = reason.String
	return t, nil
}

// CreateTroca inserts a new troca and returns it with joined names.
func CreateTroca(ctx context.Context, db DBTX, t *model.Troca) (*model.Troca, error) {
	result, err := db.ExecContext(ctx,
		`INSERT INTO trocas (proposer_id, receiver_id, offered_item_id, desired_item_id, status, message, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ProposerID, t.ReceiverID, t.OfferedItemID, t.DesiredItemID, t.Status, t.Message, t.CreatedAt, t.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("creating troca: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting troca id: %w", err)
	}

	return GetTroca(ctx, db, id)
}

// GetTroca returns a troca by ID.
func GetTroca(ctx context.Context, db DBTX, id int64) (*model.Troca, error) {
	t, err := scanTroca(db.QueryRowContext(ctx, trocaSelect+` WHERE t.id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting troca: %w", err)
	}
	return t, nil
}

// UpdateTroca persists the mutable lifecycle fields of t.
func UpdateTroca(ctx context.Context, db DBTX, t *model.Troca) error {
	result, err := db.ExecContext(ctx,
		`UPDATE trocas SET status = ?, proposer_confirmed = ?, receiver_confirmed = ?, conflict_reason = ?,
		        accepted_at = ?, finalized_at = ?, updated_at = ?
		 WHERE id = ?`,
		t.Status, t.ProposerConfirmed, t.ReceiverConfirmed, nullString(t.ConflictReason),
		t.AcceptedAt, t.FinalizedAt, t.UpdatedAt, t.ID,
	)
	if err != nil {
		return fmt.Errorf("updating troca: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("updating troca: troca %d not found", t.ID)
	}
	return nil
}

// OpenTrocaForItem returns the pending or accepted troca that references
// itemID on either side, ignoring excludeID. Returns nil if there is none.
func OpenTrocaForItem(ctx context.Context, db DBTX, itemID, excludeID int64) (*model.Troca, error) {
	t, err := scanTroca(db.QueryRowContext(ctx,
		trocaSelect+` WHERE (t.offered_item_id = ? OR t.desired_item_id = ?)
		   AND t.status IN ('pending', 'accepted') AND t.id <> ?
		 ORDER BY t.id LIMIT 1`,
		itemID, itemID, excludeID,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("checking open trocas for item: %w", err)
	}
	return t, nil
}

// ListTrocas returns trocas matching the filter, most recent activity first.
func ListTrocas(ctx context.Context, db DBTX, f TrocaFilter) ([]model.Troca, error) {
	where, args, err := trocaWhere(f)
	if err != nil {
		return nil, err
	}

	query := trocaSelect + where + trocaOrder
	if f.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, f.Limit)
	}

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing trocas: %w", err)
	}
	defer rows.Close()

	var trocas []model.Troca
	for rows.Next() {
		t, err := scanTroca(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning troca: %w", err)
		}
		trocas = append(trocas, *t)
	}
	return trocas, rows.Err()
}

// CountTrocas counts trocas matching the filter.
func CountTrocas(ctx context.Context, db DBTX, f TrocaFilter) (int, error) {
	where, args, err := trocaWhere(f)
	if err != nil {
		return 0, err
	}

	var count int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM trocas t`+where, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("counting trocas: %w", err)
	}
	return count, nil
}

func trocaWhere(f TrocaFilter) (string, []any, error) {
	where := ` WHERE 1=1`
	var args []any

	switch f.Role {
	case "":
		if f.UserID > 0 {
			where += ` AND (t.proposer_id = ? OR t.receiver_id = ?)`
			args = append(args, f.UserID, f.UserID)
		}
	case model.TrocaRoleSent:
		where += ` AND t.proposer_id = ?`
		args = append(args, f.UserID)
	case model.TrocaRoleReceived:
		where += ` AND t.receiver_id = ?`
		args = append(args, f.UserID)
	default:
		return "", nil, fmt.Errorf("invalid troca role %q", f.Role)
	}

	if f.Status != "" {
		where += ` AND t.status = ?`
		args = append(args, f.Status)
	}
	return where, args, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
