package model

import (
	"fmt"
	"time"
)

// Troca is an item-for-item exchange proposal between two users.
type Troca struct {
	ID                int64      `json:"id"`
	ProposerID        int64      `json:"proposer_id"`
	ReceiverID        int64      `json:"receiver_id"`
	OfferedItemID     int64      `json:"offered_item_id"`
	DesiredItemID     int64      `json:"desired_item_id"`
	Status            string     `json:"status"`
	ProposerConfirmed bool       `json:"proposer_confirmed"`
	ReceiverConfirmed bool       `json:"receiver_confirmed"`
	Message           string     `json:"message,omitempty"`
	ConflictReason    string     `json:"conflict_reason,omitempty"`
	AcceptedAt        *time.Time `json:"accepted_at,omitempty"`
	FinalizedAt       *time.Time `json:"finalized_at,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`

	// Joined fields (not always populated).
	ProposerName    string `json:"proposer_name,omitempty"`
	ReceiverName    string `json:"receiver_name,omitempty"`
	OfferedItemName string `json:"offered_item_name,omitempty"`
	DesiredItemName string `json:"desired_item_name,omitempty"`
}

// Troca statuses.
const (
	TrocaStatusPending   = "pending"
	TrocaStatusAccepted  = "accepted"
	TrocaStatusRejected  = "rejected"
	TrocaStatusFinalized = "finalized"
	TrocaStatusCancelled = "cancelled"
	TrocaStatusConflict  = "conflict"
)

// TrocaStatuses lists every status in lifecycle order.
var TrocaStatuses = []string{
	TrocaStatusPending,
	TrocaStatusAccepted,
	TrocaStatusRejected,
	TrocaStatusFinalized,
	TrocaStatusCancelled,
	TrocaStatusConflict,
}

// Roles a user can play in a troca, used to filter listings.
const (
	TrocaRoleSent     = "sent"
	TrocaRoleReceived = "received"
)

// IsTerminal reports whether no further transition is allowed from status.
func IsTerminal(status string) bool {
	switch status {
	case TrocaStatusFinalized, TrocaStatusRejected, TrocaStatusCancelled, TrocaStatusConflict:
		return true
	}
	return false
}

// IsOpen reports whether status locks the referenced items.
func IsOpen(status string) bool {
	return status == TrocaStatusPending || status == TrocaStatusAccepted
}

// IsParty reports whether userID is the proposer or the receiver.
func (t *Troca) IsParty(userID int64) bool {
	return userID != 0 && (userID == t.ProposerID || userID == t.ReceiverID)
}

// LastActivity returns the timestamp used to order trocas by recency.
func (t *Troca) LastActivity() time.Time {
	switch {
	case t.FinalizedAt != nil:
		return *t.FinalizedAt
	case t.AcceptedAt != nil:
		return *t.AcceptedAt
	default:
		return t.CreatedAt
	}
}

// checkParty applies the checks shared by every command on an existing troca:
// a non-party is refused before anything about the record is revealed, and
// terminal records accept nothing.
func (t *Troca) checkParty(callerID int64) error {
	if !t.IsParty(callerID) {
		return fmt.Errorf("%w: user %d is not a party to troca %d", ErrUnauthorized, callerID, t.ID)
	}
	if IsTerminal(t.Status) {
		return fmt.Errorf("%w: troca %d is %s", ErrInvalidState, t.ID, t.Status)
	}
	return nil
}

// Accept moves a pending troca to accepted. Only the receiver may accept.
func (t *Troca) Accept(callerID int64, now time.Time) error {
	if err := t.checkParty(callerID); err != nil {
		return err
	}
	if callerID != t.ReceiverID {
		return fmt.Errorf("%w: only the receiver can accept troca %d", ErrUnauthorized, t.ID)
	}
	if t.Status != TrocaStatusPending {
		return fmt.Errorf("%w: cannot accept troca %d in status %s", ErrInvalidState, t.ID, t.Status)
	}
	t.Status = TrocaStatusAccepted
	t.AcceptedAt = &now
	t.ProposerConfirmed = false
	t.ReceiverConfirmed = false
	t.UpdatedAt = now
	return nil
}

// Reject moves a pending troca to rejected. Only the receiver may reject.
func (t *Troca) Reject(callerID int64, now time.Time) error {
	if err := t.checkParty(callerID); err != nil {
		return err
	}
	if callerID != t.ReceiverID {
		return fmt.Errorf("%w: only the receiver can reject troca %d", ErrUnauthorized, t.ID)
	}
	if t.Status != TrocaStatusPending {
		return fmt.Errorf("%w: cannot reject troca %d in status %s", ErrInvalidState, t.ID, t.Status)
	}
	t.Status = TrocaStatusRejected
	t.UpdatedAt = now
	return nil
}

// Cancel moves a pending or accepted troca to cancelled. Either party may
// cancel. It reports whether the items were locked in the exchange and so
// must be released.
func (t *Troca) Cancel(callerID int64, now time.Time) (release bool, err error) {
	if err := t.checkParty(callerID); err != nil {
		return false, err
	}
	release = t.Status == TrocaStatusAccepted
	t.Status = TrocaStatusCancelled
	t.ProposerConfirmed = false
	t.ReceiverConfirmed = false
	t.UpdatedAt = now
	return release, nil
}

// Confirm records the caller's confirmation that the physical exchange
// happened. It reports whether this confirmation completed the pair, in which
// case the troca is now finalized. A repeated confirmation is a no-op.
func (t *Troca) Confirm(callerID int64, now time.Time) (finalized bool, changed bool, err error) {
	if err := t.checkParty(callerID); err != nil {
		return false, false, err
	}
	if t.Status != TrocaStatusAccepted {
		return false, false, fmt.Errorf("%w: cannot confirm troca %d in status %s", ErrInvalidState, t.ID, t.Status)
	}

	flag := &t.ReceiverConfirmed
	if callerID == t.ProposerID {
		flag = &t.ProposerConfirmed
	}
	if *flag {
		return false, false, nil
	}
	*flag = true
	t.UpdatedAt = now

	if t.ProposerConfirmed && t.ReceiverConfirmed {
		// Flags only carry meaning while accepted.
		t.Status = TrocaStatusFinalized
		t.FinalizedAt = &now
		t.ProposerConfirmed = false
		t.ReceiverConfirmed = false
		return true, true, nil
	}
	return false, true, nil
}

// MarkConflict flags a non-terminal troca for manual review.
func (t *Troca) MarkConflict(reason string, now time.Time) {
	t.Status = TrocaStatusConflict
	t.ConflictReason = reason
	t.ProposerConfirmed = false
	t.ReceiverConfirmed = false
	t.UpdatedAt = now
}
