package store

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/trocaroupa/trocas/internal/model"
)

func testItemInput(name string) ItemInput {
	return ItemInput{
		Name:      name,
		Category:  "casaco",
		Size:      "M",
		Condition: "seminovo",
	}
}

type pair struct {
	proposer, receiver *model.User
	offered, desired   *model.Item
}

// seedPair creates two users with one listing each.
func seedPair(t *testing.T, database *sql.DB) pair {
	t.Helper()
	ctx := context.Background()

	proposer, err := CreateUser(ctx, database, "Proponente", "p@example.com", "hash", model.RoleUser)
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	receiver, err := CreateUser(ctx, database, "Receptor", "r@example.com", "hash", model.RoleUser)
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	offered, err := CreateItem(ctx, database, proposer.ID, testItemInput("Jaqueta jeans"))
	if err != nil {
		t.Fatalf("CreateItem: %v", err)
	}
	desired, err := CreateItem(ctx, database, receiver.ID, testItemInput("Casaco de la"))
	if err != nil {
		t.Fatalf("CreateItem: %v", err)
	}
	return pair{proposer: proposer, receiver: receiver, offered: offered, desired: desired}
}

func newPendingTroca(f pair) *model.Troca {
	now := time.Now().UTC()
	return &model.Troca{
		ProposerID:    f.proposer.ID,
		ReceiverID:    f.receiver.ID,
		OfferedItemID: f.offered.ID,
		DesiredItemID: f.desired.ID,
		Status:        model.TrocaStatusPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}
