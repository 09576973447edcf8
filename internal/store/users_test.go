package store

import (
	"context"
	"errors"
	"testing"

	"github.com/trocaroupa/trocas/internal/db"
	"github.com/trocaroupa/trocas/internal/model"
)

func TestCreateAndGetUser(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	user, err := CreateUser(ctx, database, "Ana", "ana@example.com", "hash123", model.RoleUser)
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if user.Email != "ana@example.com" {
		t.Errorf("expected email 'ana@example.com', got %q", user.Email)
	}
	if user.Role != model.RoleUser {
		t.Errorf("expected role 'user', got %q", user.Role)
	}

	got, err := GetUser(ctx, database, user.ID)
	if err != nil {
		t.Fatalf("GetUser: %v", err)
	}
	if got.Name != "Ana" {
		t.Errorf("expected name 'Ana', got %q", got.Name)
	}
}

func TestGetUserByEmail(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	CreateUser(ctx, database, "Alice", "alice@example.com", "hash", model.RoleAdmin)

	user, err := GetUserByEmail(ctx, database, "alice@example.com")
	if err != nil {
		t.Fatalf("GetUserByEmail: %v", err)
	}
	if user == nil {
		t.Fatal("expected user, got nil")
	}

	missing, err := GetUserByEmail(ctx, database, "bob@example.com")
	if err != nil {
		t.Fatalf("GetUserByEmail: %v", err)
	}
	if missing != nil {
		t.Error("expected nil for missing user")
	}
}

func TestDuplicateEmailRejected(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	if _, err := CreateUser(ctx, database, "A", "dup@example.com", "hash", model.RoleUser); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if _, err := CreateUser(ctx, database, "B", "dup@example.com", "hash", model.RoleUser); !errors.Is(err, model.ErrEmailTaken) {
		t.Errorf("duplicate email: got %v, want ErrEmailTaken", err)
	}
}

func TestDeleteUser(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	user, _ := CreateUser(ctx, database, "Del", "del@example.com", "hash", model.RoleUser)
	item, _ := CreateItem(ctx, database, user.ID, testItemInput("Jaqueta"))

	if active, err := IsUserActive(ctx, database, user.ID); err != nil || !active {
		t.Fatalf("IsUserActive before delete: %v %v", active, err)
	}

	if err := DeleteUser(ctx, database, user.ID); err != nil {
		t.Fatalf("DeleteUser: %v", err)
	}

	if active, err := IsUserActive(ctx, database, user.ID); err != nil || active {
		t.Errorf("IsUserActive after delete: %v %v", active, err)
	}
	if active, _ := IsUserActive(ctx, database, 9999); active {
		t.Error("unknown user reported active")
	}

	users, _ := ListUsers(ctx, database)
	if len(users) != 0 {
		t.Errorf("expected 0 users after delete, got %d", len(users))
	}

	got, _ := GetItem(ctx, database, item.ID)
	if got.DeletedAt == nil {
		t.Error("expected listing to be deleted with its owner")
	}

	// The email can be reused once the old account is gone.
	if _, err := CreateUser(ctx, database, "Del2", "del@example.com", "hash", model.RoleUser); err != nil {
		t.Errorf("expected email reuse after delete, got %v", err)
	}
}

func TestDeleteUserWithOpenTroca(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	f := seedPair(t, database)
	if _, err := CreateTroca(ctx, database, newPendingTroca(f)); err != nil {
		t.Fatalf("CreateTroca: %v", err)
	}

	if err := DeleteUser(ctx, database, f.proposer.ID); err == nil {
		t.Error("expected error deleting a user with an open troca")
	}
}

func TestUpdateUserPassword(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	user, _ := CreateUser(ctx, database, "Pw", "pw@example.com", "oldhash", model.RoleUser)
	UpdateUserPassword(ctx, database, user.ID, "newhash")

	got, _ := GetUser(ctx, database, user.ID)
	if got.PasswordHash != "newhash" {
		t.Errorf("expected password hash 'newhash', got %q", got.PasswordHash)
	}
}
