package db

import (
	"context"
	"path/filepath"
	"testing"
)

func TestOpenAppliesPragmasPerConnection(t *testing.T) {
	database, err := Open(filepath.Join(t.TempDir(), "pragmas.sqlite3"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer database.Close()

	ctx := context.Background()

	// Pin two distinct connections and check both.
	c1, err := database.Conn(ctx)
	if err != nil {
		t.Fatalf("Conn: %v", err)
	}
	defer c1.Close()
	c2, err := database.Conn(ctx)
	if err != nil {
		t.Fatalf("Conn: %v", err)
	}
	defer c2.Close()

	var fk int
	if err := c1.QueryRowContext(ctx, "PRAGMA foreign_keys").Scan(&fk); err != nil {
		t.Fatalf("reading foreign_keys: %v", err)
	}
	if fk != 1 {
		t.Errorf("expected foreign_keys=1 on first connection, got %d", fk)
	}
	if err := c2.QueryRowContext(ctx, "PRAGMA foreign_keys").Scan(&fk); err != nil {
		t.Fatalf("reading foreign_keys: %v", err)
	}
	if fk != 1 {
		t.Errorf("expected foreign_keys=1 on second connection, got %d", fk)
	}

	var timeout int
	if err := c2.QueryRowContext(ctx, "PRAGMA busy_timeout").Scan(&timeout); err != nil {
		t.Fatalf("reading busy_timeout: %v", err)
	}
	if timeout != 5000 {
		t.Errorf("expected busy_timeout=5000, got %d", timeout)
	}
}

func TestEnsureSchemaIdempotent(t *testing.T) {
	database := NewTestDB(t)
	if err := EnsureSchema(database); err != nil {
		t.Fatalf("second EnsureSchema: %v", err)
	}
}

func TestTrocaConfirmationCheck(t *testing.T) {
	database := NewTestDB(t)

	// Both flags set on one row is never a valid stored state.
	_, err := database.Exec(`
		INSERT INTO users (id, name, email, password_hash) VALUES (1, 'a', 'a@x.io', 'h'), (2, 'b', 'b@x.io', 'h');
		INSERT INTO items (id, owner_id, name, category, size, condition) VALUES (10, 1, 'x', 'outro', 'M', 'usado'), (20, 2, 'y', 'outro', 'M', 'usado');
	`)
	if err != nil {
		t.Fatalf("seeding: %v", err)
	}

	_, err = database.Exec(`INSERT INTO trocas (proposer_id, receiver_id, offered_item_id, desired_item_id, status, proposer_confirmed, receiver_confirmed)
		VALUES (1, 2, 10, 20, 'accepted', 1, 1)`)
	if err == nil {
		t.Error("expected check constraint violation for two confirmations")
	}

	_, err = database.Exec(`INSERT INTO trocas (proposer_id, receiver_id, offered_item_id, desired_item_id, status, proposer_confirmed)
		VALUES (1, 2, 10, 20, 'pending', 1)`)
	if err == nil {
		t.Error("expected check constraint violation for confirmation outside accepted")
	}
}
