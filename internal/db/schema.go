package db

import (
	"database/sql"
	"fmt"
)

// schema is the full database schema.
const schema = `
CREATE TABLE IF NOT EXISTS users (
    id            INTEGER PRIMARY KEY,
    name          TEXT NOT NULL,
    email         TEXT NOT NULL,
    password_hash TEXT NOT NULL,
    role          TEXT NOT NULL DEFAULT 'user' CHECK (role IN ('admin', 'user')),
    created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    deleted_at    DATETIME
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_users_email_active
    ON users(email) WHERE deleted_at IS NULL;

CREATE TABLE IF NOT EXISTS items (
    id           INTEGER PRIMARY KEY,
    owner_id     INTEGER NOT NULL REFERENCES users(id),
    name         TEXT NOT NULL,
    description  TEXT,
    category     TEXT NOT NULL,
    size         TEXT NOT NULL,
    condition    TEXT NOT NULL,
    fabric       TEXT,
    color        TEXT,
    image        BLOB,
    thumb        BLOB,
    image_mime   TEXT,
    status_posse TEXT NOT NULL DEFAULT 'active' CHECK (status_posse IN ('active', 'in_exchange', 'historic')),
    created_at   DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at   DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    deleted_at   DATETIME
);

CREATE INDEX IF NOT EXISTS idx_items_owner ON items(owner_id);

CREATE TABLE IF NOT EXISTS trocas (
    id                 INTEGER PRIMARY KEY,
    proposer_id        INTEGER NOT NULL REFERENCES users(id),
    receiver_id        INTEGER NOT NULL REFERENCES users(id),
    offered_item_id    INTEGER NOT NULL REFERENCES items(id),
    desired_item_id    INTEGER NOT NULL REFERENCES items(id),
    status             TEXT NOT NULL DEFAULT 'pending'
                       CHECK (status IN ('pending', 'accepted', 'rejected', 'finalized', 'cancelled', 'conflict')),
    proposer_confirmed INTEGER NOT NULL DEFAULT 0,
    receiver_confirmed INTEGER NOT NULL DEFAULT 0,
    message            TEXT,
    conflict_reason    TEXT,
    accepted_at        DATETIME,
    finalized_at       DATETIME,
    created_at         DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at         DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    CHECK (proposer_id <> receiver_id),
    CHECK (offered_item_id <> desired_item_id),
    CHECK (status = 'accepted' OR (proposer_confirmed = 0 AND receiver_confirmed = 0)),
    CHECK (NOT (proposer_confirmed = 1 AND receiver_confirmed = 1))
);

CREATE INDEX IF NOT EXISTS idx_trocas_proposer ON trocas(proposer_id, status);
CREATE INDEX IF NOT EXISTS idx_trocas_receiver ON trocas(receiver_id, status);
CREATE INDEX IF NOT EXISTS idx_trocas_offered ON trocas(offered_item_id) WHERE status IN ('pending', 'accepted');
CREATE INDEX IF NOT EXISTS idx_trocas_desired ON trocas(desired_item_id) WHERE status IN ('pending', 'accepted');

CREATE TABLE IF NOT EXISTS settings (
    key   TEXT PRIMARY KEY,
    value TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS revoked_tokens (
    jti        TEXT PRIMARY KEY,
    expires_at DATETIME NOT NULL
);
`

// EnsureSchema creates all tables and indexes if they don't already exist.
func EnsureSchema(db *sql.DB) error {
	_, err := db.Exec(schema)
	if err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}
	return nil
}
