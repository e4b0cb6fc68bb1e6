package database

import (
	"context"
	"fmt"
)

// The partial unique index is what makes CreateNewSession atomic: a user can
// never hold two rows with left_at IS NULL.
const schema = `
CREATE TABLE IF NOT EXISTS sessions (
	id BIGSERIAL PRIMARY KEY,
	user_id BIGINT NOT NULL,
	joined_at TIMESTAMPTZ NOT NULL,
	left_at TIMESTAMPTZ,
	CONSTRAINT sessions_interval CHECK (left_at IS NULL OR left_at >= joined_at)
);

CREATE UNIQUE INDEX IF NOT EXISTS sessions_open_per_user
	ON sessions (user_id) WHERE left_at IS NULL;

CREATE INDEX IF NOT EXISTS sessions_user_idx ON sessions (user_id);
`

// Migrate applies the schema. The DDL is idempotent, so it runs on every boot.
func (db *DB) Migrate(ctx context.Context) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}
