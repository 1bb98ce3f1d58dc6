package postgres

import (
	"context"
	"fmt"
)

const dropSQL = `
DROP TABLE IF EXISTS check_alerts;
DROP TABLE IF EXISTS check_results;
DROP TABLE IF EXISTS notification_addresses;
DROP TABLE IF EXISTS check_definitions;
`

const schemaSQL = `
CREATE TABLE IF NOT EXISTS check_definitions (
  id              BIGSERIAL PRIMARY KEY,
  url             TEXT NOT NULL UNIQUE,
  frequency       INTEGER NOT NULL CHECK (frequency > 0),
  expected_status INTEGER NOT NULL,
  expected_string TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS notification_addresses (
  id            BIGSERIAL PRIMARY KEY,
  check_id      BIGINT NOT NULL REFERENCES check_definitions(id) ON DELETE CASCADE,
  email_address TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS check_results (
  id           BIGSERIAL PRIMARY KEY,
  check_id     BIGINT NOT NULL REFERENCES check_definitions(id) ON DELETE CASCADE,
  time_checked TIMESTAMPTZ NOT NULL,
  status_code  INTEGER NOT NULL,
  state        TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS check_alerts (
  check_id     BIGINT PRIMARY KEY REFERENCES check_definitions(id) ON DELETE CASCADE,
  failures     INTEGER NOT NULL DEFAULT 0,
  last_state   TEXT NOT NULL DEFAULT '',
  last_sent_at TIMESTAMPTZ NULL
);

CREATE INDEX IF NOT EXISTS idx_addresses_check     ON notification_addresses (check_id);
CREATE INDEX IF NOT EXISTS idx_results_check_time  ON check_results (check_id, time_checked DESC);
`

// EnsureSchema creates the tables, dropping existing ones first when drop is set.
func (s *Store) EnsureSchema(ctx context.Context, drop bool) error {
	if drop {
		if _, err := s.pool.Exec(ctx, dropSQL); err != nil {
			return fmt.Errorf("drop schema: %w", err)
		}
		s.log.Warn("db_schema_dropped")
	}
	if _, err := s.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}
