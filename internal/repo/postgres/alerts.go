package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/hamed0406/urlchecker/internal/repo"
)

func (s *Store) GetAlert(ctx context.Context, checkID int64) (*repo.AlertRecord, error) {
	const q = `SELECT failures, last_state, last_sent_at FROM check_alerts WHERE check_id = $1`
	r := repo.AlertRecord{CheckID: checkID}
	err := s.pool.QueryRow(ctx, q, checkID).Scan(&r.Failures, &r.LastState, &r.LastSentAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get alert: %w", err)
	}
	return &r, nil
}

func (s *Store) SetAlert(ctx context.Context, rec repo.AlertRecord) error {
	const q = `
		INSERT INTO check_alerts (check_id, failures, last_state, last_sent_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (check_id)
		DO UPDATE SET failures = EXCLUDED.failures,
		              last_state = EXCLUDED.last_state,
		              last_sent_at = EXCLUDED.last_sent_at
	`
	if _, err := s.pool.Exec(ctx, q, rec.CheckID, rec.Failures, rec.LastState, rec.LastSentAt); err != nil {
		return fmt.Errorf("set alert: %w", mapErr(err))
	}
	return nil
}
