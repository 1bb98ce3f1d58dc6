package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/hamed0406/urlchecker/internal/domain"
	"github.com/hamed0406/urlchecker/internal/repo"
)

var _ repo.Store = (*Store)(nil)

type Store struct {
	pool *pgxpool.Pool
	log  *zap.Logger
}

func New(ctx context.Context, dsn string, log *zap.Logger) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("pgxpool.New: %w", err)
	}
	ctxPing, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(ctxPing); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	return &Store{pool: pool, log: log}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// mapErr translates constraint violations into repo errors.
func mapErr(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return repo.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			return repo.ErrConflict
		case "23503":
			return repo.ErrInvalidReference
		}
	}
	return err
}

// query accumulates WHERE conditions with positional arguments.
type query struct {
	conds []string
	args  []any
}

func (q *query) arg(v any) string {
	q.args = append(q.args, v)
	return fmt.Sprintf("$%d", len(q.args))
}

func (q *query) where() string {
	if len(q.conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(q.conds, " AND ")
}

// tail renders ORDER BY and the LIMIT/OFFSET window for lq.
func tail(lq repo.ListQuery, column string, idColumn string) string {
	// NULL sorts as the smallest value, the same as the memory store.
	dir, nulls := "ASC", "NULLS FIRST"
	if lq.Desc() {
		dir, nulls = "DESC", "NULLS LAST"
	}
	out := fmt.Sprintf(" ORDER BY %s %s %s, %s %s", column, dir, nulls, idColumn, dir)
	if n := lq.Limit(); n >= 0 {
		out += fmt.Sprintf(" LIMIT %d", n)
	}
	if lq.Start > 0 {
		out += fmt.Sprintf(" OFFSET %d", lq.Start)
	}
	return out
}

func (s *Store) count(ctx context.Context, from string, q *query) (int, error) {
	var n int
	if err := s.pool.QueryRow(ctx, "SELECT count(*) FROM "+from+q.where(), q.args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count: %w", err)
	}
	return n, nil
}

// ---- CheckStore ----

var checkColumns = map[string]string{
	"id":             "id",
	"url":            "url",
	"frequency":      "frequency",
	"expectedStatus": "expected_status",
	"expectedString": "expected_string",
}

func (s *Store) CreateCheck(ctx context.Context, c *domain.CheckDefinition) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	err = tx.QueryRow(ctx,
		`INSERT INTO check_definitions (url, frequency, expected_status, expected_string)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id`,
		c.URL, c.Frequency, c.ExpectedStatus, c.ExpectedString,
	).Scan(&c.ID)
	if err != nil {
		return fmt.Errorf("insert check: %w", mapErr(err))
	}
	for i := range c.EmailAddresses {
		a := &c.EmailAddresses[i]
		a.CheckID = c.ID
		if err := tx.QueryRow(ctx,
			`INSERT INTO notification_addresses (check_id, email_address) VALUES ($1, $2) RETURNING id`,
			a.CheckID, a.EmailAddress,
		).Scan(&a.ID); err != nil {
			return fmt.Errorf("insert address: %w", mapErr(err))
		}
	}
	if c.EmailAddresses == nil {
		c.EmailAddresses = []domain.NotificationAddress{}
	}
	return tx.Commit(ctx)
}

func (s *Store) GetCheck(ctx context.Context, id int64) (*domain.CheckDefinition, error) {
	var c domain.CheckDefinition
	err := s.pool.QueryRow(ctx,
		`SELECT id, url, frequency, expected_status, expected_string
		   FROM check_definitions WHERE id = $1`, id,
	).Scan(&c.ID, &c.URL, &c.Frequency, &c.ExpectedStatus, &c.ExpectedString)
	if err != nil {
		return nil, fmt.Errorf("get check: %w", mapErr(err))
	}
	byCheck, err := s.addressesFor(ctx, []int64{id})
	if err != nil {
		return nil, err
	}
	c.EmailAddresses = byCheck[id]
	if c.EmailAddresses == nil {
		c.EmailAddresses = []domain.NotificationAddress{}
	}
	return &c, nil
}

func (s *Store) UpdateCheck(ctx context.Context, c *domain.CheckDefinition) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE check_definitions
		    SET url = $2, frequency = $3, expected_status = $4, expected_string = $5
		  WHERE id = $1`,
		c.ID, c.URL, c.Frequency, c.ExpectedStatus, c.ExpectedString,
	)
	if err != nil {
		return fmt.Errorf("update check: %w", mapErr(err))
	}
	if tag.RowsAffected() == 0 {
		return repo.ErrNotFound
	}
	byCheck, err := s.addressesFor(ctx, []int64{c.ID})
	if err != nil {
		return err
	}
	c.EmailAddresses = byCheck[c.ID]
	if c.EmailAddresses == nil {
		c.EmailAddresses = []domain.NotificationAddress{}
	}
	return nil
}

func (s *Store) DeleteCheck(ctx context.Context, id int64) error {
	// addresses, results and alert rows go with it through ON DELETE CASCADE
	tag, err := s.pool.Exec(ctx, `DELETE FROM check_definitions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete check: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repo.ErrNotFound
	}
	return nil
}

func (s *Store) ListChecks(ctx context.Context, lq repo.ListQuery) ([]domain.CheckDefinition, int, error) {
	q := &query{}
	if len(lq.IDs) > 0 {
		q.conds = append(q.conds, "id = ANY("+q.arg(lq.IDs)+")")
	}
	if lq.URLContains != "" {
		q.conds = append(q.conds, "strpos(lower(url), lower("+q.arg(lq.URLContains)+")) > 0")
	}
	total, err := s.count(ctx, "check_definitions", q)
	if err != nil {
		return nil, 0, err
	}
	col := checkColumns[lq.SortField(repo.CheckSortFields...)]
	rows, err := s.pool.Query(ctx,
		`SELECT id, url, frequency, expected_status, expected_string FROM check_definitions`+
			q.where()+tail(lq, col, "id"), q.args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list checks: %w", err)
	}
	defer rows.Close()

	out := []domain.CheckDefinition{}
	ids := []int64{}
	for rows.Next() {
		var c domain.CheckDefinition
		if err := rows.Scan(&c.ID, &c.URL, &c.Frequency, &c.ExpectedStatus, &c.ExpectedString); err != nil {
			return nil, 0, fmt.Errorf("scan check: %w", err)
		}
		out = append(out, c)
		ids = append(ids, c.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	byCheck, err := s.addressesFor(ctx, ids)
	if err != nil {
		return nil, 0, err
	}
	for i := range out {
		out[i].EmailAddresses = byCheck[out[i].ID]
		if out[i].EmailAddresses == nil {
			out[i].EmailAddresses = []domain.NotificationAddress{}
		}
	}
	return out, total, nil
}

func (s *Store) addressesFor(ctx context.Context, checkIDs []int64) (map[int64][]domain.NotificationAddress, error) {
	out := make(map[int64][]domain.NotificationAddress, len(checkIDs))
	if len(checkIDs) == 0 {
		return out, nil
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, check_id, email_address FROM notification_addresses
		  WHERE check_id = ANY($1) ORDER BY id`, checkIDs)
	if err != nil {
		return nil, fmt.Errorf("list addresses: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var a domain.NotificationAddress
		if err := rows.Scan(&a.ID, &a.CheckID, &a.EmailAddress); err != nil {
			return nil, fmt.Errorf("scan address: %w", err)
		}
		out[a.CheckID] = append(out[a.CheckID], a)
	}
	return out, rows.Err()
}

// ---- AddressStore ----

var addressColumns = map[string]string{
	"id":           "id",
	"checkId":      "check_id",
	"emailAddress": "email_address",
}

func (s *Store) CreateAddress(ctx context.Context, a *domain.NotificationAddress) error {
	err := s.pool.QueryRow(ctx,
		`INSERT INTO notification_addresses (check_id, email_address) VALUES ($1, $2) RETURNING id`,
		a.CheckID, a.EmailAddress,
	).Scan(&a.ID)
	if err != nil {
		return fmt.Errorf("insert address: %w", mapErr(err))
	}
	return nil
}

func (s *Store) GetAddress(ctx context.Context, id int64) (*domain.NotificationAddress, error) {
	var a domain.NotificationAddress
	err := s.pool.QueryRow(ctx,
		`SELECT id, check_id, email_address FROM notification_addresses WHERE id = $1`, id,
	).Scan(&a.ID, &a.CheckID, &a.EmailAddress)
	if err != nil {
		return nil, fmt.Errorf("get address: %w", mapErr(err))
	}
	return &a, nil
}

func (s *Store) UpdateAddress(ctx context.Context, a *domain.NotificationAddress) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE notification_addresses SET check_id = $2, email_address = $3 WHERE id = $1`,
		a.ID, a.CheckID, a.EmailAddress)
	if err != nil {
		return fmt.Errorf("update address: %w", mapErr(err))
	}
	if tag.RowsAffected() == 0 {
		return repo.ErrNotFound
	}
	return nil
}

func (s *Store) DeleteAddress(ctx context.Context, id int64) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM notification_addresses WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete address: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repo.ErrNotFound
	}
	return nil
}

func (s *Store) ListAddresses(ctx context.Context, lq repo.ListQuery) ([]domain.NotificationAddress, int, error) {
	q := &query{}
	if len(lq.IDs) > 0 {
		q.conds = append(q.conds, "id = ANY("+q.arg(lq.IDs)+")")
	}
	if len(lq.CheckIDs) > 0 {
		q.conds = append(q.conds, "check_id = ANY("+q.arg(lq.CheckIDs)+")")
	}
	total, err := s.count(ctx, "notification_addresses", q)
	if err != nil {
		return nil, 0, err
	}
	col := addressColumns[lq.SortField(repo.AddressSortFields...)]
	rows, err := s.pool.Query(ctx,
		`SELECT id, check_id, email_address FROM notification_addresses`+q.where()+tail(lq, col, "id"),
		q.args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list addresses: %w", err)
	}
	defer rows.Close()
	out := []domain.NotificationAddress{}
	for rows.Next() {
		var a domain.NotificationAddress
		if err := rows.Scan(&a.ID, &a.CheckID, &a.EmailAddress); err != nil {
			return nil, 0, fmt.Errorf("scan address: %w", err)
		}
		out = append(out, a)
	}
	return out, total, rows.Err()
}
