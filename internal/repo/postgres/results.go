package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/hamed0406/urlchecker/internal/domain"
	"github.com/hamed0406/urlchecker/internal/repo"
)

var resultColumns = map[string]string{
	"id":                  "r.id",
	"checkId":             "r.check_id",
	"timeChecked":         "r.time_checked",
	"statusCode":          "r.status_code",
	"state":               "r.state",
	"checkDefinition.url": "c.url",
}

const resultSelect = `
SELECT r.id, r.check_id, r.time_checked, r.status_code, r.state,
       c.id, c.url, c.frequency, c.expected_status, c.expected_string
  FROM check_results r
  JOIN check_definitions c ON c.id = r.check_id`

func (s *Store) AppendResult(ctx context.Context, r *domain.CheckResult) error {
	if r.TimeChecked.IsZero() {
		r.TimeChecked = time.Now().UTC()
	}
	err := s.pool.QueryRow(ctx,
		`INSERT INTO check_results (check_id, time_checked, status_code, state)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id`,
		r.CheckID, r.TimeChecked, r.StatusCode, r.State,
	).Scan(&r.ID)
	if err != nil {
		return fmt.Errorf("insert result: %w", mapErr(err))
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanResult(row scanner) (domain.CheckResult, error) {
	var (
		r domain.CheckResult
		c domain.CheckDefinition
	)
	err := row.Scan(&r.ID, &r.CheckID, &r.TimeChecked, &r.StatusCode, &r.State,
		&c.ID, &c.URL, &c.Frequency, &c.ExpectedStatus, &c.ExpectedString)
	if err != nil {
		return r, err
	}
	r.CheckDefinition = &c
	return r, nil
}

func (s *Store) GetResult(ctx context.Context, id int64) (*domain.CheckResult, error) {
	r, err := scanResult(s.pool.QueryRow(ctx, resultSelect+` WHERE r.id = $1`, id))
	if err != nil {
		return nil, fmt.Errorf("get result: %w", mapErr(err))
	}
	return &r, nil
}

func (s *Store) ListResults(ctx context.Context, lq repo.ListQuery) ([]domain.CheckResult, int, error) {
	q := &query{}
	if len(lq.IDs) > 0 {
		q.conds = append(q.conds, "r.id = ANY("+q.arg(lq.IDs)+")")
	}
	if len(lq.CheckIDs) > 0 {
		q.conds = append(q.conds, "r.check_id = ANY("+q.arg(lq.CheckIDs)+")")
	}
	if lq.URLContains != "" {
		q.conds = append(q.conds, "strpos(lower(c.url), lower("+q.arg(lq.URLContains)+")) > 0")
	}
	total, err := s.count(ctx, "check_results r JOIN check_definitions c ON c.id = r.check_id", q)
	if err != nil {
		return nil, 0, err
	}
	col := resultColumns[lq.SortField(repo.ResultSortFields...)]
	rows, err := s.pool.Query(ctx, resultSelect+q.where()+tail(lq, col, "r.id"), q.args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list results: %w", err)
	}
	defer rows.Close()
	out := []domain.CheckResult{}
	for rows.Next() {
		r, err := scanResult(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan result: %w", err)
		}
		out = append(out, r)
	}
	return out, total, rows.Err()
}

var latestColumns = map[string]string{
	"id":             "c.id",
	"url":            "c.url",
	"frequency":      "c.frequency",
	"expectedStatus": "c.expected_status",
	"expectedString": "c.expected_string",
	"lastChecked":    "l.time_checked",
	"lastState":      "l.state",
}

// One row per check; checks without results get NULL time and empty state.
const latestSelect = `
SELECT c.id, c.url, c.frequency, c.expected_status, c.expected_string,
       l.time_checked, COALESCE(l.state, '')
  FROM check_definitions c
  LEFT JOIN LATERAL (
        SELECT r.time_checked, r.state
          FROM check_results r
         WHERE r.check_id = c.id
         ORDER BY r.time_checked DESC, r.id DESC
         LIMIT 1
       ) l ON true`

func scanLatest(row scanner) (domain.LatestResult, error) {
	var lr domain.LatestResult
	err := row.Scan(&lr.ID, &lr.URL, &lr.Frequency, &lr.ExpectedStatus, &lr.ExpectedString,
		&lr.LastChecked, &lr.LastState)
	return lr, err
}

func (s *Store) GetLatest(ctx context.Context, checkID int64) (*domain.LatestResult, error) {
	lr, err := scanLatest(s.pool.QueryRow(ctx, latestSelect+` WHERE c.id = $1`, checkID))
	if err != nil {
		return nil, fmt.Errorf("get latest: %w", mapErr(err))
	}
	return &lr, nil
}

func (s *Store) ListLatest(ctx context.Context, lq repo.ListQuery) ([]domain.LatestResult, int, error) {
	q := &query{}
	if len(lq.IDs) > 0 {
		q.conds = append(q.conds, "c.id = ANY("+q.arg(lq.IDs)+")")
	}
	if lq.URLContains != "" {
		q.conds = append(q.conds, "strpos(lower(c.url), lower("+q.arg(lq.URLContains)+")) > 0")
	}
	total, err := s.count(ctx, "check_definitions c", q)
	if err != nil {
		return nil, 0, err
	}
	col := latestColumns[lq.SortField(repo.LatestSortFields...)]
	rows, err := s.pool.Query(ctx, latestSelect+q.where()+tail(lq, col, "c.id"), q.args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list latest: %w", err)
	}
	defer rows.Close()
	out := []domain.LatestResult{}
	for rows.Next() {
		lr, err := scanLatest(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan latest: %w", err)
		}
		out = append(out, lr)
	}
	return out, total, rows.Err()
}
