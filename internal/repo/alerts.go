package repo

import (
	"context"
	"time"
)

// AlertRecord holds the consecutive failure count of a check, the state of its
// last run and the last time the admin was alerted about it.
type AlertRecord struct {
	CheckID    int64
	Failures   int
	LastState  string
	LastSentAt *time.Time
}

// AlertStore is implemented by a persistence layer to store alert state.
type AlertStore interface {
	// GetAlert returns nil, nil if there's no record yet.
	GetAlert(ctx context.Context, checkID int64) (*AlertRecord, error)
	// SetAlert upserts the record.
	SetAlert(ctx context.Context, rec AlertRecord) error
}
