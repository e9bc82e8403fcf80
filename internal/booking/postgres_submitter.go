package booking

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

// Execer is the subset of pgx used by PostgresSubmitter.
type Execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// PostgresSubmitter writes confirmed bookings to the bookings table. A
// repeated session id is ignored.
type PostgresSubmitter struct {
	db Execer
}

func NewPostgresSubmitter(db Execer) *PostgresSubmitter {
	if db == nil {
		panic("booking: db required")
	}
	return &PostgresSubmitter{db: db}
}

const insertBookingSQL = `
	INSERT INTO bookings (id, session_id, flow, portal_role, fields, selections, submitted_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7)
	ON CONFLICT (session_id) DO NOTHING`

func (s *PostgresSubmitter) Submit(ctx context.Context, sub Submission) error {
	fields, err := json.Marshal(sub.Fields)
	if err != nil {
		return fmt.Errorf("booking: encode fields: %w", err)
	}
	selections, err := json.Marshal(sub.Selections)
	if err != nil {
		return fmt.Errorf("booking: encode selections: %w", err)
	}
	_, err = s.db.Exec(ctx, insertBookingSQL,
		sub.ID, sub.SessionID, sub.Flow, sub.Role, fields, selections, sub.SubmittedAt,
	)
	if err != nil {
		return fmt.Errorf("booking: insert booking: %w", err)
	}
	return nil
}
