package booking

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/wolfman30/careportal/pkg/logging"
)

// OutboxDB is the subset of pgx used by the outbox.
type OutboxDB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// OutboxEntry is a confirmed booking waiting to be relayed downstream.
type OutboxEntry struct {
	ID         uuid.UUID
	Submission Submission
	Attempts   int
	CreatedAt  time.Time
}

// OutboxStore persists submissions for at-least-once delivery to the queue.
// It is a Submitter: chained after PostgresSubmitter, a confirmed booking is
// never lost to a queue outage.
type OutboxStore struct {
	db OutboxDB
}

func NewOutboxStore(db OutboxDB) *OutboxStore {
	if db == nil {
		panic("booking: outbox db required")
	}
	return &OutboxStore{db: db}
}

const (
	insertOutboxSQL = `
		INSERT INTO booking_outbox (id, session_id, payload)
		VALUES ($1, $2, $3)
		ON CONFLICT (session_id) DO NOTHING`
	fetchOutboxSQL = `
		SELECT id, payload, attempts, created_at
		FROM booking_outbox
		WHERE delivered_at IS NULL
		ORDER BY created_at
		LIMIT $1`
	markDeliveredSQL = `
		UPDATE booking_outbox
		SET delivered_at = now()
		WHERE id = $1 AND delivered_at IS NULL`
	markFailedSQL = `
		UPDATE booking_outbox
		SET attempts = attempts + 1, last_error = $2
		WHERE id = $1`
)

// Submit enqueues the submission. A repeated session id is ignored.
func (s *OutboxStore) Submit(ctx context.Context, sub Submission) error {
	payload, err := json.Marshal(sub)
	if err != nil {
		return fmt.Errorf("booking: encode outbox payload: %w", err)
	}
	if _, err := s.db.Exec(ctx, insertOutboxSQL, uuid.New(), sub.SessionID, payload); err != nil {
		return fmt.Errorf("booking: insert outbox: %w", err)
	}
	return nil
}

func (s *OutboxStore) FetchPending(ctx context.Context, limit int32) ([]OutboxEntry, error) {
	rows, err := s.db.Query(ctx, fetchOutboxSQL, limit)
	if err != nil {
		return nil, fmt.Errorf("booking: fetch outbox: %w", err)
	}
	defer rows.Close()

	var entries []OutboxEntry
	for rows.Next() {
		var entry OutboxEntry
		var payload []byte
		if err := rows.Scan(&entry.ID, &payload, &entry.Attempts, &entry.CreatedAt); err != nil {
			return nil, fmt.Errorf("booking: scan outbox: %w", err)
		}
		if err := json.Unmarshal(payload, &entry.Submission); err != nil {
			return nil, fmt.Errorf("booking: decode outbox %s: %w", entry.ID, err)
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

func (s *OutboxStore) MarkDelivered(ctx context.Context, id uuid.UUID) (bool, error) {
	ct, err := s.db.Exec(ctx, markDeliveredSQL, id)
	if err != nil {
		return false, fmt.Errorf("booking: mark delivered: %w", err)
	}
	return ct.RowsAffected() == 1, nil
}

func (s *OutboxStore) MarkFailed(ctx context.Context, id uuid.UUID, cause error) error {
	if _, err := s.db.Exec(ctx, markFailedSQL, id, cause.Error()); err != nil {
		return fmt.Errorf("booking: mark failed: %w", err)
	}
	return nil
}

// Relay polls the outbox and hands each pending submission to sink.
type Relay struct {
	store     *OutboxStore
	sink      Submitter
	logger    *logging.Logger
	batchSize int32
	interval  time.Duration
}

func NewRelay(store *OutboxStore, sink Submitter, logger *logging.Logger) *Relay {
	if store == nil || sink == nil {
		panic("booking: relay requires store and sink")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Relay{
		store:     store,
		sink:      sink,
		logger:    logger,
		batchSize: 25,
		interval:  2 * time.Second,
	}
}

func (r *Relay) WithBatchSize(size int32) *Relay {
	if size > 0 {
		r.batchSize = size
	}
	return r
}

func (r *Relay) WithInterval(interval time.Duration) *Relay {
	if interval > 0 {
		r.interval = interval
	}
	return r
}

// Run drains the outbox every interval until ctx is done.
func (r *Relay) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Drain(ctx)
		}
	}
}

// Drain relays one batch and returns how many entries were delivered.
func (r *Relay) Drain(ctx context.Context) int {
	entries, err := r.store.FetchPending(ctx, r.batchSize)
	if err != nil {
		r.logger.Error("booking outbox fetch failed", "error", err)
		return 0
	}
	delivered := 0
	for _, entry := range entries {
		if err := r.sink.Submit(ctx, entry.Submission); err != nil {
			r.logger.Warn("booking outbox delivery failed", "error", err, "outbox_id", entry.ID,
				"session_id", entry.Submission.SessionID, "attempts", entry.Attempts+1)
			if merr := r.store.MarkFailed(ctx, entry.ID, err); merr != nil {
				r.logger.Error("booking outbox attempt not recorded", "error", merr, "outbox_id", entry.ID)
			}
			continue
		}
		ok, err := r.store.MarkDelivered(ctx, entry.ID)
		if err != nil {
			r.logger.Error("failed to mark booking outbox delivered", "error", err, "outbox_id", entry.ID)
			continue
		}
		if ok {
			delivered++
			r.logger.Debug("booking outbox delivered", "outbox_id", entry.ID, "session_id", entry.Submission.SessionID)
		}
	}
	return delivered
}
