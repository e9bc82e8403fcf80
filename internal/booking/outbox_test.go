package booking

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/careportal/pkg/logging"
)

func outboxPayload(t *testing.T, sub Submission) []byte {
	t.Helper()
	data, err := json.Marshal(sub)
	require.NoError(t, err)
	return data
}

func TestOutboxStoreFlow(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store := NewOutboxStore(mock)
	sub := Submission{ID: "sub-1", SessionID: "sess-1", Flow: FlowLabTest, Role: "patient"}

	mock.ExpectExec("INSERT INTO booking_outbox").
		WithArgs(pgxmock.AnyArg(), "sess-1", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	require.NoError(t, store.Submit(context.Background(), sub))

	id := uuid.New()
	now := time.Now().UTC()
	mock.ExpectQuery("SELECT id, payload").WithArgs(int32(10)).
		WillReturnRows(pgxmock.NewRows([]string{"id", "payload", "attempts", "created_at"}).
			AddRow(id, outboxPayload(t, sub), 0, now))

	entries, err := store.FetchPending(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, id, entries[0].ID)
	assert.Equal(t, "sess-1", entries[0].Submission.SessionID)

	mock.ExpectExec("UPDATE booking_outbox").WithArgs(id).WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	ok, err := store.MarkDelivered(context.Background(), id)
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestOutboxStoreInsertError(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec("INSERT INTO booking_outbox").WillReturnError(errors.New("disk full"))
	err = NewOutboxStore(mock).Submit(context.Background(), Submission{SessionID: "sess-1"})
	assert.ErrorContains(t, err, "insert outbox")
}

func TestRelayDrain(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	okID, failID := uuid.New(), uuid.New()
	now := time.Now().UTC()
	mock.ExpectQuery("SELECT id, payload").WithArgs(int32(25)).
		WillReturnRows(pgxmock.NewRows([]string{"id", "payload", "attempts", "created_at"}).
			AddRow(okID, outboxPayload(t, Submission{SessionID: "sess-ok"}), 0, now).
			AddRow(failID, outboxPayload(t, Submission{SessionID: "sess-fail"}), 2, now))
	mock.ExpectExec("UPDATE booking_outbox").WithArgs(okID).WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec("UPDATE booking_outbox").WithArgs(failID, "queue unavailable").WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	var sent []string
	sink := SubmitterFunc(func(_ context.Context, sub Submission) error {
		if sub.SessionID == "sess-fail" {
			return errors.New("queue unavailable")
		}
		sent = append(sent, sub.SessionID)
		return nil
	})

	relay := NewRelay(NewOutboxStore(mock), sink, logging.New("error"))
	assert.Equal(t, 1, relay.Drain(context.Background()))
	assert.Equal(t, []string{"sess-ok"}, sent)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRelayRunStopsOnCancel(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()
	// No expectations: every poll fails fast and is logged.

	relay := NewRelay(NewOutboxStore(mock), NewMemorySubmitter(), logging.New("error")).
		WithInterval(5 * time.Millisecond).
		WithBatchSize(5)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		relay.Run(ctx)
		close(done)
	}()
	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("relay did not stop after cancel")
	}
}
