package booking

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/careportal/internal/wizard"
)

func sampleSubmission() Submission {
	return Submission{
		ID:          "sub-1",
		SessionID:   "sess-1",
		Flow:        FlowLabTest,
		Role:        "patient",
		Fields:      map[string]string{"center_id": "dc-1", "date": "2024-05-02", "time": "09:30"},
		Selections:  []wizard.Selection{{ID: "cbc", Label: "Full Blood Count"}},
		SubmittedAt: time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC),
	}
}

func TestPostgresSubmitter(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	sub := sampleSubmission()
	mock.ExpectExec("INSERT INTO bookings").
		WithArgs(sub.ID, sub.SessionID, sub.Flow, sub.Role, pgxmock.AnyArg(), pgxmock.AnyArg(), sub.SubmittedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("ON CONFLICT \\(session_id\\) DO NOTHING").
		WithArgs(sub.ID, sub.SessionID, sub.Flow, sub.Role, pgxmock.AnyArg(), pgxmock.AnyArg(), sub.SubmittedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 0))

	s := NewPostgresSubmitter(mock)
	require.NoError(t, s.Submit(context.Background(), sub))
	require.NoError(t, s.Submit(context.Background(), sub), "duplicate session id is not an error")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresSubmitter_Error(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	boom := errors.New("connection reset")
	mock.ExpectExec("INSERT INTO bookings").WillReturnError(boom)

	err = NewPostgresSubmitter(mock).Submit(context.Background(), sampleSubmission())
	assert.ErrorIs(t, err, boom)
}

type fakeSQS struct {
	inputs []*sqs.SendMessageInput
	err    error
}

func (f *fakeSQS) SendMessage(_ context.Context, in *sqs.SendMessageInput, _ ...func(*sqs.Options)) (*sqs.SendMessageOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.inputs = append(f.inputs, in)
	return &sqs.SendMessageOutput{MessageId: aws.String("msg-1")}, nil
}

func TestQueueSubmitter(t *testing.T) {
	client := &fakeSQS{}
	q := NewQueueSubmitter(client, "http://localhost:4566/000000000000/bookings")
	require.NoError(t, q.Submit(context.Background(), sampleSubmission()))

	require.Len(t, client.inputs, 1)
	in := client.inputs[0]
	assert.Equal(t, "http://localhost:4566/000000000000/bookings", aws.ToString(in.QueueUrl))
	assert.Equal(t, FlowLabTest, aws.ToString(in.MessageAttributes["flow"].StringValue))

	var decoded Submission
	require.NoError(t, json.Unmarshal([]byte(aws.ToString(in.MessageBody)), &decoded))
	assert.Equal(t, "sess-1", decoded.SessionID)
	assert.Equal(t, "cbc", decoded.Selections[0].ID)
}

func TestQueueSubmitter_Error(t *testing.T) {
	boom := errors.New("throttled")
	q := NewQueueSubmitter(&fakeSQS{err: boom}, "queue")
	assert.ErrorIs(t, q.Submit(context.Background(), sampleSubmission()), boom)
}

func TestNewQueueSubmitter_Panics(t *testing.T) {
	assert.Panics(t, func() { NewQueueSubmitter(nil, "queue") })
	assert.Panics(t, func() { NewQueueSubmitter(&fakeSQS{}, "") })
}

func TestChain(t *testing.T) {
	var order []string
	record := func(name string, err error) Submitter {
		return SubmitterFunc(func(context.Context, Submission) error {
			order = append(order, name)
			return err
		})
	}
	boom := errors.New("second failed")

	err := Chain(record("db", nil), nil, record("queue", boom), record("never", nil)).Submit(context.Background(), sampleSubmission())
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []string{"db", "queue"}, order)
}

func TestMemorySubmitter_IdempotentOnSession(t *testing.T) {
	m := NewMemorySubmitter()
	sub := sampleSubmission()
	require.NoError(t, m.Submit(context.Background(), sub))
	sub.ID = "sub-2"
	require.NoError(t, m.Submit(context.Background(), sub))
	subs := m.Submissions()
	require.Len(t, subs, 1)
	assert.Equal(t, "sub-1", subs[0].ID)
}
