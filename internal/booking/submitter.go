package booking

import (
	"context"
	"sync"
)

// Submitter is the submission sink for confirmed bookings. Implementations
// must be idempotent on Submission.SessionID: a retried confirmation may
// deliver the same session twice.
type Submitter interface {
	Submit(ctx context.Context, sub Submission) error
}

// SubmitterFunc adapts a function to Submitter.
type SubmitterFunc func(ctx context.Context, sub Submission) error

func (f SubmitterFunc) Submit(ctx context.Context, sub Submission) error { return f(ctx, sub) }

// Chain calls each submitter in order and stops at the first error.
func Chain(submitters ...Submitter) Submitter {
	return SubmitterFunc(func(ctx context.Context, sub Submission) error {
		for _, s := range submitters {
			if s == nil {
				continue
			}
			if err := s.Submit(ctx, sub); err != nil {
				return err
			}
		}
		return nil
	})
}

// MemorySubmitter records submissions in process, keyed by session.
type MemorySubmitter struct {
	mu    sync.Mutex
	byID  map[string]Submission
	order []string
}

func NewMemorySubmitter() *MemorySubmitter {
	return &MemorySubmitter{byID: make(map[string]Submission)}
}

func (m *MemorySubmitter) Submit(ctx context.Context, sub Submission) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byID[sub.SessionID]; ok {
		return nil
	}
	m.byID[sub.SessionID] = sub
	m.order = append(m.order, sub.SessionID)
	return nil
}

// Submissions returns recorded submissions in arrival order.
func (m *MemorySubmitter) Submissions() []Submission {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Submission, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, m.byID[id])
	}
	return out
}
