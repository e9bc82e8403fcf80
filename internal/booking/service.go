package booking

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/wolfman30/careportal/internal/directory"
	"github.com/wolfman30/careportal/internal/observability/metrics"
	"github.com/wolfman30/careportal/internal/wizard"
	"github.com/wolfman30/careportal/pkg/logging"
)

// RecordFinder resolves directory records by collection and id.
type RecordFinder interface {
	Find(ctx context.Context, collection, id string) (directory.Record, error)
}

// Config wires a Service.
type Config struct {
	Flows      *wizard.Registry
	Store      SessionStore
	Submitter  Submitter
	Finder     RecordFinder
	References References
	Logger     *logging.Logger
	Metrics    *metrics.BookingMetrics
	Tracer     trace.Tracer

	// SubmitTimeout bounds one Submit call. It is capped at half the submit
	// claim so a slow sink cannot outlive the claim.
	SubmitTimeout time.Duration
}

// Service applies wizard transitions to stored sessions. Transitions on one
// session are serialized within the process; confirmation is additionally
// serialized across processes by the store's submit claim.
type Service struct {
	flows      *wizard.Registry
	store      SessionStore
	submitter  Submitter
	finder     RecordFinder
	references References
	logger     *logging.Logger
	metrics    *metrics.BookingMetrics
	tracer     trace.Tracer
	now        func() time.Time
	locks      sessionLocks

	submitTimeout time.Duration
}

func NewService(cfg Config) *Service {
	if cfg.Flows == nil {
		panic("booking: flow registry required")
	}
	if cfg.Store == nil {
		panic("booking: session store required")
	}
	if cfg.Submitter == nil {
		panic("booking: submitter required")
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	if cfg.Tracer == nil {
		cfg.Tracer = otel.Tracer("careportal.internal.booking")
	}
	if cfg.SubmitTimeout <= 0 || cfg.SubmitTimeout > maxSubmitTimeout {
		cfg.SubmitTimeout = maxSubmitTimeout
	}
	return &Service{
		flows:      cfg.Flows,
		store:      cfg.Store,
		submitter:  cfg.Submitter,
		finder:     cfg.Finder,
		references: cfg.References,
		logger:     cfg.Logger,
		metrics:    cfg.Metrics,
		tracer:     cfg.Tracer,
		now:        func() time.Time { return time.Now().UTC() },
		locks:      sessionLocks{held: make(map[string]*lockEntry)},

		submitTimeout: cfg.SubmitTimeout,
	}
}

// Flows lists the registered flows.
func (s *Service) Flows() []wizard.Flow {
	return s.flows.List()
}

// Start creates a session at the first step of flow.
func (s *Service) Start(ctx context.Context, flow, role string) (*Session, error) {
	ctx, span := s.tracer.Start(ctx, "booking.start")
	defer span.End()
	span.SetAttributes(attribute.String("booking.flow", flow))

	f, err := s.flows.Get(flow)
	if err != nil {
		return nil, err
	}
	now := s.now()
	sess := &Session{
		ID:        uuid.NewString(),
		Flow:      f.Name,
		Role:      role,
		State:     f.NewState(),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.Save(ctx, sess); err != nil {
		span.RecordError(err)
		return nil, err
	}
	s.metrics.SessionStarted()
	s.logger.Info("booking session started", "session_id", sess.ID, "flow", sess.Flow, "role", role)
	return sess, nil
}

// Get loads a session with its flow's step validators attached.
func (s *Service) Get(ctx context.Context, id string) (*Session, error) {
	sess, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	f, err := s.flows.Get(sess.Flow)
	if err != nil {
		return nil, fmt.Errorf("booking: session %s: %w", id, err)
	}
	sess.State = sess.State.WithSteps(f.Steps)
	return sess, nil
}

// SetFields applies scalar inputs. Fields that reference a directory
// collection must name an existing record; otherwise nothing is applied and
// a *wizard.ValidationError is returned.
func (s *Service) SetFields(ctx context.Context, id string, fields map[string]string) (*Session, error) {
	return s.mutate(ctx, id, "set_fields", func(ctx context.Context, sess *Session) error {
		names := make([]string, 0, len(fields))
		for name := range fields {
			names = append(names, name)
		}
		slices.Sort(names)

		var invalid []string
		for _, name := range names {
			collection := s.references.Fields[sess.Flow][name]
			value := fields[name]
			if collection == "" || value == "" || s.finder == nil {
				continue
			}
			if _, err := s.finder.Find(ctx, collection, value); err != nil {
				if errors.Is(err, directory.ErrNotFound) {
					invalid = append(invalid, name)
					continue
				}
				return err
			}
		}
		if len(invalid) > 0 {
			verr := &wizard.ValidationError{Step: sess.State.CurrentStep().Name, Fields: invalid}
			sess.State = sess.State.Reject(verr)
			return verr
		}

		st := sess.State
		for _, name := range names {
			st = st.SetField(name, fields[name])
		}
		sess.State = st
		return nil
	})
}

// Advance moves the session forward when the current step validates.
func (s *Service) Advance(ctx context.Context, id string) (*Session, error) {
	return s.mutate(ctx, id, "advance", func(_ context.Context, sess *Session) error {
		next, err := sess.State.Advance()
		sess.State = next
		return err
	})
}

// Retreat moves the session back one step.
func (s *Service) Retreat(ctx context.Context, id string) (*Session, error) {
	return s.mutate(ctx, id, "retreat", func(_ context.Context, sess *Session) error {
		sess.State = sess.State.Retreat()
		return nil
	})
}

// Toggle adds or removes a selection. New selections are labelled from the
// flow's directory collection when one is configured.
func (s *Service) Toggle(ctx context.Context, id string, item wizard.Selection) (*Session, error) {
	return s.mutate(ctx, id, "toggle", func(ctx context.Context, sess *Session) error {
		if !sess.State.HasSelection(item.ID) {
			resolved, err := s.resolveSelection(ctx, sess, item)
			if err != nil {
				return err
			}
			item = resolved
		}
		sess.State = sess.State.ToggleSelection(item)
		return nil
	})
}

// Reset returns the session to its initial state.
func (s *Service) Reset(ctx context.Context, id string) (*Session, error) {
	return s.mutate(ctx, id, "reset", func(_ context.Context, sess *Session) error {
		sess.State = sess.State.Reset()
		return nil
	})
}

// Dismiss discards the session. A session with a confirmation in flight is
// kept and ErrSubmitInFlight is returned.
func (s *Service) Dismiss(ctx context.Context, id string) error {
	unlock := s.locks.lock(id)
	defer unlock()

	sess, err := s.store.Get(ctx, id)
	if err != nil {
		return err
	}
	if sess.State.IsSubmitting {
		return ErrSubmitInFlight
	}
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	s.metrics.SessionDismissed()
	s.logger.Info("booking session dismissed", "session_id", id, "flow", sess.Flow)
	return nil
}

// Confirm validates every step and calls the submitter once. The submitting
// phase is persisted before the submitter runs, so concurrent transitions on
// the session are no-ops until it finishes. Errors: ErrSubmitInFlight,
// ErrAlreadySubmitted, *wizard.ValidationError, *wizard.SubmissionError.
func (s *Service) Confirm(ctx context.Context, id string) (*Session, error) {
	ctx, span := s.tracer.Start(ctx, "booking.confirm")
	defer span.End()
	span.SetAttributes(attribute.String("booking.session_id", id))

	claimed, err := s.store.ClaimSubmit(ctx, id)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if !claimed {
		sess, gerr := s.Get(ctx, id)
		if gerr != nil {
			return nil, gerr
		}
		s.metrics.ObserveTransition(sess.Flow, "confirm", "in_flight")
		return sess, ErrSubmitInFlight
	}
	defer func() {
		if rerr := s.store.ReleaseSubmit(context.WithoutCancel(ctx), id); rerr != nil {
			s.logger.Warn("booking submit claim not released", "session_id", id, "error", rerr)
		}
	}()

	sess, proceed, err := s.beginConfirm(ctx, id)
	if !proceed {
		if err != nil {
			span.RecordError(err)
		}
		return sess, err
	}
	span.SetAttributes(attribute.String("booking.flow", sess.Flow))

	sub := Submission{
		ID:          uuid.NewString(),
		SessionID:   sess.ID,
		Flow:        sess.Flow,
		Role:        sess.Role,
		Fields:      sess.State.Fields,
		Selections:  sess.State.Selections,
		SubmittedAt: s.now(),
	}
	start := time.Now()
	submitCtx, cancel := context.WithTimeout(ctx, s.submitTimeout)
	submitErr := s.submitter.Submit(submitCtx, sub)
	cancel()
	elapsed := time.Since(start).Seconds()

	unlock := s.locks.lock(id)
	defer unlock()

	final, ferr := sess.State.FinishSubmit(submitErr)
	sess.State = final
	sess.UpdatedAt = s.now()
	if err := s.store.Save(context.WithoutCancel(ctx), sess); err != nil {
		span.RecordError(err)
		s.logger.Error("booking session not saved after submit", "session_id", id, "error", err)
		return nil, err
	}

	if ferr != nil {
		span.RecordError(ferr)
		s.metrics.ObserveSubmission(sess.Flow, "failed", elapsed)
		s.logger.Warn("booking submission failed", "session_id", id, "flow", sess.Flow, "error", submitErr)
		return sess, ferr
	}
	s.metrics.ObserveSubmission(sess.Flow, "submitted", elapsed)
	s.logger.Info("booking submitted", "session_id", id, "flow", sess.Flow, "submission_id", sub.ID)
	return sess, nil
}

// beginConfirm moves an idle session into submitting and persists it.
func (s *Service) beginConfirm(ctx context.Context, id string) (*Session, bool, error) {
	unlock := s.locks.lock(id)
	defer unlock()

	sess, err := s.Get(ctx, id)
	if err != nil {
		return nil, false, err
	}
	switch sess.State.Phase() {
	case wizard.PhaseComplete:
		s.metrics.ObserveTransition(sess.Flow, "confirm", "already_submitted")
		return sess, false, ErrAlreadySubmitted
	case wizard.PhaseSubmitting:
		// We hold the claim, so the submitter that set this phase is gone.
		s.logger.Warn("booking session recovered from interrupted submission", "session_id", id)
		sess.State, _ = sess.State.FinishSubmit(errSubmitInterrupted)
	}

	next, proceed, verr := sess.State.BeginConfirm()
	sess.State = next
	sess.UpdatedAt = s.now()
	if err := s.store.Save(ctx, sess); err != nil {
		return nil, false, err
	}
	if verr != nil {
		s.metrics.ObserveTransition(sess.Flow, "confirm", "invalid")
		return sess, false, verr
	}
	return sess, proceed, nil
}

func (s *Service) mutate(ctx context.Context, id, transition string, fn func(context.Context, *Session) error) (*Session, error) {
	ctx, span := s.tracer.Start(ctx, "booking."+transition)
	defer span.End()
	span.SetAttributes(attribute.String("booking.session_id", id))

	unlock := s.locks.lock(id)
	defer unlock()

	sess, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.String("booking.flow", sess.Flow))

	fnErr := fn(ctx, sess)
	var verr *wizard.ValidationError
	if fnErr != nil && !errors.As(fnErr, &verr) {
		span.RecordError(fnErr)
		s.metrics.ObserveTransition(sess.Flow, transition, "error")
		return nil, fnErr
	}

	sess.UpdatedAt = s.now()
	if err := s.store.Save(ctx, sess); err != nil {
		span.RecordError(err)
		return nil, err
	}
	result := "ok"
	if verr != nil {
		result = "invalid"
	}
	s.metrics.ObserveTransition(sess.Flow, transition, result)
	return sess, fnErr
}

func (s *Service) resolveSelection(ctx context.Context, sess *Session, item wizard.Selection) (wizard.Selection, error) {
	collection := s.references.Selections[sess.Flow]
	if collection == "" || s.finder == nil || item.ID == "" {
		return item, nil
	}
	rec, err := s.finder.Find(ctx, collection, item.ID)
	if err != nil {
		if errors.Is(err, directory.ErrNotFound) {
			verr := &wizard.ValidationError{Step: sess.State.CurrentStep().Name, Fields: []string{wizard.SelectionsField}}
			sess.State = sess.State.Reject(verr)
			return item, verr
		}
		return item, err
	}
	return wizard.Selection{ID: rec.ID, Label: rec.Label, Attributes: rec.Attributes}, nil
}

type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// sessionLocks hands out one mutex per session id and forgets it once no
// caller holds or waits on it.
type sessionLocks struct {
	mu   sync.Mutex
	held map[string]*lockEntry
}

func (l *sessionLocks) lock(id string) func() {
	l.mu.Lock()
	e, ok := l.held[id]
	if !ok {
		e = &lockEntry{}
		l.held[id] = e
	}
	e.refs++
	l.mu.Unlock()

	e.mu.Lock()
	return func() {
		e.mu.Unlock()
		l.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(l.held, id)
		}
		l.mu.Unlock()
	}
}
