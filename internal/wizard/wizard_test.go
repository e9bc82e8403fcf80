package wizard

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func labSteps() []Step {
	return []Step{
		{Name: "select_center", Validate: RequireFields("center_id")},
		{Name: "select_tests", Validate: RequireSelections(1)},
		{Name: "schedule", Validate: All(RequireFields("date", "time"), FieldLayout("date", "2006-01-02"))},
		{Name: "confirm"},
	}
}

func readyState(t *testing.T) State {
	t.Helper()
	s := New(labSteps()...)
	s = s.SetField("center_id", "dc-1")
	s, err := s.Advance()
	require.NoError(t, err)
	s = s.ToggleSelection(Selection{ID: "cbc", Label: "Full blood count"})
	s, err = s.Advance()
	require.NoError(t, err)
	s = s.SetField("date", "2024-05-02").SetField("time", "09:30")
	s, err = s.Advance()
	require.NoError(t, err)
	require.True(t, s.AtLastStep())
	return s
}

func okSubmit(calls *int32) SubmitFunc {
	return func(context.Context, State) error {
		atomic.AddInt32(calls, 1)
		return nil
	}
}

func TestNew_InitialState(t *testing.T) {
	s := New(labSteps()...)
	assert.Equal(t, 0, s.StepIndex)
	assert.Equal(t, PhaseIdle, s.Phase())
	assert.Empty(t, s.Selections)
	assert.NotNil(t, s.Selections)
	assert.Empty(t, s.Fields)
	assert.Nil(t, s.Failure)
	assert.Equal(t, "select_center", s.CurrentStep().Name)
}

func TestNew_PanicsWithoutSteps(t *testing.T) {
	assert.Panics(t, func() { New() })
}

func TestAdvance_BlockedByValidation(t *testing.T) {
	s := New(labSteps()...)
	next, err := s.Advance()

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "select_center", verr.Step)
	assert.Equal(t, []string{"center_id"}, verr.Fields)
	assert.Equal(t, 0, next.StepIndex)
	require.NotNil(t, next.Failure)
	assert.Equal(t, FailureValidation, next.Failure.Kind)
	assert.Nil(t, s.Failure, "receiver is not modified")
}

func TestAdvance_MovesForwardAndClearsFailure(t *testing.T) {
	s := New(labSteps()...)
	blocked, _ := s.Advance()
	next, err := blocked.SetField("center_id", "dc-1").Advance()
	require.NoError(t, err)
	assert.Equal(t, 1, next.StepIndex)
	assert.Nil(t, next.Failure)
}

func TestAdvance_SelectionStepNeedsOne(t *testing.T) {
	s, err := New(labSteps()...).SetField("center_id", "dc-1").Advance()
	require.NoError(t, err)

	_, err = s.Advance()
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, []string{SelectionsField}, verr.Fields)
}

func TestAdvance_NoOpOnLastStep(t *testing.T) {
	s := readyState(t)
	next, err := s.Advance()
	require.NoError(t, err)
	assert.Equal(t, s.StepIndex, next.StepIndex)
}

func TestRetreat(t *testing.T) {
	s := New(labSteps()...)
	assert.Equal(t, 0, s.Retreat().StepIndex)

	ready := readyState(t)
	back := ready.SetField("date", "").Retreat()
	assert.Equal(t, 2, back.StepIndex, "retreat does not validate")
	assert.Equal(t, []string{"cbc"}, back.SelectionIDs(), "selections survive retreat")
}

func TestToggleSelection_IsAnInvolution(t *testing.T) {
	s := New(labSteps()...).ToggleSelection(Selection{ID: "lipid"})
	item := Selection{ID: "cbc"}

	twice := s.ToggleSelection(item).ToggleSelection(item)
	assert.Equal(t, s.SelectionIDs(), twice.SelectionIDs())

	once := s.ToggleSelection(item)
	assert.True(t, once.HasSelection("cbc"))
	assert.False(t, s.HasSelection("cbc"))
	assert.Equal(t, []string{"lipid", "cbc"}, once.SelectionIDs())
}

func TestToggleSelection_RemovingFirstKeepsOrder(t *testing.T) {
	s := New(Step{Name: "search"}, Step{Name: "select"}, Step{Name: "confirm"})
	s, err := s.Advance()
	require.NoError(t, err)
	require.Equal(t, 1, s.StepIndex)

	s = s.ToggleSelection(Selection{ID: "101"}).
		ToggleSelection(Selection{ID: "102"}).
		ToggleSelection(Selection{ID: "101"})
	assert.Equal(t, []string{"102"}, s.SelectionIDs())
	assert.Equal(t, 1, s.StepIndex)

	three := s.ToggleSelection(Selection{ID: "103"}).ToggleSelection(Selection{ID: "104"})
	assert.Equal(t, []string{"103", "104"}, three.ToggleSelection(Selection{ID: "102"}).SelectionIDs())
	assert.Equal(t, []string{"102", "103", "104"}, three.SelectionIDs(), "receiver is not modified")
}

func TestToggleSelection_IgnoresBlankID(t *testing.T) {
	s := New(labSteps()...)
	assert.Empty(t, s.ToggleSelection(Selection{ID: " "}).Selections)
}

func TestSetField_EmptyClears(t *testing.T) {
	s := New(labSteps()...).SetField("center_id", "dc-1")
	assert.Equal(t, "dc-1", s.Field("center_id"))
	cleared := s.SetField("center_id", "  ")
	_, ok := cleared.Fields["center_id"]
	assert.False(t, ok)
	assert.Equal(t, "dc-1", s.Field("center_id"))
}

func TestConfirm_SubmitsOnceAndCompletes(t *testing.T) {
	var calls int32
	s := readyState(t)

	var seen State
	done, err := s.Confirm(context.Background(), func(_ context.Context, st State) error {
		seen = st
		return okSubmit(&calls)(context.Background(), st)
	})
	require.NoError(t, err)
	assert.Equal(t, int32(1), calls)
	assert.True(t, seen.IsSubmitting)
	assert.Equal(t, []string{"cbc"}, seen.SelectionIDs())
	assert.Equal(t, PhaseComplete, done.Phase())
	assert.False(t, done.IsSubmitting)

	again, err := done.Confirm(context.Background(), okSubmit(&calls))
	require.NoError(t, err)
	assert.Equal(t, int32(1), calls, "complete state never resubmits")
	assert.Equal(t, PhaseComplete, again.Phase())
}

func TestConfirm_IgnoredWhileSubmitting(t *testing.T) {
	var calls int32
	submitting, ok := readyState(t).BeginSubmit()
	require.True(t, ok)

	next, err := submitting.Confirm(context.Background(), okSubmit(&calls))
	require.NoError(t, err)
	assert.Zero(t, calls)
	assert.Equal(t, PhaseSubmitting, next.Phase())

	_, ok = submitting.BeginSubmit()
	assert.False(t, ok)
}

func TestConfirm_FailureReturnsToIdle(t *testing.T) {
	boom := errors.New("upstream unavailable")
	s := readyState(t)

	failed, err := s.Confirm(context.Background(), func(context.Context, State) error { return boom })
	var serr *SubmissionError
	require.ErrorAs(t, err, &serr)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, PhaseIdle, failed.Phase())
	require.NotNil(t, failed.Failure)
	assert.Equal(t, FailureSubmission, failed.Failure.Kind)
	assert.Equal(t, s.StepIndex, failed.StepIndex)

	var calls int32
	retried, err := failed.Confirm(context.Background(), okSubmit(&calls))
	require.NoError(t, err)
	assert.Equal(t, int32(1), calls)
	assert.True(t, retried.IsComplete)
	assert.Nil(t, retried.Failure)
}

func TestConfirm_RevalidatesEveryStep(t *testing.T) {
	var calls int32
	s := readyState(t).SetField("center_id", "")

	next, err := s.Confirm(context.Background(), okSubmit(&calls))
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "select_center", verr.Step)
	assert.Zero(t, calls)
	assert.Equal(t, PhaseIdle, next.Phase())
	assert.Equal(t, 3, next.StepIndex)
}

func TestConfirm_RequiresLastStep(t *testing.T) {
	var calls int32
	s := New(
		Step{Name: "schedule", Validate: RequireFields("date")},
		Step{Name: "review"},
		Step{Name: "confirm"},
	).SetField("date", "2025-01-01")

	next, err := s.Confirm(context.Background(), okSubmit(&calls))
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "schedule", verr.Step)
	assert.Equal(t, []string{StepField}, verr.Fields)
	assert.Zero(t, calls)
	assert.Equal(t, PhaseIdle, next.Phase())
	assert.Equal(t, 0, next.StepIndex)
	require.NotNil(t, next.Failure)
	assert.Equal(t, FailureValidation, next.Failure.Kind)
}

func TestConfirm_OutcomeAtLastStep(t *testing.T) {
	steps := []Step{{Name: "search"}, {Name: "select"}, {Name: "confirm"}}
	s := New(steps...)
	s, _ = s.Advance()
	s, _ = s.Advance()
	require.Equal(t, 2, s.StepIndex)

	var calls int32
	done, err := s.Confirm(context.Background(), okSubmit(&calls))
	require.NoError(t, err)
	assert.Equal(t, 2, done.StepIndex)
	assert.True(t, done.IsComplete)
	assert.False(t, done.IsSubmitting)

	failed, err := s.Confirm(context.Background(), func(context.Context, State) error {
		return errors.New("rejected")
	})
	var serr *SubmissionError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, 2, failed.StepIndex)
	assert.False(t, failed.IsComplete)
	assert.False(t, failed.IsSubmitting)
}

func TestComplete_OnlyResetApplies(t *testing.T) {
	var calls int32
	done, err := readyState(t).Confirm(context.Background(), okSubmit(&calls))
	require.NoError(t, err)

	assert.Equal(t, done.StepIndex, done.Retreat().StepIndex)
	assert.Equal(t, done.Selections, done.ToggleSelection(Selection{ID: "x"}).Selections)
	assert.Equal(t, done.Fields, done.SetField("date", "2025-01-01").Fields)
	adv, err := done.Advance()
	require.NoError(t, err)
	assert.Equal(t, done.StepIndex, adv.StepIndex)

	fresh := done.Reset()
	assert.Equal(t, New(labSteps()...).StepIndex, fresh.StepIndex)
	assert.Equal(t, PhaseIdle, fresh.Phase())
	assert.Empty(t, fresh.Selections)
	assert.Empty(t, fresh.Fields)
}

func TestReset_IgnoredWhileSubmitting(t *testing.T) {
	submitting, _ := readyState(t).BeginSubmit()
	assert.True(t, submitting.Reset().IsSubmitting)
}

func TestFinishSubmit_OutsideSubmittingIsNoOp(t *testing.T) {
	s := New(labSteps()...)
	next, err := s.FinishSubmit(errors.New("late"))
	require.NoError(t, err)
	assert.Equal(t, PhaseIdle, next.Phase())
	assert.Nil(t, next.Failure)
}

func TestWithSteps_ClampsIndex(t *testing.T) {
	s := readyState(t)
	restored := s.WithSteps(labSteps()[:2])
	assert.Equal(t, 1, restored.StepIndex)
	assert.NotNil(t, restored.CurrentStep().Validate)
}

func TestSession_ConcurrentConfirmSubmitsOnce(t *testing.T) {
	sess := NewSession(readyState(t))
	var calls int32
	release := make(chan struct{})

	submit := func(context.Context, State) error {
		atomic.AddInt32(&calls, 1)
		<-release
		return nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = sess.Confirm(context.Background(), submit)
		}()
	}
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), calls)
	final := sess.State()
	assert.True(t, final.IsComplete)
	assert.False(t, final.IsSubmitting)
}

func TestSession_Transitions(t *testing.T) {
	sess := NewSession(New(labSteps()...))
	_, err := sess.Advance()
	require.Error(t, err)

	sess.SetField("center_id", "dc-1")
	st, err := sess.Advance()
	require.NoError(t, err)
	assert.Equal(t, 1, st.StepIndex)

	sess.ToggleSelection(Selection{ID: "cbc"})
	assert.True(t, sess.State().HasSelection("cbc"))
	assert.Equal(t, 0, sess.Retreat().StepIndex)
	assert.Empty(t, sess.Reset().Selections)
}

func TestSession_SnapshotIsIsolated(t *testing.T) {
	sess := NewSession(New(labSteps()...))
	snap := sess.State()
	snap.Fields["center_id"] = "tampered"
	assert.Empty(t, sess.State().Field("center_id"))
}
