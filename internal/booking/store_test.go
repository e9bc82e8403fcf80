package booking

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/careportal/internal/wizard"
)

func sampleSession(id string) *Session {
	flows := DefaultFlows()
	st := flows[1].NewState().SetField("center_id", "dc-1").ToggleSelection(wizard.Selection{ID: "cbc", Label: "Full Blood Count"})
	now := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
	return &Session{ID: id, Flow: FlowLabTest, Role: "patient", State: st, CreatedAt: now, UpdatedAt: now}
}

func exerciseStore(t *testing.T, store SessionStore) {
	t.Helper()
	ctx := context.Background()

	_, err := store.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrSessionNotFound)

	sess := sampleSession("s-1")
	require.NoError(t, store.Save(ctx, sess))

	got, err := store.Get(ctx, "s-1")
	require.NoError(t, err)
	assert.Equal(t, FlowLabTest, got.Flow)
	assert.Equal(t, "dc-1", got.State.Field("center_id"))
	assert.Equal(t, []string{"cbc"}, got.State.SelectionIDs())
	assert.Nil(t, got.State.Steps[0].Validate, "validators are not persisted")

	got.State = got.State.SetField("center_id", "dc-2")
	again, err := store.Get(ctx, "s-1")
	require.NoError(t, err)
	assert.Equal(t, "dc-1", again.State.Field("center_id"), "stored copy is isolated from callers")

	ok, err := store.ClaimSubmit(ctx, "s-1")
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = store.ClaimSubmit(ctx, "s-1")
	require.NoError(t, err)
	assert.False(t, ok, "claims are exclusive")

	require.NoError(t, store.ReleaseSubmit(ctx, "s-1"))
	ok, err = store.ClaimSubmit(ctx, "s-1")
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, store.Delete(ctx, "s-1"))
	_, err = store.Get(ctx, "s-1")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemoryStore(time.Minute, nil))
}

func TestRedisStore(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()
	exerciseStore(t, NewRedisStore(client, time.Minute))
}

func TestMemoryStore_Expiry(t *testing.T) {
	now := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
	store := NewMemoryStore(10*time.Minute, nil)
	store.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, sampleSession("a")))
	require.NoError(t, store.Save(ctx, sampleSession("b")))
	ok, err := store.ClaimSubmit(ctx, "a")
	require.NoError(t, err)
	require.True(t, ok)

	now = now.Add(5 * time.Minute)
	require.NoError(t, store.Save(ctx, sampleSession("b")))

	now = now.Add(6 * time.Minute)
	_, err = store.Get(ctx, "a")
	assert.ErrorIs(t, err, ErrSessionNotFound)
	_, err = store.Get(ctx, "b")
	assert.NoError(t, err, "saving slides the expiry")

	ok, err = store.ClaimSubmit(ctx, "a")
	require.NoError(t, err)
	assert.True(t, ok, "stale claims expire")

	now = now.Add(time.Hour)
	assert.Equal(t, 1, store.Sweep())
}

func TestMemoryStore_RunStopsWithContext(t *testing.T) {
	store := NewMemoryStore(time.Millisecond, nil)
	require.NoError(t, store.Save(context.Background(), sampleSession("a")))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		store.Run(ctx, 5*time.Millisecond)
		close(done)
	}()

	assert.Eventually(t, func() bool {
		store.mu.Lock()
		defer store.mu.Unlock()
		return len(store.sessions) == 0
	}, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop")
	}
}

func TestRedisStore_TTLAndClaimExpiry(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()
	store := NewRedisStore(client, 10*time.Minute)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, sampleSession("s")))
	assert.Equal(t, 10*time.Minute, mr.TTL("booking:session:s"))

	ok, err := store.ClaimSubmit(ctx, "s")
	require.NoError(t, err)
	require.True(t, ok)
	mr.FastForward(submitClaimTTL + time.Second)
	ok, err = store.ClaimSubmit(ctx, "s")
	require.NoError(t, err)
	assert.True(t, ok)

	mr.FastForward(11 * time.Minute)
	_, err = store.Get(ctx, "s")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}
