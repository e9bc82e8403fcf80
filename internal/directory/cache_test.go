package directory

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func countingSource(calls *int32, items ...LabTest) Source[LabTest] {
	return SourceFunc[LabTest](func(context.Context) ([]LabTest, error) {
		atomic.AddInt32(calls, 1)
		return items, nil
	})
}

func TestCachedSource_MissThenHit(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	var calls int32
	src := NewCachedSource(countingSource(&calls, LabTest{ID: "cbc", Name: "Full Blood Count", Category: "Hematology"}),
		client, CollectionLabTests, time.Minute, nil)

	first, err := src.Load(context.Background())
	require.NoError(t, err)
	second, err := src.Load(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int32(1), calls)
	assert.Equal(t, first, second)
	assert.True(t, mr.Exists("directory:lab_tests"))
	assert.Equal(t, time.Minute, mr.TTL("directory:lab_tests"))

	mr.FastForward(2 * time.Minute)
	_, err = src.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls, "expired entry reloads from the wrapped source")
}

func TestCachedSource_Invalidate(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	var calls int32
	src := NewCachedSource(countingSource(&calls), client, CollectionLabTests, time.Minute, nil)
	_, err := src.Load(context.Background())
	require.NoError(t, err)
	require.NoError(t, src.Invalidate(context.Background()))
	_, err = src.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls)
}

func TestCachedSource_CorruptEntryFallsThrough(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()
	require.NoError(t, mr.Set("directory:lab_tests", "{not json"))

	var calls int32
	src := NewCachedSource(countingSource(&calls, LabTest{ID: "cbc"}), client, CollectionLabTests, time.Minute, nil)
	items, err := src.Load(context.Background())
	require.NoError(t, err)
	assert.Len(t, items, 1)
	assert.Equal(t, int32(1), calls)
}

func TestCachedSource_RedisDownFallsThrough(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	defer client.Close()
	mr.Close()

	var calls int32
	src := NewCachedSource(countingSource(&calls, LabTest{ID: "cbc"}), client, CollectionLabTests, time.Minute, nil)
	items, err := src.Load(context.Background())
	require.NoError(t, err)
	assert.Len(t, items, 1)
}

func TestCachedSource_InnerErrorPropagates(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	boom := errors.New("db down")
	src := NewCachedSource(SourceFunc[LabTest](func(context.Context) ([]LabTest, error) { return nil, boom }),
		client, CollectionLabTests, time.Minute, nil)
	_, err := src.Load(context.Background())
	assert.ErrorIs(t, err, boom)
	assert.False(t, mr.Exists("directory:lab_tests"))
}
