package shared

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func TestImportLockExcludesSecondHolder(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer func() { _ = client.Close() }()

	lock := NewImportLock(client, time.Minute)
	bankAccountID := uuid.New()
	ctx := context.Background()

	release, ok, err := lock.Acquire(ctx, bankAccountID)
	require.NoError(t, err)
	require.True(t, ok)

	_, ok, err = lock.Acquire(ctx, bankAccountID)
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, release(ctx))

	release2, ok, err := lock.Acquire(ctx, bankAccountID)
	require.NoError(t, err)
	require.True(t, ok)
	require.NoError(t, release2(ctx))
}

func TestImportLockIndependentAccounts(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer func() { _ = client.Close() }()

	lock := NewImportLock(client, time.Minute)
	ctx := context.Background()

	releaseA, ok, err := lock.Acquire(ctx, uuid.New())
	require.NoError(t, err)
	require.True(t, ok)
	releaseB, ok, err := lock.Acquire(ctx, uuid.New())
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, releaseA(ctx))
	require.NoError(t, releaseB(ctx))
}

func TestImportLockNilClientIsNoop(t *testing.T) {
	var lock *ImportLock
	release, ok, err := lock.Acquire(context.Background(), uuid.New())
	require.NoError(t, err)
	require.True(t, ok)
	require.NoError(t, release(context.Background()))
}
