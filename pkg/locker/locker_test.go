package locker_test

import (
	"context"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"github.com/Astemirdum/book-lending/pkg/locker"
)

func TestRedisLocker(t *testing.T) {
	const (
		key   = "lending:expiry-sweep"
		token = "token-1"
		ttl   = 10 * time.Second
	)
	ctx := context.Background()

	t.Run("acquire and release", func(t *testing.T) {
		client, mock := redismock.NewClientMock()
		l := locker.NewRedisLocker(client, ttl)
		l.SetTokenFunc(func() string { return token })

		mock.ExpectSetNX(key, token, ttl).SetVal(true)
		mock.ExpectEval(locker.UnlockScript, []string{key}, token).SetVal(int64(1))

		lock, err := l.Lock(ctx, key)
		require.NoError(t, err)
		require.NoError(t, lock.Unlock(ctx))
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("held elsewhere", func(t *testing.T) {
		client, mock := redismock.NewClientMock()
		l := locker.NewRedisLocker(client, ttl)
		l.SetTokenFunc(func() string { return token })

		mock.ExpectSetNX(key, token, ttl).SetVal(false)

		_, err := l.Lock(ctx, key)
		require.ErrorIs(t, err, locker.ErrNotAcquired)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("redis down", func(t *testing.T) {
		client, mock := redismock.NewClientMock()
		l := locker.NewRedisLocker(client, ttl)
		l.SetTokenFunc(func() string { return token })

		mock.ExpectSetNX(key, token, ttl).SetErr(errors.New("connection refused"))

		_, err := l.Lock(ctx, key)
		require.Error(t, err)
		require.NotErrorIs(t, err, locker.ErrNotAcquired)
	})
}
