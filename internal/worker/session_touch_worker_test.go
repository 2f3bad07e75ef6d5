package worker

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/modulrent/site-backend/internal/config"
	"github.com/modulrent/site-backend/internal/model"
	"github.com/modulrent/site-backend/internal/testutil"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func seedSession(t *testing.T, hash string, lastAccessed time.Time) (*testutil.SessionStore, *model.AdminUser) {
	t.Helper()
	admins := testutil.NewAdminStore()
	admin := admins.Put(model.AdminUser{Email: "a@b.com", Role: model.RoleAdmin, IsActive: true})
	sessions := testutil.NewSessionStore(admins)
	require.NoError(t, sessions.Create(context.Background(), &model.AdminSession{
		TokenHash:    hash,
		AdminUserID:  admin.ID,
		ExpiresAt:    lastAccessed.Add(24 * time.Hour),
		LastAccessed: lastAccessed,
	}))
	return sessions, admin
}

func TestTouchQueueEnqueues(t *testing.T) {
	mr, rdb := newRedis(t)
	q := NewTouchQueue(rdb)

	at := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	require.NoError(t, q.Touch(context.Background(), "abc", at))

	items, err := mr.List(config.WorkerKey.SessionTouchQueue)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Contains(t, items[0], `"token_hash":"abc"`)
}

func TestSessionTouchWorkerDrainKeepsLatest(t *testing.T) {
	_, rdb := newRedis(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	sessions, _ := seedSession(t, "hash-1", base)

	q := NewTouchQueue(rdb)
	require.NoError(t, q.Touch(ctx, "hash-1", base.Add(2*time.Minute)))
	require.NoError(t, q.Touch(ctx, "hash-1", base.Add(5*time.Minute)))
	require.NoError(t, q.Touch(ctx, "hash-1", base.Add(3*time.Minute)))
	require.NoError(t, q.Touch(ctx, "unknown", base.Add(time.Minute)))

	w := NewSessionTouchWorker(rdb, sessions, zerolog.Nop())
	w.drain(ctx, make(map[string]time.Time))

	sess, ok := sessions.Get("hash-1")
	require.True(t, ok)
	assert.True(t, sess.LastAccessed.Equal(base.Add(5*time.Minute)))

	n, err := rdb.LLen(ctx, config.WorkerKey.SessionTouchQueue).Result()
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestSessionTouchWorkerSkipsBadPayload(t *testing.T) {
	_, rdb := newRedis(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	sessions, _ := seedSession(t, "hash-1", base)

	require.NoError(t, rdb.RPush(ctx, config.WorkerKey.SessionTouchQueue, "not-json").Err())
	require.NoError(t, NewTouchQueue(rdb).Touch(ctx, "hash-1", base.Add(time.Minute)))

	w := NewSessionTouchWorker(rdb, sessions, zerolog.Nop())
	w.drain(ctx, make(map[string]time.Time))

	sess, _ := sessions.Get("hash-1")
	assert.True(t, sess.LastAccessed.Equal(base.Add(time.Minute)))
}

func TestSessionTouchWorkerStartAndStop(t *testing.T) {
	_, rdb := newRedis(t)
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	sessions, _ := seedSession(t, "hash-1", base)

	ctx, cancel := context.WithCancel(context.Background())
	w := NewSessionTouchWorker(rdb, sessions, zerolog.Nop())
	done := make(chan struct{})
	go func() {
		w.Start(ctx)
		close(done)
	}()

	require.NoError(t, NewTouchQueue(rdb).Touch(context.Background(), "hash-1", base.Add(time.Hour)))

	require.Eventually(t, func() bool {
		sess, _ := sessions.Get("hash-1")
		return sess.LastAccessed.Equal(base.Add(time.Hour))
	}, 5*time.Second, 50*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("worker did not stop")
	}
}
