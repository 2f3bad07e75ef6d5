package worker

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/modulrent/site-backend/internal/config"
	"github.com/modulrent/site-backend/internal/model"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	TouchBatchSize    = 100
	TouchBatchTimeout = 2 * time.Second
	TouchPollTimeout  = 1 * time.Second
)

// TouchStore applies queued last_accessed updates.
type TouchStore interface {
	TouchBatch(ctx context.Context, touches []model.SessionTouch) error
}

// TouchQueue defers session touches to Redis so Verify never waits on a
// Postgres write.
type TouchQueue struct {
	rdb *redis.Client
	key string
}

func NewTouchQueue(rdb *redis.Client) *TouchQueue {
	return &TouchQueue{rdb: rdb, key: config.WorkerKey.SessionTouchQueue}
}

// Touch enqueues one update.
func (q *TouchQueue) Touch(ctx context.Context, tokenHash string, at time.Time) error {
	raw, err := json.Marshal(model.SessionTouch{TokenHash: tokenHash, At: at.UTC()})
	if err != nil {
		return err
	}
	return q.rdb.RPush(ctx, q.key, raw).Err()
}

// SessionTouchWorker consumes session_touch_queue and writes last_accessed
// in batches.
type SessionTouchWorker struct {
	rdb   *redis.Client
	store TouchStore
	key   string
	log   zerolog.Logger
}

func NewSessionTouchWorker(rdb *redis.Client, store TouchStore, log zerolog.Logger) *SessionTouchWorker {
	return &SessionTouchWorker{
		rdb:   rdb,
		store: store,
		key:   config.WorkerKey.SessionTouchQueue,
		log:   log.With().Str("component", "session_touch_worker").Logger(),
	}
}

// Start runs until ctx is cancelled. Call in a goroutine.
func (w *SessionTouchWorker) Start(ctx context.Context) {
	w.log.Info().Msg("Worker started")

	batch := make(map[string]time.Time, TouchBatchSize)
	lastFlush := time.Now()

	for {
		if len(batch) > 0 &&
			(len(batch) >= TouchBatchSize || time.Since(lastFlush) >= TouchBatchTimeout) {
			w.flush(ctx, batch)
			clear(batch)
			lastFlush = time.Now()
		}

		select {
		case <-ctx.Done():
			w.log.Info().Msg("Worker stopping...")
			drainCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			w.drain(drainCtx, batch)
			cancel()
			w.log.Info().Msg("Worker stopped")
			return
		default:
			item, err := w.rdb.BLPop(ctx, TouchPollTimeout, w.key).Result()
			if err != nil {
				if !errors.Is(err, redis.Nil) && ctx.Err() == nil {
					w.log.Error().Err(err).Msg("BLPop error")
					time.Sleep(time.Second)
				}
				continue
			}
			if len(item) < 2 {
				continue
			}
			w.add(batch, item[1])
		}
	}
}

// add merges a queued touch into the batch, keeping the latest timestamp
// per session.
func (w *SessionTouchWorker) add(batch map[string]time.Time, raw string) {
	var t model.SessionTouch
	if err := json.Unmarshal([]byte(raw), &t); err != nil || t.TokenHash == "" {
		w.log.Error().Err(err).Msg("Invalid touch payload")
		return
	}
	if prev, ok := batch[t.TokenHash]; !ok || t.At.After(prev) {
		batch[t.TokenHash] = t.At
	}
}

// flush writes the batch. A failed batch is dropped: last_accessed is
// advisory and the next request touches the session again.
func (w *SessionTouchWorker) flush(ctx context.Context, batch map[string]time.Time) {
	if len(batch) == 0 {
		return
	}
	touches := make([]model.SessionTouch, 0, len(batch))
	for hash, at := range batch {
		touches = append(touches, model.SessionTouch{TokenHash: hash, At: at})
	}
	if err := w.store.TouchBatch(ctx, touches); err != nil {
		w.log.Warn().Err(err).Int("count", len(touches)).Msg("Session touch batch failed")
		return
	}
	w.log.Debug().Int("count", len(touches)).Msg("Session touches applied")
}

// drain empties the queue into the batch and flushes it before shutdown.
func (w *SessionTouchWorker) drain(ctx context.Context, batch map[string]time.Time) {
	for {
		raw, err := w.rdb.LPop(ctx, w.key).Result()
		if err != nil {
			break
		}
		w.add(batch, raw)
		if len(batch) >= TouchBatchSize {
			w.flush(ctx, batch)
			clear(batch)
		}
	}
	w.flush(ctx, batch)
	clear(batch)
}
