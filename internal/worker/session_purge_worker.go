package worker

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// SessionPurger deletes expired session rows.
type SessionPurger interface {
	PurgeExpired(ctx context.Context, cutoff time.Time) (int64, error)
}

// SessionPurgeWorker periodically removes expired sessions. Expired rows are
// already rejected by Verify, so this only reclaims storage.
type SessionPurgeWorker struct {
	store    SessionPurger
	interval time.Duration
	now      func() time.Time
	log      zerolog.Logger
}

func NewSessionPurgeWorker(store SessionPurger, interval time.Duration, log zerolog.Logger) *SessionPurgeWorker {
	if interval <= 0 {
		interval = time.Hour
	}
	return &SessionPurgeWorker{
		store:    store,
		interval: interval,
		now:      time.Now,
		log:      log.With().Str("component", "session_purge_worker").Logger(),
	}
}

// Start purges once immediately, then on every tick until ctx is cancelled.
func (w *SessionPurgeWorker) Start(ctx context.Context) {
	w.log.Info().Dur("interval", w.interval).Msg("Worker started")

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.PurgeOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Worker stopped")
			return
		case <-ticker.C:
			w.PurgeOnce(ctx)
		}
	}
}

// PurgeOnce runs a single purge and returns the number of rows removed.
func (w *SessionPurgeWorker) PurgeOnce(ctx context.Context) int64 {
	n, err := w.store.PurgeExpired(ctx, w.now())
	if err != nil {
		if ctx.Err() == nil {
			w.log.Error().Err(err).Msg("Session purge failed")
		}
		return 0
	}
	if n > 0 {
		w.log.Info().Int64("count", n).Msg("Purged expired sessions")
	}
	return n
}
