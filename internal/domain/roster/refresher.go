package roster

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ScopeFunc prepares a context for a background refresh, typically by
// pinning a database connection to the post's schema. The release func is
// called when the refresh is done. A nil ScopeFunc uses the loop context
// unchanged.
type ScopeFunc func(context.Context) (context.Context, func(), error)

// Refresher recomputes display-only elapsed-time labels for the roster on a
// fixed interval, so list views can serve a consistent snapshot instead of
// recomputing per row. It only reads the current time and the roster; it
// never mutates a PatientRecord, and it stops when the owning context is
// cancelled.
type Refresher struct {
	svc      *Service
	interval time.Duration
	scope    ScopeFunc
	logger   zerolog.Logger

	mu     sync.RWMutex
	labels map[uuid.UUID]string
}

func NewRefresher(svc *Service, interval time.Duration, logger zerolog.Logger, scope ScopeFunc) *Refresher {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Refresher{
		svc:      svc,
		interval: interval,
		scope:    scope,
		logger:   logger,
		labels:   make(map[uuid.UUID]string),
	}
}

// Start runs the refresh loop until ctx is cancelled.
func (r *Refresher) Start(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.Refresh(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Refresh(ctx)
		}
	}
}

// Refresh recomputes all labels once.
func (r *Refresher) Refresh(ctx context.Context) {
	if r.scope != nil {
		scoped, release, err := r.scope(ctx)
		if err != nil {
			r.logger.Warn().Err(err).Msg("elapsed-time refresh skipped")
			return
		}
		defer release()
		ctx = scoped
	}

	items, err := r.svc.List(ctx, ListFilter{})
	if err != nil {
		r.logger.Warn().Err(err).Msg("elapsed-time refresh skipped")
		return
	}
	now := time.Now().UTC()
	labels := make(map[uuid.UUID]string, len(items))
	for _, p := range items {
		labels[p.ID] = p.ElapsedLabel(now)
	}
	r.mu.Lock()
	r.labels = labels
	r.mu.Unlock()
}

// Label returns the last computed elapsed-time label for a record, or the
// empty string when the record was admitted after the last refresh.
func (r *Refresher) Label(id uuid.UUID) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.labels[id]
}
