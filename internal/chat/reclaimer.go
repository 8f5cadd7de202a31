package chat

import (
	"context"
	"sync"
	"time"

	"github.com/aqualeads/crm-platform/internal/observability/metrics"
	"github.com/aqualeads/crm-platform/pkg/logging"
)

// MaterializeFunc turns an idle session into a lead. The engine's
// MaterializeLead satisfies it.
type MaterializeFunc func(ctx context.Context, session *ChatSession, origin string) (bool, error)

// Reclaimer periodically rescues abandoned sessions that captured enough
// contact data to be worth saving as a partial lead.
type Reclaimer struct {
	sessions    SessionStore
	materialize MaterializeFunc
	logger      *logging.Logger
	metrics     *metrics.ChatbotMetrics
	interval    time.Duration
	idleAfter   time.Duration
	batch       int

	mu      sync.Mutex
	running bool
	stop    chan struct{}
	done    chan struct{}
}

// ReclaimerOption customizes a Reclaimer.
type ReclaimerOption func(*Reclaimer)

// WithSweepInterval overrides the sweep interval.
func WithSweepInterval(d time.Duration) ReclaimerOption {
	return func(r *Reclaimer) {
		if d > 0 {
			r.interval = d
		}
	}
}

// WithIdleThreshold overrides how long a session must sit untouched before
// it is a reclaim candidate.
func WithIdleThreshold(d time.Duration) ReclaimerOption {
	return func(r *Reclaimer) {
		if d > 0 {
			r.idleAfter = d
		}
	}
}

// WithReclaimerMetrics wires sweep metrics.
func WithReclaimerMetrics(m *metrics.ChatbotMetrics) ReclaimerOption {
	return func(r *Reclaimer) { r.metrics = m }
}

// NewReclaimer creates a reclaimer over the session store and the lead
// materialization routine.
func NewReclaimer(sessions SessionStore, materialize MaterializeFunc, logger *logging.Logger, opts ...ReclaimerOption) *Reclaimer {
	if logger == nil {
		logger = logging.Default()
	}
	r := &Reclaimer{
		sessions:    sessions,
		materialize: materialize,
		logger:      logger,
		interval:    2 * time.Minute,
		idleAfter:   2 * time.Minute,
		batch:       100,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Start launches the sweep loop: one immediate sweep, then one per
// interval. Starting an already-running reclaimer is a no-op.
func (r *Reclaimer) Start() {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		r.logger.Warn("reclaimer already running, ignoring start")
		return
	}
	r.running = true
	r.stop = make(chan struct{})
	r.done = make(chan struct{})
	stop, done := r.stop, r.done
	r.mu.Unlock()

	r.logger.Info("reclaimer started", "interval", r.interval.String(), "idle_after", r.idleAfter.String())

	go func() {
		defer close(done)
		ticker := time.NewTicker(r.interval)
		defer ticker.Stop()
		r.RunOnce(context.Background())
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				r.RunOnce(context.Background())
			}
		}
	}()
}

// Stop halts the sweep loop and waits for an in-flight sweep to finish.
// Stopping a stopped reclaimer is a no-op.
func (r *Reclaimer) Stop() {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return
	}
	r.running = false
	stop, done := r.stop, r.done
	r.mu.Unlock()

	close(stop)
	<-done
	r.logger.Info("reclaimer stopped")
}

// RunOnce performs a single sweep and reports candidates found and leads
// saved. Errors are logged, never propagated: one session's failure must
// not abort the sweep for the rest.
func (r *Reclaimer) RunOnce(ctx context.Context) (found, saved int) {
	cutoff := time.Now().UTC().Add(-r.idleAfter)

	candidates, err := r.sessions.ListIdleCandidates(ctx, cutoff, r.batch)
	if err != nil {
		r.logger.Error("reclaim sweep query failed", "error", err)
		r.metrics.ObserveSweep(0)
		return 0, 0
	}

	for _, session := range candidates {
		created, err := r.materialize(ctx, session, LeadOriginReclaimer)
		if err != nil {
			r.logger.Error("reclaim failed for session", "error", err, "session_id", session.ID)
			continue
		}
		if created {
			saved++
		}
	}

	found = len(candidates)
	if found > 0 {
		r.logger.Info("reclaim sweep completed", "candidates", found, "saved", saved)
	}
	r.metrics.ObserveSweep(saved)
	return found, saved
}
