package dispatch

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/nextlevelbuilder/musebot/internal/features"
)

// DefaultDrainInterval is how often the background loop scans for queued work.
const DefaultDrainInterval = time.Second

// DefaultDrainBudget bounds items processed per identity per tick so the
// loop cannot starve interactively-triggered requests.
const DefaultDrainBudget = 8

// SetDrainTuning updates the drain interval and per-identity budget. The
// running loop picks both up on its next tick, so tuning can change without
// a restart. Non-positive values fall back to the defaults.
func (f *Facade) SetDrainTuning(interval time.Duration, budget int) {
	if interval <= 0 {
		interval = DefaultDrainInterval
	}
	if budget <= 0 {
		budget = DefaultDrainBudget
	}
	f.drainInterval.Store(int64(interval))
	f.drainBudget.Store(int64(budget))
}

// RunDrainLoop processes deferred queue items at a fixed interval while
// limiter tokens are available, delivering results through the output sink.
// It runs until ctx is cancelled. A failure for one identity never aborts
// the loop or other identities' work.
func (f *Facade) RunDrainLoop(ctx context.Context, interval time.Duration, budget int) {
	f.SetDrainTuning(interval, budget)
	current := f.drainInterval.Load()

	slog.Info("dispatch: drain loop started",
		"interval", time.Duration(current), "budget", f.drainBudget.Load())
	ticker := time.NewTicker(time.Duration(current))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("dispatch: drain loop stopped")
			return
		case <-ticker.C:
			if iv := f.drainInterval.Load(); iv != current {
				current = iv
				ticker.Reset(time.Duration(current))
			}
			f.drainTick(ctx, int(f.drainBudget.Load()))
		}
	}
}

// drainTick drains up to budget items per identity with pending work.
// Identities drain concurrently, so one identity's slow remote call does not
// delay the others within the tick; single-flight per identity still holds.
func (f *Facade) drainTick(ctx context.Context, budget int) {
	var wg sync.WaitGroup
	for _, identity := range f.store.queue.Identities() {
		if !f.store.beginDrain(identity) {
			continue
		}
		wg.Add(1)
		go func(id int64) {
			defer wg.Done()
			defer f.store.endDrain(id)
			f.drainIdentity(ctx, id, budget)
		}(identity)
	}
	wg.Wait()
}

// drainIdentity pops items for one identity while tokens and budget last.
// Items whose result is already cached are delivered without consuming a
// token; admission costs a token only when a remote call is actually made.
// The caller holds the identity's drain flag.
func (f *Facade) drainIdentity(ctx context.Context, identity int64, budget int) {
	ctx, span := f.tracer.Start(ctx, "dispatch.drain")
	defer span.End()

	processed := 0
	for processed < budget {
		item, ok := f.store.queue.Peek(identity)
		if !ok {
			break
		}

		fingerprint := features.Fingerprint(item.Kind, item.Payload)
		if cached, hit := f.store.cache.Get(identity, fingerprint); hit {
			f.store.queue.Pop(identity)
			f.deliver(item, cached, nil)
			processed++
			continue
		}

		if !f.store.limiter.TryAcquire(identity) {
			break
		}
		item, ok = f.store.queue.Pop(identity)
		if !ok {
			break
		}
		f.process(ctx, item)
		processed++
	}

	if processed > 0 {
		span.SetAttributes(
			attribute.Int64("identity", identity),
			attribute.Int("items", processed),
		)
		slog.Debug("dispatch: drained deferred items",
			"identity", identity, "items", processed,
			"remaining", f.store.queue.Len(identity))
	}
}
