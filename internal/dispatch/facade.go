// Package dispatch ties the per-identity limiter, cache, history, and work
// queue together behind a single facade. Given (identity, feature, payload)
// it returns a ready result, a queued acknowledgment, or a normalized error;
// deferred work is delivered later through the output sink by the drain loop.
package dispatch

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/nextlevelbuilder/musebot/internal/bus"
	"github.com/nextlevelbuilder/musebot/internal/features"
	"github.com/nextlevelbuilder/musebot/internal/queue"
)

// FeatureCaller performs one remote feature invocation.
// *features.Client is the production implementation.
type FeatureCaller interface {
	Call(ctx context.Context, kind features.Kind, payload features.Payload) (*features.Result, error)
}

// OutputSink receives results of deferred work. *bus.MessageBus satisfies it.
type OutputSink interface {
	PublishOutbound(msg bus.OutboundMessage)
}

// Request is one feature invocation with its reply target.
type Request struct {
	Identity int64
	Kind     features.Kind
	Payload  features.Payload
	Channel  string // reply channel name
	ChatID   int64  // reply chat
}

// Outcome is the immediate answer to Handle: either a ready result or error
// (Deferred false), or a queued acknowledgment with the queue position.
type Outcome struct {
	Deferred bool
	Position int
	Result   *features.Result
	Err      error
}

// Facade is the dispatch entry point. Stateless across calls except for the
// containers in its IdentityStore and the drain tuning knobs.
type Facade struct {
	store  *IdentityStore
	client FeatureCaller
	sink   OutputSink
	tracer trace.Tracer

	drainInterval atomic.Int64 // nanoseconds, read by the drain loop each tick
	drainBudget   atomic.Int64
}

// New creates a Facade over the given store, remote client, and sink.
func New(store *IdentityStore, client FeatureCaller, sink OutputSink) *Facade {
	return &Facade{
		store:  store,
		client: client,
		sink:   sink,
		tracer: otel.Tracer("musebot/dispatch"),
	}
}

// Store exposes the identity store for menu personalization and status.
func (f *Facade) Store() *IdentityStore { return f.store }

// Handle runs the single-pass decision tree: cache hit → immediate;
// limiter token available → synchronous remote call (cached on success,
// never on error); limiter saturated → enqueue and acknowledge.
func (f *Facade) Handle(ctx context.Context, req Request) Outcome {
	fingerprint := features.Fingerprint(req.Kind, req.Payload)

	if cached, ok := f.store.cache.Get(req.Identity, fingerprint); ok {
		slog.Debug("dispatch: cache hit", "identity", req.Identity, "feature", req.Kind)
		return Outcome{Result: cached}
	}

	if !f.store.limiter.TryAcquire(req.Identity) {
		pos := f.store.queue.Enqueue(queue.Item{
			Identity: req.Identity,
			Kind:     req.Kind,
			Payload:  req.Payload,
			Channel:  req.Channel,
			ChatID:   req.ChatID,
		})
		slog.Info("dispatch: limiter saturated, request queued",
			"identity", req.Identity, "feature", req.Kind, "position", pos)
		return Outcome{Deferred: true, Position: pos}
	}

	// A token was available: opportunistically clear one deferred item first
	// so queued work cannot be starved by a steady live stream.
	f.drainOne(ctx, req.Identity)

	result, err := f.call(ctx, req.Identity, req.Kind, req.Payload)
	if err != nil {
		return Outcome{Err: err}
	}

	f.store.cache.Put(req.Identity, fingerprint, result)
	f.store.history.Append(req.Identity, req.Kind)
	return Outcome{Result: result}
}

// call invokes the remote client inside a trace span. Errors are already
// normalized at the client boundary; they are recorded and passed through.
func (f *Facade) call(ctx context.Context, identity int64, kind features.Kind, payload features.Payload) (*features.Result, error) {
	requestID := uuid.NewString()
	ctx, span := f.tracer.Start(ctx, "feature.call", trace.WithAttributes(
		attribute.String("request.id", requestID),
		attribute.String("feature.kind", string(kind)),
		attribute.Int64("identity", identity),
	))
	defer span.End()

	result, err := f.client.Call(ctx, kind, payload)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		slog.Warn("dispatch: remote call failed",
			"request_id", requestID, "identity", identity, "feature", kind, "error", err)
		return nil, err
	}
	return result, nil
}

// drainOne pops and processes a single deferred item for the identity if one
// is pending. A cached item is delivered without consuming a token; otherwise
// admission costs one token as for a live request. The result (or failure
// notice) goes to the output sink, not the live caller. Single-flight with
// the drain loop.
func (f *Facade) drainOne(ctx context.Context, identity int64) {
	if f.store.queue.Len(identity) == 0 {
		return
	}
	if !f.store.beginDrain(identity) {
		return
	}
	defer f.store.endDrain(identity)

	item, ok := f.store.queue.Peek(identity)
	if !ok {
		return
	}

	fingerprint := features.Fingerprint(item.Kind, item.Payload)
	if cached, hit := f.store.cache.Get(identity, fingerprint); hit {
		f.store.queue.Pop(identity)
		f.deliver(item, cached, nil)
		return
	}

	if !f.store.limiter.TryAcquire(identity) {
		return
	}
	if item, ok = f.store.queue.Pop(identity); !ok {
		return
	}
	f.process(ctx, item)
}

// process executes one queued item that missed the cache: attempt the remote
// call once, deliver or report, drop. The token for this item was consumed
// by the caller.
func (f *Facade) process(ctx context.Context, item queue.Item) {
	result, err := f.call(ctx, item.Identity, item.Kind, item.Payload)
	if err == nil {
		fingerprint := features.Fingerprint(item.Kind, item.Payload)
		f.store.cache.Put(item.Identity, fingerprint, result)
		f.store.history.Append(item.Identity, item.Kind)
	}
	f.deliver(item, result, err)
}

// deliver pushes a processed queue item's outcome to the identity's sink.
func (f *Facade) deliver(item queue.Item, result *features.Result, err error) {
	msg := bus.OutboundMessage{
		Channel: item.Channel,
		ChatID:  item.ChatID,
	}
	switch {
	case err != nil:
		msg.Content = features.UserMessage(err)
	case result.ImageURL != "":
		msg.PhotoURL = result.ImageURL
		msg.Content = result.Kind.Title() + " result"
	default:
		msg.Content = result.Text
	}
	f.sink.PublishOutbound(msg)
}
