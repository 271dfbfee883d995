package cmd

import (
	"context"
	"testing"
	"time"

	"github.com/nextlevelbuilder/musebot/internal/bus"
	"github.com/nextlevelbuilder/musebot/internal/dispatch"
	"github.com/nextlevelbuilder/musebot/internal/features"
)

// slowCaller answers after a fixed delay, standing in for a slow remote API.
type slowCaller struct {
	delay time.Duration
}

func (c *slowCaller) Call(ctx context.Context, kind features.Kind, payload features.Payload) (*features.Result, error) {
	select {
	case <-time.After(c.delay):
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return &features.Result{Kind: kind, Text: "done:" + payload.Text}, nil
}

func TestConsumeInbound_IdentitiesDoNotSerialize(t *testing.T) {
	msgBus := bus.New()
	store := dispatch.NewIdentityStore(dispatch.StoreOptions{
		LimiterCapacity: 5,
		LimiterWindow:   time.Minute,
	})
	facade := dispatch.New(store, &slowCaller{delay: 300 * time.Millisecond}, msgBus)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go consumeInbound(ctx, msgBus, facade)

	start := time.Now()
	for _, sender := range []string{"1", "2"} {
		msgBus.PublishInbound(bus.InboundMessage{
			Channel:         "telegram",
			SenderID:        sender,
			ChatID:          7,
			Content:         "prompt " + sender,
			CallbackPayload: "feature:text2img",
		})
	}

	for i := 0; i < 2; i++ {
		if _, ok := msgBus.SubscribeOutbound(ctx); !ok {
			t.Fatal("outbound stream closed before both replies arrived")
		}
	}

	// Serialized handling would take at least 2x the call latency.
	if elapsed := time.Since(start); elapsed >= 550*time.Millisecond {
		t.Fatalf("both replies took %v, want both in flight at once", elapsed)
	}
}

func TestBuildRequest_RejectsMalformedMessages(t *testing.T) {
	tests := []struct {
		name string
		msg  bus.InboundMessage
	}{
		{"non-numeric sender", bus.InboundMessage{SenderID: "bob", CallbackPayload: "feature:text2img"}},
		{"missing payload", bus.InboundMessage{SenderID: "42"}},
		{"unknown feature", bus.InboundMessage{SenderID: "42", CallbackPayload: "feature:mystery"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := buildRequest(tt.msg); err == nil {
				t.Fatal("expected an error")
			}
		})
	}
}
