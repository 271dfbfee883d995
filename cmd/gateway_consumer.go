package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/nextlevelbuilder/musebot/internal/bus"
	"github.com/nextlevelbuilder/musebot/internal/dispatch"
	"github.com/nextlevelbuilder/musebot/internal/features"
)

// consumeInbound reads feature requests from the channels and routes them
// through the dispatch facade, publishing the reply back to the originating
// channel. Each request runs in its own goroutine so one identity's slow
// remote call never delays another identity's live requests; the per-identity
// containers behind the facade are mutex-guarded. Deferred requests get an
// acknowledgment now; their result arrives later via the drain loop.
func consumeInbound(ctx context.Context, router bus.MessageRouter, facade *dispatch.Facade) {
	slog.Info("inbound message consumer started")

	for {
		msg, ok := router.ConsumeInbound(ctx)
		if !ok {
			return
		}

		req, err := buildRequest(msg)
		if err != nil {
			slog.Warn("inbound: dropping malformed message",
				"channel", msg.Channel, "sender", msg.SenderID, "error", err)
			continue
		}

		go func() {
			outcome := facade.Handle(ctx, req)
			router.PublishOutbound(outcomeReply(req, outcome))
		}()
	}
}

// buildRequest converts an inbound bus message into a dispatch request.
func buildRequest(msg bus.InboundMessage) (dispatch.Request, error) {
	identity, err := strconv.ParseInt(msg.SenderID, 10, 64)
	if err != nil {
		return dispatch.Request{}, fmt.Errorf("non-numeric sender id %q", msg.SenderID)
	}

	const featurePrefix = "feature:"
	if !strings.HasPrefix(msg.CallbackPayload, featurePrefix) {
		return dispatch.Request{}, fmt.Errorf("missing feature payload")
	}
	kind := features.Kind(strings.TrimPrefix(msg.CallbackPayload, featurePrefix))
	if !kind.Valid() {
		return dispatch.Request{}, fmt.Errorf("unknown feature %q", kind)
	}

	return dispatch.Request{
		Identity: identity,
		Kind:     kind,
		Payload:  features.Payload{Text: msg.Content, Image: msg.Image},
		Channel:  msg.Channel,
		ChatID:   msg.ChatID,
	}, nil
}

// outcomeReply formats the immediate answer to a handled request.
func outcomeReply(req dispatch.Request, outcome dispatch.Outcome) bus.OutboundMessage {
	msg := bus.OutboundMessage{
		Channel: req.Channel,
		ChatID:  req.ChatID,
	}

	switch {
	case outcome.Deferred:
		msg.Content = fmt.Sprintf(
			"You're sending requests a bit fast! I queued this one at position %d and will get to it shortly.",
			outcome.Position)
	case outcome.Err != nil:
		msg.Content = features.UserMessage(outcome.Err)
	case outcome.Result.ImageURL != "":
		msg.PhotoURL = outcome.Result.ImageURL
		msg.Content = outcome.Result.Kind.Title() + " result"
	default:
		msg.Content = outcome.Result.Text
	}
	return msg
}
