// Package redissink broadcasts invalidation events over redis pub/sub so
// every instance of the fleet clears the same cache slices.
package redissink

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/goliatone/go-productinfo/pkg/activity"
	"github.com/redis/go-redis/v9"
)

// Publisher is the subset of *redis.Client used to broadcast.
type Publisher interface {
	Publish(ctx context.Context, channel string, message any) *redis.IntCmd
}

// Subscriber is the subset of *redis.Client used to listen.
type Subscriber interface {
	Subscribe(ctx context.Context, channels ...string) *redis.PubSub
}

// Hook publishes events as JSON on the event channel, or Channel when the
// event names none.
type Hook struct {
	Client  Publisher
	Channel string
}

type wireEvent struct {
	Verb       string         `json:"verb"`
	Domain     string         `json:"domain"`
	EntityID   string         `json:"entityId"`
	StoreID    string         `json:"storeId,omitempty"`
	Origin     string         `json:"origin,omitempty"`
	ActorID    string         `json:"actorId,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	OccurredAt time.Time      `json:"occurredAt"`
}

// Notify encodes and publishes the event.
func (h Hook) Notify(ctx context.Context, event activity.Event) error {
	if h.Client == nil {
		return nil
	}
	normalized := activity.NormalizeEvent(event)
	if !normalized.Valid() {
		return nil
	}
	channel := normalized.Channel
	if channel == "" {
		channel = strings.TrimSpace(h.Channel)
	}
	if channel == "" {
		channel = activity.DefaultChannel
	}
	payload, err := Encode(normalized)
	if err != nil {
		return err
	}
	if err := h.Client.Publish(ctx, channel, payload).Err(); err != nil {
		return fmt.Errorf("redissink: publish %s on %s: %w", normalized.Verb, channel, err)
	}
	return nil
}

// Encode renders an event in the wire format.
func Encode(event activity.Event) ([]byte, error) {
	payload, err := json.Marshal(wireEvent{
		Verb:       event.Verb,
		Domain:     event.Domain,
		EntityID:   event.EntityID,
		StoreID:    event.StoreID,
		Origin:     event.Origin,
		ActorID:    event.ActorID,
		Metadata:   event.Metadata,
		OccurredAt: event.OccurredAt,
	})
	if err != nil {
		return nil, fmt.Errorf("redissink: encode event: %w", err)
	}
	return payload, nil
}

// Decode parses a wire payload received on channel.
func Decode(channel string, payload []byte) (activity.Event, error) {
	var w wireEvent
	if err := json.Unmarshal(payload, &w); err != nil {
		return activity.Event{}, fmt.Errorf("redissink: decode event: %w", err)
	}
	event := activity.NormalizeEvent(activity.Event{
		Verb:       w.Verb,
		Domain:     w.Domain,
		EntityID:   w.EntityID,
		StoreID:    w.StoreID,
		Origin:     w.Origin,
		ActorID:    w.ActorID,
		Channel:    channel,
		Metadata:   w.Metadata,
		OccurredAt: w.OccurredAt,
	})
	if !event.Valid() {
		return activity.Event{}, fmt.Errorf("redissink: incomplete event on %s", channel)
	}
	return event, nil
}

// Listener replays events published by other instances into a handler.
type Listener struct {
	Client  Subscriber
	Channel string
	// Origin identifies this instance; events it published itself are skipped.
	Origin string
	Logger *slog.Logger
}

// Run subscribes and dispatches until ctx is done.
func (l Listener) Run(ctx context.Context, handler activity.ActivityHook) error {
	if l.Client == nil || handler == nil {
		return fmt.Errorf("redissink: listener requires a client and a handler")
	}
	logger := l.Logger
	if logger == nil {
		logger = slog.Default()
	}
	channel := strings.TrimSpace(l.Channel)
	if channel == "" {
		channel = activity.DefaultChannel
	}

	sub := l.Client.Subscribe(ctx, channel)
	defer sub.Close()
	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("redissink: subscribe %s: %w", channel, err)
	}

	messages := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-messages:
			if !ok {
				return nil
			}
			l.dispatch(ctx, logger, handler, msg.Channel, []byte(msg.Payload))
		}
	}
}

func (l Listener) dispatch(ctx context.Context, logger *slog.Logger, handler activity.ActivityHook, channel string, payload []byte) {
	event, err := Decode(channel, payload)
	if err != nil {
		logger.WarnContext(ctx, "dropping invalidation message", slog.String("channel", channel), slog.Any("error", err))
		return
	}
	if l.Origin != "" && event.Origin == l.Origin {
		return
	}
	if err := handler.Notify(ctx, event); err != nil {
		logger.WarnContext(ctx, "replaying invalidation failed",
			slog.String("verb", event.Verb),
			slog.String("domain", event.Domain),
			slog.String("entity_id", event.EntityID),
			slog.Any("error", err))
	}
}
