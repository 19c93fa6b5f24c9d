package usersink_test

import (
	"context"
	"testing"
	"time"

	"github.com/goliatone/go-productinfo/pkg/activity"
	"github.com/goliatone/go-productinfo/pkg/activity/usersink"
	usertypes "github.com/goliatone/go-users/pkg/types"
	"github.com/google/uuid"
)

type recordingSink struct {
	records []usertypes.ActivityRecord
	err     error
}

func (s *recordingSink) Log(_ context.Context, record usertypes.ActivityRecord) error {
	s.records = append(s.records, record)
	return s.err
}

func TestHookNotifyMapsEvent(t *testing.T) {
	sink := &recordingSink{}
	hook := usersink.Hook{Sink: sink}

	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	actorID := uuid.New()

	event := activity.BuildRefreshEvent(activity.InvalidationInput{
		Domain:      "currency",
		EntityID:    12,
		StoreID:     3,
		RefresherID: "refresher-1",
		Origin:      "node-a",
		ActorID:     actorID.String(),
		Channel:     activity.DefaultChannel,
		OccurredAt:  now,
	})

	if err := hook.Notify(context.Background(), event); err != nil {
		t.Fatalf("notify: %v", err)
	}

	if len(sink.records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(sink.records))
	}
	record := sink.records[0]
	if record.ActorID != actorID {
		t.Fatalf("expected actor %s got %s", actorID, record.ActorID)
	}
	if record.Verb != activity.VerbRefresh || record.ObjectType != "currency" || record.ObjectID != "12" {
		t.Fatalf("unexpected record payload: %+v", record)
	}
	if record.Channel != activity.DefaultChannel {
		t.Fatalf("expected channel %s got %q", activity.DefaultChannel, record.Channel)
	}
	if !record.OccurredAt.Equal(now) {
		t.Fatalf("expected occurred_at %v got %v", now, record.OccurredAt)
	}
	if record.Data["store_id"] != "3" || record.Data["origin"] != "node-a" {
		t.Fatalf("expected store and origin metadata got %v", record.Data)
	}
	if record.Data["refresher_id"] != "refresher-1" {
		t.Fatalf("expected metadata passthrough got %v", record.Data["refresher_id"])
	}
}

func TestHookNotifySkipsIncompleteEvent(t *testing.T) {
	sink := &recordingSink{}
	hook := usersink.Hook{Sink: sink}

	_ = hook.Notify(context.Background(), activity.Event{Verb: activity.VerbRefresh})

	if len(sink.records) != 0 {
		t.Fatalf("expected no records for incomplete event, got %d", len(sink.records))
	}
}

func TestHookNotifyDefaultsTimestampAndActor(t *testing.T) {
	sink := &recordingSink{}
	hook := usersink.Hook{Sink: sink}

	err := hook.Notify(context.Background(), activity.BuildRefreshAllEvent(activity.InvalidationInput{
		Domain:  "ping-service",
		ActorID: "not-a-uuid",
	}))
	if err != nil {
		t.Fatalf("notify: %v", err)
	}
	if len(sink.records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(sink.records))
	}
	if sink.records[0].OccurredAt.IsZero() {
		t.Fatalf("expected occurred_at to be defaulted")
	}
	if sink.records[0].ActorID != uuid.Nil {
		t.Fatalf("expected unparseable actor to map to uuid.Nil, got %s", sink.records[0].ActorID)
	}
	if sink.records[0].ObjectID != activity.AllEntities {
		t.Fatalf("expected wildcard object id, got %q", sink.records[0].ObjectID)
	}
}
