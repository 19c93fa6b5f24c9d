package activity

import (
	"strconv"
	"strings"
	"time"
)

// Invalidation verbs.
const (
	VerbRefresh    = "cache.refresh"
	VerbRemove     = "cache.remove"
	VerbRefreshAll = "cache.refresh_all"
)

// AllEntities is the entity id carried by flush-all events.
const AllEntities = "*"

// InvalidationInput describes the common fields of invalidation events.
type InvalidationInput struct {
	Domain      string
	EntityID    int64
	StoreID     int64
	RefresherID string
	Origin      string
	ActorID     string
	Channel     string
	Metadata    map[string]any
	OccurredAt  time.Time
}

// BuildRefreshEvent constructs the event broadcast after one entity's store
// slice was refreshed.
func BuildRefreshEvent(input InvalidationInput) Event {
	return buildInvalidationEvent(VerbRefresh, input, false)
}

// BuildRemoveEvent constructs the event broadcast after an entity was removed.
func BuildRemoveEvent(input InvalidationInput) Event {
	return buildInvalidationEvent(VerbRemove, input, false)
}

// BuildRefreshAllEvent constructs the event broadcast after a domain was
// flushed for every store.
func BuildRefreshAllEvent(input InvalidationInput) Event {
	return buildInvalidationEvent(VerbRefreshAll, input, true)
}

func buildInvalidationEvent(verb string, input InvalidationInput, all bool) Event {
	metadata := cloneMap(input.Metadata)
	if input.RefresherID != "" {
		metadata = ensureMetadata(metadata)
		metadata["refresher_id"] = input.RefresherID
	}

	entityID := AllEntities
	storeID := ""
	if !all {
		entityID = strconv.FormatInt(input.EntityID, 10)
		storeID = strconv.FormatInt(input.StoreID, 10)
	}

	return Event{
		Verb:       verb,
		Domain:     strings.TrimSpace(input.Domain),
		EntityID:   entityID,
		StoreID:    storeID,
		Origin:     strings.TrimSpace(input.Origin),
		ActorID:    strings.TrimSpace(input.ActorID),
		Channel:    strings.TrimSpace(input.Channel),
		Metadata:   metadata,
		OccurredAt: input.OccurredAt,
	}
}

func ensureMetadata(meta map[string]any) map[string]any {
	if meta == nil {
		return map[string]any{}
	}
	return meta
}
