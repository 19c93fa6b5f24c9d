package invalidation

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/goliatone/go-productinfo/pkg/activity"
	"github.com/google/uuid"
)

// Coordinator dispatches transport signals to registered refreshers. It also
// satisfies activity.ActivityHook so events replayed from other instances
// can be fed straight into it.
type Coordinator struct {
	mu     sync.RWMutex
	byID   map[uuid.UUID]*Refresher
	byName map[string]*Refresher
	logger *slog.Logger
}

// NewCoordinator builds an empty coordinator.
func NewCoordinator(logger *slog.Logger) *Coordinator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Coordinator{
		byID:   map[uuid.UUID]*Refresher{},
		byName: map[string]*Refresher{},
		logger: logger,
	}
}

// Register adds refreshers. Ids and names must be unique.
func (c *Coordinator) Register(refreshers ...*Refresher) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, r := range refreshers {
		if r == nil {
			continue
		}
		if _, exists := c.byID[r.ID()]; exists {
			return fmt.Errorf("invalidation: refresher id %s already registered", r.ID())
		}
		if _, exists := c.byName[r.Name()]; exists {
			return fmt.Errorf("invalidation: refresher %s already registered", r.Name())
		}
		c.byID[r.ID()] = r
		c.byName[r.Name()] = r
	}
	return nil
}

// Refresher returns the refresher registered under id.
func (c *Coordinator) Refresher(id uuid.UUID) (*Refresher, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	r, ok := c.byID[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownRefresher, id)
	}
	return r, nil
}

// Names lists the registered domains in sorted order.
func (c *Coordinator) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	names := make([]string, 0, len(c.byName))
	for name := range c.byName {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Refresh routes an entity refresh to the refresher id.
func (c *Coordinator) Refresh(ctx context.Context, refresherID uuid.UUID, entityID int64) error {
	r, err := c.Refresher(refresherID)
	if err != nil {
		return err
	}
	return r.Refresh(ctx, entityID)
}

// Remove routes an entity removal to the refresher id.
func (c *Coordinator) Remove(ctx context.Context, refresherID uuid.UUID, entityID int64) error {
	r, err := c.Refresher(refresherID)
	if err != nil {
		return err
	}
	return r.Remove(ctx, entityID)
}

// RefreshAll routes a flush to the refresher id.
func (c *Coordinator) RefreshAll(ctx context.Context, refresherID uuid.UUID) error {
	r, err := c.Refresher(refresherID)
	if err != nil {
		return err
	}
	return r.RefreshAll(ctx)
}

// RefreshByGUID routes a guid keyed refresh, which every domain rejects.
func (c *Coordinator) RefreshByGUID(ctx context.Context, refresherID, id uuid.UUID) error {
	r, err := c.Refresher(refresherID)
	if err != nil {
		return err
	}
	return r.RefreshByGUID(ctx, id)
}

// RemoveByGUID routes a guid keyed removal, which every domain rejects.
func (c *Coordinator) RemoveByGUID(ctx context.Context, refresherID, id uuid.UUID) error {
	r, err := c.Refresher(refresherID)
	if err != nil {
		return err
	}
	return r.RemoveByGUID(ctx, id)
}

// Notify replays an invalidation broadcast by another instance. Events for
// domains this instance does not cache are ignored.
func (c *Coordinator) Notify(ctx context.Context, event activity.Event) error {
	event = activity.NormalizeEvent(event)
	c.mu.RLock()
	r, ok := c.byName[event.Domain]
	c.mu.RUnlock()
	if !ok {
		c.logger.DebugContext(ctx, "ignoring invalidation for unregistered domain", slog.String("domain", event.Domain))
		return nil
	}
	return r.apply(ctx, event)
}
