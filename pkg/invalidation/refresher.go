// Package invalidation maps entity change signals onto the store scoped
// caches that hold stale data, clears them, and broadcasts the invalidation
// to the rest of the fleet.
package invalidation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"

	"github.com/goliatone/go-productinfo/pkg/activity"
	"github.com/google/uuid"
)

// StoreScoped is a cache holding one slice per store.
type StoreScoped interface {
	ClearStore(ctx context.Context, storeID int64) error
	ClearAll(ctx context.Context) error
}

// OwnerResolver maps an entity id to the store that owns it.
type OwnerResolver interface {
	OwnerStore(ctx context.Context, entityID int64) (int64, error)
}

// OwnerResolverFunc allows plain functions to satisfy OwnerResolver.
type OwnerResolverFunc func(ctx context.Context, entityID int64) (int64, error)

// OwnerStore calls fn.
func (fn OwnerResolverFunc) OwnerStore(ctx context.Context, entityID int64) (int64, error) {
	return fn(ctx, entityID)
}

// StoreIsOwner resolves domains whose entity id is the store id.
var StoreIsOwner = OwnerResolverFunc(func(_ context.Context, entityID int64) (int64, error) {
	return entityID, nil
})

// Signal names, as reported in logs and metrics.
const (
	SignalRefresh    = "refresh"
	SignalRemove     = "remove"
	SignalRefreshAll = "refresh_all"
)

// RefresherConfig wires a Refresher.
type RefresherConfig struct {
	Name   string
	ID     uuid.UUID
	Caches []StoreScoped
	Owners OwnerResolver
	// Broadcast receives an event after every local clear. It is typically an
	// activity.Emitter in front of the fleet transport.
	Broadcast activity.ActivityHook
	Logger    *slog.Logger
}

// Refresher invalidates one cache domain.
type Refresher struct {
	name      string
	id        uuid.UUID
	caches    []StoreScoped
	owners    OwnerResolver
	broadcast activity.ActivityHook
	logger    *slog.Logger

	// mu serializes each clear and broadcast pair.
	mu sync.Mutex
}

// NewRefresher validates cfg and builds a refresher.
func NewRefresher(cfg RefresherConfig) (*Refresher, error) {
	if cfg.Name == "" {
		return nil, fmt.Errorf("invalidation: refresher name is required")
	}
	if cfg.ID == uuid.Nil {
		return nil, fmt.Errorf("invalidation: refresher %s: id is required", cfg.Name)
	}
	caches := make([]StoreScoped, 0, len(cfg.Caches))
	for _, cache := range cfg.Caches {
		if cache != nil {
			caches = append(caches, cache)
		}
	}
	if len(caches) == 0 {
		return nil, fmt.Errorf("invalidation: refresher %s: at least one cache is required", cfg.Name)
	}
	owners := cfg.Owners
	if owners == nil {
		owners = StoreIsOwner
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Refresher{
		name:      cfg.Name,
		id:        cfg.ID,
		caches:    caches,
		owners:    owners,
		broadcast: cfg.Broadcast,
		logger:    logger,
	}, nil
}

// Name returns the domain name.
func (r *Refresher) Name() string { return r.name }

// ID returns the refresher identifier used by the transport.
func (r *Refresher) ID() uuid.UUID { return r.id }

// Refresh clears the slice of the store owning entityID, then broadcasts.
func (r *Refresher) Refresh(ctx context.Context, entityID int64) error {
	return r.invalidate(ctx, SignalRefresh, entityID, activity.BuildRefreshEvent)
}

// Remove clears the slice of the store owning the removed entity, then
// broadcasts.
func (r *Refresher) Remove(ctx context.Context, entityID int64) error {
	return r.invalidate(ctx, SignalRemove, entityID, activity.BuildRemoveEvent)
}

// RefreshAll clears every store's slice, then broadcasts.
func (r *Refresher) RefreshAll(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.clearAll(ctx); err != nil {
		return err
	}
	recordInvalidation(ctx, r.name, SignalRefreshAll, false)
	r.logger.InfoContext(ctx, "cache flushed", slog.String("domain", r.name))
	return r.notify(ctx, activity.BuildRefreshAllEvent(r.input(0, 0)))
}

// RefreshByGUID is not supported: the domain is keyed by integer ids.
func (r *Refresher) RefreshByGUID(_ context.Context, id uuid.UUID) error {
	return fmt.Errorf("%w: %s refresh by guid %s", ErrUnsupported, r.name, id)
}

// RemoveByGUID is not supported: the domain is keyed by integer ids.
func (r *Refresher) RemoveByGUID(_ context.Context, id uuid.UUID) error {
	return fmt.Errorf("%w: %s remove by guid %s", ErrUnsupported, r.name, id)
}

func (r *Refresher) invalidate(ctx context.Context, signal string, entityID int64, build func(activity.InvalidationInput) activity.Event) error {
	storeID, err := r.owners.OwnerStore(ctx, entityID)
	if errors.Is(err, ErrOwnerNotFound) {
		// The entity is gone from the owner index; only a full flush is safe.
		r.logger.WarnContext(ctx, "entity owner unknown, flushing domain",
			slog.String("domain", r.name),
			slog.String("signal", signal),
			slog.Int64("entity_id", entityID))
		return r.RefreshAll(ctx)
	}
	if err != nil {
		return fmt.Errorf("invalidation: %s %s entity %d: %w", r.name, signal, entityID, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.clearStore(ctx, storeID); err != nil {
		return err
	}
	recordInvalidation(ctx, r.name, signal, false)
	r.logger.InfoContext(ctx, "cache slice cleared",
		slog.String("domain", r.name),
		slog.String("signal", signal),
		slog.Int64("entity_id", entityID),
		slog.Int64("store_id", storeID))
	return r.notify(ctx, build(r.input(entityID, storeID)))
}

// apply replays an invalidation received from another instance. It clears
// locally and never broadcasts.
func (r *Refresher) apply(ctx context.Context, event activity.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if event.Verb == activity.VerbRefreshAll || event.StoreID == "" {
		recordInvalidation(ctx, r.name, SignalRefreshAll, true)
		return r.clearAll(ctx)
	}
	storeID, err := strconv.ParseInt(event.StoreID, 10, 64)
	if err != nil {
		return fmt.Errorf("invalidation: %s: remote store id %q: %w", r.name, event.StoreID, err)
	}
	signal := SignalRefresh
	if event.Verb == activity.VerbRemove {
		signal = SignalRemove
	}
	recordInvalidation(ctx, r.name, signal, true)
	return r.clearStore(ctx, storeID)
}

func (r *Refresher) clearStore(ctx context.Context, storeID int64) error {
	var errs []error
	for _, cache := range r.caches {
		if err := cache.ClearStore(ctx, storeID); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalidation: %s: clear store %d: %w", r.name, storeID, err)
	}
	return nil
}

func (r *Refresher) clearAll(ctx context.Context) error {
	var errs []error
	for _, cache := range r.caches {
		if err := cache.ClearAll(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalidation: %s: clear all: %w", r.name, err)
	}
	return nil
}

func (r *Refresher) notify(ctx context.Context, event activity.Event) error {
	if r.broadcast == nil {
		return nil
	}
	if err := r.broadcast.Notify(ctx, event); err != nil {
		return fmt.Errorf("invalidation: %s: broadcast %s: %w", r.name, event.Verb, err)
	}
	return nil
}

func (r *Refresher) input(entityID, storeID int64) activity.InvalidationInput {
	return activity.InvalidationInput{
		Domain:      r.name,
		EntityID:    entityID,
		StoreID:     storeID,
		RefresherID: r.id.String(),
	}
}
