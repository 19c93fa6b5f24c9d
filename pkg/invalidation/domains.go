package invalidation

import (
	"log/slog"

	"github.com/goliatone/go-productinfo/pkg/activity"
	"github.com/goliatone/go-productinfo/pkg/storecache"
	"github.com/google/uuid"
)

var refresherNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://github.com/goliatone/go-productinfo/cache"))

// Stock refresher ids. They are stable across releases and instances.
var (
	CurrencyRefresherID    = uuid.NewSHA1(refresherNamespace, []byte(storecache.CurrencyCacheName))
	PropertyRefresherID    = uuid.NewSHA1(refresherNamespace, []byte(storecache.PropertyCacheName))
	PingServiceRefresherID = uuid.NewSHA1(refresherNamespace, []byte(storecache.PingCacheName))
)

// NewCurrencyRefresher invalidates the store currency cache. A currency
// belongs to exactly one store, found through owners.
func NewCurrencyRefresher(cache StoreScoped, owners OwnerResolver, broadcast activity.ActivityHook, logger *slog.Logger) (*Refresher, error) {
	return NewRefresher(RefresherConfig{
		Name:      storecache.CurrencyCacheName,
		ID:        CurrencyRefresherID,
		Caches:    []StoreScoped{cache},
		Owners:    owners,
		Broadcast: broadcast,
		Logger:    logger,
	})
}

// NewPropertyRefresher invalidates the product property alias lists. A store
// owns one list, so entity ids are store ids.
func NewPropertyRefresher(cache StoreScoped, broadcast activity.ActivityHook, logger *slog.Logger) (*Refresher, error) {
	return NewRefresher(RefresherConfig{
		Name:      storecache.PropertyCacheName,
		ID:        PropertyRefresherID,
		Caches:    []StoreScoped{cache},
		Owners:    StoreIsOwner,
		Broadcast: broadcast,
		Logger:    logger,
	})
}

// NewPingServiceRefresher invalidates the ping-service cache, whose entities
// are keyed by store id.
func NewPingServiceRefresher(cache StoreScoped, broadcast activity.ActivityHook, logger *slog.Logger) (*Refresher, error) {
	return NewRefresher(RefresherConfig{
		Name:      storecache.PingCacheName,
		ID:        PingServiceRefresherID,
		Caches:    []StoreScoped{cache},
		Owners:    StoreIsOwner,
		Broadcast: broadcast,
		Logger:    logger,
	})
}
