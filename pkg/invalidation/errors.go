package invalidation

import "errors"

var (
	// ErrUnsupported rejects invalidation signals keyed by a global identifier.
	// They are refused loudly because dropping them would leave stale slices.
	ErrUnsupported = errors.New("invalidation: signal not supported")
	// ErrUnknownRefresher reports a signal addressed to an unregistered
	// refresher.
	ErrUnknownRefresher = errors.New("invalidation: unknown refresher")
	// ErrOwnerNotFound reports an entity whose owning store cannot be
	// determined.
	ErrOwnerNotFound = errors.New("invalidation: owning store not found")
)
