// Package locks provides the per-key exclusive sections that serialise
// inventory mutations on a single item.
package locks

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/angelmondragon/lotledger/pkg/config"
	"github.com/angelmondragon/lotledger/pkg/logger"
	"github.com/angelmondragon/lotledger/pkg/metrics"
	pkgredis "github.com/angelmondragon/lotledger/pkg/redis"
)

// Locker grants exclusive access to a key. Release must be called exactly
// once after a successful Acquire; extra calls are ignored.
type Locker interface {
	Acquire(ctx context.Context, key string) (release func(), err error)
}

// ItemKey returns the lock key guarding all mutations of one item.
func ItemKey(itemID uuid.UUID) string {
	return "item:" + itemID.String()
}

// FromConfig selects the locker backend named in cfg.
func FromConfig(cfg config.LockConfig, store pkgredis.LockStore, m *metrics.InventoryMetrics, logg *logger.Logger) (Locker, error) {
	if cfg.UsesRedis() {
		if store == nil {
			return nil, fmt.Errorf("redis lock backend selected without a redis client")
		}
		return NewRedisLocker(store, cfg.TTL, cfg.WaitTimeout, cfg.RetryInterval, m).WithLogger(logg), nil
	}
	return NewKeyedMutex(cfg.WaitTimeout, m), nil
}

// With runs fn while holding key.
func With(ctx context.Context, locker Locker, key string, fn func() error) error {
	release, err := locker.Acquire(ctx, key)
	if err != nil {
		return err
	}
	defer release()
	return fn()
}
