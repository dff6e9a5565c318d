package locks

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	pkgerrors "github.com/angelmondragon/lotledger/pkg/errors"
	"github.com/angelmondragon/lotledger/pkg/logger"
	"github.com/angelmondragon/lotledger/pkg/metrics"
	pkgredis "github.com/angelmondragon/lotledger/pkg/redis"
)

const (
	backendRedis         = "redis"
	defaultRetryInterval = 25 * time.Millisecond
	releaseTimeout       = 2 * time.Second
)

// RedisLocker coordinates item locks across processes with SET NX PX. The TTL
// bounds how long a crashed holder can block a key.
type RedisLocker struct {
	store   pkgredis.LockStore
	ttl     time.Duration
	timeout time.Duration
	retry   time.Duration
	metrics *metrics.InventoryMetrics
	logg    *logger.Logger
}

func NewRedisLocker(store pkgredis.LockStore, ttl, timeout, retry time.Duration, m *metrics.InventoryMetrics) *RedisLocker {
	if retry <= 0 {
		retry = defaultRetryInterval
	}
	return &RedisLocker{
		store:   store,
		ttl:     ttl,
		timeout: timeout,
		retry:   retry,
		metrics: m,
	}
}

// WithLogger attaches a logger used to report failed releases.
func (r *RedisLocker) WithLogger(logg *logger.Logger) *RedisLocker {
	r.logg = logg
	return r
}

func (r *RedisLocker) Acquire(ctx context.Context, key string) (func(), error) {
	redisKey := r.store.LockKey(key)
	token := uuid.NewString()
	started := time.Now()

	waitCtx := ctx
	if r.timeout > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	ticker := time.NewTicker(r.retry)
	defer ticker.Stop()

	for {
		ok, err := r.store.SetNX(waitCtx, redisKey, token, r.ttl)
		if err != nil && waitCtx.Err() == nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "acquire item lock")
		}
		if ok {
			r.metrics.ObserveLockWait(backendRedis, time.Since(started))
			return r.releaser(redisKey, token), nil
		}

		select {
		case <-waitCtx.Done():
			r.metrics.IncLockBusy(backendRedis)
			return nil, pkgerrors.ErrBusy.Because("timed out waiting for %s", key)
		case <-ticker.C:
		}
	}
}

func (r *RedisLocker) releaser(redisKey, token string) func() {
	var once sync.Once
	return func() {
		once.Do(func() {
			ctx, cancel := context.WithTimeout(context.Background(), releaseTimeout)
			defer cancel()
			removed, err := r.store.ReleaseIfOwner(ctx, redisKey, token)
			if r.logg == nil {
				return
			}
			lockCtx := r.logg.WithField(ctx, "lock_key", redisKey)
			if err != nil {
				r.logg.Error(lockCtx, "release item lock", err)
			} else if !removed {
				r.logg.Warn(lockCtx, "item lock expired before release")
			}
		})
	}
}
