package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/angelmondragon/lotledger/internal/app"
	"github.com/angelmondragon/lotledger/internal/cli"
	"github.com/angelmondragon/lotledger/pkg/config"
	"github.com/angelmondragon/lotledger/pkg/db"
	"github.com/angelmondragon/lotledger/pkg/locks"
	"github.com/angelmondragon/lotledger/pkg/logger"
	"github.com/angelmondragon/lotledger/pkg/migrate"
	"github.com/angelmondragon/lotledger/pkg/redis"
)

func main() {
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cli.NewRoot(openServices).ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// openServices bootstraps the same stack the API uses. Logs go to stderr so
// command output on stdout stays machine readable.
func openServices(ctx context.Context) (*app.Services, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	logg := logger.FromConfig("lotctl", cfg.App, os.Stderr)

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return nil, nil, fmt.Errorf("connecting database: %w", err)
	}
	closers := []func() error{dbClient.Close}
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			_ = closers[i]()
		}
	}

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		closeAll()
		return nil, nil, err
	}

	var lockStore redis.LockStore
	if cfg.Lock.UsesRedis() {
		redisClient, err := redis.New(ctx, cfg.Redis, logg)
		if err != nil {
			closeAll()
			return nil, nil, fmt.Errorf("connecting redis: %w", err)
		}
		closers = append(closers, redisClient.Close)
		lockStore = redisClient
	}

	locker, err := locks.FromConfig(cfg.Lock, lockStore, nil, logg)
	if err != nil {
		closeAll()
		return nil, nil, err
	}

	svcs, err := app.NewServices(app.Params{DB: dbClient, Locker: locker, Logger: logg})
	if err != nil {
		closeAll()
		return nil, nil, err
	}
	return svcs, closeAll, nil
}
