package bootstrap

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/wolfman30/careportal/internal/booking"
	appconfig "github.com/wolfman30/careportal/internal/config"
	"github.com/wolfman30/careportal/internal/directory"
	"github.com/wolfman30/careportal/pkg/logging"
)

// ErrNoDirectorySource is returned when neither a database nor a seed file
// is configured.
var ErrNoDirectorySource = errors.New("bootstrap: DATABASE_URL or DIRECTORY_SEED_FILE required")

// BuildRedisClient returns a configured Redis client or nil if not configured.
func BuildRedisClient(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger, verify bool) *redis.Client {
	if cfg == nil || strings.TrimSpace(cfg.RedisAddr) == "" {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	if ctx == nil {
		ctx = context.Background()
	}

	redisOptions := &redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	}
	if cfg.RedisTLS {
		redisOptions.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	client := redis.NewClient(redisOptions)
	if !verify {
		return client
	}
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("redis not available", "error", err)
		_ = client.Close()
		return nil
	}
	return client
}

// BuildPostgresPool connects to DATABASE_URL. It returns nil, nil when no
// database is configured.
func BuildPostgresPool(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) (*pgxpool.Pool, error) {
	if cfg == nil || strings.TrimSpace(cfg.DatabaseURL) == "" {
		return nil, nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: connect postgres: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("bootstrap: ping postgres: %w", err)
	}
	logger.Info("connected to postgres")
	return pool, nil
}

// BuildDirectory assembles the catalog. Postgres wins over the seed file;
// Redis, when present, fronts every collection with a read-through cache.
func BuildDirectory(cfg *appconfig.Config, db directory.DB, redisClient *redis.Client, opts directory.Options) (*directory.Catalog, error) {
	if opts.Logger == nil {
		opts.Logger = logging.Default()
	}
	var src directory.Sources
	switch {
	case db != nil:
		src = directory.PostgresSources(db)
		opts.Logger.Info("directory backed by postgres")
	case cfg != nil && strings.TrimSpace(cfg.DirectorySeedFile) != "":
		src = directory.FileSources(cfg.DirectorySeedFile)
		opts.Logger.Info("directory backed by seed file", "path", cfg.DirectorySeedFile)
	default:
		return nil, ErrNoDirectorySource
	}
	if redisClient != nil && cfg != nil && cfg.DirectoryCacheTTL > 0 {
		src = src.Cached(redisClient, cfg.DirectoryCacheTTL, opts.Logger)
	}
	return directory.BuildCatalog(src, opts), nil
}

// BuildSessionStore picks the booking session store. The memory store is
// swept in the background until ctx is done.
func BuildSessionStore(ctx context.Context, cfg *appconfig.Config, redisClient *redis.Client, logger *logging.Logger) (booking.SessionStore, error) {
	if logger == nil {
		logger = logging.Default()
	}
	ttl := booking.DefaultSessionTTL
	if cfg != nil && cfg.SessionTTL > 0 {
		ttl = cfg.SessionTTL
	}
	kind := "memory"
	if cfg != nil && cfg.SessionStore != "" {
		kind = cfg.SessionStore
	}

	switch kind {
	case "redis":
		if redisClient == nil {
			return nil, errors.New("bootstrap: SESSION_STORE=redis requires a reachable REDIS_ADDR")
		}
		return booking.NewRedisStore(redisClient, ttl), nil
	case "memory":
		store := booking.NewMemoryStore(ttl, logger)
		go store.Run(ctx, sweepInterval(ttl))
		return store, nil
	default:
		return nil, fmt.Errorf("bootstrap: unknown SESSION_STORE %q", kind)
	}
}

func sweepInterval(ttl time.Duration) time.Duration {
	interval := ttl / 4
	if interval < time.Second {
		interval = time.Second
	}
	return interval
}

// BuildSubmitter chains the configured booking sinks. With a database the
// booking is written to the bookings table, and when a queue is configured
// too it is parked in the outbox for the returned relay to deliver. Without
// a database the queue is called inline. With neither, submissions are kept
// in memory. The relay is nil unless the outbox is in use.
func BuildSubmitter(cfg *appconfig.Config, db booking.OutboxDB, queue booking.SQSSender, logger *logging.Logger) (booking.Submitter, *booking.Relay) {
	if logger == nil {
		logger = logging.Default()
	}
	var queueSink booking.Submitter
	if queue != nil && cfg != nil && strings.TrimSpace(cfg.BookingQueueURL) != "" {
		queueSink = booking.NewQueueSubmitter(queue, cfg.BookingQueueURL)
	}

	switch {
	case db != nil && queueSink != nil:
		outbox := booking.NewOutboxStore(db)
		relay := booking.NewRelay(outbox, queueSink, logger.Component("booking_relay"))
		return booking.Chain(booking.NewPostgresSubmitter(db), outbox), relay
	case db != nil:
		return booking.NewPostgresSubmitter(db), nil
	case queueSink != nil:
		return queueSink, nil
	default:
		logger.Warn("no booking sink configured; confirmed bookings are kept in memory")
		return booking.NewMemorySubmitter(), nil
	}
}
