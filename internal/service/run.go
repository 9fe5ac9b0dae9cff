package service

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"

	"pgbackup/config"
	"pgbackup/internal/db"
	"pgbackup/internal/executor"
	"pgbackup/internal/lock"
	"pgbackup/internal/notify"
	"pgbackup/internal/scheduler"
	"pgbackup/internal/store"
	pgstore "pgbackup/internal/store/postgres"
	redisstore "pgbackup/internal/store/redis"
	"pgbackup/web"
)

// Run wires the whole service together and blocks until ctx is cancelled.
// The scheduler instance is constructed here and passed by reference to the
// API layer; nothing is process-global.
func Run(ctx context.Context, cfg *config.Config, servers []executor.Server) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	persistence, err := setupPersistence(ctx, cfg)
	if err != nil {
		return err
	}
	defer persistence.Close()

	jobStore := store.NewJobStore(persistence)
	if err := jobStore.LoadAll(ctx); err != nil {
		return fmt.Errorf("failed to load persisted jobs: %w", err)
	}
	log.Printf("loaded %d persisted backup jobs", jobStore.Count())

	registry := executor.NewStaticServerRegistry(servers)
	exec := executor.NewPgDumpExecutor(registry, cfg.PgDumpPath, cfg.PgDumpallPath)

	opts := []scheduler.Option{
		scheduler.WithPollInterval(time.Duration(cfg.PollInterval) * time.Second),
		scheduler.WithWorkerCount(int64(cfg.WorkerCount)),
	}

	var broker notify.Broker
	if cfg.PublishEvents {
		mq := cfg.RabbitMQConfig
		rabbit, err := notify.NewRabbitMQ(mq.URL, mq.Exchange, mq.Queue, mq.RoutingKey)
		if err != nil {
			return fmt.Errorf("failed to connect to rabbitmq: %w", err)
		}
		broker = rabbit
		defer broker.Close()
		opts = append(opts, scheduler.WithNotifier(notify.NewNotifier(broker)))
	}

	sched := scheduler.New(jobStore, exec, opts...)
	sched.Start()
	defer sched.Stop()

	router := web.NewRouteHandler(
		jobStore,
		sched,
		exec,
		cfg.APIUserName,
		cfg.APIPasswordHash,
		cfg.APIAuthEnabled,
		cfg.APIPort,
	)

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- router.Serve()
	}()

	select {
	case err := <-serveErr:
		return err
	case <-ctx.Done():
		log.Println("shutting down gracefully...")
		return nil
	}
}

func setupPersistence(ctx context.Context, cfg *config.Config) (store.Persistence, error) {
	switch cfg.StorageDriver {
	case config.Postgres:
		sqlDB, err := sql.Open("postgres", cfg.PostgresConfig.ConnectionUrl)
		if err != nil {
			return nil, fmt.Errorf("database connection failed: %w", err)
		}
		locks := lock.NewPostgresAdvisoryLockManager(sqlDB)
		if err := db.Init(cfg.PostgresConfig.ConnectionUrl, locks); err != nil {
			sqlDB.Close()
			return nil, fmt.Errorf("migration failed: %w", err)
		}
		return pgstore.NewPostgresJobStore(sqlDB), nil

	case config.Redis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisConfig.Address,
			Password: cfg.RedisConfig.Password,
			DB:       cfg.RedisConfig.DB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		return redisstore.NewRedisJobStore(client), nil

	default:
		return nil, fmt.Errorf("unknown storage driver: %s", cfg.StorageDriver)
	}
}
