package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"pgbackup/config"
	"pgbackup/internal/executor"
	"pgbackup/internal/service"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	postgresURL := os.Getenv("PGBACKUP_DATABASE_URL")
	if postgresURL == "" {
		postgresURL = "host=localhost port=5432 user=postgres password=postgres dbname=pgbackup sslmode=disable"
	}

	cfg, err := config.New("primary",
		config.WithPostgresConfig(config.PostgresConfig{ConnectionUrl: postgresURL}),
		config.WithPollInterval(30),
		config.WithWorkerCount(4),
		config.WithAPIPort(8080),
	)
	if err != nil {
		log.Fatalln(err)
	}

	servers := []executor.Server{
		{
			ID:            1,
			Name:          "local",
			Host:          "localhost",
			Port:          5432,
			Username:      "postgres",
			Password:      os.Getenv("PGBACKUP_SERVER_PASSWORD"),
			MaintenanceDB: "postgres",
		},
	}

	if err := service.Run(ctx, cfg, servers); err != nil {
		log.Fatalln(err)
	}
}
