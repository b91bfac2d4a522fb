package main

import (
	"log"
	"log/slog"
	"path/filepath"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/pressly/goose/v3"
	"github.com/villagehub/chatcore/internal/config"
	"github.com/villagehub/chatcore/internal/repository/cache"
	"github.com/villagehub/chatcore/internal/repository/database"
	"github.com/villagehub/chatcore/internal/server"
	"github.com/villagehub/chatcore/internal/service"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Fatal("no .env file: ", err)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		return
	}

	cache.NewRedisClient(cfg.Redis.Addr())
	slog.Info("Redis inited")

	dsn := cfg.Database.DSN()
	if err := database.NewPostgresClient(dsn); err != nil {
		log.Fatal(err)
	}
	slog.Info("Database inited")

	if err := goose.SetDialect("postgres"); err != nil {
		slog.Error("Failed to set dialect (migrations)", "error", err)
		return
	}

	migrationsPath := filepath.Join("internal", "repository", "database", "migrations")
	if err := goose.Up(database.Client().DB, migrationsPath); err != nil {
		slog.Error("Failed to migrate up", "error", err)
		return
	}
	slog.Info("Migrations completed")

	go service.GetHub().Run()

	srv := server.NewServer(cfg, server.WithMigrateDown(func() error {
		return goose.Down(database.Client().DB, migrationsPath)
	}))
	srv.Run(":" + cfg.App.Port)
}
