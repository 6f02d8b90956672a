package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"interprep/internal/api"
	"interprep/internal/auth"
	"interprep/internal/config"
	"interprep/internal/database"
	"interprep/internal/files"
	"interprep/internal/storage"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg := config.MustLoad()
	logger.Info("api bootstrapping",
		slog.String("db_host", cfg.Database.Host),
		slog.Int("db_port", cfg.Database.Port),
		slog.String("db_name", cfg.Database.Name),
	)

	db, err := database.InitDatabase(cfg.Database)
	if err != nil {
		logger.Error("init database failed", slog.Any("error", err))
		os.Exit(1)
	}

	if err := database.Migrate(db); err != nil {
		logger.Error("migrate database failed", slog.Any("error", err))
		os.Exit(1)
	}
	if err := database.SeedLookupData(db); err != nil {
		logger.Error("seed lookup data failed", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("database ready")

	storageClient, err := storage.NewClient(cfg.MinIO)
	if err != nil {
		logger.Error("init object storage failed", slog.Any("error", err))
		os.Exit(1)
	}
	bucketCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := storageClient.EnsureBuckets(bucketCtx, cfg.MinIO.Buckets.All(), cfg.MinIO.AutoCreateBucket); err != nil {
		logger.Error("ensure buckets failed", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("object storage ready")

	privateKey, err := os.ReadFile(cfg.Auth.PrivateKeyFile)
	if err != nil {
		logger.Error("read private key failed", slog.Any("error", err))
		os.Exit(1)
	}
	publicKey, err := os.ReadFile(cfg.Auth.PublicKeyFile)
	if err != nil {
		logger.Error("read public key failed", slog.Any("error", err))
		os.Exit(1)
	}
	authService, err := auth.NewService(privateKey, publicKey, cfg.Auth.TokenTTL)
	if err != nil {
		logger.Error("init auth service failed", slog.Any("error", err))
		os.Exit(1)
	}

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr()})
	asynqClient := asynq.NewClient(asynq.RedisClientOpt{Addr: cfg.Redis.Addr()})
	defer asynqClient.Close()

	fileService := files.NewService(
		db,
		storageClient,
		files.NewRouter(cfg.MinIO.Buckets),
		cfg.Upload.MaxFileSize,
		logger,
	)

	router := api.NewRouter(logger)
	api.RegisterRoutes(router, db, authService, fileService, redisClient, asynqClient, logger)

	address := fmt.Sprintf(":%d", cfg.API.Port)
	logger.Info("api listening", slog.String("address", address))
	if err := router.Run(address); err != nil {
		logger.Error("api server exited", slog.Any("error", err))
		os.Exit(1)
	}
}
