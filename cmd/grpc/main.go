package main

import (
	"context"
	"errors"
	"net"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/fekuna/omnipos-catalog-engine/config"
	"github.com/fekuna/omnipos-catalog-engine/internal/catalog"
	"github.com/fekuna/omnipos-catalog-engine/internal/catalog/handler"
	"github.com/fekuna/omnipos-catalog-engine/internal/catalog/listener"
	"github.com/fekuna/omnipos-catalog-engine/internal/catalog/presenter"
	"github.com/fekuna/omnipos-catalog-engine/internal/catalog/ranking"
	catRepoPkg "github.com/fekuna/omnipos-catalog-engine/internal/catalog/repository"
	catSearchPkg "github.com/fekuna/omnipos-catalog-engine/internal/catalog/search"
	"github.com/fekuna/omnipos-catalog-engine/internal/catalog/store"
	"github.com/fekuna/omnipos-catalog-engine/internal/catalog/usecase"
	"github.com/fekuna/omnipos-catalog-engine/internal/middleware"
	"github.com/fekuna/omnipos-catalog-engine/internal/pkg/cache"
	"github.com/fekuna/omnipos-catalog-engine/internal/pkg/logger"
	"github.com/fekuna/omnipos-catalog-engine/internal/pkg/postgres"
	"github.com/fekuna/omnipos-catalog-engine/internal/pkg/search"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/reflection"
)

func main() {
	// 1. Load Configuration
	_ = godotenv.Load()
	cfg := config.LoadEnv()

	// 2. Initialize Logger
	logConfig := &logger.ZapLoggerConfig{
		IsDevelopment:     false,
		Encoding:          cfg.Logger.Encoding,
		Level:             cfg.Logger.Level,
		DisableCaller:     cfg.Logger.DisableCaller,
		DisableStacktrace: cfg.Logger.DisableStacktrace,
	}
	if cfg.Server.AppEnv == "development" || cfg.Server.AppEnv == "dev" {
		logConfig.IsDevelopment = true
	}

	appLogger := logger.NewZapLogger(logConfig)
	defer appLogger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Product Source
	var source catalog.Source
	switch cfg.Catalog.Source {
	case "http":
		source = catRepoPkg.NewHTTPRepository(cfg.Catalog.SourceURL, nil)
		appLogger.Info("Using HTTP product source", zap.String("url", cfg.Catalog.SourceURL))
	default:
		db, err := postgres.NewPostgres(&postgres.Config{
			Host:            cfg.Postgres.Host,
			Port:            cfg.Postgres.Port,
			User:            cfg.Postgres.User,
			Password:        cfg.Postgres.Password,
			DBName:          cfg.Postgres.DBName,
			SSLMode:         cfg.Postgres.SSLMode,
			MaxOpenConns:    cfg.Postgres.MaxOpenConns,
			MaxIdleConns:    cfg.Postgres.MaxIdleConns,
			ConnMaxLifetime: time.Duration(cfg.Postgres.ConnMaxLifetime) * time.Second,
			ConnMaxIdleTime: time.Duration(cfg.Postgres.ConnMaxIdleTime) * time.Second,
		})
		if err != nil {
			appLogger.Fatal("Could not connect to database", zap.Error(err))
		}
		defer db.Close()
		source = catRepoPkg.NewPGRepository(db)
		appLogger.Info("Connected to PostgreSQL database", zap.String("db_name", cfg.Postgres.DBName))
	}

	// 4. Redis (score cache and optional update channel)
	redisClient, err := cache.NewRedisClient(&cache.Config{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		appLogger.Warn("Could not connect to Redis, score cache disabled", zap.Error(err))
		redisClient = nil
	} else {
		defer redisClient.Close()
		appLogger.Info("Connected to Redis", zap.String("addr", cfg.Redis.Addr))
	}

	// 5. Update Channel
	var channel catalog.UpdateChannel
	switch cfg.Catalog.Channel {
	case "kafka":
		// Every view instance must see every update, so each one joins its own group.
		groupID := cfg.Kafka.GroupID + "-" + uuid.NewString()
		channel = listener.NewKafkaChannel(listener.KafkaConfig{
			Brokers: cfg.Kafka.Brokers,
			Topic:   cfg.Kafka.Topic,
			GroupID: groupID,
		}, appLogger)
		appLogger.Info("Using Kafka update channel",
			zap.Strings("brokers", cfg.Kafka.Brokers),
			zap.String("topic", cfg.Kafka.Topic),
			zap.String("group_id", groupID),
		)
	case "redis":
		if redisClient == nil {
			appLogger.Error("Redis update channel requested but Redis is unavailable, serving static catalog")
			break
		}
		channel = listener.NewRedisChannel(redisClient.Client, cfg.Catalog.RedisChannel, appLogger)
		appLogger.Info("Using Redis update channel", zap.String("channel", cfg.Catalog.RedisChannel))
	default:
		appLogger.Info("No update channel configured, serving static catalog")
	}

	// 6. Ranker
	var ranker catalog.Ranker = ranking.NewHeuristic()
	if redisClient != nil {
		ranker = ranking.NewCached(ranker, redisClient.Client, cfg.Catalog.ScoreCacheTTL, appLogger)
	}

	// 7. Elasticsearch mirror
	opts := []usecase.Option{
		usecase.WithRankTimeout(cfg.Catalog.RankTimeout),
		usecase.WithLoadTimeout(cfg.Catalog.LoadTimeout),
	}
	esClient, err := search.NewClient(&search.Config{
		Addresses: cfg.Elastic.Addresses,
		Username:  cfg.Elastic.Username,
		Password:  cfg.Elastic.Password,
	})
	if err != nil {
		appLogger.Warn("Could not connect to Elasticsearch, search mirror disabled", zap.Error(err))
	} else {
		opts = append(opts, usecase.WithIndexer(catSearchPkg.NewIndexer(esClient, cfg.Catalog.IndexName, appLogger)))
		appLogger.Info("Connected to Elasticsearch", zap.Strings("addresses", cfg.Elastic.Addresses))
	}

	// 8. Catalog Engine
	engine := usecase.NewEngine(store.New(), source, channel, ranker, appLogger, opts...)
	if err := engine.Start(ctx); err != nil {
		appLogger.Fatal("Could not start catalog engine", zap.Error(err))
	}
	defer engine.Stop()

	catalogHandler := handler.NewCatalogHandler(engine, presenter.New(cfg.Catalog.ImageBaseURL, cfg.Catalog.Currency), appLogger)

	// 9. Start gRPC Server
	port := cfg.Server.GRPCPort
	if !strings.HasPrefix(port, ":") {
		port = ":" + port
	}

	lis, err := net.Listen("tcp", port)
	if err != nil {
		appLogger.Fatal("failed to listen", zap.Error(err))
	}

	grpcServer := grpc.NewServer(
		grpc.UnaryInterceptor(middleware.UnaryLoggingInterceptor(appLogger)),
		grpc.StreamInterceptor(middleware.StreamLoggingInterceptor(appLogger)),
	)
	handler.RegisterCatalogViewServer(grpcServer, catalogHandler)
	reflection.Register(grpcServer)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		appLogger.Info("Starting gRPC server", zap.String("port", port))
		if err := grpcServer.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		appLogger.Info("Shutting down server...")
		// Open WatchView streams end when the engine stops.
		engine.Stop()
		grpcServer.GracefulStop()
		return nil
	})

	if err := g.Wait(); err != nil {
		appLogger.Error("gRPC server failed", zap.Error(err))
	}
	appLogger.Info("Server stopped")
}
