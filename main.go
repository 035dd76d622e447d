package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"auctionhub/internal/config"
	"auctionhub/internal/database/db_client"
	"auctionhub/internal/events"
	"auctionhub/internal/http/http_server"
	"auctionhub/internal/redis/redis_client"
	"auctionhub/internal/services/bidding"
	"auctionhub/internal/services/lifecycle"
	"auctionhub/internal/store"
	"auctionhub/internal/store/memstore"
	"auctionhub/internal/store/pgstore"
	"auctionhub/internal/ws"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

var (
	Log, _ = zap.NewDevelopment()
)

func main() {
	defer Log.Sync()
	zap.ReplaceGlobals(Log)

	// 1. Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		Log.Fatal("Failed to load configuration", zap.Error(err))
	}
	Log.Debug("Configuration loaded successfully", zap.Any("config", cfg))

	// 2. Context with signal handling
	ctx, stop := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGINT, syscall.SIGTERM,
	)
	defer stop()

	// 3. Redis (optional: live-update fan-out + sweep lease)
	var redisClient *redis.Client
	if cfg.RedisEnabled {
		redisClient, err = redis_client.NewRedisClient(cfg.RedisHost, int(cfg.RedisPort))
		if err != nil {
			Log.Fatal("Failed to create Redis client", zap.Error(err))
		}
		defer redisClient.Close()
	}

	// 4. Store backend
	var auctionStore store.AuctionStore
	switch cfg.StoreBackend {
	case "memory":
		auctionStore = memstore.New()
	default:
		pgDb, err := db_client.Open(ctx, cfg.PostgresHost, cfg.PostgresPort,
			cfg.PostgresUser, cfg.PostgresPassword, cfg.PostgresDb)
		if err != nil {
			Log.Fatal("pg-open", zap.Error(err))
		}
		defer pgDb.Close()
		if err := pgstore.Migrate(pgDb); err != nil {
			Log.Fatal("pg-migrate", zap.Error(err))
		}
		auctionStore = pgstore.New(pgDb)
	}

	// 5. Core services
	publisher := events.NewPublisher(redisClient)
	biddingService := bidding.NewBiddingService(auctionStore, publisher, cfg.BidMaxRetries)

	// 6. Background: periodic sweep closes expired auctions, assigns winners
	sweeper := lifecycle.NewSweeper(auctionStore, redisClient, publisher, cfg.SweepInterval)
	sweeper.Run(ctx)

	// 7. WebSockets hub + Redis fan-out
	hub := ws.NewHub()
	if redisClient != nil {
		go ws.SubscribeRedisAuctionEvents(ctx, redisClient, hub)
	}
	wsSrv := ws.NewWsServer(hub, auctionStore)

	// 8. HTTP + WS server
	httpServer := http_server.NewHttpServer(cfg.HttpServerPort, wsSrv, biddingService, auctionStore)
	go func() {
		<-ctx.Done()
		_ = httpServer.Dispose()
	}()
	if err := httpServer.Start(); err != nil {
		Log.Fatal("Failed to start HTTP server", zap.Error(err))
	}
}
