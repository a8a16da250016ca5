package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/redis/go-redis/v9"

	"github.com/clawcraft/gatekeeper/adapters/clock"
	"github.com/clawcraft/gatekeeper/adapters/events"
	"github.com/clawcraft/gatekeeper/adapters/metadata"
	"github.com/clawcraft/gatekeeper/adapters/registry"
	"github.com/clawcraft/gatekeeper/adapters/reload"
	"github.com/clawcraft/gatekeeper/adapters/store"
	"github.com/clawcraft/gatekeeper/adapters/tokenizer"
	"github.com/clawcraft/gatekeeper/adapters/whitelist"
	"github.com/clawcraft/gatekeeper/internal/config"
	"github.com/clawcraft/gatekeeper/ports"
	"github.com/clawcraft/gatekeeper/service"
	httptransport "github.com/clawcraft/gatekeeper/transport/http"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger := watermill.NewStdLogger(false, false)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Registries, one RPC client per configured chain
	var chains []registry.Chain
	for _, chainID := range cfg.ChainIDs() {
		client, err := ethclient.DialContext(ctx, cfg.RPCURLFor(chainID))
		if err != nil {
			log.Fatalf("Failed to connect to chain %d: %v", chainID, err)
		}
		defer client.Close()
		chains = append(chains, registry.Chain{
			ChainID:  chainID,
			Registry: cfg.Registries[chainID],
			Caller:   client,
		})
	}
	reg := registry.NewERC8004Registry(chains...)
	if len(chains) == 0 {
		logger.Info("No registries configured, only admin overrides and test mode can verify", nil)
	}

	// Store and event publisher: Redis when configured, in-process otherwise
	sysClock := clock.NewSystemClock()
	var (
		kv        ports.Store
		publisher message.Publisher
	)
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			log.Fatalf("Failed to parse Redis URL: %v", err)
		}
		redisClient := redis.NewClient(opts)
		defer redisClient.Close()

		publisher, err = redisstream.NewPublisher(
			redisstream.PublisherConfig{
				Client: redisClient,
			},
			logger,
		)
		if err != nil {
			log.Fatalf("Failed to create Redis publisher: %v", err)
		}
		kv = store.NewRedisStore(redisClient)
	} else {
		publisher = gochannel.NewGoChannel(gochannel.Config{}, logger)
		kv = store.NewMemoryStore(sysClock)
	}
	defer publisher.Close()

	receiptKey, err := tokenizer.LoadSigningKey(cfg.ReceiptKey)
	if err != nil {
		log.Fatalf("Failed to load receipt key: %v", err)
	}

	resolver := service.NewIdentityResolver(reg, metadata.NewHTTPFetcher(nil, cfg.IPFSGateway, cfg.CallTimeout), logger, cfg.CallTimeout)
	challenges := service.NewChallengeStore(kv, sysClock)
	agents := service.NewAgentCache(kv, sysClock)

	gk := service.NewGatekeeper(
		resolver,
		challenges,
		agents,
		tokenizer.NewJWTTokenizer(receiptKey),
		events.NewWatermillPublisher(publisher),
		sysClock,
		logger,
		service.Options{AdminKey: cfg.AdminKey, TestMode: cfg.TestMode},
	).WithChains(reg.Chains)

	if cfg.SyncEnabled {
		reloader, err := reload.ForMode(cfg.ReloadMode, cfg.RCONAddr, cfg.RCONPassword, cfg.ScreenSession)
		if err != nil {
			log.Fatalf("Failed to create reloader: %v", err)
		}
		sync := service.NewWhitelistSync(agents, whitelist.NewFile(cfg.WhitelistPath), reloader, logger, cfg.SyncInterval)
		go sync.Run(ctx)
	}

	server := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           httptransport.WithCORS(httptransport.SetupRouter(gk, logger)),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("Failed to shut down server", err, nil)
		}
	}()

	logger.Info("Gatekeeper listening", watermill.LogFields{
		"addr":      cfg.ListenAddr,
		"chains":    cfg.ChainIDs(),
		"test_mode": cfg.TestMode,
		"sync":      cfg.SyncEnabled,
	})
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("Failed to start server: %v", err)
	}
}
