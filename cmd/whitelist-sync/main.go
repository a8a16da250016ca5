package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/ThreeDotsLabs/watermill"

	"github.com/clawcraft/gatekeeper/adapters/gatekeeper"
	"github.com/clawcraft/gatekeeper/adapters/reload"
	"github.com/clawcraft/gatekeeper/adapters/whitelist"
	"github.com/clawcraft/gatekeeper/internal/config"
	"github.com/clawcraft/gatekeeper/service"
)

func main() {
	once := flag.Bool("once", false, "run a single synchronization and exit")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger := watermill.NewStdLogger(false, false)

	reloader, err := reload.ForMode(cfg.ReloadMode, cfg.RCONAddr, cfg.RCONPassword, cfg.ScreenSession)
	if err != nil {
		log.Fatalf("Failed to create reloader: %v", err)
	}

	sync := service.NewWhitelistSync(
		gatekeeper.NewClient(cfg.GatekeeperURL, cfg.CallTimeout),
		whitelist.NewFile(cfg.WhitelistPath),
		reloader,
		logger,
		cfg.SyncInterval,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *once {
		added, err := sync.Tick(ctx)
		if err != nil {
			log.Fatalf("Whitelist sync failed: %v", err)
		}
		logger.Info("Whitelist sync finished", watermill.LogFields{"added": added})
		return
	}

	logger.Info("Syncing whitelist from gatekeeper", watermill.LogFields{
		"gatekeeper": cfg.GatekeeperURL,
		"whitelist":  cfg.WhitelistPath,
		"reload":     cfg.ReloadMode,
	})
	sync.Run(ctx)
}
