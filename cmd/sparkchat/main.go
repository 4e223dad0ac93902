package main

import (
	"context"
	"log"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/joho/godotenv"

	"sparkchat/internal/app"
	"sparkchat/pkg/config"
	"sparkchat/pkg/logger"
	"sparkchat/pkg/shutdown"
)

// build metadata, set via ldflags during release
var (
	version   = "dev"
	commit    = "none"
	buildDate = "unknown"
)

func main() {
	_ = godotenv.Load(".env")

	addrVal, dbVal, cfgVal, setFlags := config.ParseCommandFlags()
	cfgPath := config.ResolveConfigPath(cfgVal, setFlags["config"])

	cfg, _, envUsed, err := config.LoadEffective(cfgPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	// Explicit flags win over env and config file.
	if setFlags["addr"] {
		if h, p, err := net.SplitHostPort(addrVal); err == nil {
			cfg.Server.Address = h
			if pn, err := strconv.Atoi(p); err == nil {
				cfg.Server.Port = pn
			}
		}
	}
	if setFlags["db"] || cfg.Server.DBPath == "" {
		cfg.Server.DBPath = dbVal
	}

	logger.InitWithLevel(cfg.Logging.Level)
	if envUsed {
		logger.Debug("config_env_overrides_applied")
	}

	a, err := app.New(cfg, version, commit, buildDate)
	if err != nil {
		shutdown.Abort("app init", err, cfg.Server.DBPath)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := a.Run(ctx); err != nil {
		shutdown.Abort("server exited", err, cfg.Server.DBPath)
	}
}
