// Package app wires configuration, storage, the chat pipeline and the HTTP
// server into a runnable unit.
package app

import (
	"context"
	"fmt"
	"net/http"

	"github.com/joho/godotenv"

	"sparkchat/internal/retention"
	"sparkchat/pkg/banner"
	"sparkchat/pkg/bot"
	"sparkchat/pkg/chat"
	"sparkchat/pkg/config"
	"sparkchat/pkg/logger"
	"sparkchat/pkg/notify"
	"sparkchat/pkg/realtime"
	"sparkchat/pkg/social"
	"sparkchat/pkg/store"
)

// App encapsulates the server components and lifecycle.
type App struct {
	cfg       *config.Config
	version   string
	commit    string
	buildDate string

	hub *realtime.Hub
	svc *chat.Service

	srv *http.Server
}

// New initializes resources that do not require a running context (config
// validation, runtime secrets, storage, the chat pipeline). It does not
// start the HTTP server or the retention scheduler; call Run for those.
func New(cfg *config.Config, version, commit, buildDate string) (*App, error) {
	_ = godotenv.Load(".env")

	if err := validateConfig(cfg); err != nil {
		return nil, err
	}

	secrets := map[string]struct{}{}
	for _, s := range cfg.Security.SigningSecrets {
		secrets[s] = struct{}{}
	}
	config.SetRuntime(&config.RuntimeConfig{SigningSecrets: secrets})

	if err := store.Open(cfg.Server.DBPath); err != nil {
		return nil, fmt.Errorf("failed to open pebble at %s: %w", cfg.Server.DBPath, err)
	}

	a := &App{cfg: cfg, version: version, commit: commit, buildDate: buildDate}
	a.hub = realtime.NewHub()

	var directory social.Directory
	if cfg.Social.DirectoryURL != "" {
		directory = social.NewRemoteClient(cfg.Social.DirectoryURL, cfg.Social.Timeout.Duration())
	} else {
		// Single-node runs without a social-graph service fall back to an
		// empty in-process directory; conversation creation will refuse
		// every pair until users are seeded.
		directory = social.NewMemory()
		logger.Warn("social_directory_unset", "hint", "set social.directory_url")
	}

	var responder *bot.Responder
	if cfg.Bot.Enabled {
		gen, err := bot.NewGeminiClient(context.Background(), cfg.Bot.Model)
		if err != nil {
			return nil, fmt.Errorf("bot enabled but client init failed: %w", err)
		}
		responder = bot.NewResponder(gen, cfg.Bot.Timeout.Duration())
	}

	a.svc = &chat.Service{
		Directory:   directory,
		Broadcast:   a.hub,
		Notify:      notify.New(a.hub),
		Responder:   responder,
		TypingDelay: cfg.Realtime.TypingDelay.Duration(),
	}
	return a, nil
}

func validateConfig(cfg *config.Config) error {
	if cfg.Server.DBPath == "" {
		return fmt.Errorf("server.db_path is required")
	}
	if len(cfg.Security.SigningSecrets) == 0 {
		return fmt.Errorf("security.signing_secrets must contain at least one secret")
	}
	cert, key := cfg.Server.TLS.CertFile, cfg.Server.TLS.KeyFile
	if (cert == "") != (key == "") {
		return fmt.Errorf("tls cert_file and key_file must be set together")
	}
	return nil
}

// Run starts the retention scheduler and the HTTP server, and blocks until
// ctx is canceled or a fatal server error occurs.
func (a *App) Run(ctx context.Context) error {
	stopRetention, err := retention.Start(ctx, a.cfg)
	if err != nil {
		return err
	}
	defer stopRetention()

	a.printBanner()

	errCh := a.startHTTP(ctx)

	select {
	case <-ctx.Done():
		a.shutdown()
		return nil
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	}
}

func (a *App) shutdown() {
	if a.srv != nil {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		if err := a.srv.Shutdown(ctx); err != nil {
			logger.Warn("http_shutdown_error", "error", err)
		}
	}
	if err := store.Close(); err != nil {
		logger.Warn("store_close_error", "error", err)
	}
}

func (a *App) printBanner() {
	ver := a.version
	if a.commit != "none" && a.commit != "" {
		ver += " (" + a.commit + ")"
	}
	if a.buildDate != "unknown" && a.buildDate != "" {
		ver += " @ " + a.buildDate
	}
	banner.Print(a.cfg, ver)
	logger.Info("sparkchat_starting", "version", ver, "addr", a.cfg.Addr())
}
