package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/zhouzirui/linguabot/backend/internal/config"
	"github.com/zhouzirui/linguabot/backend/internal/handler"
	"github.com/zhouzirui/linguabot/backend/internal/locale"
	"github.com/zhouzirui/linguabot/backend/internal/model/language"
	"github.com/zhouzirui/linguabot/backend/internal/service/chat"
	"github.com/zhouzirui/linguabot/backend/internal/service/responder"
	"github.com/zhouzirui/linguabot/backend/internal/service/speech"
	"github.com/zhouzirui/linguabot/backend/pkg/logger"
	"github.com/zhouzirui/linguabot/backend/web"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	envErr := godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logger.ErrorCF("main", "Failed to load configuration", map[string]interface{}{"error": err.Error()})
		os.Exit(1)
	}
	logger.Init(cfg.Log.Level, cfg.Log.Format)
	if envErr != nil {
		logger.WarnCF("main", "No .env file, using process environment", map[string]interface{}{"error": envErr.Error()})
	}

	catalog, err := locale.Load()
	if err != nil {
		logger.ErrorCF("main", "Failed to load locales", map[string]interface{}{"error": err.Error()})
		os.Exit(1)
	}
	languages := language.NewMemoryStore(language.Seed())
	for _, l := range languages.List() {
		if !catalog.Has(l.Code) {
			logger.ErrorCF("main", "Language has no locale table", map[string]interface{}{"language": l.Code})
			os.Exit(1)
		}
	}
	logger.InfoCF("main", "Locales loaded", map[string]interface{}{"locales": catalog.Codes()})

	speechService := speech.NewService(&cfg.Speech)
	if speechService.Enabled() {
		logger.InfoCF("main", "Speech recognition enabled", map[string]interface{}{
			"endpoint": cfg.Speech.Endpoint,
			"model":    cfg.Speech.ASRModel,
		})
	} else {
		logger.InfoC("main", "语音识别凭证未配置，语音输入不可用")
	}

	sessions := chat.NewService(chat.Deps{
		Locales:   catalog,
		Languages: languages,
		Responder: responder.New(catalog),
		Speech:    speechService,
	}, chat.Config{
		Widget:         cfg.Widget,
		SessionTTL:     cfg.Session.TTL,
		SweepInterval:  cfg.Session.SweepInterval,
		ResizeDebounce: cfg.Session.ResizeDebounce,
	})
	defer sessions.Close()

	router := handler.NewRouter(handler.Deps{
		Languages:      languages,
		Catalog:        catalog,
		Sessions:       sessions,
		Speech:         speechService,
		Assets:         web.Static(),
		AllowedOrigins: cfg.Server.AllowedOrigins,
	})

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.InfoCF("main", "LinguaBot backend listening", map[string]interface{}{"addr": srv.Addr})
		return runServer(gctx, srv)
	})
	g.Go(func() error {
		return sessions.Run(gctx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.ErrorCF("main", "Server stopped", map[string]interface{}{"error": err.Error()})
		os.Exit(1)
	}
	logger.InfoC("main", "Shutdown complete")
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
