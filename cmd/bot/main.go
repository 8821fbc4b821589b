package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/akarpov/ledgerbot/internal/bot"
	"github.com/akarpov/ledgerbot/internal/config"
	"github.com/akarpov/ledgerbot/internal/extract"
	"github.com/akarpov/ledgerbot/internal/ledger"
	"github.com/akarpov/ledgerbot/internal/logger"
	"github.com/akarpov/ledgerbot/internal/session"
)

func main() {
	// A missing .env is fine; plain environment variables work too.
	_ = godotenv.Load()

	log := logger.New()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	loc, ok := cfg.Location()
	if !ok {
		log.Warn().Str("timezone", cfg.Timezone).Msg("Invalid timezone, falling back to UTC")
	}

	ledgerClient := ledger.NewClient(cfg.LedgerAPIURL, cfg.LedgerAPIToken)
	extractor := extract.New(extract.NewGeminiClient(""), loc, cfg.DefaultCurrency, log)
	sessions := session.NewStore(cfg.SessionTTL)

	proc := bot.NewProcessor(extractor, ledgerClient, sessions, cfg.AccountTokens, cfg.DefaultAccountID, log)

	tg, err := bot.NewTelegram(cfg.TelegramBotToken, proc, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize the Telegram bot")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go startHealthServer(cfg.HealthAddr, log)

	// Run the poller in the background and wait for an interrupt.
	errCh := make(chan error, 1)
	go func() {
		errCh <- tg.Run(ctx)
	}()

	log.Info().Msg("Bot started, waiting for messages...")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
		log.Info().Msg("Shutting down...")
		cancel()
		<-errCh
	case err := <-errCh:
		if err != nil && ctx.Err() == nil {
			log.Fatal().Err(err).Msg("Bot stopped with error")
		}
	}
}

// startHealthServer exposes a liveness endpoint for deployment probes.
func startHealthServer(addr string, log zerolog.Logger) {
	start := time.Now()

	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"status":"healthy","uptime":%q,"timestamp":%q}`,
			time.Since(start).String(), time.Now().Format(time.RFC3339))
	})

	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Error().Err(err).Str("addr", addr).Msg("Health server stopped")
	}
}
