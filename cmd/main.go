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

	"github.com/Vovarama1992/go-utils/logger"

	"github.com/Vovarama1992/asistente_imss/internal/archive"
	"github.com/Vovarama1992/asistente_imss/internal/config"
	"github.com/Vovarama1992/asistente_imss/internal/consult"
	"github.com/Vovarama1992/asistente_imss/internal/delivery"
	"github.com/Vovarama1992/asistente_imss/internal/notificator"
	"github.com/Vovarama1992/asistente_imss/internal/relay"
	"github.com/Vovarama1992/asistente_imss/internal/speech"

	"go.uber.org/zap"
)

const serviceName = "asistente_imss"

func main() {

	// =========================================================================
	// ENV / LOGGER
	// =========================================================================

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	var baseLogger *zap.Logger
	if cfg.Debug {
		baseLogger, _ = zap.NewDevelopment()
	} else {
		baseLogger, _ = zap.NewProduction()
	}
	defer baseLogger.Sync()
	zl := logger.NewZapLogger(baseLogger.Sugar())

	// =========================================================================
	// CLIENTS (WEBHOOK / TTS / S3 / TELEGRAM)
	// =========================================================================

	webhook := relay.NewN8NClient(cfg.WebhookURL, cfg.WebhookTimeout)

	var tts speech.TTSClient
	switch cfg.TTS.Provider {
	case config.ProviderElevenLabs:
		tts = speech.NewElevenLabsClient(cfg.TTS.ElevenLabsKey, cfg.TTS.ElevenLabsVoice)
	case config.ProviderOpenAI:
		tts = speech.NewOpenAITTS(cfg.TTS.OpenAIKey, cfg.TTS.OpenAIVoice)
	default:
		tts = speech.NewGoogleTTS(cfg.TTS.Lang, cfg.TTS.TLD, cfg.TTS.Slow)
	}

	// nil-интерфейс, а не nil-указатель: consult проверяет archive != nil
	var archiver consult.Archiver
	if cfg.S3.Enabled() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		s3Client, err := archive.NewS3Client(ctx, cfg.S3)
		cancel()
		if err != nil {
			log.Fatalf("failed to init s3: %v", err)
		}
		archiver = archive.NewService(s3Client)
	}

	var notifyInfra notificator.Notificator = notificator.NopInfra{}
	if cfg.TelegramToken != "" && len(cfg.AdminChatIDs) > 0 {
		tg, err := notificator.NewTelegramInfra(cfg.TelegramToken, serviceName, cfg.AdminChatIDs)
		if err != nil {
			log.Fatalf("failed to init telegram: %v", err)
		}
		notifyInfra = tg
	}

	// =========================================================================
	// DOMAIN SERVICES
	// =========================================================================

	speechService := speech.NewService(tts, cfg.TTS.Timeout, zl)
	notifyService := notificator.NewService(notifyInfra)
	consultService := consult.NewService(webhook, speechService, archiver, cfg.MaxMessageLength, zl)

	// =========================================================================
	// HTTP ROUTER
	// =========================================================================

	consultHandler := delivery.NewConsultHandler(consultService, notifyService, zl)
	r := delivery.NewRouter(consultHandler, zl, cfg.RateLimitPerMin, cfg.Debug)

	// =========================================================================
	// START SERVER
	// =========================================================================

	// WriteTimeout покрывает webhook + синтез
	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      cfg.WebhookTimeout + cfg.TTS.Timeout + 15*time.Second,
	}

	go func() {
		zl.Log(logger.LogEntry{
			Level:   "info",
			Message: "listening at " + srv.Addr + " (tts: " + cfg.TTS.Provider + ")",
			Service: serviceName,
		})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server error: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		zl.Log(logger.LogEntry{Level: "error", Message: "shutdown failed", Service: serviceName, Error: err})
	}
}
