package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"badge-compliance-service/internal/auditlog"
	"badge-compliance-service/internal/config"
	"badge-compliance-service/internal/db"
	httpapi "badge-compliance-service/internal/http"
	"badge-compliance-service/internal/ledger"
	"badge-compliance-service/internal/notify"
	"badge-compliance-service/internal/repository"
	"badge-compliance-service/internal/service"
	"badge-compliance-service/internal/vision"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path of the config file")
	flag.Parse()

	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		With().Timestamp().Logger()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	gdb, err := db.Open(cfg.Database.DSN)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open database")
	}
	repo := repository.NewLedgerRepository(gdb)

	ctx := context.Background()
	roster, err := repo.LoadIdentities(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load roster")
	}
	log.Info().Int("identities", len(roster)).Msg("roster loaded")

	known, err := vision.LoadEmbeddings(cfg.Recognition.EmbeddingsFile)
	if err != nil {
		log.Warn().Err(err).Msg("no known embeddings loaded, face recognition disabled")
		known = map[string][]float64{}
	} else {
		log.Info().Int("embeddings", len(known)).Msg("known embeddings loaded")
	}

	fineLedger := ledger.New(roster, cfg.Fine.Amount, repo, ledger.SystemClock(),
		log.With().Str("component", "ledger").Logger())
	audit := auditlog.NewSink(cfg.Audit.LogCSV,
		log.With().Str("component", "auditlog").Logger())

	var notifier notify.Notifier = notify.Nop{}
	var smtpNotifier *notify.SMTPNotifier
	if cfg.Email.Enabled {
		smtpNotifier = notify.NewSMTPNotifier(cfg.Email,
			log.With().Str("component", "notifier").Logger())
		notifier = smtpNotifier
		log.Info().Str("sender", cfg.Email.SenderEmail).Msg("email notifications enabled")
	} else {
		log.Info().Msg("email notifications disabled")
	}

	personDetector := vision.NewHTTPDetector(cfg.Detector.PersonURL)
	cardDetector := vision.NewHTTPDetector(cfg.Detector.IDCardURL)
	embedder := vision.NewHTTPEmbedder(cfg.Recognition.EmbedderURL)

	probeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := personDetector.CheckHealth(probeCtx); err != nil {
		log.Warn().Err(err).Msg("person detector not reachable at startup")
	}
	if err := cardDetector.CheckHealth(probeCtx); err != nil {
		log.Warn().Err(err).Msg("id card detector not reachable at startup")
	}
	if err := embedder.CheckHealth(probeCtx); err != nil {
		log.Warn().Err(err).Msg("face embedder not reachable at startup")
	}

	pipeline := service.NewPipeline(personDetector, cardDetector, embedder,
		fineLedger, audit, notifier, known, cfg,
		log.With().Str("component", "pipeline").Logger())

	handler := httpapi.NewHandler(pipeline, fineLedger, repo, cfg,
		log.With().Str("component", "http").Logger())

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(httpapi.RequestID())
	r.Use(cors.Default())
	handler.Register(r, httpapi.JWTAuth(cfg.Auth.JWTSecret))

	log.Info().
		Str("addr", cfg.Server.Addr).
		Float64("fine_amount", cfg.Fine.Amount).
		Float64("similarity_threshold", cfg.Recognition.SimilarityThreshold).
		Str("audit_log", cfg.Audit.LogCSV).
		Str("evidence_dir", cfg.Audit.ImagesDir).
		Msg("badge compliance service ready")

	srv := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: r,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	log.Info().Msg("shutting down")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server shutdown failed")
	}
	if smtpNotifier != nil {
		smtpNotifier.Close()
	}
}
