package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/iliyamo/festplanner/internal/artist"
	"github.com/iliyamo/festplanner/internal/config"
	"github.com/iliyamo/festplanner/internal/database"
	"github.com/iliyamo/festplanner/internal/handler"
	"github.com/iliyamo/festplanner/internal/importer"
	"github.com/iliyamo/festplanner/internal/logging"
	"github.com/iliyamo/festplanner/internal/mail"
	"github.com/iliyamo/festplanner/internal/queue"
	"github.com/iliyamo/festplanner/internal/repository"
	"github.com/iliyamo/festplanner/internal/router"
	"github.com/iliyamo/festplanner/internal/service"
	"github.com/iliyamo/festplanner/internal/storage"
)

func main() {
	cfg := config.Load()
	logger := logging.New(os.Stderr, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(cfg)
	if err != nil {
		logger.Fatal("database connection failed", "err", err)
	}
	defer db.Close()
	if err := database.Migrate(ctx, db, cfg.DBDriver); err != nil {
		logger.Fatal("migration failed", "err", err)
	}

	rdb, err := config.NewRedisClient(ctx)
	if err != nil {
		logger.Warn("redis unavailable; rate limiting and caching disabled", "err", err)
	} else {
		defer rdb.Close()
	}

	store, err := storage.New(ctx, cfg.Storage)
	if err != nil {
		logger.Fatal("storage init failed", "err", err)
	}
	defer store.Close()

	resend := mail.NewResend(cfg.Mail)
	if !resend.Configured() {
		logger.Warn("RESEND_API_KEY is not set; emails will fail")
	}
	mailer := mail.NewMailer(resend, cfg.Mail.PublicURL)
	notifier := service.NewNotifier(
		service.NewPublisher(cfg.AMQPURL, logging.With(logger, "component", "publisher")),
		mailer,
		logging.With(logger, "component", "notifier"),
	)

	if cfg.AMQPURL != "" {
		consumer := queue.NewConsumer(cfg.AMQPURL, notifier, logging.With(logger, "component", "consumer"))
		go func() {
			if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("mail consumer stopped", "err", err)
			}
		}()
	} else {
		logger.Info("no broker configured; mail is sent inline")
	}

	var syncer handler.ArtistSyncer
	if sp, err := artist.NewSpotifyClient(cfg.Spotify); err == nil {
		syncer = artist.NewSyncer(repository.NewBandRepo(db), sp, cfg.Spotify.SyncInterval,
			logging.With(logger, "component", "artist-sync"))
	} else {
		logger.Warn("artist search disabled", "err", err)
	}

	profiles := repository.NewProfileRepo(db)
	festivals := repository.NewFestivalRepo(db)
	stages := repository.NewStageRepo(db)
	shows := repository.NewShowRepo(db)
	bands := repository.NewBandRepo(db)

	e := router.New(router.Deps{
		Cfg:       cfg,
		RateLimit: config.LoadRateLimitConfig(),
		Cache:     config.LoadCacheConfig(),
		Redis:     rdb,
		DB:        db,
		Store:     store,
		Log:       logging.With(logger, "component", "http"),

		Auth: handler.NewAuthHandler(cfg, profiles, repository.NewOTPRepo(db), repository.NewTokenRepo(db),
			notifier, logging.With(logger, "component", "auth")),
		Festivals: handler.NewFestivalHandler(festivals, stages, shows, bands),
		Bands:     handler.NewBandHandler(bands, syncer),
		Imports: handler.NewImportHandler(festivals,
			importer.New(db, store, logging.With(logger, "component", "importer"))),
		Trips: handler.NewTripHandler(handler.TripDeps{
			Trips:       repository.NewTripRepo(db),
			Members:     repository.NewMemberRepo(db),
			Invitations: repository.NewInvitationRepo(db),
			Ratings:     repository.NewRatingRepo(db),
			Shows:       shows,
			Festivals:   festivals,
			Profiles:    profiles,
		}, notifier),
		Uploads: handler.NewUploadHandler(store),
		Invite:  handler.NewInviteHandler(mailer),
	})

	addr := ":" + cfg.Port
	go func() {
		logger.Info("listening", "addr", addr, "env", cfg.Env, "db", cfg.DBDriver)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server failed", "err", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown", "err", err)
	}
}
