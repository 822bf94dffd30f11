package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/time/rate"

	_ "votify/docs"
	"votify/internal/config"
	"votify/internal/domain/poll"
	"votify/internal/domain/recovery"
	"votify/internal/domain/stats"
	"votify/internal/domain/user"
	"votify/internal/domain/vote"
	"votify/internal/events"
	api "votify/internal/http"
	"votify/internal/metrics"
	"votify/internal/platform/database"
	jwtpkg "votify/internal/platform/jwt"
	"votify/internal/platform/mailer"
	"votify/internal/repository/postgres"
	"votify/internal/worker"
)

// @title           Votify API
// @version         1.0
// @description     Polling platform with JWT auth and push notifications
// @BasePath        /
// @securityDefinitions.apikey BearerAuth
// @in              header
// @name            Authorization
func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)
	api.SetLogger(logger)

	cfg := config.Load()
	metrics.Register()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	db, err := database.NewPostgres(ctx, cfg.DBDSN)
	if err != nil {
		logger.Error("db connect error", "err", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := database.Migrate(ctx, db); err != nil {
		logger.Error("db migrate error", "err", err)
		os.Exit(1)
	}

	var resetMailer recovery.Mailer = mailer.NewLog(logger)
	if cfg.SMTP.Enabled() {
		resetMailer = mailer.NewSMTP(mailer.SMTPConfig{
			Host:     cfg.SMTP.Host,
			Port:     cfg.SMTP.Port,
			Username: cfg.SMTP.User,
			Password: cfg.SMTP.Password,
			From:     cfg.SMTP.From,
		})
	}

	userSvc := user.NewService(postgres.NewUserRepo(db))
	pollSvc := poll.NewService(postgres.NewPollRepo(db))
	voteSvc := vote.NewService(postgres.NewVoteRepo(db), cfg.ResultsCacheTTL)
	statsSvc := stats.NewService(postgres.NewStatsRepo(db), 6)
	resetSvc := recovery.NewService(postgres.NewRecoveryRepo(db), userSvc, resetMailer, cfg.ResetTTL)

	jwtMgr := jwtpkg.NewManager(cfg.JWTSecret, "votify", cfg.JWTTTL)

	hub := events.NewHub(logger)
	hub.OnCount = metrics.SetPushClients

	voteCh := make(chan worker.VoteEvent, 100)
	go worker.NewVoteWorker(voteCh, hub, logger).Run(ctx)

	finisher := worker.NewFinisher(pollSvc, hub, logger)
	if err := finisher.Start(cfg.FinisherSpec); err != nil {
		logger.Error("finisher error", "err", err)
		os.Exit(1)
	}
	defer finisher.Stop()

	router := api.NewRouter(api.Deps{
		Users:     userSvc,
		Polls:     pollSvc,
		Votes:     voteSvc,
		Stats:     statsSvc,
		Recovery:  resetSvc,
		JWT:       jwtMgr,
		Hub:       hub,
		VoteCh:    voteCh,
		DB:        db,
		VoteRate:  rate.Limit(cfg.VoteRate),
		VoteBurst: cfg.VoteBurst,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("server listening", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("listen error", "err", err)
			cancel()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", "err", err)
	}

	logger.Info("server stopped")
}
