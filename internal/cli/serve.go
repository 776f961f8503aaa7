package cli

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	api "github.com/AdhamEssa01/accademy/internal/api/http"
	"github.com/AdhamEssa01/accademy/internal/attempt"
	"github.com/AdhamEssa01/accademy/internal/auth"
	"github.com/AdhamEssa01/accademy/internal/config"
	"github.com/AdhamEssa01/accademy/internal/db"
	"github.com/AdhamEssa01/accademy/internal/exam"
	"github.com/AdhamEssa01/accademy/internal/grading"
	"github.com/AdhamEssa01/accademy/internal/roster"
	"github.com/AdhamEssa01/accademy/internal/stats"
)

func newServeCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath)
		},
	}
}

func runServer(ctx context.Context, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	openCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	dbh, err := db.Open(openCtx, db.Driver(cfg.DBDriver), cfg.DBDSN)
	if err != nil {
		return err
	}
	defer dbh.Close()

	var statsCache *stats.Cache
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		statsCache = stats.NewCache(rdb, cfg.StatsTTLDuration(30*time.Second))
	}

	rosterStore := roster.NewSQLStore(dbh)
	examStore := exam.NewSQLStore(dbh)
	attemptStore := attempt.NewSQLStore(dbh, cfg.DBDriver)

	authSvc := auth.NewAuthService(cfg.AuthSecret)
	examSvc := exam.NewService(examStore, rosterStore)
	attemptSvc := attempt.NewService(attemptStore, examStore, rosterStore)
	autoGrader := grading.NewAutoGrader(attemptStore, examStore)
	manualGrader := grading.NewManualGrader(attemptStore, examStore, rosterStore)
	aggregator := stats.NewAggregator(examStore, attemptStore, statsCache)

	handler := api.NewRouter(api.Deps{
		Auth:        authSvc,
		Users:       rosterStore,
		Exams:       examSvc,
		Attempts:    attemptSvc,
		Auto:        autoGrader,
		Manual:      manualGrader,
		Stats:       aggregator,
		CORSOrigins: cfg.CORSOrigins,
	})

	server := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Printf("listening on %s (db=%s)", cfg.HTTPAddr, cfg.DBDriver)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("server: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Println("shutting down...")
	case <-ctx.Done():
		log.Println("context canceled, shutting down...")
	}

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()
	return server.Shutdown(shutdownCtx)
}
