package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"trivia/config"
	"trivia/handlers"
	"trivia/middleware"
	"trivia/models"
	"trivia/routes"
	"trivia/services"

	"github.com/gin-gonic/gin"
	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const releaseVersion = "1.0.0"

func main() {
	cobra.CheckErr(newCmd().Execute())
}

func newCmd() *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix(config.EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	var envFile string

	cmd := &cobra.Command{
		Use:     "trivia",
		Short:   "Live multiplayer trivia server.",
		Args:    cobra.ExactArgs(0),
		Version: releaseVersion,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := config.LoadEnvFile(envFile); err != nil {
				return err
			}
			syncFlags(cmd.Flags(), v)
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(v)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return run(ctx, cfg)
		},
	}

	fs := cmd.Flags()
	fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})
	fs.StringVar(&envFile, "env-file", ".env", "file of KEY=value pairs loaded into the environment")
	config.Flags(fs)

	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.SetHelpCommand(&cobra.Command{Hidden: true})
	cmd.SetVersionTemplate("trivia v{{.Version}}\n")

	cmd.SilenceErrors = true
	cmd.SilenceUsage = true

	return cmd
}

// syncFlags binds every flag into viper and lets environment values fill
// flags that were not given on the command line.
func syncFlags(fs *pflag.FlagSet, v *viper.Viper) {
	fs.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
		_ = v.BindEnv(f.Name)
		if !f.Changed && v.IsSet(f.Name) {
			_ = fs.Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name)))
		}
	})
}

func newLogger(cfg *config.Config) *slog.Logger {
	level, _ := cfg.Level()
	return slog.New(tint.NewHandler(os.Stdout, &tint.Options{
		Level:      level,
		AddSource:  cfg.Debug,
		TimeFormat: time.DateTime,
	}))
}

func run(ctx context.Context, cfg *config.Config) error {
	logger := newLogger(cfg)
	slog.SetDefault(logger)

	logger.Info("starting", "version", releaseVersion, "db_driver", cfg.DBDriver)

	db, err := config.InitDB(cfg)
	if err != nil {
		return err
	}
	if err := db.AutoMigrate(&models.Game{}, &models.Score{}); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	store := services.NewScoreStore(db)
	sinks := services.MultiSink{store}

	var top handlers.TopScores
	redisClient, err := config.InitRedis(ctx, cfg)
	switch {
	case err != nil:
		logger.Warn("leaderboard disabled", "error", err)
	case redisClient != nil:
		defer redisClient.Close()
		leaderboard := services.NewLeaderboard(redisClient)
		sinks = append(sinks, leaderboard)
		top = leaderboard
		logger.Info("leaderboard enabled", "addr", cfg.RedisAddr)
	}

	amqpConn, amqpChannel, err := config.InitAMQP(cfg)
	switch {
	case err != nil:
		logger.Warn("result events disabled", "error", err)
	case amqpConn != nil:
		defer amqpConn.Close()
		defer amqpChannel.Close()
		sinks = append(sinks, services.NewResultPublisher(amqpChannel, cfg.AMQPExchange))
		logger.Info("result events enabled", "exchange", cfg.AMQPExchange)
	}

	bank := services.LoadQuestionBank(cfg.QuestionsFile, logger)
	if bank.Size() == 0 {
		logger.Warn("question bank is empty, rooms cannot be created")
	}

	hub := services.NewHub(logger)
	gameService := services.NewGameService(hub, bank, sinks, cfg.QuestionsPerRoom, logger)

	rankingHandler := handlers.NewRankingHandler(store, top, logger)
	gameHandler := handlers.NewGameHandler(gameService, hub, cfg.PublicURL, logger)
	wsHandler := handlers.NewWebSocketHandler(gameService, hub, cfg.CORSOrigins, logger)

	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger(logger))
	router.Use(middleware.CORS(cfg.CORSOrigins))

	routes.SetupRoutes(router, rankingHandler, gameHandler, wsHandler)

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           router,
		IdleTimeout:       10 * time.Minute,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errs := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errs <- err
		}
		close(errs)
	}()

	select {
	case err, ok := <-errs:
		if ok {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	return srv.Shutdown(shutdownCtx)
}
