package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"slidecast/internal/pkg/cache"
	"slidecast/internal/pkg/events"
	"slidecast/internal/pkg/mongodb"
	exportRepo "slidecast/internal/repository/export"
	"slidecast/internal/server"
	"slidecast/internal/service/slideshow"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the API server",
	Long:  `Start the Slidecast API server with the specified configuration.`,
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	flags := serveCmd.Flags()

	// Server flags
	flags.StringP("host", "H", "0.0.0.0", "server host")
	flags.IntP("port", "p", 8080, "server port")
	flags.String("mode", "release", "server mode (debug/release/test)")

	// Storage flags
	flags.String("storage", "local", "export storage type (local/oss, empty to disable)")

	// Log flags
	flags.String("log-level", "info", "log level (trace/debug/info/warn/error/fatal)")
	flags.String("log-format", "console", "log format (json/console)")

	// Bind flags to viper
	_ = viper.BindPFlag("server.host", flags.Lookup("host"))
	_ = viper.BindPFlag("server.port", flags.Lookup("port"))
	_ = viper.BindPFlag("server.mode", flags.Lookup("mode"))
	_ = viper.BindPFlag("storage.type", flags.Lookup("storage"))
	_ = viper.BindPFlag("log.level", flags.Lookup("log-level"))
	_ = viper.BindPFlag("log.format", flags.Lookup("log-format"))
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()

	// Validate config
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	// Graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 初始化 MongoDB (可选)
	var mongoClient *mongodb.Client
	var archive slideshow.ExportArchive
	if cfg.Mongo.URI != "" {
		client, err := mongodb.New(ctx, &cfg.Mongo)
		if err != nil {
			log.Warn().Err(err).Msg("failed to connect to MongoDB, continuing without it")
		} else {
			mongoClient = client
			log.Info().Str("database", cfg.Mongo.Database).Msg("connected to MongoDB")

			// 创建索引
			if err := mongodb.EnsureIndexes(ctx, mongoClient.Database()); err != nil {
				log.Warn().Err(err).Msg("failed to ensure indexes")
			}
			archive = exportRepo.NewRepo(mongoClient.Database())
		}
	}

	// 初始化 Redis (可选)，用于镜像进度事件
	var redisCache *cache.RedisCache
	var sinks []events.Sink
	if cfg.Redis.Addr != "" {
		rc, err := cache.NewRedisCache(&cfg.Redis)
		if err != nil {
			log.Warn().Err(err).Msg("failed to connect to Redis, continuing without it")
		} else {
			redisCache = rc
			sinks = append(sinks, cache.NewEventPublisher(rc))
			log.Info().Str("addr", cfg.Redis.Addr).Msg("connected to Redis")
		}
	}

	hub := events.NewHub(sinks...)

	svc, _, err := buildService(ctx, cfg, hub, archive)
	if err != nil {
		return fmt.Errorf("failed to build slideshow service: %w", err)
	}

	// Create server
	srv, err := server.New(cfg, server.Deps{
		Service: svc,
		Hub:     hub,
		Mongo:   mongoClient,
		Redis:   redisCache,
	})
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		log.Info().Str("signal", sig.String()).Msg("received shutdown signal")
		cancel()
	}()

	// Start server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	log.Info().
		Str("addr", addr).
		Str("mode", cfg.Server.Mode).
		Msg("starting server")

	return srv.Run(ctx, addr)
}
