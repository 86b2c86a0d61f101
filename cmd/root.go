package cmd

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"slidecast/internal/ai/component"
	"slidecast/internal/config"
	"slidecast/internal/pkg/ark"
	"slidecast/internal/pkg/logger"
)

var (
	cfgFile string
	envFile string
	cfg     *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "slidecast",
	Short: "Slidecast - script to narrated slideshow",
	Long: `Slidecast turns a line-oriented script into an illustrated, narrated slideshow video.
It generates one image per line in budgeted batches, aligns the lines against a
narration recording, renders the video and exports the results.`,
	SilenceUsage: true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "",
		"config file (default: ./configs/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env",
		"dotenv file loaded before reading environment variables")

	_ = viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
}

func initConfig() {
	// .env 只补充未设置的环境变量
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "Failed to load %s: %v\n", envFile, err)
		}
	}

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath("./configs")
		viper.AddConfigPath(".")
		viper.AddConfigPath("$HOME/.slidecast")
	}

	// 环境变量设置
	viper.SetEnvPrefix("SLIDECAST")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// 设置默认值
	setDefaults()

	// 读取配置文件
	if err := viper.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if errors.As(err, &configFileNotFoundError) {
			fmt.Fprintln(os.Stderr, "No config file found, using defaults and environment variables")
		} else {
			fmt.Fprintf(os.Stderr, "Failed to read config: %v\n", err)
			os.Exit(1)
		}
	}

	// 反序列化到结构体
	cfg = &config.Config{}
	if err := viper.Unmarshal(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to unmarshal config: %v\n", err)
		os.Exit(1)
	}

	// 初始化日志
	if err := logger.Init(&cfg.Log); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to init logger: %v\n", err)
		os.Exit(1)
	}

	log.Debug().Str("config_file", viper.ConfigFileUsed()).Msg("configuration loaded")
}

func setDefaults() {
	// Server
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.mode", "release")
	viper.SetDefault("server.read_timeout", "30s")
	viper.SetDefault("server.write_timeout", "5m")
	viper.SetDefault("server.max_upload_mb", 64)

	// AI（对齐与凭证校验）
	viper.SetDefault("ai.provider", "ark")
	viper.SetDefault("ai.model", component.DefaultArkModel)
	viper.SetDefault("ai.options.temperature", 0.1)
	viper.SetDefault("ai.options.max_tokens", 4096)

	// Image（Ark 图片生成）
	viper.SetDefault("image.base_url", ark.DefaultBaseURL)
	viper.SetDefault("image.model", ark.DefaultImageModel)
	viper.SetDefault("image.size", ark.DefaultImageSize)
	viper.SetDefault("image.watermark", false)

	// Pipeline
	viper.SetDefault("pipeline.max_attempts", 3)
	viper.SetDefault("pipeline.retry_delay", "1.5s")
	viper.SetDefault("pipeline.min_duration", 0.8)
	viper.SetDefault("pipeline.fallback_duration", 3.0)

	// Render
	viper.SetDefault("render.width", 1280)
	viper.SetDefault("render.height", 720)
	viper.SetDefault("render.fps", 30)
	viper.SetDefault("render.fade_in", 0.5)
	viper.SetDefault("render.ffmpeg_path", "ffmpeg")
	viper.SetDefault("render.ffprobe_path", "ffprobe")

	// Log
	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.format", "console")
	viper.SetDefault("log.output", "stdout")
	viper.SetDefault("log.time_format", "RFC3339")

	// Storage
	viper.SetDefault("storage.type", "local")
	viper.SetDefault("storage.local.base_path", "./data")
	viper.SetDefault("storage.local.presign_expiry", 3600)

	// MongoDB（可选，为空时不归档导出记录）
	viper.SetDefault("mongo.database", "slidecast")
	viper.SetDefault("mongo.max_pool_size", 100)
	viper.SetDefault("mongo.min_pool_size", 1)

	// Redis（可选，为空时不镜像事件）
	viper.SetDefault("redis.db", 0)
}

// GetConfig returns the global configuration
func GetConfig() *config.Config {
	return cfg
}
