package config

import (
	"errors"
	"time"
)

// Config 应用配置根结构
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	AI       AIConfig       `mapstructure:"ai"`
	Image    ImageConfig    `mapstructure:"image"`
	Pipeline PipelineConfig `mapstructure:"pipeline"`
	Render   RenderConfig   `mapstructure:"render"`
	Log      LogConfig      `mapstructure:"log"`
	Mongo    MongoConfig    `mapstructure:"mongo"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Storage  StorageConfig  `mapstructure:"storage"`
}

// ServerConfig HTTP 服务器配置
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	Mode         string        `mapstructure:"mode"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	MaxUploadMB  int64         `mapstructure:"max_upload_mb"` // 上传文件大小上限（MB）
}

// AIConfig 对齐与凭证校验使用的对话模型配置
// API Key 不从配置读取，始终使用操作者提交的会话凭证
type AIConfig struct {
	Provider string          `mapstructure:"provider"`
	Model    string          `mapstructure:"model"`
	BaseURL  string          `mapstructure:"base_url"`
	Options  AIOptionsConfig `mapstructure:"options"`
}

// AIOptionsConfig AI 模型参数
type AIOptionsConfig struct {
	Temperature float64 `mapstructure:"temperature"`
	MaxTokens   int     `mapstructure:"max_tokens"`
	TopP        float64 `mapstructure:"top_p"`
}

// ImageConfig 图片生成配置（Ark）
type ImageConfig struct {
	BaseURL   string `mapstructure:"base_url"`  // API 基础 URL
	Model     string `mapstructure:"model"`     // 图片模型
	Size      string `mapstructure:"size"`      // 图片尺寸，如 1280x720
	Style     string `mapstructure:"style"`     // 固定风格描述
	Watermark bool   `mapstructure:"watermark"` // 是否加水印
}

// PipelineConfig 批处理与时间轴参数
type PipelineConfig struct {
	MaxAttempts      int           `mapstructure:"max_attempts"`      // 每行最多尝试次数
	RetryDelay       time.Duration `mapstructure:"retry_delay"`       // 失败重试间隔（固定）
	MinDuration      float64       `mapstructure:"min_duration"`      // 时间轴条目最短时长（秒）
	FallbackDuration float64       `mapstructure:"fallback_duration"` // 无对齐提示时的时长（秒）
}

// RenderConfig 渲染配置
type RenderConfig struct {
	Width       int     `mapstructure:"width"`
	Height      int     `mapstructure:"height"`
	FPS         int     `mapstructure:"fps"`
	FadeIn      float64 `mapstructure:"fade_in"`      // 每张图片淡入时长（秒）
	WorkDir     string  `mapstructure:"work_dir"`     // 临时工作目录，空则使用系统临时目录
	FFmpegPath  string  `mapstructure:"ffmpeg_path"`  // ffmpeg 可执行文件
	FFprobePath string  `mapstructure:"ffprobe_path"` // ffprobe 可执行文件
}

// LogConfig 日志配置 (Zerolog)
type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	Output     string `mapstructure:"output"`
	FilePath   string `mapstructure:"file_path"`
	TimeFormat string `mapstructure:"time_format"`
}

// MongoConfig MongoDB 配置（仅用于导出归档）
type MongoConfig struct {
	URI         string `mapstructure:"uri"`
	Database    string `mapstructure:"database"`
	MaxPoolSize uint64 `mapstructure:"max_pool_size"`
	MinPoolSize uint64 `mapstructure:"min_pool_size"`
}

// RedisConfig Redis 配置（进度事件镜像）
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// StorageConfig 存储配置
type StorageConfig struct {
	Type  string       `mapstructure:"type"` // local, oss
	Local *LocalConfig `mapstructure:"local,omitempty"`
	OSS   *OSSConfig   `mapstructure:"oss,omitempty"`
}

// LocalConfig 本地文件系统配置
type LocalConfig struct {
	BasePath      string `mapstructure:"base_path"`      // 基础路径
	BaseURL       string `mapstructure:"base_url"`       // 基础URL（用于生成访问URL）
	PresignExpiry int    `mapstructure:"presign_expiry"` // 预签名URL过期时间（秒）
}

// OSSConfig 阿里云OSS配置
type OSSConfig struct {
	Endpoint        string `mapstructure:"endpoint"`          // OSS端点
	Bucket          string `mapstructure:"bucket"`            // Bucket名称
	AccessKeyID     string `mapstructure:"access_key_id"`     // AccessKey ID
	AccessKeySecret string `mapstructure:"access_key_secret"` // AccessKey Secret
	PresignExpiry   int    `mapstructure:"presign_expiry"`    // 预签名URL过期时间（秒）
}

// Validate 验证配置有效性
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return errors.New("invalid server port")
	}

	validModes := map[string]bool{"debug": true, "release": true, "test": true}
	if !validModes[c.Server.Mode] {
		return errors.New("invalid server mode, must be debug/release/test")
	}

	return c.ValidatePipeline()
}

// ValidatePipeline 验证批处理与渲染参数（CLI 模式不需要服务器配置）
func (c *Config) ValidatePipeline() error {
	if c.Pipeline.MaxAttempts <= 0 {
		return errors.New("pipeline.max_attempts must be positive")
	}
	if c.Pipeline.RetryDelay < 0 {
		return errors.New("pipeline.retry_delay must not be negative")
	}
	if c.Pipeline.MinDuration <= 0 || c.Pipeline.FallbackDuration <= 0 {
		return errors.New("pipeline durations must be positive")
	}
	if c.Render.Width <= 0 || c.Render.Height <= 0 || c.Render.FPS <= 0 {
		return errors.New("render width/height/fps must be positive")
	}
	if c.Render.FadeIn < 0 {
		return errors.New("render.fade_in must not be negative")
	}
	return nil
}
