package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the podquest service
type Config struct {
	General       GeneralConfig       `mapstructure:"general"`
	Server        ServerConfig        `mapstructure:"server"`
	OpenAI        OpenAIConfig        `mapstructure:"openai"`
	Transcription TranscriptionConfig `mapstructure:"transcription"`
	Storage       StorageConfig       `mapstructure:"storage"`
	PodcastIndex  PodcastIndexConfig  `mapstructure:"podcast_index"`
}

// GeneralConfig contains general application settings
type GeneralConfig struct {
	Debug    bool   `mapstructure:"debug"`
	LogLevel string `mapstructure:"log_level"`
	WorkDir  string `mapstructure:"work_dir"` // where downloaded audio and chunks are written
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Listen string `mapstructure:"listen"`
}

// OpenAIConfig contains the OpenAI provider configuration
type OpenAIConfig struct {
	APIKey             string        `mapstructure:"api_key"`
	CompletionModel    string        `mapstructure:"completion_model"`
	EmbeddingModel     string        `mapstructure:"embedding_model"`
	TranscriptionModel string        `mapstructure:"transcription_model"`
	Temperature        float64       `mapstructure:"temperature"`
	MaxTokens          int           `mapstructure:"max_tokens"`
	Timeout            time.Duration `mapstructure:"timeout"`
}

// TranscriptionConfig tunes the download/split/transcribe pipeline
type TranscriptionConfig struct {
	MaxFileSizeMB   int           `mapstructure:"max_file_size_mb"` // above this the audio is chunked
	ChunkSeconds    int           `mapstructure:"chunk_seconds"`
	MaxChunks       int           `mapstructure:"max_chunks"`
	PassageSize     int           `mapstructure:"passage_size"` // characters per indexed passage
	RetrievalTopK   int           `mapstructure:"retrieval_top_k"`
	FFmpegBinary    string        `mapstructure:"ffmpeg_binary"`
	FFprobeBinary   string        `mapstructure:"ffprobe_binary"`
	PipelineTimeout time.Duration `mapstructure:"pipeline_timeout"`
}

// StorageConfig contains database settings
type StorageConfig struct {
	Postgres PostgresConfig `mapstructure:"postgres"`
	Redis    RedisConfig    `mapstructure:"redis"`
}

// PostgresConfig contains PostgreSQL connection settings
type PostgresConfig struct {
	URL      string `mapstructure:"url"`
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

// RedisConfig contains Redis connection settings for the transcript cache
type RedisConfig struct {
	Host     string        `mapstructure:"host"`
	Port     string        `mapstructure:"port"`
	Pass     string        `mapstructure:"pass"`
	DB       int           `mapstructure:"db"`
	CacheTTL time.Duration `mapstructure:"cache_ttl"`
}

// PodcastIndexConfig holds credentials for the Podcast Index directory API
type PodcastIndexConfig struct {
	APIKey    string `mapstructure:"api_key"`
	APISecret string `mapstructure:"api_secret"`
	Endpoint  string `mapstructure:"endpoint"`
}

// DSN builds a postgres connection string from the configured fields.
func (p PostgresConfig) DSN() (string, error) {
	if p.URL != "" {
		return p.URL, nil
	}
	if p.Host == "" || p.DBName == "" {
		return "", fmt.Errorf("postgres not configured (storage.postgres.host/dbname or url)")
	}
	port := p.Port
	if port == "" {
		port = "5432"
	}
	ssl := p.SSLMode
	if ssl == "" {
		ssl = "disable"
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s", p.User, p.Password, p.Host, port, p.DBName, ssl), nil
}

// Normalize applies defaults for unset transcription values.
func (t TranscriptionConfig) Normalize() TranscriptionConfig {
	if t.MaxFileSizeMB <= 0 {
		t.MaxFileSizeMB = 20
	}
	if t.ChunkSeconds <= 0 {
		t.ChunkSeconds = 300
	}
	if t.MaxChunks <= 0 {
		t.MaxChunks = 10
	}
	if t.PassageSize <= 0 {
		t.PassageSize = 256
	}
	if t.RetrievalTopK <= 0 {
		t.RetrievalTopK = 4
	}
	if t.FFmpegBinary == "" {
		t.FFmpegBinary = "ffmpeg"
	}
	if t.FFprobeBinary == "" {
		t.FFprobeBinary = "ffprobe"
	}
	if t.PipelineTimeout <= 0 {
		t.PipelineTimeout = 30 * time.Minute
	}
	return t
}

// Normalize applies defaults for unset OpenAI values.
func (o OpenAIConfig) Normalize() OpenAIConfig {
	if o.CompletionModel == "" {
		o.CompletionModel = "gpt-4o-mini"
	}
	if o.EmbeddingModel == "" {
		o.EmbeddingModel = "text-embedding-3-small"
	}
	if o.TranscriptionModel == "" {
		o.TranscriptionModel = "whisper-1"
	}
	if o.Timeout <= 0 {
		o.Timeout = 2 * time.Minute
	}
	return o
}

func (o OpenAIConfig) Validate() error {
	if o.APIKey == "" {
		return fmt.Errorf("openai.api_key is required (or PODQUEST_OPENAI_API_KEY)")
	}
	return nil
}

// AppConfig is the process-wide configuration loaded by LoadConfig.
var AppConfig Config

// LoadConfig reads the config file (JSON) and environment overrides and
// unmarshals them into AppConfig. It panics on an unreadable or invalid
// config, since configuration is a boot-time precondition.
func LoadConfig(path string) *Config {
	viper.SetConfigName("config")
	viper.SetConfigType("json")

	if path == "" {
		viper.AddConfigPath("./config")
		viper.AddConfigPath(".")
		exe, _ := os.Executable()
		exeDir := filepath.Dir(exe)
		viper.AddConfigPath(exeDir)
		viper.AddConfigPath(filepath.Join(exeDir, ".."))
	} else {
		viper.SetConfigFile(path)
	}

	viper.SetEnvPrefix("PODQUEST")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		panic(fmt.Errorf("fatal error config file: %w", err))
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		panic(fmt.Errorf("fatal error config file: %w", err))
	}
	config.Transcription = config.Transcription.Normalize()
	config.OpenAI = config.OpenAI.Normalize()

	if err := config.OpenAI.Validate(); err != nil {
		panic(err)
	}

	AppConfig = config
	return &config
}
