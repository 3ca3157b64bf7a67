package config

import (
	"log/slog"
	"strings"
	"time"

	"github.com/dgallion1/lessongest/internal/builder"
	"github.com/dgallion1/lessongest/internal/merge"
	"github.com/dgallion1/lessongest/internal/resolve"
)

// Config is the root configuration shared by the server and the CLI.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Pipeline PipelineConfig `yaml:"pipeline"`
	Merge    MergeConfig    `yaml:"merge"`
	Builder  BuilderConfig  `yaml:"builder"`
	Resolve  ResolveConfig  `yaml:"resolve"`
	Store    StoreConfig    `yaml:"store"`
	Log      LogConfig      `yaml:"log"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            string        `yaml:"port"             env:"PORT"                    env-default:"8090"`
	APIKey          string        `yaml:"api_key"          env:"LESSONGEST_API_KEY"`
	ReadTimeout     time.Duration `yaml:"read_timeout"     env:"SERVER_READ_TIMEOUT"     env-default:"30s"`
	WriteTimeout    time.Duration `yaml:"write_timeout"    env:"SERVER_WRITE_TIMEOUT"    env-default:"120s"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"     env:"SERVER_IDLE_TIMEOUT"     env-default:"60s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SERVER_SHUTDOWN_TIMEOUT" env-default:"10s"`
	MaxUploadBytes  int64         `yaml:"max_upload_bytes" env:"MAX_UPLOAD_BYTES"        env-default:"52428800"`
}

// PipelineConfig sizes the conversion worker pool.
type PipelineConfig struct {
	WorkerCount          int           `yaml:"worker_count"           env:"WORKER_COUNT"           env-default:"4"`
	MaxQueueSize         int           `yaml:"max_queue_size"         env:"MAX_QUEUE_SIZE"         env-default:"100"`
	JobTTL               time.Duration `yaml:"job_ttl"                env:"JOB_TTL"                env-default:"1h"`
	TreeCacheSize        int           `yaml:"tree_cache_size"        env:"TREE_CACHE_SIZE"        env-default:"256"`
	PDFFallbackPdftotext bool          `yaml:"pdf_fallback_pdftotext" env:"PDF_FALLBACK_PDFTOTEXT" env-default:"true"`
}

// MergeConfig holds the skew thresholds of the merge engine.
type MergeConfig struct {
	SkewLengthRatio    float64 `yaml:"skew_length_ratio"    env:"MERGE_SKEW_LENGTH_RATIO"    env-default:"1.5"`
	SkewUnmatchedRatio float64 `yaml:"skew_unmatched_ratio" env:"MERGE_SKEW_UNMATCHED_RATIO" env-default:"0.3"`
}

// BuilderConfig holds tree builder settings.
type BuilderConfig struct {
	IndentUnit  int      `yaml:"indent_unit"  env:"BUILDER_INDENT_UNIT"  env-default:"720"`
	FieldLabels []string `yaml:"field_labels" env:"BUILDER_FIELD_LABELS" env-default:"Title,Subtitle,Prompt,Instructions" env-separator:","`
}

// ResolveConfig holds resolver policy.
type ResolveConfig struct {
	Required []string `yaml:"required" env:"RESOLVE_REQUIRED" env-separator:","`
}

// StoreConfig points at the optional external content store. An empty URL
// disables persistence.
type StoreConfig struct {
	URL    string `yaml:"url"     env:"CONTENTSTORE_URL"`
	APIKey string `yaml:"api_key" env:"CONTENTSTORE_API_KEY"`
	Prefix string `yaml:"prefix"  env:"CONTENTSTORE_PREFIX" env-default:"lessons"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `yaml:"level" env:"LOG_LEVEL" env-default:"info"`
}

// Enabled reports whether results should be persisted.
func (s StoreConfig) Enabled() bool { return s.URL != "" }

// MergeOptions converts the merge section into engine options.
func (c *Config) MergeOptions() merge.Options {
	opts := merge.DefaultOptions()
	opts.SkewLengthRatio = c.Merge.SkewLengthRatio
	opts.SkewUnmatchedRatio = c.Merge.SkewUnmatchedRatio
	return opts
}

// BuilderOptions converts the builder section into builder options.
func (c *Config) BuilderOptions() builder.Options {
	return builder.Options{IndentUnit: c.Builder.IndentUnit, FieldLabels: c.Builder.FieldLabels}
}

// ResolveOptions converts the merge and resolve sections into resolver options.
func (c *Config) ResolveOptions() resolve.Options {
	return resolve.Options{Merge: c.MergeOptions(), Required: c.Resolve.Required}
}

// SlogLevel maps the configured level name onto slog.
func (l LogConfig) SlogLevel() slog.Level {
	switch strings.ToLower(l.Level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}
