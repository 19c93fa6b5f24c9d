// Package config loads the service configuration from a productinfo.yaml file
// and PRODUCTINFO_* environment variables.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"reflect"
	"strings"
	"time"

	productinfo "github.com/goliatone/go-productinfo"
	"github.com/goliatone/go-productinfo/pkg/activity"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/viper"
)

// Config aggregates configuration for the application.
type Config struct {
	Engine      productinfo.Config `mapstructure:"engine"`
	Cache       CacheConfig        `mapstructure:"cache"`
	Activity    activity.Config    `mapstructure:"activity"`
	Redis       RedisConfig        `mapstructure:"redis"`
	Log         LogConfig          `mapstructure:"log"`
	FixturePath string             `mapstructure:"fixture_path"`
}

// CacheConfig sizes the store caches and the compiled selector cache.
type CacheConfig struct {
	StoreTTL         time.Duration `mapstructure:"store_ttl"`
	ProgramCacheSize uint64        `mapstructure:"program_cache_size"`
	ProgramCacheTTL  time.Duration `mapstructure:"program_cache_ttl"`
}

// RedisConfig locates the pub/sub server used to broadcast invalidations.
type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// LogConfig selects the slog handler.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Default returns the stock configuration.
func Default() Config {
	return Config{
		Engine: productinfo.DefaultConfig(),
		Cache: CacheConfig{
			StoreTTL:         10 * time.Minute,
			ProgramCacheSize: 1024,
			ProgramCacheTTL:  30 * time.Minute,
		},
		Activity: activity.Config{Channel: activity.DefaultChannel},
		Redis:    RedisConfig{Addr: "localhost:6379"},
		Log:      LogConfig{Level: "info", Format: "text"},
	}
}

// Load reads configuration from files and environment variables.
// Environment variables use the prefix "PRODUCTINFO" and the dot character
// in keys is replaced by an underscore. For example, "engine.max_ancestor_depth"
// becomes "PRODUCTINFO_ENGINE_MAX_ANCESTOR_DEPTH". A missing productinfo.yaml
// is not an error; a malformed one is.
func Load(searchPaths ...string) (*Config, error) {
	cfg := Default()

	v := viper.New()
	v.SetConfigName("productinfo")
	v.SetConfigType("yaml")
	if len(searchPaths) == 0 {
		searchPaths = []string{"."}
	}
	for _, path := range searchPaths {
		v.AddConfigPath(path)
	}
	v.SetEnvPrefix("PRODUCTINFO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindEnvs(v, cfg)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("config: read: %w", err)
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: decode: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate reports the first problem with c.
func (c Config) Validate() error {
	if err := c.Engine.Validate(); err != nil {
		return err
	}
	if c.Cache.StoreTTL < 0 || c.Cache.ProgramCacheTTL < 0 {
		return fmt.Errorf("config: cache ttl must not be negative")
	}
	if c.Redis.Enabled && strings.TrimSpace(c.Redis.Addr) == "" {
		return fmt.Errorf("config: redis.addr is required when redis is enabled")
	}
	switch strings.ToLower(c.Log.Format) {
	case "", "text", "json":
	default:
		return fmt.Errorf("config: unknown log format %q", c.Log.Format)
	}
	return nil
}

// Logger builds the slog logger described by c.Log.
func (c Config) Logger(w io.Writer) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Log.Level)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(c.Log.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// Client returns a redis client, or nil when redis is disabled.
func (c RedisConfig) Client() *redis.Client {
	if !c.Enabled {
		return nil
	}
	return redis.NewClient(&redis.Options{
		Addr:     c.Addr,
		Password: c.Password,
		DB:       c.DB,
	})
}

// EngineOptions translates the configuration into engine options.
func (c Config) EngineOptions(logger *slog.Logger) []productinfo.Option {
	return []productinfo.Option{
		productinfo.WithConfig(c.Engine),
		productinfo.WithLogger(logger),
		productinfo.WithProgramCache(productinfo.NewProgramCache(c.Cache.ProgramCacheSize, c.Cache.ProgramCacheTTL)),
		productinfo.WithEvaluatorLogger(productinfo.SlogEvaluatorLogger(logger)),
	}
}

// bindEnvs registers all keys within cfg so that viper will look up
// corresponding environment variables when unmarshalling.
func bindEnvs(v *viper.Viper, cfg any, parts ...string) {
	val := reflect.ValueOf(cfg)
	typ := reflect.TypeOf(cfg)
	if typ.Kind() == reflect.Ptr {
		val = val.Elem()
		typ = typ.Elem()
	}
	for i := 0; i < typ.NumField(); i++ {
		f := typ.Field(i)
		tag := f.Tag.Get("mapstructure")
		if tag == "" {
			tag = strings.ToLower(f.Name)
		}
		key := append(append([]string(nil), parts...), tag)
		if f.Type.Kind() == reflect.Struct {
			bindEnvs(v, val.Field(i).Interface(), key...)
			continue
		}
		_ = v.BindEnv(strings.Join(key, "."))
	}
}
