// Package config loads the tileconn CLI configuration.
//
// Settings come from a TOML or YAML file, then from the environment (optionally
// seeded from .env files), then from command line flags applied by the caller.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/hupe1980/tileconn/tile"
)

// ErrInvalid is returned by Validate.
var ErrInvalid = errors.New("config: invalid")

// Config is the full CLI configuration.
type Config struct {
	Tiles     StoreConfig     `toml:"tiles" yaml:"tiles"`
	Snapshots StoreConfig     `toml:"snapshots" yaml:"snapshots"`
	Cache     CacheConfig     `toml:"cache" yaml:"cache"`
	Hierarchy HierarchyConfig `toml:"hierarchy" yaml:"hierarchy"`
	Build     BuildConfig     `toml:"build" yaml:"build"`
	Log       LogConfig       `toml:"log" yaml:"log"`
	Serve     ServeConfig     `toml:"serve" yaml:"serve"`
}

// StoreConfig selects and configures a blob store backend.
type StoreConfig struct {
	// Backend is one of local, memory, s3, minio or redis.
	Backend string `toml:"backend" yaml:"backend"`
	// Path is the root directory of the local backend.
	Path string `toml:"path" yaml:"path"`

	Bucket   string `toml:"bucket" yaml:"bucket"`
	Prefix   string `toml:"prefix" yaml:"prefix"`
	Region   string `toml:"region" yaml:"region"`
	Endpoint string `toml:"endpoint" yaml:"endpoint"`

	// AccessKey and SecretKey are used by the minio backend. They are usually
	// set through TILECONN_ACCESS_KEY and TILECONN_SECRET_KEY.
	AccessKey string `toml:"access_key" yaml:"access_key"`
	SecretKey string `toml:"secret_key" yaml:"secret_key"`
	Secure    bool   `toml:"secure" yaml:"secure"`

	// CommitTable keeps the s3 CURRENT pointer in DynamoDB.
	CommitTable string `toml:"commit_table" yaml:"commit_table"`

	RedisAddr     string `toml:"redis_addr" yaml:"redis_addr"`
	RedisPassword string `toml:"redis_password" yaml:"redis_password"`
	RedisDB       int    `toml:"redis_db" yaml:"redis_db"`
}

// CacheConfig configures the block cache in front of remote tile stores.
type CacheConfig struct {
	// CapacityBytes of 0 disables caching.
	CapacityBytes int64 `toml:"capacity_bytes" yaml:"capacity_bytes"`
	BlockSize     int64 `toml:"block_size" yaml:"block_size"`
}

// HierarchyConfig overrides the default hierarchy. Without levels the default
// world hierarchy is used.
type HierarchyConfig struct {
	// Bounds is [min lon, min lat, max lon, max lat]; zero means the world.
	Bounds  [4]float64    `toml:"bounds" yaml:"bounds"`
	Levels  []LevelConfig `toml:"levels" yaml:"levels"`
	Transit *LevelConfig  `toml:"transit" yaml:"transit"`
}

// LevelConfig defines one hierarchy level.
type LevelConfig struct {
	ID       uint8   `toml:"id" yaml:"id"`
	Name     string  `toml:"name" yaml:"name"`
	TileSize float64 `toml:"tile_size" yaml:"tile_size"`
}

// BuildConfig tunes builds.
type BuildConfig struct {
	// Levels restricts builds; empty builds every level.
	Levels              []uint8 `toml:"levels" yaml:"levels"`
	Concurrency         int     `toml:"concurrency" yaml:"concurrency"`
	MaxConcurrentBuilds int64   `toml:"max_concurrent_builds" yaml:"max_concurrent_builds"`
	MemoryLimitBytes    int64   `toml:"memory_limit_bytes" yaml:"memory_limit_bytes"`
	IOLimitBytesPerSec  int64   `toml:"io_limit_bytes_per_sec" yaml:"io_limit_bytes_per_sec"`
	// Compression is used when writing tiles (none, lz4, zstd).
	Compression string `toml:"compression" yaml:"compression"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `toml:"level" yaml:"level"`   // debug, info, warn, error
	Format string `toml:"format" yaml:"format"` // text or json
}

// ServeConfig configures the HTTP server.
type ServeConfig struct {
	Addr string `toml:"addr" yaml:"addr"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Tiles: StoreConfig{Backend: "local", Path: "tiles"},
		Cache: CacheConfig{BlockSize: 64 << 10},
		Build: BuildConfig{MaxConcurrentBuilds: 2, Compression: "zstd"},
		Log:   LogConfig{Level: "info", Format: "text"},
		Serve: ServeConfig{Addr: ":8080"},
	}
}

// Load reads the file at path over Default and applies environment
// overrides. Files ending in .yaml or .yml are YAML, anything else is TOML.
// An empty path skips the file.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		var err error
		switch strings.ToLower(filepath.Ext(path)) {
		case ".yaml", ".yml":
			err = decodeYAML(path, &cfg)
		default:
			err = decodeTOML(path, &cfg)
		}
		if err != nil {
			return Config{}, err
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}
	return cfg, cfg.Validate()
}

func decodeTOML(path string, cfg *Config) error {
	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return fmt.Errorf("config: %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return fmt.Errorf("%w: unknown keys %v in %s", ErrInvalid, undecoded, path)
	}
	return nil
}

func decodeYAML(path string, cfg *Config) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: %s: %v", ErrInvalid, path, err)
	}
	return nil
}

// LoadEnv loads .env files into the process environment without overriding
// variables that are already set. Missing files are ignored.
func LoadEnv(files ...string) error {
	for _, f := range files {
		if _, err := os.Stat(f); errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return fmt.Errorf("config: env file %s: %w", f, err)
		}
	}
	return nil
}

func (c *Config) applyEnv() error {
	str := func(dst *string, key string) {
		if v, ok := os.LookupEnv(key); ok {
			*dst = v
		}
	}
	str(&c.Tiles.AccessKey, "TILECONN_ACCESS_KEY")
	str(&c.Tiles.SecretKey, "TILECONN_SECRET_KEY")
	str(&c.Tiles.RedisPassword, "TILECONN_REDIS_PASSWORD")
	str(&c.Snapshots.AccessKey, "TILECONN_ACCESS_KEY")
	str(&c.Snapshots.SecretKey, "TILECONN_SECRET_KEY")
	str(&c.Snapshots.RedisPassword, "TILECONN_REDIS_PASSWORD")
	str(&c.Log.Level, "TILECONN_LOG_LEVEL")
	str(&c.Serve.Addr, "TILECONN_ADDR")

	if v, ok := os.LookupEnv("TILECONN_MEMORY_LIMIT_BYTES"); ok {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("%w: TILECONN_MEMORY_LIMIT_BYTES: %v", ErrInvalid, err)
		}
		c.Build.MemoryLimitBytes = n
	}
	return nil
}

// Validate checks the configuration for obvious mistakes.
func (c Config) Validate() error {
	if err := c.Tiles.validate("tiles"); err != nil {
		return err
	}
	if c.Snapshots.Backend != "" {
		if err := c.Snapshots.validate("snapshots"); err != nil {
			return err
		}
	}
	if _, err := c.LogLevel(); err != nil {
		return err
	}
	switch strings.ToLower(c.Log.Format) {
	case "", "text", "json":
	default:
		return fmt.Errorf("%w: log format %q", ErrInvalid, c.Log.Format)
	}
	if c.Build.Concurrency < 0 || c.Build.MemoryLimitBytes < 0 || c.Build.IOLimitBytesPerSec < 0 {
		return fmt.Errorf("%w: negative build limit", ErrInvalid)
	}
	if c.Cache.CapacityBytes < 0 || c.Cache.BlockSize < 0 {
		return fmt.Errorf("%w: negative cache size", ErrInvalid)
	}
	if _, err := c.Build.TileCompression(); err != nil {
		return err
	}
	return nil
}

func (s StoreConfig) validate(section string) error {
	switch s.Backend {
	case "local":
		if s.Path == "" {
			return fmt.Errorf("%w: %s: local backend needs a path", ErrInvalid, section)
		}
	case "memory":
	case "s3", "minio":
		if s.Bucket == "" {
			return fmt.Errorf("%w: %s: %s backend needs a bucket", ErrInvalid, section, s.Backend)
		}
		if s.Backend == "minio" && s.Endpoint == "" {
			return fmt.Errorf("%w: %s: minio backend needs an endpoint", ErrInvalid, section)
		}
	case "redis":
		if s.RedisAddr == "" {
			return fmt.Errorf("%w: %s: redis backend needs redis_addr", ErrInvalid, section)
		}
	default:
		return fmt.Errorf("%w: %s: unknown backend %q", ErrInvalid, section, s.Backend)
	}
	return nil
}

// LogLevel parses Log.Level.
func (c Config) LogLevel() (slog.Level, error) {
	var l slog.Level
	if c.Log.Level == "" {
		return slog.LevelInfo, nil
	}
	if err := l.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return 0, fmt.Errorf("%w: log level %q", ErrInvalid, c.Log.Level)
	}
	return l, nil
}

// TileCompression parses Build.Compression.
func (b BuildConfig) TileCompression() (tile.Compression, error) {
	if b.Compression == "" {
		return tile.CompressionZSTD, nil
	}
	c, err := tile.ParseCompression(b.Compression)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return c, nil
}
