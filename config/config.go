// Package config loads clustercache settings from YAML. Durations are given
// in seconds; ${VAR} references are expanded from the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"go.yaml.in/yaml/v3"

	"github.com/unkn0wn-root/clustercache"
	"github.com/unkn0wn-root/clustercache/local"
)

var ErrNoRedisURL = errors.New("config: redis.url is not set")

// Config is the file form of clustercache.Options.
type Config struct {
	Enabled          bool   `yaml:"enabled"`
	Dynamic          bool   `yaml:"dynamic"`
	CacheNullValues  bool   `yaml:"cacheNullValues"`
	CaffeineEnable   bool   `yaml:"caffeineEnable"` // local tier on/off
	CachePrefix      string `yaml:"cachePrefix"`
	CacheInstanceNum int    `yaml:"cacheInstanceNum"`
	Redis            Redis  `yaml:"redis"`

	CacheDefault LocalConfig `yaml:"cacheDefault"` // names without a profile
	Cache15m     LocalConfig `yaml:"cache15m"`
	Cache30m     LocalConfig `yaml:"cache30m"`
	Cache60m     LocalConfig `yaml:"cache60m"`
	Cache180m    LocalConfig `yaml:"cache180m"`
	Cache12h     LocalConfig `yaml:"cache12h"`
}

type Redis struct {
	URL               string           `yaml:"url"`
	DefaultExpiration int64            `yaml:"defaultExpiration"` // 0 => clustercache.DefaultTTL
	Expires           map[string]int64 `yaml:"expires"`
	Topic             string           `yaml:"topic"`
}

// LocalConfig sizes one local tier.
type LocalConfig struct {
	ExpireAfterAccess int64 `yaml:"expireAfterAccess"`
	ExpireAfterWrite  int64 `yaml:"expireAfterWrite"`
	RefreshAfterWrite int64 `yaml:"refreshAfterWrite"`
	InitialCapacity   int   `yaml:"initialCapacity"`
	MaximumSize       int   `yaml:"maximumSize"`
}

func (l LocalConfig) toLocal() local.Config {
	return local.Config{
		ExpireAfterAccess: seconds(l.ExpireAfterAccess),
		ExpireAfterWrite:  seconds(l.ExpireAfterWrite),
		RefreshAfterWrite: seconds(l.RefreshAfterWrite),
		InitialCapacity:   l.InitialCapacity,
		MaximumSize:       l.MaximumSize,
	}
}

func seconds(n int64) time.Duration { return time.Duration(n) * time.Second }

func defaultLocal() LocalConfig {
	return LocalConfig{ExpireAfterWrite: 120, InitialCapacity: 50, MaximumSize: 50}
}

// Default returns the configuration used for keys absent from the file.
func Default() *Config {
	return &Config{
		Enabled:          true,
		Dynamic:          true,
		CacheNullValues:  true,
		CaffeineEnable:   true,
		CacheInstanceNum: clustercache.DefaultMaxInstances,
		Redis: Redis{
			Topic: clustercache.DefaultTopic,
		},
		CacheDefault: defaultLocal(),
		Cache15m:     defaultLocal(),
		Cache30m:     defaultLocal(),
		Cache60m:     defaultLocal(),
		Cache180m:    defaultLocal(),
		Cache12h:     defaultLocal(),
	}
}

var envPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnv replaces ${VAR} patterns with environment variable values.
func expandEnv(data []byte) []byte {
	return envPattern.ReplaceAllFunc(data, func(match []byte) []byte {
		varName := string(match[2 : len(match)-1])
		if val, ok := os.LookupEnv(varName); ok {
			return []byte(val)
		}
		return match
	})
}

// Load reads and parses a YAML config file, expanding environment variables.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML over Default.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(expandEnv(data), cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.CacheInstanceNum < 0 {
		return fmt.Errorf("config: cacheInstanceNum must be >= 0, got %d", c.CacheInstanceNum)
	}
	if c.Redis.DefaultExpiration < 0 {
		return fmt.Errorf("config: redis.defaultExpiration must be >= 0, got %d", c.Redis.DefaultExpiration)
	}
	for name, l := range c.profiles() {
		if l.ExpireAfterAccess < 0 || l.ExpireAfterWrite < 0 || l.RefreshAfterWrite < 0 ||
			l.InitialCapacity < 0 || l.MaximumSize < 0 {
			return fmt.Errorf("config: %s: negative value", name)
		}
	}
	return nil
}

func (c *Config) profiles() map[string]LocalConfig {
	return map[string]LocalConfig{
		clustercache.Cache15m:  c.Cache15m,
		clustercache.Cache30m:  c.Cache30m,
		clustercache.Cache60m:  c.Cache60m,
		clustercache.Cache180m: c.Cache180m,
		clustercache.Cache12h:  c.Cache12h,
	}
}

// Options maps the file onto clustercache.Options. Provider, Bus and the
// ambient hooks are left for the caller.
func (c *Config) Options() clustercache.Options {
	profiles := clustercache.DefaultProfiles()
	for name, l := range c.profiles() {
		p := profiles[name]
		p.Local = l.toLocal()
		profiles[name] = p
	}
	var expires map[string]time.Duration
	if len(c.Redis.Expires) > 0 {
		expires = make(map[string]time.Duration, len(c.Redis.Expires))
		for name, s := range c.Redis.Expires {
			expires[name] = seconds(s)
		}
	}
	return clustercache.Options{
		Topic:          c.Redis.Topic,
		Prefix:         c.CachePrefix,
		Disabled:       !c.Enabled,
		DisableDynamic: !c.Dynamic,
		DisableLocal:   !c.CaffeineEnable,
		DisallowNull:   !c.CacheNullValues,
		MaxInstances:   c.CacheInstanceNum,
		DefaultTTL:     seconds(c.Redis.DefaultExpiration),
		Expires:        expires,
		Profiles:       profiles,
		Fallback:       c.CacheDefault.toLocal(),
	}
}

// RedisOptions parses redis.url (redis:// or rediss://).
func (c *Config) RedisOptions() (*goredis.Options, error) {
	if c.Redis.URL == "" {
		return nil, ErrNoRedisURL
	}
	opts, err := goredis.ParseURL(c.Redis.URL)
	if err != nil {
		return nil, fmt.Errorf("config: redis.url: %w", err)
	}
	return opts, nil
}
