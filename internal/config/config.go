package config

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix is the prefix for environment overrides, e.g. LOADSIM_THRESHOLD=20.
const EnvPrefix = "LOADSIM"

// Placement policies for generated tasks.
const (
	PlacementRandom = "random"
	PlacementHash   = "hash"
)

// Mesh modes.
const (
	MeshStatic    = "static"
	MeshDiscovery = "discovery"
)

// Config is the root simulator configuration.
type Config struct {
	// Nodes is the number of simulated nodes, ids 0..Nodes-1.
	Nodes int `mapstructure:"nodes"`
	// Threshold is the queue length above which a node offloads.
	Threshold int `mapstructure:"threshold"`
	// Workers per node.
	Workers        int           `mapstructure:"workers"`
	GossipInterval time.Duration `mapstructure:"gossip_interval"`
	// PeerTTL drops load reports older than this; zero keeps them forever.
	PeerTTL time.Duration `mapstructure:"peer_ttl"`

	Duration     time.Duration `mapstructure:"duration"`
	TaskInterval time.Duration `mapstructure:"task_interval"`
	MinTaskCost  time.Duration `mapstructure:"min_task_cost"`
	MaxTaskCost  time.Duration `mapstructure:"max_task_cost"`
	DrainTimeout time.Duration `mapstructure:"drain_timeout"`

	Placement string `mapstructure:"placement"`
	Mesh      string `mapstructure:"mesh"`
	// SeedLoads is an initial burst per node, "id=count,id=count".
	SeedLoads string `mapstructure:"seed_loads"`
	// Seed for the placement and cost generators; zero picks a random seed.
	Seed uint64 `mapstructure:"seed"`

	Log   LogConfig   `mapstructure:"log"`
	Admin AdminConfig `mapstructure:"admin"`
}

// LogConfig defines logger settings.
type LogConfig struct {
	// Level: debug, info, warn, error
	Level string `mapstructure:"level"`
	// Format: console or json
	Format string `mapstructure:"format"`
	// Outputs: stdout, stderr, or file paths
	Outputs     []string       `mapstructure:"outputs"`
	Rotation    RotationConfig `mapstructure:"rotation"`
	Development bool           `mapstructure:"development"`
}

// RotationConfig controls log file rotation for file outputs.
type RotationConfig struct {
	Enable     bool   `mapstructure:"enable"`
	Filename   string `mapstructure:"filename"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

// AdminConfig holds listen addresses for the admin surfaces. Empty disables.
type AdminConfig struct {
	HTTPAddr string `mapstructure:"http_addr"`
	GRPCAddr string `mapstructure:"grpc_addr"`
}

// Default returns a Config with the stock scenario: five nodes, threshold
// ten, a task every 100ms for 30s.
func Default() *Config {
	return &Config{
		Nodes:          5,
		Threshold:      10,
		Workers:        2,
		GossipInterval: 500 * time.Millisecond,
		PeerTTL:        2500 * time.Millisecond,
		Duration:       30 * time.Second,
		TaskInterval:   100 * time.Millisecond,
		MinTaskCost:    50 * time.Millisecond,
		MaxTaskCost:    200 * time.Millisecond,
		DrainTimeout:   3 * time.Second,
		Placement:      PlacementRandom,
		Mesh:           MeshStatic,
		Log: LogConfig{
			Level:   "info",
			Format:  "console",
			Outputs: []string{"logs/simulation.log"},
			Rotation: RotationConfig{
				Enable:     false,
				Filename:   "logs/simulation.log",
				MaxSizeMB:  50,
				MaxBackups: 3,
				MaxAgeDays: 28,
				Compress:   true,
			},
		},
	}
}

// Load reads configuration from path (if non-empty), otherwise from
// LOADSIM_CONFIG or loadsim.yaml in . or ./configs. A missing file is not an
// error. Environment variables override file values; `.` and `-` in keys
// become `_`, e.g. LOADSIM_LOG_LEVEL=debug.
func Load(path string) (*Config, error) {
	cfg := Default()

	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	// seed defaults so env-only configs work
	v.SetDefault("nodes", cfg.Nodes)
	v.SetDefault("threshold", cfg.Threshold)
	v.SetDefault("workers", cfg.Workers)
	v.SetDefault("gossip_interval", cfg.GossipInterval)
	v.SetDefault("peer_ttl", cfg.PeerTTL)
	v.SetDefault("duration", cfg.Duration)
	v.SetDefault("task_interval", cfg.TaskInterval)
	v.SetDefault("min_task_cost", cfg.MinTaskCost)
	v.SetDefault("max_task_cost", cfg.MaxTaskCost)
	v.SetDefault("drain_timeout", cfg.DrainTimeout)
	v.SetDefault("placement", cfg.Placement)
	v.SetDefault("mesh", cfg.Mesh)
	v.SetDefault("seed_loads", cfg.SeedLoads)
	v.SetDefault("seed", cfg.Seed)
	v.SetDefault("log.level", cfg.Log.Level)
	v.SetDefault("log.format", cfg.Log.Format)
	v.SetDefault("log.outputs", cfg.Log.Outputs)
	v.SetDefault("log.development", cfg.Log.Development)
	v.SetDefault("log.rotation.enable", cfg.Log.Rotation.Enable)
	v.SetDefault("log.rotation.filename", cfg.Log.Rotation.Filename)
	v.SetDefault("log.rotation.max_size_mb", cfg.Log.Rotation.MaxSizeMB)
	v.SetDefault("log.rotation.max_backups", cfg.Log.Rotation.MaxBackups)
	v.SetDefault("log.rotation.max_age_days", cfg.Log.Rotation.MaxAgeDays)
	v.SetDefault("log.rotation.compress", cfg.Log.Rotation.Compress)
	v.SetDefault("admin.http_addr", cfg.Admin.HTTPAddr)
	v.SetDefault("admin.grpc_addr", cfg.Admin.GRPCAddr)

	if path == "" {
		path = os.Getenv(EnvPrefix + "_CONFIG")
	}
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("loadsim")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// MustLoad is like Load but panics on error.
func MustLoad(path string) *Config {
	cfg, err := Load(path)
	if err != nil {
		panic(err)
	}
	return cfg
}

// Validate checks c and fills empty optional fields.
func (c *Config) Validate() error {
	return c.validate()
}

func (c *Config) validate() error {
	if c.Nodes < 1 {
		return fmt.Errorf("invalid nodes: %d (must be at least 1)", c.Nodes)
	}
	if c.Workers < 1 {
		return fmt.Errorf("invalid workers: %d (must be at least 1)", c.Workers)
	}
	if c.Threshold < 0 {
		return fmt.Errorf("invalid threshold: %d", c.Threshold)
	}
	for name, d := range map[string]time.Duration{
		"gossip_interval": c.GossipInterval,
		"duration":        c.Duration,
		"task_interval":   c.TaskInterval,
	} {
		if d <= 0 {
			return fmt.Errorf("invalid %s: %s (must be positive)", name, d)
		}
	}
	if c.PeerTTL < 0 || c.DrainTimeout < 0 || c.MinTaskCost < 0 {
		return errors.New("peer_ttl, drain_timeout and min_task_cost cannot be negative")
	}
	if c.MinTaskCost > c.MaxTaskCost {
		return fmt.Errorf("min_task_cost %s exceeds max_task_cost %s", c.MinTaskCost, c.MaxTaskCost)
	}

	c.Placement = strings.ToLower(strings.TrimSpace(c.Placement))
	switch c.Placement {
	case PlacementRandom, PlacementHash:
	default:
		return fmt.Errorf("invalid placement: %q", c.Placement)
	}
	c.Mesh = strings.ToLower(strings.TrimSpace(c.Mesh))
	switch c.Mesh {
	case MeshStatic, MeshDiscovery:
	default:
		return fmt.Errorf("invalid mesh: %q", c.Mesh)
	}

	switch strings.ToLower(strings.TrimSpace(c.Log.Level)) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("invalid log.level: %q", c.Log.Level)
	}
	if c.Log.Format == "" {
		c.Log.Format = "console"
	}
	if len(c.Log.Outputs) == 0 {
		c.Log.Outputs = []string{"stdout"}
	}

	seeds, err := ParseSeedLoads(c.SeedLoads)
	if err != nil {
		return err
	}
	for id := range seeds {
		if id >= c.Nodes {
			return fmt.Errorf("seed_loads names node %d but only %d nodes exist", id, c.Nodes)
		}
	}
	return nil
}

// ParseSeedLoads parses a comma-separated list of initial bursts in the
// format "0=40,2=15". Counts of zero are dropped.
func ParseSeedLoads(s string) (map[int]int, error) {
	loads := make(map[int]int)
	if strings.TrimSpace(s) == "" {
		return loads, nil
	}

	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		kv := strings.SplitN(part, "=", 2)
		if len(kv) != 2 {
			return nil, fmt.Errorf("invalid seed load format: %s (expected id=count)", part)
		}

		id, err := strconv.Atoi(strings.TrimSpace(kv[0]))
		if err != nil || id < 0 {
			return nil, fmt.Errorf("invalid node id in seed load: %s", part)
		}
		count, err := strconv.Atoi(strings.TrimSpace(kv[1]))
		if err != nil || count < 0 {
			return nil, fmt.Errorf("invalid task count in seed load: %s", part)
		}

		if count > 0 {
			loads[id] += count
		}
	}

	return loads, nil
}

// SeedNodeIDs returns the keys of loads in ascending order.
func SeedNodeIDs(loads map[int]int) []int {
	ids := make([]int, 0, len(loads))
	for id := range loads {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}
