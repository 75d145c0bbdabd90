package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestParseSeedLoads(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    map[int]int
		wantErr bool
	}{
		{
			name:  "empty string",
			input: "",
			want:  map[int]int{},
		},
		{
			name:  "single node",
			input: "0=40",
			want:  map[int]int{0: 40},
		},
		{
			name:  "multiple nodes",
			input: "0=40,2=15,4=1",
			want:  map[int]int{0: 40, 2: 15, 4: 1},
		},
		{
			name:  "with spaces and repeats",
			input: " 1 = 5 , 1=3 ,",
			want:  map[int]int{1: 8},
		},
		{
			name:  "zero count dropped",
			input: "3=0",
			want:  map[int]int{},
		},
		{
			name:    "invalid format - no equals",
			input:   "0:40",
			wantErr: true,
		},
		{
			name:    "invalid format - non-numeric id",
			input:   "n0=40",
			wantErr: true,
		},
		{
			name:    "invalid format - negative count",
			input:   "0=-1",
			wantErr: true,
		},
		{
			name:    "invalid format - empty count",
			input:   "0=",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseSeedLoads(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ParseSeedLoads() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if tt.wantErr {
				return
			}
			if len(got) != len(tt.want) {
				t.Errorf("ParseSeedLoads() = %v, want %v", got, tt.want)
				return
			}
			for id, count := range tt.want {
				if got[id] != count {
					t.Errorf("ParseSeedLoads()[%d] = %d, want %d", id, got[id], count)
				}
			}
		})
	}
}

func TestSeedNodeIDs(t *testing.T) {
	ids := SeedNodeIDs(map[int]int{4: 1, 0: 2, 2: 3})
	if len(ids) != 3 || ids[0] != 0 || ids[1] != 2 || ids[2] != 4 {
		t.Errorf("Expected [0 2 4], got %v", ids)
	}
}

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.validate(); err != nil {
		t.Fatalf("Default config should be valid: %v", err)
	}
	if cfg.Nodes != 5 || cfg.Threshold != 10 || cfg.Duration != 30*time.Second {
		t.Errorf("Unexpected defaults: %+v", cfg)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"zero nodes", func(c *Config) { c.Nodes = 0 }},
		{"zero workers", func(c *Config) { c.Workers = 0 }},
		{"negative threshold", func(c *Config) { c.Threshold = -1 }},
		{"zero gossip interval", func(c *Config) { c.GossipInterval = 0 }},
		{"zero task interval", func(c *Config) { c.TaskInterval = 0 }},
		{"negative peer ttl", func(c *Config) { c.PeerTTL = -time.Second }},
		{"min cost above max", func(c *Config) { c.MinTaskCost = time.Second; c.MaxTaskCost = time.Millisecond }},
		{"unknown placement", func(c *Config) { c.Placement = "roundrobin" }},
		{"unknown mesh", func(c *Config) { c.Mesh = "star" }},
		{"unknown log level", func(c *Config) { c.Log.Level = "verbose" }},
		{"bad seed loads", func(c *Config) { c.SeedLoads = "x=1" }},
		{"seed load beyond nodes", func(c *Config) { c.SeedLoads = "7=10" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Errorf("Expected validation error for %s", tt.name)
			}
		})
	}
}

func TestLoad_File(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "loadsim.yaml")
	data := []byte(`nodes: 3
threshold: 4
gossip_interval: 250ms
placement: HASH
mesh: discovery
seed_loads: "0=20"
log:
  level: debug
  outputs: [stderr]
admin:
  http_addr: "127.0.0.1:8080"
`)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Nodes != 3 || cfg.Threshold != 4 {
		t.Errorf("Expected nodes=3 threshold=4, got nodes=%d threshold=%d", cfg.Nodes, cfg.Threshold)
	}
	if cfg.GossipInterval != 250*time.Millisecond {
		t.Errorf("Expected gossip interval 250ms, got %s", cfg.GossipInterval)
	}
	if cfg.Placement != PlacementHash || cfg.Mesh != MeshDiscovery {
		t.Errorf("Expected hash/discovery, got %s/%s", cfg.Placement, cfg.Mesh)
	}
	if cfg.Log.Level != "debug" || len(cfg.Log.Outputs) != 1 || cfg.Log.Outputs[0] != "stderr" {
		t.Errorf("Unexpected log config: %+v", cfg.Log)
	}
	if cfg.Admin.HTTPAddr != "127.0.0.1:8080" {
		t.Errorf("Expected admin http addr, got %q", cfg.Admin.HTTPAddr)
	}
	// untouched keys keep defaults
	if cfg.Workers != 2 || cfg.TaskInterval != 100*time.Millisecond {
		t.Errorf("Expected defaults for workers and task interval, got %d and %s", cfg.Workers, cfg.TaskInterval)
	}
}

func TestLoad_EnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "loadsim.yaml")
	if err := os.WriteFile(path, []byte("threshold: 4\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	t.Setenv("LOADSIM_THRESHOLD", "25")
	t.Setenv("LOADSIM_LOG_LEVEL", "warn")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Threshold != 25 {
		t.Errorf("Expected env threshold 25, got %d", cfg.Threshold)
	}
	if cfg.Log.Level != "warn" {
		t.Errorf("Expected env log level warn, got %q", cfg.Log.Level)
	}
}

func TestLoad_InvalidFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "loadsim.yaml")
	if err := os.WriteFile(path, []byte("nodes: 0\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	if _, err := Load(path); err == nil {
		t.Error("Expected error for zero nodes")
	}
}

func TestMustLoad_PanicsOnInvalid(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "loadsim.yaml")
	if err := os.WriteFile(path, []byte("placement: nowhere\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	defer func() {
		if recover() == nil {
			t.Error("Expected MustLoad to panic")
		}
	}()
	MustLoad(path)
}
