package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"paylock/crypto"
)

var testAdmin = crypto.MustNewAddress(crypto.PaylockPrefix, bytes.Repeat([]byte{0x42}, 20)).String()

func writeFile(t *testing.T, name, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestLoadTOML(t *testing.T) {
	path := writeFile(t, "config.toml", fmt.Sprintf(`RPCAddress = "127.0.0.1:9000"
DataDir = "./data"
StorageBackend = "Bolt"
IndexerDSN = "file:index.db"
Env = "test"

[log]
Level = "debug"
File = "node.log"

[rpc]
RateLimitPerSecond = 2.5

[quota]
MaxTxPerWindow = 30
MaxValuePerWindow = "5000"
WindowSeconds = 120

[genesis]
Admin = "%s"
MinPrice = "10"
RefundTimeLimit = 3600
ContentTypes = ["AUDIO"]

[genesis.Alloc]
"%s" = "1000"
`, testAdmin, testAdmin))

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.RPCAddress != "127.0.0.1:9000" || cfg.StorageBackend != StorageBolt {
		t.Fatalf("unexpected node settings %+v", cfg)
	}
	if cfg.StoragePath() != filepath.Join("./data", "state.db") {
		t.Fatalf("unexpected storage path %s", cfg.StoragePath())
	}
	if cfg.RPC.RateLimitBurst != 2 {
		t.Fatalf("expected burst default derived from rate, got %d", cfg.RPC.RateLimitBurst)
	}
	if cfg.Log.MaxSizeMB != 100 || cfg.Log.MaxBackups != 5 {
		t.Fatalf("expected rotation defaults, got %+v", cfg.Log)
	}

	quota, err := cfg.QuotaLimits()
	if err != nil {
		t.Fatalf("quota: %v", err)
	}
	if quota.MaxTxPerWindow != 30 || quota.WindowSeconds != 120 || quota.MaxValuePerWindow.Int64() != 5000 {
		t.Fatalf("unexpected quota %+v", quota)
	}

	spec, err := cfg.GenesisSpec()
	if err != nil {
		t.Fatalf("genesis spec: %v", err)
	}
	g, err := spec.Build()
	if err != nil {
		t.Fatalf("build genesis: %v", err)
	}
	if g.Market.RefundTimeLimit != 3600 || len(g.Alloc) != 1 || g.Alloc[0].Amount.Int64() != 1000 {
		t.Fatalf("unexpected genesis %+v", g)
	}
}

func TestLoadYAML(t *testing.T) {
	path := writeFile(t, "config.yaml", fmt.Sprintf(`rpc_address: ":9100"
storage_backend: memory
rpc:
  rate_limit_per_second: 5
  rate_limit_burst: 10
  max_connections: 64
  ws_allowed_origins:
    - app.example.com
    - "*.paylock.io"
genesis:
  admin: %s
  minPrice: "1"
`, testAdmin))

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.RPCAddress != ":9100" || cfg.StorageBackend != StorageMemory {
		t.Fatalf("unexpected config %+v", cfg)
	}
	if cfg.RPC.RateLimitBurst != 10 {
		t.Fatalf("unexpected burst %d", cfg.RPC.RateLimitBurst)
	}
	if cfg.RPC.MaxConnections != 64 {
		t.Fatalf("unexpected connection cap %d", cfg.RPC.MaxConnections)
	}
	if len(cfg.RPC.WSAllowedOrigins) != 2 || cfg.RPC.WSAllowedOrigins[1] != "*.paylock.io" {
		t.Fatalf("unexpected ws origins %v", cfg.RPC.WSAllowedOrigins)
	}
}

func TestLoadRejectsUnknownFields(t *testing.T) {
	tomlPath := writeFile(t, "config.toml", "RPCAddress = \":1\"\nValidatorKey = \"abc\"\n")
	if _, err := Load(tomlPath); err == nil || !strings.Contains(err.Error(), "ValidatorKey") {
		t.Fatalf("expected unknown field error, got %v", err)
	}

	yamlPath := writeFile(t, "config.yml", "rpc_address: \":1\"\nbootnodes: []\n")
	if _, err := Load(yamlPath); err == nil {
		t.Fatalf("expected unknown yaml field to be rejected")
	}
}

func TestLoadCreatesDefault(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "config.toml")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("create default: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("default config not written: %v", err)
	}
	if cfg.AdminKeystorePath != filepath.Join(dir, "nested", "admin.keystore") {
		t.Fatalf("unexpected keystore path %s", cfg.AdminKeystorePath)
	}
	key, err := crypto.LoadFromKeystore(cfg.AdminKeystorePath, "")
	if err != nil {
		t.Fatalf("load keystore: %v", err)
	}
	admin := key.PubKey().Address().String()
	if cfg.Genesis.Admin != admin || cfg.Genesis.Alloc[admin] != defaultAdminAllocation {
		t.Fatalf("default genesis must fund the generated admin: %+v", cfg.Genesis)
	}

	reloaded, err := Load(path)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if reloaded.Genesis.Admin != admin || reloaded.StorageBackend != StorageLevelDB {
		t.Fatalf("reloaded config differs: %+v", reloaded)
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		cfg := &Config{StorageBackend: StorageMemory}
		cfg.Genesis.Admin = testAdmin
		cfg.applyDefaults()
		return cfg
	}
	if err := valid().Validate(); err != nil {
		t.Fatalf("expected valid config, got %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"backend", func(c *Config) { c.StorageBackend = "postgres" }, "unsupported backend"},
		{"negative rate", func(c *Config) { c.RPC.RateLimitPerSecond = -1 }, "RateLimitPerSecond"},
		{"missing burst", func(c *Config) { c.RPC.RateLimitPerSecond = 1; c.RPC.RateLimitBurst = 0 }, "RateLimitBurst"},
		{"quota value", func(c *Config) { c.Quota.MaxValuePerWindow = "lots" }, "MaxValuePerWindow"},
		{"log level", func(c *Config) { c.Log.Level = "verbose" }, "log"},
		{"genesis admin", func(c *Config) { c.Genesis.Admin = "" }, "genesis"},
		{"rpc address", func(c *Config) { c.RPCAddress = " " }, "RPCAddress"},
		{"telemetry endpoint", func(c *Config) { c.Telemetry.Traces = true }, "telemetry"},
		{"connection cap", func(c *Config) { c.RPC.MaxConnections = -1 }, "MaxConnections"},
		{"empty origin", func(c *Config) { c.RPC.WSAllowedOrigins = []string{" "} }, "WSAllowedOrigins"},
		{"bad origin pattern", func(c *Config) { c.RPC.WSAllowedOrigins = []string{"[app"} }, "WSAllowedOrigins"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := valid()
			tc.mutate(cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error containing %q, got %v", tc.want, err)
			}
		})
	}
}

func TestGenesisFileOverridesInline(t *testing.T) {
	genesisPath := writeFile(t, "genesis.json", fmt.Sprintf(`{"admin":"%s","minPrice":"77"}`, testAdmin))
	cfg := &Config{GenesisFile: genesisPath, StorageBackend: StorageMemory}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	spec, err := cfg.GenesisSpec()
	if err != nil {
		t.Fatalf("genesis spec: %v", err)
	}
	if spec.MinPrice != "77" {
		t.Fatalf("expected file spec, got %+v", spec)
	}
}
