package config

import (
	"fmt"
	"math/big"
	"path"
	"strings"

	"paylock/native/common"
)

// Validate checks the configuration for values the node cannot start with.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.RPCAddress) == "" {
		return fmt.Errorf("RPCAddress must be set")
	}
	switch c.StorageBackend {
	case StorageLevelDB, StorageBolt:
		if strings.TrimSpace(c.DataDir) == "" {
			return fmt.Errorf("DataDir must be set for the %s backend", c.StorageBackend)
		}
	case StorageMemory:
	default:
		return fmt.Errorf("storage: unsupported backend %q", c.StorageBackend)
	}
	if c.RPC.RateLimitPerSecond < 0 {
		return fmt.Errorf("rpc: RateLimitPerSecond must not be negative")
	}
	if c.RPC.RateLimitPerSecond > 0 && c.RPC.RateLimitBurst <= 0 {
		return fmt.Errorf("rpc: RateLimitBurst must be positive when rate limiting is enabled")
	}
	if c.RPC.MaxBodyBytes < 0 {
		return fmt.Errorf("rpc: MaxBodyBytes must not be negative")
	}
	if c.RPC.MaxConnections < 0 {
		return fmt.Errorf("rpc: MaxConnections must not be negative")
	}
	for _, origin := range c.RPC.WSAllowedOrigins {
		if strings.TrimSpace(origin) == "" {
			return fmt.Errorf("rpc: WSAllowedOrigins entries must not be empty")
		}
		if _, err := path.Match(origin, ""); err != nil {
			return fmt.Errorf("rpc: invalid WSAllowedOrigins pattern %q: %w", origin, err)
		}
	}
	if (c.Telemetry.Traces || c.Telemetry.Metrics) && strings.TrimSpace(c.Telemetry.Endpoint) == "" {
		return fmt.Errorf("telemetry: Endpoint must be set when an exporter is enabled")
	}
	if _, err := c.QuotaLimits(); err != nil {
		return err
	}
	switch strings.ToLower(strings.TrimSpace(c.Log.Level)) {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log: unsupported level %q", c.Log.Level)
	}
	if strings.TrimSpace(c.GenesisFile) == "" {
		if _, err := c.Genesis.Build(); err != nil {
			return fmt.Errorf("genesis: %w", err)
		}
	}
	return nil
}

// QuotaLimits converts the [quota] section into runtime limits.
func (c *Config) QuotaLimits() (common.Quota, error) {
	q := common.Quota{
		MaxTxPerWindow: c.Quota.MaxTxPerWindow,
		WindowSeconds:  c.Quota.WindowSeconds,
	}
	raw := strings.TrimSpace(c.Quota.MaxValuePerWindow)
	if raw == "" {
		return q, nil
	}
	value, ok := new(big.Int).SetString(raw, 10)
	if !ok || value.Sign() < 0 {
		return q, fmt.Errorf("quota: invalid MaxValuePerWindow %q", c.Quota.MaxValuePerWindow)
	}
	q.MaxValuePerWindow = value
	return q, nil
}
