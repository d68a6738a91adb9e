package config

// RPC configures the JSON-RPC listener.
type RPC struct {
	// RateLimitPerSecond bounds market_sendTransaction per client address.
	// Zero disables the limiter.
	RateLimitPerSecond float64 `toml:"RateLimitPerSecond" yaml:"rate_limit_per_second"`
	RateLimitBurst     int     `toml:"RateLimitBurst" yaml:"rate_limit_burst"`
	ReadHeaderTimeout  int     `toml:"ReadHeaderTimeout" yaml:"read_header_timeout"` // seconds
	MaxBodyBytes       int64   `toml:"MaxBodyBytes" yaml:"max_body_bytes"`
	TrustProxyHeaders  bool    `toml:"TrustProxyHeaders" yaml:"trust_proxy_headers"`
	// JWTSecretEnv names an environment variable holding an HS256 secret.
	// When set, every JSON-RPC call must carry a bearer token signed with it.
	JWTSecretEnv string `toml:"JWTSecretEnv" yaml:"jwt_secret_env"`
	JWTIssuer    string `toml:"JWTIssuer" yaml:"jwt_issuer"`
	// WSAllowedOrigins lists browser origin host patterns (path.Match
	// syntax, e.g. "app.example.com" or "*.example.com") accepted by the
	// /ws event stream. Empty allows same-origin pages only.
	WSAllowedOrigins []string `toml:"WSAllowedOrigins" yaml:"ws_allowed_origins"`
	// MaxConnections caps concurrent TCP connections on the RPC listener.
	MaxConnections int `toml:"MaxConnections" yaml:"max_connections"`
}

// Quota defines per-address admission limits enforced by the node.
type Quota struct {
	MaxTxPerWindow    uint32 `toml:"MaxTxPerWindow" yaml:"max_tx_per_window"`
	MaxValuePerWindow string `toml:"MaxValuePerWindow" yaml:"max_value_per_window"` // base units
	WindowSeconds     uint32 `toml:"WindowSeconds" yaml:"window_seconds"`
}

// Log configures structured logging and optional file rotation.
type Log struct {
	Level      string `toml:"Level" yaml:"level"`
	File       string `toml:"File" yaml:"file"`
	MaxSizeMB  int    `toml:"MaxSizeMB" yaml:"max_size_mb"`
	MaxBackups int    `toml:"MaxBackups" yaml:"max_backups"`
	MaxAgeDays int    `toml:"MaxAgeDays" yaml:"max_age_days"`
	Compress   bool   `toml:"Compress" yaml:"compress"`
}

// Telemetry configures OTLP trace and metric export.
type Telemetry struct {
	Endpoint string `toml:"Endpoint" yaml:"endpoint"`
	Insecure bool   `toml:"Insecure" yaml:"insecure"`
	Headers  string `toml:"Headers" yaml:"headers"` // key=value,key2=value2
	Traces   bool   `toml:"Traces" yaml:"traces"`
	Metrics  bool   `toml:"Metrics" yaml:"metrics"`
}
