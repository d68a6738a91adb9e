package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"paylock/core/genesis"
	"paylock/crypto"
)

const (
	StorageLevelDB = "leveldb"
	StorageBolt    = "bolt"
	StorageMemory  = "memory"
)

// defaultAdminAllocation funds the generated admin key of a fresh local node.
const defaultAdminAllocation = "1000000000000000000000"

type Config struct {
	RPCAddress        string `toml:"RPCAddress" yaml:"rpc_address"`
	DataDir           string `toml:"DataDir" yaml:"data_dir"`
	StorageBackend    string `toml:"StorageBackend" yaml:"storage_backend"`
	IndexerDSN        string `toml:"IndexerDSN" yaml:"indexer_dsn"`
	GenesisFile       string `toml:"GenesisFile" yaml:"genesis_file"`
	AdminKeystorePath string `toml:"AdminKeystorePath" yaml:"admin_keystore_path"`
	Env               string `toml:"Env" yaml:"env"`

	Log       Log          `toml:"log" yaml:"log"`
	RPC       RPC          `toml:"rpc" yaml:"rpc"`
	Quota     Quota        `toml:"quota" yaml:"quota"`
	Telemetry Telemetry    `toml:"telemetry" yaml:"telemetry"`
	Genesis   genesis.Spec `toml:"genesis" yaml:"genesis"`
}

// Load loads the configuration from the given path. TOML is assumed unless
// the file ends in .yaml or .yml. A missing file is replaced by a default
// local configuration with a freshly generated admin keystore.
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	} else if err != nil {
		return nil, err
	}

	cfg := &Config{}
	if isYAML(path) {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		dec := yaml.NewDecoder(bytes.NewReader(raw))
		dec.KnownFields(true)
		if err := dec.Decode(cfg); err != nil {
			return nil, fmt.Errorf("decode config %s: %w", path, err)
		}
	} else {
		meta, err := toml.DecodeFile(path, cfg)
		if err != nil {
			return nil, fmt.Errorf("decode config %s: %w", path, err)
		}
		if undecoded := meta.Undecoded(); len(undecoded) > 0 {
			return nil, fmt.Errorf("config file %s has unknown field %q", path, undecoded[0].String())
		}
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if strings.TrimSpace(c.RPCAddress) == "" {
		c.RPCAddress = ":8080"
	}
	if strings.TrimSpace(c.DataDir) == "" {
		c.DataDir = "./paylock-data"
	}
	c.StorageBackend = strings.ToLower(strings.TrimSpace(c.StorageBackend))
	if c.StorageBackend == "" {
		c.StorageBackend = StorageLevelDB
	}
	if c.RPC.RateLimitPerSecond > 0 && c.RPC.RateLimitBurst == 0 {
		c.RPC.RateLimitBurst = int(c.RPC.RateLimitPerSecond)
		if c.RPC.RateLimitBurst < 1 {
			c.RPC.RateLimitBurst = 1
		}
	}
	if c.RPC.ReadHeaderTimeout == 0 {
		c.RPC.ReadHeaderTimeout = 5
	}
	if c.RPC.MaxBodyBytes == 0 {
		c.RPC.MaxBodyBytes = 1 << 20
	}
	if c.Log.File != "" {
		if c.Log.MaxSizeMB == 0 {
			c.Log.MaxSizeMB = 100
		}
		if c.Log.MaxBackups == 0 {
			c.Log.MaxBackups = 5
		}
	}
}

// GenesisSpec returns the genesis document referenced by GenesisFile, or the
// inline [genesis] section when no file is configured.
func (c *Config) GenesisSpec() (*genesis.Spec, error) {
	if path := strings.TrimSpace(c.GenesisFile); path != "" {
		return genesis.LoadSpec(path)
	}
	spec := c.Genesis
	return &spec, nil
}

// StoragePath is the on-disk location of the state database.
func (c *Config) StoragePath() string {
	switch c.StorageBackend {
	case StorageBolt:
		return filepath.Join(c.DataDir, "state.db")
	default:
		return filepath.Join(c.DataDir, "state")
	}
}

// createDefault creates and saves a default configuration file.
func createDefault(path string) (*Config, error) {
	key, err := crypto.GeneratePrivateKey()
	if err != nil {
		return nil, err
	}

	keystorePath := defaultKeystorePath(path)
	if err := crypto.SaveToKeystore(keystorePath, key, "", crypto.LightScrypt()); err != nil {
		return nil, err
	}
	admin := key.PubKey().Address().String()

	cfg := &Config{
		RPCAddress:        ":8080",
		DataDir:           "./paylock-data",
		StorageBackend:    StorageLevelDB,
		AdminKeystorePath: keystorePath,
		Env:               "local",
		RPC: RPC{
			RateLimitPerSecond: 10,
			RateLimitBurst:     20,
		},
		Genesis: genesis.Spec{
			Admin:    admin,
			MinPrice: "1",
			Alloc:    map[string]string{admin: defaultAdminAllocation},
		},
	}
	cfg.applyDefaults()

	if err := persist(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func persist(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_TRUNC|os.O_CREATE, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	if isYAML(path) {
		enc := yaml.NewEncoder(f)
		defer enc.Close()
		return enc.Encode(cfg)
	}
	return toml.NewEncoder(f).Encode(cfg)
}

func isYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}

func defaultKeystorePath(configPath string) string {
	dir := filepath.Dir(configPath)
	if dir == "." || dir == "" {
		dir = ""
	}
	return filepath.Join(dir, "admin.keystore")
}
