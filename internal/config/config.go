// Package config loads gatekeeper settings: defaults, then an optional YAML
// file named by GATEKEEPER_CONFIG, then environment variables.
package config

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Well-known chain ids
const (
	ChainBase        uint64 = 8453
	ChainBaseSepolia uint64 = 84532
	ChainEthereum    uint64 = 1
)

// Reload modes
const (
	ReloadNone   = "none"
	ReloadRCON   = "rcon"
	ReloadScreen = "screen"
)

// Config holds runtime settings for the gatekeeper and the whitelist synchronizer
type Config struct {
	ListenAddr    string
	RPCURL        string            // Default JSON-RPC endpoint
	RPCURLs       map[uint64]string // Per-chain overrides of RPCURL
	Registries    map[uint64]common.Address
	AdminKey      string
	TestMode      bool
	IPFSGateway   string
	RedisURL      string
	WhitelistPath string
	SyncInterval  time.Duration
	SyncEnabled   bool
	ReloadMode    string
	RCONAddr      string
	RCONPassword  string
	ScreenSession string
	GatekeeperURL string
	ReceiptKey    string // Hex P-256 scalar; empty generates one per process
	CallTimeout   time.Duration
}

// Defaults returns the development defaults
func Defaults() *Config {
	return &Config{
		ListenAddr:    ":3002",
		RPCURL:        "https://mainnet.base.org",
		RPCURLs:       map[uint64]string{},
		Registries:    map[uint64]common.Address{},
		IPFSGateway:   "https://ipfs.io/ipfs/",
		WhitelistPath: "whitelist.json",
		SyncInterval:  10 * time.Second,
		SyncEnabled:   true,
		ReloadMode:    ReloadNone,
		RCONAddr:      "127.0.0.1:25575",
		ScreenSession: "mc-server",
		GatekeeperURL: "http://localhost:3002",
		CallTimeout:   10 * time.Second,
	}
}

// Load builds the configuration from the process environment
func Load() (*Config, error) {
	return LoadFrom(os.Environ())
}

// LoadFrom builds the configuration from environ, a list of KEY=VALUE pairs
func LoadFrom(environ []string) (*Config, error) {
	env := make(map[string]string, len(environ))
	for _, kv := range environ {
		if k, v, ok := strings.Cut(kv, "="); ok {
			env[k] = v
		}
	}

	cfg := Defaults()
	if path := env["GATEKEEPER_CONFIG"]; path != "" {
		if err := cfg.applyFile(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.applyEnv(env); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// RPCURLFor returns the endpoint for chainID
func (c *Config) RPCURLFor(chainID uint64) string {
	if url, ok := c.RPCURLs[chainID]; ok && url != "" {
		return url
	}
	return c.RPCURL
}

// ChainIDs returns the chains with a configured registry, in ascending order
func (c *Config) ChainIDs() []uint64 {
	ids := make([]uint64, 0, len(c.Registries))
	for id := range c.Registries {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Validate checks values that cannot be fixed up silently
func (c *Config) Validate() error {
	switch c.ReloadMode {
	case ReloadNone, ReloadRCON, ReloadScreen:
	default:
		return fmt.Errorf("invalid RELOAD_MODE %q", c.ReloadMode)
	}
	if c.SyncInterval <= 0 {
		return fmt.Errorf("invalid SYNC_INTERVAL %s", c.SyncInterval)
	}
	return nil
}

func (c *Config) applyEnv(env map[string]string) error {
	str := func(key string, dst *string) {
		if v, ok := env[key]; ok && v != "" {
			*dst = v
		}
	}
	str("LISTEN_ADDR", &c.ListenAddr)
	str("RPC_URL", &c.RPCURL)
	str("ADMIN_KEY", &c.AdminKey)
	str("IPFS_GATEWAY", &c.IPFSGateway)
	str("REDIS_URL", &c.RedisURL)
	str("WHITELIST_PATH", &c.WhitelistPath)
	str("RELOAD_MODE", &c.ReloadMode)
	str("RCON_ADDR", &c.RCONAddr)
	str("RCON_PASSWORD", &c.RCONPassword)
	str("SCREEN_SESSION", &c.ScreenSession)
	str("GATEKEEPER_URL", &c.GatekeeperURL)
	str("RECEIPT_KEY", &c.ReceiptKey)

	for key, dst := range map[string]*bool{"TEST_MODE": &c.TestMode, "SYNC_ENABLED": &c.SyncEnabled} {
		if v := env[key]; v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("invalid %s: %w", key, err)
			}
			*dst = b
		}
	}

	if v := env["SYNC_INTERVAL"]; v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid SYNC_INTERVAL: %w", err)
		}
		c.SyncInterval = d
	}

	named := map[string]uint64{
		"REGISTRY_BASE":         ChainBase,
		"REGISTRY_BASE_SEPOLIA": ChainBaseSepolia,
		"REGISTRY_ETH":          ChainEthereum,
	}
	for key, value := range env {
		if value == "" {
			continue
		}
		if chainID, ok := named[key]; ok {
			if err := c.setRegistry(key, chainID, value); err != nil {
				return err
			}
			continue
		}
		if id, ok := chainSuffix(key, "REGISTRY_"); ok {
			if err := c.setRegistry(key, id, value); err != nil {
				return err
			}
			continue
		}
		if id, ok := chainSuffix(key, "RPC_URL_"); ok {
			c.RPCURLs[id] = value
		}
	}
	return nil
}

func (c *Config) setRegistry(key string, chainID uint64, value string) error {
	if !common.IsHexAddress(value) {
		return fmt.Errorf("invalid %s: %q is not a hex address", key, value)
	}
	c.Registries[chainID] = common.HexToAddress(value)
	return nil
}

// chainSuffix parses keys like REGISTRY_8453
func chainSuffix(key, prefix string) (uint64, bool) {
	rest, ok := strings.CutPrefix(key, prefix)
	if !ok {
		return 0, false
	}
	id, err := strconv.ParseUint(rest, 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return id, true
}
