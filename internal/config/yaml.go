package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// fileConfig is the YAML shape of the config file. Unset keys keep the
// value already in Config.
type fileConfig struct {
	ListenAddr    *string           `yaml:"listen_addr"`
	RPCURL        *string           `yaml:"rpc_url"`
	RPCURLs       map[string]string `yaml:"rpc_urls"`
	Registries    map[string]string `yaml:"registries"`
	AdminKey      *string           `yaml:"admin_key"`
	TestMode      *bool             `yaml:"test_mode"`
	IPFSGateway   *string           `yaml:"ipfs_gateway"`
	RedisURL      *string           `yaml:"redis_url"`
	WhitelistPath *string           `yaml:"whitelist_path"`
	SyncInterval  *string           `yaml:"sync_interval"`
	SyncEnabled   *bool             `yaml:"sync_enabled"`
	ReloadMode    *string           `yaml:"reload_mode"`
	RCONAddr      *string           `yaml:"rcon_addr"`
	RCONPassword  *string           `yaml:"rcon_password"`
	ScreenSession *string           `yaml:"screen_session"`
	GatekeeperURL *string           `yaml:"gatekeeper_url"`
	ReceiptKey    *string           `yaml:"receipt_key"`
}

func (c *Config) applyFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	var f fileConfig
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	set := func(dst *string, v *string) {
		if v != nil {
			*dst = *v
		}
	}
	set(&c.ListenAddr, f.ListenAddr)
	set(&c.RPCURL, f.RPCURL)
	set(&c.AdminKey, f.AdminKey)
	set(&c.IPFSGateway, f.IPFSGateway)
	set(&c.RedisURL, f.RedisURL)
	set(&c.WhitelistPath, f.WhitelistPath)
	set(&c.ReloadMode, f.ReloadMode)
	set(&c.RCONAddr, f.RCONAddr)
	set(&c.RCONPassword, f.RCONPassword)
	set(&c.ScreenSession, f.ScreenSession)
	set(&c.GatekeeperURL, f.GatekeeperURL)
	set(&c.ReceiptKey, f.ReceiptKey)
	if f.TestMode != nil {
		c.TestMode = *f.TestMode
	}
	if f.SyncEnabled != nil {
		c.SyncEnabled = *f.SyncEnabled
	}
	if f.SyncInterval != nil {
		d, err := time.ParseDuration(*f.SyncInterval)
		if err != nil {
			return fmt.Errorf("invalid sync_interval: %w", err)
		}
		c.SyncInterval = d
	}

	for chain, url := range f.RPCURLs {
		id, err := strconv.ParseUint(chain, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid rpc_urls chain id %q", chain)
		}
		c.RPCURLs[id] = url
	}
	for chain, addr := range f.Registries {
		id, err := strconv.ParseUint(chain, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid registries chain id %q", chain)
		}
		if err := c.setRegistry("registries."+chain, id, addr); err != nil {
			return err
		}
	}
	return nil
}
