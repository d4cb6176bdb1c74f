package config

import (
	"encoding/hex"
	"fmt"
	"math/big"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
)

// PoolConfig declares one staking pool the daemon opens at boot.
type PoolConfig struct {
	Token            string `toml:"Token"`
	Address          string `toml:"Address"`
	Weight           uint32 `toml:"Weight"`
	IsFlash          bool   `toml:"IsFlash"`
	V1StakeMaxPeriod uint64 `toml:"V1StakeMaxPeriod"`
}

// Config is the daemon configuration.
type Config struct {
	ListenAddress string `toml:"ListenAddress"`
	DataDir       string `toml:"DataDir"`
	Environment   string `toml:"Environment"`
	AuthSecret    string `toml:"AuthSecret"`

	OwnerAddress     string `toml:"OwnerAddress"`
	RewardToken      string `toml:"RewardToken"`
	EscrowToken      string `toml:"EscrowToken"`
	RewardPerSecond  string `toml:"RewardPerSecond"`
	SecondsPerUpdate uint64 `toml:"SecondsPerUpdate"`
	EndTime          uint64 `toml:"EndTime"`

	RequestsPerMinute float64  `toml:"RequestsPerMinute"`
	RequestBurst      int      `toml:"RequestBurst"`
	PausedModules     []string `toml:"PausedModules"`

	Pools []PoolConfig `toml:"Pools"`
}

// Load reads the configuration from the given path, filling defaults for
// anything not set.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("config: decode %s: %w", path, err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func defaultConfig() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if strings.TrimSpace(c.ListenAddress) == "" {
		c.ListenAddress = "127.0.0.1:8645"
	}
	if strings.TrimSpace(c.DataDir) == "" {
		c.DataDir = "./yieldhub-data"
	}
	if strings.TrimSpace(c.RewardToken) == "" {
		c.RewardToken = "YLD"
	}
	if strings.TrimSpace(c.EscrowToken) == "" {
		c.EscrowToken = "sYLD"
	}
	if strings.TrimSpace(c.RewardPerSecond) == "" {
		c.RewardPerSecond = "1000000000000000000"
	}
	if c.SecondsPerUpdate == 0 {
		c.SecondsPerUpdate = 14 * 24 * 60 * 60
	}
	if c.RequestsPerMinute == 0 {
		c.RequestsPerMinute = 600
	}
	if c.RequestBurst == 0 {
		c.RequestBurst = 50
	}
}

// Validate checks the parts of the configuration the daemon cannot default.
func (c *Config) Validate() error {
	if _, err := c.ParseRewardPerSecond(); err != nil {
		return err
	}
	if _, err := ParseAddress(c.OwnerAddress); err != nil {
		return fmt.Errorf("config: owner address: %w", err)
	}
	seen := make(map[string]bool, len(c.Pools))
	for _, pool := range c.Pools {
		if strings.TrimSpace(pool.Token) == "" {
			return fmt.Errorf("config: pool with empty token")
		}
		if seen[pool.Token] {
			return fmt.Errorf("config: duplicate pool token %q", pool.Token)
		}
		seen[pool.Token] = true
		if _, err := ParseAddress(pool.Address); err != nil {
			return fmt.Errorf("config: pool %s address: %w", pool.Token, err)
		}
	}
	return nil
}

// ParseRewardPerSecond decodes the bootstrap emission rate.
func (c *Config) ParseRewardPerSecond() (*big.Int, error) {
	v, ok := new(big.Int).SetString(strings.TrimSpace(c.RewardPerSecond), 10)
	if !ok || v.Sign() < 0 {
		return nil, fmt.Errorf("config: invalid RewardPerSecond %q", c.RewardPerSecond)
	}
	return v, nil
}

// ParseAddress decodes a 0x-prefixed 20-byte hex address.
func ParseAddress(raw string) ([20]byte, error) {
	var addr [20]byte
	trimmed := strings.TrimSpace(raw)
	if strings.HasPrefix(trimmed, "0x") || strings.HasPrefix(trimmed, "0X") {
		trimmed = trimmed[2:]
	}
	if len(trimmed) != 40 {
		return addr, fmt.Errorf("address must be 20 bytes (got %d hex chars)", len(trimmed))
	}
	decoded, err := hex.DecodeString(trimmed)
	if err != nil {
		return addr, fmt.Errorf("decode address: %w", err)
	}
	copy(addr[:], decoded)
	return addr, nil
}
