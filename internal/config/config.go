// Package config loads the agent binary's configuration in three
// layers: built-in defaults, then an optional YAML file, then
// AGENT_-prefixed environment overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/blackhole-pro/agentcore/internal/vault"
)

// Config is the agent binary's full configuration surface.
type Config struct {
	LogLevel string `mapstructure:"log_level"`

	VaultStatePath string     `mapstructure:"vault_state_path"`
	VaultWorkFactor WorkFactor `mapstructure:"vault_work_factor"`

	DIDCacheTTL         time.Duration `mapstructure:"did_cache_ttl"`
	PermissionsCacheTTL time.Duration `mapstructure:"permissions_cache_ttl"`

	DWNEndpoint string `mapstructure:"dwn_endpoint"`
}

// WorkFactor mirrors vault.WorkFactor with mapstructure tags so it can be
// unmarshaled directly from YAML/env, then converted with ToVaultWorkFactor.
type WorkFactor struct {
	Time    uint32 `mapstructure:"time"`
	Memory  uint32 `mapstructure:"memory"`
	Threads uint8  `mapstructure:"threads"`
}

// ToVaultWorkFactor converts to the type vault.New actually takes.
func (w WorkFactor) ToVaultWorkFactor() vault.WorkFactor {
	return vault.WorkFactor{Time: w.Time, Memory: w.Memory, Threads: w.Threads}
}

// Default returns the built-in defaults applied before any file or
// environment override.
func Default() *Config {
	wf := vault.DefaultWorkFactor()
	return &Config{
		LogLevel:       "info",
		VaultStatePath: "./agent-vault.backup",
		VaultWorkFactor: WorkFactor{
			Time:    wf.Time,
			Memory:  wf.Memory,
			Threads: wf.Threads,
		},
		DIDCacheTTL:         15 * time.Minute,
		PermissionsCacheTTL: 60 * time.Second,
	}
}

// Load reads agent.yaml (or the file at path, if non-empty) merged over
// Default(), with AGENT_-prefixed environment variables taking final
// precedence.
func Load(path string) (*Config, error) {
	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("agent")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.agent")
		v.AddConfigPath("/etc/agent")
	}

	v.SetEnvPrefix("AGENT")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	for _, key := range []string{"log_level", "vault_state_path", "vault_work_factor.time", "vault_work_factor.memory", "vault_work_factor.threads", "did_cache_ttl", "permissions_cache_ttl", "dwn_endpoint"} {
		_ = v.BindEnv(key)
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to read agent config: %w", err)
		}
	}

	cfg := Default()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal agent config: %w", err)
	}
	return cfg, nil
}

// Validate reports a non-nil error if cfg carries an unusable value.
func Validate(cfg *Config) error {
	if cfg.VaultStatePath == "" {
		return fmt.Errorf("vault_state_path cannot be empty")
	}
	if cfg.VaultWorkFactor.Time == 0 || cfg.VaultWorkFactor.Memory == 0 || cfg.VaultWorkFactor.Threads == 0 {
		return fmt.Errorf("vault_work_factor must have non-zero time/memory/threads")
	}
	return nil
}
