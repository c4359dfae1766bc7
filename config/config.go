// Package config loads the voting client configuration from a YAML file and the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"slices"

	chainsel "github.com/smartcontractkit/chain-selectors"
	"github.com/spf13/viper"

	"github.com/ballotkit/voting-dapp/chain/evm/provider/rpcclient"
)

// Wallet authorization modes.
const (
	AuthorizationPrompt = "prompt"
	AuthorizationAuto   = "auto"
	AuthorizationDeny   = "deny"
)

// DefaultFilePath is the config file read when none is given.
const DefaultFilePath = "voting.yaml"

// RPCConfig is one node endpoint.
type RPCConfig struct {
	Name               string `mapstructure:"name" yaml:"name" toml:"name"`
	HTTPURL            string `mapstructure:"http_url" yaml:"http_url,omitempty" toml:"http_url,omitempty"`
	WSURL              string `mapstructure:"ws_url" yaml:"ws_url,omitempty" toml:"ws_url,omitempty"`
	PreferredURLScheme string `mapstructure:"preferred_url_scheme" yaml:"preferred_url_scheme,omitempty" toml:"preferred_url_scheme,omitempty"` // ws, http or empty
}

// KMSConfig is the configuration for an AWS KMS signing key.
//
// WARNING: This data type contains sensitive fields and should not be logged or set in file
// configuration.
type KMSConfig struct {
	KeyID      string `mapstructure:"key_id" yaml:"key_id" toml:"key_id"`                // Secret: AWS KMS Key ID
	KeyRegion  string `mapstructure:"key_region" yaml:"key_region" toml:"key_region"`    // Secret: AWS KMS Key Region (e.g. us-west-1)
	AWSProfile string `mapstructure:"aws_profile" yaml:"aws_profile" toml:"aws_profile"` // Optional AWS profile name
}

// WalletConfig is the configuration of the wallet's accounts.
//
// WARNING: This data type contains sensitive fields and should not be logged or set in file
// configuration.
type WalletConfig struct {
	PrivateKeys   []string  `mapstructure:"private_keys" yaml:"private_keys" toml:"private_keys"` // Secret: hex private keys. Prefer KMS keys instead.
	KMS           KMSConfig `mapstructure:"kms" yaml:"kms" toml:"kms"`
	Authorization string    `mapstructure:"authorization" yaml:"authorization" toml:"authorization"` // prompt, auto or deny
}

// HTTPConfig configures the page server.
type HTTPConfig struct {
	ListenAddr     string   `mapstructure:"listen_addr" yaml:"listen_addr" toml:"listen_addr"`
	AllowedOrigins []string `mapstructure:"allowed_origins" yaml:"allowed_origins" toml:"allowed_origins"`
}

// Config wraps the entire configuration of the voting client.
type Config struct {
	ChainSelector uint64       `mapstructure:"chain_selector" yaml:"chain_selector" toml:"-"`
	RPCs          []RPCConfig  `mapstructure:"rpcs" yaml:"rpcs" toml:"rpcs"`
	LegacyRPCURL  string       `mapstructure:"legacy_rpc_url" yaml:"legacy_rpc_url" toml:"legacy_rpc_url"`
	Wallet        WalletConfig `mapstructure:"wallet" yaml:"wallet" toml:"wallet"`
	HTTP          HTTPConfig   `mapstructure:"http" yaml:"http" toml:"http"`
	LogLevel      string       `mapstructure:"log_level" yaml:"log_level" toml:"log_level"`
}

// Load loads the config from the file path, falling back to env vars if the file does not exist.
// If the file exists, any env vars that are set will override the values loaded from the file.
func Load(filePath string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(filePath)
	setDefaults(v)

	if err := bindEnvs(v); err != nil {
		return nil, err
	}

	if _, err := os.Stat(filePath); !errors.Is(err, fs.ErrNotExist) {
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", filePath, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// Validate checks the values that cannot be checked by unmarshaling alone.
func (c *Config) Validate() error {
	if _, err := chainsel.GetChainIDFromSelector(c.ChainSelector); err != nil {
		return fmt.Errorf("unknown chain selector %d: %w", c.ChainSelector, err)
	}

	switch c.Wallet.Authorization {
	case AuthorizationPrompt, AuthorizationAuto, AuthorizationDeny:
	default:
		return fmt.Errorf("unknown wallet authorization %q, want one of %s, %s, %s",
			c.Wallet.Authorization, AuthorizationPrompt, AuthorizationAuto, AuthorizationDeny)
	}

	for i, r := range c.RPCs {
		if _, err := r.ToRPC(); err != nil {
			return fmt.Errorf("rpcs[%d]: %w", i, err)
		}
	}

	return nil
}

// HasWallet reports whether a wallet can be built: it needs at least one RPC and one account.
func (c *Config) HasWallet() bool {
	return len(c.RPCs) > 0 && (len(c.Wallet.PrivateKeys) > 0 || c.Wallet.KMS.KeyID != "")
}

// ToRPC converts the entry to the rpcclient representation.
func (r RPCConfig) ToRPC() (rpcclient.RPC, error) {
	pref, err := rpcclient.URLSchemePreferenceFromString(r.PreferredURLScheme)
	if err != nil {
		return rpcclient.RPC{}, err
	}

	rpc := rpcclient.RPC{
		Name:               r.Name,
		HTTPURL:            r.HTTPURL,
		WSURL:              r.WSURL,
		PreferredURLScheme: pref,
	}
	if _, err := rpc.ToEndpoint(); err != nil {
		return rpcclient.RPC{}, err
	}

	return rpc, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("chain_selector", chainsel.ETHEREUM_TESTNET_SEPOLIA.Selector)
	v.SetDefault("wallet.authorization", AuthorizationPrompt)
	v.SetDefault("http.listen_addr", ":8080")
	v.SetDefault("log_level", "info")
}

// envBindings maps config keys to the environment variables that can provide their value. The
// first variable set wins.
var envBindings = map[string][]string{
	"chain_selector":         {"VOTING_CHAIN_SELECTOR"},
	"legacy_rpc_url":         {"VOTING_LEGACY_RPC_URL"},
	"wallet.private_keys":    {"VOTING_WALLET_PRIVATE_KEYS"},
	"wallet.kms.key_id":      {"VOTING_WALLET_KMS_KEY_ID"},
	"wallet.kms.key_region":  {"VOTING_WALLET_KMS_KEY_REGION"},
	"wallet.kms.aws_profile": {"VOTING_WALLET_KMS_AWS_PROFILE"},
	"wallet.authorization":   {"VOTING_WALLET_AUTHORIZATION"},
	"http.listen_addr":       {"VOTING_HTTP_LISTEN_ADDR"},
	"log_level":              {"VOTING_LOG_LEVEL"},
}

// bindEnvs binds the environment variables to the viper instance.
func bindEnvs(v *viper.Viper) error {
	for key, envs := range envBindings {
		inputs := slices.Insert(slices.Clone(envs), 0, key)

		if err := v.BindEnv(inputs...); err != nil {
			return err
		}
	}

	return nil
}
