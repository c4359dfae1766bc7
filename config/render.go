package config

import (
	"fmt"
	"io"
	"strconv"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Render formats.
const (
	FormatYAML = "yaml"
	FormatTOML = "toml"
)

const redacted = "<redacted>"

// tomlConfig carries the chain selector as a string since TOML integers are signed 64 bit.
type tomlConfig struct {
	ChainSelector string `toml:"chain_selector"`
	Config
}

// Redacted returns a copy of the config with every secret replaced by a placeholder.
func (c Config) Redacted() Config {
	out := c
	out.RPCs = append([]RPCConfig(nil), c.RPCs...)
	out.HTTP.AllowedOrigins = append([]string(nil), c.HTTP.AllowedOrigins...)

	if len(c.Wallet.PrivateKeys) > 0 {
		out.Wallet.PrivateKeys = make([]string, len(c.Wallet.PrivateKeys))
		for i := range out.Wallet.PrivateKeys {
			out.Wallet.PrivateKeys[i] = redacted
		}
	}
	if c.Wallet.KMS.KeyID != "" {
		out.Wallet.KMS.KeyID = redacted
	}
	if c.Wallet.KMS.KeyRegion != "" {
		out.Wallet.KMS.KeyRegion = redacted
	}

	return out
}

// Render writes the redacted config to w in the given format.
func Render(w io.Writer, cfg *Config, format string) error {
	safe := cfg.Redacted()

	var (
		b   []byte
		err error
	)
	switch format {
	case FormatYAML, "yml", "":
		b, err = yaml.Marshal(safe)
	case FormatTOML:
		b, err = toml.Marshal(tomlConfig{ChainSelector: strconv.FormatUint(safe.ChainSelector, 10), Config: safe})
	default:
		return fmt.Errorf("unsupported format %q, want %s or %s", format, FormatYAML, FormatTOML)
	}
	if err != nil {
		return fmt.Errorf("failed to render config as %s: %w", format, err)
	}

	_, err = w.Write(b)

	return err
}
