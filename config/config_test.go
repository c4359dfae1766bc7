package config

import (
	"bytes"
	"strconv"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"
	chainsel "github.com/smartcontractkit/chain-selectors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/ballotkit/voting-dapp/chain/evm/provider"
	"github.com/ballotkit/voting-dapp/chain/evm/provider/rpcclient"
	"github.com/ballotkit/voting-dapp/pkg/logger"
)

const testPrivateKey = "0xac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"

var (
	// fileCfg is the config that is loaded from the testdata/config.yml file.
	fileCfg = &Config{
		ChainSelector: chainsel.ETHEREUM_TESTNET_SEPOLIA.Selector,
		RPCs: []RPCConfig{
			{
				Name:               "primary",
				HTTPURL:            "https://sepolia.example.com",
				WSURL:              "wss://sepolia.example.com/ws",
				PreferredURLScheme: "ws",
			},
			{
				Name:    "fallback",
				HTTPURL: "https://fallback.example.com",
			},
		},
		LegacyRPCURL: "https://legacy.example.com",
		Wallet: WalletConfig{
			PrivateKeys: []string{testPrivateKey},
			KMS: KMSConfig{
				KeyID:      "f1a2b3c4",
				KeyRegion:  "us-west-1",
				AWSProfile: "voting",
			},
			Authorization: AuthorizationAuto,
		},
		HTTP: HTTPConfig{
			ListenAddr:     "127.0.0.1:9000",
			AllowedOrigins: []string{"https://vote.example.com"},
		},
		LogLevel: "debug",
	}

	// defaultCfg is the config that is loaded when nothing is set.
	defaultCfg = &Config{
		ChainSelector: chainsel.ETHEREUM_TESTNET_SEPOLIA.Selector,
		Wallet: WalletConfig{
			Authorization: AuthorizationPrompt,
		},
		HTTP: HTTPConfig{
			ListenAddr: ":8080",
		},
		LogLevel: "info",
	}

	envVars = map[string]string{
		"VOTING_CHAIN_SELECTOR":         "3379446385462418246",
		"VOTING_LEGACY_RPC_URL":         "http://localhost:8545",
		"VOTING_WALLET_PRIVATE_KEYS":    "0x01,0x02",
		"VOTING_WALLET_KMS_KEY_ID":      "env-key",
		"VOTING_WALLET_KMS_KEY_REGION":  "eu-west-2",
		"VOTING_WALLET_KMS_AWS_PROFILE": "env-profile",
		"VOTING_WALLET_AUTHORIZATION":   "deny",
		"VOTING_HTTP_LISTEN_ADDR":       ":9999",
		"VOTING_LOG_LEVEL":              "warn",
	}
)

func Test_Load(t *testing.T) { //nolint:paralleltest // see comment in setupEnvVars
	tests := []struct {
		name        string
		givePath    string
		giveEnvVars map[string]string
		want        *Config
		wantErr     string
	}{
		{
			name:     "loads from file",
			givePath: "./testdata/config.yml",
			want:     fileCfg,
		},
		{
			name:     "empty file loads defaults",
			givePath: "./testdata/empty.yml",
			want:     defaultCfg,
		},
		{
			name:     "missing file loads defaults",
			givePath: "./testdata/missing.yml",
			want:     defaultCfg,
		},
		{
			name:        "env vars override file",
			givePath:    "./testdata/config.yml",
			giveEnvVars: envVars,
			want: &Config{
				ChainSelector: chainsel.GETH_TESTNET.Selector,
				RPCs:          fileCfg.RPCs,
				LegacyRPCURL:  "http://localhost:8545",
				Wallet: WalletConfig{
					PrivateKeys: []string{"0x01", "0x02"},
					KMS: KMSConfig{
						KeyID:      "env-key",
						KeyRegion:  "eu-west-2",
						AWSProfile: "env-profile",
					},
					Authorization: AuthorizationDeny,
				},
				HTTP: HTTPConfig{
					ListenAddr:     ":9999",
					AllowedOrigins: fileCfg.HTTP.AllowedOrigins,
				},
				LogLevel: "warn",
			},
		},
		{
			name:     "invalid yaml",
			givePath: "./testdata/invalid.yml",
			wantErr:  "failed to read config file",
		},
		{
			name:     "unknown authorization",
			givePath: "./testdata/bad_authorization.yml",
			wantErr:  `unknown wallet authorization "sometimes"`,
		},
		{
			name:     "rpc without url",
			givePath: "./testdata/bad_rpc.yml",
			wantErr:  "rpcs[0]: no URL set for RPC nothing",
		},
		{
			name:        "unknown chain selector",
			givePath:    "./testdata/empty.yml",
			giveEnvVars: map[string]string{"VOTING_CHAIN_SELECTOR": "42"},
			wantErr:     "unknown chain selector 42",
		},
	}

	for _, tt := range tests { //nolint:paralleltest // see comment in setupEnvVars
		t.Run(tt.name, func(t *testing.T) {
			setupEnvVars(t, tt.giveEnvVars)

			got, err := Load(tt.givePath)
			if tt.wantErr != "" {
				require.ErrorContains(t, err, tt.wantErr)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestConfig_HasWallet(t *testing.T) {
	t.Parallel()

	rpcs := []RPCConfig{{Name: "a", HTTPURL: "http://localhost:8545"}}

	tests := []struct {
		name string
		give Config
		want bool
	}{
		{name: "private key", give: Config{RPCs: rpcs, Wallet: WalletConfig{PrivateKeys: []string{testPrivateKey}}}, want: true},
		{name: "kms key", give: Config{RPCs: rpcs, Wallet: WalletConfig{KMS: KMSConfig{KeyID: "k"}}}, want: true},
		{name: "no accounts", give: Config{RPCs: rpcs}},
		{name: "no rpcs", give: Config{Wallet: WalletConfig{PrivateKeys: []string{testPrivateKey}}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.want, tt.give.HasWallet())
		})
	}
}

func TestRPCConfig_ToRPC(t *testing.T) {
	t.Parallel()

	got, err := fileCfg.RPCs[0].ToRPC()
	require.NoError(t, err)
	assert.Equal(t, rpcclient.RPC{
		Name:               "primary",
		HTTPURL:            "https://sepolia.example.com",
		WSURL:              "wss://sepolia.example.com/ws",
		PreferredURLScheme: rpcclient.URLSchemePreferenceWS,
	}, got)

	_, err = RPCConfig{Name: "x", HTTPURL: "http://a", PreferredURLScheme: "carrier-pigeon"}.ToRPC()
	require.ErrorContains(t, err, "invalid URL scheme preference")
}

func TestRender(t *testing.T) {
	t.Parallel()

	decodeYAML := func(b []byte) (Config, error) {
		var c Config
		err := yaml.Unmarshal(b, &c)

		return c, err
	}

	tests := []struct {
		name       string
		giveFormat string
		decode     func([]byte) (Config, error)
	}{
		{name: "yaml", giveFormat: FormatYAML, decode: decodeYAML},
		{name: "default is yaml", giveFormat: "", decode: decodeYAML},
		{
			name:       "toml",
			giveFormat: FormatTOML,
			decode: func(b []byte) (Config, error) {
				var c tomlConfig
				if err := toml.Unmarshal(b, &c); err != nil {
					return Config{}, err
				}
				selector, err := strconv.ParseUint(c.ChainSelector, 10, 64)
				c.Config.ChainSelector = selector

				return c.Config, err
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var buf bytes.Buffer
			require.NoError(t, Render(&buf, fileCfg, tt.giveFormat))

			out := buf.String()
			assert.NotContains(t, out, strings.TrimPrefix(testPrivateKey, "0x"))
			assert.NotContains(t, out, "f1a2b3c4")
			assert.NotContains(t, out, "us-west-1")

			got, err := tt.decode(buf.Bytes())
			require.NoError(t, err)
			assert.Equal(t, fileCfg.RPCs, got.RPCs)
			assert.Equal(t, fileCfg.HTTP, got.HTTP)
			assert.Equal(t, fileCfg.ChainSelector, got.ChainSelector)
			assert.Equal(t, []string{redacted}, got.Wallet.PrivateKeys)
			assert.Equal(t, redacted, got.Wallet.KMS.KeyID)
			assert.Equal(t, "voting", got.Wallet.KMS.AWSProfile)
		})
	}

	require.ErrorContains(t, Render(&bytes.Buffer{}, fileCfg, "xml"), `unsupported format "xml"`)
	assert.Equal(t, testPrivateKey, fileCfg.Wallet.PrivateKeys[0], "rendering does not modify the config")
}

func TestConfig_Environment(t *testing.T) {
	t.Parallel()

	rpcs := []RPCConfig{{Name: "a", HTTPURL: "http://localhost:8545"}}

	tests := []struct {
		name       string
		give       Config
		giveOpts   EnvironmentOptions
		wantWallet bool
		wantLegacy bool
		wantErr    string
	}{
		{
			name: "wallet from private keys",
			give: Config{
				ChainSelector: chainsel.TEST_1000.Selector,
				RPCs:          rpcs,
				Wallet:        WalletConfig{PrivateKeys: []string{testPrivateKey}, Authorization: AuthorizationAuto},
			},
			wantWallet: true,
		},
		{
			name: "wallet and legacy",
			give: Config{
				ChainSelector: chainsel.TEST_1000.Selector,
				RPCs:          rpcs,
				LegacyRPCURL:  "http://localhost:8546",
				Wallet:        WalletConfig{PrivateKeys: []string{testPrivateKey}, Authorization: AuthorizationDeny},
			},
			wantWallet: true,
			wantLegacy: true,
		},
		{
			name: "legacy only",
			give: Config{
				ChainSelector: chainsel.TEST_1000.Selector,
				LegacyRPCURL:  "http://localhost:8546",
			},
			wantLegacy: true,
		},
		{
			name: "nothing configured",
			give: Config{ChainSelector: chainsel.TEST_1000.Selector},
		},
		{
			name: "prompt with a terminal",
			give: Config{
				ChainSelector: chainsel.TEST_1000.Selector,
				RPCs:          rpcs,
				Wallet:        WalletConfig{PrivateKeys: []string{testPrivateKey}, Authorization: AuthorizationPrompt},
			},
			giveOpts:   EnvironmentOptions{In: strings.NewReader("y\n"), Out: &bytes.Buffer{}},
			wantWallet: true,
		},
		{
			name: "prompt without a terminal",
			give: Config{
				ChainSelector: chainsel.TEST_1000.Selector,
				RPCs:          rpcs,
				Wallet:        WalletConfig{PrivateKeys: []string{testPrivateKey}, Authorization: AuthorizationPrompt},
			},
			wantErr: "needs an input and an output",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			env, err := tt.give.Environment(logger.Test(t), tt.giveOpts)
			if tt.wantErr != "" {
				require.ErrorContains(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)

			if tt.wantWallet {
				w, ok := env.Wallet.(*provider.RPCWallet)
				require.True(t, ok)
				assert.Equal(t, tt.give.ChainSelector, w.ChainSelector())
			} else {
				assert.Nil(t, env.Wallet)
			}

			if tt.wantLegacy {
				p, ok := env.Legacy.(*provider.RPCReadOnlyProvider)
				require.True(t, ok)
				assert.Equal(t, tt.give.ChainSelector, p.ChainSelector())
			} else {
				assert.Nil(t, env.Legacy)
			}
		})
	}
}

// setupEnvVars sets the environment variables for the test.
//
// CAUTION: Because this function uses t.Setenv which affects the entire process, tests which call
// this function cannot be run in parallel.
func setupEnvVars(t *testing.T, envVars map[string]string) {
	t.Helper()

	for key, value := range envVars {
		t.Setenv(key, value)
	}
}
