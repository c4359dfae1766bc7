package config

import (
	"fmt"
	"io"

	"github.com/ballotkit/voting-dapp/chain/evm/provider"
	"github.com/ballotkit/voting-dapp/chain/evm/provider/rpcclient"
	"github.com/ballotkit/voting-dapp/client"
	"github.com/ballotkit/voting-dapp/pkg/logger"
)

// EnvironmentOptions are the inputs that do not come from the config itself.
type EnvironmentOptions struct {
	// In is where an interactive authorization reads its answer from.
	In io.Reader
	// Out is where an interactive authorization writes its question to.
	Out io.Writer
	// ClientOpts are applied to every MultiClient the providers connect through.
	ClientOpts []func(*rpcclient.MultiClient)
}

// Environment builds the wallet capability described by the config. Providers are not connected
// here; the voting client initializes them.
//
// A wallet is built when the config has both RPCs and an account source. A legacy provider is
// built when legacy_rpc_url is set. With neither, the returned environment is empty.
func (c *Config) Environment(lggr logger.Logger, opts EnvironmentOptions) (client.Environment, error) {
	var env client.Environment

	if c.HasWallet() {
		w, err := c.wallet(lggr, opts)
		if err != nil {
			return client.Environment{}, err
		}
		env.Wallet = w
	}

	if c.LegacyRPCURL != "" {
		env.Legacy = provider.NewRPCReadOnlyProvider(c.ChainSelector, provider.RPCReadOnlyProviderConfig{
			RPCs: []rpcclient.RPC{{
				Name:               "legacy",
				HTTPURL:            c.LegacyRPCURL,
				PreferredURLScheme: rpcclient.URLSchemePreferenceHTTP,
			}},
			ClientOpts: opts.ClientOpts,
			Logger:     lggr,
		})
	}

	return env, nil
}

func (c *Config) wallet(lggr logger.Logger, opts EnvironmentOptions) (*provider.RPCWallet, error) {
	rpcs := make([]rpcclient.RPC, 0, len(c.RPCs))
	for _, r := range c.RPCs {
		rpc, err := r.ToRPC()
		if err != nil {
			return nil, err
		}
		rpcs = append(rpcs, rpc)
	}

	var gens []provider.SignerGenerator
	if c.Wallet.KMS.KeyID != "" {
		gen, err := provider.TransactorFromKMS(c.Wallet.KMS.KeyID, c.Wallet.KMS.KeyRegion, c.Wallet.KMS.AWSProfile)
		if err != nil {
			return nil, fmt.Errorf("failed to create KMS account: %w", err)
		}
		gens = append(gens, gen)
	}
	for _, key := range c.Wallet.PrivateKeys {
		gens = append(gens, provider.TransactorFromRaw(key))
	}

	authorizer, err := c.authorizer(opts)
	if err != nil {
		return nil, err
	}

	return provider.NewRPCWallet(c.ChainSelector, provider.RPCWalletConfig{
		AccountGens: gens,
		RPCs:        rpcs,
		Authorizer:  authorizer,
		ClientOpts:  opts.ClientOpts,
		Logger:      lggr,
	}), nil
}

func (c *Config) authorizer(opts EnvironmentOptions) (provider.Authorizer, error) {
	switch c.Wallet.Authorization {
	case AuthorizationAuto:
		return provider.AutoAuthorize(), nil
	case AuthorizationDeny:
		return provider.DenyAuthorization(), nil
	case AuthorizationPrompt, "":
		if opts.In == nil || opts.Out == nil {
			return nil, fmt.Errorf("wallet authorization %q needs an input and an output", AuthorizationPrompt)
		}

		return provider.PromptAuthorizer(opts.In, opts.Out), nil
	default:
		return nil, fmt.Errorf("unknown wallet authorization %q", c.Wallet.Authorization)
	}
}
