package provider

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"

	"github.com/ballotkit/voting-dapp/chain"
	"github.com/ballotkit/voting-dapp/chain/evm"
	"github.com/ballotkit/voting-dapp/chain/evm/provider/rpcclient"
	"github.com/ballotkit/voting-dapp/pkg/logger"
)

// RPCWalletConfig holds the configuration to initialize the RPCWallet.
type RPCWalletConfig struct {
	// Required: Generators for the wallet's accounts, in order. The first account is the one the
	// voting client sends transactions from. Use TransactorFromRaw for a private key, or
	// TransactorFromKMS for a KMS key.
	AccountGens []SignerGenerator
	// Required: At least one RPC must be provided to connect to the EVM node.
	RPCs []rpcclient.RPC
	// Required: Authorizer answers account access requests on behalf of the wallet's owner.
	Authorizer Authorizer
	// Optional: ClientOpts are applied to the MultiClient the wallet connects through.
	ClientOpts []func(client *rpcclient.MultiClient)
	// Optional: Logger is the logger to use. If not provided, a default logger will be used.
	Logger logger.Logger
}

func (c RPCWalletConfig) validate() error {
	if len(c.AccountGens) == 0 {
		return errors.New("at least one account generator is required")
	}
	if c.Authorizer == nil {
		return errors.New("authorizer is required")
	}
	if len(c.RPCs) == 0 {
		return errors.New("at least one RPC is required")
	}

	return nil
}

var _ chain.Wallet = (*RPCWallet)(nil)

// RPCWallet is a wallet whose accounts sign locally (or in KMS) and whose transactions are sent
// to an EVM node over RPC.
type RPCWallet struct {
	selector uint64
	config   RPCWalletConfig

	initMu     sync.Mutex
	chain      *evm.Chain
	candidates []*bind.TransactOpts

	accounts accountSet
}

// NewRPCWallet creates a new RPCWallet with the given chain selector and configuration.
func NewRPCWallet(selector uint64, config RPCWalletConfig) *RPCWallet {
	return &RPCWallet{
		selector: selector,
		config:   config,
	}
}

// Initialize connects to the configured RPCs and derives the wallet's accounts. No account is
// exposed until RequestAccounts is granted.
func (w *RPCWallet) Initialize(ctx context.Context) (evm.Chain, error) {
	w.initMu.Lock()
	defer w.initMu.Unlock()

	if w.chain != nil {
		return *w.chain, nil
	}

	if w.config.Logger == nil {
		lggr, err := logger.New()
		if err != nil {
			return evm.Chain{}, fmt.Errorf("failed to create default logger: %w", err)
		}
		w.config.Logger = lggr
	}

	if err := w.config.validate(); err != nil {
		return evm.Chain{}, fmt.Errorf("failed to validate wallet config: %w", err)
	}

	chainID, err := evm.ChainIDFromSelector(w.selector)
	if err != nil {
		return evm.Chain{}, err
	}

	candidates, err := generateAccounts(chainID, w.config.AccountGens)
	if err != nil {
		return evm.Chain{}, err
	}

	client, err := rpcclient.NewMultiClient(w.config.Logger, rpcclient.RPCConfig{
		ChainSelector: w.selector,
		RPCs:          w.config.RPCs,
	}, w.config.ClientOpts...)
	if err != nil {
		return evm.Chain{}, fmt.Errorf("failed to create multi-client: %w", err)
	}

	w.candidates = candidates
	w.chain = &evm.Chain{
		Selector: w.selector,
		ChainID:  chainID,
		Client:   client,
	}

	return *w.chain, nil
}

// RequestAccounts asks the configured Authorizer for access to the wallet's accounts.
func (w *RPCWallet) RequestAccounts(ctx context.Context) error {
	w.initMu.Lock()
	candidates := w.candidates
	initialized := w.chain != nil
	w.initMu.Unlock()

	if !initialized {
		return errors.New("wallet is not initialized")
	}

	if err := w.accounts.request(ctx, w.config.Authorizer, candidates); err != nil {
		return fmt.Errorf("account access request failed: %w", err)
	}
	w.config.Logger.Infow("Account access granted", "accounts", len(candidates))

	return nil
}

// Accounts returns the authorized accounts. It is empty until RequestAccounts succeeds.
func (w *RPCWallet) Accounts(context.Context) ([]*bind.TransactOpts, error) {
	return w.accounts.list(), nil
}

// Name returns the name of the RPCWallet.
func (*RPCWallet) Name() string {
	return "EVM RPC Wallet"
}

// ChainSelector returns the chain selector of the chain the wallet is connected to.
func (w *RPCWallet) ChainSelector() uint64 {
	return w.selector
}
