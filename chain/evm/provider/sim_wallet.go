package provider

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient/simulated"
	"github.com/ethereum/go-ethereum/params"
	"github.com/stretchr/testify/require"

	"github.com/ballotkit/voting-dapp/chain"
	"github.com/ballotkit/voting-dapp/chain/evm"
)

var (
	// simChainID is the chain ID of every simulated chain.
	simChainID = params.AllDevChainProtocolChanges.ChainID
	// prefundAmountWei is the balance each simulated account starts with: 1,000,000 Ether.
	prefundAmountWei = new(big.Int).Mul(big.NewInt(1_000_000), big.NewInt(params.Ether))
)

// SimWalletConfig holds the configuration to initialize the SimWallet.
type SimWalletConfig struct {
	// Optional: NumAccounts is the number of prefunded accounts the wallet holds. Defaults to 1.
	NumAccounts uint
	// Optional: BlockTime configures the time between blocks being committed. By default blocks
	// are not mined automatically and you must call Commit on the SimClient.
	BlockTime time.Duration
	// Optional: Authorizer answers account access requests. Defaults to AutoAuthorize.
	Authorizer Authorizer
}

var _ chain.Wallet = (*SimWallet)(nil)

// SimWallet is a wallet backed by go-ethereum's in memory simulated backend. It is intended for
// tests.
type SimWallet struct {
	t        *testing.T
	selector uint64
	config   SimWalletConfig

	initMu     sync.Mutex
	chain      *evm.Chain
	client     *SimClient
	candidates []*bind.TransactOpts

	accounts accountSet
}

// NewSimWallet creates a new SimWallet with the given selector and configuration.
func NewSimWallet(t *testing.T, selector uint64, config SimWalletConfig) *SimWallet {
	t.Helper()

	if config.NumAccounts == 0 {
		config.NumAccounts = 1
	}
	if config.Authorizer == nil {
		config.Authorizer = AutoAuthorize()
	}

	return &SimWallet{
		t:        t,
		selector: selector,
		config:   config,
	}
}

// Initialize starts the simulated chain with the wallet's accounts prefunded in the genesis block.
func (w *SimWallet) Initialize(context.Context) (evm.Chain, error) {
	w.initMu.Lock()
	defer w.initMu.Unlock()

	if w.chain != nil {
		return *w.chain, nil
	}

	genesis := types.GenesisAlloc{}
	candidates := make([]*bind.TransactOpts, 0, w.config.NumAccounts)
	for range w.config.NumAccounts {
		key, err := crypto.GenerateKey()
		require.NoError(w.t, err)

		transactor, err := bind.NewKeyedTransactorWithChainID(key, simChainID)
		require.NoError(w.t, err)

		candidates = append(candidates, transactor)
		genesis[transactor.From] = types.Account{Balance: prefundAmountWei}
	}

	backend := simulated.NewBackend(genesis, simulated.WithBlockGasLimit(50_000_000))
	backend.Commit()
	w.t.Cleanup(func() { _ = backend.Close() })

	if w.config.BlockTime > 0 {
		startAutoMine(w.t, backend, w.config.BlockTime)
	}

	w.client = NewSimClient(w.t, backend)
	w.candidates = candidates
	w.chain = &evm.Chain{
		Selector: w.selector,
		ChainID:  new(big.Int).Set(simChainID),
		Client:   w.client,
	}

	return *w.chain, nil
}

// RequestAccounts asks the configured Authorizer for access to the wallet's accounts.
func (w *SimWallet) RequestAccounts(ctx context.Context) error {
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

	return nil
}

// Accounts returns the authorized accounts. It is empty until RequestAccounts succeeds.
func (w *SimWallet) Accounts(context.Context) ([]*bind.TransactOpts, error) {
	return w.accounts.list(), nil
}

// Client returns the simulated client. It is nil until Initialize is called.
func (w *SimWallet) Client() *SimClient {
	w.initMu.Lock()
	defer w.initMu.Unlock()

	return w.client
}

// Name returns the name of the SimWallet.
func (*SimWallet) Name() string {
	return "Simulated EVM Wallet"
}

// ChainSelector returns the chain selector of the simulated chain.
func (w *SimWallet) ChainSelector() uint64 {
	return w.selector
}

// startAutoMine commits a new block every blockTime until the test ends.
func startAutoMine(t *testing.T, backend *simulated.Backend, blockTime time.Duration) {
	t.Helper()

	ctx := t.Context()
	ticker := time.NewTicker(blockTime)
	go func() {
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				backend.Commit()
			case <-ctx.Done():
				return
			}
		}
	}()
}
