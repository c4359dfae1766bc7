package votingtest

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"

	"github.com/ballotkit/voting-dapp/chain"
	"github.com/ballotkit/voting-dapp/chain/evm"
)

// ErrDenied is returned by RequestAccounts of a wallet created with WithDeniedAccess.
var ErrDenied = errors.New("user denied account access")

var (
	_ chain.Wallet   = (*Wallet)(nil)
	_ chain.Provider = (*Provider)(nil)
)

// WalletOption configures a Wallet.
type WalletOption func(*Wallet)

// WithAccounts sets the number of accounts the wallet holds. The default is one.
func WithAccounts(n int) WalletOption {
	return func(w *Wallet) { w.numAccounts = n }
}

// WithDeniedAccess makes every account access request fail with ErrDenied.
func WithDeniedAccess() WalletOption {
	return func(w *Wallet) { w.deny = true }
}

// WithInitError makes Initialize fail with err.
func WithInitError(err error) WalletOption {
	return func(w *Wallet) { w.initErr = err }
}

// Wallet is a chain.Wallet connected to a Backend with locally generated accounts.
type Wallet struct {
	backend     *Backend
	numAccounts int
	deny        bool
	initErr     error

	keys []*bind.TransactOpts

	mu         sync.Mutex
	authorized []*bind.TransactOpts
	requests   int
}

// NewWallet returns a wallet whose transactions go to backend.
func NewWallet(tb testing.TB, backend *Backend, opts ...WalletOption) *Wallet {
	tb.Helper()

	w := &Wallet{backend: backend, numAccounts: 1}
	for _, opt := range opts {
		opt(w)
	}

	for range w.numAccounts {
		key, err := crypto.GenerateKey()
		require.NoError(tb, err)

		transactor, err := bind.NewKeyedTransactorWithChainID(key, backend.ChainID())
		require.NoError(tb, err)

		w.keys = append(w.keys, transactor)
	}

	return w
}

// Initialize returns the chain backed by the fake backend.
func (w *Wallet) Initialize(context.Context) (evm.Chain, error) {
	if w.initErr != nil {
		return evm.Chain{}, w.initErr
	}

	return evm.Chain{Selector: ChainSelector, ChainID: w.backend.ChainID(), Client: w.backend}, nil
}

// RequestAccounts grants access to every account unless the wallet denies access.
func (w *Wallet) RequestAccounts(context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.requests++
	if w.deny {
		return ErrDenied
	}
	w.authorized = w.keys

	return nil
}

// Accounts returns the authorized accounts.
func (w *Wallet) Accounts(context.Context) ([]*bind.TransactOpts, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	return append([]*bind.TransactOpts(nil), w.authorized...), nil
}

// Keys returns every account of the wallet, authorized or not.
func (w *Wallet) Keys() []*bind.TransactOpts {
	return w.keys
}

// Requests returns how many times RequestAccounts was called.
func (w *Wallet) Requests() int {
	w.mu.Lock()
	defer w.mu.Unlock()

	return w.requests
}

// Name returns the name of the wallet.
func (*Wallet) Name() string { return "Fake Voting Wallet" }

// ChainSelector returns ChainSelector.
func (*Wallet) ChainSelector() uint64 { return ChainSelector }

// Provider is a read-only chain.Provider connected to a Backend.
type Provider struct {
	backend *Backend
}

// NewProvider returns a read-only provider for backend.
func NewProvider(backend *Backend) *Provider {
	return &Provider{backend: backend}
}

// Initialize returns the chain backed by the fake backend.
func (p *Provider) Initialize(context.Context) (evm.Chain, error) {
	return evm.Chain{Selector: ChainSelector, ChainID: p.backend.ChainID(), Client: p.backend}, nil
}

// Name returns the name of the provider.
func (*Provider) Name() string { return "Fake Voting Provider" }

// ChainSelector returns ChainSelector.
func (*Provider) ChainSelector() uint64 { return ChainSelector }
