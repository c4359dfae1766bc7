package chain

import (
	"context"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"

	"github.com/ballotkit/voting-dapp/chain/evm"
)

// Provider connects to an EVM chain. A provider on its own can only serve read-only calls.
type Provider interface {
	// Initialize connects the provider and returns the chain it is connected to. Calling it again
	// returns the already connected chain.
	Initialize(ctx context.Context) (evm.Chain, error)
	Name() string
	ChainSelector() uint64
}

// Wallet is a Provider that also holds accounts able to sign state-changing calls.
type Wallet interface {
	Provider

	// RequestAccounts asks the wallet's owner to authorize its accounts for use by the client.
	// It may block until the owner answers, and fails if the owner declines.
	RequestAccounts(ctx context.Context) error
	// Accounts returns the currently authorized accounts in order. The list is empty until
	// RequestAccounts succeeds.
	Accounts(ctx context.Context) ([]*bind.TransactOpts, error)
}
