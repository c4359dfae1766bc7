package evm

import (
	"fmt"
	"math/big"
	"strconv"

	chainsel "github.com/smartcontractkit/chain-selectors"
)

// Chain represents the EVM chain a wallet or read-only provider is connected to.
//
// A Chain holds no accounts. Accounts belong to the wallet and are queried each time a
// state-changing call needs a sender.
type Chain struct {
	Selector uint64
	// ChainID is the EIP-155 chain ID transactions are signed for.
	ChainID *big.Int

	Client OnchainClient
}

// ChainSelector returns the chain selector of the chain
func (c Chain) ChainSelector() uint64 {
	return c.Selector
}

// String returns chain name and selector "<name> (<selector>)"
func (c Chain) String() string {
	return fmt.Sprintf("%s (%d)", c.Name(), c.Selector)
}

// Name returns the name of the chain, falling back to the selector when the selector is not
// known to chain-selectors.
func (c Chain) Name() string {
	return ChainName(c.Selector)
}

// ChainName returns the chain-selectors name of selector, or the selector itself when it has none.
func ChainName(selector uint64) string {
	if ch, ok := chainsel.ChainBySelector(selector); ok && ch.Name != "" {
		return ch.Name
	}

	return strconv.FormatUint(selector, 10)
}

// Family returns the family of the chain
func (c Chain) Family() string {
	family, err := chainsel.GetSelectorFamily(c.Selector)
	if err != nil {
		return ""
	}

	return family
}

// ChainIDFromSelector resolves the EVM chain ID registered for selector.
func ChainIDFromSelector(selector uint64) (*big.Int, error) {
	chainIDStr, err := chainsel.GetChainIDFromSelector(selector)
	if err != nil {
		return nil, fmt.Errorf("failed to get chain ID from selector %d: %w", selector, err)
	}

	chainID, ok := new(big.Int).SetString(chainIDStr, 10)
	if !ok {
		return nil, fmt.Errorf("failed to convert chain ID %s to big.Int", chainIDStr)
	}

	return chainID, nil
}
