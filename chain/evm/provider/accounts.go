package provider

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
)

// accountSet holds the accounts of a wallet that its owner has authorized. It is shared by the
// wallet implementations in this package.
type accountSet struct {
	mu         sync.RWMutex
	authorized []*bind.TransactOpts
}

// request asks authorizer for access to candidates and, when granted, replaces the authorized
// accounts with them. A declined request clears any previous authorization.
func (s *accountSet) request(
	ctx context.Context, authorizer Authorizer, candidates []*bind.TransactOpts,
) error {
	addrs := make([]common.Address, 0, len(candidates))
	for _, c := range candidates {
		addrs = append(addrs, c.From)
	}

	if err := authorizer.Authorize(ctx, addrs); err != nil {
		s.mu.Lock()
		s.authorized = nil
		s.mu.Unlock()

		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.authorized = candidates

	return nil
}

// list returns a copy of the authorized accounts.
func (s *accountSet) list() []*bind.TransactOpts {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*bind.TransactOpts, len(s.authorized))
	copy(out, s.authorized)

	return out
}

// generateAccounts runs every generator for chainID in order.
func generateAccounts(chainID *big.Int, gens []SignerGenerator) ([]*bind.TransactOpts, error) {
	accounts := make([]*bind.TransactOpts, 0, len(gens))
	for i, g := range gens {
		opts, err := g.Generate(chainID)
		if err != nil {
			return nil, fmt.Errorf("failed to generate account %d: %w", i, err)
		}

		accounts = append(accounts, opts)
	}

	return accounts, nil
}
