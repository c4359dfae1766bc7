package dapp

import (
	"context"
	"errors"

	"github.com/ethereum/go-ethereum/core/types"

	"github.com/ballotkit/voting-dapp/client"
	"github.com/ballotkit/voting-dapp/pkg/logger"
)

// Page is a loaded voting page. A page loaded without any provider renders but cannot call the
// contract.
type Page struct {
	lggr   logger.Logger
	client *client.Client
}

// Load initializes the voting client for env. A missing provider is not an error: the page is
// returned without a client and its handlers return ErrNotCallable.
func Load(ctx context.Context, lggr logger.Logger, env client.Environment) (*Page, error) {
	c, err := client.Initialize(ctx, lggr, env)
	if err != nil && !errors.Is(err, client.ErrNoProvider) {
		return nil, err
	}

	return &Page{lggr: lggr, client: c}, nil
}

// Callable reports whether the page has a voting client.
func (p *Page) Callable() bool {
	return p.client != nil
}

// Client returns the page's voting client, or nil when the page is not callable.
func (p *Page) Client() *client.Client {
	return p.client
}

// CreateProposal runs CreateProposal with the page's client.
func (p *Page) CreateProposal(ctx context.Context, s Surface) (*types.Transaction, error) {
	return CreateProposal(ctx, p.client, s)
}

// Vote runs Vote with the page's client.
func (p *Page) Vote(ctx context.Context, s Surface) (*types.Transaction, error) {
	return Vote(ctx, p.client, s)
}

// GetProposal runs GetProposal with the page's client.
func (p *Page) GetProposal(ctx context.Context, s Surface) error {
	return GetProposal(ctx, p.client, s)
}
