// Package client is the wallet-bound voting contract client.
//
// A Client is built once by Initialize from whatever wallet capability the environment offers
// and is read-only afterwards. Submissions are fire-and-forget: the pending transaction is
// returned as soon as the node accepts it and is never waited on.
package client

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/ballotkit/voting-dapp/chain"
	"github.com/ballotkit/voting-dapp/chain/evm"
	"github.com/ballotkit/voting-dapp/contract/voting"
	"github.com/ballotkit/voting-dapp/pkg/logger"
)

var (
	// ErrNoProvider is returned by Initialize when neither a wallet nor a legacy provider is
	// available.
	ErrNoProvider = errors.New("no wallet provider available")
	// ErrNoAccounts is returned by submissions when the wallet has no authorized account.
	ErrNoAccounts = errors.New("no authorized account")
)

// Environment is the wallet capability available to the client. Either field may be nil.
type Environment struct {
	// Wallet is the preferred provider. It can sign state-changing calls once its owner grants
	// account access.
	Wallet chain.Wallet
	// Legacy is used only when Wallet is nil. It exposes no accounts of its own.
	Legacy chain.Provider
}

// Client invokes the voting contract through a wallet or legacy provider.
type Client struct {
	lggr     logger.Logger
	chain    evm.Chain
	wallet   chain.Wallet
	contract *voting.Voting
}

// Initialize connects to the environment's provider and binds the voting contract.
//
// With a wallet, account access is requested; if the request fails the failure is logged and the
// client is returned anyway, with submissions failing for lack of an account. With only a legacy
// provider the client can read but not submit. With neither, ErrNoProvider is returned.
func Initialize(ctx context.Context, lggr logger.Logger, env Environment) (*Client, error) {
	lggr = lggr.Named("client")

	var (
		p      chain.Provider
		wallet chain.Wallet
	)
	switch {
	case env.Wallet != nil:
		p, wallet = env.Wallet, env.Wallet
	case env.Legacy != nil:
		p = env.Legacy
	default:
		lggr.Info("Non-Ethereum environment detected. Configure a wallet to use the voting client.")

		return nil, ErrNoProvider
	}

	c, err := p.Initialize(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize %s: %w", p.Name(), err)
	}

	if wallet != nil {
		if err := wallet.RequestAccounts(ctx); err != nil {
			lggr.Errorw("User denied account access", "provider", wallet.Name(), "err", err)
		}
	}

	lggr.Infow("Voting client ready",
		"provider", p.Name(), "chain", c.String(), "contract", voting.Address.Hex(), "readOnly", wallet == nil)

	return &Client{
		lggr:     lggr,
		chain:    c,
		wallet:   wallet,
		contract: voting.New(c.Client),
	}, nil
}

// Chain returns the chain the client is connected to.
func (c *Client) Chain() evm.Chain {
	return c.chain
}

// ReadOnly reports whether the client was built without a wallet.
func (c *Client) ReadOnly() bool {
	return c.wallet == nil
}

// SubmitProposal sends createProposal(description) from the first authorized account. The
// description is forwarded unchanged, including the empty string.
func (c *Client) SubmitProposal(ctx context.Context, description string) (*types.Transaction, error) {
	opts, err := c.sender(ctx)
	if err != nil {
		return nil, err
	}

	tx, err := c.contract.CreateProposal(opts, voting.CreateProposalRequest{Description: description})
	if err != nil {
		return nil, fmt.Errorf("failed to submit proposal: %w", err)
	}
	c.lggr.Debugw("Proposal submitted", "tx", tx.Hash().Hex(), "from", opts.From.Hex())

	return tx, nil
}

// SubmitVote sends vote(index) from the first authorized account. Whether the index exists or the
// account already voted is left to the contract.
func (c *Client) SubmitVote(ctx context.Context, indexText string) (*types.Transaction, error) {
	index, err := voting.ParseIndex(indexText)
	if err != nil {
		return nil, err
	}

	opts, err := c.sender(ctx)
	if err != nil {
		return nil, err
	}

	tx, err := c.contract.Vote(opts, voting.VoteRequest{ProposalIndex: index})
	if err != nil {
		return nil, fmt.Errorf("failed to submit vote: %w", err)
	}
	c.lggr.Debugw("Vote submitted", "tx", tx.Hash().Hex(), "from", opts.From.Hex(), "index", index.String())

	return tx, nil
}

// FetchProposal reads getProposal(index). It never sends a transaction.
func (c *Client) FetchProposal(ctx context.Context, indexText string) (voting.Proposal, error) {
	index, err := voting.ParseIndex(indexText)
	if err != nil {
		return voting.Proposal{}, err
	}

	p, err := c.contract.GetProposal(&bind.CallOpts{Context: ctx}, voting.GetProposalRequest{ProposalIndex: index})
	if err != nil {
		return voting.Proposal{}, fmt.Errorf("failed to fetch proposal %s: %w", index.String(), err)
	}

	return p, nil
}

// Proposal reads the public proposals array at index.
func (c *Client) Proposal(ctx context.Context, indexText string) (voting.Proposal, error) {
	index, err := voting.ParseIndex(indexText)
	if err != nil {
		return voting.Proposal{}, err
	}

	p, err := c.contract.Proposals(&bind.CallOpts{Context: ctx}, voting.ProposalsRequest{Index: index})
	if err != nil {
		return voting.Proposal{}, fmt.Errorf("failed to read proposals(%s): %w", index.String(), err)
	}

	return p, nil
}

// HasVoted reports whether account has voted.
func (c *Client) HasVoted(ctx context.Context, account common.Address) (bool, error) {
	voted, err := c.contract.HasVoted(&bind.CallOpts{Context: ctx}, voting.HasVotedRequest{Account: account})
	if err != nil {
		return false, fmt.Errorf("failed to read vote status of %s: %w", account.Hex(), err)
	}

	return voted, nil
}

// FormatProposal renders p the way the proposal details region shows it.
func FormatProposal(p voting.Proposal) string {
	count := "0"
	if p.VoteCount != nil {
		count = p.VoteCount.String()
	}

	return fmt.Sprintf("Description: %s, Vote Count: %s", p.Description, count)
}

// sender returns transact opts for the first authorized account. The account list is queried on
// every call since the wallet's owner may change it.
func (c *Client) sender(ctx context.Context) (*bind.TransactOpts, error) {
	if c.wallet == nil {
		return nil, ErrNoAccounts
	}

	accounts, err := c.wallet.Accounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get accounts: %w", err)
	}
	if len(accounts) == 0 {
		return nil, ErrNoAccounts
	}

	opts := *accounts[0]
	opts.Context = ctx

	return &opts, nil
}
