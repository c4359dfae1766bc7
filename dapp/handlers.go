package dapp

import (
	"context"
	"errors"

	"github.com/ethereum/go-ethereum/core/types"

	"github.com/ballotkit/voting-dapp/client"
)

// ErrNotCallable is returned by the page handlers when the page loaded without a provider.
var ErrNotCallable = errors.New("voting client is not available")

// CreateProposal submits the text of the proposalDescription input as a new proposal.
func CreateProposal(ctx context.Context, c *client.Client, s Surface) (*types.Transaction, error) {
	if c == nil {
		return nil, ErrNotCallable
	}

	return c.SubmitProposal(ctx, s.Value(FieldProposalDescription))
}

// Vote votes for the proposal whose index is in the proposalIndexVote input.
func Vote(ctx context.Context, c *client.Client, s Surface) (*types.Transaction, error) {
	if c == nil {
		return nil, ErrNotCallable
	}

	return c.SubmitVote(ctx, s.Value(FieldProposalIndexVote))
}

// GetProposal reads the proposal whose index is in the proposalIndexGet input and writes it to
// the proposalDetails region. The region is left untouched when the read fails.
func GetProposal(ctx context.Context, c *client.Client, s Surface) error {
	if c == nil {
		return ErrNotCallable
	}

	p, err := c.FetchProposal(ctx, s.Value(FieldProposalIndexGet))
	if err != nil {
		return err
	}
	s.SetText(FieldProposalDetails, client.FormatProposal(p))

	return nil
}
