// Package voting binds the proposal voting contract.
//
// Each contract member has a typed request struct; the proxy packs it against the ABI literal and
// unpacks results into typed values. The proxy holds no mutable state and is safe for concurrent
// use.
package voting

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// Voting is a proxy for the voting contract at a fixed address.
type Voting struct {
	address  common.Address
	contract *bind.BoundContract
}

// New binds the voting contract at Address.
func New(backend bind.ContractBackend) *Voting {
	return NewAt(Address, backend)
}

// NewAt binds the voting contract interface at address.
func NewAt(address common.Address, backend bind.ContractBackend) *Voting {
	return &Voting{
		address:  address,
		contract: bind.NewBoundContract(address, *parsedABI, backend, backend, backend),
	}
}

// Address returns the address the proxy is bound to.
func (v *Voting) Address() common.Address {
	return v.address
}

// CreateProposal sends a createProposal transaction. The description is forwarded as is.
func (v *Voting) CreateProposal(opts *bind.TransactOpts, req CreateProposalRequest) (*types.Transaction, error) {
	tx, err := v.contract.Transact(opts, MethodCreateProposal, req.Description)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", MethodCreateProposal, err)
	}

	return tx, nil
}

// Vote sends a vote transaction for the proposal at req.ProposalIndex.
func (v *Voting) Vote(opts *bind.TransactOpts, req VoteRequest) (*types.Transaction, error) {
	if req.ProposalIndex == nil {
		return nil, fmt.Errorf("%s: %w: missing", MethodVote, ErrInvalidIndex)
	}

	tx, err := v.contract.Transact(opts, MethodVote, req.ProposalIndex)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", MethodVote, err)
	}

	return tx, nil
}

// GetProposal reads the proposal at req.ProposalIndex.
func (v *Voting) GetProposal(opts *bind.CallOpts, req GetProposalRequest) (Proposal, error) {
	if req.ProposalIndex == nil {
		return Proposal{}, fmt.Errorf("%s: %w: missing", MethodGetProposal, ErrInvalidIndex)
	}

	return v.callProposal(opts, MethodGetProposal, req.ProposalIndex)
}

// Proposals reads the public proposals array at req.Index.
func (v *Voting) Proposals(opts *bind.CallOpts, req ProposalsRequest) (Proposal, error) {
	if req.Index == nil {
		return Proposal{}, fmt.Errorf("%s: %w: missing", MethodProposals, ErrInvalidIndex)
	}

	return v.callProposal(opts, MethodProposals, req.Index)
}

// HasVoted reports whether req.Account has already voted.
func (v *Voting) HasVoted(opts *bind.CallOpts, req HasVotedRequest) (bool, error) {
	var out []interface{}
	if err := v.contract.Call(opts, &out, MethodHasVoted, req.Account); err != nil {
		return false, fmt.Errorf("%s: %w", MethodHasVoted, err)
	}

	if len(out) == 0 {
		return false, fmt.Errorf("%s: returned no data", MethodHasVoted)
	}

	voted, ok := out[0].(bool)
	if !ok {
		return false, fmt.Errorf("%s: expected bool, got %T", MethodHasVoted, out[0])
	}

	return voted, nil
}

func (v *Voting) callProposal(opts *bind.CallOpts, method string, index *big.Int) (Proposal, error) {
	var out []interface{}
	if err := v.contract.Call(opts, &out, method, index); err != nil {
		return Proposal{}, fmt.Errorf("%s: %w", method, err)
	}

	p, err := unpackProposal(out)
	if err != nil {
		return Proposal{}, fmt.Errorf("%s: %w", method, err)
	}

	return p, nil
}

func unpackProposal(out []interface{}) (Proposal, error) {
	if len(out) != 2 {
		return Proposal{}, errors.New("expected description and vote count")
	}

	description, ok := out[0].(string)
	if !ok {
		return Proposal{}, fmt.Errorf("description: expected string, got %T", out[0])
	}

	voteCount, ok := abi.ConvertType(out[1], new(big.Int)).(*big.Int)
	if !ok {
		return Proposal{}, fmt.Errorf("vote count: expected uint256, got %T", out[1])
	}

	return Proposal{Description: description, VoteCount: voteCount}, nil
}
