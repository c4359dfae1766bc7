package voting

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"
)

// ErrInvalidIndex is returned when a proposal index cannot be marshaled to a uint256.
var ErrInvalidIndex = errors.New("invalid proposal index")

// CreateProposalRequest holds the arguments of createProposal.
type CreateProposalRequest struct {
	Description string
}

// VoteRequest holds the arguments of vote.
type VoteRequest struct {
	ProposalIndex *big.Int
}

// GetProposalRequest holds the arguments of getProposal.
type GetProposalRequest struct {
	ProposalIndex *big.Int
}

// HasVotedRequest holds the arguments of hasVoted.
type HasVotedRequest struct {
	Account common.Address
}

// ProposalsRequest holds the arguments of the proposals getter.
type ProposalsRequest struct {
	Index *big.Int
}

// Proposal is a proposal as stored by the contract.
type Proposal struct {
	Description string
	VoteCount   *big.Int
}

// ParseIndex converts user supplied text into a uint256 proposal index. Decimal and 0x prefixed
// hexadecimal are accepted. Nothing beyond the uint256 range is checked; whether the index exists
// is up to the contract.
func ParseIndex(text string) (*big.Int, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil, fmt.Errorf("%w: empty", ErrInvalidIndex)
	}

	idx, ok := math.ParseBig256(trimmed)
	if !ok || idx.Sign() < 0 {
		return nil, fmt.Errorf("%w: %q", ErrInvalidIndex, text)
	}

	return idx, nil
}
