// Package votingtest provides an in-memory voting contract and wallet for tests.
package votingtest

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	chainsel "github.com/smartcontractkit/chain-selectors"

	"github.com/ballotkit/voting-dapp/chain/evm"
	"github.com/ballotkit/voting-dapp/contract/voting"
)

// ErrExecutionReverted is returned by calls and gas estimations the contract rejects.
var ErrExecutionReverted = errors.New("execution reverted")

// ChainSelector is the chain selector the fakes report. Its chain ID is used for signing.
var ChainSelector = chainsel.ETHEREUM_TESTNET_SEPOLIA.Selector

const (
	fakeGasLimit = 100_000
	blockTime    = 12
)

var _ evm.OnchainClient = (*Backend)(nil)

// Backend is a fake EVM node hosting only the voting contract at voting.Address. It decodes
// calldata against the contract ABI and applies the contract rules: proposals are appended,
// every account votes at most once and indices must be in range.
//
// Sent transactions are executed immediately and their receipts recorded; nothing is mined.
type Backend struct {
	chainID *big.Int
	abi     abi.ABI

	mu        sync.Mutex
	proposals []voting.Proposal
	voted     map[common.Address]bool
	nonces    map[common.Address]uint64
	receipts  map[common.Hash]*types.Receipt
	sent      []*types.Transaction
	calls     []ethereum.CallMsg
	block     uint64
}

// NewBackend returns an empty voting contract on the chain of ChainSelector.
func NewBackend() *Backend {
	chainID, err := evm.ChainIDFromSelector(ChainSelector)
	if err != nil {
		panic(err)
	}

	return &Backend{
		chainID:  chainID,
		abi:      voting.ABI(),
		voted:    make(map[common.Address]bool),
		nonces:   make(map[common.Address]uint64),
		receipts: make(map[common.Hash]*types.Receipt),
		block:    1,
	}
}

// ChainID returns the chain ID transactions must be signed for.
func (b *Backend) ChainID() *big.Int {
	return new(big.Int).Set(b.chainID)
}

// AddProposal stores a proposal directly, as if it had been created and voted on earlier.
func (b *Backend) AddProposal(description string, voteCount int64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.proposals = append(b.proposals, voting.Proposal{
		Description: description,
		VoteCount:   big.NewInt(voteCount),
	})
}

// Proposals returns a snapshot of the stored proposals.
func (b *Backend) Proposals() []voting.Proposal {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]voting.Proposal, len(b.proposals))
	for i, p := range b.proposals {
		out[i] = voting.Proposal{Description: p.Description, VoteCount: new(big.Int).Set(p.VoteCount)}
	}

	return out
}

// Voted reports whether account has voted.
func (b *Backend) Voted(account common.Address) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.voted[account]
}

// SentTransactions returns the transactions received so far, in order.
func (b *Backend) SentTransactions() []*types.Transaction {
	b.mu.Lock()
	defer b.mu.Unlock()

	return append([]*types.Transaction(nil), b.sent...)
}

// Calls returns the read-only calls received so far, in order.
func (b *Backend) Calls() []ethereum.CallMsg {
	b.mu.Lock()
	defer b.mu.Unlock()

	return append([]ethereum.CallMsg(nil), b.calls...)
}

// Sender recovers the sender of tx.
func (b *Backend) Sender(tx *types.Transaction) (common.Address, error) {
	return types.Sender(types.LatestSignerForChainID(b.chainID), tx)
}

// CodeAt implements bind.ContractCaller. Only voting.Address has code.
func (b *Backend) CodeAt(_ context.Context, contract common.Address, _ *big.Int) ([]byte, error) {
	if contract != voting.Address {
		return nil, nil
	}

	return []byte{0x60, 0x80, 0x60, 0x40}, nil
}

// PendingCodeAt implements bind.ContractTransactor.
func (b *Backend) PendingCodeAt(ctx context.Context, account common.Address) ([]byte, error) {
	return b.CodeAt(ctx, account, nil)
}

// CallContract implements bind.ContractCaller.
func (b *Backend) CallContract(_ context.Context, call ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.calls = append(b.calls, call)
	if call.To == nil || *call.To != voting.Address {
		return nil, nil
	}

	method, args, err := b.decode(call.Data)
	if err != nil {
		return nil, err
	}

	switch method.Name {
	case voting.MethodGetProposal, voting.MethodProposals:
		p, err := b.proposalAt(args[0].(*big.Int))
		if err != nil {
			return nil, err
		}

		return method.Outputs.Pack(p.Description, p.VoteCount)
	case voting.MethodHasVoted:
		return method.Outputs.Pack(b.voted[args[0].(common.Address)])
	default:
		// A state-changing member called read-only returns nothing, as on a real node.
		if err := b.execute(call.From, method, args, false); err != nil {
			return nil, err
		}

		return nil, nil
	}
}

// EstimateGas implements bind.ContractTransactor. It simulates the call and fails when the
// contract would revert.
func (b *Backend) EstimateGas(_ context.Context, call ethereum.CallMsg) (uint64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if call.To == nil || *call.To != voting.Address {
		return 21_000, nil
	}

	method, args, err := b.decode(call.Data)
	if err != nil {
		return 0, err
	}
	if err := b.execute(call.From, method, args, false); err != nil {
		return 0, err
	}

	return fakeGasLimit, nil
}

// SendTransaction implements bind.ContractTransactor. The transaction is executed at once and a
// receipt with the execution status is recorded.
func (b *Backend) SendTransaction(_ context.Context, tx *types.Transaction) error {
	from, err := b.Sender(tx)
	if err != nil {
		return fmt.Errorf("invalid sender: %w", err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if want := b.nonces[from]; tx.Nonce() != want {
		return fmt.Errorf("nonce mismatch for %s: got %d, want %d", from.Hex(), tx.Nonce(), want)
	}
	b.nonces[from]++
	b.sent = append(b.sent, tx)
	b.block++

	status := types.ReceiptStatusSuccessful
	if tx.To() != nil && *tx.To() == voting.Address {
		method, args, err := b.decode(tx.Data())
		if err != nil || b.execute(from, method, args, true) != nil {
			status = types.ReceiptStatusFailed
		}
	}

	b.receipts[tx.Hash()] = &types.Receipt{
		Type:        tx.Type(),
		Status:      status,
		TxHash:      tx.Hash(),
		GasUsed:     fakeGasLimit,
		BlockNumber: new(big.Int).SetUint64(b.block),
	}

	return nil
}

// TransactionReceipt implements bind.DeployBackend.
func (b *Backend) TransactionReceipt(_ context.Context, txHash common.Hash) (*types.Receipt, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	r, ok := b.receipts[txHash]
	if !ok {
		return nil, ethereum.NotFound
	}

	return r, nil
}

// HeaderByNumber implements bind.ContractTransactor. The latest header always carries a base fee,
// so dynamic fee transactions are built.
func (b *Backend) HeaderByNumber(context.Context, *big.Int) (*types.Header, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	return &types.Header{
		Number:  new(big.Int).SetUint64(b.block),
		Time:    b.block * blockTime,
		BaseFee: big.NewInt(1_000_000_000),
	}, nil
}

// PendingNonceAt implements bind.ContractTransactor.
func (b *Backend) PendingNonceAt(_ context.Context, account common.Address) (uint64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.nonces[account], nil
}

// NonceAt implements evm.OnchainClient.
func (b *Backend) NonceAt(ctx context.Context, account common.Address, _ *big.Int) (uint64, error) {
	return b.PendingNonceAt(ctx, account)
}

// BalanceAt implements evm.OnchainClient. Every account is rich.
func (b *Backend) BalanceAt(context.Context, common.Address, *big.Int) (*big.Int, error) {
	return new(big.Int).Lsh(big.NewInt(1), 100), nil
}

// SuggestGasPrice implements bind.ContractTransactor.
func (b *Backend) SuggestGasPrice(context.Context) (*big.Int, error) {
	return big.NewInt(2_000_000_000), nil
}

// SuggestGasTipCap implements bind.ContractTransactor.
func (b *Backend) SuggestGasTipCap(context.Context) (*big.Int, error) {
	return big.NewInt(1_000_000_000), nil
}

// FilterLogs implements bind.ContractFilterer. The contract emits no events.
func (b *Backend) FilterLogs(context.Context, ethereum.FilterQuery) ([]types.Log, error) {
	return nil, nil
}

// SubscribeFilterLogs implements bind.ContractFilterer.
func (b *Backend) SubscribeFilterLogs(context.Context, ethereum.FilterQuery, chan<- types.Log) (ethereum.Subscription, error) {
	return nil, errors.New("log subscriptions are not supported")
}

func (b *Backend) decode(data []byte) (*abi.Method, []interface{}, error) {
	if len(data) < 4 {
		return nil, nil, fmt.Errorf("%w: missing selector", ErrExecutionReverted)
	}

	method, err := b.abi.MethodById(data[:4])
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrExecutionReverted, err)
	}

	args, err := method.Inputs.Unpack(data[4:])
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrExecutionReverted, err)
	}

	return method, args, nil
}

// execute applies a state-changing member. When commit is false the rules are checked without
// changing state. Callers hold b.mu.
func (b *Backend) execute(from common.Address, method *abi.Method, args []interface{}, commit bool) error {
	switch method.Name {
	case voting.MethodCreateProposal:
		if commit {
			b.proposals = append(b.proposals, voting.Proposal{
				Description: args[0].(string),
				VoteCount:   new(big.Int),
			})
		}
	case voting.MethodVote:
		p, err := b.proposalAt(args[0].(*big.Int))
		if err != nil {
			return err
		}
		if b.voted[from] {
			return fmt.Errorf("%w: already voted", ErrExecutionReverted)
		}
		if commit {
			p.VoteCount.Add(p.VoteCount, big.NewInt(1))
			b.voted[from] = true
		}
	}

	return nil
}

// proposalAt returns the stored proposal at index. Callers hold b.mu.
func (b *Backend) proposalAt(index *big.Int) (*voting.Proposal, error) {
	if !index.IsUint64() || index.Uint64() >= uint64(len(b.proposals)) {
		return nil, fmt.Errorf("%w: invalid proposal index", ErrExecutionReverted)
	}

	return &b.proposals[index.Uint64()], nil
}
