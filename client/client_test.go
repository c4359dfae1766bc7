package client

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/ballotkit/voting-dapp/contract/voting"
	"github.com/ballotkit/voting-dapp/contract/voting/votingtest"
	"github.com/ballotkit/voting-dapp/pkg/logger"
)

func TestInitialize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name         string
		giveEnv      func(t *testing.T, b *votingtest.Backend) Environment
		wantErr      error
		wantReadOnly bool
		wantLog      string
		wantLogLevel zapcore.Level
	}{
		{
			name: "wallet granted",
			giveEnv: func(t *testing.T, b *votingtest.Backend) Environment {
				return Environment{Wallet: votingtest.NewWallet(t, b)}
			},
			wantLog:      "Voting client ready",
			wantLogLevel: zapcore.InfoLevel,
		},
		{
			name: "wallet denied still initializes",
			giveEnv: func(t *testing.T, b *votingtest.Backend) Environment {
				return Environment{Wallet: votingtest.NewWallet(t, b, votingtest.WithDeniedAccess())}
			},
			wantLog:      "User denied account access",
			wantLogLevel: zapcore.ErrorLevel,
		},
		{
			name: "wallet preferred over legacy",
			giveEnv: func(t *testing.T, b *votingtest.Backend) Environment {
				return Environment{Wallet: votingtest.NewWallet(t, b), Legacy: votingtest.NewProvider(b)}
			},
			wantLog:      "Voting client ready",
			wantLogLevel: zapcore.InfoLevel,
		},
		{
			name: "legacy only is read-only",
			giveEnv: func(_ *testing.T, b *votingtest.Backend) Environment {
				return Environment{Legacy: votingtest.NewProvider(b)}
			},
			wantReadOnly: true,
			wantLog:      "Voting client ready",
			wantLogLevel: zapcore.InfoLevel,
		},
		{
			name: "no provider",
			giveEnv: func(*testing.T, *votingtest.Backend) Environment {
				return Environment{}
			},
			wantErr:      ErrNoProvider,
			wantLog:      "Non-Ethereum environment detected",
			wantLogLevel: zapcore.InfoLevel,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			lggr, logs := logger.TestObserved(t, zapcore.DebugLevel)

			c, err := Initialize(t.Context(), lggr, tt.giveEnv(t, votingtest.NewBackend()))
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, c)
			} else {
				require.NoError(t, err)
				require.NotNil(t, c)
				assert.Equal(t, tt.wantReadOnly, c.ReadOnly())
				assert.Equal(t, votingtest.ChainSelector, c.Chain().Selector)
			}

			entries := logs.FilterMessageSnippet(tt.wantLog).All()
			require.NotEmpty(t, entries, "expected log %q", tt.wantLog)
			assert.Equal(t, tt.wantLogLevel, entries[0].Level)
		})
	}
}

func TestInitialize_walletInitFails(t *testing.T) {
	t.Parallel()

	backend := votingtest.NewBackend()
	w := votingtest.NewWallet(t, backend, votingtest.WithInitError(assert.AnError))

	_, err := Initialize(t.Context(), logger.Test(t), Environment{Wallet: w})
	require.ErrorIs(t, err, assert.AnError)
	assert.Zero(t, w.Requests(), "accounts are not requested from a wallet that failed to connect")
}

func TestInitialize_walletInitFailsWithLegacy(t *testing.T) {
	t.Parallel()

	backend := votingtest.NewBackend()
	w := votingtest.NewWallet(t, backend, votingtest.WithInitError(assert.AnError))

	c, err := Initialize(t.Context(), logger.Test(t), Environment{Wallet: w, Legacy: votingtest.NewProvider(backend)})
	require.ErrorIs(t, err, assert.AnError, "a failed wallet does not fall back to the legacy provider")
	assert.Nil(t, c)
	assert.Zero(t, w.Requests())
}

func newTestClient(t *testing.T, opts ...votingtest.WalletOption) (*Client, *votingtest.Backend, *votingtest.Wallet) {
	t.Helper()

	backend := votingtest.NewBackend()
	wallet := votingtest.NewWallet(t, backend, opts...)

	c, err := Initialize(t.Context(), logger.Test(t), Environment{Wallet: wallet})
	require.NoError(t, err)

	return c, backend, wallet
}

func TestClient_SubmitProposal(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name            string
		giveDescription string
	}{
		{name: "plain text", giveDescription: "Build a park"},
		{name: "empty string is forwarded", giveDescription: ""},
		{name: "unicode and markup", giveDescription: "<b>Öffentliche Bibliothek</b> 📚"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			c, backend, wallet := newTestClient(t, votingtest.WithAccounts(2))

			tx, err := c.SubmitProposal(t.Context(), tt.giveDescription)
			require.NoError(t, err)

			from, err := backend.Sender(tx)
			require.NoError(t, err)
			assert.Equal(t, wallet.Keys()[0].From, from, "the first account is the sender")
			assert.Equal(t, voting.Address, *tx.To())

			proposals := backend.Proposals()
			require.Len(t, proposals, 1)
			assert.Equal(t, tt.giveDescription, proposals[0].Description)
		})
	}
}

func TestClient_SubmitVote(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		giveIndex string
		wantErrIs error
		wantVotes int64
	}{
		{name: "valid index", giveIndex: "0", wantVotes: 1},
		{name: "hex index", giveIndex: "0x0", wantVotes: 1},
		{name: "index the contract rejects", giveIndex: "7", wantErrIs: votingtest.ErrExecutionReverted},
		{name: "text that is not an index", giveIndex: "first", wantErrIs: voting.ErrInvalidIndex},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			c, backend, wallet := newTestClient(t)
			backend.AddProposal("Build a park", 0)

			tx, err := c.SubmitVote(t.Context(), tt.giveIndex)
			if tt.wantErrIs != nil {
				require.ErrorIs(t, err, tt.wantErrIs)
				assert.Empty(t, backend.SentTransactions())

				return
			}

			require.NoError(t, err)
			require.NotNil(t, tx)
			assert.True(t, backend.Voted(wallet.Keys()[0].From))
			assert.Equal(t, tt.wantVotes, backend.Proposals()[0].VoteCount.Int64())
		})
	}
}

func TestClient_submitWithoutAccounts(t *testing.T) {
	t.Parallel()

	t.Run("access denied", func(t *testing.T) {
		t.Parallel()

		c, backend, _ := newTestClient(t, votingtest.WithDeniedAccess())

		_, err := c.SubmitProposal(t.Context(), "Build a park")
		require.ErrorIs(t, err, ErrNoAccounts)
		_, err = c.SubmitVote(t.Context(), "0")
		require.ErrorIs(t, err, ErrNoAccounts)
		assert.Empty(t, backend.SentTransactions())
	})

	t.Run("legacy provider", func(t *testing.T) {
		t.Parallel()

		backend := votingtest.NewBackend()
		c, err := Initialize(t.Context(), logger.Test(t), Environment{Legacy: votingtest.NewProvider(backend)})
		require.NoError(t, err)

		_, err = c.SubmitProposal(t.Context(), "Build a park")
		require.ErrorIs(t, err, ErrNoAccounts)
	})
}

func TestClient_FetchProposal(t *testing.T) {
	t.Parallel()

	c, backend, _ := newTestClient(t)
	backend.AddProposal("Build a park", 3)

	got, err := c.FetchProposal(t.Context(), "0")
	require.NoError(t, err)
	assert.Equal(t, "Description: Build a park, Vote Count: 3", FormatProposal(got))
	assert.Empty(t, backend.SentTransactions(), "fetching is a read-only call")
	assert.Len(t, backend.Calls(), 1)

	_, err = c.FetchProposal(t.Context(), "1")
	require.ErrorIs(t, err, votingtest.ErrExecutionReverted)

	_, err = c.FetchProposal(t.Context(), "")
	require.ErrorIs(t, err, voting.ErrInvalidIndex)
}

func TestClient_FetchProposal_legacyProvider(t *testing.T) {
	t.Parallel()

	backend := votingtest.NewBackend()
	backend.AddProposal("Plant trees", 12)

	c, err := Initialize(t.Context(), logger.Test(t), Environment{Legacy: votingtest.NewProvider(backend)})
	require.NoError(t, err)

	got, err := c.FetchProposal(t.Context(), "0")
	require.NoError(t, err)
	assert.Equal(t, "Description: Plant trees, Vote Count: 12", FormatProposal(got))
}

func TestClient_Proposal(t *testing.T) {
	t.Parallel()

	c, backend, _ := newTestClient(t)
	backend.AddProposal("Build a park", 3)

	got, err := c.Proposal(t.Context(), "0")
	require.NoError(t, err)
	assert.Equal(t, "Build a park", got.Description)

	_, err = c.Proposal(t.Context(), "x")
	require.ErrorIs(t, err, voting.ErrInvalidIndex)
}

func TestClient_HasVoted(t *testing.T) {
	t.Parallel()

	c, backend, wallet := newTestClient(t)
	backend.AddProposal("Build a park", 0)
	account := wallet.Keys()[0].From

	voted, err := c.HasVoted(t.Context(), account)
	require.NoError(t, err)
	assert.False(t, voted)

	_, err = c.SubmitVote(t.Context(), "0")
	require.NoError(t, err)

	voted, err = c.HasVoted(t.Context(), account)
	require.NoError(t, err)
	assert.True(t, voted)

	_, err = c.SubmitVote(t.Context(), "0")
	require.ErrorIs(t, err, votingtest.ErrExecutionReverted, "double votes are rejected by the contract, not locally")
}

func TestFormatProposal(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		give voting.Proposal
		want string
	}{
		{
			name: "proposal",
			give: voting.Proposal{Description: "Build a park", VoteCount: big.NewInt(3)},
			want: "Description: Build a park, Vote Count: 3",
		},
		{
			name: "empty description",
			give: voting.Proposal{VoteCount: big.NewInt(0)},
			want: "Description: , Vote Count: 0",
		},
		{
			name: "large count",
			give: voting.Proposal{Description: "x", VoteCount: new(big.Int).Lsh(big.NewInt(1), 100)},
			want: "Description: x, Vote Count: 1267650600228229401496703205376",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.want, FormatProposal(tt.give))
		})
	}
}
