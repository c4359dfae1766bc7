package evm_test

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	chain_selectors "github.com/smartcontractkit/chain-selectors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ballotkit/voting-dapp/chain/evm"
)

func TestChain_ChainInfo(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		selector   uint64
		wantName   string
		wantString string
		wantFamily string
	}{
		{
			name:       "returns correct info",
			selector:   chain_selectors.ETHEREUM_MAINNET.Selector,
			wantString: "ethereum-mainnet (5009297550715157269)",
			wantName:   chain_selectors.ETHEREUM_MAINNET.Name,
			wantFamily: chain_selectors.FamilyEVM,
		},
		{
			name:       "unknown selector falls back to the selector",
			selector:   1,
			wantString: "1 (1)",
			wantName:   "1",
			wantFamily: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			c := evm.Chain{
				Selector: tt.selector,
			}
			assert.Equal(t, tt.selector, c.ChainSelector())
			assert.Equal(t, tt.wantString, c.String())
			assert.Equal(t, tt.wantName, c.Name())
			assert.Equal(t, tt.wantFamily, c.Family())
		})
	}
}

func TestChainName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		give uint64
		want string
	}{
		{name: "known selector", give: chain_selectors.ETHEREUM_TESTNET_SEPOLIA.Selector, want: "ethereum-testnet-sepolia"},
		{name: "test chain", give: chain_selectors.GETH_TESTNET.Selector, want: chain_selectors.GETH_TESTNET.Name},
		{name: "unknown selector", give: 42, want: "42"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.want, evm.ChainName(tt.give))
			assert.Equal(t, tt.want, evm.Chain{Selector: tt.give}.Name())
		})
	}
}

func TestChainIDFromSelector(t *testing.T) {
	t.Parallel()

	got, err := evm.ChainIDFromSelector(chain_selectors.ETHEREUM_TESTNET_SEPOLIA.Selector)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(11155111), got)

	_, err = evm.ChainIDFromSelector(1)
	require.ErrorContains(t, err, "failed to get chain ID from selector 1")
}

func TestParseAddress(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		give    string
		want    common.Address
		wantErr string
	}{
		{
			name: "checksummed with prefix",
			give: "0x38cB7800C3Fddb8dda074C1c650A155154924C73",
			want: common.HexToAddress("0x38cB7800C3Fddb8dda074C1c650A155154924C73"),
		},
		{
			name: "lower case without prefix",
			give: "38cb7800c3fddb8dda074c1c650a155154924c73",
			want: common.HexToAddress("0x38cB7800C3Fddb8dda074C1c650A155154924C73"),
		},
		{
			name:    "too short",
			give:    "0x1234",
			wantErr: "invalid EVM address format",
		},
		{
			name:    "not hex",
			give:    "0xZZcB7800C3Fddb8dda074C1c650A155154924C73",
			wantErr: "invalid EVM address format",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := evm.ParseAddress(tt.give)
			if tt.wantErr != "" {
				require.ErrorContains(t, err, tt.wantErr)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
