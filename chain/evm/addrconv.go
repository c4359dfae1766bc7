package evm

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// ParseAddress converts an EVM address string to a common.Address.
// EVM addresses are hex strings (with or without 0x prefix) representing 20 bytes. Unlike
// common.HexToAddress, malformed input is rejected instead of being silently truncated.
func ParseAddress(address string) (common.Address, error) {
	if !common.IsHexAddress(address) {
		return common.Address{}, fmt.Errorf("invalid EVM address format: %s", address)
	}

	return common.HexToAddress(address), nil
}
