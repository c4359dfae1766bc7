package voting

import (
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// Address is the deployment of the voting contract the client talks to.
var Address = common.HexToAddress("0x38cB7800C3Fddb8dda074C1c650A155154924C73")

// Method names of the voting contract interface.
const (
	MethodCreateProposal = "createProposal"
	MethodVote           = "vote"
	MethodGetProposal    = "getProposal"
	MethodHasVoted       = "hasVoted"
	MethodProposals      = "proposals"
)

// ABIJSON is the interface description of the voting contract.
const ABIJSON = `[
	{
		"inputs": [{"internalType": "string", "name": "_description", "type": "string"}],
		"name": "createProposal",
		"outputs": [],
		"stateMutability": "nonpayable",
		"type": "function"
	},
	{
		"inputs": [{"internalType": "uint256", "name": "proposalIndex", "type": "uint256"}],
		"name": "vote",
		"outputs": [],
		"stateMutability": "nonpayable",
		"type": "function"
	},
	{
		"inputs": [{"internalType": "uint256", "name": "proposalIndex", "type": "uint256"}],
		"name": "getProposal",
		"outputs": [
			{"internalType": "string", "name": "description", "type": "string"},
			{"internalType": "uint256", "name": "voteCount", "type": "uint256"}
		],
		"stateMutability": "view",
		"type": "function"
	},
	{
		"inputs": [{"internalType": "address", "name": "", "type": "address"}],
		"name": "hasVoted",
		"outputs": [{"internalType": "bool", "name": "", "type": "bool"}],
		"stateMutability": "view",
		"type": "function"
	},
	{
		"inputs": [{"internalType": "uint256", "name": "", "type": "uint256"}],
		"name": "proposals",
		"outputs": [
			{"internalType": "string", "name": "description", "type": "string"},
			{"internalType": "uint256", "name": "voteCount", "type": "uint256"}
		],
		"stateMutability": "view",
		"type": "function"
	}
]`

var parsedABI = mustParseABI(ABIJSON)

func mustParseABI(abiJSON string) *abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(abiJSON))
	if err != nil {
		panic("failed to parse ABI: " + err.Error())
	}

	return &parsed
}

// ABI returns the parsed interface description of the voting contract.
func ABI() abi.ABI {
	return *parsedABI
}
