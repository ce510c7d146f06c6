package chain

import (
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// Contract method names
const (
	MethodGetUserNonce     = "getUserNonce"
	MethodMinFlipsRequired = "minFlipsRequired"
	MethodClaimReward      = "claimReward"
	MethodIsValidSignature = "isValidSignature"
	MethodIsValidSig       = "isValidSig"
)

// ERC1271MagicValue is returned by isValidSignature on success
var ERC1271MagicValue = [4]byte{0x16, 0x26, 0xba, 0x7e}

var (
	// FaucetABI covers the subset of the faucet contract this service calls
	FaucetABI = []byte(`[
		{
			"inputs": [{"name": "user", "type": "address"}],
			"name": "getUserNonce",
			"outputs": [{"name": "", "type": "uint256"}],
			"stateMutability": "view",
			"type": "function"
		},
		{
			"inputs": [],
			"name": "minFlipsRequired",
			"outputs": [{"name": "", "type": "uint256"}],
			"stateMutability": "view",
			"type": "function"
		},
		{
			"inputs": [
				{
					"components": [
						{"name": "userAddress", "type": "address"},
						{"name": "flipCount", "type": "uint256"},
						{"name": "minFlipsRequired", "type": "uint256"},
						{"name": "timestamp", "type": "uint256"},
						{"name": "nonce", "type": "uint256"}
					],
					"name": "claimData",
					"type": "tuple"
				},
				{"name": "signature", "type": "bytes"}
			],
			"name": "claimReward",
			"outputs": [],
			"stateMutability": "nonpayable",
			"type": "function"
		}
	]`)

	// ERC1271ABI is the contract-wallet signature validation interface
	ERC1271ABI = []byte(`[
		{
			"inputs": [
				{"name": "hash", "type": "bytes32"},
				{"name": "signature", "type": "bytes"}
			],
			"name": "isValidSignature",
			"outputs": [{"name": "magicValue", "type": "bytes4"}],
			"stateMutability": "view",
			"type": "function"
		}
	]`)
)

var (
	// SigValidatorABI is the ERC-6492 universal signature validator
	SigValidatorABI = []byte(`[
		{
			"inputs": [
				{"name": "_signer", "type": "address"},
				{"name": "_hash", "type": "bytes32"},
				{"name": "_signature", "type": "bytes"}
			],
			"name": "isValidSig",
			"outputs": [{"name": "", "type": "bool"}],
			"stateMutability": "nonpayable",
			"type": "function"
		}
	]`)
)

var (
	faucetABI       = mustParseABI(FaucetABI)
	erc1271ABI      = mustParseABI(ERC1271ABI)
	sigValidatorABI = mustParseABI(SigValidatorABI)
)

func mustParseABI(raw []byte) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(string(raw)))
	if err != nil {
		panic("chain: invalid embedded ABI: " + err.Error())
	}
	return parsed
}
