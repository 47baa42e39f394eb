package validator

import (
	"strings"

	ethcommon "github.com/ethereum/go-ethereum/common"

	"github.com/anyswap/CrossChain-HTLC/types"
)

const (
	policyIDLength     = 56
	maxAssetNameLength = 64

	bech32Charset      = "qpzry9x8gf2tvdw0s3jn54khce6mua7l"
	minBech32DataChars = 50
	maxBech32Length    = 130
)

var utxoAddressPrefixes = []string{"addr1", "addr_test1"}

// IsValidAddress is address well formed for chain family
func IsValidAddress(family types.ChainFamily, address string) bool {
	switch family {
	case types.FamilyEVM:
		return ethcommon.IsHexAddress(address)
	case types.FamilyUTXO:
		return isUtxoAddress(address)
	default:
		return false
	}
}

// shelley style bech32 address, the checksum is verified by the ledger
func isUtxoAddress(address string) bool {
	if len(address) > maxBech32Length || strings.ToLower(address) != address {
		return false
	}
	for _, prefix := range utxoAddressPrefixes {
		if !strings.HasPrefix(address, prefix) {
			continue
		}
		data := address[len(prefix):]
		if len(data) < minBech32DataChars {
			return false
		}
		for _, c := range data {
			if !strings.ContainsRune(bech32Charset, c) {
				return false
			}
		}
		return true
	}
	return false
}

func isHexOfLen(str string, length int) bool {
	if len(str) != length {
		return false
	}
	for _, c := range str {
		switch {
		case c >= '0' && c <= '9', c >= 'a' && c <= 'f', c >= 'A' && c <= 'F':
		default:
			return false
		}
	}
	return true
}
