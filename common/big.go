package common

import (
	"errors"
	"math/big"
	"strings"
)

// ErrMalformedNumber malformed numeric literal
var ErrMalformedNumber = errors.New("malformed numeric literal")

// GetBigIntFromStr parse decimal or 0x-prefixed hex integer string
func GetBigIntFromStr(str string) (*big.Int, error) {
	str = strings.TrimSpace(str)
	if str == "" {
		return nil, ErrMalformedNumber
	}
	base := 10
	if strings.HasPrefix(str, "0x") || strings.HasPrefix(str, "0X") {
		str = str[2:]
		base = 16
	}
	bi, ok := new(big.Int).SetString(str, base)
	if !ok {
		return nil, ErrMalformedNumber
	}
	return bi, nil
}

// IsPositive returns true when bi > 0
func IsPositive(bi *big.Int) bool {
	return bi != nil && bi.Sign() > 0
}
