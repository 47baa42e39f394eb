package common

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"strings"

	"golang.org/x/crypto/sha3"
)

// HashLength length of a hashlock digest and of a secret
const HashLength = 32

// hash algorithms for hashlock digests
const (
	HashKeccak256 = "keccak256"
	HashSha256    = "sha256"
)

// hash errors
var (
	ErrWrongHashLength  = errors.New("wrong hash length")
	ErrUnknownAlgorithm = errors.New("unknown hash algorithm")
)

// Keccak256 calculate keccak256 digest
func Keccak256(data ...[]byte) []byte {
	d := sha3.NewLegacyKeccak256()
	for _, b := range data {
		_, _ = d.Write(b)
	}
	return d.Sum(nil)
}

// Sha256 calculate sha256 digest
func Sha256(data []byte) []byte {
	sum := sha256.Sum256(data)
	return sum[:]
}

// HashSecret calculate the hashlock digest of secret with the given algorithm
func HashSecret(algorithm string, secret []byte) ([]byte, error) {
	switch strings.ToLower(algorithm) {
	case "", HashKeccak256:
		return Keccak256(secret), nil
	case HashSha256:
		return Sha256(secret), nil
	default:
		return nil, ErrUnknownAlgorithm
	}
}

// IsValidHashAlgorithm is hash algorithm supported
func IsValidHashAlgorithm(algorithm string) bool {
	switch strings.ToLower(algorithm) {
	case "", HashKeccak256, HashSha256:
		return true
	default:
		return false
	}
}

// ParseHex32 decode a 0x prefixed (optional) hex string of exactly 32 bytes
func ParseHex32(str string) ([]byte, error) {
	bs, err := hex.DecodeString(strings.TrimPrefix(strings.TrimPrefix(str, "0x"), "0X"))
	if err != nil {
		return nil, err
	}
	if len(bs) != HashLength {
		return nil, ErrWrongHashLength
	}
	return bs, nil
}

// ToHex encode bytes to 0x prefixed lower case hex
func ToHex(bs []byte) string {
	return "0x" + hex.EncodeToString(bs)
}

// EqualDigest constant time comparison
func EqualDigest(a, b []byte) bool {
	return len(a) == len(b) && subtle.ConstantTimeCompare(a, b) == 1
}
