// Package validator checks swap parameters, secrets and quotes.
//
// Expected-invalid input is reported through Result, only malformed
// numeric literals are returned as errors.
package validator

import (
	"fmt"
	"regexp"
	"strings"

	ethcommon "github.com/ethereum/go-ethereum/common"

	"github.com/anyswap/CrossChain-HTLC/common"
	"github.com/anyswap/CrossChain-HTLC/params"
	"github.com/anyswap/CrossChain-HTLC/types"
)

// FieldError one validation failure
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e FieldError) String() string {
	return e.Field + ": " + e.Message
}

// Result validation result
type Result struct {
	Valid  bool         `json:"valid"`
	Errors []FieldError `json:"errors,omitempty"`
}

func newResult() *Result {
	return &Result{Valid: true}
}

func (r *Result) add(field, format string, args ...interface{}) {
	r.Valid = false
	r.Errors = append(r.Errors, FieldError{Field: field, Message: fmt.Sprintf(format, args...)})
}

func (r *Result) merge(other *Result) {
	if other == nil || other.Valid {
		return
	}
	r.Valid = false
	r.Errors = append(r.Errors, other.Errors...)
}

// Error implements error
func (r *Result) Error() string {
	msgs := make([]string, len(r.Errors))
	for i, e := range r.Errors {
		msgs[i] = e.String()
	}
	return "invalid swap params: " + strings.Join(msgs, "; ")
}

// MaxOrderIDLength max length of order id
const MaxOrderIDLength = 128

// order ids are used as storage keys and url path segments
var orderIDRegexp = regexp.MustCompile(`^[A-Za-z0-9_.:-]+$`)

// CheckOrderID check order id is non empty and url and key safe
func CheckOrderID(orderID string) error {
	switch {
	case orderID == "":
		return fmt.Errorf("is required")
	case len(orderID) > MaxOrderIDLength:
		return fmt.Errorf("exceeds %d characters", MaxOrderIDLength)
	case !orderIDRegexp.MatchString(orderID):
		return fmt.Errorf("contains characters outside [A-Za-z0-9_.:-]")
	}
	return nil
}

// Options validation settings
type Options struct {
	// ChainFamily returns the family of a supported chain
	ChainFamily        func(chain string) (types.ChainFamily, bool)
	UserDeadlineBuffer int64
	CancelAfterBuffer  int64
	MinDeadlineGap     int64
	Tolerance          float64
}

// OptionsFromConfig options of the loaded config
func OptionsFromConfig() *Options {
	swapCfg := params.GetSwapConfig()
	return &Options{
		ChainFamily: func(chain string) (types.ChainFamily, bool) {
			if !params.IsSupportedChain(chain) {
				return "", false
			}
			return types.ChainFamily(params.GetChainConfig(chain).Family), true
		},
		UserDeadlineBuffer: swapCfg.UserDeadlineBuffer,
		CancelAfterBuffer:  swapCfg.CancelAfterBuffer,
		MinDeadlineGap:     swapCfg.MinDeadlineGap,
		Tolerance:          swapCfg.ValidationTolerance,
	}
}

// ValidateSwapParams check swap params at now
func ValidateSwapParams(p *types.SwapParams, opts *Options, now int64) (*Result, error) {
	res := newResult()

	if err := CheckOrderID(p.OrderID); err != nil {
		res.add("orderId", "%v", err)
	}

	srcFamily, srcOk := checkChain(res, "srcChain", p.SrcChain, opts)
	dstFamily, dstOk := checkChain(res, "dstChain", p.DstChain, opts)
	if p.SrcChain != "" && p.SrcChain == p.DstChain {
		res.add("dstChain", "must differ from srcChain")
	}

	if srcOk {
		checkAddress(res, "maker", p.Maker, srcFamily, true)
		checkAsset(res, "srcAsset", &p.SrcAsset, srcFamily)
	}
	if dstOk {
		checkAddress(res, "taker", p.Taker, dstFamily, false)
		checkAsset(res, "dstAsset", &p.DstAsset, dstFamily)
	}

	amounts := []struct{ field, value string }{
		{"srcAmount", p.SrcAmount},
		{"dstAmount", p.DstAmount},
	}
	for _, amount := range amounts {
		value, err := common.GetBigIntFromStr(amount.value)
		if err != nil {
			return nil, fmt.Errorf("%v: %w", amount.field, err)
		}
		if !common.IsPositive(value) {
			res.add(amount.field, "must be positive")
		}
	}

	if _, err := common.ParseHex32(p.Hashlock); err != nil {
		res.add("hashlock", "must be a %d bytes hex digest", common.HashLength)
	}

	res.merge(ValidateDeadlines(p.UserDeadline, p.CancelAfter, opts, now))

	if p.ExpectedRate != "" {
		ratio, err := ValidateRatio(p.SrcAmount, p.DstAmount, p.ExpectedRate, opts.Tolerance)
		if err != nil {
			return nil, err
		}
		res.merge(ratio)
	}

	return res, nil
}

// ValidateDeadlines check deadline ordering, gap and buffers relative to now
func ValidateDeadlines(userDeadline, cancelAfter int64, opts *Options, now int64) *Result {
	res := newResult()
	if userDeadline-now < opts.UserDeadlineBuffer {
		res.add("userDeadline", "must be at least %d seconds from now", opts.UserDeadlineBuffer)
	}
	if cancelAfter-now < opts.CancelAfterBuffer {
		res.add("cancelAfter", "must be at least %d seconds from now", opts.CancelAfterBuffer)
	}
	if userDeadline >= cancelAfter {
		res.add("cancelAfter", "must be after userDeadline")
	} else if cancelAfter-userDeadline < opts.MinDeadlineGap {
		res.add("cancelAfter", "must be at least %d seconds after userDeadline", opts.MinDeadlineGap)
	}
	return res
}

// ValidateSecret recompute the digest of secret and compare with hashlock
func ValidateSecret(secret, hashlock, algorithm string) bool {
	secretBytes, err := common.ParseHex32(secret)
	if err != nil {
		return false
	}
	lock, err := common.ParseHex32(hashlock)
	if err != nil {
		return false
	}
	digest, err := common.HashSecret(algorithm, secretBytes)
	if err != nil {
		return false
	}
	return common.EqualDigest(digest, lock)
}

// CheckSecret ValidateSecret with ErrSecretMismatch
func CheckSecret(secret, hashlock, algorithm string) error {
	if !ValidateSecret(secret, hashlock, algorithm) {
		return types.ErrSecretMismatch
	}
	return nil
}

func checkChain(res *Result, field, chain string, opts *Options) (types.ChainFamily, bool) {
	if chain == "" {
		res.add(field, "is required")
		return "", false
	}
	family, ok := opts.ChainFamily(chain)
	if !ok {
		res.add(field, "chain %v is not supported", chain)
		return "", false
	}
	return family, true
}

func checkAddress(res *Result, field, address string, family types.ChainFamily, required bool) {
	if address == "" {
		if required {
			res.add(field, "is required")
		}
		return
	}
	if !IsValidAddress(family, address) {
		res.add(field, "malformed %v address", family)
	}
}

func checkAsset(res *Result, field string, asset *types.Asset, family types.ChainFamily) {
	switch family {
	case types.FamilyEVM:
		if asset.PolicyID != "" || asset.AssetName != "" {
			res.add(field, "evm asset must not have policy id or asset name")
		}
		if asset.Token != "" && !ethcommon.IsHexAddress(asset.Token) {
			res.add(field+".token", "malformed contract address")
		}
	case types.FamilyUTXO:
		if asset.Token != "" {
			res.add(field, "utxo asset must not have token address")
		}
		if asset.PolicyID == "" {
			if asset.AssetName != "" {
				res.add(field+".policyId", "is required with asset name")
			}
			return
		}
		if !isHexOfLen(asset.PolicyID, policyIDLength) {
			res.add(field+".policyId", "must be %d hex chars", policyIDLength)
		}
		if len(asset.AssetName) > maxAssetNameLength || !isHexOfLen(asset.AssetName, len(asset.AssetName)) {
			res.add(field+".assetName", "must be hex of at most %d chars", maxAssetNameLength)
		}
	}
}
