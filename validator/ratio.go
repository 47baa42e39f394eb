package validator

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/anyswap/CrossChain-HTLC/common"
)

// ParseDecimal parse a numeric literal, malformed input is ErrMalformedNumber
func ParseDecimal(str string) (decimal.Decimal, error) {
	if bi, err := common.GetBigIntFromStr(str); err == nil {
		return decimal.NewFromBigInt(bi, 0), nil
	}
	d, err := decimal.NewFromString(str)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %v", common.ErrMalformedNumber, str)
	}
	return d, nil
}

// RealizedRate dstAmount / srcAmount
func RealizedRate(srcAmount, dstAmount string) (decimal.Decimal, error) {
	src, err := ParseDecimal(srcAmount)
	if err != nil {
		return decimal.Zero, err
	}
	dst, err := ParseDecimal(dstAmount)
	if err != nil {
		return decimal.Zero, err
	}
	if !src.IsPositive() {
		return decimal.Zero, nil
	}
	return dst.DivRound(src, 18), nil
}

// ValidateRatio reject quotes whose realized rate deviates from expectedRate
// by more than tolerance (fraction of expectedRate)
func ValidateRatio(srcAmount, dstAmount, expectedRate string, tolerance float64) (*Result, error) {
	res := newResult()
	src, err := ParseDecimal(srcAmount)
	if err != nil {
		return nil, err
	}
	dst, err := ParseDecimal(dstAmount)
	if err != nil {
		return nil, err
	}
	expected, err := ParseDecimal(expectedRate)
	if err != nil {
		return nil, err
	}
	if !src.IsPositive() || !dst.IsPositive() {
		res.add("amount", "amounts must be positive")
		return res, nil
	}
	if !expected.IsPositive() {
		res.add("expectedRate", "must be positive")
		return res, nil
	}
	realized := dst.DivRound(src, 18)
	deviation := realized.Sub(expected).Abs().DivRound(expected, 18)
	if deviation.GreaterThan(decimal.NewFromFloat(tolerance)) {
		res.add("expectedRate", "realized rate %v deviates %v from expected %v, tolerance %v",
			realized.String(), deviation.StringFixed(6), expected.String(), tolerance)
	}
	return res, nil
}
