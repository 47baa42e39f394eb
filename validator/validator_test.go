package validator

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anyswap/CrossChain-HTLC/common"
	"github.com/anyswap/CrossChain-HTLC/types"
)

const (
	testNow      = int64(1700000000)
	testEvmAddr  = "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed"
	testUtxoAddr = "addr_test1qz2fxv2umyhttkxyxp8x0dlpdt3k6cwng5pxj3jhsydzer3jcu5d8ps7zex2k2xt3uqxgjqnnj83ws8lhrn648jjxtwq2ytjqp"
	testPolicyID = "29d222ce763455e3d7a09a665ce554f00ac89d2e99a1a83d267170c6"
)

var testSecret = func() []byte {
	secret := make([]byte, common.HashLength)
	for i := range secret {
		secret[i] = byte(i + 1)
	}
	return secret
}()

func testOptions() *Options {
	chains := map[string]types.ChainFamily{
		"ethereum": types.FamilyEVM,
		"cardano":  types.FamilyUTXO,
	}
	return &Options{
		ChainFamily: func(chain string) (types.ChainFamily, bool) {
			family, ok := chains[chain]
			return family, ok
		},
		UserDeadlineBuffer: 300,
		CancelAfterBuffer:  600,
		MinDeadlineGap:     1800,
		Tolerance:          0.01,
	}
}

func testParams() *types.SwapParams {
	return &types.SwapParams{
		OrderID:      "order-1",
		Maker:        testEvmAddr,
		Taker:        testUtxoAddr,
		SrcChain:     "ethereum",
		DstChain:     "cardano",
		SrcAsset:     types.Asset{Token: "0xdAC17F958D2ee523a2206206994597C13D831ec7"},
		DstAsset:     types.Asset{PolicyID: testPolicyID, AssetName: "4d494e"},
		SrcAmount:    "1000000",
		DstAmount:    "2000000",
		Hashlock:     common.ToHex(common.Keccak256(testSecret)),
		UserDeadline: testNow + 7200,
		CancelAfter:  testNow + 10800,
	}
}

func fields(res *Result) []string {
	var result []string
	for _, e := range res.Errors {
		result = append(result, e.Field)
	}
	return result
}

func TestValidateSwapParams(t *testing.T) {
	res, err := ValidateSwapParams(testParams(), testOptions(), testNow)
	require.NoError(t, err)
	assert.True(t, res.Valid, res.Errors)
}

func TestValidateSwapParamsCollectsErrors(t *testing.T) {
	p := testParams()
	p.Maker = "0x1234"
	p.DstChain = "ethereum"
	p.SrcAmount = "0"
	p.Hashlock = "0xabcd"

	res, err := ValidateSwapParams(p, testOptions(), testNow)
	require.NoError(t, err)
	assert.False(t, res.Valid)
	assert.Contains(t, fields(res), "maker")
	assert.Contains(t, fields(res), "dstChain")
	assert.Contains(t, fields(res), "srcAmount")
	assert.Contains(t, fields(res), "hashlock")
}

func TestValidateSwapParamsUnsupportedChain(t *testing.T) {
	p := testParams()
	p.SrcChain = "bitcoin"
	res, err := ValidateSwapParams(p, testOptions(), testNow)
	require.NoError(t, err)
	assert.Equal(t, []string{"srcChain"}, fields(res))
}

func TestValidateSwapParamsOrderID(t *testing.T) {
	for _, orderID := range []string{"", "a/b", "../x", "order 1", "o?x=1", strings.Repeat("a", MaxOrderIDLength+1)} {
		p := testParams()
		p.OrderID = orderID
		res, err := ValidateSwapParams(p, testOptions(), testNow)
		require.NoError(t, err)
		assert.Equal(t, []string{"orderId"}, fields(res), "orderId %q", orderID)
	}
	for _, orderID := range []string{"order-1", "0xabcdef", "maker:42", "a_b.c", strings.Repeat("a", MaxOrderIDLength)} {
		assert.NoError(t, CheckOrderID(orderID), orderID)
	}
}

func TestValidateSwapParamsMalformedNumber(t *testing.T) {
	p := testParams()
	p.DstAmount = "12abc"
	_, err := ValidateSwapParams(p, testOptions(), testNow)
	assert.ErrorIs(t, err, common.ErrMalformedNumber)
}

func TestDeadlineGapBoundary(t *testing.T) {
	opts := testOptions()
	userDeadline := testNow + 3600

	res := ValidateDeadlines(userDeadline, userDeadline+opts.MinDeadlineGap, opts, testNow)
	assert.True(t, res.Valid, res.Errors)

	res = ValidateDeadlines(userDeadline, userDeadline+opts.MinDeadlineGap-1, opts, testNow)
	assert.False(t, res.Valid)
	assert.Equal(t, []string{"cancelAfter"}, fields(res))

	res = ValidateDeadlines(userDeadline, userDeadline, opts, testNow)
	assert.False(t, res.Valid)
}

func TestDeadlineBuffers(t *testing.T) {
	opts := testOptions()

	res := ValidateDeadlines(testNow+299, testNow+299+1800, opts, testNow)
	assert.Equal(t, []string{"userDeadline"}, fields(res))

	res = ValidateDeadlines(testNow+300, testNow+300+1800, opts, testNow)
	assert.True(t, res.Valid, res.Errors)
}

func TestValidateSecret(t *testing.T) {
	hashlock := common.ToHex(common.Keccak256(testSecret))
	assert.True(t, ValidateSecret(common.ToHex(testSecret), hashlock, common.HashKeccak256))
	assert.True(t, ValidateSecret(strings.TrimPrefix(common.ToHex(testSecret), "0x"), hashlock, ""))

	wrong := make([]byte, common.HashLength)
	assert.False(t, ValidateSecret(common.ToHex(wrong), hashlock, common.HashKeccak256))
	assert.False(t, ValidateSecret("0x01", hashlock, common.HashKeccak256))
	assert.False(t, ValidateSecret(common.ToHex(testSecret), hashlock, common.HashSha256))

	assert.ErrorIs(t, CheckSecret(common.ToHex(wrong), hashlock, ""), types.ErrSecretMismatch)
	assert.NoError(t, CheckSecret(common.ToHex(testSecret), hashlock, ""))
}

func TestValidateRatio(t *testing.T) {
	res, err := ValidateRatio("1000", "2010", "2", 0.01)
	require.NoError(t, err)
	assert.True(t, res.Valid, res.Errors)

	res, err = ValidateRatio("1000", "2030", "2", 0.01)
	require.NoError(t, err)
	assert.False(t, res.Valid)

	res, err = ValidateRatio("1.5", "3", "2.0", 0)
	require.NoError(t, err)
	assert.True(t, res.Valid, res.Errors)

	_, err = ValidateRatio("1000", "2000", "two", 0.01)
	assert.ErrorIs(t, err, common.ErrMalformedNumber)
}

func TestAddressFormats(t *testing.T) {
	assert.True(t, IsValidAddress(types.FamilyEVM, testEvmAddr))
	assert.False(t, IsValidAddress(types.FamilyEVM, testUtxoAddr))
	assert.True(t, IsValidAddress(types.FamilyUTXO, testUtxoAddr))
	assert.False(t, IsValidAddress(types.FamilyUTXO, "addr_test1short"))
	assert.False(t, IsValidAddress(types.FamilyUTXO, strings.ToUpper(testUtxoAddr)))
	assert.False(t, IsValidAddress(types.FamilyUTXO, "addr_test1"+strings.Repeat("b", 60)))
}

func TestUtxoAssetDescriptor(t *testing.T) {
	p := testParams()
	p.DstAsset = types.Asset{PolicyID: "abcd"}
	res, err := ValidateSwapParams(p, testOptions(), testNow)
	require.NoError(t, err)
	assert.Equal(t, []string{"dstAsset.policyId"}, fields(res))

	p.DstAsset = types.Asset{AssetName: "4d494e"}
	res, err = ValidateSwapParams(p, testOptions(), testNow)
	require.NoError(t, err)
	assert.Equal(t, []string{"dstAsset.policyId"}, fields(res))
}
