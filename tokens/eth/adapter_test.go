package eth

import (
	"context"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anyswap/CrossChain-HTLC/params"
	"github.com/anyswap/CrossChain-HTLC/tokens"
	"github.com/anyswap/CrossChain-HTLC/types"
)

var (
	testFactory   = common.HexToAddress("0x1111111111111111111111111111111111111111")
	testEscrow    = common.HexToAddress("0x2222222222222222222222222222222222222222")
	testRecipient = common.HexToAddress("0x3333333333333333333333333333333333333333")
	testOrderHash = common.HexToHash("0xabcdef")
)

type fakeBackend struct {
	height  uint64
	logs    []ethtypes.Log
	queries []ethereum.FilterQuery
	code    []byte
}

func (b *fakeBackend) BlockNumber(ctx context.Context) (uint64, error) { return b.height, nil }

func (b *fakeBackend) FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]ethtypes.Log, error) {
	b.queries = append(b.queries, q)
	return b.logs, nil
}

func (b *fakeBackend) SendTransaction(ctx context.Context, tx *ethtypes.Transaction) error {
	return nil
}

func (b *fakeBackend) CodeAt(ctx context.Context, account common.Address, blockNumber *big.Int) ([]byte, error) {
	return b.code, nil
}

func (b *fakeBackend) BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error) {
	return big.NewInt(5000), nil
}

func newTestAdapter(backend Backend) *Adapter {
	return NewAdapterWithBackend(&params.ChainConfig{
		Name:          "ethereum",
		Family:        "evm",
		EscrowFactory: testFactory.Hex(),
	}, backend)
}

func packLog(t *testing.T, name string, height uint64, args ...interface{}) ethtypes.Log {
	event := EscrowFactoryABI.Events[name]
	data, err := event.Inputs.NonIndexed().Pack(args...)
	require.NoError(t, err)
	return ethtypes.Log{
		Address:     testFactory,
		Topics:      []common.Hash{event.ID, testOrderHash, common.BytesToHash(testEscrow.Bytes())},
		Data:        data,
		BlockNumber: height,
		TxHash:      common.HexToHash("0xfeed"),
		Index:       3,
	}
}

func TestGetEventsInRange(t *testing.T) {
	var secret [32]byte
	secret[31] = 9
	backend := &fakeBackend{
		logs: []ethtypes.Log{
			packLog(t, EventEscrowCreated, 10, [32]byte{1}, big.NewInt(1000)),
			packLog(t, EventEscrowWithdrawal, 11, secret, testRecipient, big.NewInt(1000)),
			packLog(t, EventEscrowCancelled, 12),
		},
	}
	adapter := newTestAdapter(backend)

	evs, err := adapter.GetEventsInRange(context.Background(), 10, 20)
	require.NoError(t, err)
	require.Len(t, evs, 4)

	require.Len(t, backend.queries, 1)
	assert.Equal(t, uint64(10), backend.queries[0].FromBlock.Uint64())
	assert.Equal(t, uint64(20), backend.queries[0].ToBlock.Uint64())
	assert.Equal(t, []common.Address{testFactory}, backend.queries[0].Addresses)

	assert.Equal(t, types.EscrowCreated, evs[0].Kind)
	assert.Equal(t, testOrderHash.Hex(), evs[0].OrderID)
	assert.Equal(t, testEscrow.Hex(), evs[0].Escrow)
	assert.Equal(t, "1000", evs[0].Amount)

	assert.Equal(t, types.EscrowSecretRevealed, evs[1].Kind)
	assert.Equal(t, common.Hash(secret).Hex(), evs[1].Secret)
	assert.Equal(t, types.EscrowWithdrawn, evs[2].Kind)
	assert.Equal(t, testRecipient.Hex(), evs[2].Recipient)
	assert.Equal(t, uint64(11), evs[2].Height)
	assert.NotEqual(t, evs[1].Key(), evs[2].Key())

	assert.Equal(t, types.EscrowCancelled, evs[3].Kind)
}

func TestParseLogRejectsUnknown(t *testing.T) {
	adapter := newTestAdapter(&fakeBackend{})
	l := packLog(t, EventEscrowCancelled, 1)
	l.Topics[0] = common.HexToHash("0x01")
	_, err := adapter.ParseLog(&l)
	assert.ErrorIs(t, err, tokens.ErrUnknownEscrowLog)

	l = packLog(t, EventEscrowCancelled, 1)
	l.Removed = true
	_, err = adapter.ParseLog(&l)
	assert.Error(t, err)
}

func TestQueryEscrow(t *testing.T) {
	backend := &fakeBackend{}
	adapter := newTestAdapter(backend)

	state, err := adapter.QueryEscrow(context.Background(), testEscrow.Hex())
	require.NoError(t, err)
	assert.False(t, state.Deployed)

	backend.code = []byte{0x60, 0x80}
	backend.logs = []ethtypes.Log{packLog(t, EventEscrowCancelled, 5)}
	state, err = adapter.QueryEscrow(context.Background(), testEscrow.Hex())
	require.NoError(t, err)
	assert.True(t, state.Deployed)
	assert.True(t, state.Cancelled)
	assert.False(t, state.Withdrawn)
	assert.Equal(t, "5000", state.Balance)
}

func TestSubmitRejectsMalformedTx(t *testing.T) {
	adapter := newTestAdapter(&fakeBackend{})
	_, err := adapter.Submit(context.Background(), &tokens.EscrowTx{Raw: []byte{0x01, 0x02}})
	assert.ErrorIs(t, err, tokens.ErrWrongRawTx)
}
