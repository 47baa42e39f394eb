// Package eth implements the chain adapter of evm chains.
package eth

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/pkg/errors"

	"github.com/anyswap/CrossChain-HTLC/log"
	"github.com/anyswap/CrossChain-HTLC/params"
	"github.com/anyswap/CrossChain-HTLC/tokens"
	"github.com/anyswap/CrossChain-HTLC/types"
)

var _ tokens.ChainAdapter = (*Adapter)(nil)

// Backend the subset of ethclient used by the adapter
type Backend interface {
	BlockNumber(ctx context.Context) (uint64, error)
	FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]ethtypes.Log, error)
	SendTransaction(ctx context.Context, tx *ethtypes.Transaction) error
	CodeAt(ctx context.Context, account common.Address, blockNumber *big.Int) ([]byte, error)
	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
}

// Adapter evm chain adapter
type Adapter struct {
	config  *params.ChainConfig
	backend Backend
	factory common.Address
}

// NewAdapter dial rpc and new adapter
func NewAdapter(config *params.ChainConfig) (*Adapter, error) {
	client, err := ethclient.Dial(config.RPCAddress)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to dial %v", config.Name)
	}
	log.Info("[eth] chain adapter connected", "chain", config.Name, "factory", config.EscrowFactory)
	return NewAdapterWithBackend(config, client), nil
}

// NewAdapterWithBackend new adapter on backend
func NewAdapterWithBackend(config *params.ChainConfig, backend Backend) *Adapter {
	return &Adapter{
		config:  config,
		backend: backend,
		factory: common.HexToAddress(config.EscrowFactory),
	}
}

// ChainName chain name
func (a *Adapter) ChainName() string {
	return a.config.Name
}

// Family evm
func (a *Adapter) Family() types.ChainFamily {
	return types.FamilyEVM
}

// GetCurrentHeight latest block number
func (a *Adapter) GetCurrentHeight(ctx context.Context) (uint64, error) {
	height, err := a.backend.BlockNumber(ctx)
	if err != nil {
		return 0, errors.Wrap(err, "failed to get current block number")
	}
	return height, nil
}

func eventTopics() []common.Hash {
	return []common.Hash{
		EscrowFactoryABI.Events[EventEscrowCreated].ID,
		EscrowFactoryABI.Events[EventEscrowWithdrawal].ID,
		EscrowFactoryABI.Events[EventEscrowCancelled].ID,
	}
}

// GetEventsInRange escrow factory events in blocks [from, to]
func (a *Adapter) GetEventsInRange(ctx context.Context, from, to uint64) ([]*types.EscrowEvent, error) {
	query := ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(from),
		ToBlock:   new(big.Int).SetUint64(to),
		Addresses: []common.Address{a.factory},
		Topics:    [][]common.Hash{eventTopics()},
	}
	logs, err := a.backend.FilterLogs(ctx, query)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get escrow logs")
	}
	var result []*types.EscrowEvent
	for i := range logs {
		evs, err := a.ParseLog(&logs[i])
		if err != nil {
			log.Warn("[eth] skip escrow log", "chain", a.config.Name, "txHash", logs[i].TxHash.Hex(), "logIndex", logs[i].Index, "err", err)
			continue
		}
		result = append(result, evs...)
	}
	return result, nil
}

// ParseLog decode an escrow factory log. A withdrawal reveals the secret and
// yields both a secret_revealed and a withdrawn event.
func (a *Adapter) ParseLog(l *ethtypes.Log) ([]*types.EscrowEvent, error) {
	if l.Removed {
		return nil, errors.Wrap(tokens.ErrUnknownEscrowLog, "log removed")
	}
	if len(l.Topics) != 3 {
		return nil, tokens.ErrUnknownEscrowLog
	}
	event, err := EscrowFactoryABI.EventByID(l.Topics[0])
	if err != nil {
		return nil, tokens.ErrUnknownEscrowLog
	}
	values, err := event.Inputs.NonIndexed().Unpack(l.Data)
	if err != nil {
		return nil, errors.Wrap(tokens.ErrWrongEscrowData, err.Error())
	}
	base := types.EscrowEvent{
		OrderID:  l.Topics[1].Hex(),
		Chain:    a.config.Name,
		TxHash:   l.TxHash.Hex(),
		LogIndex: l.Index,
		Height:   l.BlockNumber,
		Escrow:   common.BytesToAddress(l.Topics[2].Bytes()).Hex(),
	}
	switch event.Name {
	case EventEscrowCreated:
		ev := base
		ev.Kind = types.EscrowCreated
		ev.Amount = values[1].(*big.Int).String()
		return []*types.EscrowEvent{&ev}, nil
	case EventEscrowWithdrawal:
		secret := values[0].([32]byte)
		revealed := base
		revealed.Kind = types.EscrowSecretRevealed
		revealed.Secret = common.Hash(secret).Hex()
		withdrawn := base
		withdrawn.Kind = types.EscrowWithdrawn
		withdrawn.Secret = revealed.Secret
		withdrawn.Recipient = values[1].(common.Address).Hex()
		withdrawn.Amount = values[2].(*big.Int).String()
		return []*types.EscrowEvent{&revealed, &withdrawn}, nil
	case EventEscrowCancelled:
		ev := base
		ev.Kind = types.EscrowCancelled
		return []*types.EscrowEvent{&ev}, nil
	default:
		return nil, tokens.ErrUnknownEscrowLog
	}
}

// Submit send a signed transaction
func (a *Adapter) Submit(ctx context.Context, tx *tokens.EscrowTx) (string, error) {
	signedTx := new(ethtypes.Transaction)
	if err := signedTx.UnmarshalBinary(tx.Raw); err != nil {
		return "", errors.Wrap(tokens.ErrWrongRawTx, err.Error())
	}
	if err := a.backend.SendTransaction(ctx, signedTx); err != nil {
		return "", errors.Wrap(err, "failed to send transaction")
	}
	txHash := signedTx.Hash().Hex()
	log.Info("[eth] escrow tx sent", "chain", a.config.Name, "action", tx.Action, "orderID", tx.OrderID, "txHash", txHash)
	return txHash, nil
}

// QueryEscrow escrow state from its code, balance and settlement logs
func (a *Adapter) QueryEscrow(ctx context.Context, address string) (*tokens.EscrowState, error) {
	escrow := common.HexToAddress(address)
	code, err := a.backend.CodeAt(ctx, escrow, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get escrow code")
	}
	state := &tokens.EscrowState{Address: escrow.Hex(), Deployed: len(code) > 0}
	if !state.Deployed {
		return state, nil
	}
	balance, err := a.backend.BalanceAt(ctx, escrow, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get escrow balance")
	}
	state.Balance = balance.String()

	query := ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(a.config.StartHeight),
		Addresses: []common.Address{a.factory},
		Topics: [][]common.Hash{
			{EscrowFactoryABI.Events[EventEscrowWithdrawal].ID, EscrowFactoryABI.Events[EventEscrowCancelled].ID},
			nil,
			{common.BytesToHash(escrow.Bytes())},
		},
	}
	logs, err := a.backend.FilterLogs(ctx, query)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get escrow settlement logs")
	}
	for i := range logs {
		if len(logs[i].Topics) == 0 {
			continue
		}
		switch logs[i].Topics[0] {
		case EscrowFactoryABI.Events[EventEscrowWithdrawal].ID:
			state.Withdrawn = true
		case EscrowFactoryABI.Events[EventEscrowCancelled].ID:
			state.Cancelled = true
		}
	}
	return state, nil
}
