// Package cardano implements the chain adapter of utxo chains served by a
// blockfrost compatible rest api. Escrow actions carry their details in
// transaction metadata under the configured label.
package cardano

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"

	"github.com/anyswap/CrossChain-HTLC/log"
	"github.com/anyswap/CrossChain-HTLC/params"
	"github.com/anyswap/CrossChain-HTLC/tokens"
	"github.com/anyswap/CrossChain-HTLC/types"
)

const (
	rpcTimeout  = 30 * time.Second
	pageSize    = 100
	maxPages    = 50
	lovelaceKey = "lovelace"
)

var _ tokens.ChainAdapter = (*Adapter)(nil)

// escrow metadata actions
const (
	metaActionCreated   = "created"
	metaActionWithdrawn = "withdrawn"
	metaActionCancelled = "cancelled"
)

// EscrowMetadata metadata attached to escrow transactions
type EscrowMetadata struct {
	OrderID   string `json:"orderId"`
	Action    string `json:"action"`
	Escrow    string `json:"escrow,omitempty"`
	Secret    string `json:"secret,omitempty"`
	Recipient string `json:"recipient,omitempty"`
	Amount    string `json:"amount,omitempty"`
}

type addressTx struct {
	TxHash      string `json:"tx_hash"`
	TxIndex     uint   `json:"tx_index"`
	BlockHeight uint64 `json:"block_height"`
	BlockTime   int64  `json:"block_time"`
}

type txMetadata struct {
	Label        string          `json:"label"`
	JSONMetadata json.RawMessage `json:"json_metadata"`
}

type latestBlock struct {
	Height uint64 `json:"height"`
}

type utxoAmount struct {
	Unit     string `json:"unit"`
	Quantity string `json:"quantity"`
}

type addressUtxo struct {
	TxHash string       `json:"tx_hash"`
	Amount []utxoAmount `json:"amount"`
}

// Adapter utxo chain adapter
type Adapter struct {
	config *params.ChainConfig
	client *resty.Client
}

// NewAdapter new adapter
func NewAdapter(config *params.ChainConfig) *Adapter {
	client := resty.New().
		SetHostURL(strings.TrimSuffix(config.RPCAddress, "/")).
		SetTimeout(rpcTimeout).
		SetHeader("Accept", "application/json")
	if config.ProjectID != "" {
		client.SetHeader("project_id", config.ProjectID)
	}
	return &Adapter{config: config, client: client}
}

// ChainName chain name
func (a *Adapter) ChainName() string {
	return a.config.Name
}

// Family utxo
func (a *Adapter) Family() types.ChainFamily {
	return types.FamilyUTXO
}

func (a *Adapter) get(ctx context.Context, path string, result interface{}, query map[string]string) (int, error) {
	resp, err := a.client.R().
		SetContext(ctx).
		SetQueryParams(query).
		Get(path)
	if err != nil {
		return 0, errors.Wrap(tokens.ErrRPCQueryError, err.Error())
	}
	if resp.StatusCode() == http.StatusNotFound {
		return resp.StatusCode(), nil
	}
	if resp.StatusCode() != http.StatusOK {
		return resp.StatusCode(), errors.Wrapf(tokens.ErrRPCQueryError, "%v status %v: %v", path, resp.StatusCode(), resp.String())
	}
	if err = json.Unmarshal(resp.Body(), result); err != nil {
		return resp.StatusCode(), errors.Wrapf(err, "failed to decode %v", path)
	}
	return resp.StatusCode(), nil
}

// GetCurrentHeight latest block height
func (a *Adapter) GetCurrentHeight(ctx context.Context) (uint64, error) {
	var block latestBlock
	status, err := a.get(ctx, "/blocks/latest", &block, nil)
	if err != nil {
		return 0, errors.Wrap(err, "failed to get latest block")
	}
	if status == http.StatusNotFound {
		return 0, errors.Wrap(tokens.ErrRPCQueryError, "latest block not found")
	}
	return block.Height, nil
}

// GetEventsInRange escrow events of script address transactions in blocks [from, to]
func (a *Adapter) GetEventsInRange(ctx context.Context, from, to uint64) ([]*types.EscrowEvent, error) {
	var result []*types.EscrowEvent
	path := fmt.Sprintf("/addresses/%v/transactions", a.config.ScriptAddress)
	for page := 1; page <= maxPages; page++ {
		var txs []addressTx
		query := map[string]string{
			"from":  strconv.FormatUint(from, 10),
			"to":    strconv.FormatUint(to, 10),
			"order": "asc",
			"count": strconv.Itoa(pageSize),
			"page":  strconv.Itoa(page),
		}
		if _, err := a.get(ctx, path, &txs, query); err != nil {
			return nil, errors.Wrap(err, "failed to get script address transactions")
		}
		for _, tx := range txs {
			evs, err := a.getTxEvents(ctx, &tx)
			if err != nil {
				return nil, err
			}
			result = append(result, evs...)
		}
		if len(txs) < pageSize {
			break
		}
	}
	return result, nil
}

func (a *Adapter) getTxEvents(ctx context.Context, tx *addressTx) ([]*types.EscrowEvent, error) {
	var metas []txMetadata
	if _, err := a.get(ctx, fmt.Sprintf("/txs/%v/metadata", tx.TxHash), &metas, nil); err != nil {
		return nil, errors.Wrapf(err, "failed to get metadata of %v", tx.TxHash)
	}
	for _, meta := range metas {
		if meta.Label != a.config.MetadataLabel {
			continue
		}
		var escrowMeta EscrowMetadata
		if err := json.Unmarshal(meta.JSONMetadata, &escrowMeta); err != nil {
			log.Warn("[cardano] skip malformed escrow metadata", "chain", a.config.Name, "txHash", tx.TxHash, "err", err)
			return nil, nil
		}
		evs, err := a.ParseMetadata(&escrowMeta, tx.TxHash, tx.TxIndex, tx.BlockHeight)
		if err != nil {
			log.Warn("[cardano] skip escrow metadata", "chain", a.config.Name, "txHash", tx.TxHash, "err", err)
			return nil, nil
		}
		return evs, nil
	}
	return nil, nil
}

// ParseMetadata convert escrow metadata to events. A withdrawal reveals the
// secret and yields both a secret_revealed and a withdrawn event.
func (a *Adapter) ParseMetadata(meta *EscrowMetadata, txHash string, txIndex uint, height uint64) ([]*types.EscrowEvent, error) {
	if meta.OrderID == "" {
		return nil, errors.Wrap(tokens.ErrWrongEscrowData, "empty order id")
	}
	base := types.EscrowEvent{
		OrderID:  meta.OrderID,
		Chain:    a.config.Name,
		TxHash:   txHash,
		LogIndex: txIndex,
		Height:   height,
		Escrow:   meta.Escrow,
	}
	switch meta.Action {
	case metaActionCreated:
		ev := base
		ev.Kind = types.EscrowCreated
		ev.Amount = meta.Amount
		return []*types.EscrowEvent{&ev}, nil
	case metaActionWithdrawn:
		if meta.Secret == "" {
			return nil, errors.Wrap(tokens.ErrWrongEscrowData, "withdrawal without secret")
		}
		revealed := base
		revealed.Kind = types.EscrowSecretRevealed
		revealed.Secret = meta.Secret
		withdrawn := base
		withdrawn.Kind = types.EscrowWithdrawn
		withdrawn.Secret = meta.Secret
		withdrawn.Recipient = meta.Recipient
		withdrawn.Amount = meta.Amount
		return []*types.EscrowEvent{&revealed, &withdrawn}, nil
	case metaActionCancelled:
		ev := base
		ev.Kind = types.EscrowCancelled
		return []*types.EscrowEvent{&ev}, nil
	default:
		return nil, errors.Wrapf(tokens.ErrUnknownEscrowLog, "action %v", meta.Action)
	}
}

// Submit submit a signed cbor transaction
func (a *Adapter) Submit(ctx context.Context, tx *tokens.EscrowTx) (string, error) {
	resp, err := a.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/cbor").
		SetBody(tx.Raw).
		Post("/tx/submit")
	if err != nil {
		return "", errors.Wrap(err, "failed to submit transaction")
	}
	if resp.StatusCode() != http.StatusOK {
		return "", errors.Wrapf(tokens.ErrWrongRawTx, "submit status %v: %v", resp.StatusCode(), resp.String())
	}
	var txHash string
	if err = json.Unmarshal(resp.Body(), &txHash); err != nil {
		return "", errors.Wrap(err, "failed to decode submit result")
	}
	log.Info("[cardano] escrow tx sent", "chain", a.config.Name, "action", tx.Action, "orderID", tx.OrderID, "txHash", txHash)
	return txHash, nil
}

// QueryEscrow escrow state from the utxos locked at the escrow address
func (a *Adapter) QueryEscrow(ctx context.Context, address string) (*tokens.EscrowState, error) {
	var utxos []addressUtxo
	status, err := a.get(ctx, fmt.Sprintf("/addresses/%v/utxos", address), &utxos, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get escrow utxos")
	}
	state := &tokens.EscrowState{Address: address}
	if status == http.StatusNotFound {
		return state, nil
	}
	total := new(big.Int)
	for _, utxo := range utxos {
		for _, amount := range utxo.Amount {
			if amount.Unit != lovelaceKey {
				continue
			}
			if value, ok := new(big.Int).SetString(amount.Quantity, 10); ok {
				total.Add(total, value)
			}
		}
	}
	state.Deployed = len(utxos) > 0
	state.Balance = total.String()
	return state, nil
}
