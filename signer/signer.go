// Package signer builds escrow transactions through the remote resolver wallet.
// Keys never enter the relayer process.
package signer

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/anyswap/CrossChain-HTLC/log"
	"github.com/anyswap/CrossChain-HTLC/rpc/client"
	"github.com/anyswap/CrossChain-HTLC/tokens"
	"github.com/anyswap/CrossChain-HTLC/types"
)

const (
	methodBuildEscrowTx = "signer_buildEscrowTx"
	methodGetAddress    = "signer_getAddress"

	statusSuccess = "Success"
)

// ErrWrongStatus signer replied with a failure status
var ErrWrongStatus = errors.New("signer wrong status")

var _ tokens.TxBuilder = (*Client)(nil)

// BuildArgs arguments of signer_buildEscrowTx
type BuildArgs struct {
	Chain  string              `json:"chain"`
	Action tokens.EscrowAction `json:"action"`
	Swap   *types.SwapRecord   `json:"swap"`
}

// BuildResult result of signer_buildEscrowTx
type BuildResult struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
	RawTx  string `json:"rawTx"`
}

// AddressResult result of signer_getAddress
type AddressResult struct {
	Status  string `json:"status"`
	Error   string `json:"error,omitempty"`
	Address string `json:"address"`
}

// Client remote signer client
type Client struct {
	url string
}

// NewClient new signer client
func NewClient(url string) *Client {
	return &Client{url: url}
}

func newWrongStatusError(errInfo string) error {
	return fmt.Errorf("%w, %v", ErrWrongStatus, errInfo)
}

// GetAddress resolver address of chain held by the signer
func (c *Client) GetAddress(chain string) (string, error) {
	var result AddressResult
	if err := client.RPCPost(&result, c.url, methodGetAddress, chain); err != nil {
		return "", err
	}
	if result.Status != statusSuccess {
		return "", newWrongStatusError(result.Error)
	}
	return result.Address, nil
}

// BuildEscrowTx implements tokens.TxBuilder
func (c *Client) BuildEscrowTx(chain string, action tokens.EscrowAction, swap *types.SwapRecord) (*tokens.EscrowTx, error) {
	args := &BuildArgs{Chain: chain, Action: action, Swap: swap}
	var result BuildResult
	if err := client.RPCPost(&result, c.url, methodBuildEscrowTx, args); err != nil {
		return nil, err
	}
	if result.Status != statusSuccess {
		return nil, newWrongStatusError(result.Error)
	}
	raw, err := decodeRawTx(result.RawTx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", tokens.ErrWrongRawTx, err)
	}
	log.Info("[signer] escrow tx built", "chain", chain, "action", action, "orderID", swap.OrderID)
	return &tokens.EscrowTx{Action: action, OrderID: swap.OrderID, Raw: raw}, nil
}

func decodeRawTx(rawTx string) ([]byte, error) {
	if !strings.HasPrefix(rawTx, "0x") {
		rawTx = "0x" + rawTx
	}
	raw, err := hexutil.Decode(rawTx)
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return nil, errors.New("empty raw tx")
	}
	return raw, nil
}
