// Package rpcapi provides the JSON-RPC mirror of the control surface queries.
package rpcapi

import (
	"net/http"

	rpcjson "github.com/gorilla/rpc/v2/json2"

	"github.com/anyswap/CrossChain-HTLC/internal/swapapi"
)

// RPCAPI rpc api handler
type RPCAPI struct {
	api *swapapi.API
}

// NewRPCAPI new rpc api
func NewRPCAPI(api *swapapi.API) *RPCAPI {
	return &RPCAPI{api: api}
}

// RPCNullArgs null args
type RPCNullArgs struct{}

func newRPCError(err error) error {
	if err == nil {
		return nil
	}
	code := rpcjson.E_SERVER
	switch {
	case swapapi.IsNotFound(err), swapapi.IsRejected(err):
		code = rpcjson.E_BAD_PARAMS
	}
	return &rpcjson.Error{Code: code, Message: err.Error()}
}

// GetVersionInfo api
func (s *RPCAPI) GetVersionInfo(r *http.Request, args *RPCNullArgs, result *string) error {
	*result = swapapi.VersionInfo()
	return nil
}

// GetSwap api
func (s *RPCAPI) GetSwap(r *http.Request, orderID *string, result *swapapi.SwapRecord) error {
	res, err := s.api.GetSwap(*orderID)
	if err == nil && res != nil {
		*result = *res
	}
	return newRPCError(err)
}

// GetStatus api
func (s *RPCAPI) GetStatus(r *http.Request, args *RPCNullArgs, result *swapapi.StatusInfo) error {
	res, err := s.api.GetStatus()
	if err == nil && res != nil {
		*result = *res
	}
	return newRPCError(err)
}

// GetActiveSwaps api
func (s *RPCAPI) GetActiveSwaps(r *http.Request, args *RPCNullArgs, result *[]*swapapi.SwapSummary) error {
	res, err := s.api.GetSwaps("active")
	if err == nil {
		*result = res
	}
	return newRPCError(err)
}

// GetDeadlines api, window in seconds
func (s *RPCAPI) GetDeadlines(r *http.Request, window *int64, result *[]*swapapi.TimeoutAlert) error {
	res, err := s.api.GetDeadlines(*window)
	if err == nil {
		*result = res
	}
	return newRPCError(err)
}
