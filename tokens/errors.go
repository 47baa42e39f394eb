package tokens

import (
	"errors"
)

// common errors
var (
	ErrRPCQueryError     = errors.New("rpc query error")
	ErrTxNotFound        = errors.New("tx not found")
	ErrWrongRawTx        = errors.New("wrong raw tx")
	ErrUnknownEscrowLog  = errors.New("unknown escrow log")
	ErrWrongEscrowData   = errors.New("wrong escrow data")
	ErrNoAdapterForChain = errors.New("no adapter for chain")
)
