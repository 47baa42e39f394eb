package types

import "errors"

// protocol errors
var (
	ErrWrongStatus     = errors.New("swap in wrong status")
	ErrSwapTerminal    = errors.New("swap already in terminal status")
	ErrSecretMismatch  = errors.New("secret does not match hashlock")
	ErrNoSecretHeld    = errors.New("no secret held for swap")
	ErrDuplicateTimer  = errors.New("grace timer already scheduled")
	ErrUnknownChain    = errors.New("unknown chain")
	ErrInvalidArgument = errors.New("invalid argument")
)
