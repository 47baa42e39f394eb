package eth

import (
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// escrow factory events
const (
	EventEscrowCreated    = "EscrowCreated"
	EventEscrowWithdrawal = "EscrowWithdrawal"
	EventEscrowCancelled  = "EscrowCancelled"
)

const escrowFactoryABI = `[
  {"type":"event","name":"EscrowCreated","anonymous":false,"inputs":[
    {"name":"orderHash","type":"bytes32","indexed":true},
    {"name":"escrow","type":"address","indexed":true},
    {"name":"hashlock","type":"bytes32","indexed":false},
    {"name":"amount","type":"uint256","indexed":false}]},
  {"type":"event","name":"EscrowWithdrawal","anonymous":false,"inputs":[
    {"name":"orderHash","type":"bytes32","indexed":true},
    {"name":"escrow","type":"address","indexed":true},
    {"name":"secret","type":"bytes32","indexed":false},
    {"name":"recipient","type":"address","indexed":false},
    {"name":"amount","type":"uint256","indexed":false}]},
  {"type":"event","name":"EscrowCancelled","anonymous":false,"inputs":[
    {"name":"orderHash","type":"bytes32","indexed":true},
    {"name":"escrow","type":"address","indexed":true}]}
]`

// EscrowFactoryABI parsed escrow factory abi
var EscrowFactoryABI = func() abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(escrowFactoryABI))
	if err != nil {
		panic(err)
	}
	return parsed
}()
