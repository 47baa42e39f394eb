package types

// AlertKind timeout alert kind
type AlertKind string

// timeout alert kinds
const (
	AlertUserDeadlineApproaching   AlertKind = "user_deadline_approaching"
	AlertCancelDeadlineApproaching AlertKind = "cancel_deadline_approaching"
	AlertDeadlinePassed            AlertKind = "deadline_passed"
)

// TimeoutAlert deadline observation (not persisted)
type TimeoutAlert struct {
	OrderID       string    `json:"orderId"`
	Kind          AlertKind `json:"kind"`
	Deadline      int64     `json:"deadline"`
	TimeRemaining int64     `json:"timeRemaining"`
}

// EscrowEventKind escrow lifecycle event kind
type EscrowEventKind string

// escrow event kinds
const (
	EscrowCreated        EscrowEventKind = "created"
	EscrowSecretRevealed EscrowEventKind = "secret_revealed"
	EscrowWithdrawn      EscrowEventKind = "withdrawn"
	EscrowCancelled      EscrowEventKind = "cancelled"
)

// EscrowEvent normalized on-chain observation
type EscrowEvent struct {
	Kind      EscrowEventKind `json:"kind"`
	OrderID   string          `json:"orderId"`
	Chain     string          `json:"chain"`
	TxHash    string          `json:"txHash"`
	LogIndex  uint            `json:"logIndex"`
	Height    uint64          `json:"height"`
	Escrow    string          `json:"escrow,omitempty"`
	Secret    string          `json:"secret,omitempty"`
	Recipient string          `json:"recipient,omitempty"`
	Amount    string          `json:"amount,omitempty"`
}

// Key identity of the observed fact, duplicates share the same key
func (e *EscrowEvent) Key() string {
	return e.Chain + ":" + e.TxHash + ":" + string(e.Kind) + ":" + e.OrderID
}

// Urgency of a reveal request
type Urgency string

// urgency values
const (
	UrgencyNormal Urgency = "normal"
	UrgencyHigh   Urgency = "high"
)

// force reveal reasons
const (
	ReasonGracePeriodExpired = "grace_period_expired"
	ReasonUserDeadlinePassed = "user_deadline_passed"
	ReasonManual             = "manual"
)

// DisclosurePayload public broadcast content of a force revealed secret
type DisclosurePayload struct {
	OrderID      string `json:"orderId"`
	Secret       string `json:"secret"`
	Hashlock     string `json:"hashlock"`
	SrcChain     string `json:"srcChain"`
	DstChain     string `json:"dstChain"`
	SrcEscrow    string `json:"srcEscrow,omitempty"`
	DstEscrow    string `json:"dstEscrow,omitempty"`
	Reason       string `json:"reason"`
	RewardPolicy string `json:"rewardPolicy"`
}
