// Package types defines the swap records and the messages exchanged between
// the relayer components.
package types

// ChainFamily ledger family of a chain
type ChainFamily string

// chain families
const (
	FamilyEVM  ChainFamily = "evm"
	FamilyUTXO ChainFamily = "utxo"
)

// IsValid is supported chain family
func (f ChainFamily) IsValid() bool {
	return f == FamilyEVM || f == FamilyUTXO
}

// Asset ledger specific asset descriptor.
// evm: Token is the contract address (empty or zero address for native coin).
// utxo: PolicyID + AssetName (both empty for the native coin).
type Asset struct {
	Token     string `bson:"token,omitempty" json:"token,omitempty"`
	PolicyID  string `bson:"policyid,omitempty" json:"policyId,omitempty"`
	AssetName string `bson:"assetname,omitempty" json:"assetName,omitempty"`
}

// SwapLeg role of a chain in a swap
type SwapLeg string

// swap legs
const (
	LegSource      SwapLeg = "src"
	LegDestination SwapLeg = "dst"
)

// SwapRecord one cross-chain swap attempt
type SwapRecord struct {
	ID      string `bson:"id" json:"id"`
	OrderID string `bson:"_id" json:"orderId"`

	Maker string `bson:"maker" json:"maker"`
	Taker string `bson:"taker" json:"taker"`

	SrcChain  string `bson:"srcchain" json:"srcChain"`
	DstChain  string `bson:"dstchain" json:"dstChain"`
	SrcAsset  Asset  `bson:"srcasset" json:"srcAsset"`
	DstAsset  Asset  `bson:"dstasset" json:"dstAsset"`
	SrcAmount string `bson:"srcamount" json:"srcAmount"`
	DstAmount string `bson:"dstamount" json:"dstAmount"`

	Hashlock     string `bson:"hashlock" json:"hashlock"`
	UserDeadline int64  `bson:"userdeadline" json:"userDeadline"`
	CancelAfter  int64  `bson:"cancelafter" json:"cancelAfter"`

	SrcEscrow string `bson:"srcescrow,omitempty" json:"srcEscrow,omitempty"`
	DstEscrow string `bson:"dstescrow,omitempty" json:"dstEscrow,omitempty"`

	Secret         string `bson:"secret,omitempty" json:"secret,omitempty"`
	SecretSharedAt int64  `bson:"secretsharedat,omitempty" json:"secretSharedAt,omitempty"`
	Resolver       string `bson:"resolver,omitempty" json:"resolver,omitempty"`

	Status        SwapStatus `bson:"status" json:"status"`
	Resolution    Resolution `bson:"resolution,omitempty" json:"resolution,omitempty"`
	DisclosureRef string     `bson:"disclosureref,omitempty" json:"disclosureRef,omitempty"`
	DisclosedAt   int64      `bson:"disclosedat,omitempty" json:"disclosedAt,omitempty"`
	Memo          string     `bson:"memo,omitempty" json:"memo,omitempty"`

	CreatedAt int64 `bson:"createdat" json:"createdAt"`
	UpdatedAt int64 `bson:"updatedat" json:"updatedAt"`
}

// HasSecret is secret persisted
func (r *SwapRecord) HasSecret() bool {
	return r.Secret != ""
}

// IsDisclosed is secret published through the public disclosure path
func (r *SwapRecord) IsDisclosed() bool {
	return r.DisclosedAt != 0
}

// ChainOfLeg chain name of leg
func (r *SwapRecord) ChainOfLeg(leg SwapLeg) string {
	if leg == LegSource {
		return r.SrcChain
	}
	return r.DstChain
}

// LegOfChain leg of chain, empty if chain is not part of the swap
func (r *SwapRecord) LegOfChain(chain string) SwapLeg {
	switch chain {
	case r.SrcChain:
		return LegSource
	case r.DstChain:
		return LegDestination
	default:
		return ""
	}
}

// EscrowOf escrow address of leg
func (r *SwapRecord) EscrowOf(leg SwapLeg) string {
	if leg == LegSource {
		return r.SrcEscrow
	}
	return r.DstEscrow
}

// Redacted copy of the record without the secret unless it is already public.
// A completed swap was withdrawn on chain or disclosed, either way the secret is public.
func (r *SwapRecord) Redacted() *SwapRecord {
	cpy := *r
	if r.Status != StatusCompleted && !r.IsDisclosed() {
		cpy.Secret = ""
	}
	return &cpy
}

// Clone deep copy
func (r *SwapRecord) Clone() *SwapRecord {
	cpy := *r
	return &cpy
}

// SwapParams parameters of a new swap request
type SwapParams struct {
	OrderID      string `json:"orderId"`
	Maker        string `json:"maker"`
	Taker        string `json:"taker"`
	SrcChain     string `json:"srcChain"`
	DstChain     string `json:"dstChain"`
	SrcAsset     Asset  `json:"srcAsset"`
	DstAsset     Asset  `json:"dstAsset"`
	SrcAmount    string `json:"srcAmount"`
	DstAmount    string `json:"dstAmount"`
	Hashlock     string `json:"hashlock"`
	UserDeadline int64  `json:"userDeadline"`
	CancelAfter  int64  `json:"cancelAfter"`

	// optional quote check
	ExpectedRate string `json:"expectedRate,omitempty"`
}

// ToRecord build a pending record from params
func (p *SwapParams) ToRecord(id string, now int64) *SwapRecord {
	return &SwapRecord{
		ID:           id,
		OrderID:      p.OrderID,
		Maker:        p.Maker,
		Taker:        p.Taker,
		SrcChain:     p.SrcChain,
		DstChain:     p.DstChain,
		SrcAsset:     p.SrcAsset,
		DstAsset:     p.DstAsset,
		SrcAmount:    p.SrcAmount,
		DstAmount:    p.DstAmount,
		Hashlock:     p.Hashlock,
		UserDeadline: p.UserDeadline,
		CancelAfter:  p.CancelAfter,
		Status:       StatusPending,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// ChainCursor chain monitor progress
type ChainCursor struct {
	Chain     string `bson:"_id" json:"chain"`
	Height    uint64 `bson:"height" json:"height"`
	Timestamp int64  `bson:"timestamp" json:"timestamp"`
}
