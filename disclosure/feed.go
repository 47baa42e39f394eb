package disclosure

import (
	"sync"

	"github.com/anyswap/CrossChain-HTLC/common"
	"github.com/anyswap/CrossChain-HTLC/events"
	"github.com/anyswap/CrossChain-HTLC/types"
)

// DefaultFeedCapacity notices kept by a feed
const DefaultFeedCapacity = 1024

// NoticeKind kind of public notice
type NoticeKind string

// notice kinds
const (
	NoticeSecretPublished      NoticeKind = "secret_published"
	NoticePublicCancelRequired NoticeKind = "public_cancel_required"
	NoticeEscrowObserved       NoticeKind = "escrow_observed"
	NoticeSecretShared         NoticeKind = "secret_shared"
)

// CancelNotice what a third party needs to cancel the escrows publicly
type CancelNotice struct {
	Hashlock    string           `json:"hashlock"`
	SrcChain    string           `json:"srcChain"`
	DstChain    string           `json:"dstChain"`
	SrcEscrow   string           `json:"srcEscrow,omitempty"`
	DstEscrow   string           `json:"dstEscrow,omitempty"`
	CancelAfter int64            `json:"cancelAfter"`
	Status      types.SwapStatus `json:"status"`
	Resolution  types.Resolution `json:"resolution,omitempty"`
}

// Notice one entry of the public feed.
// It never carries a secret that is not already public.
type Notice struct {
	Seq       uint64     `json:"seq"`
	Kind      NoticeKind `json:"kind"`
	OrderID   string     `json:"orderId"`
	Timestamp int64      `json:"timestamp"`

	DisclosureRef string                   `json:"disclosureRef,omitempty"`
	Disclosure    *types.DisclosurePayload `json:"disclosure,omitempty"`
	Cancel        *CancelNotice            `json:"cancel,omitempty"`
	Escrow        *types.EscrowEvent       `json:"escrow,omitempty"`
	Resolver      string                   `json:"resolver,omitempty"`
}

// FeedTopics bus topics recorded by a feed
var FeedTopics = []events.Topic{
	events.TopicSecretPublished,
	events.TopicPublicCancelRequired,
	events.TopicEscrowObserved,
	events.TopicSecretShared,
}

// Feed bounded sequence of public notices, oldest entries are evicted
type Feed struct {
	mu       sync.RWMutex
	notices  []*Notice
	capacity int
	lastSeq  uint64
	now      func() int64
}

// NewFeed new feed keeping at most capacity notices
func NewFeed(capacity int) *Feed {
	if capacity <= 0 {
		capacity = DefaultFeedCapacity
	}
	return &Feed{capacity: capacity, now: common.Now}
}

// SetClock replace the clock
func (f *Feed) SetClock(now func() int64) {
	f.now = now
}

// Record convert a bus event into a notice, returns false for other topics
func (f *Feed) Record(ev events.Event) bool {
	notice := toNotice(ev)
	if notice == nil {
		return false
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastSeq++
	notice.Seq = f.lastSeq
	if notice.Timestamp == 0 {
		notice.Timestamp = f.now()
	}
	f.notices = append(f.notices, notice)
	if len(f.notices) > f.capacity {
		f.notices = f.notices[len(f.notices)-f.capacity:]
	}
	return true
}

// Since notices with seq greater than since, at most limit of them
func (f *Feed) Since(since uint64, limit int) []*Notice {
	f.mu.RLock()
	defer f.mu.RUnlock()
	result := make([]*Notice, 0)
	for _, notice := range f.notices {
		if notice.Seq <= since {
			continue
		}
		result = append(result, notice)
		if limit > 0 && len(result) >= limit {
			break
		}
	}
	return result
}

// LastSeq seq of the latest notice
func (f *Feed) LastSeq() uint64 {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.lastSeq
}

func toNotice(ev events.Event) *Notice {
	switch payload := ev.Payload.(type) {
	case *events.SecretPublished:
		if payload.Payload == nil {
			return nil
		}
		return &Notice{
			Kind:          NoticeSecretPublished,
			OrderID:       payload.Payload.OrderID,
			DisclosureRef: payload.DisclosureRef,
			Disclosure:    payload.Payload,
		}
	case *events.PublicCancelRequired:
		rec := payload.Record
		if rec == nil {
			return nil
		}
		return &Notice{
			Kind:      NoticePublicCancelRequired,
			OrderID:   rec.OrderID,
			Timestamp: rec.UpdatedAt,
			Cancel: &CancelNotice{
				Hashlock:    rec.Hashlock,
				SrcChain:    rec.SrcChain,
				DstChain:    rec.DstChain,
				SrcEscrow:   rec.SrcEscrow,
				DstEscrow:   rec.DstEscrow,
				CancelAfter: rec.CancelAfter,
				Status:      rec.Status,
				Resolution:  rec.Resolution,
			},
		}
	case *types.EscrowEvent:
		// on-chain facts, a revealed secret is already public
		escrow := *payload
		return &Notice{
			Kind:    NoticeEscrowObserved,
			OrderID: payload.OrderID,
			Escrow:  &escrow,
		}
	case *events.SecretShared:
		return &Notice{
			Kind:      NoticeSecretShared,
			OrderID:   payload.OrderID,
			Timestamp: payload.SharedAt,
			Resolver:  payload.Resolver,
		}
	}
	return nil
}
