// Package events is the in-process typed pub/sub between relayer components.
package events

import (
	"sync"

	"github.com/anyswap/CrossChain-HTLC/log"
	"github.com/anyswap/CrossChain-HTLC/types"
)

// Topic event topic
type Topic string

// topics
const (
	TopicTimeoutAlert         Topic = "TimeoutAlert"
	TopicSecretRevealRequired Topic = "SecretRevealRequired"
	TopicPublicCancelRequired Topic = "PublicCancelRequired"
	TopicSecretPublished      Topic = "SecretPublished"
	TopicEscrowObserved       Topic = "EscrowObserved"
	TopicSecretShared         Topic = "SecretShared"
)

const defaultBufferSize = 256

// SecretRevealRequired a held secret must be revealed
type SecretRevealRequired struct {
	OrderID string
	Urgency types.Urgency
	Reason  string
}

// PublicCancelRequired cancel deadline passed, the record is a snapshot
type PublicCancelRequired struct {
	Record *types.SwapRecord
}

// SecretPublished secret was disclosed publicly
type SecretPublished struct {
	Payload       *types.DisclosurePayload
	DisclosureRef string
}

// SecretShared secret was handed to a resolver
type SecretShared struct {
	OrderID  string
	Resolver string
	SharedAt int64
}

// Event one published message, Payload type is determined by Topic
type Event struct {
	Topic   Topic
	Payload interface{}
}

// Bus fan out events to subscribers
type Bus struct {
	mu   sync.RWMutex
	subs map[Topic][]chan Event
}

// NewBus new event bus
func NewBus() *Bus {
	return &Bus{subs: make(map[Topic][]chan Event)}
}

// Subscribe returns a buffered channel receiving events of the topics
func (b *Bus) Subscribe(bufferSize int, topics ...Topic) <-chan Event {
	if bufferSize <= 0 {
		bufferSize = defaultBufferSize
	}
	ch := make(chan Event, bufferSize)
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, topic := range topics {
		b.subs[topic] = append(b.subs[topic], ch)
	}
	return ch
}

// Publish deliver event to every subscriber of its topic without blocking.
// A subscriber with a full buffer misses the event.
func (b *Bus) Publish(topic Topic, payload interface{}) {
	if b == nil {
		return
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	ev := Event{Topic: topic, Payload: payload}
	for _, ch := range b.subs[topic] {
		select {
		case ch <- ev:
		default:
			log.Warn("[events] subscriber buffer full, drop event", "topic", topic)
		}
	}
}

// PublishTimeoutAlert publish TimeoutAlert
func (b *Bus) PublishTimeoutAlert(alert *types.TimeoutAlert) {
	b.Publish(TopicTimeoutAlert, alert)
}

// PublishSecretRevealRequired publish SecretRevealRequired
func (b *Bus) PublishSecretRevealRequired(ev *SecretRevealRequired) {
	b.Publish(TopicSecretRevealRequired, ev)
}

// PublishPublicCancelRequired publish PublicCancelRequired
func (b *Bus) PublishPublicCancelRequired(ev *PublicCancelRequired) {
	b.Publish(TopicPublicCancelRequired, ev)
}

// PublishSecretPublished publish SecretPublished
func (b *Bus) PublishSecretPublished(ev *SecretPublished) {
	b.Publish(TopicSecretPublished, ev)
}

// PublishEscrowObserved publish EscrowEvent
func (b *Bus) PublishEscrowObserved(ev *types.EscrowEvent) {
	b.Publish(TopicEscrowObserved, ev)
}

// PublishSecretShared publish SecretShared
func (b *Bus) PublishSecretShared(ev *SecretShared) {
	b.Publish(TopicSecretShared, ev)
}
