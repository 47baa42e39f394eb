// Package disclosure publishes force revealed secrets to public channels.
package disclosure

import (
	"encoding/json"
	"errors"
	"sync"

	"github.com/anyswap/CrossChain-HTLC/common"
	"github.com/anyswap/CrossChain-HTLC/types"
)

// ErrPublishFailed publish failed
var ErrPublishFailed = errors.New("disclosure publish failed")

// Sink accepts a payload and returns its content reference.
// Publishing the same payload twice returns the same reference.
type Sink interface {
	Publish(payload *types.DisclosurePayload) (string, error)
}

// EncodePayload canonical payload bytes
func EncodePayload(payload *types.DisclosurePayload) ([]byte, error) {
	return json.Marshal(payload)
}

// MemorySink content addressed sink kept in memory
type MemorySink struct {
	mu       sync.Mutex
	contents map[string][]byte
	calls    int
	failures int
}

// NewMemorySink new memory sink
func NewMemorySink() *MemorySink {
	return &MemorySink{contents: make(map[string][]byte)}
}

// FailNext make the next n publish calls fail
func (s *MemorySink) FailNext(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures = n
}

// Publish implements Sink
func (s *MemorySink) Publish(payload *types.DisclosurePayload) (string, error) {
	data, err := EncodePayload(payload)
	if err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.failures > 0 {
		s.failures--
		return "", ErrPublishFailed
	}
	ref := "mem:" + common.ToHex(common.Keccak256(data))
	s.contents[ref] = data
	return ref, nil
}

// Get stored content
func (s *MemorySink) Get(ref string) (*types.DisclosurePayload, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, exist := s.contents[ref]
	if !exist {
		return nil, false
	}
	payload := &types.DisclosurePayload{}
	if err := json.Unmarshal(data, payload); err != nil {
		return nil, false
	}
	return payload, true
}

// Len count of distinct contents
func (s *MemorySink) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.contents)
}

// Calls count of publish calls
func (s *MemorySink) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}
