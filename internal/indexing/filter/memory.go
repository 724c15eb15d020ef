package filter

import (
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/vietddude/reconciler/internal/core/domain"
	"github.com/vietddude/reconciler/internal/infra/chain/evm"
)

// TopicFilter implements Filter using an in-memory map keyed by topic0.
type TopicFilter struct {
	events map[common.Hash]CreationEvent
	mu     sync.RWMutex
}

// NewTopicFilter creates a filter recognizing the given events.
func NewTopicFilter(events ...CreationEvent) *TopicFilter {
	f := &TopicFilter{
		events: make(map[common.Hash]CreationEvent, len(events)),
	}
	for _, ev := range events {
		f.Add(ev)
	}
	return f
}

// Add registers an event. Re-adding a topic replaces its flags.
func (f *TopicFilter) Add(ev CreationEvent) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events[ev.Topic] = ev
}

// AddSignature registers an event by signature or raw topic hash.
func (f *TopicFilter) AddSignature(event string, contentSource bool) CreationEvent {
	ev := CreationEvent{Topic: evm.EventTopic(event), ContentSource: contentSource}
	f.Add(ev)
	return ev
}

// Match returns the creation event matching the log's topic0.
func (f *TopicFilter) Match(log domain.EventLog) (CreationEvent, bool) {
	topic0 := log.Topic(0)
	if !strings.HasPrefix(topic0, "0x") || len(topic0) != 2+2*common.HashLength {
		return CreationEvent{}, false
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	ev, ok := f.events[common.HexToHash(topic0)]
	return ev, ok
}

// Size returns the number of recognized events.
func (f *TopicFilter) Size() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.events)
}
