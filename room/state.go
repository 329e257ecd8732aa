// Package room implements the conversation orchestration core: the
// shared message log, the per-round response orchestrator, and the
// autonomous bot-to-bot conversation loop.
package room

import (
	"sort"
	"sync"

	"go.uber.org/zap"

	"botroom/types"
)

// State owns the append-only message log, the set of bot display names
// currently awaiting a response, and the settings snapshot read by each
// round. All mutation goes through its methods; readers only ever see
// copies.
type State struct {
	mu       sync.RWMutex
	messages []types.Message
	pending  map[string]struct{}
	settings types.Settings

	subs    map[int]chan struct{}
	nextSub int

	logger *zap.Logger
}

// NewState creates an empty room state with the given initial settings.
func NewState(settings types.Settings, logger *zap.Logger) *State {
	return &State{
		pending:  make(map[string]struct{}),
		settings: settings.Clone(),
		subs:     make(map[int]chan struct{}),
		logger:   logger.With(zap.String("component", "state")),
	}
}

// Append adds a message to the log. Messages are immutable once
// appended and are never removed for the lifetime of the process.
func (s *State) Append(msg types.Message) {
	s.mu.Lock()
	s.messages = append(s.messages, msg)
	s.logger.Debug("message appended",
		zap.String("author", msg.Author),
		zap.String("author_type", string(msg.AuthorType)),
		zap.Int("history_len", len(s.messages)))
	s.notifyLocked()
	s.mu.Unlock()
}

// Messages returns a copy of the ordered message log.
func (s *State) Messages() []types.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]types.Message, len(s.messages))
	copy(out, s.messages)
	return out
}

// Len returns the current log length.
func (s *State) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.messages)
}

// AddPending marks the given display names as awaiting a response.
func (s *State) AddPending(names ...string) {
	s.mu.Lock()
	for _, n := range names {
		s.pending[n] = struct{}{}
	}
	s.notifyLocked()
	s.mu.Unlock()
}

// RemovePending clears one display name from the pending set. Removing
// a name that is not present is a no-op, so completions racing a
// ClearPending stay harmless.
func (s *State) RemovePending(name string) {
	s.mu.Lock()
	delete(s.pending, name)
	s.notifyLocked()
	s.mu.Unlock()
}

// ClearPending empties the pending set.
func (s *State) ClearPending() {
	s.mu.Lock()
	s.pending = make(map[string]struct{})
	s.notifyLocked()
	s.mu.Unlock()
}

// Pending returns the pending display names, sorted for stable output.
func (s *State) Pending() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.pending))
	for n := range s.pending {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// PendingCount returns the size of the pending set.
func (s *State) PendingCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.pending)
}

// Settings returns a copy of the current settings snapshot.
func (s *State) Settings() types.Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings.Clone()
}

// SetSettings replaces the settings snapshot read by the next round.
// In-flight rounds keep the snapshot they started with.
func (s *State) SetSettings(settings types.Settings) {
	settings.Normalize()
	s.mu.Lock()
	s.settings = settings.Clone()
	s.notifyLocked()
	s.mu.Unlock()
}

// Subscribe registers for change notifications. The returned channel
// receives at most one pending signal at a time; the cancel func must
// be called to release the subscription.
func (s *State) Subscribe() (<-chan struct{}, func()) {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	ch := make(chan struct{}, 1)
	s.subs[id] = ch
	s.mu.Unlock()

	cancel := func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
	return ch, cancel
}

func (s *State) notifyLocked() {
	for _, ch := range s.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}
