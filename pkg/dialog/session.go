package dialog

import (
	"sync"
	"time"

	"github.com/voicetyped/flightbot/pkg/booking"
)

// DefaultMaxHistory is the maximum number of step records before eviction.
const DefaultMaxHistory = 1000

// StepRecord records a step transition for audit purposes.
type StepRecord struct {
	FromStep  StepName  `json:"from_step"`
	ToStep    StepName  `json:"to_step"`
	Trigger   string    `json:"trigger"`
	Timestamp time.Time `json:"timestamp"`
}

// Session holds per-conversation mutable state. All access is thread-safe.
type Session struct {
	mu         sync.RWMutex
	maxHistory int

	ID         string
	State      *FlowState
	History    []StepRecord
	StartTime  time.Time
	LastActive time.Time

	// Version counts stored writes. Stores compare it to reject stale updates.
	Version uint64
}

// NewSession creates an empty booking session. The flow state is set when
// the flow begins.
func NewSession(id string) *Session {
	now := time.Now()
	return &Session{
		ID:         id,
		StartTime:  now,
		LastActive: now,
		maxHistory: DefaultMaxHistory,
	}
}

// recordLocked adds a step transition to the audit history. The oldest 10% of
// entries are evicted when the history cap is reached.
func (s *Session) recordLocked(from, to StepName, trigger string) {
	if s.maxHistory <= 0 {
		s.maxHistory = DefaultMaxHistory
	}
	if len(s.History) >= s.maxHistory {
		evict := s.maxHistory / 10
		if evict < 1 {
			evict = 1
		}
		s.History = s.History[evict:]
	}
	s.History = append(s.History, StepRecord{
		FromStep:  from,
		ToStep:    to,
		Trigger:   trigger,
		Timestamp: time.Now(),
	})
}

// CurrentStep returns the step the flow is waiting in.
func (s *Session) CurrentStep() StepName {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.State == nil {
		return StepOrigin
	}
	return s.State.Step()
}

// Details returns a copy of the booking record collected so far.
func (s *Session) Details() booking.Details {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.State == nil {
		return booking.Details{}
	}
	return s.State.Details.Clone()
}

// Done reports whether the session's flow has finished.
func (s *Session) Done() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.State != nil && s.State.Done
}

// IdleSince returns the time of the last turn.
func (s *Session) IdleSince() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.LastActive
}

// CopyHistory returns a snapshot of the step history.
func (s *Session) CopyHistory() []StepRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cp := make([]StepRecord, len(s.History))
	copy(cp, s.History)
	return cp
}

// SessionSnapshot is the serialisable form of a Session.
type SessionSnapshot struct {
	ID         string       `json:"id"`
	State      *FlowState   `json:"state,omitempty"`
	History    []StepRecord `json:"history,omitempty"`
	StartTime  time.Time    `json:"start_time"`
	LastActive time.Time    `json:"last_active"`
	Version    uint64       `json:"version"`
}

// Snapshot copies the session into a value safe to persist.
func (s *Session) Snapshot() *SessionSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := &SessionSnapshot{
		ID:         s.ID,
		StartTime:  s.StartTime,
		LastActive: s.LastActive,
		Version:    s.Version,
	}
	if s.State != nil {
		st := *s.State
		if st.Resolver != nil {
			r := *st.Resolver
			st.Resolver = &r
		}
		snap.State = &st
	}
	if len(s.History) > 0 {
		snap.History = make([]StepRecord, len(s.History))
		copy(snap.History, s.History)
	}
	return snap
}

// RestoreSession rebuilds a live session from a snapshot.
func RestoreSession(snap *SessionSnapshot) *Session {
	s := &Session{
		ID:         snap.ID,
		StartTime:  snap.StartTime,
		LastActive: snap.LastActive,
		Version:    snap.Version,
		maxHistory: DefaultMaxHistory,
	}
	if snap.State != nil {
		st := *snap.State
		if st.Resolver != nil {
			r := *st.Resolver
			st.Resolver = &r
		}
		s.State = &st
	}
	s.History = append([]StepRecord(nil), snap.History...)
	return s
}
