package domain

import (
	"sync/atomic"
	"time"
)

// State carries the process-wide dispatch bookkeeping: a monotonically
// increasing request counter and the last-activity timestamp. It is created
// once at startup and passed explicitly to the components that need it;
// nothing in this package keeps ambient globals.
type State struct {
	requests     atomic.Uint64
	lastActivity atomic.Int64
}

func NewState() *State {
	s := &State{}
	s.lastActivity.Store(time.Now().UnixNano())
	return s
}

// RecordDispatch increments the request counter and stamps activity. It is
// called once per dispatch regardless of the call's outcome.
func (s *State) RecordDispatch() uint64 {
	s.lastActivity.Store(time.Now().UnixNano())
	return s.requests.Add(1)
}

func (s *State) Requests() uint64 {
	return s.requests.Load()
}

func (s *State) LastActivity() time.Time {
	return time.Unix(0, s.lastActivity.Load())
}
