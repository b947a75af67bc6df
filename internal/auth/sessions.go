package auth

import (
	"sync"
	"time"
)

type EventType string

const (
	EventSignIn  EventType = "sign_in"
	EventSignOut EventType = "sign_out"
)

// Event notifies subscribers of a session lifecycle change.
type Event struct {
	Type    EventType
	OwnerID string
	At      time.Time
}

// Sessions is a small fan-out of session events. Subscribers that fall
// behind miss events rather than blocking the auth path.
type Sessions struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]chan Event
}

func NewSessions() *Sessions {
	return &Sessions{subs: make(map[int]chan Event)}
}

// Subscribe registers a listener. The returned func removes it.
func (s *Sessions) Subscribe() (<-chan Event, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextID
	s.nextID++
	ch := make(chan Event, 8)
	s.subs[id] = ch

	unsubscribe := func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if ch, ok := s.subs[id]; ok {
			delete(s.subs, id)
			close(ch)
		}
	}
	return ch, unsubscribe
}

func (s *Sessions) emit(eventType EventType, ownerID string) {
	if s == nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	event := Event{Type: eventType, OwnerID: ownerID, At: time.Now()}
	for _, ch := range s.subs {
		select {
		case ch <- event:
		default:
		}
	}
}
