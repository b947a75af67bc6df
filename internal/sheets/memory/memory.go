package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"paydue/internal/core"
)

// Store is an in-memory HistoryAppender for tests and local runs.
type Store struct {
	mu   sync.Mutex
	rows []core.Payment
	fail error
}

func New() *Store {
	return &Store{}
}

// Append stores the payment and returns a synthetic row reference.
func (s *Store) Append(_ context.Context, p core.Payment) (string, error) {
	if p.Status != core.StatusPaid {
		return "", errors.New("payment is not paid")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return "", s.fail
	}
	s.rows = append(s.rows, p)
	return fmt.Sprintf("mem:%d", len(s.rows)), nil
}

// Rows returns a copy of everything appended so far.
func (s *Store) Rows() []core.Payment {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.Payment(nil), s.rows...)
}

// FailWith makes subsequent appends return err. Pass nil to recover.
func (s *Store) FailWith(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fail = err
}
