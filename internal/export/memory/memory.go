package memory

import (
	"context"
	"fmt"
	"sync"

	"tourdesk/internal/export"
)

// Store is an in-memory ledger used in tests and local development.
type Store struct {
	mu   sync.Mutex
	rows []export.Row

	// FailNext makes the next Append return an error, for failure-path tests.
	FailNext bool
}

func New() *Store {
	return &Store{}
}

// Append stores the row and returns a synthetic row reference.
func (s *Store) Append(_ context.Context, row export.Row) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailNext {
		s.FailNext = false
		return "", fmt.Errorf("append unavailable")
	}
	s.rows = append(s.rows, row)
	return fmt.Sprintf("mem:%d", len(s.rows)), nil
}

// Rows returns a copy of everything appended so far.
func (s *Store) Rows() []export.Row {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]export.Row(nil), s.rows...)
}
