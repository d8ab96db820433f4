// Package memory holds an in-process snapshot appender, used in tests
// and when no spreadsheet is configured.
package memory

import (
	"context"
	"fmt"
	"sync"

	"finman/internal/core"
)

type Store struct {
	mu   sync.Mutex
	rows []Row
}

type Row struct {
	User     core.User
	Snapshot core.NetWorthSnapshot
}

func New() *Store {
	return &Store{}
}

// AppendSnapshot stores the row and returns a synthetic reference.
func (s *Store) AppendSnapshot(_ context.Context, user core.User, snap core.NetWorthSnapshot) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows = append(s.rows, Row{User: user, Snapshot: snap})
	return fmt.Sprintf("mem:%d", len(s.rows)), nil
}

// Rows returns a copy of everything appended so far.
func (s *Store) Rows() []Row {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Row, len(s.rows))
	copy(out, s.rows)
	return out
}
