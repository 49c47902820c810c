// Package memory provides in-memory implementation of the audit.Store.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/nspcc-dev/neo-go/pkg/util"
	"github.com/nspcc-dev/savings-contract/audit"
	"github.com/shopspring/decimal"
)

type recordKey struct {
	tx    util.Uint256
	index int
}

// Store is an in-memory audit.Store. It is safe for concurrent use.
type Store struct {
	mu       sync.Mutex
	applied  map[recordKey]struct{}
	balances map[string]decimal.Decimal
	records  []audit.Record
}

// NewStore constructs empty Store.
func NewStore() *Store {
	return &Store{
		applied:  make(map[recordKey]struct{}),
		balances: make(map[string]decimal.Decimal),
	}
}

// Apply implements audit.Store.
func (s *Store) Apply(_ context.Context, r audit.Record) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := recordKey{r.Tx, r.Index}
	if _, ok := s.applied[k]; ok {
		return false, nil
	}

	s.applied[k] = struct{}{}
	s.balances[r.Account] = s.balances[r.Account].Add(r.Delta())
	s.records = append(s.records, r)

	return true, nil
}

// Balance implements audit.Store.
func (s *Store) Balance(_ context.Context, account string) (decimal.Decimal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.balances[account], nil
}

// Accounts implements audit.Store. Accounts are sorted.
func (s *Store) Accounts(context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res := make([]string, 0, len(s.balances))
	for acc := range s.balances {
		res = append(res, acc)
	}

	sort.Strings(res)

	return res, nil
}

// Records returns copy of all applied records in the order of application.
func (s *Store) Records() []audit.Record {
	s.mu.Lock()
	defer s.mu.Unlock()

	res := make([]audit.Record, len(s.records))
	copy(res, s.records)

	return res
}

var _ audit.Store = (*Store)(nil)
