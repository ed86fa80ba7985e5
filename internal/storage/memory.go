package storage

import (
	"context"
	"sync"

	"commissions/internal/core"
)

// MemoryStore is the default backend: everything lives in process memory and
// is lost on restart. Useful for development and as the test double for the
// service layer.
type MemoryStore struct {
	mu           sync.RWMutex
	transactions []core.Transaction
	setups       []core.SetupRule
	mappings     []core.ColumnMapping
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Close() error { return nil }

func (s *MemoryStore) ReplaceTransactions(_ context.Context, txs []core.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transactions = append([]core.Transaction(nil), txs...)
	return nil
}

func (s *MemoryStore) ListTransactions(_ context.Context) ([]core.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]core.Transaction(nil), s.transactions...), nil
}

// ReplaceSetups swaps the whole setup table. A batch carrying the same
// product twice keeps the last row, mirroring the sqlite backend.
func (s *MemoryStore) ReplaceSetups(_ context.Context, setups []core.SetupRule) ([]core.SetupRule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	deduped := make([]core.SetupRule, 0, len(setups))
	for _, rule := range setups {
		for i, existing := range deduped {
			if existing.ProductID == rule.ProductID {
				deduped = append(deduped[:i], deduped[i+1:]...)
				break
			}
		}
		deduped = append(deduped, rule)
	}
	s.setups = deduped
	return append([]core.SetupRule(nil), s.setups...), nil
}

func (s *MemoryStore) ListSetups(_ context.Context) ([]core.SetupRule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]core.SetupRule(nil), s.setups...), nil
}

func (s *MemoryStore) DeleteSetupByProduct(_ context.Context, productID string) ([]core.SetupRule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	remaining := s.setups[:0:0]
	for _, setup := range s.setups {
		if setup.ProductID != productID {
			remaining = append(remaining, setup)
		}
	}
	s.setups = remaining
	return append([]core.SetupRule(nil), s.setups...), nil
}

func (s *MemoryStore) ListColumnMappings(_ context.Context) ([]core.ColumnMapping, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]core.ColumnMapping(nil), s.mappings...), nil
}

func (s *MemoryStore) ReplaceColumnMappings(_ context.Context, mappings []core.ColumnMapping) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mappings = append([]core.ColumnMapping(nil), mappings...)
	return nil
}
