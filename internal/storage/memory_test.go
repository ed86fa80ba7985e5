package storage

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"

	"commissions/internal/core"
)

func TestMemoryStoreTransactions(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	txs := []core.Transaction{
		{PayeeID: "E1", ProductID: "P1", Value: decimal.NewFromInt(100)},
		{PayeeID: "E2", ProductID: "P2", Value: decimal.NewFromInt(200)},
	}
	if err := store.ReplaceTransactions(ctx, txs); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err := store.ListTransactions(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 transactions, got %d", len(got))
	}

	// A second replace discards the previous set entirely.
	if err := store.ReplaceTransactions(ctx, txs[:1]); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, _ = store.ListTransactions(ctx)
	if len(got) != 1 {
		t.Fatalf("expected replace to discard old rows, got %d", len(got))
	}
}

func TestMemoryStoreSetups(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	setups := []core.SetupRule{
		{ProductID: "P1", CapPercent: decimal.NewFromInt(100), Term: 6, Frequency: core.Monthly},
		{ProductID: "P2", CapPercent: decimal.NewFromInt(50), Term: 12, Frequency: core.Quarterly},
	}
	saved, err := store.ReplaceSetups(ctx, setups)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(saved) != 2 {
		t.Fatalf("expected snapshot of 2 setups, got %d", len(saved))
	}

	remaining, err := store.DeleteSetupByProduct(ctx, "P1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(remaining) != 1 || remaining[0].ProductID != "P2" {
		t.Fatalf("expected only P2 to remain, got %v", remaining)
	}

	// Deleting an unknown product is a no-op.
	remaining, err = store.DeleteSetupByProduct(ctx, "P9")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(remaining) != 1 {
		t.Fatalf("expected 1 setup, got %d", len(remaining))
	}
}

func TestMemoryStoreSetupsDuplicateProductKeepsLast(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	saved, err := store.ReplaceSetups(ctx, []core.SetupRule{
		{ProductID: "P1", Term: 6, Frequency: core.Monthly},
		{ProductID: "P2", Term: 12, Frequency: core.Quarterly},
		{ProductID: "P1", Term: 12, Frequency: core.Monthly},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(saved) != 2 {
		t.Fatalf("expected duplicate product to collapse to one row, got %d", len(saved))
	}
	if saved[0].ProductID != "P2" {
		t.Errorf("expected surviving duplicate to sort last, got %v", saved)
	}
	if saved[1].ProductID != "P1" || saved[1].Term != 12 {
		t.Errorf("expected last P1 row to win, got %+v", saved[1])
	}
}

func TestMemoryStoreColumnMappings(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	mappings := []core.ColumnMapping{
		{SourceColumn: "Employee", TargetField: "PayeeId"},
		{SourceColumn: "Amount", TargetField: "Total Incentive"},
	}
	if err := store.ReplaceColumnMappings(ctx, mappings); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err := store.ListColumnMappings(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 mappings, got %d", len(got))
	}
	if got[0].SourceColumn != "Employee" || got[0].TargetField != "PayeeId" {
		t.Errorf("unexpected mapping %+v", got[0])
	}
}
