package services

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"commissions/internal/amqp"
	"commissions/internal/core"
	"commissions/internal/storage"
)

type capturePublisher struct {
	messages []*amqp.ExportNoticeMessage
	fail     bool
}

func (p *capturePublisher) PublishExportNotice(_ context.Context, msg *amqp.ExportNoticeMessage) error {
	if p.fail {
		return errors.New("broker unavailable")
	}
	p.messages = append(p.messages, msg)
	return nil
}

func transactionWorkbook(t *testing.T) *bytes.Buffer {
	t.Helper()
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	rows := [][]any{
		{"PayeeId", "OrderId", "Product", "Total Incentive"},
		{"E1", "O1", "P1", 6000},
		{"E1", "O2", "P1", 6000},
	}
	for r, cells := range rows {
		for c, v := range cells {
			cell, _ := excelize.CoordinatesToCellName(c+1, r+1)
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				t.Fatalf("set cell: %v", err)
			}
		}
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("write workbook: %v", err)
	}
	return buf
}

func testSetups() []core.SetupRule {
	return []core.SetupRule{{
		ProductID:             "P1",
		CapPercent:            decimal.NewFromInt(100),
		Term:                  6,
		Frequency:             core.Monthly,
		PayrollClassification: "Deferred",
		StartMonth:            "2025-01-01",
	}}
}

func TestImportTransactionsAndRun(t *testing.T) {
	ctx := context.Background()
	svc := NewAmortizationService(storage.NewMemoryStore(), nil)

	count, err := svc.ImportTransactions(ctx, transactionWorkbook(t))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected 2 imported rows, got %d", count)
	}

	if _, err := svc.SaveSetups(ctx, testSetups()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	result, err := svc.Run(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Schedule) != 6 {
		t.Fatalf("expected 6 installments, got %d", len(result.Schedule))
	}
	if !result.Schedule[0].InstallmentAmount.Equal(decimal.NewFromInt(2000)) {
		t.Errorf("expected installment 2000, got %s", result.Schedule[0].InstallmentAmount)
	}
	if len(result.Overview) != 1 {
		t.Errorf("expected 1 overview row, got %d", len(result.Overview))
	}
	if len(result.Skipped) != 0 {
		t.Errorf("expected no skips, got %v", result.Skipped)
	}
}

func TestRunReportsSkips(t *testing.T) {
	ctx := context.Background()
	svc := NewAmortizationService(storage.NewMemoryStore(), nil)

	if _, err := svc.ImportTransactions(ctx, transactionWorkbook(t)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// No setups stored, so every group is skipped.
	result, err := svc.Run(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Schedule) != 0 {
		t.Fatalf("expected empty schedule, got %d entries", len(result.Schedule))
	}
	if len(result.Skipped) != 1 {
		t.Fatalf("expected 1 skipped group, got %d", len(result.Skipped))
	}
}

func TestSaveSetupsValidates(t *testing.T) {
	ctx := context.Background()
	svc := NewAmortizationService(storage.NewMemoryStore(), nil)

	bad := []core.SetupRule{{ProductID: "P1", CapPercent: decimal.NewFromInt(150)}}
	if _, err := svc.SaveSetups(ctx, bad); !errors.Is(err, core.ErrInvalidCap) {
		t.Fatalf("expected ErrInvalidCap, got %v", err)
	}
}

func TestDeleteSetup(t *testing.T) {
	ctx := context.Background()
	svc := NewAmortizationService(storage.NewMemoryStore(), nil)

	setups := append(testSetups(), core.SetupRule{ProductID: "P2", CapPercent: decimal.NewFromInt(50), Term: 12})
	if _, err := svc.SaveSetups(ctx, setups); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	remaining, err := svc.DeleteSetup(ctx, "P1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(remaining) != 1 || remaining[0].ProductID != "P2" {
		t.Fatalf("expected only P2 to remain, got %v", remaining)
	}

	if _, err := svc.DeleteSetup(ctx, ""); !errors.Is(err, core.ErrEmptyProductID) {
		t.Fatalf("expected ErrEmptyProductID, got %v", err)
	}
}

func TestExportScheduleAndNotify(t *testing.T) {
	ctx := context.Background()
	publisher := &capturePublisher{}
	svc := NewAmortizationService(storage.NewMemoryStore(), publisher)

	entries := []core.ScheduleEntry{{
		PayeeID:           "E1",
		ProductID:         "P1",
		InstallmentAmount: decimal.NewFromInt(2000),
		Frequency:         core.Monthly,
	}}
	filename, data, err := svc.ExportSchedule(entries)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(data) == 0 {
		t.Fatal("expected workbook bytes")
	}
	if filename == "" {
		t.Fatal("expected a filename")
	}

	svc.NotifyExport(ctx, "reports@example.com", filename, len(entries))
	if len(publisher.messages) != 1 {
		t.Fatalf("expected 1 published notice, got %d", len(publisher.messages))
	}
	if publisher.messages[0].Recipient != "reports@example.com" {
		t.Errorf("unexpected recipient %q", publisher.messages[0].Recipient)
	}
}

func TestNotifyExportToleratesFailures(t *testing.T) {
	ctx := context.Background()

	// No publisher configured.
	svc := NewAmortizationService(storage.NewMemoryStore(), nil)
	svc.NotifyExport(ctx, "reports@example.com", "export.xlsx", 1)

	// Publisher errors are swallowed.
	svc = NewAmortizationService(storage.NewMemoryStore(), &capturePublisher{fail: true})
	svc.NotifyExport(ctx, "reports@example.com", "export.xlsx", 1)
}

func TestOptions(t *testing.T) {
	ctx := context.Background()
	svc := NewAmortizationService(storage.NewMemoryStore(), nil)

	if _, err := svc.ImportTransactions(ctx, transactionWorkbook(t)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	payees, err := svc.Options(ctx, core.ByPayee)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(payees) != 1 || payees[0] != "E1" {
		t.Fatalf("expected distinct payee E1, got %v", payees)
	}

	if _, err := svc.Options(ctx, core.ByOrder); !errors.Is(err, core.ErrUnknownDimension) {
		t.Fatalf("expected ErrUnknownDimension for unsupported dimension, got %v", err)
	}
}
