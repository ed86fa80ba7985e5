package worker

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"commissions/internal/amqp"
	"commissions/internal/core"
	applog "commissions/internal/log"
	"commissions/internal/mail"
	"commissions/internal/services"
	"commissions/internal/storage"
)

type captureSender struct {
	sent []mail.Message
	fail bool
}

func (s *captureSender) Send(_ context.Context, msg mail.Message) error {
	if s.fail {
		return errors.New("smtp down")
	}
	s.sent = append(s.sent, msg)
	return nil
}

func seededService(t *testing.T) *services.AmortizationService {
	t.Helper()
	ctx := context.Background()
	store := storage.NewMemoryStore()
	if err := store.ReplaceTransactions(ctx, []core.Transaction{
		{PayeeID: "E1", ProductID: "P1", Value: decimal.NewFromInt(1200)},
	}); err != nil {
		t.Fatalf("seed transactions: %v", err)
	}
	if _, err := store.ReplaceSetups(ctx, []core.SetupRule{{
		ProductID:             "P1",
		CapPercent:            decimal.NewFromInt(100),
		Term:                  12,
		Frequency:             core.Monthly,
		PayrollClassification: "Deferred",
		StartMonth:            "2025-01-01",
	}}); err != nil {
		t.Fatalf("seed setups: %v", err)
	}
	return services.NewAmortizationService(store, nil)
}

func TestHandleSendsAttachment(t *testing.T) {
	sender := &captureSender{}
	w := NewNotifyWorker(seededService(t), nil, sender, applog.New(applog.DefaultConfig()))

	msg := amqp.NewExportNoticeMessage("payee@example.com", "ignored.xlsx", 0)
	if err := w.Handle(context.Background(), msg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(sender.sent) != 1 {
		t.Fatalf("expected 1 mail, got %d", len(sender.sent))
	}
	sent := sender.sent[0]
	if sent.To != "payee@example.com" {
		t.Errorf("unexpected recipient %q", sent.To)
	}
	if !strings.HasPrefix(sent.AttachmentName, "Amortization_Schedule_") {
		t.Errorf("unexpected attachment name %q", sent.AttachmentName)
	}
	if len(sent.Attachment) == 0 {
		t.Error("expected workbook attachment")
	}
	if !strings.Contains(sent.Body, "12 entries") {
		t.Errorf("expected entry count in body, got %q", sent.Body)
	}
}

func TestHandlePropagatesSendFailure(t *testing.T) {
	sender := &captureSender{fail: true}
	w := NewNotifyWorker(seededService(t), nil, sender, applog.New(applog.DefaultConfig()))

	msg := amqp.NewExportNoticeMessage("payee@example.com", "x.xlsx", 0)
	if err := w.Handle(context.Background(), msg); err == nil {
		t.Fatal("expected error so the notice gets requeued")
	}
}
