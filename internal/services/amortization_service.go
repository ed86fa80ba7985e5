package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"commissions/internal/amqp"
	"commissions/internal/core"
	"commissions/internal/xlsx"
)

// AmortizationService orchestrates uploads, setup management, calculation
// runs and exports over the configured store.
type AmortizationService struct {
	store     Store
	publisher NoticePublisher
}

func NewAmortizationService(store Store, publisher NoticePublisher) *AmortizationService {
	return &AmortizationService{
		store:     store,
		publisher: publisher,
	}
}

// ImportTransactions parses an uploaded workbook, applying stored column
// mappings, and replaces the stored batch. Returns the number of imported
// rows.
func (s *AmortizationService) ImportTransactions(ctx context.Context, r io.Reader) (int, error) {
	mappings, err := s.store.ListColumnMappings(ctx)
	if err != nil {
		return 0, fmt.Errorf("load column mappings: %w", err)
	}

	txs, err := xlsx.ParseTransactions(r, mappings)
	if err != nil {
		return 0, err
	}

	if err := s.store.ReplaceTransactions(ctx, txs); err != nil {
		return 0, fmt.Errorf("store transactions: %w", err)
	}

	slog.InfoContext(ctx, "Imported transaction batch", "row_count", len(txs))
	return len(txs), nil
}

// ImportSetups parses an uploaded setup workbook and replaces the stored
// rules, returning the fresh snapshot.
func (s *AmortizationService) ImportSetups(ctx context.Context, r io.Reader) ([]core.SetupRule, error) {
	mappings, err := s.store.ListColumnMappings(ctx)
	if err != nil {
		return nil, fmt.Errorf("load column mappings: %w", err)
	}

	setups, err := xlsx.ParseSetups(r, mappings)
	if err != nil {
		return nil, err
	}

	saved, err := s.store.ReplaceSetups(ctx, setups)
	if err != nil {
		return nil, fmt.Errorf("store setups: %w", err)
	}

	slog.InfoContext(ctx, "Imported setup batch", "setup_count", len(saved))
	return saved, nil
}

// SaveSetups validates and replaces the whole setup table, returning the
// snapshot as stored.
func (s *AmortizationService) SaveSetups(ctx context.Context, setups []core.SetupRule) ([]core.SetupRule, error) {
	for _, rule := range setups {
		if err := rule.Validate(); err != nil {
			return nil, fmt.Errorf("setup for product %q: %w", rule.ProductID, err)
		}
	}
	return s.store.ReplaceSetups(ctx, setups)
}

// DeleteSetup removes one rule and returns what remains.
func (s *AmortizationService) DeleteSetup(ctx context.Context, productID string) ([]core.SetupRule, error) {
	if productID == "" {
		return nil, core.ErrEmptyProductID
	}
	return s.store.DeleteSetupByProduct(ctx, productID)
}

func (s *AmortizationService) Transactions(ctx context.Context) ([]core.Transaction, error) {
	return s.store.ListTransactions(ctx)
}

func (s *AmortizationService) Setups(ctx context.Context) ([]core.SetupRule, error) {
	return s.store.ListSetups(ctx)
}

func (s *AmortizationService) ColumnMappings(ctx context.Context) ([]core.ColumnMapping, error) {
	return s.store.ListColumnMappings(ctx)
}

func (s *AmortizationService) SaveColumnMappings(ctx context.Context, mappings []core.ColumnMapping) error {
	for _, m := range mappings {
		if m.SourceColumn == "" || m.TargetField == "" {
			return fmt.Errorf("column mapping needs both source and target")
		}
	}
	return s.store.ReplaceColumnMappings(ctx, mappings)
}

// Run executes the engine over the stored transactions and setups. Skipped
// groups are reported in the result, never as an error.
func (s *AmortizationService) Run(ctx context.Context) (core.RunResult, error) {
	txs, err := s.store.ListTransactions(ctx)
	if err != nil {
		return core.RunResult{}, fmt.Errorf("load transactions: %w", err)
	}
	setups, err := s.store.ListSetups(ctx)
	if err != nil {
		return core.RunResult{}, fmt.Errorf("load setups: %w", err)
	}

	result := core.Run(txs, setups)

	slog.InfoContext(ctx, "Calculation run complete",
		"entry_count", len(result.Schedule),
		"skipped_count", len(result.Skipped))
	for _, d := range result.Skipped {
		slog.WarnContext(ctx, "Skipped group",
			"payee_id", d.PayeeID,
			"product_id", d.ProductID,
			"reason", d.Reason)
	}

	return result, nil
}

// ExportSchedule serializes entries into a workbook and returns its filename
// and bytes.
func (s *AmortizationService) ExportSchedule(entries []core.ScheduleEntry) (string, []byte, error) {
	f, err := xlsx.WriteSchedule(entries)
	if err != nil {
		return "", nil, fmt.Errorf("build workbook: %w", err)
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		return "", nil, fmt.Errorf("serialize workbook: %w", err)
	}
	return xlsx.ScheduleFilename(time.Now()), buf.Bytes(), nil
}

// ExportOverview serializes overview rows into a workbook and returns its
// filename and bytes.
func (s *AmortizationService) ExportOverview(entries []core.OverviewEntry) (string, []byte, error) {
	f, err := xlsx.WriteOverview(entries)
	if err != nil {
		return "", nil, fmt.Errorf("build workbook: %w", err)
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		return "", nil, fmt.Errorf("serialize workbook: %w", err)
	}
	return xlsx.OverviewFilename(time.Now()), buf.Bytes(), nil
}

// NotifyExport publishes an export notice for the worker to mail out. A
// missing publisher or a publish failure never fails the export itself.
func (s *AmortizationService) NotifyExport(ctx context.Context, recipient, filename string, entryCount int) {
	if s.publisher == nil {
		slog.WarnContext(ctx, "Notice publisher not available, skipping export notice")
		return
	}
	msg := amqp.NewExportNoticeMessage(recipient, filename, entryCount)
	if err := s.publisher.PublishExportNotice(ctx, msg); err != nil {
		slog.ErrorContext(ctx, "Failed to publish export notice",
			"recipient", recipient, "error", err)
	}
}

// Options returns the distinct values of one dimension across the stored
// transactions, in first-appearance order. Feeds the dropdown filters.
func (s *AmortizationService) Options(ctx context.Context, dimension core.Dimension) ([]string, error) {
	switch dimension {
	case core.ByPayee, core.ByProduct:
	default:
		return nil, fmt.Errorf("%w: %q", core.ErrUnknownDimension, dimension)
	}

	txs, err := s.store.ListTransactions(ctx)
	if err != nil {
		return nil, fmt.Errorf("load transactions: %w", err)
	}

	seen := make(map[string]bool)
	var values []string
	for _, t := range txs {
		v := t.PayeeID
		if dimension == core.ByProduct {
			v = t.ProductID
		}
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		values = append(values, v)
	}
	return values, nil
}

func (s *AmortizationService) Close() error {
	return s.store.Close()
}
