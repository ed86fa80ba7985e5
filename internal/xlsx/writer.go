package xlsx

import (
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"

	"commissions/internal/core"
)

var templateColumns = []string{
	ColPayeeID, ColProduct, ColTotalIncentive, ColCapPercent, ColTerm,
	ColFrequency, ColPaymentStart, ColPlan, ColDataType, ColDataTypeName,
	ColAccountType, ColClassification, ColExpenseStartDate, ColExpenseEndDate,
	ColNotes,
}

// ScheduleFilename names a schedule export for the given day.
func ScheduleFilename(t time.Time) string {
	return fmt.Sprintf("Amortization_Schedule_%s.xlsx", t.Format("2006-01-02"))
}

// OverviewFilename names an overview export for the given day.
func OverviewFilename(t time.Time) string {
	return fmt.Sprintf("Amortization_Overview_%s.xlsx", t.Format("2006-01-02"))
}

func newSheet(name string) *excelize.File {
	f := excelize.NewFile()
	f.SetSheetName("Sheet1", name)
	return f
}

func writeRow(f *excelize.File, sheet string, rowIdx int, cells []any) error {
	for col, v := range cells {
		cellName, err := excelize.CoordinatesToCellName(col+1, rowIdx)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, cellName, v); err != nil {
			return err
		}
	}
	return nil
}

func setWidths(f *excelize.File, sheet string, cols int) {
	last, _ := excelize.ColumnNumberToName(cols)
	f.SetColWidth(sheet, "A", last, 18)
}

// WriteSchedule serializes schedule entries into a workbook.
func WriteSchedule(entries []core.ScheduleEntry) (*excelize.File, error) {
	const sheet = "Schedule"
	f := newSheet(sheet)

	header := []any{
		ColPayeeID, ColOrderID, ColProduct, ColCustomer, "Installment Amount",
		ColCapPercent, ColTerm, ColFrequency, "Payment Date",
		ColClassification, ColNotes,
	}
	if err := writeRow(f, sheet, 1, header); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}

	for i, e := range entries {
		row := []any{
			e.PayeeID, e.OrderID, e.ProductID, e.Customer,
			e.InstallmentAmount.InexactFloat64(),
			e.CapPercent.InexactFloat64(), e.Term, string(e.Frequency),
			e.PaymentDate.Format("2006-01-02"),
			e.PayrollClassification, e.Note,
		}
		if err := writeRow(f, sheet, i+2, row); err != nil {
			return nil, fmt.Errorf("write row %d: %w", i+2, err)
		}
	}

	setWidths(f, sheet, len(header))
	return f, nil
}

// WriteOverview serializes overview rows into a workbook.
func WriteOverview(entries []core.OverviewEntry) (*excelize.File, error) {
	const sheet = "Overview"
	f := newSheet(sheet)

	header := []any{
		ColPayeeID, ColOrderID, ColProduct, ColCustomer, ColTotalIncentive,
		ColCapPercent, ColTerm, ColFrequency, ColPaymentStart,
		ColClassification, ColNotes,
	}
	if err := writeRow(f, sheet, 1, header); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}

	for i, e := range entries {
		row := []any{
			e.PayeeID, e.OrderID, e.ProductID, e.Customer,
			e.TotalIncentive.InexactFloat64(),
			e.CapPercent.InexactFloat64(), e.Term, string(e.Frequency),
			e.PaymentStartDate.Format("2006-01-02"),
			e.PayrollClassification, e.Note,
		}
		if err := writeRow(f, sheet, i+2, row); err != nil {
			return nil, fmt.Errorf("write row %d: %w", i+2, err)
		}
	}

	setWidths(f, sheet, len(header))
	return f, nil
}

// WriteTemplate produces a blank upload template carrying the full column
// set. Users fill it in and upload it back.
func WriteTemplate() (*excelize.File, error) {
	const sheet = "Template"
	f := newSheet(sheet)

	header := make([]any, len(templateColumns))
	for i, col := range templateColumns {
		header[i] = col
	}
	if err := writeRow(f, sheet, 1, header); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}

	setWidths(f, sheet, len(templateColumns))
	return f, nil
}
