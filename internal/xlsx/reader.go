// Package xlsx reads uploaded transaction and setup workbooks and writes
// schedule, overview and template workbooks. All parsing happens on the first
// sheet; the header row drives column resolution, optionally renamed through
// stored column mappings before any field lookup.
package xlsx

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"commissions/internal/core"
)

// Canonical column names. Uploads may use different headers as long as a
// column mapping renames them to these.
const (
	ColPayeeID          = "PayeeId"
	ColOrderID          = "OrderId"
	ColProduct          = "Product"
	ColTotalIncentive   = "Total Incentive"
	ColCustomer         = "Customer"
	ColCapPercent       = "Cap %"
	ColTerm             = "Term"
	ColFrequency        = "Payment Frequency"
	ColClassification   = "Payroll Classification"
	ColPaymentStart     = "Payment Start Date"
	ColPlan             = "Plan"
	ColDataType         = "Data Type"
	ColDataTypeName     = "Data Type Name"
	ColAccountType      = "Account Type"
	ColExpenseStartDate = "Expense Start Date"
	ColExpenseEndDate   = "Expense End Date"
	ColNotes            = "Notes"
)

var requiredTransactionColumns = []string{ColPayeeID, ColOrderID, ColProduct, ColTotalIncentive}

var requiredSetupColumns = []string{ColCapPercent, ColTerm, ColFrequency, ColClassification, ColPaymentStart, ColProduct}

// MissingColumnsError names the required columns absent from an upload. The
// check runs against the header before any row is processed.
type MissingColumnsError struct {
	Columns []string
}

func (e *MissingColumnsError) Error() string {
	return fmt.Sprintf("missing required columns: %s", strings.Join(e.Columns, ", "))
}

// header maps canonical column names to zero-based cell indexes.
type header map[string]int

func readSheet(r io.Reader) ([][]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	if sheet == "" {
		return nil, fmt.Errorf("workbook has no sheets")
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %s: %w", sheet, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("sheet %s is empty", sheet)
	}
	return rows, nil
}

func buildHeader(row []string, mappings []core.ColumnMapping) header {
	rename := make(map[string]string, len(mappings))
	for _, m := range mappings {
		rename[m.SourceColumn] = m.TargetField
	}
	h := make(header, len(row))
	for i, cell := range row {
		name := strings.TrimSpace(cell)
		if target, ok := rename[name]; ok {
			name = target
		}
		if name != "" {
			h[name] = i
		}
	}
	return h
}

func (h header) missing(required []string) []string {
	var missing []string
	for _, col := range required {
		if _, ok := h[col]; !ok {
			missing = append(missing, col)
		}
	}
	return missing
}

func (h header) cell(row []string, col string) string {
	i, ok := h[col]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func blank(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

// ParseTransactions reads a transaction workbook. Column mappings are applied
// to the header first, then the required columns are presence-checked. Rows
// without a payee or product are skipped; a malformed amount fails the whole
// upload with its row number.
func ParseTransactions(r io.Reader, mappings []core.ColumnMapping) ([]core.Transaction, error) {
	rows, err := readSheet(r)
	if err != nil {
		return nil, err
	}

	h := buildHeader(rows[0], mappings)
	if missing := h.missing(requiredTransactionColumns); len(missing) > 0 {
		return nil, &MissingColumnsError{Columns: missing}
	}

	var txs []core.Transaction
	for i, row := range rows[1:] {
		if blank(row) {
			continue
		}
		t := core.Transaction{
			PayeeID:   h.cell(row, ColPayeeID),
			OrderID:   h.cell(row, ColOrderID),
			ProductID: h.cell(row, ColProduct),
			Customer:  h.cell(row, ColCustomer),
		}
		if t.Validate() != nil {
			continue
		}
		t.Value, err = core.ParseAmount(h.cell(row, ColTotalIncentive))
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		txs = append(txs, t)
	}
	return txs, nil
}

// ParseSetups reads a setup workbook. Recognized columns land in the named
// rule fields; anything else is carried through in Extra. Malformed cap or
// term cells fall back to zero and get the engine defaults at run time.
func ParseSetups(r io.Reader, mappings []core.ColumnMapping) ([]core.SetupRule, error) {
	rows, err := readSheet(r)
	if err != nil {
		return nil, err
	}

	h := buildHeader(rows[0], mappings)
	if missing := h.missing(requiredSetupColumns); len(missing) > 0 {
		return nil, &MissingColumnsError{Columns: missing}
	}

	known := make(map[int]bool, len(h))
	for _, col := range []string{
		ColProduct, ColCapPercent, ColTerm, ColFrequency, ColClassification,
		ColPaymentStart, ColPlan, ColDataType, ColAccountType,
		ColExpenseStartDate, ColExpenseEndDate, ColNotes,
	} {
		if i, ok := h[col]; ok {
			known[i] = true
		}
	}

	var setups []core.SetupRule
	for _, row := range rows[1:] {
		if blank(row) {
			continue
		}
		s := core.SetupRule{
			ProductID:             h.cell(row, ColProduct),
			CapPercent:            parseCap(h.cell(row, ColCapPercent)),
			Term:                  parseTerm(h.cell(row, ColTerm)),
			Frequency:             core.Frequency(h.cell(row, ColFrequency)),
			PayrollClassification: h.cell(row, ColClassification),
			StartMonth:            h.cell(row, ColPaymentStart),
			Plan:                  h.cell(row, ColPlan),
			DataType:              h.cell(row, ColDataType),
			AccountType:           h.cell(row, ColAccountType),
			ExpenseStartDate:      h.cell(row, ColExpenseStartDate),
			ExpenseEndDate:        h.cell(row, ColExpenseEndDate),
			Notes:                 h.cell(row, ColNotes),
		}
		if s.ProductID == "" {
			continue
		}
		for name, i := range h {
			if known[i] || i >= len(row) {
				continue
			}
			if v := strings.TrimSpace(row[i]); v != "" {
				if s.Extra == nil {
					s.Extra = make(map[string]string)
				}
				s.Extra[name] = v
			}
		}
		setups = append(setups, s)
	}
	return setups, nil
}

func parseCap(s string) decimal.Decimal {
	s = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "%"))
	if s == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func parseTerm(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0
	}
	return n
}
