package core

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// freqMonths maps a payment frequency to its step in months. Unknown
// frequencies fall back to monthly.
var freqMonths = map[Frequency]int{
	Monthly:   1,
	Quarterly: 3,
	Annually:  12,
}

// MonthStep returns the number of months between installments for f.
func MonthStep(f Frequency) int {
	if m, ok := freqMonths[f]; ok {
		return m
	}
	return 1
}

// Diagnostic records why a grouped record was skipped. Skips are never
// fatal: the batch continues and the caller surfaces the diagnostics.
type Diagnostic struct {
	PayeeID   string `json:"payeeId"`
	ProductID string `json:"productId"`
	Reason    string `json:"reason"`
}

// RunResult is the output of one calculation run. Schedule and Overview are
// replaced wholesale on every run, never merged.
type RunResult struct {
	Schedule []ScheduleEntry `json:"schedule"`
	Overview []OverviewEntry `json:"overview"`
	Skipped  []Diagnostic    `json:"skipped,omitempty"`
}

// GroupByPayeeAndProduct partitions transactions by (PayeeID, ProductID),
// summing values and counting records per partition. OrderID and Customer
// keep the first-seen value. Groups come out in first-appearance order.
func GroupByPayeeAndProduct(txs []Transaction) []GroupedPayee {
	index := make(map[string]int, len(txs))
	var groups []GroupedPayee
	for _, t := range txs {
		key := t.PayeeID + "\x00" + t.ProductID
		if i, ok := index[key]; ok {
			groups[i].TotalValue = groups[i].TotalValue.Add(t.Value)
			groups[i].TransactionCount++
			continue
		}
		index[key] = len(groups)
		groups = append(groups, GroupedPayee{
			PayeeID:          t.PayeeID,
			ProductID:        t.ProductID,
			OrderID:          t.OrderID,
			Customer:         t.Customer,
			TotalValue:       t.Value,
			TransactionCount: 1,
		})
	}
	return groups
}

// ExcelSerialToDate converts a spreadsheet serial day number to a UTC date.
// Serial 25569 maps to the Unix epoch; serials above 59 are shifted one day
// to compensate for the format's historical 1900 leap-year bug. The exact
// arithmetic is kept bit-for-bit so uploaded workbooks round-trip.
func ExcelSerialToDate(serial float64) time.Time {
	const msPerDay = 24 * 60 * 60 * 1000
	days := serial - 25569
	if serial > 59 {
		days++
	}
	return time.UnixMilli(int64(days * msPerDay)).UTC()
}

// ResolveStartDate interprets a setup's start-month value: a numeric string
// is a spreadsheet serial, anything else is tried as a calendar date, and an
// absent value means "start now".
func ResolveStartDate(raw string) time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Now().UTC().Truncate(24 * time.Hour)
	}
	if serial, err := strconv.ParseFloat(raw, 64); err == nil {
		return ExcelSerialToDate(serial)
	}
	for _, layout := range []string{"2006-01-02", "2006-01-02T15:04:05Z07:00", "01/02/2006", "2006/01/02"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC()
		}
	}
	return time.Now().UTC().Truncate(24 * time.Hour)
}

// matchSetup finds the rule for a product. The product id is the one
// canonical matching key.
func matchSetup(setups []SetupRule, productID string) (SetupRule, bool) {
	for _, s := range setups {
		if s.ProductID == productID {
			return s.Normalize(), true
		}
	}
	return SetupRule{}, false
}

// ComputeSchedule groups the transactions and fans each matched group out
// into payment installments per its setup rule. Groups without a setup, and
// deferred groups whose term/frequency combination yields zero periods, are
// skipped with a diagnostic.
func ComputeSchedule(txs []Transaction, setups []SetupRule) ([]ScheduleEntry, []Diagnostic) {
	var (
		schedule []ScheduleEntry
		skipped  []Diagnostic
	)
	for _, g := range GroupByPayeeAndProduct(txs) {
		setup, ok := matchSetup(setups, g.ProductID)
		if !ok {
			skipped = append(skipped, Diagnostic{
				PayeeID:   g.PayeeID,
				ProductID: g.ProductID,
				Reason:    "no setup found for product",
			})
			continue
		}

		start := ResolveStartDate(setup.StartMonth)
		capped := applyCap(g.TotalValue, setup.CapPercent)

		if !setup.Deferred() {
			// Single payment; term and frequency do not apply.
			schedule = append(schedule, ScheduleEntry{
				PayeeID:               g.PayeeID,
				OrderID:               g.OrderID,
				ProductID:             g.ProductID,
				Customer:              g.Customer,
				InstallmentAmount:     Round2(capped),
				CapPercent:            setup.CapPercent,
				Term:                  0,
				Frequency:             OneTime,
				PaymentDate:           start,
				PayrollClassification: setup.PayrollClassification,
				Note:                  "Non-Deferred Payment",
			})
			continue
		}

		step := MonthStep(setup.Frequency)
		periods := setup.Term / step
		if periods == 0 {
			skipped = append(skipped, Diagnostic{
				PayeeID:   g.PayeeID,
				ProductID: g.ProductID,
				Reason:    fmt.Sprintf("term %d and frequency %s yield zero periods", setup.Term, setup.Frequency),
			})
			continue
		}

		installment := Round2(capped.Div(decimal.NewFromInt(int64(periods))))
		for i := 1; i <= periods; i++ {
			schedule = append(schedule, ScheduleEntry{
				PayeeID:               g.PayeeID,
				OrderID:               g.OrderID,
				ProductID:             g.ProductID,
				Customer:              g.Customer,
				InstallmentAmount:     installment,
				CapPercent:            setup.CapPercent,
				Term:                  setup.Term,
				Frequency:             setup.Frequency,
				PaymentDate:           start.AddDate(0, (i-1)*step, 0),
				PayrollClassification: setup.PayrollClassification,
				Note:                  fmt.Sprintf("Installment %d of %d", i, periods),
			})
		}
	}
	return schedule, skipped
}

// ComputeOverview emits one row per matched group: the grouped total plus the
// setup that governs it. Same matching and skip rules as ComputeSchedule,
// without the installment fan-out.
func ComputeOverview(txs []Transaction, setups []SetupRule) ([]OverviewEntry, []Diagnostic) {
	var (
		overview []OverviewEntry
		skipped  []Diagnostic
	)
	for _, g := range GroupByPayeeAndProduct(txs) {
		setup, ok := matchSetup(setups, g.ProductID)
		if !ok {
			skipped = append(skipped, Diagnostic{
				PayeeID:   g.PayeeID,
				ProductID: g.ProductID,
				Reason:    "no setup found for product",
			})
			continue
		}

		note := ""
		if g.TransactionCount > 1 {
			note = fmt.Sprintf("%d transactions combined", g.TransactionCount)
		}
		overview = append(overview, OverviewEntry{
			PayeeID:               g.PayeeID,
			OrderID:               g.OrderID,
			ProductID:             g.ProductID,
			Customer:              g.Customer,
			TotalIncentive:        Round2(g.TotalValue),
			CapPercent:            setup.CapPercent,
			Term:                  setup.Term,
			Frequency:             setup.Frequency,
			PaymentStartDate:      ResolveStartDate(setup.StartMonth),
			PayrollClassification: setup.PayrollClassification,
			Note:                  note,
		})
	}
	return overview, skipped
}

// Run computes schedule and overview in one pass over the same inputs.
func Run(txs []Transaction, setups []SetupRule) RunResult {
	schedule, skipped := ComputeSchedule(txs, setups)
	overview, _ := ComputeOverview(txs, setups)
	return RunResult{Schedule: schedule, Overview: overview, Skipped: skipped}
}

func applyCap(total, capPercent decimal.Decimal) decimal.Decimal {
	return total.Mul(capPercent).Div(decimal.NewFromInt(100))
}
