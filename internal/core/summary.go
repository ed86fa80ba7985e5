package core

import (
	"errors"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
)

// Dimension selects the grouping key for Summarize.
type Dimension string

const (
	ByPayee          Dimension = "payeeId"
	ByOrder          Dimension = "orderId"
	ByProduct        Dimension = "productId"
	ByClassification Dimension = "payrollClassification"
)

// Sentinels used in summary display fields when a group spans several
// distinct values, or none at all.
const (
	MultipleValues = "Multiple"
	UnknownValue   = "Unknown"
)

// SummaryRow aggregates schedule entries sharing one dimension value.
type SummaryRow struct {
	Key                   string          `json:"key"`
	PayeeID               string          `json:"payeeId"`
	OrderID               string          `json:"orderId"`
	ProductID             string          `json:"productId"`
	PayrollClassification string          `json:"payrollClassification"`
	PaymentDates          string          `json:"paymentDates"`
	TotalAmount           decimal.Decimal `json:"totalAmount"`
	RecordCount           int             `json:"recordCount"`
}

// SummaryResult is the aggregated schedule plus its grand total.
type SummaryResult struct {
	GroupedBy  Dimension       `json:"groupedBy"`
	Rows       []SummaryRow    `json:"rows"`
	GrandTotal decimal.Decimal `json:"grandTotal"`
}

var ErrUnknownDimension = errors.New("unknown summary dimension")

func dimensionKey(e ScheduleEntry, dim Dimension) (string, error) {
	switch dim {
	case ByPayee:
		return e.PayeeID, nil
	case ByOrder:
		return e.OrderID, nil
	case ByProduct:
		return e.ProductID, nil
	case ByClassification:
		return e.PayrollClassification, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownDimension, dim)
	}
}

// Summarize groups schedule entries by dim, sums their amounts and collapses
// the display fields. A field that varies within a group reads "Multiple";
// an empty key reads "Unknown". Rows come back sorted by key.
func Summarize(entries []ScheduleEntry, dim Dimension) (SummaryResult, error) {
	type bucket struct {
		row     SummaryRow
		minDate string
		maxDate string
	}
	buckets := make(map[string]*bucket)
	for _, e := range entries {
		key, err := dimensionKey(e, dim)
		if err != nil {
			return SummaryResult{}, err
		}
		if key == "" {
			key = UnknownValue
		}
		date := e.PaymentDate.Format("2006-01-02")
		b, ok := buckets[key]
		if !ok {
			buckets[key] = &bucket{
				row: SummaryRow{
					Key:                   key,
					PayeeID:               e.PayeeID,
					OrderID:               e.OrderID,
					ProductID:             e.ProductID,
					PayrollClassification: e.PayrollClassification,
					TotalAmount:           e.InstallmentAmount,
					RecordCount:           1,
				},
				minDate: date,
				maxDate: date,
			}
			continue
		}
		b.row.TotalAmount = b.row.TotalAmount.Add(e.InstallmentAmount)
		b.row.RecordCount++
		if e.PayeeID != b.row.PayeeID {
			b.row.PayeeID = MultipleValues
		}
		if e.OrderID != b.row.OrderID {
			b.row.OrderID = MultipleValues
		}
		if e.ProductID != b.row.ProductID {
			b.row.ProductID = MultipleValues
		}
		if e.PayrollClassification != b.row.PayrollClassification {
			b.row.PayrollClassification = MultipleValues
		}
		if date < b.minDate {
			b.minDate = date
		}
		if date > b.maxDate {
			b.maxDate = date
		}
	}

	keys := make([]string, 0, len(buckets))
	for k := range buckets {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	result := SummaryResult{GroupedBy: dim, Rows: make([]SummaryRow, 0, len(keys))}
	for _, k := range keys {
		b := buckets[k]
		if b.minDate == b.maxDate {
			b.row.PaymentDates = b.minDate
		} else {
			b.row.PaymentDates = b.minDate + " - " + b.maxDate
		}
		result.GrandTotal = result.GrandTotal.Add(b.row.TotalAmount)
		result.Rows = append(result.Rows, b.row)
	}
	return result, nil
}
