package core

import (
	"sort"

	"github.com/shopspring/decimal"
)

// ChartPoint is one bar or slice in a chart series.
type ChartPoint struct {
	Label  string          `json:"label"`
	Amount decimal.Decimal `json:"amount"`
}

// MonthlySeries buckets schedule amounts by payment month. Labels are
// "YYYY-MM", sorted chronologically.
func MonthlySeries(entries []ScheduleEntry) []ChartPoint {
	totals := make(map[string]decimal.Decimal)
	for _, e := range entries {
		month := e.PaymentDate.Format("2006-01")
		totals[month] = totals[month].Add(e.InstallmentAmount)
	}
	return sortedPoints(totals)
}

// DimensionSeries buckets schedule amounts by one grouping dimension,
// sorted by label.
func DimensionSeries(entries []ScheduleEntry, dim Dimension) ([]ChartPoint, error) {
	totals := make(map[string]decimal.Decimal)
	for _, e := range entries {
		key, err := dimensionKey(e, dim)
		if err != nil {
			return nil, err
		}
		if key == "" {
			key = UnknownValue
		}
		totals[key] = totals[key].Add(e.InstallmentAmount)
	}
	return sortedPoints(totals), nil
}

func sortedPoints(totals map[string]decimal.Decimal) []ChartPoint {
	points := make([]ChartPoint, 0, len(totals))
	for label, amount := range totals {
		points = append(points, ChartPoint{Label: label, Amount: amount})
	}
	sort.Slice(points, func(i, j int) bool { return points[i].Label < points[j].Label })
	return points
}
