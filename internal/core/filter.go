package core

// FilterCriteria narrows the computed schedule and overview. Dimensions
// combine with AND; values within a dimension combine with OR. An empty
// dimension matches everything.
type FilterCriteria struct {
	PayeeIDs        []string `json:"payeeIds,omitempty"`
	Products        []string `json:"products,omitempty"`
	Classifications []string `json:"classifications,omitempty"`
}

func (c FilterCriteria) IsEmpty() bool {
	return len(c.PayeeIDs) == 0 && len(c.Products) == 0 && len(c.Classifications) == 0
}

func (c FilterCriteria) matches(payeeID, productID, classification string) bool {
	return contains(c.PayeeIDs, payeeID) &&
		contains(c.Products, productID) &&
		contains(c.Classifications, classification)
}

func contains(values []string, v string) bool {
	if len(values) == 0 {
		return true
	}
	for _, x := range values {
		if x == v {
			return true
		}
	}
	return false
}

// ScheduleView holds the last run's results and serves filtered projections
// of them. Filters always apply against the pristine baseline, so applying a
// new filter replaces the previous one instead of stacking on it. The view
// itself is not safe for concurrent use; callers synchronize.
type ScheduleView struct {
	baseSchedule []ScheduleEntry
	baseOverview []OverviewEntry

	schedule []ScheduleEntry
	overview []OverviewEntry
	filtered bool
}

// NewScheduleView captures a run result as the baseline.
func NewScheduleView(schedule []ScheduleEntry, overview []OverviewEntry) *ScheduleView {
	v := &ScheduleView{baseSchedule: schedule, baseOverview: overview}
	v.Clear()
	return v
}

// Apply filters the baseline with c. An empty criteria is the same as Clear.
func (v *ScheduleView) Apply(c FilterCriteria) {
	if c.IsEmpty() {
		v.Clear()
		return
	}
	v.schedule = make([]ScheduleEntry, 0, len(v.baseSchedule))
	for _, e := range v.baseSchedule {
		if c.matches(e.PayeeID, e.ProductID, e.PayrollClassification) {
			v.schedule = append(v.schedule, e)
		}
	}
	v.overview = make([]OverviewEntry, 0, len(v.baseOverview))
	for _, e := range v.baseOverview {
		if c.matches(e.PayeeID, e.ProductID, e.PayrollClassification) {
			v.overview = append(v.overview, e)
		}
	}
	v.filtered = true
}

// Clear restores the unfiltered baseline.
func (v *ScheduleView) Clear() {
	v.schedule = v.baseSchedule
	v.overview = v.baseOverview
	v.filtered = false
}

func (v *ScheduleView) Schedule() []ScheduleEntry { return v.schedule }

func (v *ScheduleView) Overview() []OverviewEntry { return v.overview }

func (v *ScheduleView) IsFiltered() bool { return v.filtered }
