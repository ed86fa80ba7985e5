package core

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	Monthly   Frequency = "Monthly"
	Quarterly Frequency = "Quarterly"
	Annually  Frequency = "Annually"

	// OneTime is recorded on non-deferred schedule entries; it is never a
	// valid input frequency.
	OneTime Frequency = "One-time"

	// NonDeferred is the payroll classification that collapses a setup to a
	// single payment. Every other classification amortizes over the term.
	NonDeferred = "Non-Deferred"
)

type (
	Frequency string

	// Transaction is a single payee incentive record as delivered by the
	// backend view or an uploaded workbook. Immutable once read.
	Transaction struct {
		PayeeID   string          `json:"payeeId"`
		OrderID   string          `json:"orderId"`
		ProductID string          `json:"productId"`
		Customer  string          `json:"customer,omitempty"`
		Value     decimal.Decimal `json:"value"`
	}

	// SetupRule configures amortization for one product. At most one rule
	// exists per ProductID; transactions for products without a rule are
	// skipped by the engine.
	SetupRule struct {
		ProductID             string          `json:"productId"`
		CapPercent            decimal.Decimal `json:"capPercent"`
		Term                  int             `json:"term"`
		Frequency             Frequency       `json:"frequency"`
		PayrollClassification string          `json:"payrollClassification"`
		// StartMonth holds the payment start date as uploaded: either a
		// calendar date string or a spreadsheet serial number. The engine
		// resolves it with ResolveStartDate.
		StartMonth       string `json:"amortizationStartMonth,omitempty"`
		Plan             string `json:"plan,omitempty"`
		DataType         string `json:"dataType,omitempty"`
		AccountType      string `json:"accountType,omitempty"`
		ExpenseStartDate string `json:"expenseStartDate,omitempty"`
		ExpenseEndDate   string `json:"expenseEndDate,omitempty"`
		Notes            string `json:"notes,omitempty"`
		// Extra carries unrecognized workbook columns untouched, keyed by
		// their source column name.
		Extra map[string]string `json:"extra,omitempty"`
	}

	// GroupedPayee is the sum of all transactions sharing (PayeeID, ProductID).
	GroupedPayee struct {
		PayeeID          string          `json:"payeeId"`
		ProductID        string          `json:"productId"`
		OrderID          string          `json:"orderId"`
		Customer         string          `json:"customer,omitempty"`
		TotalValue       decimal.Decimal `json:"totalValue"`
		TransactionCount int             `json:"transactionCount"`
	}

	// ScheduleEntry is one payment installment.
	ScheduleEntry struct {
		PayeeID               string          `json:"payeeId"`
		OrderID               string          `json:"orderId"`
		ProductID             string          `json:"productId"`
		Customer              string          `json:"customer,omitempty"`
		InstallmentAmount     decimal.Decimal `json:"installmentAmount"`
		CapPercent            decimal.Decimal `json:"capPercent"`
		Term                  int             `json:"term"`
		Frequency             Frequency       `json:"frequency"`
		PaymentDate           time.Time       `json:"paymentDate"`
		PayrollClassification string          `json:"payrollClassification"`
		Note                  string          `json:"note"`
	}

	// OverviewEntry is one row per matched group, carrying the group total
	// alongside the setup that will amortize it.
	OverviewEntry struct {
		PayeeID               string          `json:"payeeId"`
		OrderID               string          `json:"orderId"`
		ProductID             string          `json:"productId"`
		Customer              string          `json:"customer,omitempty"`
		TotalIncentive        decimal.Decimal `json:"totalIncentive"`
		CapPercent            decimal.Decimal `json:"capPercent"`
		Term                  int             `json:"term"`
		Frequency             Frequency       `json:"frequency"`
		PaymentStartDate      time.Time       `json:"paymentStartDate"`
		PayrollClassification string          `json:"payrollClassification"`
		Note                  string          `json:"note"`
	}

	// ColumnMapping renames one external workbook column to a canonical field
	// before import.
	ColumnMapping struct {
		SourceColumn string `json:"sourceColumn"`
		TargetField  string `json:"targetField"`
	}
)

var (
	ErrEmptyPayeeID   = errors.New("empty payee id")
	ErrEmptyProductID = errors.New("empty product id")
	ErrInvalidAmount  = errors.New("invalid amount")
	ErrInvalidTerm    = errors.New("invalid term")
	ErrInvalidCap     = errors.New("cap percent out of range")
)

// Defaults applied to malformed or missing setup fields. A bad value is never
// fatal; the engine falls back and keeps going.
const (
	DefaultCapPercent = 100
	DefaultTerm       = 12
)

func (t Transaction) Validate() error {
	if strings.TrimSpace(t.PayeeID) == "" {
		return ErrEmptyPayeeID
	}
	if strings.TrimSpace(t.ProductID) == "" {
		return ErrEmptyProductID
	}
	return nil
}

// Normalize returns a copy of the rule with documented defaults applied:
// CapPercent -> 100, Term -> 12, Frequency -> Monthly.
func (s SetupRule) Normalize() SetupRule {
	if s.CapPercent.IsZero() {
		s.CapPercent = decimal.NewFromInt(DefaultCapPercent)
	}
	if s.Term <= 0 {
		s.Term = DefaultTerm
	}
	if strings.TrimSpace(string(s.Frequency)) == "" {
		s.Frequency = Monthly
	}
	return s
}

func (s SetupRule) Validate() error {
	if strings.TrimSpace(s.ProductID) == "" {
		return ErrEmptyProductID
	}
	if s.CapPercent.IsNegative() || s.CapPercent.GreaterThan(decimal.NewFromInt(100)) {
		return ErrInvalidCap
	}
	if s.Term < 0 {
		return ErrInvalidTerm
	}
	return nil
}

// Deferred reports whether the rule amortizes over the term. Anything that is
// not exactly "Non-Deferred" is deferred.
func (s SetupRule) Deferred() bool {
	return s.PayrollClassification != NonDeferred
}
