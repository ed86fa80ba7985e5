package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/shopspring/decimal"

	"commissions/internal/core"

	_ "modernc.org/sqlite"
)

// SQLiteRepository persists transactions, amortization setups and column
// mappings. Setups and transactions are replaced wholesale on every save,
// matching the upload-and-recalculate workflow; there are no row-level
// updates.
type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// ReplaceTransactions swaps the whole transaction set for txs.
func (r *SQLiteRepository) ReplaceTransactions(ctx context.Context, txs []core.Transaction) error {
	dbTx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer dbTx.Rollback()

	if _, err := dbTx.ExecContext(ctx, `DELETE FROM transactions`); err != nil {
		return fmt.Errorf("clear transactions: %w", err)
	}

	stmt, err := dbTx.PrepareContext(ctx, `
		INSERT INTO transactions (payee_id, order_id, product_id, customer, value)
		VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, t := range txs {
		if _, err := stmt.ExecContext(ctx, t.PayeeID, t.OrderID, t.ProductID, t.Customer, t.Value.String()); err != nil {
			return fmt.Errorf("insert transaction for payee %s: %w", t.PayeeID, err)
		}
	}

	if err := dbTx.Commit(); err != nil {
		return fmt.Errorf("commit transactions: %w", err)
	}
	return nil
}

// ListTransactions returns all stored transactions in insertion order.
func (r *SQLiteRepository) ListTransactions(ctx context.Context) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT payee_id, order_id, product_id, customer, value
		FROM transactions ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query transactions: %w", err)
	}
	defer rows.Close()

	var txs []core.Transaction
	for rows.Next() {
		var t core.Transaction
		var value string
		if err := rows.Scan(&t.PayeeID, &t.OrderID, &t.ProductID, &t.Customer, &value); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		t.Value, err = decimal.NewFromString(value)
		if err != nil {
			return nil, fmt.Errorf("parse stored value %q: %w", value, err)
		}
		txs = append(txs, t)
	}
	return txs, rows.Err()
}

// ReplaceSetups swaps the whole setup table for setups and returns the fresh
// snapshot as stored. At most one row survives per product; duplicates in the
// batch keep the last row.
func (r *SQLiteRepository) ReplaceSetups(ctx context.Context, setups []core.SetupRule) ([]core.SetupRule, error) {
	dbTx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer dbTx.Rollback()

	if _, err := dbTx.ExecContext(ctx, `DELETE FROM amortization_setups`); err != nil {
		return nil, fmt.Errorf("clear setups: %w", err)
	}

	// OR REPLACE makes a duplicate product within one batch last-wins
	// instead of failing the whole save on the unique index.
	stmt, err := dbTx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO amortization_setups (
			product_id, cap_percent, term, frequency, payroll_classification,
			start_month, plan, data_type, account_type,
			expense_start_date, expense_end_date, notes, extra
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return nil, fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, s := range setups {
		extra, err := json.Marshal(s.Extra)
		if err != nil {
			return nil, fmt.Errorf("encode extra columns for product %s: %w", s.ProductID, err)
		}
		if _, err := stmt.ExecContext(ctx,
			s.ProductID, s.CapPercent.String(), s.Term, string(s.Frequency),
			s.PayrollClassification, s.StartMonth, s.Plan, s.DataType,
			s.AccountType, s.ExpenseStartDate, s.ExpenseEndDate, s.Notes, string(extra),
		); err != nil {
			return nil, fmt.Errorf("insert setup for product %s: %w", s.ProductID, err)
		}
	}

	if err := dbTx.Commit(); err != nil {
		return nil, fmt.Errorf("commit setups: %w", err)
	}
	return r.ListSetups(ctx)
}

// ListSetups returns all setup rules in insertion order.
func (r *SQLiteRepository) ListSetups(ctx context.Context) ([]core.SetupRule, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT product_id, cap_percent, term, frequency, payroll_classification,
		       start_month, plan, data_type, account_type,
		       expense_start_date, expense_end_date, notes, extra
		FROM amortization_setups ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query setups: %w", err)
	}
	defer rows.Close()

	var setups []core.SetupRule
	for rows.Next() {
		var s core.SetupRule
		var capPercent, frequency, extra string
		if err := rows.Scan(&s.ProductID, &capPercent, &s.Term, &frequency,
			&s.PayrollClassification, &s.StartMonth, &s.Plan, &s.DataType,
			&s.AccountType, &s.ExpenseStartDate, &s.ExpenseEndDate, &s.Notes, &extra,
		); err != nil {
			return nil, fmt.Errorf("scan setup: %w", err)
		}
		s.CapPercent, err = decimal.NewFromString(capPercent)
		if err != nil {
			return nil, fmt.Errorf("parse stored cap percent %q: %w", capPercent, err)
		}
		s.Frequency = core.Frequency(frequency)
		if extra != "" && extra != "{}" && extra != "null" {
			if err := json.Unmarshal([]byte(extra), &s.Extra); err != nil {
				return nil, fmt.Errorf("decode extra columns for product %s: %w", s.ProductID, err)
			}
		}
		setups = append(setups, s)
	}
	return setups, rows.Err()
}

// DeleteSetupByProduct removes one setup rule and returns the remaining set.
func (r *SQLiteRepository) DeleteSetupByProduct(ctx context.Context, productID string) ([]core.SetupRule, error) {
	if _, err := r.db.ExecContext(ctx,
		`DELETE FROM amortization_setups WHERE product_id = ?`, productID); err != nil {
		return nil, fmt.Errorf("delete setup for product %s: %w", productID, err)
	}
	return r.ListSetups(ctx)
}

// ListColumnMappings returns all stored column renames.
func (r *SQLiteRepository) ListColumnMappings(ctx context.Context) ([]core.ColumnMapping, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT source_column, target_field FROM column_mappings ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query column mappings: %w", err)
	}
	defer rows.Close()

	var mappings []core.ColumnMapping
	for rows.Next() {
		var m core.ColumnMapping
		if err := rows.Scan(&m.SourceColumn, &m.TargetField); err != nil {
			return nil, fmt.Errorf("scan column mapping: %w", err)
		}
		mappings = append(mappings, m)
	}
	return mappings, rows.Err()
}

// ReplaceColumnMappings swaps the whole mapping set for mappings.
func (r *SQLiteRepository) ReplaceColumnMappings(ctx context.Context, mappings []core.ColumnMapping) error {
	dbTx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer dbTx.Rollback()

	if _, err := dbTx.ExecContext(ctx, `DELETE FROM column_mappings`); err != nil {
		return fmt.Errorf("clear column mappings: %w", err)
	}

	for _, m := range mappings {
		if _, err := dbTx.ExecContext(ctx,
			`INSERT INTO column_mappings (source_column, target_field) VALUES (?, ?)`,
			m.SourceColumn, m.TargetField); err != nil {
			return fmt.Errorf("insert column mapping %s: %w", m.SourceColumn, err)
		}
	}

	if err := dbTx.Commit(); err != nil {
		return fmt.Errorf("commit column mappings: %w", err)
	}
	return nil
}
