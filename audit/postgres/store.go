// Package postgres provides PostgreSQL implementation of the audit.Store.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"github.com/nspcc-dev/savings-contract/audit"
	"github.com/shopspring/decimal"
)

const schema = `
CREATE TABLE IF NOT EXISTS savings_records (
	id          UUID PRIMARY KEY,
	kind        TEXT NOT NULL,
	account     TEXT NOT NULL,
	amount      NUMERIC NOT NULL,
	tx          TEXT NOT NULL,
	idx         INTEGER NOT NULL,
	observed_at TIMESTAMPTZ NOT NULL,
	UNIQUE (tx, idx)
);

CREATE TABLE IF NOT EXISTS savings_balances (
	account TEXT PRIMARY KEY,
	balance NUMERIC NOT NULL
);`

// Store is an audit.Store keeping records and balances in PostgreSQL.
type Store struct {
	db *sql.DB
}

// Open connects to the database by the given data source name and creates
// missing tables.
func Open(ctx context.Context, dsn string) (*Store, error) {
	connector, err := pq.NewConnector(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse DSN: %w", err)
	}

	db := sql.OpenDB(connector)

	err = db.PingContext(ctx)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	s := NewStore(db)

	err = s.Init(ctx)
	if err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

// NewStore constructs Store working with the given database.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Init creates missing tables.
func (s *Store) Init(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, schema)
	if err != nil {
		return fmt.Errorf("create tables: %w", err)
	}

	return nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Apply implements audit.Store.
func (s *Store) Apply(ctx context.Context, r audit.Record) (applied bool, err error) {
	const (
		insertRecord = `INSERT INTO savings_records (id, kind, account, amount, tx, idx, observed_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7) ON CONFLICT (tx, idx) DO NOTHING`
		updateBalance = `INSERT INTO savings_balances (account, balance) VALUES ($1, $2)
	ON CONFLICT (account) DO UPDATE SET balance = savings_balances.balance + EXCLUDED.balance`
	)

	dbTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin transaction: %w", err)
	}

	defer func() {
		if err != nil || !applied {
			_ = dbTx.Rollback()
		}
	}()

	res, err := dbTx.ExecContext(ctx, insertRecord,
		r.ID, string(r.Kind), r.Account, r.Amount, r.Tx.StringLE(), r.Index, r.ObservedAt)
	if err != nil {
		return false, fmt.Errorf("insert record: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("get number of inserted records: %w", err)
	}

	if n == 0 {
		return false, nil
	}

	_, err = dbTx.ExecContext(ctx, updateBalance, r.Account, r.Delta())
	if err != nil {
		return false, fmt.Errorf("update balance: %w", err)
	}

	err = dbTx.Commit()
	if err != nil {
		return false, fmt.Errorf("commit transaction: %w", err)
	}

	return true, nil
}

// Balance implements audit.Store.
func (s *Store) Balance(ctx context.Context, account string) (decimal.Decimal, error) {
	const query = `SELECT balance FROM savings_balances WHERE account = $1`

	var res decimal.Decimal

	err := s.db.QueryRowContext(ctx, query, account).Scan(&res)
	if errors.Is(err, sql.ErrNoRows) {
		return decimal.Zero, nil
	}
	if err != nil {
		return decimal.Zero, err
	}

	return res, nil
}

// Accounts implements audit.Store. Accounts are sorted.
func (s *Store) Accounts(ctx context.Context) ([]string, error) {
	const query = `SELECT account FROM savings_balances ORDER BY account`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}

	defer rows.Close()

	var res []string
	for rows.Next() {
		var acc string
		if err := rows.Scan(&acc); err != nil {
			return nil, err
		}
		res = append(res, acc)
	}

	return res, rows.Err()
}

var _ audit.Store = (*Store)(nil)
