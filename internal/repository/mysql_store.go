package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/iliyamo/bank-assistant/internal/apperr"
	"github.com/iliyamo/bank-assistant/internal/model"
)

// MySQLStore keeps customer records in the `customers` table. The table has
// one nullable text column per record column plus an auto-increment row_id
// that defines store order.
type MySQLStore struct{ DB *sql.DB }

func NewMySQLStore(db *sql.DB) *MySQLStore { return &MySQLStore{DB: db} }

var selectCustomers = "SELECT row_id," + strings.Join(model.Columns, ",") + " FROM customers"

// Scan implements CustomerStore.
func (r *MySQLStore) Scan(ctx context.Context) ([]model.Customer, error) {
	rows, err := r.DB.QueryContext(ctx, selectCustomers+" ORDER BY row_id")
	if err != nil {
		return nil, fmt.Errorf("%w: query customers: %v", apperr.ErrStorage, err)
	}
	defer rows.Close()
	var list []model.Customer
	for rows.Next() {
		_, c, err := scanCustomer(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate customers: %v", apperr.ErrStorage, err)
	}
	return list, nil
}

// Get implements CustomerStore.
func (r *MySQLStore) Get(ctx context.Context, username string) (model.Customer, error) {
	return r.getBy(ctx, "username", username)
}

// GetByID implements CustomerStore.
func (r *MySQLStore) GetByID(ctx context.Context, customerID string) (model.Customer, error) {
	return r.getBy(ctx, "customer_id", customerID)
}

func (r *MySQLStore) getBy(ctx context.Context, col, value string) (model.Customer, error) {
	row := r.DB.QueryRowContext(ctx, selectCustomers+" WHERE "+col+"=? ORDER BY row_id LIMIT 1", value)
	_, c, err := scanCustomer(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Customer{}, fmt.Errorf("%s %q: %w", col, value, apperr.ErrNotFound)
	}
	return c, err
}

// Put implements CustomerStore.
func (r *MySQLStore) Put(ctx context.Context, c model.Customer) error { return putVia(ctx, r, c) }

// Rewrite implements CustomerStore. The rows are locked for the duration of
// the transaction and only changed rows are updated.
func (r *MySQLStore) Rewrite(ctx context.Context, mutate func(*model.Customer) bool) (int, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("%w: begin: %v", apperr.ErrStorage, err)
	}
	defer func() { _ = tx.Rollback() }()

	rows, err := tx.QueryContext(ctx, selectCustomers+" ORDER BY row_id FOR UPDATE")
	if err != nil {
		return 0, fmt.Errorf("%w: lock customers: %v", apperr.ErrStorage, err)
	}
	type entry struct {
		id uint64
		c  model.Customer
	}
	var all []entry
	for rows.Next() {
		id, c, err := scanCustomer(rows)
		if err != nil {
			rows.Close()
			return 0, err
		}
		all = append(all, entry{id, c})
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("%w: iterate customers: %v", apperr.ErrStorage, err)
	}

	sets := make([]string, len(model.Columns))
	for i, col := range model.Columns {
		sets[i] = col + "=?"
	}
	update := "UPDATE customers SET " + strings.Join(sets, ",") + " WHERE row_id=?"

	changed := 0
	for i := range all {
		if !mutate(&all[i].c) {
			continue
		}
		args := make([]any, 0, len(model.Columns)+1)
		for _, col := range model.Columns {
			args = append(args, all[i].c.Get(col))
		}
		args = append(args, all[i].id)
		if _, err := tx.ExecContext(ctx, update, args...); err != nil {
			return 0, fmt.Errorf("%w: update customer: %v", apperr.ErrStorage, err)
		}
		changed++
	}
	if changed == 0 {
		return 0, nil
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("%w: commit: %v", apperr.ErrStorage, err)
	}
	return changed, nil
}

type rowScanner interface{ Scan(dest ...any) error }

func scanCustomer(s rowScanner) (uint64, model.Customer, error) {
	var id uint64
	vals := make([]sql.NullString, len(model.Columns))
	dest := make([]any, 0, len(vals)+1)
	dest = append(dest, &id)
	for i := range vals {
		dest = append(dest, &vals[i])
	}
	if err := s.Scan(dest...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, model.Customer{}, err
		}
		return 0, model.Customer{}, fmt.Errorf("%w: scan customer: %v", apperr.ErrStorage, err)
	}
	var c model.Customer
	for i, col := range model.Columns {
		c.Set(col, vals[i].String)
	}
	if err := c.Validate(); err != nil {
		return 0, model.Customer{}, fmt.Errorf("%w: %v", apperr.ErrStorage, err)
	}
	return id, c, nil
}
