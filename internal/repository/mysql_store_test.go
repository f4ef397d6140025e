package repository

import (
	"context"
	"database/sql"
	"os"
	"testing"

	_ "github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/bank-assistant/internal/apperr"
	"github.com/iliyamo/bank-assistant/internal/database"
	"github.com/iliyamo/bank-assistant/internal/model"
)

// The MySQL store is exercised against a real server only when
// MYSQL_TEST_DSN points at a disposable database.
func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	dsn := os.Getenv("MYSQL_TEST_DSN")
	if dsn == "" {
		t.Skip("MYSQL_TEST_DSN not set")
	}
	db, err := sql.Open("mysql", dsn)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	ctx := context.Background()
	require.NoError(t, database.CreateCustomersTable(ctx, db))
	_, err = db.ExecContext(ctx, "DELETE FROM customers")
	require.NoError(t, err)
	_, err = db.ExecContext(ctx, `INSERT INTO customers (customer_id, username, password_hash, account_type, balance, credit_score, loan_amounts, monthly_payments)
		VALUES ('C001','jsmith','password','checking','1500.50','720','0','0'),
		       ('C002','jsmith','other','savings','1','600','0','0')`)
	require.NoError(t, err)
	return db
}

func TestMySQLStore(t *testing.T) {
	s := NewMySQLStore(openTestDB(t))
	ctx := context.Background()

	list, err := s.Scan(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "1500.50", list[0].Balance.String())

	c, err := s.Get(ctx, "jsmith")
	require.NoError(t, err)
	assert.Equal(t, "C001", c.CustomerID)

	n, err := s.Rewrite(ctx, func(c *model.Customer) bool {
		if c.CustomerID != "C002" {
			return false
		}
		c.ResetToken, c.ResetTokenExpiry = "tok", "2024-06-01T13:00:00Z"
		return true
	})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	c, err = s.GetByID(ctx, "C002")
	require.NoError(t, err)
	assert.Equal(t, "tok", c.ResetToken)

	_, err = s.GetByID(ctx, "C404")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}
