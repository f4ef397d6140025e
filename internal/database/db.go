package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"

	"github.com/iliyamo/bank-assistant/internal/config"
	"github.com/iliyamo/bank-assistant/internal/model"
)

// Open connects to MySQL and verifies the connection.
func Open(cfg config.Config) (*sql.DB, error) {
	auth := cfg.DBUser
	if cfg.DBPass != "" {
		auth = fmt.Sprintf("%s:%s", cfg.DBUser, cfg.DBPass)
	}
	dsn := fmt.Sprintf("%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=true&loc=UTC",
		auth, cfg.DBHost, cfg.DBPort, cfg.DBName)

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// CreateCustomersTable creates the customers table when it does not exist.
// Every record column is stored as nullable text, exactly as the CSV holds it.
func CreateCustomersTable(ctx context.Context, db *sql.DB) error {
	cols := make([]string, 0, len(model.Columns)+2)
	cols = append(cols, "row_id BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY")
	for _, col := range model.Columns {
		typ := "VARCHAR(255)"
		if col == "common_issues" || col == "security_question" {
			typ = "TEXT"
		}
		cols = append(cols, col+" "+typ+" NULL")
	}
	cols = append(cols, "INDEX idx_customers_username (username)", "INDEX idx_customers_customer_id (customer_id)")
	_, err := db.ExecContext(ctx, "CREATE TABLE IF NOT EXISTS customers (\n  "+strings.Join(cols, ",\n  ")+"\n) DEFAULT CHARSET=utf8mb4")
	return err
}
