package repository

import (
	"context"
	"fmt"

	"github.com/iliyamo/bank-assistant/internal/apperr"
	"github.com/iliyamo/bank-assistant/internal/model"
)

// CustomerStore is the narrow contract every record store backend fulfils.
// Scan returns records in store order. Rewrite applies mutate to every record
// and persists the ones for which it returns true; it reports how many
// records changed.
type CustomerStore interface {
	Scan(ctx context.Context) ([]model.Customer, error)
	Get(ctx context.Context, username string) (model.Customer, error)
	GetByID(ctx context.Context, customerID string) (model.Customer, error)
	Put(ctx context.Context, c model.Customer) error
	Rewrite(ctx context.Context, mutate func(*model.Customer) bool) (int, error)
}

// findFirst returns the first record whose column col equals value.
func findFirst(list []model.Customer, col, value string) (model.Customer, error) {
	for i := range list {
		if list[i].Get(col) == value {
			return list[i], nil
		}
	}
	return model.Customer{}, fmt.Errorf("%s %q: %w", col, value, apperr.ErrNotFound)
}

// putVia implements Put on top of Rewrite: the first record with the same
// username is replaced, every other record is left untouched.
func putVia(ctx context.Context, s CustomerStore, c model.Customer) error {
	done := false
	n, err := s.Rewrite(ctx, func(cur *model.Customer) bool {
		if done || cur.Username != c.Username {
			return false
		}
		*cur = c
		done = true
		return true
	})
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("username %q: %w", c.Username, apperr.ErrNotFound)
	}
	return nil
}
