package repository

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/iliyamo/bank-assistant/internal/apperr"
	"github.com/iliyamo/bank-assistant/internal/model"
)

// CSVStore keeps customer records in a comma-separated file with a header
// row. Reads parse the whole file; writes rewrite the whole file through a
// temporary file renamed over the original, so readers never observe a
// partially written table. Writers inside one process are serialized.
type CSVStore struct {
	path string
	mu   sync.Mutex
}

func NewCSVStore(path string) *CSVStore { return &CSVStore{path: path} }

// Path returns the backing file location.
func (s *CSVStore) Path() string { return s.path }

// Scan implements CustomerStore.
func (s *CSVStore) Scan(ctx context.Context) ([]model.Customer, error) {
	_, list, err := s.read()
	if err != nil {
		log.Error().Err(err).Str("path", s.path).Msg("load customer records")
		return nil, err
	}
	return list, nil
}

// Get implements CustomerStore. The first matching username wins.
func (s *CSVStore) Get(ctx context.Context, username string) (model.Customer, error) {
	list, err := s.Scan(ctx)
	if err != nil {
		return model.Customer{}, err
	}
	return findFirst(list, "username", username)
}

// GetByID implements CustomerStore.
func (s *CSVStore) GetByID(ctx context.Context, customerID string) (model.Customer, error) {
	list, err := s.Scan(ctx)
	if err != nil {
		return model.Customer{}, err
	}
	return findFirst(list, "customer_id", customerID)
}

// Put implements CustomerStore.
func (s *CSVStore) Put(ctx context.Context, c model.Customer) error { return putVia(ctx, s, c) }

// Rewrite implements CustomerStore. Nothing is written when mutate changes
// no record.
func (s *CSVStore) Rewrite(ctx context.Context, mutate func(*model.Customer) bool) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	header, list, err := s.read()
	if err != nil {
		log.Error().Err(err).Str("path", s.path).Msg("load customer records for rewrite")
		return 0, err
	}
	changed := 0
	for i := range list {
		if mutate(&list[i]) {
			changed++
		}
	}
	if changed == 0 {
		return 0, nil
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	header = withColumns(header, "reset_token", "reset_token_expiry")
	if err := s.write(header, list); err != nil {
		log.Error().Err(err).Str("path", s.path).Msg("rewrite customer records")
		return 0, err
	}
	return changed, nil
}

func (s *CSVStore) read() ([]string, []model.Customer, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: open records: %v", apperr.ErrStorage, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	header, err := r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil, fmt.Errorf("%w: records file has no header", apperr.ErrStorage)
		}
		return nil, nil, fmt.Errorf("%w: read header: %v", apperr.ErrStorage, err)
	}
	if err := checkHeader(header); err != nil {
		return nil, nil, err
	}

	var list []model.Customer
	for {
		row, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("%w: parse records: %v", apperr.ErrStorage, err)
		}
		var c model.Customer
		for i, col := range header {
			c.Set(col, row[i])
		}
		if err := c.Validate(); err != nil {
			return nil, nil, fmt.Errorf("%w: %v", apperr.ErrStorage, err)
		}
		list = append(list, c)
	}
	return header, list, nil
}

func (s *CSVStore) write(header []string, list []model.Customer) error {
	tmp, err := os.CreateTemp(filepath.Dir(s.path), "."+filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("%w: create temp file: %v", apperr.ErrStorage, err)
	}
	defer os.Remove(tmp.Name()) // no-op after a successful rename

	w := csv.NewWriter(tmp)
	if err := w.Write(header); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: write header: %v", apperr.ErrStorage, err)
	}
	row := make([]string, len(header))
	for i := range list {
		for j, col := range header {
			row[j] = list[i].Get(col)
		}
		if err := w.Write(row); err != nil {
			tmp.Close()
			return fmt.Errorf("%w: write record: %v", apperr.ErrStorage, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: flush records: %v", apperr.ErrStorage, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: sync records: %v", apperr.ErrStorage, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: close temp file: %v", apperr.ErrStorage, err)
	}
	if fi, err := os.Stat(s.path); err == nil {
		_ = os.Chmod(tmp.Name(), fi.Mode().Perm())
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("%w: replace records: %v", apperr.ErrStorage, err)
	}
	return nil
}

// checkHeader requires the columns the application reads or writes.
func checkHeader(header []string) error {
	seen := make(map[string]bool, len(header))
	for _, col := range header {
		if seen[col] {
			return fmt.Errorf("%w: duplicate column %q", apperr.ErrStorage, col)
		}
		seen[col] = true
	}
	for _, col := range []string{"customer_id", "username", "password_hash", "account_type",
		"balance", "credit_score", "loan_amounts", "monthly_payments"} {
		if !seen[col] {
			return fmt.Errorf("%w: missing column %q", apperr.ErrStorage, col)
		}
	}
	return nil
}

// withColumns appends any of cols missing from header, keeping the existing
// order intact.
func withColumns(header []string, cols ...string) []string {
	out := header
	for _, col := range cols {
		found := false
		for _, h := range header {
			if h == col {
				found = true
				break
			}
		}
		if !found {
			out = append(out[:len(out):len(out)], col)
		}
	}
	return out
}
