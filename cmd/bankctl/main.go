package main

import (
	"context"
	"fmt"
	"os"

	"github.com/iliyamo/bank-assistant/internal/cli"
	"github.com/iliyamo/bank-assistant/internal/config"
	"github.com/iliyamo/bank-assistant/internal/database"
	"github.com/iliyamo/bank-assistant/internal/repository"
)

func main() {
	open := func(ctx context.Context) (repository.CustomerStore, error) {
		cfg := config.Load()
		if cfg.RecordStore != "mysql" {
			return repository.NewCSVStore(cfg.DataFile), nil
		}
		db, err := database.Open(cfg)
		if err != nil {
			return nil, fmt.Errorf("connect mysql: %w", err)
		}
		return repository.NewMySQLStore(db), nil
	}
	if err := cli.NewRootCommand(open).Execute(); err != nil {
		os.Exit(1)
	}
}
