package app

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/yungbote/commonground-backend/internal/data/aggregates"
	"github.com/yungbote/commonground-backend/internal/data/db"
	"github.com/yungbote/commonground-backend/internal/data/memstore"
	"github.com/yungbote/commonground-backend/internal/data/repos"
	"github.com/yungbote/commonground-backend/internal/platform/logger"
)

// Storage bundles the repositories with the transaction runner that scopes
// them. DB is nil for the memory driver.
type Storage struct {
	DB     *gorm.DB
	Repos  repos.Set
	Runner aggregates.TxRunner
}

// OpenStorage connects the configured driver and, for SQL drivers, migrates
// the schema when migrate is set.
func OpenStorage(ctx context.Context, cfg Config, log *logger.Logger, migrate bool) (*Storage, error) {
	var gdb *gorm.DB
	switch cfg.DBDriver {
	case DriverMemory:
		log.Warn("using in-memory storage; data is lost on exit")
		store := memstore.New(log)
		return &Storage{Repos: store.Repos(), Runner: store}, nil
	case DriverSQLite:
		opened, err := db.OpenSQLite(cfg.SQLitePath, log)
		if err != nil {
			return nil, err
		}
		gdb = opened
	default:
		pg, err := db.NewPostgresService(cfg.Postgres, log)
		if err != nil {
			return nil, fmt.Errorf("init postgres: %w", err)
		}
		gdb = pg.DB()
	}

	if migrate {
		log.Info("migrating schema...", "driver", cfg.DBDriver)
		if err := db.AutoMigrateAll(gdb.WithContext(ctx)); err != nil {
			closeGorm(gdb)
			return nil, fmt.Errorf("%s automigrate: %w", cfg.DBDriver, err)
		}
	}
	return &Storage{
		DB:     gdb,
		Repos:  repos.NewGormSet(gdb, log),
		Runner: aggregates.NewGormTxRunner(gdb),
	}, nil
}

func (s *Storage) Close() {
	if s == nil || s.DB == nil {
		return
	}
	closeGorm(s.DB)
}

func closeGorm(gdb *gorm.DB) {
	if sqlDB, err := gdb.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
