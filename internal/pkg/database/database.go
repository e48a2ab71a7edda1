package database

import (
	"fmt"

	"github.com/lakshayybhati/liftor-worker/internal/config"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var db *gorm.DB

func InitDatabase() error {
	pgCfg := config.GlobalConfig.Database.Postgres

	gormDB, err := gorm.Open(postgres.Open(pgCfg.DSN), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}

	sqlDB, err := gormDB.DB()
	if err != nil {
		return fmt.Errorf("failed to get sql.DB: %w", err)
	}
	sqlDB.SetMaxOpenConns(pgCfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(pgCfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(pgCfg.ConnMaxLifetime)

	db = gormDB
	return nil
}

func GetDB() *gorm.DB {
	return db
}

func Close() error {
	if db == nil {
		return nil
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Ping verifies connectivity for the health endpoint.
func Ping() error {
	if db == nil {
		return fmt.Errorf("database not initialized")
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}
