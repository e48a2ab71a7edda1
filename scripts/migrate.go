package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/lakshayybhati/liftor-worker/internal/config"
	"github.com/lakshayybhati/liftor-worker/internal/pkg/database"
	"github.com/lakshayybhati/liftor-worker/internal/pkg/logger"
	"go.uber.org/zap"
)

func main() {
	// Initialize configuration
	if err := config.InitConfig(); err != nil {
		fmt.Printf("Failed to initialize config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	if err := logger.InitLogger(); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Logger.Sync()

	logger.Info("Starting database migration")

	// Initialize database connection
	if err := database.InitDatabase(); err != nil {
		logger.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer database.Close()

	db := database.GetDB()

	// Read schema file
	schemaPath := filepath.Join("database", "schema.sql")
	schemaSQL, err := os.ReadFile(schemaPath)
	if err != nil {
		logger.Fatal("Failed to read schema file", zap.Error(err), zap.String("path", schemaPath))
	}

	logger.Info("Executing schema migration...")

	if err := db.Exec(string(schemaSQL)).Error; err != nil {
		logger.Fatal("Failed to execute schema migration", zap.Error(err))
	}

	logger.Info("Schema migration completed successfully")
}
