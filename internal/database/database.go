// Package database provides the shared TimescaleDB connection setup.
package database

import (
	"time"

	"github.com/peoplecounter/udpbridge/internal/log"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// CreateConnection opens a GORM connection to TimescaleDB, routing GORM's
// log output through the zap logger.
func CreateConnection(connectionString string) (*gorm.DB, error) {
	dbLogger := logger.New(
		zap.NewStdLog(log.GetZapLogger()),
		logger.Config{
			SlowThreshold: time.Second,
			LogLevel:      logger.Warn,
		},
	)

	db, err := gorm.Open(postgres.Open(connectionString), &gorm.Config{
		Logger: dbLogger,
	})
	if err != nil {
		return nil, err
	}
	return db, nil
}
