package repository

import (
	"database/sql"

	"go.uber.org/zap"
)

// PostgresStore Store backed by one PostgreSQL pool
type PostgresStore struct {
	*PostgresSensorReadingRepository
	*PostgresGrowthRecordRepository
	*PostgresManualMeasurementRepository
	*PostgresMaintenanceRepository
}

// NewPostgresStore creates all table repositories over db
func NewPostgresStore(db *sql.DB, logger *zap.Logger) *PostgresStore {
	return &PostgresStore{
		PostgresSensorReadingRepository:     NewPostgresSensorReadingRepository(db, logger),
		PostgresGrowthRecordRepository:      NewPostgresGrowthRecordRepository(db, logger),
		PostgresManualMeasurementRepository: NewPostgresManualMeasurementRepository(db, logger),
		PostgresMaintenanceRepository:       NewPostgresMaintenanceRepository(db, logger),
	}
}

var _ Store = (*PostgresStore)(nil)
