package repository

import (
	"context"
	"errors"
	"time"

	"github.com/naufalrf4/backend-simonair4-sub000/internal/models"
)

// ErrNotFound returned by single-row lookups
var ErrNotFound = errors.New("record not found")

// SensorReadingRepository read access to device samples
type SensorReadingRepository interface {
	// ReadingsByDeviceAndRange readings with from <= time <= to, ascending time
	ReadingsByDeviceAndRange(ctx context.Context, deviceID string, from, to time.Time) ([]*models.SensorReading, error)
}

// GrowthRecordRepository read access to fish growth records
type GrowthRecordRepository interface {
	// GrowthRecordsByDeviceAndRange records of the given devices (all devices when empty) with
	// from <= measurement_date <= to, ascending date then created_at
	GrowthRecordsByDeviceAndRange(ctx context.Context, deviceIDs []string, from, to time.Time) ([]*models.GrowthRecord, error)

	// RecentlyActiveDevices devices with growth records created since the given instant
	RecentlyActiveDevices(ctx context.Context, since time.Time) ([]string, error)
}

// ManualMeasurementRepository read access to operator spot checks
type ManualMeasurementRepository interface {
	// GetManualMeasurement returns ErrNotFound when the id does not exist
	GetManualMeasurement(ctx context.Context, id int64) (*models.ManualMeasurement, error)
}

// MaintenanceRepository queries used by background jobs
type MaintenanceRepository interface {
	CountAnomalies(ctx context.Context) (*models.IntegrityReport, error)

	// DeleteDuplicateGrowthRecords keeps the most recently created row per (device, date)
	DeleteDuplicateGrowthRecords(ctx context.Context) (int64, error)
}

// Store everything the engines and the scheduler read or maintain
type Store interface {
	SensorReadingRepository
	GrowthRecordRepository
	ManualMeasurementRepository
	MaintenanceRepository
}
