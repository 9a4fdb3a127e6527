package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/naufalrf4/backend-simonair4-sub000/internal/models"

	"go.uber.org/zap"
)

// Anomaly categories reported by CountAnomalies
const (
	AnomalyTemperatureRange = "temperature_out_of_range"
	AnomalyPHRange          = "ph_out_of_range"
	AnomalyNegativeTDS      = "negative_tds"
	AnomalyNegativeDO       = "negative_do_level"
	AnomalyEmptyReading     = "empty_reading"
	AnomalyFutureTimestamp  = "future_timestamp"
	AnomalyNonPositiveSize  = "non_positive_size"
	AnomalyMissingDerived   = "missing_derived_fields"
)

// PostgresMaintenanceRepository integrity and cleanup queries
type PostgresMaintenanceRepository struct {
	db     *sql.DB
	logger *zap.Logger
	now    func() time.Time
}

// NewPostgresMaintenanceRepository creates a new maintenance repository
func NewPostgresMaintenanceRepository(db *sql.DB, logger *zap.Logger) *PostgresMaintenanceRepository {
	return &PostgresMaintenanceRepository{
		db:     db,
		logger: logger,
		now:    time.Now,
	}
}

// CountAnomalies scans sensor_data and fish_growth for out-of-range or inconsistent rows
func (r *PostgresMaintenanceRepository) CountAnomalies(ctx context.Context) (*models.IntegrityReport, error) {
	sensorQuery := `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE temperature IS NOT NULL AND (temperature < -5 OR temperature > 60)),
			COUNT(*) FILTER (WHERE ph IS NOT NULL AND (ph < 0 OR ph > 14)),
			COUNT(*) FILTER (WHERE tds IS NOT NULL AND tds < 0),
			COUNT(*) FILTER (WHERE do_level IS NOT NULL AND do_level < 0),
			COUNT(*) FILTER (WHERE temperature IS NULL AND ph IS NULL AND tds IS NULL AND do_level IS NULL),
			COUNT(*) FILTER (WHERE time > NOW() + INTERVAL '1 hour'),
			COUNT(*) FILTER (WHERE
				(temperature IS NOT NULL AND (temperature < -5 OR temperature > 60))
				OR (ph IS NOT NULL AND (ph < 0 OR ph > 14))
				OR (tds IS NOT NULL AND tds < 0)
				OR (do_level IS NOT NULL AND do_level < 0)
				OR (temperature IS NULL AND ph IS NULL AND tds IS NULL AND do_level IS NULL)
				OR time > NOW() + INTERVAL '1 hour')
		FROM sensor_data
	`

	var (
		sensorTotal, tempRange, phRange, negTDS, negDO, empty, future, sensorInvalid int64
	)
	if err := r.db.QueryRowContext(ctx, sensorQuery).Scan(
		&sensorTotal, &tempRange, &phRange, &negTDS, &negDO, &empty, &future, &sensorInvalid,
	); err != nil {
		return nil, fmt.Errorf("failed to count sensor anomalies: %w", err)
	}

	growthQuery := `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE length_cm <= 0 OR weight_gram <= 0),
			COUNT(*) FILTER (WHERE length_cm IS NOT NULL AND weight_gram IS NOT NULL
				AND (biomass_kg IS NULL OR condition_indicator IS NULL)),
			COUNT(*) FILTER (WHERE length_cm <= 0 OR weight_gram <= 0
				OR (length_cm IS NOT NULL AND weight_gram IS NOT NULL
					AND (biomass_kg IS NULL OR condition_indicator IS NULL)))
		FROM fish_growth
	`

	var growthTotal, nonPositive, missingDerived, growthInvalid int64
	if err := r.db.QueryRowContext(ctx, growthQuery).Scan(
		&growthTotal, &nonPositive, &missingDerived, &growthInvalid,
	); err != nil {
		return nil, fmt.Errorf("failed to count growth anomalies: %w", err)
	}

	return &models.IntegrityReport{
		TotalRecords: sensorTotal + growthTotal,
		Anomalies: map[string]int64{
			AnomalyTemperatureRange: tempRange,
			AnomalyPHRange:          phRange,
			AnomalyNegativeTDS:      negTDS,
			AnomalyNegativeDO:       negDO,
			AnomalyEmptyReading:     empty,
			AnomalyFutureTimestamp:  future,
			AnomalyNonPositiveSize:  nonPositive,
			AnomalyMissingDerived:   missingDerived,
		},
		InvalidRecords: sensorInvalid + growthInvalid,
		CheckedAt:      r.now(),
	}, nil
}

// DeleteDuplicateGrowthRecords see MaintenanceRepository
func (r *PostgresMaintenanceRepository) DeleteDuplicateGrowthRecords(ctx context.Context) (int64, error) {
	query := `
		DELETE FROM fish_growth f
		USING fish_growth g
		WHERE f.device_id = g.device_id
		  AND f.measurement_date = g.measurement_date
		  AND (f.created_at < g.created_at
		       OR (f.created_at = g.created_at AND f.id < g.id))
	`

	result, err := r.db.ExecContext(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("failed to delete duplicate growth records: %w", err)
	}

	removed, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	if removed > 0 {
		r.logger.Info("Removed duplicate growth records", zap.Int64("removed", removed))
	}
	return removed, nil
}
