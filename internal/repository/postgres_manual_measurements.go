package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/naufalrf4/backend-simonair4-sub000/internal/models"

	"go.uber.org/zap"
)

// PostgresManualMeasurementRepository manual_measurements access
type PostgresManualMeasurementRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewPostgresManualMeasurementRepository creates a new manual measurement repository
func NewPostgresManualMeasurementRepository(db *sql.DB, logger *zap.Logger) *PostgresManualMeasurementRepository {
	return &PostgresManualMeasurementRepository{
		db:     db,
		logger: logger,
	}
}

// GetManualMeasurement see ManualMeasurementRepository
func (r *PostgresManualMeasurementRepository) GetManualMeasurement(ctx context.Context, id int64) (*models.ManualMeasurement, error) {
	query := `
		SELECT
			id, device_id, measured_by, measurement_timestamp,
			temperature, ph, tds, do_level,
			notes, created_at
		FROM manual_measurements
		WHERE id = $1
	`

	var (
		m      models.ManualMeasurement
		values [4]sql.NullFloat64
		notes  sql.NullString
	)

	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&m.ID,
		&m.DeviceID,
		&m.MeasuredBy,
		&m.MeasuredAt,
		&values[0],
		&values[1],
		&values[2],
		&values[3],
		&notes,
		&m.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query manual measurement: %w", err)
	}

	targets := []**float64{&m.Temperature, &m.PH, &m.TDS, &m.DOLevel}
	for i, v := range values {
		if v.Valid {
			val := v.Float64
			*targets[i] = &val
		}
	}
	m.Notes = notes.String

	return &m, nil
}
