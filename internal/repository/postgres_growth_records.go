package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/naufalrf4/backend-simonair4-sub000/internal/models"

	"github.com/lib/pq"
	"go.uber.org/zap"
)

// PostgresGrowthRecordRepository fish_growth access
type PostgresGrowthRecordRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewPostgresGrowthRecordRepository creates a new growth record repository
func NewPostgresGrowthRecordRepository(db *sql.DB, logger *zap.Logger) *PostgresGrowthRecordRepository {
	return &PostgresGrowthRecordRepository{
		db:     db,
		logger: logger,
	}
}

const growthRecordColumns = `
	id, device_id, measurement_date,
	length_cm, weight_gram, biomass_kg, condition_indicator,
	created_at`

// GrowthRecordsByDeviceAndRange see GrowthRecordRepository
func (r *PostgresGrowthRecordRepository) GrowthRecordsByDeviceAndRange(ctx context.Context, deviceIDs []string, from, to time.Time) ([]*models.GrowthRecord, error) {
	var (
		rows *sql.Rows
		err  error
	)

	if len(deviceIDs) == 0 {
		query := `SELECT` + growthRecordColumns + `
			FROM fish_growth
			WHERE measurement_date >= $1
			  AND measurement_date <= $2
			ORDER BY measurement_date ASC, created_at ASC, id ASC
		`
		rows, err = r.db.QueryContext(ctx, query, from, to)
	} else {
		query := `SELECT` + growthRecordColumns + `
			FROM fish_growth
			WHERE device_id = ANY($1)
			  AND measurement_date >= $2
			  AND measurement_date <= $3
			ORDER BY measurement_date ASC, created_at ASC, id ASC
		`
		rows, err = r.db.QueryContext(ctx, query, pq.Array(deviceIDs), from, to)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query growth records: %w", err)
	}
	defer rows.Close()

	var records []*models.GrowthRecord
	for rows.Next() {
		var (
			rec       models.GrowthRecord
			length    sql.NullFloat64
			weight    sql.NullFloat64
			biomass   sql.NullFloat64
			condition sql.NullString
		)

		if err := rows.Scan(
			&rec.ID,
			&rec.DeviceID,
			&rec.MeasurementDate,
			&length,
			&weight,
			&biomass,
			&condition,
			&rec.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan growth record: %w", err)
		}

		if length.Valid {
			rec.Length = &length.Float64
		}
		if weight.Valid {
			rec.Weight = &weight.Float64
		}
		if biomass.Valid {
			rec.Biomass = &biomass.Float64
		}
		if condition.Valid {
			c := models.ConditionCategory(condition.String)
			rec.Condition = &c
		}

		records = append(records, &rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate growth records: %w", err)
	}

	return records, nil
}

// RecentlyActiveDevices see GrowthRecordRepository
func (r *PostgresGrowthRecordRepository) RecentlyActiveDevices(ctx context.Context, since time.Time) ([]string, error) {
	query := `
		SELECT DISTINCT device_id
		FROM fish_growth
		WHERE created_at >= $1
		ORDER BY device_id
	`

	rows, err := r.db.QueryContext(ctx, query, since)
	if err != nil {
		return nil, fmt.Errorf("failed to query active devices: %w", err)
	}
	defer rows.Close()

	var devices []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan device id: %w", err)
		}
		devices = append(devices, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate active devices: %w", err)
	}

	return devices, nil
}
