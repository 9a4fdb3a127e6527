package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/naufalrf4/backend-simonair4-sub000/internal/models"

	"go.uber.org/zap"
)

// PostgresSensorReadingRepository sensor_data access
type PostgresSensorReadingRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewPostgresSensorReadingRepository creates a new sensor reading repository
func NewPostgresSensorReadingRepository(db *sql.DB, logger *zap.Logger) *PostgresSensorReadingRepository {
	return &PostgresSensorReadingRepository{
		db:     db,
		logger: logger,
	}
}

// ReadingsByDeviceAndRange see SensorReadingRepository
func (r *PostgresSensorReadingRepository) ReadingsByDeviceAndRange(ctx context.Context, deviceID string, from, to time.Time) ([]*models.SensorReading, error) {
	query := `
		SELECT
			id, device_id, time,
			temperature, temperature_status,
			ph, ph_status,
			tds, tds_status,
			do_level, do_level_status
		FROM sensor_data
		WHERE device_id = $1
		  AND time >= $2
		  AND time <= $3
		ORDER BY time ASC, id ASC
	`

	rows, err := r.db.QueryContext(ctx, query, deviceID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to query sensor readings: %w", err)
	}
	defer rows.Close()

	var readings []*models.SensorReading
	for rows.Next() {
		var (
			reading models.SensorReading
			values  [4]sql.NullFloat64
			status  [4]sql.NullString
		)

		if err := rows.Scan(
			&reading.ID,
			&reading.DeviceID,
			&reading.Time,
			&values[0], &status[0],
			&values[1], &status[1],
			&values[2], &status[2],
			&values[3], &status[3],
		); err != nil {
			return nil, fmt.Errorf("failed to scan sensor reading: %w", err)
		}

		reading.Channels = make(map[models.Channel]models.ChannelReading, len(models.AllChannels))
		for i, ch := range models.AllChannels {
			if !values[i].Valid {
				continue
			}
			reading.Channels[ch] = models.ChannelReading{
				Value:  values[i].Float64,
				Status: status[i].String,
			}
		}

		readings = append(readings, &reading)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate sensor readings: %w", err)
	}

	r.logger.Debug("Loaded sensor readings",
		zap.String("device_id", deviceID),
		zap.Time("from", from),
		zap.Time("to", to),
		zap.Int("count", len(readings)),
	)

	return readings, nil
}
