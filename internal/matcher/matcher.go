// Package matcher pairs a manual measurement timestamp with the nearest sensor reading.
package matcher

import (
	"context"
	"time"

	"github.com/naufalrf4/backend-simonair4-sub000/internal/apperrors"
	"github.com/naufalrf4/backend-simonair4-sub000/internal/metrics"
	"github.com/naufalrf4/backend-simonair4-sub000/internal/models"
	"github.com/naufalrf4/backend-simonair4-sub000/internal/repository"

	"go.uber.org/zap"
)

const opFindClosest = "find_closest_sensor_reading"

// Matcher temporal matcher
type Matcher struct {
	readings repository.SensorReadingRepository
	logger   *zap.Logger
}

// NewMatcher creates a matcher reading from readings
func NewMatcher(readings repository.SensorReadingRepository, logger *zap.Logger) *Matcher {
	return &Matcher{
		readings: readings,
		logger:   logger,
	}
}

// FindClosest returns the reading with minimum |time - target| inside
// [target - tolerance, target + tolerance], or nil when the window is empty.
// Equal distances keep the first reading in store order (earliest).
func (m *Matcher) FindClosest(ctx context.Context, deviceID string, target time.Time, toleranceMinutes int) (*models.SensorReading, error) {
	if deviceID == "" {
		return nil, apperrors.InvalidInput(opFindClosest, "device id is required", nil)
	}
	if toleranceMinutes < 0 {
		return nil, apperrors.InvalidInput(opFindClosest, "tolerance must not be negative",
			map[string]interface{}{"tolerance_minutes": toleranceMinutes})
	}

	tolerance := time.Duration(toleranceMinutes) * time.Minute
	from := target.Add(-tolerance)
	to := target.Add(tolerance)

	readings, err := m.readings.ReadingsByDeviceAndRange(ctx, deviceID, from, to)
	if err != nil {
		appErr := apperrors.DatabaseFailure(opFindClosest, err, map[string]interface{}{
			"device_id": deviceID,
			"from":      from,
			"to":        to,
		})
		m.logger.Error("Failed to load sensor readings for matching", appErr.Fields()...)
		metrics.RecordEngineError(opFindClosest, string(appErr.Kind))
		return nil, appErr
	}

	closest := Closest(readings, target)
	if closest == nil {
		m.logger.Debug("No sensor reading within tolerance",
			zap.String("device_id", deviceID),
			zap.Time("target", target),
			zap.Int("tolerance_minutes", toleranceMinutes),
		)
	}
	return closest, nil
}

// Closest minimum absolute distance to target; first wins on ties
func Closest(readings []*models.SensorReading, target time.Time) *models.SensorReading {
	var (
		best     *models.SensorReading
		bestDist time.Duration
	)
	for _, r := range readings {
		if r == nil {
			continue
		}
		d := absDuration(r.Time.Sub(target))
		if best == nil || d < bestDist {
			best = r
			bestDist = d
		}
	}
	return best
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}
