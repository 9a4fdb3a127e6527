package assessor

import "github.com/naufalrf4/backend-simonair4-sub000/internal/models"

// Threshold absolute-difference bounds for one channel (inclusive) and its variance limit (exclusive)
type Threshold struct {
	Excellent float64
	Good      float64
	Fair      float64
	Variance  float64
}

// Thresholds per-channel table
type Thresholds map[models.Channel]Threshold

// DefaultThresholds calibrated table for pond water quality
func DefaultThresholds() Thresholds {
	return Thresholds{
		models.ChannelTemperature: {Excellent: 0.5, Good: 1.0, Fair: 2.0, Variance: 3.0},
		models.ChannelPH:          {Excellent: 0.1, Good: 0.2, Fair: 0.5, Variance: 1.0},
		models.ChannelTDS:         {Excellent: 10, Good: 25, Fair: 50, Variance: 100},
		models.ChannelDOLevel:     {Excellent: 0.2, Good: 0.5, Fair: 1.0, Variance: 2.0},
	}
}

// Level classifies an absolute difference
func (t Threshold) Level(absDiff float64) models.AccuracyLevel {
	switch {
	case absDiff <= t.Excellent:
		return models.AccuracyExcellent
	case absDiff <= t.Good:
		return models.AccuracyGood
	case absDiff <= t.Fair:
		return models.AccuracyFair
	default:
		return models.AccuracyPoor
	}
}

// Exceeds variance flag
func (t Threshold) Exceeds(absDiff float64) bool {
	return absDiff > t.Variance
}
