package models

import "time"

// AccuracyLevel ordinal accuracy of a manual vs sensor comparison
type AccuracyLevel string

const (
	AccuracyExcellent   AccuracyLevel = "EXCELLENT"
	AccuracyGood        AccuracyLevel = "GOOD"
	AccuracyFair        AccuracyLevel = "FAIR"
	AccuracyPoor        AccuracyLevel = "POOR"
	AccuracyUnavailable AccuracyLevel = "UNAVAILABLE"
)

// Weight ordinal weight used for the overall average; 0 for UNAVAILABLE
func (l AccuracyLevel) Weight() int {
	switch l {
	case AccuracyExcellent:
		return 4
	case AccuracyGood:
		return 3
	case AccuracyFair:
		return 2
	case AccuracyPoor:
		return 1
	default:
		return 0
	}
}

// ComparisonResult per-channel comparison
type ComparisonResult struct {
	Channel              Channel       `json:"channel"`
	ManualValue          *float64      `json:"manual_value"`
	SensorValue          *float64      `json:"sensor_value"`
	Difference           *float64      `json:"difference"`
	PercentageDifference *float64      `json:"percentage_difference"` // nil when sensor value is 0
	AccuracyLevel        AccuracyLevel `json:"accuracy_level"`
	VarianceFlag         bool          `json:"variance_flag"`
}

// ComparisonReport never persisted; lives in the result cache
type ComparisonReport struct {
	MeasurementID   int64                        `json:"measurement_id"`
	DeviceID        string                       `json:"device_id"`
	MeasuredAt      time.Time                    `json:"measured_at"`
	SensorReadingID *int64                       `json:"sensor_reading_id,omitempty"`
	SensorTime      *time.Time                   `json:"sensor_time,omitempty"`
	TimeDifference  *time.Duration               `json:"time_difference,omitempty"`
	Results         map[Channel]ComparisonResult `json:"results"`
	OverallAccuracy AccuracyLevel                `json:"overall_accuracy"`
	AccuracyScore   int                          `json:"accuracy_score"`
	VarianceCount   int                          `json:"variance_count"`
	Notes           string                       `json:"notes"`
	GeneratedAt     time.Time                    `json:"generated_at"`
}

// FlaggedChannels channels with variance flags in report order
func (r *ComparisonReport) FlaggedChannels() []Channel {
	var out []Channel
	for _, ch := range AllChannels {
		if res, ok := r.Results[ch]; ok && res.VarianceFlag {
			out = append(out, ch)
		}
	}
	return out
}
