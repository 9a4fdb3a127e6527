package models

import "time"

// TimeRange closed interval [From, To]
type TimeRange struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

// TrendDirection overall slope label
type TrendDirection string

const (
	TrendIncreasing TrendDirection = "increasing"
	TrendDecreasing TrendDirection = "decreasing"
	TrendStable     TrendDirection = "stable"
)

// RecentTrajectory recent-vs-full slope label
type RecentTrajectory string

const (
	TrajectoryImproving RecentTrajectory = "improving"
	TrajectoryDeclining RecentTrajectory = "declining"
	TrajectoryStable    RecentTrajectory = "stable"
)

// GrowthRateResult per-device growth rate
type GrowthRateResult struct {
	DeviceID         string    `json:"device_id"`
	RecordCount      int       `json:"record_count"`
	FirstDate        time.Time `json:"first_date"`
	LastDate         time.Time `json:"last_date"`
	Days             float64   `json:"days"`
	LengthGrowthRate *float64  `json:"length_growth_rate"` // cm/day
	WeightGrowthRate *float64  `json:"weight_growth_rate"` // g/day
}

// RegressionFit OLS fit of a series against its sequence index
type RegressionFit struct {
	Slope           float64 `json:"slope"`
	Intercept       float64 `json:"intercept"`
	N               int     `json:"n"`
	MeanValue       float64 `json:"mean_value"`
	MeanAbsResidual float64 `json:"mean_abs_residual"`
}

// RecentTrend regression over the trailing 30% of a series
type RecentTrend struct {
	RecordCount int              `json:"record_count"`
	Slope       float64          `json:"slope"`
	Trajectory  RecentTrajectory `json:"trajectory"`
}

// TrendAnalysis length trend of one device
type TrendAnalysis struct {
	DeviceID    string         `json:"device_id"`
	Range       TimeRange      `json:"range"`
	RecordCount int            `json:"record_count"`
	Slope       float64        `json:"slope"`
	Intercept   float64        `json:"intercept"`
	Trend       TrendDirection `json:"trend"`
	Correlation float64        `json:"correlation"`
	Volatility  float64        `json:"volatility"`
	Consistency float64        `json:"consistency"`
	Recent      RecentTrend    `json:"recent"`
}

// SeriesSummary descriptive statistics of one numeric series
type SeriesSummary struct {
	Count  int     `json:"count"`
	Mean   float64 `json:"mean"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	StdDev float64 `json:"std_dev"`
}

// GrowthSummary per-device descriptive statistics
type GrowthSummary struct {
	DeviceID              string                    `json:"device_id"`
	RecordCount           int                       `json:"record_count"`
	Length                *SeriesSummary            `json:"length,omitempty"`
	Weight                *SeriesSummary            `json:"weight,omitempty"`
	MeanBiomass           *float64                  `json:"mean_biomass,omitempty"`
	ConditionDistribution map[ConditionCategory]int `json:"condition_distribution"`
}

// DevicePerformance one ranked device
type DevicePerformance struct {
	Rank        int     `json:"rank"`
	DeviceID    string  `json:"device_id"`
	GrowthRate  float64 `json:"growth_rate"`
	Consistency float64 `json:"consistency"`
	HealthScore float64 `json:"health_score"`
	Efficiency  float64 `json:"efficiency"`
	Score       float64 `json:"score"`
}

// ExcludedDevice device left out of a ranking and why
type ExcludedDevice struct {
	DeviceID string `json:"device_id"`
	Reason   string `json:"reason"`
}

// PerformanceComparison ranking output
type PerformanceComparison struct {
	Range    TimeRange           `json:"range"`
	Rankings []DevicePerformance `json:"rankings"`
	Excluded []ExcludedDevice    `json:"excluded,omitempty"`
}

// PredictionPoint one forecast day
type PredictionPoint struct {
	Date            time.Time `json:"date"`
	PredictedLength float64   `json:"predicted_length"`
	PredictedWeight *float64  `json:"predicted_weight,omitempty"`
	Confidence      float64   `json:"confidence"`
}

// GrowthPrediction forecast for one device
type GrowthPrediction struct {
	DeviceID       string            `json:"device_id"`
	DaysAhead      int               `json:"days_ahead"`
	BasedOnRecords int               `json:"based_on_records"`
	FitAccuracy    float64           `json:"fit_accuracy"`
	Points         []PredictionPoint `json:"points"`
	GeneratedAt    time.Time         `json:"generated_at"`
}
