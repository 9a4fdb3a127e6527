package models

import (
	"math"
	"time"
)

// ConditionCategory body-condition bucket derived from Fulton's K
type ConditionCategory string

const (
	ConditionExcellent ConditionCategory = "excellent"
	ConditionGood      ConditionCategory = "good"
	ConditionFair      ConditionCategory = "fair"
	ConditionPoor      ConditionCategory = "poor"
)

// ConditionScores 0..1 health weight per category
var ConditionScores = map[ConditionCategory]float64{
	ConditionExcellent: 1.0,
	ConditionGood:      0.8,
	ConditionFair:      0.6,
	ConditionPoor:      0.4,
}

// GrowthRecord fish growth sample (length in cm, weight in g)
type GrowthRecord struct {
	ID              int64              `json:"id"`
	DeviceID        string             `json:"device_id"`
	MeasurementDate time.Time          `json:"measurement_date"`
	Length          *float64           `json:"length_cm,omitempty"`
	Weight          *float64           `json:"weight_gram,omitempty"`
	Biomass         *float64           `json:"biomass_kg,omitempty"`
	Condition       *ConditionCategory `json:"condition_indicator,omitempty"`
	CreatedAt       time.Time          `json:"created_at"`
}

// SetMeasurements replaces length and weight and recomputes the derived fields
func (g *GrowthRecord) SetMeasurements(length, weight *float64) {
	g.Length = length
	g.Weight = weight
	g.Recompute()
}

// Recompute derives biomass and condition; both are cleared unless length and weight are present
func (g *GrowthRecord) Recompute() {
	if g.Length == nil || g.Weight == nil || *g.Length <= 0 {
		g.Biomass = nil
		g.Condition = nil
		return
	}

	biomass := *g.Length * *g.Weight / 1000
	g.Biomass = &biomass

	cond := ConditionFor(ConditionFactor(*g.Length, *g.Weight))
	g.Condition = &cond
}

// ConditionFactor Fulton's K = 100 * W / L^3
func ConditionFactor(length, weight float64) float64 {
	if length <= 0 {
		return 0
	}
	return 100 * weight / math.Pow(length, 3)
}

// ConditionFor buckets K
func ConditionFor(k float64) ConditionCategory {
	switch {
	case k >= 1.4:
		return ConditionExcellent
	case k >= 1.0:
		return ConditionGood
	case k >= 0.8:
		return ConditionFair
	default:
		return ConditionPoor
	}
}
