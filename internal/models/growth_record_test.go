package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func f64(v float64) *float64 { return &v }

func TestGrowthRecord_Recompute_BothPresent(t *testing.T) {
	g := &GrowthRecord{}
	g.SetMeasurements(f64(10), f64(12))

	require.NotNil(t, g.Biomass)
	assert.InDelta(t, 0.12, *g.Biomass, 1e-9)
	require.NotNil(t, g.Condition)
	// K = 100*12/1000 = 1.2
	assert.Equal(t, ConditionGood, *g.Condition)
}

func TestGrowthRecord_Recompute_ClearsWhenWeightRemoved(t *testing.T) {
	g := &GrowthRecord{}
	g.SetMeasurements(f64(10), f64(15))
	require.NotNil(t, g.Biomass)

	g.SetMeasurements(f64(11), nil)
	assert.Nil(t, g.Biomass)
	assert.Nil(t, g.Condition)
}

func TestConditionFor(t *testing.T) {
	assert.Equal(t, ConditionExcellent, ConditionFor(1.5))
	assert.Equal(t, ConditionGood, ConditionFor(1.0))
	assert.Equal(t, ConditionFair, ConditionFor(0.8))
	assert.Equal(t, ConditionPoor, ConditionFor(0.5))
}

func TestManualMeasurement_Value(t *testing.T) {
	m := &ManualMeasurement{Temperature: f64(26.5), DOLevel: f64(6.1)}

	v, ok := m.Value(ChannelTemperature)
	assert.True(t, ok)
	assert.Equal(t, 26.5, v)

	_, ok = m.Value(ChannelPH)
	assert.False(t, ok)
	assert.True(t, m.HasAnyChannel())
	assert.False(t, (&ManualMeasurement{}).HasAnyChannel())
}

func TestIntegrityReport_InvalidRatio(t *testing.T) {
	assert.Equal(t, 0.0, (&IntegrityReport{}).InvalidRatio())
	assert.InDelta(t, 0.1, (&IntegrityReport{TotalRecords: 50, InvalidRecords: 5}).InvalidRatio(), 1e-9)
}
