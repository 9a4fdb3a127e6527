package models

import "time"

// ManualMeasurement operator spot check. Channels are independently nullable;
// at least one of them must be present (enforced by validation).
type ManualMeasurement struct {
	ID          int64     `json:"id"`
	DeviceID    string    `json:"device_id" validate:"required"`
	MeasuredBy  string    `json:"measured_by" validate:"required"`
	MeasuredAt  time.Time `json:"measurement_timestamp" validate:"required"`
	Temperature *float64  `json:"temperature,omitempty" validate:"omitempty,gte=-5,lte=60"`
	PH          *float64  `json:"ph,omitempty" validate:"omitempty,gte=0,lte=14"`
	TDS         *float64  `json:"tds,omitempty" validate:"omitempty,gte=0,lte=100000"`
	DOLevel     *float64  `json:"do_level,omitempty" validate:"omitempty,gte=0,lte=50"`
	Notes       string    `json:"notes,omitempty" validate:"max=1000"`
	CreatedAt   time.Time `json:"created_at"`
}

// Value implements ChannelSource
func (m *ManualMeasurement) Value(ch Channel) (float64, bool) {
	if m == nil {
		return 0, false
	}
	var p *float64
	switch ch {
	case ChannelTemperature:
		p = m.Temperature
	case ChannelPH:
		p = m.PH
	case ChannelTDS:
		p = m.TDS
	case ChannelDOLevel:
		p = m.DOLevel
	}
	if p == nil {
		return 0, false
	}
	return *p, true
}

// HasAnyChannel true when at least one channel is set
func (m *ManualMeasurement) HasAnyChannel() bool {
	for _, ch := range AllChannels {
		if _, ok := m.Value(ch); ok {
			return true
		}
	}
	return false
}
