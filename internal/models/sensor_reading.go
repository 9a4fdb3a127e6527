package models

import "time"

// ChannelReading one channel value as stored by device ingestion
type ChannelReading struct {
	Value  float64 `json:"value"`
	Status string  `json:"status,omitempty"` // GOOD / BAD / empty when the device sent none
}

// SensorReading immutable device sample
type SensorReading struct {
	ID       int64                      `json:"id"`
	DeviceID string                     `json:"device_id"`
	Time     time.Time                  `json:"time"`
	Channels map[Channel]ChannelReading `json:"channels"`
}

// Value returns the channel value if the reading carries it
func (r *SensorReading) Value(ch Channel) (float64, bool) {
	if r == nil || r.Channels == nil {
		return 0, false
	}
	c, ok := r.Channels[ch]
	if !ok {
		return 0, false
	}
	return c.Value, true
}
