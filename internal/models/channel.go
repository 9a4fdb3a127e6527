package models

// Channel one named water-quality measurement dimension
type Channel string

const (
	ChannelTemperature Channel = "temperature"
	ChannelPH          Channel = "ph"
	ChannelTDS         Channel = "tds"
	ChannelDOLevel     Channel = "do_level"
)

// AllChannels fixed report order
var AllChannels = []Channel{
	ChannelTemperature,
	ChannelPH,
	ChannelTDS,
	ChannelDOLevel,
}

// ChannelSource anything that may carry a value per channel
type ChannelSource interface {
	Value(ch Channel) (float64, bool)
}
