package cache

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/naufalrf4/backend-simonair4-sub000/internal/models"
)

// Key prefixes; growth-derived prefixes are invalidated together when growth data changes
const (
	PrefixGrowthRate  = "growth-rate:"
	PrefixTrend       = "trend:"
	PrefixStatistics  = "statistics:"
	PrefixPerformance = "performance:"
	PrefixPrediction  = "prediction:"
	PrefixComparison  = "comparison:"
)

// GrowthDerivedPrefixes prefixes whose values depend on growth records
var GrowthDerivedPrefixes = []string{
	PrefixGrowthRate,
	PrefixTrend,
	PrefixStatistics,
	PrefixPerformance,
	PrefixPrediction,
}

// GrowthRateKey growth-rate:<ids>:<from>:<to>
func GrowthRateKey(deviceIDs []string, from, to time.Time) string {
	return PrefixGrowthRate + joinDevices(deviceIDs) + ":" + bound(from) + ":" + bound(to)
}

// TrendKey trend:<id>:<from>:<to>
func TrendKey(deviceID string, from, to time.Time) string {
	return PrefixTrend + deviceID + ":" + bound(from) + ":" + bound(to)
}

// StatisticsKey statistics:<ids>:<from>:<to>
func StatisticsKey(deviceIDs []string, from, to time.Time) string {
	return PrefixStatistics + joinDevices(deviceIDs) + ":" + bound(from) + ":" + bound(to)
}

// PerformanceKey performance:<ids>:<from>:<to>
func PerformanceKey(deviceIDs []string, from, to time.Time) string {
	return PrefixPerformance + joinDevices(deviceIDs) + ":" + bound(from) + ":" + bound(to)
}

// PredictionKey prediction:<id>:<days>
func PredictionKey(deviceID string, daysAhead int) string {
	return PrefixPrediction + deviceID + ":" + strconv.Itoa(daysAhead)
}

// ComparisonKey comparison:<device>:<measured-at>:<tolerance-minutes>:<measurement-id>:<t|ph|tds|do>.
// Absent channels encode as "_", an unsaved measurement (id 0) as "-".
func ComparisonKey(m *models.ManualMeasurement, toleranceMinutes int) string {
	id := "-"
	if m.ID != 0 {
		id = strconv.FormatInt(m.ID, 10)
	}
	values := make([]string, 0, len(models.AllChannels))
	for _, ch := range models.AllChannels {
		v, ok := m.Value(ch)
		if !ok {
			values = append(values, "_")
			continue
		}
		values = append(values, strconv.FormatFloat(v, 'g', -1, 64))
	}
	return PrefixComparison + m.DeviceID + ":" + bound(m.MeasuredAt) + ":" + strconv.Itoa(toleranceMinutes) +
		":" + id + ":" + strings.Join(values, "|")
}

// joinDevices sorted, de-duplicated, comma-joined; "*" for the all-devices query
func joinDevices(ids []string) string {
	if len(ids) == 0 {
		return "*"
	}
	sorted := make([]string, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		sorted = append(sorted, id)
	}
	sort.Strings(sorted)
	return strings.Join(sorted, ",")
}

func bound(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return strconv.FormatInt(t.UTC().UnixMilli(), 10)
}
