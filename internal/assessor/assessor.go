// Package assessor grades manual measurements against the matched sensor reading.
package assessor

import (
	"math"
	"strings"
	"time"

	"github.com/naufalrf4/backend-simonair4-sub000/internal/models"
)

// Notes emitted on reports
const (
	NoteNoSensorMatch  = "No sensor reading was found within the tolerance window."
	NoteAllWithinRange = "All measurements are within acceptable tolerance."
)

// Assessor accuracy assessor; stateless apart from the threshold table
type Assessor struct {
	thresholds Thresholds
	now        func() time.Time
}

// NewAssessor channels missing from thresholds (or a nil table) take their DefaultThresholds row
func NewAssessor(thresholds Thresholds) *Assessor {
	table := DefaultThresholds()
	for ch, t := range thresholds {
		table[ch] = t
	}
	return &Assessor{
		thresholds: table,
		now:        time.Now,
	}
}

// Compare one result per channel. A nil sensor or a channel missing on either side is UNAVAILABLE.
func (a *Assessor) Compare(manual, sensor models.ChannelSource) map[models.Channel]models.ComparisonResult {
	results := make(map[models.Channel]models.ComparisonResult, len(models.AllChannels))
	for _, ch := range models.AllChannels {
		results[ch] = a.compareChannel(ch, manual, sensor)
	}
	return results
}

func (a *Assessor) compareChannel(ch models.Channel, manual, sensor models.ChannelSource) models.ComparisonResult {
	res := models.ComparisonResult{
		Channel:       ch,
		AccuracyLevel: models.AccuracyUnavailable,
	}

	mv, mok := valueOf(manual, ch)
	sv, sok := valueOf(sensor, ch)
	if mok {
		res.ManualValue = &mv
	}
	if sok {
		res.SensorValue = &sv
	}
	if !mok || !sok {
		return res
	}

	diff := mv - sv
	res.Difference = &diff
	if sv != 0 {
		pct := diff / sv * 100
		res.PercentageDifference = &pct
	}

	t := a.thresholds[ch]
	abs := math.Abs(diff)
	res.AccuracyLevel = t.Level(abs)
	res.VarianceFlag = t.Exceeds(abs)
	return res
}

// Assess builds the full report for manual against sensor (nil when no reading matched)
func (a *Assessor) Assess(manual *models.ManualMeasurement, sensor *models.SensorReading) *models.ComparisonReport {
	var source models.ChannelSource
	if sensor != nil {
		source = sensor
	}
	results := a.Compare(manual, source)

	report := &models.ComparisonReport{
		Results:     results,
		GeneratedAt: a.now(),
	}
	if manual != nil {
		report.MeasurementID = manual.ID
		report.DeviceID = manual.DeviceID
		report.MeasuredAt = manual.MeasuredAt
	}
	if sensor != nil {
		id := sensor.ID
		st := sensor.Time
		report.SensorReadingID = &id
		report.SensorTime = &st
		if manual != nil {
			d := st.Sub(manual.MeasuredAt)
			if d < 0 {
				d = -d
			}
			report.TimeDifference = &d
		}
	}

	report.OverallAccuracy, report.AccuracyScore = Overall(results)
	for _, res := range results {
		if res.VarianceFlag {
			report.VarianceCount++
		}
	}
	report.Notes = Notes(results, sensor != nil)
	return report
}

// Overall mean ordinal weight of the available channels and the 0-100 score
func Overall(results map[models.Channel]models.ComparisonResult) (models.AccuracyLevel, int) {
	sum, n := 0, 0
	for _, res := range results {
		if w := res.AccuracyLevel.Weight(); w > 0 {
			sum += w
			n++
		}
	}
	if n == 0 {
		return models.AccuracyUnavailable, 0
	}

	mean := float64(sum) / float64(n)
	score := int(math.Round(mean / 4 * 100))

	switch {
	case mean >= 3.5:
		return models.AccuracyExcellent, score
	case mean >= 2.5:
		return models.AccuracyGood, score
	case mean >= 1.5:
		return models.AccuracyFair, score
	default:
		return models.AccuracyPoor, score
	}
}

// Notes human summary: variance channels first, then poor channels
func Notes(results map[models.Channel]models.ComparisonResult, matched bool) string {
	if !matched {
		return NoteNoSensorMatch
	}

	var variance, poor []string
	for _, ch := range models.AllChannels {
		res, ok := results[ch]
		if !ok {
			continue
		}
		if res.VarianceFlag {
			variance = append(variance, string(ch))
		}
		if res.AccuracyLevel == models.AccuracyPoor {
			poor = append(poor, string(ch))
		}
	}

	var parts []string
	if len(variance) > 0 {
		parts = append(parts, "significant variance detected in "+strings.Join(variance, ", "))
	}
	if len(poor) > 0 {
		parts = append(parts, "poor accuracy for "+strings.Join(poor, ", "))
	}
	if len(parts) == 0 {
		return NoteAllWithinRange
	}

	sentence := strings.Join(parts, "; ")
	return strings.ToUpper(sentence[:1]) + sentence[1:] + "."
}

// valueOf tolerates nil sources, including typed nil pointers
func valueOf(src models.ChannelSource, ch models.Channel) (float64, bool) {
	if src == nil {
		return 0, false
	}
	return src.Value(ch)
}
