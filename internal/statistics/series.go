package statistics

import (
	"sort"
	"time"

	"github.com/naufalrf4/backend-simonair4-sub000/internal/models"
)

type point struct {
	date  time.Time
	value float64
}

// lengthSeries records with a length, in store order
func lengthSeries(records []*models.GrowthRecord) []point {
	var out []point
	for _, r := range records {
		if r.Length != nil {
			out = append(out, point{date: r.MeasurementDate, value: *r.Length})
		}
	}
	return out
}

func weightSeries(records []*models.GrowthRecord) []point {
	var out []point
	for _, r := range records {
		if r.Weight != nil {
			out = append(out, point{date: r.MeasurementDate, value: *r.Weight})
		}
	}
	return out
}

func values(points []point) []float64 {
	out := make([]float64, len(points))
	for i, p := range points {
		out[i] = p.value
	}
	return out
}

// groupByDevice keeps per-device store order; ids are returned sorted
func groupByDevice(records []*models.GrowthRecord) (map[string][]*models.GrowthRecord, []string) {
	groups := make(map[string][]*models.GrowthRecord)
	for _, r := range records {
		groups[r.DeviceID] = append(groups[r.DeviceID], r)
	}
	ids := make([]string, 0, len(groups))
	for id := range groups {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return groups, ids
}

// requestedDevices de-duplicated request order, or every grouped device when none were requested
func requestedDevices(requested []string, present []string) []string {
	if len(requested) == 0 {
		return present
	}
	seen := make(map[string]struct{}, len(requested))
	out := make([]string, 0, len(requested))
	for _, id := range requested {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

func daysBetween(a, b time.Time) float64 {
	return b.Sub(a).Hours() / 24
}

// seriesRate (last - first) / days between them; false when fewer than two points or no span
func seriesRate(points []point) (float64, bool) {
	if len(points) < 2 {
		return 0, false
	}
	first, last := points[0], points[len(points)-1]
	days := daysBetween(first.date, last.date)
	if days <= 0 {
		return 0, false
	}
	return (last.value - first.value) / days, true
}
