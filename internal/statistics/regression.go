package statistics

import (
	"math"

	"github.com/naufalrf4/backend-simonair4-sub000/internal/models"
)

// Fit ordinary least squares of values against their index 0..n-1.
// Returns false for fewer than two points.
func Fit(values []float64) (models.RegressionFit, bool) {
	n := len(values)
	if n < 2 {
		return models.RegressionFit{}, false
	}

	var sumX, sumY, sumXY, sumXX float64
	for i, y := range values {
		x := float64(i)
		sumX += x
		sumY += y
		sumXY += x * y
		sumXX += x * x
	}

	nf := float64(n)
	denom := nf*sumXX - sumX*sumX
	slope := (nf*sumXY - sumX*sumY) / denom
	intercept := (sumY - slope*sumX) / nf

	fit := models.RegressionFit{
		Slope:     slope,
		Intercept: intercept,
		N:         n,
		MeanValue: sumY / nf,
	}

	var residual float64
	for i, y := range values {
		residual += math.Abs(y - (intercept + slope*float64(i)))
	}
	fit.MeanAbsResidual = residual / nf

	return fit, true
}

// At value of the fitted line at index x
func At(fit models.RegressionFit, x float64) float64 {
	return fit.Intercept + fit.Slope*x
}

// FitAccuracy max(0, 1 - meanAbsResidual/mean); 0 when the mean is not positive
func FitAccuracy(fit models.RegressionFit) float64 {
	if fit.MeanValue <= 0 {
		return 0
	}
	return math.Max(0, 1-fit.MeanAbsResidual/fit.MeanValue)
}

// Pearson correlation of values against their index; 0 when either side has no variance
func Pearson(values []float64) float64 {
	n := len(values)
	if n < 2 {
		return 0
	}

	meanX := float64(n-1) / 2
	meanY := Mean(values)

	var cov, varX, varY float64
	for i, y := range values {
		dx := float64(i) - meanX
		dy := y - meanY
		cov += dx * dy
		varX += dx * dx
		varY += dy * dy
	}
	if varX == 0 || varY == 0 {
		return 0
	}
	return cov / math.Sqrt(varX*varY)
}

// Mean arithmetic mean; 0 for an empty series
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// PopulationStdDev standard deviation with divisor n
func PopulationStdDev(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	mean := Mean(values)
	var sq float64
	for _, v := range values {
		sq += (v - mean) * (v - mean)
	}
	return math.Sqrt(sq / float64(len(values)))
}

// Summarize descriptive statistics; nil for an empty series
func Summarize(values []float64) *models.SeriesSummary {
	if len(values) == 0 {
		return nil
	}
	s := &models.SeriesSummary{
		Count:  len(values),
		Mean:   Mean(values),
		Min:    values[0],
		Max:    values[0],
		StdDev: PopulationStdDev(values),
	}
	for _, v := range values[1:] {
		s.Min = math.Min(s.Min, v)
		s.Max = math.Max(s.Max, v)
	}
	return s
}

// finite true when no value is NaN or infinite
func finite(values ...float64) bool {
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
