package validation

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/naufalrf4/backend-simonair4-sub000/internal/models"
)

func f64(v float64) *float64 { return &v }

func validMeasurement() *models.ManualMeasurement {
	return &models.ManualMeasurement{
		DeviceID:    "dev-1",
		MeasuredBy:  "user-1",
		MeasuredAt:  time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
		Temperature: f64(26.5),
	}
}

func TestValidateManualMeasurement_Valid(t *testing.T) {
	assert.NoError(t, ValidateManualMeasurement(validMeasurement()))
}

func TestValidateManualMeasurement_NoChannel(t *testing.T) {
	m := validMeasurement()
	m.Temperature = nil

	err := ValidateManualMeasurement(m)
	require.Error(t, err)

	var ve Errors
	require.True(t, errors.As(err, &ve))
	require.Len(t, ve, 1)
	assert.Equal(t, "anychannel", ve[0].Tag)
	assert.Contains(t, err.Error(), "at least one of")
}

func TestValidateManualMeasurement_Ranges(t *testing.T) {
	m := validMeasurement()
	m.PH = f64(15)
	m.DeviceID = ""

	err := ValidateManualMeasurement(m)
	var ve Errors
	require.True(t, errors.As(err, &ve))
	assert.ElementsMatch(t, []string{"DeviceID", "PH"}, ve.Fields())
	assert.Contains(t, err.Error(), "DeviceID is required")
	assert.Contains(t, err.Error(), "PH must be at most 14")
}

func TestValidateManualMeasurement_Nil(t *testing.T) {
	assert.Error(t, ValidateManualMeasurement(nil))
}
