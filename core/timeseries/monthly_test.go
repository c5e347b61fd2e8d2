package timeseries

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/taxico2/core/aggregate"
	"github.com/kilianp07/taxico2/core/model"
)

func TestMonthly_ZeroFill(t *testing.T) {
	months := []aggregate.Bucket{
		{Category: model.CategoryYellow, Granularity: aggregate.Month, ID: 3, Value: 2},
		{Category: model.CategoryYellow, Granularity: aggregate.Month, ID: 1, Value: 5},
		{Category: model.CategoryGreen, Granularity: aggregate.Month, ID: 2, Value: 99},
	}
	s := Monthly(model.CategoryYellow, months)
	require.Len(t, s.Points, 12)
	assert.Equal(t, model.CategoryYellow, s.Category)
	for i, p := range s.Points {
		assert.Equal(t, i+1, p.Month)
	}
	assert.Equal(t, 5.0, s.Points[0].TotalKg)
	assert.Equal(t, "Feb", s.Points[1].Label)
	assert.Equal(t, 0.0, s.Points[1].TotalKg)
	assert.Equal(t, 2.0, s.Points[2].TotalKg)
	assert.Equal(t, 0.0, s.Points[11].TotalKg)
	assert.Equal(t, []float64{5, 0, 2, 0, 0, 0, 0, 0, 0, 0, 0, 0}, s.Values())
}

func TestMonthly_Empty(t *testing.T) {
	s := Monthly(model.CategoryGreen, nil)
	require.Len(t, s.Points, 12)
	for _, p := range s.Points {
		assert.Zero(t, p.TotalKg)
	}
}
