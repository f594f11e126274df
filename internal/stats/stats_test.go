package stats

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompute(t *testing.T) {
	t.Run("Empty set is fully undefined", func(t *testing.T) {
		s := Compute(nil)
		assert.Equal(t, 0, s.Count)
		assert.Nil(t, s.Avg)
		assert.Nil(t, s.Median)
		assert.Nil(t, s.Min)
		assert.Nil(t, s.Max)
	})

	t.Run("Three prices", func(t *testing.T) {
		s := Compute([]float64{1_400_000, 1_000_000, 1_200_000})
		assert.Equal(t, 3, s.Count)
		require.NotNil(t, s.Avg)
		assert.Equal(t, 1_200_000.0, *s.Avg)
		require.NotNil(t, s.Median)
		assert.Equal(t, 1_200_000.0, *s.Median)
		assert.Equal(t, 1_000_000.0, *s.Min)
		assert.Equal(t, 1_400_000.0, *s.Max)
	})

	t.Run("Even count median is mean of middles", func(t *testing.T) {
		s := Compute([]float64{100, 200, 300, 400})
		require.NotNil(t, s.Median)
		assert.Equal(t, 250.0, *s.Median)
	})

	t.Run("Input slice is not mutated", func(t *testing.T) {
		in := []float64{3, 1, 2}
		Compute(in)
		assert.Equal(t, []float64{3, 1, 2}, in)
	})
}

func TestMeanDefined(t *testing.T) {
	t.Run("Undefined samples are skipped not zeroed", func(t *testing.T) {
		got := MeanDefined([]*float64{Float(100), nil})
		require.NotNil(t, got)
		assert.Equal(t, 100.0, *got)
	})

	t.Run("All undefined yields undefined", func(t *testing.T) {
		assert.Nil(t, MeanDefined([]*float64{nil, nil}))
		assert.Nil(t, MeanDefined(nil))
	})

	t.Run("Plain mean of defined values", func(t *testing.T) {
		got := MeanDefined([]*float64{Float(100), Float(300)})
		require.NotNil(t, got)
		assert.Equal(t, 200.0, *got)
	})
}

func TestExposureAverage(t *testing.T) {
	got := ExposureAverage(450, 10)
	if assert.NotNil(t, got) {
		assert.Equal(t, 45.0, *got)
	}
	assert.Nil(t, ExposureAverage(450, 0))
}

func TestROI(t *testing.T) {
	got := ROI(Float(1_000_000), Float(60_000))
	if assert.NotNil(t, got) {
		assert.InDelta(t, 0.06, *got, 1e-12)
	}

	assert.Nil(t, ROI(Float(0), Float(60_000)), "zero sale average")
	assert.Nil(t, ROI(nil, Float(60_000)), "undefined sale average")
	assert.Nil(t, ROI(Float(1_000_000), nil), "undefined rent average")
}

func TestPerUnitRatio(t *testing.T) {
	got := PerUnitRatio(24, 120, true)
	if assert.NotNil(t, got) {
		assert.Equal(t, 0.2, *got)
	}

	assert.Nil(t, PerUnitRatio(24, 0, true), "zero units")
	assert.Nil(t, PerUnitRatio(24, 120, false), "unknown units")
}

func TestMonthlyLiquidity(t *testing.T) {
	got := MonthlyLiquidity(Float(0.6))
	if assert.NotNil(t, got) {
		assert.InDelta(t, 0.05, *got, 1e-12)
	}
	assert.Nil(t, MonthlyLiquidity(nil))
}

func TestPercentChange(t *testing.T) {
	tests := []struct {
		name string
		curr *float64
		prev *float64
		want *float64
	}{
		{"Normal growth", Float(120), Float(100), Float(20)},
		{"Decline", Float(80), Float(100), Float(-20)},
		{"Zero previous positive current", Float(5), Float(0), Float(100)},
		{"Zero previous zero current", Float(0), Float(0), Float(0)},
		{"Undefined current", nil, Float(100), nil},
		{"Undefined previous", Float(100), nil, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := PercentChange(tt.curr, tt.prev)
			if tt.want == nil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.InDelta(t, *tt.want, *got, 1e-9)
		})
	}
}

func TestVersus(t *testing.T) {
	got := Versus(Float(110), Float(100))
	if assert.NotNil(t, got) {
		assert.InDelta(t, 110.0, *got, 1e-9)
	}

	zero := Versus(Float(110), Float(0))
	if assert.NotNil(t, zero) {
		assert.Equal(t, 0.0, *zero)
	}
	zero = Versus(Float(0), Float(0))
	if assert.NotNil(t, zero) {
		assert.Equal(t, 0.0, *zero)
	}

	assert.Nil(t, Versus(nil, Float(100)))
}
