package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetPeriodByLabel(t *testing.T) {
	tests := []struct {
		label    string
		wantDays int
		wantErr  bool
	}{
		{label: "1 month", wantDays: 30},
		{label: "3 months", wantDays: 90},
		{label: "6 months", wantDays: 180},
		{label: "1 year", wantDays: 365},
		{label: "2 years", wantDays: 730},
		{label: "1 week", wantErr: true},
		{label: "", wantErr: true},
		{label: "1 Year", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.label, func(t *testing.T) {
			p, err := GetPeriodByLabel(tt.label)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidPeriod)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantDays, p.Days)
		})
	}
}

func TestPeriodWindows(t *testing.T) {
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	p, err := GetPeriodByLabel("1 year")
	require.NoError(t, err)

	curStart, curEnd, prevStart, prevEnd := p.Windows(now)

	assert.Equal(t, now, curEnd)
	assert.Equal(t, now.AddDate(0, 0, -365), curStart)
	assert.Equal(t, curStart, prevEnd, "prior window ends where current begins")
	assert.Equal(t, curStart.AddDate(0, 0, -365), prevStart)
	assert.Equal(t, curEnd.Sub(curStart), prevEnd.Sub(prevStart), "equal-length windows")
}
