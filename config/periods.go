package config

import (
	"errors"
	"time"
)

// ErrInvalidPeriod is returned for a period literal outside the supported set.
var ErrInvalidPeriod = errors.New("invalid period literal")

// Period maps a comparison period literal to a fixed day-count window.
type Period struct {
	Label string
	Days  int
}

// SupportedPeriods is the set of period literals the comparison service accepts.
var SupportedPeriods = []Period{
	{Label: "1 month", Days: 30},
	{Label: "3 months", Days: 90},
	{Label: "6 months", Days: 180},
	{Label: "1 year", Days: 365},
	{Label: "2 years", Days: 730},
}

// GetPeriodByLabel returns the period for a literal, or ErrInvalidPeriod.
func GetPeriodByLabel(label string) (*Period, error) {
	for _, p := range SupportedPeriods {
		if p.Label == label {
			return &p, nil
		}
	}
	return nil, ErrInvalidPeriod
}

// Windows returns the current window [curStart, now] and the immediately
// preceding equal-length prior window [prevStart, curStart].
func (p Period) Windows(now time.Time) (curStart, curEnd, prevStart, prevEnd time.Time) {
	curEnd = now
	curStart = now.AddDate(0, 0, -p.Days)
	prevEnd = curStart
	prevStart = curStart.AddDate(0, 0, -p.Days)
	return curStart, curEnd, prevStart, prevEnd
}
