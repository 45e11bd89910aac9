/*
Copyright © 2021 the InMAP authors.
This file is part of InMAP.

InMAP is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

InMAP is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with InMAP.  If not, see <http://www.gnu.org/licenses/>.
*/

package chemi2cmaq

import (
	"fmt"
	"time"
)

const (
	// inDateFormat specifies the format to use
	// when inputting dates.
	inDateFormat = "20060102"

	// hourStep is one hour in HHMMSS form.
	hourStep = 10000
	// dayEnd is the HHMMSS value at which the time of day wraps.
	dayEnd = 240000
)

// Day is a calendar day in UTC.
type Day struct {
	t time.Time
}

// NewDay returns the calendar day with the given year, month and day
// of month. Out-of-range values are normalized as in time.Date.
func NewDay(year int, month time.Month, day int) Day {
	return Day{t: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DayOf returns the calendar day that t falls on, in UTC.
func DayOf(t time.Time) Day {
	t = t.UTC()
	return NewDay(t.Year(), t.Month(), t.Day())
}

// ParseDay parses a date in the format "YYYYMMDD".
func ParseDay(s string) (Day, error) {
	t, err := time.Parse(inDateFormat, s)
	if err != nil {
		return Day{}, fmt.Errorf("chemi2cmaq: parsing date %q: %w", s, err)
	}
	return DayOf(t), nil
}

// DayFromJulian converts a date in the form YYYYDDD into a Day.
func DayFromJulian(yyyyddd int) (Day, error) {
	year, doy := yyyyddd/1000, yyyyddd%1000
	if yyyyddd < 0 || doy < 1 || doy > daysIn(year) {
		return Day{}, fmt.Errorf("chemi2cmaq: invalid YYYYDDD date %07d", yyyyddd)
	}
	return Day{t: time.Date(year, time.January, doy, 0, 0, 0, 0, time.UTC)}, nil
}

func daysIn(year int) int {
	return time.Date(year, time.December, 31, 0, 0, 0, 0, time.UTC).YearDay()
}

// Julian returns the day in the form YYYYDDD, where DDD is the
// day of the year starting at 1.
func (d Day) Julian() int {
	return d.t.Year()*1000 + d.t.YearDay()
}

// Next returns the following calendar day. December 31 is followed by
// January 1 of the next year.
func (d Day) Next() Day {
	return Day{t: d.t.AddDate(0, 0, 1)}
}

// Time returns the beginning of the day.
func (d Day) Time() time.Time { return d.t }

// At returns the time at the given hour of the day.
func (d Day) At(hour int) time.Time {
	return d.t.Add(time.Duration(hour) * time.Hour)
}

// IsZero reports whether d is the zero Day.
func (d Day) IsZero() bool { return d.t.IsZero() }

// Before reports whether d is before d2.
func (d Day) Before(d2 Day) bool { return d.t.Before(d2.t) }

// String returns the day in YYYYDDD form.
func (d Day) String() string { return fmt.Sprintf("%07d", d.Julian()) }

// NextTimeStep advances a (day, HHMMSS) pair by one hour. When the time
// of day reaches 240000 it wraps to 000000 and the day advances to the
// next calendar day.
func NextTimeStep(d Day, hhmmss int) (Day, int) {
	hhmmss += hourStep
	if hhmmss >= dayEnd {
		return d.Next(), hhmmss - dayEnd
	}
	return d, hhmmss
}

// hhmmss returns the time of day of t in HHMMSS form.
func hhmmss(t time.Time) int {
	return t.Hour()*10000 + t.Minute()*100 + t.Second()
}
