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
	"strings"
	"time"
)

// ConfigError is returned for problems with the run configuration,
// the species mapping or the declared units of a source variable.
// Configuration errors stop the whole conversion.
type ConfigError struct {
	// Species is the species the problem relates to, if any.
	Species string
	Err     error
}

func (e *ConfigError) Error() string {
	if e.Species != "" {
		return fmt.Sprintf("chemi2cmaq: configuration error for species %s: %v", e.Species, e.Err)
	}
	return fmt.Sprintf("chemi2cmaq: configuration error: %v", e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// CompletenessError is returned when an eligible day cannot be
// resolved into its full set of hourly files. Only the affected day
// is skipped.
type CompletenessError struct {
	Day     Day
	Missing []string
}

func (e *CompletenessError) Error() string {
	return fmt.Sprintf("chemi2cmaq: day %v: found %d of %d input files; missing %s",
		e.Day, filesPerDay-len(e.Missing), filesPerDay, strings.Join(e.Missing, ", "))
}

// IntegrityError is returned when the data for a day are unusable:
// non-finite values, a target species without contributions, a missing
// source variable or inconsistent grids. Only the affected day is
// skipped and no output file is written for it.
type IntegrityError struct {
	// Day is the day being converted.
	Day Day
	// Step is the time step the problem was found in. It is zero
	// if the problem is not specific to one time step.
	Step    time.Time
	Species string
	Err     error
}

func (e *IntegrityError) Error() string {
	s := fmt.Sprintf("chemi2cmaq: day %v", e.Day)
	if !e.Step.IsZero() {
		s += fmt.Sprintf(", time step %v %06d", DayOf(e.Step), hhmmss(e.Step))
	}
	if e.Species != "" {
		s += ", species " + e.Species
	}
	return s + ": " + e.Err.Error()
}

func (e *IntegrityError) Unwrap() error { return e.Err }
