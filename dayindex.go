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
	"path/filepath"
	"sort"
	"time"
)

const (
	hoursPerDay = 24
	// filesPerDay is the number of input files needed to create the
	// output for one day: one per hour plus the first hour of the
	// following day.
	filesPerDay = hoursPerDay + 1

	// wrfDateLen is the length of the date at the end of WRF file names,
	// e.g. "2018-09-01_00:00:00".
	wrfDateLen = 19
)

// wrfDateFormats are the accepted formats of the date at the end of WRF
// file names. The second one is used when WRF is run with nocolons = .true.
var wrfDateFormats = []string{"2006-01-02_15:04:05", "2006-01-02_15_04_05"}

// HourFile is a WRF-Chem emissions file holding one hour of data.
type HourFile struct {
	Path string
	// Time is the simulation time embedded in the file name.
	Time time.Time
}

// ParseHourFile extracts the simulation time embedded at the end of the
// name of a WRF-Chem emissions file, e.g. wrfchemi_d01_2018-09-01_05:00:00.
// Names that do not end in a valid date at the top of an hour result in
// a *ConfigError.
func ParseHourFile(path string) (HourFile, error) {
	name := filepath.Base(path)
	if len(name) < wrfDateLen {
		return HourFile{}, &ConfigError{Err: fmt.Errorf("file name %s is too short to contain a date", name)}
	}
	date := name[len(name)-wrfDateLen:]
	var t time.Time
	var err error
	for _, format := range wrfDateFormats {
		if t, err = time.Parse(format, date); err == nil {
			break
		}
	}
	if err != nil {
		return HourFile{}, &ConfigError{Err: fmt.Errorf("file name %s does not end in a date of the form YYYY-MM-DD_HH:MM:SS", name)}
	}
	if t.Minute() != 0 || t.Second() != 0 {
		return HourFile{}, &ConfigError{Err: fmt.Errorf("file name %s: time %s is not at the top of an hour", name, date)}
	}
	return HourFile{Path: path, Time: t}, nil
}

// FindHourFiles returns the files matching the given glob pattern.
func FindHourFiles(pattern string) ([]string, error) {
	files, err := filepath.Glob(pattern)
	if err != nil {
		return nil, &ConfigError{Err: fmt.Errorf("input file pattern %s: %v", pattern, err)}
	}
	if len(files) == 0 {
		return nil, &ConfigError{Err: fmt.Errorf("no input files match %s", pattern)}
	}
	sort.Strings(files)
	return files, nil
}

// DayIndex groups hourly input files by calendar day.
type DayIndex struct {
	files map[time.Time]HourFile
	hours map[Day]map[int]struct{}
}

// NewDayIndex parses the given file names and groups them by day.
// Two files for the same hour are a configuration error.
func NewDayIndex(paths []string) (*DayIndex, error) {
	idx := &DayIndex{
		files: make(map[time.Time]HourFile),
		hours: make(map[Day]map[int]struct{}),
	}
	for _, p := range paths {
		f, err := ParseHourFile(p)
		if err != nil {
			return nil, err
		}
		if prev, ok := idx.files[f.Time]; ok {
			return nil, &ConfigError{Err: fmt.Errorf("files %s and %s are both for %v", prev.Path, f.Path, f.Time)}
		}
		idx.files[f.Time] = f
		d := DayOf(f.Time)
		if _, ok := idx.hours[d]; !ok {
			idx.hours[d] = make(map[int]struct{})
		}
		idx.hours[d][f.Time.Hour()] = struct{}{}
	}
	return idx, nil
}

// Days returns every day with at least one input file, in order.
func (idx *DayIndex) Days() []Day {
	days := make([]Day, 0, len(idx.hours))
	for d := range idx.hours {
		days = append(days, d)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })
	return days
}

// IsEligible reports whether all 24 hours of day d are present as well
// as the first hour of the following day.
func (idx *DayIndex) IsEligible(d Day) bool {
	if len(idx.hours[d]) != hoursPerDay {
		return false
	}
	_, ok := idx.hours[d.Next()][0]
	return ok
}

// Eligible returns the days that can be converted, in order.
func (idx *DayIndex) Eligible() []Day {
	var days []Day
	for _, d := range idx.Days() {
		if idx.IsEligible(d) {
			days = append(days, d)
		}
	}
	return days
}

// Missing returns the times of the input files that day d still needs.
func (idx *DayIndex) Missing(d Day) []time.Time {
	var missing []time.Time
	for h := 0; h < filesPerDay; h++ {
		t := d.At(h)
		if _, ok := idx.files[t]; !ok {
			missing = append(missing, t)
		}
	}
	return missing
}

// Resolve returns the files needed to convert day d in chronological
// order: hours 00 through 23 of the day followed by hour 00 of the next
// day. Files are matched by the date in their names; if any of them
// is missing a *CompletenessError is returned.
func (idx *DayIndex) Resolve(d Day) ([]HourFile, error) {
	files := make([]HourFile, 0, filesPerDay)
	var missing []string
	for h := 0; h < filesPerDay; h++ {
		t := d.At(h)
		f, ok := idx.files[t]
		if !ok {
			missing = append(missing, t.Format(wrfDateFormats[0]))
			continue
		}
		files = append(files, f)
	}
	if len(missing) > 0 {
		return nil, &CompletenessError{Day: d, Missing: missing}
	}
	return files, nil
}
