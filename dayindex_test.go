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
	"errors"
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

func TestParseHourFile(t *testing.T) {
	want := time.Date(2018, time.September, 1, 5, 0, 0, 0, time.UTC)
	for _, name := range []string{
		"wrfchemi_d01_2018-09-01_05:00:00",
		"wrfchemi_d01_2018-09-01_05_00_00",
		"/some/dir/wrfchemi_d02_2018-09-01_05:00:00",
	} {
		f, err := ParseHourFile(name)
		if err != nil {
			t.Errorf("%s: %v", name, err)
			continue
		}
		if !f.Time.Equal(want) {
			t.Errorf("%s: have %v, want %v", name, f.Time, want)
		}
		if f.Path != name {
			t.Errorf("%s: path changed to %s", name, f.Path)
		}
	}
}

func TestParseHourFileInvalid(t *testing.T) {
	for _, name := range []string{
		"wrfchemi",
		"wrfchemi_d01_2018-09-01.nc",
		"wrfchemi_d01_2018-13-01_05:00:00",
		"wrfchemi_d01_2018-09-01_05:30:00",
	} {
		_, err := ParseHourFile(name)
		var ce *ConfigError
		if !errors.As(err, &ce) {
			t.Errorf("%s: have error %v, want *ConfigError", name, err)
		}
	}
}

func TestDayIndexEligible(t *testing.T) {
	d1 := NewDay(2018, time.September, 1)
	d2 := d1.Next()
	names := append(touchDay(d1, false), touchDay(d2, false)...)
	idx, err := NewDayIndex(names)
	if err != nil {
		t.Fatal(err)
	}
	if got, want := idx.Days(), []Day{d1, d2}; !reflect.DeepEqual(got, want) {
		t.Errorf("days: have %v, want %v", got, want)
	}
	// The second day has no hour 0 of the next day.
	if got, want := idx.Eligible(), []Day{d1}; !reflect.DeepEqual(got, want) {
		t.Errorf("eligible: have %v, want %v", got, want)
	}
	if got := idx.Missing(d2); len(got) != 1 || !got[0].Equal(d2.Next().Time()) {
		t.Errorf("missing: have %v", got)
	}
}

func TestDayIndexRemoveHour(t *testing.T) {
	d := NewDay(2018, time.September, 1)
	all := touchDay(d, true)
	for i := range all {
		var names []string
		names = append(names, all[:i]...)
		names = append(names, all[i+1:]...)
		idx, err := NewDayIndex(names)
		if err != nil {
			t.Fatal(err)
		}
		if idx.IsEligible(d) {
			t.Errorf("day is eligible without %s", filepath.Base(all[i]))
		}
		if len(idx.Eligible()) != 0 {
			t.Errorf("without %s: have eligible days %v", filepath.Base(all[i]), idx.Eligible())
		}
	}
	idx, err := NewDayIndex(all)
	if err != nil {
		t.Fatal(err)
	}
	if !idx.IsEligible(d) {
		t.Error("complete day is not eligible")
	}
}

func TestDayIndexYearRollover(t *testing.T) {
	d := NewDay(2018, time.December, 31)
	idx, err := NewDayIndex(touchDay(d, true))
	if err != nil {
		t.Fatal(err)
	}
	if got, want := idx.Eligible(), []Day{d}; !reflect.DeepEqual(got, want) {
		t.Errorf("have %v, want %v", got, want)
	}
	files, err := idx.Resolve(d)
	if err != nil {
		t.Fatal(err)
	}
	last := files[len(files)-1].Time
	if want := time.Date(2019, time.January, 1, 0, 0, 0, 0, time.UTC); !last.Equal(want) {
		t.Errorf("last file: have %v, want %v", last, want)
	}
}

func TestDayIndexDuplicate(t *testing.T) {
	_, err := NewDayIndex([]string{
		"a/wrfchemi_d01_2018-09-01_05:00:00",
		"b/wrfchemi_d01_2018-09-01_05_00_00",
	})
	var ce *ConfigError
	if !errors.As(err, &ce) {
		t.Errorf("have error %v, want *ConfigError", err)
	}
}

func TestResolve(t *testing.T) {
	d := NewDay(2018, time.September, 30)
	names := touchDay(d, true)
	// Shuffle the order; resolution must not depend on it.
	names[0], names[24] = names[24], names[0]
	names[3], names[17] = names[17], names[3]
	idx, err := NewDayIndex(names)
	if err != nil {
		t.Fatal(err)
	}
	files, err := idx.Resolve(d)
	if err != nil {
		t.Fatal(err)
	}
	if len(files) != filesPerDay {
		t.Fatalf("have %d files, want %d", len(files), filesPerDay)
	}
	for i, f := range files {
		if want := d.At(i); !f.Time.Equal(want) {
			t.Errorf("file %d: have %v, want %v", i, f.Time, want)
		}
	}
	if files[24].Time.Month() != time.October {
		t.Errorf("bridging file is for %v", files[24].Time)
	}
}

func TestResolveIncomplete(t *testing.T) {
	d := NewDay(2018, time.September, 1)
	names := touchDay(d, false)
	idx, err := NewDayIndex(names[:20])
	if err != nil {
		t.Fatal(err)
	}
	files, err := idx.Resolve(d)
	if files != nil {
		t.Errorf("have %d files, want none", len(files))
	}
	var ce *CompletenessError
	if !errors.As(err, &ce) {
		t.Fatalf("have error %v, want *CompletenessError", err)
	}
	if ce.Day != d {
		t.Errorf("error is for day %v", ce.Day)
	}
	if len(ce.Missing) != 5 {
		t.Errorf("have %d missing files, want 5: %v", len(ce.Missing), ce.Missing)
	}
}

func TestFindHourFiles(t *testing.T) {
	dir := t.TempDir()
	d := NewDay(2018, time.September, 1)
	vars := map[string]wrfVar{"E_NO": constVar(MolarFlux, 1, 1, 2, 2)}
	writeWRFChemi(t, dir, d.At(1), 1000, 1000, vars)
	writeWRFChemi(t, dir, d.At(0), 1000, 1000, vars)
	files, err := FindHourFiles(filepath.Join(dir, "wrfchemi_d01_*"))
	if err != nil {
		t.Fatal(err)
	}
	want := []string{filepath.Join(dir, wrfName(d.At(0))), filepath.Join(dir, wrfName(d.At(1)))}
	if !reflect.DeepEqual(files, want) {
		t.Errorf("have %v, want %v", files, want)
	}
	_, err = FindHourFiles(filepath.Join(dir, "wrfout_*"))
	var ce *ConfigError
	if !errors.As(err, &ce) {
		t.Errorf("have error %v, want *ConfigError", err)
	}
}
