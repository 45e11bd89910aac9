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
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/ctessum/cdf"
	"github.com/ctessum/sparse"
)

// wrfVar is a variable in a test WRF-Chem file.
type wrfVar struct {
	units string
	// data has dimensions [layer, row, column].
	data *sparse.DenseArray
}

// constVar returns a variable with the same value in every cell.
func constVar(units string, val float64, nz, ny, nx int) wrfVar {
	d := sparse.ZerosDense(nz, ny, nx)
	for i := range d.Elements {
		d.Elements[i] = val
	}
	return wrfVar{units: units, data: d}
}

// wrfName returns the name of the WRF-Chem emissions file for time t.
func wrfName(t time.Time) string {
	return "wrfchemi_d01_" + t.Format(wrfDateFormats[0])
}

// writeWRFChemi writes a WRF-Chem emissions file for time tm in dir
// and returns its path. All variables must have the same shape.
func writeWRFChemi(t *testing.T, dir string, tm time.Time, dx, dy float32, vars map[string]wrfVar) string {
	t.Helper()
	var names []string
	var shape []int
	for n, v := range vars {
		names = append(names, n)
		shape = v.data.Shape
	}
	sort.Strings(names)

	dims := []string{wrfTime, wrfLayer, wrfRow, wrfCol}
	h := cdf.NewHeader(dims, []int{0, shape[0], shape[1], shape[2]})
	for _, n := range names {
		h.AddVariable(n, dims, []float32{0})
		h.AddAttribute(n, "units", vars[n].units)
	}
	h.AddAttribute("", "DX", []float32{dx})
	h.AddAttribute("", "DY", []float32{dy})
	h.AddAttribute("", "MAP_PROJ", []int32{1})
	h.AddAttribute("", "TRUELAT1", []float32{30})
	h.AddAttribute("", "TRUELAT2", []float32{60})
	h.AddAttribute("", "STAND_LON", []float32{-97})
	h.AddAttribute("", "MOAD_CEN_LAT", []float32{40})
	h.AddAttribute("", "CEN_LAT", []float32{40})
	h.AddAttribute("", "CEN_LON", []float32{-97})
	h.Define()

	path := filepath.Join(dir, wrfName(tm))
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	ff, err := cdf.Create(f, h)
	if err != nil {
		t.Fatal(err)
	}
	for _, n := range names {
		data32 := make([]float32, len(vars[n].data.Elements))
		for i, e := range vars[n].data.Elements {
			data32[i] = float32(e)
		}
		if _, err := ff.Writer(n, nil, nil).Write(data32); err != nil {
			t.Fatal(err)
		}
	}
	if err := cdf.UpdateNumRecs(f); err != nil {
		t.Fatal(err)
	}
	return path
}

// writeDay writes the 25 files needed to convert day d, using the
// same variables for every hour, and returns their paths.
func writeDay(t *testing.T, dir string, d Day, vars map[string]wrfVar) []string {
	t.Helper()
	var paths []string
	for h := 0; h < filesPerDay; h++ {
		paths = append(paths, writeWRFChemi(t, dir, d.At(h), 1000, 1000, vars))
	}
	return paths
}

// touchDay returns the names of empty files for every hour of day d,
// plus hour 0 of the next day if next is true.
func touchDay(d Day, next bool) []string {
	var names []string
	n := hoursPerDay
	if next {
		n = filesPerDay
	}
	for h := 0; h < n; h++ {
		names = append(names, filepath.Join("data", wrfName(d.At(h))))
	}
	return names
}
