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
	"os"
	"strings"

	"github.com/ctessum/cdf"
	"github.com/ctessum/sparse"
)

// Dimension names used in WRF-Chem emissions files.
const (
	wrfTime  = "Time"
	wrfLayer = "emissions_zdim_stag"
	wrfRow   = "south_north"
	wrfCol   = "west_east"
)

// SourceFile is an open WRF-Chem emissions file holding one hour of data.
type SourceFile struct {
	HourFile

	// DX and DY are the grid cell width and height [m].
	DX, DY float64

	f  *os.File
	ff *cdf.File
}

// OpenSourceFile opens the given WRF-Chem emissions file and reads its
// grid cell size. The caller must close it.
func OpenSourceFile(hf HourFile) (*SourceFile, error) {
	f, err := os.Open(hf.Path)
	if err != nil {
		return nil, fmt.Errorf("chemi2cmaq: opening WRF-Chem file: %w", err)
	}
	ff, err := cdf.Open(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("chemi2cmaq: reading WRF-Chem file %s: %w", hf.Path, err)
	}
	s := &SourceFile{HourFile: hf, f: f, ff: ff}
	if s.DX, err = s.floatAttribute("DX"); err != nil {
		f.Close()
		return nil, err
	}
	if s.DY, err = s.floatAttribute("DY"); err != nil {
		f.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the underlying file.
func (s *SourceFile) Close() error { return s.f.Close() }

// floatAttribute returns the value of the given numeric global attribute.
func (s *SourceFile) floatAttribute(name string) (float64, error) {
	switch v := s.ff.Header.GetAttribute("", name).(type) {
	case []float32:
		if len(v) > 0 {
			return float64(v[0]), nil
		}
	case []float64:
		if len(v) > 0 {
			return v[0], nil
		}
	case []int32:
		if len(v) > 0 {
			return float64(v[0]), nil
		}
	}
	return 0, fmt.Errorf("chemi2cmaq: WRF-Chem file %s: missing or non-numeric global attribute %s", s.Path, name)
}

// stringAttribute returns the value of the given text attribute of
// variable v, or of the file if v is "".
func (s *SourceFile) stringAttribute(v, name string) string {
	a, _ := s.ff.Header.GetAttribute(v, name).(string)
	return strings.TrimSpace(strings.TrimRight(a, "\x00"))
}

// Has reports whether the file contains variable v.
func (s *SourceFile) Has(v string) bool {
	return len(s.ff.Header.Lengths(v)) != 0
}

// Variables returns the names of the emissions variables in the file,
// which are the variables with a layer dimension.
func (s *SourceFile) Variables() []string {
	var vars []string
	for _, v := range s.ff.Header.Variables() {
		for _, d := range s.ff.Header.Dimensions(v) {
			if d == wrfLayer {
				vars = append(vars, v)
				break
			}
		}
	}
	return vars
}

// Read reads the first time step of variable v and returns it as an
// array with dimensions [layer, row, column], along with the units
// the variable is declared in.
func (s *SourceFile) Read(v string) (*sparse.DenseArray, string, error) {
	dims := s.ff.Header.Lengths(v)
	if len(dims) == 0 {
		return nil, "", fmt.Errorf("variable %s not in file %s", v, s.Path)
	}
	if len(dims) != 4 {
		return nil, "", fmt.Errorf("variable %s in file %s has %d dimensions; expected 4 (%s, %s, %s, %s)",
			v, s.Path, len(dims), wrfTime, wrfLayer, wrfRow, wrfCol)
	}
	dims = dims[1:]
	nread := 1
	for _, dim := range dims {
		nread *= dim
	}
	start, end := make([]int, len(dims)+1), make([]int, len(dims)+1)
	end[0] = 1
	r := s.ff.Reader(v, start, end)
	buf := r.Zero(nread)
	if _, err := r.Read(buf); err != nil {
		return nil, "", fmt.Errorf("chemi2cmaq: reading variable %s from %s: %w", v, s.Path, err)
	}
	data := sparse.ZerosDense(dims...)
	switch b := buf.(type) {
	case []float32:
		for i, val := range b {
			data.Elements[i] = float64(val)
		}
	case []float64:
		copy(data.Elements, b)
	default:
		return nil, "", fmt.Errorf("variable %s in file %s has unsupported type %T", v, s.Path, buf)
	}
	return data, s.stringAttribute(v, "units"), nil
}

// WRFProjection holds the map projection attributes of a WRF file.
type WRFProjection struct {
	MapProj                      int
	TrueLat1, TrueLat2, StandLon float64
	MoadCenLat, CenLat, CenLon   float64
}

// Projection returns the map projection attributes of the file.
func (s *SourceFile) Projection() (WRFProjection, error) {
	var p WRFProjection
	mp, err := s.floatAttribute("MAP_PROJ")
	if err != nil {
		return p, err
	}
	p.MapProj = int(mp)
	for _, a := range []struct {
		name string
		v    *float64
	}{
		{"TRUELAT1", &p.TrueLat1}, {"TRUELAT2", &p.TrueLat2}, {"STAND_LON", &p.StandLon},
		{"MOAD_CEN_LAT", &p.MoadCenLat}, {"CEN_LAT", &p.CenLat}, {"CEN_LON", &p.CenLon},
	} {
		if *a.v, err = s.floatAttribute(a.name); err != nil {
			return p, err
		}
	}
	return p, nil
}
