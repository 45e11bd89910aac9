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

	"github.com/ctessum/sparse"
	"github.com/ctessum/unit"
)

// Units of the emissions variables in WRF-Chem files.
const (
	// MolarFlux is the unit of gas-phase emissions.
	MolarFlux = "mol km^-2 hr^-1"
	// MassFlux is the unit of aerosol emissions.
	MassFlux = "ug m^-2 s^-1"
)

const (
	metersPerKm     = 1000.
	secondsPerHour  = 3600.
	microgramsPerG  = 1.e6
	boundaryCells   = 1
	minTrimmedCells = 2*boundaryCells + 1
)

// UnitFactor returns the factor that converts emissions of source
// species m.Source, declared in sourceUnits, into m.Units in a grid cell
// with width dx and height dy [m]. It does not include m.Factor.
// Unrecognized source units, and a missing molecular weight where one
// is needed, result in a *ConfigError.
func UnitFactor(sourceUnits string, dx, dy float64, m Mapping) (float64, error) {
	switch sourceUnits {
	case MolarFlux:
		// mol km-2 hr-1 * km2 / (s hr-1) = mol/s
		area := unit.Mul(unit.New(dx/metersPerKm, unit.Meter), unit.New(dy/metersPerKm, unit.Meter))
		f := unit.Div(area, unit.New(secondsPerHour, unit.Second))
		if err := f.Check(unit.Dimensions{unit.LengthDim: 2, unit.TimeDim: -1}); err != nil {
			return 0, fmt.Errorf("chemi2cmaq: converting %s from %s: %w", m.Source, sourceUnits, err)
		}
		if m.Units == GramsPerSecond {
			if m.MW == 0 {
				return 0, &ConfigError{Species: m.Target,
					Err: fmt.Errorf("a molecular weight is required to convert %s from %s to %s", m.Source, sourceUnits, m.Units)}
			}
			return f.Value() * m.MW, nil
		}
		return f.Value(), nil
	case MassFlux:
		// ug m-2 s-1 * m2 / (ug g-1) = g/s
		area := unit.Mul(unit.New(dx, unit.Meter), unit.New(dy, unit.Meter))
		f := unit.Div(area, unit.New(microgramsPerG, unit.Dimless))
		if err := f.Check(unit.Meter2); err != nil {
			return 0, fmt.Errorf("chemi2cmaq: converting %s from %s: %w", m.Source, sourceUnits, err)
		}
		if m.Units == MolesPerSecond {
			if m.MW == 0 {
				return 0, &ConfigError{Species: m.Target,
					Err: fmt.Errorf("a molecular weight is required to convert %s from %s to %s", m.Source, sourceUnits, m.Units)}
			}
			return f.Value() / m.MW, nil
		}
		return f.Value(), nil
	default:
		return 0, &ConfigError{Species: m.Target,
			Err: fmt.Errorf("source variable %s has units %q; valid options are %q and %q",
				m.Source, sourceUnits, MolarFlux, MassFlux)}
	}
}

// Convert converts one hour of emissions of source species m.Source,
// with dimensions [layer, row, column], into the contribution to target
// species m.Target. If trim is true, one boundary cell is removed from
// every edge of each layer.
func Convert(raw *sparse.DenseArray, sourceUnits string, dx, dy float64, m Mapping, trim bool) (*sparse.DenseArray, error) {
	uf, err := UnitFactor(sourceUnits, dx, dy, m)
	if err != nil {
		return nil, err
	}
	in := raw
	if trim {
		if in, err = TrimBoundary(raw); err != nil {
			return nil, err
		}
	}
	out := sparse.ZerosDense(in.Shape...)
	for i, v := range in.Elements {
		out.Elements[i] = v * m.Factor * uf
	}
	return out, nil
}

// TrimBoundary returns a copy of a, which has dimensions
// [layer, row, column], with the outermost row and column
// removed on every side.
func TrimBoundary(a *sparse.DenseArray) (*sparse.DenseArray, error) {
	if len(a.Shape) != 3 {
		return nil, fmt.Errorf("chemi2cmaq: trimming boundary: array has %d dimensions; expected 3", len(a.Shape))
	}
	nz, ny, nx := a.Shape[0], a.Shape[1], a.Shape[2]
	if ny < minTrimmedCells || nx < minTrimmedCells {
		return nil, fmt.Errorf("chemi2cmaq: trimming boundary: a %d×%d grid is too small", ny, nx)
	}
	out := sparse.ZerosDense(nz, ny-2*boundaryCells, nx-2*boundaryCells)
	for k := 0; k < nz; k++ {
		for j := boundaryCells; j < ny-boundaryCells; j++ {
			for i := boundaryCells; i < nx-boundaryCells; i++ {
				out.Set(a.Get(k, j, i), k, j-boundaryCells, i-boundaryCells)
			}
		}
	}
	return out, nil
}

// TrimmedShape returns the shape of an array with dimensions
// [layer, row, column] after the boundary has optionally been trimmed.
func TrimmedShape(shape []int, trim bool) []int {
	out := append([]int(nil), shape...)
	if trim && len(out) == 3 {
		out[1] -= 2 * boundaryCells
		out[2] -= 2 * boundaryCells
	}
	return out
}
