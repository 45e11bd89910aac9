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
	"math"
	"reflect"
	"testing"

	"github.com/ctessum/sparse"
)

func TestUnitFactor(t *testing.T) {
	const tolerance = 1.e-12
	for _, test := range []struct {
		name   string
		units  string
		dx, dy float64
		m      Mapping
		want   float64
	}{
		{
			name:  "molar to moles",
			units: MolarFlux,
			dx:    27000,
			dy:    27000,
			m:     Mapping{Source: "E_NO", Target: "NO", Units: MolesPerSecond},
			want:  27. * 27. / 3600.,
		},
		{
			name:  "molar to mass",
			units: MolarFlux,
			dx:    1000,
			dy:    2000,
			m:     Mapping{Source: "E_SO2", Target: "SO2", Units: GramsPerSecond, MW: 64},
			want:  1. * 2. / 3600. * 64.,
		},
		{
			name:  "mass to mass",
			units: MassFlux,
			dx:    27000,
			dy:    27000,
			m:     Mapping{Source: "E_PM25I", Target: "PMFINE", Units: GramsPerSecond},
			want:  27000. * 27000. / 1.e6,
		},
		{
			name:  "mass to moles",
			units: MassFlux,
			dx:    1000,
			dy:    1000,
			m:     Mapping{Source: "E_SO4I", Target: "PSO4", Units: MolesPerSecond, MW: 96},
			want:  1000. * 1000. / 1.e6 / 96.,
		},
	} {
		t.Run(test.name, func(t *testing.T) {
			got, err := UnitFactor(test.units, test.dx, test.dy, test.m)
			if err != nil {
				t.Fatal(err)
			}
			if math.Abs(got-test.want)/test.want > tolerance {
				t.Errorf("have %g, want %g", got, test.want)
			}
		})
	}
}

func TestUnitFactorErrors(t *testing.T) {
	for _, test := range []struct {
		name  string
		units string
		m     Mapping
	}{
		{name: "unknown units", units: "ppmv", m: Mapping{Source: "E_NO", Target: "NO", Units: MolesPerSecond}},
		{name: "mol with units suffix", units: "mol km^-2 hr^-1 ", m: Mapping{Source: "E_NO", Target: "NO", Units: MolesPerSecond}},
		{name: "molar without mw", units: MolarFlux, m: Mapping{Source: "E_NO", Target: "NO", Units: GramsPerSecond}},
		{name: "mass without mw", units: MassFlux, m: Mapping{Source: "E_PM", Target: "PM", Units: MolesPerSecond}},
	} {
		t.Run(test.name, func(t *testing.T) {
			_, err := UnitFactor(test.units, 1000, 1000, test.m)
			var ce *ConfigError
			if !errors.As(err, &ce) {
				t.Fatalf("have error %v, want *ConfigError", err)
			}
			if ce.Species != test.m.Target {
				t.Errorf("error is for species %q", ce.Species)
			}
		})
	}
}

func TestConvertIdempotent(t *testing.T) {
	raw := sparse.ZerosDense(2, 3, 4)
	for i := range raw.Elements {
		raw.Elements[i] = float64(i) * 0.37
	}
	m := Mapping{Source: "E_ECI", Target: "PEC", Factor: 0.3, Units: MolesPerSecond, MW: 12}
	a, err := Convert(raw, MassFlux, 12000, 12000, m, false)
	if err != nil {
		t.Fatal(err)
	}
	b, err := Convert(raw, MassFlux, 12000, 12000, m, false)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(a.Elements, b.Elements) {
		t.Error("repeated conversion gave different results")
	}
	if raw.Elements[5] != 5*0.37 {
		t.Error("input was modified")
	}
	uf, _ := UnitFactor(MassFlux, 12000, 12000, m)
	for i, v := range a.Elements {
		if want := raw.Elements[i] * m.Factor * uf; v != want {
			t.Errorf("element %d: have %g, want %g", i, v, want)
		}
	}
}

func TestConvertUnknownUnits(t *testing.T) {
	m := Mapping{Source: "E_NO", Target: "NO", Factor: 1, Units: MolesPerSecond}
	out, err := Convert(sparse.ZerosDense(1, 2, 2), "kg/s", 1000, 1000, m, false)
	if out != nil {
		t.Error("expected no output")
	}
	var ce *ConfigError
	if !errors.As(err, &ce) {
		t.Errorf("have error %v, want *ConfigError", err)
	}
}

func TestTrimBoundary(t *testing.T) {
	a := sparse.ZerosDense(2, 4, 5)
	for k := 0; k < 2; k++ {
		for j := 0; j < 4; j++ {
			for i := 0; i < 5; i++ {
				a.Set(float64(k*100+j*10+i), k, j, i)
			}
		}
	}
	b, err := TrimBoundary(a)
	if err != nil {
		t.Fatal(err)
	}
	if want := []int{2, 2, 3}; !reflect.DeepEqual(b.Shape, want) {
		t.Fatalf("shape: have %v, want %v", b.Shape, want)
	}
	want := []float64{11, 12, 13, 21, 22, 23, 111, 112, 113, 121, 122, 123}
	if !reflect.DeepEqual(b.Elements, want) {
		t.Errorf("have %v, want %v", b.Elements, want)
	}
	if got := TrimmedShape(a.Shape, true); !reflect.DeepEqual(got, b.Shape) {
		t.Errorf("trimmed shape: have %v, want %v", got, b.Shape)
	}
	if got := TrimmedShape(a.Shape, false); !reflect.DeepEqual(got, a.Shape) {
		t.Errorf("untrimmed shape: have %v, want %v", got, a.Shape)
	}

	m := Mapping{Source: "E_CO", Target: "CO", Factor: 2, Units: MolesPerSecond}
	c, err := Convert(a, MolarFlux, 3600, 1000, m, true)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(c.Shape, b.Shape) {
		t.Errorf("converted shape: have %v, want %v", c.Shape, b.Shape)
	}
	if got, want := c.Get(1, 1, 2), 123*2*3.6*1/3600.; math.Abs(got-want) > 1.e-12 {
		t.Errorf("converted value: have %g, want %g", got, want)
	}

	if _, err := TrimBoundary(sparse.ZerosDense(1, 2, 5)); err == nil {
		t.Error("expected an error for a grid that is too small")
	}
}
