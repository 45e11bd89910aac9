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
	"math"
	"strings"
)

// Target units that can be requested for CMAQ species.
const (
	GramsPerSecond = "g/s"
	MolesPerSecond = "moles/s"
)

// nameWidth is the width of IOAPI variable names, units and
// entries of the VAR-LIST attribute.
const nameWidth = 16

// Mapping is one row of the species mapping table. It specifies
// that source species Source contributes to target species Target
// after being multiplied by Factor and converted into Units.
type Mapping struct {
	// Source is the name of the WRF-Chem variable.
	Source string
	// Target is the name of the CMAQ species.
	Target string
	// Factor is a linear scaling factor, e.g. a speciation fraction.
	Factor float64
	// Units are the units of the target species, either
	// GramsPerSecond or MolesPerSecond.
	Units string
	// MW is the molecular weight [g/mol]. It is only used, and only
	// required, when converting between moles and mass.
	MW float64
}

// SpeciesMap is a validated set of mappings between source and target
// species. It is read-only after creation.
type SpeciesMap struct {
	entries []Mapping
	species []string
	units   map[string]string
	dropped int
}

// NewSpeciesMap validates the given mappings and creates a SpeciesMap.
// Rows with a blank source or target species are dropped. Target
// species are kept in the order in which they first appear.
func NewSpeciesMap(rows []Mapping) (*SpeciesMap, error) {
	m := &SpeciesMap{units: make(map[string]string)}
	for _, r := range rows {
		r.Source = strings.TrimSpace(r.Source)
		r.Target = strings.TrimSpace(r.Target)
		r.Units = strings.TrimSpace(r.Units)
		if r.Source == "" || r.Target == "" {
			m.dropped++
			continue
		}
		if err := r.check(); err != nil {
			return nil, &ConfigError{Species: r.Target, Err: err}
		}
		if u, ok := m.units[r.Target]; !ok {
			m.units[r.Target] = r.Units
			m.species = append(m.species, r.Target)
		} else if u != r.Units {
			return nil, &ConfigError{Species: r.Target,
				Err: fmt.Errorf("target units are given as both %q and %q", u, r.Units)}
		}
		m.entries = append(m.entries, r)
	}
	if len(m.entries) == 0 {
		return nil, &ConfigError{Err: fmt.Errorf("the species mapping has no valid rows")}
	}
	return m, nil
}

func (r Mapping) check() error {
	if len(r.Target) > nameWidth {
		return fmt.Errorf("target species name %q is longer than %d characters", r.Target, nameWidth)
	}
	if math.IsNaN(r.Factor) || math.IsInf(r.Factor, 0) {
		return fmt.Errorf("conversion factor for %s is %g", r.Source, r.Factor)
	}
	switch r.Units {
	case GramsPerSecond, MolesPerSecond:
	default:
		return fmt.Errorf("target units %q for %s are not supported; valid options are %q and %q",
			r.Units, r.Source, GramsPerSecond, MolesPerSecond)
	}
	if math.IsNaN(r.MW) || math.IsInf(r.MW, 0) || r.MW < 0 {
		return fmt.Errorf("molecular weight for %s is %g", r.Source, r.MW)
	}
	return nil
}

// Entries returns the mappings in table order.
func (m *SpeciesMap) Entries() []Mapping {
	return append([]Mapping(nil), m.entries...)
}

// Species returns the names of the target species in output order.
func (m *SpeciesMap) Species() []string {
	return append([]string(nil), m.species...)
}

// Units returns the units of the given target species.
func (m *SpeciesMap) Units(target string) string { return m.units[target] }

// Dropped returns the number of rows that were dropped because
// their source or target species was blank.
func (m *SpeciesMap) Dropped() int { return m.dropped }
