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
	"time"

	"github.com/ctessum/sparse"
)

// Accumulator sums the hourly contributions of source species into
// target species and collects them, along with the time index, for one
// day. An Accumulator must not be shared between days.
type Accumulator struct {
	day     Day
	species []string
	known   map[string]bool
	shape   []int

	// scratch holds the hour-slices of the current time step.
	scratch map[string]*sparse.DenseArray
	// series holds the completed hour-slices of each target species.
	series map[string][]*sparse.DenseArray
	tflag  [][][2]int32

	stepDay  Day
	stepTime int
}

// NewAccumulator returns an accumulator for the given day and target
// species whose first time step is 000000 of that day.
func NewAccumulator(day Day, species []string) *Accumulator {
	a := &Accumulator{
		day:     day,
		species: append([]string(nil), species...),
		known:   make(map[string]bool, len(species)),
		scratch: make(map[string]*sparse.DenseArray),
		series:  make(map[string][]*sparse.DenseArray),
		stepDay: day,
	}
	for _, s := range species {
		a.known[s] = true
	}
	return a
}

// Step returns the time of the time step being accumulated.
func (a *Accumulator) Step() time.Time {
	return a.stepDay.At(a.stepTime / hourStep)
}

// Add adds a contribution to the current hour-slice of target species
// target. All contributions must have the same shape.
func (a *Accumulator) Add(target string, contrib *sparse.DenseArray) error {
	if !a.known[target] {
		return &ConfigError{Species: target, Err: fmt.Errorf("not a target species")}
	}
	if a.shape == nil {
		a.shape = append([]int(nil), contrib.Shape...)
	} else if !sameShape(a.shape, contrib.Shape) {
		return &IntegrityError{Day: a.day, Step: a.Step(), Species: target,
			Err: fmt.Errorf("contribution has shape %v; expected %v", contrib.Shape, a.shape)}
	}
	s, ok := a.scratch[target]
	if !ok {
		a.scratch[target] = contrib.Copy()
		return nil
	}
	s.AddDense(contrib)
	return nil
}

// EndHour completes the current time step: every target species must
// have received at least one contribution and contain only finite
// values. The hour-slices and one time index row per species are then
// appended and the time step advances by one hour.
func (a *Accumulator) EndHour() error {
	for _, sp := range a.species {
		s, ok := a.scratch[sp]
		if !ok {
			return &IntegrityError{Day: a.day, Step: a.Step(), Species: sp,
				Err: fmt.Errorf("no source species contributed")}
		}
		for i, v := range s.Elements {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return &IntegrityError{Day: a.day, Step: a.Step(), Species: sp,
					Err: fmt.Errorf("value at %v is %g", s.IndexNd(i), v)}
			}
		}
	}
	row := make([][2]int32, len(a.species))
	for i, sp := range a.species {
		a.series[sp] = append(a.series[sp], a.scratch[sp])
		row[i] = [2]int32{int32(a.stepDay.Julian()), int32(a.stepTime)}
	}
	a.tflag = append(a.tflag, row)
	a.scratch = make(map[string]*sparse.DenseArray)
	a.stepDay, a.stepTime = NextTimeStep(a.stepDay, a.stepTime)
	return nil
}

// StartTime returns the HHMMSS time of the first completed time step,
// or of the current step if none is complete.
func (a *Accumulator) StartTime() int {
	if len(a.tflag) == 0 || len(a.tflag[0]) == 0 {
		return a.stepTime
	}
	return int(a.tflag[0][0][1])
}

// Hours returns the number of completed time steps.
func (a *Accumulator) Hours() int { return len(a.tflag) }

// Shape returns the shape of the hour-slices, or nil if nothing
// has been added yet.
func (a *Accumulator) Shape() []int { return a.shape }

// Series returns the completed hour-slices of target species sp.
func (a *Accumulator) Series(sp string) []*sparse.DenseArray { return a.series[sp] }

// TFlag returns the time index: one (YYYYDDD, HHMMSS) pair per
// completed time step and target species.
func (a *Accumulator) TFlag() [][][2]int32 { return a.tflag }

func sameShape(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
