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
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/ctessum/sparse"
	"github.com/jonboulle/clockwork"
	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/floats"
)

// Reasons for skipping a day.
const (
	SkipCompleteness = "completeness"
	SkipIntegrity    = "integrity"
)

// Converter converts hourly WRF-Chem emissions files into daily
// CMAQ emissions files.
type Converter struct {
	// Mapping specifies how source species are converted into
	// target species.
	Mapping *SpeciesMap

	// TrimBoundary specifies whether one boundary cell should be
	// removed from each edge of the input grid.
	TrimBoundary bool

	// OutputDir is the directory output files are written to, and
	// OutputName is the file name template, which should contain
	// DateWildcard.
	OutputDir, OutputName string

	// GridSource is either GridFixed or GridWRF.
	GridSource string
	// Grid holds the projection parameters used when GridSource is
	// GridFixed, as well as the vertical grid description.
	Grid Grid

	// UPNAM, ExecID, FileDesc and History are written to the
	// IOAPI header. If History is empty, a description of the
	// input files is used.
	UPNAM, ExecID, FileDesc, History string

	// StartDate and EndDate, if not zero, limit the days that
	// are converted.
	StartDate, EndDate Day

	// Workers is the number of days converted at once.
	Workers int

	Clock   clockwork.Clock
	Log     logrus.FieldLogger
	Metrics *Metrics
}

// NewConverter returns a converter with default settings.
func NewConverter(m *SpeciesMap) *Converter {
	return &Converter{
		Mapping:    m,
		OutputDir:  ".",
		OutputName: DefaultArchiveName,
		GridSource: GridFixed,
		Grid:       DefaultGrid(),
		UPNAM:      "M3WNDW",
		ExecID:     "????????????????",
		FileDesc:   "Emissions converted from WRF-Chem",
		Workers:    1,
		Clock:      clockwork.NewRealClock(),
		Log:        logrus.StandardLogger(),
		Metrics:    NewMetrics(),
	}
}

func (c *Converter) check() error {
	if c.Mapping == nil {
		return &ConfigError{Err: fmt.Errorf("no species mapping")}
	}
	switch c.GridSource {
	case GridFixed, GridWRF:
	default:
		return &ConfigError{Err: fmt.Errorf("grid source %q is not valid; options are %q and %q",
			c.GridSource, GridFixed, GridWRF)}
	}
	if c.OutputName == "" {
		return &ConfigError{Err: fmt.Errorf("no output file name")}
	}
	if !c.StartDate.IsZero() && !c.EndDate.IsZero() && c.EndDate.Before(c.StartDate) {
		return &ConfigError{Err: fmt.Errorf("end date %v is before start date %v", c.EndDate, c.StartDate)}
	}
	if c.Clock == nil {
		c.Clock = clockwork.NewRealClock()
	}
	if c.Log == nil {
		c.Log = logrus.StandardLogger()
	}
	if c.Metrics == nil {
		c.Metrics = NewMetrics()
	}
	return nil
}

// inWindow reports whether d is between StartDate and EndDate.
func (c *Converter) inWindow(d Day) bool {
	if !c.StartDate.IsZero() && d.Before(c.StartDate) {
		return false
	}
	if !c.EndDate.IsZero() && c.EndDate.Before(d) {
		return false
	}
	return true
}

// dayGeometry is the grid of the first hour of a day, which all
// other hours must match.
type dayGeometry struct {
	dx, dy float64
	shape  []int
	grid   Grid
}

// ConvertDay converts the 25 files of day d, as returned by
// DayIndex.Resolve, into an archive.
func (c *Converter) ConvertDay(d Day, files []HourFile) (*Archive, error) {
	if err := c.check(); err != nil {
		return nil, err
	}
	if len(files) != filesPerDay {
		return nil, &CompletenessError{Day: d, Missing: []string{fmt.Sprintf("%d files", filesPerDay-len(files))}}
	}
	acc := NewAccumulator(d, c.Mapping.Species())
	var geom *dayGeometry
	for _, hf := range files {
		if !hf.Time.Equal(acc.Step()) {
			return nil, &IntegrityError{Day: d, Step: acc.Step(),
				Err: fmt.Errorf("file %s is for %v", hf.Path, hf.Time)}
		}
		var err error
		if geom, err = c.convertHour(acc, hf, geom); err != nil {
			return nil, err
		}
		if err = acc.EndHour(); err != nil {
			return nil, err
		}
		c.Metrics.HoursRead.Inc()
	}

	a := &Archive{
		Day:      d,
		STime:    acc.StartTime(),
		TFlag:    acc.TFlag(),
		Grid:     geom.grid,
		UPNAM:    c.UPNAM,
		ExecID:   c.ExecID,
		FileDesc: c.FileDesc,
		History:  c.History,
		Created:  c.Clock.Now(),
	}
	if a.History == "" {
		a.History = fmt.Sprintf("chemi2cmaq %s from %s to %s", Version,
			filepath.Base(files[0].Path), filepath.Base(files[len(files)-1].Path))
	}
	for _, sp := range c.Mapping.Species() {
		a.Species = append(a.Species, Species{
			Name:  sp,
			Units: c.Mapping.Units(sp),
			Desc:  "Model species " + sp,
			Data:  acc.Series(sp),
		})
	}
	return a, nil
}

// convertHour adds the contributions of all source species in file hf
// to acc. The file is closed before convertHour returns.
func (c *Converter) convertHour(acc *Accumulator, hf HourFile, geom *dayGeometry) (*dayGeometry, error) {
	f, err := OpenSourceFile(hf)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	c.Log.WithFields(logrus.Fields{
		"day":  acc.day.String(),
		"hour": fmt.Sprintf("%06d", hhmmss(acc.Step())),
		"file": filepath.Base(hf.Path),
	}).Debug("chemi2cmaq converting hour")

	if geom == nil {
		c.logUnmapped(f)
	}
	raw := make(map[string]*sparse.DenseArray)
	units := make(map[string]string)
	for _, m := range c.Mapping.Entries() {
		data, ok := raw[m.Source]
		if !ok {
			if !f.Has(m.Source) {
				return nil, &IntegrityError{Day: acc.day, Step: acc.Step(), Species: m.Target,
					Err: fmt.Errorf("source variable %s is not in file %s", m.Source, hf.Path)}
			}
			var u string
			data, u, err = f.Read(m.Source)
			if err != nil {
				return nil, err
			}
			raw[m.Source], units[m.Source] = data, u
		}
		if geom == nil {
			if geom, err = c.newGeometry(f, data.Shape); err != nil {
				return nil, err
			}
		}
		if f.DX != geom.dx || f.DY != geom.dy {
			return nil, &IntegrityError{Day: acc.day, Step: acc.Step(),
				Err: fmt.Errorf("file %s has cell size %g×%g; expected %g×%g", hf.Path, f.DX, f.DY, geom.dx, geom.dy)}
		}
		if !sameShape(data.Shape, geom.shape) {
			return nil, &IntegrityError{Day: acc.day, Step: acc.Step(), Species: m.Target,
				Err: fmt.Errorf("variable %s in file %s has shape %v; expected %v", m.Source, hf.Path, data.Shape, geom.shape)}
		}
		contrib, err := Convert(data, units[m.Source], f.DX, f.DY, m, c.TrimBoundary)
		if err != nil {
			return nil, err
		}
		if err := acc.Add(m.Target, contrib); err != nil {
			return nil, err
		}
	}
	return geom, nil
}

// logUnmapped logs the emissions variables in f that no mapping
// row uses.
func (c *Converter) logUnmapped(f *SourceFile) {
	used := make(map[string]bool)
	for _, m := range c.Mapping.Entries() {
		used[m.Source] = true
	}
	var unmapped []string
	for _, v := range f.Variables() {
		if !used[v] {
			unmapped = append(unmapped, v)
		}
	}
	if len(unmapped) > 0 {
		c.Log.WithFields(logrus.Fields{
			"file":     filepath.Base(f.Path),
			"unmapped": strings.Join(unmapped, ","),
		}).Debug("chemi2cmaq source variables not in species mapping")
	}
}

// newGeometry sets up the grid of a day from its first hour.
func (c *Converter) newGeometry(f *SourceFile, shape []int) (*dayGeometry, error) {
	out := TrimmedShape(shape, c.TrimBoundary)
	if len(out) != 3 || out[1] < 1 || out[2] < 1 {
		return nil, &ConfigError{Err: fmt.Errorf("cannot create an output grid from input shape %v", shape)}
	}
	base := c.Grid
	if c.GridSource == GridWRF {
		p, err := f.Projection()
		if err != nil {
			return nil, err
		}
		if base, err = GridFromWRF(p, f.DX, f.DY, out[1], out[2], base); err != nil {
			return nil, err
		}
	}
	g, err := base.withShape(out, f.DX, f.DY)
	if err != nil {
		return nil, err
	}
	return &dayGeometry{dx: f.DX, dy: f.DY, shape: append([]int(nil), shape...), grid: g}, nil
}

// DayResult is the outcome of converting one day.
type DayResult struct {
	Day Day
	// Path is the output file, if one was written, and STime is the
	// HHMMSS time of its first time step.
	Path  string
	STime int
	// Reason is SkipCompleteness or SkipIntegrity for skipped days.
	Reason string
	Err    error
}

// Report summarizes a conversion run.
type Report struct {
	Written []DayResult
	Skipped []DayResult
	// Ineligible lists the days within the date window that do not
	// have a complete set of input files.
	Ineligible []Day
}

// Run converts every eligible day in idx within the date window and
// writes one file per day. Days with missing files or unusable data are
// skipped and listed in the report; configuration and I/O errors stop
// the run.
func (c *Converter) Run(idx *DayIndex) (*Report, error) {
	if err := c.check(); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(c.OutputDir, 0755); err != nil {
		return nil, fmt.Errorf("chemi2cmaq: creating output directory: %w", err)
	}
	rep := new(Report)
	var days []Day
	for _, d := range idx.Days() {
		if !c.inWindow(d) {
			continue
		}
		if idx.IsEligible(d) {
			days = append(days, d)
			continue
		}
		rep.Ineligible = append(rep.Ineligible, d)
		c.Log.WithFields(logrus.Fields{
			"day":     d.String(),
			"missing": len(idx.Missing(d)),
		}).Debug("chemi2cmaq day is incomplete")
	}

	workers := c.Workers
	if workers < 1 {
		workers = 1
	}
	dayChan := make(chan Day)
	resultChan := make(chan DayResult)
	quit := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			for d := range dayChan {
				resultChan <- c.runDay(idx, d)
			}
		}()
	}
	go func() {
		defer close(dayChan)
		for _, d := range days {
			select {
			case dayChan <- d:
			case <-quit:
				return
			}
		}
	}()
	go func() {
		wg.Wait()
		close(resultChan)
	}()

	var runErr error
	for r := range resultChan {
		switch {
		case r.Err == nil:
			rep.Written = append(rep.Written, r)
		case r.Reason != "":
			rep.Skipped = append(rep.Skipped, r)
			c.Metrics.DaysSkipped.WithLabelValues(r.Reason).Inc()
			c.Log.WithFields(logrus.Fields{
				"day":    r.Day.String(),
				"reason": r.Reason,
			}).Warn(r.Err)
		case runErr == nil:
			runErr = r.Err
			close(quit)
		}
	}
	sortResults(rep.Written)
	sortResults(rep.Skipped)
	if runErr != nil {
		for _, w := range rep.Written {
			c.Log.WithFields(logrus.Fields{
				"day":  w.Day.String(),
				"file": w.Path,
			}).Warn("chemi2cmaq archive was written before the run stopped")
		}
		return rep, runErr
	}
	c.Log.WithFields(logrus.Fields{
		"written":    len(rep.Written),
		"skipped":    len(rep.Skipped),
		"ineligible": len(rep.Ineligible),
	}).Info("chemi2cmaq conversion finished")
	return rep, nil
}

func sortResults(r []DayResult) {
	sort.Slice(r, func(i, j int) bool { return r[i].Day.Before(r[j].Day) })
}

// runDay converts and writes one day.
func (c *Converter) runDay(idx *DayIndex, d Day) DayResult {
	start := c.Clock.Now()
	res := DayResult{Day: d}
	files, err := idx.Resolve(d)
	if err == nil {
		var a *Archive
		if a, err = c.ConvertDay(d, files); err == nil {
			res.Path = filepath.Join(c.OutputDir, ArchiveName(c.OutputName, d))
			if err = WriteArchive(res.Path, a); err == nil {
				res.STime = a.STime
				c.logTotals(a, res.Path)
			}
		}
	}
	res.Err = err
	var ce *CompletenessError
	var ie *IntegrityError
	switch {
	case err == nil:
		c.Metrics.ArchivesWritten.Inc()
		c.Metrics.DayDuration.Observe(c.Clock.Since(start).Seconds())
	case errors.As(err, &ce):
		res.Path, res.Reason = "", SkipCompleteness
	case errors.As(err, &ie):
		res.Path, res.Reason = "", SkipIntegrity
	default:
		res.Path = ""
	}
	return res
}

// logTotals logs the sum over all time steps of each species.
func (c *Converter) logTotals(a *Archive, path string) {
	fields := logrus.Fields{"day": a.Day.String(), "file": path}
	for _, sp := range a.Species {
		var total float64
		for _, d := range sp.Data {
			total += floats.Sum(d.Elements)
		}
		fields[sp.Name] = total
	}
	c.Log.WithFields(fields).Info("chemi2cmaq wrote archive")
}
