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
	"path/filepath"
	"strings"
	"time"

	"github.com/ctessum/cdf"
	"github.com/ctessum/sparse"
)

// IOAPI dimension and variable names.
const (
	dimTStep    = "TSTEP"
	dimDateTime = "DATE-TIME"
	dimLay      = "LAY"
	dimVar      = "VAR"
	dimRow      = "ROW"
	dimCol      = "COL"
	tflagName   = "TFLAG"
)

const (
	ioapiVersion = "$Id: @(#) ioapi library version 3.1 $"
	ftypeGridded = 1
	descWidth    = 80
	tflagUnits   = "<YYYYDDD,HHMMSS>"
	tflagDesc    = "Timestep-valid flags:  (1) YYYYDDD or (2) HHMMSS"

	// DateWildcard is replaced by the YYYYDDD date in output file names.
	DateWildcard = "[DATE]"
	// DefaultArchiveName is the default output file name template.
	DefaultArchiveName = "Emis_CMAQ_" + DateWildcard + ".ncf"
)

// Species is one target species in an archive.
type Species struct {
	Name, Units, Desc string
	// Data holds one hour-slice per time step with dimensions
	// [layer, row, column].
	Data []*sparse.DenseArray
}

// Archive is the content of one daily IOAPI emissions file.
type Archive struct {
	// Day and STime are the date and HHMMSS time of the first time step.
	Day   Day
	STime int

	Species []Species
	// TFlag holds one (YYYYDDD, HHMMSS) pair per time step and species.
	TFlag [][][2]int32
	Grid  Grid

	UPNAM, ExecID, FileDesc, History string

	// Created is the creation and write time recorded in the file.
	Created time.Time
}

// ArchiveName returns the name of the output file for day d, where
// template contains DateWildcard.
func ArchiveName(template string, d Day) string {
	return strings.Replace(template, DateWildcard, d.String(), -1)
}

// check makes sure that the data are consistent with the grid
// dimensions and the time index.
func (a *Archive) check() error {
	if len(a.Species) == 0 {
		return fmt.Errorf("chemi2cmaq: archive for day %v has no species", a.Day)
	}
	nt := len(a.TFlag)
	shape := []int{a.Grid.NLays, a.Grid.NRows, a.Grid.NCols}
	for _, sp := range a.Species {
		if len(sp.Data) != nt {
			return fmt.Errorf("chemi2cmaq: archive for day %v: species %s has %d time steps; TFLAG has %d",
				a.Day, sp.Name, len(sp.Data), nt)
		}
		for _, d := range sp.Data {
			if !sameShape(d.Shape, shape) {
				return fmt.Errorf("chemi2cmaq: archive for day %v: species %s has shape %v; grid is %v",
					a.Day, sp.Name, d.Shape, shape)
			}
		}
	}
	for i, row := range a.TFlag {
		if len(row) != len(a.Species) {
			return fmt.Errorf("chemi2cmaq: archive for day %v: TFLAG step %d has %d entries for %d species",
				a.Day, i, len(row), len(a.Species))
		}
	}
	if len(a.Grid.VGLVLS) != a.Grid.NLays+1 {
		return fmt.Errorf("chemi2cmaq: archive for day %v: VGLVLS has %d values for %d layers",
			a.Day, len(a.Grid.VGLVLS), a.Grid.NLays)
	}
	return nil
}

func pad(s string, width int) string {
	return fmt.Sprintf("%-*s", width, s)
}

func (a *Archive) header() *cdf.Header {
	g := a.Grid
	h := cdf.NewHeader(
		[]string{dimTStep, dimDateTime, dimLay, dimVar, dimRow, dimCol},
		[]int{0, 2, g.NLays, len(a.Species), g.NRows, g.NCols})

	h.AddVariable(tflagName, []string{dimTStep, dimVar, dimDateTime}, []int32{0})
	h.AddAttribute(tflagName, "units", tflagUnits)
	h.AddAttribute(tflagName, "long_name", pad(tflagName, nameWidth))
	h.AddAttribute(tflagName, "var_desc", pad(tflagDesc, descWidth))

	var varList strings.Builder
	for _, sp := range a.Species {
		h.AddVariable(sp.Name, []string{dimTStep, dimLay, dimRow, dimCol}, []float32{0})
		h.AddAttribute(sp.Name, "long_name", pad(sp.Name, nameWidth))
		h.AddAttribute(sp.Name, "units", pad(sp.Units, nameWidth))
		h.AddAttribute(sp.Name, "var_desc", pad(sp.Desc, descWidth))
		varList.WriteString(pad(sp.Name, nameWidth))
	}

	cdate, ctime := int32(DayOf(a.Created).Julian()), int32(hhmmss(a.Created.UTC()))
	h.AddAttribute("", "IOAPI_VERSION", pad(ioapiVersion, descWidth))
	h.AddAttribute("", "EXEC_ID", pad(a.ExecID, descWidth))
	h.AddAttribute("", "FTYPE", []int32{ftypeGridded})
	h.AddAttribute("", "CDATE", []int32{cdate})
	h.AddAttribute("", "CTIME", []int32{ctime})
	h.AddAttribute("", "WDATE", []int32{cdate})
	h.AddAttribute("", "WTIME", []int32{ctime})
	h.AddAttribute("", "SDATE", []int32{int32(a.Day.Julian())})
	h.AddAttribute("", "STIME", []int32{int32(a.STime)})
	h.AddAttribute("", "TSTEP", []int32{hourStep})
	h.AddAttribute("", "NTHIK", []int32{1})
	h.AddAttribute("", "NCOLS", []int32{int32(g.NCols)})
	h.AddAttribute("", "NROWS", []int32{int32(g.NRows)})
	h.AddAttribute("", "NLAYS", []int32{int32(g.NLays)})
	h.AddAttribute("", "NVARS", []int32{int32(len(a.Species))})
	h.AddAttribute("", "GDTYP", []int32{g.GDTYP})
	h.AddAttribute("", "P_ALP", []float64{g.PAlp})
	h.AddAttribute("", "P_BET", []float64{g.PBet})
	h.AddAttribute("", "P_GAM", []float64{g.PGam})
	h.AddAttribute("", "XCENT", []float64{g.XCent})
	h.AddAttribute("", "YCENT", []float64{g.YCent})
	h.AddAttribute("", "XORIG", []float64{g.XOrig})
	h.AddAttribute("", "YORIG", []float64{g.YOrig})
	h.AddAttribute("", "XCELL", []float64{g.XCell})
	h.AddAttribute("", "YCELL", []float64{g.YCell})
	h.AddAttribute("", "VGTYP", []int32{g.VGTYP})
	h.AddAttribute("", "VGTOP", []float32{g.VGTOP})
	h.AddAttribute("", "VGLVLS", g.VGLVLS)
	h.AddAttribute("", "GDNAM", pad(g.GDNAM, nameWidth))
	h.AddAttribute("", "UPNAM", pad(a.UPNAM, nameWidth))
	h.AddAttribute("", "VAR-LIST", varList.String())
	h.AddAttribute("", "FILEDESC", pad(a.FileDesc, descWidth))
	h.AddAttribute("", "HISTORY", pad(a.History, descWidth))
	h.Define()
	return h
}

// WriteArchive writes a to an IOAPI file at path. The file is first
// written under a temporary name in the same directory and only
// renamed to path once it is complete, so a failed write never leaves
// a partial archive behind.
func WriteArchive(path string, a *Archive) (err error) {
	if err = a.check(); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("chemi2cmaq: creating archive: %w", err)
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()
	f, err := cdf.Create(tmp, a.header())
	if err != nil {
		return fmt.Errorf("chemi2cmaq: writing archive header for %s: %w", path, err)
	}
	if err = writeTFlag(f, a.TFlag); err != nil {
		return fmt.Errorf("chemi2cmaq: writing archive %s: %w", path, err)
	}
	for _, sp := range a.Species {
		if err = writeSeries(f, sp.Name, sp.Data); err != nil {
			return fmt.Errorf("chemi2cmaq: writing archive %s: %w", path, err)
		}
	}
	if err = cdf.UpdateNumRecs(tmp); err != nil {
		return fmt.Errorf("chemi2cmaq: writing archive %s: %w", path, err)
	}
	if err = tmp.Chmod(0644); err != nil {
		return fmt.Errorf("chemi2cmaq: writing archive %s: %w", path, err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("chemi2cmaq: writing archive %s: %w", path, err)
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("chemi2cmaq: writing archive: %w", err)
	}
	return nil
}

func writeTFlag(f *cdf.File, tflag [][][2]int32) error {
	if len(tflag) == 0 {
		return nil
	}
	data := make([]int32, 0, len(tflag)*len(tflag[0])*2)
	for _, row := range tflag {
		for _, dt := range row {
			data = append(data, dt[0], dt[1])
		}
	}
	_, err := f.Writer(tflagName, nil, nil).Write(data)
	return err
}

// writeSeries writes the hour-slices of a record variable.
func writeSeries(f *cdf.File, v string, data []*sparse.DenseArray) error {
	if len(data) == 0 {
		return nil
	}
	data32 := make([]float32, 0, len(data)*len(data[0].Elements))
	for _, d := range data {
		for _, e := range d.Elements {
			data32 = append(data32, float32(e))
		}
	}
	_, err := f.Writer(v, nil, nil).Write(data32)
	return err
}

// ReadArchive reads an IOAPI file written by WriteArchive.
func ReadArchive(path string) (*Archive, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("chemi2cmaq: reading archive: %w", err)
	}
	defer f.Close()
	ff, err := cdf.Open(f)
	if err != nil {
		return nil, fmt.Errorf("chemi2cmaq: reading archive %s: %w", path, err)
	}
	fi, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("chemi2cmaq: reading archive %s: %w", path, err)
	}
	nrec := int(ff.Header.NumRecs(fi.Size()))
	r := &archiveReader{h: ff.Header}

	a := &Archive{
		UPNAM:    r.strAttr("UPNAM"),
		ExecID:   r.strAttr("EXEC_ID"),
		FileDesc: r.strAttr("FILEDESC"),
		History:  r.strAttr("HISTORY"),
		STime:    int(r.intAttr("STIME")),
		Grid: Grid{
			GDNAM: r.strAttr("GDNAM"),
			GDTYP: r.intAttr("GDTYP"),
			PAlp:  r.floatAttr("P_ALP"),
			PBet:  r.floatAttr("P_BET"),
			PGam:  r.floatAttr("P_GAM"),
			XCent: r.floatAttr("XCENT"),
			YCent: r.floatAttr("YCENT"),
			XOrig: r.floatAttr("XORIG"),
			YOrig: r.floatAttr("YORIG"),
			XCell: r.floatAttr("XCELL"),
			YCell: r.floatAttr("YCELL"),
			VGTYP: r.intAttr("VGTYP"),
			NLays: int(r.intAttr("NLAYS")),
			NRows: int(r.intAttr("NROWS")),
			NCols: int(r.intAttr("NCOLS")),
		},
	}
	if v, ok := ff.Header.GetAttribute("", "VGTOP").([]float32); ok && len(v) > 0 {
		a.Grid.VGTOP = v[0]
	}
	a.Grid.VGLVLS, _ = ff.Header.GetAttribute("", "VGLVLS").([]float32)
	if a.Day, err = DayFromJulian(int(r.intAttr("SDATE"))); err != nil {
		return nil, fmt.Errorf("chemi2cmaq: reading archive %s: %w", path, err)
	}
	if cday, err := DayFromJulian(int(r.intAttr("CDATE"))); err == nil {
		ct := int(r.intAttr("CTIME"))
		a.Created = cday.Time().Add(time.Duration(ct/10000)*time.Hour +
			time.Duration(ct/100%100)*time.Minute + time.Duration(ct%100)*time.Second)
	}
	if r.err != nil {
		return nil, fmt.Errorf("chemi2cmaq: reading archive %s: %w", path, r.err)
	}

	for _, v := range ff.Header.Variables() {
		if v == tflagName {
			continue
		}
		sp := Species{
			Name:  v,
			Units: strings.TrimSpace(r.varAttr(v, "units")),
			Desc:  strings.TrimSpace(r.varAttr(v, "var_desc")),
		}
		for t := 0; t < nrec; t++ {
			d, err := readRecord(ff, v, t)
			if err != nil {
				return nil, fmt.Errorf("chemi2cmaq: reading archive %s: %w", path, err)
			}
			sp.Data = append(sp.Data, d)
		}
		a.Species = append(a.Species, sp)
	}
	for t := 0; t < nrec; t++ {
		d, err := readRecord(ff, tflagName, t)
		if err != nil {
			return nil, fmt.Errorf("chemi2cmaq: reading archive %s: %w", path, err)
		}
		row := make([][2]int32, d.Shape[0])
		for i := range row {
			row[i] = [2]int32{int32(d.Get(i, 0)), int32(d.Get(i, 1))}
		}
		a.TFlag = append(a.TFlag, row)
	}
	return a, nil
}

// readRecord reads record t of variable v.
func readRecord(ff *cdf.File, v string, t int) (*sparse.DenseArray, error) {
	dims := ff.Header.Lengths(v)
	if len(dims) == 0 {
		return nil, fmt.Errorf("variable %s not in file", v)
	}
	dims = dims[1:]
	nread := 1
	for _, dim := range dims {
		nread *= dim
	}
	start, end := make([]int, len(dims)+1), make([]int, len(dims)+1)
	start[0], end[0] = t, t+1
	r := ff.Reader(v, start, end)
	buf := r.Zero(nread)
	if _, err := r.Read(buf); err != nil {
		return nil, fmt.Errorf("reading variable %s record %d: %w", v, t, err)
	}
	data := sparse.ZerosDense(dims...)
	switch b := buf.(type) {
	case []float32:
		for i, val := range b {
			data.Elements[i] = float64(val)
		}
	case []int32:
		for i, val := range b {
			data.Elements[i] = float64(val)
		}
	default:
		return nil, fmt.Errorf("variable %s has unsupported type %T", v, buf)
	}
	return data, nil
}

// archiveReader reads global attributes, keeping the first error.
type archiveReader struct {
	h   *cdf.Header
	err error
}

func (r *archiveReader) strAttr(name string) string {
	return strings.TrimSpace(r.varAttr("", name))
}

func (r *archiveReader) varAttr(v, name string) string {
	s, ok := r.h.GetAttribute(v, name).(string)
	if !ok && r.err == nil {
		r.err = fmt.Errorf("missing text attribute %s", name)
	}
	return s
}

func (r *archiveReader) intAttr(name string) int32 {
	v, ok := r.h.GetAttribute("", name).([]int32)
	if (!ok || len(v) == 0) && r.err == nil {
		r.err = fmt.Errorf("missing integer attribute %s", name)
		return 0
	}
	if len(v) == 0 {
		return 0
	}
	return v[0]
}

func (r *archiveReader) floatAttr(name string) float64 {
	v, ok := r.h.GetAttribute("", name).([]float64)
	if (!ok || len(v) == 0) && r.err == nil {
		r.err = fmt.Errorf("missing floating point attribute %s", name)
		return 0
	}
	if len(v) == 0 {
		return 0
	}
	return v[0]
}
