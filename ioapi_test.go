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
	"reflect"
	"testing"
	"time"

	"github.com/ctessum/cdf"
	"github.com/ctessum/sparse"
)

func testArchive() *Archive {
	d := NewDay(2018, time.September, 1)
	g := DefaultGrid()
	g.NLays, g.NRows, g.NCols = 1, 2, 2
	g.XCell, g.YCell = 1000, 1000
	g.VGLVLS = []float32{1, 0.995}
	a := &Archive{
		Day:      d,
		Grid:     g,
		UPNAM:    "M3WNDW",
		ExecID:   "????????????????",
		FileDesc: "test emissions",
		History:  "test history",
		Created:  time.Date(2021, time.March, 4, 5, 6, 7, 0, time.UTC),
	}
	a.Species = []Species{
		{Name: "NO", Units: MolesPerSecond, Desc: "Model species NO"},
		{Name: "PMFINE", Units: GramsPerSecond, Desc: "Model species PMFINE"},
	}
	sd, hh := d, 0
	for h := 0; h < 3; h++ {
		a.Species[0].Data = append(a.Species[0].Data, grid2x2(0.5, 1, 1.5, float64(h)))
		a.Species[1].Data = append(a.Species[1].Data, grid2x2(0.25, 0.125, 8, float64(-h)))
		a.TFlag = append(a.TFlag, [][2]int32{
			{int32(sd.Julian()), int32(hh)},
			{int32(sd.Julian()), int32(hh)},
		})
		sd, hh = NextTimeStep(sd, hh)
	}
	return a
}

func TestArchiveRoundTrip(t *testing.T) {
	a := testArchive()
	path := filepath.Join(t.TempDir(), ArchiveName(DefaultArchiveName, a.Day))
	if filepath.Base(path) != "Emis_CMAQ_2018244.ncf" {
		t.Errorf("file name is %s", filepath.Base(path))
	}
	if err := WriteArchive(path, a); err != nil {
		t.Fatal(err)
	}
	b, err := ReadArchive(path)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(a.TFlag, b.TFlag) {
		t.Errorf("TFLAG: have %v, want %v", b.TFlag, a.TFlag)
	}
	if len(b.Species) != len(a.Species) {
		t.Fatalf("have %d species, want %d", len(b.Species), len(a.Species))
	}
	for i, want := range a.Species {
		got := b.Species[i]
		if got.Name != want.Name || got.Units != want.Units || got.Desc != want.Desc {
			t.Errorf("species %d: have %s %q %q, want %s %q %q", i,
				got.Name, got.Units, got.Desc, want.Name, want.Units, want.Desc)
		}
		if len(got.Data) != len(want.Data) {
			t.Fatalf("%s: have %d hours, want %d", want.Name, len(got.Data), len(want.Data))
		}
		for h := range want.Data {
			if !reflect.DeepEqual(got.Data[h].Shape, want.Data[h].Shape) {
				t.Errorf("%s hour %d: shape %v != %v", want.Name, h, got.Data[h].Shape, want.Data[h].Shape)
			}
			if !reflect.DeepEqual(got.Data[h].Elements, want.Data[h].Elements) {
				t.Errorf("%s hour %d: %v != %v", want.Name, h, got.Data[h].Elements, want.Data[h].Elements)
			}
		}
	}
	if !reflect.DeepEqual(a.Grid, b.Grid) {
		t.Errorf("grid: have %+v, want %+v", b.Grid, a.Grid)
	}
	if b.Day != a.Day || b.STime != a.STime {
		t.Errorf("start: have %v %06d, want %v %06d", b.Day, b.STime, a.Day, a.STime)
	}
	if !b.Created.Equal(a.Created) {
		t.Errorf("created: have %v, want %v", b.Created, a.Created)
	}
	if b.UPNAM != a.UPNAM || b.ExecID != a.ExecID || b.FileDesc != a.FileDesc || b.History != a.History {
		t.Errorf("descriptions: have %q %q %q %q", b.UPNAM, b.ExecID, b.FileDesc, b.History)
	}
}

func TestArchiveHeader(t *testing.T) {
	a := testArchive()
	path := filepath.Join(t.TempDir(), "out.ncf")
	if err := WriteArchive(path, a); err != nil {
		t.Fatal(err)
	}
	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	ff, err := cdf.Open(f)
	if err != nil {
		t.Fatal(err)
	}
	h := ff.Header
	for attr, want := range map[string]interface{}{
		"VAR-LIST": "NO              PMFINE          ",
		"GDNAM":    "2018_NSthAm_CROS",
		"UPNAM":    "M3WNDW          ",
		"FTYPE":    []int32{1},
		"SDATE":    []int32{2018244},
		"STIME":    []int32{0},
		"TSTEP":    []int32{10000},
		"NVARS":    []int32{2},
		"NLAYS":    []int32{1},
		"NROWS":    []int32{2},
		"NCOLS":    []int32{2},
		"CDATE":    []int32{2021063},
		"CTIME":    []int32{50607},
		"WDATE":    []int32{2021063},
		"GDTYP":    []int32{2},
		"XCELL":    []float64{1000},
		"P_ALP":    []float64{-9.26763916015625},
		"VGTYP":    []int32{-1},
		"VGTOP":    []float32{0},
		"VGLVLS":   []float32{1, 0.995},
	} {
		if got := h.GetAttribute("", attr); !reflect.DeepEqual(got, want) {
			t.Errorf("%s: have %#v, want %#v", attr, got, want)
		}
	}
	if got := h.GetAttribute("NO", "long_name"); got != "NO              " {
		t.Errorf("long_name: have %q", got)
	}
	if got := h.GetAttribute("PMFINE", "units"); got != "g/s             " {
		t.Errorf("units: have %q", got)
	}
	if got := h.GetAttribute(tflagName, "units"); got != "<YYYYDDD,HHMMSS>" {
		t.Errorf("TFLAG units: have %q", got)
	}
	if got, want := h.Dimensions(tflagName), []string{dimTStep, dimVar, dimDateTime}; !reflect.DeepEqual(got, want) {
		t.Errorf("TFLAG dimensions: have %v, want %v", got, want)
	}
	if got, want := h.Dimensions("NO"), []string{dimTStep, dimLay, dimRow, dimCol}; !reflect.DeepEqual(got, want) {
		t.Errorf("species dimensions: have %v, want %v", got, want)
	}
	if !h.IsRecordVariable("NO") {
		t.Error("species are not record variables")
	}
	fi, err := f.Stat()
	if err != nil {
		t.Fatal(err)
	}
	if n := h.NumRecs(fi.Size()); n != 3 {
		t.Errorf("have %d records, want 3", n)
	}
}

func TestWriteArchiveNoPartialFile(t *testing.T) {
	for name, corrupt := range map[string]func(a *Archive){
		"short series": func(a *Archive) { a.Species[1].Data = a.Species[1].Data[:2] },
		"wrong shape":  func(a *Archive) { a.Species[0].Data[1] = sparse.ZerosDense(1, 3, 3) },
		"short tflag":  func(a *Archive) { a.TFlag[2] = a.TFlag[2][:1] },
		"vglvls":       func(a *Archive) { a.Grid.VGLVLS = []float32{1} },
		"no species":   func(a *Archive) { a.Species = nil },
	} {
		t.Run(name, func(t *testing.T) {
			dir := t.TempDir()
			a := testArchive()
			corrupt(a)
			if err := WriteArchive(filepath.Join(dir, "out.ncf"), a); err == nil {
				t.Fatal("expected an error")
			}
			files, err := os.ReadDir(dir)
			if err != nil {
				t.Fatal(err)
			}
			if len(files) != 0 {
				t.Errorf("files were left behind: %v", files)
			}
		})
	}
}

func TestWriteArchiveMissingDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", "out.ncf")
	if err := WriteArchive(path, testArchive()); err == nil {
		t.Fatal("expected an error")
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("have stat error %v", err)
	}
}
