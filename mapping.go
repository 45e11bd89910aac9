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
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cast"
	"github.com/tealeg/xlsx"
)

// Column names of the species mapping table.
const (
	colSource = "WRF_SPC"
	colTarget = "CMAQ_SPC"
	colFactor = "CONV_FACT"
	colUnits  = "UNITS_SDA"
	colMW     = "MW"
)

// ReadSpeciesMap reads a species mapping table from a Microsoft Excel
// (.xlsx) or comma-separated (.csv) file. For Excel files, sheet
// specifies the sheet to read; if it is empty the first sheet is used.
// The first row must hold the column names WRF_SPC, CMAQ_SPC, CONV_FACT,
// UNITS_SDA and, optionally, MW.
func ReadSpeciesMap(fileName, sheet string) (*SpeciesMap, error) {
	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".xlsx":
		return readSpeciesMapExcel(fileName, sheet)
	case ".csv":
		f, err := os.Open(fileName)
		if err != nil {
			return nil, fmt.Errorf("chemi2cmaq: opening species mapping: %w", err)
		}
		defer f.Close()
		return ReadSpeciesMapCSV(f)
	default:
		return nil, &ConfigError{Err: fmt.Errorf("species mapping file %s must have extension .xlsx or .csv", fileName)}
	}
}

func readSpeciesMapExcel(fileName, sheet string) (*SpeciesMap, error) {
	f, err := xlsx.OpenFile(fileName)
	if err != nil {
		return nil, fmt.Errorf("chemi2cmaq: opening species mapping: %w", err)
	}
	var s *xlsx.Sheet
	if sheet == "" {
		if len(f.Sheets) == 0 {
			return nil, &ConfigError{Err: fmt.Errorf("species mapping file %s has no sheets", fileName)}
		}
		s = f.Sheets[0]
	} else {
		var ok bool
		if s, ok = f.Sheet[sheet]; !ok {
			return nil, &ConfigError{Err: fmt.Errorf("species mapping file %s has no sheet %s", fileName, sheet)}
		}
	}
	rows := make([][]string, s.MaxRow)
	for j := 0; j < s.MaxRow; j++ {
		rows[j] = make([]string, s.MaxCol)
		for i := 0; i < s.MaxCol; i++ {
			rows[j][i] = s.Cell(j, i).Value
		}
	}
	return speciesMapFromRows(rows)
}

// ReadSpeciesMapCSV reads a species mapping table in CSV format.
func ReadSpeciesMapCSV(r io.Reader) (*SpeciesMap, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	rows, err := cr.ReadAll()
	if err != nil {
		return nil, &ConfigError{Err: fmt.Errorf("reading species mapping: %v", err)}
	}
	return speciesMapFromRows(rows)
}

// speciesMapFromRows converts table rows, the first of which holds
// the column names, into a SpeciesMap.
func speciesMapFromRows(rows [][]string) (*SpeciesMap, error) {
	if len(rows) == 0 {
		return nil, &ConfigError{Err: fmt.Errorf("species mapping is empty")}
	}
	cols := make(map[string]int)
	for i, name := range rows[0] {
		cols[strings.ToUpper(strings.TrimSpace(name))] = i
	}
	for _, c := range []string{colSource, colTarget, colFactor, colUnits} {
		if _, ok := cols[c]; !ok {
			return nil, &ConfigError{Err: fmt.Errorf("species mapping is missing column %s", c)}
		}
	}
	cell := func(row []string, c string) string {
		i, ok := cols[c]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	var mappings []Mapping
	for j, row := range rows[1:] {
		m := Mapping{
			Source: cell(row, colSource),
			Target: cell(row, colTarget),
			Units:  cell(row, colUnits),
		}
		if m.Source == "" || m.Target == "" {
			mappings = append(mappings, m) // dropped by NewSpeciesMap
			continue
		}
		var err error
		if m.Factor, err = cast.ToFloat64E(cell(row, colFactor)); err != nil {
			return nil, &ConfigError{Species: m.Target,
				Err: fmt.Errorf("row %d: %s value %q is not a number", j+2, colFactor, cell(row, colFactor))}
		}
		if mw := cell(row, colMW); mw != "" {
			if m.MW, err = cast.ToFloat64E(mw); err != nil {
				return nil, &ConfigError{Species: m.Target,
					Err: fmt.Errorf("row %d: %s value %q is not a number", j+2, colMW, mw)}
			}
		}
		mappings = append(mappings, m)
	}
	return NewSpeciesMap(mappings)
}
