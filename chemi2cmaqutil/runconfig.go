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

package chemi2cmaqutil

import (
	"fmt"
	"hash/fnv"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/davecgh/go-spew/spew"
	"github.com/lnashier/viper"
	"github.com/spatialmodel/chemi2cmaq"
)

// RunConfigName is the name of the file in the output directory that
// records the settings of the last conversion.
const RunConfigName = "chemi2cmaq_run.toml"

// RunConfig records the settings and outcome of a conversion run.
type RunConfig struct {
	Version      string
	Created      time.Time
	WRFChemi     string
	MappingFile  string
	MappingSheet string
	OutputDir    string
	OutputName   string
	GridSource   string
	TrimBoundary bool

	// MappingHash identifies the species mapping that was used.
	MappingHash string

	// FirstDay and LastDay are the first and last days written,
	// in the format YYYYDDD, and STime is the start time of each
	// file in the format HHMMSS.
	FirstDay, LastDay string
	STime             int

	Written []string
	Skipped []string
}

// NewRunConfig returns the run configuration of a finished conversion.
func NewRunConfig(cfg *viper.Viper, c *chemi2cmaq.Converter, rep *chemi2cmaq.Report) *RunConfig {
	rc := &RunConfig{
		Version:      chemi2cmaq.Version,
		Created:      c.Clock.Now().UTC(),
		WRFChemi:     expand(cfg.GetString("WRFChemi")),
		MappingFile:  expand(cfg.GetString("MappingFile")),
		MappingSheet: cfg.GetString("MappingSheet"),
		OutputDir:    c.OutputDir,
		OutputName:   c.OutputName,
		GridSource:   c.GridSource,
		TrimBoundary: c.TrimBoundary,
		MappingHash:  mappingHash(c.Mapping.Entries()),
	}
	for _, w := range rep.Written {
		rc.Written = append(rc.Written, filepath.Base(w.Path))
	}
	for _, s := range rep.Skipped {
		rc.Skipped = append(rc.Skipped, fmt.Sprintf("%s: %s", s.Day, s.Reason))
	}
	if len(rep.Written) > 0 {
		rc.FirstDay = rep.Written[0].Day.String()
		rc.LastDay = rep.Written[len(rep.Written)-1].Day.String()
		rc.STime = rep.Written[0].STime
	}
	return rc
}

// mappingHash returns a hash of the given mapping rows.
func mappingHash(rows []chemi2cmaq.Mapping) string {
	h := fnv.New128a()
	printer := spew.ConfigState{
		Indent:                  " ",
		SortKeys:                true,
		DisableMethods:          true,
		DisablePointerAddresses: true,
		DisableCapacities:       true,
	}
	printer.Fprintf(h, "%#v", rows)
	return fmt.Sprintf("%x", h.Sum(nil))
}

// WriteRunConfig writes rc to the given file in TOML format.
func WriteRunConfig(filename string, rc *RunConfig) error {
	f, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("chemi2cmaq: writing run configuration: %v", err)
	}
	if err := toml.NewEncoder(f).Encode(rc); err != nil {
		f.Close()
		return fmt.Errorf("chemi2cmaq: writing run configuration: %v", err)
	}
	return f.Close()
}

// ReadRunConfig reads a run configuration written by WriteRunConfig.
func ReadRunConfig(filename string) (*RunConfig, error) {
	rc := new(RunConfig)
	if _, err := toml.DecodeFile(filename, rc); err != nil {
		return nil, fmt.Errorf("chemi2cmaq: reading run configuration: %v", err)
	}
	return rc, nil
}
