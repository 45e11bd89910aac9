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
	"os"

	"github.com/lnashier/viper"
	"github.com/sirupsen/logrus"
	"github.com/spatialmodel/chemi2cmaq"
	"github.com/spf13/cast"
)

// expand expands environment variables in a configuration value.
func expand(s string) string { return os.ExpandEnv(s) }

// setLogger configures the standard logger from the LogLevel and
// LogFormat options.
func setLogger(cfg *viper.Viper) error {
	level, err := logrus.ParseLevel(cfg.GetString("LogLevel"))
	if err != nil {
		return fmt.Errorf("chemi2cmaq: invalid LogLevel: %v", err)
	}
	log := logrus.StandardLogger()
	log.SetLevel(level)
	switch f := cfg.GetString("LogFormat"); f {
	case "text", "":
		log.Formatter = &logrus.TextFormatter{FullTimestamp: true}
	case "json":
		log.Formatter = &logrus.JSONFormatter{}
	default:
		return fmt.Errorf("chemi2cmaq: invalid LogFormat %q; options are text and json", f)
	}
	return nil
}

// loadIndex finds the WRF-Chem files matching the WRFChemi option
// and groups them by day.
func loadIndex(cfg *viper.Viper) (*chemi2cmaq.DayIndex, error) {
	files, err := chemi2cmaq.FindHourFiles(expand(cfg.GetString("WRFChemi")))
	if err != nil {
		return nil, err
	}
	return chemi2cmaq.NewDayIndex(files)
}

// dateWindow parses the StartDate and EndDate options. Empty dates
// are returned as zero days.
func dateWindow(cfg *viper.Viper) (start, end chemi2cmaq.Day, err error) {
	if s := cfg.GetString("StartDate"); s != "" {
		if start, err = chemi2cmaq.ParseDay(s); err != nil {
			return start, end, &chemi2cmaq.ConfigError{Err: fmt.Errorf("StartDate: %v", err)}
		}
	}
	if s := cfg.GetString("EndDate"); s != "" {
		if end, err = chemi2cmaq.ParseDay(s); err != nil {
			return start, end, &chemi2cmaq.ConfigError{Err: fmt.Errorf("EndDate: %v", err)}
		}
	}
	return start, end, nil
}

// gridConfig returns the IOAPI grid description specified by the
// IOAPI.* options.
func gridConfig(cfg *viper.Viper) (chemi2cmaq.Grid, error) {
	g := chemi2cmaq.DefaultGrid()
	g.GDNAM = cfg.GetString("IOAPI.GDNAM")
	g.GDTYP = int32(cfg.GetInt("IOAPI.GDTYP"))
	g.PAlp = cfg.GetFloat64("IOAPI.P_ALP")
	g.PBet = cfg.GetFloat64("IOAPI.P_BET")
	g.PGam = cfg.GetFloat64("IOAPI.P_GAM")
	g.XCent = cfg.GetFloat64("IOAPI.XCENT")
	g.YCent = cfg.GetFloat64("IOAPI.YCENT")
	g.XOrig = cfg.GetFloat64("IOAPI.XORIG")
	g.YOrig = cfg.GetFloat64("IOAPI.YORIG")
	g.VGTYP = int32(cfg.GetInt("IOAPI.VGTYP"))
	g.VGTOP = float32(cfg.GetFloat64("IOAPI.VGTOP"))

	levels, err := cast.ToStringSliceE(cfg.Get("IOAPI.VGLVLS"))
	if err != nil {
		return g, &chemi2cmaq.ConfigError{Err: fmt.Errorf("IOAPI.VGLVLS: %v", err)}
	}
	g.VGLVLS = nil
	for _, l := range levels {
		v, err := cast.ToFloat64E(l)
		if err != nil {
			return g, &chemi2cmaq.ConfigError{Err: fmt.Errorf("IOAPI.VGLVLS: %v", err)}
		}
		g.VGLVLS = append(g.VGLVLS, float32(v))
	}
	return g, nil
}

// NewConverter creates a converter from the configuration in cfg,
// reading the species mapping file.
func NewConverter(cfg *viper.Viper) (*chemi2cmaq.Converter, error) {
	m, err := chemi2cmaq.ReadSpeciesMap(expand(cfg.GetString("MappingFile")), cfg.GetString("MappingSheet"))
	if err != nil {
		return nil, err
	}
	log := logrus.StandardLogger()
	log.WithFields(logrus.Fields{
		"file":    cfg.GetString("MappingFile"),
		"rows":    len(m.Entries()),
		"species": len(m.Species()),
		"dropped": m.Dropped(),
	}).Debug("chemi2cmaq read species mapping")

	c := chemi2cmaq.NewConverter(m)
	c.Log = log
	c.OutputDir = expand(cfg.GetString("OutputDir"))
	c.OutputName = cfg.GetString("OutputName")
	c.TrimBoundary = cfg.GetBool("TrimBoundary")
	c.Workers = cfg.GetInt("Workers")
	c.GridSource = cfg.GetString("IOAPI.GridSource")
	if c.Grid, err = gridConfig(cfg); err != nil {
		return nil, err
	}
	c.UPNAM = cfg.GetString("IOAPI.UPNAM")
	c.ExecID = cfg.GetString("IOAPI.ExecID")
	c.FileDesc = cfg.GetString("IOAPI.FileDesc")
	c.History = cfg.GetString("IOAPI.History")
	if c.StartDate, c.EndDate, err = dateWindow(cfg); err != nil {
		return nil, err
	}
	return c, nil
}
