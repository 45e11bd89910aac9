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

// Package chemi2cmaqutil contains the command-line interface to
// chemi2cmaq.
package chemi2cmaqutil

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/ctessum/sparse"
	"github.com/lnashier/viper"
	"github.com/spatialmodel/chemi2cmaq"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"gonum.org/v1/gonum/floats"
)

// Cfg holds configuration information.
var Cfg *viper.Viper

var options []struct {
	name, usage, shorthand string
	defaultVal             interface{}
	flagsets               []*pflag.FlagSet
}

func init() {
	g := chemi2cmaq.DefaultGrid()

	// Options are the configuration options available to chemi2cmaq.
	options = []struct {
		name, usage, shorthand string
		defaultVal             interface{}
		flagsets               []*pflag.FlagSet
	}{
		{
			name: "config",
			usage: `
              config specifies the configuration file location.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "LogLevel",
			usage: `
              LogLevel is the minimum level of log messages that are
              printed. Options are debug, info, warn, and error.`,
			defaultVal: "info",
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "LogFormat",
			usage: `
              LogFormat is the format of log messages: text or json.`,
			defaultVal: "text",
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "WRFChemi",
			usage: `
              WRFChemi is a glob pattern matching the hourly WRF-Chem emissions
              files, for example "wrfchemi/wrfchemi_d01_*". The file names must
              end in the date in the format YYYY-MM-DD_HH:MM:SS. The pattern can
              include environment variables.`,
			shorthand:  "w",
			defaultVal: "wrfchemi_d01_*",
			flagsets:   []*pflag.FlagSet{convertCmd.Flags(), daysCmd.Flags()},
		},
		{
			name: "StartDate",
			usage: `
              StartDate is the first day to convert, in the format YYYYMMDD.
              If it is empty, conversion starts at the first complete day.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{convertCmd.Flags(), daysCmd.Flags()},
		},
		{
			name: "EndDate",
			usage: `
              EndDate is the last day to convert, in the format YYYYMMDD.
              If it is empty, conversion ends at the last complete day.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{convertCmd.Flags(), daysCmd.Flags()},
		},
		{
			name: "MappingFile",
			usage: `
              MappingFile is the path to the spreadsheet (.xlsx) or CSV file
              that maps WRF-Chem species to CMAQ species. It must have the
              columns WRF_SPC, CMAQ_SPC, CONV_FACT and UNITS_SDA, and optionally
              MW. The path can include environment variables.`,
			shorthand:  "m",
			defaultVal: "species_mapping.xlsx",
			flagsets:   []*pflag.FlagSet{convertCmd.Flags()},
		},
		{
			name: "MappingSheet",
			usage: `
              MappingSheet is the name of the worksheet holding the mapping
              when MappingFile is a spreadsheet. If it is empty, the first
              sheet is used.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{convertCmd.Flags()},
		},
		{
			name: "OutputDir",
			usage: `
              OutputDir is the directory the daily files are written to.
              It can include environment variables.`,
			shorthand:  "o",
			defaultVal: ".",
			flagsets:   []*pflag.FlagSet{convertCmd.Flags()},
		},
		{
			name: "OutputName",
			usage: `
              OutputName is the name of the daily output files. The wildcard
              [DATE] is replaced with the day in the format YYYYDDD.`,
			defaultVal: chemi2cmaq.DefaultArchiveName,
			flagsets:   []*pflag.FlagSet{convertCmd.Flags()},
		},
		{
			name: "TrimBoundary",
			usage: `
              TrimBoundary specifies whether to remove one grid cell from each
              edge of the WRF-Chem grid before writing the output.`,
			defaultVal: false,
			flagsets:   []*pflag.FlagSet{convertCmd.Flags()},
		},
		{
			name: "Workers",
			usage: `
              Workers is the number of days converted at the same time.`,
			defaultVal: 1,
			flagsets:   []*pflag.FlagSet{convertCmd.Flags()},
		},
		{
			name: "MetricsFile",
			usage: `
              MetricsFile, if not empty, is the path where conversion counters
              are written in the Prometheus text format after the run.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{convertCmd.Flags()},
		},
		{
			name: "SaveRunConfig",
			usage: `
              SaveRunConfig specifies whether to write a summary of the
              conversion settings to chemi2cmaq_run.toml in OutputDir.`,
			defaultVal: true,
			flagsets:   []*pflag.FlagSet{convertCmd.Flags()},
		},
		{
			name: "IOAPI.GridSource",
			usage: `
              IOAPI.GridSource specifies where the horizontal grid description
              comes from. "fixed" uses the IOAPI.* options below and "wrf"
              computes it from the projection attributes of the WRF-Chem files.`,
			defaultVal: chemi2cmaq.GridFixed,
			flagsets:   []*pflag.FlagSet{convertCmd.Flags()},
		},
		{
			name: "IOAPI.GDNAM",
			usage: `
              IOAPI.GDNAM is the grid name.`,
			defaultVal: g.GDNAM,
			flagsets:   []*pflag.FlagSet{convertCmd.Flags()},
		},
		{
			name: "IOAPI.GDTYP",
			usage: `
              IOAPI.GDTYP is the IOAPI map projection type. 2 is Lambert
              conformal conic.`,
			defaultVal: int(g.GDTYP),
			flagsets:   []*pflag.FlagSet{convertCmd.Flags()},
		},
		{
			name: "IOAPI.P_ALP",
			usage: `
              IOAPI.P_ALP is the first projection parameter; for Lambert
              projections, the first true latitude.`,
			defaultVal: g.PAlp,
			flagsets:   []*pflag.FlagSet{convertCmd.Flags()},
		},
		{
			name: "IOAPI.P_BET",
			usage: `
              IOAPI.P_BET is the second projection parameter; for Lambert
              projections, the second true latitude.`,
			defaultVal: g.PBet,
			flagsets:   []*pflag.FlagSet{convertCmd.Flags()},
		},
		{
			name: "IOAPI.P_GAM",
			usage: `
              IOAPI.P_GAM is the third projection parameter; for Lambert
              projections, the central meridian.`,
			defaultVal: g.PGam,
			flagsets:   []*pflag.FlagSet{convertCmd.Flags()},
		},
		{
			name: "IOAPI.XCENT",
			usage: `
              IOAPI.XCENT is the longitude of the projection origin.`,
			defaultVal: g.XCent,
			flagsets:   []*pflag.FlagSet{convertCmd.Flags()},
		},
		{
			name: "IOAPI.YCENT",
			usage: `
              IOAPI.YCENT is the latitude of the projection origin.`,
			defaultVal: g.YCent,
			flagsets:   []*pflag.FlagSet{convertCmd.Flags()},
		},
		{
			name: "IOAPI.XORIG",
			usage: `
              IOAPI.XORIG is the projected x coordinate of the lower-left
              corner of the grid [m].`,
			defaultVal: g.XOrig,
			flagsets:   []*pflag.FlagSet{convertCmd.Flags()},
		},
		{
			name: "IOAPI.YORIG",
			usage: `
              IOAPI.YORIG is the projected y coordinate of the lower-left
              corner of the grid [m].`,
			defaultVal: g.YOrig,
			flagsets:   []*pflag.FlagSet{convertCmd.Flags()},
		},
		{
			name: "IOAPI.VGTYP",
			usage: `
              IOAPI.VGTYP is the vertical coordinate type.`,
			defaultVal: int(g.VGTYP),
			flagsets:   []*pflag.FlagSet{convertCmd.Flags()},
		},
		{
			name: "IOAPI.VGTOP",
			usage: `
              IOAPI.VGTOP is the model top [Pa].`,
			defaultVal: float64(g.VGTOP),
			flagsets:   []*pflag.FlagSet{convertCmd.Flags()},
		},
		{
			name: "IOAPI.VGLVLS",
			usage: `
              IOAPI.VGLVLS are the vertical layer boundaries. There must be
              one more value than there are layers. If empty, all boundaries
              are set to zero.`,
			defaultVal: []string{},
			flagsets:   []*pflag.FlagSet{convertCmd.Flags()},
		},
		{
			name: "IOAPI.UPNAM",
			usage: `
              IOAPI.UPNAM is the name of the program recorded as having last
              updated the output files.`,
			defaultVal: "M3WNDW",
			flagsets:   []*pflag.FlagSet{convertCmd.Flags()},
		},
		{
			name: "IOAPI.ExecID",
			usage: `
              IOAPI.ExecID is the execution ID written to the output files.`,
			defaultVal: "????????????????",
			flagsets:   []*pflag.FlagSet{convertCmd.Flags()},
		},
		{
			name: "IOAPI.FileDesc",
			usage: `
              IOAPI.FileDesc is the file description written to the output files.`,
			defaultVal: "Emissions converted from WRF-Chem",
			flagsets:   []*pflag.FlagSet{convertCmd.Flags()},
		},
		{
			name: "IOAPI.History",
			usage: `
              IOAPI.History is the history written to the output files. If it is
              empty, the names of the first and last input files are used.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{convertCmd.Flags()},
		},
	}

	Cfg = viper.New()

	// Set the prefix for configuration environment variables.
	Cfg.SetEnvPrefix("CHEMI2CMAQ")
	Cfg.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	Cfg.AutomaticEnv()

	for _, option := range options {
		for i, set := range option.flagsets {
			if i != 0 { // We don't want to create the same flag twice.
				set.AddFlag(option.flagsets[0].Lookup(option.name))
				continue
			}
			switch v := option.defaultVal.(type) {
			case string:
				set.StringP(option.name, option.shorthand, v, option.usage)
			case []string:
				set.StringSliceP(option.name, option.shorthand, v, option.usage)
			case bool:
				set.BoolP(option.name, option.shorthand, v, option.usage)
			case int:
				set.IntP(option.name, option.shorthand, v, option.usage)
			case float64:
				set.Float64P(option.name, option.shorthand, v, option.usage)
			default:
				panic("invalid argument type")
			}
			Cfg.BindPFlag(option.name, set.Lookup(option.name))
		}
	}
}

func init() {
	// Link the commands together.
	Root.AddCommand(versionCmd)
	Root.AddCommand(daysCmd)
	Root.AddCommand(convertCmd)
	Root.AddCommand(inspectCmd)
}

// setConfig finds and reads in the configuration file, if there is one,
// and sets up logging.
func setConfig() error {
	if cfgpath := Cfg.GetString("config"); cfgpath != "" {
		Cfg.SetConfigFile(cfgpath)
		if err := Cfg.ReadInConfig(); err != nil {
			return fmt.Errorf("chemi2cmaq: problem reading configuration file: %v", err)
		}
	}
	return setLogger(Cfg)
}

// Root is the main command.
var Root = &cobra.Command{
	Use:   "chemi2cmaq",
	Short: "Convert WRF-Chem emissions files to CMAQ format.",
	Long: `chemi2cmaq converts hourly WRF-Chem emissions files (wrfchemi) into daily
CMAQ emissions files in the IOAPI NetCDF format, using a species mapping table
to convert WRF-Chem species and units into CMAQ species and units.

Refer to the subcommand documentation for configuration options and default settings.
Configuration can be changed by using a configuration file (and providing the
path to the file using the --config flag), by using command-line arguments,
or by setting environment variables in the format 'CHEMI2CMAQ_var' where 'var' is the
name of the variable to be set, with any '.' replaced by '_'.
Refer to https://github.com/spf13/viper for additional configuration information.`,
	DisableAutoGenTag: true,
	PersistentPreRunE: func(*cobra.Command, []string) error { return setConfig() },
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Long:  "version prints the version number of this version of chemi2cmaq.",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Printf("chemi2cmaq v%s\n", chemi2cmaq.Version)
	},
	DisableAutoGenTag: true,
}

// daysCmd lists the days that can be converted.
var daysCmd = &cobra.Command{
	Use:   "days",
	Short: "List the days that can be converted.",
	Long: `days lists every day for which WRF-Chem files were found, marking the
days that have all 25 hourly files needed for conversion and listing the
missing hours of the others.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		idx, err := loadIndex(Cfg)
		if err != nil {
			return err
		}
		start, end, err := dateWindow(Cfg)
		if err != nil {
			return err
		}
		for _, d := range idx.Days() {
			if (!start.IsZero() && d.Before(start)) || (!end.IsZero() && end.Before(d)) {
				continue
			}
			date := d.Time().Format("2006-01-02")
			if idx.IsEligible(d) {
				cmd.Printf("%s %s complete\n", d, date)
				continue
			}
			missing := idx.Missing(d)
			hours := make([]string, len(missing))
			for i, t := range missing {
				hours[i] = t.Format("2006-01-02_15")
			}
			cmd.Printf("%s %s missing %d: %s\n", d, date, len(missing), strings.Join(hours, " "))
		}
		return nil
	},
	DisableAutoGenTag: true,
}

// convertCmd runs the conversion.
var convertCmd = &cobra.Command{
	Use:   "convert",
	Short: "Convert WRF-Chem emissions files to daily CMAQ files.",
	Long: `convert converts every day that has a complete set of hourly WRF-Chem
files into a CMAQ emissions file. Days with invalid data are skipped,
reported, and cause convert to exit with an error once the other days
have been written.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := NewConverter(Cfg)
		if err != nil {
			return err
		}
		idx, err := loadIndex(Cfg)
		if err != nil {
			return err
		}
		rep, err := c.Run(idx)
		if metricsFile := Cfg.GetString("MetricsFile"); metricsFile != "" {
			if err2 := c.Metrics.WriteTextfile(expand(metricsFile)); err2 != nil && err == nil {
				err = err2
			}
		}
		if rep != nil {
			for _, w := range rep.Written {
				cmd.Printf("wrote %s\n", w.Path)
			}
		}
		if err != nil {
			return err
		}
		for _, s := range rep.Skipped {
			cmd.Printf("skipped %s (%s): %v\n", s.Day, s.Reason, s.Err)
		}
		if Cfg.GetBool("SaveRunConfig") && len(rep.Written) > 0 {
			rc := NewRunConfig(Cfg, c, rep)
			if err := WriteRunConfig(filepath.Join(c.OutputDir, RunConfigName), rc); err != nil {
				return err
			}
		}
		if len(rep.Skipped) > 0 {
			return fmt.Errorf("chemi2cmaq: %d of %d days were skipped", len(rep.Skipped), len(rep.Skipped)+len(rep.Written))
		}
		return nil
	},
	DisableAutoGenTag: true,
}

// inspectCmd summarizes an output file.
var inspectCmd = &cobra.Command{
	Use:   "inspect archive",
	Short: "Summarize a CMAQ emissions file.",
	Long: `inspect prints the grid, the time steps, and the total, minimum, and
maximum of each species in a CMAQ emissions file created by convert.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := chemi2cmaq.ReadArchive(args[0])
		if err != nil {
			return err
		}
		return summarize(cmd, args[0], a)
	},
	DisableAutoGenTag: true,
}

// summarize prints the grid, time steps, and species statistics of
// archive a, which was read from file.
func summarize(cmd *cobra.Command, file string, a *chemi2cmaq.Archive) error {
	if len(a.TFlag) == 0 || len(a.TFlag[0]) == 0 {
		return fmt.Errorf("chemi2cmaq: %s has no time steps", file)
	}
	g := a.Grid
	cmd.Printf("grid %s: %d layers, %d rows, %d columns, %gx%g m\n",
		g.GDNAM, g.NLays, g.NRows, g.NCols, g.XCell, g.YCell)
	first, last := a.TFlag[0][0], a.TFlag[len(a.TFlag)-1][0]
	cmd.Printf("time steps: %d from %07d %06d to %07d %06d\n",
		len(a.TFlag), first[0], first[1], last[0], last[1])
	for _, sp := range a.Species {
		total, lo, hi := seriesStats(sp.Data)
		cmd.Printf("%-16s %-8s total %g min %g max %g\n", sp.Name, sp.Units, total, lo, hi)
	}
	return nil
}

// seriesStats returns the sum, minimum, and maximum over all
// time steps.
func seriesStats(data []*sparse.DenseArray) (total, lo, hi float64) {
	for i, d := range data {
		total += floats.Sum(d.Elements)
		dlo, dhi := floats.Min(d.Elements), floats.Max(d.Elements)
		if i == 0 || dlo < lo {
			lo = dlo
		}
		if i == 0 || dhi > hi {
			hi = dhi
		}
	}
	return
}
