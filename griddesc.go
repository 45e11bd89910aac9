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

	"github.com/ctessum/geom/proj"
)

// Sources of the horizontal grid description of output files.
const (
	// GridFixed uses the configured projection parameters.
	GridFixed = "fixed"
	// GridWRF derives the projection parameters from the
	// WRF-Chem input files.
	GridWRF = "wrf"
)

const (
	gdtypLambert   = 2
	wrfLambert     = 1
	wrfEarthRadius = 6370000.
)

// Grid is the IOAPI description of the output grid.
type Grid struct {
	// GDNAM is the grid name.
	GDNAM string
	// GDTYP is the IOAPI map projection type, e.g. 2 for Lambert
	// conformal conic.
	GDTYP int32

	// PAlp, PBet and PGam are the projection parameters; for
	// Lambert conformal conic they are the two true latitudes and the
	// central meridian.
	PAlp, PBet, PGam float64
	// XCent and YCent are the longitude and latitude of the
	// projection origin.
	XCent, YCent float64
	// XOrig and YOrig are the projected coordinates of the
	// lower-left corner of the grid [m].
	XOrig, YOrig float64
	// XCell and YCell are the grid cell sizes [m].
	XCell, YCell float64

	VGTYP  int32
	VGTOP  float32
	VGLVLS []float32

	NLays, NRows, NCols int
}

// DefaultGrid returns the description of the 27 km Lambert conformal
// grid over northern South America.
func DefaultGrid() Grid {
	return Grid{
		GDNAM: "2018_NSthAm_CROS",
		GDTYP: gdtypLambert,
		PAlp:  -9.26763916015625,
		PBet:  19.6556396484375,
		PGam:  -72.6330032348633,
		XCent: -72.6330032348633,
		YCent: 5.19400024414062,
		XOrig: -1688312.,
		YOrig: -1592931.5,
		XCell: 27000.,
		YCell: 27000.,
		VGTYP: -1,
	}
}

// withShape returns a copy of g sized for hour-slices with the given
// [layer, row, column] shape and cells of the given size.
func (g Grid) withShape(shape []int, dx, dy float64) (Grid, error) {
	g.NLays, g.NRows, g.NCols = shape[0], shape[1], shape[2]
	g.XCell, g.YCell = dx, dy
	if g.VGLVLS == nil {
		g.VGLVLS = make([]float32, g.NLays+1)
	} else if len(g.VGLVLS) != g.NLays+1 {
		return g, &ConfigError{Err: fmt.Errorf("VGLVLS has %d values; %d layers need %d",
			len(g.VGLVLS), g.NLays, g.NLays+1)}
	}
	return g, nil
}

// GridFromWRF derives the Lambert conformal grid description from the
// projection attributes of a WRF-Chem file. The domain center is
// projected to find the grid origin; nrows and ncols are the numbers of
// output rows and columns, after any boundary trimming.
func GridFromWRF(p WRFProjection, dx, dy float64, nrows, ncols int, base Grid) (Grid, error) {
	if p.MapProj != wrfLambert {
		return base, &ConfigError{Err: fmt.Errorf("WRF map projection %d is not supported; only Lambert conformal (%d) is", p.MapProj, wrfLambert)}
	}
	src, err := proj.Parse(fmt.Sprintf("+proj=longlat +a=%f +b=%f +no_defs", wrfEarthRadius, wrfEarthRadius))
	if err != nil {
		return base, fmt.Errorf("chemi2cmaq: WRF grid: %w", err)
	}
	dst, err := proj.Parse(fmt.Sprintf("+proj=lcc +lat_1=%f +lat_2=%f +lat_0=%f +lon_0=%f +x_0=0 +y_0=0 +a=%f +b=%f +to_meter=1 +no_defs",
		p.TrueLat1, p.TrueLat2, p.MoadCenLat, p.StandLon, wrfEarthRadius, wrfEarthRadius))
	if err != nil {
		return base, fmt.Errorf("chemi2cmaq: WRF grid: %w", err)
	}
	ct, err := src.NewTransform(dst)
	if err != nil {
		return base, fmt.Errorf("chemi2cmaq: WRF grid: %w", err)
	}
	xc, yc, err := ct(p.CenLon, p.CenLat)
	if err != nil {
		return base, fmt.Errorf("chemi2cmaq: WRF grid: projecting domain center: %w", err)
	}
	g := base
	g.GDTYP = gdtypLambert
	g.PAlp, g.PBet, g.PGam = p.TrueLat1, p.TrueLat2, p.StandLon
	g.XCent, g.YCent = p.StandLon, p.MoadCenLat
	g.XOrig = xc - float64(ncols)*dx/2
	g.YOrig = yc - float64(nrows)*dy/2
	return g, nil
}
