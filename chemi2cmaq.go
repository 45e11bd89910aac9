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

// Package chemi2cmaq converts hourly WRF-Chem emission files (wrfchemi_*)
// into daily CMAQ emission files that follow the Models-3 I/O API
// (IOAPI) NetCDF conventions.
//
// One output file is created for every calendar day that has all 24
// hourly input files plus the hour-0 file of the following day. Source
// species are converted to target species according to a mapping table,
// which also specifies linear conversion factors, target units and, where
// required, molecular weights.
package chemi2cmaq

// Version gives the version number.
const Version = "1.0.0"
