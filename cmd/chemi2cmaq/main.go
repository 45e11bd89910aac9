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

// Command chemi2cmaq converts hourly WRF-Chem emissions files into
// daily CMAQ emissions files.
package main

import (
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spatialmodel/chemi2cmaq/chemi2cmaqutil"
)

func main() {
	if err := chemi2cmaqutil.Root.Execute(); err != nil {
		logrus.Error(err)
		os.Exit(1)
	}
}
