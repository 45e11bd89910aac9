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
	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "chemi2cmaq"

// Metrics holds the counters of a conversion run. Each Metrics has its
// own registry so that several runs can coexist in one process.
type Metrics struct {
	Registry *prometheus.Registry

	HoursRead       prometheus.Counter
	ArchivesWritten prometheus.Counter
	DaysSkipped     *prometheus.CounterVec // labels: reason={completeness,integrity}
	DayDuration     prometheus.Histogram
}

// NewMetrics creates and registers the run metrics.
func NewMetrics() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		HoursRead: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "hours_read_total",
			Help:      "Total hourly WRF-Chem files read.",
		}),
		ArchivesWritten: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "archives_written_total",
			Help:      "Total daily CMAQ emissions files written.",
		}),
		DaysSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "days_skipped_total",
			Help:      "Days that were not converted, by reason.",
		}, []string{"reason"}),
		DayDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "day_duration_seconds",
			Help:      "Time taken to convert one day.",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}),
	}
	m.Registry.MustRegister(m.HoursRead, m.ArchivesWritten, m.DaysSkipped, m.DayDuration)
	return m
}

// WriteTextfile writes the metrics in the Prometheus text format
// to the given file.
func (m *Metrics) WriteTextfile(filename string) error {
	return prometheus.WriteToTextfile(filename, m.Registry)
}
