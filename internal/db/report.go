package db

import (
	"gonum.org/v1/gonum/stat"

	"github.com/banshee-data/imu.report/internal/imu"
)

// AxisSummary holds per-axis statistics over a window of samples.
type AxisSummary struct {
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"std_dev"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
}

// Summary aggregates the most recent samples of one record type. Useful for
// sanity checks like "is the gyro bias drifting" without pulling raw rows.
type Summary struct {
	Record imu.RecordID   `json:"record"`
	Count  int            `json:"count"`
	Axes   [3]AxisSummary `json:"axes"`
}

// SampleSummary computes per-axis mean and spread over the newest limit
// samples of the given record type.
func (db *DB) SampleSummary(record imu.RecordID, limit int) (Summary, error) {
	samples, err := db.RecentSamples(record, limit)
	if err != nil {
		return Summary{}, err
	}

	summary := Summary{Record: record, Count: len(samples)}
	if len(samples) == 0 {
		return summary, nil
	}

	for axis := 0; axis < 3; axis++ {
		values := make([]float64, len(samples))
		for i, s := range samples {
			values[i] = s.Values[axis]
		}

		a := AxisSummary{
			Mean: stat.Mean(values, nil),
			Min:  values[0],
			Max:  values[0],
		}
		if len(values) > 1 {
			a.StdDev = stat.StdDev(values, nil)
		}
		for _, v := range values {
			if v < a.Min {
				a.Min = v
			}
			if v > a.Max {
				a.Max = v
			}
		}
		summary.Axes[axis] = a
	}
	return summary, nil
}
