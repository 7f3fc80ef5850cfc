// Package sim supplies minimal, deliberately-simple reference
// implementations of the six gateway interfaces. The orchestrator's actual
// collaborators (a real IMU driver, Kalman numerics, a motor transport, a
// GPS parser, a trajectory-generating path planner) are explicitly out of
// scope per spec §1; these exist so the orchestrator is runnable and
// testable at all, the same role grafana-k6's lib/testutils/tests doubles
// play for its Runner/Output interfaces.
package sim

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/weihli/uquad/internal/statevec"
)

// ReplayIMU implements gateway.IMU by replaying a recorded sample stream
// — the Go-native IMU_COMM_FAKE mode from spec §6. Each CSV record is one
// averaged sample with its own interval:
// accX,accY,accZ,gyroX,gyroY,gyroZ,magX,magY,magZ,intervalMicros.
//
// Grounded in spirit on relabs-tech/inertial_computer's raw-sample log
// handling (other_examples calibration_handler.go), simplified because the
// raw->engineering conversion and averaging buffer themselves are out of
// scope (spec §1) — ReplayIMU only has to hand the orchestrator the
// already-averaged samples it would have produced.
type ReplayIMU struct {
	records []statevec.IMUAverage
	pos     int
	calDone bool
	calling bool
	result  statevec.NullEstimate
}

// NewReplayIMU parses r as CSV rows shaped as documented on ReplayIMU.
func NewReplayIMU(r io.Reader, result statevec.NullEstimate) (*ReplayIMU, error) {
	cr := csv.NewReader(bufio.NewReader(r))
	cr.FieldsPerRecord = 10
	rows, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parsing replay IMU log: %w", err)
	}
	records := make([]statevec.IMUAverage, 0, len(rows))
	for _, row := range rows {
		vals := make([]float64, len(row))
		for i, cell := range row {
			v, err := strconv.ParseFloat(cell, 64)
			if err != nil {
				return nil, fmt.Errorf("parsing replay IMU row %v: %w", row, err)
			}
			vals[i] = v
		}
		records = append(records, statevec.IMUAverage{
			Acc:      [3]float64{vals[0], vals[1], vals[2]},
			Gyro:     [3]float64{vals[3], vals[4], vals[5]},
			Magn:     [3]float64{vals[6], vals[7], vals[8]},
			Interval: time.Duration(vals[9]) * time.Microsecond,
		})
	}
	return &ReplayIMU{records: records, result: result}, nil
}

// Fd implements gateway.Readable; a replay source has no real descriptor.
func (r *ReplayIMU) Fd() int { return -1 }

// ReadOne implements gateway.IMU.
func (r *ReplayIMU) ReadOne() error {
	if r.pos >= len(r.records) {
		return io.EOF
	}
	return nil
}

// HasUnread implements gateway.IMU.
func (r *ReplayIMU) HasUnread() bool { return r.pos < len(r.records) }

// GetAverage implements gateway.IMU: each record is already an average, so
// GetAverage simply advances through the recording one at a time.
func (r *ReplayIMU) GetAverage() (statevec.IMUAverage, bool) {
	if r.pos >= len(r.records) {
		return statevec.IMUAverage{}, false
	}
	avg := r.records[r.pos]
	r.pos++
	return avg, true
}

// BeginCalibration implements gateway.IMU: a replay source is "calibrated"
// the instant it's asked, since the recording already encodes calibrated
// engineering units.
func (r *ReplayIMU) BeginCalibration() error {
	r.calling = true
	return nil
}

// CalibrationDone implements gateway.IMU.
func (r *ReplayIMU) CalibrationDone() bool { return r.calling }

// CalibrationResult implements gateway.IMU.
func (r *ReplayIMU) CalibrationResult() statevec.NullEstimate { return r.result }

// NextInterval reports the recorded interval for the next unread sample,
// for iomux.Fake's sleep-to-match-timestamps suspension.
func (r *ReplayIMU) NextInterval() time.Duration {
	if r.pos >= len(r.records) {
		return 0
	}
	return r.records[r.pos].Interval
}
