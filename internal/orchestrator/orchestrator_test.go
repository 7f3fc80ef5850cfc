package orchestrator

import (
	"errors"
	"io"
	"os"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/weihli/uquad/internal/config"
	"github.com/weihli/uquad/internal/iomux"
	"github.com/weihli/uquad/internal/logch"
	"github.com/weihli/uquad/internal/statevec"
)

func newMemFS(t *testing.T) afero.Fs {
	t.Helper()
	return afero.NewMemMapFs()
}

// nullReader is an empty, always-EOF io.Reader standing in for operator
// stdin in tests that never exercise manual input.
type nullReader struct{}

func (nullReader) Read([]byte) (int, error) { return 0, io.EOF }

// --- fakes --------------------------------------------------------------

type fakeIMU struct {
	avgs     []statevec.IMUAverage
	pos      int
	calAsked bool
	erroring bool
}

func (f *fakeIMU) Fd() int { return -1 }

var errFakeIMU = errors.New("fake imu read fault")

func (f *fakeIMU) ReadOne() error {
	if f.erroring {
		return errFakeIMU
	}
	return nil
}

func (f *fakeIMU) HasUnread() bool { return !f.erroring && f.pos < len(f.avgs) }

func (f *fakeIMU) GetAverage() (statevec.IMUAverage, bool) {
	if f.erroring || f.pos >= len(f.avgs) {
		return statevec.IMUAverage{}, false
	}
	a := f.avgs[f.pos]
	f.pos++
	return a, true
}

func (f *fakeIMU) BeginCalibration() error { f.calAsked = true; return nil }
func (f *fakeIMU) CalibrationDone() bool   { return f.calAsked }
func (f *fakeIMU) CalibrationResult() statevec.NullEstimate {
	return statevec.NullEstimate{}
}

type fakeKalman struct {
	seedCalls, updateCalls int
	x                      statevec.Vector
}

func (k *fakeKalman) Seed(statevec.NullEstimate, *statevec.GPSFix) error {
	k.seedCalls++
	return nil
}

func (k *fakeKalman) Update(statevec.RotorSpeeds, statevec.IMUAverage, time.Duration, float64, *statevec.GPSFix) error {
	k.updateCalls++
	return nil
}

func (k *fakeKalman) XHat() statevec.Vector { return k.x }

type fakeMotor struct {
	wMin, wHover, mass float64
	curr               statevec.RotorSpeeds
	history            []statevec.RotorSpeeds
	idleCalls          int
}

func (m *fakeMotor) Idle() error {
	m.idleCalls++
	m.curr = statevec.RotorSpeeds{m.wMin, m.wMin, m.wMin, m.wMin}
	return nil
}
func (m *fakeMotor) Set(w statevec.RotorSpeeds) error {
	m.curr = w
	m.history = append(m.history, w)
	return nil
}
func (m *fakeMotor) Deinit() error                   { return nil }
func (m *fakeMotor) WCurr() statevec.RotorSpeeds      { return m.curr }
func (m *fakeMotor) WMin() float64                    { return m.wMin }
func (m *fakeMotor) WHover() float64                  { return m.wHover }
func (m *fakeMotor) Weight() float64                  { return m.mass * gAccel }
func (m *fakeMotor) SetMass(mass float64)             { m.mass = mass }

type fakePlanner struct{ sp statevec.Setpoint }

func (p *fakePlanner) SeedSetpoint(sp statevec.Setpoint)           { p.sp = sp }
func (p *fakePlanner) UpdateSetpoint(statevec.Vector, float64)     {}
func (p *fakePlanner) Setpoint() statevec.Setpoint                 { return p.sp }

type fakeCtrl struct{ w statevec.RotorSpeeds }

func (c *fakeCtrl) Compute(statevec.Vector, statevec.Setpoint, time.Duration) (statevec.RotorSpeeds, error) {
	return c.w, nil
}

type fakeMux struct{}

func (fakeMux) Wait(time.Duration) (iomux.Ready, error) { return iomux.Ready{IMU: true}, nil }

// fakeGPS never reports a fix, for exercising the bounded initial-fix wait.
type fakeGPS struct{}

func (fakeGPS) Fd() int                 { return -1 }
func (fakeGPS) ReadOne() error          { return nil }
func (fakeGPS) HasUnread() bool         { return false }
func (fakeGPS) Fix3D() bool             { return false }
func (fakeGPS) GetFix() statevec.GPSFix { return statevec.GPSFix{} }
func (fakeGPS) SetZero()                {}

func newTestOrchestrator(t *testing.T, cfg config.Config, imu *fakeIMU, motor *fakeMotor, ctrl *fakeCtrl) *Orchestrator {
	t.Helper()
	logChannels, err := logch.Open(newMemFS(t), "/log", time.Now())
	if err != nil {
		t.Fatalf("opening log channels: %v", err)
	}
	gws := Gateways{
		Mux:     fakeMux{},
		IMU:     imu,
		Kalman:  &fakeKalman{},
		Motor:   motor,
		Planner: &fakePlanner{},
		Ctrl:    ctrl,
	}
	notify := func(chan<- os.Signal, ...os.Signal) {}
	stop := func(chan<- os.Signal) {}
	return New(cfg, gws, logChannels, new(nullReader), notify, stop)
}

// --- scenarios ------------------------------------------------------------

// TestOrchestratorRampWorkedExample mirrors spec §8 scenario 6: with
// STARTUP_RUNS=3, STARTUP_KALMAN=4, w_min=100, w_hover=300 and the
// controller always desiring 400, warmup consumes iterations 0-2; seeding
// and the first ramp dispatch ({200}) share iteration 3 (advanceCalibrating
// seeds and transitions to PhaseRamp, then planAndControl dispatches in the
// same iterate() call); the ramp then proceeds {250, 300, 350} over
// iterations 4-6, and free control holds at {400} from iteration 7 on. 9
// input samples therefore produce 6 dispatches, not 9.
func TestOrchestratorRampWorkedExample(t *testing.T) {
	cfg := config.Default()
	cfg.StartupRuns = 3
	cfg.StartupKalman = 4
	cfg.OLTsStabil = 0
	cfg.MotUpdateT = 0

	avg := statevec.IMUAverage{Interval: 10 * time.Millisecond}
	imu := &fakeIMU{avgs: []statevec.IMUAverage{avg, avg, avg, avg, avg, avg, avg, avg, avg}}
	motor := &fakeMotor{wMin: 100, wHover: 300, mass: 1}
	ctrl := &fakeCtrl{w: statevec.RotorSpeeds{400, 400, 400, 400}}

	orch := newTestOrchestrator(t, cfg, imu, motor, ctrl)

	for i := 0; i < 9; i++ {
		if err := orch.iterate(); err != nil {
			t.Fatalf("iteration %d: unexpected error: %v", i, err)
		}
	}

	want := []statevec.RotorSpeeds{
		{200, 200, 200, 200},
		{250, 250, 250, 250},
		{300, 300, 300, 300},
		{350, 350, 350, 350},
		{400, 400, 400, 400},
		{400, 400, 400, 400},
	}
	if len(motor.history) != len(want) {
		t.Fatalf("expected %d dispatches, got %d: %v", len(want), len(motor.history), motor.history)
	}
	for i, w := range want {
		if motor.history[i] != w {
			t.Fatalf("dispatch %d: got %v, want %v", i, motor.history[i], w)
		}
	}
	if orch.phase != PhaseFreeControl {
		t.Fatalf("expected PhaseFreeControl after the ramp, got %v", orch.phase)
	}
}

// TestOrchestratorFaultBurstShutdown mirrors spec §8 scenario 3: 21
// consecutive IMU read errors after startup trigger a fatal abort.
func TestOrchestratorFaultBurstShutdown(t *testing.T) {
	cfg := config.Default()
	cfg.StartupRuns = 1
	cfg.StartupKalman = 1
	cfg.OLTsStabil = 0
	cfg.MaxErrors = 20

	avg := statevec.IMUAverage{Interval: 10 * time.Millisecond}
	imu := &fakeIMU{avgs: []statevec.IMUAverage{avg, avg}}
	motor := &fakeMotor{wMin: 100, wHover: 300, mass: 1}
	ctrl := &fakeCtrl{w: statevec.RotorSpeeds{400, 400, 400, 400}}

	orch := newTestOrchestrator(t, cfg, imu, motor, ctrl)

	for i := 0; i < 2; i++ {
		if err := orch.iterate(); err != nil {
			t.Fatalf("priming iteration %d: unexpected error: %v", i, err)
		}
	}
	if orch.phase != PhaseFreeControl {
		t.Fatalf("expected PhaseFreeControl before fault injection, got %v", orch.phase)
	}

	imu.erroring = true
	var lastErr error
	for i := 0; i < 21; i++ {
		lastErr = orch.iterate()
		if lastErr != nil {
			break
		}
	}
	if !isFatal(lastErr) {
		t.Fatalf("expected a fatal error on/before the 21st consecutive fault, got %v", lastErr)
	}
}

// TestOrchestratorGPSInitTimeoutIsFatal mirrors spec §5's "GPS initial-fix
// wait has a timeout (GPS_INIT_TOUT)": with GPS enabled but never producing
// a 3D fix, the loop aborts once GPSInitTimeout has elapsed since start.
func TestOrchestratorGPSInitTimeoutIsFatal(t *testing.T) {
	cfg := config.Default()
	cfg.UseGPS = true
	cfg.GPSInitTimeout = 0

	imu := &fakeIMU{avgs: []statevec.IMUAverage{{Interval: 10 * time.Millisecond}}}
	motor := &fakeMotor{wMin: 100, wHover: 300, mass: 1}
	ctrl := &fakeCtrl{w: statevec.RotorSpeeds{400, 400, 400, 400}}

	logChannels, err := logch.Open(newMemFS(t), "/log", time.Now())
	if err != nil {
		t.Fatalf("opening log channels: %v", err)
	}
	gws := Gateways{
		Mux:     fakeMux{},
		IMU:     imu,
		GPS:     fakeGPS{},
		Kalman:  &fakeKalman{},
		Motor:   motor,
		Planner: &fakePlanner{},
		Ctrl:    ctrl,
	}
	notify := func(chan<- os.Signal, ...os.Signal) {}
	stop := func(chan<- os.Signal) {}
	orch := New(cfg, gws, logChannels, new(nullReader), notify, stop)

	time.Sleep(time.Millisecond)
	if err := orch.iterate(); !isFatal(err) {
		t.Fatalf("expected a fatal gps init timeout error, got %v", err)
	}
}
