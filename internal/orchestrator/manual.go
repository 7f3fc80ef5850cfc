package orchestrator

import (
	"github.com/weihli/uquad/internal/gateway"
	"github.com/weihli/uquad/internal/statevec"
)

// manualKey is one recognized operator keystroke (spec §4.7).
type manualKey byte

const (
	keyQuit        manualKey = 'q'
	keyManualMode  manualKey = 'm'
	keyPsiInc      manualKey = 'u'
	keyPsiDec      manualKey = 'j'
	keyPhiInc      manualKey = 'i'
	keyPhiDec      manualKey = 'k'
	keyThetaInc    manualKey = 'o'
	keyThetaDec    manualKey = 'l'
	keyZInc        manualKey = 'w'
	keyZDec        manualKey = 's'
	keyWeightReset manualKey = 'r'
	keyWeightInc   manualKey = 'e'
	keyWeightDec   manualKey = 'd'
)

// manualInput translates operator keystrokes into setpoint and mass
// adjustments (C10). It never bypasses the controller: it only edits the
// live setpoint (via the path planner's Push, when available) or the
// motor gateway's mass.
type manualInput struct {
	eulerStep  float64
	zStep      float64
	weightStep float64
	defaultMass float64

	enabled bool

	// zBase/zSteps track altitude edits as a whole number of zStep moves
	// from a base value, so k increments followed by k decrements restore
	// the original setpoint exactly rather than up to float rounding.
	zBase  float64
	zSteps int
}

func newManualInput(eulerStep, zStep, weightStep, defaultMass float64) *manualInput {
	return &manualInput{
		eulerStep:   eulerStep,
		zStep:       zStep,
		weightStep:  weightStep,
		defaultMass: defaultMass,
	}
}

// pusher is satisfied by path planners that allow manual setpoint edits
// (sim.HoverPlanner; a real trajectory-aware planner could implement it
// too). Planners that don't implement it simply ignore manual setpoint
// edits — the mass/weight keys still work via the motor gateway.
type pusher interface {
	Push(sp statevec.Setpoint)
}

// manualEvent describes what happened, for logging — mirrors the
// "manual-mode enable/disable lines logged with timestamps" requirement
// of spec §8 scenario 4.
type manualEvent struct {
	quit        bool
	toggledOn   bool
	toggledOff  bool
	invalid     bool
	key         manualKey
}

// handle applies one keystroke. planner and motor may be nil-interface
// typed but must not be nil in practice when manual mode is reachable;
// planner's Push is only invoked if it implements pusher.
func (m *manualInput) handle(key manualKey, planner gateway.PathPlanner, motor gateway.Motor) manualEvent {
	if key == keyQuit {
		return manualEvent{quit: true, key: key}
	}
	if key == keyManualMode {
		m.enabled = !m.enabled
		return manualEvent{toggledOn: m.enabled, toggledOff: !m.enabled, key: key}
	}
	if !m.enabled {
		return manualEvent{invalid: true, key: key}
	}

	p, canPush := planner.(pusher)

	switch key {
	case keyPsiInc, keyPsiDec, keyPhiInc, keyPhiDec, keyThetaInc, keyThetaDec, keyZInc, keyZDec:
		if !canPush {
			return manualEvent{invalid: true, key: key}
		}
		sp := planner.Setpoint()
		sp.X = m.applyDelta(sp.X, key)
		p.Push(sp)
		return manualEvent{key: key}

	case keyWeightReset:
		motor.SetMass(m.defaultMass)
		return manualEvent{key: key}
	case keyWeightInc:
		motor.SetMass(motor.Weight()/gAccel + m.weightStep)
		return manualEvent{key: key}
	case keyWeightDec:
		motor.SetMass(motor.Weight()/gAccel - m.weightStep)
		return manualEvent{key: key}

	default:
		return manualEvent{invalid: true, key: key}
	}
}

const gAccel = 9.81

func (m *manualInput) applyDelta(x statevec.Vector, key manualKey) statevec.Vector {
	switch key {
	case keyPsiInc:
		return x.Add(statevec.PSI, m.eulerStep)
	case keyPsiDec:
		return x.Add(statevec.PSI, -m.eulerStep)
	case keyPhiInc:
		return x.Add(statevec.PHI, m.eulerStep)
	case keyPhiDec:
		return x.Add(statevec.PHI, -m.eulerStep)
	case keyThetaInc:
		return x.Add(statevec.THETA, m.eulerStep)
	case keyThetaDec:
		return x.Add(statevec.THETA, -m.eulerStep)
	case keyZInc, keyZDec:
		if cur := x.Get(statevec.Z); cur != m.zBase+float64(m.zSteps)*m.zStep {
			m.zBase, m.zSteps = cur, 0
		}
		if key == keyZInc {
			m.zSteps++
		} else {
			m.zSteps--
		}
		return x.Set(statevec.Z, m.zBase+float64(m.zSteps)*m.zStep)
	default:
		return x
	}
}
