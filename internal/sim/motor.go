package sim

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/weihli/uquad/internal/statevec"
)

const (
	serialSyncByte = 0x05
	serialMotorCount = 4
)

// SerialMotor is a checksummed, framed serial motor command encoder,
// grounded on tinygo.org/x/drivers' tmc5160.UARTComm register-write
// framing (_examples/scottfeldman-drivers/tmc5160/uartcomm.go: sync byte +
// payload + XOR checksum) and tmc5160.Stepper's bounds-holding parameter
// struct for clamping. The real transport (PWM/serial bring-up, per-motor
// calibration) is out of scope per spec §1; this is the narrow "set
// angular velocity vector" contract spec §2/C3 actually needs, wired to a
// real io.Writer so it is exercised end-to-end rather than stubbed.
type SerialMotor struct {
	w      io.Writer
	wMin   float64
	wMax   float64
	mass   float64
	gPerW  float64 // thrust coefficient: weight supported per unit w (hover relation)
	curr   statevec.RotorSpeeds
}

// NewSerialMotor builds a motor gateway writing framed commands to w.
// gPerW relates hover rotor speed to vehicle mass: WHover() = mass*g/gPerW
// (a simplified thrust model; the real one is out of scope per spec §1).
func NewSerialMotor(w io.Writer, wMin, wMax, initialMass, gPerW float64) *SerialMotor {
	return &SerialMotor{w: w, wMin: wMin, wMax: wMax, mass: initialMass, gPerW: gPerW}
}

// Idle implements gateway.Motor.
func (m *SerialMotor) Idle() error {
	return m.Set(statevec.RotorSpeeds{m.wMin, m.wMin, m.wMin, m.wMin})
}

// Set implements gateway.Motor: clamps to [wMin, wMax] (spec §8's
// invariant) and writes one framed command.
func (m *SerialMotor) Set(w statevec.RotorSpeeds) error {
	clamped := w.Clamp(m.wMin, m.wMax)
	buf := make([]byte, 2+serialMotorCount*4+1)
	buf[0] = serialSyncByte
	buf[1] = serialMotorCount
	for i, v := range clamped {
		binary.BigEndian.PutUint32(buf[2+i*4:], uint32(v*1000))
	}
	checksum := byte(0)
	for _, b := range buf[:len(buf)-1] {
		checksum ^= b
	}
	buf[len(buf)-1] = checksum

	if _, err := m.w.Write(buf); err != nil {
		return fmt.Errorf("writing motor command: %w", err)
	}
	m.curr = clamped
	return nil
}

// Deinit implements gateway.Motor.
func (m *SerialMotor) Deinit() error {
	if closer, ok := m.w.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

// WCurr implements gateway.Motor.
func (m *SerialMotor) WCurr() statevec.RotorSpeeds { return m.curr }

// WMin implements gateway.Motor.
func (m *SerialMotor) WMin() float64 { return m.wMin }

// WHover implements gateway.Motor.
func (m *SerialMotor) WHover() float64 {
	const g = 9.81
	return m.mass * g / m.gPerW
}

// Weight implements gateway.Motor.
func (m *SerialMotor) Weight() float64 {
	const g = 9.81
	return m.mass * g
}

// SetMass implements gateway.Motor.
func (m *SerialMotor) SetMass(mass float64) { m.mass = mass }
