package sim

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/weihli/uquad/internal/statevec"
)

// ZeroGPS synthesizes one fix per second from a zero origin — spec §4.5's
// compile-time "zero-GPS" mode, admissible only in HOVER mode (the
// orchestrator, not this gateway, enforces that admissibility rule).
type ZeroGPS struct {
	lastEmit time.Time
	fix      statevec.GPSFix
	pending  bool
}

// NewZeroGPS builds a ZeroGPS gateway that always reports a 3D fix at the
// zero origin.
func NewZeroGPS() *ZeroGPS {
	return &ZeroGPS{fix: statevec.GPSFix{Quality: statevec.Fix3D}}
}

// Fd implements gateway.Readable; synthetic GPS has no descriptor.
func (z *ZeroGPS) Fd() int { return -1 }

// ReadOne implements gateway.GPS: emits a fresh fix at most once a second.
func (z *ZeroGPS) ReadOne() error {
	now := time.Now()
	if z.lastEmit.IsZero() || now.Sub(z.lastEmit) >= time.Second {
		z.lastEmit = now
		z.pending = true
	}
	return nil
}

// HasUnread implements gateway.GPS.
func (z *ZeroGPS) HasUnread() bool { return z.pending }

// Fix3D implements gateway.GPS.
func (z *ZeroGPS) Fix3D() bool { return z.fix.Quality == statevec.Fix3D }

// GetFix implements gateway.GPS.
func (z *ZeroGPS) GetFix() statevec.GPSFix {
	z.pending = false
	return z.fix
}

// SetZero implements gateway.GPS; the origin is always zero by definition.
func (z *ZeroGPS) SetZero() {}

// ReplayGPS replays a fixed sequence of recorded fixes, one per ReadOne
// call that finds a record due, for the "GPS-from-logfile replay" mode
// spec §6 describes (`gps_device` argument supplied).
type ReplayGPS struct {
	records []statevec.GPSFix
	pos     int
	zero    [3]float64
	pending bool
}

// NewReplayGPS builds a ReplayGPS over a pre-parsed sequence of fixes (the
// actual NMEA/byte-level parsing is out of scope per spec §1).
func NewReplayGPS(records []statevec.GPSFix) *ReplayGPS {
	return &ReplayGPS{records: records}
}

// ParseGPSLog reads a CSV-shaped GPS replay log (posX, posY, posZ, quality
// per row, quality as the FixQuality integer) for the "gps_device selects
// GPS-from-logfile replay" mode of spec §6.
func ParseGPSLog(r io.Reader) ([]statevec.GPSFix, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = 4
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parsing gps log: %w", err)
	}
	fixes := make([]statevec.GPSFix, 0, len(rows))
	for i, row := range rows {
		var fix statevec.GPSFix
		for j := 0; j < 3; j++ {
			v, err := strconv.ParseFloat(row[j], 64)
			if err != nil {
				return nil, fmt.Errorf("gps log row %d field %d: %w", i, j, err)
			}
			fix.Pos[j] = v
		}
		q, err := strconv.Atoi(row[3])
		if err != nil {
			return nil, fmt.Errorf("gps log row %d quality: %w", i, err)
		}
		fix.Quality = statevec.FixQuality(q)
		fixes = append(fixes, fix)
	}
	return fixes, nil
}

// Fd implements gateway.Readable; replay has no real descriptor.
func (g *ReplayGPS) Fd() int { return -1 }

// ReadOne implements gateway.GPS.
func (g *ReplayGPS) ReadOne() error {
	if g.pos < len(g.records) {
		g.pending = true
	}
	return nil
}

// HasUnread implements gateway.GPS.
func (g *ReplayGPS) HasUnread() bool { return g.pending }

// Fix3D implements gateway.GPS.
func (g *ReplayGPS) Fix3D() bool {
	return g.pos < len(g.records) && g.records[g.pos].Quality == statevec.Fix3D
}

// GetFix implements gateway.GPS, zeroing position against the established
// local origin.
func (g *ReplayGPS) GetFix() statevec.GPSFix {
	fix := g.records[g.pos]
	fix.Pos[0] -= g.zero[0]
	fix.Pos[1] -= g.zero[1]
	fix.Pos[2] -= g.zero[2]
	g.pos++
	g.pending = false
	return fix
}

// SetZero implements gateway.GPS: the next unread fix (or the origin
// (0,0,0) if none is queued yet) becomes the local zero.
func (g *ReplayGPS) SetZero() {
	if g.pos < len(g.records) {
		g.zero = g.records[g.pos].Pos
	}
}
