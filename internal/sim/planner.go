package sim

import "github.com/weihli/uquad/internal/statevec"

// HoverPlanner is the trivial path planner: in HOVER mode it holds the
// seeded setpoint stationary; with FullControl enabled, UpdateSetpoint
// instead tracks an externally pushed target (e.g. from manual mode or a
// future trajectory generator), leaving the actual trajectory-generation
// algorithm out of scope per spec §1.
type HoverPlanner struct {
	fullControl bool
	sp          statevec.Setpoint
	target      *statevec.Setpoint
}

// NewHoverPlanner builds a planner. fullControl selects whether
// UpdateSetpoint tracks Push()ed targets instead of holding position.
func NewHoverPlanner(fullControl bool) *HoverPlanner {
	return &HoverPlanner{fullControl: fullControl}
}

// SeedSetpoint implements gateway.PathPlanner.
func (p *HoverPlanner) SeedSetpoint(sp statevec.Setpoint) { p.sp = sp }

// UpdateSetpoint implements gateway.PathPlanner. wHover is accepted to
// keep the gateway.PathPlanner signature uniform across implementations
// even though the hover planner itself has no use for it; a trajectory-
// generating planner would use it to bound climb/descent rates.
func (p *HoverPlanner) UpdateSetpoint(_ statevec.Vector, _ float64) {
	if p.fullControl && p.target != nil {
		p.sp = *p.target
	}
}

// Setpoint implements gateway.PathPlanner.
func (p *HoverPlanner) Setpoint() statevec.Setpoint { return p.sp }

// Push lets manual mode or an external caller edit the live setpoint
// in-place (spec §4.7: "Manual mode never bypasses the controller; it only
// edits the setpoint or mass").
func (p *HoverPlanner) Push(sp statevec.Setpoint) {
	p.sp = sp
	p.target = &sp
}
