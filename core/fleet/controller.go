package fleet

import (
	"fmt"

	"github.com/evfleet/taxisim/core/logger"
	"github.com/evfleet/taxisim/core/policy"
	"github.com/evfleet/taxisim/core/sim"
	"github.com/evfleet/taxisim/core/stats"
	"github.com/evfleet/taxisim/core/vehicle"
)

// Controller regulates the number of active taxis toward a time-varying
// target. Vehicles are logged on in order of their last log-off and
// logged off in order of their last log-in.
type Controller struct {
	agency *Agency
	target int
	sink   stats.Sink
	log    logger.Logger
}

// NewController builds a controller over the agency's fleet. Pass nil to
// discard statistics.
func NewController(agency *Agency, sink stats.Sink, log logger.Logger) *Controller {
	if sink == nil {
		sink = stats.NopSink{}
	}
	return &Controller{agency: agency, sink: sink, log: log}
}

// Target returns the current target active-vehicle count.
func (c *Controller) Target() int { return c.target }

// SetTarget adopts a new target and immediately rebalances.
func (c *Controller) SetTarget(n int, t sim.Time) error {
	if n <= 0 {
		return fmt.Errorf("controller: target must be positive, got %d", n)
	}
	c.target = n
	c.sink.RecordController(stats.ControllerRecord{Time: t, Scope: stats.ScopeTarget, Count: n})
	c.Rebalance(t)
	return nil
}

var lastLogoffChain = policy.Chain[vehicle.Agent]{
	policy.Asc(func(v vehicle.Agent) float64 { return float64(v.LastLogoff()) }),
}

var lastLoginChain = policy.Chain[vehicle.Agent]{
	policy.Asc(func(v vehicle.Agent) float64 { return float64(v.LastLogin()) }),
}

// Rebalance compares the active count with the target and logs vehicles
// on or off until the gap closes or the candidate pool is exhausted. Free
// vehicles past their maximum active time are forced off first regardless
// of the target; a taxi stuck at a rank without rides would otherwise
// never reassess its shift.
func (c *Controller) Rebalance(t sim.Time) {
	for _, v := range c.agency.Free() {
		if v.MaxActiveExceeded(t) {
			v.TriggerLogOff(t)
		}
	}

	active := len(c.agency.Active())
	switch {
	case active < c.target:
		gap := c.target - active
		inactive := c.agency.Inactive()
		lastLogoffChain.Sort(inactive)
		for _, v := range inactive {
			if gap == 0 {
				break
			}
			if v.LogOn(t) {
				gap--
			}
		}
	case active > c.target:
		gap := active - c.target
		candidates := c.agency.Active()
		lastLoginChain.Sort(candidates)
		for _, v := range candidates {
			if gap == 0 {
				break
			}
			if v.TriggerLogOff(t) {
				gap--
			}
		}
	}

	actual := len(c.agency.Active())
	c.log.Debugf("controller: target=%d active=%d", c.target, actual)
	c.sink.RecordController(stats.ControllerRecord{Time: t, Scope: stats.ScopeActual, Count: actual})
}
