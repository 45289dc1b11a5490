package charging

// Interface is the unordered set of connectors a vehicle or charging point
// offers.
type Interface struct {
	connectors []Connector
}

// NewInterface builds an interface from the given connectors. Connectors
// with zero or negative power are skipped, so callers can pass a fixed
// per-type power table and leave unsupported types at 0.
func NewInterface(connectors ...Connector) *Interface {
	ci := &Interface{}
	for _, c := range connectors {
		if c.PMax > 0 {
			ci.connectors = append(ci.connectors, c)
		}
	}
	return ci
}

// Connectors returns the connector set.
func (ci *Interface) Connectors() []Connector { return ci.connectors }

// CompatibleWith reports whether both interfaces share at least one
// connector type.
func (ci *Interface) CompatibleWith(o *Interface) bool {
	for _, a := range ci.connectors {
		for _, b := range o.connectors {
			if a.Compatible(b) {
				return true
			}
		}
	}
	return false
}

// BestCommon returns the connector with the highest power both interfaces
// support together. The boolean is false when no connector type is shared.
func (ci *Interface) BestCommon(o *Interface) (Connector, bool) {
	var best Connector
	found := false
	for _, a := range ci.connectors {
		for _, b := range o.connectors {
			if !a.Compatible(b) {
				continue
			}
			c := a
			if b.PMax < a.PMax {
				c = b
			}
			if !found || c.PMax > best.PMax {
				best = c
				found = true
			}
		}
	}
	return best, found
}

// HomeConnector returns the lowest-power connector, used for trickle
// charging during inactive periods.
func (ci *Interface) HomeConnector() (Connector, bool) {
	if len(ci.connectors) == 0 {
		return Connector{}, false
	}
	min := ci.connectors[0]
	for _, c := range ci.connectors[1:] {
		if c.PMax < min.PMax {
			min = c
		}
	}
	return min, true
}
