// Package charging models the plug-level compatibility between electric
// taxis and charging facilities: connector types, per-connector power
// limits and the best common connector of two charging interfaces.
package charging

import (
	"fmt"

	"github.com/evfleet/taxisim/core/sim"
)

// ConnectorType identifies the physical plug standard. Two connectors are
// compatible iff they share the same type.
type ConnectorType int

const (
	Schuko ConnectorType = iota + 1
	Type2
	CCS
	CHAdeMO
	Supercharger
)

var typeNames = [...]string{"SCHUKO", "TYP2", "CCS", "CHADEMO", "SUPERCHARGER"}

// String returns the connector type name used in statistics records.
func (t ConnectorType) String() string {
	if t < Schuko || t > Supercharger {
		return fmt.Sprintf("UNKNOWN(%d)", int(t))
	}
	return typeNames[t-1]
}

// Valid reports whether t is one of the defined connector types.
func (t ConnectorType) Valid() bool { return t >= Schuko && t <= Supercharger }

// ParseConnectorType converts a type name as it appears in input files.
func ParseConnectorType(s string) (ConnectorType, error) {
	for i, name := range typeNames {
		if s == name {
			return ConnectorType(i + 1), nil
		}
	}
	return 0, fmt.Errorf("unknown connector type %q", s)
}

// Connector is one plug of a charging interface with its supported maximum
// power in W and the time it takes to plug a car in.
type Connector struct {
	Type   ConnectorType
	PMax   float64
	PlugIn sim.Time
}

// Compatible reports whether both connectors share the same type.
func (c Connector) Compatible(o Connector) bool { return c.Type == o.Type }

// CommonPower returns the highest power both connectors support together,
// or 0 if they are incompatible.
//
// A charging session runs at the limit of the weaker side, so the common
// connector is the one with the smaller PMax.
func (c Connector) CommonPower(o Connector) float64 {
	if !c.Compatible(o) {
		return 0
	}
	if c.PMax < o.PMax {
		return c.PMax
	}
	return o.PMax
}
