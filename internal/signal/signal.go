// Package signal defines the canonical traffic light states returned to callers.
package signal

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// ErrUnknownSignal is returned by Parse for names that are not a canonical signal.
var ErrUnknownSignal = errors.New("unknown signal")

// Signal is a traffic light state. Values match the styx_msgs/TrafficLight wire codes
// so they can be published to the vehicle without translation.
type Signal int32

const (
	Red     Signal = 0
	Yellow  Signal = 1
	Green   Signal = 2
	Unknown Signal = 4
)

// All lists every canonical signal.
var All = []Signal{Red, Yellow, Green, Unknown}

func (s Signal) String() string {
	switch s {
	case Red:
		return "RED"
	case Yellow:
		return "YELLOW"
	case Green:
		return "GREEN"
	case Unknown:
		return "UNKNOWN"
	default:
		return fmt.Sprintf("Signal(%d)", int32(s))
	}
}

// Valid reports whether s is one of the canonical signals.
func (s Signal) Valid() bool {
	switch s {
	case Red, Yellow, Green, Unknown:
		return true
	}
	return false
}

// Parse converts a signal name (case-insensitive) into a Signal.
func Parse(name string) (Signal, error) {
	for _, s := range All {
		if strings.EqualFold(strings.TrimSpace(name), s.String()) {
			return s, nil
		}
	}
	return Unknown, errors.Wrapf(ErrUnknownSignal, "%q", name)
}
