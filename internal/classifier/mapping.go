package classifier

import (
	"math"

	"github.com/pkg/errors"

	"github.com/SyedDaiam9101/tl-detector/internal/signal"
)

// Kind identifies an inference backend. It is chosen once at construction.
type Kind string

const (
	// Simulator is the model trained on simulator camera frames.
	Simulator Kind = "simulator"
	// RealVehicle is the production model trained on the vehicle's camera.
	RealVehicle Kind = "real-vehicle"
)

// Kinds lists every supported backend.
var Kinds = []Kind{Simulator, RealVehicle}

var (
	// ErrUnknownBackend is returned for identifiers other than Simulator and RealVehicle.
	ErrUnknownBackend = errors.New("unknown backend")
	// ErrContractViolation is returned when a model produces output outside its mapping table.
	ErrContractViolation = errors.New("model output violates backend contract")
)

// ParseKind validates a backend identifier. There is no default backend.
func ParseKind(id string) (Kind, error) {
	switch k := Kind(id); k {
	case Simulator, RealVehicle:
		return k, nil
	}
	return "", errors.Wrapf(ErrUnknownBackend, "%q (want %q or %q)", id, Simulator, RealVehicle)
}

// Class index to signal, per backend.
var (
	simulatorTable = [...]signal.Signal{
		signal.Green,
		signal.Yellow,
		signal.Red,
	}
	realVehicleTable = [...]signal.Signal{
		signal.Unknown,
		signal.Red,
		signal.Yellow,
		signal.Green,
	}
)

// Table returns a copy of the backend's mapping table.
func Table(k Kind) ([]signal.Signal, error) {
	switch k {
	case Simulator:
		return append([]signal.Signal(nil), simulatorTable[:]...), nil
	case RealVehicle:
		return append([]signal.Signal(nil), realVehicleTable[:]...), nil
	}
	return nil, errors.Wrapf(ErrUnknownBackend, "%q", k)
}

// MapIndex returns the canonical signal for a backend's raw class index.
func MapIndex(k Kind, idx int) (signal.Signal, error) {
	var table []signal.Signal
	switch k {
	case Simulator:
		table = simulatorTable[:]
	case RealVehicle:
		table = realVehicleTable[:]
	default:
		return signal.Unknown, errors.Wrapf(ErrUnknownBackend, "%q", k)
	}
	if idx < 0 || idx >= len(table) {
		return signal.Unknown, errors.Wrapf(ErrContractViolation,
			"%s model returned class %d, table has %d entries", k, idx, len(table))
	}
	return table[idx], nil
}

// ArgMax returns the index of the highest score. Ties go to the lowest index.
func ArgMax(scores []float32) (int, error) {
	if len(scores) == 0 {
		return 0, errors.Wrap(ErrContractViolation, "empty score vector")
	}
	best := 0
	for i, v := range scores {
		if math.IsNaN(float64(v)) {
			return 0, errors.Wrapf(ErrContractViolation, "score %d is NaN", i)
		}
		if v > scores[best] {
			best = i
		}
	}
	return best, nil
}
