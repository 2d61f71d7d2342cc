package classifier

import (
	"math"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/SyedDaiam9101/tl-detector/internal/frame"
	"github.com/SyedDaiam9101/tl-detector/internal/inference"
	"github.com/SyedDaiam9101/tl-detector/internal/preprocess"
	"github.com/SyedDaiam9101/tl-detector/internal/signal"
)

// Artifact names, relative to the model directory.
const (
	SimulatorArtifact   = "detector_styx.onnx"
	RealVehicleArtifact = "detector_carla_inference_graph"
	SampleImage         = "sample.jpg"
)

// ArtifactPath returns where the backend's model artifact lives under modelDir.
func ArtifactPath(k Kind, modelDir string) (string, error) {
	switch k {
	case Simulator:
		return filepath.Join(modelDir, SimulatorArtifact), nil
	case RealVehicle:
		return filepath.Join(modelDir, RealVehicleArtifact), nil
	}
	return "", errors.Wrapf(ErrUnknownBackend, "%q", k)
}

// Backend is a loaded model together with its preprocessing and mapping table.
// The only implementations are the simulator and real-vehicle backends.
type Backend interface {
	// Kind reports which backend this is.
	Kind() Kind
	// Table returns a copy of the backend's mapping table.
	Table() []signal.Signal
	// ClassIndex preprocesses the frame, runs inference and reduces the output to a class index.
	ClassIndex(f *frame.Frame) (int, error)
	// Close releases the model.
	Close() error

	sealed()
}

// Load resolves the artifact for k under modelDir and opens it.
func Load(k Kind, modelDir string, opener inference.Opener) (Backend, error) {
	if opener == nil {
		return nil, errors.New("no model opener")
	}
	path, err := ArtifactPath(k, modelDir)
	if err != nil {
		return nil, err
	}

	switch k {
	case Simulator:
		model, err := opener.OpenScorer(path, len(simulatorTable))
		if err != nil {
			return nil, errors.Wrapf(err, "loading %s model", k)
		}
		return &simulatorBackend{model: model}, nil
	default:
		model, err := opener.OpenIndexer(path)
		if err != nil {
			return nil, errors.Wrapf(err, "loading %s model", k)
		}
		return &realVehicleBackend{model: model}, nil
	}
}

type simulatorBackend struct {
	model inference.Scorer
}

func (b *simulatorBackend) Kind() Kind { return Simulator }

func (b *simulatorBackend) Table() []signal.Signal {
	return append([]signal.Signal(nil), simulatorTable[:]...)
}

func (b *simulatorBackend) ClassIndex(f *frame.Frame) (int, error) {
	batch, err := preprocess.Simulator(f)
	if err != nil {
		return 0, err
	}
	scores, err := b.model.Scores(batch)
	if err != nil {
		return 0, err
	}
	return ArgMax(scores)
}

func (b *simulatorBackend) Close() error { return b.model.Close() }

func (b *simulatorBackend) sealed() {}

type realVehicleBackend struct {
	model inference.Indexer
}

func (b *realVehicleBackend) Kind() Kind { return RealVehicle }

func (b *realVehicleBackend) Table() []signal.Signal {
	return append([]signal.Signal(nil), realVehicleTable[:]...)
}

func (b *realVehicleBackend) ClassIndex(f *frame.Frame) (int, error) {
	batch, err := preprocess.RealVehicle(f)
	if err != nil {
		return 0, err
	}
	idx, err := b.model.ClassIndex(batch)
	if err != nil {
		return 0, err
	}
	if idx < 0 || idx > math.MaxInt32 {
		return 0, errors.Wrapf(ErrContractViolation, "%s model returned class %d", RealVehicle, idx)
	}
	return int(idx), nil
}

func (b *realVehicleBackend) Close() error { return b.model.Close() }

func (b *realVehicleBackend) sealed() {}
