// internal/inference/inference.go
package inference

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/pkg/errors"
	ort "github.com/yalue/onnxruntime_go"
)

// GraphFile is the name of the serialized graph inside a real-vehicle artifact directory.
const GraphFile = "model.onnx"

// Tensor names the exported models are expected to use.
const (
	ScorerInput   = "image"
	ScorerOutput  = "scores"
	IndexerInput  = "image_tensor"
	IndexerOutput = "class_id"
)

var (
	envMu          sync.Mutex
	envInitialized bool
)

// initEnvironment initializes the ONNX runtime once per process.
func initEnvironment(libraryPath string) error {
	envMu.Lock()
	defer envMu.Unlock()

	if envInitialized {
		return nil
	}
	if libraryPath != "" {
		ort.SetSharedLibraryPath(libraryPath)
	}
	if err := ort.InitializeEnvironment(); err != nil {
		return errors.Wrap(err, "failed to initialize ONNX environment")
	}
	envInitialized = true
	return nil
}

// Shutdown tears down the ONNX runtime environment. Call it once all sessions are closed.
func Shutdown() error {
	envMu.Lock()
	defer envMu.Unlock()

	if !envInitialized {
		return nil
	}
	envInitialized = false
	return ort.DestroyEnvironment()
}

// ONNXOpener loads artifacts with the ONNX runtime.
type ONNXOpener struct {
	// LibraryPath points at the onnxruntime shared library. Empty uses the runtime default.
	LibraryPath string
}

// OpenScorer loads a single-file model with one float32 input and a [batch, classes] output.
func (o ONNXOpener) OpenScorer(path string, classes int) (Scorer, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, errors.Wrapf(ErrArtifactMissing, "%s: %v", path, err)
	}
	if info.IsDir() {
		return nil, errors.Wrapf(ErrArtifactMissing, "%s is a directory, expected a model file", path)
	}
	if classes <= 0 {
		return nil, errors.Errorf("invalid class count %d", classes)
	}

	session, err := newSession(path, ScorerInput, ScorerOutput, o.LibraryPath)
	if err != nil {
		return nil, err
	}
	return &ONNXScorer{session: session, classes: int64(classes)}, nil
}

// OpenIndexer loads dir/model.onnx, a graph with one uint8 image input and an int64 class output.
func (o ONNXOpener) OpenIndexer(dir string) (Indexer, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, errors.Wrapf(ErrArtifactMissing, "%s: %v", dir, err)
	}
	if !info.IsDir() {
		return nil, errors.Wrapf(ErrArtifactMissing, "%s is not a directory", dir)
	}
	graph := filepath.Join(dir, GraphFile)
	if _, err := os.Stat(graph); err != nil {
		return nil, errors.Wrapf(ErrArtifactMissing, "%s: %v", graph, err)
	}

	session, err := newSession(graph, IndexerInput, IndexerOutput, o.LibraryPath)
	if err != nil {
		return nil, err
	}
	return &ONNXIndexer{session: session}, nil
}

func newSession(path, input, output, libraryPath string) (*ort.DynamicAdvancedSession, error) {
	if err := initEnvironment(libraryPath); err != nil {
		return nil, err
	}

	// Input sizes differ per backend (and per camera for the real vehicle), so use a
	// dynamic session and allocate tensors per call.
	session, err := ort.NewDynamicAdvancedSession(
		path,
		[]string{input},
		[]string{output},
		nil, // Use default session options
	)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to create ONNX session for %s", path)
	}
	return session, nil
}

// ONNXScorer wraps an ONNX session returning class scores. Calls are serialized.
type ONNXScorer struct {
	mu      sync.Mutex
	session *ort.DynamicAdvancedSession
	classes int64
}

// Scores runs the model and returns batch*classes scores.
func (s *ONNXScorer) Scores(batch Batch[float32]) ([]float32, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.session == nil {
		return nil, errors.Wrap(ErrInference, "session is closed")
	}
	if err := batch.Validate(); err != nil {
		return nil, err
	}

	inputTensor, err := ort.NewTensor(ort.NewShape(batch.Shape...), batch.Data)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create input tensor")
	}
	defer inputTensor.Destroy()

	outputTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(batch.Size(), s.classes))
	if err != nil {
		return nil, errors.Wrap(err, "failed to create output tensor")
	}
	defer outputTensor.Destroy()

	err = s.session.Run(
		[]ort.ArbitraryTensor{inputTensor},
		[]ort.ArbitraryTensor{outputTensor},
	)
	if err != nil {
		return nil, errors.Wrapf(ErrInference, "%v", err)
	}

	// The tensor's backing slice is freed with it.
	out := make([]float32, len(outputTensor.GetData()))
	copy(out, outputTensor.GetData())
	return out, nil
}

// Close releases the ONNX session.
func (s *ONNXScorer) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return destroy(&s.session)
}

// ONNXIndexer wraps an ONNX graph that emits the winning class index.
type ONNXIndexer struct {
	mu      sync.Mutex
	session *ort.DynamicAdvancedSession
}

// ClassIndex runs a single-image batch and returns the predicted class.
func (ix *ONNXIndexer) ClassIndex(batch Batch[uint8]) (int64, error) {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	if ix.session == nil {
		return 0, errors.Wrap(ErrInference, "session is closed")
	}
	if err := batch.Validate(); err != nil {
		return 0, err
	}
	if batch.Size() != 1 {
		return 0, errors.Wrapf(ErrBadBatch, "expected a single image, got batch of %d", batch.Size())
	}

	inputTensor, err := ort.NewTensor(ort.NewShape(batch.Shape...), batch.Data)
	if err != nil {
		return 0, errors.Wrap(err, "failed to create input tensor")
	}
	defer inputTensor.Destroy()

	outputTensor, err := ort.NewEmptyTensor[int64](ort.NewShape(1))
	if err != nil {
		return 0, errors.Wrap(err, "failed to create output tensor")
	}
	defer outputTensor.Destroy()

	err = ix.session.Run(
		[]ort.ArbitraryTensor{inputTensor},
		[]ort.ArbitraryTensor{outputTensor},
	)
	if err != nil {
		return 0, errors.Wrapf(ErrInference, "%v", err)
	}
	return outputTensor.GetData()[0], nil
}

// Close releases the ONNX session.
func (ix *ONNXIndexer) Close() error {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	return destroy(&ix.session)
}

func destroy(session **ort.DynamicAdvancedSession) error {
	if *session == nil {
		return nil
	}
	err := (*session).Destroy()
	*session = nil
	if err != nil {
		return errors.Wrap(err, "failed to destroy session")
	}
	return nil
}

// Ensure the ONNX handles implement the model interfaces at compile time
var (
	_ Scorer  = (*ONNXScorer)(nil)
	_ Indexer = (*ONNXIndexer)(nil)
	_ Opener  = ONNXOpener{}
)
