// internal/inference/mock.go
package inference

import (
	"sync"

	"github.com/pkg/errors"
)

// MockScorer is a Scorer returning fixed scores without requiring the ONNX shared library.
type MockScorer struct {
	mu sync.Mutex
	// Output is returned for every image in the batch
	Output []float32
	// Err, if set, is returned by Scores
	Err error
	// OnCall runs at the start of every Scores call
	OnCall func(batch Batch[float32])
	// CallCount tracks the number of times Scores was called
	CallCount int
	// LastShape is the shape of the most recent batch
	LastShape []int64
	closed    bool
}

// NewMockScorer creates a MockScorer returning the given scores.
func NewMockScorer(scores ...float32) *MockScorer {
	return &MockScorer{Output: scores}
}

// Scores validates the batch and returns Output repeated for each image.
func (m *MockScorer) Scores(batch Batch[float32]) ([]float32, error) {
	m.mu.Lock()
	m.CallCount++
	m.LastShape = append([]int64(nil), batch.Shape...)
	hook, output, err, closed := m.OnCall, m.Output, m.Err, m.closed
	m.mu.Unlock()

	if hook != nil {
		hook(batch)
	}
	if closed {
		return nil, errors.Wrap(ErrInference, "session is closed")
	}
	if err != nil {
		return nil, err
	}
	if err := batch.Validate(); err != nil {
		return nil, err
	}

	out := make([]float32, 0, int(batch.Size())*len(output))
	for i := int64(0); i < batch.Size(); i++ {
		out = append(out, output...)
	}
	return out, nil
}

// Calls returns the number of Scores calls so far.
func (m *MockScorer) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.CallCount
}

// Closed reports whether Close was called.
func (m *MockScorer) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// Close marks the mock closed.
func (m *MockScorer) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// MockIndexer is an Indexer returning a fixed class index.
type MockIndexer struct {
	mu sync.Mutex
	// Index is returned by ClassIndex
	Index int64
	// Err, if set, is returned by ClassIndex
	Err error
	// OnCall runs at the start of every ClassIndex call
	OnCall func(batch Batch[uint8])
	// CallCount tracks the number of times ClassIndex was called
	CallCount int
	// LastBatch is the most recent input
	LastBatch Batch[uint8]
	closed    bool
}

// NewMockIndexer creates a MockIndexer returning idx.
func NewMockIndexer(idx int64) *MockIndexer {
	return &MockIndexer{Index: idx}
}

// ClassIndex validates the batch and returns Index.
func (m *MockIndexer) ClassIndex(batch Batch[uint8]) (int64, error) {
	m.mu.Lock()
	m.CallCount++
	m.LastBatch = batch
	hook, idx, err, closed := m.OnCall, m.Index, m.Err, m.closed
	m.mu.Unlock()

	if hook != nil {
		hook(batch)
	}
	if closed {
		return 0, errors.Wrap(ErrInference, "session is closed")
	}
	if err != nil {
		return 0, err
	}
	if err := batch.Validate(); err != nil {
		return 0, err
	}
	return idx, nil
}

// Calls returns the number of ClassIndex calls so far.
func (m *MockIndexer) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.CallCount
}

// Closed reports whether Close was called.
func (m *MockIndexer) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// Close marks the mock closed.
func (m *MockIndexer) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// MockOpener hands out preconfigured mock models and records the paths it was asked to open.
type MockOpener struct {
	Scorer  *MockScorer
	Indexer *MockIndexer
	// Err, if set, is returned by both open calls
	Err   error
	Paths []string
}

// NewMockOpener returns an opener whose simulator model scores green and whose
// real-vehicle model answers class 3 (green).
func NewMockOpener() *MockOpener {
	return &MockOpener{
		Scorer:  NewMockScorer(0.9, 0.05, 0.05),
		Indexer: NewMockIndexer(3),
	}
}

// OpenScorer returns the configured MockScorer.
func (o *MockOpener) OpenScorer(path string, classes int) (Scorer, error) {
	o.Paths = append(o.Paths, path)
	if o.Err != nil {
		return nil, o.Err
	}
	if o.Scorer == nil {
		return nil, errors.Wrapf(ErrArtifactMissing, "%s: no mock scorer configured", path)
	}
	return o.Scorer, nil
}

// OpenIndexer returns the configured MockIndexer.
func (o *MockOpener) OpenIndexer(dir string) (Indexer, error) {
	o.Paths = append(o.Paths, dir)
	if o.Err != nil {
		return nil, o.Err
	}
	if o.Indexer == nil {
		return nil, errors.Wrapf(ErrArtifactMissing, "%s: no mock indexer configured", dir)
	}
	return o.Indexer, nil
}

// Ensure the mocks implement the model interfaces at compile time
var (
	_ Scorer  = (*MockScorer)(nil)
	_ Indexer = (*MockIndexer)(nil)
	_ Opener  = (*MockOpener)(nil)
)
