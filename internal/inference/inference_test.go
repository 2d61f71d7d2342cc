// internal/inference/inference_test.go
package inference

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
)

func TestBatchValidate(t *testing.T) {
	ok := Batch[float32]{Shape: []int64{1, 2, 2, 3}, Data: make([]float32, 12)}
	if err := ok.Validate(); err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if ok.Size() != 1 {
		t.Errorf("Expected batch size 1, got %d", ok.Size())
	}

	bad := []Batch[uint8]{
		{Shape: nil, Data: nil},
		{Shape: []int64{1, 0, 3}, Data: nil},
		{Shape: []int64{1, 2, 3}, Data: make([]uint8, 5)},
	}
	for i, b := range bad {
		if err := b.Validate(); !errors.Is(err, ErrBadBatch) {
			t.Errorf("case %d: expected ErrBadBatch, got %v", i, err)
		}
	}
}

func TestMockScorer_Scores(t *testing.T) {
	mock := NewMockScorer(0.1, 0.7, 0.2)

	batch := Batch[float32]{Shape: []int64{1, 2, 2, 3}, Data: make([]float32, 12)}
	scores, err := mock.Scores(batch)
	if err != nil {
		t.Fatalf("Scores failed: %v", err)
	}

	expected := []float32{0.1, 0.7, 0.2}
	if len(scores) != len(expected) {
		t.Fatalf("Expected %d scores, got %d", len(expected), len(scores))
	}
	for i, v := range expected {
		if scores[i] != v {
			t.Errorf("Score[%d] = %f, expected %f", i, scores[i], v)
		}
	}

	if mock.Calls() != 1 {
		t.Errorf("Expected CallCount=1, got %d", mock.Calls())
	}
}

func TestMockScorer_Error(t *testing.T) {
	mock := NewMockScorer(1)
	mock.Err = errors.New("test error")

	_, err := mock.Scores(Batch[float32]{Shape: []int64{1}, Data: []float32{0}})
	if err == nil || err.Error() != "test error" {
		t.Fatalf("Expected 'test error', got %v", err)
	}
}

func TestMockScorer_WrongSize(t *testing.T) {
	mock := NewMockScorer(1)
	_, err := mock.Scores(Batch[float32]{Shape: []int64{1, 4}, Data: []float32{0}})
	if !errors.Is(err, ErrBadBatch) {
		t.Fatalf("Expected ErrBadBatch, got %v", err)
	}
}

func TestMockIndexer_ClassIndex(t *testing.T) {
	mock := NewMockIndexer(3)
	var seen int
	mock.OnCall = func(b Batch[uint8]) { seen = len(b.Data) }

	idx, err := mock.ClassIndex(Batch[uint8]{Shape: []int64{1, 1, 1, 3}, Data: []uint8{1, 2, 3}})
	if err != nil {
		t.Fatalf("ClassIndex failed: %v", err)
	}
	if idx != 3 {
		t.Errorf("Expected index 3, got %d", idx)
	}
	if seen != 3 {
		t.Errorf("Expected hook to see 3 elements, got %d", seen)
	}

	if err := mock.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if _, err := mock.ClassIndex(Batch[uint8]{Shape: []int64{1}, Data: []uint8{0}}); !errors.Is(err, ErrInference) {
		t.Errorf("Expected ErrInference after close, got %v", err)
	}
}

func TestMockOpener(t *testing.T) {
	opener := NewMockOpener()
	if _, err := opener.OpenScorer("a.onnx", 3); err != nil {
		t.Fatalf("OpenScorer failed: %v", err)
	}
	if _, err := opener.OpenIndexer("graph"); err != nil {
		t.Fatalf("OpenIndexer failed: %v", err)
	}
	if len(opener.Paths) != 2 || opener.Paths[0] != "a.onnx" || opener.Paths[1] != "graph" {
		t.Errorf("Unexpected recorded paths: %v", opener.Paths)
	}

	opener.Indexer = nil
	if _, err := opener.OpenIndexer("graph"); !errors.Is(err, ErrArtifactMissing) {
		t.Errorf("Expected ErrArtifactMissing, got %v", err)
	}
}

func TestONNXOpener_MissingArtifacts(t *testing.T) {
	dir := t.TempDir()
	opener := ONNXOpener{}

	if _, err := opener.OpenScorer(filepath.Join(dir, "missing.onnx"), 3); !errors.Is(err, ErrArtifactMissing) {
		t.Errorf("Expected ErrArtifactMissing for missing file, got %v", err)
	}
	if _, err := opener.OpenScorer(dir, 3); !errors.Is(err, ErrArtifactMissing) {
		t.Errorf("Expected ErrArtifactMissing for directory, got %v", err)
	}
	if _, err := opener.OpenIndexer(filepath.Join(dir, "missing")); !errors.Is(err, ErrArtifactMissing) {
		t.Errorf("Expected ErrArtifactMissing for missing dir, got %v", err)
	}

	// directory without the serialized graph
	if _, err := opener.OpenIndexer(dir); !errors.Is(err, ErrArtifactMissing) {
		t.Errorf("Expected ErrArtifactMissing for empty graph dir, got %v", err)
	}

	file := filepath.Join(dir, "file.onnx")
	if err := os.WriteFile(file, []byte("x"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := opener.OpenIndexer(file); !errors.Is(err, ErrArtifactMissing) {
		t.Errorf("Expected ErrArtifactMissing for file passed as graph dir, got %v", err)
	}
}

func TestRealScorer_WithModel(t *testing.T) {
	// Skip if ONNX model or library is not available
	modelPath := "testdata/detector_styx.onnx"
	if _, err := os.Stat(modelPath); os.IsNotExist(err) {
		t.Skip("Skipping real inference test: testdata/detector_styx.onnx not found")
	}

	scorer, err := ONNXOpener{LibraryPath: os.Getenv("ONNXRUNTIME_LIB")}.OpenScorer(modelPath, 3)
	if err != nil {
		t.Skipf("Skipping real inference test: %v", err)
	}
	defer Shutdown()
	defer scorer.Close()

	batch := Batch[float32]{Shape: []int64{1, 224, 224, 3}, Data: make([]float32, 224*224*3)}
	scores, err := scorer.Scores(batch)
	if err != nil {
		t.Fatalf("Scores failed: %v", err)
	}
	if len(scores) != 3 {
		t.Errorf("Expected 3 scores, got %d", len(scores))
	}
}
