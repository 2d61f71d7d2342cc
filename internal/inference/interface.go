// internal/inference/interface.go
package inference

import (
	"github.com/pkg/errors"
)

var (
	// ErrArtifactMissing is returned when a model artifact is absent or of the wrong kind.
	ErrArtifactMissing = errors.New("model artifact missing")
	// ErrInference is returned when the runtime fails to execute a model.
	ErrInference = errors.New("inference failed")
	// ErrBadBatch is returned when a batch's shape does not match its data.
	ErrBadBatch = errors.New("malformed input batch")
)

// Element is the set of tensor element types the pipelines produce.
type Element interface {
	float32 | uint8
}

// Batch is an input tensor in NHWC layout. The classifier always sends a batch of one.
type Batch[T Element] struct {
	Shape []int64
	Data  []T
}

// Size returns the batch dimension.
func (b Batch[T]) Size() int64 {
	if len(b.Shape) == 0 {
		return 0
	}
	return b.Shape[0]
}

// Validate checks that the shape describes exactly len(Data) elements.
func (b Batch[T]) Validate() error {
	if len(b.Shape) == 0 {
		return errors.Wrap(ErrBadBatch, "empty shape")
	}
	n := int64(1)
	for _, d := range b.Shape {
		if d <= 0 {
			return errors.Wrapf(ErrBadBatch, "non-positive dimension in shape %v", b.Shape)
		}
		n *= d
	}
	if n != int64(len(b.Data)) {
		return errors.Wrapf(ErrBadBatch, "shape %v needs %d elements, got %d", b.Shape, n, len(b.Data))
	}
	return nil
}

// Scorer is a model that returns one score per class for each image.
type Scorer interface {
	// Scores runs the batch and returns the flattened [batch, classes] score matrix.
	Scores(batch Batch[float32]) ([]float32, error)

	// Close releases any resources held by the model.
	Close() error
}

// Indexer is a model that returns the winning class index for an image directly.
type Indexer interface {
	// ClassIndex runs a single-image batch and returns the predicted class.
	ClassIndex(batch Batch[uint8]) (int64, error)

	// Close releases any resources held by the model.
	Close() error
}

// Opener deserializes model artifacts into in-memory predictors.
type Opener interface {
	// OpenScorer loads a single-file score model producing the given number of classes.
	OpenScorer(path string, classes int) (Scorer, error)

	// OpenIndexer loads an inference graph stored in a directory.
	OpenIndexer(dir string) (Indexer, error)
}
