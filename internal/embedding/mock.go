package embedding

import (
	"context"
	"math"
	"sync/atomic"
)

// MockEmbedder is a deterministic embedder for tests: the same text always
// yields the same unit-length vector. Fixed is consulted first, so tests can
// pin exact vectors for specific inputs.
type MockEmbedder struct {
	dimensions int
	calls      atomic.Int32

	// Fixed maps text to a pre-chosen embedding.
	Fixed map[string][]float32
}

// NewMockEmbedder returns a mock embedder producing vectors of the given width.
func NewMockEmbedder(dimensions int) *MockEmbedder {
	if dimensions <= 0 {
		dimensions = 384
	}
	return &MockEmbedder{dimensions: dimensions}
}

// Embed returns the pinned vector for text when present, otherwise a
// hash-derived deterministic vector.
func (e *MockEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	e.calls.Add(1)
	if vec, ok := e.Fixed[text]; ok {
		out := make([]float32, len(vec))
		copy(out, vec)
		return out, nil
	}
	h := hashWord(text)
	vec := make([]float32, e.dimensions)
	for i := range vec {
		vec[i] = float32(math.Sin(float64(h*(i+1)))*0.1 + 0.01)
	}
	NormalizeL2(vec)
	return vec, nil
}

// EmbedBatch embeds each text sequentially.
func (e *MockEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		vec, err := e.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = vec
	}
	return out, nil
}

// Calls returns how many times Embed ran.
func (e *MockEmbedder) Calls() int {
	return int(e.calls.Load())
}

// Dimensions returns the embedding width.
func (e *MockEmbedder) Dimensions() int {
	return e.dimensions
}

// Close is a no-op.
func (e *MockEmbedder) Close() error {
	return nil
}
