package embedding

import (
	"sync"
	"sync/atomic"
)

// Provider constructs an Embedder on first use and hands out that same
// instance for the lifetime of the process. The model load is expensive
// (reading the ONNX graph into memory), so it must happen at most once even
// under concurrent first calls; sync.Once guarantees that without a lock on
// the hot path.
type Provider struct {
	factory  func() (Embedder, error)
	once     sync.Once
	embedder Embedder
	err      error
	loads    atomic.Int32
}

// NewProvider returns a provider that lazily constructs an embedder via factory.
func NewProvider(factory func() (Embedder, error)) *Provider {
	return &Provider{factory: factory}
}

// Get returns the shared embedder, constructing it on the first call.
// A failed construction is remembered; subsequent calls return the same error.
func (p *Provider) Get() (Embedder, error) {
	p.once.Do(func() {
		p.loads.Add(1)
		p.embedder, p.err = p.factory()
	})
	return p.embedder, p.err
}

// Loads returns how many times the factory has run. Anything other than
// zero or one indicates a bug.
func (p *Provider) Loads() int {
	return int(p.loads.Load())
}

// Close closes the embedder if it was ever constructed.
func (p *Provider) Close() error {
	if p.embedder != nil {
		return p.embedder.Close()
	}
	return nil
}
