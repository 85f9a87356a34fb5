package embedding

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"testing"
)

func TestMockEmbedderDeterministic(t *testing.T) {
	e := NewMockEmbedder(8)
	a, err := e.Embed(context.Background(), "Wetter")
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	b, err := e.Embed(context.Background(), "Wetter")
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("same text produced different vectors at %d", i)
		}
	}
	if len(a) != 8 {
		t.Errorf("got %d dims, want 8", len(a))
	}
	if e.Calls() != 2 {
		t.Errorf("Calls = %d, want 2", e.Calls())
	}
}

func TestMockEmbedderFixed(t *testing.T) {
	e := NewMockEmbedder(3)
	e.Fixed = map[string][]float32{"Haus": {1, 0, 0}}
	vec, err := e.Embed(context.Background(), "Haus")
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if vec[0] != 1 || vec[1] != 0 || vec[2] != 0 {
		t.Errorf("got %v, want the pinned vector", vec)
	}
}

func TestNormalizeL2(t *testing.T) {
	v := []float32{3, 4}
	NormalizeL2(v)
	norm := math.Sqrt(float64(v[0]*v[0] + v[1]*v[1]))
	if math.Abs(norm-1) > 1e-6 {
		t.Errorf("norm = %v, want 1", norm)
	}

	zero := []float32{0, 0}
	NormalizeL2(zero)
	if zero[0] != 0 || zero[1] != 0 {
		t.Error("zero vector must be left unchanged")
	}
}

func TestProviderConstructsOnce(t *testing.T) {
	var built int
	p := NewProvider(func() (Embedder, error) {
		built++
		return NewMockEmbedder(4), nil
	})

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := p.Get(); err != nil {
				t.Errorf("Get: %v", err)
			}
		}()
	}
	wg.Wait()

	if built != 1 {
		t.Errorf("factory ran %d times, want 1", built)
	}
	if p.Loads() != 1 {
		t.Errorf("Loads = %d, want 1", p.Loads())
	}

	a, _ := p.Get()
	b, _ := p.Get()
	if a != b {
		t.Error("Get must return the same instance")
	}
}

func TestProviderMemoizesError(t *testing.T) {
	wantErr := errors.New("no model")
	var built int
	p := NewProvider(func() (Embedder, error) {
		built++
		return nil, wantErr
	})
	for i := 0; i < 3; i++ {
		if _, err := p.Get(); !errors.Is(err, wantErr) {
			t.Fatalf("Get %d: %v", i, err)
		}
	}
	if built != 1 {
		t.Errorf("factory ran %d times after failure, want 1", built)
	}
}

func TestCacheLRUEviction(t *testing.T) {
	c := NewCache(2)
	c.Set("a", []float32{1})
	c.Set("b", []float32{2})

	// Touch "a" so "b" becomes the eviction candidate.
	if _, ok := c.Get("a"); !ok {
		t.Fatal("a should be cached")
	}
	c.Set("c", []float32{3})

	if _, ok := c.Get("b"); ok {
		t.Error("b should have been evicted")
	}
	if _, ok := c.Get("a"); !ok {
		t.Error("a should have survived")
	}
	if _, ok := c.Get("c"); !ok {
		t.Error("c should be cached")
	}
	if c.Len() != 2 {
		t.Errorf("Len = %d, want 2", c.Len())
	}
}

func TestCacheOverwrite(t *testing.T) {
	c := NewCache(2)
	c.Set("a", []float32{1})
	c.Set("a", []float32{9})
	vec, ok := c.Get("a")
	if !ok || vec[0] != 9 {
		t.Errorf("got %v, want overwritten value", vec)
	}
	if c.Len() != 1 {
		t.Errorf("Len = %d, want 1", c.Len())
	}
}

func TestWordTokenizerShape(t *testing.T) {
	tok := &WordTokenizer{}
	ids, mask, types := tok.Tokenize("Das Wetter ist schön", 16)
	if len(ids) != 16 || len(mask) != 16 || len(types) != 16 {
		t.Fatalf("lengths = %d/%d/%d, want 16 each", len(ids), len(mask), len(types))
	}
	if ids[0] != clsTokenID {
		t.Errorf("ids[0] = %d, want CLS", ids[0])
	}
	if ids[5] != sepTokenID {
		t.Errorf("ids[5] = %d, want SEP after 4 words", ids[5])
	}
	var attended int
	for _, m := range mask {
		if m == 1 {
			attended++
		}
	}
	if attended != 6 {
		t.Errorf("attended = %d, want CLS + 4 words + SEP", attended)
	}
}

func TestWordTokenizerStable(t *testing.T) {
	tok := &WordTokenizer{}
	a, _, _ := tok.Tokenize("Guten Morgen", 8)
	b, _, _ := tok.Tokenize("guten   morgen", 8)
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("case/whitespace variants tokenized differently at %d", i)
		}
	}
}

func TestWordTokenizerTruncates(t *testing.T) {
	tok := &WordTokenizer{}
	long := ""
	for i := 0; i < 50; i++ {
		long += fmt.Sprintf("wort%d ", i)
	}
	ids, mask, _ := tok.Tokenize(long, 8)
	if len(ids) != 8 {
		t.Fatalf("len = %d, want 8", len(ids))
	}
	for _, m := range mask {
		if m != 1 {
			t.Error("every slot should be attended when input overflows")
			break
		}
	}
}
