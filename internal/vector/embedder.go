package vector

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
	"unicode"
)

// Embedder turns text into fixed-width embeddings. Implementations must be
// safe for concurrent use.
type Embedder interface {
	// Embed returns one embedding per input text, in order.
	Embed(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the embedding width this embedder produces.
	Dimensions() int

	// Name identifies the embedder in logs and stats.
	Name() string
}

// HashingEmbedder is a deterministic local embedder: term frequencies are
// feature-hashed into a fixed number of buckets and L2-normalized. Quality
// is far below a real model but it needs no network, keeps dimensions stable
// across incremental updates, and makes tests hermetic.
type HashingEmbedder struct {
	dims int
}

// NewHashingEmbedder creates a hashing embedder with the given width.
func NewHashingEmbedder(dims int) *HashingEmbedder {
	if dims <= 0 {
		dims = 256
	}
	return &HashingEmbedder{dims: dims}
}

// Embed implements Embedder.
func (h *HashingEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		out[i] = h.embedOne(text)
	}
	return out, nil
}

// Dimensions implements Embedder.
func (h *HashingEmbedder) Dimensions() int {
	return h.dims
}

// Name implements Embedder.
func (h *HashingEmbedder) Name() string {
	return "hashing-tf"
}

func (h *HashingEmbedder) embedOne(text string) []float32 {
	counts := make(map[uint32]int)
	for _, tok := range tokenize(text) {
		hasher := fnv.New32a()
		_, _ = hasher.Write([]byte(tok))
		counts[hasher.Sum32()%uint32(h.dims)]++
	}

	vec := make([]float32, h.dims)
	for bucket, n := range counts {
		vec[bucket] = float32(1 + math.Log(float64(n)))
	}
	return Normalize(vec)
}

// tokenize lowercases and splits on anything that is not a letter or digit.
func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
