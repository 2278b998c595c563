package embeddings

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"strings"
	"unicode"
)

// DefaultHashDimensions is used when NewHashEmbedder is given a non-positive size
const DefaultHashDimensions = 384

// HashEmbedder is a deterministic, offline embedder based on feature hashing.
// Each token is hashed into one of dims buckets with a sign taken from the
// hash, and the resulting vector is L2-normalized. Texts sharing vocabulary
// land close together; no model or network is needed.
type HashEmbedder struct {
	dims int
}

// NewHashEmbedder creates a hashing embedder with the given vector size
func NewHashEmbedder(dims int) *HashEmbedder {
	if dims <= 0 {
		dims = DefaultHashDimensions
	}
	return &HashEmbedder{dims: dims}
}

// Embed hashes the tokens of text into a normalized vector
func (h *HashEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	vec := make([]float32, h.dims)
	for _, token := range tokenize(text) {
		hasher := fnv.New64a()
		hasher.Write([]byte(token))
		sum := hasher.Sum64()

		bucket := int(sum % uint64(h.dims))
		if sum>>63 == 1 {
			vec[bucket]--
		} else {
			vec[bucket]++
		}
	}

	normalize(vec)
	return vec, nil
}

// EmbedBatch embeds each text in order
func (h *HashEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	embeddings := make([][]float32, len(texts))
	for i, text := range texts {
		emb, err := h.Embed(ctx, text)
		if err != nil {
			return nil, fmt.Errorf("failed to embed text %d: %w", i, err)
		}
		embeddings[i] = emb
	}
	return embeddings, nil
}

// Dimensions returns the embedding dimension size
func (h *HashEmbedder) Dimensions() int {
	return h.dims
}

// Name returns the embedder name
func (h *HashEmbedder) Name() string {
	return fmt.Sprintf("hash/%d", h.dims)
}

// normalize scales v to unit length in place; the zero vector is left alone
func normalize(v []float32) {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return
	}
	inv := float32(1 / math.Sqrt(sum))
	for i := range v {
		v[i] *= inv
	}
}

// stopWords are dropped before hashing
var stopWords = map[string]bool{
	"a": true, "an": true, "and": true, "the": true, "in": true,
	"on": true, "at": true, "to": true, "for": true, "of": true,
	"with": true, "by": true, "from": true, "as": true, "is": true,
	"was": true, "are": true, "were": true, "be": true, "been": true,
	"or": true, "this": true, "that": true, "it": true, "its": true,
}

// tokenize splits text into lowercase words, filtering out stop words and
// single characters
func tokenize(text string) []string {
	var words []string
	var currentWord strings.Builder

	flush := func() {
		if currentWord.Len() == 0 {
			return
		}
		word := currentWord.String()
		if !stopWords[word] && len(word) > 1 {
			words = append(words, word)
		}
		currentWord.Reset()
	}

	for _, r := range text {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' || r == '_' {
			currentWord.WriteRune(unicode.ToLower(r))
		} else {
			flush()
		}
	}
	flush()

	return words
}
