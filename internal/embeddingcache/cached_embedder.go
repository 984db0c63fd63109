package embeddingcache

import (
	"context"

	"github.com/custodia-labs/docquiz-core/internal/core/domain"
	"github.com/custodia-labs/docquiz-core/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.EmbeddingService = (*CachedEmbedder)(nil)

// CachedEmbedder wraps an EmbeddingService with the fingerprint cache:
// texts whose normalized form has been embedded before skip the provider
// call. Results preserve input order.
type CachedEmbedder struct {
	inner driven.EmbeddingService
	cache *Cache
}

// NewCachedEmbedder wraps an embedding service with a cache
func NewCachedEmbedder(inner driven.EmbeddingService, cache *Cache) *CachedEmbedder {
	return &CachedEmbedder{inner: inner, cache: cache}
}

// Embed returns embeddings for all texts, consulting the cache first and
// only sending misses to the underlying provider.
func (e *CachedEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	out := make([][]float32, len(texts))
	var missTexts []string
	var missIdx []int
	fingerprints := make([]string, len(texts))

	for i, text := range texts {
		fp := domain.Fingerprint(text)
		fingerprints[i] = fp
		if vec, ok := e.cache.Get(fp); ok {
			out[i] = vec
			continue
		}
		missTexts = append(missTexts, text)
		missIdx = append(missIdx, i)
	}

	if len(missTexts) > 0 {
		vectors, err := e.inner.Embed(ctx, missTexts)
		if err != nil {
			return nil, err
		}
		for j, i := range missIdx {
			out[i] = vectors[j]
			e.cache.Put(fingerprints[i], vectors[j])
		}
	}

	return out, nil
}

// Dimensions returns the underlying embedding dimension size
func (e *CachedEmbedder) Dimensions() int { return e.inner.Dimensions() }

// Model returns the underlying model name
func (e *CachedEmbedder) Model() string { return e.inner.Model() }

// HealthCheck verifies the underlying service is available
func (e *CachedEmbedder) HealthCheck(ctx context.Context) error {
	return e.inner.HealthCheck(ctx)
}

// Close releases the underlying service's resources
func (e *CachedEmbedder) Close() error { return e.inner.Close() }
