// Package retriever embeds records with an Embedder, builds the similarity
// index over them, and answers text queries against it.
package retriever

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync/atomic"

	"github.com/iishyfishyy/regsearch/internal/embedcache"
	"github.com/iishyfishyy/regsearch/internal/embeddings"
	"github.com/iishyfishyy/regsearch/internal/index"
	"github.com/iishyfishyy/regsearch/internal/records"
)

// DefaultBatchSize is the number of texts sent to EmbedBatch at once
const DefaultBatchSize = 64

// Cache stores embeddings between runs
type Cache interface {
	Get(ctx context.Context, id int64, textHash string) ([]float32, bool, error)
	Put(ctx context.Context, id int64, textHash string, vector []float32) error
}

// Result is a retrieved record with its squared L2 distance to the query
type Result struct {
	Record   records.Record
	Distance float32
}

// Options configure a Retriever
type Options struct {
	// Cache is optional; without it every record is embedded on each build
	Cache Cache

	// BatchSize bounds EmbedBatch calls; DefaultBatchSize when zero
	BatchSize int

	// Progress, if set, is called after each embedded batch
	Progress func(done, total int)

	// Debug enables [DEBUG] lines on DebugOut (stderr when nil)
	Debug    bool
	DebugOut io.Writer
}

// Retriever couples an embedding provider with a similarity index
type Retriever struct {
	embedder embeddings.Embedder
	opts     Options
	state    atomic.Pointer[catalog]
}

// catalog is the published result of one BuildIndex
type catalog struct {
	index *index.Index
	byID  map[int64]records.Record
}

// New creates a retriever that embeds with embedder
func New(embedder embeddings.Embedder, opts Options) *Retriever {
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	if opts.DebugOut == nil {
		opts.DebugOut = os.Stderr
	}
	return &Retriever{embedder: embedder, opts: opts}
}

func (r *Retriever) debugf(format string, args ...any) {
	if r.opts.Debug {
		fmt.Fprintf(r.opts.DebugOut, "[DEBUG] Retriever: "+format+"\n", args...)
	}
}

// BuildIndex embeds recs (reusing cached vectors where the text is unchanged)
// and replaces the current index with one over them. On failure the previous
// index stays in use.
func (r *Retriever) BuildIndex(ctx context.Context, recs []records.Record) error {
	if len(recs) == 0 {
		return index.ErrEmptyInput
	}

	if dups := records.DuplicateIDs(recs); len(dups) > 0 {
		r.debugf("duplicate record ids %v; results for them are ambiguous", dups)
	}

	vectors, err := r.embedRecords(ctx, recs)
	if err != nil {
		return err
	}

	idx := index.New()
	if err := idx.Build(vectors, records.IDs(recs)); err != nil {
		return fmt.Errorf("failed to build index: %w", err)
	}

	byID := make(map[int64]records.Record, len(recs))
	for _, rec := range recs {
		// first occurrence wins for duplicate ids
		if _, ok := byID[rec.ID]; !ok {
			byID[rec.ID] = rec
		}
	}

	r.state.Store(&catalog{index: idx, byID: byID})
	r.debugf("index built with %d entries (dim=%d, embedder=%s)", idx.Len(), idx.Dimension(), r.embedder.Name())
	return nil
}

// embedRecords returns one vector per record, in record order
func (r *Retriever) embedRecords(ctx context.Context, recs []records.Record) ([][]float32, error) {
	vectors := make([][]float32, len(recs))
	hashes := make([]string, len(recs))
	var missing []int

	for i, rec := range recs {
		hashes[i] = embedcache.HashText(rec.Text)
		if r.opts.Cache == nil {
			missing = append(missing, i)
			continue
		}
		vec, ok, err := r.opts.Cache.Get(ctx, rec.ID, hashes[i])
		if err != nil {
			r.debugf("cache read failed for record %d: %v", rec.ID, err)
		}
		if ok {
			vectors[i] = vec
		} else {
			missing = append(missing, i)
		}
	}

	r.debugf("%d cached, %d to embed", len(recs)-len(missing), len(missing))

	for start := 0; start < len(missing); start += r.opts.BatchSize {
		batch := missing[start:min(start+r.opts.BatchSize, len(missing))]

		texts := make([]string, len(batch))
		for j, i := range batch {
			texts[j] = recs[i].Text
		}

		embedded, err := r.embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return nil, fmt.Errorf("failed to embed records: %w", err)
		}
		if len(embedded) != len(batch) {
			return nil, fmt.Errorf("embedder returned %d vectors for %d texts", len(embedded), len(batch))
		}

		for j, i := range batch {
			vectors[i] = embedded[j]
			if r.opts.Cache != nil {
				if err := r.opts.Cache.Put(ctx, recs[i].ID, hashes[i], embedded[j]); err != nil {
					r.debugf("cache write failed for record %d: %v", recs[i].ID, err)
				}
			}
		}

		if r.opts.Progress != nil {
			r.opts.Progress(start+len(batch), len(missing))
		}
	}

	return vectors, nil
}

// Retrieve embeds query and returns the topK closest records, ascending by
// distance. It fails with index.ErrIndexNotBuilt before any BuildIndex.
func (r *Retriever) Retrieve(ctx context.Context, query string, topK int) ([]Result, error) {
	cat := r.state.Load()
	if cat == nil {
		return nil, index.ErrIndexNotBuilt
	}

	queryEmbed, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	hits, err := cat.index.Search(queryEmbed, topK)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}

	results := make([]Result, 0, len(hits))
	for _, hit := range hits {
		results = append(results, Result{Record: cat.byID[hit.ID], Distance: hit.Distance})
	}

	r.debugf("query %q matched %d records", query, len(results))
	return results, nil
}

// Count returns the number of indexed records
func (r *Retriever) Count() int {
	if cat := r.state.Load(); cat != nil {
		return cat.index.Len()
	}
	return 0
}

// Lookup returns the record indexed under id
func (r *Retriever) Lookup(id int64) (records.Record, bool) {
	cat := r.state.Load()
	if cat == nil {
		return records.Record{}, false
	}
	rec, ok := cat.byID[id]
	return rec, ok
}
