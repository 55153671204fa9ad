package translate

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/video-stream/subbot/internal/subtitle/srt"
)

// DefaultProgressEvery is how many processed entries separate two progress reports.
const DefaultProgressEvery = 10

// ProgressFunc receives (entries processed so far, total entries).
type ProgressFunc func(done, total int)

// Stats summarizes a pipeline run.
type Stats struct {
	Total      int `json:"total"`
	Translated int `json:"translated"`
	Fallback   int `json:"fallback"`
}

// Pipeline translates a document entry by entry. A failed entry keeps its
// original text; the output always has the input's length and order.
type Pipeline struct {
	translator Translator
	workers    int
	every      int
}

// PipelineOption customizes a Pipeline.
type PipelineOption func(*Pipeline)

// WithWorkers sets how many entries may be in flight at once. The default of
// one keeps calls strictly sequential; with more, progress counts completions.
func WithWorkers(n int) PipelineOption {
	return func(p *Pipeline) {
		if n > 0 {
			p.workers = n
		}
	}
}

// WithProgressEvery changes the progress reporting interval.
func WithProgressEvery(n int) PipelineOption {
	return func(p *Pipeline) {
		if n > 0 {
			p.every = n
		}
	}
}

func NewPipeline(t Translator, opts ...PipelineOption) *Pipeline {
	p := &Pipeline{translator: t, workers: 1, every: DefaultProgressEvery}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run translates doc with credential. Translation failures never fail the
// run; the only error is ctx's, checked between entries, in which case no
// document is returned.
func (p *Pipeline) Run(ctx context.Context, doc srt.Document, credential string, progress ProgressFunc) (srt.Document, Stats, error) {
	stats := Stats{Total: len(doc)}
	out := make(srt.Document, len(doc))
	if len(doc) == 0 {
		return out, stats, nil
	}
	if progress == nil {
		progress = func(int, int) {}
	}

	if p.workers <= 1 {
		for i, entry := range doc {
			if err := ctx.Err(); err != nil {
				return nil, stats, err
			}
			var ok bool
			out[i], ok = p.translateEntry(ctx, entry, credential)
			stats.record(ok)
			if (i+1)%p.every == 0 {
				progress(i+1, len(doc))
			}
		}
		return out, stats, nil
	}

	var mu sync.Mutex
	done := 0
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers)
	for i, entry := range doc {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			result, ok := p.translateEntry(gctx, entry, credential)
			out[i] = result

			mu.Lock()
			defer mu.Unlock()
			stats.record(ok)
			done++
			if done%p.every == 0 {
				progress(done, len(doc))
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, stats, err
	}
	if err := ctx.Err(); err != nil {
		return nil, stats, err
	}
	return out, stats, nil
}

func (s *Stats) record(translated bool) {
	if translated {
		s.Translated++
	} else {
		s.Fallback++
	}
}

// translateEntry returns the entry with translated text, or the entry
// unchanged and false when the translator failed.
func (p *Pipeline) translateEntry(ctx context.Context, entry srt.Entry, credential string) (srt.Entry, bool) {
	text, err := p.call(ctx, strings.TrimSpace(entry.Text), credential)
	if err == nil {
		text = strings.TrimSpace(text)
		if text == "" {
			err = failure(p.translator.Name(), 0, ErrEmptyTranslation)
		}
	}
	if err != nil {
		log.Printf("[translate] entry %d: keeping original text: %v", entry.Index, err)
		return entry, false
	}
	entry.Text = text
	return entry, true
}

func (p *Pipeline) call(ctx context.Context, text, credential string) (out string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = failure(p.translator.Name(), 0, fmt.Errorf("panic: %v", r))
		}
	}()
	return p.translator.Translate(ctx, text, credential)
}
