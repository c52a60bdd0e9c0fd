// Package upload pushes local files into the object store one at a time.
// Per-file progress follows a three-phase curve approximating upload
// backpressure: fast variable increments to 80, a decelerating climb to 95,
// then a slow crawl to exactly 100. The curve is monotonic and every timer
// it arms is released on all exit paths, including cancellation.
package upload

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/azamatb/objbrowse/internal/catalog"
)

type uploader interface {
	UploadObject(ctx context.Context, bucket, key, contentType string, data []byte) (catalog.StoredItem, error)
}

type catalogMutator interface {
	ApplyMutation(kind catalog.MutationKind, items []catalog.StoredItem)
}

// LocalFile is a file picked or dropped by the user.
type LocalFile struct {
	Name        string
	ContentType string
	Data        []byte
}

// State is the externally visible pipeline position.
type State struct {
	Queue           []string `json:"queue"`
	CurrentIndex    int      `json:"current_index"`
	PerFileProgress int      `json:"per_file_progress"`
	Active          bool     `json:"active"`
}

// Summary aggregates the result of uploading a queue. One file failing does
// not halt the remaining queue, so Succeeded can be less than Total with no
// overall error.
type Summary struct {
	Total     int                  `json:"total"`
	Succeeded int                  `json:"succeeded"`
	Failed    int                  `json:"failed"`
	Items     []catalog.StoredItem `json:"items"`
	Errors    []string             `json:"errors,omitempty"`
}

// Pipeline uploads queued files sequentially and appends the resulting
// items to the catalog snapshot.
type Pipeline struct {
	store     uploader
	catalog   catalogMutator
	stepDelay time.Duration
	pause     time.Duration

	mu         sync.Mutex
	state      State
	rng        *rand.Rand
	onProgress func(index, percent int)
}

// NewPipeline builds an upload pipeline. stepDelay spaces the simulated
// progress increments, pause is the gap between files; both may be zero.
func NewPipeline(store uploader, cat catalogMutator, stepDelay, pause time.Duration) *Pipeline {
	return &Pipeline{
		store:     store,
		catalog:   cat,
		stepDelay: stepDelay,
		pause:     pause,
		rng:       rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// OnProgress installs an observer invoked for every per-file progress
// change. Must be set before UploadAll.
func (p *Pipeline) OnProgress(fn func(index, percent int)) {
	p.mu.Lock()
	p.onProgress = fn
	p.mu.Unlock()
}

// State returns the current pipeline snapshot.
func (p *Pipeline) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	st := p.state
	st.Queue = append([]string(nil), p.state.Queue...)
	return st
}

// Reset clears the pipeline state after completion or dialog close.
func (p *Pipeline) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.state = State{}
}

// UploadAll enqueues the files and uploads them strictly in order. File i+1
// produces no progress until file i reached 100 or failed. Cancellation
// stops the queue without surfacing an error state; the context error is
// returned so callers can tell cancellation from completion.
func (p *Pipeline) UploadAll(ctx context.Context, bucket, prefix string, files []LocalFile) (Summary, error) {
	summary := Summary{Total: len(files)}
	if len(files) == 0 {
		return summary, nil
	}

	names := make([]string, len(files))
	for i, f := range files {
		names[i] = f.Name
	}
	p.setState(State{Queue: names, Active: true})
	defer p.Reset()

	for i, file := range files {
		if i > 0 {
			if err := p.wait(ctx, p.pause); err != nil {
				return summary, err
			}
		}
		p.setProgress(i, 0)

		item, err := p.uploadOne(ctx, bucket, prefix, i, file)
		if err != nil {
			if ctx.Err() != nil {
				return summary, ctx.Err()
			}
			summary.Failed++
			summary.Errors = append(summary.Errors, fmt.Sprintf("%s: %v", file.Name, err))
			continue
		}

		summary.Succeeded++
		summary.Items = append(summary.Items, item)
		if p.catalog != nil {
			p.catalog.ApplyMutation(catalog.MutationAdd, []catalog.StoredItem{item})
		}
	}
	return summary, nil
}

// uploadOne drives a single file through the three progress phases. The
// actual store write happens at the 95 mark; only a successful write crawls
// to 100.
func (p *Pipeline) uploadOne(ctx context.Context, bucket, prefix string, index int, file LocalFile) (catalog.StoredItem, error) {
	pct := 0

	// fast phase: variable increments up to 80
	for pct < 80 {
		pct += 12 + p.step(14)
		if pct > 80 {
			pct = 80
		}
		p.setProgress(index, pct)
		if err := p.wait(ctx, p.stepDelay); err != nil {
			return catalog.StoredItem{}, err
		}
	}

	// decelerating phase up to 95
	for pct < 95 {
		pct += 5
		if pct > 95 {
			pct = 95
		}
		p.setProgress(index, pct)
		if err := p.wait(ctx, p.stepDelay); err != nil {
			return catalog.StoredItem{}, err
		}
	}

	key := prefix + file.Name
	item, err := p.store.UploadObject(ctx, bucket, key, file.ContentType, file.Data)
	if err != nil {
		return catalog.StoredItem{}, err
	}

	// final crawl to exactly 100
	for pct < 100 {
		pct++
		p.setProgress(index, pct)
		if err := p.wait(ctx, p.stepDelay); err != nil {
			return catalog.StoredItem{}, err
		}
	}
	return item, nil
}

func (p *Pipeline) step(n int) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.rng.Intn(n)
}

func (p *Pipeline) setState(st State) {
	p.mu.Lock()
	p.state = st
	p.mu.Unlock()
}

func (p *Pipeline) setProgress(index, pct int) {
	p.mu.Lock()
	p.state.CurrentIndex = index
	p.state.PerFileProgress = pct
	observer := p.onProgress
	p.mu.Unlock()

	if observer != nil {
		observer(index, pct)
	}
}

// wait sleeps for d unless the context ends first. The timer is always
// stopped before returning.
func (p *Pipeline) wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
