package store

import (
	"context"
	"sync"

	"golang.org/x/sync/semaphore"

	"github.com/gridframe/gridframe/pkg/types"
)

// FrameFetcher loads multiple frames from a store in parallel. Aggregation
// jobs typically pull every contributing frame for a window at once, so the
// downloads are fanned out under a concurrency cap.
type FrameFetcher struct {
	store       *FrameStore
	concurrency int
}

// FetchResult maps frame IDs to their loaded tables, with per-frame errors
// kept separate so one bad frame does not sink the batch.
type FetchResult struct {
	Tables map[string]*types.Table
	Errors map[string]error
}

// OK reports whether every requested frame loaded.
func (r *FetchResult) OK() bool { return len(r.Errors) == 0 }

// NewFrameFetcher creates a fetcher with the given concurrency cap.
func NewFrameFetcher(store *FrameStore, concurrency int) *FrameFetcher {
	if concurrency < 1 {
		concurrency = 4
	}
	return &FrameFetcher{store: store, concurrency: concurrency}
}

// FetchAll loads the named frames under one template. Tables come back raw,
// in the same untrusted state as a single Load; callers validate each one
// through a container before aggregating.
func (f *FrameFetcher) FetchAll(ctx context.Context, templateName string, frameIDs []string) (*FetchResult, error) {
	result := &FetchResult{
		Tables: make(map[string]*types.Table, len(frameIDs)),
		Errors: make(map[string]error),
	}
	if len(frameIDs) == 0 {
		return result, nil
	}

	// Resolve the template once up front; a missing template fails the
	// whole batch rather than repeating per frame.
	if _, err := f.store.catalog.GetTemplate(ctx, templateName); err != nil {
		return nil, err
	}

	sem := semaphore.NewWeighted(int64(f.concurrency))
	var wg sync.WaitGroup
	var mu sync.Mutex

	for _, frameID := range frameIDs {
		if err := sem.Acquire(ctx, 1); err != nil {
			mu.Lock()
			result.Errors[frameID] = err
			mu.Unlock()
			continue
		}

		wg.Add(1)
		go func(frameID string) {
			defer sem.Release(1)
			defer wg.Done()

			table, err := f.store.Load(ctx, templateName, frameID)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				result.Errors[frameID] = err
				return
			}
			result.Tables[frameID] = table
		}(frameID)
	}

	wg.Wait()
	return result, nil
}

// FetchOrdered is FetchAll with the tables returned in the order requested,
// failing on the first frame that did not load. Aggregation needs a stable
// input order for reproducible error reporting.
func (f *FrameFetcher) FetchOrdered(ctx context.Context, templateName string, frameIDs []string) ([]*types.Table, error) {
	result, err := f.FetchAll(ctx, templateName, frameIDs)
	if err != nil {
		return nil, err
	}

	tables := make([]*types.Table, 0, len(frameIDs))
	for _, frameID := range frameIDs {
		if err, ok := result.Errors[frameID]; ok {
			return nil, err
		}
		tables = append(tables, result.Tables[frameID])
	}
	return tables, nil
}
