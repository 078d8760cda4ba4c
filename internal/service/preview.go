package service

import (
	"context"
	"sync"
)

// Preview caches the latest pipeline result for read-heavy consumers.
// The HTTP and MCP servers share one Preview so a burst of requests
// costs a single introspection round.
type Preview struct {
	pipeline *Pipeline

	mu     sync.RWMutex
	result *Result
}

// NewPreview wraps a pipeline in a result cache.
func NewPreview(pipeline *Pipeline) *Preview {
	return &Preview{pipeline: pipeline}
}

// Current returns the cached result, running the pipeline on first use.
func (p *Preview) Current(ctx context.Context) (*Result, error) {
	p.mu.RLock()
	result := p.result
	p.mu.RUnlock()
	if result != nil {
		return result, nil
	}
	return p.Refresh(ctx)
}

// Refresh re-runs the pipeline and replaces the cache. The previous
// result stays visible until the new run succeeds; a failed run leaves
// the cache untouched.
func (p *Preview) Refresh(ctx context.Context) (*Result, error) {
	result, err := p.pipeline.Run(ctx)
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	p.result = result
	p.mu.Unlock()
	return result, nil
}
