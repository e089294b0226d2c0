package processing

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Dispatcher routes engine requests to the registered handler.
type Dispatcher interface {
	Process(ctx context.Context, req ProcessRequest) (*ProcessResponse, error)
	Evaluate(ctx context.Context, req CriterionRequest) (*CriterionResponse, error)
	Processors() []string
	Criteria() []string
}

var _ Dispatcher = (*Registry)(nil)

// Registry keeps processors and criteria keyed by name.
type Registry struct {
	mu         sync.RWMutex
	processors map[string]Handler
	criteria   map[string]Evaluator
}

func NewRegistry() *Registry {
	return &Registry{
		processors: map[string]Handler{},
		criteria:   map[string]Evaluator{},
	}
}

// RegisterProcessor adds a handler. Names are unique across processors.
func (r *Registry) RegisterProcessor(h Handler) error {
	if h == nil || h.Name() == "" {
		return fmt.Errorf("processor must have a name")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.processors[h.Name()]; exists {
		return fmt.Errorf("%w: processor %q", ErrDuplicateHandler, h.Name())
	}
	r.processors[h.Name()] = h
	return nil
}

// RegisterCriterion adds an evaluator. Names are unique across criteria.
func (r *Registry) RegisterCriterion(e Evaluator) error {
	if e == nil || e.Name() == "" {
		return fmt.Errorf("criterion must have a name")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.criteria[e.Name()]; exists {
		return fmt.Errorf("%w: criterion %q", ErrDuplicateHandler, e.Name())
	}
	r.criteria[e.Name()] = e
	return nil
}

// Process runs the processor named by the request.
func (r *Registry) Process(ctx context.Context, req ProcessRequest) (*ProcessResponse, error) {
	r.mu.RLock()
	h, ok := r.processors[req.ProcessorName]
	r.mu.RUnlock()
	if !ok || !h.Supports(req.ProcessorName) {
		return nil, fmt.Errorf("%w: processor %q", ErrUnknownHandler, req.ProcessorName)
	}
	return h.Handle(ctx, req)
}

// Evaluate runs the criterion named by the request.
func (r *Registry) Evaluate(ctx context.Context, req CriterionRequest) (*CriterionResponse, error) {
	r.mu.RLock()
	e, ok := r.criteria[req.CriterionName]
	r.mu.RUnlock()
	if !ok || !e.Supports(req.CriterionName) {
		return nil, fmt.Errorf("%w: criterion %q", ErrUnknownHandler, req.CriterionName)
	}
	return e.Evaluate(ctx, req)
}

// Processors lists registered processor names, sorted.
func (r *Registry) Processors() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return sortedKeys(r.processors)
}

// Criteria lists registered criterion names, sorted.
func (r *Registry) Criteria() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return sortedKeys(r.criteria)
}

func sortedKeys[V any](m map[string]V) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
