// Package analyst hosts the independent signal producers and the registry
// the backtest engine iterates. Each producer implements a single capability:
// evaluate one ticker against a bounded data window and return a signal.
package analyst

import (
	"context"
	"sort"

	"hedgefund-go/internal/marketdata"
	"hedgefund-go/internal/signal"
)

// Analyst is one independent signal producer. Evaluate must treat the window
// as read-only and should return signal.NoOpinion (not an error) when it
// simply has nothing to say; errors are reserved for failed evaluations.
type Analyst interface {
	// Name returns the unique identifier for this analyst.
	Name() string

	// Evaluate produces this analyst's signal for ticker as of the window's day.
	Evaluate(ctx context.Context, ticker string, win *marketdata.Window) (signal.Signal, error)
}

// Registry holds a named collection of analysts.
type Registry struct {
	analysts map[string]Analyst
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{analysts: make(map[string]Analyst)}
}

// Register adds an analyst, keyed by its Name().
func (r *Registry) Register(a Analyst) {
	r.analysts[a.Name()] = a
}

// Get retrieves an analyst by name.
func (r *Registry) Get(name string) (Analyst, bool) {
	a, ok := r.analysts[name]
	return a, ok
}

// List returns all registered analyst names, sorted.
func (r *Registry) List() []string {
	names := make([]string, 0, len(r.analysts))
	for name := range r.analysts {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// All returns the registered analysts in name order.
func (r *Registry) All() []Analyst {
	out := make([]Analyst, 0, len(r.analysts))
	for _, name := range r.List() {
		out = append(out, r.analysts[name])
	}
	return out
}
