package collector

import (
	"sync"
	"time"

	"github.com/newthinker/nseetl/internal/core"
)

// Report describes a date-keyed archive report
type Report struct {
	Kind   core.ReportKind
	Folder string                 // storage-relative destination
	URL    func(time.Time) string // archive URL for a trading date
}

// Registry holds the reports downloaded for every trading date
type Registry struct {
	mu      sync.RWMutex
	order   []core.ReportKind
	reports map[core.ReportKind]Report
}

// NewRegistry creates a new report registry
func NewRegistry() *Registry {
	return &Registry{
		reports: make(map[core.ReportKind]Report),
	}
}

// Register adds a report; re-registering a kind replaces it in place
func (r *Registry) Register(rep Report) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.reports[rep.Kind]; !ok {
		r.order = append(r.order, rep.Kind)
	}
	r.reports[rep.Kind] = rep
}

// Get retrieves a report by kind
func (r *Registry) Get(kind core.ReportKind) (Report, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rep, ok := r.reports[kind]
	return rep, ok
}

// GetAll returns all reports in registration order
func (r *Registry) GetAll() []Report {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Report, 0, len(r.order))
	for _, kind := range r.order {
		result = append(result, r.reports[kind])
	}
	return result
}
