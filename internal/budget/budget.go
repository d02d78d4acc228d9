// Package budget tracks actual audit hours against the plan's allocations
// per control domain and produces the variance report the manager reviews.
package budget

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/fieldwork-ai/fieldwork/internal/domain/audit"
)

var (
	ErrNegativeHours = errors.New("hours must not be negative")
	ErrUnknownDomain = errors.New("control domain not in the budget")
)

// Tracker accumulates actual hours per control domain. Safe for concurrent
// use by all agents on the engagement.
type Tracker struct {
	mu       sync.Mutex
	budgeted map[string]float64
	actual   map[string]float64
	order    []string
}

// NewTracker builds an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{
		budgeted: make(map[string]float64),
		actual:   make(map[string]float64),
	}
}

// FromPlan seeds a tracker with the plan's per-domain allocation.
func FromPlan(allocation audit.BudgetAllocation) (*Tracker, error) {
	t := NewTracker()
	domains := make([]string, 0, len(allocation.ByDomain))
	for domain := range allocation.ByDomain {
		domains = append(domains, domain)
	}
	sort.Strings(domains)
	for _, domain := range domains {
		if err := t.Allocate(domain, allocation.ByDomain[domain]); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// Allocate sets the budgeted hours for a domain. Re-allocating replaces
// the previous figure.
func (t *Tracker) Allocate(domain string, hours float64) error {
	if hours < 0 {
		return fmt.Errorf("%w: %s %.1f", ErrNegativeHours, domain, hours)
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, exists := t.budgeted[domain]; !exists {
		t.order = append(t.order, domain)
	}
	t.budgeted[domain] = hours
	return nil
}

// Record adds actual hours worked on a domain.
func (t *Tracker) Record(domain string, hours float64) error {
	if hours < 0 {
		return fmt.Errorf("%w: %s %.1f", ErrNegativeHours, domain, hours)
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, exists := t.budgeted[domain]; !exists {
		return fmt.Errorf("%w: %s", ErrUnknownDomain, domain)
	}
	t.actual[domain] += hours
	return nil
}

// Line is one row of the variance report. Variance is actual minus
// budgeted, so overruns are positive.
type Line struct {
	ControlDomain string  `json:"control_domain"`
	BudgetedHours float64 `json:"budgeted_hours"`
	ActualHours   float64 `json:"actual_hours"`
	Variance      float64 `json:"variance"`
	PercentUsed   float64 `json:"percent_used"`
}

// Report is the engagement-level budget summary.
type Report struct {
	Lines         []Line  `json:"lines"`
	TotalBudgeted float64 `json:"total_budgeted"`
	TotalActual   float64 `json:"total_actual"`
	TotalVariance float64 `json:"total_variance"`
}

// Variance returns actual minus budgeted hours for one domain.
func (t *Tracker) Variance(domain string) (float64, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	b, exists := t.budgeted[domain]
	if !exists {
		return 0, fmt.Errorf("%w: %s", ErrUnknownDomain, domain)
	}
	return t.actual[domain] - b, nil
}

// Report renders all domains in allocation order.
func (t *Tracker) Report() Report {
	t.mu.Lock()
	defer t.mu.Unlock()

	var r Report
	for _, domain := range t.order {
		b := t.budgeted[domain]
		a := t.actual[domain]
		line := Line{
			ControlDomain: domain,
			BudgetedHours: b,
			ActualHours:   a,
			Variance:      a - b,
		}
		if b > 0 {
			line.PercentUsed = a / b * 100
		}
		r.Lines = append(r.Lines, line)
		r.TotalBudgeted += b
		r.TotalActual += a
	}
	r.TotalVariance = r.TotalActual - r.TotalBudgeted
	return r
}
