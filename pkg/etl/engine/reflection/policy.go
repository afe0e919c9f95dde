// Package reflection provides the shared quality-assessment policy used by
// workers when scoring an action's outcome.
package reflection

import (
	model "github.com/tigerroll/undertow/pkg/etl/core/domain/model"
)

const (
	// DefaultSuccessThreshold is the minimum success rate for an action to be
	// declared successful.
	DefaultSuccessThreshold = 0.95
	// DefaultRetryThreshold is the success rate below which a failed action is
	// worth retrying. Outcomes between the two thresholds fail without retry:
	// they are close enough that another attempt is unlikely to improve them.
	DefaultRetryThreshold = 0.8
)

// Policy decides success and retry from an action's record counters.
type Policy struct {
	SuccessThreshold float64
	RetryThreshold   float64
}

// NewPolicy creates a policy, substituting defaults for zero thresholds.
func NewPolicy(successThreshold, retryThreshold float64) Policy {
	if successThreshold <= 0 {
		successThreshold = DefaultSuccessThreshold
	}
	if retryThreshold <= 0 {
		retryThreshold = DefaultRetryThreshold
	}
	return Policy{SuccessThreshold: successThreshold, RetryThreshold: retryThreshold}
}

// Assessment is the outcome of applying a Policy to action metrics.
type Assessment struct {
	SuccessRate float64
	Success     bool
	Retry       bool
}

// Assess scores the metrics. Success requires the success rate to reach the
// success threshold; a failed action requests a retry only when the rate falls
// below the retry threshold.
func (p Policy) Assess(m model.ExecutionMetrics) Assessment {
	rate := m.SuccessRate()
	a := Assessment{SuccessRate: rate}
	a.Success = rate >= p.SuccessThreshold
	if !a.Success {
		a.Retry = rate < p.RetryThreshold
	}
	return a
}
