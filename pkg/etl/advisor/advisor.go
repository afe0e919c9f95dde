// Package advisor provides the optional chat/completion capability workers use
// for quality scoring. The capability is best-effort by contract: any failure
// degrades to a neutral assessment and never aborts a run.
package advisor

import (
	"context"

	model "github.com/tigerroll/undertow/pkg/etl/core/domain/model"
)

// Assessment is the advisor's judgement of one action's outcome.
type Assessment struct {
	// Score is a quality confidence in [0, 1].
	Score float64
	// Improvements are concrete suggestions for the next iteration.
	Improvements []string
	// Lesson is a reusable observation worth recording, empty when none.
	Lesson string
}

// Neutral is the assessment used when no advisor is available or the advisor
// fails: a mid-scale score carrying no suggestions.
func Neutral() *Assessment {
	return &Assessment{Score: model.NeutralSuccessRate}
}

// Advisor scores an action's outcome for a job pattern.
type Advisor interface {
	AssessQuality(ctx context.Context, pattern string, metrics model.ExecutionMetrics, errs []model.ETLError) (*Assessment, error)
}
