package advisor

import (
	"context"

	model "github.com/tigerroll/undertow/pkg/etl/core/domain/model"
	logger "github.com/tigerroll/undertow/pkg/etl/support/util/logger"
)

// BestEffort wraps an Advisor so that every failure, including a missing
// delegate, yields the neutral assessment instead of an error. Workers depend
// on this wrapper, never on a raw advisor.
type BestEffort struct {
	next Advisor
}

// NewBestEffort wraps the delegate. A nil delegate always answers neutrally.
func NewBestEffort(next Advisor) *BestEffort {
	return &BestEffort{next: next}
}

// AssessQuality never returns an error.
func (b *BestEffort) AssessQuality(ctx context.Context, pattern string, metrics model.ExecutionMetrics, errs []model.ETLError) (*Assessment, error) {
	if b.next == nil {
		return Neutral(), nil
	}
	assessment, err := b.next.AssessQuality(ctx, pattern, metrics, errs)
	if err != nil {
		logger.Warnf("advisor unavailable for %s, using neutral assessment: %v", pattern, err)
		return Neutral(), nil
	}
	if assessment == nil {
		return Neutral(), nil
	}
	return assessment, nil
}

var _ Advisor = (*BestEffort)(nil)
