package advisor_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tigerroll/undertow/pkg/etl/advisor"
	model "github.com/tigerroll/undertow/pkg/etl/core/domain/model"
)

type stubAdvisor struct {
	assessment *advisor.Assessment
	err        error
}

func (s *stubAdvisor) AssessQuality(ctx context.Context, pattern string, metrics model.ExecutionMetrics, errs []model.ETLError) (*advisor.Assessment, error) {
	return s.assessment, s.err
}

func TestBestEffortNilDelegate(t *testing.T) {
	b := advisor.NewBestEffort(nil)

	a, err := b.AssessQuality(context.Background(), "p", model.ExecutionMetrics{}, nil)
	require.NoError(t, err)
	assert.Equal(t, model.NeutralSuccessRate, a.Score)
	assert.Empty(t, a.Improvements)
}

func TestBestEffortDelegateError(t *testing.T) {
	b := advisor.NewBestEffort(&stubAdvisor{err: errors.New("endpoint down")})

	a, err := b.AssessQuality(context.Background(), "p", model.ExecutionMetrics{}, nil)
	require.NoError(t, err)
	assert.Equal(t, model.NeutralSuccessRate, a.Score)
}

func TestBestEffortDelegateNilAssessment(t *testing.T) {
	b := advisor.NewBestEffort(&stubAdvisor{})

	a, err := b.AssessQuality(context.Background(), "p", model.ExecutionMetrics{}, nil)
	require.NoError(t, err)
	assert.Equal(t, model.NeutralSuccessRate, a.Score)
}

func TestBestEffortPassesThroughAnswer(t *testing.T) {
	want := &advisor.Assessment{Score: 0.9, Improvements: []string{"tighten date parsing"}}
	b := advisor.NewBestEffort(&stubAdvisor{assessment: want})

	a, err := b.AssessQuality(context.Background(), "p", model.ExecutionMetrics{}, nil)
	require.NoError(t, err)
	assert.Equal(t, want, a)
}
