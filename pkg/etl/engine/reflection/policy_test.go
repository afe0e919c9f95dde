package reflection_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	model "github.com/tigerroll/undertow/pkg/etl/core/domain/model"
	"github.com/tigerroll/undertow/pkg/etl/engine/reflection"
)

func TestNewPolicyDefaults(t *testing.T) {
	p := reflection.NewPolicy(0, 0)
	assert.Equal(t, reflection.DefaultSuccessThreshold, p.SuccessThreshold)
	assert.Equal(t, reflection.DefaultRetryThreshold, p.RetryThreshold)

	custom := reflection.NewPolicy(0.99, 0.5)
	assert.Equal(t, 0.99, custom.SuccessThreshold)
	assert.Equal(t, 0.5, custom.RetryThreshold)
}

func TestAssessSuccess(t *testing.T) {
	p := reflection.NewPolicy(0, 0)

	a := p.Assess(model.ExecutionMetrics{RecordsProcessed: 100, RecordsFailed: 0})
	assert.InDelta(t, 1.0, a.SuccessRate, 1e-9)
	assert.True(t, a.Success)
	assert.False(t, a.Retry)

	// Exactly at the success threshold.
	a = p.Assess(model.ExecutionMetrics{RecordsProcessed: 95, RecordsFailed: 5})
	assert.InDelta(t, 0.95, a.SuccessRate, 1e-9)
	assert.True(t, a.Success)
	assert.False(t, a.Retry)
}

func TestAssessPartialCreditZone(t *testing.T) {
	p := reflection.NewPolicy(0, 0)

	// Between the retry and success thresholds: failed, but not worth retrying.
	a := p.Assess(model.ExecutionMetrics{RecordsProcessed: 90, RecordsFailed: 10})
	assert.InDelta(t, 0.9, a.SuccessRate, 1e-9)
	assert.False(t, a.Success)
	assert.False(t, a.Retry)

	// Exactly at the retry threshold still does not retry.
	a = p.Assess(model.ExecutionMetrics{RecordsProcessed: 80, RecordsFailed: 20})
	assert.InDelta(t, 0.8, a.SuccessRate, 1e-9)
	assert.False(t, a.Success)
	assert.False(t, a.Retry)
}

func TestAssessRetry(t *testing.T) {
	p := reflection.NewPolicy(0, 0)

	a := p.Assess(model.ExecutionMetrics{RecordsProcessed: 70, RecordsFailed: 30})
	assert.InDelta(t, 0.7, a.SuccessRate, 1e-9)
	assert.False(t, a.Success)
	assert.True(t, a.Retry)

	a = p.Assess(model.ExecutionMetrics{RecordsProcessed: 0, RecordsFailed: 10})
	assert.Zero(t, a.SuccessRate)
	assert.True(t, a.Retry)
}

func TestAssessEmptyAction(t *testing.T) {
	p := reflection.NewPolicy(0, 0)

	// No records at all counts as fully successful.
	a := p.Assess(model.ExecutionMetrics{})
	assert.InDelta(t, 1.0, a.SuccessRate, 1e-9)
	assert.True(t, a.Success)
	assert.False(t, a.Retry)
}
