package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aristath/volregime/internal/modules/analysis"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingJob struct {
	runs int
	err  error
}

func (j *countingJob) Run() error {
	j.runs++
	return j.err
}

func (j *countingJob) Name() string {
	return "counting"
}

func TestScheduler_AddJob(t *testing.T) {
	s := New(zerolog.Nop())

	require.NoError(t, s.AddJob("0 22 * * MON-FRI", &countingJob{}))
	require.NoError(t, s.AddJob("30 0 22 * * *", &countingJob{}), "optional seconds field")
	require.NoError(t, s.AddJob("@every 6h", &countingJob{}))
	assert.Equal(t, 3, s.Entries())

	assert.Error(t, s.AddJob("not a schedule", &countingJob{}))
}

func TestScheduler_RunNow(t *testing.T) {
	s := New(zerolog.Nop())
	job := &countingJob{err: errors.New("boom")}

	assert.Error(t, s.RunNow(job))
	assert.Equal(t, 1, job.runs)
}

type fakeRunner struct {
	deadline bool
	err      error
}

func (f *fakeRunner) Run(ctx context.Context, req analysis.Request) (*analysis.Result, error) {
	_, f.deadline = ctx.Deadline()
	if f.err != nil {
		return nil, f.err
	}
	return &analysis.Result{ID: "run", Current: analysis.DayState{Label: "Low"}}, nil
}

func TestRefreshAnalysisJob_Run(t *testing.T) {
	runner := &fakeRunner{}
	job := NewRefreshAnalysisJob(runner, time.Minute, zerolog.Nop())

	assert.Equal(t, "refresh_analysis", job.Name())
	require.NoError(t, job.Run())
	assert.True(t, runner.deadline)

	runner.err = errors.New("dataset missing")
	assert.Error(t, job.Run())
}
