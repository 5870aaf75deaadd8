package scheduler

import (
	"context"
	"errors"
	"testing"

	testutil "github.com/aristath/volregime/internal/testing"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePruner struct {
	keep int
	err  error
}

func (p *fakePruner) Prune(ctx context.Context, keep int) (int64, error) {
	p.keep = keep
	return 0, p.err
}

func TestMaintenanceJob_Run(t *testing.T) {
	db := testutil.NewTestDB(t, "analysis")
	pruner := &fakePruner{}

	job := NewMaintenanceJob(db, pruner, 50, zerolog.Nop())
	assert.Equal(t, "maintenance", job.Name())
	require.NoError(t, job.Run())
	assert.Equal(t, 50, pruner.keep)
}

func TestMaintenanceJob_RetentionDisabled(t *testing.T) {
	db := testutil.NewTestDB(t, "analysis")
	pruner := &fakePruner{}

	require.NoError(t, NewMaintenanceJob(db, pruner, 0, zerolog.Nop()).Run())
	assert.Equal(t, 0, pruner.keep, "pruner not called")
}

func TestMaintenanceJob_PruneError(t *testing.T) {
	db := testutil.NewTestDB(t, "analysis")
	pruner := &fakePruner{err: errors.New("locked")}

	assert.Error(t, NewMaintenanceJob(db, pruner, 10, zerolog.Nop()).Run())
}
