package regime

import (
	"context"
	"testing"

	"github.com/aristath/volregime/internal/domain"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetector_FitPredictScore(t *testing.T) {
	x, _ := twoRegimeSeries(300)
	// Raw VIX changes live on a different scale than the model sees.
	raw := make([]float64, len(x))
	for i, v := range x {
		raw[i] = 3*v + 0.5
	}

	d, err := NewDetector(DefaultHMMConfig(2), zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, d.Fit(raw))

	states, err := d.Predict(raw)
	require.NoError(t, err)
	assert.Len(t, states, len(raw))

	score, err := d.Score(raw)
	require.NoError(t, err)
	assert.Equal(t, 2, score.States)

	params, err := d.Standardizer().Params()
	require.NoError(t, err)
	restored, err := RestoreDetector(params, mustParams(t, d.Model()), zerolog.Nop())
	require.NoError(t, err)

	again, err := restored.Predict(raw)
	require.NoError(t, err)
	assert.Equal(t, states, again)
}

func TestDetector_PredictBeforeFit(t *testing.T) {
	d, err := NewDetector(DefaultHMMConfig(2), zerolog.Nop())
	require.NoError(t, err)

	_, err = d.Predict([]float64{1, 2, 3})
	assert.ErrorIs(t, err, domain.ErrNotFitted)
}

func TestCompareModels(t *testing.T) {
	x, _ := twoRegimeSeries(300)

	cmp, err := CompareModels(context.Background(), x, []int{4, 2, 3}, DefaultHMMConfig(2), zerolog.Nop())
	require.NoError(t, err)
	require.Len(t, cmp.Scores, 3)

	assert.Equal(t, 2, cmp.Scores[0].States)
	assert.Equal(t, 3, cmp.Scores[1].States)
	assert.Equal(t, 4, cmp.Scores[2].States)
	assert.Contains(t, []int{2, 3, 4}, cmp.BestByAIC)
	assert.Contains(t, []int{2, 3, 4}, cmp.BestByBIC)

	for _, s := range cmp.Scores {
		if s.States == cmp.BestByBIC {
			continue
		}
		best := cmp.Scores[cmp.BestByBIC-2]
		assert.LessOrEqual(t, best.BIC, s.BIC)
	}
}

func TestCompareModels_PropagatesFitErrors(t *testing.T) {
	_, err := CompareModels(context.Background(), []float64{1, 2, 3}, []int{2, 5}, DefaultHMMConfig(2), zerolog.Nop())
	assert.ErrorIs(t, err, domain.ErrInsufficientData)

	_, err = CompareModels(context.Background(), []float64{1, 2, 3}, nil, DefaultHMMConfig(2), zerolog.Nop())
	assert.Error(t, err)
}

func mustParams(t *testing.T, m *GaussianHMM) Params {
	t.Helper()
	p, err := m.Params()
	require.NoError(t, err)
	return p
}
