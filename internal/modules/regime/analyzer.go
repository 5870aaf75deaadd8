package regime

import (
	"fmt"
	"math"
	"sort"

	"github.com/aristath/volregime/internal/domain"
	"github.com/aristath/volregime/pkg/formulas"
)

// RegimeStat summarises the observations assigned to one state.
type RegimeStat struct {
	State int     `json:"state"`
	Mean  float64 `json:"mean"`
	Std   float64 `json:"std"`
	Count int     `json:"count"`
}

// RegimeLabel attaches an ordinal name to a raw state label.
type RegimeLabel struct {
	State int    `json:"state"`
	Rank  int    `json:"rank"` // 0 = lowest mean
	Name  string `json:"name"`
}

// ModelScore holds the information criteria of one fitted model.
type ModelScore struct {
	States        int     `json:"n_states"`
	LogLikelihood float64 `json:"log_likelihood"`
	Parameters    int     `json:"parameters"`
	Observations  int     `json:"observations"`
	AIC           float64 `json:"aic"`
	BIC           float64 `json:"bic"`
}

var canonicalNames = map[int][]string{
	2: {"Low", "High"},
	3: {"Low", "Medium", "High"},
	4: {"Low", "Medium-Low", "Medium-High", "High"},
	5: {"Very Low", "Low", "Medium", "High", "Very High"},
}

// RegimeStatistics groups observations by state and returns mean, sample
// standard deviation and count per state, sorted by ascending mean.
// Only states that occur in the sequence get a row.
func RegimeStatistics(states domain.StateSequence, observations []float64) ([]RegimeStat, error) {
	if len(states) != len(observations) {
		return nil, fmt.Errorf("%w: %d states for %d observations", domain.ErrMisaligned, len(states), len(observations))
	}
	if len(states) == 0 {
		return nil, fmt.Errorf("regime statistics: %w", domain.ErrEmptySeries)
	}

	groups := make(map[int][]float64)
	for i, s := range states {
		groups[s] = append(groups[s], observations[i])
	}

	stats := make([]RegimeStat, 0, len(groups))
	for state, values := range groups {
		stats = append(stats, RegimeStat{
			State: state,
			Mean:  formulas.Mean(values),
			Std:   formulas.StdDev(values), // 0 for a single observation
			Count: len(values),
		})
	}

	sortByMean(stats)
	return stats, nil
}

func sortByMean(stats []RegimeStat) {
	sort.SliceStable(stats, func(i, j int) bool {
		if stats[i].Mean != stats[j].Mean {
			return stats[i].Mean < stats[j].Mean
		}
		return stats[i].State < stats[j].State
	})
}

// LabelByVolatility ranks states by ascending mean observation and assigns
// ordinal names. The result is keyed by raw state and does not depend on
// the order of the input rows. Without a canonical name list for the
// number of states the name is "Rank N" (1-based).
func LabelByVolatility(stats []RegimeStat) map[int]RegimeLabel {
	ordered := make([]RegimeStat, len(stats))
	copy(ordered, stats)
	sortByMean(ordered)

	names := canonicalNames[len(ordered)]
	labels := make(map[int]RegimeLabel, len(ordered))
	for rank, st := range ordered {
		name := fmt.Sprintf("Rank %d", rank+1)
		if names != nil {
			name = names[rank]
		}
		labels[st.State] = RegimeLabel{State: st.State, Rank: rank, Name: name}
	}
	return labels
}

// ParameterCount is K² transition entries plus a mean and a variance per state.
func ParameterCount(k int) int {
	return k*k + 2*k
}

// ModelSelectionScore returns AIC and BIC for a fitted model on the
// (standardised) series it is scored against.
func ModelSelectionScore(model *GaussianHMM, x []float64) (ModelScore, error) {
	ll, err := model.Score(x)
	if err != nil {
		return ModelScore{}, err
	}

	params := ParameterCount(model.States())
	n := len(x)

	return ModelScore{
		States:        model.States(),
		LogLikelihood: ll,
		Parameters:    params,
		Observations:  n,
		AIC:           2*float64(params) - 2*ll,
		BIC:           float64(params)*math.Log(float64(n)) - 2*ll,
	}, nil
}
