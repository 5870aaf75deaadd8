// Package backtest turns a decoded regime sequence into a trading rule,
// simulates it under an execution lag and builds the reference benchmarks.
package backtest

import (
	"fmt"
	"sort"

	"github.com/aristath/volregime/internal/domain"
	"github.com/aristath/volregime/pkg/formulas"
)

// RegimeMeanReturns returns, for every state present in states, the mean
// daily return of each instrument over the days spent in that state.
// Unobserved (NaN) returns are left out of the mean.
func RegimeMeanReturns(states domain.StateSequence, table *domain.ReturnTable) (map[int]map[string]float64, error) {
	if len(states) != table.Len() {
		return nil, fmt.Errorf("%w: %d states for %d days", domain.ErrMisaligned, len(states), table.Len())
	}
	if len(states) == 0 {
		return nil, fmt.Errorf("regime mean returns: %w", domain.ErrEmptySeries)
	}

	byState := make(map[int]map[string][]float64)
	for day, state := range states {
		if _, ok := byState[state]; !ok {
			byState[state] = make(map[string][]float64, len(table.Instruments))
		}
		for _, inst := range table.Instruments {
			if r, ok := table.Return(inst, day); ok {
				byState[state][inst] = append(byState[state][inst], r)
			}
		}
	}

	out := make(map[int]map[string]float64, len(byState))
	for state, perInst := range byState {
		out[state] = make(map[string]float64, len(perInst))
		for inst, values := range perInst {
			out[state][inst] = formulas.Mean(values)
		}
	}
	return out, nil
}

// BestInstrumentPerRegime picks, for every state, the instrument with the
// highest mean return. Exact ties go to the instrument listed first in
// priority; instruments absent from priority rank after it alphabetically.
func BestInstrumentPerRegime(means map[int]map[string]float64, priority []string) domain.AllocationRules {
	rules := make(domain.AllocationRules, len(means))
	for state, perInst := range means {
		order := instrumentOrder(perInst, priority)
		if len(order) == 0 {
			continue
		}

		best := order[0]
		for _, inst := range order[1:] {
			if perInst[inst] > perInst[best] {
				best = inst
			}
		}
		rules[state] = best
	}
	return rules
}

func instrumentOrder(perInst map[string]float64, priority []string) []string {
	order := make([]string, 0, len(perInst))
	seen := make(map[string]bool, len(priority))
	for _, inst := range priority {
		if _, ok := perInst[inst]; ok && !seen[inst] {
			order = append(order, inst)
			seen[inst] = true
		}
	}

	var rest []string
	for inst := range perInst {
		if !seen[inst] {
			rest = append(rest, inst)
		}
	}
	sort.Strings(rest)
	return append(order, rest...)
}

// SortedStates returns the keys of a state-keyed map in ascending order.
func SortedStates[V any](m map[int]V) []int {
	states := make([]int, 0, len(m))
	for s := range m {
		states = append(states, s)
	}
	sort.Ints(states)
	return states
}
