package backtest

import (
	"fmt"
	"time"

	"github.com/aristath/volregime/internal/domain"
)

// SimulationReport counts the days the simulation could not resolve.
type SimulationReport struct {
	Days          int `json:"days"`
	Resolved      int `json:"resolved"`
	NoSignal      int `json:"no_signal"`
	MissingRule   int `json:"missing_rule"`
	MissingReturn int `json:"missing_return"`
}

// Simulation is the output of one strategy simulation.
type Simulation struct {
	Returns  domain.Series    `json:"returns"`
	Holdings []string         `json:"holdings"` // instrument held on each resolved day
	Report   SimulationReport `json:"report"`
}

// ApplyLag shifts a state sequence forward by lag days so that the signal
// executed on day i is the state observed on day i-lag. The first lag days
// carry domain.NoSignal.
func ApplyLag(states domain.StateSequence, lag int) (domain.LaggedSignal, error) {
	if lag < 0 {
		return nil, fmt.Errorf("%w: %d", domain.ErrInvalidLag, lag)
	}

	signal := make(domain.LaggedSignal, len(states))
	for i := range signal {
		if i < lag {
			signal[i] = domain.NoSignal
			continue
		}
		signal[i] = states[i-lag]
	}
	return signal, nil
}

// Simulate follows the allocation rules on the lagged signal. A day is
// kept only when its signal is resolved, its state has a rule, and the
// allocated instrument has an observed return that day. Excluded days are
// counted in the report, never zero-filled.
func Simulate(signal domain.LaggedSignal, rules domain.AllocationRules, table *domain.ReturnTable) (*Simulation, error) {
	if len(signal) != table.Len() {
		return nil, fmt.Errorf("%w: %d signals for %d days", domain.ErrMisaligned, len(signal), table.Len())
	}

	report := SimulationReport{Days: len(signal)}
	dates := make([]time.Time, 0, len(signal))
	values := make([]float64, 0, len(signal))
	holdings := make([]string, 0, len(signal))

	for day, state := range signal {
		if state == domain.NoSignal {
			report.NoSignal++
			continue
		}
		inst, ok := rules[state]
		if !ok {
			report.MissingRule++
			continue
		}
		r, ok := table.Return(inst, day)
		if !ok {
			report.MissingReturn++
			continue
		}

		dates = append(dates, table.Dates[day])
		values = append(values, r)
		holdings = append(holdings, inst)
	}
	report.Resolved = len(values)

	return &Simulation{
		Returns:  domain.Series{Dates: dates, Values: values},
		Holdings: holdings,
		Report:   report,
	}, nil
}
