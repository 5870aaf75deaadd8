// Package domain holds the day-indexed series, return tables and regime
// types shared by the analysis modules.
package domain

import (
	"fmt"
	"math"
	"time"
)

// Series is a day-indexed sequence of real numbers.
// Dates are strictly increasing; Values[i] belongs to Dates[i].
type Series struct {
	Dates  []time.Time `json:"dates"`
	Values []float64   `json:"values"`
}

// NewSeries builds a validated series. The slices are used as-is.
func NewSeries(dates []time.Time, values []float64) (Series, error) {
	s := Series{Dates: dates, Values: values}
	if err := s.Validate(); err != nil {
		return Series{}, err
	}
	return s, nil
}

// Len returns the number of observations
func (s Series) Len() int {
	return len(s.Values)
}

// Validate checks lengths match and dates are strictly increasing.
func (s Series) Validate() error {
	if len(s.Dates) != len(s.Values) {
		return fmt.Errorf("%w: %d dates for %d values", ErrMisaligned, len(s.Dates), len(s.Values))
	}
	return validateDates(s.Dates)
}

func validateDates(dates []time.Time) error {
	for i := 1; i < len(dates); i++ {
		if !dates[i].After(dates[i-1]) {
			return fmt.Errorf("dates must be strictly increasing: %s follows %s",
				dates[i].Format("2006-01-02"), dates[i-1].Format("2006-01-02"))
		}
	}
	return nil
}

// ReturnTable maps instrument identifiers to per-day returns sharing one
// date index. Instruments preserves declaration order, which is also the
// tie-break priority when choosing between instruments. A NaN return marks
// a day with no observation for that instrument.
type ReturnTable struct {
	Dates       []time.Time          `json:"dates"`
	Instruments []string             `json:"instruments"`
	Columns     map[string][]float64 `json:"columns"`
}

// NewReturnTable creates an empty table over the given dates.
func NewReturnTable(dates []time.Time) *ReturnTable {
	return &ReturnTable{
		Dates:   dates,
		Columns: make(map[string][]float64),
	}
}

// AddInstrument appends an instrument column. Its length must match the
// date index and the identifier must be new.
func (t *ReturnTable) AddInstrument(name string, returns []float64) error {
	if len(returns) != len(t.Dates) {
		return fmt.Errorf("%w: instrument %s has %d returns for %d dates", ErrMisaligned, name, len(returns), len(t.Dates))
	}
	if _, exists := t.Columns[name]; exists {
		return fmt.Errorf("instrument %s already present", name)
	}
	t.Columns[name] = returns
	t.Instruments = append(t.Instruments, name)
	return nil
}

// Len returns the number of days in the table
func (t *ReturnTable) Len() int {
	return len(t.Dates)
}

// Column returns the returns of one instrument.
func (t *ReturnTable) Column(name string) ([]float64, error) {
	col, ok := t.Columns[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownInstrument, name)
	}
	return col, nil
}

// Return returns the instrument's return on day i and whether it is observed.
func (t *ReturnTable) Return(name string, i int) (float64, bool) {
	col, ok := t.Columns[name]
	if !ok || i < 0 || i >= len(col) {
		return 0, false
	}
	r := col[i]
	if math.IsNaN(r) || math.IsInf(r, 0) {
		return 0, false
	}
	return r, true
}

// Series returns one instrument column as a Series on the table's index.
func (t *ReturnTable) Series(name string) (Series, error) {
	col, err := t.Column(name)
	if err != nil {
		return Series{}, err
	}
	values := make([]float64, len(col))
	copy(values, col)
	dates := make([]time.Time, len(t.Dates))
	copy(dates, t.Dates)
	return Series{Dates: dates, Values: values}, nil
}

// Validate checks the date index and every column length.
func (t *ReturnTable) Validate() error {
	if err := validateDates(t.Dates); err != nil {
		return err
	}
	for _, name := range t.Instruments {
		if len(t.Columns[name]) != len(t.Dates) {
			return fmt.Errorf("%w: instrument %s", ErrMisaligned, name)
		}
	}
	return nil
}
