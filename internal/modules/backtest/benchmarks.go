package backtest

import (
	"fmt"
	"time"

	"github.com/aristath/volregime/internal/domain"
)

// EqualWeight averages the named instruments' returns day by day. Days on
// which any of them is unobserved are left out of the result.
func EqualWeight(table *domain.ReturnTable, instruments []string) (domain.Series, error) {
	if len(instruments) == 0 {
		return domain.Series{}, fmt.Errorf("equal weight needs at least one instrument")
	}
	for _, inst := range instruments {
		if _, err := table.Column(inst); err != nil {
			return domain.Series{}, err
		}
	}

	dates := make([]time.Time, 0, table.Len())
	values := make([]float64, 0, table.Len())
	weight := 1 / float64(len(instruments))

	for day := range table.Dates {
		sum, complete := 0.0, true
		for _, inst := range instruments {
			r, ok := table.Return(inst, day)
			if !ok {
				complete = false
				break
			}
			sum += r
		}
		if !complete {
			continue
		}
		dates = append(dates, table.Dates[day])
		values = append(values, sum*weight)
	}

	return domain.Series{Dates: dates, Values: values}, nil
}

// BuyAndHold passes one instrument's observed returns through.
func BuyAndHold(table *domain.ReturnTable, instrument string) (domain.Series, error) {
	if _, err := table.Column(instrument); err != nil {
		return domain.Series{}, err
	}

	dates := make([]time.Time, 0, table.Len())
	values := make([]float64, 0, table.Len())
	for day := range table.Dates {
		if r, ok := table.Return(instrument, day); ok {
			dates = append(dates, table.Dates[day])
			values = append(values, r)
		}
	}
	return domain.Series{Dates: dates, Values: values}, nil
}
