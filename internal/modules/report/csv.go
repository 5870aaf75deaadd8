package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/aristath/volregime/internal/domain"
	"github.com/aristath/volregime/internal/modules/backtest"
	"github.com/aristath/volregime/internal/modules/performance"
)

var comparisonHeader = []string{
	"strategy", "total_return", "annual_return", "annual_volatility",
	"sharpe", "sortino", "max_drawdown", "observations",
}

// WriteComparisonCSV exports the strategy summary table.
func WriteComparisonCSV(w io.Writer, rows []backtest.StrategyPerformance) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(comparisonHeader); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for _, row := range rows {
		m := row.Metrics
		record := []string{
			row.Name,
			formatFloat(m.TotalReturn),
			formatFloat(m.AnnualReturn),
			formatFloat(m.AnnualVolatility),
			formatFloat(m.Sharpe),
			formatFloat(m.Sortino),
			formatFloat(m.MaxDrawdown),
			strconv.Itoa(m.Observations),
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write %s: %w", row.Name, err)
		}
	}

	writer.Flush()
	return writer.Error()
}

// WriteSeriesCSV exports each strategy's daily return, cumulative wealth
// and drawdown in long format for external plotting. Strategies are
// written in name order.
func WriteSeriesCSV(w io.Writer, series map[string]domain.Series) error {
	names := make([]string, 0, len(series))
	for name := range series {
		names = append(names, name)
	}
	sort.Strings(names)

	writer := csv.NewWriter(w)
	if err := writer.Write([]string{"strategy", "date", "return", "wealth", "drawdown"}); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for _, name := range names {
		s := series[name]
		wealth := performance.Wealth(s)
		drawdown := performance.Drawdowns(s)
		for i, date := range s.Dates {
			record := []string{
				name,
				date.Format("2006-01-02"),
				formatFloat(s.Values[i]),
				formatFloat(wealth.Values[i]),
				formatFloat(drawdown.Values[i]),
			}
			if err := writer.Write(record); err != nil {
				return fmt.Errorf("failed to write %s: %w", name, err)
			}
		}
	}

	writer.Flush()
	return writer.Error()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
