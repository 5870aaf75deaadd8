package report

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/aristath/volregime/internal/modules/analysis"
	"github.com/aristath/volregime/internal/modules/backtest"
	"github.com/aristath/volregime/internal/modules/regime"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

const basisPointsPerUnit = 10000

// Renderer formats analysis output with one Style.
type Renderer struct {
	style Style
}

// NewRenderer creates a renderer using style
func NewRenderer(style Style) *Renderer {
	return &Renderer{style: style}
}

// cell is a table value with its sign, used to colour numbers.
type cell struct {
	text string
	sign int
}

func text(s string) cell {
	return cell{text: s}
}

func signed(s string, v float64) cell {
	switch {
	case v > 0:
		return cell{text: s, sign: 1}
	case v < 0:
		return cell{text: s, sign: -1}
	}
	return cell{text: s}
}

func (r *Renderer) table(headers []string, rows [][]cell) string {
	t := table.New().
		Border(r.style.Border).
		BorderStyle(r.style.BorderStyle).
		Headers(headers...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return r.style.Header
			}
			if row < 0 || row >= len(rows) || col >= len(rows[row]) {
				return r.style.Cell
			}
			switch rows[row][col].sign {
			case 1:
				return r.style.Positive
			case -1:
				return r.style.Negative
			}
			return r.style.Cell
		})

	for _, row := range rows {
		values := make([]string, len(row))
		for i, c := range row {
			values[i] = c.text
		}
		t.Row(values...)
	}
	return t.String()
}

func (r *Renderer) percent(v float64) string {
	return fmt.Sprintf("%.*f%%", r.style.PercentDecimals, v*100)
}

func (r *Renderer) ratio(v float64) string {
	return fmt.Sprintf("%.*f", r.style.RatioDecimals, v)
}

func (r *Renderer) bps(v float64) string {
	return fmt.Sprintf("%+.*f", r.style.BasisPointDecimals, v*basisPointsPerUnit)
}

func (r *Renderer) value(v float64) string {
	return fmt.Sprintf("%.*f", r.style.ValueDecimals, v)
}

// RegimeTable lists the regimes by volatility rank.
func (r *Renderer) RegimeTable(regimes []analysis.RegimeSummary) string {
	rows := make([][]cell, 0, len(regimes))
	for _, rg := range regimes {
		rows = append(rows, []cell{
			text(rg.Label),
			text(fmt.Sprintf("%d", rg.State)),
			signed(r.value(rg.Mean), rg.Mean),
			text(r.value(rg.Std)),
			text(fmt.Sprintf("%d", rg.Days)),
			text(r.percent(rg.Share)),
		})
	}
	return r.table([]string{"Regime", "State", "Mean", "Std", "Days", "Share"}, rows)
}

// AllocationTable shows each instrument's mean daily return per regime in
// basis points with the chosen instrument last.
func (r *Renderer) AllocationTable(allocations []analysis.RegimeAllocation, instruments []string) string {
	if len(instruments) == 0 {
		instruments = instrumentsOf(allocations)
	}

	headers := append([]string{"Regime"}, instruments...)
	headers = append(headers, "Hold")

	rows := make([][]cell, 0, len(allocations))
	for _, a := range allocations {
		row := []cell{text(a.Label)}
		for _, inst := range instruments {
			mean, ok := a.MeanReturns[inst]
			if !ok {
				row = append(row, text("-"))
				continue
			}
			row = append(row, signed(r.bps(mean), mean))
		}
		rows = append(rows, append(row, text(a.Instrument)))
	}
	return r.table(headers, rows)
}

func instrumentsOf(allocations []analysis.RegimeAllocation) []string {
	seen := make(map[string]bool)
	var out []string
	for _, a := range allocations {
		for inst := range a.MeanReturns {
			if !seen[inst] {
				seen[inst] = true
				out = append(out, inst)
			}
		}
	}
	sort.Strings(out)
	return out
}

// ComparisonTable is the strategy summary table.
func (r *Renderer) ComparisonTable(rows []backtest.StrategyPerformance) string {
	cells := make([][]cell, 0, len(rows))
	for _, row := range rows {
		m := row.Metrics
		cells = append(cells, []cell{
			text(row.Name),
			signed(r.percent(m.TotalReturn), m.TotalReturn),
			signed(r.percent(m.AnnualReturn), m.AnnualReturn),
			text(r.percent(m.AnnualVolatility)),
			signed(r.ratio(m.Sharpe), m.Sharpe),
			signed(r.ratio(m.Sortino), m.Sortino),
			signed(r.percent(m.MaxDrawdown), m.MaxDrawdown),
			text(fmt.Sprintf("%d", m.Observations)),
		})
	}
	return r.table([]string{"Strategy", "Total", "Annual", "Volatility", "Sharpe", "Sortino", "Max DD", "Days"}, cells)
}

// ModelComparisonTable lists AIC/BIC per state count and marks the best.
func (r *Renderer) ModelComparisonTable(cmp *regime.Comparison) string {
	rows := make([][]cell, 0, len(cmp.Scores))
	for _, s := range cmp.Scores {
		var best []string
		if s.States == cmp.BestByAIC {
			best = append(best, "AIC")
		}
		if s.States == cmp.BestByBIC {
			best = append(best, "BIC")
		}
		rows = append(rows, []cell{
			text(fmt.Sprintf("%d", s.States)),
			text(fmt.Sprintf("%.2f", s.LogLikelihood)),
			text(fmt.Sprintf("%d", s.Parameters)),
			text(fmt.Sprintf("%.2f", s.AIC)),
			text(fmt.Sprintf("%.2f", s.BIC)),
			text(strings.Join(best, ", ")),
		})
	}
	return r.table([]string{"States", "Log-likelihood", "Params", "AIC", "BIC", "Best"}, rows)
}

// Run writes the full text report of one analysis run.
func (r *Renderer) Run(w io.Writer, result *analysis.Result) error {
	convergence := "converged"
	if !result.Model.Converged {
		convergence = "not converged"
	}

	sections := []string{
		r.style.Title.Render(fmt.Sprintf("Volatility regimes: %s", result.Dataset)),
		r.style.Muted.Render(fmt.Sprintf("%s to %s, %d days, %d-state HMM %s after %d iterations (log-likelihood %.2f, BIC %.2f)",
			result.Start.Format("2006-01-02"), result.End.Format("2006-01-02"), result.Observations,
			result.Model.States, convergence, result.Model.Iterations, result.Score.LogLikelihood, result.Score.BIC)),
		r.RegimeTable(result.Regimes),
		r.style.Title.Render(fmt.Sprintf("Mean daily return by regime (bps), lag %d day(s)", result.Backtest.LagDays)),
		r.AllocationTable(result.Backtest.Allocations, result.Profile.Instruments),
		r.style.Title.Render("Strategy comparison"),
		r.ComparisonTable(result.Backtest.Comparison),
		r.style.Muted.Render(fmt.Sprintf("Excluded days: %d without signal, %d without rule, %d without return",
			result.Backtest.Report.NoSignal, result.Backtest.Report.MissingRule, result.Backtest.Report.MissingReturn)),
		r.style.Muted.Render(fmt.Sprintf("Current regime: %s (%s)", result.Current.Label, result.Current.Date.Format("2006-01-02"))),
	}

	_, err := io.WriteString(w, strings.Join(sections, "\n\n")+"\n")
	return err
}
