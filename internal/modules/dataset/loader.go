// Package dataset reads the daily market data the analysis runs on.
//
// Two CSV shapes are accepted. A price file carries one close price per
// instrument plus the volatility index level (Date,TLT,GLD,SPY,VIX) and is
// converted to log returns and index first differences. A prepared returns
// file already carries <instrument>_ret columns and a <signal>_change column.
package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/aristath/volregime/internal/domain"
	"github.com/aristath/volregime/pkg/formulas"
	"github.com/rs/zerolog"
)

const (
	returnSuffix = "_ret"
	changeSuffix = "_change"
)

// Shape identifies the layout of a dataset file.
type Shape string

const (
	ShapePrices  Shape = "prices"
	ShapeReturns Shape = "returns"
)

var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	time.RFC3339,
	"01/02/2006",
}

// Options selects the columns to load.
type Options struct {
	// Signal is the volatility index name, e.g. "VIX". Price files carry it
	// as a level column; returns files as <Signal>_change.
	Signal string
	// Instruments restricts and orders the instruments loaded. Empty loads
	// every instrument column in file order.
	Instruments []string
}

// Dataset is an aligned return table plus the volatility signal driving the
// regime model.
type Dataset struct {
	Source  string              `json:"source"`
	Shape   Shape               `json:"shape"`
	Returns *domain.ReturnTable `json:"returns"`
	Signal  domain.Series       `json:"signal"`
	// Dropped counts input rows removed for a missing signal (or, for price
	// files, any missing value).
	Dropped int `json:"dropped"`
}

// Start returns the first date in the dataset
func (d *Dataset) Start() time.Time {
	if len(d.Signal.Dates) == 0 {
		return time.Time{}
	}
	return d.Signal.Dates[0]
}

// End returns the last date in the dataset
func (d *Dataset) End() time.Time {
	if len(d.Signal.Dates) == 0 {
		return time.Time{}
	}
	return d.Signal.Dates[len(d.Signal.Dates)-1]
}

// Loader reads CSV datasets.
type Loader struct {
	log zerolog.Logger
}

// NewLoader creates a dataset loader
func NewLoader(log zerolog.Logger) *Loader {
	return &Loader{
		log: log.With().Str("component", "dataset").Logger(),
	}
}

// LoadFile opens and parses a dataset file.
func (l *Loader) LoadFile(path string, opts Options) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open dataset: %w", err)
	}
	defer f.Close()

	ds, err := l.Load(f, opts)
	if err != nil {
		return nil, fmt.Errorf("dataset %s: %w", path, err)
	}
	ds.Source = path
	return ds, nil
}

// Load parses a dataset from r, detecting its shape from the header.
func (l *Loader) Load(r io.Reader, opts Options) (*Dataset, error) {
	if opts.Signal == "" {
		return nil, errors.New("signal column name is required")
	}

	raw, err := readCSV(r)
	if err != nil {
		return nil, err
	}

	var ds *Dataset
	switch detectShape(raw.header) {
	case ShapeReturns:
		ds, err = fromReturns(raw, opts)
	default:
		ds, err = fromPrices(raw, opts)
	}
	if err != nil {
		return nil, err
	}

	l.log.Info().
		Str("shape", string(ds.Shape)).
		Int("days", ds.Signal.Len()).
		Int("dropped", ds.Dropped).
		Strs("instruments", ds.Returns.Instruments).
		Msg("Dataset loaded")
	return ds, nil
}

type rawTable struct {
	header  []string
	dates   []time.Time
	columns map[string][]float64
}

func readCSV(r io.Reader) (*rawTable, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("dataset: %w", domain.ErrEmptySeries)
		}
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	if len(header) < 2 {
		return nil, fmt.Errorf("header needs a date column and at least one value column, got %v", header)
	}
	for i := range header {
		header[i] = strings.TrimSpace(strings.TrimPrefix(header[i], "\ufeff"))
	}

	raw := &rawTable{
		header:  header[1:],
		columns: make(map[string][]float64, len(header)-1),
	}

	for line := 2; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		date, err := parseDate(record[0])
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		raw.dates = append(raw.dates, date)

		for i, name := range raw.header {
			v, err := parseValue(record[i+1])
			if err != nil {
				return nil, fmt.Errorf("line %d column %s: %w", line, name, err)
			}
			raw.columns[name] = append(raw.columns[name], v)
		}
	}

	if len(raw.dates) == 0 {
		return nil, fmt.Errorf("dataset: %w", domain.ErrEmptySeries)
	}
	return raw, nil
}

func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised date %q", s)
}

// parseValue maps empty and NA cells to NaN, the missing-observation marker.
func parseValue(s string) (float64, error) {
	s = strings.TrimSpace(s)
	switch strings.ToLower(s) {
	case "", "na", "nan", "null":
		return math.NaN(), nil
	}
	return strconv.ParseFloat(s, 64)
}

func detectShape(header []string) Shape {
	for _, name := range header {
		if strings.HasSuffix(name, returnSuffix) {
			return ShapeReturns
		}
	}
	return ShapePrices
}

func fromReturns(raw *rawTable, opts Options) (*Dataset, error) {
	signalCol := opts.Signal + changeSuffix
	signal, ok := raw.columns[signalCol]
	if !ok {
		return nil, fmt.Errorf("%w: signal column %s", domain.ErrUnknownInstrument, signalCol)
	}

	instruments, err := selectInstruments(raw.header, opts.Instruments, func(col string) (string, bool) {
		if !strings.HasSuffix(col, returnSuffix) {
			return "", false
		}
		return strings.TrimSuffix(col, returnSuffix), true
	})
	if err != nil {
		return nil, err
	}

	// Instrument gaps stay as NaN; only the signal must be present.
	keep := make([]bool, len(raw.dates))
	for i, v := range signal {
		keep[i] = !math.IsNaN(v)
	}

	columns := make(map[string][]float64, len(instruments))
	for _, inst := range instruments {
		columns[inst] = raw.columns[inst+returnSuffix]
	}
	return assemble(ShapeReturns, raw.dates, keep, instruments, columns, signal)
}

func fromPrices(raw *rawTable, opts Options) (*Dataset, error) {
	levels, ok := raw.columns[opts.Signal]
	if !ok {
		return nil, fmt.Errorf("%w: signal column %s", domain.ErrUnknownInstrument, opts.Signal)
	}

	instruments, err := selectInstruments(raw.header, opts.Instruments, func(col string) (string, bool) {
		return col, col != opts.Signal
	})
	if err != nil {
		return nil, err
	}

	// Incomplete price rows go first so returns span the gap, then the
	// differencing row is dropped.
	var dates []time.Time
	var kept []float64
	prices := make(map[string][]float64, len(instruments))
	for i, date := range raw.dates {
		if !completeRow(raw.columns, instruments, opts.Signal, i) {
			continue
		}
		dates = append(dates, date)
		kept = append(kept, levels[i])
		for _, inst := range instruments {
			prices[inst] = append(prices[inst], raw.columns[inst][i])
		}
	}
	if len(dates) < 2 {
		return nil, fmt.Errorf("price file needs two complete rows to difference: %w", domain.ErrEmptySeries)
	}

	signal := append([]float64{math.NaN()}, formulas.Differences(kept)...)
	columns := make(map[string][]float64, len(instruments))
	for _, inst := range instruments {
		columns[inst] = append([]float64{math.NaN()}, formulas.CalculateLogReturns(prices[inst])...)
	}

	keep := make([]bool, len(dates))
	for i := range keep {
		keep[i] = completeRow(columns, instruments, "", i) && !math.IsNaN(signal[i])
	}

	ds, err := assemble(ShapePrices, dates, keep, instruments, columns, signal)
	if err != nil {
		return nil, err
	}
	ds.Dropped += len(raw.dates) - len(dates)
	return ds, nil
}

func completeRow(columns map[string][]float64, instruments []string, signal string, i int) bool {
	if signal != "" && math.IsNaN(columns[signal][i]) {
		return false
	}
	for _, inst := range instruments {
		if math.IsNaN(columns[inst][i]) {
			return false
		}
	}
	return true
}

func selectInstruments(header, wanted []string, instrumentOf func(string) (string, bool)) ([]string, error) {
	available := make(map[string]bool)
	var inFileOrder []string
	for _, col := range header {
		if inst, ok := instrumentOf(col); ok {
			available[inst] = true
			inFileOrder = append(inFileOrder, inst)
		}
	}

	if len(wanted) == 0 {
		if len(inFileOrder) == 0 {
			return nil, errors.New("dataset has no instrument columns")
		}
		return inFileOrder, nil
	}
	for _, inst := range wanted {
		if !available[inst] {
			return nil, fmt.Errorf("%w: %s", domain.ErrUnknownInstrument, inst)
		}
	}
	return wanted, nil
}

func assemble(shape Shape, dates []time.Time, keep []bool, instruments []string, columns map[string][]float64, signal []float64) (*Dataset, error) {
	var keptDates []time.Time
	var keptSignal []float64
	keptColumns := make(map[string][]float64, len(instruments))
	dropped := 0

	for i, ok := range keep {
		if !ok {
			dropped++
			continue
		}
		keptDates = append(keptDates, dates[i])
		keptSignal = append(keptSignal, signal[i])
		for _, inst := range instruments {
			keptColumns[inst] = append(keptColumns[inst], columns[inst][i])
		}
	}
	if len(keptDates) == 0 {
		return nil, fmt.Errorf("no complete rows: %w", domain.ErrEmptySeries)
	}

	sig, err := domain.NewSeries(keptDates, keptSignal)
	if err != nil {
		return nil, err
	}

	table := domain.NewReturnTable(keptDates)
	for _, inst := range instruments {
		if err := table.AddInstrument(inst, keptColumns[inst]); err != nil {
			return nil, err
		}
	}

	return &Dataset{
		Shape:   shape,
		Returns: table,
		Signal:  sig,
		Dropped: dropped,
	}, nil
}
