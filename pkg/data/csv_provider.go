package data

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	enginerr "github.com/ducminhle1904/market-sentinel-bot/internal/errors"
	"github.com/ducminhle1904/market-sentinel-bot/internal/frame"
	"github.com/ducminhle1904/market-sentinel-bot/pkg/types"
)

// CSVColumnMapping defines the column positions for different CSV layouts.
type CSVColumnMapping struct {
	TimestampCol int
	OpenCol      int
	HighCol      int
	LowCol       int
	CloseCol     int
	VolumeCol    int
	MinColumns   int
	DateFormat   string
}

// DefaultCSVFormat matches the common timestamp,o,h,l,c,v export layout.
var DefaultCSVFormat = CSVColumnMapping{
	TimestampCol: 0,
	OpenCol:      1,
	HighCol:      2,
	LowCol:       3,
	CloseCol:     4,
	VolumeCol:    5,
	MinColumns:   6,
	DateFormat:   "2006-01-02 15:04:05",
}

// CSVProvider serves frames from on-disk CSV exports, laid out as
// <root>/<asset_class>/<symbol>_<interval>.csv.
type CSVProvider struct {
	root   string
	format CSVColumnMapping
}

// NewCSVProvider creates a CSV provider rooted at the given directory.
func NewCSVProvider(root string) *CSVProvider {
	return &CSVProvider{root: root, format: DefaultCSVFormat}
}

// NewCSVProviderWithFormat creates a CSV provider with a custom column layout.
func NewCSVProviderWithFormat(root string, format CSVColumnMapping) *CSVProvider {
	return &CSVProvider{root: root, format: format}
}

func (p *CSVProvider) Name() string { return "csv" }

// Path resolves the expected file location for a request.
func (p *CSVProvider) Path(req Request) string {
	name := fmt.Sprintf("%s_%s.csv", strings.ToUpper(req.Symbol), req.Interval)
	return filepath.Join(p.root, string(req.AssetClass), name)
}

// Fetch loads, parses and validates the CSV file for the request, trimmed
// to the requested period.
func (p *CSVProvider) Fetch(ctx context.Context, req Request) (*frame.Frame, error) {
	path := p.Path(req)
	file, err := os.Open(path)
	if err != nil {
		return nil, enginerr.Wrap(err, enginerr.KindDataUnavailable, "data", "fetch")
	}
	defer file.Close()

	bars, err := p.parse(file)
	if err != nil {
		return nil, enginerr.Wrap(err, enginerr.KindDataUnavailable, "data", "fetch")
	}
	if len(bars) == 0 {
		return nil, enginerr.New(enginerr.KindDataUnavailable, "data", "fetch",
			fmt.Sprintf("no usable rows in %s", filepath.Base(path)))
	}

	select {
	case <-ctx.Done():
		return nil, enginerr.Wrap(ctx.Err(), enginerr.KindDataUnavailable, "data", "fetch")
	default:
	}

	bars = trimToPeriod(bars, req.Period)
	return frame.New(req.Symbol, req.Interval, bars)
}

func (p *CSVProvider) parse(r io.Reader) ([]types.OHLCV, error) {
	reader := csv.NewReader(r)

	// Skip header
	if _, err := reader.Read(); err != nil {
		return nil, err
	}

	var bars []types.OHLCV
	lineNum := 1
	for {
		record, err := reader.Read()
		if err != nil {
			if err == io.EOF {
				break
			}
			return nil, fmt.Errorf("error reading CSV at line %d: %v", lineNum, err)
		}
		lineNum++

		if len(record) < p.format.MinColumns {
			log.Printf("insufficient columns at line %d (expected %d, got %d), skipping",
				lineNum, p.format.MinColumns, len(record))
			continue
		}

		timestamp, err := time.Parse(p.format.DateFormat, record[p.format.TimestampCol])
		if err != nil {
			log.Printf("invalid timestamp %q at line %d, skipping: %v", record[p.format.TimestampCol], lineNum, err)
			continue
		}

		open, err1 := strconv.ParseFloat(record[p.format.OpenCol], 64)
		high, err2 := strconv.ParseFloat(record[p.format.HighCol], 64)
		low, err3 := strconv.ParseFloat(record[p.format.LowCol], 64)
		closeP, err4 := strconv.ParseFloat(record[p.format.CloseCol], 64)
		volume, err5 := strconv.ParseFloat(record[p.format.VolumeCol], 64)
		if err1 != nil || err2 != nil || err3 != nil || err4 != nil || err5 != nil {
			log.Printf("unparseable numeric field at line %d, skipping", lineNum)
			continue
		}

		if open <= 0 || high <= 0 || low <= 0 || closeP <= 0 {
			log.Printf("non-positive price at line %d, skipping", lineNum)
			continue
		}
		if high < low || high < open || high < closeP || low > open || low > closeP {
			log.Printf("inconsistent OHLC at line %d, skipping", lineNum)
			continue
		}

		bars = append(bars, types.OHLCV{
			Timestamp: timestamp,
			Open:      open,
			High:      high,
			Low:       low,
			Close:     closeP,
			Volume:    volume,
		})
	}
	return bars, nil
}

// trimToPeriod keeps only bars within the period counted back from the
// newest bar.
func trimToPeriod(bars []types.OHLCV, period types.Period) []types.OHLCV {
	if len(bars) == 0 || period == types.PeriodMax {
		return bars
	}
	span := period.Duration()
	if span <= 0 {
		return bars
	}
	cutoff := bars[len(bars)-1].Timestamp.Add(-span)
	for i, b := range bars {
		if !b.Timestamp.Before(cutoff) {
			return bars[i:]
		}
	}
	return bars
}
