// Package dataset loads per-location daily observation history from CSV
// exports in the weatherAUS layout.
package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/i474232898/rain-outlook/internal/weather"
)

// Column names in the weatherAUS export.
const (
	ColDate         = "Date"
	ColLocation     = "Location"
	ColSunshine     = "Sunshine"
	ColHumidity3pm  = "Humidity3pm"
	ColCloud3pm     = "Cloud3pm"
	ColRainToday    = "RainToday"
	ColRainTomorrow = "RainTomorrow"

	maxOktas = 8

	dateLayout     = "2006-01-02"
	dateTimeLayout = "2006-01-02 15:04:05"
)

var (
	// ErrMissingColumn is returned when a required column is absent from the header.
	ErrMissingColumn = errors.New("missing required column")

	// ErrBadValue is returned when a cell cannot be parsed.
	ErrBadValue = errors.New("unparseable value")
)

var requiredColumns = []string{ColDate, ColLocation, ColRainToday}

// ParseCSV reads a weatherAUS-style CSV and returns one feature table per
// location, sorted by location name. Rows with an unknown RainToday are
// skipped, since their outcome cannot serve as a label.
func ParseCSV(r io.Reader) ([]*weather.FeatureTable, error) {
	cr := csv.NewReader(r)
	cr.ReuseRecord = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))] = i
	}
	for _, c := range requiredColumns {
		if _, ok := cols[c]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingColumn, c)
		}
	}

	byLocation := make(map[string][]weather.DailyRecord)
	line := 1
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		loc, rec, ok, err := parseRow(cols, row)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if !ok {
			continue
		}
		byLocation[loc] = append(byLocation[loc], rec)
	}

	names := make([]string, 0, len(byLocation))
	for name := range byLocation {
		names = append(names, name)
	}
	sort.Strings(names)

	tables := make([]*weather.FeatureTable, 0, len(names))
	for _, name := range names {
		t, err := weather.NewFeatureTable(name, byLocation[name])
		if err != nil {
			return nil, err
		}
		tables = append(tables, t)
	}
	return tables, nil
}

func parseRow(cols map[string]int, row []string) (string, weather.DailyRecord, bool, error) {
	var rec weather.DailyRecord

	loc := cell(cols, row, ColLocation)
	if loc == "" {
		return "", rec, false, fmt.Errorf("%w: empty %s", ErrBadValue, ColLocation)
	}

	date, err := parseDate(cell(cols, row, ColDate))
	if err != nil {
		return "", rec, false, err
	}
	rec.Date = date

	today, ok, err := parseYesNo(cell(cols, row, ColRainToday))
	if err != nil {
		return "", rec, false, fmt.Errorf("%s: %w", ColRainToday, err)
	}
	if !ok {
		return "", rec, false, nil
	}
	rec.RainedToday = today

	if rec.SunshineHours, err = parseFloat(cell(cols, row, ColSunshine)); err != nil {
		return "", rec, false, fmt.Errorf("%s: %w", ColSunshine, err)
	}
	if rec.HumidityAfternoon, err = parseFloat(cell(cols, row, ColHumidity3pm)); err != nil {
		return "", rec, false, fmt.Errorf("%s: %w", ColHumidity3pm, err)
	}
	cloud, err := parseFloat(cell(cols, row, ColCloud3pm))
	if err != nil {
		return "", rec, false, fmt.Errorf("%s: %w", ColCloud3pm, err)
	}
	if cloud != nil {
		// Fractional oktas are rounded and kept on the 0-8 scale.
		oktas := min(max(int(math.Round(*cloud)), 0), maxOktas)
		rec.CloudCoverAfternoon = &oktas
	}

	tomorrow, ok, err := parseYesNo(cell(cols, row, ColRainTomorrow))
	if err != nil {
		return "", rec, false, fmt.Errorf("%s: %w", ColRainTomorrow, err)
	}
	if ok {
		rec.RainedTomorrow = &tomorrow
	}
	return loc, rec, true, nil
}

// cell returns the trimmed value of a column, or "" when the column is absent.
func cell(cols map[string]int, row []string, name string) string {
	i, ok := cols[name]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func isMissing(s string) bool {
	switch strings.ToLower(s) {
	case "", "na", "nan", "null":
		return true
	}
	return false
}

func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse(dateLayout, s); err == nil {
		return t, nil
	}
	if t, err := time.Parse(dateTimeLayout, s); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("%w: date %q", ErrBadValue, s)
}

func parseFloat(s string) (*float64, error) {
	if isMissing(s) {
		return nil, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) {
		return nil, fmt.Errorf("%w: %q", ErrBadValue, s)
	}
	return &v, nil
}

// parseYesNo accepts Yes/No as well as 1/0 from pre-binarised exports.
func parseYesNo(s string) (value bool, ok bool, err error) {
	if isMissing(s) {
		return false, false, nil
	}
	switch strings.ToLower(s) {
	case "yes", "1", "1.0", "true":
		return true, true, nil
	case "no", "0", "0.0", "false":
		return false, true, nil
	}
	return false, false, fmt.Errorf("%w: %q", ErrBadValue, s)
}
