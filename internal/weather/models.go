package weather

import (
	"errors"
	"fmt"
	"sort"
	"time"
)

var (
	// ErrDuplicateDate is returned when a location carries two records for the same day.
	ErrDuplicateDate = errors.New("duplicate record date")

	// ErrInvalidRecord is returned when a record carries an out-of-range feature.
	ErrInvalidRecord = errors.New("invalid daily record")
)

const dateLayout = "2006-01-02"

// DailyRecord is one observation for one location and calendar day.
// Nil feature pointers mean the value was not observed.
type DailyRecord struct {
	Date                time.Time `json:"date"`
	SunshineHours       *float64  `json:"sunshineHours,omitempty" validate:"omitempty,gte=0,lte=24"`
	HumidityAfternoon   *float64  `json:"humidityAfternoon,omitempty" validate:"omitempty,gte=0,lte=100"`
	CloudCoverAfternoon *int      `json:"cloudCoverAfternoon,omitempty" validate:"omitempty,gte=0,lte=8"`
	RainedToday         bool      `json:"rainedToday"`

	// RainedTomorrow is nil for the last known day of a location.
	RainedTomorrow *bool `json:"rainedTomorrow,omitempty"`
}

func (r DailyRecord) validate() error {
	if r.Date.IsZero() {
		return fmt.Errorf("%w: missing date", ErrInvalidRecord)
	}
	day := r.Date.Format(dateLayout)
	if r.SunshineHours != nil && (*r.SunshineHours < 0 || *r.SunshineHours > 24) {
		return fmt.Errorf("%w: %s sunshine %.1fh outside [0,24]", ErrInvalidRecord, day, *r.SunshineHours)
	}
	if r.HumidityAfternoon != nil && (*r.HumidityAfternoon < 0 || *r.HumidityAfternoon > 100) {
		return fmt.Errorf("%w: %s humidity %.1f%% outside [0,100]", ErrInvalidRecord, day, *r.HumidityAfternoon)
	}
	if r.CloudCoverAfternoon != nil && (*r.CloudCoverAfternoon < 0 || *r.CloudCoverAfternoon > 8) {
		return fmt.Errorf("%w: %s cloud cover %d outside [0,8]", ErrInvalidRecord, day, *r.CloudCoverAfternoon)
	}
	return nil
}

// FeatureTable is the date-ordered history of one location.
// It is immutable once built, so it can be shared between concurrent requests.
type FeatureTable struct {
	location string
	records  []DailyRecord

	// Relabeled counts source RainedTomorrow labels that disagreed with the
	// following day's RainedToday and were overwritten.
	Relabeled int
}

// NewFeatureTable sorts records by date, rejects duplicates and invalid
// features, and derives RainedTomorrow from the next consecutive day.
func NewFeatureTable(location string, records []DailyRecord) (*FeatureTable, error) {
	out := make([]DailyRecord, len(records))
	for i, r := range records {
		if err := r.validate(); err != nil {
			return nil, fmt.Errorf("%s: %w", location, err)
		}
		r.Date = truncateDay(r.Date)
		out[i] = r
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })

	t := &FeatureTable{location: location, records: out}
	for i := range out {
		if i > 0 && out[i].Date.Equal(out[i-1].Date) {
			return nil, fmt.Errorf("%s: %w: %s", location, ErrDuplicateDate, out[i].Date.Format(dateLayout))
		}
		if i+1 == len(out) || !out[i+1].Date.Equal(out[i].Date.AddDate(0, 0, 1)) {
			continue
		}
		next := out[i+1].RainedToday
		if out[i].RainedTomorrow != nil && *out[i].RainedTomorrow != next {
			t.Relabeled++
		}
		out[i].RainedTomorrow = &next
	}
	return t, nil
}

// Location returns the name of the location the table belongs to.
func (t *FeatureTable) Location() string {
	return t.location
}

// Len returns the number of records.
func (t *FeatureTable) Len() int {
	if t == nil {
		return 0
	}
	return len(t.records)
}

// Records returns a copy of the records in date order.
func (t *FeatureTable) Records() []DailyRecord {
	out := make([]DailyRecord, len(t.records))
	copy(out, t.records)
	return out
}

// First returns the earliest date in the table.
func (t *FeatureTable) First() time.Time {
	if t.Len() == 0 {
		return time.Time{}
	}
	return t.records[0].Date
}

// Last returns the latest date in the table.
func (t *FeatureTable) Last() time.Time {
	if t.Len() == 0 {
		return time.Time{}
	}
	return t.records[len(t.records)-1].Date
}

// RecordOn returns the record for the given calendar day.
func (t *FeatureTable) RecordOn(date time.Time) (DailyRecord, bool) {
	day := truncateDay(date)
	i := sort.Search(len(t.records), func(i int) bool { return !t.records[i].Date.Before(day) })
	if i < len(t.records) && t.records[i].Date.Equal(day) {
		return t.records[i], true
	}
	return DailyRecord{}, false
}

// AnchorOn resolves a requested date to the latest record on or before it.
// A zero date resolves to the latest record. When the date precedes the
// whole table the first record is returned with clamped set.
func (t *FeatureTable) AnchorOn(date time.Time) (rec DailyRecord, clamped bool, ok bool) {
	if t.Len() == 0 {
		return DailyRecord{}, false, false
	}
	if date.IsZero() {
		return t.records[len(t.records)-1], false, true
	}
	day := truncateDay(date)
	i := sort.Search(len(t.records), func(i int) bool { return t.records[i].Date.After(day) })
	if i == 0 {
		return t.records[0], true, true
	}
	return t.records[i-1], false, true
}

// Between returns the records dated within [from, to].
func (t *FeatureTable) Between(from, to time.Time) []DailyRecord {
	from, to = truncateDay(from), truncateDay(to)
	var out []DailyRecord
	for _, r := range t.records {
		if r.Date.Before(from) || r.Date.After(to) {
			continue
		}
		out = append(out, r)
	}
	return out
}

// LocationSummary describes the history available for one location.
type LocationSummary struct {
	Name    string    `json:"name"`
	From    time.Time `json:"from"`
	To      time.Time `json:"to"`
	Records int       `json:"records"`
}

// Summary returns the table's LocationSummary.
func (t *FeatureTable) Summary() LocationSummary {
	return LocationSummary{
		Name:    t.location,
		From:    t.First(),
		To:      t.Last(),
		Records: t.Len(),
	}
}

// Basis names the analog set a DayForecast was computed from.
type Basis string

const (
	BasisTight       Basis = "tight"
	BasisBroad       Basis = "broad"
	BasisClimatology Basis = "climatology"
)

// DayForecast is the rain estimate for a single day.
type DayForecast struct {
	ProbabilityPercent float64 `json:"probabilityPercent"`

	// Confidence is the analog count capped at MaxConfidence, or a fixed
	// fallback score when no tier had enough analogs.
	Confidence int `json:"confidence"`

	Basis   Basis `json:"basis"`
	Matches int   `json:"matches"`
}

// RainExpected reports whether the day reads as rainy for verification.
func (d DayForecast) RainExpected() bool {
	return d.ProbabilityPercent >= RainThresholdPercent
}

// Forecast is the two-day estimate produced for one anchor day.
type Forecast struct {
	Day1 DayForecast `json:"day1"`
	Day2 DayForecast `json:"day2"`
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
