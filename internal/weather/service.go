package weather

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Prediction is a forecast resolved for a location and requested date,
// together with its verification against recorded history.
type Prediction struct {
	Location      string       `json:"location"`
	RequestedDate time.Time    `json:"requestedDate,omitzero"`
	Anchor        DailyRecord  `json:"anchor"`
	Clamped       bool         `json:"clamped"`
	Forecast      Forecast     `json:"forecast"`
	Verification  Verification `json:"verification"`
}

// Service orchestrates loading history from a source into a store and
// answering forecast requests against it.
type Service struct {
	store     Store
	source    Source
	estimator *Estimator
	backtest  *Estimator
	logger    *slog.Logger
}

// NewService creates a new Service. A nil estimator uses the defaults.
func NewService(store Store, source Source, estimator *Estimator, logger *slog.Logger) *Service {
	if estimator == nil {
		estimator = NewEstimator()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:     store,
		source:    source,
		estimator: estimator,
		backtest:  NewEstimator(WithMissingPolicy(estimator.Policy()), WithoutLookahead()),
		logger:    logger,
	}
}

// Reload fetches every table from the source and swaps them into the store.
// On failure the previously published tables stay in place.
func (s *Service) Reload(ctx context.Context) error {
	if s.source == nil {
		return fmt.Errorf("no history source configured")
	}
	start := time.Now()
	tables, err := s.source.Load(ctx)
	if err != nil {
		return fmt.Errorf("load %s: %w", s.source.Name(), err)
	}
	if len(tables) == 0 {
		return ErrNoTables
	}

	records, relabeled := 0, 0
	for _, t := range tables {
		records += t.Len()
		relabeled += t.Relabeled
	}
	if err := s.store.ReplaceTables(tables); err != nil {
		return fmt.Errorf("publish tables: %w", err)
	}

	s.logger.Info("history reloaded",
		"source", s.source.Name(),
		"locations", len(tables),
		"records", records,
		"relabeled", relabeled,
		"took", time.Since(start),
	)
	if relabeled > 0 {
		s.logger.Warn("rain-tomorrow labels disagreed with the following day and were derived",
			"count", relabeled,
		)
	}
	return nil
}

// Locations lists the locations with history.
func (s *Service) Locations() ([]LocationSummary, error) {
	return s.store.Locations()
}

// Predict forecasts the two days after the latest record on or before date.
// A zero date anchors on the most recent record.
func (s *Service) Predict(location string, date time.Time) (Prediction, error) {
	table, err := s.store.GetTable(location)
	if err != nil {
		return Prediction{}, err
	}
	anchor, clamped, ok := table.AnchorOn(date)
	if !ok {
		return Prediction{}, &InsufficientDataError{Location: location}
	}

	forecast, err := s.estimator.Estimate(table, anchor)
	if err != nil {
		return Prediction{}, err
	}

	s.logger.Debug("forecast computed",
		"location", location,
		"anchor", anchor.Date.Format(dateLayout),
		"day1_basis", forecast.Day1.Basis,
		"day2_basis", forecast.Day2.Basis,
	)

	return Prediction{
		Location:      location,
		RequestedDate: date,
		Anchor:        anchor,
		Clamped:       clamped,
		Forecast:      forecast,
		Verification:  Verify(table, anchor.Date, forecast),
	}, nil
}

// Backtest scores the estimator over [from, to] for a location, never letting
// a forecast see records dated on or after its anchor.
func (s *Service) Backtest(ctx context.Context, location string, from, to time.Time) (BacktestReport, error) {
	table, err := s.store.GetTable(location)
	if err != nil {
		return BacktestReport{}, err
	}
	report, err := Backtest(ctx, s.backtest, table, from, to)
	if err != nil {
		return BacktestReport{}, err
	}
	s.logger.Info("backtest finished",
		"location", location,
		"anchors", report.Anchors,
		"day1_accuracy", report.Day1.Accuracy,
		"day2_accuracy", report.Day2.Accuracy,
	)
	return report, nil
}

// EstimateRecords estimates over caller-supplied history instead of the
// store, for callers that own their own table.
func (s *Service) EstimateRecords(location string, history []DailyRecord, anchor DailyRecord) (Forecast, error) {
	table, err := NewFeatureTable(location, history)
	if err != nil {
		return Forecast{}, err
	}
	return s.estimator.Estimate(table, anchor)
}
