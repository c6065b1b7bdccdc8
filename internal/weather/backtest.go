package weather

import (
	"context"
	"time"
)

// DayScore accumulates verification results for one forecast horizon.
type DayScore struct {
	Correct   int `json:"correct"`
	Incorrect int `json:"incorrect"`
	Pending   int `json:"pending"`

	// Accuracy is Correct over verifiable days, zero when none were verifiable.
	Accuracy float64 `json:"accuracy"`

	// Brier is the mean squared error of the probability against the outcome.
	Brier float64 `json:"brier"`

	brierSum float64
}

func (s *DayScore) add(d DayForecast, v DayVerification) {
	switch v.Outcome {
	case OutcomeCorrect:
		s.Correct++
	case OutcomeIncorrect:
		s.Incorrect++
	default:
		s.Pending++
		return
	}
	p := d.ProbabilityPercent / 100
	o := 0.0
	if *v.ActualRain {
		o = 1
	}
	s.brierSum += (p - o) * (p - o)
}

func (s *DayScore) finish() {
	n := s.Correct + s.Incorrect
	if n == 0 {
		return
	}
	s.Accuracy = float64(s.Correct) / float64(n)
	s.Brier = s.brierSum / float64(n)
}

// BacktestReport summarises forecasts replayed over a date range.
type BacktestReport struct {
	Location string    `json:"location"`
	From     time.Time `json:"from"`
	To       time.Time `json:"to"`
	Anchors  int       `json:"anchors"`
	Day1     DayScore  `json:"day1"`
	Day2     DayScore  `json:"day2"`
}

// Backtest replays the estimator for every record in [from, to] and scores
// each forecast against what was recorded afterwards. The estimator should be
// built WithoutLookahead so each forecast only sees its own past.
func Backtest(ctx context.Context, e *Estimator, table *FeatureTable, from, to time.Time) (BacktestReport, error) {
	report := BacktestReport{
		Location: table.Location(),
		From:     truncateDay(from),
		To:       truncateDay(to),
	}
	for _, anchor := range table.Between(from, to) {
		if err := ctx.Err(); err != nil {
			return BacktestReport{}, err
		}
		f, err := e.Estimate(table, anchor)
		if err != nil {
			// The earliest anchors have no labelled past without lookahead.
			if IsInsufficientData(err) {
				continue
			}
			return BacktestReport{}, err
		}
		v := Verify(table, anchor.Date, f)
		report.Day1.add(f.Day1, v.Day1)
		report.Day2.add(f.Day2, v.Day2)
		report.Anchors++
	}
	report.Day1.finish()
	report.Day2.finish()
	return report, nil
}
