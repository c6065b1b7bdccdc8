package weather

import "time"

// Outcome is the verification state of one forecast day.
type Outcome string

const (
	OutcomeCorrect   Outcome = "correct"
	OutcomeIncorrect Outcome = "incorrect"
	OutcomePending   Outcome = "pending"
)

// DayVerification compares one forecast day with the recorded weather.
type DayVerification struct {
	Date          time.Time `json:"date"`
	PredictedRain bool      `json:"predictedRain"`
	ActualRain    *bool     `json:"actualRain,omitempty"`
	Outcome       Outcome   `json:"outcome"`
}

// Verification holds the checks for both forecast days.
type Verification struct {
	Day1 DayVerification `json:"day1"`
	Day2 DayVerification `json:"day2"`
}

// Verify checks a forecast issued on anchorDate against the RainedToday
// values recorded for the following two days. Days with no record are pending.
func Verify(table *FeatureTable, anchorDate time.Time, f Forecast) Verification {
	day := truncateDay(anchorDate)
	return Verification{
		Day1: verifyDay(table, day.AddDate(0, 0, 1), f.Day1),
		Day2: verifyDay(table, day.AddDate(0, 0, 2), f.Day2),
	}
}

func verifyDay(table *FeatureTable, date time.Time, d DayForecast) DayVerification {
	v := DayVerification{
		Date:          date,
		PredictedRain: d.RainExpected(),
		Outcome:       OutcomePending,
	}
	rec, ok := table.RecordOn(date)
	if !ok {
		return v
	}
	actual := rec.RainedToday
	v.ActualRain = &actual
	if v.PredictedRain == actual {
		v.Outcome = OutcomeCorrect
	} else {
		v.Outcome = OutcomeIncorrect
	}
	return v
}
