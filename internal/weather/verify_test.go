package weather

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVerify(t *testing.T) {
	table, err := NewFeatureTable("Cairns", []DailyRecord{
		obs(consecutive(0), 5, 50, 4, false, nil),
		obs(consecutive(1), 5, 50, 4, true, nil),
		obs(consecutive(2), 5, 50, 4, true, nil),
	})
	require.NoError(t, err)

	f := Forecast{
		Day1: DayForecast{ProbabilityPercent: 50},
		Day2: DayForecast{ProbabilityPercent: 49.9},
	}

	v := Verify(table, consecutive(0), f)
	assert.Equal(t, consecutive(1), v.Day1.Date)
	assert.True(t, v.Day1.PredictedRain)
	require.NotNil(t, v.Day1.ActualRain)
	assert.True(t, *v.Day1.ActualRain)
	assert.Equal(t, OutcomeCorrect, v.Day1.Outcome)

	assert.Equal(t, consecutive(2), v.Day2.Date)
	assert.False(t, v.Day2.PredictedRain)
	assert.Equal(t, OutcomeIncorrect, v.Day2.Outcome)
}

func TestVerify_PendingAtEndOfHistory(t *testing.T) {
	table, err := NewFeatureTable("Cairns", []DailyRecord{
		obs(consecutive(0), 5, 50, 4, false, nil),
		obs(consecutive(1), 5, 50, 4, false, nil),
	})
	require.NoError(t, err)

	v := Verify(table, consecutive(1), Forecast{})
	assert.Equal(t, OutcomePending, v.Day1.Outcome)
	assert.Nil(t, v.Day1.ActualRain)
	assert.Equal(t, OutcomePending, v.Day2.Outcome)
}
