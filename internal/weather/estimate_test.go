package weather

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEstimate_TightWindow(t *testing.T) {
	b := &builder{}
	b.add(9, 8, 50, 4, false, true).
		add(3, 8, 50, 4, false, false).
		add(8, 0, 95, 8, true, true)
	table := b.table(t)
	require.Equal(t, 20, table.Len())

	f, err := Estimate(table, b.next(8, 50, 4, false))
	require.NoError(t, err)

	assert.Equal(t, 75.0, f.Day1.ProbabilityPercent)
	assert.Equal(t, 12, f.Day1.Confidence)
	assert.Equal(t, BasisTight, f.Day1.Basis)
	assert.Equal(t, 12, f.Day1.Matches)

	// Day 1 reads as rain, so day 2 looks for rainy days around the mean of
	// the day-1 analogs and finds none.
	assert.Equal(t, BasisClimatology, f.Day2.Basis)
	assert.Equal(t, 85.0, f.Day2.ProbabilityPercent)
	assert.Equal(t, FallbackConfidenceDay2, f.Day2.Confidence)
	assert.Zero(t, f.Day2.Matches)
}

func TestEstimate_ClimatologyFallback(t *testing.T) {
	b := &builder{}
	b.add(2, 5, 60, 6, false, true).
		add(3, 5, 60, 6, false, false)
	table := b.table(t)

	f, err := Estimate(table, b.next(5, 60, 6, false))
	require.NoError(t, err)

	assert.Equal(t, 40.0, f.Day1.ProbabilityPercent)
	assert.Equal(t, FallbackConfidenceDay1, f.Day1.Confidence)
	assert.Equal(t, BasisClimatology, f.Day1.Basis)
	assert.Equal(t, 40.0, f.Day2.ProbabilityPercent)
	assert.Equal(t, FallbackConfidenceDay2, f.Day2.Confidence)
	assert.Equal(t, BasisClimatology, f.Day2.Basis)
}

func TestEstimate_InsufficientData(t *testing.T) {
	t.Run("empty table", func(t *testing.T) {
		table, err := NewFeatureTable("Nowhere", nil)
		require.NoError(t, err)

		_, err = Estimate(table, obs(sparse(0), 5, 50, 4, false, nil))
		require.Error(t, err)
		assert.True(t, IsInsufficientData(err))
	})

	t.Run("nil table", func(t *testing.T) {
		_, err := Estimate(nil, obs(sparse(0), 5, 50, 4, false, nil))
		assert.True(t, IsInsufficientData(err))
	})

	t.Run("no labelled records", func(t *testing.T) {
		table, err := NewFeatureTable("Nowhere", []DailyRecord{
			obs(sparse(0), 5, 50, 4, false, nil),
			obs(sparse(1), 6, 55, 4, true, nil),
		})
		require.NoError(t, err)

		_, err = Estimate(table, obs(sparse(2), 5, 50, 4, false, nil))
		var insufficient *InsufficientDataError
		require.ErrorAs(t, err, &insufficient)
		assert.Equal(t, "Nowhere", insufficient.Location)
		assert.Equal(t, 2, insufficient.Records)
	})
}

func TestEstimate_TightTakesPriority(t *testing.T) {
	b := &builder{}
	b.add(10, 8, 50, 4, false, true).
		add(10, 13, 50, 4, false, false)

	f, err := Estimate(b.table(t), b.next(8, 50, 4, false))
	require.NoError(t, err)

	assert.Equal(t, BasisTight, f.Day1.Basis)
	assert.Equal(t, 10, f.Day1.Matches)
	assert.Equal(t, 100.0, f.Day1.ProbabilityPercent)
}

func TestEstimate_BroadReplacesTight(t *testing.T) {
	b := &builder{}
	b.add(6, 8, 50, 4, false, true).
		add(6, 13, 50, 4, false, false)

	f, err := Estimate(b.table(t), b.next(8, 50, 4, false))
	require.NoError(t, err)

	assert.Equal(t, BasisBroad, f.Day1.Basis)
	assert.Equal(t, 12, f.Day1.Matches)
	assert.Equal(t, 12, f.Day1.Confidence)
	assert.Equal(t, 50.0, f.Day1.ProbabilityPercent)
}

func TestEstimate_WindowBoundsInclusive(t *testing.T) {
	b := &builder{}
	b.add(5, 11, 65, 5, false, true).
		add(5, 5, 35, 3, false, false)

	f, err := Estimate(b.table(t), b.next(8, 50, 4, false))
	require.NoError(t, err)

	assert.Equal(t, BasisTight, f.Day1.Basis)
	assert.Equal(t, 10, f.Day1.Matches)
}

func TestEstimate_RainedTodayMustMatch(t *testing.T) {
	b := &builder{}
	b.add(10, 8, 50, 4, true, true).
		add(3, 8, 50, 4, false, false)

	f, err := Estimate(b.table(t), b.next(8, 50, 4, false))
	require.NoError(t, err)

	assert.Equal(t, BasisClimatology, f.Day1.Basis)
	assert.InDelta(t, 100*10.0/13.0, f.Day1.ProbabilityPercent, 1e-9)
}

func TestEstimate_ConfidenceCapped(t *testing.T) {
	b := &builder{}
	b.add(150, 8, 50, 4, false, true)

	f, err := Estimate(b.table(t), b.next(8, 50, 4, false))
	require.NoError(t, err)

	assert.Equal(t, 150, f.Day1.Matches)
	assert.Equal(t, MaxConfidence, f.Day1.Confidence)
}

func TestEstimate_Day2SearchesAroundMeanOfDay1Analogs(t *testing.T) {
	b := &builder{}
	// Day-1 analogs average to sunshine 8.5, humidity 32.5, cloud 1.5.
	b.add(5, 7, 25, 1, false, true).
		add(5, 10, 40, 2, false, true).
		// Within the day-2 tight window of the mean but no window of the anchor.
		add(6, 4.5, 12.5, 0, true, true).
		add(4, 4.5, 12.5, 0, true, false)

	f, err := Estimate(b.table(t), b.next(10, 40, 2, false))
	require.NoError(t, err)

	assert.Equal(t, BasisTight, f.Day1.Basis)
	assert.Equal(t, 10, f.Day1.Matches)
	assert.Equal(t, 100.0, f.Day1.ProbabilityPercent)

	assert.Equal(t, BasisTight, f.Day2.Basis)
	assert.Equal(t, 10, f.Day2.Matches)
	assert.Equal(t, 60.0, f.Day2.ProbabilityPercent)
	assert.Equal(t, 10, f.Day2.Confidence)
}

func TestEstimate_Day2UsesAnchorWhenDay1FallsBack(t *testing.T) {
	b := &builder{}
	b.add(10, 10, 40, 2, true, true)

	f, err := Estimate(b.table(t), b.next(10, 40, 2, false))
	require.NoError(t, err)

	assert.Equal(t, BasisClimatology, f.Day1.Basis)
	assert.Equal(t, 100.0, f.Day1.ProbabilityPercent)

	assert.Equal(t, BasisTight, f.Day2.Basis)
	assert.Equal(t, 10, f.Day2.Matches)
	assert.Equal(t, 100.0, f.Day2.ProbabilityPercent)
}

func TestEstimate_Day2UsesPartialMatchesWhenDay1FallsBack(t *testing.T) {
	b := &builder{}
	// Five broad analogs of the anchor: too few for day 1, but their mean
	// (5, 20, 0) seeds day 2.
	b.add(5, 5, 20, 0, false, false).
		add(10, 2, 5, 0, false, true).
		add(10, 0, 95, 8, true, false)

	f, err := Estimate(b.table(t), b.next(10, 40, 2, false))
	require.NoError(t, err)

	assert.Equal(t, BasisClimatology, f.Day1.Basis)
	assert.Equal(t, 40.0, f.Day1.ProbabilityPercent)
	assert.Zero(t, f.Day1.Matches)

	assert.Equal(t, BasisTight, f.Day2.Basis)
	assert.Equal(t, 15, f.Day2.Matches)
	assert.Equal(t, 15, f.Day2.Confidence)
	assert.InDelta(t, 100*10.0/15.0, f.Day2.ProbabilityPercent, 1e-9)
}

func TestEstimate_Day2BroadWidensCloudOnly(t *testing.T) {
	b := &builder{}
	b.add(10, 8, 50, 4, false, true).
		add(10, 8, 50, 7, true, false).
		add(10, 12.5, 50, 4, true, true)

	f, err := Estimate(b.table(t), b.next(8, 50, 4, false))
	require.NoError(t, err)

	assert.Equal(t, 100.0, f.Day1.ProbabilityPercent)
	assert.Equal(t, BasisBroad, f.Day2.Basis)
	assert.Equal(t, 10, f.Day2.Matches)
	assert.Equal(t, 0.0, f.Day2.ProbabilityPercent)
}

func TestEstimate_FiftyPercentIsNotRainForChaining(t *testing.T) {
	b := &builder{}
	b.add(5, 8, 50, 4, false, true).
		add(5, 8, 50, 4, false, false).
		add(10, 0, 95, 8, true, true)

	f, err := Estimate(b.table(t), b.next(8, 50, 4, false))
	require.NoError(t, err)

	assert.Equal(t, 50.0, f.Day1.ProbabilityPercent)
	assert.True(t, f.Day1.RainExpected())

	// Day 2 keeps searching dry days, so it finds the day-1 analogs again.
	assert.Equal(t, BasisTight, f.Day2.Basis)
	assert.Equal(t, 10, f.Day2.Matches)
	assert.Equal(t, 50.0, f.Day2.ProbabilityPercent)
}

func TestEstimate_MissingPolicy(t *testing.T) {
	var records []DailyRecord
	for i := range 10 {
		records = append(records, DailyRecord{Date: sparse(i), RainedTomorrow: ptr(true)})
	}
	records = append(records, obs(sparse(10), 9, 70, 6, false, ptr(false)))
	table, err := NewFeatureTable("Testville", records)
	require.NoError(t, err)
	anchor := DailyRecord{Date: sparse(12)}

	t.Run("zero", func(t *testing.T) {
		f, err := NewEstimator(WithMissingPolicy(MissingAsZero)).Estimate(table, anchor)
		require.NoError(t, err)

		assert.Equal(t, BasisTight, f.Day1.Basis)
		assert.Equal(t, 10, f.Day1.Matches)
		assert.Equal(t, 100.0, f.Day1.ProbabilityPercent)
	})

	t.Run("exclude", func(t *testing.T) {
		f, err := NewEstimator(WithMissingPolicy(MissingExcluded)).Estimate(table, anchor)
		require.NoError(t, err)

		assert.Equal(t, BasisClimatology, f.Day1.Basis)
		assert.Equal(t, FallbackConfidenceDay1, f.Day1.Confidence)
		assert.InDelta(t, 100*10.0/11.0, f.Day1.ProbabilityPercent, 1e-9)
		assert.Equal(t, BasisClimatology, f.Day2.Basis)
		assert.Equal(t, FallbackConfidenceDay2, f.Day2.Confidence)
	})

	t.Run("exclude drops incomplete analogs", func(t *testing.T) {
		f, err := NewEstimator(WithMissingPolicy(MissingExcluded)).Estimate(table, obs(sparse(12), 0, 0, 0, false, nil))
		require.NoError(t, err)
		assert.Equal(t, BasisClimatology, f.Day1.Basis)
	})
}

func TestEstimate_WithoutLookahead(t *testing.T) {
	b := &builder{}
	b.add(10, 8, 50, 4, false, false).
		add(10, 8, 50, 4, false, true)
	table := b.table(t)
	anchor := table.Records()[10]

	f, err := NewEstimator().Estimate(table, anchor)
	require.NoError(t, err)
	assert.Equal(t, 20, f.Day1.Matches)
	assert.Equal(t, 50.0, f.Day1.ProbabilityPercent)

	f, err = NewEstimator(WithoutLookahead()).Estimate(table, anchor)
	require.NoError(t, err)
	assert.Equal(t, 10, f.Day1.Matches)
	assert.Equal(t, 0.0, f.Day1.ProbabilityPercent)
}

func TestEstimate_Idempotent(t *testing.T) {
	b := &builder{}
	b.add(7, 8, 50, 4, false, true).
		add(7, 11, 60, 5, false, false).
		add(7, 2, 85, 7, true, true)
	table := b.table(t)
	anchor := b.next(9, 55, 4, false)

	first, err := Estimate(table, anchor)
	require.NoError(t, err)
	second, err := Estimate(table, anchor)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	for _, d := range []DayForecast{first.Day1, first.Day2} {
		assert.GreaterOrEqual(t, d.ProbabilityPercent, 0.0)
		assert.LessOrEqual(t, d.ProbabilityPercent, 100.0)
		assert.GreaterOrEqual(t, d.Confidence, 0)
		assert.LessOrEqual(t, d.Confidence, MaxConfidence)
	}
}

func TestMissingPolicy_String(t *testing.T) {
	assert.Equal(t, "zero", MissingAsZero.String())
	assert.Equal(t, "exclude", MissingExcluded.String())
}
