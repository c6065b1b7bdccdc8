package weather

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var epoch = time.Date(2017, time.March, 1, 0, 0, 0, 0, time.UTC)

func ptr[T any](v T) *T { return &v }

// sparse returns the i-th day of a calendar with one-day gaps, so source
// labels survive table construction.
func sparse(i int) time.Time { return epoch.AddDate(0, 0, 2*i) }

// consecutive returns the i-th day of a gapless calendar.
func consecutive(i int) time.Time { return epoch.AddDate(0, 0, i) }

func obs(date time.Time, sun, hum float64, cloud int, today bool, tomorrow *bool) DailyRecord {
	return DailyRecord{
		Date:                date,
		SunshineHours:       ptr(sun),
		HumidityAfternoon:   ptr(hum),
		CloudCoverAfternoon: ptr(cloud),
		RainedToday:         today,
		RainedTomorrow:      tomorrow,
	}
}

// builder appends records on the sparse calendar.
type builder struct {
	records []DailyRecord
}

func (b *builder) add(n int, sun, hum float64, cloud int, today, tomorrow bool) *builder {
	for range n {
		b.records = append(b.records, obs(sparse(len(b.records)), sun, hum, cloud, today, ptr(tomorrow)))
	}
	return b
}

func (b *builder) table(t *testing.T) *FeatureTable {
	t.Helper()
	table, err := NewFeatureTable("Testville", b.records)
	require.NoError(t, err)
	return table
}

// next is an anchor dated after everything the builder holds.
func (b *builder) next(sun, hum float64, cloud int, today bool) DailyRecord {
	return obs(sparse(len(b.records)+1), sun, hum, cloud, today, nil)
}
