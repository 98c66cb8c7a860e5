package occupancy

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func day(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

func TestOverlaps(t *testing.T) {
	o := Occupancy{StartDate: day(2020, 1, 1), EndDate: day(2021, 12, 31)}

	require.True(t, o.Overlaps(day(2021, 6, 1), day(2021, 12, 1)))
	require.True(t, o.Overlaps(nil, nil))
	require.True(t, o.Overlaps(nil, day(2020, 1, 2)))
	require.False(t, o.Overlaps(day(2022, 1, 1), nil))
	require.False(t, o.Overlaps(day(2021, 12, 31), nil), "touching end is not an overlap")
	require.False(t, o.Overlaps(nil, day(2020, 1, 1)), "touching start is not an overlap")

	open := Occupancy{StartDate: day(2020, 1, 1)}
	require.True(t, open.Overlaps(day(2030, 1, 1), nil))
}

func TestCovers(t *testing.T) {
	o := Occupancy{StartDate: day(2020, 1, 1), EndDate: day(2020, 12, 31)}
	require.True(t, o.Covers(*day(2020, 1, 1)))
	require.True(t, o.Covers(*day(2020, 12, 31)))
	require.False(t, o.Covers(*day(2021, 1, 1)))
	require.True(t, Occupancy{}.Covers(*day(1900, 1, 1)))
}

func TestValidRange(t *testing.T) {
	require.True(t, ValidRange(nil, day(2020, 1, 1)))
	require.True(t, ValidRange(day(2020, 1, 1), day(2020, 1, 1)))
	require.False(t, ValidRange(day(2020, 1, 2), day(2020, 1, 1)))
}

func TestDate_TruncatesToUTCDay(t *testing.T) {
	loc := time.FixedZone("BRT", -3*3600)
	in := time.Date(2024, 3, 5, 22, 30, 0, 0, loc)
	require.Equal(t, time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC), Date(in))
	require.Nil(t, DatePtr(nil))
}
