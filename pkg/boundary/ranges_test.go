package boundary

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/migalabs/valscore/pkg/model"
)

func TestBuildDates(t *testing.T) {
	dates := BuildDates(firstDay.AddDays(7), 7)
	require.Len(t, dates, 8)
	require.Equal(t, firstDay, dates[0])
	require.Equal(t, "2025-01-08", dates[7].String())
	require.Nil(t, BuildDates(firstDay, 0))
}

func TestRanges(t *testing.T) {
	boundaries := []model.DayBoundary{
		{Date: firstDay, Block: 100},
		{Date: firstDay.AddDays(1), Block: 250},
		{Date: firstDay.AddDays(2), Block: 400},
	}
	ranges, err := Ranges(boundaries)
	require.NoError(t, err)
	require.Len(t, ranges, 2)

	for i, r := range ranges {
		require.Equal(t, boundaries[i].Date, r.Date)
		require.Equal(t, boundaries[i].Block, r.Start)
		require.Equal(t, boundaries[i+1].Block-1, r.End)
		if i > 0 {
			require.Greater(t, r.Start, ranges[i-1].End)
		}
	}

	d, ok := ranges.DayOf(249)
	require.True(t, ok)
	require.Equal(t, firstDay, d)
	_, ok = ranges.DayOf(400)
	require.False(t, ok)
}

func TestRangesErrors(t *testing.T) {
	_, err := Ranges([]model.DayBoundary{{Date: firstDay, Block: 100}})
	require.ErrorIs(t, err, model.ErrNoNextBoundary)

	_, err = Ranges([]model.DayBoundary{
		{Date: firstDay, Block: 100},
		{Date: firstDay.AddDays(1), Block: 100},
	})
	require.Error(t, err)
}
