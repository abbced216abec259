package boundary

import (
	"github.com/pkg/errors"

	"github.com/migalabs/valscore/pkg/model"
)

// BuildDates returns the days analyzed before end plus end itself, oldest first. end only
// bounds the last analyzed day.
func BuildDates(end model.Day, days int) []model.Day {
	if days <= 0 {
		return nil
	}
	dates := make([]model.Day, 0, days+1)
	for i := days; i >= 0; i-- {
		dates = append(dates, end.AddDays(-i))
	}
	return dates
}

// Ranges turns consecutive boundaries into the block range of each analyzed day.
// The trailing boundary closes the previous day and gets no range of its own.
func Ranges(boundaries []model.DayBoundary) (model.DayRanges, error) {
	if len(boundaries) < 2 {
		return nil, errors.Wrap(model.ErrNoNextBoundary, "at least two boundaries are needed")
	}
	ranges := make(model.DayRanges, 0, len(boundaries)-1)
	for i := 0; i < len(boundaries)-1; i++ {
		cur, next := boundaries[i], boundaries[i+1]
		if next.Block <= cur.Block {
			return nil, errors.Errorf("boundaries are not strictly increasing: %s at %d, %s at %d",
				cur.Date, cur.Block, next.Date, next.Block)
		}
		ranges = append(ranges, model.DayRange{
			Date:  cur.Date,
			Start: cur.Block,
			End:   next.Block - 1,
		})
	}
	return ranges, nil
}
