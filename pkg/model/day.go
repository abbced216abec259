package model

import (
	"fmt"
	"sort"
	"time"
)

const DayLayout = "2006-01-02"

// Day is a UTC calendar date, stored as its midnight.
type Day struct {
	time.Time
}

func NewDay(t time.Time) Day {
	t = t.UTC()
	return Day{time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)}
}

func ParseDay(s string) (Day, error) {
	t, err := time.ParseInLocation(DayLayout, s, time.UTC)
	if err != nil {
		return Day{}, err
	}
	return NewDay(t), nil
}

func (d Day) String() string {
	return d.Format(DayLayout)
}

// Midnight returns the unix timestamp of the day's 00:00:00 UTC.
func (d Day) Midnight() uint64 {
	return uint64(d.Unix())
}

func (d Day) AddDays(n int) Day {
	return Day{d.Time.AddDate(0, 0, n)}
}

// DayBoundary maps a date to the first block with timestamp >= its midnight.
type DayBoundary struct {
	Date  Day
	Block uint64
}

// DayRange is the inclusive block range [Start, End] produced during Date.
type DayRange struct {
	Date  Day
	Start uint64
	End   uint64
}

func (r DayRange) Blocks() uint64 {
	return r.End - r.Start + 1
}

func (r DayRange) String() string {
	return fmt.Sprintf("%s[%d:%d]", r.Date, r.Start, r.End)
}

// DayRanges is ordered by date, with non overlapping ascending block ranges.
type DayRanges []DayRange

// DayOf returns the date whose range contains block.
func (rs DayRanges) DayOf(block uint64) (Day, bool) {
	i := sort.Search(len(rs), func(i int) bool {
		return rs[i].End >= block
	})
	if i < len(rs) && rs[i].Start <= block {
		return rs[i].Date, true
	}
	return Day{}, false
}

// Span returns the first and last block covered by all ranges.
func (rs DayRanges) Span() (uint64, uint64) {
	if len(rs) == 0 {
		return 0, 0
	}
	return rs[0].Start, rs[len(rs)-1].End
}

func (rs DayRanges) Dates() []Day {
	out := make([]Day, 0, len(rs))
	for _, r := range rs {
		out = append(out, r.Date)
	}
	return out
}
