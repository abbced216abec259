package scoring

import (
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/migalabs/valscore/pkg/model"
)

var (
	day0 = model.NewDay(time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC))
	day1 = day0.AddDays(1)

	valA = model.Validator{Name: "a", ConsensusAddress: "AA", Pubkey: "0xaa"}
	valB = model.Validator{Name: "b", ConsensusAddress: "BB", Pubkey: "0xbb"}
	valC = model.Validator{Name: "c", ConsensusAddress: "CC", Pubkey: "0xcc"}
)

func snapshot(stake, boost float64) model.Snapshot {
	return model.NewSnapshot(stake, boost, new(big.Int), new(big.Int))
}

func attribution(proposer string, total, empty int) model.Attribution {
	a := make(model.Attribution)
	for i := 0; i < total; i++ {
		a.Add(proposer, uint64(i), i < empty)
	}
	return a
}

func dayInputs() Inputs {
	in := Inputs{
		Ranges:      model.DayRanges{{Date: day0, Start: 0, End: 99}},
		Attribution: map[model.Day]model.Attribution{day0: attribution("AA", 10, 2)},
		Snapshots:   make(model.Snapshots),
		Valuations:  make(model.Valuations),
		Validators:  []model.Validator{valA, valB, valC},
	}
	in.Snapshots.Set(day0, valA.Pubkey, snapshot(100, 50))
	in.Snapshots.Set(day0, valB.Pubkey, snapshot(100, 100))
	in.Valuations.Set(day0, valA.Pubkey, model.DailyValuation{VaultUSD: 40, BoosterUSD: 10, TotalUSD: 50})
	in.Valuations.Set(day0, valB.Pubkey, model.DailyValuation{VaultUSD: 20, BoosterUSD: 0, TotalUSD: 20})
	in.Valuations.Set(day0, valC.Pubkey, model.DailyValuation{VaultUSD: 1000, BoosterUSD: 1000, TotalUSD: 2000})
	return in
}

func byName(rankings []model.ValidatorRanking) map[string]model.ValidatorRanking {
	out := make(map[string]model.ValidatorRanking, len(rankings))
	for _, r := range rankings {
		out[r.Validator.Name] = r
	}
	return out
}

func TestScoreDay(t *testing.T) {
	rankings := Score(dayInputs())
	got := byName(rankings)

	a := got["a"].Days[0]
	require.Equal(t, 80.0, a.UptimeScore)
	require.InDelta(t, 50.0, a.RatioScore, 1e-9)
	require.Equal(t, 100.0, a.VaultScore)
	require.Equal(t, 100.0, a.BoosterScore)
	require.Equal(t, 10, a.TotalBlocks)
	require.Equal(t, 2, a.EmptyBlocks)

	b := got["b"].Days[0]
	require.Equal(t, 100.0, b.UptimeScore, "no blocks is not penalized")
	require.Equal(t, 100.0, b.RatioScore)
	require.InDelta(t, 50.0, b.VaultScore, 1e-9)
	require.Equal(t, 0.0, b.BoosterScore)

	// no stake: value does not count
	c := got["c"].Days[0]
	require.Zero(t, c.VaultScore)
	require.Zero(t, c.BoosterScore)
	require.Zero(t, c.RatioScore)

	require.Equal(t, "a", rankings[0].Validator.Name)
	require.InDelta(t, (80.0+50+100+100)/4, rankings[0].TotalScore, 1e-12)
	require.Equal(t, "b", rankings[1].Validator.Name)
	require.Equal(t, "c", rankings[2].Validator.Name)
}

func TestScoreAllZero(t *testing.T) {
	in := Inputs{
		Ranges:     model.DayRanges{{Date: day0, Start: 0, End: 9}},
		Snapshots:  make(model.Snapshots),
		Valuations: make(model.Valuations),
		Validators: []model.Validator{valA, valB},
	}
	for _, r := range Score(in) {
		d := r.Days[0]
		require.Equal(t, 100.0, d.UptimeScore)
		require.Zero(t, d.RatioScore)
		require.Zero(t, d.VaultScore)
		require.Zero(t, d.BoosterScore)
		require.Equal(t, 25.0, r.TotalScore)
	}
}

func TestScoreAveragesDays(t *testing.T) {
	in := dayInputs()
	in.Ranges = append(in.Ranges, model.DayRange{Date: day1, Start: 100, End: 199})
	in.Attribution[day1] = attribution("AA", 4, 4)
	in.Snapshots.Set(day1, valA.Pubkey, snapshot(300, 300))
	in.Snapshots.Set(day1, valB.Pubkey, snapshot(100, 50))

	a := byName(Score(in))["a"]
	require.Len(t, a.Days, 2)
	require.Equal(t, day1, a.Days[1].Date)
	require.Equal(t, 0.0, a.Days[1].UptimeScore)
	require.Equal(t, 40.0, a.UptimeScore)
	require.InDelta(t, 75.0, a.RatioScore, 1e-9)
	require.Equal(t, 300.0, a.Stake, "most recent stake")
	require.InDelta(t, (a.UptimeScore+a.RatioScore+a.VaultScore+a.BoosterScore)/4, a.TotalScore, 1e-12)
}

func TestScoresStayInRange(t *testing.T) {
	in := dayInputs()
	for _, r := range Score(in) {
		for _, d := range r.Days {
			for _, s := range []float64{d.UptimeScore, d.RatioScore, d.VaultScore, d.BoosterScore} {
				require.GreaterOrEqual(t, s, 0.0)
				require.LessOrEqual(t, s, 100.0)
			}
		}
	}
}

func TestUptime(t *testing.T) {
	tests := []struct {
		total, empty int
		want         float64
	}{
		{10, 2, 80},
		{0, 0, 100},
		{5, 5, 0},
		{4, 0, 100},
		{3, 1, 100 - 100.0/3},
	}
	for _, test := range tests {
		require.InDelta(t, test.want, Uptime(test.total, test.empty), 1e-12)
	}
}

func TestRelative(t *testing.T) {
	require.Equal(t, 50.0, Relative(0.5, 1.0))
	require.Equal(t, 100.0, Relative(1.0, 1.0))
	require.Equal(t, 0.0, Relative(0, 0))
	require.Equal(t, 0.0, Relative(1, 0))
}
