package scoring

import (
	"sort"

	"github.com/migalabs/valscore/pkg/model"
)

const maxScore = 100.0

// Inputs gathers everything the phases before scoring produced.
type Inputs struct {
	Ranges      model.DayRanges
	Attribution map[model.Day]model.Attribution
	Snapshots   model.Snapshots
	Valuations  model.Valuations
	Validators  []model.Validator
}

// Score computes the daily scores of every validator, averages them over the analyzed days and
// ranks the validators by total score, highest first.
func Score(in Inputs) []model.ValidatorRanking {
	rankings := make([]model.ValidatorRanking, len(in.Validators))
	for i, v := range in.Validators {
		rankings[i] = model.ValidatorRanking{
			Validator: v,
			Days:      make([]model.DailyScore, 0, len(in.Ranges)),
		}
	}

	for _, r := range in.Ranges {
		for i, ds := range scoreDay(r.Date, in) {
			rankings[i].Days = append(rankings[i].Days, ds)
		}
	}

	for i := range rankings {
		aggregate(&rankings[i])
	}
	sort.SliceStable(rankings, func(i, j int) bool {
		if rankings[i].TotalScore != rankings[j].TotalScore {
			return rankings[i].TotalScore > rankings[j].TotalScore
		}
		return rankings[i].Validator.Name < rankings[j].Validator.Name
	})
	return rankings
}

// scoreDay returns the scores of one day, in validator order.
func scoreDay(d model.Day, in Inputs) []model.DailyScore {
	attribution := in.Attribution[d]
	scores := make([]model.DailyScore, len(in.Validators))

	var maxRatio, maxVault, maxBooster float64
	for i, v := range in.Validators {
		snap := in.Snapshots.Get(d, v.Pubkey)
		val := in.Valuations.Get(d, v.Pubkey)
		total, empty := attribution.Counts(v.ProposerKey())

		ds := model.DailyScore{
			Date:        d,
			TotalBlocks: total,
			EmptyBlocks: empty,
			Stake:       snap.Stake,
			Boost:       snap.Boost,
			Ratio:       snap.Ratio,
			VaultUSD:    val.VaultUSD,
			BoosterUSD:  val.BoosterUSD,
			UptimeScore: Uptime(total, empty),
		}
		if snap.Stake > 0 {
			ds.VaultPerStake = val.VaultUSD / snap.Stake
			ds.BoosterPerStake = val.BoosterUSD / snap.Stake
		}
		maxRatio = max(maxRatio, ds.Ratio)
		maxVault = max(maxVault, ds.VaultPerStake)
		maxBooster = max(maxBooster, ds.BoosterPerStake)
		scores[i] = ds
	}

	for i := range scores {
		scores[i].RatioScore = Relative(scores[i].Ratio, maxRatio)
		scores[i].VaultScore = Relative(scores[i].VaultPerStake, maxVault)
		scores[i].BoosterScore = Relative(scores[i].BoosterPerStake, maxBooster)
	}
	return scores
}

func aggregate(r *model.ValidatorRanking) {
	if len(r.Days) == 0 {
		return
	}
	for _, ds := range r.Days {
		r.UptimeScore += ds.UptimeScore
		r.RatioScore += ds.RatioScore
		r.VaultScore += ds.VaultScore
		r.BoosterScore += ds.BoosterScore
	}
	n := float64(len(r.Days))
	r.UptimeScore /= n
	r.RatioScore /= n
	r.VaultScore /= n
	r.BoosterScore /= n
	r.TotalScore = (r.UptimeScore + r.RatioScore + r.VaultScore + r.BoosterScore) / 4
	r.Stake = r.Days[len(r.Days)-1].Stake
}

// Uptime is the share of non empty blocks. A validator without blocks is not penalized.
func Uptime(total, empty int) float64 {
	if total == 0 {
		return maxScore
	}
	return max(0, maxScore-maxScore*float64(empty)/float64(total))
}

// Relative scales v against the day's best value; 0 when the best is 0.
func Relative(v, best float64) float64 {
	if best <= 0 || v <= 0 {
		return 0
	}
	return min(maxScore, maxScore*v/best)
}
