package model

// DailyScore holds the four 0-100 scores of a validator on one day and their inputs.
type DailyScore struct {
	Date         Day
	UptimeScore  float64
	RatioScore   float64
	VaultScore   float64
	BoosterScore float64

	TotalBlocks     int
	EmptyBlocks     int
	Stake           float64
	Boost           float64
	Ratio           float64
	VaultUSD        float64
	BoosterUSD      float64
	VaultPerStake   float64
	BoosterPerStake float64
}

// ValidatorRanking is the aggregated result of a validator over every analyzed day.
type ValidatorRanking struct {
	Validator    Validator
	UptimeScore  float64
	RatioScore   float64
	VaultScore   float64
	BoosterScore float64
	TotalScore   float64
	Stake        float64 // most recent
	Days         []DailyScore
}
