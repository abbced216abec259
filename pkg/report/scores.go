package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/pkg/errors"

	"github.com/migalabs/valscore/pkg/model"
)

var scoreColumns = []string{
	"rank", "name", "consensus_address", "operator", "pubkey",
	"uptime_score", "ratio_score", "vault_score", "booster_score", "total_score", "stake",
}

var dailyColumns = []string{"uptime", "ratio", "vault", "booster", "blocks", "empty", "vault_usd", "booster_usd"}

// WriteScores writes one row per validator. verbose adds the breakdown of every date.
func WriteScores(path string, rankings []model.ValidatorRanking, dates []model.Day, verbose bool) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "unable to create %s", path)
	}
	defer f.Close()
	if err := writeScores(f, rankings, dates, verbose); err != nil {
		return errors.Wrapf(err, "unable to write %s", path)
	}
	log.Infof("scores written to %s", path)
	return f.Close()
}

func writeScores(w io.Writer, rankings []model.ValidatorRanking, dates []model.Day, verbose bool) error {
	cw := csv.NewWriter(w)

	header := append([]string{}, scoreColumns...)
	if verbose {
		for _, d := range dates {
			for _, c := range dailyColumns {
				header = append(header, fmt.Sprintf("%s_%s", d, c))
			}
		}
	}
	if err := cw.Write(header); err != nil {
		return err
	}

	for i, r := range rankings {
		row := []string{
			strconv.Itoa(i + 1),
			r.Validator.Name,
			r.Validator.ConsensusAddress,
			r.Validator.Operator.Hex(),
			r.Validator.Pubkey,
			formatFloat(r.UptimeScore),
			formatFloat(r.RatioScore),
			formatFloat(r.VaultScore),
			formatFloat(r.BoosterScore),
			formatFloat(r.TotalScore),
			formatFloat(r.Stake),
		}
		if verbose {
			byDate := make(map[model.Day]model.DailyScore, len(r.Days))
			for _, ds := range r.Days {
				byDate[ds.Date] = ds
			}
			for _, d := range dates {
				ds, ok := byDate[d]
				if !ok {
					row = append(row, make([]string, len(dailyColumns))...)
					continue
				}
				row = append(row,
					formatFloat(ds.UptimeScore),
					formatFloat(ds.RatioScore),
					formatFloat(ds.VaultScore),
					formatFloat(ds.BoosterScore),
					strconv.Itoa(ds.TotalBlocks),
					strconv.Itoa(ds.EmptyBlocks),
					formatFloat(ds.VaultUSD),
					formatFloat(ds.BoosterUSD),
				)
			}
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', 4, 64)
}
