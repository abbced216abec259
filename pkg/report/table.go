package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"

	"github.com/migalabs/valscore/pkg/model"
	"github.com/migalabs/valscore/pkg/valuation"
)

var (
	modName = "Report"
	log     = logrus.WithField(
		"module", modName,
	)

	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39")).Align(lipgloss.Center)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	numberStyle = cellStyle.Align(lipgloss.Right)
	topStyle    = numberStyle.Foreground(lipgloss.Color("10"))
	noteStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("240")).Italic(true)
)

var tableHeaders = []string{"#", "Validator", "Uptime", "Ratio", "Vault", "Booster", "Total", "Stake"}

// RenderTable writes the ranking as a table, followed by a note listing the tokens valued with
// the fallback rate.
func RenderTable(w io.Writer, rankings []model.ValidatorRanking, metas map[common.Address]model.TokenMeta) error {
	rows := make([][]string, 0, len(rankings))
	for i, r := range rankings {
		rows = append(rows, []string{
			fmt.Sprintf("%d", i+1),
			r.Validator.Name,
			formatScore(r.UptimeScore),
			formatScore(r.RatioScore),
			formatScore(r.VaultScore),
			formatScore(r.BoosterScore),
			formatScore(r.TotalScore),
			fmt.Sprintf("%.0f", r.Stake),
		})
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("63"))).
		Headers(tableHeaders...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return headerStyle
			case col == 1:
				return cellStyle
			case row == 0:
				return topStyle
			default:
				return numberStyle
			}
		})

	out := t.Render() + "\n"
	if unpriced := valuation.Unpriced(metas); len(unpriced) > 0 {
		names := make([]string, 0, len(unpriced))
		for _, meta := range unpriced {
			names = append(names, fmt.Sprintf("%s (%s)", meta.Name, meta.Address.Hex()))
		}
		out += noteStyle.Render("unpriced, valued at 1 USD: "+strings.Join(names, ", ")) + "\n"
	}
	_, err := io.WriteString(w, out)
	return err
}

func formatScore(s float64) string {
	return fmt.Sprintf("%.2f", s)
}
