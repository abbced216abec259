package report

import (
	"encoding/csv"
	"io"
	"os"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/migalabs/valscore/pkg/model"
	"github.com/migalabs/valscore/pkg/valuation"
)

// MatrixRow holds the human scaled amount of every matrix token received by one validator.
type MatrixRow struct {
	Validator model.Validator
	Amounts   []decimal.Decimal
	Total     decimal.Decimal
	TotalUSD  decimal.Decimal
}

// Matrix is the validator by token incentive table. Column 0 is the vault emission token.
type Matrix struct {
	Tokens       []model.TokenMeta
	Rows         []MatrixRow
	ColumnTotals []decimal.Decimal
	GrandTotal   decimal.Decimal
	GrandUSD     decimal.Decimal
}

// BuildMatrix sums every day of the ledger per validator and token. Amounts stay exact decimals
// so the totals add up cell by cell.
func BuildMatrix(ledger *model.Ledger, metas map[common.Address]model.TokenMeta, validators []model.Validator, vaultToken common.Address) Matrix {
	columns := []common.Address{vaultToken}
	index := map[common.Address]int{vaultToken: 0}
	for _, token := range ledger.BoosterTokens() {
		if _, ok := index[token]; ok {
			continue
		}
		index[token] = len(columns)
		columns = append(columns, token)
	}

	m := Matrix{
		Tokens:       make([]model.TokenMeta, len(columns)),
		Rows:         make([]MatrixRow, 0, len(validators)),
		ColumnTotals: make([]decimal.Decimal, len(columns)),
	}
	for i, token := range columns {
		meta, ok := metas[token]
		if !ok {
			meta = model.TokenMeta{Address: token, Name: valuation.ShortAddress(token), Decimals: 18}
		}
		m.Tokens[i] = meta
		m.ColumnTotals[i] = decimal.Zero
	}

	for _, v := range validators {
		totals := ledger.Totals(v.Pubkey)
		row := MatrixRow{
			Validator: v,
			Amounts:   make([]decimal.Decimal, len(columns)),
		}
		for i := range columns {
			row.Amounts[i] = decimal.Zero
		}
		row.Amounts[0] = valuation.HumanAmount(totals.VaultEmission, m.Tokens[0].Decimals)
		for token, amount := range totals.Boosters {
			i := index[token]
			row.Amounts[i] = row.Amounts[i].Add(valuation.HumanAmount(amount, m.Tokens[i].Decimals))
		}

		for i, amount := range row.Amounts {
			row.Total = row.Total.Add(amount)
			row.TotalUSD = row.TotalUSD.Add(amount.Mul(decimal.NewFromFloat(m.Tokens[i].Rate)))
			m.ColumnTotals[i] = m.ColumnTotals[i].Add(amount)
		}
		m.GrandTotal = m.GrandTotal.Add(row.Total)
		m.GrandUSD = m.GrandUSD.Add(row.TotalUSD)
		m.Rows = append(m.Rows, row)
	}
	return m
}

// WriteMatrix writes the matrix with a header row of token names, a row of USD rates, and
// trailing total column and row.
func WriteMatrix(path string, m Matrix) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "unable to create %s", path)
	}
	defer f.Close()
	if err := writeMatrix(f, m); err != nil {
		return errors.Wrapf(err, "unable to write %s", path)
	}
	log.Infof("incentive matrix written to %s", path)
	return f.Close()
}

func writeMatrix(w io.Writer, m Matrix) error {
	cw := csv.NewWriter(w)

	names := []string{"validator", "pubkey"}
	rates := []string{"usd_rate", ""}
	for _, meta := range m.Tokens {
		names = append(names, meta.Name)
		label := formatFloat(meta.Rate)
		if !meta.Priced {
			label += " (unpriced)"
		}
		rates = append(rates, label)
	}
	names = append(names, "total", "total_usd")
	rates = append(rates, "", "")

	records := [][]string{names, rates}
	for _, row := range m.Rows {
		record := []string{row.Validator.Name, row.Validator.Pubkey}
		for _, amount := range row.Amounts {
			record = append(record, amount.String())
		}
		record = append(record, row.Total.String(), row.TotalUSD.StringFixed(2))
		records = append(records, record)
	}

	totals := []string{"total", ""}
	for _, total := range m.ColumnTotals {
		totals = append(totals, total.String())
	}
	totals = append(totals, m.GrandTotal.String(), m.GrandUSD.StringFixed(2))
	records = append(records, totals)

	return cw.WriteAll(records)
}
