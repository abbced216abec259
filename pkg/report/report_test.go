package report

import (
	"bytes"
	"encoding/csv"
	"math/big"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/migalabs/valscore/pkg/model"
)

var (
	bgt    = common.HexToAddress("0x656b95E550C07a9ffe548bd4085c72418Ceb1dba")
	tokenX = common.HexToAddress("0x1111111111111111111111111111111111111111")
	tokenY = common.HexToAddress("0x2222222222222222222222222222222222222222")

	day0 = model.NewDay(time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC))
	day1 = day0.AddDays(1)

	valA = model.Validator{Name: "alpha", ConsensusAddress: "AA", Pubkey: "0xaa"}
	valB = model.Validator{Name: "beta", ConsensusAddress: "BB", Pubkey: "0xbb"}
	valC = model.Validator{Name: "gamma", ConsensusAddress: "CC", Pubkey: "0xcc"}

	testMetas = map[common.Address]model.TokenMeta{
		bgt:    {Address: bgt, Decimals: 18, Name: "BGT", Rate: 5, Priced: true},
		tokenX: {Address: tokenX, Decimals: 6, Name: "XTK", Rate: 2, Priced: true},
		tokenY: {Address: tokenY, Decimals: 18, Name: "YTK", Rate: 1, Priced: false},
	}
)

func wei(s string) *big.Int {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		panic(s)
	}
	return v
}

func testLedger() *model.Ledger {
	l := model.NewLedger()
	l.AddVaultEmission(day0, valA.Pubkey, wei("1500000000000000000"))
	l.AddVaultEmission(day1, valA.Pubkey, wei("500000000000000000"))
	l.AddVaultEmission(day0, valB.Pubkey, wei("333333333333333333"))
	l.AddBooster(day0, valA.Pubkey, tokenX, wei("1250000"))
	l.AddBooster(day1, valB.Pubkey, tokenX, wei("1"))
	l.AddBooster(day1, valB.Pubkey, tokenY, wei("7000000000000000000"))
	return l
}

func TestBuildMatrixTotals(t *testing.T) {
	m := BuildMatrix(testLedger(), testMetas, []model.Validator{valA, valB, valC}, bgt)
	require.Len(t, m.Tokens, 3)
	require.Equal(t, "BGT", m.Tokens[0].Name)
	require.Len(t, m.Rows, 3)

	require.Equal(t, "2", m.Rows[0].Amounts[0].String())
	require.Equal(t, "1.25", m.Rows[0].Amounts[1].String())
	require.Equal(t, "0.000001", m.Rows[1].Amounts[1].String())
	require.True(t, m.Rows[2].Total.IsZero())

	grand := decimal.Zero
	for col := range m.Tokens {
		sum := decimal.Zero
		for _, row := range m.Rows {
			sum = sum.Add(row.Amounts[col])
		}
		require.True(t, sum.Equal(m.ColumnTotals[col]), "column %d: %s != %s", col, sum, m.ColumnTotals[col])
		grand = grand.Add(sum)
	}
	require.True(t, grand.Equal(m.GrandTotal))

	// 2 BGT at 5 + 1.25 XTK at 2
	require.Equal(t, "12.50", m.Rows[0].TotalUSD.StringFixed(2))
}

func TestWriteMatrix(t *testing.T) {
	m := BuildMatrix(testLedger(), testMetas, []model.Validator{valA, valB}, bgt)
	var buf bytes.Buffer
	require.NoError(t, writeMatrix(&buf, m))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 5)
	require.Equal(t, []string{"validator", "pubkey", "BGT", "XTK", "YTK", "total", "total_usd"}, records[0])
	require.Equal(t, "usd_rate", records[1][0])
	require.Equal(t, "1.0000 (unpriced)", records[1][4])
	require.Equal(t, "alpha", records[2][0])
	require.Equal(t, "total", records[4][0])
	require.Equal(t, m.GrandTotal.String(), records[4][5])
}

func testRankings() []model.ValidatorRanking {
	return []model.ValidatorRanking{
		{
			Validator:   valA,
			UptimeScore: 90, RatioScore: 80, VaultScore: 100, BoosterScore: 50, TotalScore: 80, Stake: 1000,
			Days: []model.DailyScore{
				{Date: day0, UptimeScore: 80, TotalBlocks: 10, EmptyBlocks: 2, VaultUSD: 12.5},
				{Date: day1, UptimeScore: 100, TotalBlocks: 5},
			},
		},
		{
			Validator:   valB,
			UptimeScore: 100, TotalScore: 25,
			Days: []model.DailyScore{{Date: day0, UptimeScore: 100}},
		},
	}
}

func TestWriteScores(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeScores(&buf, testRankings(), []model.Day{day0, day1}, false))
	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	require.Equal(t, scoreColumns, records[0])
	require.Equal(t, []string{"1", "alpha"}, records[1][:2])
	require.Equal(t, "80.0000", records[1][9])
}

func TestWriteScoresVerbose(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeScores(&buf, testRankings(), []model.Day{day0, day1}, true))
	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)

	header := records[0]
	require.Len(t, header, len(scoreColumns)+2*len(dailyColumns))
	require.Equal(t, "2025-03-01_uptime", header[len(scoreColumns)])
	require.Equal(t, "2025-03-02_booster_usd", header[len(header)-1])
	require.Equal(t, "10", records[1][len(scoreColumns)+4])
	require.Equal(t, "12.5000", records[1][len(scoreColumns)+6])
	// missing day stays empty
	require.Equal(t, "", records[2][len(scoreColumns)+len(dailyColumns)])
	for _, r := range records {
		require.Len(t, r, len(header))
	}
}

func TestWriteFiles(t *testing.T) {
	dir := t.TempDir()
	scores := filepath.Join(dir, "scores.csv")
	matrix := filepath.Join(dir, "matrix.csv")
	require.NoError(t, WriteScores(scores, testRankings(), []model.Day{day0, day1}, true))
	require.NoError(t, WriteMatrix(matrix, BuildMatrix(testLedger(), testMetas, []model.Validator{valA}, bgt)))

	for _, p := range []string{scores, matrix} {
		info, err := os.Stat(p)
		require.NoError(t, err)
		require.NotZero(t, info.Size())
	}
	require.Error(t, WriteScores(filepath.Join(dir, "missing", "x.csv"), nil, nil, false))
}

func TestRenderTable(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, RenderTable(&buf, testRankings(), testMetas))
	out := buf.String()
	require.True(t, strings.Contains(out, "alpha"))
	require.True(t, strings.Contains(out, "80.00"))
	require.True(t, strings.Contains(out, "unpriced"))
	require.True(t, strings.Contains(out, "YTK"))
}
