package report

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"backtest/internal/account"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestSummarize(t *testing.T) {
	acc := account.New(d("1000"))
	start := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	for i, v := range []string{"100", "-50", "-150", "20", "0"} {
		acc.AddTransaction(start.Add(time.Duration(i)*time.Hour), d(v))
	}

	s := Summarize(acc)
	assert.Equal(t, 5, s.Trades)
	assert.Equal(t, 2, s.Wins)
	assert.Equal(t, 2, s.Losses)
	assert.Equal(t, "920", s.FinalBalance.String())
	assert.Equal(t, "-80", s.NetPnL.String())
	assert.Equal(t, "-0.08", s.TotalReturn.String())
	assert.Equal(t, "0.4", s.WinRate.String())
	assert.Equal(t, "0.6", s.ProfitFactor.String())
	// peak 1100, trough 900
	assert.Equal(t, "200", s.MaxDrawdown.String())
	assert.Equal(t, "0.1818182", s.MaxDrawdownPct.String())
	assert.Contains(t, s.String(), "trades 5")
}

func TestMaxDrawdownPctFromSmallerPeak(t *testing.T) {
	txs := []account.Transaction{
		{Value: d("-50")},
		{Value: d("950")},
		{Value: d("-100")},
	}

	s := SummarizeTransactions(d("100"), txs)
	assert.Equal(t, "100", s.MaxDrawdown.String())
	assert.Equal(t, "0.5", s.MaxDrawdownPct.String())
}

func TestSummarizeEmpty(t *testing.T) {
	s := Summarize(account.New(d("500")))
	assert.Zero(t, s.Trades)
	assert.True(t, s.NetPnL.IsZero())
	assert.True(t, s.WinRate.IsZero())
	assert.True(t, s.ProfitFactor.IsZero())
	assert.True(t, s.MaxDrawdown.IsZero())
	assert.Equal(t, "500", s.FinalBalance.String())
}
