// Package report summarizes a finished backtest from its account ledger.
package report

import (
	"fmt"

	"github.com/shopspring/decimal"

	"backtest/internal/account"
	"backtest/internal/model"
)

// Summary holds the metrics of one run. Every transaction counts as one
// closed trade.
type Summary struct {
	InitialBalance decimal.Decimal
	FinalBalance   decimal.Decimal
	NetPnL         decimal.Decimal
	// TotalReturn is NetPnL / InitialBalance.
	TotalReturn decimal.Decimal
	Trades      int
	Wins        int
	Losses      int
	// WinRate is Wins / Trades, zero without trades.
	WinRate decimal.Decimal
	// ProfitFactor is gross profit / gross loss, zero without losses.
	ProfitFactor decimal.Decimal
	// MaxDrawdown is the largest balance drop from a running peak.
	MaxDrawdown decimal.Decimal
	// MaxDrawdownPct is the largest drop relative to its peak. It can come
	// from a different drop than MaxDrawdown.
	MaxDrawdownPct decimal.Decimal
}

// Summarize walks the ledger of acc in posting order.
func Summarize(acc *account.Account) Summary {
	return SummarizeTransactions(acc.InitialBalance(), acc.Transactions())
}

// SummarizeTransactions is Summarize over an explicit ledger.
func SummarizeTransactions(initial decimal.Decimal, txs []account.Transaction) Summary {
	s := Summary{
		InitialBalance: initial,
		Trades:         len(txs),
	}

	balance := initial
	peak := initial
	profit := decimal.Zero
	loss := decimal.Zero

	for _, tx := range txs {
		switch tx.Value.Sign() {
		case 1:
			s.Wins++
			profit = profit.Add(tx.Value)
		case -1:
			s.Losses++
			loss = loss.Sub(tx.Value)
		}

		balance = balance.Add(tx.Value)
		if balance.GreaterThan(peak) {
			peak = balance
		}
		dd := peak.Sub(balance)
		if dd.GreaterThan(s.MaxDrawdown) {
			s.MaxDrawdown = dd
		}
		if peak.IsPositive() {
			if pct := model.Div(dd, peak); pct.GreaterThan(s.MaxDrawdownPct) {
				s.MaxDrawdownPct = pct
			}
		}
	}

	s.FinalBalance = balance
	s.NetPnL = balance.Sub(initial)
	if initial.IsPositive() {
		s.TotalReturn = model.Div(s.NetPnL, initial)
	}
	if s.Trades > 0 {
		s.WinRate = model.Div(decimal.NewFromInt(int64(s.Wins)), decimal.NewFromInt(int64(s.Trades)))
	}
	if loss.IsPositive() {
		s.ProfitFactor = model.Div(profit, loss)
	}
	return s
}

func (s Summary) String() string {
	return fmt.Sprintf("balance %s -> %s, pnl %s (%s), trades %d (%d won, %d lost, win rate %s), profit factor %s, max drawdown %s (%s)",
		s.InitialBalance, s.FinalBalance, s.NetPnL, s.TotalReturn,
		s.Trades, s.Wins, s.Losses, s.WinRate,
		s.ProfitFactor, s.MaxDrawdown, s.MaxDrawdownPct)
}
