package dashboard

import (
	"strings"
	"time"

	"github.com/CBoon99/spiralbot-v2/internal/tradelog"
)

// Summary aggregates the trade log into the headline dashboard numbers.
type Summary struct {
	Equity        float64    `json:"equity"`
	TotalTrades   int        `json:"total_trades"`
	WinningTrades int        `json:"winning_trades"`
	WinRatePct    float64    `json:"win_rate_pct"`
	TotalPnL      float64    `json:"total_pnl"`
	TotalDeposits float64    `json:"total_deposits"`
	LastActivity  *time.Time `json:"last_activity,omitempty"`
}

// Summarize folds the records (assumed timestamp-ordered) into a Summary.
func Summarize(records []tradelog.Record) Summary {
	var s Summary
	for i := range records {
		rec := &records[i]
		s.Equity = rec.Equity
		if rec.PnL != 0 {
			s.TotalPnL += rec.PnL
		}
		if strings.HasPrefix(rec.Action, "CLOSE") {
			s.TotalTrades++
			if rec.PnL > 0 {
				s.WinningTrades++
			}
		}
		if rec.Action == tradelog.ActionDeposit {
			s.TotalDeposits += rec.ValueEstimate
		}
	}
	if s.TotalTrades > 0 {
		s.WinRatePct = float64(s.WinningTrades) / float64(s.TotalTrades) * 100
	}
	if n := len(records); n > 0 {
		ts := records[n-1].Timestamp
		s.LastActivity = &ts
	}
	return s
}

// FilterEvents returns up to limit most-recent records matching the optional
// symbol and action filters, newest first.
func FilterEvents(records []tradelog.Record, symbol, action string, limit int) []tradelog.Record {
	if limit <= 0 {
		limit = 50
	}
	var out []tradelog.Record
	for i := len(records) - 1; i >= 0 && len(out) < limit; i-- {
		rec := records[i]
		if symbol != "" && !strings.EqualFold(rec.Symbol, symbol) {
			continue
		}
		if action != "" && !strings.EqualFold(rec.Action, action) {
			continue
		}
		out = append(out, rec)
	}
	return out
}
