// Package tradelog owns the CSV event log shared between the worker and the
// dashboard: structured rows for scans, fills, closes, deposits, and shutdown.
package tradelog

import (
	"fmt"
	"strconv"
	"time"
)

// TimeLayout is the row timestamp format.
const TimeLayout = "2006-01-02 15:04:05"

// Header enumerates the CSV columns in write order.
var Header = []string{
	"session_id", "timestamp", "symbol", "price", "bue", "delta",
	"signal", "value_estimate", "action", "pnl", "close_reason", "equity",
}

// Actions recorded in the action column.
const (
	ActionScan     = "SCAN"
	ActionOpen     = "OPEN"
	ActionDeposit  = "DEPOSIT"
	ActionShutdown = "SHUTDOWN"
)

// CloseAction composes the action stamped when a position is closed (CLOSE_BUY / CLOSE_SELL).
func CloseAction(side string) string { return "CLOSE_" + side }

// Record is a single structured trade log row.
type Record struct {
	SessionID     string
	Timestamp     time.Time
	Symbol        string
	Price         float64
	BUE           float64
	Delta         float64
	Signal        string
	ValueEstimate float64
	Action        string
	PnL           float64
	CloseReason   string
	Equity        float64
}

func (r Record) row() []string {
	return []string{
		r.SessionID,
		r.Timestamp.Format(TimeLayout),
		r.Symbol,
		formatFloat(r.Price),
		formatFloat(r.BUE),
		formatFloat(r.Delta),
		r.Signal,
		formatFloat(r.ValueEstimate),
		r.Action,
		formatFloat(r.PnL),
		r.CloseReason,
		formatFloat(r.Equity),
	}
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func parseRecord(fields []string) (Record, error) {
	if len(fields) != len(Header) {
		return Record{}, fmt.Errorf("expected %d fields, got %d", len(Header), len(fields))
	}
	ts, err := time.Parse(TimeLayout, fields[1])
	if err != nil {
		return Record{}, fmt.Errorf("parse timestamp: %w", err)
	}
	rec := Record{
		SessionID:   fields[0],
		Timestamp:   ts,
		Symbol:      fields[2],
		Signal:      fields[6],
		Action:      fields[8],
		CloseReason: fields[10],
	}
	floats := []struct {
		idx int
		dst *float64
	}{
		{3, &rec.Price}, {4, &rec.BUE}, {5, &rec.Delta},
		{7, &rec.ValueEstimate}, {9, &rec.PnL}, {11, &rec.Equity},
	}
	for _, f := range floats {
		v, err := strconv.ParseFloat(fields[f.idx], 64)
		if err != nil {
			return Record{}, fmt.Errorf("parse %s: %w", Header[f.idx], err)
		}
		*f.dst = v
	}
	return rec, nil
}
