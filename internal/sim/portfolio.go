// Package sim tracks the virtual portfolio: cash, open positions, and the
// risk-managed exits applied to them. All fills are simulated.
package sim

import (
	"errors"
	"sync"
	"time"
)

// Side enumerates position directions.
type Side string

const (
	Buy  Side = "BUY"
	Sell Side = "SELL"
)

// Close reasons stamped on the trade log.
const (
	ReasonTrailingStop = "TRAILING_STOP"
	ReasonStopLoss     = "STOP_LOSS"
	ReasonTakeProfit   = "TAKE_PROFIT"
	ReasonTimedExit    = "TIMED_EXIT"
)

var (
	ErrMaxPositions     = errors.New("maximum positions reached")
	ErrPositionExists   = errors.New("position already open for symbol")
	ErrInsufficientCash = errors.New("insufficient cash for trade")
	ErrInvalidAmount    = errors.New("amount must be positive")
)

// Settings encodes sizing and exit rules.
type Settings struct {
	RiskPerTrade    float64
	FeePct          float64
	TrailingStopPct float64
	StopLossPct     float64
	TakeProfitPct   float64
	TradeDuration   time.Duration
	MaxPositions    int
	MinTradeValue   float64
}

type position struct {
	side       Side
	entryPrice float64
	qty        float64
	peakPrice  float64
	tradeValue float64
	openedAt   time.Time
}

// Fill describes an executed (simulated) entry.
type Fill struct {
	Symbol   string
	Side     Side
	Price    float64
	Qty      float64
	Fee      float64
	NetValue float64
}

// Closed describes a position exit with realized PnL.
type Closed struct {
	Symbol   string
	Side     Side
	Price    float64
	Proceeds float64
	NetPnL   float64
	Reason   string
}

// Portfolio is the virtual account. Safe for concurrent use.
type Portfolio struct {
	mu        sync.Mutex
	cash      float64
	positions map[string]*position
	settings  Settings
	now       func() time.Time
}

// New constructs a portfolio with starting cash.
func New(startingCash float64, settings Settings) *Portfolio {
	if settings.MinTradeValue <= 0 {
		settings.MinTradeValue = 10
	}
	return &Portfolio{
		cash:      startingCash,
		positions: make(map[string]*position),
		settings:  settings,
		now:       time.Now,
	}
}

// Open sizes and opens a position at price using risk-per-trade sizing.
func (p *Portfolio) Open(symbol string, side Side, price float64) (Fill, error) {
	if price <= 0 {
		return Fill{}, errors.New("price must be positive")
	}
	if side != Buy && side != Sell {
		return Fill{}, errors.New("unknown side")
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.settings.MaxPositions > 0 && len(p.positions) >= p.settings.MaxPositions {
		return Fill{}, ErrMaxPositions
	}
	if _, exists := p.positions[symbol]; exists {
		return Fill{}, ErrPositionExists
	}

	tradeValue := p.cash * p.settings.RiskPerTrade
	if tradeValue < p.settings.MinTradeValue {
		return Fill{}, ErrInsufficientCash
	}

	fee := tradeValue * p.settings.FeePct
	netValue := tradeValue - fee
	qty := netValue / price

	p.positions[symbol] = &position{
		side:       side,
		entryPrice: price,
		qty:        qty,
		peakPrice:  price,
		tradeValue: netValue,
		openedAt:   p.now(),
	}
	p.cash -= tradeValue

	return Fill{Symbol: symbol, Side: side, Price: price, Qty: qty, Fee: fee, NetValue: netValue}, nil
}

// Close exits the named position at price. Returns false when no position is open.
func (p *Portfolio) Close(symbol string, price float64, reason string) (Closed, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closeLocked(symbol, price, reason)
}

func (p *Portfolio) closeLocked(symbol string, price float64, reason string) (Closed, bool) {
	pos, ok := p.positions[symbol]
	if !ok {
		return Closed{}, false
	}

	var proceeds, pnl float64
	if pos.side == Buy {
		proceeds = pos.qty * price
		pnl = proceeds - pos.tradeValue
	} else {
		proceeds = pos.tradeValue
		cost := pos.qty * price
		pnl = proceeds - cost
	}
	exitFee := proceeds * p.settings.FeePct
	netPnL := pnl - exitFee

	p.cash += proceeds - exitFee
	delete(p.positions, symbol)

	return Closed{
		Symbol:   symbol,
		Side:     pos.side,
		Price:    price,
		Proceeds: proceeds,
		NetPnL:   netPnL,
		Reason:   reason,
	}, true
}

// ManagePositions applies exit rules against current prices and returns every
// close triggered this pass. Symbols without a fresh price are marked at entry.
func (p *Portfolio) ManagePositions(prices map[string]float64) []Closed {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.now()
	var closes []Closed
	for symbol, pos := range p.positions {
		price, ok := prices[symbol]
		if !ok || price <= 0 {
			price = pos.entryPrice
		}

		if pos.side == Buy {
			if price > pos.peakPrice {
				pos.peakPrice = price
			}
		} else if price < pos.peakPrice {
			pos.peakPrice = price
		}

		if reason, hit := p.exitReason(pos, price, now); hit {
			if closed, ok := p.closeLocked(symbol, price, reason); ok {
				closes = append(closes, closed)
			}
		}
	}
	return closes
}

func (p *Portfolio) exitReason(pos *position, price float64, now time.Time) (string, bool) {
	s := p.settings
	if pos.side == Buy {
		switch {
		case s.TrailingStopPct > 0 && price <= pos.peakPrice*(1-s.TrailingStopPct):
			return ReasonTrailingStop, true
		case s.StopLossPct > 0 && price <= pos.entryPrice*(1-s.StopLossPct):
			return ReasonStopLoss, true
		case s.TakeProfitPct > 0 && price >= pos.entryPrice*(1+s.TakeProfitPct):
			return ReasonTakeProfit, true
		}
	} else {
		switch {
		case s.TrailingStopPct > 0 && price >= pos.peakPrice*(1+s.TrailingStopPct):
			return ReasonTrailingStop, true
		case s.StopLossPct > 0 && price >= pos.entryPrice*(1+s.StopLossPct):
			return ReasonStopLoss, true
		case s.TakeProfitPct > 0 && price <= pos.entryPrice*(1-s.TakeProfitPct):
			return ReasonTakeProfit, true
		}
	}
	if s.TradeDuration > 0 && now.Sub(pos.openedAt) >= s.TradeDuration {
		return ReasonTimedExit, true
	}
	return "", false
}

// Equity returns cash plus unrealized PnL marked at the supplied prices.
func (p *Portfolio) Equity(prices map[string]float64) float64 {
	p.mu.Lock()
	defer p.mu.Unlock()

	equity := p.cash
	for symbol, pos := range p.positions {
		price, ok := prices[symbol]
		if !ok || price <= 0 {
			price = pos.entryPrice
		}
		if pos.side == Buy {
			equity += pos.qty*price - pos.tradeValue
		} else {
			equity += pos.tradeValue - pos.qty*price
		}
	}
	return equity
}

// Deposit adds simulated funds.
func (p *Portfolio) Deposit(amount float64) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}
	p.mu.Lock()
	p.cash += amount
	p.mu.Unlock()
	return nil
}

// Cash reports free cash.
func (p *Portfolio) Cash() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cash
}

// OpenCount reports the number of open positions.
func (p *Portfolio) OpenCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.positions)
}
