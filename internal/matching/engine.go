package matching

import (
	"context"
	"fmt"
	"time"
)

// RiskCheck is called once per new order before admission. The gateway
// supplies this; the engine itself knows nothing about margin or the
// instrument catalog.
type RiskCheck func(NewOrder) (accepted bool, reason RejReason, text string)

// Engine is the single-threaded matching engine. All mutable state
// (snapshots, pending books) is touched only from the goroutine running
// Run, so none of it needs its own lock; callers communicate exclusively
// through the two input channels.
type Engine struct {
	orderCh chan any
	mdCh    chan MarketDataUpdate

	books map[string]*instrumentBook

	risk         RiskCheck
	nextID       func() string
	now          func() time.Time
	onReport     func(Report)
	onMarketData func(MarketDataUpdate)
}

type instrumentBook struct {
	hasSnapshot bool
	snapshot    MarketDataUpdate
	pending     []*restingOrder
}

// Option configures an Engine at construction.
type Option func(*Engine)

// WithClock overrides the engine's time source, for deterministic tests.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithMarketDataObserver registers a callback invoked after each market
// data update is applied to the book, before the resting-order scan's
// resulting fills are emitted. The gateway uses this to drive mark-to-
// market profit recomputation and U5/U6 pushes.
func WithMarketDataObserver(fn func(MarketDataUpdate)) Option {
	return func(e *Engine) { e.onMarketData = fn }
}

// New constructs an Engine. risk runs synchronously on the engine's own
// goroutine for each new order — it must not block.
func New(queueSize int, risk RiskCheck, nextID func() string, onReport func(Report), opts ...Option) *Engine {
	e := &Engine{
		orderCh:  make(chan any, queueSize),
		mdCh:     make(chan MarketDataUpdate, queueSize),
		books:    make(map[string]*instrumentBook),
		risk:     risk,
		nextID:   nextID,
		now:      time.Now,
		onReport: onReport,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// SubmitOrder enqueues a new order for processing.
func (e *Engine) SubmitOrder(o NewOrder) { e.orderCh <- o }

// SubmitCancel enqueues a cancel request for processing.
func (e *Engine) SubmitCancel(c CancelOrder) { e.orderCh <- c }

// SubmitMarketData enqueues a fresh price snapshot for processing.
func (e *Engine) SubmitMarketData(m MarketDataUpdate) { e.mdCh <- m }

// Run drains both queues until ctx is canceled. Order events and
// market-data events for the same instrument are processed in the order
// they were enqueued because both channels feed the same select loop on
// the same goroutine.
func (e *Engine) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-e.orderCh:
			if !ok {
				return
			}
			e.handleOrderEvent(ev)
		case md, ok := <-e.mdCh:
			if !ok {
				return
			}
			e.handleMarketData(md)
		}
	}
}

func (e *Engine) book(instrumentID string) *instrumentBook {
	b, ok := e.books[instrumentID]
	if !ok {
		b = &instrumentBook{}
		e.books[instrumentID] = b
	}
	return b
}

func (e *Engine) handleOrderEvent(ev any) {
	switch v := ev.(type) {
	case NewOrder:
		e.handleNewOrder(v)
	case CancelOrder:
		e.handleCancel(v)
	}
}

func (e *Engine) emit(r Report) {
	r.TransactTime = e.now()
	e.onReport(r)
}

func (e *Engine) handleNewOrder(o NewOrder) {
	if e.risk != nil {
		if accepted, reason, text := e.risk(o); !accepted {
			e.emit(Report{
				ClOrdID: o.ClOrdID, AccountID: o.AccountID, InstrumentID: o.InstrumentID,
				Side: o.Side, OrdType: o.OrdType, TIF: o.TIF, Price: o.Price, OrderQty: o.Qty,
				LeavesQty: 0, Status: StatusRejected, RejReason: reason, Text: text,
			})
			return
		}
	}

	orderID := e.nextID()
	ro := &restingOrder{
		clOrdID: o.ClOrdID, orderID: orderID, accountID: o.AccountID, instrumentID: o.InstrumentID,
		side: o.Side, ordType: o.OrdType, tif: o.TIF, price: o.Price, orderQty: o.Qty,
	}

	b := e.book(o.InstrumentID)

	if o.TIF == TIFFOK {
		matchable := matchableQty(ro, b.snapshot, b.hasSnapshot)
		if matchable < ro.orderQty {
			e.emit(Report{
				ClOrdID: o.ClOrdID, OrderID: orderID, AccountID: o.AccountID, InstrumentID: o.InstrumentID,
				Side: o.Side, OrdType: o.OrdType, TIF: o.TIF, Price: o.Price, OrderQty: o.Qty,
				LeavesQty: o.Qty, Status: StatusRejected, RejReason: RejWouldNotFullyFill,
				Text: "fill-or-kill could not be fully matched",
			})
			return
		}
	}

	e.fillAgainstSnapshot(ro, b)

	if ro.leavesQty() <= 0 {
		return // fully filled; nothing to park
	}

	switch o.TIF {
	case TIFIOC:
		e.emitCancelResidual(ro)
	case TIFFOK:
		// unreachable: FOK either fully fills above or is rejected before
		// any fill is committed.
	default:
		if o.OrdType == OrdTypeMarket {
			e.emitCancelResidual(ro)
			return
		}
		b.pending = append(b.pending, ro)
	}
}

// matchableQty computes how much of a prospective order the current
// snapshot could fill, without mutating anything — used by the FOK
// pre-check so a fill is never partially committed then rolled back.
func matchableQty(ro *restingOrder, snap MarketDataUpdate, hasSnapshot bool) float64 {
	if !hasSnapshot {
		return 0
	}
	if !crossable(ro, snap) {
		return 0
	}
	counterVol := counterVolume(ro.side, snap)
	if counterVol > ro.orderQty {
		return ro.orderQty
	}
	return counterVol
}

func crossable(ro *restingOrder, snap MarketDataUpdate) bool {
	switch ro.side {
	case SideBuy:
		if ro.ordType == OrdTypeMarket {
			return snap.HasAsk
		}
		return snap.HasAsk && ro.price >= snap.AskPrice1
	case SideSell:
		if ro.ordType == OrdTypeMarket {
			return snap.HasBid
		}
		return snap.HasBid && ro.price <= snap.BidPrice1
	}
	return false
}

func counterVolume(side Side, snap MarketDataUpdate) float64 {
	if side == SideBuy {
		return snap.AskVol1
	}
	return snap.BidVol1
}

func fillPrice(side Side, snap MarketDataUpdate) float64 {
	if side == SideBuy {
		return snap.AskPrice1
	}
	return snap.BidPrice1
}

// fillAgainstSnapshot attempts to cross ro against the book's current
// snapshot once, emitting a fill ExecutionReport if anything matches. It
// is the single-order entry point used by the new-order path, where the
// full counterVol1 is available to this one order.
func (e *Engine) fillAgainstSnapshot(ro *restingOrder, b *instrumentBook) {
	if !b.hasSnapshot {
		return
	}
	counterVol := counterVolume(ro.side, b.snapshot)
	e.fillAgainstVolume(ro, b.snapshot, &counterVol)
}

// fillAgainstVolume crosses ro against snap, consuming from (and
// decrementing) the caller-owned remaining counter-volume budget. This lets
// the market-data scan share one depleting pool of volume across every
// pending order it visits, in insertion order.
func (e *Engine) fillAgainstVolume(ro *restingOrder, snap MarketDataUpdate, remainingVol *float64) {
	if !crossable(ro, snap) || *remainingVol <= 0 {
		return
	}
	fillQty := ro.leavesQty()
	if *remainingVol < fillQty {
		fillQty = *remainingVol
	}
	if fillQty <= 0 {
		return
	}
	px := fillPrice(ro.side, snap)

	ro.cumQty += fillQty
	ro.avgPxNum += px * fillQty
	*remainingVol -= fillQty

	status := StatusPartiallyFilled
	if ro.leavesQty() <= 0 {
		status = StatusFilled
	}

	e.emit(Report{
		ClOrdID: ro.clOrdID, OrderID: ro.orderID, AccountID: ro.accountID, InstrumentID: ro.instrumentID,
		Side: ro.side, OrdType: ro.ordType, TIF: ro.tif, Price: ro.price, OrderQty: ro.orderQty,
		CumQty: ro.cumQty, LeavesQty: ro.leavesQty(), AvgPx: ro.avgPx(), Status: status,
		LastShares: fillQty, LastPx: px,
	})
}

func (e *Engine) emitCancelResidual(ro *restingOrder) {
	e.emit(Report{
		ClOrdID: ro.clOrdID, OrderID: ro.orderID, AccountID: ro.accountID, InstrumentID: ro.instrumentID,
		Side: ro.side, OrdType: ro.ordType, TIF: ro.tif, Price: ro.price, OrderQty: ro.orderQty,
		CumQty: ro.cumQty, LeavesQty: 0, AvgPx: ro.avgPx(), Status: StatusCanceled,
		Text: "unfilled residual canceled",
	})
}

func (e *Engine) handleMarketData(md MarketDataUpdate) {
	b := e.book(md.InstrumentID)
	b.snapshot = md
	b.hasSnapshot = true

	if e.onMarketData != nil {
		e.onMarketData(md)
	}

	bidVol, askVol := md.BidVol1, md.AskVol1

	remaining := b.pending[:0]
	for _, ro := range b.pending {
		if ro.side == SideBuy {
			e.fillAgainstVolume(ro, md, &askVol)
		} else {
			e.fillAgainstVolume(ro, md, &bidVol)
		}
		if ro.leavesQty() > 0 {
			remaining = append(remaining, ro)
		}
	}
	b.pending = remaining
}

func (e *Engine) handleCancel(c CancelOrder) {
	b := e.book(c.InstrumentID)
	for i, ro := range b.pending {
		if ro.clOrdID != c.OrigClOrdID {
			continue
		}
		b.pending = append(b.pending[:i], b.pending[i+1:]...)
		e.emit(Report{
			ClOrdID: c.OrigClOrdID, OrderID: ro.orderID, AccountID: ro.accountID, InstrumentID: ro.instrumentID,
			Side: ro.side, OrdType: ro.ordType, TIF: ro.tif, Price: ro.price, OrderQty: ro.orderQty,
			CumQty: ro.cumQty, LeavesQty: 0, AvgPx: ro.avgPx(), Status: StatusCanceled,
		})
		return
	}
	e.emit(Report{
		ClOrdID: c.OrigClOrdID, AccountID: c.AccountID, InstrumentID: c.InstrumentID,
		Status: StatusRejected, RejReason: RejUnknownOrder,
		Text: fmt.Sprintf("no resting order found for origClOrdID %s", c.OrigClOrdID),
	})
}
