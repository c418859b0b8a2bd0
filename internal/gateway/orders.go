package gateway

import (
	"log"

	"futures-gateway/internal/events"
	"futures-gateway/internal/fixcore"
	"futures-gateway/internal/fixwire"
	"futures-gateway/internal/matching"
	"futures-gateway/internal/risk"
)

func (g *Gateway) handleNewOrderSingle(sessionID fixcore.SessionID, msg fixwire.Message) {
	accountID := g.accountFor(sessionID)
	clOrdID, _ := msg.Get(TagClOrdID)
	symbol, _ := msg.Get(TagSymbol)
	side := sideFromFIX(mustGet(msg, TagSide))
	ordType := ordTypeFromFIX(mustGet(msg, TagOrdType))
	tif := tifFromFIX(mustGet(msg, TagTimeInForce))
	price, _ := msg.GetFloat(TagPrice)
	qty, _ := msg.GetFloat(TagOrderQty)

	now := g.now()
	order := fixcore.Order{
		ClOrdID: clOrdID, AccountID: accountID, Symbol: symbol, Side: side, OrdType: ordType,
		TIF: tif, Price: price, OrderQty: qty, LeavesQty: qty, Status: fixcore.StatusPendingNew,
		CreateTime: now, UpdateTime: now, SessionID: sessionID,
	}

	inst, err := g.catalog.GetInstrument(symbol)
	if err != nil {
		g.rejectNewOrder(order, fixcore.RejUnknownInstrument, "unknown instrument")
		return
	}

	pos, _ := g.positions.Get(accountID, symbol)
	oppositeQty := 0.0
	if side == fixcore.SideBuy {
		oppositeQty = pos.ShortQty
	} else {
		oppositeQty = pos.LongQty
	}
	closingQty := qty
	if oppositeQty < closingQty {
		closingQty = oppositeQty
	}
	isFullyClosing := closingQty > 0 && closingQty == qty

	acct, _ := g.accounts.Get(accountID)

	decision := risk.Check(
		risk.OrderRequest{InstrumentID: symbol, Side: toRiskSide(side), OrdType: toRiskOrdType(ordType), Price: price, Qty: qty, IsClosing: isFullyClosing},
		risk.Instrument{PriceTick: inst.PriceTick, VolumeMultiple: inst.VolumeMultiple, MarginRate: inst.MarginRate, UpperLimit: inst.UpperLimit, LowerLimit: inst.LowerLimit, HasLimits: inst.HasLimits, Known: true},
		risk.Account{Available: acct.Available},
		risk.Position{OppositeQty: oppositeQty},
		// The empty-book check is intentionally not evaluated here: whether
		// a market order has anything to cross is book state the engine
		// owns exclusively (single-goroutine ownership per the matching
		// package's concurrency rule). A market order admitted against an
		// empty book falls through to the engine's existing "market
		// residue always cancels" rule instead of an explicit pre-reject.
		risk.BookSide{Empty: false},
	)
	if !decision.Accepted {
		g.rejectNewOrder(order, fromRiskReason(decision.Reason), decision.Text)
		return
	}

	if decision.RequiredMargin > 0 {
		if !g.accounts.FreezeMargin(accountID, decision.RequiredMargin) {
			g.rejectNewOrder(order, fixcore.RejInsufficientMargin, "insufficient available margin")
			return
		}
	}

	if err := g.store.SaveOrder(order); err != nil {
		log.Printf("gateway: persist order %s: %v", clOrdID, err)
	}

	g.mu.Lock()
	g.pending[clOrdID] = &pendingOrder{
		accountID: accountID, instrumentID: symbol, side: side,
		originalFrozen: decision.RequiredMargin, originalQty: qty,
	}
	g.mu.Unlock()

	g.engine.SubmitOrder(matching.NewOrder{
		ClOrdID: clOrdID, AccountID: accountID, InstrumentID: symbol,
		Side: toMatchingSide(side), OrdType: toMatchingOrdType(ordType), TIF: toMatchingTIF(tif),
		Price: price, Qty: qty,
	})
}

func (g *Gateway) rejectNewOrder(order fixcore.Order, reason fixcore.OrdRejReason, text string) {
	order.Status = fixcore.StatusRejected
	report := fixcore.ExecutionReport{
		Order: order, ExecID: g.nextExecID(), ExecTransType: fixcore.ExecTransNew,
		OrdRejReason: reason, Text: text, TransactTime: g.now(),
	}
	g.send(order.SessionID, buildExecutionReport(report))
	g.publish(events.EventRiskAlert, events.RiskAlert{
		AccountID: order.AccountID, InstrumentID: order.Symbol, ClOrdID: order.ClOrdID, Reason: text,
	})
}

func (g *Gateway) handleCancelRequest(sessionID fixcore.SessionID, msg fixwire.Message) {
	accountID := g.accountFor(sessionID)
	clOrdID, _ := msg.Get(TagClOrdID)
	origClOrdID, _ := msg.Get(TagOrigClOrdID)
	symbol, _ := msg.Get(TagSymbol)

	g.engine.SubmitCancel(matching.CancelOrder{
		ClOrdID: clOrdID, OrigClOrdID: origClOrdID, InstrumentID: symbol, AccountID: accountID,
	})
}

func mustGet(msg fixwire.Message, tag int) string {
	v, _ := msg.Get(tag)
	return v
}
