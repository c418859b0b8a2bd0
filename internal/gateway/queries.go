package gateway

import (
	"log"
	"strings"

	"futures-gateway/internal/fixcore"
	"futures-gateway/internal/fixwire"
	"futures-gateway/internal/ledger"
)

func (g *Gateway) handleBalanceQuery(sessionID fixcore.SessionID, msg fixwire.Message) {
	accountID := g.accountFor(sessionID)
	queryID, _ := msg.Get(TagQueryID)

	acct, _ := g.accounts.Get(accountID)
	reply := fixwire.Message{}
	reply.Set(fixwire.TagMsgType, MsgTypeBalanceReport)
	reply.Set(TagQueryID, queryID)
	reply.SetFloat(TagBalance, acct.Balance, 4)
	reply.SetFloat(TagAvailable, acct.Available, 4)
	reply.SetFloat(TagFrozenMargin, acct.FrozenMargin, 4)
	reply.SetFloat(TagUsedMargin, acct.UsedMargin, 4)
	reply.SetFloat(TagPositionProfit, acct.PositionProfit, 4)
	g.send(sessionID, reply)
}

func (g *Gateway) handlePositionQuery(sessionID fixcore.SessionID, msg fixwire.Message) {
	accountID := g.accountFor(sessionID)
	queryID, _ := msg.Get(TagQueryID)

	var positions []ledger.Position
	if symbol, ok := msg.Get(TagInstrumentID); ok && symbol != "" {
		if p, ok := g.positions.Get(accountID, symbol); ok {
			positions = append(positions, p)
		}
	} else {
		positions = g.positions.AllForAccount(accountID)
	}

	for _, p := range positions {
		reply := fixwire.Message{}
		reply.Set(fixwire.TagMsgType, MsgTypePositionReport)
		reply.Set(TagQueryID, queryID)
		reply.Set(TagInstrumentID, p.InstrumentID)
		reply.SetFloat(TagLongQty, p.LongQty, 4)
		reply.SetFloat(TagLongAvgPx, p.LongAvgPx, 4)
		reply.SetFloat(TagShortQty, p.ShortQty, 4)
		reply.SetFloat(TagShortAvgPx, p.ShortAvgPx, 4)
		reply.SetFloat(TagPositionProfit, p.PositionProfit, 4)
		g.send(sessionID, reply)
	}
}

func (g *Gateway) handleInstrumentSearch(sessionID fixcore.SessionID, msg fixwire.Message) {
	queryID, _ := msg.Get(TagQueryID)
	prefix, _ := msg.Get(TagSearchPrefix)

	for _, inst := range g.catalog.All() {
		if prefix != "" && !strings.HasPrefix(inst.InstrumentID, prefix) {
			continue
		}
		reply := fixwire.Message{}
		reply.Set(fixwire.TagMsgType, MsgTypeInstrumentReport)
		reply.Set(TagQueryID, queryID)
		reply.Set(TagInstrumentID, inst.InstrumentID)
		reply.Set(TagSymbol, inst.ProductID)
		reply.SetFloat(TagPrice, inst.PriceTick, 4)
		g.send(sessionID, reply)
	}
}

func (g *Gateway) handleHistoricalOrderQuery(sessionID fixcore.SessionID, msg fixwire.Message) {
	accountID := g.accountFor(sessionID)
	queryID, _ := msg.Get(TagQueryID)

	orders, err := g.store.LoadAllOrders(accountID)
	if err != nil {
		log.Printf("gateway: historical order query for %s: %v", accountID, err)
		return
	}

	if symbol, ok := msg.Get(TagSymbol); ok && symbol != "" {
		filtered := orders[:0]
		for _, o := range orders {
			if o.Symbol == symbol {
				filtered = append(filtered, o)
			}
		}
		orders = filtered
	}

	for _, o := range orders {
		reply := fixwire.Message{}
		reply.Set(fixwire.TagMsgType, MsgTypeHistoricalOrderRpt)
		reply.Set(TagQueryID, queryID)
		reply.Set(TagClOrdID, o.ClOrdID)
		reply.Set(TagOrderID, o.OrderID)
		reply.Set(TagSymbol, o.Symbol)
		reply.Set(TagSide, sideToFIX(o.Side))
		reply.Set(TagOrdStatus, ordStatusToFIX(o.Status))
		reply.SetFloat(TagPrice, o.Price, 4)
		reply.SetFloat(TagOrderQty, o.OrderQty, 4)
		reply.SetFloat(TagCumQty, o.CumQty, 4)
		reply.SetFloat(TagAvgPx, o.AvgPx, 4)
		g.send(sessionID, reply)
	}
}
