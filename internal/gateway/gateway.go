// Package gateway implements the Trade Gateway (Application) (C15): the
// glue between FIX 4.0 wire messages and the internal order-event/
// execution-report pipeline. It is the only package that imports every
// other domain package (fixcore, risk, ledger, catalog, matching,
// persistence) — by design, everything else stays decoupled from
// everything else, and gateway is where the decoupled pieces meet.
package gateway

import (
	"log"
	"sync"
	"time"

	"futures-gateway/internal/catalog"
	"futures-gateway/internal/events"
	"futures-gateway/internal/fixcore"
	"futures-gateway/internal/fixwire"
	"futures-gateway/internal/ledger"
	"futures-gateway/internal/matching"
	"futures-gateway/internal/persistence"
	"futures-gateway/internal/risk"
)

// pendingOrder tracks the margin that was optimistically frozen at
// NewOrderSingle time, so each fill can refund its prorated share and a
// cancel/reject can unfreeze whatever is left.
type pendingOrder struct {
	accountID      string
	instrumentID   string
	side           fixcore.Side
	originalFrozen float64
	originalQty    float64
	confirmedQty   float64
}

// Gateway implements fixcore.Application and orchestrates every other
// domain package for one running instance.
type Gateway struct {
	registry  *fixcore.Registry
	accounts  *ledger.AccountLedger
	positions *ledger.PositionLedger
	catalog   *catalog.Catalog
	store     *persistence.Store
	engine    *matching.Engine
	bus       *events.Bus
	nextExecID func() string
	now       func() time.Time

	mu             sync.Mutex
	pending        map[string]*pendingOrder    // clOrdID -> margin bookkeeping
	sessionAccount map[fixcore.SessionID]string // bound at Logon; the only source of truth for "who is this connection"
}

// New constructs a Gateway. SetEngine must be called once the matching
// engine is constructed (the engine needs the gateway's risk check and
// report callback, creating an unavoidable two-step wiring). bus may be
// nil: publishing is best-effort telemetry for internal/monitor and
// internal/adminapi, never load-bearing for the trading path itself.
func New(reg *fixcore.Registry, accounts *ledger.AccountLedger, positions *ledger.PositionLedger, cat *catalog.Catalog, store *persistence.Store, bus *events.Bus, nextExecID func() string) *Gateway {
	return &Gateway{
		registry:       reg,
		accounts:       accounts,
		positions:      positions,
		catalog:        cat,
		store:          store,
		bus:            bus,
		nextExecID:     nextExecID,
		now:            time.Now,
		pending:        make(map[string]*pendingOrder),
		sessionAccount: make(map[fixcore.SessionID]string),
	}
}

// SetEngine wires the matching engine this gateway submits orders to.
func (g *Gateway) SetEngine(e *matching.Engine) { g.engine = e }

// publish is a nil-safe best-effort fan-out to bus; the trading path never
// blocks or fails on account of a missing or slow subscriber (events.Bus
// itself already drops on a full subscriber channel).
func (g *Gateway) publish(topic events.Event, payload any) {
	if g.bus != nil {
		g.bus.Publish(topic, payload)
	}
}

// OnLogon binds the session's targetCompID as this connection's account
// identity. This is the only authority for "whose order is this" — any
// account field a client puts on a wire message is ignored.
func (g *Gateway) OnLogon(sessionID fixcore.SessionID) {
	g.mu.Lock()
	g.sessionAccount[sessionID] = sessionID.TargetCompID
	g.mu.Unlock()
	g.accounts.GetOrCreateAccount(sessionID.TargetCompID, 0)
}

// FromAdmin is notified of admin-level messages the session already
// handled itself (Logon/Heartbeat/TestRequest/Logout); the gateway has
// nothing to do for these beyond the session's own bookkeeping.
func (g *Gateway) FromAdmin(sessionID fixcore.SessionID, msg fixwire.Message) {}

// FromApp dispatches every non-admin MsgType.
func (g *Gateway) FromApp(sessionID fixcore.SessionID, msg fixwire.Message) {
	msgType, _ := msg.Get(fixwire.TagMsgType)
	switch msgType {
	case MsgTypeNewOrderSingle:
		g.handleNewOrderSingle(sessionID, msg)
	case MsgTypeOrderCancelRequest:
		g.handleCancelRequest(sessionID, msg)
	case MsgTypeBalanceQuery:
		g.handleBalanceQuery(sessionID, msg)
	case MsgTypePositionQuery:
		g.handlePositionQuery(sessionID, msg)
	case MsgTypeInstrumentSearch:
		g.handleInstrumentSearch(sessionID, msg)
	case MsgTypeHistoricalOrderReq:
		g.handleHistoricalOrderQuery(sessionID, msg)
	default:
		log.Printf("gateway: unhandled MsgType %q from %s/%s", msgType, sessionID.SenderCompID, sessionID.TargetCompID)
	}
}

func (g *Gateway) accountFor(sessionID fixcore.SessionID) string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.sessionAccount[sessionID]
}

func (g *Gateway) send(sessionID fixcore.SessionID, msg fixwire.Message) {
	if !g.registry.SendMessage(sessionID, msg) {
		log.Printf("gateway: dropped outbound message, session %s/%s not running", sessionID.SenderCompID, sessionID.TargetCompID)
	}
}

func (g *Gateway) multiplierFor(instrumentID string) float64 {
	inst, err := g.catalog.GetInstrument(instrumentID)
	if err != nil {
		return 1
	}
	return inst.VolumeMultiple
}

func requiredMarginForQty(inst catalog.Instrument, price, qty float64) float64 {
	return price * qty * inst.VolumeMultiple * inst.MarginRate
}
