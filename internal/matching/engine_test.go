package matching

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"
)

func acceptAll(NewOrder) (bool, RejReason, string) { return true, RejNone, "" }

type idGen struct {
	mu sync.Mutex
	n  int
}

func (g *idGen) next() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("ORD%d", g.n)
}

type recorder struct {
	mu      sync.Mutex
	reports []Report
}

func (r *recorder) record(rep Report) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reports = append(r.reports, rep)
}

func (r *recorder) all() []Report {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Report, len(r.reports))
	copy(out, r.reports)
	return out
}

func newTestEngine(risk RiskCheck) (*Engine, *recorder, context.CancelFunc) {
	rec := &recorder{}
	gen := &idGen{}
	e := New(16, risk, gen.next, rec.record)
	ctx, cancel := context.WithCancel(context.Background())
	go e.Run(ctx)
	return e, rec, cancel
}

// drain waits briefly for the engine goroutine to process queued events.
func drain() { time.Sleep(20 * time.Millisecond) }

func TestRiskRejectionEmitsRejectedReport(t *testing.T) {
	e, rec, cancel := newTestEngine(func(NewOrder) (bool, RejReason, string) {
		return false, RejRisk, "insufficient margin"
	})
	defer cancel()

	e.SubmitOrder(NewOrder{ClOrdID: "C1", InstrumentID: "IF2501", Side: SideBuy, OrdType: OrdTypeLimit, TIF: TIFDay, Price: 100, Qty: 1})
	drain()

	reports := rec.all()
	if len(reports) != 1 || reports[0].Status != StatusRejected || reports[0].RejReason != RejRisk {
		t.Fatalf("unexpected reports: %+v", reports)
	}
}

func TestNewOrderFillsAgainstExistingSnapshot(t *testing.T) {
	e, rec, cancel := newTestEngine(acceptAll)
	defer cancel()

	e.SubmitMarketData(MarketDataUpdate{InstrumentID: "IF2501", HasAsk: true, AskPrice1: 100, AskVol1: 5})
	drain()

	e.SubmitOrder(NewOrder{ClOrdID: "C1", InstrumentID: "IF2501", Side: SideBuy, OrdType: OrdTypeLimit, TIF: TIFDay, Price: 101, Qty: 3})
	drain()

	reports := rec.all()
	if len(reports) != 1 {
		t.Fatalf("expected one fill report, got %d", len(reports))
	}
	r := reports[0]
	if r.Status != StatusFilled || r.LastShares != 3 || r.LastPx != 100 {
		t.Fatalf("unexpected fill report: %+v", r)
	}
}

func TestIOCCancelsUnfilledResidual(t *testing.T) {
	e, rec, cancel := newTestEngine(acceptAll)
	defer cancel()

	e.SubmitMarketData(MarketDataUpdate{InstrumentID: "IF2501", HasAsk: true, AskPrice1: 100, AskVol1: 2})
	drain()

	e.SubmitOrder(NewOrder{ClOrdID: "C1", InstrumentID: "IF2501", Side: SideBuy, OrdType: OrdTypeLimit, TIF: TIFIOC, Price: 101, Qty: 5})
	drain()

	reports := rec.all()
	if len(reports) != 2 {
		t.Fatalf("expected fill + cancel report, got %d: %+v", len(reports), reports)
	}
	if reports[0].Status != StatusPartiallyFilled || reports[0].LastShares != 2 {
		t.Fatalf("unexpected first report: %+v", reports[0])
	}
	if reports[1].Status != StatusCanceled || reports[1].LeavesQty != 0 {
		t.Fatalf("unexpected second report: %+v", reports[1])
	}
}

func TestFOKRejectsWholeOrderWhenNotFullyMatchable(t *testing.T) {
	e, rec, cancel := newTestEngine(acceptAll)
	defer cancel()

	e.SubmitMarketData(MarketDataUpdate{InstrumentID: "IF2501", HasAsk: true, AskPrice1: 100, AskVol1: 2})
	drain()

	e.SubmitOrder(NewOrder{ClOrdID: "C1", InstrumentID: "IF2501", Side: SideBuy, OrdType: OrdTypeLimit, TIF: TIFFOK, Price: 101, Qty: 5})
	drain()

	reports := rec.all()
	if len(reports) != 1 || reports[0].Status != StatusRejected || reports[0].RejReason != RejWouldNotFullyFill {
		t.Fatalf("unexpected reports: %+v", reports)
	}
}

func TestFOKFullyFillsWhenMatchable(t *testing.T) {
	e, rec, cancel := newTestEngine(acceptAll)
	defer cancel()

	e.SubmitMarketData(MarketDataUpdate{InstrumentID: "IF2501", HasAsk: true, AskPrice1: 100, AskVol1: 10})
	drain()

	e.SubmitOrder(NewOrder{ClOrdID: "C1", InstrumentID: "IF2501", Side: SideBuy, OrdType: OrdTypeLimit, TIF: TIFFOK, Price: 101, Qty: 5})
	drain()

	reports := rec.all()
	if len(reports) != 1 || reports[0].Status != StatusFilled {
		t.Fatalf("unexpected reports: %+v", reports)
	}
}

func TestDayOrderRestsThenFillsOnLaterMarketData(t *testing.T) {
	e, rec, cancel := newTestEngine(acceptAll)
	defer cancel()

	e.SubmitOrder(NewOrder{ClOrdID: "C1", InstrumentID: "IF2501", Side: SideBuy, OrdType: OrdTypeLimit, TIF: TIFDay, Price: 100, Qty: 5})
	drain()
	if len(rec.all()) != 0 {
		t.Fatalf("order should rest without any fill yet, got %+v", rec.all())
	}

	e.SubmitMarketData(MarketDataUpdate{InstrumentID: "IF2501", HasAsk: true, AskPrice1: 100, AskVol1: 5})
	drain()

	reports := rec.all()
	if len(reports) != 1 || reports[0].Status != StatusFilled || reports[0].LastShares != 5 {
		t.Fatalf("unexpected reports: %+v", reports)
	}
}

func TestMarketOrderAgainstEmptyBookCancelsWithoutSnapshot(t *testing.T) {
	e, rec, cancel := newTestEngine(acceptAll)
	defer cancel()

	e.SubmitOrder(NewOrder{ClOrdID: "C1", InstrumentID: "IF2501", Side: SideBuy, OrdType: OrdTypeMarket, TIF: TIFDay, Qty: 1})
	drain()

	reports := rec.all()
	if len(reports) != 1 || reports[0].Status != StatusCanceled {
		t.Fatalf("unmatchable market order should be canceled immediately, got %+v", reports)
	}
}

func TestMarketDataScanDepletesVolumeAcrossMultipleOrdersInInsertionOrder(t *testing.T) {
	e, rec, cancel := newTestEngine(acceptAll)
	defer cancel()

	e.SubmitOrder(NewOrder{ClOrdID: "C1", InstrumentID: "IF2501", Side: SideBuy, OrdType: OrdTypeLimit, TIF: TIFDay, Price: 100, Qty: 3})
	drain()
	e.SubmitOrder(NewOrder{ClOrdID: "C2", InstrumentID: "IF2501", Side: SideBuy, OrdType: OrdTypeLimit, TIF: TIFDay, Price: 100, Qty: 3})
	drain()

	e.SubmitMarketData(MarketDataUpdate{InstrumentID: "IF2501", HasAsk: true, AskPrice1: 100, AskVol1: 4})
	drain()

	reports := rec.all()
	if len(reports) != 2 {
		t.Fatalf("expected exactly two fill reports, got %d: %+v", len(reports), reports)
	}
	if reports[0].ClOrdID != "C1" || reports[0].LastShares != 3 || reports[0].Status != StatusFilled {
		t.Fatalf("first (earlier-inserted) order should fill fully first: %+v", reports[0])
	}
	if reports[1].ClOrdID != "C2" || reports[1].LastShares != 1 || reports[1].Status != StatusPartiallyFilled {
		t.Fatalf("second order should only get the remaining volume: %+v", reports[1])
	}
}

func TestCancelRemovesRestingOrder(t *testing.T) {
	e, rec, cancel := newTestEngine(acceptAll)
	defer cancel()

	e.SubmitOrder(NewOrder{ClOrdID: "C1", InstrumentID: "IF2501", Side: SideBuy, OrdType: OrdTypeLimit, TIF: TIFDay, Price: 100, Qty: 3})
	drain()

	e.SubmitCancel(CancelOrder{ClOrdID: "CXL1", OrigClOrdID: "C1", InstrumentID: "IF2501", AccountID: "A1"})
	drain()

	reports := rec.all()
	if len(reports) != 1 || reports[0].Status != StatusCanceled {
		t.Fatalf("unexpected cancel report: %+v", reports)
	}

	// A second cancel against the same (now-gone) order is a reject.
	e.SubmitCancel(CancelOrder{ClOrdID: "CXL2", OrigClOrdID: "C1", InstrumentID: "IF2501", AccountID: "A1"})
	drain()

	reports = rec.all()
	if len(reports) != 2 || reports[1].Status != StatusRejected || reports[1].RejReason != RejUnknownOrder {
		t.Fatalf("expected cancel reject for unknown order, got %+v", reports)
	}
}
