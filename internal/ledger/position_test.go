package ledger

import "testing"

func almostEqual(a, b float64) bool {
	d := a - b
	if d < 0 {
		d = -d
	}
	return d < 1e-6
}

func TestOpenPositionWeightedAveragePrice(t *testing.T) {
	l := NewPositionLedger()
	l.OpenPosition("A1", "IF2501", SideLong, 2, 100, 20)
	pos := l.OpenPosition("A1", "IF2501", SideLong, 3, 110, 30)

	wantAvg := (100.0*2 + 110.0*3) / 5
	if !almostEqual(pos.LongAvgPx, wantAvg) {
		t.Fatalf("longAvgPx = %v, want %v", pos.LongAvgPx, wantAvg)
	}
	if pos.LongQty != 5 {
		t.Fatalf("longQty = %v, want 5", pos.LongQty)
	}
	if pos.LongMargin != 50 {
		t.Fatalf("longMargin = %v, want 50", pos.LongMargin)
	}
}

func TestClosePositionLongProfitFormula(t *testing.T) {
	l := NewPositionLedger()
	l.OpenPosition("A1", "IF2501", SideLong, 5, 100, 50)

	pos, result := l.ClosePosition("A1", "IF2501", SideLong, 2, 110, 1)

	wantProfit := (110.0 - 100.0) * 2 * 1
	if !almostEqual(result.Profit, wantProfit) {
		t.Fatalf("profit = %v, want %v", result.Profit, wantProfit)
	}
	wantMarginReleased := 50.0 * (2.0 / 5.0)
	if !almostEqual(result.MarginReleased, wantMarginReleased) {
		t.Fatalf("marginReleased = %v, want %v", result.MarginReleased, wantMarginReleased)
	}
	if pos.LongQty != 3 {
		t.Fatalf("remaining longQty = %v, want 3", pos.LongQty)
	}
	if !almostEqual(pos.LongAvgPx, 100) {
		t.Fatalf("avg price should be unchanged by a partial close, got %v", pos.LongAvgPx)
	}
}

func TestClosePositionShortProfitFormula(t *testing.T) {
	l := NewPositionLedger()
	l.OpenPosition("A1", "IF2501", SideShort, 4, 100, 40)

	pos, result := l.ClosePosition("A1", "IF2501", SideShort, 4, 90, 1)

	wantProfit := (100.0 - 90.0) * 4 * 1
	if !almostEqual(result.Profit, wantProfit) {
		t.Fatalf("profit = %v, want %v", result.Profit, wantProfit)
	}
	if pos.ShortQty != 0 {
		t.Fatalf("shortQty = %v, want 0", pos.ShortQty)
	}
	if pos.ShortAvgPx != 0 {
		t.Fatalf("shortAvgPx should reset to 0 when flat, got %v", pos.ShortAvgPx)
	}
	if pos.ShortMargin != 0 {
		t.Fatalf("shortMargin should reset to 0 when flat, got %v", pos.ShortMargin)
	}
}

func TestCloseQtyClampedToHeldQuantity(t *testing.T) {
	l := NewPositionLedger()
	l.OpenPosition("A1", "IF2501", SideLong, 2, 100, 20)
	pos, _ := l.ClosePosition("A1", "IF2501", SideLong, 10, 105, 1)
	if pos.LongQty != 0 {
		t.Fatalf("longQty = %v, want 0 (close clamped)", pos.LongQty)
	}
}

func TestUpdateProfitMarksBothSides(t *testing.T) {
	l := NewPositionLedger()
	l.OpenPosition("A1", "IF2501", SideLong, 2, 100, 20)
	l.OpenPosition("A1", "IF2501", SideShort, 1, 105, 10)

	pos := l.UpdateProfit("A1", "IF2501", 110, 1)

	want := (110.0-100.0)*2*1 + (105.0-110.0)*1*1
	if !almostEqual(pos.PositionProfit, want) {
		t.Fatalf("positionProfit = %v, want %v", pos.PositionProfit, want)
	}
}

func TestGetAbsentPositionReturnsFalse(t *testing.T) {
	l := NewPositionLedger()
	if _, ok := l.Get("A1", "IF2501"); ok {
		t.Fatalf("expected no position for untouched account/instrument")
	}
}
