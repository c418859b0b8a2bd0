package risk

import "testing"

func baseInstrument() Instrument {
	return Instrument{PriceTick: 0.5, VolumeMultiple: 10, MarginRate: 0.1, Known: true}
}

func TestCheckOrderedFailures(t *testing.T) {
	inst := baseInstrument()
	inst.HasLimits = true
	inst.UpperLimit = 110
	inst.LowerLimit = 90

	cases := []struct {
		name   string
		order  OrderRequest
		inst   Instrument
		acct   Account
		pos    Position
		book   BookSide
		reason RejectReason
	}{
		{
			name:   "unknown instrument",
			order:  OrderRequest{InstrumentID: "X", OrdType: OrdTypeLimit, Price: 100, Qty: 1},
			inst:   Instrument{Known: false},
			reason: ReasonUnknownInstrument,
		},
		{
			name:   "non-integer quantity",
			order:  OrderRequest{OrdType: OrdTypeLimit, Price: 100, Qty: 1.5},
			inst:   inst,
			acct:   Account{Available: 1_000_000},
			reason: ReasonInvalidQuantity,
		},
		{
			name:   "zero quantity",
			order:  OrderRequest{OrdType: OrdTypeLimit, Price: 100, Qty: 0},
			inst:   inst,
			acct:   Account{Available: 1_000_000},
			reason: ReasonInvalidQuantity,
		},
		{
			name:   "off-tick price",
			order:  OrderRequest{OrdType: OrdTypeLimit, Price: 100.3, Qty: 1},
			inst:   inst,
			acct:   Account{Available: 1_000_000},
			reason: ReasonInvalidPriceTick,
		},
		{
			name:   "outside limit band",
			order:  OrderRequest{OrdType: OrdTypeLimit, Price: 120, Qty: 1},
			inst:   inst,
			acct:   Account{Available: 1_000_000},
			reason: ReasonOutsideLimitBand,
		},
		{
			name:   "market order against empty book",
			order:  OrderRequest{OrdType: OrdTypeMarket, Qty: 1},
			inst:   inst,
			acct:   Account{Available: 1_000_000},
			book:   BookSide{Empty: true},
			reason: ReasonEmptyBook,
		},
		{
			name:   "closing more than held",
			order:  OrderRequest{OrdType: OrdTypeLimit, Price: 100, Qty: 5, IsClosing: true},
			inst:   inst,
			acct:   Account{Available: 1_000_000},
			pos:    Position{OppositeQty: 2},
			reason: ReasonInsufficientPosition,
		},
		{
			name:   "insufficient margin",
			order:  OrderRequest{OrdType: OrdTypeLimit, Price: 100, Qty: 1},
			inst:   inst,
			acct:   Account{Available: 10},
			reason: ReasonInsufficientMargin,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Check(tc.order, tc.inst, tc.acct, tc.pos, tc.book)
			if got.Accepted {
				t.Fatalf("expected rejection, order was accepted")
			}
			if got.Reason != tc.reason {
				t.Fatalf("reason = %v, want %v", got.Reason, tc.reason)
			}
		})
	}
}

func TestCheckAcceptsValidOpeningOrder(t *testing.T) {
	inst := baseInstrument()
	order := OrderRequest{OrdType: OrdTypeLimit, Price: 100, Qty: 2}
	acct := Account{Available: 1_000_000}

	got := Check(order, inst, acct, Position{}, BookSide{})
	if !got.Accepted {
		t.Fatalf("expected acceptance, got reject reason %v: %s", got.Reason, got.Text)
	}
	want := 100.0 * 2 * 10 * 0.1
	if got.RequiredMargin != want {
		t.Fatalf("requiredMargin = %v, want %v", got.RequiredMargin, want)
	}
}

func TestCheckAcceptsClosingOrderWithoutMarginCheck(t *testing.T) {
	inst := baseInstrument()
	order := OrderRequest{OrdType: OrdTypeLimit, Price: 100, Qty: 2, IsClosing: true}
	acct := Account{Available: 0}
	pos := Position{OppositeQty: 5}

	got := Check(order, inst, acct, pos, BookSide{})
	if !got.Accepted {
		t.Fatalf("expected acceptance for fully-covered close, got reject reason %v", got.Reason)
	}
}

func TestCheckMarketOrderUsesLimitBandForMarginEstimate(t *testing.T) {
	inst := baseInstrument()
	inst.HasLimits = true
	inst.UpperLimit = 110
	inst.LowerLimit = 90

	order := OrderRequest{OrdType: OrdTypeMarket, Side: SideBuy, Qty: 1}
	acct := Account{Available: 1_000_000}

	got := Check(order, inst, acct, Position{}, BookSide{Empty: false})
	if !got.Accepted {
		t.Fatalf("expected acceptance, got reject reason %v", got.Reason)
	}
	want := 110.0 * 1 * 10 * 0.1
	if got.RequiredMargin != want {
		t.Fatalf("requiredMargin = %v, want %v", got.RequiredMargin, want)
	}
}
