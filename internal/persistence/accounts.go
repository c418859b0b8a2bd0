package persistence

import "fmt"

// AccountSnapshot is a durability snapshot of ledger.Account, defined here
// rather than imported so persistence has no dependency on the ledger
// package; cmd/gatewayd converts loaded snapshots into ledger values when it
// seeds the ledgers at startup.
type AccountSnapshot struct {
	AccountID      string
	Balance        float64
	Available      float64
	FrozenMargin   float64
	UsedMargin     float64
	PositionProfit float64
	CloseProfit    float64
}

// PositionSnapshot is the durability twin of ledger.Position.
type PositionSnapshot struct {
	AccountID      string
	InstrumentID   string
	LongQty        float64
	LongAvgPx      float64
	LongMargin     float64
	ShortQty       float64
	ShortAvgPx     float64
	ShortMargin    float64
	PositionProfit float64
}

// SaveAccount upserts an account snapshot. Ledger operations stay
// authoritative and in-memory (per-account mutex, §4.11); this is a
// best-effort durability snapshot so a restart can seed the ledger rather
// than a synchronous append on every op.
func (s *Store) SaveAccount(a AccountSnapshot) error {
	_, err := s.db.handle.Exec(`
		INSERT INTO accounts (account_id, balance, available, frozen_margin, used_margin,
			position_profit, close_profit)
		VALUES (?,?,?,?,?,?,?)
		ON CONFLICT(account_id) DO UPDATE SET
			balance=excluded.balance, available=excluded.available,
			frozen_margin=excluded.frozen_margin, used_margin=excluded.used_margin,
			position_profit=excluded.position_profit, close_profit=excluded.close_profit`,
		a.AccountID, a.Balance, a.Available, a.FrozenMargin, a.UsedMargin, a.PositionProfit, a.CloseProfit)
	if err != nil {
		return fmt.Errorf("persistence: save account %s: %w", a.AccountID, err)
	}
	return nil
}

// LoadAccounts returns every persisted account snapshot, used to seed the
// in-memory ledger at startup.
func (s *Store) LoadAccounts() ([]AccountSnapshot, error) {
	rows, err := s.db.handle.Query(`SELECT account_id, balance, available, frozen_margin,
		used_margin, position_profit, close_profit FROM accounts`)
	if err != nil {
		return nil, fmt.Errorf("persistence: load accounts: %w", err)
	}
	defer rows.Close()
	var out []AccountSnapshot
	for rows.Next() {
		var a AccountSnapshot
		if err := rows.Scan(&a.AccountID, &a.Balance, &a.Available, &a.FrozenMargin,
			&a.UsedMargin, &a.PositionProfit, &a.CloseProfit); err != nil {
			return nil, fmt.Errorf("persistence: scan account: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// SavePosition upserts a position snapshot for (accountID, instrumentID).
func (s *Store) SavePosition(p PositionSnapshot) error {
	_, err := s.db.handle.Exec(`
		INSERT INTO positions (account_id, instrument_id, long_qty, long_avg_px, long_margin,
			short_qty, short_avg_px, short_margin, position_profit)
		VALUES (?,?,?,?,?,?,?,?,?)
		ON CONFLICT(account_id, instrument_id) DO UPDATE SET
			long_qty=excluded.long_qty, long_avg_px=excluded.long_avg_px, long_margin=excluded.long_margin,
			short_qty=excluded.short_qty, short_avg_px=excluded.short_avg_px, short_margin=excluded.short_margin,
			position_profit=excluded.position_profit`,
		p.AccountID, p.InstrumentID, p.LongQty, p.LongAvgPx, p.LongMargin,
		p.ShortQty, p.ShortAvgPx, p.ShortMargin, p.PositionProfit)
	if err != nil {
		return fmt.Errorf("persistence: save position (%s,%s): %w", p.AccountID, p.InstrumentID, err)
	}
	return nil
}

// LoadPositions returns every persisted position snapshot.
func (s *Store) LoadPositions() ([]PositionSnapshot, error) {
	rows, err := s.db.handle.Query(`SELECT account_id, instrument_id, long_qty, long_avg_px,
		long_margin, short_qty, short_avg_px, short_margin, position_profit FROM positions`)
	if err != nil {
		return nil, fmt.Errorf("persistence: load positions: %w", err)
	}
	defer rows.Close()
	var out []PositionSnapshot
	for rows.Next() {
		var p PositionSnapshot
		if err := rows.Scan(&p.AccountID, &p.InstrumentID, &p.LongQty, &p.LongAvgPx, &p.LongMargin,
			&p.ShortQty, &p.ShortAvgPx, &p.ShortMargin, &p.PositionProfit); err != nil {
			return nil, fmt.Errorf("persistence: scan position: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
