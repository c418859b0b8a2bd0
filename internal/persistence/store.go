package persistence

import (
	"database/sql"
	"fmt"
	"time"

	"futures-gateway/internal/fixcore"
)

// Store is the reference Persistence Port (C9) implementation. All writes
// are idempotent on primary key (INSERT ... ON CONFLICT DO UPDATE / DO NOTHING),
// matching the contract's "a write is safe to retry" requirement.
type Store struct {
	db *DB
}

// NewStore wraps an opened, migrated DB as a Store.
func NewStore(db *DB) *Store { return &Store{db: db} }

// --- Orders -----------------------------------------------------------

// SaveOrder inserts the order row keyed by ClOrdID. When the row exists it
// updates only order_id, cum_qty, leaves_qty, avg_px, status and
// update_time; the other columns keep their first-saved values.
func (s *Store) SaveOrder(o fixcore.Order) error {
	_, err := s.db.handle.Exec(`
		INSERT INTO orders (cl_ord_id, order_id, account_id, symbol, side, ord_type, tif,
			price, order_qty, cum_qty, leaves_qty, avg_px, status, create_time, update_time,
			sender_comp_id, target_comp_id)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)
		ON CONFLICT(cl_ord_id) DO UPDATE SET
			order_id=excluded.order_id, cum_qty=excluded.cum_qty, leaves_qty=excluded.leaves_qty,
			avg_px=excluded.avg_px, status=excluded.status, update_time=excluded.update_time`,
		o.ClOrdID, o.OrderID, o.AccountID, o.Symbol, int(o.Side), int(o.OrdType), int(o.TIF),
		o.Price, o.OrderQty, o.CumQty, o.LeavesQty, o.AvgPx, int(o.Status),
		o.CreateTime, o.UpdateTime, o.SessionID.SenderCompID, o.SessionID.TargetCompID)
	if err != nil {
		return fmt.Errorf("persistence: save order %s: %w", o.ClOrdID, err)
	}
	return nil
}

// LoadOrder returns the order keyed by clOrdID.
func (s *Store) LoadOrder(clOrdID string) (fixcore.Order, bool, error) {
	row := s.db.handle.QueryRow(`SELECT cl_ord_id, order_id, account_id, symbol, side, ord_type,
		tif, price, order_qty, cum_qty, leaves_qty, avg_px, status, create_time, update_time,
		sender_comp_id, target_comp_id FROM orders WHERE cl_ord_id = ?`, clOrdID)
	o, err := scanOrder(row)
	if err == sql.ErrNoRows {
		return fixcore.Order{}, false, nil
	}
	if err != nil {
		return fixcore.Order{}, false, fmt.Errorf("persistence: load order %s: %w", clOrdID, err)
	}
	return o, true, nil
}

// LoadOrdersBySymbol returns every persisted order for symbol.
func (s *Store) LoadOrdersBySymbol(symbol string) ([]fixcore.Order, error) {
	return s.queryOrders(`WHERE symbol = ?`, symbol)
}

// LoadActiveOrders returns every order not in a terminal state.
func (s *Store) LoadActiveOrders() ([]fixcore.Order, error) {
	return s.queryOrders(`WHERE status NOT IN (?,?,?)`,
		int(fixcore.StatusFilled), int(fixcore.StatusCanceled), int(fixcore.StatusRejected))
}

// LoadAllOrders returns every order for accountID, or every order if
// accountID is empty.
func (s *Store) LoadAllOrders(accountID string) ([]fixcore.Order, error) {
	if accountID == "" {
		return s.queryOrders(``)
	}
	return s.queryOrders(`WHERE account_id = ?`, accountID)
}

func (s *Store) queryOrders(where string, args ...any) ([]fixcore.Order, error) {
	query := `SELECT cl_ord_id, order_id, account_id, symbol, side, ord_type, tif, price,
		order_qty, cum_qty, leaves_qty, avg_px, status, create_time, update_time,
		sender_comp_id, target_comp_id FROM orders ` + where
	rows, err := s.db.handle.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("persistence: query orders: %w", err)
	}
	defer rows.Close()

	var out []fixcore.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("persistence: scan order: %w", err)
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (fixcore.Order, error) {
	var o fixcore.Order
	var side, ordType, tif, status int
	err := row.Scan(&o.ClOrdID, &o.OrderID, &o.AccountID, &o.Symbol, &side, &ordType, &tif,
		&o.Price, &o.OrderQty, &o.CumQty, &o.LeavesQty, &o.AvgPx, &status,
		&o.CreateTime, &o.UpdateTime, &o.SessionID.SenderCompID, &o.SessionID.TargetCompID)
	if err != nil {
		return fixcore.Order{}, err
	}
	o.Side = fixcore.Side(side)
	o.OrdType = fixcore.OrdType(ordType)
	o.TIF = fixcore.TIF(tif)
	o.Status = fixcore.OrdStatus(status)
	return o, nil
}

// --- Trades -------------------------------------------------------------

// Trade is a single fill event persisted against its originating order.
type Trade struct {
	TradeID    string
	ClOrdID    string
	ExecID     string
	LastShares float64
	LastPx     float64
	TradeTime  time.Time
}

// SaveTrade inserts a trade; repeated saves with the same TradeID are no-ops.
func (s *Store) SaveTrade(t Trade) error {
	_, err := s.db.handle.Exec(`
		INSERT INTO trades (trade_id, cl_ord_id, exec_id, last_shares, last_px, trade_time)
		VALUES (?,?,?,?,?,?)
		ON CONFLICT(trade_id) DO NOTHING`,
		t.TradeID, t.ClOrdID, t.ExecID, t.LastShares, t.LastPx, t.TradeTime)
	if err != nil {
		return fmt.Errorf("persistence: save trade %s: %w", t.TradeID, err)
	}
	return nil
}

// --- Session state & raw messages (fixcore.MsgStore) --------------------

// SaveMessage persists a raw outbound/inbound frame keyed by (sender,
// target, seq); re-saving the same seq overwrites in place (idempotent).
func (s *Store) SaveMessage(sender, target string, seq int, raw []byte) error {
	_, err := s.db.handle.Exec(`
		INSERT INTO messages (sender, target, seq, raw) VALUES (?,?,?,?)
		ON CONFLICT(sender, target, seq) DO UPDATE SET raw = excluded.raw`,
		sender, target, seq, raw)
	if err != nil {
		return fmt.Errorf("persistence: save message (%s,%s,%d): %w", sender, target, seq, err)
	}
	return nil
}

// LoadMessages returns the raw frames with fromSeq <= seq <= toSeq (toSeq==0
// means unbounded), keyed by sequence number, for resend-window replay.
func (s *Store) LoadMessages(sender, target string, fromSeq, toSeq int) (map[int][]byte, error) {
	var rows *sql.Rows
	var err error
	if toSeq == 0 {
		rows, err = s.db.handle.Query(`SELECT seq, raw FROM messages WHERE sender=? AND target=? AND seq>=?`,
			sender, target, fromSeq)
	} else {
		rows, err = s.db.handle.Query(`SELECT seq, raw FROM messages WHERE sender=? AND target=? AND seq>=? AND seq<=?`,
			sender, target, fromSeq, toSeq)
	}
	if err != nil {
		return nil, fmt.Errorf("persistence: load messages: %w", err)
	}
	defer rows.Close()

	out := make(map[int][]byte)
	for rows.Next() {
		var seq int
		var raw []byte
		if err := rows.Scan(&seq, &raw); err != nil {
			return nil, fmt.Errorf("persistence: scan message: %w", err)
		}
		out[seq] = raw
	}
	return out, rows.Err()
}

// DeleteMessages removes every stored message for (sender, target), used
// when ResetSeqNumFlag=Y clears the replay window.
func (s *Store) DeleteMessages(sender, target string) error {
	_, err := s.db.handle.Exec(`DELETE FROM messages WHERE sender=? AND target=?`, sender, target)
	if err != nil {
		return fmt.Errorf("persistence: delete messages (%s,%s): %w", sender, target, err)
	}
	return nil
}

// DeleteMessagesOlderThan removes the stored messages of (sender, target)
// whose sequence number is below cutoffSeq. Messages carry no timestamp
// column, so the cutoff is a sequence number, not a time.
func (s *Store) DeleteMessagesOlderThan(sender, target string, cutoffSeq int) error {
	_, err := s.db.handle.Exec(`DELETE FROM messages WHERE sender=? AND target=? AND seq < ?`,
		sender, target, cutoffSeq)
	if err != nil {
		return fmt.Errorf("persistence: prune messages (%s,%s): %w", sender, target, err)
	}
	return nil
}

// SaveSessionState upserts the sequence-number bookkeeping for one session
// pair.
func (s *Store) SaveSessionState(st fixcore.SessionState) error {
	_, err := s.db.handle.Exec(`
		INSERT INTO session_states (sender, target, send_seq, recv_seq, last_update_time)
		VALUES (?,?,?,?,?)
		ON CONFLICT(sender, target) DO UPDATE SET
			send_seq=excluded.send_seq, recv_seq=excluded.recv_seq, last_update_time=excluded.last_update_time`,
		st.Sender, st.Target, st.SendSeq, st.RecvSeq, st.LastUpdateTime)
	if err != nil {
		return fmt.Errorf("persistence: save session state (%s,%s): %w", st.Sender, st.Target, err)
	}
	return nil
}

// LoadSessionState returns the persisted sequence-number state for a
// session pair, if any.
func (s *Store) LoadSessionState(sender, target string) (fixcore.SessionState, bool, error) {
	row := s.db.handle.QueryRow(`SELECT sender, target, send_seq, recv_seq, last_update_time
		FROM session_states WHERE sender=? AND target=?`, sender, target)
	var st fixcore.SessionState
	err := row.Scan(&st.Sender, &st.Target, &st.SendSeq, &st.RecvSeq, &st.LastUpdateTime)
	if err == sql.ErrNoRows {
		return fixcore.SessionState{}, false, nil
	}
	if err != nil {
		return fixcore.SessionState{}, false, fmt.Errorf("persistence: load session state (%s,%s): %w", sender, target, err)
	}
	return st, true, nil
}
