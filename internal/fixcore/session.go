package fixcore

import (
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"futures-gateway/internal/fixwire"
)

// Role distinguishes which side of the session initiates the Logon.
type Role int

const (
	RoleAcceptor Role = iota + 1
	RoleInitiator
)

type fsmState int

const (
	stateDisconnected fsmState = iota
	stateLogonSent
	stateEstablished
	stateLogoutSent
)

func (s fsmState) String() string {
	switch s {
	case stateDisconnected:
		return "Disconnected"
	case stateLogonSent:
		return "LogonSent"
	case stateEstablished:
		return "Established"
	case stateLogoutSent:
		return "LogoutSent"
	default:
		return "Unknown"
	}
}

// MsgStore is the subset of the Persistence Port (C9) the session layer
// needs: raw-message replay and session sequence-number state. It is
// declared here, on the consumer side, so fixcore has no import dependency
// on the concrete persistence package.
type MsgStore interface {
	SaveMessage(sender, target string, seq int, raw []byte) error
	LoadMessages(sender, target string, fromSeq, toSeq int) (map[int][]byte, error)
	DeleteMessages(sender, target string) error
	SaveSessionState(st SessionState) error
	LoadSessionState(sender, target string) (SessionState, bool, error)
}

// SessionState is the persisted sequence-number bookkeeping for one
// (sender, target) pair.
type SessionState struct {
	Sender         string
	Target         string
	SendSeq        int
	RecvSeq        int
	LastUpdateTime time.Time
}

// Sender is the outbound transport a Session hands encoded frames to; it is
// implemented by internal/netconn.Connection. Close tears down the socket
// after the session has finished its own shutdown bookkeeping.
type Sender interface {
	SendBytes(frame []byte)
	Close(reason string)
}

// Application is the FIX application layer (C15, the Trade Gateway). Session
// handles MsgType A/0/1/5 itself and only calls FromAdmin as a notification;
// every other MsgType is routed to FromApp. Both are invoked under a guard:
// a panic inside either is recovered, logged, and the session continues.
type Application interface {
	OnLogon(sessionID SessionID)
	FromAdmin(sessionID SessionID, msg fixwire.Message)
	FromApp(sessionID SessionID, msg fixwire.Message)
}

// Session implements the FIX 4.0 session state machine: logon, heartbeat,
// test-request, logout, sequence-number gap detection and buffering, and
// reset semantics. Per the thread-affinity rule, callers must route
// OnMessageReceived, Send, Start, and InitiateLogout through this session's
// owning worker so they never run concurrently with each other; only
// OnTimerCheck (driven by the timing wheel) and Shutdown (driven by server
// shutdown broadcast) may be called from a different goroutine, so mu guards
// exactly those two paths.
type Session struct {
	ID   SessionID
	Role Role

	HeartBtInt    time.Duration
	MinHeartBtInt time.Duration
	MaxHeartBtInt time.Duration

	codec *fixwire.Codec
	store MsgStore
	app   Application

	mu           sync.Mutex
	shuttingDown bool

	sendSeq int
	recvSeq int

	lastSend              time.Time
	lastRecv              time.Time
	outstandingTestReqID  string

	pending map[int]fixwire.Message

	sender Sender
	state  fsmState

	now func() time.Time
}

// NewSession constructs a Session in the Disconnected state with sequence
// numbers starting at 1 (overridden by persisted state once Start or the
// first inbound Logon runs).
func NewSession(id SessionID, role Role, heartBtInt, minHB, maxHB time.Duration, codec *fixwire.Codec, store MsgStore, app Application) *Session {
	return &Session{
		ID:            id,
		Role:          role,
		HeartBtInt:    heartBtInt,
		MinHeartBtInt: minHB,
		MaxHeartBtInt: maxHB,
		codec:         codec,
		store:         store,
		app:           app,
		sendSeq:       1,
		recvSeq:       1,
		pending:       make(map[int]fixwire.Message),
		state:         stateDisconnected,
		now:           time.Now,
	}
}

// SetSender attaches the outbound transport. Must be called before Start.
func (s *Session) SetSender(sender Sender) { s.sender = sender }

// State reports the current FSM state name, for diagnostics and tests.
func (s *Session) State() string { return s.state.String() }

// IsRunning reports whether the session is in any state other than
// Disconnected.
func (s *Session) IsRunning() bool { return s.state != stateDisconnected }

// Start begins the session. An initiator sends Logon immediately; an
// acceptor waits for the peer's Logon (delivered through OnMessageReceived).
func (s *Session) Start() {
	if st, ok, err := s.store.LoadSessionState(s.ID.SenderCompID, s.ID.TargetCompID); err == nil && ok {
		s.sendSeq = st.SendSeq
		s.recvSeq = st.RecvSeq
	}
	s.lastRecv = s.now()
	s.lastSend = s.now()

	if s.Role == RoleInitiator {
		logon := fixwire.Message{}
		logon.Set(fixwire.TagMsgType, "A")
		logon.SetInt(98, 0)
		logon.SetInt(108, int(s.HeartBtInt/time.Second))
		s.sendInternal(logon)
		s.state = stateLogonSent
	}
}

// OnMessageReceived dispatches an inbound decoded message according to the
// current state and the FIX 4.0 admin/app split.
func (s *Session) OnMessageReceived(msg fixwire.Message) {
	s.lastRecv = s.now()
	msgType, _ := msg.Get(fixwire.TagMsgType)

	seqNum, hasSeq := msg.GetInt(fixwire.TagMsgSeqNum)

	switch msgType {
	case "A":
		s.handleLogon(msg)
		return
	case "5":
		s.handleLogout(msg)
		return
	}

	if s.state != stateEstablished && s.state != stateLogoutSent {
		// Non-admin traffic before Established is a protocol breach.
		s.performShutdown("message before session established")
		return
	}

	switch msgType {
	case "0":
		s.handleHeartbeat(msg)
		return
	case "1":
		s.handleTestRequest(msg)
		return
	}

	if !hasSeq {
		s.performShutdown("missing MsgSeqNum")
		return
	}
	s.handleSeqGatedMessage(seqNum, msg, msgType)
}

func (s *Session) handleSeqGatedMessage(seqNum int, msg fixwire.Message, msgType string) {
	switch {
	case seqNum == s.recvSeq:
		s.deliver(msg, msgType)
		s.recvSeq++
		s.drainBuffered()
	case seqNum > s.recvSeq:
		s.pending[seqNum] = msg
		s.sendResendRequest(s.recvSeq, 0)
	default:
		possDup, _ := msg.Get(43)
		if possDup != "Y" {
			s.performShutdown("seq too low")
		}
		// PossDup resend of an already-seen sequence: acknowledge silently.
	}
}

func (s *Session) drainBuffered() {
	for {
		buffered, ok := s.pending[s.recvSeq]
		if !ok {
			return
		}
		delete(s.pending, s.recvSeq)
		msgType, _ := buffered.Get(fixwire.TagMsgType)
		s.deliver(buffered, msgType)
		s.recvSeq++
	}
}

func (s *Session) deliver(msg fixwire.Message, msgType string) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("fixcore: application callback panicked: %v", r)
		}
	}()
	switch msgType {
	case "A", "0", "1", "5":
		s.app.FromAdmin(s.ID, msg)
	default:
		s.app.FromApp(s.ID, msg)
	}
}

func (s *Session) handleLogon(msg fixwire.Message) {
	hb, _ := msg.GetInt(108)
	heartBtInt := time.Duration(hb) * time.Second
	if heartBtInt < s.MinHeartBtInt || heartBtInt > s.MaxHeartBtInt {
		s.performShutdown("invalid HeartBtInt")
		return
	}

	switch s.state {
	case stateDisconnected:
		s.HeartBtInt = heartBtInt
		seqNum, _ := msg.GetInt(fixwire.TagMsgSeqNum)
		if st, ok, err := s.store.LoadSessionState(s.ID.SenderCompID, s.ID.TargetCompID); err == nil && ok {
			s.sendSeq = st.SendSeq
			s.recvSeq = st.RecvSeq
		} else {
			s.recvSeq = seqNum + 1
		}
		if reset, _ := msg.Get(141); reset == "Y" {
			_ = s.store.DeleteMessages(s.ID.SenderCompID, s.ID.TargetCompID)
			s.sendSeq = 1
			s.recvSeq = 1
		}
		ack := fixwire.Message{}
		ack.Set(fixwire.TagMsgType, "A")
		ack.SetInt(98, 0)
		ack.SetInt(108, int(s.HeartBtInt/time.Second))
		if reset, _ := msg.Get(141); reset == "Y" {
			ack.Set(141, "Y")
		}
		s.sendInternal(ack)
		s.state = stateEstablished
		s.deliver(msg, "A")
		s.app.OnLogon(s.ID)
	case stateLogonSent:
		seq, _ := msg.GetInt(fixwire.TagMsgSeqNum)
		s.recvSeq = seq + 1
		s.state = stateEstablished
		s.deliver(msg, "A")
		s.app.OnLogon(s.ID)
	default:
		s.performShutdown("unexpected Logon")
	}
}

func (s *Session) handleLogout(msg fixwire.Message) {
	switch s.state {
	case stateEstablished:
		logout := fixwire.Message{}
		logout.Set(fixwire.TagMsgType, "5")
		s.sendInternal(logout)
		s.deliver(msg, "5")
		s.closeConnection("peer logout")
	case stateLogoutSent:
		s.closeConnection("logout confirmed")
	default:
		s.closeConnection("logout in unexpected state")
	}
}

func (s *Session) handleHeartbeat(msg fixwire.Message) {
	if testReqID, ok := msg.Get(112); ok && testReqID == s.outstandingTestReqID {
		s.outstandingTestReqID = ""
	}
	s.deliver(msg, "0")
}

func (s *Session) handleTestRequest(msg fixwire.Message) {
	testReqID, _ := msg.Get(112)
	s.sendHeartbeat(testReqID)
	s.deliver(msg, "1")
}

func (s *Session) sendResendRequest(beginSeq, endSeq int) {
	m := fixwire.Message{}
	m.Set(fixwire.TagMsgType, "2")
	m.SetInt(7, beginSeq)
	m.SetInt(16, endSeq)
	s.sendInternal(m)
}

func (s *Session) sendHeartbeat(testReqID string) {
	m := fixwire.Message{}
	m.Set(fixwire.TagMsgType, "0")
	if testReqID != "" {
		m.Set(112, testReqID)
	}
	s.sendInternal(m)
}

func (s *Session) sendTestRequest(id string) {
	m := fixwire.Message{}
	m.Set(fixwire.TagMsgType, "1")
	m.Set(112, id)
	s.outstandingTestReqID = id
	s.sendInternal(m)
}

// Send assigns the next send sequence number, encodes, persists, and hands
// msg to the transport. It is exported for the Application layer (business
// messages); admin messages use the internal sendInternal path directly.
func (s *Session) Send(msg fixwire.Message) {
	s.sendInternal(msg)
}

func (s *Session) sendInternal(msg fixwire.Message) {
	msg.Set(fixwire.TagSenderCompID, s.ID.SenderCompID)
	msg.Set(fixwire.TagTargetCompID, s.ID.TargetCompID)
	msg.SetInt(fixwire.TagMsgSeqNum, s.sendSeq)
	seq := s.sendSeq
	s.sendSeq++
	s.lastSend = s.now()

	frame := s.codec.Encode(msg)
	if err := s.store.SaveMessage(s.ID.SenderCompID, s.ID.TargetCompID, seq, frame); err != nil {
		log.Printf("fixcore: failed to persist outbound message seq=%d: %v", seq, err)
	}
	_ = s.store.SaveSessionState(SessionState{
		Sender:         s.ID.SenderCompID,
		Target:         s.ID.TargetCompID,
		SendSeq:        s.sendSeq,
		RecvSeq:        s.recvSeq,
		LastUpdateTime: s.now(),
	})
	if s.sender != nil {
		s.sender.SendBytes(frame)
	}
}

// InitiateLogout begins a graceful logout: send Logout, transition to
// LogoutSent, and wait for the peer's Logout confirmation or a timeout.
func (s *Session) InitiateLogout(reason string) {
	if s.state != stateEstablished {
		return
	}
	m := fixwire.Message{}
	m.Set(fixwire.TagMsgType, "5")
	if reason != "" {
		m.Set(58, reason)
	}
	s.sendInternal(m)
	s.state = stateLogoutSent
}

// OnTimerCheck runs the heartbeat and timeout logic; it is driven by the
// timing wheel, possibly from a goroutine other than this session's owning
// worker, so it takes mu.
func (s *Session) OnTimerCheck() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != stateEstablished && s.state != stateLogoutSent {
		return
	}
	now := s.now()
	if now.Sub(s.lastSend) >= s.HeartBtInt {
		s.sendHeartbeat("")
	}
	recvIdle := now.Sub(s.lastRecv)
	threshold := time.Duration(float64(s.HeartBtInt) * 1.5)
	if recvIdle >= threshold {
		if s.outstandingTestReqID == "" {
			s.sendTestRequest(fmt.Sprintf("TEST-%d", s.sendSeq))
		} else {
			s.performShutdown("peer timeout")
		}
	}
}

func (s *Session) performShutdown(reason string) {
	s.closeConnection(reason)
}

func (s *Session) closeConnection(reason string) {
	s.state = stateDisconnected
	if s.sender != nil {
		s.sender.Close(reason)
	}
}

// Shutdown closes the session for server-initiated shutdown (signal, or
// broadcast across all sessions). Like OnTimerCheck it may be invoked from a
// goroutine other than the owning worker, so it takes mu.
func (s *Session) Shutdown(reason string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.shuttingDown {
		return
	}
	s.shuttingDown = true
	if s.state == stateEstablished {
		m := fixwire.Message{}
		m.Set(fixwire.TagMsgType, "5")
		m.Set(58, reason)
		s.sendInternal(m)
	}
	s.closeConnection(reason)
}

// OnIOError surfaces a fatal transport error (peer reset, write failure) as
// a shutdown; EAGAIN/EWOULDBLOCK never reach here.
func (s *Session) OnIOError(reason string) {
	s.performShutdown(reason)
}

// SendSeq and RecvSeq expose the current sequence counters for tests and
// admin diagnostics.
func (s *Session) SendSeq() int { return s.sendSeq }
func (s *Session) RecvSeq() int { return s.recvSeq }

// PendingSeqNums returns the sorted list of buffered out-of-order sequence
// numbers awaiting a gap fill, for tests.
func (s *Session) PendingSeqNums() []int {
	out := make([]int, 0, len(s.pending))
	for k := range s.pending {
		out = append(out, k)
	}
	sort.Ints(out)
	return out
}
