package netconn

import (
	"io"
	"net"
	"sync"
	"testing"
	"time"

	"futures-gateway/internal/fixcore"
	"futures-gateway/internal/fixwire"
	"futures-gateway/internal/workerpool"
)

type memStore struct {
	mu       sync.Mutex
	messages map[int][]byte
	state    map[string]fixcore.SessionState
}

func newMemStore() *memStore {
	return &memStore{messages: make(map[int][]byte), state: make(map[string]fixcore.SessionState)}
}

func (m *memStore) SaveMessage(sender, target string, seq int, raw []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages[seq] = raw
	return nil
}

func (m *memStore) LoadMessages(sender, target string, fromSeq, toSeq int) (map[int][]byte, error) {
	return nil, nil
}

func (m *memStore) DeleteMessages(sender, target string) error { return nil }

func (m *memStore) SaveSessionState(st fixcore.SessionState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state[st.Sender+"|"+st.Target] = st
	return nil
}

func (m *memStore) LoadSessionState(sender, target string) (fixcore.SessionState, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.state[sender+"|"+target]
	return st, ok, nil
}

type recordingApp struct {
	mu      sync.Mutex
	logons  []fixcore.SessionID
	fromApp []fixwire.Message
}

func (a *recordingApp) OnLogon(id fixcore.SessionID) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.logons = append(a.logons, id)
}
func (a *recordingApp) FromAdmin(fixcore.SessionID, fixwire.Message) {}
func (a *recordingApp) FromApp(id fixcore.SessionID, msg fixwire.Message) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.fromApp = append(a.fromApp, msg)
}

func (a *recordingApp) logonCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.logons)
}

// TestConnectionFeedsDecodedFramesToSession drives a real net.Pipe through
// Connection.feed and confirms a logon frame reaches the session and flips
// it to Established (which in turn notifies the Application).
func TestConnectionFeedsDecodedFramesToSession(t *testing.T) {
	serverConn, clientConn := net.Pipe()
	defer clientConn.Close()

	codec := fixwire.NewCodec()
	store := newMemStore()
	app := &recordingApp{}
	sessionID := fixcore.SessionID{SenderCompID: "GATEWAY", TargetCompID: "CLIENT1"}
	session := fixcore.NewSession(sessionID, fixcore.RoleAcceptor, 30*time.Second, time.Second, time.Hour, codec, store, app)

	pool := workerpool.New(2, 16)
	defer pool.Shutdown()

	conn := New(serverConn, session, pool, 0, fixwire.NewDecoder(1<<20, 1<<16), codec)
	session.SetSender(conn)
	go conn.Serve()

	logon := fixwire.Message{}
	logon.Set(fixwire.TagMsgType, "A")
	logon.SetInt(98, 0)
	logon.SetInt(108, 30)
	logon.Set(fixwire.TagSenderCompID, "CLIENT1")
	logon.Set(fixwire.TagTargetCompID, "GATEWAY")
	logon.SetInt(fixwire.TagMsgSeqNum, 1)
	frame := codec.Encode(logon)

	go func() {
		_, _ = clientConn.Write(frame)
	}()
	go func() {
		// net.Pipe writes block until read: consume the logon reply so the
		// pinned worker's write completes and pool.Shutdown can return.
		_, _ = io.Copy(io.Discard, clientConn)
	}()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if app.logonCount() > 0 {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	if app.logonCount() == 0 {
		t.Fatalf("expected OnLogon to fire once the logon frame was decoded and delivered")
	}
	if session.State() != "Established" {
		t.Fatalf("expected session Established after logon, got %s", session.State())
	}
}

// TestSendBytesFlushesThroughPinnedWorker confirms outbound bytes queued via
// SendBytes (the Sender side Session.Send calls into) reach the peer.
func TestSendBytesFlushesThroughPinnedWorker(t *testing.T) {
	serverConn, clientConn := net.Pipe()
	defer clientConn.Close()

	codec := fixwire.NewCodec()
	store := newMemStore()
	app := &recordingApp{}
	sessionID := fixcore.SessionID{SenderCompID: "GATEWAY", TargetCompID: "CLIENT1"}
	session := fixcore.NewSession(sessionID, fixcore.RoleAcceptor, 30*time.Second, time.Second, time.Hour, codec, store, app)

	pool := workerpool.New(2, 16)
	defer pool.Shutdown()

	conn := New(serverConn, session, pool, 1, fixwire.NewDecoder(1<<20, 1<<16), codec)
	session.SetSender(conn)
	go conn.Serve()

	readDone := make(chan []byte, 1)
	go func() {
		buf := make([]byte, 4096)
		n, _ := clientConn.Read(buf)
		readDone <- buf[:n]
	}()

	msg := fixwire.Message{}
	msg.Set(fixwire.TagMsgType, "0")
	conn.SendBytes(codec.Encode(msg))

	select {
	case got := <-readDone:
		if len(got) == 0 {
			t.Fatalf("expected bytes written to the peer")
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for SendBytes to flush to the peer")
	}
}
