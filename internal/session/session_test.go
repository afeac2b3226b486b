package session

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"silent-vendetta-cl/internal/protocol"
)

type fakeConn struct {
	mu      sync.Mutex
	sent    []protocol.ActionWrapper
	handler func(evt protocol.EventWrapper)
	closed  bool
}

func (f *fakeConn) Subscribe(handler func(evt protocol.EventWrapper)) {
	f.handler = handler
}

func (f *fakeConn) Send(act protocol.ActionWrapper) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, act)
}

func (f *fakeConn) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
}

func (f *fakeConn) sentTypes() []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	types := make([]string, 0, len(f.sent))
	for _, act := range f.sent {
		types = append(types, act.ActType)
	}
	return types
}

type fakeLobby struct {
	startCh chan struct{}
	nextCh  chan struct{}
	nextErr error
}

func newFakeLobby() *fakeLobby {
	return &fakeLobby{
		startCh: make(chan struct{}, 8),
		nextCh:  make(chan struct{}, 8),
	}
}

func (f *fakeLobby) StartGame(gameID string) error {
	f.startCh <- struct{}{}
	return nil
}

func (f *fakeLobby) NextPhase(gameID string) error {
	f.nextCh <- struct{}{}
	return f.nextErr
}

func newTestSession(identity Identity) (*Session, *fakeConn, *fakeLobby) {
	fc := &fakeConn{}
	fl := newFakeLobby()
	sess := NewSession("game1", identity, fc, fl)
	return sess, fc, fl
}

func stateEvent(t *testing.T, patch map[string]any) protocol.EventWrapper {
	t.Helper()

	data, err := json.Marshal(patch)
	if err != nil {
		t.Fatalf("marshal patch: %v", err)
	}

	return protocol.EventWrapper{EvtType: protocol.EVT_GAME_STATE, Data: data}
}

func mafiaVoteEvent(t *testing.T, voter, target string) protocol.EventWrapper {
	t.Helper()

	data, err := json.Marshal(protocol.MafiaVoteEvent{Voter: voter, Target: target})
	if err != nil {
		t.Fatalf("marshal vote: %v", err)
	}

	return protocol.EventWrapper{EvtType: protocol.EVT_MAFIA_VOTE, Data: data}
}

// helper: wait for a notice of the given kind so tests never hang
func recvNotice(t *testing.T, sess *Session, kind string, within time.Duration) Notice {
	t.Helper()

	deadline := time.After(within)
	for {
		select {
		case notice := <-sess.Notices():
			if notice.Kind == kind {
				return notice
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %s notice", kind)
			return Notice{} // unreachable
		}
	}
}

func expectNoSignal(t *testing.T, ch <-chan struct{}, within time.Duration) {
	t.Helper()

	select {
	case <-ch:
		t.Fatalf("unexpected lobby call")
	case <-time.After(within):
	}
}

func TestSession_SnapshotSeedsCountdownThenTicksDown(t *testing.T) {
	sess, _, _ := newTestSession(Identity{PlayerName: "Alice"})

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	sess.store.now = func() time.Time { return now }

	sess.handleEvent(stateEvent(t, map[string]any{
		"phase":        "night",
		"phaseEndTime": now.Add(30 * time.Second).Format(time.RFC3339),
	}))

	if got := sess.timer.Remaining(); got != 30 {
		t.Fatalf("countdown must read 30, got %d", got)
	}

	sess.handleTick()

	if got := sess.timer.Remaining(); got != 29 {
		t.Fatalf("countdown must read 29 after one tick, got %d", got)
	}
}

func TestSession_PhaseTransitionClearsLedger(t *testing.T) {
	sess, _, _ := newTestSession(Identity{PlayerName: "Alice"})

	sess.handleEvent(stateEvent(t, map[string]any{"phase": "discuss"}))
	sess.handleEvent(mafiaVoteEvent(t, "a", "x"))
	sess.handleEvent(mafiaVoteEvent(t, "a", "y"))

	// 改票覆盖旧票
	if sess.ledger.Tally("x") != 0 || sess.ledger.Tally("y") != 1 {
		t.Fatalf("overwrite semantics broken: x=%d y=%d",
			sess.ledger.Tally("x"), sess.ledger.Tally("y"))
	}

	sess.handleEvent(stateEvent(t, map[string]any{"phase": "vote"}))

	if sess.ledger.Size() != 0 {
		t.Fatalf("ledger must be empty right after a phase change, size=%d", sess.ledger.Size())
	}
}

func TestSession_RoundChangeAloneClearsLedger(t *testing.T) {
	sess, _, _ := newTestSession(Identity{PlayerName: "Alice"})

	sess.handleEvent(stateEvent(t, map[string]any{"phase": "night", "round": 1}))
	sess.handleEvent(mafiaVoteEvent(t, "a", "x"))

	// 阶段不变，回合 +1，同样要清票
	sess.handleEvent(stateEvent(t, map[string]any{"phase": "night", "round": 2}))

	if sess.ledger.Size() != 0 {
		t.Fatalf("ledger must be empty right after a round change, size=%d", sess.ledger.Size())
	}
}

func TestSession_AutoAdvanceFiresOncePerZeroCrossing(t *testing.T) {
	sess, _, fl := newTestSession(Identity{PlayerName: "Alice"})

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	sess.store.now = func() time.Time { return now }

	sess.handleEvent(stateEvent(t, map[string]any{
		"phase":        "night",
		"phaseEndTime": now.Add(2 * time.Second).Format(time.RFC3339),
	}))

	for i := 0; i < 5; i++ {
		sess.handleTick()
	}

	select {
	case <-fl.nextCh:
	case <-time.After(time.Second):
		t.Fatalf("zero-crossing must request a phase advance")
	}

	expectNoSignal(t, fl.nextCh, 100*time.Millisecond)
}

func TestSession_CommandsAreGatedAndRouted(t *testing.T) {
	sess, fc, _ := newTestSession(Identity{PlayerName: "Alice"})
	sess.tickEvery = time.Hour

	go sess.Run()
	defer sess.Close()

	fc.handler(stateEvent(t, map[string]any{
		"phase": "discuss",
		"players": map[string]any{
			"p1": map[string]any{"id": "p1", "name": "alice", "isAlive": true, "isHost": true},
		},
	}))
	recvNotice(t, sess, NOTICE_STATE, time.Second)

	if err := sess.SendChat("hello"); err != nil {
		t.Fatalf("chat must pass during discuss: %v", err)
	}

	if err := sess.CastVote("p1"); !errors.Is(err, ErrInvalidPhase) {
		t.Fatalf("vote during discuss: want ErrInvalidPhase got %v", err)
	}

	types := fc.sentTypes()
	if len(types) != 1 || types[0] != protocol.ACT_CHAT {
		t.Fatalf("only the chat action may reach the wire, got %v", types)
	}
}

func TestSession_StartBelowMinimumNeverReachesLobby(t *testing.T) {
	sess, fc, fl := newTestSession(Identity{PlayerName: "Alice", IsHost: true})
	sess.tickEvery = time.Hour

	go sess.Run()
	defer sess.Close()

	fc.handler(stateEvent(t, map[string]any{
		"phase":      "waiting",
		"minPlayers": 4,
		"players": map[string]any{
			"p1": map[string]any{"id": "p1", "name": "Alice", "isAlive": true, "isHost": true},
			"p2": map[string]any{"id": "p2", "name": "Bob", "isAlive": true},
		},
	}))
	recvNotice(t, sess, NOTICE_STATE, time.Second)

	if err := sess.StartGame(); !errors.Is(err, ErrNotEnoughPlayers) {
		t.Fatalf("want ErrNotEnoughPlayers got %v", err)
	}

	expectNoSignal(t, fl.startCh, 100*time.Millisecond)
}

func TestSession_ServerErrorIsSurfacedVerbatim(t *testing.T) {
	sess, _, _ := newTestSession(Identity{PlayerName: "Alice"})

	data, _ := json.Marshal("game is full")
	sess.handleEvent(protocol.EventWrapper{EvtType: protocol.EVT_ERROR, Data: data})

	notice := recvNotice(t, sess, NOTICE_ERROR, time.Second)
	if notice.Text != "game is full" {
		t.Fatalf("server error must pass through verbatim, got %q", notice.Text)
	}
}

func TestSession_CloseIsTerminal(t *testing.T) {
	sess, fc, _ := newTestSession(Identity{PlayerName: "Alice"})
	sess.tickEvery = time.Hour

	go sess.Run()

	sess.Close()
	sess.Close() // 可重复调用

	if err := sess.SendChat("too late"); !errors.Is(err, ErrSessionClosed) {
		t.Fatalf("want ErrSessionClosed got %v", err)
	}

	fc.mu.Lock()
	closed := fc.closed
	fc.mu.Unlock()

	if !closed {
		t.Fatalf("closing the session must close the connection")
	}
}
