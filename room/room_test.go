package room

import (
	"encoding/json"
	"net"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/wfunc/drawparty/logger"
	"github.com/wfunc/drawparty/models"
	"github.com/wfunc/drawparty/network"
)

func TestMain(m *testing.M) {
	logger.InitNop()
	os.Exit(m.Run())
}

// MockConnection is a test double for the network.Connection interface that
// records every frame sent to it.
type MockConnection struct {
	mu     sync.Mutex
	sent   [][]byte
	closed bool
}

func (m *MockConnection) Send(data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return network.ErrConnectionClosed
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	m.sent = append(m.sent, cp)
	return nil
}

func (m *MockConnection) ReadMessage() ([]byte, error) { return nil, nil }
func (m *MockConnection) Close() error                 { m.mu.Lock(); m.closed = true; m.mu.Unlock(); return nil }
func (m *MockConnection) RemoteAddr() net.Addr         { return &net.TCPAddr{} }
func (m *MockConnection) SetHeartbeat(time.Duration)   {}

func (m *MockConnection) IsOpen() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return !m.closed
}

// framesOfType decodes every recorded frame with the given type tag.
func (m *MockConnection) framesOfType(msgType string) []map[string]interface{} {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []map[string]interface{}
	for _, raw := range m.sent {
		var frame map[string]interface{}
		if err := json.Unmarshal(raw, &frame); err != nil {
			continue
		}
		if frame["type"] == msgType {
			out = append(out, frame)
		}
	}
	return out
}

// MockBroadcaster delivers directly to the mock connections.
type MockBroadcaster struct{}

func (b *MockBroadcaster) Broadcast(conns []network.Connection, data []byte) {
	for _, conn := range conns {
		if conn != nil && conn.IsOpen() {
			conn.Send(data)
		}
	}
}

func (b *MockBroadcaster) SendTo(conn network.Connection, data []byte) error {
	if conn == nil || !conn.IsOpen() {
		return network.ErrConnectionClosed
	}
	return conn.Send(data)
}

// longTimings keeps every countdown far away so tests control phases directly.
func longTimings() Timings {
	return Timings{
		TickInterval:              time.Second,
		WaitingForStartToNewRound: time.Hour,
		NewRoundToGameRunning:     time.Hour,
		GameRunningToShowWord:     time.Minute,
		ShowWordToNewRound:        time.Hour,
		PlayerRemoveGrace:         time.Hour,
	}
}

func shortTimings() Timings {
	return Timings{
		TickInterval:              10 * time.Millisecond,
		WaitingForStartToNewRound: 50 * time.Millisecond,
		NewRoundToGameRunning:     50 * time.Millisecond,
		GameRunningToShowWord:     100 * time.Millisecond,
		ShowWordToNewRound:        50 * time.Millisecond,
		PlayerRemoveGrace:         50 * time.Millisecond,
	}
}

func newTestRoom(t *testing.T, maxPlayers int, timings Timings, usernames ...string) (*Room, map[string]*MockConnection) {
	t.Helper()
	r := NewRoom("test_room", maxPlayers, timings, &MockBroadcaster{})
	t.Cleanup(r.Kill)

	conns := make(map[string]*MockConnection)
	for _, name := range usernames {
		conn := &MockConnection{}
		conns[name] = conn
		if _, err := r.AddPlayer("client-"+name, name, conn); err != nil {
			t.Fatalf("AddPlayer(%s) failed: %v", name, err)
		}
	}
	return r, conns
}

// forceGameRunning puts a room mid-round without waiting out the countdowns.
func forceGameRunning(r *Room, word string, drawerUsername string, elapsed time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.stopCountdownLocked()
	r.phase = GameRunning
	r.word = word
	r.startTime = time.Now().Add(-elapsed)
	r.winningPlayers = nil
	for _, p := range r.players {
		p.IsDrawing = p.Username == drawerUsername
		if p.IsDrawing {
			r.drawingPlayer = p
		}
	}
}

func guess(from, text string) *models.ChatMessage {
	return &models.ChatMessage{Type: network.TypeChatMessage, From: from, RoomName: "test_room", Message: text}
}

// --- membership and roster-size transitions ---

func TestAddPlayer_RosterSizeTransitions(t *testing.T) {
	r, _ := newTestRoom(t, 4, longTimings(), "alice")

	if r.Phase() != WaitingForPlayers {
		t.Fatalf("Expected WAITING_FOR_PLAYERS with one player, got %s", r.Phase())
	}

	if _, err := r.AddPlayer("client-bob", "bob", &MockConnection{}); err != nil {
		t.Fatalf("AddPlayer failed: %v", err)
	}
	if r.Phase() != WaitingForStart {
		t.Fatalf("Expected WAITING_FOR_START with two players, got %s", r.Phase())
	}

	if _, err := r.AddPlayer("client-carol", "carol", &MockConnection{}); err != nil {
		t.Fatalf("AddPlayer failed: %v", err)
	}
	if r.Phase() != WaitingForStart {
		t.Fatalf("Expected WAITING_FOR_START with three of four players, got %s", r.Phase())
	}

	if _, err := r.AddPlayer("client-dave", "dave", &MockConnection{}); err != nil {
		t.Fatalf("AddPlayer failed: %v", err)
	}
	if r.Phase() != NewRound {
		t.Fatalf("Expected NEW_ROUND at capacity, got %s", r.Phase())
	}

	drawers := 0
	r.mu.Lock()
	for _, p := range r.players {
		if p.IsDrawing {
			drawers++
		}
	}
	drawer := r.drawingPlayer
	r.mu.Unlock()

	if drawers != 1 || drawer == nil {
		t.Errorf("Expected exactly one drawing player, got %d", drawers)
	}
}

func TestAddPlayer_RoomFullAndUsernameTaken(t *testing.T) {
	r, _ := newTestRoom(t, 2, longTimings(), "alice", "bob")

	if _, err := r.AddPlayer("client-carol", "carol", &MockConnection{}); err != ErrRoomFull {
		t.Errorf("Expected ErrRoomFull, got %v", err)
	}

	r2, _ := newTestRoom(t, 4, longTimings(), "alice")
	if _, err := r2.AddPlayer("client-other", "alice", &MockConnection{}); err != ErrUsernameTaken {
		t.Errorf("Expected ErrUsernameTaken, got %v", err)
	}
}

func TestRemovePlayer_DropToOneForcesWaiting(t *testing.T) {
	r, _ := newTestRoom(t, 4, longTimings(), "alice", "bob", "carol")

	if r.Phase() != WaitingForStart {
		t.Fatalf("Setup failed, phase %s", r.Phase())
	}

	r.RemovePlayer("client-bob")
	if r.Phase() != WaitingForStart {
		t.Fatalf("Two players should stay in WAITING_FOR_START, got %s", r.Phase())
	}

	r.RemovePlayer("client-carol")
	if r.Phase() != WaitingForPlayers {
		t.Errorf("Expected WAITING_FOR_PLAYERS with one player left, got %s", r.Phase())
	}
	r.mu.Lock()
	countdown := r.countdown
	r.mu.Unlock()
	if countdown != nil {
		t.Error("Expected active countdown to be cancelled")
	}
}

func TestRemovePlayer_UnknownClient(t *testing.T) {
	r, _ := newTestRoom(t, 4, longTimings(), "alice")
	if err := r.RemovePlayer("client-ghost"); err != ErrUnknownPlayer {
		t.Errorf("Expected ErrUnknownPlayer, got %v", err)
	}
}

// --- reconnect grace window ---

func TestReconnect_WithinGraceRestoresScoreRankAndPosition(t *testing.T) {
	r, _ := newTestRoom(t, 4, longTimings(), "alice", "bob", "carol")

	r.mu.Lock()
	var bob *Player
	var bobIndex int
	for i, p := range r.players {
		switch p.Username {
		case "alice":
			p.Score = 10
		case "bob":
			p.Score = 200
			bob = p
			bobIndex = i
		case "carol":
			p.Score = 30
		}
	}
	r.broadcastPlayerStates() // assign ranks
	wantRank := bob.Rank
	r.mu.Unlock()

	if err := r.RemovePlayer("client-bob"); err != nil {
		t.Fatalf("RemovePlayer failed: %v", err)
	}
	if r.PlayerCount() != 2 {
		t.Fatalf("Expected 2 active players after disconnect, got %d", r.PlayerCount())
	}

	restored, err := r.AddPlayer("client-bob", "bob", &MockConnection{})
	if err != nil {
		t.Fatalf("Rejoin failed: %v", err)
	}

	if restored != bob {
		t.Error("Expected the snapshotted player object to be restored")
	}
	if restored.Score != 200 || restored.Rank != wantRank {
		t.Errorf("Expected score 200 rank %d after rejoin, got score %d rank %d", wantRank, restored.Score, restored.Rank)
	}

	r.mu.Lock()
	gotIndex := -1
	for i, p := range r.players {
		if p.ClientID == "client-bob" {
			gotIndex = i
		}
	}
	pending := len(r.leftPlayers)
	r.mu.Unlock()

	if gotIndex != bobIndex {
		t.Errorf("Expected roster index %d after rejoin, got %d", bobIndex, gotIndex)
	}
	if pending != 0 {
		t.Errorf("Expected recently-left set to be empty after rejoin, got %d entries", pending)
	}
}

func TestReconnect_AfterGraceStartsFresh(t *testing.T) {
	timings := longTimings()
	timings.PlayerRemoveGrace = 30 * time.Millisecond
	r, _ := newTestRoom(t, 4, timings, "alice", "bob")

	r.mu.Lock()
	r.players[1].Score = 150
	r.mu.Unlock()

	r.RemovePlayer("client-bob")
	time.Sleep(100 * time.Millisecond)

	rejoined, err := r.AddPlayer("client-bob", "bob", &MockConnection{})
	if err != nil {
		t.Fatalf("Rejoin failed: %v", err)
	}
	if rejoined.Score != 0 {
		t.Errorf("Expected a fresh player with score 0 after grace expiry, got %d", rejoined.Score)
	}
}

func TestReconnect_NameStaysReservedDuringGrace(t *testing.T) {
	r, _ := newTestRoom(t, 6, longTimings(), "alice", "bob", "carol")

	if err := r.RemovePlayer("client-bob"); err != nil {
		t.Fatalf("RemovePlayer failed: %v", err)
	}

	// The leaver's name must not be claimable while the grace window runs.
	if _, err := r.AddPlayer("client-impostor", "bob", &MockConnection{}); err != ErrUsernameTaken {
		t.Fatalf("Expected ErrUsernameTaken for a name held by a pending rejoin, got %v", err)
	}

	if _, err := r.AddPlayer("client-bob", "bob", &MockConnection{}); err != nil {
		t.Fatalf("Rejoin failed: %v", err)
	}

	bobs := 0
	r.mu.Lock()
	for _, p := range r.players {
		if p.Username == "bob" {
			bobs++
		}
	}
	r.mu.Unlock()
	if bobs != 1 {
		t.Errorf("Expected exactly one active player named bob, got %d", bobs)
	}
}

func TestReconnect_RejectedWhenNameWasRetaken(t *testing.T) {
	timings := longTimings()
	timings.PlayerRemoveGrace = 30 * time.Millisecond
	r, _ := newTestRoom(t, 6, timings, "alice", "bob")

	r.RemovePlayer("client-bob")
	time.Sleep(100 * time.Millisecond) // grace expires, name becomes free

	if _, err := r.AddPlayer("client-newbob", "bob", &MockConnection{}); err != nil {
		t.Fatalf("AddPlayer after grace expiry failed: %v", err)
	}

	// Simulate a snapshot that outlived its grace window racing the new owner.
	r.mu.Lock()
	r.leftPlayers["client-bob"] = &leftPlayer{
		player:      NewPlayer("bob", "client-bob", &MockConnection{}),
		index:       0,
		removeTimer: time.NewTimer(time.Hour),
	}
	r.mu.Unlock()

	if _, err := r.AddPlayer("client-bob", "bob", &MockConnection{}); err != ErrUsernameTaken {
		t.Errorf("Expected ErrUsernameTaken on rejoin over a retaken name, got %v", err)
	}
}

func TestReconnect_DrawerKeepsDrawingFlag(t *testing.T) {
	r, _ := newTestRoom(t, 4, longTimings(), "alice", "bob", "carol")
	forceGameRunning(r, "apple", "bob", 0)

	r.RemovePlayer("client-bob")
	restored, err := r.AddPlayer("client-bob", "bob", &MockConnection{})
	if err != nil {
		t.Fatalf("Rejoin failed: %v", err)
	}
	if !restored.IsDrawing {
		t.Error("Expected rejoining drawer to keep the drawing flag")
	}
}

// --- guessing and scoring ---

func TestGuess_FalseOutsideGameRunning(t *testing.T) {
	r, _ := newTestRoom(t, 4, longTimings(), "alice", "bob")

	r.mu.Lock()
	r.word = "apple"
	r.mu.Unlock()

	for _, phase := range []Phase{WaitingForPlayers, WaitingForStart, NewRound, ShowWord} {
		r.mu.Lock()
		r.phase = phase
		r.mu.Unlock()

		if r.CheckGuessAndNotify(guess("bob", "apple")) {
			t.Errorf("Guess must be rejected in phase %s even on exact match", phase)
		}
	}
}

func TestGuess_ScoreAtHalfWindowAndNoDoubleScore(t *testing.T) {
	r, _ := newTestRoom(t, 4, longTimings(), "alice", "bob", "carol", "dave")
	// just inside the half of the 60s window, so truncation yields 75
	forceGameRunning(r, "apple", "alice", 30*time.Second-50*time.Millisecond)

	if !r.CheckGuessAndNotify(guess("bob", "Apple")) {
		t.Fatal("Expected case-insensitive guess to score")
	}

	r.mu.Lock()
	bobScore := r.findPlayerByUsername("bob").Score
	aliceScore := r.findPlayerByUsername("alice").Score
	r.mu.Unlock()

	if bobScore != 75 {
		t.Errorf("Expected 50 + 50*0.5 = 75 points, got %d", bobScore)
	}
	// drawer bonus: 50 / 4 players, truncated
	if aliceScore != 12 {
		t.Errorf("Expected drawer bonus 12, got %d", aliceScore)
	}

	if r.CheckGuessAndNotify(guess("bob", "apple")) {
		t.Error("A winner must not be scored twice in the same round")
	}
	r.mu.Lock()
	bobScoreAfter := r.findPlayerByUsername("bob").Score
	r.mu.Unlock()
	if bobScoreAfter != 75 {
		t.Errorf("Score changed on repeated guess: %d", bobScoreAfter)
	}
}

func TestGuess_TrimmedAndExactOnly(t *testing.T) {
	r, _ := newTestRoom(t, 4, longTimings(), "alice", "bob", "carol")
	forceGameRunning(r, "apple", "alice", 0)

	if r.CheckGuessAndNotify(guess("bob", "apples")) {
		t.Error("Fuzzy match must not score")
	}
	if r.CheckGuessAndNotify(guess("bob", "app le")) {
		t.Error("Inner whitespace must not be ignored")
	}
	if !r.CheckGuessAndNotify(guess("bob", "  APPLE  ")) {
		t.Error("Leading/trailing whitespace and case must be ignored")
	}
}

func TestGuess_DrawerCannotScore(t *testing.T) {
	r, _ := newTestRoom(t, 4, longTimings(), "alice", "bob")
	forceGameRunning(r, "apple", "alice", 0)

	if r.CheckGuessAndNotify(guess("alice", "apple")) {
		t.Error("The drawing player must not score on their own word")
	}
}

func TestGuess_LastGuesserForcesNewRound(t *testing.T) {
	r, conns := newTestRoom(t, 4, longTimings(), "alice", "bob", "carol")
	forceGameRunning(r, "apple", "alice", 0)

	if !r.CheckGuessAndNotify(guess("bob", "apple")) {
		t.Fatal("First guess should score")
	}
	if r.Phase() != GameRunning {
		t.Fatalf("Round must continue while guessers remain, got %s", r.Phase())
	}

	if !r.CheckGuessAndNotify(guess("carol", "apple")) {
		t.Fatal("Second guess should score")
	}
	if r.Phase() != NewRound {
		t.Errorf("Expected forced NEW_ROUND after everyone guessed, got %s", r.Phase())
	}

	everybody := 0
	for _, frame := range conns["alice"].framesOfType(network.TypeAnnouncement) {
		if int(frame["announcementType"].(float64)) == models.AnnouncementEverybodyGuessed {
			everybody++
		}
	}
	if everybody != 1 {
		t.Errorf("Expected exactly one round-over announcement, got %d", everybody)
	}
}

func TestShowWord_PenaltyWhenNobodyGuessed(t *testing.T) {
	r, _ := newTestRoom(t, 4, longTimings(), "alice", "bob")
	forceGameRunning(r, "apple", "alice", 0)

	r.mu.Lock()
	r.transitionTo(ShowWord)
	drawerScore := r.findPlayerByUsername("alice").Score
	r.mu.Unlock()

	if drawerScore != -penaltyNobodyGuessed {
		t.Errorf("Expected drawer penalty of %d, got score %d", -penaltyNobodyGuessed, drawerScore)
	}
}

func TestShowWord_NoPenaltyWhenSomebodyGuessed(t *testing.T) {
	r, _ := newTestRoom(t, 4, longTimings(), "alice", "bob", "carol")
	forceGameRunning(r, "apple", "alice", 0)

	r.CheckGuessAndNotify(guess("bob", "apple"))

	r.mu.Lock()
	before := r.findPlayerByUsername("alice").Score
	r.transitionTo(ShowWord)
	after := r.findPlayerByUsername("alice").Score
	r.mu.Unlock()

	if after != before {
		t.Errorf("Expected no penalty when somebody guessed, score went %d -> %d", before, after)
	}
}

// --- countdown and phase timers ---

func TestCountdown_CancelPreventsStaleTransition(t *testing.T) {
	r, _ := newTestRoom(t, 4, shortTimings(), "alice", "bob")

	if r.Phase() != WaitingForStart {
		t.Fatalf("Setup failed, phase %s", r.Phase())
	}

	// Dropping to one player forces WAITING_FOR_PLAYERS and cancels the timer.
	r.RemovePlayer("client-bob")
	if r.Phase() != WaitingForPlayers {
		t.Fatalf("Expected WAITING_FOR_PLAYERS, got %s", r.Phase())
	}

	time.Sleep(200 * time.Millisecond)
	if got := r.Phase(); got != WaitingForPlayers {
		t.Errorf("Cancelled countdown still advanced the phase to %s", got)
	}
}

func TestCountdown_TimedAdvanceThroughRound(t *testing.T) {
	r, _ := newTestRoom(t, 4, shortTimings(), "alice", "bob")

	deadline := time.Now().Add(2 * time.Second)
	for r.Phase() != GameRunning {
		if time.Now().After(deadline) {
			t.Fatalf("Timed out waiting for GAME_RUNNING, stuck in %s", r.Phase())
		}
		time.Sleep(5 * time.Millisecond)
	}

	r.mu.Lock()
	drawer := r.drawingPlayer
	word := r.word
	r.mu.Unlock()

	if drawer == nil {
		t.Error("GAME_RUNNING entered without an assigned drawer")
	}
	if word == "" {
		t.Error("GAME_RUNNING entered without a resolved word")
	}
}

func TestCountdown_FirstTickCarriesPhaseName(t *testing.T) {
	r, conns := newTestRoom(t, 4, longTimings(), "alice")

	if _, err := r.AddPlayer("client-bob", "bob", &MockConnection{}); err != nil {
		t.Fatalf("AddPlayer failed: %v", err)
	}

	// The first countdown tick runs on its own goroutine.
	var withPhase, withoutPhase int
	deadline := time.Now().Add(time.Second)
	for withPhase == 0 && time.Now().Before(deadline) {
		withPhase, withoutPhase = 0, 0
		for _, frame := range conns["alice"].framesOfType(network.TypePhaseChange) {
			if frame["phase"] == WaitingForStart.String() {
				withPhase++
			} else if _, ok := frame["phase"]; !ok {
				withoutPhase++
			}
		}
		time.Sleep(5 * time.Millisecond)
	}

	if withPhase != 1 {
		t.Errorf("Expected exactly one WAITING_FOR_START tick with the phase name, got %d", withPhase)
	}
	_ = withoutPhase // later ticks omit the phase; cadence is 1s so none may have arrived yet
}

func TestCapacityTransition_ExactlyOnceUnderConcurrentJoins(t *testing.T) {
	r, conns := newTestRoom(t, 4, longTimings(), "alice", "bob")

	var wg sync.WaitGroup
	for _, name := range []string{"carol", "dave"} {
		wg.Add(1)
		go func(name string) {
			defer wg.Done()
			r.AddPlayer("client-"+name, name, &MockConnection{})
		}(name)
	}
	wg.Wait()

	if r.Phase() != NewRound {
		t.Fatalf("Expected NEW_ROUND at capacity, got %s", r.Phase())
	}

	// Every NEW_ROUND entry sends one candidate list to the drawer; count
	// them across all connections to prove the round started exactly once.
	newWordsFrames := 0
	for _, conn := range conns {
		newWordsFrames += len(conn.framesOfType(network.TypeNewWords))
	}
	r.mu.Lock()
	for _, p := range r.players {
		if mc, ok := p.Conn.(*MockConnection); ok && conns["alice"] != mc && conns["bob"] != mc {
			newWordsFrames += len(mc.framesOfType(network.TypeNewWords))
		}
	}
	r.mu.Unlock()

	if newWordsFrames != 1 {
		t.Errorf("Expected exactly one candidate-words frame (one round start), got %d", newWordsFrames)
	}
}

// --- drawing relay ---

func drawFrame(motionEvent int) (json.RawMessage, *models.DrawData) {
	dd := &models.DrawData{
		Type: network.TypeDrawData, RoomName: "test_room",
		FromX: 1, FromY: 2, ToX: 3, ToY: 4, StrokeWidth: 8, Color: 7,
		MotionEvent: motionEvent,
	}
	return models.ToJSON(dd), dd
}

func TestDrawData_RelayedToAllButSenderWhileRunning(t *testing.T) {
	r, conns := newTestRoom(t, 4, longTimings(), "alice", "bob", "carol")
	forceGameRunning(r, "apple", "alice", 0)

	raw, dd := drawFrame(models.MotionEventMove)
	r.SubmitDrawData("client-alice", raw, dd)

	if got := len(conns["bob"].framesOfType(network.TypeDrawData)); got != 1 {
		t.Errorf("Expected 1 relayed draw event at bob, got %d", got)
	}
	if got := len(conns["alice"].framesOfType(network.TypeDrawData)); got != 0 {
		t.Errorf("Sender must not receive its own draw event, got %d", got)
	}
}

func TestDrawData_IgnoredOutsideGameRunning(t *testing.T) {
	r, conns := newTestRoom(t, 4, longTimings(), "alice", "bob")

	raw, dd := drawFrame(models.MotionEventMove)
	r.SubmitDrawData("client-alice", raw, dd)

	if got := len(conns["bob"].framesOfType(network.TypeDrawData)); got != 0 {
		t.Errorf("Draw events outside GAME_RUNNING must be dropped, got %d", got)
	}
	r.mu.Lock()
	logLen := len(r.curRoundDrawData)
	r.mu.Unlock()
	if logLen != 0 {
		t.Errorf("Draw log must stay empty outside GAME_RUNNING, got %d entries", logLen)
	}
}

func TestDrawData_MidStrokeFinishedOnceAtShowWord(t *testing.T) {
	r, conns := newTestRoom(t, 4, longTimings(), "alice", "bob")
	forceGameRunning(r, "apple", "alice", 0)

	raw, dd := drawFrame(models.MotionEventMove)
	r.SubmitDrawData("client-alice", raw, dd)

	r.mu.Lock()
	r.transitionTo(ShowWord)
	r.mu.Unlock()

	finished := 0
	for _, frame := range conns["bob"].framesOfType(network.TypeDrawData) {
		if int(frame["motionEvent"].(float64)) == models.MotionEventUp {
			finished++
		}
	}
	if finished != 1 {
		t.Errorf("Expected exactly one synthesized stroke-ended event, got %d", finished)
	}
}

func TestDrawData_NoSynthesisWhenStrokeAlreadyEnded(t *testing.T) {
	r, conns := newTestRoom(t, 4, longTimings(), "alice", "bob")
	forceGameRunning(r, "apple", "alice", 0)

	raw, dd := drawFrame(models.MotionEventUp)
	r.SubmitDrawData("client-alice", raw, dd)

	r.mu.Lock()
	r.transitionTo(ShowWord)
	r.mu.Unlock()

	if got := len(conns["bob"].framesOfType(network.TypeDrawData)); got != 1 {
		t.Errorf("Expected only the relayed event, no synthesized finish, got %d", got)
	}
}

func TestDrawData_ReplayedToLateJoiner(t *testing.T) {
	r, _ := newTestRoom(t, 6, longTimings(), "alice", "bob")
	forceGameRunning(r, "apple", "alice", 0)

	for i := 0; i < 3; i++ {
		raw, dd := drawFrame(models.MotionEventMove)
		r.SubmitDrawData("client-alice", raw, dd)
	}

	lateConn := &MockConnection{}
	if _, err := r.AddPlayer("client-eve", "eve", lateConn); err != nil {
		t.Fatalf("AddPlayer failed: %v", err)
	}

	replays := lateConn.framesOfType(network.TypeRoundDrawInfo)
	if len(replays) != 1 {
		t.Fatalf("Expected one replay frame for the late joiner, got %d", len(replays))
	}
	events := replays[0]["data"].([]interface{})
	if len(events) != 3 {
		t.Errorf("Expected 3 replayed draw events, got %d", len(events))
	}

	masked := false
	for _, frame := range lateConn.framesOfType(network.TypeGameState) {
		if frame["word"] == "_____" {
			masked = true
		}
	}
	if !masked {
		t.Error("Expected the late joiner to receive the masked word")
	}
}

// --- drawer rotation ---

func TestDrawerRotation_WrapsAround(t *testing.T) {
	r, _ := newTestRoom(t, 4, longTimings(), "alice", "bob", "carol")

	r.mu.Lock()
	order := make([]*Player, len(r.players))
	copy(order, r.players)

	var seen []*Player
	for i := 0; i < 4; i++ {
		r.nextDrawingPlayer()
		seen = append(seen, r.drawingPlayer)
	}
	r.mu.Unlock()

	want := []*Player{order[0], order[1], order[2], order[0]}
	for i := range want {
		if seen[i] != want[i] {
			t.Errorf("Rotation step %d: expected %s, got %s", i, want[i].Username, seen[i].Username)
		}
	}

	drawers := 0
	r.mu.Lock()
	for _, p := range r.players {
		if p.IsDrawing {
			drawers++
		}
	}
	r.mu.Unlock()
	if drawers != 1 {
		t.Errorf("Expected exactly one drawing flag set, got %d", drawers)
	}
}

func TestDrawerRotation_ClampsWhenPlayersLeft(t *testing.T) {
	r, _ := newTestRoom(t, 6, longTimings(), "alice", "bob", "carol", "dave")

	r.mu.Lock()
	r.drawingPlayerIndex = 10 // stale index beyond the roster
	r.nextDrawingPlayer()
	drawer := r.drawingPlayer
	last := r.players[len(r.players)-1]
	r.mu.Unlock()

	if drawer != last {
		t.Errorf("Expected clamp to the last player, got %s", drawer.Username)
	}
}

// --- manager / directory ---

func TestManager_CreateGetRemove(t *testing.T) {
	m := NewManager(&MockBroadcaster{})

	created, err := m.CreateRoom("kitchen", 4)
	if err != nil {
		t.Fatalf("CreateRoom failed: %v", err)
	}
	if _, err := m.CreateRoom("kitchen", 4); err != ErrRoomExists {
		t.Errorf("Expected ErrRoomExists on duplicate, got %v", err)
	}

	got, exists := m.GetRoom("kitchen")
	if !exists || got != created {
		t.Fatal("GetRoom should return the created instance")
	}
	if !m.RoomExists("kitchen") {
		t.Error("RoomExists should be true")
	}

	m.RemoveRoom("kitchen")
	if m.RoomExists("kitchen") {
		t.Error("RoomExists should be false after removal")
	}
}

func TestManager_JoinUnknownRoom(t *testing.T) {
	m := NewManager(&MockBroadcaster{})
	if _, err := m.JoinRoom("nowhere", "client-1", "alice", &MockConnection{}); err != ErrRoomNotFound {
		t.Errorf("Expected ErrRoomNotFound, got %v", err)
	}
}

func TestManager_RoomDestroyedWhenEmpty(t *testing.T) {
	m := NewManager(&MockBroadcaster{})
	m.SetTimings(longTimings())

	r, err := m.CreateRoom("kitchen", 4)
	if err != nil {
		t.Fatalf("CreateRoom failed: %v", err)
	}
	if _, err := r.AddPlayer("client-alice", "alice", &MockConnection{}); err != nil {
		t.Fatalf("AddPlayer failed: %v", err)
	}

	r.RemovePlayer("client-alice")

	if m.RoomExists("kitchen") {
		t.Error("Expected the emptied room to be removed from the directory")
	}

	r.mu.Lock()
	closed := r.closed
	pending := len(r.leftPlayers)
	r.mu.Unlock()
	if !closed {
		t.Error("Expected the emptied room to be killed")
	}
	if pending != 0 {
		t.Error("Expected all grace snapshots to be discarded on kill")
	}
}

func TestKilledRoom_StaleTimersMutateNothing(t *testing.T) {
	r, _ := newTestRoom(t, 4, shortTimings(), "alice", "bob")

	r.Kill()
	phase := r.Phase()
	time.Sleep(200 * time.Millisecond)

	if got := r.Phase(); got != phase {
		t.Errorf("Killed room changed phase from %s to %s", phase, got)
	}
}
