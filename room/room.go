// room/room.go
package room

import (
	"encoding/json"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/wfunc/drawparty/logger"
	"github.com/wfunc/drawparty/models"
	"github.com/wfunc/drawparty/network"
	"github.com/wfunc/drawparty/timer"
	"github.com/wfunc/drawparty/words"
)

// leftPlayer 断线玩家的快照，宽限期内等待重连
type leftPlayer struct {
	player      *Player
	index       int
	removeTimer *time.Timer
}

// Room 是一个游戏房间的核心结构。所有可变状态都由 mu 串行化；
// 阶段切换只能通过 transitionTo 发生，切换和副作用在同一临界区内完成。
type Room struct {
	Name       string
	MaxPlayers int

	mu          sync.Mutex
	players     []*Player
	leftPlayers map[string]*leftPlayer
	phase       Phase
	closed      bool

	// 每个房间同时最多一个倒计时任务
	countdown *timer.Countdown

	drawingPlayer      *Player
	drawingPlayerIndex int
	winningPlayers     []string
	word               string
	curWords           []string
	startTime          time.Time

	curRoundDrawData []json.RawMessage
	lastDrawData     *models.DrawData

	timings     Timings
	broadcaster Broadcaster
	scores      ScoreSink
	onEmpty     func(name string)
}

// NewRoom 创建一个新房间，初始阶段为等待玩家
func NewRoom(name string, maxPlayers int, timings Timings, broadcaster Broadcaster) *Room {
	return &Room{
		Name:        name,
		MaxPlayers:  maxPlayers,
		phase:       WaitingForPlayers,
		leftPlayers: make(map[string]*leftPlayer),
		timings:     timings,
		broadcaster: broadcaster,
	}
}

// SetScoreSink installs the optional persistence hook.
func (r *Room) SetScoreSink(s ScoreSink) {
	r.mu.Lock()
	r.scores = s
	r.mu.Unlock()
}

// --- 只读访问 ---

func (r *Room) Phase() Phase {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.phase
}

func (r *Room) PlayerCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.players)
}

// ContainsPlayer reports whether an active player currently uses the name.
func (r *Room) ContainsPlayer(username string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.players {
		if p.Username == username {
			return true
		}
	}
	return false
}

// PlayerNames 当前花名册快照，供REST列表用
func (r *Room) PlayerNames() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, 0, len(r.players))
	for _, p := range r.players {
		names = append(names, p.Username)
	}
	return names
}

// --- 成员管理 ---

// AddPlayer joins a player into the room. A client id found in the
// recently-left set is restored with its previous score, rank and roster
// position; anything else gets a fresh player appended at the end.
func (r *Room) AddPlayer(clientID, username string, conn network.Connection) (*Player, error) {
	r.mu.Lock()

	if r.closed {
		r.mu.Unlock()
		return nil, ErrRoomNotFound
	}

	lp, rejoining := r.leftPlayers[clientID]
	if rejoining {
		// 别的活跃玩家顶了这个名字就不能恢复快照
		for _, p := range r.players {
			if p.Username == lp.player.Username {
				r.mu.Unlock()
				return nil, ErrUsernameTaken
			}
		}
	} else {
		if len(r.players) >= r.MaxPlayers {
			r.mu.Unlock()
			return nil, ErrRoomFull
		}
		for _, p := range r.players {
			if p.Username == username {
				r.mu.Unlock()
				return nil, ErrUsernameTaken
			}
		}
		// 宽限期内名字仍归断线玩家所有
		for _, other := range r.leftPlayers {
			if other.player.Username == username {
				r.mu.Unlock()
				return nil, ErrUsernameTaken
			}
		}
	}

	var player *Player
	var indexToAdd int
	if rejoining {
		player = lp.player
		player.Conn = conn
		player.IsDrawing = r.drawingPlayer != nil && r.drawingPlayer.ClientID == clientID
		indexToAdd = lp.index

		lp.removeTimer.Stop()
		delete(r.leftPlayers, clientID)
	} else {
		player = NewPlayer(username, clientID, conn)
		indexToAdd = len(r.players)
	}

	if indexToAdd > len(r.players) {
		indexToAdd = len(r.players)
	}
	r.players = append(r.players, nil)
	copy(r.players[indexToAdd+1:], r.players[indexToAdd:])
	r.players[indexToAdd] = player

	// 人数触发的阶段切换
	switch {
	case len(r.players) == 1:
		r.transitionTo(WaitingForPlayers)
	case len(r.players) == 2 && r.phase == WaitingForPlayers:
		r.shufflePlayers()
		r.transitionTo(WaitingForStart)
	case r.phase == WaitingForStart && len(r.players) == r.MaxPlayers:
		r.shufflePlayers()
		r.transitionTo(NewRound)
	}

	r.sendWordToPlayer(player)
	r.broadcastPlayerStates()
	r.sendCurRoundDrawDataToPlayer(player)

	announcement := models.NewAnnouncement(
		player.Username+" joined the party!",
		nowMillis(),
		models.AnnouncementPlayerJoined,
	)
	r.broadcastLocked(models.ToJSON(announcement))

	r.mu.Unlock()
	return player, nil
}

// RemovePlayer takes a player out of the active roster immediately but keeps
// a snapshot for the grace window so a rejoin restores score and position.
func (r *Room) RemovePlayer(clientID string) error {
	r.mu.Lock()

	idx := -1
	for i, p := range r.players {
		if p.ClientID == clientID {
			idx = i
			break
		}
	}
	if idx == -1 {
		r.mu.Unlock()
		return ErrUnknownPlayer
	}

	player := r.players[idx]
	r.players = append(r.players[:idx], r.players[idx+1:]...)

	r.leftPlayers[clientID] = &leftPlayer{
		player: player,
		index:  idx,
		removeTimer: time.AfterFunc(r.timings.PlayerRemoveGrace, func() {
			r.finalizeRemoval(clientID)
		}),
	}

	r.broadcastPlayerStates()
	announcement := models.NewAnnouncement(
		player.Username+" has left the party",
		nowMillis(),
		models.AnnouncementPlayerLeft,
	)
	r.broadcastLocked(models.ToJSON(announcement))

	empty := len(r.players) == 0
	if empty {
		r.killLocked()
	} else if len(r.players) == 1 {
		r.transitionTo(WaitingForPlayers)
	}

	onEmpty := r.onEmpty
	r.mu.Unlock()

	// 房间空了以后再通知目录销毁，避免和目录锁交叉
	if empty && onEmpty != nil {
		onEmpty(r.Name)
	}
	return nil
}

// finalizeRemoval discards a grace-window snapshot whose window elapsed
// without a rejoin.
func (r *Room) finalizeRemoval(clientID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return
	}
	if lp, ok := r.leftPlayers[clientID]; ok {
		delete(r.leftPlayers, clientID)
		logger.Log.Infof("room %s: grace window elapsed for %s, snapshot discarded", r.Name, lp.player.Username)
	}
}

// Kill cancels every outstanding task owned by the room. A killed room
// performs no further mutations even if a stale timer fires afterwards.
func (r *Room) Kill() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.killLocked()
}

func (r *Room) killLocked() {
	if r.closed {
		return
	}
	r.closed = true
	r.stopCountdownLocked()
	for _, lp := range r.leftPlayers {
		lp.removeTimer.Stop()
	}
	r.leftPlayers = make(map[string]*leftPlayer)
}

// --- 阶段状态机 ---

// transitionTo 原子地更新阶段并同步执行该阶段的入口副作用。
// 调用方必须已持有 r.mu。
func (r *Room) transitionTo(phase Phase) {
	r.phase = phase
	switch phase {
	case WaitingForPlayers:
		r.enterWaitingForPlayers()
	case WaitingForStart:
		r.enterWaitingForStart()
	case NewRound:
		r.enterNewRound()
	case GameRunning:
		r.enterGameRunning()
	case ShowWord:
		r.enterShowWord()
	}
}

func (r *Room) enterWaitingForPlayers() {
	r.stopCountdownLocked()
	phaseChange := models.NewPhaseChange(WaitingForPlayers.String(), r.timings.WaitingForStartToNewRound.Milliseconds(), "")
	r.broadcastLocked(models.ToJSON(phaseChange))
}

func (r *Room) enterWaitingForStart() {
	r.armCountdown(r.timings.WaitingForStartToNewRound)
}

func (r *Room) enterNewRound() {
	r.curRoundDrawData = nil
	r.lastDrawData = nil
	r.curWords = words.RandomWords(3)
	r.nextDrawingPlayer()

	if r.drawingPlayer != nil {
		newWords := models.NewNewWords(r.curWords)
		if err := r.broadcaster.SendTo(r.drawingPlayer.Conn, models.ToJSON(newWords)); err != nil {
			logger.Log.Warnf("room %s: failed to send word candidates to %s: %v", r.Name, r.drawingPlayer.Username, err)
		}
	}
	r.broadcastPlayerStates()
	r.armCountdown(r.timings.NewRoundToGameRunning)
}

func (r *Room) enterGameRunning() {
	r.winningPlayers = nil

	// 画手没选词时退回随机词，保证不被挂起的客户端卡住
	if r.word == "" {
		if len(r.curWords) > 0 {
			r.word = r.curWords[rand.Intn(len(r.curWords))]
		} else {
			r.word = words.Random()
		}
	}

	drawer := r.drawingPlayer
	if drawer == nil {
		drawer = r.fallbackDrawer()
	}
	if drawer == nil {
		return
	}

	masked := words.Mask(r.word)
	r.broadcastExceptLocked(models.ToJSON(models.NewGameState(drawer.Username, masked)), drawer.ClientID)
	if err := r.broadcaster.SendTo(drawer.Conn, models.ToJSON(models.NewGameState(drawer.Username, r.word))); err != nil {
		logger.Log.Warnf("room %s: failed to send word to drawer %s: %v", r.Name, drawer.Username, err)
	}

	r.armCountdown(r.timings.GameRunningToShowWord)
	logger.Log.Infof("room %s: drawing phase started, word set, %ds to guess",
		r.Name, int(r.timings.GameRunningToShowWord.Seconds()))
}

func (r *Room) enterShowWord() {
	if len(r.winningPlayers) == 0 && r.drawingPlayer != nil {
		r.drawingPlayer.Score -= penaltyNobodyGuessed
		r.recordDrawerDelta(r.drawingPlayer, -penaltyNobodyGuessed)
	}

	r.finishOffDrawing()

	if r.word != "" {
		chosen := models.NewChosenWord(r.word, r.Name)
		r.broadcastLocked(models.ToJSON(chosen))
	}
	r.broadcastPlayerStates()
	r.armCountdown(r.timings.ShowWordToNewRound)
}

// armCountdown replaces the room's countdown task with a fresh one. The
// first tick carries the phase name, later ticks only the remaining time.
func (r *Room) armCountdown(delay time.Duration) {
	r.stopCountdownLocked()
	r.startTime = time.Now()

	phaseName := r.phase.String()
	drawerName := ""
	if r.drawingPlayer != nil {
		drawerName = r.drawingPlayer.Username
	}

	var c *timer.Countdown
	c = timer.StartCountdown(delay, r.timings.TickInterval,
		func(remaining time.Duration, first bool) {
			r.mu.Lock()
			if r.closed || r.countdown != c {
				r.mu.Unlock()
				return
			}
			name := ""
			if first {
				name = phaseName
			}
			phaseChange := models.NewPhaseChange(name, remaining.Milliseconds(), drawerName)
			r.broadcastLocked(models.ToJSON(phaseChange))
			r.mu.Unlock()
		},
		func() {
			r.advancePhase(c)
		},
	)
	r.countdown = c
}

func (r *Room) stopCountdownLocked() {
	if r.countdown != nil {
		r.countdown.Stop()
		r.countdown = nil
	}
}

// advancePhase fires when a countdown runs out. A countdown that was
// superseded or belongs to a killed room mutates nothing.
func (r *Room) advancePhase(c *timer.Countdown) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed || r.countdown != c {
		return
	}
	r.countdown = nil

	switch r.phase {
	case WaitingForStart:
		r.transitionTo(NewRound)
	case NewRound:
		// 没人选词，进入画图阶段时再随机补一个
		r.word = ""
		r.transitionTo(GameRunning)
	case GameRunning:
		r.transitionTo(ShowWord)
	case ShowWord:
		r.transitionTo(NewRound)
	}
}

// nextDrawingPlayer 轮转画手。索引越界时退到最后一名玩家。
func (r *Room) nextDrawingPlayer() {
	if r.drawingPlayer != nil {
		r.drawingPlayer.IsDrawing = false
	}
	if len(r.players) == 0 {
		return
	}

	if r.drawingPlayerIndex <= len(r.players)-1 {
		r.drawingPlayer = r.players[r.drawingPlayerIndex]
	} else {
		r.drawingPlayer = r.players[len(r.players)-1]
	}
	r.drawingPlayer.IsDrawing = true

	if r.drawingPlayerIndex < len(r.players)-1 {
		r.drawingPlayerIndex++
	} else {
		r.drawingPlayerIndex = 0
	}
}

// fallbackDrawer should be unreachable through the documented transitions;
// it mirrors the defensive pick of a random player if no drawer is assigned.
func (r *Room) fallbackDrawer() *Player {
	if len(r.players) == 0 {
		return nil
	}
	logger.Log.Warnf("room %s: game running without an assigned drawer, picking at random", r.Name)
	return r.players[rand.Intn(len(r.players))]
}

func (r *Room) shufflePlayers() {
	rand.Shuffle(len(r.players), func(i, j int) {
		r.players[i], r.players[j] = r.players[j], r.players[i]
	})
}

// --- 猜词与计分 ---

// CheckGuessAndNotify scores a chat message if it is a correct guess and
// reports whether it was. Wrong guesses change nothing.
func (r *Room) CheckGuessAndNotify(msg *models.ChatMessage) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.isGuessCorrect(msg) {
		return false
	}

	guesser := r.findPlayerByUsername(msg.From)
	if guesser == nil {
		return false
	}

	elapsed := time.Since(r.startTime)
	timeLeft := 1 - float64(elapsed)/float64(r.timings.GameRunningToShowWord)
	score := int(guessScoreDefault + guessScoreMultiplier*timeLeft)
	guesser.Score += score
	r.recordGuess(guesser, score)

	if r.drawingPlayer != nil {
		bonus := drawingPlayerGuessBonus / len(r.players)
		r.drawingPlayer.Score += bonus
		r.recordDrawerDelta(r.drawingPlayer, bonus)
	}

	r.broadcastPlayerStates()
	announcement := models.NewAnnouncement(
		msg.From+" has guessed it!",
		nowMillis(),
		models.AnnouncementPlayerGuessedWord,
	)
	r.broadcastLocked(models.ToJSON(announcement))

	r.winningPlayers = append(r.winningPlayers, msg.From)
	if len(r.winningPlayers) == len(r.players)-1 {
		roundOver := models.NewAnnouncement(
			"Everybody guessed it! New round is starting...",
			nowMillis(),
			models.AnnouncementEverybodyGuessed,
		)
		r.broadcastLocked(models.ToJSON(roundOver))
		r.transitionTo(NewRound)
	}
	return true
}

// isGuessCorrect 要求：游戏进行中、提交者不是画手也没猜中过、
// 文本去空白后大小写不敏感地等于谜底
func (r *Room) isGuessCorrect(msg *models.ChatMessage) bool {
	if r.phase != GameRunning || r.word == "" {
		return false
	}
	if r.drawingPlayer != nil && msg.From == r.drawingPlayer.Username {
		return false
	}
	for _, winner := range r.winningPlayers {
		if winner == msg.From {
			return false
		}
	}
	return strings.EqualFold(strings.TrimSpace(msg.Message), r.word)
}

// SetWordAndSwitchToGameRunning applies the drawer's candidate choice. It is
// only honored while the round is being set up; a late choice after the
// fallback word was resolved is ignored.
func (r *Room) SetWordAndSwitchToGameRunning(word string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.phase != NewRound {
		return
	}
	r.word = word
	r.transitionTo(GameRunning)
}

// BroadcastChat relays a chat line to everyone in the room.
func (r *Room) BroadcastChat(msg *models.ChatMessage) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.broadcastLocked(models.ToJSON(msg))
}

// --- 画笔事件 ---

// SubmitDrawData records and relays one drawing event while the round is
// running. The raw payload is kept for late-join replay.
func (r *Room) SubmitDrawData(senderClientID string, raw json.RawMessage, drawData *models.DrawData) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.phase != GameRunning {
		return
	}

	r.curRoundDrawData = append(r.curRoundDrawData, raw)
	r.lastDrawData = drawData
	r.broadcastExceptLocked(raw, senderClientID)
}

// finishOffDrawing synthesizes a stroke-ended event when the round closed
// mid-stroke, so every client renders a finished drawing.
func (r *Room) finishOffDrawing() {
	if r.lastDrawData == nil || len(r.curRoundDrawData) == 0 {
		return
	}
	if r.lastDrawData.MotionEvent != models.MotionEventMove {
		return
	}
	finish := *r.lastDrawData
	finish.MotionEvent = models.MotionEventUp
	r.lastDrawData = &finish
	r.broadcastLocked(models.ToJSON(&finish))
}

// --- 广播 ---

func (r *Room) connsLocked(exceptClientID string) []network.Connection {
	conns := make([]network.Connection, 0, len(r.players))
	for _, p := range r.players {
		if exceptClientID != "" && p.ClientID == exceptClientID {
			continue
		}
		conns = append(conns, p.Conn)
	}
	return conns
}

func (r *Room) broadcastLocked(data []byte) {
	if data == nil {
		return
	}
	r.broadcaster.Broadcast(r.connsLocked(""), data)
}

func (r *Room) broadcastExceptLocked(data []byte, exceptClientID string) {
	if data == nil {
		return
	}
	r.broadcaster.Broadcast(r.connsLocked(exceptClientID), data)
}

// broadcastPlayerStates 按分数排名并广播玩家列表
func (r *Room) broadcastPlayerStates() {
	sorted := make([]*Player, len(r.players))
	copy(sorted, r.players)
	for i := 1; i < len(sorted); i++ {
		for j := i; j > 0 && sorted[j-1].Score < sorted[j].Score; j-- {
			sorted[j-1], sorted[j] = sorted[j], sorted[j-1]
		}
	}

	list := make([]models.PlayerData, 0, len(sorted))
	for i, p := range sorted {
		p.Rank = i + 1
		list = append(list, models.PlayerData{
			Username:  p.Username,
			IsDrawing: p.IsDrawing,
			Score:     p.Score,
			Rank:      p.Rank,
		})
	}
	r.broadcastLocked(models.ToJSON(models.NewPlayersList(list)))
}

// sendWordToPlayer catches a joining player up: the phase countdown and,
// mid-round, either the secret word (drawer, or everyone during the reveal)
// or its mask.
func (r *Room) sendWordToPlayer(player *Player) {
	delay := r.timings.delayFor(r.phase)

	drawerName := ""
	if r.drawingPlayer != nil {
		drawerName = r.drawingPlayer.Username
	}

	if r.word != "" && r.drawingPlayer != nil {
		wordToSend := r.word
		if !player.IsDrawing && r.phase != ShowWord {
			wordToSend = words.Mask(r.word)
		}
		gameState := models.NewGameState(drawerName, wordToSend)
		if err := r.broadcaster.SendTo(player.Conn, models.ToJSON(gameState)); err != nil {
			logger.Log.Debugf("room %s: failed to send game state to %s: %v", r.Name, player.Username, err)
		}
	}

	phaseChange := models.NewPhaseChange(r.phase.String(), delay.Milliseconds(), drawerName)
	if err := r.broadcaster.SendTo(player.Conn, models.ToJSON(phaseChange)); err != nil {
		logger.Log.Debugf("room %s: failed to send phase change to %s: %v", r.Name, player.Username, err)
	}
}

func (r *Room) sendCurRoundDrawDataToPlayer(player *Player) {
	if r.phase != GameRunning && r.phase != ShowWord {
		return
	}
	if len(r.curRoundDrawData) == 0 {
		return
	}
	info := models.NewRoundDrawInfo(r.curRoundDrawData)
	if err := r.broadcaster.SendTo(player.Conn, models.ToJSON(info)); err != nil {
		logger.Log.Debugf("room %s: failed to replay draw data to %s: %v", r.Name, player.Username, err)
	}
}

// --- 落库钩子 ---

func (r *Room) recordGuess(p *Player, points int) {
	if r.scores == nil {
		return
	}
	go r.scores.RecordGuess(p.ClientID, p.Username, points)
}

func (r *Room) recordDrawerDelta(p *Player, delta int) {
	if r.scores == nil {
		return
	}
	go r.scores.RecordDrawerDelta(p.ClientID, p.Username, delta)
}

func (r *Room) findPlayerByUsername(username string) *Player {
	for _, p := range r.players {
		if p.Username == username {
			return p
		}
	}
	return nil
}

func nowMillis() int64 {
	return time.Now().UnixMilli()
}
