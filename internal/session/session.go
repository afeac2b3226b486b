package session

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"silent-vendetta-cl/internal/protocol"

	"go.uber.org/zap"
)

// 通知类别，供上层界面分流渲染
const (
	NOTICE_STATE      = "State"
	NOTICE_TICK       = "Tick"
	NOTICE_CHAT       = "Chat"
	NOTICE_ERROR      = "Error"
	NOTICE_INFO       = "Info"
	NOTICE_DISCONNECT = "Disconnect"
)

// Notice 是会话循环吐给界面的一条已渲染消息。
// 文本在循环内部拼好，界面层只管打印，不触碰任何共享状态。
type Notice struct {
	Kind string
	Text string
}

// Conn 是会话对连接管理器的最小依赖
type Conn interface {
	Subscribe(handler func(evt protocol.EventWrapper))
	Send(act protocol.ActionWrapper)
	Close()
}

// Lobby 是会话对大厅接口的最小依赖（开始游戏 / 请求推进阶段）
type Lobby interface {
	StartGame(gameID string) error
	NextPhase(gameID string) error
}

type command struct {
	action string
	// 聊天正文或投票目标
	payload string
	respCh  chan error
}

type requestResult struct {
	action string
	// 自动推进失败不打扰玩家，玩家手动触发的失败必须可见
	userTriggered bool
	err           error
}

// Session 是游戏会话的状态机。入站事件、每秒节拍、用户命令
// 全部汇入同一个事件循环串行处理，循环之外没有任何状态修改。
type Session struct {
	gameID   string
	identity Identity

	store  *StateStore
	timer  *PhaseTimer
	ledger *VoteLedger

	conn  Conn
	lobby Lobby

	evtCh    chan protocol.EventWrapper
	cmdCh    chan command
	reqCh    chan requestResult
	noticeCh chan Notice
	doneCh   chan struct{}

	tickEvery time.Duration

	closeOnce sync.Once
}

func NewSession(gameID string, identity Identity, conn Conn, lobby Lobby) *Session {
	s := &Session{
		gameID:    gameID,
		identity:  identity,
		store:     NewStateStore(),
		timer:     NewPhaseTimer(),
		ledger:    NewVoteLedger(),
		conn:      conn,
		lobby:     lobby,
		evtCh:     make(chan protocol.EventWrapper, 64),
		cmdCh:     make(chan command),
		reqCh:     make(chan requestResult, 8),
		noticeCh:  make(chan Notice, 64),
		doneCh:    make(chan struct{}),
		tickEvery: time.Second,
	}

	conn.Subscribe(s.onEvent)

	return s
}

// onEvent 在连接的读协程上被调用，只负责把事件塞进循环的通道
func (s *Session) onEvent(evt protocol.EventWrapper) {
	select {
	case s.evtCh <- evt:
	case <-s.doneCh:
	default:
		zap.L().Warn(
			"事件通道已满，丢弃入站事件",
			zap.String("game_id", s.gameID),
			zap.String("event_type", evt.EvtType),
		)
	}
}

func (s *Session) Notices() <-chan Notice {
	return s.noticeCh
}

// Run 进入事件循环，阻塞直到 Close。所有组件状态只在这个协程里变化。
func (s *Session) Run() {
	ticker := time.NewTicker(s.tickEvery)
	defer ticker.Stop()

	zap.L().Info(
		"会话循环启动",
		zap.String("game_id", s.gameID),
		zap.String("player_name", s.identity.PlayerName),
	)

	for {
		select {
		case <-s.doneCh:
			zap.L().Info(
				"收到退出信号，结束会话循环",
				zap.String("game_id", s.gameID),
			)
			return

		case evt := <-s.evtCh:
			s.handleEvent(evt)

		case <-ticker.C:
			s.handleTick()

		case cmd := <-s.cmdCh:
			cmd.respCh <- s.handleCommand(cmd)

		case res := <-s.reqCh:
			s.handleRequestResult(res)
		}
	}
}

// Close 同步终止会话：关掉连接、停掉循环。此后任何迟到的
// 事件或请求结果都不会再改动组件状态。可重复调用。
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		close(s.doneCh)
		s.conn.Close()
	})
}

// ---- 用户操作入口（可从界面协程调用，经命令通道进入循环） ----

func (s *Session) SendChat(text string) error {
	return s.do(command{action: ACTION_CHAT, payload: text})
}

func (s *Session) CastVote(targetID string) error {
	return s.do(command{action: ACTION_VOTE, payload: targetID})
}

func (s *Session) SelectTarget(targetID string) error {
	return s.do(command{action: ACTION_MAFIA, payload: targetID})
}

func (s *Session) StartGame() error {
	return s.do(command{action: ACTION_START})
}

func (s *Session) AdvancePhase() error {
	return s.do(command{action: ACTION_ADVANCE})
}

func (s *Session) do(cmd command) error {
	cmd.respCh = make(chan error, 1)

	select {
	case s.cmdCh <- cmd:
	case <-s.doneCh:
		return ErrSessionClosed
	}

	select {
	case err := <-cmd.respCh:
		return err
	case <-s.doneCh:
		return ErrSessionClosed
	}
}

// ---- 循环内部 ----

func (s *Session) handleEvent(evt protocol.EventWrapper) {
	switch evt.EvtType {
	case protocol.EVT_GAME_STATE:
		patch := protocol.TryUnwrapStatePatch(evt)
		if patch == nil {
			return
		}
		s.applyPatch(patch)

	case protocol.EVT_PLAYER_COUNT:
		count := protocol.TryUnwrapPlayerCount(evt)
		if count == nil {
			return
		}
		s.store.SetPlayerCount(*count)
		s.notify(NOTICE_INFO, fmt.Sprintf(
			"Players: %d / %d (Minimum %d required)",
			*count, s.store.Game().MaxPlayers, s.store.Game().MinPlayers,
		))

	case protocol.EVT_CHAT:
		text := protocol.TryUnwrapChat(evt)
		if text == nil {
			return
		}
		s.store.AppendChat(*text)
		s.notify(NOTICE_CHAT, *text)

	case protocol.EVT_ERROR:
		text := protocol.TryUnwrapErrorNotice(evt)
		if text == nil {
			return
		}
		// 服务器的报错原样转交给玩家
		s.notify(NOTICE_ERROR, *text)

	case protocol.EVT_MAFIA_VOTE:
		vote := protocol.TryUnwrapMafiaVote(evt)
		if vote == nil {
			return
		}
		s.ledger.Record(vote.Voter, vote.Target)
		s.notifyState()

	case protocol.EVT_JOINED:
		zap.L().Debug(
			"收到入局确认",
			zap.String("game_id", s.gameID),
		)

	case protocol.EVT_DISCONNECT:
		// 断连对会话是终点：循环保持存活但不会再有权威更新
		s.timer.Halt()
		s.notify(NOTICE_DISCONNECT, "Disconnected from game server")

	default:
		zap.L().Debug(
			"忽略未知事件",
			zap.String("event_type", evt.EvtType),
		)
	}
}

func (s *Session) applyPatch(patch *protocol.StatePatch) {
	change := s.store.ApplySnapshot(patch)

	// 阶段或回合一变，预告票立即作废
	if change.PhaseChanged || change.RoundChanged {
		s.ledger.Reset()
	}

	game := s.store.Game()

	if change.EndTimeSet {
		s.timer.Resync(game.Phase, s.store.TimeRemaining())
	} else if game.Phase == protocol.PHASE_WAITING || game.Phase == protocol.PHASE_GAMEOVER {
		s.timer.Halt()
	}

	s.notifyState()
}

func (s *Session) handleTick() {
	if s.timer.Tick() {
		// 倒计时归零，自动请求服务器推进阶段（每次归零只发一次）
		zap.L().Info(
			"倒计时归零，请求推进阶段",
			zap.String("game_id", s.gameID),
			zap.String("phase", string(s.store.Game().Phase)),
		)
		s.requestNextPhase(false)
	}

	if s.timer.Running() {
		s.notifyTick()
	}
}

func (s *Session) handleCommand(cmd command) error {
	me := s.store.CurrentPlayer(s.identity)

	if err := Permit(s.store.Game(), me, cmd.action); err != nil {
		zap.L().Debug(
			"动作被本地权限关卡拒绝",
			zap.String("action", cmd.action),
			zap.Error(err),
		)
		return err
	}

	switch cmd.action {
	case ACTION_CHAT:
		s.conn.Send(protocol.WrapChat(cmd.payload))

	case ACTION_VOTE:
		s.conn.Send(protocol.WrapVote(cmd.payload))

	case ACTION_MAFIA:
		s.conn.Send(protocol.WrapMafiaAction(cmd.payload))

	case ACTION_START:
		// 大厅请求在旁路协程上等待结果，循环不为它停摆
		go s.callLobby(ACTION_START, true, s.lobby.StartGame)

	case ACTION_ADVANCE:
		s.requestNextPhase(true)
	}

	return nil
}

func (s *Session) requestNextPhase(userTriggered bool) {
	go s.callLobby(ACTION_ADVANCE, userTriggered, s.lobby.NextPhase)
}

func (s *Session) callLobby(action string, userTriggered bool, call func(string) error) {
	err := call(s.gameID)

	select {
	case s.reqCh <- requestResult{action: action, userTriggered: userTriggered, err: err}:
	case <-s.doneCh:
		// 会话已拆除，丢弃迟到的结果
	}
}

func (s *Session) handleRequestResult(res requestResult) {
	if res.err == nil {
		return
	}

	if !res.userTriggered {
		// 自动推进失败不值得打扰玩家，下一个快照会纠正一切
		zap.L().Debug(
			"自动推进阶段失败",
			zap.String("game_id", s.gameID),
			zap.Error(res.err),
		)
		return
	}

	s.notify(NOTICE_ERROR, res.err.Error())
}

// ---- 渲染 ----

func (s *Session) notify(kind, text string) {
	select {
	case s.noticeCh <- Notice{Kind: kind, Text: text}:
	default:
		zap.L().Warn(
			"通知通道已满，丢弃通知",
			zap.String("kind", kind),
		)
	}
}

func (s *Session) notifyTick() {
	game := s.store.Game()
	me := s.store.CurrentPlayer(s.identity)
	mafia := me != nil && me.Role == protocol.ROLE_MAFIA

	info := InfoFor(game.Phase, mafia)
	remaining := s.timer.Remaining()

	text := fmt.Sprintf("%s - Time Remaining: %ds", info.Name, remaining)
	if urgency := info.Urgency(remaining); urgency != URGENCY_NONE {
		text += " [" + urgency + "]"
	}

	s.notify(NOTICE_TICK, text)
}

// notifyState 在循环内部把当前局面渲染成文本，界面层原样打印即可
func (s *Session) notifyState() {
	game := s.store.Game()
	me := s.store.CurrentPlayer(s.identity)
	mafia := me != nil && me.Role == protocol.ROLE_MAFIA

	var b strings.Builder

	info := InfoFor(game.Phase, mafia)

	switch game.Phase {
	case protocol.PHASE_WAITING:
		fmt.Fprintf(&b, "Waiting for Players (%d / %d, minimum %d)\n",
			len(game.Players), game.MaxPlayers, game.MinPlayers)

	case protocol.PHASE_GAMEOVER:
		b.WriteString("Game Over!\n")

	default:
		fmt.Fprintf(&b, "%s (round %d) - %s\n", info.Name, game.Round, info.Description)
	}

	if me != nil && game.Phase != protocol.PHASE_WAITING && me.Role != "" {
		fmt.Fprintf(&b, "Your role: %s\n", me.Role)
	}

	if mafia && game.Phase == protocol.PHASE_NIGHT {
		fmt.Fprintf(&b, "Mafia votes needed: %d\n", s.store.MafiaVotesNeeded())
	}

	for _, p := range game.Players {
		status := "Alive"
		if !p.IsAlive {
			status = "Dead"
		}

		fmt.Fprintf(&b, "  [%s] %s (%s)", p.ID, p.Name, status)

		if p.IsHost {
			b.WriteString(" [Host]")
		}

		// 预告票只展示给黑手党阵营
		if mafia && game.Phase == protocol.PHASE_NIGHT {
			if tally := s.ledger.Tally(p.ID); tally > 0 {
				fmt.Fprintf(&b, " Votes: %d", tally)
			}
		}

		b.WriteString("\n")
	}

	s.notify(NOTICE_STATE, strings.TrimRight(b.String(), "\n"))
}
