package session

import (
	"strings"
	"time"
	"unicode"

	"silent-vendetta-cl/internal/protocol"

	"go.uber.org/zap"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// SnapshotChange 汇报一次快照合并改变了什么，供会话循环
// 决定是否清空预告票、是否重新校准倒计时。
type SnapshotChange struct {
	PhaseChanged bool
	RoundChanged bool
	EndTimeSet   bool
}

// StateStore 持有权威快照的唯一本地副本，以及几项派生/伴随数据
// （剩余秒数、大厅人数、聊天记录）。所有修改都由会话循环串行触发。
type StateStore struct {
	game GameState

	// 由 phaseEndTime 减去本地时钟得出，只用来给倒计时定初值，本身不是权威数据
	timeRemaining int

	playerCount int
	chatLog     []string

	now func() time.Time
}

func NewStateStore() *StateStore {
	return &StateStore{
		game: NewGameState(),
		now:  time.Now,
	}
}

// ApplySnapshot 把部分快照合并进当前状态：出现的字段整体替换，
// 缺失的字段保留。Players 一旦出现就是完整名单，直接换掉整个映射。
func (s *StateStore) ApplySnapshot(patch *protocol.StatePatch) SnapshotChange {
	var change SnapshotChange

	if patch == nil {
		return change
	}

	if patch.ID != nil {
		s.game.ID = *patch.ID
	}

	if patch.Players != nil {
		s.game.Players = patch.Players
	}

	if patch.Phase != nil && *patch.Phase != s.game.Phase {
		zap.L().Info(
			"阶段切换",
			zap.String("from", string(s.game.Phase)),
			zap.String("to", string(*patch.Phase)),
		)

		s.game.Phase = *patch.Phase
		change.PhaseChanged = true
	}

	if patch.Round != nil && *patch.Round != s.game.Round {
		s.game.Round = *patch.Round
		change.RoundChanged = true
	}

	if patch.MinPlayers != nil {
		s.game.MinPlayers = *patch.MinPlayers
	}

	if patch.MaxPlayers != nil {
		s.game.MaxPlayers = *patch.MaxPlayers
	}

	if patch.MafiaCount != nil {
		s.game.MafiaCount = *patch.MafiaCount
	}

	if patch.PhaseEndTime != nil {
		s.game.PhaseEndTime = *patch.PhaseEndTime

		remaining := int(s.game.PhaseEndTime.Sub(s.now()).Seconds())
		if remaining < 0 {
			remaining = 0
		}

		s.timeRemaining = remaining
		change.EndTimeSet = true
	}

	return change
}

func (s *StateStore) Game() GameState {
	return s.game
}

func (s *StateStore) TimeRemaining() int {
	return s.timeRemaining
}

func (s *StateStore) PlayerCount() int {
	return s.playerCount
}

func (s *StateStore) SetPlayerCount(count int) {
	s.playerCount = count
}

func (s *StateStore) AppendChat(line string) {
	s.chatLog = append(s.chatLog, line)
}

func (s *StateStore) ChatLog() []string {
	return s.chatLog
}

// CurrentPlayer 按名字在名单里认出本地玩家（忽略大小写与重音）。
// 首个快照到达前必然找不到，返回 nil 是正常的过渡状态，不是错误。
func (s *StateStore) CurrentPlayer(identity Identity) *protocol.Player {
	want := NormalizeName(identity.PlayerName)

	for _, p := range s.game.Players {
		if NormalizeName(p.Name) == want {
			player := p
			return &player
		}
	}

	return nil
}

// AliveMafiaCount 统计存活的黑手党人数，用于预告票的过半阈值显示
func (s *StateStore) AliveMafiaCount() int {
	count := 0

	for _, p := range s.game.Players {
		if p.IsAlive && p.Role == protocol.ROLE_MAFIA {
			count++
		}
	}

	return count
}

// MafiaVotesNeeded 与服务器的淘汰判定一致：存活黑手党的过半数
func (s *StateStore) MafiaVotesNeeded() int {
	return (s.AliveMafiaCount() + 1) / 2
}

// NormalizeName converts to lowercase and removes accents.
func NormalizeName(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))

	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	result, _, _ := transform.String(t, name)

	return result
}
