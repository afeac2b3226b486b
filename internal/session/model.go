package session

import (
	"time"

	"silent-vendetta-cl/internal/protocol"
)

// Identity 是本地玩家入局时敲定的身份，整个会话期间不变。
// 入局前没有服务器分配的玩家 ID，只能靠名字在快照里认出自己。
type Identity struct {
	PlayerName string
	IsHost     bool
}

// GameState 是服务器权威快照在本地的最新副本。
// 只有 StateStore 在处理入站事件时可以改写它，任何组件都不得推测性修改。
type GameState struct {
	ID           string
	Players      map[string]protocol.Player
	Phase        protocol.Phase
	Round        int
	PhaseEndTime time.Time
	MinPlayers   int
	MaxPlayers   int
	MafiaCount   int
}

// NewGameState 返回首个快照到达前的占位状态，默认配置与服务器建房默认值一致
func NewGameState() GameState {
	return GameState{
		Players:    make(map[string]protocol.Player),
		Phase:      protocol.PHASE_WAITING,
		Round:      0,
		MinPlayers: 4,
		MaxPlayers: 10,
		MafiaCount: 2,
	}
}
