package protocol

import "time"

// 玩家身份（由服务器分配，客户端只读）
const (
	ROLE_MAFIA     = "mafia"
	ROLE_VILLAGER  = "villager"
	ROLE_DETECTIVE = "detective"
	ROLE_MEDIC     = "medic"
)

type Phase string

// 游戏总体分为 5 个阶段，全部由服务器裁定，客户端绝不自行切换：
// 1. 等待阶段（waiting）：玩家陆续加入，等待房主开始游戏
// 2. 夜晚阶段（night）：黑手党选择淘汰目标，其余玩家旁观
// 3. 讨论阶段（discuss）：所有存活玩家自由发言
// 4. 投票阶段（vote）：存活玩家投票选出怀疑对象
// 5. 结束阶段（gameover）：胜负已定，不再接受任何操作
const (
	PHASE_WAITING  Phase = "waiting"
	PHASE_NIGHT    Phase = "night"
	PHASE_DISCUSS  Phase = "discuss"
	PHASE_VOTE     Phase = "vote"
	PHASE_GAMEOVER Phase = "gameover"
)

type Player struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Role     string `json:"role,omitempty"`
	IsAlive  bool   `json:"isAlive"`
	IsHost   bool   `json:"isHost"`
	VotedFor string `json:"votedFor,omitempty"`
}

// StatePatch 是服务器推送的权威快照。所有字段都是可选的：
// 字段存在则整体替换本地对应字段，字段缺失则保留本地值。
// Players 一旦出现就是完整名单，服务器从不发送单个玩家的增量。
type StatePatch struct {
	ID           *string           `json:"id"`
	Players      map[string]Player `json:"players"`
	Phase        *Phase            `json:"phase"`
	Round        *int              `json:"round"`
	PhaseEndTime *time.Time        `json:"phaseEndTime"`
	MinPlayers   *int              `json:"minPlayers"`
	MaxPlayers   *int              `json:"maxPlayers"`
	MafiaCount   *int              `json:"mafiaCount"`
}

// MafiaVoteEvent 是夜晚阶段的预告票（非权威），同一 voter 后到覆盖先到
type MafiaVoteEvent struct {
	Voter  string `json:"voter"`
	Target string `json:"target"`
}

// JoinData 是连接建立后发送的第一条消息的载荷
type JoinData struct {
	PlayerName string `json:"playerName"`
	IsHost     bool   `json:"isHost"`
}
