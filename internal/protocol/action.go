package protocol

import (
	"encoding/json"
)

// 出站动作类型
const (
	ACT_JOIN         = "join"
	ACT_CHAT         = "chat"
	ACT_VOTE         = "vote"
	ACT_MAFIA_ACTION = "mafiaAction"
)

type ActionWrapper struct {
	ActType string `json:"type"`
	Data    any    `json:"data"`
}

func WrapJoin(identity JoinData) ActionWrapper {
	return ActionWrapper{
		ActType: ACT_JOIN,
		Data:    identity,
	}
}

func WrapChat(text string) ActionWrapper {
	return ActionWrapper{
		ActType: ACT_CHAT,
		Data:    text,
	}
}

func WrapVote(targetID string) ActionWrapper {
	return ActionWrapper{
		ActType: ACT_VOTE,
		Data:    targetID,
	}
}

func WrapMafiaAction(targetID string) ActionWrapper {
	return ActionWrapper{
		ActType: ACT_MAFIA_ACTION,
		Data:    targetID,
	}
}

func mustMarshal(v any) json.RawMessage {
	data, err := json.Marshal(v)
	if err != nil {
		panic("Failed to marshal: " + err.Error())
	}

	return data
}
