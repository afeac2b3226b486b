package protocol

import (
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// 入站事件类型
const (
	EVT_GAME_STATE   = "gameState"
	EVT_PLAYER_COUNT = "playerCount"
	EVT_CHAT         = "chat"
	EVT_ERROR        = "error"
	EVT_MAFIA_VOTE   = "mafiaVote"
	EVT_JOINED       = "joined"

	// 未知标签统一归入此类，由订阅方直接忽略
	EVT_UNKNOWN = "Unknown"
	// 连接断开时由本地合成，不会来自服务器
	EVT_DISCONNECT = "Disconnect"
)

var ErrBadEvent = errors.New("malformed event payload")

type EventWrapper struct {
	EvtType string          `json:"type"`
	Data    json.RawMessage `json:"data"`
}

// Decode 把原始字节解析为带标签的事件。校验失败的消息在这里被拦下，
// 绝不允许流入状态存储；未知标签不算失败，改写为 EVT_UNKNOWN 后放行。
func Decode(raw []byte) (EventWrapper, error) {
	var wrapper EventWrapper

	if err := json.Unmarshal(raw, &wrapper); err != nil {
		return EventWrapper{}, fmt.Errorf("%w: %v", ErrBadEvent, err)
	}

	if wrapper.EvtType == "" {
		return EventWrapper{}, fmt.Errorf("%w: 缺少 type 字段", ErrBadEvent)
	}

	switch wrapper.EvtType {
	case EVT_GAME_STATE:
		var patch StatePatch
		if err := json.Unmarshal(wrapper.Data, &patch); err != nil {
			return EventWrapper{}, fmt.Errorf("%w: %v", ErrBadEvent, err)
		}

	case EVT_PLAYER_COUNT:
		var count int
		if err := json.Unmarshal(wrapper.Data, &count); err != nil {
			return EventWrapper{}, fmt.Errorf("%w: %v", ErrBadEvent, err)
		}

	case EVT_CHAT, EVT_ERROR:
		var text string
		if err := json.Unmarshal(wrapper.Data, &text); err != nil {
			return EventWrapper{}, fmt.Errorf("%w: %v", ErrBadEvent, err)
		}

	case EVT_MAFIA_VOTE:
		var vote MafiaVoteEvent
		if err := json.Unmarshal(wrapper.Data, &vote); err != nil {
			return EventWrapper{}, fmt.Errorf("%w: %v", ErrBadEvent, err)
		}
		if vote.Voter == "" || vote.Target == "" {
			return EventWrapper{}, fmt.Errorf("%w: mafiaVote 缺少 voter 或 target", ErrBadEvent)
		}

	case EVT_JOINED:
		// 仅作确认用，载荷不做要求

	default:
		zap.L().Debug(
			"收到未知事件类型",
			zap.String("event_type", wrapper.EvtType),
		)
		wrapper.EvtType = EVT_UNKNOWN
	}

	return wrapper, nil
}

func TryUnwrapStatePatch(wrapper EventWrapper) *StatePatch {
	if wrapper.EvtType != EVT_GAME_STATE {
		return nil
	}

	var patch StatePatch

	if err := json.Unmarshal(wrapper.Data, &patch); err != nil {
		zap.L().Error(
			"Failed to unwrap StatePatch",
			zap.Error(err),
			zap.Any("wrapper", wrapper),
		)
		return nil
	}

	return &patch
}

func TryUnwrapPlayerCount(wrapper EventWrapper) *int {
	if wrapper.EvtType != EVT_PLAYER_COUNT {
		return nil
	}

	var count int

	if err := json.Unmarshal(wrapper.Data, &count); err != nil {
		zap.L().Error(
			"Failed to unwrap PlayerCount",
			zap.Error(err),
			zap.Any("wrapper", wrapper),
		)
		return nil
	}

	return &count
}

func TryUnwrapChat(wrapper EventWrapper) *string {
	if wrapper.EvtType != EVT_CHAT {
		return nil
	}

	var text string

	if err := json.Unmarshal(wrapper.Data, &text); err != nil {
		zap.L().Error(
			"Failed to unwrap Chat",
			zap.Error(err),
			zap.Any("wrapper", wrapper),
		)
		return nil
	}

	return &text
}

func TryUnwrapErrorNotice(wrapper EventWrapper) *string {
	if wrapper.EvtType != EVT_ERROR {
		return nil
	}

	var text string

	if err := json.Unmarshal(wrapper.Data, &text); err != nil {
		zap.L().Error(
			"Failed to unwrap ErrorNotice",
			zap.Error(err),
			zap.Any("wrapper", wrapper),
		)
		return nil
	}

	return &text
}

func TryUnwrapMafiaVote(wrapper EventWrapper) *MafiaVoteEvent {
	if wrapper.EvtType != EVT_MAFIA_VOTE {
		return nil
	}

	var vote MafiaVoteEvent

	if err := json.Unmarshal(wrapper.Data, &vote); err != nil {
		zap.L().Error(
			"Failed to unwrap MafiaVote",
			zap.Error(err),
			zap.Any("wrapper", wrapper),
		)
		return nil
	}

	return &vote
}

// DisconnectEvent 合成一条断连事件，走与服务器事件相同的分发通道
func DisconnectEvent(reason string) EventWrapper {
	return EventWrapper{
		EvtType: EVT_DISCONNECT,
		Data:    mustMarshal(reason),
	}
}
