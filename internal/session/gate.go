package session

import "silent-vendetta-cl/internal/protocol"

// 本地可发起的动作
const (
	ACTION_CHAT    = "chat"
	ACTION_VOTE    = "vote"
	ACTION_MAFIA   = "mafiaAction"
	ACTION_START   = "startGame"
	ACTION_ADVANCE = "advancePhase"
)

// Permit 按（当前阶段，本地角色，存活状态）裁定动作是否允许。
// 这里是 fail-closed：本地先拒一道，服务器仍是最终权威。
// 被拒的动作根本不会发出去，免得玩家看到迷惑的服务器报错。
func Permit(game GameState, me *protocol.Player, action string) error {
	if game.Phase == protocol.PHASE_GAMEOVER {
		return ErrGameOver
	}

	if me == nil {
		return ErrPlayerNotFound
	}

	if !me.IsAlive {
		return ErrPlayerNotAlive
	}

	switch game.Phase {
	case protocol.PHASE_WAITING:
		if action != ACTION_START {
			return ErrInvalidPhase
		}
		if !me.IsHost {
			return ErrNotHost
		}
		if len(game.Players) < game.MinPlayers {
			return ErrNotEnoughPlayers
		}
		return nil

	case protocol.PHASE_NIGHT:
		if action == ACTION_ADVANCE && me.IsHost {
			return nil
		}
		// 夜晚只有黑手党能动，其他角色全程旁观
		if action != ACTION_MAFIA {
			return ErrInvalidPhase
		}
		if me.Role != protocol.ROLE_MAFIA {
			return ErrNotMafia
		}
		return nil

	case protocol.PHASE_DISCUSS:
		if action == ACTION_CHAT {
			return nil
		}
		if action == ACTION_ADVANCE && me.IsHost {
			return nil
		}
		return ErrInvalidPhase

	case protocol.PHASE_VOTE:
		if action == ACTION_CHAT || action == ACTION_VOTE {
			return nil
		}
		if action == ACTION_ADVANCE && me.IsHost {
			return nil
		}
		return ErrInvalidPhase

	default:
		return ErrInvalidPhase
	}
}
