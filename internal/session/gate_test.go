package session

import (
	"errors"
	"testing"

	"silent-vendetta-cl/internal/protocol"
)

func gameInPhase(phase protocol.Phase, players ...protocol.Player) GameState {
	game := NewGameState()
	game.Phase = phase

	for _, p := range players {
		game.Players[p.ID] = p
	}

	return game
}

func TestPermit_DeadPlayerCanDoNothing(t *testing.T) {
	dead := &protocol.Player{ID: "p1", Name: "A", IsAlive: false, IsHost: true, Role: protocol.ROLE_MAFIA}

	phases := []protocol.Phase{
		protocol.PHASE_WAITING,
		protocol.PHASE_NIGHT,
		protocol.PHASE_DISCUSS,
		protocol.PHASE_VOTE,
	}
	actions := []string{ACTION_CHAT, ACTION_VOTE, ACTION_MAFIA, ACTION_START, ACTION_ADVANCE}

	for _, phase := range phases {
		for _, action := range actions {
			if err := Permit(gameInPhase(phase, *dead), dead, action); err == nil {
				t.Fatalf("dead player must be rejected: phase=%s action=%s", phase, action)
			}
		}
	}
}

func TestPermit_NightPhase(t *testing.T) {
	mafia := &protocol.Player{ID: "m", Name: "M", IsAlive: true, Role: protocol.ROLE_MAFIA}
	villager := &protocol.Player{ID: "v", Name: "V", IsAlive: true, Role: protocol.ROLE_VILLAGER}
	game := gameInPhase(protocol.PHASE_NIGHT, *mafia, *villager)

	if err := Permit(game, mafia, ACTION_MAFIA); err != nil {
		t.Fatalf("mafia must be allowed to pick a target: %v", err)
	}

	if err := Permit(game, villager, ACTION_MAFIA); !errors.Is(err, ErrNotMafia) {
		t.Fatalf("want ErrNotMafia got %v", err)
	}

	// 夜晚没有聊天和投票
	if err := Permit(game, mafia, ACTION_CHAT); !errors.Is(err, ErrInvalidPhase) {
		t.Fatalf("want ErrInvalidPhase got %v", err)
	}
	if err := Permit(game, villager, ACTION_VOTE); !errors.Is(err, ErrInvalidPhase) {
		t.Fatalf("want ErrInvalidPhase got %v", err)
	}
}

func TestPermit_ChatByPhase(t *testing.T) {
	me := &protocol.Player{ID: "p", Name: "P", IsAlive: true, Role: protocol.ROLE_VILLAGER}

	if err := Permit(gameInPhase(protocol.PHASE_DISCUSS, *me), me, ACTION_CHAT); err != nil {
		t.Fatalf("chat must be allowed during discuss: %v", err)
	}
	if err := Permit(gameInPhase(protocol.PHASE_VOTE, *me), me, ACTION_CHAT); err != nil {
		t.Fatalf("chat must be allowed during vote: %v", err)
	}
	if err := Permit(gameInPhase(protocol.PHASE_WAITING, *me), me, ACTION_CHAT); err == nil {
		t.Fatalf("chat must be rejected during waiting")
	}
}

func TestPermit_VoteOnlyDuringVotePhase(t *testing.T) {
	me := &protocol.Player{ID: "p", Name: "P", IsAlive: true, Role: protocol.ROLE_VILLAGER}

	if err := Permit(gameInPhase(protocol.PHASE_VOTE, *me), me, ACTION_VOTE); err != nil {
		t.Fatalf("vote must be allowed during vote phase: %v", err)
	}
	if err := Permit(gameInPhase(protocol.PHASE_DISCUSS, *me), me, ACTION_VOTE); !errors.Is(err, ErrInvalidPhase) {
		t.Fatalf("want ErrInvalidPhase got %v", err)
	}
}

func TestPermit_StartGame(t *testing.T) {
	host := protocol.Player{ID: "h", Name: "H", IsAlive: true, IsHost: true}
	guest := protocol.Player{ID: "g", Name: "G", IsAlive: true}

	// 人数不足：本地直接拒绝，不会去请求服务器
	small := gameInPhase(protocol.PHASE_WAITING, host, guest)
	if err := Permit(small, &host, ACTION_START); !errors.Is(err, ErrNotEnoughPlayers) {
		t.Fatalf("want ErrNotEnoughPlayers got %v", err)
	}

	full := gameInPhase(protocol.PHASE_WAITING,
		host, guest,
		protocol.Player{ID: "p3", Name: "C", IsAlive: true},
		protocol.Player{ID: "p4", Name: "D", IsAlive: true},
	)

	if err := Permit(full, &host, ACTION_START); err != nil {
		t.Fatalf("host with enough players must be allowed: %v", err)
	}
	if err := Permit(full, &guest, ACTION_START); !errors.Is(err, ErrNotHost) {
		t.Fatalf("want ErrNotHost got %v", err)
	}

	// 开局后不允许再开
	started := gameInPhase(protocol.PHASE_NIGHT, host, guest)
	if err := Permit(started, &host, ACTION_START); err == nil {
		t.Fatalf("startGame must be rejected outside waiting")
	}
}

func TestPermit_GameoverRejectsEverything(t *testing.T) {
	me := &protocol.Player{ID: "p", Name: "P", IsAlive: true, IsHost: true, Role: protocol.ROLE_MAFIA}
	game := gameInPhase(protocol.PHASE_GAMEOVER, *me)

	for _, action := range []string{ACTION_CHAT, ACTION_VOTE, ACTION_MAFIA, ACTION_START, ACTION_ADVANCE} {
		if err := Permit(game, me, action); !errors.Is(err, ErrGameOver) {
			t.Fatalf("want ErrGameOver for %s got %v", action, err)
		}
	}
}

func TestPermit_UnresolvedIdentityIsRejected(t *testing.T) {
	game := gameInPhase(protocol.PHASE_DISCUSS)

	if err := Permit(game, nil, ACTION_CHAT); !errors.Is(err, ErrPlayerNotFound) {
		t.Fatalf("want ErrPlayerNotFound got %v", err)
	}
}
