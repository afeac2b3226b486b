package session

import "errors"

var (
	ErrNotHost          = errors.New("only the host can do that")
	ErrNotMafia         = errors.New("player is not mafia")
	ErrPlayerNotAlive   = errors.New("player is not alive")
	ErrPlayerNotFound   = errors.New("player not found in game")
	ErrInvalidPhase     = errors.New("action not allowed in current phase")
	ErrNotEnoughPlayers = errors.New("not enough players to start game")
	ErrGameOver         = errors.New("game is already over")
	ErrSessionClosed    = errors.New("session is closed")
)
