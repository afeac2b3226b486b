package state

import (
	"silent-vendetta-cl/internal/config"
	"silent-vendetta-cl/internal/lobby"
)

type AppState struct {
	Cfg     *config.AppConfig
	LobbyCl *lobby.Client
}

func NewAppState(
	cfg *config.AppConfig,
	lobbyCl *lobby.Client,
) *AppState {
	return &AppState{
		Cfg:     cfg,
		LobbyCl: lobbyCl,
	}
}
