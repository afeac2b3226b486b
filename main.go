package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"silent-vendetta-cl/internal/config"
	"silent-vendetta-cl/internal/conn"
	"silent-vendetta-cl/internal/lobby"
	"silent-vendetta-cl/internal/logger"
	"silent-vendetta-cl/internal/protocol"
	"silent-vendetta-cl/internal/session"
	"silent-vendetta-cl/internal/state"
)

func main() {
	// 加载配置
	cfg := config.InitConfig()

	// 初始化日志器
	logger.InitLogger(cfg.LogLevel)

	// 组装应用状态
	appState := state.NewAppState(
		cfg,
		lobby.NewClient(cfg.ServerAddr),
	)

	run(appState)
}

func run(appState *state.AppState) {
	in := bufio.NewScanner(os.Stdin)

	playerName := appState.Cfg.PlayerName
	for playerName == "" {
		playerName = prompt(in, "Your name: ")
	}

	gameID, isHost, ok := enterGame(in, appState, playerName)
	if !ok {
		return
	}

	identity := session.Identity{PlayerName: playerName, IsHost: isHost}

	mgr := conn.NewManager(appState.Cfg.ServerAddr)
	sess := session.NewSession(gameID, identity, mgr, appState.LobbyCl)
	defer sess.Close()

	err := mgr.Open(gameID, protocol.JoinData{
		PlayerName: identity.PlayerName,
		IsHost:     identity.IsHost,
	})
	if err != nil {
		fmt.Println(err)
		return
	}

	go sess.Run()
	go printNotices(sess)

	fmt.Printf("Game ID: %s\n", gameID)
	fmt.Println("Commands: /start /next /vote <id> /kill <id> /quit, anything else is chat")

	commandLoop(in, sess)
}

// enterGame 走大厅流程：建房或加入已有房间。
// 失败时原样打印服务器的报错，输入保持可重试。
func enterGame(in *bufio.Scanner, appState *state.AppState, playerName string) (string, bool, bool) {
	for {
		choice := prompt(in, "(c)reate a game or (j)oin one? ")

		switch choice {
		case "c", "create":
			gameID, err := appState.LobbyCl.CreateGame(playerName)
			if err != nil {
				fmt.Println(err)
				continue
			}
			return gameID, true, true

		case "j", "join":
			gameID := prompt(in, "Game ID: ")
			if gameID == "" {
				continue
			}

			if err := appState.LobbyCl.JoinGame(gameID, playerName); err != nil {
				fmt.Println(err)
				continue
			}
			return gameID, false, true

		case "q", "quit":
			return "", false, false
		}
	}
}

func printNotices(sess *session.Session) {
	for notice := range sess.Notices() {
		switch notice.Kind {
		case session.NOTICE_CHAT:
			fmt.Printf("[chat] %s\n", notice.Text)

		case session.NOTICE_ERROR:
			fmt.Printf("[error] %s\n", notice.Text)

		case session.NOTICE_DISCONNECT:
			fmt.Printf("[!] %s\n", notice.Text)

		case session.NOTICE_TICK:
			fmt.Printf("\r%s", notice.Text)

		default:
			fmt.Println()
			fmt.Println(notice.Text)
		}
	}
}

func commandLoop(in *bufio.Scanner, sess *session.Session) {
	for in.Scan() {
		line := strings.TrimSpace(in.Text())
		if line == "" {
			continue
		}

		var err error

		switch {
		case line == "/quit":
			return

		case line == "/start":
			err = sess.StartGame()

		case line == "/next":
			err = sess.AdvancePhase()

		case strings.HasPrefix(line, "/vote "):
			err = sess.CastVote(strings.TrimSpace(strings.TrimPrefix(line, "/vote ")))

		case strings.HasPrefix(line, "/kill "):
			err = sess.SelectTarget(strings.TrimSpace(strings.TrimPrefix(line, "/kill ")))

		default:
			err = sess.SendChat(line)
		}

		// 本地关卡的拒绝必须让玩家看见，不能无声吞掉
		if err != nil {
			fmt.Printf("[rejected] %s\n", err)
		}
	}
}

func prompt(in *bufio.Scanner, label string) string {
	fmt.Print(label)

	if !in.Scan() {
		return ""
	}

	return strings.TrimSpace(in.Text())
}
