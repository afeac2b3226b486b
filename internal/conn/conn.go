package conn

import (
	"fmt"
	"sync"
	"time"

	"silent-vendetta-cl/internal/protocol"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// 连接生命周期：Connecting -> Open -> Closed，Closed 为终态。
// 传输层出错同样落入 Closed，不做自动重连，由大厅流程重新入局。
const (
	CONN_CONNECTING = "Connecting"
	CONN_OPEN       = "Open"
	CONN_CLOSED     = "Closed"
)

const (
	// 心跳间隔
	HEARTBEAT_INTERVAL = 30 * time.Second
	// 心跳超时时间，超过未收到 pong 即判定断连
	HEARTBEAT_TIMEOUT = 45 * time.Second

	WRITE_TIMEOUT = 10 * time.Second

	SEND_BUFFER = 64
)

type Handler func(evt protocol.EventWrapper)

// Manager 持有一条到游戏服务器的 WebSocket 连接。
// 解码后的事件按接收顺序依次交给所有订阅者；
// 写入走独立协程，Send 永不阻塞调用方。
type Manager struct {
	connID     string
	serverAddr string

	mu        sync.Mutex
	state     string
	sessionID string
	sock      *websocket.Conn
	handlers  []Handler

	sendCh chan protocol.ActionWrapper
	doneCh chan struct{}

	closeOnce sync.Once
}

func NewManager(serverAddr string) *Manager {
	id := GenID()

	return &Manager{
		connID:     id[len(id)-8:],
		serverAddr: serverAddr,
		state:      CONN_CONNECTING,
		sendCh:     make(chan protocol.ActionWrapper, SEND_BUFFER),
		doneCh:     make(chan struct{}),
	}
}

func (m *Manager) State() string {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.state
}

// Subscribe 注册事件处理器，必须在 Open 之前调用完毕
func (m *Manager) Subscribe(handler func(evt protocol.EventWrapper)) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.handlers = append(m.handlers, handler)
}

// Open 建立连接并发送一次 join。对同一 sessionID 幂等：
// 已有活动连接时直接返回，不会重复入局。
func (m *Manager) Open(sessionID string, identity protocol.JoinData) error {
	m.mu.Lock()

	if m.state == CONN_CLOSED {
		m.mu.Unlock()
		return fmt.Errorf("连接已关闭，无法重新打开")
	}

	if m.sock != nil {
		alreadyJoined := m.sessionID == sessionID
		m.mu.Unlock()

		if alreadyJoined {
			return nil
		}

		return fmt.Errorf("连接已绑定到其他会话: %s", m.sessionID)
	}

	m.sessionID = sessionID
	m.mu.Unlock()

	url := fmt.Sprintf("ws://%s/ws/%s", m.serverAddr, sessionID)

	sock, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		return fmt.Errorf("连接游戏服务器失败: %w", err)
	}

	sock.SetReadDeadline(time.Now().Add(HEARTBEAT_TIMEOUT))
	sock.SetPongHandler(func(string) error {
		sock.SetReadDeadline(time.Now().Add(HEARTBEAT_TIMEOUT))
		return nil
	})

	m.mu.Lock()
	m.sock = sock
	m.state = CONN_OPEN
	m.mu.Unlock()

	// 入局消息只在这里发送一次
	m.enqueue(protocol.WrapJoin(identity))

	go m.writePump(sock)
	go m.readPump(sock)

	zap.L().Info(
		"已连接到游戏服务器",
		zap.String("conn_id", m.connID),
		zap.String("session_id", sessionID),
	)

	return nil
}

// Send 把动作交给写协程。未打开时先入缓冲，已关闭或缓冲满时
// 静默丢弃（只记警告），绝不向调用方抛错。
func (m *Manager) Send(act protocol.ActionWrapper) {
	if m.State() == CONN_CLOSED {
		zap.L().Warn(
			"连接已关闭，丢弃出站动作",
			zap.String("conn_id", m.connID),
			zap.String("action_type", act.ActType),
		)
		return
	}

	m.enqueue(act)
}

// Close 终止连接并释放底层资源，可重复调用
func (m *Manager) Close() {
	m.closeOnce.Do(func() {
		m.mu.Lock()
		m.state = CONN_CLOSED
		sock := m.sock
		m.mu.Unlock()

		close(m.doneCh)

		if sock != nil {
			sock.WriteControl(
				websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(time.Second),
			)
			sock.Close()
		}

		zap.L().Info(
			"连接已关闭",
			zap.String("conn_id", m.connID),
			zap.String("session_id", m.sessionID),
		)
	})
}

func (m *Manager) enqueue(act protocol.ActionWrapper) {
	select {
	case m.sendCh <- act:
	default:
		zap.L().Warn(
			"发送缓冲已满，丢弃出站动作",
			zap.String("conn_id", m.connID),
			zap.String("action_type", act.ActType),
		)
	}
}

func (m *Manager) writePump(sock *websocket.Conn) {
	ticker := time.NewTicker(HEARTBEAT_INTERVAL)
	defer ticker.Stop()

	for {
		select {
		case <-m.doneCh:
			return

		case <-ticker.C:
			sock.SetWriteDeadline(time.Now().Add(WRITE_TIMEOUT))

			if err := sock.WriteMessage(websocket.PingMessage, nil); err != nil {
				zap.L().Error(
					"发送心跳失败",
					zap.String("conn_id", m.connID),
					zap.Error(err),
				)
				return
			}

		case act := <-m.sendCh:
			sock.SetWriteDeadline(time.Now().Add(WRITE_TIMEOUT))

			if err := sock.WriteJSON(act); err != nil {
				zap.L().Error(
					"发送消息失败",
					zap.String("conn_id", m.connID),
					zap.String("action_type", act.ActType),
					zap.Error(err),
				)
				return
			}

			zap.L().Debug(
				"发送消息",
				zap.String("conn_id", m.connID),
				zap.String("action_type", act.ActType),
			)
		}
	}
}

func (m *Manager) readPump(sock *websocket.Conn) {
	for {
		_, raw, err := sock.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(
				err,
				websocket.CloseGoingAway,
				websocket.CloseNormalClosure,
			) {
				zap.L().Error(
					"读取消息失败",
					zap.String("conn_id", m.connID),
					zap.Error(err),
				)
			}

			m.markClosed()
			m.deliver(protocol.DisconnectEvent(err.Error()))
			return
		}

		evt, err := protocol.Decode(raw)
		if err != nil {
			// 畸形消息只丢弃这一条，不影响会话
			zap.L().Warn(
				"丢弃无法解码的消息",
				zap.String("conn_id", m.connID),
				zap.ByteString("raw", raw),
				zap.Error(err),
			)
			continue
		}

		m.deliver(evt)
	}
}

func (m *Manager) deliver(evt protocol.EventWrapper) {
	m.mu.Lock()
	handlers := m.handlers
	m.mu.Unlock()

	for _, handler := range handlers {
		handler(evt)
	}
}

// markClosed 只标记状态，不走 Close 的资源释放（读协程退出时套接字已失效）
func (m *Manager) markClosed() {
	m.mu.Lock()
	m.state = CONN_CLOSED
	m.mu.Unlock()
}

func GenID() string {
	id, err := uuid.NewV7()
	if err != nil {
		panic("Failed to generate UUID: " + err.Error())
	}

	return id.String()
}
