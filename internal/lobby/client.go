package lobby

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// Client 调用大厅接口（建房/入局/开局/推进阶段）。
// 这些是请求-响应式的外部协作方，游戏内实时状态不走这里。
// 每次调用只尝试一次，失败时把服务器给的错误文案原样交回。
type Client struct {
	baseURL string
	httpCl  *http.Client
}

func NewClient(serverAddr string) *Client {
	return &Client{
		baseURL: "http://" + serverAddr,
		httpCl: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

type createGameRequest struct {
	PlayerName string `json:"playerName"`
}

type createGameResponse struct {
	GameID string `json:"gameId"`
}

type joinGameRequest struct {
	PlayerName string `json:"playerName"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// CreateGame 建房并以房主身份加入，返回新的游戏 ID
func (c *Client) CreateGame(playerName string) (string, error) {
	var resp createGameResponse

	err := c.post("/api/games", createGameRequest{PlayerName: playerName}, &resp)
	if err != nil {
		return "", err
	}

	if resp.GameID == "" {
		return "", errors.New("服务器未返回游戏 ID")
	}

	return resp.GameID, nil
}

func (c *Client) JoinGame(gameID, playerName string) error {
	path := fmt.Sprintf("/api/games/%s/join", gameID)
	return c.post(path, joinGameRequest{PlayerName: playerName}, nil)
}

func (c *Client) StartGame(gameID string) error {
	path := fmt.Sprintf("/api/games/%s/start", gameID)
	return c.post(path, nil, nil)
}

func (c *Client) NextPhase(gameID string) error {
	path := fmt.Sprintf("/api/games/%s/next-phase", gameID)
	return c.post(path, nil, nil)
}

func (c *Client) post(path string, body any, out any) error {
	var reader *bytes.Reader

	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("编码请求失败: %w", err)
		}
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(http.MethodPost, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("构造请求失败: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpCl.Do(req)
	if err != nil {
		return fmt.Errorf("请求大厅接口失败: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// 失败时优先转交服务器给的文案
		var errResp errorResponse

		if decodeErr := json.NewDecoder(resp.Body).Decode(&errResp); decodeErr == nil && errResp.Error != "" {
			return errors.New(errResp.Error)
		}

		zap.L().Warn(
			"大厅接口返回非预期状态码",
			zap.String("path", path),
			zap.Int("status", resp.StatusCode),
		)

		return fmt.Errorf("大厅接口返回 %s", resp.Status)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("解析响应失败: %w", err)
		}
	}

	return nil
}
