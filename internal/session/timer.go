package session

import "silent-vendetta-cl/internal/protocol"

// PhaseTimer 是纯本地的每秒倒计时。它只在新快照带来 phaseEndTime 时
// 重新校准，平时靠本地节拍递减，避免反复用网络时间推导造成抖动。
// 归零那一拍恰好触发一次推进请求；之后停在零上，除非新快照重新上弦。
type PhaseTimer struct {
	remaining int
	running   bool
	fired     bool
}

func NewPhaseTimer() *PhaseTimer {
	return &PhaseTimer{}
}

// Resync 用权威快照重新校准。等待和结束阶段没有倒计时，直接挂起。
func (t *PhaseTimer) Resync(phase protocol.Phase, seconds int) {
	if seconds < 0 {
		seconds = 0
	}

	t.remaining = seconds
	t.fired = false
	t.running = phase != protocol.PHASE_WAITING && phase != protocol.PHASE_GAMEOVER
}

// Halt 挂起倒计时（阶段切到 waiting/gameover 但快照没带新的结束时间时用）
func (t *PhaseTimer) Halt() {
	t.running = false
	t.remaining = 0
}

// Tick 推进一秒。只有从 1 跨到 0 的那一拍返回 true，
// 停留在零上的后续节拍一律返回 false。
func (t *PhaseTimer) Tick() bool {
	if !t.running || t.remaining <= 0 {
		return false
	}

	t.remaining--

	if t.remaining == 0 && !t.fired {
		t.fired = true
		return true
	}

	return false
}

func (t *PhaseTimer) Remaining() int {
	return t.remaining
}

func (t *PhaseTimer) Running() bool {
	return t.running
}
