package session

import "silent-vendetta-cl/internal/protocol"

// 倒计时紧迫程度，按剩余占比划分
const (
	URGENCY_NONE    = ""
	URGENCY_WARNING = "warning"
	URGENCY_URGENT  = "urgent"
)

// PhaseInfo 是阶段的展示信息。Duration 是每个阶段的名义时长，
// 只服务于进度条和紧迫感提示；真正的截止时间永远以快照里的
// phaseEndTime 为准，两者不一致时错的是进度条，不是倒计时。
type PhaseInfo struct {
	Name        string
	Description string
	Duration    int
}

func InfoFor(phase protocol.Phase, mafia bool) PhaseInfo {
	switch phase {
	case protocol.PHASE_NIGHT:
		description := "The mafia is choosing their target..."
		if mafia {
			description = "Select your target to eliminate"
		}

		return PhaseInfo{
			Name:        "Night Phase",
			Description: description,
			Duration:    30,
		}

	case protocol.PHASE_DISCUSS:
		return PhaseInfo{
			Name:        "Discussion Phase",
			Description: "Discuss who might be the mafia!",
			Duration:    120,
		}

	case protocol.PHASE_VOTE:
		return PhaseInfo{
			Name:        "Voting Phase",
			Description: "Vote for who you think is the mafia!",
			Duration:    30,
		}

	default:
		// 未知阶段没有名义时长，不渲染进度
		return PhaseInfo{
			Name:     string(phase),
			Duration: 0,
		}
	}
}

// Progress 返回阶段已流逝的比例，范围 [0, 1]
func (info PhaseInfo) Progress(remaining int) float64 {
	if info.Duration <= 0 {
		return 0
	}

	progress := float64(info.Duration-remaining) / float64(info.Duration)
	if progress < 0 {
		return 0
	}
	if progress > 1 {
		return 1
	}

	return progress
}

// Urgency 按剩余占比给出紧迫程度：不足 1/4 为 urgent，不足 1/2 为 warning
func (info PhaseInfo) Urgency(remaining int) string {
	if info.Duration <= 0 {
		return URGENCY_NONE
	}

	percentage := float64(remaining) / float64(info.Duration) * 100

	if percentage <= 25 {
		return URGENCY_URGENT
	}
	if percentage <= 50 {
		return URGENCY_WARNING
	}

	return URGENCY_NONE
}
