package session

// VoteLedger 记录夜晚阶段服务器转播的预告票（非权威）。
// 同一 voter 后到的票覆盖先到的；任何阶段或回合变化都整体清空，
// 保证票数绝不跨阶段泄漏。真正的淘汰结果由下一个权威快照带来。
type VoteLedger struct {
	votes map[string]string
}

func NewVoteLedger() *VoteLedger {
	return &VoteLedger{
		votes: make(map[string]string),
	}
}

func (l *VoteLedger) Record(voter, target string) {
	l.votes[voter] = target
}

// Tally 数出当前指向 target 的票数
func (l *VoteLedger) Tally(target string) int {
	count := 0

	for _, t := range l.votes {
		if t == target {
			count++
		}
	}

	return count
}

// Size 是已表态的投票者人数
func (l *VoteLedger) Size() int {
	return len(l.votes)
}

func (l *VoteLedger) Reset() {
	l.votes = make(map[string]string)
}
