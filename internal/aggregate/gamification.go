package aggregate

import (
	"sync"

	"financehub/internal/core"
)

const (
	xpUserTransaction   = 10
	xpSystemTransaction = 5
	xpCompletedGoal     = 100
)

// levelThresholds[i] is the XP needed to reach level i+1.
var levelThresholds = []int{0, 100, 250, 500, 1000, 2000, 3500, 5500, 8000, 12000}

type Progress struct {
	XP          int `json:"xp"`
	Level       int `json:"level"`
	LevelFloor  int `json:"level_floor"`   // XP at which Level started
	NextLevelXP int `json:"next_level_xp"` // 0 at the top level
}

// Gamification awards XP for every transaction ever created, deleted ones
// included so deleting never costs XP, and for every completed goal.
func Gamification(txs []core.Transaction, goals []core.Goal) Progress {
	xp := 0
	for _, t := range txs {
		if t.Origin.Kind == core.OriginUser {
			xp += xpUserTransaction
		} else {
			xp += xpSystemTransaction
		}
	}
	for _, g := range goals {
		if g.Status == core.GoalCompleted {
			xp += xpCompletedGoal
		}
	}
	return ProgressFor(xp)
}

// ProgressFor maps XP to a level through the threshold table.
func ProgressFor(xp int) Progress {
	xp = max(xp, 0)
	p := Progress{XP: xp}
	for i, floor := range levelThresholds {
		if xp < floor {
			p.NextLevelXP = floor
			break
		}
		p.Level = i + 1
		p.LevelFloor = floor
	}
	return p
}

// LevelTracker remembers the highest level reached so the reported level
// never goes down, even when XP does (a completed goal deleted, a reset).
type LevelTracker struct {
	mu   sync.Mutex
	high int
}

// Observe returns p with its level raised to the high-water mark.
func (lt *LevelTracker) Observe(p Progress) Progress {
	lt.mu.Lock()
	defer lt.mu.Unlock()
	if p.Level > lt.high {
		lt.high = p.Level
	}
	if p.Level < lt.high {
		p.Level = lt.high
		p.LevelFloor = levelThresholds[lt.high-1]
		p.NextLevelXP = 0
		if lt.high < len(levelThresholds) {
			p.NextLevelXP = levelThresholds[lt.high]
		}
	}
	return p
}

func (lt *LevelTracker) Level() int {
	lt.mu.Lock()
	defer lt.mu.Unlock()
	return lt.high
}
