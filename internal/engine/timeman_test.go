package engine

import (
	"testing"
	"time"

	"github.com/hailam/chesscore/internal/board"
	"github.com/stretchr/testify/assert"
)

func TestUseTimeManagement(t *testing.T) {
	clock := Limits{Time: [2]time.Duration{time.Minute, time.Minute}}
	assert.True(t, clock.UseTimeManagement())

	for name, l := range map[string]Limits{
		"infinite": {Infinite: true},
		"movetime": {MoveTime: time.Second},
		"depth":    {Depth: 5},
		"nodes":    {Nodes: 1000},
		"mate":     {Mate: 3},
	} {
		l.Time = clock.Time
		assert.False(t, l.UseTimeManagement(), name)
	}

	// Pondering still runs on the clock.
	ponder := clock
	ponder.Ponder = true
	assert.True(t, ponder.UseTimeManagement())
}

func TestClockTimeManagerSuddenDeath(t *testing.T) {
	tm := NewClockTimeManager(30 * time.Millisecond)
	limits := &Limits{Time: [2]time.Duration{time.Minute, 10 * time.Second}}

	tm.Init(limits, board.White, 20)
	opt := (time.Minute - 30*time.Millisecond) / 45
	assert.Equal(t, opt, tm.Optimum())
	assert.Equal(t, 5*opt, tm.Maximum())

	// Black has less time left.
	tm.Init(limits, board.Black, 21)
	assert.Less(t, tm.Optimum(), opt)

	// Early in the game the budget is smaller.
	tm.Init(limits, board.White, 2)
	assert.Less(t, tm.Optimum(), opt)
}

func TestClockTimeManagerIncrementAndMovesToGo(t *testing.T) {
	tm := NewClockTimeManager(0)

	tm.Init(&Limits{Time: [2]time.Duration{10 * time.Second}, Inc: [2]time.Duration{time.Second}}, board.White, 40)
	withInc := tm.Optimum()
	tm.Init(&Limits{Time: [2]time.Duration{10 * time.Second}}, board.White, 40)
	assert.Equal(t, withInc-900*time.Millisecond, tm.Optimum())

	// One move to the control: spend most of the clock but never all of it.
	tm.Init(&Limits{Time: [2]time.Duration{10 * time.Second}, MovesToGo: 1}, board.White, 40)
	assert.Equal(t, 8*time.Second, tm.Maximum())
	assert.Equal(t, tm.Maximum(), tm.Optimum())
}

func TestClockTimeManagerFloors(t *testing.T) {
	tm := NewClockTimeManager(50 * time.Millisecond)
	tm.Init(&Limits{Time: [2]time.Duration{20 * time.Millisecond, time.Minute}}, board.White, 60)
	assert.Equal(t, 10*time.Millisecond, tm.Optimum())
	assert.Equal(t, 50*time.Millisecond, tm.Maximum())

	// Without a clock for the side to move the budget is unlimited.
	tm.Init(&Limits{Time: [2]time.Duration{0, time.Minute}}, board.White, 60)
	assert.Equal(t, time.Hour, tm.Optimum())
}

func TestClockTimeManagerPVInstability(t *testing.T) {
	tm := NewClockTimeManager(0)
	tm.Init(&Limits{Time: [2]time.Duration{100 * time.Second}}, board.White, 40)
	base := tm.Optimum()

	tm.PVInstability(1)
	assert.Equal(t, 2*base, tm.Optimum())

	tm.PVInstability(0.25)
	assert.Equal(t, base+base/4, tm.Optimum())

	// Capped by the maximum.
	tm.PVInstability(50)
	assert.Equal(t, tm.Maximum(), tm.Optimum())

	tm.PVInstability(0)
	assert.Equal(t, base, tm.Optimum())
}
