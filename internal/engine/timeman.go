package engine

import (
	"time"

	"github.com/hailam/chesscore/internal/board"
)

// Limits contains the constraints of one search as given by "go".
type Limits struct {
	Time      [2]time.Duration // wtime, btime (remaining time for each color)
	Inc       [2]time.Duration // winc, binc (increment per move)
	MovesToGo int              // moves until next time control (0 = sudden death)
	MoveTime  time.Duration    // fixed time per move
	Depth     int              // maximum search depth in plies
	Nodes     uint64           // maximum nodes to search
	Mate      int              // search for a mate in this many moves
	Infinite  bool             // search until stopped
	Ponder    bool             // ponder mode

	// SearchMoves restricts the root to these moves when non-empty.
	SearchMoves []board.Move
}

// UseTimeManagement reports whether the clock drives the search. Any explicit
// limit or infinite mode switches the time manager off.
func (l *Limits) UseTimeManagement() bool {
	return !l.Infinite && l.MoveTime == 0 && l.Depth == 0 && l.Nodes == 0 && l.Mate == 0
}

// TimeManager decides how long a search may take. Init is called once per
// search before any other method; PVInstability may be called after every
// iteration from the search goroutine.
type TimeManager interface {
	Init(limits *Limits, us board.Color, ply int)
	Optimum() time.Duration
	Maximum() time.Duration
	PVInstability(changes float64)
}

// ClockTimeManager splits the remaining clock time over the expected number
// of moves to go and extends the budget while the best move is unstable.
type ClockTimeManager struct {
	// MoveOverhead is reserved per move for communication delays.
	MoveOverhead time.Duration

	baseOptimum     time.Duration
	optimumTime     time.Duration
	maximumTime     time.Duration
	unstablePVExtra time.Duration
}

// NewClockTimeManager creates a time manager with the given move overhead.
func NewClockTimeManager(moveOverhead time.Duration) *ClockTimeManager {
	return &ClockTimeManager{MoveOverhead: moveOverhead}
}

// Init computes the budget for a new search.
// ply is the current game ply (half-move number).
func (tm *ClockTimeManager) Init(limits *Limits, us board.Color, ply int) {
	tm.unstablePVExtra = 0

	// Without a clock there is nothing to manage; the stop comes from
	// another limit or from the GUI.
	if limits.Time[us] == 0 {
		tm.setBudget(time.Hour, time.Hour)
		return
	}

	timeLeft := max(limits.Time[us]-tm.MoveOverhead, time.Millisecond)
	inc := limits.Inc[us]

	// Estimate moves to go
	mtg := limits.MovesToGo
	if mtg == 0 {
		// Sudden death: expect more moves early in the game
		mtg = clamp(50-ply/4, 10, 50)
	}

	baseTime := timeLeft/time.Duration(mtg) + inc*9/10
	optimum := baseTime

	// Slight reduction for very early moves
	if ply < 8 {
		optimum = baseTime * 85 / 100
	}

	// Maximum time: 5x optimum or 80% of remaining, whichever is smaller,
	// and never more than 95% of the clock.
	maximum := min(optimum*5, timeLeft*8/10, timeLeft*95/100)

	tm.setBudget(max(optimum, 10*time.Millisecond), max(maximum, 50*time.Millisecond))
	tm.optimumTime = min(tm.optimumTime, tm.maximumTime)
}

func (tm *ClockTimeManager) setBudget(optimum, maximum time.Duration) {
	tm.baseOptimum = optimum
	tm.optimumTime = optimum
	tm.maximumTime = maximum
}

// Optimum returns the target time for this move.
func (tm *ClockTimeManager) Optimum() time.Duration {
	return tm.optimumTime
}

// Maximum returns the hard limit for this move.
func (tm *ClockTimeManager) Maximum() time.Duration {
	return tm.maximumTime
}

// PVInstability extends the optimum in proportion to the decayed number of
// best move changes, up to the maximum.
func (tm *ClockTimeManager) PVInstability(changes float64) {
	tm.unstablePVExtra = time.Duration(changes * float64(tm.baseOptimum))
	tm.optimumTime = min(tm.baseOptimum+tm.unstablePVExtra, tm.maximumTime)
}
