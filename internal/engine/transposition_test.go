package engine

import (
	"errors"
	"testing"

	"github.com/hailam/chesscore/internal/board"
	"github.com/matryer/is"
)

func TestTTRoundTrip(t *testing.T) {
	is := is.New(t)
	tt, err := NewTranspositionTable(1)
	is.NoErr(err)

	pos := board.NewPosition()
	key := pos.Key()
	m := board.NewMove(board.E2, board.E4)

	_, hit := tt.Probe(key)
	is.True(!hit) // empty table

	tt.Store(key, 37, BoundExact, 9, m, -12)
	e, hit := tt.Probe(key)
	is.True(hit)
	is.Equal(e.Move, m)
	is.Equal(e.Value, 37)
	is.Equal(e.Bound, BoundExact)
	is.Equal(e.Depth, 9)
	is.Equal(e.Eval, -12)
}

func TestTTNegativeValuesAndDepths(t *testing.T) {
	is := is.New(t)
	tt, err := NewTranspositionTable(1)
	is.NoErr(err)

	tt.Store(0xdeadbeef00000001, -ValueMate+3, BoundUpper, DepthQSNoChecks, board.NoMove, ValueNone)
	e, hit := tt.Probe(0xdeadbeef00000001)
	is.True(hit)
	is.Equal(e.Value, -ValueMate+3)
	is.Equal(e.Depth, DepthQSNoChecks)
	is.Equal(e.Eval, ValueNone)

	// DepthNone entries are real entries, not empty slots.
	tt.Store(0x1234567800000002, ValueNone, BoundNone, DepthNone, board.NoMove, 55)
	e, hit = tt.Probe(0x1234567800000002)
	is.True(hit)
	is.Equal(e.Depth, DepthNone)
	is.Equal(e.Eval, 55)
}

func TestTTZeroKeyFragment(t *testing.T) {
	is := is.New(t)
	tt, err := NewTranspositionTable(1)
	is.NoErr(err)

	// A key whose upper half is zero must not hit an empty slot.
	_, hit := tt.Probe(0x00000000000000ff)
	is.True(!hit)

	tt.Store(0x00000000000000ff, 1, BoundLower, 1, board.NoMove, 0)
	_, hit = tt.Probe(0x00000000000000ff)
	is.True(hit)
}

func TestTTKeepsMoveWithoutNewOne(t *testing.T) {
	is := is.New(t)
	tt, err := NewTranspositionTable(1)
	is.NoErr(err)

	m := board.NewMove(board.G1, board.F3)
	key := uint64(0xabcdef0100000010)
	tt.Store(key, 10, BoundLower, 5, m, 0)
	tt.Store(key, 20, BoundUpper, 6, board.NoMove, 0)

	e, hit := tt.Probe(key)
	is.True(hit)
	is.Equal(e.Move, m)
	is.Equal(e.Value, 20)
	is.Equal(e.Depth, 6)
}

func TestTTReplacement(t *testing.T) {
	is := is.New(t)
	tt, err := NewTranspositionTable(1)
	is.NoErr(err)

	// Five keys sharing a cluster: same low half, different high half.
	keys := make([]uint64, clusterSize+1)
	for i := range keys {
		keys[i] = uint64(i+1)<<32 | 0x77
	}
	for i, k := range keys[:clusterSize] {
		tt.Store(k, 0, BoundLower, 10+i, board.NoMove, 0)
	}

	// Entries of an older search that are not exact go first, the
	// shallowest of them before the others.
	tt.NewSearch()
	tt.Store(keys[clusterSize], 0, BoundLower, 1, board.NoMove, 0)

	_, hit := tt.Probe(keys[0])
	is.True(!hit) // depth 10 entry was evicted
	for _, k := range keys[1:] {
		_, hit := tt.Probe(k)
		is.True(hit)
	}
}

func TestTTResize(t *testing.T) {
	is := is.New(t)
	tt, err := NewTranspositionTable(2)
	is.NoErr(err)
	is.Equal(tt.SizeMB(), 2)

	key := uint64(0x1111111100000001)
	tt.Store(key, 1, BoundExact, 1, board.NoMove, 0)

	err = tt.Resize(0)
	is.True(err != nil)
	_, hit := tt.Probe(key)
	is.True(hit) // refused resize keeps the table

	err = tt.Resize(1 << 40)
	is.True(errors.Is(err, ErrHashTooLarge))
	is.Equal(tt.SizeMB(), 2)

	// Same size: the table is kept but emptied.
	is.NoErr(tt.Resize(2))
	_, hit = tt.Probe(key)
	is.True(!hit)

	is.NoErr(tt.Resize(4))
	is.Equal(tt.SizeMB(), 4)
}

func TestTTClearAndHashfull(t *testing.T) {
	is := is.New(t)
	tt, err := NewTranspositionTable(1)
	is.NoErr(err)
	is.Equal(tt.Hashfull(), 0)

	for i := range uint64(1 << 16) {
		tt.Store(i<<32|i, 0, BoundExact, 1, board.NoMove, 0)
	}
	is.True(tt.Hashfull() > 0)

	tt.Clear()
	is.Equal(tt.Hashfull(), 0)
	_, hit := tt.Probe(1<<32 | 1)
	is.True(!hit)
}

func TestAdjustMateScores(t *testing.T) {
	is := is.New(t)
	for _, v := range []int{0, 250, -250, MateIn(5), MatedIn(7)} {
		is.Equal(adjustScoreFromTT(adjustScoreToTT(v, 9), 9), v)
	}
	// A mate found 3 plies below a node at ply 4 is stored as mate in 3.
	is.Equal(adjustScoreToTT(MateIn(7), 4), MateIn(3))
	is.Equal(adjustScoreFromTT(ValueNone, 4), ValueNone)
}
