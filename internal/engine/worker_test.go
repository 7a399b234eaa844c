package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hailam/chesscore/internal/board"
)

func TestPoolSizing(t *testing.T) {
	e, err := NewEngine(Options{Hash: 1, Threads: 4})
	require.NoError(t, err)
	defer e.Close()

	assert.Equal(t, 4, e.pool.Size())
	assert.Equal(t, 4, e.pool.minSplitDepth, "automatic split depth for few threads")

	require.NoError(t, e.SetThreads(8))
	assert.Equal(t, 8, e.pool.Size())
	assert.Equal(t, 7, e.pool.minSplitDepth, "automatic split depth for many threads")

	require.NoError(t, e.SetThreads(MaxThreads+10))
	assert.Equal(t, MaxThreads, e.pool.Size())

	require.NoError(t, e.SetSplitParameters(3, 2))
	assert.Equal(t, 3, e.pool.minSplitDepth)
	assert.Equal(t, 2, e.pool.maxThreadsPerSplitPoint)
}

// idlePool builds workers without starting their goroutines.
func idlePool(n int) *Pool {
	p := &Pool{maxThreadsPerSplitPoint: n}
	for i := range n {
		p.workers = append(p.workers, newWorker(nil, p, i))
	}
	return p
}

func TestAvailableTo(t *testing.T) {
	p := idlePool(4)
	master, helper, other := p.workers[0], p.workers[1], p.workers[2]

	assert.True(t, helper.availableTo(master))

	helper.searching.Store(true)
	assert.False(t, helper.availableTo(master))
	helper.searching.Store(false)

	// other waits at its own split point where helper is a slave: other may
	// help helper, but nobody else.
	sp := &other.splitPoints[0]
	sp.slavesMask.Store(1<<other.idx | 1<<helper.idx)
	other.splitPointsSize.Store(1)
	assert.True(t, other.availableTo(helper))
	assert.False(t, other.availableTo(master))

	master.searching.Store(true)
	assert.Same(t, helper, p.availableSlave(other))
	assert.Nil(t, idlePoolAllBusy(p).availableSlave(master))
}

func idlePoolAllBusy(p *Pool) *Pool {
	for _, w := range p.workers {
		w.searching.Store(true)
	}
	return p
}

func TestSplitPointSlaves(t *testing.T) {
	var sp SplitPoint
	sp.addSlave(3)
	sp.addSlave(5)
	assert.True(t, sp.hasSlave(3))
	assert.True(t, sp.hasSlave(5))
	assert.False(t, sp.hasSlave(0))

	sp.removeSlave(3)
	assert.False(t, sp.hasSlave(3))
	assert.True(t, sp.hasSlave(5))

	sp.setAlpha(-42)
	assert.Equal(t, -42, sp.Alpha())
}

func TestPickerSlots(t *testing.T) {
	p := idlePool(1)
	w := p.workers[0]

	var ss Stack
	ss.ply = 5
	node := w.picker(&ss)
	assert.Same(t, &w.pickers[5][0], node)

	// The excluded-move search at the same ply gets its own picker.
	ss.excludedMove = board.NewMove(board.E2, board.E4)
	assert.NotSame(t, node, w.picker(&ss))

	ss.excludedMove, ss.ply = board.NoMove, MaxPly
	assert.Same(t, &w.pickers[MaxPly][0], w.picker(&ss))
}
