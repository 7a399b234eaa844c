package engine

import (
	"math/bits"
	"sync"
	"sync/atomic"

	"github.com/hailam/chesscore/internal/board"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// MaxThreads bounds the pool size; split point participants are tracked in
// a 64-bit mask.
const MaxThreads = 64

// Worker is one search thread. Worker 0 runs the iterative deepening driver
// on the goroutine that called Engine.Search; the others sleep in idleLoop
// until a split point books them.
type Worker struct {
	idx    int
	engine *Engine
	pool   *Pool
	log    zerolog.Logger

	mu   sync.Mutex
	cond *sync.Cond

	splitPoints      [MaxSplitPointsPerThread]SplitPoint
	splitPointsSize  atomic.Int32
	activeSplitPoint atomic.Pointer[SplitPoint]
	activePosition   atomic.Pointer[board.Position]
	searching        atomic.Bool
	exit             atomic.Bool
	selDepth         atomic.Int32

	// One position copy and search stack per level of split point nesting.
	positions [MaxSplitPointsPerThread + 1]board.Position
	stacks    [MaxSplitPointsPerThread + 1][stackSize]Stack

	// Move pickers by ply. A worker only ever joins split points deeper than
	// the nodes it has open, so plies never collide across nesting levels.
	// The second slot serves the excluded-move search, which reenters a ply
	// whose picker is still in use.
	pickers [MaxPly + 1][2]MovePicker
}

func newWorker(e *Engine, p *Pool, idx int) *Worker {
	w := &Worker{
		idx:    idx,
		engine: e,
		pool:   p,
		log:    log.With().Int("thread", idx).Logger(),
	}
	w.cond = sync.NewCond(&w.mu)
	return w
}

// picker returns the move picker slot of the node at ss.
func (w *Worker) picker(ss *Stack) *MovePicker {
	slot := 0
	if ss.excludedMove != board.NoMove {
		slot = 1
	}
	return &w.pickers[ss.ply][slot]
}

// notify wakes the worker if it is waiting on its condition.
func (w *Worker) notify() {
	w.mu.Lock()
	w.cond.Signal()
	w.mu.Unlock()
}

// waitFor blocks until done reports true. Whoever changes the condition must
// call notify afterwards.
func (w *Worker) waitFor(done func() bool) {
	w.mu.Lock()
	for !done() {
		w.cond.Wait()
	}
	w.mu.Unlock()
}

// cutoffOccurred reports whether a beta cutoff at the active split point or
// any of its ancestors made the current work useless.
func (w *Worker) cutoffOccurred() bool {
	for sp := w.activeSplitPoint.Load(); sp != nil; sp = sp.parent {
		if sp.cutoff.Load() {
			return true
		}
	}
	return false
}

func (w *Worker) canSplit() bool {
	sp := w.activeSplitPoint.Load()
	return (sp == nil || !sp.allSlavesSearching.Load()) && w.splitPointsSize.Load() < MaxSplitPointsPerThread
}

// availableTo reports whether w may join a split point owned by master. A
// thread waiting at its own split point may only help threads that are
// working for it.
func (w *Worker) availableTo(master *Worker) bool {
	if w.searching.Load() {
		return false
	}
	size := w.splitPointsSize.Load()
	return size == 0 || w.splitPoints[size-1].hasSlave(master.idx)
}

// split publishes the current node as a split point, books idle threads for
// it and searches the remaining moves together with them. It returns the
// best value and move once every participant has finished.
func (w *Worker) split(pos *board.Position, stack []Stack, alpha, beta, bestValue int, bestMove board.Move,
	depth, moveCount int, mp *MovePicker, nt nodeType, cutNode bool) (int, board.Move) {
	p := w.pool
	sp := &w.splitPoints[w.splitPointsSize.Load()]

	sp.master = w
	sp.parent = w.activeSplitPoint.Load()
	sp.pos = pos
	sp.stack = stack
	sp.depth = depth
	sp.beta = beta
	sp.nodeType = nt.splitPointType()
	sp.cutNode = cutNode
	sp.setAlpha(alpha)
	sp.slavesMask.Store(1 << w.idx)
	sp.cutoff.Store(false)

	// Booking happens under the pool lock so that two masters never
	// allocate the same slave.
	p.mu.Lock()
	state := sp.shared.Lock()
	*state = splitState{bestValue: bestValue, bestMove: bestMove, moveCount: moveCount, picker: mp}
	sp.allSlavesSearching.Store(true)
	w.splitPointsSize.Add(1)
	w.activeSplitPoint.Store(sp)
	w.activePosition.Store(nil)

	for booked := 1; booked < p.maxThreadsPerSplitPoint; booked++ {
		slave := p.availableSlave(w)
		if slave == nil {
			break
		}
		sp.addSlave(slave.idx)
		slave.activeSplitPoint.Store(sp)
		slave.searching.Store(true)
		slave.notify()
	}
	sp.shared.Unlock()
	p.mu.Unlock()

	// The master is still flagged as searching, so the idle loop starts on
	// this split point at once and returns when all slaves have left.
	w.idleLoop()

	p.mu.Lock()
	state = sp.shared.Lock()
	w.searching.Store(true)
	w.splitPointsSize.Add(-1)
	w.activeSplitPoint.Store(sp.parent)
	w.activePosition.Store(pos)
	pos.SetNodes(pos.Nodes() + state.nodes)
	bestValue, bestMove = state.bestValue, state.bestMove
	sp.shared.Unlock()
	p.mu.Unlock()

	return bestValue, bestMove
}

// idleLoop is where helper threads wait for work. A master calling it from
// split leaves as soon as its split point has no slaves left.
func (w *Worker) idleLoop() {
	var thisSP *SplitPoint
	if w.splitPointsSize.Load() > 0 {
		thisSP = w.activeSplitPoint.Load()
	}

	for !w.exit.Load() {
		for w.searching.Load() {
			w.searchSplitPoint()
			if w.pool.Size() > 2 {
				w.tryLateJoin()
			}
		}

		w.mu.Lock()
		if thisSP != nil && thisSP.slavesMask.Load() == 0 {
			w.mu.Unlock()
			break
		}
		if !w.searching.Load() && !w.exit.Load() {
			w.cond.Wait()
		}
		w.mu.Unlock()
	}
}

// searchSplitPoint searches the moves of the split point the worker has been
// booked for on a private copy of its position and stack.
func (w *Worker) searchSplitPoint() {
	w.pool.mu.Lock()
	sp := w.activeSplitPoint.Load()
	w.pool.mu.Unlock()

	level := w.splitPointsSize.Load()
	pos := &w.positions[level]
	pos.CopyFrom(sp.pos)
	stack := w.stacks[level][:]
	copy(stack[:5], sp.stack[:5])
	stack[2].splitPoint = sp

	w.activePosition.Store(pos)
	w.search(pos, stack, sp.Alpha(), sp.beta, sp.depth, sp.cutNode, sp.nodeType)

	state := sp.shared.Lock()
	w.searching.Store(false)
	w.activePosition.Store(nil)
	sp.removeSlave(w.idx)
	sp.allSlavesSearching.Store(false)
	state.nodes += pos.Nodes()

	// The last slave out wakes the master.
	if w != sp.master && sp.slavesMask.Load() == 0 {
		sp.master.notify()
	}
	// The master may reuse sp as soon as the lock is released.
	sp.shared.Unlock()
}

// tryLateJoin makes a single attempt to join a split point whose slaves are
// all still busy.
func (w *Worker) tryLateJoin() {
	p := w.pool
	for _, t := range p.workers {
		size := t.splitPointsSize.Load()
		if size == 0 {
			continue
		}
		sp := &t.splitPoints[size-1]
		if !sp.allSlavesSearching.Load() || !w.availableTo(t) {
			continue
		}

		p.mu.Lock()
		sp.shared.Lock()
		if sp.allSlavesSearching.Load() && w.availableTo(t) &&
			bits.OnesCount64(sp.slavesMask.Load()) < p.maxThreadsPerSplitPoint {
			sp.addSlave(w.idx)
			w.activeSplitPoint.Store(sp)
			w.searching.Store(true)
		}
		sp.shared.Unlock()
		p.mu.Unlock()
		return
	}
}

// Pool owns the search threads. Worker 0 is driven by Engine.Search; the
// helpers run idleLoop in goroutines started by an errgroup.
type Pool struct {
	mu      sync.Mutex
	workers []*Worker
	group   *errgroup.Group

	minSplitDepth           int
	maxThreadsPerSplitPoint int
}

func newPool(e *Engine, threads, minSplitDepth, maxThreadsPerSplitPoint int) *Pool {
	p := &Pool{maxThreadsPerSplitPoint: maxThreadsPerSplitPoint}
	p.start(e, threads, minSplitDepth)
	return p
}

func (p *Pool) start(e *Engine, threads, minSplitDepth int) {
	threads = clamp(threads, 1, MaxThreads)
	p.minSplitDepth = minSplitDepth
	if p.minSplitDepth == 0 {
		p.minSplitDepth = 4
		if threads >= 8 {
			p.minSplitDepth = 7
		}
	}

	p.workers = make([]*Worker, threads)
	p.group = new(errgroup.Group)
	for i := range p.workers {
		w := newWorker(e, p, i)
		p.workers[i] = w
		if i == 0 {
			// The main thread has no idle loop and may only be booked while
			// it waits at one of its own split points.
			w.searching.Store(true)
			continue
		}
		p.group.Go(func() error {
			w.idleLoop()
			w.log.Debug().Msg("helper exited")
			return nil
		})
	}
	log.Debug().Int("threads", threads).Int("minSplitDepth", p.minSplitDepth).Msg("thread pool started")
}

// stop terminates the helper goroutines and waits for them.
func (p *Pool) stop() error {
	for _, w := range p.workers[1:] {
		w.exit.Store(true)
		w.notify()
	}
	return p.group.Wait()
}

// resize replaces the helpers. Only valid between searches.
func (p *Pool) resize(e *Engine, threads, minSplitDepth int) error {
	if err := p.stop(); err != nil {
		return err
	}
	p.start(e, threads, minSplitDepth)
	return nil
}

// Size returns the number of search threads including the main one.
func (p *Pool) Size() int {
	return len(p.workers)
}

func (p *Pool) main() *Worker {
	return p.workers[0]
}

func (p *Pool) availableSlave(master *Worker) *Worker {
	for _, w := range p.workers {
		if w.availableTo(master) {
			return w
		}
	}
	return nil
}

// nodesSearched sums the nodes of the main position, every active split
// point and the positions currently searched below them.
func (p *Pool) nodesSearched(root *board.Position) uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()

	nodes := root.Nodes()
	for _, t := range p.workers {
		for i := int32(0); i < t.splitPointsSize.Load(); i++ {
			sp := &t.splitPoints[i]
			state := sp.shared.Lock()
			nodes += state.nodes
			mask := sp.slavesMask.Load()
			for _, s := range p.workers {
				if mask&(1<<s.idx) == 0 {
					continue
				}
				if ap := s.activePosition.Load(); ap != nil {
					nodes += ap.Nodes()
				}
			}
			sp.shared.Unlock()
		}
	}
	return nodes
}

// maxSelDepth returns the deepest ply reached by any thread in this search.
func (p *Pool) maxSelDepth() int {
	d := int32(0)
	for _, w := range p.workers {
		d = max(d, w.selDepth.Load())
	}
	return int(d)
}
