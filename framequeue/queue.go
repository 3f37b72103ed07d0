// Package framequeue implements the Frame Queue (spec.md §2, component 8;
// §4.4): one FIFO per registered input, a ticker that assembles a
// time-aligned FrameSet every 1/framerate, per-input stream-fallback
// timeout, and a bounded backlog that drops the oldest pending set rather
// than ever blocking ingest.
package framequeue

import (
	"context"
	"runtime"
	"sync"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"

	"github.com/oxy-systems/scenecompositor/scene"
)

// Frame is one decoded 4:2:0 8-bit planar YUV frame pushed by an ingest
// adapter (spec.md §3 Frame), tagged with its presentation timestamp by the
// caller of Push rather than carried inline — Push's pts parameter is the
// frame's pts.
type Frame struct {
	Y, U, V       []byte
	Width, Height uint32
}

// FrameSet is one tick's aligned set of input frames (spec.md §3), keyed by
// registered input id. An input absent from Frames had neither a fresh
// frame nor one recent enough to reuse this tick.
type FrameSet struct {
	PTS    time.Duration
	Frames map[scene.InputID]Frame
}

type pendingFrame struct {
	pts   time.Duration
	frame Frame
}

// inputFIFO is one registered input's pending-frame buffer plus the last
// frame it ever delivered, used to serve the stream-fallback timeout.
type inputFIFO struct {
	mu      sync.Mutex
	pending []pendingFrame

	hasLast   bool
	lastFrame Frame
	lastPTS   time.Duration
}

func (f *inputFIFO) push(pts time.Duration, frame Frame) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pending = append(f.pending, pendingFrame{pts: pts, frame: frame})
}

// pop removes every buffered frame with pts at or before target, keeping
// only the last one as this tick's candidate (spec.md §4.4 step 1: "keeping
// only the last popped as a candidate, drop older"). The returned fresh flag
// reports whether this call actually dequeued newly pushed data, as opposed
// to reusing the previous tick's frame under the stream-fallback timeout —
// callers must use this flag rather than inferring freshness from pts, since
// a genuinely fresh frame's own ingest-assigned pts has no reason to land on
// a tick's grid-aligned target.
func (f *inputFIFO) pop(target time.Duration, fallbackTimeout time.Duration) (frame Frame, ok bool, fresh bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	cut := len(f.pending)
	for i, p := range f.pending {
		if p.pts > target {
			cut = i
			break
		}
	}
	popped := f.pending[:cut]
	f.pending = f.pending[cut:]

	if len(popped) > 0 {
		last := popped[len(popped)-1]
		f.hasLast = true
		f.lastFrame = last.frame
		f.lastPTS = last.pts
		return last.frame, true, true
	}

	if f.hasLast && target-f.lastPTS <= fallbackTimeout {
		return f.lastFrame, true, false
	}
	return Frame{}, false, false
}

// WaitListener is closed exactly once, the tick after it was registered,
// when a fresh (non-reused) frame for its input next arrives in a
// FrameSet — the primitive behind the control API's wait_for_next_frame
// query (spec.md §4.4, §6).
type WaitListener chan struct{}

// Queue owns one inputFIFO per registered input and the ticker that
// assembles FrameSets at a fixed framerate (spec.md §2 component 8, §5
// "Queue ticker").
type Queue struct {
	framerate        int
	fallbackTimeout  time.Duration
	backlogThreshold int

	mu        sync.RWMutex
	inputs    map[scene.InputID]*inputFIFO
	listeners map[scene.InputID][]WaitListener

	tickerMu sync.Mutex
	started  bool
	stopCh   chan struct{}
	wg       sync.WaitGroup

	// popPool runs each registered input's FIFO pop concurrently: every
	// input's candidate-frame selection (§4.4 step 1) only touches that
	// input's own mutex-guarded FIFO, so N inputs assembling one tick are
	// embarrassingly parallel CPU/lock work with no GPU involvement. Workers
	// persist across ticks rather than spawning fresh goroutines every
	// 1/framerate period, the same shape as the teacher's per-frame compute
	// pool (see DESIGN.md).
	popPool worker.DynamicWorkerPool
}

// New returns a Queue. framerate is ticks per second; fallbackTimeout is
// the stream-fallback window (spec.md §3, §4.4); backlogThreshold is the
// render channel's pending-set cap before the oldest set is dropped with a
// warning (spec.md §4.4 step 3 — fixed at 20 in spec.md, configurable here
// per SPEC_FULL.md's "tunables, not contracts").
func New(framerate int, fallbackTimeout time.Duration, backlogThreshold int) *Queue {
	return &Queue{
		framerate:        framerate,
		fallbackTimeout:  fallbackTimeout,
		backlogThreshold: backlogThreshold,
		inputs:           make(map[scene.InputID]*inputFIFO),
		listeners:        make(map[scene.InputID][]WaitListener),
		popPool:          worker.NewDynamicWorkerPool(max(runtime.NumCPU()-1, 1), 256, time.Second),
	}
}

// RegisterInput creates the FIFO for a newly registered input. A no-op if
// id is already registered.
func (q *Queue) RegisterInput(id scene.InputID) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if _, exists := q.inputs[id]; exists {
		return
	}
	q.inputs[id] = &inputFIFO{}
}

// UnregisterInput drains and removes id's FIFO. The caller (the pipeline
// orchestrator) is responsible for rejecting unregistration while the
// installed scene still references id (spec.md §3 Ownership & lifecycle) —
// the queue itself has no notion of scenes.
func (q *Queue) UnregisterInput(id scene.InputID) {
	q.mu.Lock()
	defer q.mu.Unlock()
	delete(q.inputs, id)
	delete(q.listeners, id)
}

// Push enqueues one decoded frame for id at presentation timestamp pts,
// called by id's ingest thread in ingest order (spec.md §5 "frame order
// into the queue equals ingest order"). A no-op if id is not registered
// (e.g. it was unregistered concurrently with in-flight ingest).
func (q *Queue) Push(id scene.InputID, pts time.Duration, frame Frame) {
	q.mu.RLock()
	fifo := q.inputs[id]
	q.mu.RUnlock()
	if fifo == nil {
		return
	}
	fifo.push(pts, frame)
}

// WaitForNextFrame registers a one-shot listener closed the next time id
// receives a fresh frame in an assembled FrameSet. Returns nil if id is not
// registered.
func (q *Queue) WaitForNextFrame(id scene.InputID) WaitListener {
	q.mu.Lock()
	defer q.mu.Unlock()
	if _, ok := q.inputs[id]; !ok {
		return nil
	}
	l := make(WaitListener)
	q.listeners[id] = append(q.listeners[id], l)
	return l
}

// Tick assembles the FrameSet for target pts (spec.md §4.4 step 1) and
// fires every WaitListener registered against an input that received a
// fresh frame this tick. Exported directly (rather than only reachable
// through Run) so tests can drive tick boundaries deterministically
// instead of racing a real ticker.
func (q *Queue) Tick(target time.Duration) FrameSet {
	q.mu.RLock()
	ids := make([]scene.InputID, 0, len(q.inputs))
	fifos := make(map[scene.InputID]*inputFIFO, len(q.inputs))
	for id, fifo := range q.inputs {
		ids = append(ids, id)
		fifos[id] = fifo
	}
	q.mu.RUnlock()

	// Phase 1: parallel pop — each input's FIFO is independent, so popping
	// candidates for all of them is submitted to the worker pool at once.
	results := make([]struct {
		frame Frame
		ok    bool
		fresh bool
	}, len(ids))
	var wg sync.WaitGroup
	for i, id := range ids {
		fifo := fifos[id]
		wg.Add(1)
		idx := i
		q.popPool.SubmitTask(worker.Task{
			ID: idx,
			Do: func() (any, error) {
				defer wg.Done()
				frame, ok, fresh := fifo.pop(target, q.fallbackTimeout)
				results[idx].frame = frame
				results[idx].ok = ok
				results[idx].fresh = fresh
				return nil, nil
			},
		})
	}
	wg.Wait()

	// Phase 2: sequential assembly and listener notification.
	set := FrameSet{PTS: target, Frames: make(map[scene.InputID]Frame, len(ids))}
	var fresh []scene.InputID
	for i, id := range ids {
		if !results[i].ok {
			continue
		}
		set.Frames[id] = results[i].frame
		if results[i].fresh {
			fresh = append(fresh, id)
		}
	}

	if len(fresh) > 0 {
		q.fireListeners(fresh)
	}
	return set
}

func (q *Queue) fireListeners(ids []scene.InputID) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, id := range ids {
		for _, l := range q.listeners[id] {
			close(l)
		}
		delete(q.listeners, id)
	}
}

// Run starts the ticker goroutine, emitting one FrameSet on the returned
// channel every 1/framerate, anchored to a fixed baseline so consecutive
// pts values never drift regardless of scheduler jitter (spec.md §8 Queue
// monotonicity; SPEC_FULL.md §4.4). The channel is buffered to
// backlogThreshold; when full, the oldest pending set is dropped with a
// warning rather than blocking the tick goroutine (spec.md §4.4 step 3,
// §5 "rendering never blocks ingest"). Call Stop to halt it.
func (q *Queue) Run(ctx context.Context) <-chan FrameSet {
	out := make(chan FrameSet, q.backlogThreshold)

	q.tickerMu.Lock()
	if q.started {
		q.tickerMu.Unlock()
		return out
	}
	q.started = true
	q.stopCh = make(chan struct{})
	q.tickerMu.Unlock()

	q.wg.Add(1)
	go func() {
		defer q.wg.Done()
		defer close(out)

		start := time.Now()
		var k int64
		for {
			target := time.Duration(k) * (time.Second / time.Duration(q.framerate))
			wait := start.Add(target).Sub(time.Now())
			if wait > 0 {
				timer := time.NewTimer(wait)
				select {
				case <-timer.C:
				case <-q.stopCh:
					timer.Stop()
					return
				case <-ctx.Done():
					timer.Stop()
					return
				}
			}

			set := q.Tick(target)
			q.enqueue(out, set)
			k++
		}
	}()

	return out
}

// enqueue delivers set to out, dropping the oldest buffered set first if
// out is already at capacity (spec.md §4.4 step 3).
func (q *Queue) enqueue(out chan FrameSet, set FrameSet) {
	select {
	case out <- set:
		return
	default:
	}
	select {
	case dropped := <-out:
		Logger().Warn("framequeue: render channel backlog full, dropping oldest frame set", "dropped_pts", dropped.PTS)
	default:
	}
	select {
	case out <- set:
	default:
		Logger().Warn("framequeue: render channel still full after drop, skipping frame set", "pts", set.PTS)
	}
}

// Stop halts the ticker goroutine started by Run and waits for it to exit.
// Safe to call even if Run was never called.
func (q *Queue) Stop() {
	q.tickerMu.Lock()
	if !q.started {
		q.tickerMu.Unlock()
		return
	}
	close(q.stopCh)
	q.tickerMu.Unlock()
	q.wg.Wait()
}
