// Package progress aggregates per-part transfer progress into one
// monotonically non-decreasing percentage per upload.
package progress

import (
	"math"
	"sync"
	"sync/atomic"
)

// Checkpoints of an upload, in percent.
const (
	Initiating   = 1.0
	Initiated    = 2.0
	Hashed       = 10.0
	TransferBand = 85.0
	Complete     = 100.0
)

// NotifyFunc receives progress values.
type NotifyFunc func(id string, progress float64)

// Tracker is the progress state of one upload.
//
// Each part owns a slot that only its transfer goroutine writes. Emission is
// serialised so the listener observes non-decreasing values even when parts
// report concurrently.
type Tracker struct {
	id     string
	notify NotifyFunc

	sizes  []int64
	shares []float64
	slots  []atomic.Uint64

	stopped atomic.Bool

	mu      sync.Mutex
	last    float64
	emitted bool
}

// NewTracker creates a tracker for upload id. A nil notify discards progress.
func NewTracker(id string, notify NotifyFunc) *Tracker {
	return &Tracker{id: id, notify: notify}
}

// Checkpoint reports a fixed phase value such as Initiated or Hashed.
func (t *Tracker) Checkpoint(p float64) {
	t.emit(p)
}

// BeginTransfer allocates one slot per part. Each part's share of the
// transfer band is proportional to its size. It must be called before Update.
func (t *Tracker) BeginTransfer(sizes []int64) {
	var total int64
	for _, s := range sizes {
		total += s
	}

	t.sizes = sizes
	t.shares = make([]float64, len(sizes))
	t.slots = make([]atomic.Uint64, len(sizes))
	if total <= 0 {
		return
	}
	for i, s := range sizes {
		t.shares[i] = TransferBand * float64(s) / float64(total)
	}
}

// Update records that part i has sent bytes out of total. When total is not
// known (zero or negative) the part's own size is used instead.
func (t *Tracker) Update(i int, sent, total int64) {
	if i < 0 || i >= len(t.slots) {
		return
	}
	if total <= 0 {
		total = t.sizes[i]
	}
	if total <= 0 {
		return
	}

	frac := math.Min(float64(sent)/float64(total), 1)
	if frac < 0 {
		frac = 0
	}
	t.raise(i, frac*t.shares[i])
	t.emit(t.aggregate())
}

// CompletePart pins part i to its full share.
func (t *Tracker) CompletePart(i int) {
	if i < 0 || i >= len(t.slots) {
		return
	}
	t.raise(i, t.shares[i])
	t.emit(t.aggregate())
}

// Stop suppresses every later emission. It is called once the upload has
// failed so that stragglers cannot report progress. No notification is
// delivered after Stop returns.
func (t *Tracker) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopped.Store(true)
}

// Finish reports Complete.
func (t *Tracker) Finish() {
	t.emit(Complete)
}

// Last returns the most recently emitted value.
func (t *Tracker) Last() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.last
}

// raise stores v in slot i unless the slot already holds a larger value.
func (t *Tracker) raise(i int, v float64) {
	slot := &t.slots[i]
	for {
		old := slot.Load()
		if math.Float64frombits(old) >= v {
			return
		}
		if slot.CompareAndSwap(old, math.Float64bits(v)) {
			return
		}
	}
}

func (t *Tracker) aggregate() float64 {
	sum := Hashed
	for i := range t.slots {
		sum += math.Float64frombits(t.slots[i].Load())
	}
	return math.Min(sum, Hashed+TransferBand)
}

func (t *Tracker) emit(p float64) {
	if t.stopped.Load() {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stopped.Load() {
		return
	}

	p = math.Min(math.Max(p, 0), Complete)
	if t.emitted && p <= t.last {
		return
	}
	t.last = p
	t.emitted = true
	if t.notify != nil {
		t.notify(t.id, p)
	}
}
