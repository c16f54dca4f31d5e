package store

import (
	"log"
	"sync"

	"github.com/asaphhq/asaph/internal/types"
)

// Snapshot is the single durable record: the full account and room
// state, written wholesale after each mutation. Live connections are
// never part of it.
type Snapshot struct {
	Accounts map[string]*types.Account `json:"accounts"`
	Rooms    map[string]*types.Room    `json:"rooms"`
}

// Snapshotter reads and writes the durable snapshot. Load returns
// (nil, nil) when no previous state exists.
type Snapshotter interface {
	Load() (*Snapshot, error)
	Save(*Snapshot) error
}

// snapshotWriter serializes snapshot writes: at most one write is in
// flight at a time and mutations arriving while a write runs coalesce
// into the next one, so the last mutation always wins. Write failures
// are logged and the dirty mark is kept so the state is retried on the
// next mutation or on stop.
type snapshotWriter struct {
	log  *log.Logger
	snap Snapshotter
	take func() *Snapshot

	dirty chan struct{}
	stopc chan struct{}
	done  chan struct{}

	mu      sync.Mutex
	pending bool
}

func newSnapshotWriter(logger *log.Logger, snap Snapshotter, take func() *Snapshot) *snapshotWriter {
	return &snapshotWriter{
		log:   logger,
		snap:  snap,
		take:  take,
		dirty: make(chan struct{}, 1),
		stopc: make(chan struct{}),
		done:  make(chan struct{}),
	}
}

func (w *snapshotWriter) run() {
	go w.loop()
}

func (w *snapshotWriter) loop() {
	defer close(w.done)
	for {
		select {
		case <-w.dirty:
			w.write()
		case <-w.stopc:
			w.mu.Lock()
			pending := w.pending
			w.mu.Unlock()
			if pending {
				w.write()
			}
			return
		}
	}
}

func (w *snapshotWriter) write() {
	w.mu.Lock()
	w.pending = false
	w.mu.Unlock()

	if err := w.snap.Save(w.take()); err != nil {
		w.log.Printf("snapshot write: %v", err)
		w.mu.Lock()
		w.pending = true
		w.mu.Unlock()
	}
}

func (w *snapshotWriter) markDirty() {
	w.mu.Lock()
	w.pending = true
	w.mu.Unlock()

	select {
	case w.dirty <- struct{}{}:
	default:
	}
}

func (w *snapshotWriter) stop() {
	close(w.stopc)
	<-w.done
}
