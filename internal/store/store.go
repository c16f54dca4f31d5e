package store

import (
	"fmt"
	"log"
	"sync"

	"github.com/asaphhq/asaph/internal/types"
	"github.com/google/uuid"
	"github.com/teris-io/shortid"
	"golang.org/x/crypto/bcrypt"
)

const maxIdAttempts = 10

// Store owns all durable state: accounts and rooms. It is constructed
// once in main and passed by reference to the HTTP boundary and the
// connection hub. Every public operation is an atomic
// verify-then-mutate step under a single mutex, so a failed operation
// never leaves partial state behind.
type Store struct {
	log      *log.Logger
	mu       sync.Mutex
	accounts map[string]*types.Account
	rooms    map[string]*types.Room
	writer   *snapshotWriter
}

// NewStore loads the previous snapshot from snap, if any, and returns
// a store whose mutations are written back through a single-writer
// queue. Call Start to begin background persistence and Stop to flush
// the final state on shutdown.
func NewStore(logger *log.Logger, snap Snapshotter) (*Store, error) {
	s := &Store{
		log:      logger,
		accounts: make(map[string]*types.Account),
		rooms:    make(map[string]*types.Room),
	}

	snapshot, err := snap.Load()
	if err != nil {
		return nil, fmt.Errorf("load snapshot: %w", err)
	}
	if snapshot != nil {
		if snapshot.Accounts != nil {
			s.accounts = snapshot.Accounts
		}
		if snapshot.Rooms != nil {
			s.rooms = snapshot.Rooms
		}
		for _, a := range s.accounts {
			if a.SavedRooms == nil {
				a.SavedRooms = make(map[string]string)
			}
		}
	}

	s.writer = newSnapshotWriter(logger, snap, s.snapshot)
	return s, nil
}

// Start begins the background snapshot writer.
func (s *Store) Start() {
	s.writer.run()
}

// Stop drains the writer, performing one final synchronous write if
// there are unpersisted mutations.
func (s *Store) Stop() {
	s.writer.stop()
}

// markDirty schedules a snapshot write. Callers must hold s.mu.
func (s *Store) markDirty() {
	s.writer.markDirty()
}

// snapshot deep-copies the current state for the writer goroutine.
func (s *Store) snapshot() *Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := &Snapshot{
		Accounts: make(map[string]*types.Account, len(s.accounts)),
		Rooms:    make(map[string]*types.Room, len(s.rooms)),
	}
	for id, a := range s.accounts {
		snap.Accounts[id] = copyAccount(a)
	}
	for id, r := range s.rooms {
		snap.Rooms[id] = copyRoom(r)
	}
	return snap
}

// newAccountId allocates a random id unused by any account. Callers
// must hold s.mu.
func (s *Store) newAccountId() (string, error) {
	for range maxIdAttempts {
		id, err := shortid.Generate()
		if err != nil {
			return "", fmt.Errorf("generate account id: %w", err)
		}
		if _, ok := s.accounts[id]; !ok {
			return id, nil
		}
	}
	return "", fmt.Errorf("exhausted attempts generating account id")
}

// newRoomId allocates a random id unused by any room. Callers must
// hold s.mu.
func (s *Store) newRoomId() (string, error) {
	for range maxIdAttempts {
		id, err := shortid.Generate()
		if err != nil {
			return "", fmt.Errorf("generate room id: %w", err)
		}
		if _, ok := s.rooms[id]; !ok {
			return id, nil
		}
	}
	return "", fmt.Errorf("exhausted attempts generating room id")
}

func newToken() string {
	return uuid.NewString()
}

func hashPassword(passwd string) (string, error) {
	passwdHash, err := bcrypt.GenerateFromPassword([]byte(passwd), bcrypt.DefaultCost)
	return string(passwdHash), err
}

func verifyPassword(passwdHash, passwd string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(passwdHash), []byte(passwd))
	return err == nil
}

func copyAccount(a *types.Account) *types.Account {
	c := *a
	c.SavedRooms = make(map[string]string, len(a.SavedRooms))
	for k, v := range a.SavedRooms {
		c.SavedRooms[k] = v
	}
	return &c
}

func copyRoom(r *types.Room) *types.Room {
	c := *r
	c.Members = make(map[string]types.Membership, len(r.Members))
	for k, v := range r.Members {
		c.Members[k] = v
	}
	if r.Layers != nil {
		c.Layers = make([]types.Layer, len(r.Layers))
		for i, l := range r.Layers {
			c.Layers[i] = types.Layer{
				DelaySeconds: l.DelaySeconds,
				Members:      append([]string(nil), l.Members...),
			}
		}
	}
	if r.Sequence != nil {
		c.Sequence = append([]string(nil), r.Sequence...)
	}
	return &c
}
