package store

import (
	"slices"

	"github.com/asaphhq/asaph/internal/types"
)

// CreateRoom allocates a new room owned by ownerId. The owner is
// pre-admitted with owner and admin attributes, the room is recorded
// in the owner's saved rooms, and the owner becomes present in it.
func (s *Store) CreateRoom(name, password, ownerId, token string) (types.RoomView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	acct, err := s.verifyAccountLocked(ownerId, token)
	if err != nil {
		return types.RoomView{}, err
	}

	id, err := s.newRoomId()
	if err != nil {
		return types.RoomView{}, err
	}

	room := &types.Room{
		Id:       id,
		Name:     name,
		Password: password,
		OwnerId:  acct.Id,
		Members: map[string]types.Membership{
			acct.Id: {IsOwner: true, IsAdmin: true},
		},
		VideoMode: types.VideoOff,
	}
	s.rooms[id] = room
	acct.SavedRooms[id] = password
	acct.RoomId = id
	s.markDirty()

	s.log.Printf("account %q created room %q", acct.Id, id)
	return room.View(), nil
}

// JoinRoom admits the account into the room after checking the room
// password, and makes the room the account's current one. Rejoining a
// room the account is already a member of is a no-op beyond that.
// With remember set the room is recorded in the account's saved rooms.
func (s *Store) JoinRoom(roomId, password, accountId, token string, remember bool) (types.RoomView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	acct, err := s.verifyAccountLocked(accountId, token)
	if err != nil {
		return types.RoomView{}, err
	}
	room, err := s.verifyRoomLocked(roomId, password)
	if err != nil {
		return types.RoomView{}, err
	}

	if !room.IsMember(acct.Id) {
		room.Members[acct.Id] = types.Membership{}
	}
	acct.RoomId = room.Id
	if remember {
		acct.SavedRooms[room.Id] = password
	}
	s.markDirty()

	return room.View(), nil
}

// LeaveRoom clears the account's current room. The membership entry in
// the room is intentionally left in place so the account can rejoin;
// presence and membership are distinct.
func (s *Store) LeaveRoom(id, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	acct, err := s.verifyAccountLocked(id, token)
	if err != nil {
		return err
	}

	acct.RoomId = ""
	s.markDirty()
	return nil
}

// SavedRooms returns the public view of every room the account has
// saved. Saved entries whose room has since been removed are skipped.
func (s *Store) SavedRooms(id, token string) ([]types.RoomView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	acct, err := s.verifyAccountLocked(id, token)
	if err != nil {
		return nil, err
	}

	views := make([]types.RoomView, 0, len(acct.SavedRooms))
	for sid := range acct.SavedRooms {
		if room, ok := s.rooms[sid]; ok {
			views = append(views, room.View())
		}
	}
	slices.SortFunc(views, func(a, b types.RoomView) int {
		if a.Name != b.Name {
			if a.Name < b.Name {
				return -1
			}
			return 1
		}
		if a.Sid < b.Sid {
			return -1
		}
		if a.Sid > b.Sid {
			return 1
		}
		return 0
	})
	return views, nil
}

// RemoveRoom drops the account's saved entry for roomId, failing with
// ErrNotFound if there is none. If the account also owns the room, the
// room itself is deleted and every account present in it is evicted.
// The first return reports whether the room was deleted, so callers
// can notify live connections.
func (s *Store) RemoveRoom(roomId, id, token string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	acct, err := s.verifyAccountLocked(id, token)
	if err != nil {
		return false, err
	}
	if _, ok := acct.SavedRooms[roomId]; !ok {
		return false, ErrNotFound
	}

	deleted := false
	if room, ok := s.rooms[roomId]; ok && room.OwnerId == acct.Id {
		delete(s.rooms, roomId)
		for _, other := range s.accounts {
			if other.RoomId == roomId {
				other.RoomId = ""
			}
		}
		deleted = true
		s.log.Printf("account %q removed room %q", acct.Id, roomId)
	}

	delete(acct.SavedRooms, roomId)
	s.markDirty()
	return deleted, nil
}

// SetVideoMode transitions the room's video mode. Only an admin of the
// room may change it. Layer and sequence parameters are validated
// against the room's member set before any state changes; invalid
// parameters fail with ErrInvalidParams and leave the mode untouched.
// The previous mode is returned so callers can relay a stop notice
// before announcing the new mode.
func (s *Store) SetVideoMode(roomId, accountId string, mode types.VideoMode, layers []types.Layer, sequence []string) (types.VideoMode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	room, ok := s.rooms[roomId]
	if !ok {
		return "", ErrNotFound
	}
	if !room.IsAdmin(accountId) {
		return "", ErrForbidden
	}
	if !mode.Valid() {
		return "", ErrInvalidParams
	}

	switch mode {
	case types.VideoLayers:
		if err := validateLayers(room, layers); err != nil {
			return "", err
		}
	case types.VideoSequence:
		if err := validateSequence(room, sequence); err != nil {
			return "", err
		}
	}

	prev := room.VideoMode
	room.VideoMode = mode
	room.Layers = nil
	room.Sequence = nil
	switch mode {
	case types.VideoLayers:
		room.Layers = layers
	case types.VideoSequence:
		room.Sequence = sequence
	}
	s.markDirty()

	return prev, nil
}

// validateLayers requires at least one layer, a non-negative delay on
// each, and member ids that are known to the room and unique across
// all layers.
func validateLayers(room *types.Room, layers []types.Layer) error {
	if len(layers) == 0 {
		return ErrInvalidParams
	}

	seen := make(map[string]struct{})
	for _, layer := range layers {
		if layer.DelaySeconds < 0 || len(layer.Members) == 0 {
			return ErrInvalidParams
		}
		for _, id := range layer.Members {
			if !room.IsMember(id) {
				return ErrInvalidParams
			}
			if _, dup := seen[id]; dup {
				return ErrInvalidParams
			}
			seen[id] = struct{}{}
		}
	}
	return nil
}

// validateSequence requires a non-empty ordering of known member ids
// with no duplicates.
func validateSequence(room *types.Room, sequence []string) error {
	if len(sequence) == 0 {
		return ErrInvalidParams
	}

	seen := make(map[string]struct{})
	for _, id := range sequence {
		if !room.IsMember(id) {
			return ErrInvalidParams
		}
		if _, dup := seen[id]; dup {
			return ErrInvalidParams
		}
		seen[id] = struct{}{}
	}
	return nil
}
