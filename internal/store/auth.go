package store

import "github.com/asaphhq/asaph/internal/types"

// The three verification checks below are the only authorization logic
// in the system; every other operation composes them. The exported
// variants return defensive copies so callers never hold references
// into store-owned state.

// verifyAccountLocked resolves id to an account and checks the access
// token. An account with no current token never verifies, even against
// an empty presented token. Callers must hold s.mu.
func (s *Store) verifyAccountLocked(id, token string) (*types.Account, error) {
	acct, ok := s.accounts[id]
	if !ok {
		return nil, ErrUnauthorized
	}
	if acct.Token == "" || acct.Token != token {
		return nil, ErrUnauthorized
	}
	return acct, nil
}

// verifyRoomLocked resolves roomId and checks the room password.
// Callers must hold s.mu.
func (s *Store) verifyRoomLocked(roomId, password string) (*types.Room, error) {
	room, ok := s.rooms[roomId]
	if !ok {
		return nil, ErrNotFound
	}
	if room.Password != password {
		return nil, ErrForbidden
	}
	return room, nil
}

// verifyMembershipLocked composes verifyAccountLocked with a check
// that the account is currently present in a room it is a member of.
// Callers must hold s.mu.
func (s *Store) verifyMembershipLocked(id, token string) (*types.Account, *types.Room, error) {
	acct, err := s.verifyAccountLocked(id, token)
	if err != nil {
		return nil, nil, err
	}
	if acct.RoomId == "" {
		return nil, nil, ErrForbidden
	}
	room, ok := s.rooms[acct.RoomId]
	if !ok || !room.IsMember(acct.Id) {
		return nil, nil, ErrForbidden
	}
	return acct, room, nil
}

// VerifyAccount checks (id, token) and returns a copy of the account.
func (s *Store) VerifyAccount(id, token string) (types.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	acct, err := s.verifyAccountLocked(id, token)
	if err != nil {
		return types.Account{}, err
	}
	return *copyAccount(acct), nil
}

// VerifyRoom checks (roomId, password) and returns a copy of the room.
func (s *Store) VerifyRoom(roomId, password string) (types.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	room, err := s.verifyRoomLocked(roomId, password)
	if err != nil {
		return types.Room{}, err
	}
	return *copyRoom(room), nil
}

// VerifyMembership checks (id, token) and that the account is present
// in a room whose member set includes it, returning copies of both.
func (s *Store) VerifyMembership(id, token string) (types.Account, types.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	acct, room, err := s.verifyMembershipLocked(id, token)
	if err != nil {
		return types.Account{}, types.Room{}, err
	}
	return *copyAccount(acct), *copyRoom(room), nil
}
