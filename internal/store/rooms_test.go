package store

import (
	"testing"

	"github.com/asaphhq/asaph/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateRoom(t *testing.T) {
	s := newTestStore(t)

	owner, err := s.CreateAccount("u1@b.c", "123", "Una")
	require.NoError(t, err)

	view, err := s.CreateRoom("Standup", "xyz", owner.Uid, owner.Token)
	require.NoError(t, err, "expected room creation to succeed")
	assert.NotEmpty(t, view.Sid, "expected a generated room id")
	assert.Equal(t, "Standup", view.Name)
	assert.Equal(t, "xyz", view.Password)
	assert.Equal(t, owner.Uid, view.Owner)

	room := s.rooms[view.Sid]
	require.NotNil(t, room, "expected the room to be registered")
	assert.Equal(t, types.Membership{IsOwner: true, IsAdmin: true}, room.Members[owner.Uid],
		"expected the owner to be pre-admitted with owner and admin attributes")
	assert.Equal(t, types.VideoOff, room.VideoMode, "expected a new room to start with video off")

	profile, err := s.GetProfile(owner.Uid, owner.Token)
	require.NoError(t, err)
	assert.Equal(t, view.Sid, profile.Sid, "expected the owner to be present in the new room")

	assert.Equal(t, "xyz", s.accounts[owner.Uid].SavedRooms[view.Sid],
		"expected the room to be recorded in the owner's saved rooms")

	_, err = s.CreateRoom("Standup", "xyz", owner.Uid, "bogus")
	assert.ErrorIs(t, err, ErrUnauthorized, "expected creation with a wrong token to fail")
}

func TestJoinRoom(t *testing.T) {
	s := newTestStore(t)

	owner, _ := s.CreateAccount("u1@b.c", "123", "Una")
	guest, _ := s.CreateAccount("u2@b.c", "123", "Gus")

	view, err := s.CreateRoom("Standup", "xyz", owner.Uid, owner.Token)
	require.NoError(t, err)

	t.Run("unknown room", func(t *testing.T) {
		_, err := s.JoinRoom("missing", "xyz", guest.Uid, guest.Token, false)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("wrong password", func(t *testing.T) {
		_, err := s.JoinRoom(view.Sid, "wrong", guest.Uid, guest.Token, false)
		assert.ErrorIs(t, err, ErrForbidden)

		assert.Empty(t, s.accounts[guest.Uid].RoomId, "expected a failed join to leave presence unchanged")
		assert.False(t, s.rooms[view.Sid].IsMember(guest.Uid), "expected a failed join to leave membership unchanged")
	})

	t.Run("successful join", func(t *testing.T) {
		got, err := s.JoinRoom(view.Sid, "xyz", guest.Uid, guest.Token, false)
		require.NoError(t, err)
		assert.Equal(t, view, got, "expected the room's public view")

		room := s.rooms[view.Sid]
		assert.Len(t, room.Members, 2, "expected both accounts as members")
		assert.Equal(t, types.Membership{}, room.Members[guest.Uid], "expected a plain membership for the guest")
		assert.Equal(t, view.Sid, s.accounts[guest.Uid].RoomId, "expected the guest to be present")
		assert.Empty(t, s.accounts[guest.Uid].SavedRooms, "expected no saved entry without remember")
	})

	t.Run("rejoin is idempotent", func(t *testing.T) {
		_, err := s.JoinRoom(view.Sid, "xyz", guest.Uid, guest.Token, false)
		require.NoError(t, err)
		assert.Len(t, s.rooms[view.Sid].Members, 2, "expected rejoin not to duplicate membership")
	})

	t.Run("remember saves the room", func(t *testing.T) {
		_, err := s.JoinRoom(view.Sid, "xyz", guest.Uid, guest.Token, true)
		require.NoError(t, err)
		assert.Equal(t, "xyz", s.accounts[guest.Uid].SavedRooms[view.Sid])
	})
}

func TestLeaveRoom(t *testing.T) {
	s := newTestStore(t)

	owner, _ := s.CreateAccount("u1@b.c", "123", "Una")
	view, err := s.CreateRoom("Standup", "xyz", owner.Uid, owner.Token)
	require.NoError(t, err)

	err = s.LeaveRoom(owner.Uid, owner.Token)
	require.NoError(t, err, "expected leave to succeed")

	assert.Empty(t, s.accounts[owner.Uid].RoomId, "expected presence to be cleared")
	assert.True(t, s.rooms[view.Sid].IsMember(owner.Uid),
		"expected the membership entry to survive leaving")

	_, _, err = s.VerifyMembership(owner.Uid, owner.Token)
	assert.ErrorIs(t, err, ErrForbidden, "expected membership verification to fail while not present")

	_, err = s.JoinRoom(view.Sid, "xyz", owner.Uid, owner.Token, false)
	assert.NoError(t, err, "expected rejoining after leave to succeed")
}

func TestVerifyMembership(t *testing.T) {
	s := newTestStore(t)

	owner, _ := s.CreateAccount("u1@b.c", "123", "Una")
	view, err := s.CreateRoom("Standup", "xyz", owner.Uid, owner.Token)
	require.NoError(t, err)

	acct, room, err := s.VerifyMembership(owner.Uid, owner.Token)
	require.NoError(t, err, "expected membership of the current room to verify")
	assert.Equal(t, owner.Uid, acct.Id)
	assert.Equal(t, view.Sid, room.Id)

	_, _, err = s.VerifyMembership(owner.Uid, "bogus")
	assert.ErrorIs(t, err, ErrUnauthorized, "expected a wrong token to fail account verification first")
}

func TestSavedRoomsAndRemove(t *testing.T) {
	s := newTestStore(t)

	owner, _ := s.CreateAccount("u1@b.c", "123", "Una")
	guest, _ := s.CreateAccount("u2@b.c", "123", "Gus")

	view, err := s.CreateRoom("Standup", "xyz", owner.Uid, owner.Token)
	require.NoError(t, err)
	_, err = s.JoinRoom(view.Sid, "xyz", guest.Uid, guest.Token, true)
	require.NoError(t, err)

	t.Run("saved rooms are listed with their password", func(t *testing.T) {
		views, err := s.SavedRooms(guest.Uid, guest.Token)
		require.NoError(t, err)
		require.Len(t, views, 1)
		assert.Equal(t, view, views[0])
	})

	t.Run("removing a room without a saved entry fails", func(t *testing.T) {
		other, _ := s.CreateAccount("u3@b.c", "123", "Oda")
		_, err := s.RemoveRoom(view.Sid, other.Uid, other.Token)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("a non-owner only drops their saved entry", func(t *testing.T) {
		deleted, err := s.RemoveRoom(view.Sid, guest.Uid, guest.Token)
		require.NoError(t, err)
		assert.False(t, deleted, "expected the room to survive a non-owner removal")
		assert.NotNil(t, s.rooms[view.Sid], "expected the room to still exist")
		assert.Empty(t, s.accounts[guest.Uid].SavedRooms, "expected the guest's saved entry to be dropped")

		views, err := s.SavedRooms(guest.Uid, guest.Token)
		require.NoError(t, err)
		assert.Empty(t, views)
	})

	t.Run("the owner deletes the room outright", func(t *testing.T) {
		deleted, err := s.RemoveRoom(view.Sid, owner.Uid, owner.Token)
		require.NoError(t, err)
		assert.True(t, deleted, "expected the owner's removal to delete the room")
		assert.Nil(t, s.rooms[view.Sid], "expected the room to be gone")
		assert.Empty(t, s.accounts[guest.Uid].RoomId, "expected present members to be evicted")
		assert.Empty(t, s.accounts[owner.Uid].SavedRooms, "expected the owner's saved entry to be dropped")
	})
}

func TestSetVideoMode(t *testing.T) {
	s := newTestStore(t)

	owner, _ := s.CreateAccount("u1@b.c", "123", "Una")
	guest, _ := s.CreateAccount("u2@b.c", "123", "Gus")

	view, err := s.CreateRoom("Standup", "xyz", owner.Uid, owner.Token)
	require.NoError(t, err)
	_, err = s.JoinRoom(view.Sid, "xyz", guest.Uid, guest.Token, false)
	require.NoError(t, err)

	// the permissive historical behavior, where any member could flip
	// the mode, is a regression: only admins may change it
	t.Run("non-admin members are rejected", func(t *testing.T) {
		_, err := s.SetVideoMode(view.Sid, guest.Uid, types.VideoNormal, nil, nil)
		assert.ErrorIs(t, err, ErrForbidden)
		assert.Equal(t, types.VideoOff, s.rooms[view.Sid].VideoMode, "expected the mode to be unchanged")
	})

	t.Run("unknown room", func(t *testing.T) {
		_, err := s.SetVideoMode("missing", owner.Uid, types.VideoNormal, nil, nil)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("normal mode", func(t *testing.T) {
		prev, err := s.SetVideoMode(view.Sid, owner.Uid, types.VideoNormal, nil, nil)
		require.NoError(t, err)
		assert.Equal(t, types.VideoOff, prev)
		assert.Equal(t, types.VideoNormal, s.rooms[view.Sid].VideoMode)
	})

	t.Run("invalid layers leave the mode unchanged", func(t *testing.T) {
		for name, layers := range map[string][]types.Layer{
			"no layers":       nil,
			"unknown member":  {{DelaySeconds: 1, Members: []string{"stranger"}}},
			"duplicate":       {{DelaySeconds: 1, Members: []string{owner.Uid}}, {DelaySeconds: 2, Members: []string{owner.Uid}}},
			"negative delay":  {{DelaySeconds: -1, Members: []string{owner.Uid}}},
			"empty layer":     {{DelaySeconds: 1}},
		} {
			_, err := s.SetVideoMode(view.Sid, owner.Uid, types.VideoLayers, layers, nil)
			assert.ErrorIs(t, err, ErrInvalidParams, "expected %s to be rejected", name)
			assert.Equal(t, types.VideoNormal, s.rooms[view.Sid].VideoMode, "expected %s to leave the mode unchanged", name)
		}
	})

	t.Run("valid layers", func(t *testing.T) {
		layers := []types.Layer{
			{DelaySeconds: 0, Members: []string{owner.Uid}},
			{DelaySeconds: 2.5, Members: []string{guest.Uid}},
		}
		prev, err := s.SetVideoMode(view.Sid, owner.Uid, types.VideoLayers, layers, nil)
		require.NoError(t, err)
		assert.Equal(t, types.VideoNormal, prev)
		assert.Equal(t, types.VideoLayers, s.rooms[view.Sid].VideoMode)
		assert.Equal(t, layers, s.rooms[view.Sid].Layers)
	})

	t.Run("a sequence referencing a non-member is rejected", func(t *testing.T) {
		_, err := s.SetVideoMode(view.Sid, owner.Uid, types.VideoSequence, nil, []string{owner.Uid, guest.Uid, "stranger"})
		assert.ErrorIs(t, err, ErrInvalidParams)
		assert.Equal(t, types.VideoLayers, s.rooms[view.Sid].VideoMode, "expected the mode to be unchanged")
	})

	t.Run("valid sequence replaces layers", func(t *testing.T) {
		prev, err := s.SetVideoMode(view.Sid, owner.Uid, types.VideoSequence, nil, []string{owner.Uid, guest.Uid})
		require.NoError(t, err)
		assert.Equal(t, types.VideoLayers, prev)
		assert.Equal(t, types.VideoSequence, s.rooms[view.Sid].VideoMode)
		assert.Nil(t, s.rooms[view.Sid].Layers, "expected the layer config to be cleared")
		assert.Equal(t, []string{owner.Uid, guest.Uid}, s.rooms[view.Sid].Sequence)
	})

	t.Run("off clears the mode config", func(t *testing.T) {
		prev, err := s.SetVideoMode(view.Sid, owner.Uid, types.VideoOff, nil, nil)
		require.NoError(t, err)
		assert.Equal(t, types.VideoSequence, prev)
		assert.Equal(t, types.VideoOff, s.rooms[view.Sid].VideoMode)
		assert.Nil(t, s.rooms[view.Sid].Sequence)
	})
}
