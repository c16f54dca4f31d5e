package server

import (
	"github.com/asaphhq/asaph/internal/types"
	"github.com/stretchr/testify/mock"
)

type MockSessionStore struct {
	mock.Mock
}

func (m *MockSessionStore) VerifyMembership(id, token string) (types.Account, types.Room, error) {
	args := m.Called(id, token)
	return args.Get(0).(types.Account), args.Get(1).(types.Room), args.Error(2)
}

func (m *MockSessionStore) SetVideoMode(roomId, accountId string, mode types.VideoMode, layers []types.Layer, sequence []string) (types.VideoMode, error) {
	args := m.Called(roomId, accountId, mode, layers, sequence)
	return args.Get(0).(types.VideoMode), args.Error(1)
}
