package relay_test

import "github.com/stretchr/testify/mock"

type MockWorkspace struct {
	mock.Mock
}

func (m *MockWorkspace) CreateSubchannel(name string) (int, error) {
	args := m.Called(name)
	return args.Int(0), args.Error(1)
}

func (m *MockWorkspace) PostAnchor(text string) (int, error) {
	args := m.Called(text)
	return args.Int(0), args.Error(1)
}

func (m *MockWorkspace) PostText(topicID int, text string) (int, error) {
	args := m.Called(topicID, text)
	return args.Int(0), args.Error(1)
}

func (m *MockWorkspace) PostMedia(topicID int, kind, assetID, caption string) (int, error) {
	args := m.Called(topicID, kind, assetID, caption)
	return args.Int(0), args.Error(1)
}

func (m *MockWorkspace) RenameSubchannel(topicID int, name string) error {
	args := m.Called(topicID, name)
	return args.Error(0)
}

func (m *MockWorkspace) PostNotice(topicID int, text string) error {
	args := m.Called(topicID, text)
	return args.Error(0)
}

func (m *MockWorkspace) CloseSubchannel(topicID int) error {
	args := m.Called(topicID)
	return args.Error(0)
}

type MockUserGateway struct {
	mock.Mock
}

func (m *MockUserGateway) SendText(userID int64, text string) (int, error) {
	args := m.Called(userID, text)
	return args.Int(0), args.Error(1)
}

func (m *MockUserGateway) SendMedia(userID int64, kind, assetID, caption string) (int, error) {
	args := m.Called(userID, kind, assetID, caption)
	return args.Int(0), args.Error(1)
}

func (m *MockUserGateway) NotifyClosed(userID int64) error {
	args := m.Called(userID)
	return args.Error(0)
}
