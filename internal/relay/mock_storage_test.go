package relay_test

import (
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/mock"

	"deskrelay/backend/internal/models"
)

type MockStorage struct {
	mock.Mock
}

func (m *MockStorage) UpsertUser(user *models.User) error {
	args := m.Called(user)
	return args.Error(0)
}

func (m *MockStorage) CreateThread(thread *models.Thread) error {
	args := m.Called(thread)
	return args.Error(0)
}

func (m *MockStorage) DeleteThread(threadID uint) error {
	args := m.Called(threadID)
	return args.Error(0)
}

func (m *MockStorage) GetThreadByID(threadID uint) (*models.Thread, error) {
	args := m.Called(threadID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Thread), args.Error(1)
}

func (m *MockStorage) GetActiveThreadByUser(userID int64) (*models.Thread, error) {
	args := m.Called(userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Thread), args.Error(1)
}

func (m *MockStorage) GetThreadByTopic(topicID int) (*models.Thread, error) {
	args := m.Called(topicID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Thread), args.Error(1)
}

func (m *MockStorage) SetThreadDestination(threadID uint, topicID, anchorMsgID int) error {
	args := m.Called(threadID, topicID, anchorMsgID)
	return args.Error(0)
}

func (m *MockStorage) SetThreadService(threadID uint, service string) error {
	args := m.Called(threadID, service)
	return args.Error(0)
}

func (m *MockStorage) ClaimFirstTag(threadID uint) (bool, error) {
	args := m.Called(threadID)
	return args.Bool(0), args.Error(1)
}

func (m *MockStorage) CloseThread(threadID uint) error {
	args := m.Called(threadID)
	return args.Error(0)
}

func (m *MockStorage) ListActiveThreads() ([]models.Thread, error) {
	args := m.Called()
	return args.Get(0).([]models.Thread), args.Error(1)
}

func (m *MockStorage) AppendMessage(msg *models.Message) error {
	args := m.Called(msg)
	return args.Error(0)
}

func (m *MockStorage) CountAgentMessages(threadID uint) (int64, error) {
	args := m.Called(threadID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockStorage) GetThreadMessages(threadID uint, limit int) ([]models.Message, error) {
	args := m.Called(threadID, limit)
	return args.Get(0).([]models.Message), args.Error(1)
}

func (m *MockStorage) AddReferral(ref *models.ReferralEvent) error {
	args := m.Called(ref)
	return args.Error(0)
}

func (m *MockStorage) LinkReferralToThread(userID int64, threadID uint) error {
	args := m.Called(userID, threadID)
	return args.Error(0)
}

func (m *MockStorage) PublishTranscript(msg *models.Message) error {
	args := m.Called(msg)
	return args.Error(0)
}

func (m *MockStorage) SubscribeTranscript() *redis.PubSub {
	args := m.Called()
	return args.Get(0).(*redis.PubSub)
}

func (m *MockStorage) Stats() (*models.Stats, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Stats), args.Error(1)
}

type MockSessions struct {
	mock.Mock
}

func (m *MockSessions) SetPendingService(userID int64, sel models.ServiceSelection) error {
	args := m.Called(userID, sel)
	return args.Error(0)
}

func (m *MockSessions) PendingService(userID int64) (*models.ServiceSelection, error) {
	args := m.Called(userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ServiceSelection), args.Error(1)
}

func (m *MockSessions) ClearPendingService(userID int64) error {
	args := m.Called(userID)
	return args.Error(0)
}
