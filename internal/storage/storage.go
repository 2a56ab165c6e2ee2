// Package storage is the durable side of the relay: Postgres (via GORM)
// for users, threads, transcripts and referrals, Redis for the ephemeral
// session context and the transcript pub/sub feed. Each exported call is
// one atomic unit; callers must not assume read-your-writes across two
// calls and re-read where ordering matters.
package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"deskrelay/backend/internal/models"
)

// ErrNotFound is returned when a row does not exist. It is never used to
// paper over a storage failure: an unreachable database surfaces as a
// *StorageError, not as ErrNotFound.
var ErrNotFound = errors.New("storage: not found")

// ErrDuplicateActiveThread is returned by CreateThread when the partial
// unique index rejects a second active thread for the same user. The
// router treats it as "lost the race, re-read the winner".
var ErrDuplicateActiveThread = errors.New("storage: user already has an active thread")

// StorageError wraps a failed repository operation. Non-retryable for
// the current event.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// wrap translates GORM errors into the package's taxonomy.
func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrDuplicateActiveThread
	}
	return &StorageError{Op: op, Err: err}
}

// Storage is the repository contract the router, the relay engine and
// the admin surfaces depend on.
type Storage interface {
	UpsertUser(user *models.User) error

	CreateThread(thread *models.Thread) error
	DeleteThread(threadID uint) error
	GetThreadByID(threadID uint) (*models.Thread, error)
	GetActiveThreadByUser(userID int64) (*models.Thread, error)
	GetThreadByTopic(topicID int) (*models.Thread, error)
	SetThreadDestination(threadID uint, topicID, anchorMsgID int) error
	SetThreadService(threadID uint, service string) error
	ClaimFirstTag(threadID uint) (bool, error)
	CloseThread(threadID uint) error
	ListActiveThreads() ([]models.Thread, error)

	AppendMessage(msg *models.Message) error
	CountAgentMessages(threadID uint) (int64, error)
	GetThreadMessages(threadID uint, limit int) ([]models.Message, error)

	AddReferral(ref *models.ReferralEvent) error
	LinkReferralToThread(userID int64, threadID uint) error

	PublishTranscript(msg *models.Message) error
	SubscribeTranscript() *redis.PubSub

	Stats() (*models.Stats, error)
}

// Service implements Storage over GORM + Redis.
type Service struct {
	DB    *gorm.DB
	Redis *redis.Client
	Ctx   context.Context
	Log   *zap.Logger
}

// NewService constructs the storage service. The Redis client may be nil
// for surfaces that only read Postgres (the admin CLI).
func NewService(db *gorm.DB, rdb *redis.Client, log *zap.Logger) *Service {
	return &Service{
		DB:    db,
		Redis: rdb,
		Ctx:   context.Background(),
		Log:   log,
	}
}

// AutoMigrate creates the four durable tables, including the partial
// unique index backing one-active-thread-per-user.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.Thread{},
		&models.Message{},
		&models.ReferralEvent{},
	)
}
