package relay_test

import (
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"deskrelay/backend/internal/models"
	"deskrelay/backend/internal/storage"
)

// memStore is an in-memory storage.Storage used by the lifecycle and
// concurrency tests. It enforces the same one-active-thread-per-user
// constraint the partial unique index enforces in Postgres.
type memStore struct {
	mu        sync.Mutex
	users     map[int64]models.User
	threads   map[uint]*models.Thread
	messages  []models.Message
	referrals []*models.ReferralEvent
	nextID    uint
	published int
}

func newMemStore() *memStore {
	return &memStore{
		users:   make(map[int64]models.User),
		threads: make(map[uint]*models.Thread),
	}
}

func (s *memStore) UpsertUser(user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[user.ID] = *user
	return nil
}

func (s *memStore) CreateThread(thread *models.Thread) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.threads {
		if t.UserID == thread.UserID && t.Status == models.ThreadActive {
			return storage.ErrDuplicateActiveThread
		}
	}
	s.nextID++
	thread.ID = s.nextID
	thread.CreatedAt = time.Now()
	cp := *thread
	s.threads[thread.ID] = &cp
	return nil
}

func (s *memStore) DeleteThread(threadID uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.threads, threadID)
	return nil
}

func (s *memStore) GetThreadByID(threadID uint) (*models.Thread, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.threads[threadID]
	if !ok {
		return nil, storage.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (s *memStore) GetActiveThreadByUser(userID int64) (*models.Thread, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.threads {
		if t.UserID == userID && t.Status == models.ThreadActive {
			cp := *t
			return &cp, nil
		}
	}
	return nil, storage.ErrNotFound
}

func (s *memStore) GetThreadByTopic(topicID int) (*models.Thread, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.threads {
		if t.TopicID != nil && *t.TopicID == topicID {
			cp := *t
			return &cp, nil
		}
	}
	return nil, storage.ErrNotFound
}

func (s *memStore) SetThreadDestination(threadID uint, topicID, anchorMsgID int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.threads[threadID]
	if !ok {
		return storage.ErrNotFound
	}
	t.TopicID = &topicID
	t.AnchorMsgID = &anchorMsgID
	return nil
}

func (s *memStore) SetThreadService(threadID uint, service string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.threads[threadID]
	if !ok {
		return storage.ErrNotFound
	}
	if t.Service == "" {
		t.Service = service
	}
	return nil
}

func (s *memStore) ClaimFirstTag(threadID uint) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.threads[threadID]
	if !ok {
		return false, storage.ErrNotFound
	}
	if t.FirstTagged {
		return false, nil
	}
	t.FirstTagged = true
	return true, nil
}

func (s *memStore) CloseThread(threadID uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.threads[threadID]
	if !ok {
		return storage.ErrNotFound
	}
	if t.Status == models.ThreadActive {
		t.Status = models.ThreadClosed
	}
	return nil
}

func (s *memStore) ListActiveThreads() ([]models.Thread, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Thread
	for _, t := range s.threads {
		if t.Status == models.ThreadActive {
			out = append(out, *t)
		}
	}
	return out, nil
}

func (s *memStore) AppendMessage(msg *models.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	msg.ID = uint(len(s.messages) + 1)
	msg.CreatedAt = time.Now()
	s.messages = append(s.messages, *msg)
	return nil
}

func (s *memStore) CountAgentMessages(threadID uint) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, m := range s.messages {
		if m.ThreadID == threadID && m.Direction == models.DirectionAgentToUser {
			n++
		}
	}
	return n, nil
}

func (s *memStore) GetThreadMessages(threadID uint, limit int) ([]models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Message
	for _, m := range s.messages {
		if m.ThreadID == threadID {
			out = append(out, m)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

func (s *memStore) AddReferral(ref *models.ReferralEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *ref
	s.referrals = append(s.referrals, &cp)
	return nil
}

func (s *memStore) LinkReferralToThread(userID int64, threadID uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.referrals) - 1; i >= 0; i-- {
		r := s.referrals[i]
		if r.UserID == userID && r.LinkedThreadID == nil {
			r.LinkedThreadID = &threadID
			r.CreatedThread = true
			return nil
		}
	}
	return nil
}

func (s *memStore) PublishTranscript(msg *models.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.published++
	return nil
}

func (s *memStore) SubscribeTranscript() *redis.PubSub { return nil }

func (s *memStore) Stats() (*models.Stats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := &models.Stats{
		Users:     int64(len(s.users)),
		Messages:  int64(len(s.messages)),
		Referrals: int64(len(s.referrals)),
	}
	for _, t := range s.threads {
		if t.Status == models.ThreadActive {
			st.ActiveThreads++
		} else {
			st.ClosedThreads++
		}
	}
	return st, nil
}

func (s *memStore) threadCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.threads)
}

// memSessions is an in-memory storage.Sessions.
type memSessions struct {
	mu      sync.Mutex
	pending map[int64]models.ServiceSelection
}

func newMemSessions() *memSessions {
	return &memSessions{pending: make(map[int64]models.ServiceSelection)}
}

func (s *memSessions) SetPendingService(userID int64, sel models.ServiceSelection) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending[userID] = sel
	return nil
}

func (s *memSessions) PendingService(userID int64) (*models.ServiceSelection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sel, ok := s.pending[userID]
	if !ok {
		return nil, nil
	}
	return &sel, nil
}

func (s *memSessions) ClearPendingService(userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.pending, userID)
	return nil
}

// fakeWorkspace is a relay.Workspace with switchable failure modes and
// call recording.
type fakeWorkspace struct {
	mu          sync.Mutex
	failTopics  bool
	failAnchors bool
	failPosts   bool
	nextMsgID   int
	nextTopicID int
	topicNames  map[int]string
	posts       []string
	notices     []string
	renames     int
	closed      []int
}

func newFakeWorkspace() *fakeWorkspace {
	return &fakeWorkspace{nextTopicID: 1000, topicNames: make(map[int]string)}
}

func (w *fakeWorkspace) CreateSubchannel(name string) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.failTopics {
		return 0, errors.New("forum topics unavailable")
	}
	w.nextTopicID++
	w.topicNames[w.nextTopicID] = name
	return w.nextTopicID, nil
}

func (w *fakeWorkspace) PostAnchor(text string) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.failAnchors {
		return 0, errors.New("general feed unavailable")
	}
	w.nextMsgID++
	w.posts = append(w.posts, text)
	return w.nextMsgID, nil
}

func (w *fakeWorkspace) PostText(topicID int, text string) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.failPosts {
		return 0, errors.New("post failed")
	}
	w.nextMsgID++
	w.posts = append(w.posts, text)
	return w.nextMsgID, nil
}

func (w *fakeWorkspace) PostMedia(topicID int, kind, assetID, caption string) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.failPosts {
		return 0, errors.New("post failed")
	}
	w.nextMsgID++
	w.posts = append(w.posts, caption)
	return w.nextMsgID, nil
}

func (w *fakeWorkspace) RenameSubchannel(topicID int, name string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.renames++
	w.topicNames[topicID] = name
	return nil
}

func (w *fakeWorkspace) PostNotice(topicID int, text string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.notices = append(w.notices, text)
	return nil
}

func (w *fakeWorkspace) CloseSubchannel(topicID int) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closed = append(w.closed, topicID)
	return nil
}

func (w *fakeWorkspace) lastPost() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.posts) == 0 {
		return ""
	}
	return w.posts[len(w.posts)-1]
}

// fakeUserGateway is a relay.UserGateway with call recording.
type fakeUserGateway struct {
	mu        sync.Mutex
	failSends bool
	nextMsgID int
	sent      []string
	notified  int
}

func (g *fakeUserGateway) SendText(userID int64, text string) (int, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.failSends {
		return 0, errors.New("user unreachable")
	}
	g.nextMsgID++
	g.sent = append(g.sent, text)
	return g.nextMsgID, nil
}

func (g *fakeUserGateway) SendMedia(userID int64, kind, assetID, caption string) (int, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.failSends {
		return 0, errors.New("user unreachable")
	}
	g.nextMsgID++
	g.sent = append(g.sent, caption)
	return g.nextMsgID, nil
}

func (g *fakeUserGateway) NotifyClosed(userID int64) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.notified++
	return nil
}
