package relay

import (
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"deskrelay/backend/internal/models"
	"deskrelay/backend/internal/storage"
)

// Router owns thread resolution: mapping an inbound user event to an
// existing-or-new thread and an inbound agent post to its owning thread.
// Creation is two-step (reserve the row, then create the topic), so the
// whole lookup-and-create section runs under a per-user lock; the
// storage layer's unique active index backs the invariant when more than
// one process is involved.
type Router struct {
	store    storage.Storage
	sessions storage.Sessions
	ws       Workspace
	users    UserGateway
	log      *zap.Logger

	mu    sync.Mutex
	locks map[int64]*sync.Mutex
}

func NewRouter(store storage.Storage, sessions storage.Sessions, ws Workspace, users UserGateway, log *zap.Logger) *Router {
	return &Router{
		store:    store,
		sessions: sessions,
		ws:       ws,
		users:    users,
		log:      log,
		locks:    make(map[int64]*sync.Mutex),
	}
}

// userLock returns the mutex serializing thread resolution for one user.
// Locks are never evicted; one mutex per user ever seen is cheap at the
// traffic this desk targets.
func (r *Router) userLock(userID int64) *sync.Mutex {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.locks[userID]
	if !ok {
		l = &sync.Mutex{}
		r.locks[userID] = l
	}
	return l
}

// ResolveUserThread returns the user's active thread, creating one when
// none exists. The returned thread is always fully routed (topic and
// anchor set). Concurrent first messages from the same user converge on
// a single thread.
func (r *Router) ResolveUserThread(user *models.User) (*models.Thread, error) {
	l := r.userLock(user.ID)
	l.Lock()
	defer l.Unlock()

	if err := r.store.UpsertUser(user); err != nil {
		return nil, err
	}

	thread, err := r.store.GetActiveThreadByUser(user.ID)
	switch {
	case err == nil:
		if !thread.Routed() {
			// An earlier creation died between reserving the row and
			// recording a destination. Finish the job now.
			thread, err = r.setupDestination(user, thread)
			if err != nil {
				return nil, err
			}
		}
		return r.attachPendingService(user, thread), nil
	case errors.Is(err, storage.ErrNotFound):
		// fall through to creation
	default:
		return nil, err
	}

	sel := r.pendingService(user.ID)
	thread = &models.Thread{UserID: user.ID, Status: models.ThreadActive}
	if sel != nil {
		thread.Service = sel.Name
	}
	if err := r.store.CreateThread(thread); err != nil {
		if errors.Is(err, storage.ErrDuplicateActiveThread) {
			// Another process won the race; use its thread.
			return r.store.GetActiveThreadByUser(user.ID)
		}
		return nil, err
	}

	thread, err = r.setupDestination(user, thread)
	if err != nil {
		return nil, err
	}
	if sel != nil {
		if err := r.store.LinkReferralToThread(user.ID, thread.ID); err != nil {
			r.log.Warn("failed to link referral to thread",
				zap.Int64("user_id", user.ID), zap.Uint("thread_id", thread.ID), zap.Error(err))
		}
	}
	return thread, nil
}

// setupDestination runs the external half of thread creation: forum
// topic plus attribution banner, falling back to a plain anchor post in
// the general feed when topics are unavailable. A total failure deletes
// the reserved row so no orphan survives.
func (r *Router) setupDestination(user *models.User, thread *models.Thread) (*models.Thread, error) {
	banner := attributionBanner(user, thread.Service)

	topicID, err := r.ws.CreateSubchannel(topicTitle(user, thread.Service))
	var anchorID int
	if err != nil {
		r.log.Warn("topic creation failed, falling back to anchor post",
			zap.Int64("user_id", user.ID), zap.Error(err))
		anchorID, err = r.ws.PostAnchor(banner)
		if err != nil {
			r.cleanupReserved(thread.ID)
			return nil, transportErr("create destination", err)
		}
		topicID = anchorID
	} else {
		anchorID, err = r.ws.PostText(topicID, banner)
		if err != nil {
			if cerr := r.ws.CloseSubchannel(topicID); cerr != nil {
				r.log.Warn("failed to close orphaned topic", zap.Int("topic_id", topicID), zap.Error(cerr))
			}
			r.cleanupReserved(thread.ID)
			return nil, transportErr("post anchor", err)
		}
	}

	if err := r.store.SetThreadDestination(thread.ID, topicID, anchorID); err != nil {
		return nil, err
	}
	// Re-read so the caller observes the fully-populated row.
	return r.store.GetThreadByID(thread.ID)
}

func (r *Router) cleanupReserved(threadID uint) {
	if err := r.store.DeleteThread(threadID); err != nil {
		r.log.Error("failed to delete reserved thread row", zap.Uint("thread_id", threadID), zap.Error(err))
	}
}

// attachPendingService lets a session selection reach a thread that was
// created before the user picked a service. The tag itself is set
// durably; the rename and the topic notice are cosmetic.
func (r *Router) attachPendingService(user *models.User, thread *models.Thread) *models.Thread {
	if thread.Service != "" {
		return thread
	}
	sel := r.pendingService(user.ID)
	if sel == nil {
		return thread
	}
	if err := r.store.SetThreadService(thread.ID, sel.Name); err != nil {
		r.log.Warn("failed to set thread service", zap.Uint("thread_id", thread.ID), zap.Error(err))
		return thread
	}
	thread.Service = sel.Name

	if err := r.ws.RenameSubchannel(*thread.TopicID, topicTitle(user, sel.Name)); err != nil {
		r.log.Warn("topic rename failed", zap.Int("topic_id", *thread.TopicID), zap.Error(err))
	}
	if err := r.ws.PostNotice(*thread.TopicID, fmt.Sprintf("%s Service selected: %s", ServiceTagPrefix, sel.Name)); err != nil {
		r.log.Warn("service notice failed", zap.Int("topic_id", *thread.TopicID), zap.Error(err))
	}
	if err := r.store.LinkReferralToThread(user.ID, thread.ID); err != nil {
		r.log.Warn("failed to link referral to thread", zap.Uint("thread_id", thread.ID), zap.Error(err))
	}
	return thread
}

// pendingService reads the session context. An unreachable session store
// degrades to "no selection": a relay must not fail over a cosmetic tag.
func (r *Router) pendingService(userID int64) *models.ServiceSelection {
	sel, err := r.sessions.PendingService(userID)
	if err != nil {
		r.log.Warn("session store unavailable", zap.Int64("user_id", userID), zap.Error(err))
		return nil
	}
	return sel
}

// ResolveAgentMessage maps an agent post to its owning thread, or to
// (nil, nil) when the post is not part of any tracked conversation:
// unknown topic, closed thread, or the bot's own banner/status chatter.
func (r *Router) ResolveAgentMessage(topicID int, text string) (*models.Thread, error) {
	if IsNoise(text) {
		return nil, nil
	}
	thread, err := r.store.GetThreadByTopic(topicID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if !thread.Active() {
		return nil, nil
	}
	return thread, nil
}

// RecordReferral appends a referral event and parks the selection in the
// session context for the next-created thread.
func (r *Router) RecordReferral(user *models.User, sel models.ServiceSelection) error {
	if err := r.store.UpsertUser(user); err != nil {
		return err
	}
	ref := &models.ReferralEvent{
		UserID:      user.ID,
		ServiceCode: sel.Code,
		ServiceName: sel.Name,
		ClickedAt:   sel.ClickedAt,
	}
	if err := r.store.AddReferral(ref); err != nil {
		return err
	}
	return r.sessions.SetPendingService(user.ID, sel)
}

// Close transitions a thread to closed. Idempotent: closing a closed
// thread is a silent no-op. Topic close and user notification are
// fire-and-forget.
func (r *Router) Close(threadID uint) error {
	thread, err := r.store.GetThreadByID(threadID)
	if err != nil {
		return err
	}
	if !thread.Active() {
		return nil
	}
	if err := r.store.CloseThread(threadID); err != nil {
		return err
	}
	if thread.TopicID != nil {
		if err := r.ws.CloseSubchannel(*thread.TopicID); err != nil {
			r.log.Warn("topic close failed", zap.Int("topic_id", *thread.TopicID), zap.Error(err))
		}
	}
	if err := r.users.NotifyClosed(thread.UserID); err != nil {
		r.log.Warn("close notification failed", zap.Int64("user_id", thread.UserID), zap.Error(err))
	}
	return nil
}
