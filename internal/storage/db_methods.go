package storage

import (
	"gorm.io/gorm/clause"

	"deskrelay/backend/internal/models"
)

// UpsertUser inserts the user or refreshes the name fields in place.
// Last write wins; the first-seen timestamp is kept from the original
// insert.
func (s *Service) UpsertUser(user *models.User) error {
	err := s.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"first_name", "last_name", "username"}),
	}).Create(user).Error
	return wrap("upsert user", err)
}

// CreateThread reserves a thread row and fills in the generated id.
// If the user already holds an active thread the partial unique index
// rejects the insert and ErrDuplicateActiveThread is returned.
func (s *Service) CreateThread(thread *models.Thread) error {
	if thread.Status == "" {
		thread.Status = models.ThreadActive
	}
	return wrap("create thread", s.DB.Create(thread).Error)
}

// DeleteThread removes a reserved row after a total creation failure.
// Only ever called for rows that never got a destination.
func (s *Service) DeleteThread(threadID uint) error {
	return wrap("delete thread", s.DB.Delete(&models.Thread{}, threadID).Error)
}

func (s *Service) GetThreadByID(threadID uint) (*models.Thread, error) {
	var thread models.Thread
	if err := s.DB.First(&thread, threadID).Error; err != nil {
		return nil, wrap("get thread", err)
	}
	return &thread, nil
}

// GetActiveThreadByUser returns the user's single active thread, or
// ErrNotFound when there is none.
func (s *Service) GetActiveThreadByUser(userID int64) (*models.Thread, error) {
	var thread models.Thread
	err := s.DB.Where("user_id = ? AND status = ?", userID, models.ThreadActive).
		First(&thread).Error
	if err != nil {
		return nil, wrap("get active thread", err)
	}
	return &thread, nil
}

// GetThreadByTopic resolves a thread by its destination topic id,
// regardless of status. The caller decides what a closed thread means.
func (s *Service) GetThreadByTopic(topicID int) (*models.Thread, error) {
	var thread models.Thread
	if err := s.DB.Where("topic_id = ?", topicID).First(&thread).Error; err != nil {
		return nil, wrap("get thread by topic", err)
	}
	return &thread, nil
}

// SetThreadDestination records the topic and anchor message ids once the
// external side of creation has succeeded.
func (s *Service) SetThreadDestination(threadID uint, topicID, anchorMsgID int) error {
	err := s.DB.Model(&models.Thread{}).
		Where("id = ?", threadID).
		Updates(map[string]interface{}{
			"topic_id":      topicID,
			"anchor_msg_id": anchorMsgID,
		}).Error
	return wrap("set thread destination", err)
}

// SetThreadService sets the service tag. Guarded to the empty->value
// transition so a later selection can never overwrite an earlier one.
func (s *Service) SetThreadService(threadID uint, service string) error {
	err := s.DB.Model(&models.Thread{}).
		Where("id = ? AND (service = '' OR service IS NULL)", threadID).
		Update("service", service).Error
	return wrap("set thread service", err)
}

// ClaimFirstTag flips the first-tagged flag and reports whether this
// call won the flip. The guarded update is the arbiter when two relays
// race on the same thread: exactly one caller sees true.
func (s *Service) ClaimFirstTag(threadID uint) (bool, error) {
	res := s.DB.Model(&models.Thread{}).
		Where("id = ? AND first_tagged = ?", threadID, false).
		Update("first_tagged", true)
	if res.Error != nil {
		return false, wrap("claim first tag", res.Error)
	}
	return res.RowsAffected > 0, nil
}

// CloseThread moves the thread to closed. Closing an already-closed
// thread matches zero rows and is a no-op.
func (s *Service) CloseThread(threadID uint) error {
	err := s.DB.Model(&models.Thread{}).
		Where("id = ? AND status = ?", threadID, models.ThreadActive).
		Update("status", models.ThreadClosed).Error
	return wrap("close thread", err)
}

// ListActiveThreads returns active threads, newest first.
func (s *Service) ListActiveThreads() ([]models.Thread, error) {
	var threads []models.Thread
	err := s.DB.Where("status = ?", models.ThreadActive).
		Order("created_at DESC").
		Find(&threads).Error
	if err != nil {
		return nil, wrap("list active threads", err)
	}
	return threads, nil
}

// AppendMessage writes one transcript row. ID and CreatedAt are filled
// in by GORM.
func (s *Service) AppendMessage(msg *models.Message) error {
	return wrap("append message", s.DB.Create(msg).Error)
}

// CountAgentMessages counts prior agent_to_user rows in the thread,
// which drives the one-time banner on the agent side.
func (s *Service) CountAgentMessages(threadID uint) (int64, error) {
	var count int64
	err := s.DB.Model(&models.Message{}).
		Where("thread_id = ? AND direction = ?", threadID, models.DirectionAgentToUser).
		Count(&count).Error
	if err != nil {
		return 0, wrap("count agent messages", err)
	}
	return count, nil
}

// GetThreadMessages returns the last limit transcript rows of a thread
// in chronological order.
func (s *Service) GetThreadMessages(threadID uint, limit int) ([]models.Message, error) {
	var msgs []models.Message
	err := s.DB.Where("thread_id = ?", threadID).
		Order("created_at DESC").
		Limit(limit).
		Find(&msgs).Error
	if err != nil {
		return nil, wrap("get thread messages", err)
	}
	// Reverse into chronological order.
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, nil
}

// AddReferral appends a referral click event.
func (s *Service) AddReferral(ref *models.ReferralEvent) error {
	return wrap("add referral", s.DB.Create(ref).Error)
}

// LinkReferralToThread marks the user's most recent unlinked referral as
// having produced the given thread. Nothing to link is not an error.
func (s *Service) LinkReferralToThread(userID int64, threadID uint) error {
	var ref models.ReferralEvent
	err := s.DB.Where("user_id = ? AND created_thread = ?", userID, false).
		Order("clicked_at DESC").
		First(&ref).Error
	if err != nil {
		linkErr := wrap("link referral", err)
		if linkErr == ErrNotFound {
			return nil
		}
		return linkErr
	}
	err = s.DB.Model(&models.ReferralEvent{}).
		Where("id = ?", ref.ID).
		Updates(map[string]interface{}{
			"created_thread":   true,
			"linked_thread_id": threadID,
		}).Error
	return wrap("link referral", err)
}

// Stats returns the aggregate counters for the admin surfaces.
func (s *Service) Stats() (*models.Stats, error) {
	var st models.Stats
	if err := s.DB.Model(&models.User{}).Count(&st.Users).Error; err != nil {
		return nil, wrap("stats", err)
	}
	if err := s.DB.Model(&models.Thread{}).Where("status = ?", models.ThreadActive).Count(&st.ActiveThreads).Error; err != nil {
		return nil, wrap("stats", err)
	}
	if err := s.DB.Model(&models.Thread{}).Where("status = ?", models.ThreadClosed).Count(&st.ClosedThreads).Error; err != nil {
		return nil, wrap("stats", err)
	}
	if err := s.DB.Model(&models.Message{}).Count(&st.Messages).Error; err != nil {
		return nil, wrap("stats", err)
	}
	if err := s.DB.Model(&models.ReferralEvent{}).Count(&st.Referrals).Error; err != nil {
		return nil, wrap("stats", err)
	}
	return &st, nil
}
