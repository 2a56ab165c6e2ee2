package models

import "time"

// Thread status values. A thread only ever moves active -> closed.
const (
	ThreadActive = "active"
	ThreadClosed = "closed"
)

// Thread is the unit of conversation: one per user at a time, mapped to
// a forum topic in the agent group. TopicID stays nil between reserving
// the row and creating the topic; a row with a nil TopicID is a creation
// in flight (or an interrupted one, which the router finishes on the
// next inbound message).
//
// The partial unique index on UserID backs the one-active-thread-per-user
// invariant at the storage layer; the router's per-user lock is the
// primary guard.
type Thread struct {
	// ID is the thread id, assigned by the database on creation.
	ID uint `gorm:"primaryKey" json:"id"`
	// UserID is the owning end-user.
	UserID int64 `gorm:"not null;index;uniqueIndex:uniq_active_thread_per_user,where:status = 'active'" json:"user_id"`
	// TopicID is the forum topic the thread maps to. In degraded mode
	// (topic creation failed) it holds the anchor message id instead.
	TopicID *int `json:"topic_id"`
	// AnchorMsgID is the attribution banner message inside the topic.
	AnchorMsgID *int `json:"anchor_msg_id"`
	// Service is the selected service display name; set at most once,
	// from empty to a value.
	Service string `json:"service"`
	// FirstTagged flips to true when the first service-tagged message
	// has been relayed. Monotonic.
	FirstTagged bool `json:"first_tagged"`
	// Status is ThreadActive or ThreadClosed.
	Status string `gorm:"type:text;not null;default:'active';index" json:"status"`
	// CreatedAt is set by GORM on insert.
	CreatedAt time.Time `json:"created_at"`
}

// Routed reports whether the thread has a destination to relay into.
func (t *Thread) Routed() bool {
	return t.TopicID != nil
}

// Active reports whether the thread still accepts traffic.
func (t *Thread) Active() bool {
	return t.Status == ThreadActive
}

// WantsTag reports whether the next user message should carry the
// one-time service tag.
func (t *Thread) WantsTag() bool {
	return t.Service != "" && !t.FirstTagged
}
