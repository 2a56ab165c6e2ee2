package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ReferralEvent records a user arriving via a service-specific deep
// link (/start svc_<code>). Append-only; LinkedThreadID is set once,
// when the referral produces a thread.
type ReferralEvent struct {
	// ID is a UUID, generated by the BeforeCreate hook.
	ID string `gorm:"primaryKey" json:"id"`
	// UserID is the clicking user.
	UserID int64 `gorm:"not null;index" json:"user_id"`
	// ServiceCode is the code carried by the link.
	ServiceCode string `gorm:"type:text;not null" json:"service_code"`
	// ServiceName is the display name the code mapped to at click time.
	ServiceName string `gorm:"type:text;not null" json:"service_name"`
	// ClickedAt is the click timestamp.
	ClickedAt time.Time `json:"clicked_at"`
	// CreatedThread flips to true when a thread is linked.
	CreatedThread bool `json:"created_thread"`
	// LinkedThreadID is the thread this referral seeded, if any.
	LinkedThreadID *uint `json:"linked_thread_id"`
}

// BeforeCreate is a GORM hook that assigns a fresh UUID if the ID is
// still empty.
func (r *ReferralEvent) BeforeCreate(tx *gorm.DB) (err error) {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	return
}

// ServiceSelection is the ephemeral per-user session value: a pending
// service choice waiting to be attached to the next thread. Lives in
// the session store, never in Postgres.
type ServiceSelection struct {
	Code      string    `json:"code"`
	Name      string    `json:"name"`
	ClickedAt time.Time `json:"clicked_at"`
}

// Stats is the aggregate snapshot served by the admin console.
type Stats struct {
	Users         int64 `json:"users"`
	ActiveThreads int64 `json:"active_threads"`
	ClosedThreads int64 `json:"closed_threads"`
	Messages      int64 `json:"messages"`
	Referrals     int64 `json:"referrals"`
}
