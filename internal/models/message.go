package models

import "gorm.io/gorm"

// Message directions.
const (
	DirectionUserToAgent = "user_to_agent"
	DirectionAgentToUser = "agent_to_user"
)

// Message payload kinds.
const (
	KindText     = "text"
	KindPhoto    = "photo"
	KindDocument = "document"
	KindVideo    = "video"
	KindAudio    = "audio"
	KindOther    = "other"
)

// Message is an immutable transcript record of one relayed message.
// The embedded gorm.Model provides ID (primary key), CreatedAt (the
// sent timestamp) and friends. Rows are append-only: never mutated,
// never deleted.
type Message struct {
	gorm.Model

	// ThreadID is the owning thread.
	ThreadID uint `gorm:"not null;index:idx_thread_msg"`
	// UserID is the owning end-user.
	UserID int64 `gorm:"not null;index"`
	// Direction is DirectionUserToAgent or DirectionAgentToUser.
	Direction string `gorm:"type:text;not null;index:idx_thread_msg"`
	// Kind is the payload kind (text, photo, document, video, audio, other).
	Kind string `gorm:"type:text;not null"`
	// Text is the message text or media caption.
	Text string `gorm:"type:text"`
	// AssetID is the opaque transport file handle for media kinds.
	AssetID string `gorm:"type:text"`
	// SrcMsgID is the transport message id on the sending side.
	SrcMsgID *int
	// DestMsgID is the transport message id on the receiving side.
	DestMsgID *int
}

// TranscriptEvent is the JSON payload published for every relayed
// message, consumed by the admin live feed.
type TranscriptEvent struct {
	MessageID uint   `json:"message_id"`
	ThreadID  uint   `json:"thread_id"`
	UserID    int64  `json:"user_id"`
	Direction string `json:"direction"`
	Kind      string `json:"kind"`
	Text      string `json:"text"`
	SentAt    int64  `json:"sent_at"`
}

// Event converts a persisted message into its feed payload.
func (m *Message) Event() TranscriptEvent {
	return TranscriptEvent{
		MessageID: m.ID,
		ThreadID:  m.ThreadID,
		UserID:    m.UserID,
		Direction: m.Direction,
		Kind:      m.Kind,
		Text:      m.Text,
		SentAt:    m.CreatedAt.Unix(),
	}
}
