package models

import "time"

// User represents an end-user contacting the desk over Telegram.
// The primary key is the numeric Telegram ID, assigned by the transport
// and stable for the lifetime of the account. Rows are upserted on every
// inbound event with last-write-wins semantics on the name fields and
// are never deleted.
type User struct {
	// ID is the Telegram user ID.
	ID int64 `gorm:"primaryKey" json:"id"`
	// FirstName and LastName mirror the Telegram profile at last contact.
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	// Username is the @handle, may be empty.
	Username string `json:"username"`
	// CreatedAt is the first-seen timestamp.
	CreatedAt time.Time `json:"created_at"`
}

// DisplayName returns the best human-readable label for the user.
func (u *User) DisplayName() string {
	name := u.FirstName
	if u.LastName != "" {
		if name != "" {
			name += " "
		}
		name += u.LastName
	}
	if name == "" && u.Username != "" {
		name = "@" + u.Username
	}
	return name
}
