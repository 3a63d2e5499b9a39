package papershelf

import (
	"fmt"
)

// Session is the authenticated identity held by the client. It is the user
// record returned by the backend on login or registration.
type Session struct {
	UserID       int    `json:"id"`
	Username     string `json:"username"`
	Email        string `json:"email"`
	Affiliation  string `json:"affiliation,omitempty"`
	FieldOfStudy string `json:"field_of_study,omitempty"`
	CreatedAt    string `json:"created_at,omitempty"`
}

func (s Session) Valid() bool {
	return s.UserID > 0 && s.Username != ""
}

func (s Session) DisplayName() string {
	if s.Affiliation == "" {
		return s.Username
	}
	return fmt.Sprintf("%s (%s)", s.Username, s.Affiliation)
}

// SessionStore persists the serialized session record. Implementations must
// make Save and Delete atomic: either the whole record is written or the
// previous one is kept.
type SessionStore interface {
	// Load returns nil, nil when no record exists.
	Load() ([]byte, error)
	Save([]byte) error
	Delete() error
}
