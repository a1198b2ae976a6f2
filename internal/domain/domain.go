// Package domain defines the core records of the Franklink account backend:
// users and their profiles, the relationship rows the connection graph is
// built from, and the graph itself.
package domain

import (
	"errors"
	"time"
)

// ErrNotAuthenticated is returned when no signed-in user can be resolved.
// It is fatal to a graph load; callers must not render a partial graph.
var ErrNotAuthenticated = errors.New("no authenticated user")

// ConnectionStatusGroupCreated marks a connection request that has been
// finalized into a chat between the two users.
const ConnectionStatusGroupCreated = "group_created"

// User is the minimal identity used for labelling graph nodes.
type User struct {
	ID          string
	DisplayName string
	PhoneNumber string
}

// Label returns the display label for a user: name, then formatted phone,
// then "Unknown".
func (u User) Label() string {
	if u.DisplayName != "" {
		return u.DisplayName
	}
	if phone := FormatPhoneDisplay(u.PhoneNumber); phone != "" {
		return phone
	}
	return "Unknown"
}

// Profile is the signed-in user's row in the users table.
type Profile struct {
	ID             string `json:"id"`
	Name           string `json:"name,omitempty"`
	PhoneNumber    string `json:"phoneNumber,omitempty"`
	University     string `json:"university,omitempty"`
	AvatarURL      string `json:"avatarUrl,omitempty"`
	GraduationYear *int   `json:"graduationYear"`
	Initials       string `json:"initials"`
	AvatarColor    string `json:"avatarColor"`
}

// SelfLabel is the label used for the centre node of the graph.
func (p *Profile) SelfLabel() string {
	if p == nil {
		return "You"
	}
	if p.Name != "" {
		return p.Name
	}
	if phone := FormatPhoneDisplay(p.PhoneNumber); phone != "" {
		return phone
	}
	return "You"
}

// Decorate fills the derived avatar fields.
func (p *Profile) Decorate() *Profile {
	p.Initials = Initials(p.Name)
	p.AvatarColor = AvatarColor(p.ID)
	return p
}

// ConnectionRequest is a row of the connection_requests table.
type ConnectionRequest struct {
	InitiatorUserID string
	TargetUserID    string
	Status          string
}

// Other returns the party that is not selfID, or "" for self-loops and
// rows that do not involve selfID.
func (r ConnectionRequest) Other(selfID string) string {
	var other string
	switch selfID {
	case r.InitiatorUserID:
		other = r.TargetUserID
	case r.TargetUserID:
		other = r.InitiatorUserID
	default:
		return ""
	}
	if other == selfID {
		return ""
	}
	return other
}

// Chat is a row of the group_chats table.
type Chat struct {
	ChatID      string
	MemberCount int
	DisplayName string
}

// IsGroup reports whether the chat has more than two members.
func (c Chat) IsGroup() bool {
	return c.MemberCount > 2
}

// ChatMember links a user to a chat (group_chat_participants).
type ChatMember struct {
	ChatID string
	UserID string
}

// CareerNotes is the single notebook a user keeps in the dashboard.
type CareerNotes struct {
	UserID    string     `json:"userId"`
	Body      string     `json:"body"`
	UpdatedAt *time.Time `json:"updatedAt,omitempty"`
}

// Session is an authenticated session issued by the identity provider.
type Session struct {
	AccessToken  string
	RefreshToken string
	TokenType    string
	ExpiresIn    int
	UserID       string
}
